package profiler

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"mlst/internal/bigsdb"
	"mlst/internal/mlst"
)

// Remote types genomes through the BIGSdb sequence and designations
// endpoints of one scheme.
type Remote struct {
	client   *bigsdb.Client
	api      string
	database string
	scheme   int
	log      zerolog.Logger
}

var _ Profiler = (*Remote)(nil)

// NewRemote returns a profiler for scheme of database at api. An empty api is
// looked up among the client's known APIs.
func NewRemote(ctx context.Context, client *bigsdb.Client, api, database string, scheme int, logger zerolog.Logger) (*Remote, error) {
	if client == nil {
		client = bigsdb.New(nil)
	}
	if api == "" {
		var err error
		if api, err = client.APIFor(ctx, database); err != nil {
			return nil, err
		}
	}
	return &Remote{client: client, api: api, database: database, scheme: scheme, log: logger}, nil
}

func (r *Remote) DetermineAlleleVariants(ctx context.Context, queries []string, visit func(mlst.Allele) error) error {
	for _, q := range queries {
		m, err := r.client.QuerySequence(ctx, r.api, r.database, r.scheme, q)
		if err != nil {
			return err
		}
		switch {
		case len(m.Exact) > 0:
			for _, locus := range sortedKeys(m.Exact) {
				for _, e := range m.Exact[locus] {
					if err := visit(mlst.Allele{Locus: locus, Variant: string(e.AlleleID)}); err != nil {
						return err
					}
				}
			}
		case len(m.Partial) > 0:
			for _, locus := range sortedKeys(m.Partial) {
				p := m.Partial[locus]
				if p.Allele == "" {
					continue
				}
				r.log.Debug().Str("locus", locus).Str("allele", string(p.Allele)).Msg("partial match")
				st := mlst.AlignmentStats{
					PercentIdentity: fraction(p.Identity),
					Mismatches:      p.Mismatches,
					Gaps:            p.Gaps,
					Score:           int(math.Round(p.Bitscore)),
				}
				if err := visit(mlst.Allele{Locus: locus, Variant: string(p.Allele), Partial: &st}); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("%w: %s scheme %d", mlst.ErrNoMatches, r.database, r.scheme)
		}
	}
	return nil
}

// DetermineSequenceType asks the service to classify alleles. The returned
// profile keeps the given calls, partial statistics included.
func (r *Remote) DetermineSequenceType(ctx context.Context, alleles []mlst.Allele) (mlst.Profile, error) {
	if len(alleles) == 0 {
		return mlst.Profile{}, fmt.Errorf("%w: no alleles to classify", mlst.ErrNoMatches)
	}
	req := make(map[string][]string, len(alleles))
	for _, a := range alleles {
		req[a.Locus] = append(req[a.Locus], a.Variant)
	}
	d, err := r.client.Designations(ctx, r.api, r.database, r.scheme, req)
	if err != nil {
		return mlst.Profile{}, err
	}
	for locus, ms := range d.ExactMatches {
		if len(ms) > 1 {
			return mlst.Profile{}, fmt.Errorf("profiler: %d alleles designated for locus %s, want 1", len(ms), locus)
		}
	}
	p := mlst.UnknownProfile()
	p.Alleles = append([]mlst.Allele(nil), alleles...)
	mlst.SortAlleles(p.Alleles)
	if st := d.Fields["ST"]; st != "" {
		p.SequenceType = string(st)
	}
	if cc := d.Fields["clonal_complex"]; cc != "" {
		p.ClonalComplex = string(cc)
	}
	return p, nil
}

func (r *Remote) ProfileOne(ctx context.Context, queries []string) (mlst.Profile, error) {
	return profileOne(ctx, r, queries)
}

func (r *Remote) ProfileMany(ctx context.Context, seqs []mlst.NamedSequence, stopOnFail bool, visit func(mlst.NamedProfile) error) error {
	return profileMany(ctx, r, seqs, stopOnFail, visit)
}

func (r *Remote) Close() error {
	r.client.HTTP.CloseIdleConnections()
	return nil
}

// fraction normalises a BIGSdb identity, reported in percent.
func fraction(identity float64) float64 {
	if identity > 1 {
		return identity / 100
	}
	return identity
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
