package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"mlst/internal/fasta"
	"mlst/internal/mlst"
)

// Variant is one catalog sequence of a locus.
type Variant struct {
	ID       string
	Sequence string
}

// LocusCache holds the ordered variants of every locus. It is read-only once
// built and may be shared between goroutines.
type LocusCache struct {
	loci     []string
	variants map[string][]Variant
}

// NewLocusCache builds a cache from in-memory catalogs. Loci are sorted.
func NewLocusCache(catalog map[string][]Variant) *LocusCache {
	lc := &LocusCache{variants: make(map[string][]Variant, len(catalog))}
	for locus, vs := range catalog {
		lc.loci = append(lc.loci, locus)
		lc.variants[locus] = append([]Variant(nil), vs...)
	}
	sort.Strings(lc.loci)
	return lc
}

// Loci returns the loci in sorted order.
func (lc *LocusCache) Loci() []string { return append([]string(nil), lc.loci...) }

// Variants returns the catalog of locus in file order.
func (lc *LocusCache) Variants(locus string) []Variant { return lc.variants[locus] }

// Load reads the FASTA catalog of every locus from d. A locus whose file has
// no records is kept with an empty catalog.
func Load(ctx context.Context, d *Dir, loci []string) (*LocusCache, error) {
	if len(loci) == 0 {
		return nil, mlst.ErrNoLociConfigured
	}
	var (
		mu      sync.Mutex
		catalog = make(map[string][]Variant, len(loci))
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, locus := range loci {
		locus := locus
		g.Go(func() error {
			var vs []Variant
			err := fasta.StreamPath(ctx, d.LocusPath(locus), func(r fasta.Record) error {
				vs = append(vs, Variant{ID: VariantID(r.ID, locus), Sequence: string(r.Seq)})
				return nil
			})
			if err != nil {
				return fmt.Errorf("cache: locus %s: %w", locus, err)
			}
			mu.Lock()
			catalog[locus] = vs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewLocusCache(catalog), nil
}

// VariantID extracts the variant id from a catalog header such as "adk_12".
// Headers without an underscore are used as-is.
func VariantID(header, locus string) string {
	if id, ok := strings.CutPrefix(header, locus+"_"); ok && id != "" {
		return id
	}
	if i := strings.LastIndexByte(header, '_'); i >= 0 && i < len(header)-1 {
		return header[i+1:]
	}
	return header
}
