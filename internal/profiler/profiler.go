// Package profiler determines MLST profiles of query genomes, either locally
// against a prepared scheme cache or through a BIGSdb typing service.
package profiler

import (
	"context"
	"errors"

	"mlst/internal/mlst"
)

// Profiler is implemented by Local and Remote.
type Profiler interface {
	// DetermineAlleleVariants calls visit once per locus call found in the
	// query sequences of one genome.
	DetermineAlleleVariants(ctx context.Context, queries []string, visit func(mlst.Allele) error) error
	// DetermineSequenceType classifies a complete set of allele calls.
	DetermineSequenceType(ctx context.Context, alleles []mlst.Allele) (mlst.Profile, error)
	// ProfileOne runs both steps for one genome.
	ProfileOne(ctx context.Context, queries []string) (mlst.Profile, error)
	// ProfileMany profiles genomes in order. With stopOnFail the first
	// failure is returned; otherwise it is reported through visit with the
	// unknown profile and profiling continues.
	ProfileMany(ctx context.Context, seqs []mlst.NamedSequence, stopOnFail bool, visit func(mlst.NamedProfile) error) error
	Close() error
}

// Collect gathers the allele calls of one genome.
func Collect(ctx context.Context, p Profiler, queries []string) ([]mlst.Allele, error) {
	var out []mlst.Allele
	err := p.DetermineAlleleVariants(ctx, queries, func(a mlst.Allele) error {
		out = append(out, a)
		return nil
	})
	return out, err
}

func profileOne(ctx context.Context, p Profiler, queries []string) (mlst.Profile, error) {
	alleles, err := Collect(ctx, p, queries)
	if err != nil {
		return mlst.Profile{}, err
	}
	return p.DetermineSequenceType(ctx, alleles)
}

func profileMany(ctx context.Context, p Profiler, seqs []mlst.NamedSequence, stopOnFail bool, visit func(mlst.NamedProfile) error) error {
	for _, s := range seqs {
		if err := ctx.Err(); err != nil {
			return err
		}
		prof, err := p.ProfileOne(ctx, s.Sequences)
		if err != nil {
			if stopOnFail || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return &ItemError{Name: s.Name, Err: err}
			}
			if err := visit(mlst.NamedProfile{Name: s.Name, Profile: mlst.UnknownProfile(), Err: err}); err != nil {
				return err
			}
			continue
		}
		if err := visit(mlst.NamedProfile{Name: s.Name, Profile: prof}); err != nil {
			return err
		}
	}
	return nil
}

// ItemError names the genome a batch stopped on.
type ItemError struct {
	Name string
	Err  error
}

func (e *ItemError) Error() string { return e.Name + ": " + e.Err.Error() }
func (e *ItemError) Unwrap() error { return e.Err }
