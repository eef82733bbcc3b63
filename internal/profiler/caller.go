package profiler

import (
	"context"
	"errors"

	"mlst/internal/engine"
	"mlst/internal/mlst"
)

type phase uint8

const (
	phaseFull phase = iota
	phaseRefine
)

func (p phase) String() string {
	if p == phaseRefine {
		return "refine"
	}
	return "full"
}

// call tags one alignment: variant indexes the locus catalog.
type call struct {
	locus   string
	variant int
	phase   phase
}

type candidate struct {
	variant int
	result  engine.Result
}

type locusState struct {
	exact bool
	cands []candidate
}

// best is the highest-scoring candidate; equal scores go to the lower
// catalog index so the outcome does not depend on completion order.
func (s *locusState) best() (candidate, bool) {
	if len(s.cands) == 0 {
		return candidate{}, false
	}
	b := s.cands[0]
	for _, c := range s.cands[1:] {
		if c.result.Stats.Score > b.result.Stats.Score ||
			(c.result.Stats.Score == b.result.Stats.Score && c.variant < b.variant) {
			b = c
		}
	}
	return b, true
}

// DetermineAlleleVariants aligns every query against the first variant of
// each locus. A full-length identical hit is reported at once and ends the
// work on that locus. Otherwise the aligned part of the query is re-aligned
// against every other variant, and once all alignments are in, the locus is
// reported with its best-scoring variant. A locus nothing aligns to is not
// reported. Per-locus state is shared by all queries of the call, so the
// first exact hit among several contigs wins.
//
// Exact calls are visited as they are found, ranked calls afterwards in
// locus order.
func (l *Local) DetermineAlleleVariants(ctx context.Context, queries []string, visit func(mlst.Allele) error) error {
	eng := engine.New[call](l.aligner, l.workers)
	defer eng.Shutdown()

	for _, locus := range l.loci {
		vs := l.cache.Variants(locus)
		if len(vs) == 0 {
			l.log.Warn().Err(mlst.ErrEmptyLocusCache).Str("locus", locus).Msg("skipping locus")
			continue
		}
		for _, q := range queries {
			if q == "" {
				continue
			}
			if err := eng.Submit(vs[0].Sequence, q, call{locus: locus, variant: 0, phase: phaseFull}); err != nil {
				return err
			}
		}
	}

	states := make(map[string]*locusState, len(l.loci))
	state := func(locus string) *locusState {
		s, ok := states[locus]
		if !ok {
			s = &locusState{}
			states[locus] = s
		}
		return s
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c, err := eng.Next(ctx)
		if errors.Is(err, engine.ErrEndOfStream) {
			break
		}
		if err != nil {
			var af *engine.AlignmentFailure
			if errors.As(err, &af) {
				l.log.Warn().Err(af.Err).
					Str("locus", c.Meta.locus).
					Int("variant", c.Meta.variant).
					Stringer("phase", c.Meta.phase).
					Msg("alignment failed")
				continue
			}
			return err
		}

		s := state(c.Meta.locus)
		if s.exact {
			continue
		}
		if _, _, ok := c.Result.Alignment().RefSpan(); !ok {
			// Nothing aligned; no evidence for this variant.
			continue
		}
		vs := l.cache.Variants(c.Meta.locus)
		if c.Meta.phase == phaseRefine {
			s.cands = append(s.cands, candidate{variant: c.Meta.variant, result: c.Result})
			continue
		}
		if isExact(c.Result) {
			s.exact = true
			s.cands = nil
			if err := visit(mlst.Allele{Locus: c.Meta.locus, Variant: vs[c.Meta.variant].ID}); err != nil {
				return err
			}
			continue
		}
		s.cands = append(s.cands, candidate{variant: c.Meta.variant, result: c.Result})
		seg, ok := interestSegment(c.Result)
		if !ok {
			continue
		}
		for i := 1; i < len(vs); i++ {
			if err := eng.Submit(vs[i].Sequence, seg, call{locus: c.Meta.locus, variant: i, phase: phaseRefine}); err != nil {
				return err
			}
		}
	}

	for _, locus := range l.loci {
		s, ok := states[locus]
		if !ok || s.exact {
			continue
		}
		b, ok := s.best()
		if !ok {
			continue
		}
		a := mlst.Allele{Locus: locus, Variant: l.cache.Variants(locus)[b.variant].ID}
		if !isExact(b.result) {
			st := b.result.Stats
			a.Partial = &st
		}
		if err := visit(a); err != nil {
			return err
		}
	}
	return nil
}

// isExact reports an alignment identical to the whole reference variant.
func isExact(r engine.Result) bool {
	st := r.Stats
	if st.Mismatches != 0 || st.Gaps != 0 {
		return false
	}
	first, last, ok := r.Alignment().RefSpan()
	return ok && first == 0 && last == len(r.Reference)-1
}

// interestSegment is the part of the query covered by the alignment.
func interestSegment(r engine.Result) (string, bool) {
	first, last, ok := r.Alignment().QuerySpan()
	if !ok {
		return "", false
	}
	return r.Query[first : last+1], true
}
