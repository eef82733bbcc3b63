// Package align computes scored pairwise local alignments between nucleotide
// sequences. It is domain-only: it never logs and knows nothing about loci or
// schemes.
package align

import "errors"

// ErrEmptySequence is returned when either input sequence is empty.
var ErrEmptySequence = errors.New("align: empty sequence")

// Scoring holds the weights of a nucleotide scoring scheme.
// A gap of length k scores GapOpen + (k-1)*GapExtend.
type Scoring struct {
	Match     int
	Mismatch  int
	GapOpen   int
	GapExtend int
}

// DefaultScoring mirrors the BLASTN defaults for local nucleotide alignment.
var DefaultScoring = Scoring{Match: 2, Mismatch: -3, GapOpen: -5, GapExtend: -2}

// Alignment is one candidate local alignment. RefIndices and QueryIndices
// have one entry per alignment column; -1 marks a gap in that sequence.
type Alignment struct {
	RefIndices   []int
	QueryIndices []int
	Identities   int
	Mismatches   int
	Gaps         int
	Length       int
	Score        int
}

// Stats summarizes an alignment for ranking and reporting.
type Stats struct {
	PercentIdentity float64 `json:"percent_identity"`
	Mismatches      int     `json:"mismatches"`
	Gaps            int     `json:"gaps"`
	Score           int     `json:"score"`
}

// Stats derives identity (0..1) and the counts of a.
func (a Alignment) Stats() Stats {
	st := Stats{Mismatches: a.Mismatches, Gaps: a.Gaps, Score: a.Score}
	if a.Length > 0 {
		st.PercentIdentity = float64(a.Identities) / float64(a.Length)
	}
	return st
}

// RefSpan returns the first and last aligned reference positions.
// ok is false when no reference position takes part in the alignment.
func (a Alignment) RefSpan() (first, last int, ok bool) { return span(a.RefIndices) }

// QuerySpan returns the first and last aligned query positions.
func (a Alignment) QuerySpan() (first, last int, ok bool) { return span(a.QueryIndices) }

func span(idx []int) (first, last int, ok bool) {
	first, last = -1, -1
	for _, v := range idx {
		if v < 0 {
			continue
		}
		if first < 0 {
			first = v
		}
		last = v
	}
	return first, last, first >= 0
}

// Aligner produces one or more candidate local alignments of query against
// reference. Implementations must be safe for concurrent use.
type Aligner interface {
	Align(reference, query string) ([]Alignment, error)
}

// AlignerFunc adapts a plain function to the Aligner interface.
type AlignerFunc func(reference, query string) ([]Alignment, error)

func (f AlignerFunc) Align(reference, query string) ([]Alignment, error) { return f(reference, query) }

// Best returns the maximum-score candidate; ties keep the earliest.
func Best(cands []Alignment) (Alignment, bool) {
	if len(cands) == 0 {
		return Alignment{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best, true
}
