// Package mlst holds the data types shared by the allele callers, the
// profile resolver and the reporting layers.
package mlst

import (
	"sort"

	"mlst/internal/align"
)

// Unknown is the sequence type and clonal complex of an allele combination
// absent from the profile table.
const Unknown = "unknown"

// AlignmentStats summarises a partial match.
type AlignmentStats = align.Stats

// Allele is the call for one locus. Partial is nil for an exact match.
type Allele struct {
	Locus   string          `json:"locus"`
	Variant string          `json:"variant"`
	Partial *AlignmentStats `json:"partial,omitempty"`
}

// Exact reports whether the call matched a catalog variant exactly.
func (a Allele) Exact() bool { return a.Partial == nil }

// Profile is one resolved MLST profile.
type Profile struct {
	Alleles       []Allele `json:"alleles"`
	SequenceType  string   `json:"sequence_type"`
	ClonalComplex string   `json:"clonal_complex"`
}

// UnknownProfile returns the sentinel used for unresolvable inputs.
func UnknownProfile() Profile {
	return Profile{SequenceType: Unknown, ClonalComplex: Unknown}
}

// Allele returns the call for locus.
func (p Profile) Allele(locus string) (Allele, bool) {
	for _, a := range p.Alleles {
		if a.Locus == locus {
			return a, true
		}
	}
	return Allele{}, false
}

// Loci lists the loci of p in sorted order.
func (p Profile) Loci() []string {
	out := make([]string, 0, len(p.Alleles))
	for _, a := range p.Alleles {
		out = append(out, a.Locus)
	}
	sort.Strings(out)
	return out
}

// SortAlleles orders alleles by locus name in place.
func SortAlleles(as []Allele) {
	sort.SliceStable(as, func(i, j int) bool { return as[i].Locus < as[j].Locus })
}

// NamedSequence is one query genome. A genome may consist of several
// sequences (contigs).
type NamedSequence struct {
	Name      string
	Sequences []string
}

// NamedProfile is the outcome of profiling one NamedSequence. Err is set when
// profiling failed and Profile is then the unknown sentinel.
type NamedProfile struct {
	Name    string
	Profile Profile
	Err     error
}

// Failed reports whether the item could not be profiled.
func (n NamedProfile) Failed() bool { return n.Err != nil }
