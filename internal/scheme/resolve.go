package scheme

import "mlst/internal/mlst"

// Resolve requires one allele for each of loci and looks the combination up
// in t, in the table's own locus order. An absent combination is not an
// error: the profile then carries mlst.Unknown. When alleles repeat a locus
// the last one wins.
func Resolve(alleles []mlst.Allele, loci []string, t *Table) (mlst.Profile, error) {
	if len(loci) == 0 {
		return mlst.Profile{}, mlst.ErrNoLociConfigured
	}
	byLocus := make(map[string]mlst.Allele, len(alleles))
	for _, a := range alleles {
		byLocus[a.Locus] = a
	}
	out := make([]mlst.Allele, 0, len(loci))
	for _, l := range loci {
		a, ok := byLocus[l]
		if !ok {
			return mlst.Profile{}, &mlst.MissingLocusAlleleError{Locus: l}
		}
		out = append(out, a)
	}
	mlst.SortAlleles(out)

	p := mlst.Profile{Alleles: out, SequenceType: mlst.Unknown, ClonalComplex: mlst.Unknown}
	if t != nil {
		variants := make([]string, len(t.loci))
		for i, l := range t.loci {
			a, ok := byLocus[l]
			if !ok {
				return mlst.Profile{}, &mlst.MissingLocusAlleleError{Locus: l}
			}
			variants[i] = a.Variant
		}
		if e, ok := t.Lookup(variants); ok {
			p.SequenceType = e.SequenceType
			p.ClonalComplex = e.ClonalComplex
		}
	}
	return p, nil
}
