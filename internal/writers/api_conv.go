package writers

import (
	"mlst/internal/mlst"
	"mlst/pkg/api"
)

// ToAPIProfile converts a profiling result to its v1 wire form.
func ToAPIProfile(p mlst.NamedProfile) api.ProfileV1 {
	out := api.ProfileV1{
		Name:          p.Name,
		SequenceType:  p.Profile.SequenceType,
		ClonalComplex: p.Profile.ClonalComplex,
		Alleles:       make([]api.AlleleV1, 0, len(p.Profile.Alleles)),
	}
	if p.Err != nil {
		out.Error = p.Err.Error()
	}
	for _, a := range p.Profile.Alleles {
		v := api.AlleleV1{Locus: a.Locus, Variant: a.Variant, Exact: a.Exact()}
		if st := a.Partial; st != nil {
			pi, mm, gaps, score := st.PercentIdentity, st.Mismatches, st.Gaps, st.Score
			v.PercentIdentity, v.Mismatches, v.Gaps, v.Score = &pi, &mm, &gaps, &score
		}
		out.Alleles = append(out.Alleles, v)
	}
	return out
}

// AlleleText renders a call for tabular output; partial calls get a '*'.
func AlleleText(a mlst.Allele) string {
	if a.Exact() {
		return a.Variant
	}
	return a.Variant + "*"
}
