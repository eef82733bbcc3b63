// pkg/api/profile_v1.go
package api

// AlleleV1 is one locus call. Partial fields are present only for
// non-exact calls.
type AlleleV1 struct {
	Locus           string   `json:"locus"`
	Variant         string   `json:"variant"`
	Exact           bool     `json:"exact"`
	PercentIdentity *float64 `json:"percent_identity,omitempty"`
	Mismatches      *int     `json:"mismatches,omitempty"`
	Gaps            *int     `json:"gaps,omitempty"`
	Score           *int     `json:"score,omitempty"`
}

// ProfileV1 is the stable JSON/JSONL schema of one typed genome.
// Keep fields, names, and types stable. Add new fields only with ",omitempty".
type ProfileV1 struct {
	Name          string     `json:"name"`
	SequenceType  string     `json:"sequence_type"`
	ClonalComplex string     `json:"clonal_complex"`
	Alleles       []AlleleV1 `json:"alleles"`
	Error         string     `json:"error,omitempty"`
}
