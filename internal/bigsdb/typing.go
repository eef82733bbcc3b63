package bigsdb

import "context"

// ExactMatch is one allele matching a query exactly.
type ExactMatch struct {
	AlleleID ID `json:"allele_id"`
}

// PartialMatch is the closest allele of a locus with no exact match.
type PartialMatch struct {
	Allele     ID      `json:"allele"`
	Identity   float64 `json:"identity"`
	Mismatches int     `json:"mismatches"`
	Gaps       int     `json:"gaps"`
	Bitscore   float64 `json:"bitscore,omitempty"`
}

// SequenceMatches is the reply of a scheme sequence query. Both maps are
// keyed by locus.
type SequenceMatches struct {
	Exact   map[string][]ExactMatch `json:"exact_matches,omitempty"`
	Partial map[string]PartialMatch `json:"partial_matches,omitempty"`
}

// QuerySequence asks a scheme which alleles seq contains.
func (c *Client) QuerySequence(ctx context.Context, api, db string, scheme int, seq string) (SequenceMatches, error) {
	req := struct {
		Sequence       string `json:"sequence"`
		PartialMatches bool   `json:"partial_matches"`
	}{seq, true}
	var out SequenceMatches
	err := c.postJSON(ctx, schemeURL(api, db, scheme)+"/sequence", req, &out)
	return out, err
}

// Designation is the reply of a designations query.
type Designation struct {
	Fields       map[string]ID           `json:"fields"`
	ExactMatches map[string][]ExactMatch `json:"exact_matches"`
}

type designationAllele struct {
	Allele string `json:"allele"`
}

// Designations classifies a set of allele ids, keyed by locus.
func (c *Client) Designations(ctx context.Context, api, db string, scheme int, alleles map[string][]string) (Designation, error) {
	body := make(map[string][]designationAllele, len(alleles))
	for locus, ids := range alleles {
		for _, id := range ids {
			body[locus] = append(body[locus], designationAllele{Allele: id})
		}
	}
	var out Designation
	err := c.postJSON(ctx, schemeURL(api, db, scheme)+"/designations",
		map[string]any{"designations": body}, &out)
	return out, err
}
