package align

import "math"

const negInf = math.MinInt32 / 2

// DefaultMaxCandidates bounds how many equally scoring alignments are returned.
const DefaultMaxCandidates = 4

// SmithWaterman is an affine-gap local aligner.
//
// The forward pass keeps one row of scores (linear in the reference length)
// and remembers where each cell's best path started. Every end cell that hits
// the maximum score is then re-aligned globally inside its bounding box to
// recover the columns.
type SmithWaterman struct {
	Scoring       Scoring
	MaxCandidates int
}

// NewSmithWaterman returns an aligner using sc.
func NewSmithWaterman(sc Scoring) *SmithWaterman {
	return &SmithWaterman{Scoring: sc, MaxCandidates: DefaultMaxCandidates}
}

type cell struct{ q, r int }

type hit struct {
	start, end cell
}

// Align implements Aligner.
func (sw *SmithWaterman) Align(reference, query string) ([]Alignment, error) {
	if len(reference) == 0 || len(query) == 0 {
		return nil, ErrEmptySequence
	}
	ref := fold(reference)
	q := fold(query)

	best, hits := sw.scan(ref, q)
	if best <= 0 {
		return []Alignment{{}}, nil
	}
	out := make([]Alignment, 0, len(hits))
	for _, h := range hits {
		out = append(out, sw.boxAlign(ref, q, h))
	}
	return out, nil
}

func (sw *SmithWaterman) maxCands() int {
	if sw.MaxCandidates <= 0 {
		return DefaultMaxCandidates
	}
	return sw.MaxCandidates
}

// scan runs the local recurrence row by row over the query.
func (sw *SmithWaterman) scan(ref, q []byte) (int, []hit) {
	sc := sw.Scoring
	n := len(ref)
	hPrev := make([]int, n+1)
	hCur := make([]int, n+1)
	fRow := make([]int, n+1)
	hsPrev := make([]cell, n+1)
	hsCur := make([]cell, n+1)
	fs := make([]cell, n+1)
	for j := range fRow {
		fRow[j] = negInf
	}

	best := 0
	var hits []hit
	limit := sw.maxCands()

	for i := 1; i <= len(q); i++ {
		hCur[0] = 0
		e := negInf
		var es cell
		qb := q[i-1]
		for j := 1; j <= n; j++ {
			// gap in the query, consuming reference
			if open, ext := hCur[j-1]+sc.GapOpen, e+sc.GapExtend; open >= ext {
				e, es = open, hsCur[j-1]
			} else {
				e = ext
			}
			// gap in the reference, consuming query
			if open, ext := hPrev[j]+sc.GapOpen, fRow[j]+sc.GapExtend; open >= ext {
				fRow[j], fs[j] = open, hsPrev[j]
			} else {
				fRow[j] = ext
			}

			d := hPrev[j-1] + sc.pair(ref[j-1], qb)
			ds := hsPrev[j-1]
			if hPrev[j-1] == 0 {
				ds = cell{q: i - 1, r: j - 1}
			}

			h, hs := 0, cell{}
			if d > h {
				h, hs = d, ds
			}
			if e > h {
				h, hs = e, es
			}
			if fRow[j] > h {
				h, hs = fRow[j], fs[j]
			}
			hCur[j], hsCur[j] = h, hs

			switch {
			case h > best:
				best = h
				hits = append(hits[:0], hit{start: hs, end: cell{q: i - 1, r: j - 1}})
			case h == best && h > 0 && len(hits) < limit:
				hits = append(hits, hit{start: hs, end: cell{q: i - 1, r: j - 1}})
			}
		}
		hPrev, hCur = hCur, hPrev
		hsPrev, hsCur = hsCur, hsPrev
	}
	return best, hits
}

// boxAlign globally aligns ref[start.r..end.r] with q[start.q..end.q]. An
// optimal local path spanning exactly that box is also an optimal global
// alignment of the box, so the traceback recovers it.
func (sw *SmithWaterman) boxAlign(ref, q []byte, h hit) Alignment {
	sc := sw.Scoring
	r := ref[h.start.r : h.end.r+1]
	qq := q[h.start.q : h.end.q+1]
	rows, cols := len(qq)+1, len(r)+1
	at := func(i, j int) int { return i*cols + j }

	H := make([]int, rows*cols)
	E := make([]int, rows*cols)
	F := make([]int, rows*cols)
	E[0], F[0] = negInf, negInf
	for j := 1; j < cols; j++ {
		E[at(0, j)] = max(H[at(0, j-1)]+sc.GapOpen, E[at(0, j-1)]+sc.GapExtend)
		F[at(0, j)] = negInf
		H[at(0, j)] = E[at(0, j)]
	}
	for i := 1; i < rows; i++ {
		F[at(i, 0)] = max(H[at(i-1, 0)]+sc.GapOpen, F[at(i-1, 0)]+sc.GapExtend)
		E[at(i, 0)] = negInf
		H[at(i, 0)] = F[at(i, 0)]
		for j := 1; j < cols; j++ {
			E[at(i, j)] = max(H[at(i, j-1)]+sc.GapOpen, E[at(i, j-1)]+sc.GapExtend)
			F[at(i, j)] = max(H[at(i-1, j)]+sc.GapOpen, F[at(i-1, j)]+sc.GapExtend)
			H[at(i, j)] = max(H[at(i-1, j-1)]+sc.pair(r[j-1], qq[i-1]), E[at(i, j)], F[at(i, j)])
		}
	}

	const (
		inH = iota
		inE
		inF
	)
	var refIdx, qIdx []int
	i, j, state := rows-1, cols-1, inH
	for i > 0 || j > 0 {
		switch state {
		case inH:
			switch {
			case i > 0 && j > 0 && H[at(i, j)] == H[at(i-1, j-1)]+sc.pair(r[j-1], qq[i-1]):
				refIdx = append(refIdx, j-1)
				qIdx = append(qIdx, i-1)
				i--
				j--
			case j > 0 && H[at(i, j)] == E[at(i, j)]:
				state = inE
			default:
				state = inF
			}
		case inE:
			refIdx = append(refIdx, j-1)
			qIdx = append(qIdx, -1)
			if E[at(i, j)] == H[at(i, j-1)]+sc.GapOpen {
				state = inH
			}
			j--
		case inF:
			refIdx = append(refIdx, -1)
			qIdx = append(qIdx, i-1)
			if F[at(i, j)] == H[at(i-1, j)]+sc.GapOpen {
				state = inH
			}
			i--
		}
	}

	a := Alignment{
		RefIndices:   make([]int, len(refIdx)),
		QueryIndices: make([]int, len(qIdx)),
		Length:       len(refIdx),
		Score:        H[at(rows-1, cols-1)],
	}
	for k := range refIdx {
		ri, qi := refIdx[len(refIdx)-1-k], qIdx[len(qIdx)-1-k]
		switch {
		case ri < 0 || qi < 0:
			a.Gaps++
		case matches(r[ri], qq[qi]):
			a.Identities++
		default:
			a.Mismatches++
		}
		if ri >= 0 {
			ri += h.start.r
		}
		if qi >= 0 {
			qi += h.start.q
		}
		a.RefIndices[k], a.QueryIndices[k] = ri, qi
	}
	return a
}

func (sc Scoring) pair(a, b byte) int {
	if matches(a, b) {
		return sc.Match
	}
	return sc.Mismatch
}

// matches reports identity of two folded bases; ambiguity codes never match.
func matches(a, b byte) bool {
	if a != b {
		return false
	}
	switch a {
	case 'A', 'C', 'G', 'T':
		return true
	}
	return false
}

func fold(s string) []byte {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return out
}
