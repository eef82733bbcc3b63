package bigsdbtest

import (
	"math/rand"
	"strconv"
	"strings"
)

// MLSTLoci is the locus set of the canonical fixture scheme.
var MLSTLoci = []string{"adk", "fumC", "glyA", "icd", "pepA", "pgm", "tyrB"}

// VariantLength is the length of every fixture allele.
const VariantLength = 120

// MLST builds a seven-locus scheme with five variants per locus. Variant 1
// is random; variant k > 1 differs from it at positions 10+5k, 35+5k and
// 80+5k. All-ones resolves to ST 1 in the "ST-2 complex".
func MLST() Fixture {
	rng := rand.New(rand.NewSource(7))
	f := Fixture{
		Database: "pubmlst_fixture_seqdef",
		SchemeID: 1,
		Scheme:   "MLST",
		Loci:     make(map[string][]Variant, len(MLSTLoci)),
	}
	for _, locus := range MLSTLoci {
		base := RandomDNA(rng, VariantLength)
		vs := []Variant{{ID: "1", Sequence: base}}
		for k := 2; k <= 5; k++ {
			vs = append(vs, Variant{ID: strconv.Itoa(k), Sequence: Mutate(base, 10+5*k, 35+5*k, 80+5*k)})
		}
		f.Loci[locus] = vs
	}
	ones := map[string]string{}
	twos := map[string]string{}
	for _, l := range MLSTLoci {
		ones[l] = "1"
		twos[l] = "1"
	}
	twos["pgm"] = "2"
	f.Profiles = []ProfileRow{
		{ST: "1", ClonalComplex: "ST-2 complex", Alleles: ones},
		{ST: "3", ClonalComplex: "", Alleles: twos},
	}
	return f
}

// Genome joins the chosen variant of each locus (by id, loci in MLSTLoci
// order) with random spacers. Unlisted loci are left out.
func (f Fixture) Genome(pick map[string]string) string {
	rng := rand.New(rand.NewSource(11))
	var b strings.Builder
	b.WriteString(RandomDNA(rng, 80))
	for _, l := range MLSTLoci {
		id, ok := pick[l]
		if !ok {
			continue
		}
		for _, v := range f.Loci[l] {
			if v.ID == id {
				b.WriteString(v.Sequence)
			}
		}
		b.WriteString(RandomDNA(rng, 80))
	}
	return b.String()
}

// AllOnes picks variant 1 at every locus.
func AllOnes() map[string]string {
	m := make(map[string]string, len(MLSTLoci))
	for _, l := range MLSTLoci {
		m[l] = "1"
	}
	return m
}

// RandomDNA returns n random nucleotides.
func RandomDNA(rng *rand.Rand, n int) string {
	const bases = "ACGT"
	b := make([]byte, n)
	for i := range b {
		b[i] = bases[rng.Intn(4)]
	}
	return string(b)
}

// Mutate substitutes the base at each position.
func Mutate(s string, positions ...int) string {
	b := []byte(s)
	for _, p := range positions {
		switch b[p] {
		case 'A':
			b[p] = 'C'
		case 'C':
			b[p] = 'G'
		case 'G':
			b[p] = 'T'
		default:
			b[p] = 'A'
		}
	}
	return string(b)
}
