package scheme

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mlst/internal/mlst"
)

var fixtureLoci = []string{"adk", "fumC", "glyA", "icd", "pepA", "pgm", "tyrB"}

const fixture = "ST\tadk\tfumC\tglyA\ttyrB\ticd\tpepA\tpgm\tclonal_complex\tspecies\n" +
	"1\t1\t1\t1\t1\t1\t1\t1\tST-2 complex\tB. pertussis\n" +
	"2\t1\t1\t1\t2\t1\t1\t1\tST-2 complex\tB. pertussis\n" +
	"3\t2\t1\t1\t1\t1\t1\t1\t\t\n" +
	"\n"

func mustTable(t *testing.T) *Table {
	t.Helper()
	tab, err := ParseTable(strings.NewReader(fixture), fixtureLoci)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return tab
}

func allOnes() []mlst.Allele {
	var as []mlst.Allele
	for _, l := range []string{"adk", "fumC", "glyA", "tyrB", "icd", "pepA", "pgm"} {
		as = append(as, mlst.Allele{Locus: l, Variant: "1"})
	}
	return as
}

func TestParseTable(t *testing.T) {
	tab := mustTable(t)
	if tab.Len() != 3 {
		t.Fatalf("rows=%d", tab.Len())
	}
	e, ok := tab.Lookup([]string{"2", "1", "1", "1", "1", "1", "1"})
	if !ok || e.SequenceType != "3" || e.ClonalComplex != mlst.Unknown {
		t.Fatalf("ST3 entry = %+v ok=%v", e, ok)
	}
}

func TestParseTableErrors(t *testing.T) {
	cases := map[string]string{
		"no header":     "",
		"no ST":         "adk\tfumC\n1\t1\n",
		"missing locus": "ST\tadk\n1\t1\n",
		"short row":     "ST\tadk\tfumC\tglyA\ttyrB\ticd\tpepA\tpgm\n1\t1\t1\n",
	}
	for name, in := range cases {
		if _, err := ParseTable(strings.NewReader(in), fixtureLoci); err == nil {
			t.Errorf("%s: want error", name)
		}
	}
	_, err := ParseTable(strings.NewReader("ST\tadk\tfumC\tglyA\ttyrB\ticd\tpepA\tpgm\n1\t1\t1\n"), fixtureLoci)
	if err == nil || !strings.Contains(err.Error(), ":2 ") {
		t.Fatalf("want line number in error, got %v", err)
	}
}

func TestHeaderLoci(t *testing.T) {
	loci, err := HeaderLoci(strings.NewReader(fixture))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(loci, ",") != strings.Join(fixtureLoci, ",") {
		t.Fatalf("loci=%v", loci)
	}
	if _, err := HeaderLoci(strings.NewReader("ST\tclonal_complex\n")); !errors.Is(err, mlst.ErrNoLociConfigured) {
		t.Fatalf("want ErrNoLociConfigured, got %v", err)
	}
}

func TestLoadTableFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.csv")
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatal(err)
	}
	loci, err := TableLoci(path)
	if err != nil {
		t.Fatal(err)
	}
	tab, err := LoadTable(path, loci)
	if err != nil {
		t.Fatal(err)
	}
	if tab.Len() != 3 {
		t.Fatalf("rows=%d", tab.Len())
	}
}

func TestResolveKnownCombination(t *testing.T) {
	tab := mustTable(t)
	for i := 0; i < 3; i++ {
		p, err := Resolve(allOnes(), fixtureLoci, tab)
		if err != nil {
			t.Fatal(err)
		}
		if p.SequenceType != "1" || p.ClonalComplex != "ST-2 complex" {
			t.Fatalf("profile=%+v", p)
		}
		if len(p.Alleles) != 7 || p.Alleles[0].Locus != "adk" || p.Alleles[6].Locus != "tyrB" {
			t.Fatalf("alleles not sorted by locus: %+v", p.Alleles)
		}
	}
}

func TestResolveUnknownCombination(t *testing.T) {
	as := allOnes()
	as[0].Variant = "99"
	p, err := Resolve(as, fixtureLoci, mustTable(t))
	if err != nil {
		t.Fatalf("unknown combination must not error: %v", err)
	}
	if p.SequenceType != mlst.Unknown || p.ClonalComplex != mlst.Unknown {
		t.Fatalf("profile=%+v", p)
	}
}

func TestResolveMissingLocus(t *testing.T) {
	as := allOnes()[1:]
	_, err := Resolve(as, fixtureLoci, mustTable(t))
	var me *mlst.MissingLocusAlleleError
	if !errors.As(err, &me) || me.Locus != "adk" {
		t.Fatalf("want missing adk, got %v", err)
	}
	if !errors.Is(err, mlst.ErrMissingLocusAllele) {
		t.Fatal("want ErrMissingLocusAllele")
	}
}
