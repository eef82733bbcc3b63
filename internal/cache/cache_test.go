package cache

import (
	"context"
	"errors"
	"os"
	"testing"

	"mlst/internal/mlst"
)

func TestOwnedDirRemovedOnClose(t *testing.T) {
	d, err := OpenDir("")
	if err != nil {
		t.Fatal(err)
	}
	p := d.Path()
	if !d.Owned() {
		t.Fatal("temp dir must be owned")
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("temp dir still present: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSuppliedDirKeptOnClose(t *testing.T) {
	p := t.TempDir()
	d, err := OpenDir(p)
	if err != nil {
		t.Fatal(err)
	}
	if d.Owned() {
		t.Fatal("supplied dir must not be owned")
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("supplied dir removed: %v", err)
	}
}

func TestLoad(t *testing.T) {
	d, err := OpenDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	write := func(locus, body string) {
		if err := os.WriteFile(d.LocusPath(locus), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("adk", ">adk_1\nACGT\n>adk_2\nACGA\n")
	write("pgm", ">pgm_7\nTTTT\n")
	write("icd", "")

	lc, err := Load(context.Background(), d, []string{"pgm", "adk", "icd"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	loci := lc.Loci()
	if len(loci) != 3 || loci[0] != "adk" || loci[2] != "pgm" {
		t.Fatalf("loci=%v", loci)
	}
	vs := lc.Variants("adk")
	if len(vs) != 2 || vs[0].ID != "1" || vs[1].ID != "2" || vs[1].Sequence != "ACGA" {
		t.Fatalf("adk=%+v", vs)
	}
	if len(lc.Variants("icd")) != 0 {
		t.Fatal("icd should be empty")
	}
}

func TestLoadMissingLocusFile(t *testing.T) {
	d, _ := OpenDir(t.TempDir())
	if _, err := Load(context.Background(), d, []string{"adk"}); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want not-exist, got %v", err)
	}
	if _, err := Load(context.Background(), d, nil); !errors.Is(err, mlst.ErrNoLociConfigured) {
		t.Fatalf("want ErrNoLociConfigured, got %v", err)
	}
}

func TestVariantID(t *testing.T) {
	cases := []struct{ header, locus, want string }{
		{"adk_12", "adk", "12"},
		{"abcZ_3", "abcZ", "3"},
		{"lpxC_fix_4", "lpxC_fix", "4"},
		{"other_9", "adk", "9"},
		{"17", "adk", "17"},
	}
	for _, c := range cases {
		if got := VariantID(c.header, c.locus); got != c.want {
			t.Errorf("VariantID(%q,%q)=%q want %q", c.header, c.locus, got, c.want)
		}
	}
}
