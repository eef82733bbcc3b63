package fasta

import (
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const plain = `>seq1 first record
ACGT
acgt
>seq2
NNnn

; comment
>empty
`

func collect(t *testing.T, data string) []Record {
	t.Helper()
	var out []Record
	if err := Scan(context.Background(), strings.NewReader(data), func(r Record) error {
		out = append(out, r)
		return nil
	}); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestScanRecords(t *testing.T) {
	recs := collect(t, plain)
	if len(recs) != 3 {
		t.Fatalf("want 3 records, got %d", len(recs))
	}
	if recs[0].ID != "seq1" || recs[0].Description != "seq1 first record" || string(recs[0].Seq) != "ACGTacgt" {
		t.Fatalf("rec0 = %+v", recs[0])
	}
	if string(recs[1].Seq) != "NNnn" {
		t.Fatalf("rec1 seq = %q", recs[1].Seq)
	}
	if recs[2].ID != "empty" || len(recs[2].Seq) != 0 {
		t.Fatalf("rec2 = %+v", recs[2])
	}
}

func TestScanRejectsHeaderlessData(t *testing.T) {
	err := Scan(context.Background(), strings.NewReader("ACGT\n>x\nA\n"), func(Record) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("want line error, got %v", err)
	}
}

func TestScanStopsOnEmitError(t *testing.T) {
	stop := errors.New("stop")
	n := 0
	err := Scan(context.Background(), strings.NewReader(plain), func(Record) error {
		n++
		return stop
	})
	if !errors.Is(err, stop) || n != 1 {
		t.Fatalf("err=%v n=%d", err, n)
	}
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Scan(ctx, strings.NewReader(plain), func(Record) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestReadFileGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.fa.gz")
	fh, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(fh)
	if _, err := gw.Write([]byte(plain)); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := fh.Close(); err != nil {
		t.Fatal(err)
	}
	recs, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 3 || recs[0].ID != "seq1" {
		t.Fatalf("recs = %+v", recs)
	}
}

func TestReadFileGzipMagicWithoutSuffix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.fa")
	fh, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(fh)
	_, _ = gw.Write([]byte(">a\nAC\n"))
	_ = gw.Close()
	_ = fh.Close()
	recs, err := ReadFile(path)
	if err != nil || len(recs) != 1 || string(recs[0].Seq) != "AC" {
		t.Fatalf("recs=%+v err=%v", recs, err)
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "nope.fa")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want not-exist, got %v", err)
	}
}
