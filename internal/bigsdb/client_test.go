package bigsdb_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"mlst/internal/bigsdb"
	"mlst/internal/bigsdb/bigsdbtest"
)

func newFake(t *testing.T) (*bigsdbtest.Server, *bigsdb.Client) {
	t.Helper()
	srv := bigsdbtest.New(bigsdbtest.MLST())
	t.Cleanup(srv.Close)
	return srv, bigsdb.New(srv.Client(), srv.URL)
}

func TestKnownSeqdefDBsCached(t *testing.T) {
	srv, c := newFake(t)
	ctx := context.Background()
	dbs, err := c.KnownSeqdefDBs(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(dbs) != 1 || dbs[srv.Fixture.Database] != srv.URL {
		t.Fatalf("dbs = %v", dbs)
	}
	n := srv.Requests.Load()
	if _, err := c.KnownSeqdefDBs(ctx, false); err != nil {
		t.Fatal(err)
	}
	if srv.Requests.Load() != n {
		t.Fatal("second listing should be served from cache")
	}
	if _, err := c.KnownSeqdefDBs(ctx, true); err != nil {
		t.Fatal(err)
	}
	if srv.Requests.Load() == n {
		t.Fatal("force should refetch")
	}
}

func TestSchemesAndLoci(t *testing.T) {
	srv, c := newFake(t)
	ctx := context.Background()
	schemes, err := c.Schemes(ctx, srv.Fixture.Database)
	if err != nil {
		t.Fatal(err)
	}
	if schemes["MLST"] != 1 {
		t.Fatalf("schemes = %v", schemes)
	}
	loci, err := c.SchemeLoci(ctx, srv.URL, srv.Fixture.Database, 1)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(loci, ",") != strings.Join(bigsdbtest.MLSTLoci, ",") {
		t.Fatalf("loci = %v", loci)
	}
}

func TestDownloads(t *testing.T) {
	srv, c := newFake(t)
	ctx := context.Background()
	var buf bytes.Buffer
	if err := c.DownloadAlleles(ctx, srv.URL, srv.Fixture.Database, "adk", &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), ">adk_1\n") || strings.Count(buf.String(), ">") != 5 {
		t.Fatalf("alleles = %q", buf.String())
	}
	buf.Reset()
	if err := c.DownloadProfiles(ctx, srv.URL, srv.Fixture.Database, 1, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "ST\tadk\t") {
		t.Fatalf("profiles = %q", buf.String())
	}
}

func TestErrors(t *testing.T) {
	srv, c := newFake(t)
	ctx := context.Background()
	if _, err := c.APIFor(ctx, "nope_seqdef"); !errors.Is(err, bigsdb.ErrNoSuchDatabase) {
		t.Fatalf("want ErrNoSuchDatabase, got %v", err)
	}
	err := c.DownloadAlleles(ctx, srv.URL, srv.Fixture.Database, "nope", &bytes.Buffer{})
	var se *bigsdb.StatusError
	if !errors.As(err, &se) || se.Code != 404 {
		t.Fatalf("want 404 status error, got %v", err)
	}
}

func TestQuerySequenceAndDesignations(t *testing.T) {
	srv, c := newFake(t)
	ctx := context.Background()
	f := srv.Fixture
	m, err := c.QuerySequence(ctx, srv.URL, f.Database, 1, f.Genome(map[string]string{"adk": "3"}))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Exact["adk"]) != 1 || m.Exact["adk"][0].AlleleID != "3" {
		t.Fatalf("matches = %+v", m)
	}
	req := map[string][]string{}
	for _, l := range bigsdbtest.MLSTLoci {
		req[l] = []string{"1"}
	}
	d, err := c.Designations(ctx, srv.URL, f.Database, 1, req)
	if err != nil {
		t.Fatal(err)
	}
	if d.Fields["ST"] != "1" || d.Fields["clonal_complex"] != "ST-2 complex" {
		t.Fatalf("designation = %+v", d)
	}
}

func TestIDAcceptsNumbers(t *testing.T) {
	var v struct {
		A bigsdb.ID `json:"a"`
		B bigsdb.ID `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a": 12, "b": "7"}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.A != "12" || v.B != "7" {
		t.Fatalf("ids = %+v", v)
	}
}
