// Package bigsdbtest serves a small in-memory BIGSdb API for tests.
package bigsdbtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/labstack/echo/v4"

	"mlst/internal/bigsdb"
)

// Variant is one allele of a fixture locus.
type Variant struct {
	ID       string
	Sequence string
}

// ProfileRow is one sequence type of the fixture scheme.
type ProfileRow struct {
	ST            string
	ClonalComplex string
	Alleles       map[string]string
}

// Fixture describes the database served.
type Fixture struct {
	Database string
	SchemeID int
	Scheme   string
	Loci     map[string][]Variant
	Profiles []ProfileRow
	// Partial is returned by sequence queries without exact hits.
	Partial map[string]bigsdb.PartialMatch
}

// Server is a running fake.
type Server struct {
	*httptest.Server
	Fixture  Fixture
	Requests atomic.Int64
}

// New starts a fake API for f. Close it when done.
func New(f Fixture) *Server {
	s := &Server{Fixture: f}
	e := echo.New()
	e.HideBanner = true
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s.Requests.Add(1)
			return next(c)
		}
	})
	e.GET("/db", s.databases)
	e.GET("/db/:db/schemes", s.schemes)
	e.GET("/db/:db/schemes/:id", s.scheme)
	e.GET("/db/:db/schemes/:id/profiles_csv", s.profiles)
	e.GET("/db/:db/loci/:locus/alleles_fasta", s.alleles)
	e.POST("/db/:db/schemes/:id/sequence", s.sequence)
	e.POST("/db/:db/schemes/:id/designations", s.designations)
	s.Server = httptest.NewServer(e)
	return s
}

// LociNames returns the fixture loci sorted.
func (f Fixture) LociNames() []string {
	out := make([]string, 0, len(f.Loci))
	for l := range f.Loci {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// ProfilesTSV renders the profile table the way BIGSdb does.
func (f Fixture) ProfilesTSV() string {
	loci := f.LociNames()
	var b strings.Builder
	b.WriteString("ST\t" + strings.Join(loci, "\t") + "\tclonal_complex\n")
	for _, p := range f.Profiles {
		b.WriteString(p.ST)
		for _, l := range loci {
			b.WriteString("\t" + p.Alleles[l])
		}
		b.WriteString("\t" + p.ClonalComplex + "\n")
	}
	return b.String()
}

func (s *Server) checkDB(c echo.Context) error {
	if c.Param("db") != s.Fixture.Database {
		return echo.NewHTTPError(http.StatusNotFound, "no such database")
	}
	if id := c.Param("id"); id != "" && id != fmt.Sprint(s.Fixture.SchemeID) {
		return echo.NewHTTPError(http.StatusNotFound, "no such scheme")
	}
	return nil
}

func (s *Server) databases(c echo.Context) error {
	type db struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	return c.JSON(http.StatusOK, []map[string]any{{
		"name": "fixture",
		"databases": []db{
			{Name: s.Fixture.Database, Description: "sequence definitions"},
			{Name: strings.TrimSuffix(s.Fixture.Database, "seqdef") + "isolates", Description: "isolates"},
		},
	}})
}

func (s *Server) schemes(c echo.Context) error {
	if err := s.checkDB(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"schemes": []map[string]string{{
			"scheme":      fmt.Sprintf("%s/db/%s/schemes/%d", s.URL, s.Fixture.Database, s.Fixture.SchemeID),
			"description": s.Fixture.Scheme,
		}},
	})
}

func (s *Server) scheme(c echo.Context) error {
	if err := s.checkDB(c); err != nil {
		return err
	}
	var links []string
	for _, l := range s.Fixture.LociNames() {
		links = append(links, fmt.Sprintf("%s/db/%s/loci/%s", s.URL, s.Fixture.Database, l))
	}
	return c.JSON(http.StatusOK, map[string]any{"loci": links})
}

func (s *Server) profiles(c echo.Context) error {
	if err := s.checkDB(c); err != nil {
		return err
	}
	return c.String(http.StatusOK, s.Fixture.ProfilesTSV())
}

func (s *Server) alleles(c echo.Context) error {
	if err := s.checkDB(c); err != nil {
		return err
	}
	locus := c.Param("locus")
	vs, ok := s.Fixture.Loci[locus]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no such locus")
	}
	var b strings.Builder
	for _, v := range vs {
		fmt.Fprintf(&b, ">%s_%s\n%s\n", locus, v.ID, v.Sequence)
	}
	return c.String(http.StatusOK, b.String())
}

func (s *Server) sequence(c echo.Context) error {
	if err := s.checkDB(c); err != nil {
		return err
	}
	var req struct {
		Sequence string `json:"sequence"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	q := strings.ToUpper(req.Sequence)
	exact := map[string][]map[string]string{}
	for locus, vs := range s.Fixture.Loci {
		for _, v := range vs {
			if strings.Contains(q, strings.ToUpper(v.Sequence)) {
				exact[locus] = append(exact[locus], map[string]string{"allele_id": v.ID})
			}
		}
	}
	switch {
	case len(exact) > 0:
		return c.JSON(http.StatusOK, map[string]any{"exact_matches": exact})
	case len(s.Fixture.Partial) > 0:
		return c.JSON(http.StatusOK, map[string]any{"partial_matches": s.Fixture.Partial})
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

func (s *Server) designations(c echo.Context) error {
	if err := s.checkDB(c); err != nil {
		return err
	}
	var req struct {
		Designations map[string][]struct {
			Allele string `json:"allele"`
		} `json:"designations"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	exact := map[string][]map[string]string{}
	given := map[string]string{}
	for locus, as := range req.Designations {
		for _, a := range as {
			exact[locus] = append(exact[locus], map[string]string{"allele_id": a.Allele})
			given[locus] = a.Allele
		}
	}
	resp := map[string]any{"exact_matches": exact}
	for _, p := range s.Fixture.Profiles {
		if equal(p.Alleles, given) {
			fields := map[string]string{"ST": p.ST}
			if p.ClonalComplex != "" {
				fields["clonal_complex"] = p.ClonalComplex
			}
			resp["fields"] = fields
			break
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func equal(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
