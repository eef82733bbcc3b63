// Package server exposes a Profiler over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"mlst/internal/mlst"
	"mlst/internal/profiler"
	"mlst/internal/writers"
)

// MaxBodySize bounds a profile request; assemblies rarely exceed a few MB.
const MaxBodySize = "64M"

// ProfileRequest is the body of POST /api/v1/profile. Sequence and
// Sequences are combined; each entry is one contig of the same genome.
type ProfileRequest struct {
	Name      string   `json:"name"`
	Sequence  string   `json:"sequence"`
	Sequences []string `json:"sequences"`
}

type Server struct {
	e        *echo.Echo
	profiler profiler.Profiler
	loci     []string
	log      zerolog.Logger
}

// New builds the service around p. loci is reported by /api/v1/loci and
// may be empty when the profiler does not know its scheme in advance.
func New(p profiler.Profiler, loci []string, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{e: e, profiler: p, loci: append([]string(nil), loci...), log: logger}

	e.Use(Recovery(logger))
	e.Use(RequestID())
	e.Use(Logger(logger))
	e.Use(echomw.BodyLimit(MaxBodySize))

	e.GET("/health", s.health)
	v1 := e.Group("/api/v1")
	v1.GET("/loci", s.listLoci)
	v1.POST("/profile", s.profile)
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.e }

// Start serves on addr until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start(addr string) error {
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listLoci(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"loci": s.loci})
}

func (s *Server) profile(c echo.Context) error {
	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	queries := make([]string, 0, len(req.Sequences)+1)
	if q := strings.TrimSpace(req.Sequence); q != "" {
		queries = append(queries, q)
	}
	for _, q := range req.Sequences {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "sequence is required")
	}

	ctx := c.Request().Context()
	p, err := s.profiler.ProfileOne(ctx, queries)
	if err != nil {
		if ctx.Err() != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "request cancelled")
		}
		s.log.Warn().Err(err).Str("name", req.Name).Msg("profiling failed")
		out := writers.ToAPIProfile(mlst.NamedProfile{Name: req.Name, Profile: mlst.UnknownProfile(), Err: err})
		return c.JSON(http.StatusUnprocessableEntity, out)
	}
	return c.JSON(http.StatusOK, writers.ToAPIProfile(mlst.NamedProfile{Name: req.Name, Profile: p}))
}
