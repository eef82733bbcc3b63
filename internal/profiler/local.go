package profiler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"mlst/internal/align"
	"mlst/internal/bigsdb"
	"mlst/internal/cache"
	"mlst/internal/engine"
	"mlst/internal/mlst"
	"mlst/internal/scheme"
)

// LocalConfig configures NewLocal.
//
// With Cache set the profiler works on that in-memory catalog and Table (nil
// Table resolves everything to unknown). Otherwise the cache lives in
// CacheDir, a temporary directory when empty, and is downloaded first when
// Prepare is set.
type LocalConfig struct {
	Aligner align.Aligner
	Workers int
	// Logger defaults to a disabled logger.
	Logger zerolog.Logger

	Cache *cache.LocusCache
	Table *scheme.Table

	CacheDir string
	Prepare  bool
	Client   *bigsdb.Client
	API      string
	Database string
	Scheme   int
}

// Local calls alleles against a local scheme cache.
type Local struct {
	aligner align.Aligner
	workers int
	log     zerolog.Logger

	dir   *cache.Dir
	loci  []string
	cache *cache.LocusCache
	table *scheme.Table
}

var _ Profiler = (*Local)(nil)

// NewLocal opens (and optionally prepares) the cache described by cfg.
func NewLocal(ctx context.Context, cfg LocalConfig) (_ *Local, err error) {
	l := &Local{
		aligner: cfg.Aligner,
		workers: cfg.Workers,
		log:     cfg.Logger,
		cache:   cfg.Cache,
		table:   cfg.Table,
	}
	if l.aligner == nil {
		l.aligner = align.NewSmithWaterman(align.DefaultScoring)
	}
	if l.workers <= 0 {
		l.workers = engine.DefaultWorkers
	}
	if l.cache != nil {
		l.loci = l.cache.Loci()
		if len(l.loci) == 0 {
			return nil, mlst.ErrNoLociConfigured
		}
		return l, nil
	}

	if l.dir, err = cache.OpenDir(cfg.CacheDir); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, l.dir.Close())
		}
	}()

	if cfg.Prepare {
		if cfg.Client == nil {
			return nil, errors.New("profiler: prepare needs a BIGSdb client")
		}
		api := cfg.API
		if api == "" {
			if api, err = cfg.Client.APIFor(ctx, cfg.Database); err != nil {
				return nil, err
			}
		}
		src := bigsdb.SchemeSource{Client: cfg.Client, API: api, Database: cfg.Database, Scheme: cfg.Scheme}
		if l.loci, err = cache.Prepare(ctx, l.dir, src); err != nil {
			return nil, err
		}
	} else if l.loci, err = scheme.TableLoci(l.dir.ProfilesPath()); err != nil {
		return nil, fmt.Errorf("profiler: read cached scheme: %w", err)
	}

	if l.cache, err = cache.Load(ctx, l.dir, l.loci); err != nil {
		return nil, err
	}
	if l.table, err = scheme.LoadTable(l.dir.ProfilesPath(), l.loci); err != nil {
		return nil, err
	}
	l.log.Info().
		Str("cache_dir", l.dir.Path()).
		Int("loci", len(l.loci)).
		Int("profiles", l.table.Len()).
		Msg("scheme cache ready")
	return l, nil
}

// Loci returns the scheme loci in canonical order.
func (l *Local) Loci() []string { return append([]string(nil), l.loci...) }

// Close removes a cache directory the profiler created.
func (l *Local) Close() error {
	if l.dir == nil {
		return nil
	}
	return l.dir.Close()
}

func (l *Local) DetermineSequenceType(_ context.Context, alleles []mlst.Allele) (mlst.Profile, error) {
	return scheme.Resolve(alleles, l.loci, l.table)
}

func (l *Local) ProfileOne(ctx context.Context, queries []string) (mlst.Profile, error) {
	return profileOne(ctx, l, queries)
}

func (l *Local) ProfileMany(ctx context.Context, seqs []mlst.NamedSequence, stopOnFail bool, visit func(mlst.NamedProfile) error) error {
	return profileMany(ctx, l, seqs, stopOnFail, visit)
}
