package cache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"mlst/internal/mlst"
)

// Source supplies the scheme data a cache is filled from.
type Source interface {
	Loci(ctx context.Context) ([]string, error)
	Alleles(ctx context.Context, locus string, w io.Writer) error
	Profiles(ctx context.Context, w io.Writer) error
}

// DownloadConcurrency bounds parallel downloads in Prepare.
const DownloadConcurrency = 4

// Prepare fills d from src: one FASTA file per locus and the profile table.
// It returns the scheme loci, sorted.
func Prepare(ctx context.Context, d *Dir, src Source) ([]string, error) {
	loci, err := src.Loci(ctx)
	if err != nil {
		return nil, fmt.Errorf("cache: list loci: %w", err)
	}
	if len(loci) == 0 {
		return nil, mlst.ErrNoLociConfigured
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DownloadConcurrency)
	for _, locus := range loci {
		locus := locus
		g.Go(func() error {
			return writeFile(d.LocusPath(locus), func(w io.Writer) error {
				return src.Alleles(gctx, locus, w)
			})
		})
	}
	g.Go(func() error {
		return writeFile(d.ProfilesPath(), func(w io.Writer) error {
			return src.Profiles(gctx, w)
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return loci, nil
}

// writeFile fills a temporary sibling of path and renames it into place, so
// an interrupted download never leaves a truncated cache file.
func writeFile(path string, fill func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, os.Remove(tmp.Name()))
		}
	}()
	if err := fill(tmp); err != nil {
		return multierr.Append(fmt.Errorf("cache: fill %s: %w", filepath.Base(path), err), tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
