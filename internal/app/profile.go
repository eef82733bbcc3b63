package app

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"mlst/internal/cliutil"
	"mlst/internal/fasta"
	"mlst/internal/mlst"
	"mlst/internal/store"
	"mlst/internal/writers"
	"mlst/pkg/api"
)

type profileOptions struct {
	format       string
	out          string
	stopOnFail   bool
	failExitCode int
	byFile       bool
	save         bool
}

func (r *runner) profileCmd() *cobra.Command {
	var o profileOptions
	cmd := &cobra.Command{
		Use:   "profile [flags] FASTA...",
		Short: "Determine the sequence type of every genome in the given FASTA files",
		Long: `Each FASTA record is typed as one genome unless --by-file is given, in which
case all records of a file are the contigs of one genome named after the file.
Use - to read stdin; gzip input is detected automatically.`,
		Args: positional(cobra.MinimumNArgs(1)),
		RunE: r.run(func(cmd *cobra.Command, args []string) error {
			return r.profile(cmd.Context(), o, args)
		}),
	}
	f := cmd.Flags()
	f.StringVarP(&o.format, "output", "o", writers.FormatCSV, "output format: "+strings.Join(writers.Formats, ", "))
	f.StringVar(&o.out, "out", "", "write profiles to this file instead of stdout")
	f.BoolVar(&o.stopOnFail, "stop-on-fail", false, "stop at the first genome that cannot be typed")
	f.IntVar(&o.failExitCode, "fail-exit-code", ExitFailed, "exit code when some genomes could not be typed")
	f.BoolVar(&o.byFile, "by-file", false, "treat each input file as one genome")
	f.BoolVar(&o.save, "save", false, "store the run in PostgreSQL (--database-url)")
	return cmd
}

func (r *runner) profile(ctx context.Context, o profileOptions, args []string) (err error) {
	if !slices.Contains(writers.Formats, o.format) {
		return usagef("unknown output format %q (want one of %s)", o.format, strings.Join(writers.Formats, ", "))
	}
	if o.save && r.cfg.DatabaseURL == "" {
		return usagef("--save needs --database-url")
	}
	if err := r.checkSource(); err != nil {
		return err
	}
	paths, err := cliutil.ExpandPositionals(args)
	if err != nil {
		return usageErr(err)
	}
	genomes, err := readGenomes(ctx, paths, o.byFile)
	if err != nil {
		return err
	}

	p, _, err := r.newProfiler(ctx)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, p.Close()) }()

	out := r.stdout
	if o.out != "" {
		fh, ferr := os.Create(o.out)
		if ferr != nil {
			return ferr
		}
		defer func() { err = multierr.Append(err, fh.Close()) }()
		out = fh
	}
	in, done, err := writers.Start(out, o.format, 4*r.cfg.Workers)
	if err != nil {
		return usageErr(err)
	}

	var saved []api.ProfileV1
	perr := p.ProfileMany(ctx, genomes, o.stopOnFail, func(np mlst.NamedProfile) error {
		if np.Failed() {
			r.log.Warn().Err(np.Err).Str("name", np.Name).Msg("genome not typed")
		}
		if o.save {
			saved = append(saved, writers.ToAPIProfile(np))
		}
		select {
		case in <- np:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	close(in)
	res := <-done
	if res.Err != nil {
		return res.Err
	}
	if perr != nil {
		return perr
	}

	if o.save {
		if err := r.saveRun(ctx, saved); err != nil {
			return err
		}
	}
	r.log.Info().
		Int("genomes", len(genomes)).
		Int("written", res.Written).
		Int("failed", len(res.Failed)).
		Msg("profiling complete")

	if len(res.Failed) > 0 {
		_, _ = fmt.Fprintf(r.stderr, "%d IDs failed:\n%s\n", len(res.Failed), strings.Join(res.Failed, "\n"))
		return &exitError{code: o.failExitCode}
	}
	return nil
}

// readGenomes loads every input. Records are genomes of their own unless
// byFile groups them per file.
func readGenomes(ctx context.Context, paths []string, byFile bool) ([]mlst.NamedSequence, error) {
	var out []mlst.NamedSequence
	for _, path := range paths {
		g := mlst.NamedSequence{Name: cliutil.SampleName(path)}
		err := fasta.StreamPath(ctx, path, func(rec fasta.Record) error {
			if byFile {
				g.Sequences = append(g.Sequences, string(rec.Seq))
				return nil
			}
			out = append(out, mlst.NamedSequence{Name: rec.ID, Sequences: []string{string(rec.Seq)}})
			return nil
		})
		if err != nil {
			return nil, err
		}
		if byFile {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *runner) saveRun(ctx context.Context, profiles []api.ProfileV1) error {
	cfg := r.cfg
	pool, err := store.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	s := store.New(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	runID := uuid.New()
	if err := s.SaveRun(ctx, runID, profiles); err != nil {
		return err
	}
	r.log.Info().Str("run_id", runID.String()).Int("profiles", len(profiles)).Msg("run saved")
	return nil
}
