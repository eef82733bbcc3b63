// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mlst/internal/align"
	"mlst/internal/bigsdb"
	"mlst/internal/config"
	"mlst/internal/logging"
	"mlst/internal/profiler"
	"mlst/internal/version"
	"mlst/internal/writers"
)

// Exit codes.
const (
	ExitOK        = 0
	ExitFailed    = 1
	ExitUsage     = 2
	ExitRuntime   = 3
	ExitCancelled = 130
)

// exitError carries a specific exit code. A nil err prints nothing.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageErr(err error) error { return &exitError{code: ExitUsage, err: err} }

func usagef(format string, args ...any) error { return usageErr(fmt.Errorf(format, args...)) }

// runner holds the state shared by the command tree of one invocation.
type runner struct {
	stdout, stderr io.Writer
	envFile        string

	cfg *config.Config
	log zerolog.Logger
	// started is set once a command body runs; earlier errors are usage errors.
	started bool
}

func RunContext(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	r := &runner{stdout: stdout, stderr: stderr, log: zerolog.Nop()}
	root := r.rootCmd()
	root.SetArgs(argv)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return r.exitCode(ctx, root.ExecuteContext(ctx))
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

func (r *runner) exitCode(ctx context.Context, err error) int {
	switch {
	case err == nil:
		if ctx.Err() != nil {
			return ExitCancelled
		}
		return ExitOK
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		return ExitCancelled
	case writers.IsBrokenPipe(err):
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			_, _ = fmt.Fprintln(r.stderr, "error:", ee.err)
		}
		return ee.code
	}
	_, _ = fmt.Fprintln(r.stderr, "error:", err)
	if !r.started {
		return ExitUsage
	}
	return ExitRuntime
}

func (r *runner) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mlst",
		Short: "Multi-locus sequence typing of assembled genomes",
		Long: `mlst calls the allele of every locus of a BIGSdb MLST scheme in assembled
genomes and resolves the sequence type and clonal complex.

Settings may also come from MLST_* environment variables or a .env file.`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: r.setup,
	}
	root.SetVersionTemplate("mlst version {{.Version}}\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageErr(err) })

	pf := root.PersistentFlags()
	pf.StringVar(&r.envFile, "env-file", ".env", "read settings from this dotenv file when it exists")
	pf.IntP(config.FlagName("workers"), "t", 4, "alignment workers")
	pf.StringP(config.FlagName("database"), "d", "", "BIGSdb sequence definition database, e.g. pubmlst_bordetella_seqdef")
	pf.IntP(config.FlagName("scheme"), "s", 0, "scheme id within the database")
	pf.String(config.FlagName("database_api"), "", "BIGSdb API base URL (default: search the known deployments)")
	pf.Bool(config.FlagName("local"), true, "call alleles locally instead of through the BIGSdb typing service")
	pf.String(config.FlagName("cache_dir"), "", "scheme cache directory (default: a temporary directory removed on exit)")
	pf.Bool(config.FlagName("prepare"), true, "download the scheme into the cache before profiling")
	pf.Duration(config.FlagName("http_timeout"), bigsdb.DefaultTimeout, "timeout of one BIGSdb request")
	pf.String(config.FlagName("log_level"), "info", "log level (debug, info, warn, error)")
	pf.String(config.FlagName("log_format"), logging.FormatConsole, "log format (console, json)")
	pf.Int(config.FlagName("match"), align.DefaultScoring.Match, "alignment match score")
	pf.Int(config.FlagName("mismatch"), align.DefaultScoring.Mismatch, "alignment mismatch score")
	pf.Int(config.FlagName("gap_open"), align.DefaultScoring.GapOpen, "alignment gap open score")
	pf.Int(config.FlagName("gap_extend"), align.DefaultScoring.GapExtend, "alignment gap extension score")
	pf.String(config.FlagName("database_url"), "", "PostgreSQL URL for saved runs")
	pf.Int32(config.FlagName("db_max_conns"), 4, "PostgreSQL pool size")
	pf.Int32(config.FlagName("db_min_conns"), 0, "PostgreSQL idle connections kept open")

	root.AddCommand(
		r.profileCmd(),
		r.prepareCmd(),
		r.infoCmd(),
		r.serveCmd(),
		r.versionCmd(),
	)
	return root
}

// setup loads configuration and the logger before any command body.
func (r *runner) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags(), r.envFile)
	if err != nil {
		return usageErr(err)
	}
	if err := cfg.Validate(); err != nil {
		return usageErr(err)
	}
	log, err := logging.New(r.stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return usageErr(err)
	}
	r.cfg, r.log = cfg, log
	return nil
}

// run marks the command as started so later errors are runtime errors.
func (r *runner) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		r.started = true
		return fn(cmd, args)
	}
}

func positional(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := v(cmd, args); err != nil {
			return usageErr(err)
		}
		return nil
	}
}

func (r *runner) client() *bigsdb.Client {
	return bigsdb.New(&http.Client{Timeout: r.cfg.HTTPTimeout}, r.cfg.APIs()...)
}

// checkSource reports settings that cannot name a scheme.
func (r *runner) checkSource() error {
	cfg := r.cfg
	if cfg.Database == "" && (!cfg.Local || cfg.Prepare) {
		return usagef("a database is required (--database)")
	}
	if cfg.Local && !cfg.Prepare && cfg.CacheDir == "" {
		return usagef("--prepare=false needs an existing --cache-dir")
	}
	return nil
}

// newProfiler builds the profiler the configuration asks for. loci is nil
// for the remote profiler.
func (r *runner) newProfiler(ctx context.Context) (p profiler.Profiler, loci []string, err error) {
	if err := r.checkSource(); err != nil {
		return nil, nil, err
	}
	cfg := r.cfg
	client := r.client()
	if !cfg.Local {
		rp, err := profiler.NewRemote(ctx, client, cfg.DatabaseAPI, cfg.Database, cfg.Scheme, r.log)
		if err != nil {
			return nil, nil, err
		}
		return rp, nil, nil
	}
	l, err := profiler.NewLocal(ctx, profiler.LocalConfig{
		Aligner:  align.NewSmithWaterman(cfg.Scoring()),
		Workers:  cfg.Workers,
		Logger:   r.log,
		CacheDir: cfg.CacheDir,
		Prepare:  cfg.Prepare,
		Client:   client,
		API:      cfg.DatabaseAPI,
		Database: cfg.Database,
		Scheme:   cfg.Scheme,
	})
	if err != nil {
		return nil, nil, err
	}
	return l, l.Loci(), nil
}

func (r *runner) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "Print the version",
		Args:              positional(cobra.NoArgs),
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: r.run(func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(r.stdout, "mlst version %s\n", version.Version)
			return err
		}),
	}
}
