package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mlst/internal/config"
	"mlst/internal/server"
)

// shutdownTimeout bounds the wait for in-flight requests on serve exit.
const shutdownTimeout = 10 * time.Second

func (r *runner) prepareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prepare --database DB --scheme ID --cache-dir DIR",
		Short: "Download a scheme into a cache directory for later offline profiling",
		Args:  positional(cobra.NoArgs),
		RunE: r.run(func(cmd *cobra.Command, _ []string) error {
			if r.cfg.CacheDir == "" {
				return usagef("prepare needs --cache-dir")
			}
			if !r.cfg.Prepare || !r.cfg.Local {
				return usagef("prepare cannot be combined with --prepare=false or --local=false")
			}
			p, loci, err := r.newProfiler(cmd.Context())
			if err != nil {
				return err
			}
			if err := p.Close(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(r.stdout, "prepared %d loci of %s scheme %d in %s\n", len(loci), r.cfg.Database, r.cfg.Scheme, r.cfg.CacheDir)
			return err
		}),
	}
}

func (r *runner) infoCmd() *cobra.Command {
	info := &cobra.Command{
		Use:   "info",
		Short: "List BIGSdb databases and schemes",
	}
	var force bool
	dbs := &cobra.Command{
		Use:   "dbs",
		Short: "List the known sequence definition databases",
		Args:  positional(cobra.NoArgs),
		RunE: r.run(func(cmd *cobra.Command, _ []string) error {
			known, err := r.client().KnownSeqdefDBs(cmd.Context(), force)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(known))
			for name := range known {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if _, err := fmt.Fprintf(r.stdout, "%s\t%s\n", name, known[name]); err != nil {
					return err
				}
			}
			return nil
		}),
	}
	dbs.Flags().BoolVar(&force, "refresh", false, "ignore cached listings")

	schemes := &cobra.Command{
		Use:   "schemes DB...",
		Short: "List the schemes of sequence definition databases",
		Args:  positional(cobra.MinimumNArgs(1)),
		RunE: r.run(func(cmd *cobra.Command, args []string) error {
			c := r.client()
			for _, db := range args {
				byDesc, err := c.Schemes(cmd.Context(), db)
				if err != nil {
					return err
				}
				descs := make([]string, 0, len(byDesc))
				for d := range byDesc {
					descs = append(descs, d)
				}
				sort.Slice(descs, func(i, j int) bool { return byDesc[descs[i]] < byDesc[descs[j]] })
				for _, d := range descs {
					if _, err := fmt.Fprintf(r.stdout, "%s\t%d\t%s\n", db, byDesc[d], d); err != nil {
						return err
					}
				}
			}
			return nil
		}),
	}
	info.AddCommand(dbs, schemes)
	return info
}

func (r *runner) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the typing API over HTTP until interrupted",
		Args:  positional(cobra.NoArgs),
		RunE: r.run(func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()
			p, loci, err := r.newProfiler(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := p.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()
			return r.serve(ctx, server.New(p, loci, r.log))
		}),
	}
	cmd.Flags().String(config.FlagName("addr"), ":8080", "listen address")
	return cmd
}

var errServerStopped = errors.New("server stopped unexpectedly")

// serve runs srv until ctx ends, then shuts it down gracefully.
func (r *runner) serve(ctx context.Context, srv *server.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.log.Info().Str("addr", r.cfg.Addr).Msg("listening")
		if err := srv.Start(r.cfg.Addr); err != nil {
			return err
		}
		if ctx.Err() == nil {
			return errServerStopped
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
