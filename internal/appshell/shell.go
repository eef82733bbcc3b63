// Package appshell runs a command entrypoint under signal handling.
package appshell

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// RunFunc is a whole program: it reads argv, writes to the two streams and
// returns the process exit code.
type RunFunc func(ctx context.Context, argv []string, stdout, stderr io.Writer) int

// exitCancelled is reported when a signal ended an otherwise clean run.
const exitCancelled = 130

// Main runs run with os.Args and exits. The first SIGINT or SIGTERM cancels
// the context; a second one gets the default behaviour and kills the process.
// No arguments at all means --help.
func Main(run RunFunc) {
	os.Exit(runWith(context.Background(), os.Args[1:], os.Stdout, os.Stderr, run))
}

func runWith(parent context.Context, argv []string, stdout, stderr io.Writer, run RunFunc) int {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
	}()

	if len(argv) == 0 {
		argv = []string{"--help"}
	}
	code := run(ctx, argv, stdout, stderr)
	if ctx.Err() != nil && code == 0 {
		code = exitCancelled
	}
	return code
}
