package appshell

import (
	"context"
	"io"
	"testing"
)

func TestEmptyArgvMeansHelp(t *testing.T) {
	var got []string
	code := runWith(context.Background(), nil, io.Discard, io.Discard, func(_ context.Context, argv []string, _, _ io.Writer) int {
		got = argv
		return 0
	})
	if code != 0 || len(got) != 1 || got[0] != "--help" {
		t.Fatalf("code=%d argv=%v", code, got)
	}
}

func TestCancelledCleanRunExits130(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	code := runWith(ctx, []string{"profile"}, io.Discard, io.Discard, func(context.Context, []string, io.Writer, io.Writer) int {
		return 0
	})
	if code != exitCancelled {
		t.Fatalf("code=%d, want %d", code, exitCancelled)
	}
}

func TestFailureCodeKeptOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	code := runWith(ctx, []string{"x"}, io.Discard, io.Discard, func(context.Context, []string, io.Writer, io.Writer) int {
		return 2
	})
	if code != 2 {
		t.Fatalf("code=%d", code)
	}
}
