package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"mlst/internal/align"
)

func lengthAligner() align.Aligner {
	return align.AlignerFunc(func(ref, q string) ([]align.Alignment, error) {
		return []align.Alignment{{Score: len(q), Identities: len(q), Length: len(q)}}, nil
	})
}

func drain[M any](t *testing.T, e *Engine[M]) ([]Completion[M], []error) {
	t.Helper()
	var out []Completion[M]
	var errs []error
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for {
		c, err := e.Next(ctx)
		if errors.Is(err, ErrEndOfStream) {
			return out, errs
		}
		if err != nil {
			var af *AlignmentFailure
			if !errors.As(err, &af) {
				t.Fatalf("next: %v", err)
			}
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
}

func TestEveryTaskCompletesExactlyOnce(t *testing.T) {
	for _, workers := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			e := New[int](lengthAligner(), workers)
			defer e.Shutdown()
			const n = 200
			for i := 0; i < n; i++ {
				if err := e.Submit("ACGT", strconv.Itoa(i), i); err != nil {
					t.Fatalf("submit: %v", err)
				}
			}
			got, errs := drain(t, e)
			if len(errs) != 0 {
				t.Fatalf("unexpected failures: %v", errs)
			}
			if len(got) != n {
				t.Fatalf("want %d completions, got %d", n, len(got))
			}
			seen := make(map[int]bool, n)
			for _, c := range got {
				if seen[c.Meta] {
					t.Fatalf("duplicate completion for task %d", c.Meta)
				}
				seen[c.Meta] = true
				if c.Result.Query != strconv.Itoa(c.Meta) {
					t.Fatalf("result paired with wrong metadata: %q vs %d", c.Result.Query, c.Meta)
				}
			}
			if e.Outstanding() != 0 {
				t.Fatalf("outstanding=%d after drain", e.Outstanding())
			}
		})
	}
}

func TestEmptyEngineEndsImmediately(t *testing.T) {
	e := New[string](lengthAligner(), 2)
	defer e.Shutdown()
	if _, err := e.Next(context.Background()); !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("want end of stream, got %v", err)
	}
}

func TestSubmitDuringDrainIsObserved(t *testing.T) {
	e := New[int](lengthAligner(), 2)
	defer e.Shutdown()
	if err := e.Submit("A", "first", 0); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	var metas []int
	for {
		c, err := e.Next(ctx)
		if errors.Is(err, ErrEndOfStream) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		metas = append(metas, c.Meta)
		if c.Meta < 3 {
			if err := e.Submit("A", "again", c.Meta+1); err != nil {
				t.Fatal(err)
			}
		}
	}
	if len(metas) != 4 {
		t.Fatalf("want the chain 0..3 observed, got %v", metas)
	}
}

func TestFailureIsIsolated(t *testing.T) {
	al := align.AlignerFunc(func(ref, q string) ([]align.Alignment, error) {
		if q == "bad" {
			return nil, errors.New("boom")
		}
		if q == "panic" {
			panic("aligner exploded")
		}
		return []align.Alignment{{Score: 1, Length: 1, Identities: 1}}, nil
	})
	e := New[string](al, 3)
	defer e.Shutdown()
	for _, q := range []string{"ok1", "bad", "ok2", "panic", "ok3"} {
		if err := e.Submit("REF", q, q); err != nil {
			t.Fatal(err)
		}
	}
	got, errs := drain(t, e)
	if len(got) != 3 {
		t.Fatalf("want 3 good completions, got %d", len(got))
	}
	if len(errs) != 2 {
		t.Fatalf("want 2 failures, got %d", len(errs))
	}
	metas := map[any]bool{}
	for _, err := range errs {
		var af *AlignmentFailure
		if !errors.As(err, &af) {
			t.Fatalf("want *AlignmentFailure, got %T", err)
		}
		metas[af.Meta] = true
	}
	if !metas["bad"] || !metas["panic"] {
		t.Fatalf("failures must carry their task metadata, got %v", metas)
	}
}

func TestBestCandidateIsMaximumScore(t *testing.T) {
	al := align.AlignerFunc(func(ref, q string) ([]align.Alignment, error) {
		return []align.Alignment{
			{Score: 1, Length: 1},
			{Score: 7, Length: 2, Identities: 1, Mismatches: 1},
			{Score: 7, Length: 9},
		}, nil
	})
	e := New[int](al, 1)
	defer e.Shutdown()
	if err := e.Submit("R", "Q", 1); err != nil {
		t.Fatal(err)
	}
	c, err := e.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if c.Result.Stats.Score != 7 || c.Result.Alignment().Length != 2 {
		t.Fatalf("want first max-score candidate, got %+v", c.Result.Alignment())
	}
	if c.Result.Stats.PercentIdentity != 0.5 || c.Result.Stats.Mismatches != 1 {
		t.Fatalf("stats=%+v", c.Result.Stats)
	}
}

func TestSubmitAfterShutdown(t *testing.T) {
	e := New[int](lengthAligner(), 1)
	e.Shutdown()
	e.Shutdown()
	if err := e.Submit("A", "C", 0); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("want ErrEngineClosed, got %v", err)
	}
	if _, err := e.Next(context.Background()); !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("want end of stream after shutdown, got %v", err)
	}
}

func TestShutdownDropsQueuedAndWaitsForInFlight(t *testing.T) {
	started := make(chan struct{}, 16)
	gate := make(chan struct{})
	var ran atomic.Int32
	al := align.AlignerFunc(func(ref, q string) ([]align.Alignment, error) {
		started <- struct{}{}
		<-gate
		ran.Add(1)
		return []align.Alignment{{Score: 1}}, nil
	})
	e := New[int](al, 1)
	for i := 0; i < 5; i++ {
		if err := e.Submit("A", "C", i); err != nil {
			t.Fatal(err)
		}
	}
	<-started

	stopped := make(chan struct{})
	go func() {
		e.Shutdown()
		close(stopped)
	}()
	for e.Submit("A", "C", -1) == nil {
		time.Sleep(time.Millisecond)
	}
	close(gate)
	<-stopped

	if e.Outstanding() != 0 {
		t.Fatalf("outstanding=%d after shutdown", e.Outstanding())
	}
	got, _ := drain(t, e)
	if len(got) != 1 || got[0].Meta != 0 {
		t.Fatalf("want only the in-flight task completed, got %+v", got)
	}
	if ran.Load() != 1 {
		t.Fatalf("queued tasks must not run, ran=%d", ran.Load())
	}
}

func TestNextHonorsContext(t *testing.T) {
	gate := make(chan struct{})
	al := align.AlignerFunc(func(ref, q string) ([]align.Alignment, error) {
		<-gate
		return []align.Alignment{{}}, nil
	})
	e := New[int](al, 1)
	defer func() {
		close(gate)
		e.Shutdown()
	}()
	if err := e.Submit("A", "C", 0); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := e.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
}
