package engine

import (
	"errors"
	"fmt"

	"mlst/internal/align"
)

var (
	// ErrEngineClosed is returned by Submit after Shutdown.
	ErrEngineClosed = errors.New("engine: closed")
	// ErrEndOfStream is returned by Next once nothing is outstanding or buffered.
	ErrEndOfStream = errors.New("engine: end of stream")
)

// Result is the best-scoring alignment of one task.
type Result struct {
	Reference    string
	Query        string
	RefIndices   []int
	QueryIndices []int
	Stats        align.Stats

	alignment align.Alignment
}

// Alignment returns the raw candidate the result was built from.
func (r Result) Alignment() align.Alignment { return r.alignment }

// Completion pairs a result with the metadata of the task that produced it.
// Result is zero when the task failed.
type Completion[M any] struct {
	Result Result
	Meta   M
}

// AlignmentFailure wraps an aligner error for a single task.
type AlignmentFailure struct {
	Meta any
	Err  error
}

func (e *AlignmentFailure) Error() string { return fmt.Sprintf("alignment failed: %v", e.Err) }
func (e *AlignmentFailure) Unwrap() error { return e.Err }

func newResult(reference, query string, a align.Alignment) Result {
	return Result{
		Reference:    reference,
		Query:        query,
		RefIndices:   a.RefIndices,
		QueryIndices: a.QueryIndices,
		Stats:        a.Stats(),
		alignment:    a,
	}
}
