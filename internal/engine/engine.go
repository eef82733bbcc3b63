package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mlst/internal/align"
)

// DefaultWorkers is the pool size used when New is given workers <= 0.
const DefaultWorkers = 4

type task[M any] struct {
	reference, query string
	meta             M
}

type completion[M any] struct {
	c   Completion[M]
	err error
}

// Engine runs alignments on a fixed pool of workers.
//
// queue, done, outstanding and closed form one unit guarded by mu: a task is
// outstanding from Submit until its completion is appended to done, and both
// changes happen under the lock, so Next can never see "nothing buffered" and
// "nothing outstanding" from two different moments.
type Engine[M any] struct {
	aligner align.Aligner

	mu          sync.Mutex
	work        *sync.Cond
	queue       []task[M]
	done        []completion[M]
	outstanding int
	closed      bool

	ready chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// New starts an engine with the given number of workers.
func New[M any](aligner align.Aligner, workers int) *Engine[M] {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	e := &Engine[M]{
		aligner: aligner,
		ready:   make(chan struct{}, 1),
	}
	e.work = sync.NewCond(&e.mu)
	e.wg.Add(workers)
	for w := 0; w < workers; w++ {
		go e.worker()
	}
	return e
}

// Submit enqueues one alignment. It never blocks.
func (e *Engine[M]) Submit(reference, query string, meta M) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	e.queue = append(e.queue, task[M]{reference: reference, query: query, meta: meta})
	e.outstanding++
	e.work.Signal()
	return nil
}

// Next returns the next completed task in completion order. It blocks only
// while tasks are outstanding and none has completed yet. A failed task is
// returned with its metadata and an *AlignmentFailure. ErrEndOfStream means
// no task is outstanding and nothing is buffered.
func (e *Engine[M]) Next(ctx context.Context) (Completion[M], error) {
	for {
		e.mu.Lock()
		if len(e.done) > 0 {
			head := e.done[0]
			e.done[0] = completion[M]{}
			e.done = e.done[1:]
			more := len(e.done) > 0 || e.outstanding == 0
			e.mu.Unlock()
			if more {
				e.notify()
			}
			return head.c, head.err
		}
		if e.outstanding == 0 {
			e.mu.Unlock()
			e.notify()
			return Completion[M]{}, ErrEndOfStream
		}
		e.mu.Unlock()

		select {
		case <-e.ready:
		case <-ctx.Done():
			return Completion[M]{}, ctx.Err()
		}
	}
}

// Outstanding reports how many tasks are submitted but not yet completed.
func (e *Engine[M]) Outstanding() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outstanding
}

// Shutdown drops queued tasks, waits for in-flight ones and stops the
// workers. Completions already buffered stay readable through Next.
func (e *Engine[M]) Shutdown() {
	e.once.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.outstanding -= len(e.queue)
		e.queue = nil
		e.work.Broadcast()
		e.mu.Unlock()

		e.wg.Wait()
		e.notify()
	})
}

func (e *Engine[M]) notify() {
	select {
	case e.ready <- struct{}{}:
	default:
	}
}

func (e *Engine[M]) worker() {
	defer e.wg.Done()
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.closed {
			e.work.Wait()
		}
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return
		}
		t := e.queue[0]
		e.queue[0] = task[M]{}
		e.queue = e.queue[1:]
		e.mu.Unlock()

		res, err := e.run(t)

		e.mu.Lock()
		c := completion[M]{c: Completion[M]{Result: res, Meta: t.meta}}
		if err != nil {
			c.err = &AlignmentFailure{Meta: t.meta, Err: err}
		}
		e.done = append(e.done, c)
		e.outstanding--
		e.mu.Unlock()
		e.notify()
	}
}

func (e *Engine[M]) run(t task[M]) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("aligner panic: %v", r)
		}
	}()
	cands, err := e.aligner.Align(t.reference, t.query)
	if err != nil {
		return Result{}, err
	}
	best, ok := align.Best(cands)
	if !ok {
		return Result{}, errors.New("aligner returned no candidates")
	}
	return newResult(t.reference, t.query, best), nil
}
