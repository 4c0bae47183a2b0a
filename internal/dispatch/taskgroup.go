package dispatch

import (
	"fmt"
	"sync"

	"git.home.luguber.info/inful/assembler/internal/foundation"
)

// TaskGroup runs deferred tasks in the background and joins them once.
// Results come back in the order the tasks were started; a failed or
// panicking task is captured as an error result, never dropped.
type TaskGroup[T any] struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	results []foundation.Result[T, error]
	joined  bool
}

// Go starts fn. It returns false once Wait has been called.
func (g *TaskGroup[T]) Go(fn func() (T, error)) bool {
	if fn == nil {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.joined {
		return false
	}

	i := len(g.results)
	g.results = append(g.results, foundation.Result[T, error]{})
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		v, err := run(fn)
		g.mu.Lock()
		g.results[i] = foundation.FromTuple(v, err)
		g.mu.Unlock()
	}()
	return true
}

func run[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn()
}

// Wait blocks until every started task has finished and returns their
// results in start order.
func (g *TaskGroup[T]) Wait() []foundation.Result[T, error] {
	g.mu.Lock()
	g.joined = true
	g.mu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]foundation.Result[T, error](nil), g.results...)
}
