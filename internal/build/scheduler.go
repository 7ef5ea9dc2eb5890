package build

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// buildParallel executes the ordered component set with a bounded worker
// pool. A component is dispatched only once every prerequisite has finished
// successfully; dependents of a failed component are marked blocked and
// never dispatched, leaving their persisted state untouched.
func (b *Builder) buildParallel(ctx context.Context, order []string, forced map[string]bool) error {
	inSet := make(map[string]bool, len(order))
	for _, name := range order {
		inSet[name] = true
	}

	indegree := make(map[string]int, len(order))
	dependents := make(map[string][]string, len(order))
	for _, name := range order {
		indegree[name] += 0
		for _, dep := range b.reg.Get(name).Deps {
			if inSet[dep] {
				indegree[name]++
				dependents[dep] = append(dependents[dep], name)
			}
		}
	}

	ready := make(chan string, len(order))
	for _, name := range order {
		if indegree[name] == 0 {
			ready <- name
		}
	}

	var mu sync.Mutex
	remaining := len(order)
	settled := make(map[string]bool)
	var firstErr error

	// finish marks a component settled and closes the ready channel once
	// nothing is left to dispatch. Callers hold mu.
	finish := func(name string) {
		if settled[name] {
			return
		}
		settled[name] = true
		remaining--
		if remaining == 0 {
			close(ready)
		}
	}

	// block recursively settles every dependent of a failed component so
	// the run can drain without dispatching them. Callers hold mu.
	var block func(name string)
	block = func(name string) {
		for _, dep := range dependents[name] {
			if !settled[dep] {
				b.logf("skipping %s: depends on failed component %s", dep, name)
				finish(dep)
				block(dep)
			}
		}
	}

	workers := b.opts.Parallel
	if workers > len(order) {
		workers = len(order)
	}
	g, ctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(b.opts.Parallel))

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case name, ok := <-ready:
					if !ok {
						return nil
					}
					// An abort stops dispatching; in-flight stages are
					// killed through the context they run under.
					if err := ctx.Err(); err != nil {
						return err
					}
					if err := sem.Acquire(ctx, 1); err != nil {
						return err
					}
					err := b.buildOne(ctx, name, forced)
					sem.Release(1)

					mu.Lock()
					finish(name)
					if err != nil {
						cerr := &ComponentError{Component: name, Err: err}
						if firstErr == nil {
							firstErr = cerr
						}
						block(name)
						mu.Unlock()
						if !b.opts.KeepGoing {
							return cerr
						}
						continue
					}
					next := make([]string, 0, len(dependents[name]))
					for _, dep := range dependents[name] {
						indegree[dep]--
						if indegree[dep] == 0 && !settled[dep] {
							next = append(next, dep)
						}
					}
					mu.Unlock()

					for _, dep := range next {
						select {
						case ready <- dep:
						case <-ctx.Done():
							return ctx.Err()
						}
					}
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return firstErr
}
