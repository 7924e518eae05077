// Package tasks runs fire-and-forget work detached from the request lifecycle.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ovenworks/bakehouse-backend/pkg/logger"
)

// Runner executes background tasks on their own context so a cancelled
// request cannot abort work already handed off.
type Runner struct {
	logg    *logger.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRunner(logg *logger.Logger, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{logg: logg, timeout: timeout}
}

// Go runs fn on a detached context. Panics are recovered and errors are
// logged; the caller never observes either.
func (r *Runner) Go(ctx context.Context, name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}

	detached := context.WithoutCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		taskCtx, cancel := context.WithTimeout(detached, r.timeout)
		defer cancel()

		defer func() {
			if rec := recover(); rec != nil && r.logg != nil {
				r.logg.Error(taskCtx, "background task panicked", fmt.Errorf("task %s: %v", name, rec))
			}
		}()

		if err := fn(taskCtx); err != nil && r.logg != nil {
			r.logg.Error(taskCtx, fmt.Sprintf("background task failed: %s", name), err)
		}
	}()
}

// Wait blocks until all in-flight tasks finish. Used on shutdown and in tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}
