package cron

import (
	"context"
	"fmt"
	"sync"

	"github.com/ovenworks/bakehouse-backend/pkg/logger"
)

type CartRetryJobParams struct {
	Logger  *logger.Logger
	Sweeper cartSweeper
}

type cartSweeper interface {
	RetrySweep(ctx context.Context) error
}

// NewCartRetryJob re-pushes carts whose last write to the durable store
// failed. It runs inside the API process, where the synchronizer lives.
func NewCartRetryJob(params CartRetryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("cart sweeper required")
	}
	return &cartRetryJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
	}, nil
}

type cartRetryJob struct {
	logg    *logger.Logger
	sweeper cartSweeper
}

func (j *cartRetryJob) Name() string { return "cart-retry-sweep" }

func (j *cartRetryJob) Run(ctx context.Context) error {
	if err := j.sweeper.RetrySweep(ctx); err != nil {
		return fmt.Errorf("cart retry sweep: %w", err)
	}
	return nil
}

// LocalLock satisfies Lock for single-process schedules where no cross
// replica coordination is needed.
type LocalLock struct {
	mu sync.Mutex
}

func (l *LocalLock) Acquire(ctx context.Context) (bool, error) {
	return l.mu.TryLock(), nil
}

func (l *LocalLock) Release(ctx context.Context) error {
	l.mu.Unlock()
	return nil
}
