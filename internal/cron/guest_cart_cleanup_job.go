package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ovenworks/bakehouse-backend/pkg/logger"
)

const defaultGuestCartRetention = 30 * 24 * time.Hour

type GuestCartCleanupJobParams struct {
	Logger     *logger.Logger
	Repository staleCartRepo
	Retention  time.Duration
}

type staleCartRepo interface {
	DeleteStaleGuestCarts(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewGuestCartCleanupJob deletes durable guest carts that have not been
// touched within the retention window. Users' carts are never touched.
func NewGuestCartCleanupJob(params GuestCartCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultGuestCartRetention
	}
	return &guestCartCleanupJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type guestCartCleanupJob struct {
	logg      *logger.Logger
	repo      staleCartRepo
	retention time.Duration
	now       func() time.Time
}

func (j *guestCartCleanupJob) Name() string { return "guest-cart-cleanup" }

func (j *guestCartCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteStaleGuestCarts(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("guest cart cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"retention":     j.retention.String(),
		"carts_deleted": deleted,
	})
	j.logg.Info(logCtx, "guest cart cleanup complete")
	return nil
}
