package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ovenworks/bakehouse-backend/pkg/logger"
)

type fakeStaleCartRepo struct {
	lastCutoff time.Time
	deleted    int64
	err        error
	called     int
}

func (f *fakeStaleCartRepo) DeleteStaleGuestCarts(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return f.deleted, nil
}

func newGuestCartCleanup(t *testing.T, repo *fakeStaleCartRepo, retention time.Duration) *guestCartCleanupJob {
	t.Helper()
	jobIface, err := NewGuestCartCleanupJob(GuestCartCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: repo,
		Retention:  retention,
	})
	if err != nil {
		t.Fatalf("NewGuestCartCleanupJob: %v", err)
	}
	job, ok := jobIface.(*guestCartCleanupJob)
	if !ok {
		t.Fatalf("expected guestCartCleanupJob, got %T", jobIface)
	}
	return job
}

func TestGuestCartCleanupUsesRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 2, 10, 6, 0, 0, 0, time.UTC)
	repo := &fakeStaleCartRepo{deleted: 7}
	job := newGuestCartCleanup(t, repo, 14*24*time.Hour)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expected := now.Add(-14 * 24 * time.Hour)
	if !repo.lastCutoff.Equal(expected) {
		t.Fatalf("expected cutoff %s, got %s", expected, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestGuestCartCleanupDefaultsRetention(t *testing.T) {
	repo := &fakeStaleCartRepo{}
	job := newGuestCartCleanup(t, repo, 0)
	if job.retention != defaultGuestCartRetention {
		t.Fatalf("expected default retention, got %s", job.retention)
	}
}

func TestGuestCartCleanupPropagatesErrors(t *testing.T) {
	repo := &fakeStaleCartRepo{err: errors.New("db down")}
	job := newGuestCartCleanup(t, repo, 0)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
