package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/ovenworks/bakehouse-backend/pkg/logger"
)

type fakeSweeper struct {
	calls int
	err   error
}

func (f *fakeSweeper) RetrySweep(ctx context.Context) error {
	f.calls++
	return f.err
}

func TestCartRetryJobRunsSweep(t *testing.T) {
	sweeper := &fakeSweeper{}
	job, err := NewCartRetryJob(CartRetryJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Sweeper: sweeper,
	})
	if err != nil {
		t.Fatalf("NewCartRetryJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("expected one sweep, got %d", sweeper.calls)
	}
}

func TestCartRetryJobPropagatesErrors(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("push failed")}
	job, err := NewCartRetryJob(CartRetryJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Sweeper: sweeper,
	})
	if err != nil {
		t.Fatalf("NewCartRetryJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestLocalLockIsExclusive(t *testing.T) {
	lock := &LocalLock{}

	ok, err := lock.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("first acquire should succeed, ok=%v err=%v", ok, err)
	}
	ok, err = lock.Acquire(context.Background())
	if err != nil || ok {
		t.Fatalf("second acquire should fail, ok=%v err=%v", ok, err)
	}
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = lock.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("reacquire should succeed, ok=%v err=%v", ok, err)
	}
}
