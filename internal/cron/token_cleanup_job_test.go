package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moviegate/moviegate-backend/pkg/logger"
)

type fakeTokenRepo struct {
	lastCutoff time.Time
	deleted    int64
	err        error
	called     int
}

func (f *fakeTokenRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return f.deleted, nil
}

func newTokenCleanupJob(t *testing.T, activation, reset *fakeTokenRepo) *tokenCleanupJob {
	t.Helper()
	jobIface, err := NewTokenCleanupJob(TokenCleanupJobParams{
		Logger:            logger.New(logger.Options{ServiceName: "test"}),
		ActivationRepo:    activation,
		PasswordResetRepo: reset,
	})
	if err != nil {
		t.Fatalf("NewTokenCleanupJob: %v", err)
	}
	job, ok := jobIface.(*tokenCleanupJob)
	if !ok {
		t.Fatalf("expected tokenCleanupJob, got %T", jobIface)
	}
	return job
}

func TestTokenCleanupJobPurgesBothTokenKinds(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	activation := &fakeTokenRepo{deleted: 3}
	reset := &fakeTokenRepo{deleted: 1}
	job := newTokenCleanupJob(t, activation, reset)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if activation.called != 1 || reset.called != 1 {
		t.Fatalf("expected both repos called once, got %d and %d", activation.called, reset.called)
	}
	if !activation.lastCutoff.Equal(now) || !reset.lastCutoff.Equal(now) {
		t.Fatalf("expected cutoff %s, got %s and %s", now, activation.lastCutoff, reset.lastCutoff)
	}
}

func TestTokenCleanupJobContinuesPastFailures(t *testing.T) {
	activation := &fakeTokenRepo{err: errors.New("boom")}
	reset := &fakeTokenRepo{deleted: 2}
	job := newTokenCleanupJob(t, activation, reset)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if reset.called != 1 {
		t.Fatalf("expected reset purge to still run, got %d calls", reset.called)
	}
}
