package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/moviegate/moviegate-backend/pkg/logger"
)

type expiredTokenDeleter interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenCleanupJobParams configure the one-shot token purge.
type TokenCleanupJobParams struct {
	Logger            *logger.Logger
	ActivationRepo    expiredTokenDeleter
	PasswordResetRepo expiredTokenDeleter
}

// NewTokenCleanupJob builds the cron job that purges expired activation and
// password reset tokens.
func NewTokenCleanupJob(params TokenCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.ActivationRepo == nil {
		return nil, fmt.Errorf("activation token repository required")
	}
	if params.PasswordResetRepo == nil {
		return nil, fmt.Errorf("password reset token repository required")
	}
	return &tokenCleanupJob{
		logg:       params.Logger,
		activation: params.ActivationRepo,
		reset:      params.PasswordResetRepo,
		now:        time.Now,
	}, nil
}

type tokenCleanupJob struct {
	logg       *logger.Logger
	activation expiredTokenDeleter
	reset      expiredTokenDeleter
	now        func() time.Time
}

func (j *tokenCleanupJob) Name() string { return "token-cleanup" }

func (j *tokenCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()

	var errs []error
	activationDeleted, err := j.activation.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("purge activation tokens: %w", err))
	}
	resetDeleted, err := j.reset.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("purge password reset tokens: %w", err))
	}
	if combined := multierr.Combine(errs...); combined != nil {
		return combined
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":             cutoff,
		"activation_deleted": activationDeleted,
		"reset_deleted":      resetDeleted,
	})
	j.logg.Info(logCtx, "token cleanup complete")
	return nil
}
