package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/moviegate/moviegate-backend/internal/tokens"
	"github.com/moviegate/moviegate-backend/internal/users"
	"github.com/moviegate/moviegate-backend/pkg/config"
	"github.com/moviegate/moviegate-backend/pkg/db"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
	"github.com/moviegate/moviegate-backend/pkg/logger"
	"github.com/moviegate/moviegate-backend/pkg/outbox"
	"github.com/moviegate/moviegate-backend/pkg/outbox/payloads"
	"github.com/moviegate/moviegate-backend/pkg/security"
)

// PasswordResetService drives the forgot-password flow.
type PasswordResetService interface {
	Request(ctx context.Context, req PasswordResetRequest) error
	Confirm(ctx context.Context, req PasswordResetConfirm) error
}

// PasswordResetServiceParams packages the reset flow dependencies.
type PasswordResetServiceParams struct {
	DB             *db.Client
	Outbox         *outbox.Service
	Logger         *logger.Logger
	PasswordConfig config.PasswordConfig
	TokenConfig    config.TokenConfig
}

type passwordResetService struct {
	db          *db.Client
	outbox      *outbox.Service
	logg        *logger.Logger
	passwordCfg config.PasswordConfig
	tokenCfg    config.TokenConfig
}

// NewPasswordResetService builds the reset service.
func NewPasswordResetService(params PasswordResetServiceParams) (PasswordResetService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox service required")
	}
	return &passwordResetService{
		db:          params.DB,
		outbox:      params.Outbox,
		logg:        params.Logger,
		passwordCfg: params.PasswordConfig,
		tokenCfg:    params.TokenConfig,
	}, nil
}

// Request always reports success to the caller so account existence is
// never leaked. The token is only minted for known active accounts.
func (s *passwordResetService) Request(ctx context.Context, req PasswordResetRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	resetToken, err := tokens.NewToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		resetRepo := tokens.NewPasswordResetRepository(tx)

		user, err := userRepo.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return gorm.ErrRecordNotFound
		}

		expiresAt := time.Now().UTC().Add(s.tokenCfg.PasswordResetTTL)
		if _, err := resetRepo.Replace(ctx, user.ID, resetToken, expiresAt); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPasswordResetRequested,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Data: payloads.PasswordResetRequestedEvent{
				UserID:     user.ID,
				Email:      user.Email,
				ResetToken: resetToken,
				ExpiresAt:  expiresAt,
			},
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if s.logg != nil {
				s.logg.Info(ctx, "password reset requested for unknown account")
			}
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "request password reset")
	}
	return nil
}

func (s *passwordResetService) Confirm(ctx context.Context, req PasswordResetConfirm) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reset token is required")
	}

	passwordHash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		resetRepo := tokens.NewPasswordResetRepository(tx)

		row, err := resetRepo.FindByToken(ctx, token)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reset token not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reset token")
		}
		if time.Now().After(row.ExpiresAt) {
			return pkgerrors.New(pkgerrors.CodeValidation, "reset token expired")
		}

		user, err := userRepo.FindByID(ctx, row.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}

		if err := userRepo.UpdatePasswordHash(ctx, user.ID, passwordHash); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
		}
		if err := resetRepo.DeleteByUserID(ctx, user.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume reset token")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPasswordResetCompleted,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Data: payloads.PasswordResetCompletedEvent{
				UserID: user.ID,
				Email:  user.Email,
			},
		})
	})
}
