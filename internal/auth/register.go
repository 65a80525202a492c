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
	"github.com/moviegate/moviegate-backend/pkg/outbox"
	"github.com/moviegate/moviegate-backend/pkg/outbox/payloads"
	"github.com/moviegate/moviegate-backend/pkg/security"
)

// RegisterService handles account creation and activation.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) error
	Activate(ctx context.Context, token string) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             *db.Client
	Outbox         *outbox.Service
	PasswordConfig config.PasswordConfig
	TokenConfig    config.TokenConfig
}

type registerService struct {
	db          *db.Client
	outbox      *outbox.Service
	passwordCfg config.PasswordConfig
	tokenCfg    config.TokenConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox service required")
	}
	return &registerService{
		db:          params.DB,
		outbox:      params.Outbox,
		passwordCfg: params.PasswordConfig,
		tokenCfg:    params.TokenConfig,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	activationToken, err := tokens.NewToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate activation token")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		activationRepo := tokens.NewActivationRepository(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			Group:        enums.UserGroupUser,
			IsActive:     false,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		if req.FirstName != nil || req.LastName != nil {
			if _, err := userRepo.UpsertProfile(ctx, user.ID, users.UpdateProfileDTO{
				FirstName: req.FirstName,
				LastName:  req.LastName,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create profile")
			}
		}

		expiresAt := time.Now().UTC().Add(s.tokenCfg.ActivationTTL)
		if _, err := activationRepo.Replace(ctx, user.ID, activationToken, expiresAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store activation token")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserRegistered,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Data: payloads.UserRegisteredEvent{
				UserID:          user.ID,
				Email:           user.Email,
				ActivationToken: activationToken,
				ExpiresAt:       expiresAt,
			},
		})
	})
}

func (s *registerService) Activate(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "activation token is required")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		activationRepo := tokens.NewActivationRepository(tx)

		row, err := activationRepo.FindByToken(ctx, token)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "activation token not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load activation token")
		}
		if time.Now().After(row.ExpiresAt) {
			return pkgerrors.New(pkgerrors.CodeValidation, "activation token expired")
		}

		user, err := userRepo.FindByID(ctx, row.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}
		if user.IsActive {
			return activationRepo.DeleteByUserID(ctx, user.ID)
		}

		if err := userRepo.Activate(ctx, user.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activate user")
		}
		if err := activationRepo.DeleteByUserID(ctx, user.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume activation token")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserActivated,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Data: payloads.UserActivatedEvent{
				UserID: user.ID,
				Email:  user.Email,
			},
		})
	})
}
