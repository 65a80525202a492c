package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
)

// Service exposes profile and account administration operations.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserDTO, error)
	ListUsers(ctx context.Context, limit, offset int) ([]UserDTO, int64, error)
	ChangeGroup(ctx context.Context, userID uuid.UUID, group enums.UserGroup) error
}

// UpdateProfileRequest carries profile edits from the API layer.
type UpdateProfileRequest struct {
	FirstName   *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName    *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Gender      *string `json:"gender,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
	Info        *string `json:"info,omitempty" validate:"omitempty,max=2000"`
}

type userRepository interface {
	FindByIDWithProfile(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpsertProfile(ctx context.Context, userID uuid.UUID, dto UpdateProfileDTO) (*models.UserProfile, error)
	List(ctx context.Context, limit, offset int) ([]models.User, int64, error)
	UpdateGroup(ctx context.Context, id uuid.UUID, group enums.UserGroup) error
}

type service struct {
	repo userRepository
}

// NewService constructs the users service.
func NewService(repo userRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByIDWithProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserDTO, error) {
	dto := UpdateProfileDTO{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Info:      req.Info,
	}

	if req.Gender != nil {
		gender, err := enums.ParseGender(*req.Gender)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid gender")
		}
		dto.Gender = &gender
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", strings.TrimSpace(*req.DateOfBirth))
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "date_of_birth must be YYYY-MM-DD")
		}
		if dob.After(time.Now()) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "date_of_birth cannot be in the future")
		}
		dto.DateOfBirth = &dob
	}

	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	if _, err := s.repo.UpsertProfile(ctx, userID, dto); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save profile")
	}

	return s.GetProfile(ctx, userID)
}

func (s *service) ListUsers(ctx context.Context, limit, offset int) ([]UserDTO, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}

	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, total, nil
}

func (s *service) ChangeGroup(ctx context.Context, userID uuid.UUID, group enums.UserGroup) error {
	if !group.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid user group")
	}
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if err := s.repo.UpdateGroup(ctx, userID, group); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update group")
	}
	return nil
}
