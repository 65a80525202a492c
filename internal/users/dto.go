package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID       `json:"id"`
	Email       string          `json:"email"`
	Group       enums.UserGroup `json:"group"`
	IsActive    bool            `json:"is_active"`
	LastLoginAt *time.Time      `json:"last_login_at,omitempty"`
	Profile     *ProfileDTO     `json:"profile,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProfileDTO is the transport shape of the optional profile row.
type ProfileDTO struct {
	FirstName   *string       `json:"first_name,omitempty"`
	LastName    *string       `json:"last_name,omitempty"`
	AvatarKey   *string       `json:"avatar_key,omitempty"`
	Gender      *enums.Gender `json:"gender,omitempty"`
	DateOfBirth *time.Time    `json:"date_of_birth,omitempty"`
	Info        *string       `json:"info,omitempty"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	Group        enums.UserGroup
	IsActive     bool
}

// UpdateProfileDTO carries the mutable profile fields. Nil pointers leave
// the stored value untouched.
type UpdateProfileDTO struct {
	FirstName   *string
	LastName    *string
	Gender      *enums.Gender
	DateOfBirth *time.Time
	Info        *string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		Group:       u.Group,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		Profile:     profileFromModel(u.Profile),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func profileFromModel(p *models.UserProfile) *ProfileDTO {
	if p == nil {
		return nil
	}
	return &ProfileDTO{
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		AvatarKey:   p.AvatarKey,
		Gender:      p.Gender,
		DateOfBirth: p.DateOfBirth,
		Info:        p.Info,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	group := c.Group
	if group == "" {
		group = enums.UserGroupUser
	}
	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Group:        group,
		IsActive:     c.IsActive,
	}
}
