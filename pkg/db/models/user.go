package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/moviegate/moviegate-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string          `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string          `gorm:"column:password_hash;not null"`
	Group        enums.UserGroup `gorm:"column:user_group;type:user_group;not null;default:'user'"`
	IsActive     bool            `gorm:"column:is_active;not null;default:false"`
	LastLoginAt  *time.Time      `gorm:"column:last_login_at"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Profile *UserProfile `gorm:"foreignKey:UserID"`
}

// UserProfile keeps optional personal details separate from the identity row.
type UserProfile struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID     `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	FirstName   *string       `gorm:"column:first_name"`
	LastName    *string       `gorm:"column:last_name"`
	AvatarKey   *string       `gorm:"column:avatar_key"`
	Gender      *enums.Gender `gorm:"column:gender;type:gender"`
	DateOfBirth *time.Time    `gorm:"column:date_of_birth;type:date"`
	Info        *string       `gorm:"column:info;type:text"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
