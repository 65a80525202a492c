package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Movie is the purchasable catalog entity.
type Movie struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title           string          `gorm:"type:text;not null;index:idx_movies_title_year,unique,priority:1"`
	Year            int             `gorm:"not null;index:idx_movies_title_year,unique,priority:2"`
	RuntimeMinutes  int             `gorm:"column:runtime_minutes;not null"`
	IMDBRating      float64         `gorm:"column:imdb_rating;not null;default:0"`
	Votes           int             `gorm:"not null;default:0"`
	MetaScore       *float64        `gorm:"column:meta_score"`
	Gross           *float64        `gorm:"column:gross"`
	Description     string          `gorm:"type:text;not null"`
	Price           decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Available       bool            `gorm:"not null;default:true"`
	PosterKey       *string         `gorm:"column:poster_key"`
	CertificationID uuid.UUID       `gorm:"column:certification_id;type:uuid;not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Certification *Certification `gorm:"foreignKey:CertificationID"`
	Genres        []Genre        `gorm:"many2many:movie_genres"`
	Directors     []Director     `gorm:"many2many:movie_directors"`
	Stars         []Star         `gorm:"many2many:movie_stars"`
}

// Genre labels movies; names are unique.
type Genre struct {
	ID   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name string    `gorm:"type:text;not null;uniqueIndex"`
}

// Director is a catalog person entity.
type Director struct {
	ID   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name string    `gorm:"type:text;not null;uniqueIndex"`
}

// Star is a catalog person entity.
type Star struct {
	ID   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name string    `gorm:"type:text;not null;uniqueIndex"`
}

// Certification is the age rating attached to every movie.
type Certification struct {
	ID   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name string    `gorm:"type:text;not null;uniqueIndex"`
}
