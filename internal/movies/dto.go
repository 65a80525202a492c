package movies

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/pagination"
)

// MovieSummary is the list-view shape of a catalog entry.
type MovieSummary struct {
	ID            uuid.UUID       `json:"id"`
	Title         string          `json:"title"`
	Year          int             `json:"year"`
	IMDBRating    float64         `json:"imdb_rating"`
	Price         decimal.Decimal `json:"price"`
	Available     bool            `json:"available"`
	PosterKey     *string         `json:"poster_key,omitempty"`
	Certification string          `json:"certification,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// MovieDetail is the full catalog entry with relations.
type MovieDetail struct {
	ID             uuid.UUID       `json:"id"`
	Title          string          `json:"title"`
	Year           int             `json:"year"`
	RuntimeMinutes int             `json:"runtime_minutes"`
	IMDBRating     float64         `json:"imdb_rating"`
	Votes          int             `json:"votes"`
	MetaScore      *float64        `json:"meta_score,omitempty"`
	Gross          *float64        `json:"gross,omitempty"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	Available      bool            `json:"available"`
	PosterKey      *string         `json:"poster_key,omitempty"`
	Certification  string          `json:"certification,omitempty"`
	Genres         []string        `json:"genres"`
	Directors      []string        `json:"directors"`
	Stars          []string        `json:"stars"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ListFilters narrows the public catalog listing.
type ListFilters struct {
	Genre     string
	YearMin   *int
	YearMax   *int
	PriceMin  *decimal.Decimal
	PriceMax  *decimal.Decimal
	Available *bool
	Query     string
}

// ListQuery couples filters with cursor pagination.
type ListQuery struct {
	Pagination pagination.Params
	Filters    ListFilters
}

// ListResult is one catalog page.
type ListResult struct {
	Movies     []MovieSummary `json:"movies"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// CreateMovieRequest is the admin payload for a new catalog entry.
type CreateMovieRequest struct {
	Title          string          `json:"title" validate:"required,max=300"`
	Year           int             `json:"year" validate:"required,min=1888"`
	RuntimeMinutes int             `json:"runtime_minutes" validate:"required,min=1"`
	IMDBRating     float64         `json:"imdb_rating" validate:"min=0,max=10"`
	Votes          int             `json:"votes" validate:"min=0"`
	MetaScore      *float64        `json:"meta_score,omitempty"`
	Gross          *float64        `json:"gross,omitempty"`
	Description    string          `json:"description" validate:"required"`
	Price          decimal.Decimal `json:"price" validate:"required"`
	Available      bool            `json:"available"`
	Certification  string          `json:"certification" validate:"required,max=20"`
	Genres         []string        `json:"genres" validate:"required,min=1,dive,max=100"`
	Directors      []string        `json:"directors" validate:"omitempty,dive,max=200"`
	Stars          []string        `json:"stars" validate:"omitempty,dive,max=200"`
}

// UpdateMovieRequest carries partial admin edits. Nil fields are untouched.
type UpdateMovieRequest struct {
	Title          *string          `json:"title,omitempty" validate:"omitempty,max=300"`
	Year           *int             `json:"year,omitempty" validate:"omitempty,min=1888"`
	RuntimeMinutes *int             `json:"runtime_minutes,omitempty" validate:"omitempty,min=1"`
	IMDBRating     *float64         `json:"imdb_rating,omitempty" validate:"omitempty,min=0,max=10"`
	Votes          *int             `json:"votes,omitempty" validate:"omitempty,min=0"`
	MetaScore      *float64         `json:"meta_score,omitempty"`
	Gross          *float64         `json:"gross,omitempty"`
	Description    *string          `json:"description,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Available      *bool            `json:"available,omitempty"`
	Certification  *string          `json:"certification,omitempty" validate:"omitempty,max=20"`
	Genres         []string         `json:"genres,omitempty" validate:"omitempty,min=1,dive,max=100"`
	Directors      []string         `json:"directors,omitempty" validate:"omitempty,dive,max=200"`
	Stars          []string         `json:"stars,omitempty" validate:"omitempty,dive,max=200"`
}

// NamedEntry is the shared shape for genres, directors, stars, and
// certifications.
type NamedEntry struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func summaryFromModel(m *models.Movie) MovieSummary {
	s := MovieSummary{
		ID:         m.ID,
		Title:      m.Title,
		Year:       m.Year,
		IMDBRating: m.IMDBRating,
		Price:      m.Price,
		Available:  m.Available,
		PosterKey:  m.PosterKey,
		CreatedAt:  m.CreatedAt,
	}
	if m.Certification != nil {
		s.Certification = m.Certification.Name
	}
	return s
}

func detailFromModel(m *models.Movie) *MovieDetail {
	d := &MovieDetail{
		ID:             m.ID,
		Title:          m.Title,
		Year:           m.Year,
		RuntimeMinutes: m.RuntimeMinutes,
		IMDBRating:     m.IMDBRating,
		Votes:          m.Votes,
		MetaScore:      m.MetaScore,
		Gross:          m.Gross,
		Description:    m.Description,
		Price:          m.Price,
		Available:      m.Available,
		PosterKey:      m.PosterKey,
		Genres:         make([]string, 0, len(m.Genres)),
		Directors:      make([]string, 0, len(m.Directors)),
		Stars:          make([]string, 0, len(m.Stars)),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.Certification != nil {
		d.Certification = m.Certification.Name
	}
	for _, g := range m.Genres {
		d.Genres = append(d.Genres, g.Name)
	}
	for _, p := range m.Directors {
		d.Directors = append(d.Directors, p.Name)
	}
	for _, p := range m.Stars {
		d.Stars = append(d.Stars, p.Name)
	}
	return d
}
