package movies

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/moviegate/moviegate-backend/pkg/db"
	"github.com/moviegate/moviegate-backend/pkg/db/models"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
)

// Service exposes the catalog to the API layer.
type Service interface {
	List(ctx context.Context, query ListQuery) (*ListResult, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*MovieDetail, error)
	ListGenres(ctx context.Context) ([]NamedEntry, error)
	ListDirectors(ctx context.Context) ([]NamedEntry, error)
	ListStars(ctx context.Context) ([]NamedEntry, error)
	ListCertifications(ctx context.Context) ([]NamedEntry, error)

	Create(ctx context.Context, req CreateMovieRequest) (*MovieDetail, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateMovieRequest) (*MovieDetail, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	tx   txRunner
	repo *Repository
}

// NewService constructs the catalog service.
func NewService(tx txRunner, repo *Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("movies repository is required")
	}
	return &service{tx: tx, repo: repo}, nil
}

func (s *service) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	result, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list movies")
	}
	return result, nil
}

func (s *service) GetDetail(ctx context.Context, id uuid.UUID) (*MovieDetail, error) {
	movie, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "movie not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load movie")
	}
	return detailFromModel(movie), nil
}

func (s *service) ListGenres(ctx context.Context) ([]NamedEntry, error) {
	rows, err := s.repo.ListGenres(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list genres")
	}
	out := make([]NamedEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, NamedEntry{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

func (s *service) ListDirectors(ctx context.Context) ([]NamedEntry, error) {
	rows, err := s.repo.ListDirectors(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list directors")
	}
	out := make([]NamedEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, NamedEntry{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

func (s *service) ListStars(ctx context.Context) ([]NamedEntry, error) {
	rows, err := s.repo.ListStars(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stars")
	}
	out := make([]NamedEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, NamedEntry{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

func (s *service) ListCertifications(ctx context.Context) ([]NamedEntry, error) {
	rows, err := s.repo.ListCertifications(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list certifications")
	}
	out := make([]NamedEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, NamedEntry{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, req CreateMovieRequest) (*MovieDetail, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if req.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	var movieID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindByTitleYear(ctx, title, req.Year); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "movie with this title and year already exists")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check movie uniqueness")
		}

		cert, err := repo.EnsureCertification(ctx, strings.TrimSpace(req.Certification))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve certification")
		}
		genres, err := repo.EnsureGenres(ctx, normalizeNames(req.Genres))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve genres")
		}
		directors, err := repo.EnsureDirectors(ctx, normalizeNames(req.Directors))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve directors")
		}
		stars, err := repo.EnsureStars(ctx, normalizeNames(req.Stars))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve stars")
		}

		movie := &models.Movie{
			Title:           title,
			Year:            req.Year,
			RuntimeMinutes:  req.RuntimeMinutes,
			IMDBRating:      req.IMDBRating,
			Votes:           req.Votes,
			MetaScore:       req.MetaScore,
			Gross:           req.Gross,
			Description:     req.Description,
			Price:           req.Price,
			Available:       req.Available,
			CertificationID: cert.ID,
		}
		if _, err := repo.Create(ctx, movie); err != nil {
			if dbpkg.IsUniqueViolation(err, "idx_movies_title_year") {
				return pkgerrors.New(pkgerrors.CodeConflict, "movie with this title and year already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create movie")
		}

		if err := repo.ReplaceGenres(ctx, movie, genres); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach genres")
		}
		if err := repo.ReplaceDirectors(ctx, movie, directors); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach directors")
		}
		if err := repo.ReplaceStars(ctx, movie, stars); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach stars")
		}

		movieID = movie.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetDetail(ctx, movieID)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateMovieRequest) (*MovieDetail, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		movie, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "movie not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load movie")
		}

		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
			}
			movie.Title = title
		}
		if req.Year != nil {
			movie.Year = *req.Year
		}
		if req.RuntimeMinutes != nil {
			movie.RuntimeMinutes = *req.RuntimeMinutes
		}
		if req.IMDBRating != nil {
			movie.IMDBRating = *req.IMDBRating
		}
		if req.Votes != nil {
			movie.Votes = *req.Votes
		}
		if req.MetaScore != nil {
			movie.MetaScore = req.MetaScore
		}
		if req.Gross != nil {
			movie.Gross = req.Gross
		}
		if req.Description != nil {
			movie.Description = *req.Description
		}
		if req.Price != nil {
			if req.Price.IsNegative() {
				return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
			}
			movie.Price = *req.Price
		}
		if req.Available != nil {
			movie.Available = *req.Available
		}
		if req.Certification != nil {
			cert, err := repo.EnsureCertification(ctx, strings.TrimSpace(*req.Certification))
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve certification")
			}
			movie.CertificationID = cert.ID
		}

		if req.Title != nil || req.Year != nil {
			existing, err := repo.FindByTitleYear(ctx, movie.Title, movie.Year)
			if err == nil && existing.ID != movie.ID {
				return pkgerrors.New(pkgerrors.CodeConflict, "movie with this title and year already exists")
			} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check movie uniqueness")
			}
		}

		if _, err := repo.Update(ctx, movie); err != nil {
			if dbpkg.IsUniqueViolation(err, "idx_movies_title_year") {
				return pkgerrors.New(pkgerrors.CodeConflict, "movie with this title and year already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update movie")
		}

		if req.Genres != nil {
			genres, err := repo.EnsureGenres(ctx, normalizeNames(req.Genres))
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve genres")
			}
			if err := repo.ReplaceGenres(ctx, movie, genres); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach genres")
			}
		}
		if req.Directors != nil {
			directors, err := repo.EnsureDirectors(ctx, normalizeNames(req.Directors))
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve directors")
			}
			if err := repo.ReplaceDirectors(ctx, movie, directors); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach directors")
			}
		}
		if req.Stars != nil {
			stars, err := repo.EnsureStars(ctx, normalizeNames(req.Stars))
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve stars")
			}
			if err := repo.ReplaceStars(ctx, movie, stars); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach stars")
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetDetail(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "movie not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load movie")
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete movie")
		}
		return nil
	})
}

func normalizeNames(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		name := strings.TrimSpace(v)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}
