package movies

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/pagination"
)

// Repository wires together catalog persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads the movie without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Movie, error) {
	var movie models.Movie
	if err := r.db.WithContext(ctx).First(&movie, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &movie, nil
}

// FindByTitleYear resolves the unique (title, year) pair.
func (r *Repository) FindByTitleYear(ctx context.Context, title string, year int) (*models.Movie, error) {
	var movie models.Movie
	err := r.db.WithContext(ctx).
		Where("LOWER(title) = ? AND year = ?", strings.ToLower(title), year).
		First(&movie).Error
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// FindByIDs loads a batch of movies without associations.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Movie, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Movie
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

// GetDetail fetches a movie with certification and people preloaded.
func (r *Repository) GetDetail(ctx context.Context, id uuid.UUID) (*models.Movie, error) {
	var movie models.Movie
	err := r.db.WithContext(ctx).
		Preload("Certification").
		Preload("Genres").
		Preload("Directors").
		Preload("Stars").
		First(&movie, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// Create inserts a new movie row.
func (r *Repository) Create(ctx context.Context, movie *models.Movie) (*models.Movie, error) {
	if movie.ID == uuid.Nil {
		movie.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(movie).Error; err != nil {
		return nil, err
	}
	return movie, nil
}

// Update saves an existing movie row.
func (r *Repository) Update(ctx context.Context, movie *models.Movie) (*models.Movie, error) {
	if err := r.db.WithContext(ctx).Save(movie).Error; err != nil {
		return nil, err
	}
	return movie, nil
}

// Delete removes the movie together with its cart references. Order item
// snapshots stay untouched.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("movie_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM movie_genres WHERE movie_id = ?", id).Error; err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM movie_directors WHERE movie_id = ?", id).Error; err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM movie_stars WHERE movie_id = ?", id).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&models.Movie{}).Error
}

// ReplaceGenres resets the movie's genre associations.
func (r *Repository) ReplaceGenres(ctx context.Context, movie *models.Movie, genres []models.Genre) error {
	return r.db.WithContext(ctx).Model(movie).Association("Genres").Replace(genres)
}

// ReplaceDirectors resets the movie's director associations.
func (r *Repository) ReplaceDirectors(ctx context.Context, movie *models.Movie, directors []models.Director) error {
	return r.db.WithContext(ctx).Model(movie).Association("Directors").Replace(directors)
}

// ReplaceStars resets the movie's star associations.
func (r *Repository) ReplaceStars(ctx context.Context, movie *models.Movie, stars []models.Star) error {
	return r.db.WithContext(ctx).Model(movie).Association("Stars").Replace(stars)
}

// EnsureCertification returns the certification with the given name,
// creating it on first use.
func (r *Repository) EnsureCertification(ctx context.Context, name string) (*models.Certification, error) {
	cert := models.Certification{ID: uuid.New(), Name: name}
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		FirstOrCreate(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// EnsureGenres resolves genre names to rows, creating missing ones.
func (r *Repository) EnsureGenres(ctx context.Context, names []string) ([]models.Genre, error) {
	out := make([]models.Genre, 0, len(names))
	for _, name := range names {
		row := models.Genre{ID: uuid.New(), Name: name}
		if err := r.db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&row).Error; err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// EnsureDirectors resolves director names to rows, creating missing ones.
func (r *Repository) EnsureDirectors(ctx context.Context, names []string) ([]models.Director, error) {
	out := make([]models.Director, 0, len(names))
	for _, name := range names {
		row := models.Director{ID: uuid.New(), Name: name}
		if err := r.db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&row).Error; err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// EnsureStars resolves star names to rows, creating missing ones.
func (r *Repository) EnsureStars(ctx context.Context, names []string) ([]models.Star, error) {
	out := make([]models.Star, 0, len(names))
	for _, name := range names {
		row := models.Star{ID: uuid.New(), Name: name}
		if err := r.db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&row).Error; err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// ListGenres returns all genres sorted by name.
func (r *Repository) ListGenres(ctx context.Context) ([]models.Genre, error) {
	var rows []models.Genre
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// ListDirectors returns all directors sorted by name.
func (r *Repository) ListDirectors(ctx context.Context) ([]models.Director, error) {
	var rows []models.Director
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// ListStars returns all stars sorted by name.
func (r *Repository) ListStars(ctx context.Context) ([]models.Star, error) {
	var rows []models.Star
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// ListCertifications returns all certifications sorted by name.
func (r *Repository) ListCertifications(ctx context.Context) ([]models.Certification, error) {
	var rows []models.Certification
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// List returns a cursor page of movies matching the filters.
func (r *Repository) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Model(&models.Movie{}).
		Preload("Certification")

	filter := query.Filters
	if genre := strings.TrimSpace(filter.Genre); genre != "" {
		qb = qb.Where(
			"id IN (SELECT mg.movie_id FROM movie_genres mg JOIN genres g ON g.id = mg.genre_id WHERE LOWER(g.name) = ?)",
			strings.ToLower(genre),
		)
	}
	if filter.YearMin != nil {
		qb = qb.Where("year >= ?", *filter.YearMin)
	}
	if filter.YearMax != nil {
		qb = qb.Where("year <= ?", *filter.YearMax)
	}
	if filter.PriceMin != nil {
		qb = qb.Where("price >= ?", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		qb = qb.Where("price <= ?", *filter.PriceMax)
	}
	if filter.Available != nil {
		qb = qb.Where("available = ?", *filter.Available)
	}
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Movie
	err = qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	resultRows := rows
	nextCursor := ""
	if len(rows) > pageSize {
		resultRows = rows[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]MovieSummary, 0, len(resultRows))
	for i := range resultRows {
		summaries = append(summaries, summaryFromModel(&resultRows[i]))
	}

	return &ListResult{
		Movies:     summaries,
		NextCursor: nextCursor,
	}, nil
}
