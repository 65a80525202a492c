package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moviegate/moviegate-backend/api/responses"
	"github.com/moviegate/moviegate-backend/api/validators"
	moviesvc "github.com/moviegate/moviegate-backend/internal/movies"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
	"github.com/moviegate/moviegate-backend/pkg/logger"
	"github.com/moviegate/moviegate-backend/pkg/pagination"
)

// ListMovies serves the public catalog with filters and cursor pagination.
func ListMovies(svc moviesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "movies service unavailable"))
			return
		}

		query, err := parseMovieListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), *query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetMovie returns the full catalog entry with relations.
func GetMovie(svc moviesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "movies service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "movieId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movie id"))
			return
		}

		detail, err := svc.GetDetail(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// ListGenres returns all known genres.
func ListGenres(svc moviesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return namedEntryHandler(svc, logg, func(r *http.Request) ([]moviesvc.NamedEntry, error) {
		return svc.ListGenres(r.Context())
	})
}

// ListDirectors returns all known directors.
func ListDirectors(svc moviesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return namedEntryHandler(svc, logg, func(r *http.Request) ([]moviesvc.NamedEntry, error) {
		return svc.ListDirectors(r.Context())
	})
}

// ListStars returns all known stars.
func ListStars(svc moviesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return namedEntryHandler(svc, logg, func(r *http.Request) ([]moviesvc.NamedEntry, error) {
		return svc.ListStars(r.Context())
	})
}

// ListCertifications returns all known certifications.
func ListCertifications(svc moviesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return namedEntryHandler(svc, logg, func(r *http.Request) ([]moviesvc.NamedEntry, error) {
		return svc.ListCertifications(r.Context())
	})
}

func namedEntryHandler(svc moviesvc.Service, logg *logger.Logger, fetch func(*http.Request) ([]moviesvc.NamedEntry, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "movies service unavailable"))
			return
		}
		entries, err := fetch(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// AdminCreateMovie adds a catalog entry. Caller must hold a catalog group.
func AdminCreateMovie(svc moviesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "movies service unavailable"))
			return
		}

		var body moviesvc.CreateMovieRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, detail)
	}
}

// AdminUpdateMovie applies a partial edit to a catalog entry.
func AdminUpdateMovie(svc moviesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "movies service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "movieId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movie id"))
			return
		}

		var body moviesvc.UpdateMovieRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Update(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// AdminDeleteMovie removes a catalog entry and cascades cart references.
func AdminDeleteMovie(svc moviesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "movies service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "movieId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movie id"))
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func parseMovieListQuery(r *http.Request) (*moviesvc.ListQuery, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
	if err != nil {
		return nil, err
	}

	query := moviesvc.ListQuery{
		Pagination: pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		},
		Filters: moviesvc.ListFilters{
			Genre: strings.TrimSpace(r.URL.Query().Get("genre")),
			Query: validators.SanitizeString(r.URL.Query().Get("q"), 200),
		},
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("year_min")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid year_min")
		}
		query.Filters.YearMin = &value
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("year_max")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid year_max")
		}
		query.Filters.YearMax = &value
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("price_min")); raw != "" {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price_min")
		}
		query.Filters.PriceMin = &value
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("price_max")); raw != "" {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price_max")
		}
		query.Filters.PriceMax = &value
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("available")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid available value")
		}
		query.Filters.Available = &value
	}

	return &query, nil
}
