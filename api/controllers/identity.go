package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/moviegate/moviegate-backend/api/middleware"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
)

// currentUserID extracts the authenticated user from the request context.
func currentUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}

func currentGroup(r *http.Request) enums.UserGroup {
	return enums.UserGroup(middleware.GroupFromContext(r.Context()))
}
