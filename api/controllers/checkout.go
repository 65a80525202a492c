package controllers

import (
	"net/http"

	"github.com/moviegate/moviegate-backend/api/responses"
	checkoutsvc "github.com/moviegate/moviegate-backend/internal/checkout"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
	"github.com/moviegate/moviegate-backend/pkg/logger"
)

// Checkout converts the caller's cart into a pending order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Checkout(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
