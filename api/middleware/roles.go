package middleware

import (
	"net/http"

	"github.com/moviegate/moviegate-backend/api/responses"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
	"github.com/moviegate/moviegate-backend/pkg/logger"
)

// RequireGroups rejects requests whose authenticated user group is not in
// the allowed set.
func RequireGroups(logg *logger.Logger, allowed ...enums.UserGroup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			group := enums.UserGroup(GroupFromContext(r.Context()))
			for _, candidate := range allowed {
				if candidate == group {
					next.ServeHTTP(w, r)
					return
				}
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient privileges"))
		})
	}
}
