package middleware

import (
	"net/http"

	"github.com/AarushDarne/shelftrack-webapp/api/responses"
	"github.com/AarushDarne/shelftrack-webapp/internal/access"
	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
)

// RequireAction rejects actors whose role is not granted action.
func RequireAction(action enums.Action, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := access.Authorize(RoleFromContext(r.Context()), action); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
