package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/api/responses"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
)

const ActorHeader = "X-Actor-Id"

// ActorResolver looks up the user behind a request.
type ActorResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (models.User, error)
}

// Actor resolves the X-Actor-Id header against the user registry and seeds
// the request context with the actor's id, role and branch.
func Actor(resolver ActorResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(ActorHeader))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor"))
				return
			}
			actorID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor id"))
				return
			}
			user, err := resolver.Resolve(r.Context(), actorID)
			if err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
					err = pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "unknown actor")
				}
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithActor(r.Context(), user.ID, user.Role, user.BranchID)
			if logg != nil {
				ctx = logg.WithActor(ctx, logger.Actor{
					UserID:   user.ID.String(),
					Role:     user.Role.String(),
					BranchID: user.BranchID.String(),
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
