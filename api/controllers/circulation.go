package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/api/middleware"
	"github.com/AarushDarne/shelftrack-webapp/api/responses"
	"github.com/AarushDarne/shelftrack-webapp/api/validators"
	"github.com/AarushDarne/shelftrack-webapp/internal/circulation"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
)

type checkoutRequest struct {
	BorrowerID string `json:"borrower_id" validate:"omitempty,uuid"`
}

type reserveRequest struct {
	UserID string `json:"user_id" validate:"omitempty,uuid"`
}

// subjectOr resolves an optional body id, defaulting to the actor.
func subjectOr(raw, field string, actorID uuid.UUID) (uuid.UUID, error) {
	if raw == "" {
		return actorID, nil
	}
	return validators.ParseUUID(raw, field)
}

func actorFrom(r *http.Request) (uuid.UUID, error) {
	actorID := middleware.ActorIDFromContext(r.Context())
	if actorID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing")
	}
	return actorID, nil
}

// CheckoutCopy lends a copy to the borrower in the body, or to the actor.
func CheckoutCopy(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		copyID, err := validators.URLParamUUID(r, "copyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		borrowerID, err := subjectOr(payload.BorrowerID, "borrower_id", actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		loan, err := svc.Checkout(r.Context(), copyID, borrowerID, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, loanResponseFromModel(loan))
	}
}

func ReturnCopy(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		copyID, err := validators.URLParamUUID(r, "copyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		loan, err := svc.Return(r.Context(), copyID, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, loanResponseFromModel(loan))
	}
}

// ReserveTitle queues the user in the body, or the actor, for a title.
// The response says whether a copy was held immediately.
func ReserveTitle(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		titleID, err := validators.URLParamUUID(r, "titleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload reserveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := subjectOr(payload.UserID, "user_id", actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Reserve(r.Context(), titleID, userID, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := reserveResponse{
			Reservation: reservationResponses([]models.Reservation{result.Entry})[0],
			Held:        result.Held(),
		}
		if !result.Held() {
			if queue, err := svc.ListReservations(r.Context(), titleID); err == nil {
				for _, entry := range reservationResponses(queue) {
					if entry.ID == result.Entry.ID {
						out.Reservation.Position = entry.Position
					}
				}
			}
		}
		if result.Held() {
			c := copyResponseFromModel(*result.Copy)
			out.Copy = &c
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

func CancelReservation(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		titleID, err := validators.URLParamUUID(r, "titleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.URLParamUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.CancelReservation(r.Context(), titleID, userID, actorID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "canceled"})
	}
}

func MarkMaintenance(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
	return copyTransition(logg, svc.MarkMaintenance)
}

func ClearMaintenance(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
	return copyTransition(logg, svc.ClearMaintenance)
}

type copyTransitionFunc func(ctx context.Context, copyID, actorID uuid.UUID) (models.Copy, error)

func copyTransition(logg *logger.Logger, apply copyTransitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		copyID, err := validators.URLParamUUID(r, "copyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := apply(r.Context(), copyID, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, copyResponseFromModel(updated))
	}
}
