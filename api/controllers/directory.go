package controllers

import (
	"net/http"

	"github.com/AarushDarne/shelftrack-webapp/api/middleware"
	"github.com/AarushDarne/shelftrack-webapp/api/responses"
	"github.com/AarushDarne/shelftrack-webapp/api/validators"
	"github.com/AarushDarne/shelftrack-webapp/internal/access"
	"github.com/AarushDarne/shelftrack-webapp/internal/identity"
	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
)

type meResponse struct {
	User    userResponse   `json:"user"`
	Actions []enums.Action `json:"actions"`
}

// Me returns the actor and the actions their role allows, for menu gating.
func Me(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Resolve(r.Context(), actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actions := access.ActionsFor(user.Role)
		if actions == nil {
			actions = []enums.Action{}
		}
		responses.WriteSuccess(w, meResponse{User: userResponseFromModel(user), Actions: actions})
	}
}

func ListUsers(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		branchID, err := validators.ParseQueryUUID(r, "branch_id", middleware.BranchIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		users, err := svc.ListUsers(r.Context(), actorID, branchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, mapSlice(users, userResponseFromModel))
	}
}

func RegisterUser(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input identity.RegisterUserInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.RegisterUser(r.Context(), actorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, userResponseFromModel(user))
	}
}

func ListBranches(svc identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteList(w, mapSlice(svc.ListBranches(r.Context()), branchResponseFromModel))
	}
}

func AddBranch(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input identity.AddBranchInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		branch, err := svc.AddBranch(r.Context(), actorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, branchResponseFromModel(branch))
	}
}
