package controllers

import (
	"net/http"

	"github.com/AarushDarne/shelftrack-webapp/api/middleware"
	"github.com/AarushDarne/shelftrack-webapp/api/responses"
	"github.com/AarushDarne/shelftrack-webapp/api/validators"
	"github.com/AarushDarne/shelftrack-webapp/internal/access"
	"github.com/AarushDarne/shelftrack-webapp/internal/circulation"
	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
)

// ListTitles lists titles with copy counts. branch_id defaults to the
// actor's branch; "all" lists every branch.
func ListTitles(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branchID, err := validators.ParseQueryUUID(r, "branch_id", middleware.BranchIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, mapSlice(svc.ListTitles(r.Context(), branchID), titleResponseFromView))
	}
}

func GetTitle(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		titleID, err := validators.URLParamUUID(r, "titleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.GetTitle(r.Context(), titleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, titleResponseFromView(view))
	}
}

func CreateTitle(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input circulation.AddTitleInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.AddTitle(r.Context(), actorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, titleResponseFromView(view))
	}
}

func UpdateTitle(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
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
		var input circulation.UpdateTitleInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		title, err := svc.UpdateTitle(r.Context(), actorID, titleID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, titleResponseFromModel(title))
	}
}

func ListCopies(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		titleID, err := validators.URLParamUUID(r, "titleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		copies, err := svc.ListCopies(r.Context(), titleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, mapSlice(copies, copyResponseFromModel))
	}
}

func AddCopy(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
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
		var input circulation.AddCopyInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.AddCopy(r.Context(), actorID, titleID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, copyResponseFromModel(created))
	}
}

// ListReservations shows holds first, then the waiting queue in order.
func ListReservations(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		titleID, err := validators.URLParamUUID(r, "titleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.ListReservations(r.Context(), titleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, reservationResponses(entries))
	}
}

func CopyOverdue(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		copyID, err := validators.URLParamUUID(r, "copyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assessment, err := svc.GetOverdue(r.Context(), copyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overdueResponseFromAssessment(assessment))
	}
}

func ListOverdue(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branchID, err := validators.ParseQueryUUID(r, "branch_id", middleware.BranchIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, mapSlice(svc.ListOverdue(r.Context(), branchID), overdueResponseFromAssessment))
	}
}

// GetLoan returns an open loan with its current fine.
func GetLoan(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loanID, err := validators.URLParamUUID(r, "loanId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assessment, err := svc.GetLoan(r.Context(), loanID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overdueResponseFromAssessment(assessment))
	}
}

// BorrowerLoans shows a user's open loans and reservation count. Members
// may only look at themselves.
func BorrowerLoans(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.URLParamUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if userID != middleware.ActorIDFromContext(r.Context()) {
			if err := access.Authorize(middleware.RoleFromContext(r.Context()), enums.ActionViewUsers); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		view, err := svc.Borrower(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, borrowerResponseFromView(view))
	}
}
