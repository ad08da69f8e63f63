package controllers

import (
	"net/http"

	"github.com/AarushDarne/shelftrack-webapp/api/middleware"
	"github.com/AarushDarne/shelftrack-webapp/api/responses"
	"github.com/AarushDarne/shelftrack-webapp/api/validators"
	"github.com/AarushDarne/shelftrack-webapp/internal/circulation"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

func Dashboard(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branchID, err := validators.ParseQueryUUID(r, "branch_id", middleware.BranchIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stats, err := svc.Dashboard(r.Context(), branchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboardResponseFromStats(stats))
	}
}

// RecentActivity lists a branch's activity newest first.
func RecentActivity(svc circulation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branchID, err := validators.ParseQueryUUID(r, "branch_id", middleware.BranchIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultActivityLimit, 1, maxActivityLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.RecentActivity(r.Context(), branchID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, activityResponses(entries))
	}
}
