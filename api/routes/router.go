package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AarushDarne/shelftrack-webapp/api/controllers"
	"github.com/AarushDarne/shelftrack-webapp/api/middleware"
	"github.com/AarushDarne/shelftrack-webapp/internal/circulation"
	"github.com/AarushDarne/shelftrack-webapp/internal/identity"
	"github.com/AarushDarne/shelftrack-webapp/pkg/config"
	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
	"github.com/AarushDarne/shelftrack-webapp/pkg/metrics"
	"github.com/AarushDarne/shelftrack-webapp/pkg/redis"
)

// Params carry everything the router mounts. Idempotency, Gatherer,
// HTTPMetrics and the readiness pingers are optional.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	Identity    identity.Service
	Circulation circulation.Service
	Idempotency redis.IdempotencyStore
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
	Readiness   map[string]controllers.Pinger
}

func NewRouter(p Params) http.Handler {
	logg := p.Logger
	circ := p.Circulation
	ids := p.Identity

	r := chi.NewRouter()
	if p.Config != nil && len(p.Config.App.CORSOrigins) > 0 {
		r.Use(middleware.CORS(p.Config.App.CORSOrigins))
	}
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, logg, p.Readiness))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	idem := middleware.NewIdempotency(p.Idempotency, logg)
	circulationWrite := idem.Guard(middleware.CirculationWrites)
	catalogWrite := idem.Guard(middleware.CatalogWrites)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(ids, logg))

		r.Get("/me", controllers.Me(ids, logg))

		r.Route("/copies/{copyId}", func(r chi.Router) {
			r.With(middleware.RequireAction(enums.ActionCheckout, logg), circulationWrite).Post("/checkout", controllers.CheckoutCopy(circ, logg))
			r.With(middleware.RequireAction(enums.ActionReturn, logg), circulationWrite).Post("/return", controllers.ReturnCopy(circ, logg))
			r.With(middleware.RequireAction(enums.ActionMarkMaintenance, logg), catalogWrite).Post("/maintenance", controllers.MarkMaintenance(circ, logg))
			r.With(middleware.RequireAction(enums.ActionClearMaintenance, logg), catalogWrite).Delete("/maintenance", controllers.ClearMaintenance(circ, logg))
			r.Get("/overdue", controllers.CopyOverdue(circ, logg))
		})

		r.Route("/titles", func(r chi.Router) {
			r.Get("/", controllers.ListTitles(circ, logg))
			r.With(middleware.RequireAction(enums.ActionEditTitle, logg), catalogWrite).Post("/", controllers.CreateTitle(circ, logg))
			r.Route("/{titleId}", func(r chi.Router) {
				r.Get("/", controllers.GetTitle(circ, logg))
				r.With(middleware.RequireAction(enums.ActionEditTitle, logg)).Patch("/", controllers.UpdateTitle(circ, logg))
				r.Get("/copies", controllers.ListCopies(circ, logg))
				r.With(middleware.RequireAction(enums.ActionManageCopies, logg), catalogWrite).Post("/copies", controllers.AddCopy(circ, logg))
				r.Get("/reservations", controllers.ListReservations(circ, logg))
				r.With(middleware.RequireAction(enums.ActionReserve, logg), circulationWrite).Post("/reservations", controllers.ReserveTitle(circ, logg))
				r.With(middleware.RequireAction(enums.ActionCancelReservation, logg), catalogWrite).Delete("/reservations/{userId}", controllers.CancelReservation(circ, logg))
			})
		})

		r.Get("/overdue", controllers.ListOverdue(circ, logg))
		r.With(middleware.RequireAction(enums.ActionViewDashboard, logg)).Get("/dashboard", controllers.Dashboard(circ, logg))
		r.With(middleware.RequireAction(enums.ActionViewActivity, logg)).Get("/activity", controllers.RecentActivity(circ, logg))

		r.Get("/loans/{loanId}", controllers.GetLoan(circ, logg))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.ListUsers(ids, logg))
			r.With(catalogWrite).Post("/", controllers.RegisterUser(ids, logg))
			r.Get("/{userId}/loans", controllers.BorrowerLoans(circ, logg))
		})
		r.Route("/branches", func(r chi.Router) {
			r.Get("/", controllers.ListBranches(ids))
			r.With(catalogWrite).Post("/", controllers.AddBranch(ids, logg))
		})
	})

	return r
}
