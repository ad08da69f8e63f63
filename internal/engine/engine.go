// Package engine assembles the in-memory circulation components and the
// services built on them.
package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AarushDarne/shelftrack-webapp/internal/activity"
	"github.com/AarushDarne/shelftrack-webapp/internal/circulation"
	"github.com/AarushDarne/shelftrack-webapp/internal/identity"
	"github.com/AarushDarne/shelftrack-webapp/internal/inventory"
	"github.com/AarushDarne/shelftrack-webapp/internal/journal"
	"github.com/AarushDarne/shelftrack-webapp/internal/loans"
	"github.com/AarushDarne/shelftrack-webapp/internal/notify"
	"github.com/AarushDarne/shelftrack-webapp/internal/reservations"
	"github.com/AarushDarne/shelftrack-webapp/pkg/config"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
	"github.com/AarushDarne/shelftrack-webapp/pkg/metrics"
)

type Params struct {
	Logger   *logger.Logger
	Metrics  *metrics.CirculationMetrics
	Journal  journal.Recorder
	Notifier notify.Notifier
	History  activity.HistoryReader
	Clock    func() time.Time

	LoanPeriod             time.Duration
	FinePerDay             decimal.Decimal
	MaxReservationsPerUser int
	ActivityTailSize       int
}

// ParamsFromConfig copies the lending policy out of cfg.
func ParamsFromConfig(cfg config.CirculationConfig) Params {
	return Params{
		LoanPeriod:             cfg.LoanPeriod,
		FinePerDay:             cfg.FineRate(),
		MaxReservationsPerUser: cfg.MaxReservationsPerUser,
		ActivityTailSize:       cfg.ActivityTailSize,
	}
}

type Engine struct {
	Directory   *identity.Registry
	Identity    identity.Service
	Circulation circulation.Service
	Loans       *loans.Book
}

func New(p Params) (*Engine, error) {
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	directory := identity.NewRegistry()
	log := activity.NewLog(p.ActivityTailSize, p.History)
	book := loans.NewBook()

	ids, err := identity.NewService(identity.ServiceParams{
		Registry: directory,
		Activity: log,
		Journal:  p.Journal,
		Logger:   p.Logger,
		Clock:    p.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("identity service: %w", err)
	}
	circ, err := circulation.NewService(circulation.ServiceParams{
		Directory:    directory,
		Ledger:       inventory.NewLedger(),
		Reservations: reservations.NewRegistry(p.MaxReservationsPerUser),
		Loans:        book,
		Activity:     log,
		Journal:      p.Journal,
		Notifier:     p.Notifier,
		Metrics:      p.Metrics,
		Logger:       p.Logger,
		Clock:        p.Clock,
		LoanPeriod:   p.LoanPeriod,
		FinePerDay:   p.FinePerDay,
	})
	if err != nil {
		return nil, fmt.Errorf("circulation service: %w", err)
	}
	return &Engine{
		Directory:   directory,
		Identity:    ids,
		Circulation: circ,
		Loans:       book,
	}, nil
}

// Hydrate loads the directory first so snapshot rows can reference users
// and branches.
func (e *Engine) Hydrate(branches []models.Branch, users []models.User, snapshot circulation.Snapshot) error {
	e.Directory.Load(branches, users)
	if err := e.Circulation.Hydrate(snapshot); err != nil {
		return fmt.Errorf("hydrate circulation: %w", err)
	}
	return nil
}
