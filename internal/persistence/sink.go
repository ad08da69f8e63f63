// Package persistence writes journaled engine changes to the database and
// reads them back at startup.
package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/AarushDarne/shelftrack-webapp/internal/activity"
	"github.com/AarushDarne/shelftrack-webapp/internal/identity"
	"github.com/AarushDarne/shelftrack-webapp/internal/inventory"
	"github.com/AarushDarne/shelftrack-webapp/internal/journal"
	"github.com/AarushDarne/shelftrack-webapp/internal/loans"
	"github.com/AarushDarne/shelftrack-webapp/internal/reservations"
)

// TxRunner runs fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Repositories groups the per-table repositories the sink writes through.
type Repositories struct {
	Identity     identity.Repository
	Inventory    inventory.Repository
	Loans        loans.Repository
	Reservations reservations.Repository
	Activity     activity.Repository
}

// NewRepositories binds every repository to db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Identity:     identity.NewRepository(db),
		Inventory:    inventory.NewRepository(db),
		Loans:        loans.NewRepository(db),
		Reservations: reservations.NewRepository(db),
		Activity:     activity.NewRepository(db),
	}
}

func (r Repositories) withTx(tx *gorm.DB) Repositories {
	return Repositories{
		Identity:     r.Identity.WithTx(tx),
		Inventory:    r.Inventory.WithTx(tx),
		Loans:        r.Loans.WithTx(tx),
		Reservations: r.Reservations.WithTx(tx),
		Activity:     r.Activity.WithTx(tx),
	}
}

// GormSink persists journal batches. A batch commits or rolls back as a
// whole; changesets are applied in the order they were recorded.
type GormSink struct {
	tx    TxRunner
	repos Repositories
}

func NewGormSink(tx TxRunner, repos Repositories) (*GormSink, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &GormSink{tx: tx, repos: repos}, nil
}

var _ journal.Sink = (*GormSink)(nil)

func (s *GormSink) Persist(ctx context.Context, batch []journal.Changeset) error {
	if len(batch) == 0 {
		return nil
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repos := s.repos.withTx(tx)
		for i, cs := range batch {
			if err := apply(ctx, repos, cs); err != nil {
				return fmt.Errorf("changeset %d of %d: %w", i+1, len(batch), err)
			}
		}
		return nil
	})
}

// apply writes one changeset parents first so foreign keys always resolve.
func apply(ctx context.Context, repos Repositories, cs journal.Changeset) error {
	if err := repos.Identity.UpsertBranches(ctx, cs.Branches); err != nil {
		return fmt.Errorf("branches: %w", err)
	}
	if err := repos.Identity.UpsertUsers(ctx, cs.Users); err != nil {
		return fmt.Errorf("users: %w", err)
	}
	if err := repos.Inventory.UpsertTitles(ctx, cs.Titles); err != nil {
		return fmt.Errorf("titles: %w", err)
	}
	if err := repos.Inventory.UpsertCopies(ctx, cs.Copies); err != nil {
		return fmt.Errorf("copies: %w", err)
	}
	if err := repos.Loans.Upsert(ctx, cs.Loans); err != nil {
		return fmt.Errorf("loans: %w", err)
	}
	if err := repos.Reservations.Delete(ctx, cs.DroppedReservations); err != nil {
		return fmt.Errorf("dropped reservations: %w", err)
	}
	if err := repos.Reservations.Upsert(ctx, cs.Reservations); err != nil {
		return fmt.Errorf("reservations: %w", err)
	}
	if err := repos.Activity.Insert(ctx, cs.Activity); err != nil {
		return fmt.Errorf("activity: %w", err)
	}
	return nil
}
