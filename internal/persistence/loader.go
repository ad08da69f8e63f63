package persistence

import (
	"context"
	"fmt"

	"github.com/AarushDarne/shelftrack-webapp/internal/circulation"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
)

// Directory is the engine state owned by the identity registry.
type Directory struct {
	Branches []models.Branch
	Users    []models.User
}

// Loader reads the persisted engine state.
type Loader struct {
	repos        Repositories
	activityTail int
}

// NewLoader builds a loader; activityTail bounds how many recent activity
// rows are read back into memory.
func NewLoader(repos Repositories, activityTail int) *Loader {
	return &Loader{repos: repos, activityTail: activityTail}
}

func (l *Loader) LoadDirectory(ctx context.Context) (Directory, error) {
	branches, err := l.repos.Identity.ListBranches(ctx)
	if err != nil {
		return Directory{}, fmt.Errorf("list branches: %w", err)
	}
	users, err := l.repos.Identity.ListUsers(ctx)
	if err != nil {
		return Directory{}, fmt.Errorf("list users: %w", err)
	}
	return Directory{Branches: branches, Users: users}, nil
}

func (l *Loader) LoadSnapshot(ctx context.Context) (circulation.Snapshot, error) {
	titles, err := l.repos.Inventory.ListTitles(ctx)
	if err != nil {
		return circulation.Snapshot{}, fmt.Errorf("list titles: %w", err)
	}
	copies, err := l.repos.Inventory.ListCopies(ctx)
	if err != nil {
		return circulation.Snapshot{}, fmt.Errorf("list copies: %w", err)
	}
	open, err := l.repos.Loans.ListOpen(ctx)
	if err != nil {
		return circulation.Snapshot{}, fmt.Errorf("list open loans: %w", err)
	}
	entries, err := l.repos.Reservations.List(ctx)
	if err != nil {
		return circulation.Snapshot{}, fmt.Errorf("list reservations: %w", err)
	}
	var recent []models.ActivityEntry
	if l.activityTail > 0 {
		if recent, err = l.repos.Activity.ListLatest(ctx, l.activityTail); err != nil {
			return circulation.Snapshot{}, fmt.Errorf("list activity: %w", err)
		}
	}
	return circulation.Snapshot{
		Titles:       titles,
		Copies:       copies,
		Loans:        open,
		Reservations: entries,
		Activity:     recent,
	}, nil
}
