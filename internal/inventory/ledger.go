// Package inventory is the system of record for titles and the state of
// every physical copy.
package inventory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
)

// Transition is the next lifecycle state of a copy.
type Transition struct {
	Status   enums.CopyStatus
	HolderID *uuid.UUID
	LoanID   *uuid.UUID
}

// StatusCounts tallies copies by lifecycle state.
type StatusCounts struct {
	Total       int `json:"total"`
	Available   int `json:"available"`
	Reserved    int `json:"reserved"`
	CheckedOut  int `json:"checked_out"`
	Maintenance int `json:"maintenance"`
}

func (c *StatusCounts) add(status enums.CopyStatus) {
	c.Total++
	switch status {
	case enums.CopyStatusAvailable:
		c.Available++
	case enums.CopyStatusReserved:
		c.Reserved++
	case enums.CopyStatusCheckedOut:
		c.CheckedOut++
	case enums.CopyStatusMaintenance:
		c.Maintenance++
	}
}

// CategoryCount is the number of titles catalogued under a category.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Ledger holds titles and copies in memory. Every copy mutation goes through
// ApplyTransition, which compares the caller's view of the copy against the
// committed one before writing.
type Ledger struct {
	mu      sync.RWMutex
	titles  map[uuid.UUID]models.Title
	copies  map[uuid.UUID]models.Copy
	byTitle map[uuid.UUID][]uuid.UUID
}

func NewLedger() *Ledger {
	return &Ledger{
		titles:  make(map[uuid.UUID]models.Title),
		copies:  make(map[uuid.UUID]models.Copy),
		byTitle: make(map[uuid.UUID][]uuid.UUID),
	}
}

// AddTitle catalogues a new title.
func (l *Ledger) AddTitle(title models.Title) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.titles[title.ID]; exists {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("title %s already exists", title.ID))
	}
	l.titles[title.ID] = title
	return nil
}

// UpdateTitle replaces the catalog fields of an existing title.
func (l *Ledger) UpdateTitle(title models.Title) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.titles[title.ID]; !exists {
		return titleNotFound(title.ID)
	}
	l.titles[title.ID] = title
	return nil
}

// GetTitle returns the title with the given id.
func (l *Ledger) GetTitle(titleID uuid.UUID) (models.Title, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	title, ok := l.titles[titleID]
	if !ok {
		return models.Title{}, titleNotFound(titleID)
	}
	return title, nil
}

// Titles lists titles of a branch ordered by title; uuid.Nil lists all.
func (l *Ledger) Titles(branchID uuid.UUID) []models.Title {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Title, 0, len(l.titles))
	for _, t := range l.titles {
		if branchID == uuid.Nil || t.BranchID == branchID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title == out[j].Title {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].Title < out[j].Title
	})
	return out
}

// AddCopy registers a new copy of an existing title at the end of its shelf order.
func (l *Ledger) AddCopy(c models.Copy) (models.Copy, error) {
	if err := validateState(c.Status, c.HolderID, c.LoanID); err != nil {
		return models.Copy{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.titles[c.TitleID]; !ok {
		return models.Copy{}, titleNotFound(c.TitleID)
	}
	if _, exists := l.copies[c.ID]; exists {
		return models.Copy{}, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("copy %s already exists", c.ID))
	}
	c.Shelf = len(l.byTitle[c.TitleID]) + 1
	l.copies[c.ID] = c
	l.byTitle[c.TitleID] = append(l.byTitle[c.TitleID], c.ID)
	return c, nil
}

// GetCopy returns the last committed state of a copy.
func (l *Ledger) GetCopy(copyID uuid.UUID) (models.Copy, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.copies[copyID]
	if !ok {
		return models.Copy{}, copyNotFound(copyID)
	}
	return c, nil
}

// CopiesByTitle returns the copies of a title in shelf order.
func (l *Ledger) CopiesByTitle(titleID uuid.UUID) ([]models.Copy, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.titles[titleID]; !ok {
		return nil, titleNotFound(titleID)
	}
	ids := l.byTitle[titleID]
	out := make([]models.Copy, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.copies[id])
	}
	return out, nil
}

// ApplyTransition moves a copy to next if its committed status and version
// still match expected. A mismatch means another writer got there first and
// yields CONFLICT without touching the copy.
func (l *Ledger) ApplyTransition(expected models.Copy, next Transition, at time.Time) (models.Copy, error) {
	if err := validateState(next.Status, next.HolderID, next.LoanID); err != nil {
		return models.Copy{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.copies[expected.ID]
	if !ok {
		return models.Copy{}, copyNotFound(expected.ID)
	}
	if current.Version != expected.Version || current.Status != expected.Status {
		return models.Copy{}, pkgerrors.New(pkgerrors.CodeConflict, "copy changed concurrently").
			WithDetails(map[string]any{
				"copy_id":          current.ID.String(),
				"expected_status":  expected.Status.String(),
				"current_status":   current.Status.String(),
				"expected_version": expected.Version,
				"current_version":  current.Version,
			})
	}

	current.Status = next.Status
	current.HolderID = cloneID(next.HolderID)
	current.LoanID = cloneID(next.LoanID)
	current.Version++
	current.UpdatedAt = at
	l.copies[current.ID] = current
	return current, nil
}

// Revert puts previous back when the copy is still exactly as applied left
// it. It undoes a transition whose surrounding operation failed.
func (l *Ledger) Revert(applied, previous models.Copy) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.copies[applied.ID]
	if !ok {
		return copyNotFound(applied.ID)
	}
	if current.Version != applied.Version || previous.ID != applied.ID {
		return pkgerrors.New(pkgerrors.CodeConflict, "copy changed before revert").
			WithDetails(map[string]any{"copy_id": applied.ID.String(), "current_version": current.Version})
	}
	l.copies[previous.ID] = previous
	return nil
}

// Counts tallies the copies of one title by state.
func (l *Ledger) Counts(titleID uuid.UUID) (StatusCounts, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.titles[titleID]; !ok {
		return StatusCounts{}, titleNotFound(titleID)
	}
	var counts StatusCounts
	for _, id := range l.byTitle[titleID] {
		counts.add(l.copies[id].Status)
	}
	return counts, nil
}

// Summary tallies every copy of a branch by state; uuid.Nil covers all branches.
func (l *Ledger) Summary(branchID uuid.UUID) StatusCounts {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var counts StatusCounts
	for _, c := range l.copies {
		if branchID == uuid.Nil || c.BranchID == branchID {
			counts.add(c.Status)
		}
	}
	return counts
}

// TopCategories returns the most catalogued categories, largest first.
func (l *Ledger) TopCategories(branchID uuid.UUID, limit int) []CategoryCount {
	l.mu.RLock()
	tally := make(map[string]int)
	for _, t := range l.titles {
		if t.Category == "" || (branchID != uuid.Nil && t.BranchID != branchID) {
			continue
		}
		tally[t.Category]++
	}
	l.mu.RUnlock()

	out := make([]CategoryCount, 0, len(tally))
	for name, count := range tally {
		out = append(out, CategoryCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Name < out[j].Name
		}
		return out[i].Count > out[j].Count
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Load replaces the ledger contents with persisted rows. Copies keep the
// order they are given in within each title.
func (l *Ledger) Load(titles []models.Title, copies []models.Copy) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.titles = make(map[uuid.UUID]models.Title, len(titles))
	l.copies = make(map[uuid.UUID]models.Copy, len(copies))
	l.byTitle = make(map[uuid.UUID][]uuid.UUID, len(titles))
	for _, t := range titles {
		l.titles[t.ID] = t
	}
	for _, c := range copies {
		if _, ok := l.titles[c.TitleID]; !ok {
			return fmt.Errorf("copy %s references unknown title %s", c.ID, c.TitleID)
		}
		if err := validateState(c.Status, c.HolderID, c.LoanID); err != nil {
			return fmt.Errorf("copy %s: %w", c.ID, err)
		}
		l.copies[c.ID] = c
		l.byTitle[c.TitleID] = append(l.byTitle[c.TitleID], c.ID)
	}
	return nil
}

// validateState enforces that holder and loan pointers match the status.
func validateState(status enums.CopyStatus, holder, loan *uuid.UUID) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("invalid copy status %q", status))
	}
	if (status == enums.CopyStatusReserved) != (holder != nil) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "holder must be set exactly when reserved")
	}
	if (status == enums.CopyStatusCheckedOut) != (loan != nil) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "loan must be set exactly when checked out")
	}
	return nil
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func titleNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("title %s not found", id))
}

func copyNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("copy %s not found", id))
}
