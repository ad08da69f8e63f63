// Package loans keeps the open checkout records of every copy.
package loans

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
)

// Book indexes open loans by copy and by loan id. Closed loans leave memory;
// storage keeps them.
type Book struct {
	mu     sync.RWMutex
	byCopy map[uuid.UUID]models.CheckoutRecord
	byID   map[uuid.UUID]uuid.UUID
}

func NewBook() *Book {
	return &Book{
		byCopy: make(map[uuid.UUID]models.CheckoutRecord),
		byID:   make(map[uuid.UUID]uuid.UUID),
	}
}

// Open returns the open loan on a copy.
func (b *Book) Open(copyID uuid.UUID) (models.CheckoutRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.byCopy[copyID]
	return rec, ok
}

// Get returns an open loan by id.
func (b *Book) Get(loanID uuid.UUID) (models.CheckoutRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	copyID, ok := b.byID[loanID]
	if !ok {
		return models.CheckoutRecord{}, false
	}
	return b.byCopy[copyID], true
}

// Add opens a loan. A copy never has two open loans.
func (b *Book) Add(rec models.CheckoutRecord) error {
	if !rec.IsOpen() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "loan is already closed")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addLocked(rec)
}

func (b *Book) addLocked(rec models.CheckoutRecord) error {
	if existing, ok := b.byCopy[rec.CopyID]; ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("copy %s already on loan", rec.CopyID)).
			WithDetails(map[string]any{"copy_id": rec.CopyID.String(), "loan_id": existing.ID.String()})
	}
	b.byCopy[rec.CopyID] = rec
	b.byID[rec.ID] = rec.CopyID
	return nil
}

// Close stamps the loan returned and drops it from the book.
func (b *Book) Close(loanID uuid.UUID, at time.Time) (models.CheckoutRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	copyID, ok := b.byID[loanID]
	if !ok {
		return models.CheckoutRecord{}, pkgerrors.New(pkgerrors.CodeNotCheckedOut, fmt.Sprintf("loan %s is not open", loanID))
	}
	rec := b.byCopy[copyID]
	returned := at
	rec.ReturnedAt = &returned
	delete(b.byCopy, copyID)
	delete(b.byID, loanID)
	return rec, nil
}

// ListOpen lists open loans of a branch, earliest due first; uuid.Nil lists all.
func (b *Book) ListOpen(branchID uuid.UUID) []models.CheckoutRecord {
	b.mu.RLock()
	out := make([]models.CheckoutRecord, 0, len(b.byCopy))
	for _, rec := range b.byCopy {
		if branchID == uuid.Nil || rec.BranchID == branchID {
			out = append(out, rec)
		}
	}
	b.mu.RUnlock()
	sortByDue(out)
	return out
}

// ListOverdue lists open loans of a branch whose due date has passed at now.
func (b *Book) ListOverdue(branchID uuid.UUID, now time.Time) []models.CheckoutRecord {
	open := b.ListOpen(branchID)
	out := open[:0]
	for _, rec := range open {
		if now.After(rec.DueAt) {
			out = append(out, rec)
		}
	}
	return out
}

// Len is the number of open loans.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byCopy)
}

// Load replaces the book with persisted open loans.
func (b *Book) Load(records []models.CheckoutRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byCopy = make(map[uuid.UUID]models.CheckoutRecord, len(records))
	b.byID = make(map[uuid.UUID]uuid.UUID, len(records))
	for _, rec := range records {
		if !rec.IsOpen() {
			continue
		}
		if err := b.addLocked(rec); err != nil {
			return fmt.Errorf("loading loan %s: %w", rec.ID, err)
		}
	}
	return nil
}

func sortByDue(records []models.CheckoutRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].DueAt.Equal(records[j].DueAt) {
			return records[i].ID.String() < records[j].ID.String()
		}
		return records[i].DueAt.Before(records[j].DueAt)
	})
}
