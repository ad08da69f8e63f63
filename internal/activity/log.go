package activity

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
)

const defaultTailSize = 500

// HistoryReader serves entries older than the in-memory tail.
type HistoryReader interface {
	ListBefore(ctx context.Context, branchID uuid.UUID, before time.Time, limit int) ([]models.ActivityEntry, error)
}

// Log keeps a bounded, timestamp-ordered tail of activity per branch.
// Entries are never edited or removed; eviction from the tail only moves
// them out of memory.
type Log struct {
	mu        sync.RWMutex
	tailSize  int
	byBranch  map[uuid.UUID][]models.ActivityEntry
	truncated map[uuid.UUID]bool
	history   HistoryReader
}

// NewLog builds a log with the given per-branch tail size. history may be nil.
func NewLog(tailSize int, history HistoryReader) *Log {
	if tailSize <= 0 {
		tailSize = defaultTailSize
	}
	return &Log{
		tailSize:  tailSize,
		byBranch:  make(map[uuid.UUID][]models.ActivityEntry),
		truncated: make(map[uuid.UUID]bool),
		history:   history,
	}
}

// Append adds entry to its branch tail, keeping timestamp order.
func (l *Log) Append(entry models.ActivityEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.insertLocked(entry)
}

func (l *Log) insertLocked(entry models.ActivityEntry) {
	tail := l.byBranch[entry.BranchID]
	i := len(tail)
	for i > 0 && tail[i-1].OccurredAt.After(entry.OccurredAt) {
		i--
	}
	tail = append(tail, models.ActivityEntry{})
	copy(tail[i+1:], tail[i:])
	tail[i] = entry
	if len(tail) > l.tailSize {
		tail = append([]models.ActivityEntry(nil), tail[len(tail)-l.tailSize:]...)
		l.truncated[entry.BranchID] = true
	}
	l.byBranch[entry.BranchID] = tail
}

// Load seeds the tail from storage. Storage may hold older rows, so loaded
// branches fall back to history when the tail runs short.
func (l *Log) Load(entries []models.ActivityEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, entry := range entries {
		l.insertLocked(entry)
		l.truncated[entry.BranchID] = true
	}
}

// Recent returns up to limit entries from memory, most recent first.
// uuid.Nil selects every branch.
func (l *Log) Recent(branchID uuid.UUID, limit int) []models.ActivityEntry {
	entries, _ := l.recent(branchID, limit)
	return entries
}

func (l *Log) recent(branchID uuid.UUID, limit int) ([]models.ActivityEntry, bool) {
	if limit <= 0 {
		return nil, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	var (
		pool      []models.ActivityEntry
		truncated bool
	)
	if branchID == uuid.Nil {
		for id, tail := range l.byBranch {
			pool = append(pool, tail...)
			truncated = truncated || l.truncated[id]
		}
		sort.SliceStable(pool, func(i, j int) bool {
			return pool[i].OccurredAt.Before(pool[j].OccurredAt)
		})
	} else {
		pool = l.byBranch[branchID]
		truncated = l.truncated[branchID]
	}

	n := limit
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]models.ActivityEntry, 0, n)
	for i := len(pool) - 1; i >= len(pool)-n; i-- {
		out = append(out, pool[i])
	}
	return out, truncated
}

// QueryRecent returns up to limit entries, most recent first, reading
// storage for anything older than the in-memory tail.
func (l *Log) QueryRecent(ctx context.Context, branchID uuid.UUID, limit int) ([]models.ActivityEntry, error) {
	entries, truncated := l.recent(branchID, limit)
	if len(entries) >= limit || !truncated || l.history == nil {
		return entries, nil
	}

	before := time.Now().UTC()
	if len(entries) > 0 {
		before = entries[len(entries)-1].OccurredAt
	}
	older, err := l.history.ListBefore(ctx, branchID, before, limit-len(entries))
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]struct{}, len(entries))
	for _, e := range entries {
		seen[e.ID] = struct{}{}
	}
	for _, e := range older {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
