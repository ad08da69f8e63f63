package circulation

import (
	"sync"

	"github.com/google/uuid"
)

// titleLocks hands out one mutex per title. Entries are reference counted
// and dropped once no goroutine holds or waits on them.
type titleLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*titleLock
}

type titleLock struct {
	mu   sync.Mutex
	refs int
}

func newTitleLocks() *titleLocks {
	return &titleLocks{entries: make(map[uuid.UUID]*titleLock)}
}

// lock blocks until the caller owns titleID's critical section and returns
// the matching unlock.
func (l *titleLocks) lock(titleID uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.entries[titleID]
	if !ok {
		entry = &titleLock{}
		l.entries[titleID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, titleID)
		}
		l.mu.Unlock()
	}
}

func (l *titleLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
