package journal

import (
	"sync"

	"github.com/AarushDarne/shelftrack-webapp/pkg/metrics"
)

// Queue is an unbounded FIFO of pending changesets.
type Queue struct {
	mu      sync.Mutex
	items   []Changeset
	signal  chan struct{}
	metrics *metrics.CirculationMetrics
}

// NewQueue builds an empty queue. metrics may be nil.
func NewQueue(m *metrics.CirculationMetrics) *Queue {
	return &Queue{
		signal:  make(chan struct{}, 1),
		metrics: m,
	}
}

// Record appends cs and wakes the writer. Empty changesets are ignored.
func (q *Queue) Record(cs Changeset) {
	if cs.IsEmpty() {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, cs)
	depth := len(q.items)
	q.mu.Unlock()

	q.metrics.SetJournalPending(depth)
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Len returns the number of pending changesets.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Ready fires after at least one Record since the last receive.
func (q *Queue) Ready() <-chan struct{} {
	return q.signal
}

func (q *Queue) take(max int) []Changeset {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	n := len(q.items)
	if max > 0 && n > max {
		n = max
	}
	batch := make([]Changeset, n)
	copy(batch, q.items[:n])
	q.items = q.items[n:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return batch
}

// putBack restores a failed batch ahead of anything recorded since.
func (q *Queue) putBack(batch []Changeset) {
	if len(batch) == 0 {
		return
	}
	q.mu.Lock()
	restored := make([]Changeset, 0, len(batch)+len(q.items))
	restored = append(restored, batch...)
	restored = append(restored, q.items...)
	q.items = restored
	depth := len(q.items)
	q.mu.Unlock()
	q.metrics.SetJournalPending(depth)
}
