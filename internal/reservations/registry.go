// Package reservations tracks waiting and holding claims on titles.
package reservations

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
)

// Registry owns every title's waiting queue and the holds already assigned a
// copy. A user has at most one entry per title, waiting or holding.
type Registry struct {
	mu         sync.RWMutex
	maxPerUser int
	queues     map[uuid.UUID]*Queue
	holds      map[uuid.UUID]map[uuid.UUID]models.Reservation
	perUser    map[uuid.UUID]int
	seq        int64
}

// NewRegistry builds a registry. maxPerUser <= 0 means unlimited.
func NewRegistry(maxPerUser int) *Registry {
	return &Registry{
		maxPerUser: maxPerUser,
		queues:     make(map[uuid.UUID]*Queue),
		holds:      make(map[uuid.UUID]map[uuid.UUID]models.Reservation),
		perUser:    make(map[uuid.UUID]int),
	}
}

// Find returns the user's entry for a title, waiting or holding.
func (r *Registry) Find(titleID, userID uuid.UUID) (models.Reservation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(titleID, userID)
}

func (r *Registry) findLocked(titleID, userID uuid.UUID) (models.Reservation, bool) {
	if hold, ok := r.holds[titleID][userID]; ok {
		return hold, true
	}
	if q, ok := r.queues[titleID]; ok {
		return q.Get(userID)
	}
	return models.Reservation{}, false
}

// Enqueue appends the user to the title's waiting queue.
func (r *Registry) Enqueue(titleID, userID uuid.UUID, at time.Time) (models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, err := r.newEntryLocked(titleID, userID, at)
	if err != nil {
		return models.Reservation{}, err
	}
	r.queueLocked(titleID).Enqueue(entry)
	r.perUser[userID]++
	return entry, nil
}

// Hold records an immediate reservation of copyID for the user.
func (r *Registry) Hold(titleID, userID, copyID uuid.UUID, at time.Time) (models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, err := r.newEntryLocked(titleID, userID, at)
	if err != nil {
		return models.Reservation{}, err
	}
	entry.CopyID = &copyID
	r.putHoldLocked(entry)
	r.perUser[userID]++
	return entry, nil
}

func (r *Registry) newEntryLocked(titleID, userID uuid.UUID, at time.Time) (models.Reservation, error) {
	if _, exists := r.findLocked(titleID, userID); exists {
		return models.Reservation{}, pkgerrors.New(pkgerrors.CodeDuplicateReservation, "user already holds a reservation for this title").
			WithDetails(map[string]any{"title_id": titleID.String(), "user_id": userID.String()})
	}
	if r.maxPerUser > 0 && r.perUser[userID] >= r.maxPerUser {
		return models.Reservation{}, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("reservation limit of %d reached", r.maxPerUser)).
			WithDetails(map[string]any{"user_id": userID.String(), "limit": r.maxPerUser})
	}
	r.seq++
	return models.Reservation{
		ID:          uuid.New(),
		TitleID:     titleID,
		UserID:      userID,
		RequestedAt: at,
		Seq:         r.seq,
	}, nil
}

// PromoteHead dequeues the head of the title's queue and assigns it copyID.
func (r *Registry) PromoteHead(titleID, copyID uuid.UUID) (models.Reservation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[titleID]
	if !ok {
		return models.Reservation{}, false
	}
	entry, ok := q.DequeueHead()
	if !ok {
		return models.Reservation{}, false
	}
	r.dropEmptyQueueLocked(titleID)
	entry.CopyID = &copyID
	r.putHoldLocked(entry)
	return entry, true
}

// Requeue turns the user's hold back into a waiting entry at the head of the queue.
func (r *Registry) Requeue(titleID, userID uuid.UUID) (models.Reservation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hold, ok := r.holds[titleID][userID]
	if !ok {
		return models.Reservation{}, false
	}
	r.dropHoldLocked(titleID, userID)
	hold.CopyID = nil
	r.queueLocked(titleID).PushFront(hold)
	return hold, true
}

// Remove drops the user's entry for the title, waiting or holding.
func (r *Registry) Remove(titleID, userID uuid.UUID) (models.Reservation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hold, ok := r.holds[titleID][userID]; ok {
		r.dropHoldLocked(titleID, userID)
		r.releaseUserLocked(userID)
		return hold, true
	}
	q, ok := r.queues[titleID]
	if !ok {
		return models.Reservation{}, false
	}
	entry, ok := q.Remove(userID)
	if !ok {
		return models.Reservation{}, false
	}
	r.dropEmptyQueueLocked(titleID)
	r.releaseUserLocked(userID)
	return entry, true
}

// RestoreHold puts back a hold taken out by Remove, keeping its id and
// sequence.
func (r *Registry) RestoreHold(entry models.Reservation) error {
	if !entry.IsHolding() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is not holding a copy")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.findLocked(entry.TitleID, entry.UserID); exists {
		return pkgerrors.New(pkgerrors.CodeDuplicateReservation, "user already holds a reservation for this title").
			WithDetails(map[string]any{"title_id": entry.TitleID.String(), "user_id": entry.UserID.String()})
	}
	r.putHoldLocked(entry)
	r.perUser[entry.UserID]++
	return nil
}

// Peek returns the head of the title's waiting queue.
func (r *Registry) Peek(titleID uuid.UUID) (models.Reservation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.queues[titleID]
	if !ok {
		return models.Reservation{}, false
	}
	return q.Peek()
}

// WaitingLen is the number of users waiting on the title.
func (r *Registry) WaitingLen(titleID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if q, ok := r.queues[titleID]; ok {
		return q.Len()
	}
	return 0
}

// Snapshot lists holds (oldest first) followed by the waiting queue in order.
func (r *Registry) Snapshot(titleID uuid.UUID) []models.Reservation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Reservation, 0, len(r.holds[titleID]))
	for _, hold := range r.holds[titleID] {
		out = append(out, hold)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	if q, ok := r.queues[titleID]; ok {
		out = append(out, q.Entries()...)
	}
	return out
}

// CountForUser is the number of active entries the user has across titles.
func (r *Registry) CountForUser(userID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.perUser[userID]
}

// Load replaces the registry contents with persisted rows. Waiting entries are
// queued by request time, ties broken by sequence.
func (r *Registry) Load(entries []models.Reservation) error {
	sorted := make([]models.Reservation, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].RequestedAt.Equal(sorted[j].RequestedAt) {
			return sorted[i].Seq < sorted[j].Seq
		}
		return sorted[i].RequestedAt.Before(sorted[j].RequestedAt)
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.queues = make(map[uuid.UUID]*Queue)
	r.holds = make(map[uuid.UUID]map[uuid.UUID]models.Reservation)
	r.perUser = make(map[uuid.UUID]int)
	r.seq = 0
	for _, entry := range sorted {
		if _, dup := r.findLocked(entry.TitleID, entry.UserID); dup {
			return fmt.Errorf("duplicate reservation for title %s user %s", entry.TitleID, entry.UserID)
		}
		if entry.CopyID != nil {
			r.putHoldLocked(entry)
		} else {
			r.queueLocked(entry.TitleID).Enqueue(entry)
		}
		r.perUser[entry.UserID]++
		if entry.Seq > r.seq {
			r.seq = entry.Seq
		}
	}
	return nil
}

func (r *Registry) queueLocked(titleID uuid.UUID) *Queue {
	q, ok := r.queues[titleID]
	if !ok {
		q = NewQueue()
		r.queues[titleID] = q
	}
	return q
}

func (r *Registry) dropEmptyQueueLocked(titleID uuid.UUID) {
	if q, ok := r.queues[titleID]; ok && q.Len() == 0 {
		delete(r.queues, titleID)
	}
}

func (r *Registry) putHoldLocked(entry models.Reservation) {
	byUser, ok := r.holds[entry.TitleID]
	if !ok {
		byUser = make(map[uuid.UUID]models.Reservation)
		r.holds[entry.TitleID] = byUser
	}
	byUser[entry.UserID] = entry
}

func (r *Registry) dropHoldLocked(titleID, userID uuid.UUID) {
	byUser := r.holds[titleID]
	delete(byUser, userID)
	if len(byUser) == 0 {
		delete(r.holds, titleID)
	}
}

func (r *Registry) releaseUserLocked(userID uuid.UUID) {
	if r.perUser[userID] <= 1 {
		delete(r.perUser, userID)
		return
	}
	r.perUser[userID]--
}
