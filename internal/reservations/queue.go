package reservations

import (
	"container/list"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
)

// Queue is the FIFO of users waiting on one title. Head access and removal by
// user are O(1). Queue is not safe for concurrent use; Registry guards it.
type Queue struct {
	order  *list.List
	byUser map[uuid.UUID]*list.Element
}

func NewQueue() *Queue {
	return &Queue{
		order:  list.New(),
		byUser: make(map[uuid.UUID]*list.Element),
	}
}

// Enqueue appends entry at the tail.
func (q *Queue) Enqueue(entry models.Reservation) {
	q.byUser[entry.UserID] = q.order.PushBack(entry)
}

// PushFront puts entry ahead of everyone else.
func (q *Queue) PushFront(entry models.Reservation) {
	q.byUser[entry.UserID] = q.order.PushFront(entry)
}

// Peek returns the head without removing it.
func (q *Queue) Peek() (models.Reservation, bool) {
	front := q.order.Front()
	if front == nil {
		return models.Reservation{}, false
	}
	return front.Value.(models.Reservation), true
}

// DequeueHead removes and returns the head.
func (q *Queue) DequeueHead() (models.Reservation, bool) {
	front := q.order.Front()
	if front == nil {
		return models.Reservation{}, false
	}
	entry := q.order.Remove(front).(models.Reservation)
	delete(q.byUser, entry.UserID)
	return entry, true
}

// Remove drops the entry of userID wherever it sits.
func (q *Queue) Remove(userID uuid.UUID) (models.Reservation, bool) {
	el, ok := q.byUser[userID]
	if !ok {
		return models.Reservation{}, false
	}
	delete(q.byUser, userID)
	return q.order.Remove(el).(models.Reservation), true
}

// Get returns the entry of userID without removing it.
func (q *Queue) Get(userID uuid.UUID) (models.Reservation, bool) {
	el, ok := q.byUser[userID]
	if !ok {
		return models.Reservation{}, false
	}
	return el.Value.(models.Reservation), true
}

func (q *Queue) Len() int {
	return q.order.Len()
}

// Entries returns the queue in order, head first.
func (q *Queue) Entries() []models.Reservation {
	out := make([]models.Reservation, 0, q.order.Len())
	for el := q.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(models.Reservation))
	}
	return out
}
