// Package journal carries committed engine state changes to durable storage
// without holding any title's critical section across I/O.
package journal

import (
	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
)

// Changeset is the full set of rows touched by one accepted operation.
// Rows are final values, so replaying a changeset is idempotent.
type Changeset struct {
	Branches            []models.Branch
	Users               []models.User
	Titles              []models.Title
	Copies              []models.Copy
	Loans               []models.CheckoutRecord
	Reservations        []models.Reservation
	DroppedReservations []uuid.UUID
	Activity            []models.ActivityEntry
}

// IsEmpty reports whether the changeset carries no rows.
func (c Changeset) IsEmpty() bool {
	return len(c.Branches) == 0 &&
		len(c.Users) == 0 &&
		len(c.Titles) == 0 &&
		len(c.Copies) == 0 &&
		len(c.Loans) == 0 &&
		len(c.Reservations) == 0 &&
		len(c.DroppedReservations) == 0 &&
		len(c.Activity) == 0
}

// Recorder accepts changesets from inside a critical section. It must not block.
type Recorder interface {
	Record(cs Changeset)
}

// Discard is a Recorder that drops everything; used when no storage is wired.
type Discard struct{}

func (Discard) Record(Changeset) {}
