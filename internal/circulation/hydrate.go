package circulation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
)

// Hydrate replaces the in-memory state with a persisted snapshot. It must
// run before the engine serves requests. Copies, loans and holds must agree
// with each other or the snapshot is rejected.
func (s *service) Hydrate(snapshot Snapshot) error {
	if err := checkSnapshot(snapshot); err != nil {
		return err
	}
	if err := s.ledger.Load(snapshot.Titles, snapshot.Copies); err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}
	if err := s.loans.Load(snapshot.Loans); err != nil {
		return fmt.Errorf("load loans: %w", err)
	}
	if err := s.reservations.Load(snapshot.Reservations); err != nil {
		return fmt.Errorf("load reservations: %w", err)
	}
	s.activity.Load(snapshot.Activity)
	return nil
}

func checkSnapshot(snapshot Snapshot) error {
	openLoans := make(map[uuid.UUID]models.CheckoutRecord, len(snapshot.Loans))
	for _, loan := range snapshot.Loans {
		if loan.IsOpen() {
			openLoans[loan.CopyID] = loan
		}
	}
	holds := make(map[uuid.UUID]models.Reservation)
	for _, entry := range snapshot.Reservations {
		if entry.IsHolding() {
			holds[*entry.CopyID] = entry
		}
	}

	for _, c := range snapshot.Copies {
		loan, onLoan := openLoans[c.ID]
		if (c.Status == enums.CopyStatusCheckedOut) != onLoan {
			return fmt.Errorf("copy %s is %s but open loan present=%t", c.ID, c.Status, onLoan)
		}
		if onLoan && (c.LoanID == nil || *c.LoanID != loan.ID) {
			return fmt.Errorf("copy %s points at a different loan than %s", c.ID, loan.ID)
		}
		hold, held := holds[c.ID]
		if (c.Status == enums.CopyStatusReserved) != held {
			return fmt.Errorf("copy %s is %s but hold present=%t", c.ID, c.Status, held)
		}
		if held && (c.HolderID == nil || *c.HolderID != hold.UserID) {
			return fmt.Errorf("copy %s is held for a different user than %s", c.ID, hold.UserID)
		}
		delete(holds, c.ID)
	}
	for copyID := range holds {
		return fmt.Errorf("reservation holds unknown copy %s", copyID)
	}
	return nil
}
