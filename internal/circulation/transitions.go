package circulation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/internal/inventory"
	"github.com/AarushDarne/shelftrack-webapp/internal/overdue"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
)

// Checkout lends a copy to borrowerID. The copy must be available, or
// reserved for the borrower. Any other reservation the borrower has on the
// title is released.
func (s *service) Checkout(ctx context.Context, copyID, borrowerID, actorID uuid.UUID) (loan models.CheckoutRecord, err error) {
	started := time.Now()
	defer func() {
		s.finish(ctx, enums.ActionCheckout, started, map[string]any{
			"copy_id":     copyID.String(),
			"borrower_id": borrowerID.String(),
			"actor_id":    actorID.String(),
		}, err)
	}()

	actor, err := s.authorize(actorID, enums.ActionCheckout)
	if err != nil {
		return models.CheckoutRecord{}, err
	}
	borrower, err := s.dir.Resolve(borrowerID)
	if err != nil {
		return models.CheckoutRecord{}, err
	}

	c, unlock, err := s.lockCopy(copyID)
	if err != nil {
		return models.CheckoutRecord{}, err
	}
	o := &op{}
	loan, err = s.checkoutLocked(o, c, actor, borrower)
	unlock()
	if err != nil {
		return models.CheckoutRecord{}, err
	}
	s.dispatch(ctx, o)
	return loan, nil
}

func (s *service) checkoutLocked(o *op, c models.Copy, actor, borrower models.User) (models.CheckoutRecord, error) {
	heldForBorrower := c.HeldFor(borrower.ID)
	if c.Status != enums.CopyStatusAvailable && !heldForBorrower {
		return models.CheckoutRecord{}, pkgerrors.New(pkgerrors.CodeNotAvailable, "copy is not available for this borrower").
			WithDetails(map[string]any{"copy_id": c.ID.String(), "status": c.Status.String()})
	}
	if existing, open := s.loans.Open(c.ID); open {
		return models.CheckoutRecord{}, pkgerrors.New(pkgerrors.CodeStateConflict, "copy already has an open loan").
			WithDetails(map[string]any{"copy_id": c.ID.String(), "loan_id": existing.ID.String()})
	}
	title, err := s.ledger.GetTitle(c.TitleID)
	if err != nil {
		return models.CheckoutRecord{}, err
	}

	// A hold the borrower has on another copy of the title is resolved
	// before anything changes so a missing copy fails the checkout cleanly.
	entry, reserved := s.reservations.Find(c.TitleID, borrower.ID)
	releaseOther := reserved && entry.IsHolding() && *entry.CopyID != c.ID
	var other models.Copy
	if releaseOther {
		if other, err = s.ledger.GetCopy(*entry.CopyID); err != nil {
			return models.CheckoutRecord{}, err
		}
	}

	now := s.now()
	loan := models.CheckoutRecord{
		ID:           uuid.New(),
		CopyID:       c.ID,
		TitleID:      c.TitleID,
		BorrowerID:   borrower.ID,
		BranchID:     c.BranchID,
		CheckedOutAt: now,
		DueAt:        now.Add(s.loanPeriod),
	}
	loanID := loan.ID
	lent, err := s.ledger.ApplyTransition(c, inventory.Transition{
		Status: enums.CopyStatusCheckedOut,
		LoanID: &loanID,
	}, now)
	if err != nil {
		return models.CheckoutRecord{}, err
	}
	var undo rollback
	undo.push(func() error { return s.ledger.Revert(lent, c) })
	if err := s.loans.Add(loan); err != nil {
		return models.CheckoutRecord{}, undo.run(err)
	}
	undo.push(func() error {
		_, err := s.loans.Close(loan.ID, now)
		return err
	})
	o.copies(lent)
	o.cs.Loans = append(o.cs.Loans, loan)

	if removed, ok := s.reservations.Remove(c.TitleID, borrower.ID); ok {
		o.cs.DroppedReservations = append(o.cs.DroppedReservations, removed.ID)
		if releaseOther {
			undo.push(func() error { return s.reservations.RestoreHold(removed) })
			freed, err := s.release(o, other, now)
			if err != nil {
				return models.CheckoutRecord{}, undo.run(err)
			}
			o.copies(freed)
		}
	}

	s.commit(o, newActivity(enums.ActivityTypeCheckout, actor, c.ID, c.BranchID, now,
		fmt.Sprintf("Checked out %q to %s, due %s", title.Title, borrower.Name, loan.DueAt.Format(time.DateOnly))))
	return loan, nil
}

// Return closes the copy's open loan and hands the copy to the head of the
// title's queue, or back to the shelf.
func (s *service) Return(ctx context.Context, copyID, actorID uuid.UUID) (closed models.CheckoutRecord, err error) {
	started := time.Now()
	defer func() {
		s.finish(ctx, enums.ActionReturn, started, map[string]any{
			"copy_id":  copyID.String(),
			"actor_id": actorID.String(),
		}, err)
	}()

	actor, err := s.authorize(actorID, enums.ActionReturn)
	if err != nil {
		return models.CheckoutRecord{}, err
	}
	c, unlock, err := s.lockCopy(copyID)
	if err != nil {
		return models.CheckoutRecord{}, err
	}
	o := &op{}
	closed, err = s.returnLocked(o, c, actor)
	unlock()
	if err != nil {
		return models.CheckoutRecord{}, err
	}
	s.dispatch(ctx, o)
	return closed, nil
}

func (s *service) returnLocked(o *op, c models.Copy, actor models.User) (models.CheckoutRecord, error) {
	if c.Status != enums.CopyStatusCheckedOut {
		return models.CheckoutRecord{}, pkgerrors.New(pkgerrors.CodeNotCheckedOut, "copy is not checked out").
			WithDetails(map[string]any{"copy_id": c.ID.String(), "status": c.Status.String()})
	}
	open, ok := s.loans.Open(c.ID)
	if !ok || c.LoanID == nil || *c.LoanID != open.ID {
		return models.CheckoutRecord{}, pkgerrors.New(pkgerrors.CodeStateConflict, "copy loan does not match the open loan").
			WithDetails(map[string]any{"copy_id": c.ID.String()})
	}
	title, err := s.ledger.GetTitle(c.TitleID)
	if err != nil {
		return models.CheckoutRecord{}, err
	}

	now := s.now()
	next, err := s.release(o, c, now)
	if err != nil {
		return models.CheckoutRecord{}, err
	}
	closed, err := s.loans.Close(open.ID, now)
	if err != nil {
		return models.CheckoutRecord{}, err
	}
	o.copies(next)
	o.cs.Loans = append(o.cs.Loans, closed)

	description := fmt.Sprintf("Returned %q", title.Title)
	if a := overdue.Assess(closed, now, s.calc.Rate()); a.Overdue {
		description = fmt.Sprintf("%s, %d days overdue, fine %s", description, a.DaysOverdue, a.Fine.StringFixed(2))
	}
	s.commit(o, newActivity(enums.ActivityTypeReturn, actor, c.ID, c.BranchID, now, description))
	return closed, nil
}

// Reserve places a hold on the first available copy of the title, or queues
// the user when none is available.
func (s *service) Reserve(ctx context.Context, titleID, userID, actorID uuid.UUID) (result ReserveResult, err error) {
	started := time.Now()
	defer func() {
		s.finish(ctx, enums.ActionReserve, started, map[string]any{
			"title_id": titleID.String(),
			"user_id":  userID.String(),
			"actor_id": actorID.String(),
		}, err)
	}()

	actor, err := s.authorize(actorID, enums.ActionReserve)
	if err != nil {
		return ReserveResult{}, err
	}
	user, err := s.dir.Resolve(userID)
	if err != nil {
		return ReserveResult{}, err
	}
	if _, err := s.ledger.GetTitle(titleID); err != nil {
		return ReserveResult{}, err
	}

	unlock := s.locks.lock(titleID)
	o := &op{}
	result, err = s.reserveLocked(o, titleID, actor, user)
	unlock()
	if err != nil {
		return ReserveResult{}, err
	}
	s.dispatch(ctx, o)
	return result, nil
}

func (s *service) reserveLocked(o *op, titleID uuid.UUID, actor, user models.User) (ReserveResult, error) {
	title, err := s.ledger.GetTitle(titleID)
	if err != nil {
		return ReserveResult{}, err
	}
	copies, err := s.ledger.CopiesByTitle(titleID)
	if err != nil {
		return ReserveResult{}, err
	}

	now := s.now()
	var result ReserveResult
	if free, ok := firstAvailable(copies); ok {
		entry, err := s.reservations.Hold(titleID, user.ID, free.ID, now)
		if err != nil {
			return ReserveResult{}, err
		}
		holder := user.ID
		held, err := s.ledger.ApplyTransition(free, inventory.Transition{
			Status:   enums.CopyStatusReserved,
			HolderID: &holder,
		}, now)
		if err != nil {
			s.reservations.Remove(titleID, user.ID)
			return ReserveResult{}, err
		}
		o.copies(held)
		result = ReserveResult{Entry: entry, Copy: &held}
	} else {
		entry, err := s.reservations.Enqueue(titleID, user.ID, now)
		if err != nil {
			return ReserveResult{}, err
		}
		result = ReserveResult{Entry: entry}
	}
	o.cs.Reservations = append(o.cs.Reservations, result.Entry)

	description := fmt.Sprintf("Reserved %q for %s", title.Title, user.Name)
	if !result.Held() {
		description = fmt.Sprintf("%s, position %d in queue", description, s.reservations.WaitingLen(titleID))
	}
	s.commit(o, newActivity(enums.ActivityTypeReserve, actor, titleID, title.BranchID, now, description))
	return result, nil
}

// CancelReservation drops the user's entry for the title. A copy held for
// that entry goes to the next user in line, or back to the shelf.
func (s *service) CancelReservation(ctx context.Context, titleID, userID, actorID uuid.UUID) (err error) {
	started := time.Now()
	defer func() {
		s.finish(ctx, enums.ActionCancelReservation, started, map[string]any{
			"title_id": titleID.String(),
			"user_id":  userID.String(),
			"actor_id": actorID.String(),
		}, err)
	}()

	actor, err := s.authorize(actorID, enums.ActionCancelReservation)
	if err != nil {
		return err
	}
	if _, err := s.ledger.GetTitle(titleID); err != nil {
		return err
	}

	unlock := s.locks.lock(titleID)
	o := &op{}
	err = s.cancelLocked(o, titleID, userID, actor)
	unlock()
	if err != nil {
		return err
	}
	s.dispatch(ctx, o)
	return nil
}

func (s *service) cancelLocked(o *op, titleID, userID uuid.UUID, actor models.User) error {
	title, err := s.ledger.GetTitle(titleID)
	if err != nil {
		return err
	}
	entry, ok := s.reservations.Find(titleID, userID)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found").
			WithDetails(map[string]any{"title_id": titleID.String(), "user_id": userID.String()})
	}

	now := s.now()
	var held models.Copy
	if entry.IsHolding() {
		if held, err = s.ledger.GetCopy(*entry.CopyID); err != nil {
			return err
		}
		if !held.HeldFor(userID) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "held copy is not reserved for this user").
				WithDetails(map[string]any{"copy_id": held.ID.String()})
		}
	}
	s.reservations.Remove(titleID, userID)
	o.cs.DroppedReservations = append(o.cs.DroppedReservations, entry.ID)
	if entry.IsHolding() {
		freed, err := s.release(o, held, now)
		if err != nil {
			return err
		}
		o.copies(freed)
	}

	s.commit(o, newActivity(enums.ActivityTypeCancelReservation, actor, titleID, title.BranchID, now,
		fmt.Sprintf("Cancelled reservation of %q", title.Title)))
	return nil
}

// MarkMaintenance takes a copy off circulation. A held copy's reservation
// goes back to the front of the queue.
func (s *service) MarkMaintenance(ctx context.Context, copyID, actorID uuid.UUID) (updated models.Copy, err error) {
	started := time.Now()
	defer func() {
		s.finish(ctx, enums.ActionMarkMaintenance, started, map[string]any{
			"copy_id":  copyID.String(),
			"actor_id": actorID.String(),
		}, err)
	}()

	actor, err := s.authorize(actorID, enums.ActionMarkMaintenance)
	if err != nil {
		return models.Copy{}, err
	}
	c, unlock, err := s.lockCopy(copyID)
	if err != nil {
		return models.Copy{}, err
	}
	o := &op{}
	updated, err = s.maintenanceLocked(o, c, actor)
	unlock()
	if err != nil {
		return models.Copy{}, err
	}
	s.dispatch(ctx, o)
	return updated, nil
}

func (s *service) maintenanceLocked(o *op, c models.Copy, actor models.User) (models.Copy, error) {
	switch c.Status {
	case enums.CopyStatusCheckedOut, enums.CopyStatusMaintenance:
		return models.Copy{}, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot mark a %s copy for maintenance", c.Status)).
			WithDetails(map[string]any{"copy_id": c.ID.String(), "status": c.Status.String()})
	}
	title, err := s.ledger.GetTitle(c.TitleID)
	if err != nil {
		return models.Copy{}, err
	}

	now := s.now()
	var requeued *models.Reservation
	if c.Status == enums.CopyStatusReserved && c.HolderID != nil {
		entry, ok := s.reservations.Requeue(c.TitleID, *c.HolderID)
		if !ok {
			return models.Copy{}, pkgerrors.New(pkgerrors.CodeStateConflict, "held copy has no matching reservation").
				WithDetails(map[string]any{"copy_id": c.ID.String()})
		}
		requeued = &entry
	}
	updated, err := s.ledger.ApplyTransition(c, inventory.Transition{Status: enums.CopyStatusMaintenance}, now)
	if err != nil {
		if requeued != nil {
			s.reservations.PromoteHead(c.TitleID, c.ID)
		}
		return models.Copy{}, err
	}
	o.copies(updated)
	if requeued != nil {
		o.cs.Reservations = append(o.cs.Reservations, *requeued)
		if err := s.fillQueue(o, c.TitleID, now); err != nil {
			return models.Copy{}, err
		}
	}

	s.commit(o, newActivity(enums.ActivityTypeMarkMaintenance, actor, c.ID, c.BranchID, now,
		fmt.Sprintf("Sent copy %d of %q to maintenance", c.Shelf, title.Title)))
	return updated, nil
}

// fillQueue hands available copies of the title to waiting users until one
// of the two runs out.
func (s *service) fillQueue(o *op, titleID uuid.UUID, at time.Time) error {
	for s.reservations.WaitingLen(titleID) > 0 {
		copies, err := s.ledger.CopiesByTitle(titleID)
		if err != nil {
			return err
		}
		free, ok := firstAvailable(copies)
		if !ok {
			return nil
		}
		held, err := s.release(o, free, at)
		if err != nil {
			return err
		}
		o.copies(held)
	}
	return nil
}

// ClearMaintenance returns a copy from maintenance to circulation, handing
// it to the head of the title's queue when someone is waiting.
func (s *service) ClearMaintenance(ctx context.Context, copyID, actorID uuid.UUID) (updated models.Copy, err error) {
	started := time.Now()
	defer func() {
		s.finish(ctx, enums.ActionClearMaintenance, started, map[string]any{
			"copy_id":  copyID.String(),
			"actor_id": actorID.String(),
		}, err)
	}()

	actor, err := s.authorize(actorID, enums.ActionClearMaintenance)
	if err != nil {
		return models.Copy{}, err
	}
	c, unlock, err := s.lockCopy(copyID)
	if err != nil {
		return models.Copy{}, err
	}
	o := &op{}
	updated, err = s.clearLocked(o, c, actor)
	unlock()
	if err != nil {
		return models.Copy{}, err
	}
	s.dispatch(ctx, o)
	return updated, nil
}

func (s *service) clearLocked(o *op, c models.Copy, actor models.User) (models.Copy, error) {
	if c.Status != enums.CopyStatusMaintenance {
		return models.Copy{}, pkgerrors.New(pkgerrors.CodeStateConflict, "copy is not in maintenance").
			WithDetails(map[string]any{"copy_id": c.ID.String(), "status": c.Status.String()})
	}
	title, err := s.ledger.GetTitle(c.TitleID)
	if err != nil {
		return models.Copy{}, err
	}
	now := s.now()
	updated, err := s.release(o, c, now)
	if err != nil {
		return models.Copy{}, err
	}
	o.copies(updated)
	s.commit(o, newActivity(enums.ActivityTypeClearMaintenance, actor, c.ID, c.BranchID, now,
		fmt.Sprintf("Returned copy %d of %q to circulation", c.Shelf, title.Title)))
	return updated, nil
}

func firstAvailable(copies []models.Copy) (models.Copy, bool) {
	for _, c := range copies {
		if c.Status == enums.CopyStatusAvailable {
			return c, true
		}
	}
	return models.Copy{}, false
}
