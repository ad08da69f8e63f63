package circulation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
)

const shelfNumberToken = "{n}"

func (s *service) AddTitle(ctx context.Context, actorID uuid.UUID, input AddTitleInput) (view TitleView, err error) {
	started := time.Now()
	defer func() {
		s.finish(ctx, enums.ActionEditTitle, started, map[string]any{
			"title_id": view.Title.ID.String(),
			"actor_id": actorID.String(),
		}, err)
	}()

	actor, err := s.authorize(actorID, enums.ActionEditTitle)
	if err != nil {
		return TitleView{}, err
	}
	branchID := input.BranchID
	if branchID == uuid.Nil {
		branchID = actor.BranchID
	}
	if _, err := s.dir.Branch(branchID); err != nil {
		return TitleView{}, err
	}
	condition := input.Condition
	if condition == "" {
		condition = enums.CopyConditionNew
	}
	switch {
	case strings.TrimSpace(input.Title) == "":
		return TitleView{}, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	case strings.TrimSpace(input.Author) == "":
		return TitleView{}, pkgerrors.New(pkgerrors.CodeValidation, "author is required")
	case input.Copies < 0:
		return TitleView{}, pkgerrors.New(pkgerrors.CodeValidation, "copies must not be negative")
	case !condition.IsValid():
		return TitleView{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid condition %q", condition))
	}

	now := s.now()
	title := models.Title{
		ID:               uuid.New(),
		BranchID:         branchID,
		Title:            strings.TrimSpace(input.Title),
		Author:           strings.TrimSpace(input.Author),
		ISBN:             strings.TrimSpace(input.ISBN),
		Publisher:        strings.TrimSpace(input.Publisher),
		PublicationYear:  input.PublicationYear,
		Category:         strings.TrimSpace(input.Category),
		Description:      strings.TrimSpace(input.Description),
		LocationTemplate: strings.TrimSpace(input.LocationTemplate),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	unlock := s.locks.lock(title.ID)
	defer unlock()
	if err := s.ledger.AddTitle(title); err != nil {
		return TitleView{}, err
	}
	o := &op{}
	o.cs.Titles = append(o.cs.Titles, title)
	for i := 0; i < input.Copies; i++ {
		added, err := s.ledger.AddCopy(newCopy(title, condition, "", i+1, now))
		if err != nil {
			return TitleView{}, err
		}
		o.copies(added)
	}

	s.commit(o, newActivity(enums.ActivityTypeAddBook, actor, title.ID, title.BranchID, now,
		fmt.Sprintf("Added %q by %s with %d copies", title.Title, title.Author, input.Copies)))
	counts, err := s.ledger.Counts(title.ID)
	if err != nil {
		return TitleView{}, err
	}
	return TitleView{Title: title, Counts: counts}, nil
}

func (s *service) UpdateTitle(ctx context.Context, actorID, titleID uuid.UUID, input UpdateTitleInput) (updated models.Title, err error) {
	started := time.Now()
	defer func() {
		s.finish(ctx, enums.ActionEditTitle, started, map[string]any{
			"title_id": titleID.String(),
			"actor_id": actorID.String(),
		}, err)
	}()

	actor, err := s.authorize(actorID, enums.ActionEditTitle)
	if err != nil {
		return models.Title{}, err
	}
	unlock := s.locks.lock(titleID)
	defer unlock()

	title, err := s.ledger.GetTitle(titleID)
	if err != nil {
		return models.Title{}, err
	}
	applyString(&title.Title, input.Title)
	applyString(&title.Author, input.Author)
	applyString(&title.ISBN, input.ISBN)
	applyString(&title.Publisher, input.Publisher)
	applyString(&title.Category, input.Category)
	applyString(&title.Description, input.Description)
	applyString(&title.LocationTemplate, input.LocationTemplate)
	if input.PublicationYear != nil {
		title.PublicationYear = *input.PublicationYear
	}
	if title.Title == "" || title.Author == "" {
		return models.Title{}, pkgerrors.New(pkgerrors.CodeValidation, "title and author must not be empty")
	}

	now := s.now()
	title.UpdatedAt = now
	if err := s.ledger.UpdateTitle(title); err != nil {
		return models.Title{}, err
	}
	o := &op{}
	o.cs.Titles = append(o.cs.Titles, title)
	s.commit(o, newActivity(enums.ActivityTypeEditBook, actor, title.ID, title.BranchID, now,
		fmt.Sprintf("Edited %q", title.Title)))
	return title, nil
}

// AddCopy shelves a new copy. When users are waiting on the title the copy
// goes straight to the head of the queue.
func (s *service) AddCopy(ctx context.Context, actorID, titleID uuid.UUID, input AddCopyInput) (added models.Copy, err error) {
	started := time.Now()
	defer func() {
		s.finish(ctx, enums.ActionManageCopies, started, map[string]any{
			"title_id": titleID.String(),
			"copy_id":  added.ID.String(),
			"actor_id": actorID.String(),
		}, err)
	}()

	actor, err := s.authorize(actorID, enums.ActionManageCopies)
	if err != nil {
		return models.Copy{}, err
	}
	condition := input.Condition
	if condition == "" {
		condition = enums.CopyConditionGood
	}
	if !condition.IsValid() {
		return models.Copy{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid condition %q", condition))
	}

	unlock := s.locks.lock(titleID)
	o := &op{}
	added, err = s.addCopyLocked(o, titleID, actor, condition, strings.TrimSpace(input.ShelfLocation))
	unlock()
	if err != nil {
		return models.Copy{}, err
	}
	s.dispatch(ctx, o)
	return added, nil
}

func (s *service) addCopyLocked(o *op, titleID uuid.UUID, actor models.User, condition enums.CopyCondition, location string) (models.Copy, error) {
	title, err := s.ledger.GetTitle(titleID)
	if err != nil {
		return models.Copy{}, err
	}
	existing, err := s.ledger.CopiesByTitle(titleID)
	if err != nil {
		return models.Copy{}, err
	}

	now := s.now()
	added, err := s.ledger.AddCopy(newCopy(title, condition, location, len(existing)+1, now))
	if err != nil {
		return models.Copy{}, err
	}
	if s.reservations.WaitingLen(titleID) > 0 {
		if added, err = s.release(o, added, now); err != nil {
			return models.Copy{}, err
		}
	}
	o.copies(added)

	s.commit(o, newActivity(enums.ActivityTypeAddCopy, actor, added.ID, title.BranchID, now,
		fmt.Sprintf("Added copy %d of %q", added.Shelf, title.Title)))
	return added, nil
}

func newCopy(title models.Title, condition enums.CopyCondition, location string, shelf int, at time.Time) models.Copy {
	if location == "" {
		location = shelfLocation(title.LocationTemplate, shelf)
	}
	return models.Copy{
		ID:            uuid.New(),
		TitleID:       title.ID,
		BranchID:      title.BranchID,
		Condition:     condition,
		ShelfLocation: location,
		Status:        enums.CopyStatusAvailable,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}

// shelfLocation expands a title's location template for copy number n.
// "{n}" is replaced by the number; otherwise the number is appended.
func shelfLocation(template string, n int) string {
	if template == "" {
		return ""
	}
	if strings.Contains(template, shelfNumberToken) {
		return strings.ReplaceAll(template, shelfNumberToken, strconv.Itoa(n))
	}
	return fmt.Sprintf("%s-%d", template, n)
}

func applyString(dst *string, value *string) {
	if value != nil {
		*dst = strings.TrimSpace(*value)
	}
}
