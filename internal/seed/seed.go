package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/internal/circulation"
	"github.com/AarushDarne/shelftrack-webapp/internal/engine"
	"github.com/AarushDarne/shelftrack-webapp/internal/identity"
	"github.com/AarushDarne/shelftrack-webapp/internal/journal"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
)

type Params struct {
	Engine  *engine.Engine
	Journal journal.Recorder
	Logger  *logger.Logger
	Clock   func() time.Time
}

// Result counts what Apply created; rows that already existed are skipped.
type Result struct {
	AdminID           uuid.UUID
	BootstrappedAdmin bool
	Branches          int
	Users             int
	Titles            int
	Copies            int
	Skipped           int
}

// Apply creates every catalog entry that is not already present. Branches
// match by name and users by email, both case-insensitively. Titles match by
// ISBN within their branch, or by title and author when no ISBN is given.
// When the admin does not exist yet, the admin and its branch are written
// straight to the directory and journal; everything else goes through the
// services under the admin's authority.
func Apply(ctx context.Context, p Params, c Catalog) (Result, error) {
	if p.Engine == nil {
		return Result{}, fmt.Errorf("engine required")
	}
	if p.Journal == nil {
		return Result{}, fmt.Errorf("journal required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := p.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if err := c.Validate(); err != nil {
		return Result{}, err
	}

	a := applier{p: p, now: now, branchIDs: map[string]uuid.UUID{}}
	existing := map[string]uuid.UUID{}
	for _, b := range p.Engine.Directory.Branches() {
		existing[fold(b.Name)] = b.ID
	}
	for _, b := range c.Branches {
		if id, ok := existing[fold(b.Name)]; ok {
			a.branchIDs[b.Key] = id
		}
	}

	if err := a.ensureAdmin(ctx, c); err != nil {
		return a.res, err
	}

	for _, b := range c.Branches {
		if _, ok := a.branchIDs[b.Key]; ok {
			continue
		}
		branch, err := p.Engine.Identity.AddBranch(ctx, a.res.AdminID, branchInput(b))
		if err != nil {
			return a.res, fmt.Errorf("add branch %q: %w", b.Name, err)
		}
		a.branchIDs[b.Key] = branch.ID
		a.res.Branches++
	}

	emails := map[string]struct{}{}
	for _, u := range p.Engine.Directory.Users(uuid.Nil) {
		emails[fold(u.Email)] = struct{}{}
	}
	for _, u := range c.Users {
		if _, ok := emails[fold(u.Email)]; ok {
			a.res.Skipped++
			continue
		}
		if _, err := p.Engine.Identity.RegisterUser(ctx, a.res.AdminID, identity.RegisterUserInput{
			Name:     u.Name,
			Email:    u.Email,
			Role:     u.Role,
			BranchID: a.branchIDs[u.Branch],
		}); err != nil {
			return a.res, fmt.Errorf("register user %q: %w", u.Email, err)
		}
		emails[fold(u.Email)] = struct{}{}
		a.res.Users++
	}

	shelved := map[string]struct{}{}
	for _, view := range p.Engine.Circulation.ListTitles(ctx, uuid.Nil) {
		shelved[titleKey(view.Title.BranchID, view.Title.ISBN, view.Title.Title, view.Title.Author)] = struct{}{}
	}
	for _, t := range c.Titles {
		branchID := a.branchIDs[t.Branch]
		key := titleKey(branchID, t.ISBN, t.Title, t.Author)
		if _, ok := shelved[key]; ok {
			a.res.Skipped++
			continue
		}
		view, err := p.Engine.Circulation.AddTitle(ctx, a.res.AdminID, circulation.AddTitleInput{
			BranchID:         branchID,
			Title:            t.Title,
			Author:           t.Author,
			ISBN:             t.ISBN,
			Publisher:        t.Publisher,
			PublicationYear:  t.PublicationYear,
			Category:         t.Category,
			Description:      t.Description,
			LocationTemplate: t.Location,
			Copies:           t.Copies,
			Condition:        t.Condition,
		})
		if err != nil {
			return a.res, fmt.Errorf("add title %q: %w", t.Title, err)
		}
		shelved[key] = struct{}{}
		a.res.Titles++
		a.res.Copies += view.Counts.Total
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"admin_id":     a.res.AdminID.String(),
		"bootstrapped": a.res.BootstrappedAdmin,
		"branches":     a.res.Branches,
		"users":        a.res.Users,
		"titles":       a.res.Titles,
		"copies":       a.res.Copies,
		"skipped":      a.res.Skipped,
	}), "catalog seeded")
	return a.res, nil
}

type applier struct {
	p         Params
	now       func() time.Time
	branchIDs map[string]uuid.UUID
	res       Result
}

func (a *applier) ensureAdmin(ctx context.Context, c Catalog) error {
	for _, u := range a.p.Engine.Directory.Users(uuid.Nil) {
		if fold(u.Email) != fold(c.Admin.Email) {
			continue
		}
		if u.Role != enums.RoleAdmin {
			return fmt.Errorf("%s exists but is a %s, not an admin", u.Email, u.Role)
		}
		a.res.AdminID = u.ID
		return nil
	}

	ts := a.now()
	var cs journal.Changeset
	branchID, ok := a.branchIDs[c.Admin.Branch]
	if !ok {
		for _, b := range c.Branches {
			if b.Key != c.Admin.Branch {
				continue
			}
			branch := newBranch(b, ts)
			if err := a.p.Engine.Directory.AddBranch(branch, nil); err != nil {
				return fmt.Errorf("bootstrap branch %q: %w", b.Name, err)
			}
			cs.Branches = append(cs.Branches, branch)
			branchID = branch.ID
			a.branchIDs[b.Key] = branch.ID
			a.res.Branches++
		}
	}

	admin := models.User{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(c.Admin.Name),
		Email:     strings.TrimSpace(c.Admin.Email),
		Role:      enums.RoleAdmin,
		BranchID:  branchID,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if admin.Name == "" {
		admin.Name = admin.Email
	}
	cs.Users = []models.User{admin}
	cs.Activity = []models.ActivityEntry{{
		ID:          uuid.New(),
		Type:        enums.ActivityTypeAddUser,
		ActorID:     admin.ID,
		ResourceID:  admin.ID,
		BranchID:    branchID,
		Description: fmt.Sprintf("Bootstrapped admin %s", admin.Name),
		OccurredAt:  ts,
	}}
	err := a.p.Engine.Directory.AddUser(admin, func() { a.p.Journal.Record(cs) })
	if err != nil {
		return fmt.Errorf("bootstrap admin %q: %w", admin.Email, err)
	}
	a.res.AdminID = admin.ID
	a.res.BootstrappedAdmin = true
	a.res.Users++
	return nil
}

func newBranch(b BranchEntry, ts time.Time) models.Branch {
	in := branchInput(b)
	return models.Branch{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(in.Name),
		Address:   in.Address,
		City:      in.City,
		State:     in.State,
		Zip:       in.Zip,
		Phone:     in.Phone,
		Email:     in.Email,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func branchInput(b BranchEntry) identity.AddBranchInput {
	in := identity.AddBranchInput{
		Name:    b.Name,
		Address: b.Address,
		City:    b.City,
		State:   b.State,
		Zip:     b.Zip,
	}
	if phone := strings.TrimSpace(b.Phone); phone != "" {
		in.Phone = &phone
	}
	if email := strings.TrimSpace(b.Email); email != "" {
		in.Email = &email
	}
	return in
}

func titleKey(branchID uuid.UUID, isbn, title, author string) string {
	if isbn = strings.TrimSpace(isbn); isbn != "" {
		return branchID.String() + "|isbn|" + isbn
	}
	return branchID.String() + "|" + fold(title) + "|" + fold(author)
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
