package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/internal/access"
	"github.com/AarushDarne/shelftrack-webapp/internal/activity"
	"github.com/AarushDarne/shelftrack-webapp/internal/journal"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
)

// Service resolves callers and manages the user and branch directory.
type Service interface {
	Resolve(ctx context.Context, userID uuid.UUID) (models.User, error)
	RegisterUser(ctx context.Context, actorID uuid.UUID, input RegisterUserInput) (models.User, error)
	ListUsers(ctx context.Context, actorID, branchID uuid.UUID) ([]models.User, error)
	AddBranch(ctx context.Context, actorID uuid.UUID, input AddBranchInput) (models.Branch, error)
	ListBranches(ctx context.Context) []models.Branch
	CountUsers(ctx context.Context, branchID uuid.UUID) int
}

// ServiceParams wire the identity service.
type ServiceParams struct {
	Registry *Registry
	Activity *activity.Log
	Journal  journal.Recorder
	Logger   *logger.Logger
	Clock    func() time.Time
}

type service struct {
	registry *Registry
	activity *activity.Log
	journal  journal.Recorder
	logg     *logger.Logger
	now      func() time.Time
}

// NewService validates params and builds the identity service.
func NewService(params ServiceParams) (Service, error) {
	if params.Registry == nil {
		return nil, fmt.Errorf("identity registry required")
	}
	if params.Activity == nil {
		return nil, fmt.Errorf("activity log required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	rec := params.Journal
	if rec == nil {
		rec = journal.Discard{}
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		registry: params.Registry,
		activity: params.Activity,
		journal:  rec,
		logg:     params.Logger,
		now:      clock,
	}, nil
}

func (s *service) Resolve(_ context.Context, userID uuid.UUID) (models.User, error) {
	return s.registry.Resolve(userID)
}

func (s *service) authorize(actorID uuid.UUID, action enums.Action) (models.User, error) {
	actor, err := s.registry.Resolve(actorID)
	if err != nil {
		return models.User{}, err
	}
	if err := access.Authorize(actor.Role, action); err != nil {
		return models.User{}, err
	}
	return actor, nil
}

func (s *service) RegisterUser(ctx context.Context, actorID uuid.UUID, input RegisterUserInput) (models.User, error) {
	actor, err := s.authorize(actorID, enums.ActionManageUsers)
	if err != nil {
		return models.User{}, err
	}

	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	switch {
	case name == "":
		return models.User{}, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case !strings.Contains(email, "@"):
		return models.User{}, pkgerrors.New(pkgerrors.CodeValidation, "valid email is required")
	case !input.Role.IsValid():
		return models.User{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", input.Role))
	case input.BranchID == uuid.Nil:
		return models.User{}, pkgerrors.New(pkgerrors.CodeValidation, "branch_id is required")
	}

	now := s.now()
	user := models.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Role:      input.Role,
		BranchID:  input.BranchID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	entry := models.ActivityEntry{
		ID:          uuid.New(),
		Type:        enums.ActivityTypeAddUser,
		ActorID:     actor.ID,
		ResourceID:  user.ID,
		BranchID:    user.BranchID,
		Description: fmt.Sprintf("Added %s %s", user.Role, user.Name),
		OccurredAt:  now,
	}

	err = s.registry.AddUser(user, func() {
		s.journal.Record(journal.Changeset{
			Users:    []models.User{user},
			Activity: []models.ActivityEntry{entry},
		})
		s.activity.Append(entry)
	})
	if err != nil {
		return models.User{}, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":   user.ID.String(),
		"branch_id": user.BranchID.String(),
		"role":      user.Role.String(),
	}), "user registered")
	return user, nil
}

func (s *service) ListUsers(_ context.Context, actorID, branchID uuid.UUID) ([]models.User, error) {
	if _, err := s.authorize(actorID, enums.ActionViewUsers); err != nil {
		return nil, err
	}
	return s.registry.Users(branchID), nil
}

func (s *service) AddBranch(ctx context.Context, actorID uuid.UUID, input AddBranchInput) (models.Branch, error) {
	actor, err := s.authorize(actorID, enums.ActionManageBranches)
	if err != nil {
		return models.Branch{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return models.Branch{}, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	now := s.now()
	branch := models.Branch{
		ID:        uuid.New(),
		Name:      name,
		Address:   strings.TrimSpace(input.Address),
		City:      strings.TrimSpace(input.City),
		State:     strings.TrimSpace(input.State),
		Zip:       strings.TrimSpace(input.Zip),
		Phone:     input.Phone,
		Email:     input.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	entry := models.ActivityEntry{
		ID:          uuid.New(),
		Type:        enums.ActivityTypeAddBranch,
		ActorID:     actor.ID,
		ResourceID:  branch.ID,
		BranchID:    branch.ID,
		Description: fmt.Sprintf("Added branch %s", branch.Name),
		OccurredAt:  now,
	}

	err = s.registry.AddBranch(branch, func() {
		s.journal.Record(journal.Changeset{
			Branches: []models.Branch{branch},
			Activity: []models.ActivityEntry{entry},
		})
		s.activity.Append(entry)
	})
	if err != nil {
		return models.Branch{}, err
	}

	s.logg.Info(s.logg.WithField(ctx, "branch_id", branch.ID.String()), "branch added")
	return branch, nil
}

func (s *service) ListBranches(context.Context) []models.Branch {
	return s.registry.Branches()
}

func (s *service) CountUsers(_ context.Context, branchID uuid.UUID) int {
	return s.registry.CountUsers(branchID)
}
