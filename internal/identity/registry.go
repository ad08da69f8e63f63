package identity

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
)

// Registry is the in-memory directory of users and branches.
type Registry struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]models.User
	emails   map[string]uuid.UUID
	branches map[uuid.UUID]models.Branch
}

func NewRegistry() *Registry {
	return &Registry{
		users:    make(map[uuid.UUID]models.User),
		emails:   make(map[string]uuid.UUID),
		branches: make(map[uuid.UUID]models.Branch),
	}
}

// Resolve returns the user with the given id.
func (r *Registry) Resolve(userID uuid.UUID) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return models.User{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("user %s not found", userID))
	}
	return user, nil
}

// AddUser registers user. Email addresses are unique case-insensitively and
// the user's branch must already be known. onCommit, when set, runs under the
// registry lock once the checks pass and before the user becomes visible.
func (r *Registry) AddUser(user models.User, onCommit func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.branches[user.BranchID]; !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("branch %s not found", user.BranchID))
	}
	key := normalizeEmail(user.Email)
	if _, taken := r.emails[key]; taken {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "email already registered").
			WithDetails(map[string]any{"email": user.Email})
	}
	if _, exists := r.users[user.ID]; exists {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("user %s already exists", user.ID))
	}
	if onCommit != nil {
		onCommit()
	}
	r.users[user.ID] = user
	r.emails[key] = user.ID
	return nil
}

// Users lists users of a branch ordered by name; uuid.Nil lists everyone.
func (r *Registry) Users(branchID uuid.UUID) []models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		if branchID == uuid.Nil || u.BranchID == branchID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CountUsers counts users of a branch; uuid.Nil counts everyone.
func (r *Registry) CountUsers(branchID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if branchID == uuid.Nil {
		return len(r.users)
	}
	n := 0
	for _, u := range r.users {
		if u.BranchID == branchID {
			n++
		}
	}
	return n
}

// AddBranch registers a branch. onCommit behaves as in AddUser.
func (r *Registry) AddBranch(branch models.Branch, onCommit func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.branches[branch.ID]; exists {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("branch %s already exists", branch.ID))
	}
	if onCommit != nil {
		onCommit()
	}
	r.branches[branch.ID] = branch
	return nil
}

// Branch returns the branch with the given id.
func (r *Registry) Branch(branchID uuid.UUID) (models.Branch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	branch, ok := r.branches[branchID]
	if !ok {
		return models.Branch{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("branch %s not found", branchID))
	}
	return branch, nil
}

// Branches lists every branch ordered by name.
func (r *Registry) Branches() []models.Branch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Branch, 0, len(r.branches))
	for _, b := range r.branches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Load replaces the registry contents with persisted rows.
func (r *Registry) Load(branches []models.Branch, users []models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.branches = make(map[uuid.UUID]models.Branch, len(branches))
	r.users = make(map[uuid.UUID]models.User, len(users))
	r.emails = make(map[string]uuid.UUID, len(users))
	for _, b := range branches {
		r.branches[b.ID] = b
	}
	for _, u := range users {
		r.users[u.ID] = u
		r.emails[normalizeEmail(u.Email)] = u.ID
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
