package seed

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AarushDarne/shelftrack-webapp/internal/engine"
	"github.com/AarushDarne/shelftrack-webapp/internal/journal"
	"github.com/AarushDarne/shelftrack-webapp/pkg/config"
	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
)

const sampleCatalog = `
admin:
  name: Root Librarian
  email: root@district.test
  branch: lincoln
branches:
  - key: lincoln
    name: Lincoln Elementary
    city: Springfield
  - key: oak
    name: Oak Ridge Middle
    phone: "555-0100"
users:
  - name: Sam Staff
    email: sam@district.test
    role: staff
    branch: lincoln
  - name: Tess Teacher
    email: tess@district.test
    role: teacher
    branch: oak
titles:
  - title: Holes
    author: Louis Sachar
    isbn: "9780440414803"
    branch: lincoln
    copies: 2
    condition: good
  - title: Wonder
    author: R. J. Palacio
    branch: oak
    copies: 1
`

type recorder struct {
	mu   sync.Mutex
	sets []journal.Changeset
}

func (r *recorder) Record(cs journal.Changeset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets = append(r.sets, cs)
}

func newEngine(t *testing.T, rec journal.Recorder) *engine.Engine {
	t.Helper()
	p := engine.ParamsFromConfig(config.CirculationConfig{LoanPeriod: 14 * 24 * time.Hour, FinePerDay: "0.25"})
	p.Logger = logger.Nop()
	p.Journal = rec
	e, err := engine.New(p)
	require.NoError(t, err)
	return e
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("admin:\n  email: a@b.test\n  branch: x\nbranchs: []\n"))
	require.Error(t, err)
}

func TestParseRejectsDanglingBranch(t *testing.T) {
	doc := strings.Replace(sampleCatalog, "branch: oak\n    copies: 1", "branch: maple\n    copies: 1", 1)
	_, err := Parse(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maple")
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	require.Error(t, err)
}

func TestApplyBootstrapsAdminAndSeedsCatalog(t *testing.T) {
	ctx := context.Background()
	catalog, err := Parse(strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	rec := &recorder{}
	eng := newEngine(t, rec)
	res, err := Apply(ctx, Params{Engine: eng, Journal: rec}, catalog)
	require.NoError(t, err)

	assert.True(t, res.BootstrappedAdmin)
	assert.Equal(t, 2, res.Branches)
	assert.Equal(t, 3, res.Users)
	assert.Equal(t, 2, res.Titles)
	assert.Equal(t, 3, res.Copies)

	admin, err := eng.Identity.Resolve(ctx, res.AdminID)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleAdmin, admin.Role)

	titles := eng.Circulation.ListTitles(ctx, uuid.Nil)
	require.Len(t, titles, 2)

	// The bootstrap changeset carries the first branch and the admin.
	require.NotEmpty(t, rec.sets)
	first := rec.sets[0]
	require.Len(t, first.Branches, 1)
	require.Len(t, first.Users, 1)
	assert.Equal(t, "Lincoln Elementary", first.Branches[0].Name)
	assert.Equal(t, res.AdminID, first.Users[0].ID)
}

func TestApplyIsRepeatable(t *testing.T) {
	ctx := context.Background()
	catalog, err := Parse(strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	rec := &recorder{}
	eng := newEngine(t, rec)
	first, err := Apply(ctx, Params{Engine: eng, Journal: rec}, catalog)
	require.NoError(t, err)

	second, err := Apply(ctx, Params{Engine: eng, Journal: rec}, catalog)
	require.NoError(t, err)
	assert.False(t, second.BootstrappedAdmin)
	assert.Equal(t, first.AdminID, second.AdminID)
	assert.Zero(t, second.Branches)
	assert.Zero(t, second.Users)
	assert.Zero(t, second.Titles)
	assert.Equal(t, 4, second.Skipped)
	assert.Len(t, eng.Circulation.ListTitles(ctx, uuid.Nil), 2)
}

func TestApplyRefusesNonAdminIdentity(t *testing.T) {
	ctx := context.Background()
	catalog, err := Parse(strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	rec := &recorder{}
	eng := newEngine(t, rec)
	_, err = Apply(ctx, Params{Engine: eng, Journal: rec}, catalog)
	require.NoError(t, err)

	catalog.Admin.Email = "tess@district.test"
	_, err = Apply(ctx, Params{Engine: eng, Journal: rec}, catalog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an admin")
}
