package routes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AarushDarne/shelftrack-webapp/api/controllers"
	"github.com/AarushDarne/shelftrack-webapp/api/middleware"
	"github.com/AarushDarne/shelftrack-webapp/internal/circulation"
	"github.com/AarushDarne/shelftrack-webapp/internal/engine"
	"github.com/AarushDarne/shelftrack-webapp/pkg/config"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
	"github.com/AarushDarne/shelftrack-webapp/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type memoryIdempotency struct{ data map[string]string }

func (m *memoryIdempotency) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memoryIdempotency) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryIdempotency) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = value.(string)
	return nil
}

func (m *memoryIdempotency) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (m *memoryIdempotency) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type apiFixture struct {
	handler http.Handler
	engine  *engine.Engine
	branch  models.Branch
	admin   models.User
	staff   models.User
	alice   models.User
	bob     models.User
}

func newAPIFixture(t *testing.T, opts ...func(*Params)) *apiFixture {
	t.Helper()
	e, err := engine.New(engine.Params{
		Logger:     logger.Nop(),
		Clock:      func() time.Time { return time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC) },
		LoanPeriod: 14 * 24 * time.Hour,
	})
	require.NoError(t, err)

	f := &apiFixture{engine: e}
	f.branch = models.Branch{ID: uuid.New(), Name: "Lincoln Elementary"}
	user := func(name string, role enums.Role) models.User {
		return models.User{ID: uuid.New(), Name: name, Email: strings.ToLower(name) + "@lincoln.test", Role: role, BranchID: f.branch.ID}
	}
	f.admin = user("Ada", enums.RoleAdmin)
	f.staff = user("Sam", enums.RoleStaff)
	f.alice = user("Alice", enums.RoleTeacher)
	f.bob = user("Bob", enums.RoleTeacher)
	require.NoError(t, e.Hydrate([]models.Branch{f.branch}, []models.User{f.admin, f.staff, f.alice, f.bob}, circulation.Snapshot{}))

	p := Params{
		Config:      &config.Config{App: config.AppConfig{Env: "test"}},
		Logger:      logger.Nop(),
		Identity:    e.Identity,
		Circulation: e.Circulation,
	}
	for _, opt := range opts {
		opt(&p)
	}
	f.handler = NewRouter(p)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, actor uuid.UUID, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if actor != uuid.Nil {
		req.Header.Set(middleware.ActorHeader, actor.String())
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	return envelope.Data
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	return envelope.Error.Code
}

type idBody struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

// addTitle creates a title with n copies and returns the title and copy ids.
func (f *apiFixture) addTitle(t *testing.T, n int) (uuid.UUID, []uuid.UUID) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/titles", f.staff.ID,
		fmt.Sprintf(`{"title":"Wonder","author":"R. J. Palacio","category":"Fiction","copies":%d}`, n))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	title := decodeData[idBody](t, rec)

	rec = f.do(t, http.MethodGet, "/api/v1/titles/"+title.ID.String()+"/copies", f.staff.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	copies := decodeData[[]idBody](t, rec)
	ids := make([]uuid.UUID, 0, len(copies))
	for _, c := range copies {
		ids = append(ids, c.ID)
	}
	return title.ID, ids
}

func TestHealthEndpoints(t *testing.T) {
	f := newAPIFixture(t, func(p *Params) {
		p.Readiness = map[string]controllers.Pinger{"db": stubPinger{}, "redis": stubPinger{err: errors.New("refused")}}
	})

	rec := f.do(t, http.MethodGet, "/health/live", uuid.Nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Shelftrack-Env"))

	rec = f.do(t, http.MethodGet, "/health/ready", uuid.Nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIRequiresKnownActor(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/titles", uuid.Nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/titles", uuid.New(), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCirculationFlowOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	titleID, copies := f.addTitle(t, 1)
	copyPath := "/api/v1/copies/" + copies[0].String()

	rec := f.do(t, http.MethodPost, copyPath+"/checkout", f.alice.ID, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loan := decodeData[struct {
		BorrowerID uuid.UUID `json:"borrower_id"`
		DueAt      time.Time `json:"due_at"`
	}](t, rec)
	assert.Equal(t, f.alice.ID, loan.BorrowerID)
	assert.Equal(t, time.Date(2025, 9, 15, 9, 0, 0, 0, time.UTC), loan.DueAt.UTC())

	rec = f.do(t, http.MethodPost, copyPath+"/checkout", f.bob.ID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NOT_AVAILABLE", errorCode(t, rec))

	rec = f.do(t, http.MethodPost, "/api/v1/titles/"+titleID.String()+"/reservations", f.bob.ID, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reserved := decodeData[struct {
		Held        bool `json:"held"`
		Reservation struct {
			Position int `json:"position"`
		} `json:"reservation"`
	}](t, rec)
	assert.False(t, reserved.Held)
	assert.Equal(t, 1, reserved.Reservation.Position)

	rec = f.do(t, http.MethodPost, "/api/v1/titles/"+titleID.String()+"/reservations", f.bob.ID, "")
	assert.Equal(t, "DUPLICATE_RESERVATION", errorCode(t, rec))

	rec = f.do(t, http.MethodPost, copyPath+"/return", f.alice.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/titles/"+titleID.String()+"/copies", f.alice.ID, "")
	held := decodeData[[]idBody](t, rec)
	require.Len(t, held, 1)
	assert.Equal(t, string(enums.CopyStatusReserved), held[0].Status)

	rec = f.do(t, http.MethodPost, copyPath+"/checkout", f.alice.ID, "")
	assert.Equal(t, "NOT_AVAILABLE", errorCode(t, rec), "copy is held for bob")

	rec = f.do(t, http.MethodPost, copyPath+"/checkout", f.staff.ID, fmt.Sprintf(`{"borrower_id":%q}`, f.bob.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, copyPath+"/return", f.staff.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, copyPath+"/return", f.staff.ID, "")
	assert.Equal(t, "NOT_CHECKED_OUT", errorCode(t, rec))
}

func TestBorrowerLoansAndLoanLookup(t *testing.T) {
	f := newAPIFixture(t)
	_, copies := f.addTitle(t, 1)

	rec := f.do(t, http.MethodPost, "/api/v1/copies/"+copies[0].String()+"/checkout", f.alice.ID, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loan := decodeData[idBody](t, rec)

	rec = f.do(t, http.MethodGet, "/api/v1/users/"+f.alice.ID.String()+"/loans", f.alice.ID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	own := decodeData[struct {
		OpenLoans []struct {
			LoanID uuid.UUID `json:"loan_id"`
		} `json:"open_loans"`
		ActiveReservations int `json:"active_reservations"`
	}](t, rec)
	require.Len(t, own.OpenLoans, 1)
	assert.Equal(t, loan.ID, own.OpenLoans[0].LoanID)
	assert.Zero(t, own.ActiveReservations)

	rec = f.do(t, http.MethodGet, "/api/v1/users/"+f.alice.ID.String()+"/loans", f.bob.ID, "")
	assert.Equal(t, http.StatusForbidden, rec.Code, "teachers only see their own loans")
	rec = f.do(t, http.MethodGet, "/api/v1/users/"+f.alice.ID.String()+"/loans", f.staff.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/v1/users/"+uuid.NewString()+"/loans", f.staff.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/loans/"+loan.ID.String(), f.bob.ID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, f.alice.ID, decodeData[struct {
		BorrowerID uuid.UUID `json:"borrower_id"`
	}](t, rec).BorrowerID)
	rec = f.do(t, http.MethodGet, "/api/v1/loans/not-a-uuid", f.bob.ID, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMaintenanceRequiresStaff(t *testing.T) {
	f := newAPIFixture(t)
	_, copies := f.addTitle(t, 1)
	path := "/api/v1/copies/" + copies[0].String() + "/maintenance"

	rec := f.do(t, http.MethodPost, path, f.alice.ID, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, path, f.staff.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(enums.CopyStatusMaintenance), decodeData[idBody](t, rec).Status)

	rec = f.do(t, http.MethodPost, path, f.staff.ID, "")
	assert.Equal(t, "STATE_CONFLICT", errorCode(t, rec))

	rec = f.do(t, http.MethodDelete, path, f.staff.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(enums.CopyStatusAvailable), decodeData[idBody](t, rec).Status)
}

func TestCancelReservationAndValidation(t *testing.T) {
	f := newAPIFixture(t)
	titleID, copies := f.addTitle(t, 1)
	f.do(t, http.MethodPost, "/api/v1/copies/"+copies[0].String()+"/checkout", f.alice.ID, "")
	f.do(t, http.MethodPost, "/api/v1/titles/"+titleID.String()+"/reservations", f.bob.ID, "")

	rec := f.do(t, http.MethodDelete, "/api/v1/titles/"+titleID.String()+"/reservations/"+f.bob.ID.String(), f.bob.ID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/v1/titles/"+titleID.String()+"/reservations", f.bob.ID, "")
	assert.Empty(t, decodeData[[]idBody](t, rec))

	rec = f.do(t, http.MethodPost, "/api/v1/copies/not-a-uuid/checkout", f.alice.ID, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/titles", f.staff.ID, `{"title":"","author":"x"}`)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))

	rec = f.do(t, http.MethodPost, "/api/v1/titles", f.alice.ID, `{"title":"x","author":"y"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDashboardActivityAndMe(t *testing.T) {
	f := newAPIFixture(t)
	_, copies := f.addTitle(t, 2)
	f.do(t, http.MethodPost, "/api/v1/copies/"+copies[0].String()+"/checkout", f.alice.ID, "")

	rec := f.do(t, http.MethodGet, "/api/v1/dashboard", f.alice.ID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats := decodeData[struct {
		TotalTitles int `json:"total_titles"`
		TotalUsers  int `json:"total_users"`
		Copies      struct {
			Total      int `json:"total"`
			CheckedOut int `json:"checked_out"`
		} `json:"copies"`
	}](t, rec)
	assert.Equal(t, 1, stats.TotalTitles)
	assert.Equal(t, 4, stats.TotalUsers)
	assert.Equal(t, 2, stats.Copies.Total)
	assert.Equal(t, 1, stats.Copies.CheckedOut)

	rec = f.do(t, http.MethodGet, "/api/v1/activity?limit=1", f.alice.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]idBody](t, rec), 1)

	rec = f.do(t, http.MethodGet, "/api/v1/activity?limit=0", f.alice.ID, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/me", f.alice.ID, "")
	me := decodeData[struct {
		Actions []string `json:"actions"`
	}](t, rec)
	assert.Contains(t, me.Actions, "checkout")
	assert.NotContains(t, me.Actions, "manage_copies")

	rec = f.do(t, http.MethodGet, "/api/v1/users", f.alice.ID, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/v1/users", f.staff.ID, "")
	assert.Len(t, decodeData[[]idBody](t, rec), 4)
}

func TestCheckoutReplaysWithIdempotencyKey(t *testing.T) {
	store := &memoryIdempotency{data: map[string]string{}}
	f := newAPIFixture(t, func(p *Params) { p.Idempotency = store })
	_, copies := f.addTitle(t, 1)
	path := "/api/v1/copies/" + copies[0].String() + "/checkout"

	rec := f.do(t, http.MethodPost, path, f.alice.ID, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "checkout requires a key")

	first := f.do(t, http.MethodPost, path, f.alice.ID, "", middleware.IdempotencyHeader, "k-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := f.do(t, http.MethodPost, path, f.alice.ID, "", middleware.IdempotencyHeader, "k-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, decodeData[idBody](t, first).ID, decodeData[idBody](t, second).ID)
	assert.Equal(t, 1, f.engine.Loans.Len())
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newAPIFixture(t, func(p *Params) {
		p.Gatherer = reg
		p.HTTPMetrics = metrics.NewHTTPMetrics(reg)
	})
	f.do(t, http.MethodGet, "/health/live", uuid.Nil, "")

	rec := f.do(t, http.MethodGet, "/metrics", uuid.Nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `shelftrack_http_request_duration_seconds_count{method="GET",route="/health/live",status="200"} 1`)
}
