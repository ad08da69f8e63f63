package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.data[key], _ = value.(string)
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

var checkoutPath = "/api/v1/copies/" + uuid.NewString() + "/checkout"

func actorRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	ctx := WithActor(req.Context(), uuid.MustParse("00000000-0000-0000-0000-000000000001"), enums.RoleStaff, uuid.Nil)
	return req.WithContext(ctx)
}

func keyed(req *http.Request, key string) *http.Request {
	req.Header.Set(IdempotencyHeader, key)
	return req
}

func TestGuardRequiresKeyOnCirculationWrites(t *testing.T) {
	guard := NewIdempotency(newFakeStore(), nil).Guard(CirculationWrites)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	guard(handler).ServeHTTP(resp, actorRequest(http.MethodPost, checkoutPath, `{}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestGuardWithoutStorePassesThrough(t *testing.T) {
	guard := NewIdempotency(nil, nil).Guard(CirculationWrites)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	})
	guard(handler).ServeHTTP(httptest.NewRecorder(), actorRequest(http.MethodPost, checkoutPath, `{}`))
	if calls != 1 {
		t.Fatalf("expected handler to run without a store, got %d calls", calls)
	}
}

func TestGuardOptionalKeyPassesThrough(t *testing.T) {
	guard := NewIdempotency(newFakeStore(), nil).Guard(CatalogWrites)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})
	for i := 0; i < 2; i++ {
		guard(handler).ServeHTTP(httptest.NewRecorder(), actorRequest(http.MethodPost, "/api/v1/titles", `{"title":"x"}`))
	}
	if calls != 2 {
		t.Fatalf("expected both requests to reach the handler, got %d", calls)
	}
}

func TestGuardReplaysStoredResponse(t *testing.T) {
	guard := NewIdempotency(newFakeStore(), nil).Guard(CirculationWrites)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	resp := httptest.NewRecorder()
	guard(handler).ServeHTTP(resp, keyed(actorRequest(http.MethodPost, checkoutPath, `{"borrower_id":"b"}`), "abc"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", resp.Code)
	}

	rec := httptest.NewRecorder()
	guard(handler).ServeHTTP(rec, keyed(actorRequest(http.MethodPost, checkoutPath, `{"borrower_id":"b"}`), "abc"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if rec.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay marker header")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestGuardReleasesKeyAfterServerError(t *testing.T) {
	store := newFakeStore()
	guard := NewIdempotency(store, nil).Guard(CirculationWrites)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	for i := 0; i < 2; i++ {
		guard(handler).ServeHTTP(httptest.NewRecorder(), keyed(actorRequest(http.MethodPost, checkoutPath, `{}`), "retry-me"))
	}
	if calls != 2 {
		t.Fatalf("expected retry to reach the handler, got %d calls", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected key to be released, store=%v", store.data)
	}
}

func TestGuardStoresClientRejections(t *testing.T) {
	guard := NewIdempotency(newFakeStore(), nil).Guard(CirculationWrites)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusConflict)
	})
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		guard(handler).ServeHTTP(rec, keyed(actorRequest(http.MethodPost, checkoutPath, `{}`), "taken"))
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409 got %d", rec.Code)
		}
	}
	if calls != 1 {
		t.Fatalf("expected the rejection to be replayed, got %d calls", calls)
	}
}

func TestGuardRejectsConcurrentDuplicate(t *testing.T) {
	store := newFakeStore()
	guard := NewIdempotency(store, nil).Guard(CirculationWrites)

	var inner *httptest.ResponseRecorder
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A retry arriving while the first request is still running.
		inner = httptest.NewRecorder()
		guard(http.NotFoundHandler()).ServeHTTP(inner, keyed(actorRequest(http.MethodPost, checkoutPath, `{}`), "dup"))
		w.WriteHeader(http.StatusCreated)
	})
	guard(handler).ServeHTTP(httptest.NewRecorder(), keyed(actorRequest(http.MethodPost, checkoutPath, `{}`), "dup"))

	if inner == nil || inner.Code != http.StatusConflict {
		t.Fatalf("expected in-flight duplicate to get 409, got %v", inner)
	}
	if got := errorCode(t, inner); got != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected %s got %s", pkgerrors.CodeIdempotency, got)
	}
}

func TestGuardDetectsBodyChange(t *testing.T) {
	guard := NewIdempotency(newFakeStore(), nil).Guard(CirculationWrites)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	guard(handler).ServeHTTP(httptest.NewRecorder(), keyed(actorRequest(http.MethodPost, checkoutPath, `{"borrower_id":"a"}`), "xyz"))

	resp := httptest.NewRecorder()
	guard(handler).ServeHTTP(resp, keyed(actorRequest(http.MethodPost, checkoutPath, `{"borrower_id":"b"}`), "xyz"))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if got := errorCode(t, resp); got != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, got)
	}
}

// cancelAwareStore fails writes once the caller's context is done, the way
// go-redis does.
type cancelAwareStore struct {
	*fakeStore
}

func (c cancelAwareStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.fakeStore.Set(ctx, key, value, ttl)
}

func (c cancelAwareStore) Del(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.fakeStore.Del(ctx, keys...)
}

func TestGuardSettlesAfterClientDisconnect(t *testing.T) {
	store := cancelAwareStore{fakeStore: newFakeStore()}
	guard := NewIdempotency(store, nil).Guard(CirculationWrites)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := keyed(actorRequest(http.MethodPost, checkoutPath, `{"borrower_id":"b"}`), "gone")
	first = first.WithContext(WithActor(ctx, uuid.MustParse("00000000-0000-0000-0000-000000000001"), enums.RoleStaff, uuid.Nil))
	hangUp := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
		cancel()
	})
	guard(hangUp).ServeHTTP(httptest.NewRecorder(), first)

	retry := httptest.NewRecorder()
	guard(handler).ServeHTTP(retry, keyed(actorRequest(http.MethodPost, checkoutPath, `{"borrower_id":"b"}`), "gone"))
	if retry.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d: %s", retry.Code, retry.Body.String())
	}
	if retry.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected the retry to be served from the stored response")
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestGuardRejectsOversizedBody(t *testing.T) {
	guard := NewIdempotency(newFakeStore(), nil).Guard(CirculationWrites)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	body := strings.Repeat("a", maxGuardedBody+1)
	resp := httptest.NewRecorder()
	guard(handler).ServeHTTP(resp, keyed(actorRequest(http.MethodPost, checkoutPath, body), "big"))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if got := errorCode(t, resp); got != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected %s got %s", pkgerrors.CodeValidation, got)
	}
	if calls != 0 {
		t.Fatalf("handler should not run for an oversized body")
	}
}
