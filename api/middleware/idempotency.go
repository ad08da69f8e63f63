package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/AarushDarne/shelftrack-webapp/api/responses"
	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
	pkgredis "github.com/AarushDarne/shelftrack-webapp/pkg/redis"
)

const IdempotencyHeader = "Idempotency-Key"

const (
	// claimTTL bounds how long a crashed request can block its key.
	claimTTL = 2 * time.Minute

	// settleTimeout bounds the write that records the outcome. It runs
	// detached from the request so a client that hung up can still replay.
	settleTimeout = 5 * time.Second

	maxGuardedBody = 1 << 20
)

// IdempotencyPolicy says how long a route's responses are replayable and
// whether clients must send a key at all.
type IdempotencyPolicy struct {
	TTL      time.Duration
	Required bool
}

var (
	// CirculationWrites covers checkout, return and reserve.
	CirculationWrites = IdempotencyPolicy{TTL: 7 * 24 * time.Hour, Required: true}
	// CatalogWrites covers the remaining mutations; a key is optional.
	CatalogWrites = IdempotencyPolicy{TTL: 24 * time.Hour}
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// storedResponse is the value kept under an idempotency key. A record with
// InFlight set marks a request that has not finished yet.
type storedResponse struct {
	InFlight    bool   `json:"in_flight,omitempty"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency replays the first response sent for an Idempotency-Key. A nil
// store turns every guard into a pass-through.
type Idempotency struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
}

func NewIdempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) *Idempotency {
	return &Idempotency{store: store, logg: logg}
}

func (i *Idempotency) Guard(policy IdempotencyPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if i == nil || i.store == nil {
				next.ServeHTTP(w, r)
				return
			}
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" {
				if policy.Required {
					i.fail(w, r, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyHeader+" header required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxGuardedBody))
			var tooLarge *http.MaxBytesError
			switch {
			case errors.As(err, &tooLarge):
				i.fail(w, r, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body too large").
					WithDetails(map[string]any{"limit_bytes": tooLarge.Limit}))
				return
			case err != nil:
				i.fail(w, r, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := fingerprint(body)
			key := i.store.IdempotencyKey(scopeOf(r), clientKey)
			claimed, err := i.claim(r, key, hash)
			if err != nil {
				i.fail(w, r, err)
				return
			}
			if !claimed {
				i.replay(w, r, key, hash)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			i.settle(r, key, hash, capture, policy.TTL)
		})
	}
}

func (i *Idempotency) claim(r *http.Request, key, hash string) (bool, error) {
	marker, err := json.Marshal(storedResponse{InFlight: true, RequestHash: hash})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency claim")
	}
	claimed, err := i.store.SetNX(r.Context(), key, string(marker), claimTTL)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key")
	}
	return claimed, nil
}

func (i *Idempotency) replay(w http.ResponseWriter, r *http.Request, key, hash string) {
	raw, err := i.store.Get(r.Context(), key)
	if errors.Is(err, redis.Nil) {
		// The claim expired between SetNX and Get; the client can simply retry.
		i.fail(w, r, pkgerrors.New(pkgerrors.CodeConflict, "idempotent request expired, retry"))
		return
	}
	if err != nil {
		i.fail(w, r, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		i.fail(w, r, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case stored.RequestHash != hash:
		i.fail(w, r, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request body"))
	case stored.InFlight:
		i.fail(w, r, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress"))
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

// settle stores the final response, or releases the key after a server
// error so the client can retry with it.
func (i *Idempotency) settle(r *http.Request, key, hash string, capture *responseCapture, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), settleTimeout)
	defer cancel()
	if capture.status >= http.StatusInternalServerError {
		if err := i.store.Del(ctx, key); err != nil && i.logg != nil {
			i.logg.Error(ctx, "release idempotency key", err)
		}
		return
	}
	status := capture.status
	if status == 0 {
		status = http.StatusOK
	}
	payload, err := json.Marshal(storedResponse{
		RequestHash: hash,
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
	})
	if err == nil {
		err = i.store.Set(ctx, key, string(payload), ttl)
	}
	if err != nil && i.logg != nil {
		i.logg.Error(ctx, "store idempotent response", err)
	}
}

func (i *Idempotency) fail(w http.ResponseWriter, r *http.Request, err error) {
	responses.WriteError(r.Context(), i.logg, w, err)
}

// scopeOf keys records per actor and concrete path so one client key can be
// reused across different copies.
func scopeOf(r *http.Request) string {
	return ActorIDFromContext(r.Context()).String() + "|" + r.Method + "|" + r.URL.Path
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
