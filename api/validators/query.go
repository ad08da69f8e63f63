package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseQueryUUID returns fallback when key is absent and uuid.Nil for "all".
func ParseQueryUUID(r *http.Request, key string, fallback uuid.UUID) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	switch {
	case raw == "":
		return fallback, nil
	case strings.EqualFold(raw, "all"):
		return uuid.Nil, nil
	}
	return parseID(raw, key)
}

// URLParamUUID parses a chi path parameter.
func URLParamUUID(r *http.Request, key string) (uuid.UUID, error) {
	return parseID(strings.TrimSpace(chi.URLParam(r, key)), key)
}

// ParseUUID parses a body field that carries an id.
func ParseUUID(raw, field string) (uuid.UUID, error) {
	return parseID(strings.TrimSpace(raw), field)
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+field).WithDetails(map[string]any{"field": field})
	}
	return id, nil
}
