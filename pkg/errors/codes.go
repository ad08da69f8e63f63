package errors

import "net/http"

// Code is the machine-readable error identifier returned to API clients.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"

	// Circulation rejections.
	CodeConflict             Code = "CONFLICT"
	CodeStateConflict        Code = "STATE_CONFLICT"
	CodeNotAvailable         Code = "NOT_AVAILABLE"
	CodeNotCheckedOut        Code = "NOT_CHECKED_OUT"
	CodeDuplicateReservation Code = "DUPLICATE_RESERVATION"
)

// Metadata is how a code surfaces over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var codeTable = map[Code]Metadata{
	CodeValidation:   {http.StatusBadRequest, false, "validation failed", true},
	CodeUnauthorized: {http.StatusUnauthorized, false, "authentication required", false},
	CodeForbidden:    {http.StatusForbidden, false, "access denied", false},
	CodeNotFound:     {http.StatusNotFound, false, "resource not found", false},
	CodeIdempotency:  {http.StatusConflict, false, "idempotency key reused", true},
	CodeInternal:     {http.StatusInternalServerError, true, "internal server error", false},
	CodeDependency:   {http.StatusServiceUnavailable, true, "dependency unavailable", true},

	// Lost a compare-and-set against a copy version; retry with fresh state.
	CodeConflict:             {http.StatusConflict, true, "conflict detected", true},
	CodeStateConflict:        {http.StatusUnprocessableEntity, false, "state transition disallowed", true},
	CodeNotAvailable:         {http.StatusConflict, false, "copy not available", true},
	CodeNotCheckedOut:        {http.StatusConflict, false, "copy is not checked out", true},
	CodeDuplicateReservation: {http.StatusConflict, false, "reservation already exists", true},
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	meta, ok := codeTable[code]
	if !ok {
		return codeTable[CodeInternal]
	}
	return meta
}

// ClientFault reports whether the code describes a rejected request rather
// than a server failure.
func (c Code) ClientFault() bool {
	return MetadataFor(c).HTTPStatus < http.StatusInternalServerError
}
