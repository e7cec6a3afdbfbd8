package api

import (
	"errors"
	"net/http"

	"github.com/okian/gridcast/internal/adapters/export"
	service "github.com/okian/gridcast/internal/app"
	"github.com/okian/gridcast/internal/domain/replay"
	"github.com/okian/gridcast/internal/domain/timeline"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// Error codes carried in error bodies.
const (
	codeBadRequest  = "bad_request"
	codeNotFound    = "not_found"
	codeTooMany     = "too_many_sessions"
	codeUnavailable = "not_ready"
	codeInternal    = "internal"
)

// statusFor maps domain error kinds to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, service.ErrTooManySessions):
		return http.StatusTooManyRequests, codeTooMany
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, codeUnavailable
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, replay.ErrInvalidAcceleration),
		errors.Is(err, replay.ErrNegativeDelta),
		errors.Is(err, timeline.ErrInvalidInterval),
		errors.Is(err, timeline.ErrTooManyWindows),
		errors.Is(err, export.ErrUnknownFormat):
		return http.StatusBadRequest, codeBadRequest
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}
