package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/artype/internal/adapters/repository"
	service "github.com/okian/artype/internal/app"
	"github.com/okian/artype/internal/domain/milestone"
	"github.com/okian/artype/internal/domain/scoring"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrUnavailable = errors.New("service unavailable")
)

// Error records the handler operation that failed, the kind used to choose
// the response status, and the underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap annotates err with op, keeping whatever kind err already carries.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind annotates err with op and classifies it as kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind returns an error of the given kind with no further cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// classify maps an error to a status code and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, scoring.ErrMalformedInput):
		return http.StatusBadRequest, "malformed_input"
	case errors.Is(err, scoring.ErrUnknownVariant):
		return http.StatusBadRequest, "unknown_variant"
	case errors.Is(err, milestone.ErrInvalidInput), errors.Is(err, repository.ErrInvalidID):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, service.ErrNotStarted),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, scoring.ErrInvalidConfiguration):
		return http.StatusInternalServerError, "invalid_configuration"
	}
	return http.StatusInternalServerError, "internal_error"
}

var errTypeCodeAndScores = errors.New("send either type_code or scores, not both")
