// Package apperr defines the error kinds shared by the domain packages and
// their mapping to HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrInvalid     = errors.New("invalid request")
	ErrPersistence = errors.New("persistence failure")
)

// Error carries a client-safe message and the kind it belongs to.
type Error struct {
	Kind  error
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Cause }

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...interface{}) error {
	return &Error{Kind: ErrInvalid, Msg: fmt.Sprintf(format, args...)}
}

// Persistence wraps a store failure. Only op is shown to clients.
func Persistence(op string, cause error) error {
	return &Error{Kind: ErrPersistence, Msg: op, Cause: cause}
}

const uniqueViolation = "23505"

// FromDB classifies an error returned by pgx. entity names the record in the
// client message. Errors already classified pass through unchanged.
func FromDB(err error, entity string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound("%s not found", entity)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &Error{Kind: ErrConflict, Msg: entity + " already exists", Cause: err}
	}
	return Persistence(entity+" storage failure", err)
}

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HTTPError converts err to an echo.HTTPError. Server errors get a generic
// message; the original error is kept as Internal for logging.
func HTTPError(err error) *echo.HTTPError {
	status := Status(err)
	if status >= http.StatusInternalServerError {
		return echo.NewHTTPError(status, "internal server error").SetInternal(err)
	}
	msg := err.Error()
	var ae *Error
	if errors.As(err, &ae) {
		msg = ae.Msg
	}
	return echo.NewHTTPError(status, msg)
}
