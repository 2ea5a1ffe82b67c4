package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"hanru_board/internal/bilingual"
)

var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrForbidden          = errors.New("forbidden access")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict") // e.g., username already exists
	ErrValidation         = errors.New("validation failed")
	ErrServiceUnavailable = errors.New("service unavailable") // e.g. translator down
	ErrLockFailed         = errors.New("failed to acquire lock")
)

const pgUniqueViolation = "23505"

// statusByError is checked in order; the first sentinel found in the chain wins.
var statusByError = []struct {
	err    error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrBadRequest, http.StatusBadRequest},
	{ErrValidation, http.StatusBadRequest},
	{ErrConflict, http.StatusConflict},
	{ErrLockFailed, http.StatusConflict},
	{ErrServiceUnavailable, http.StatusServiceUnavailable},
	// stored content that cannot be resolved is a data problem, not a client one
	{bilingual.ErrMalformedEntity, http.StatusUnprocessableEntity},
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return m.status
		}
	}

	if IsUniqueViolation(err) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// IsUniqueViolation reports whether err is a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
