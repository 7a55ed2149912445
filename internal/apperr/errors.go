// Package apperr defines the error taxonomy shared by the store, the image
// pipeline, and the admin surfaces.
//
// Errors are tagged with one of the sentinel markers below via Wrap and later
// classified with Kind or errors.Is. Boundaries convert them into a Result so
// callers always see {status, message} rather than a raw error.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrIO         = errors.New("io error")
	ErrDatabase   = errors.New("database error")
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above; nil defaults to ErrDatabase.
//
// The user-facing message is kept separate so Message can return it without
// exposing the wrapped cause.
func Wrap(marker error, operation, message string, err error) error {
	if marker == nil {
		marker = ErrDatabase
	}
	return &taggedError{
		marker:    marker,
		operation: strings.TrimSpace(operation),
		message:   strings.TrimSpace(message),
		cause:     err,
	}
}

// Validation is shorthand for a validation failure with a user-facing message.
func Validation(message string) error {
	return Wrap(ErrValidation, "", message, nil)
}

// NotFound is shorthand for a missing-resource failure.
func NotFound(message string) error {
	return Wrap(ErrNotFound, "", message, nil)
}

type taggedError struct {
	marker    error
	operation string
	message   string
	cause     error
}

func (e *taggedError) Error() string {
	parts := make([]string, 0, 4)
	parts = append(parts, e.marker.Error())
	if e.operation != "" {
		parts = append(parts, e.operation)
	}
	if e.message != "" {
		parts = append(parts, e.message)
	}
	if e.cause != nil {
		parts = append(parts, e.cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *taggedError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.marker}
	}
	return []error{e.marker, e.cause}
}

// Kind returns a short classification for err: "validation", "not_found",
// "io", "database", or "internal" for untagged errors.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrIO):
		return "io"
	case errors.Is(err, ErrDatabase):
		return "database"
	default:
		return "internal"
	}
}

// Message returns the message safe to show an admin. Tagged errors prefer
// their user-facing text, then "<operation> failed".
func Message(err error) string {
	if err == nil {
		return ""
	}
	var tagged *taggedError
	if errors.As(err, &tagged) {
		switch {
		case tagged.message != "":
			return tagged.message
		case tagged.operation != "":
			return fmt.Sprintf("%s failed", tagged.operation)
		}
	}
	return err.Error()
}

// HTTPStatus maps err onto the status code the admin API answers with.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case "":
		return http.StatusOK
	case "validation":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "database":
		if IsConstraint(err) {
			return http.StatusConflict
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// IsConstraint reports whether err carries an SQLite constraint violation.
func IsConstraint(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "constraint failed") || strings.Contains(err.Error(), "SQLITE_CONSTRAINT")
}
