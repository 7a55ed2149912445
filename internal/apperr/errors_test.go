package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"commissions/internal/apperr"
)

func TestWrapKeepsMarkerAndCause(t *testing.T) {
	cause := errors.New("disk on fire")
	err := apperr.Wrap(apperr.ErrIO, "encode jpeg", "", cause)

	if !errors.Is(err, apperr.ErrIO) {
		t.Fatalf("expected ErrIO marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain, got %v", err)
	}
	if got := err.Error(); got != "io error: encode jpeg: disk on fire" {
		t.Fatalf("unexpected message %q", got)
	}
	if apperr.Kind(err) != "io" {
		t.Fatalf("expected io kind, got %q", apperr.Kind(err))
	}
}

func TestKindAndHTTPStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		kind   string
		status int
	}{
		{"nil", nil, "", http.StatusOK},
		{"validation", apperr.Validation("Character name is required."), "validation", http.StatusBadRequest},
		{"not found", apperr.NotFound("Character not found."), "not_found", http.StatusNotFound},
		{"database", apperr.Wrap(apperr.ErrDatabase, "reindex", "", errors.New("database is locked")), "database", http.StatusInternalServerError},
		{"constraint", apperr.Wrap(apperr.ErrDatabase, "insert", "", errors.New("CHECK constraint failed: status")), "database", http.StatusConflict},
		{"untagged", errors.New("plain"), "internal", http.StatusInternalServerError},
		{"wrapped twice", fmt.Errorf("outer: %w", apperr.NotFound("gone")), "not_found", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := apperr.Kind(tc.err); got != tc.kind {
				t.Fatalf("Kind = %q, want %q", got, tc.kind)
			}
			if got := apperr.HTTPStatus(tc.err); got != tc.status {
				t.Fatalf("HTTPStatus = %d, want %d", got, tc.status)
			}
		})
	}
}

func TestResultFrom(t *testing.T) {
	ok := apperr.ResultFrom(nil, "Character order updated.")
	if ok.Status != apperr.StatusOK || ok.Message != "Character order updated." || ok.Failed() {
		t.Fatalf("unexpected ok result: %#v", ok)
	}

	failed := apperr.ResultFrom(apperr.Validation("Character name is required."), "unused")
	if !failed.Failed() || failed.Message != "Character name is required." {
		t.Fatalf("unexpected error result: %#v", failed)
	}

	opOnly := apperr.ResultFrom(apperr.Wrap(apperr.ErrDatabase, "delete character", "", errors.New("locked")), "unused")
	if opOnly.Message != "delete character failed" {
		t.Fatalf("expected operation message, got %q", opOnly.Message)
	}
}

func TestResultHTTPStatus(t *testing.T) {
	if got := apperr.OK("fine").HTTPStatus(); got != http.StatusOK {
		t.Fatalf("ok status = %d", got)
	}
	if got := apperr.ResultFrom(apperr.NotFound("Character not found."), "").HTTPStatus(); got != http.StatusNotFound {
		t.Fatalf("not found status = %d", got)
	}
	if got := (apperr.Result{Status: apperr.StatusError}).HTTPStatus(); got != http.StatusInternalServerError {
		t.Fatalf("zero-value error status = %d", got)
	}
}
