package preflight

import (
	"errors"
	"fmt"
	"os"

	"commissions/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every filesystem check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Images directory", cfg.Paths.ImagesDir),
	}

	// The derivative directory is created by the pipeline, so only check it
	// once it exists.
	if _, err := os.Stat(cfg.WebPDir()); err == nil {
		results = append(results, CheckDirectoryAccess("Derivative directory", cfg.WebPDir()))
	}

	results = append(results, CheckDatabaseFile("Database", cfg.Paths.DatabasePath, cfg.Database.Writable))

	if cfg.Paths.LockDir != "" {
		results = append(results, CheckDirectoryAccess("Lock directory", cfg.Paths.LockDir))
	}
	return results
}

// FirstFailure returns an error describing the first failed result, or nil.
func FirstFailure(results []Result) error {
	for _, r := range results {
		if !r.Passed {
			return fmt.Errorf("%s: %s", r.Name, r.Detail)
		}
	}
	return nil
}

// ErrNotReady marks errors produced from failed preflight checks.
var ErrNotReady = errors.New("preflight check failed")

// Require runs a single check and converts a failure into an error wrapping
// ErrNotReady.
func Require(r Result) error {
	if r.Passed {
		return nil
	}
	return fmt.Errorf("%w: %s: %s", ErrNotReady, r.Name, r.Detail)
}
