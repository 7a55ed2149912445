// Package logging assembles structured slog loggers and formatting helpers used
// across the commissions tooling.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline runs and API requests tag their
// log lines with run and request identifiers. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
package logging
