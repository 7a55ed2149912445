// Package adminapi exposes the admin write path and the pipeline job over a
// small JSON API routed with chi.
//
// Mutations answer {status, message} with an HTTP status derived from the
// error kind (400 validation, 404 not found, 409 constraint, 500 otherwise).
// The pipeline run a mutation triggers never changes that answer. Requests
// carry an X-Request-ID that is echoed back and attached to log lines, and
// request counts and latencies are exported on /metrics.
package adminapi
