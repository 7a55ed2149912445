// Package pipelinejob wraps an image pipeline run in an explicit job with
// observable status.
//
// Every Run gets a fresh run ID, holds an exclusive file lock for its
// duration so the CLI and the admin server never convert the same tree at
// once, regenerates the derivative index, and records the outcome. Runs are
// serialized, never coalesced: two triggers produce two runs.
package pipelinejob
