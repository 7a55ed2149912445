// Package catalog persists characters and their commissions in SQLite.
//
// Characters carry a status (active or stale) and a sort_order shared across
// the whole table. Reindex rewrites both for a caller-supplied ordering in one
// transaction so readers never see a half-applied drag and drop; single-row
// mutations cover create, rename, and delete (which removes the character's
// commissions in the same transaction).
//
// Every call acquires its own connection from the pool and releases it before
// returning. Writers go through a pool opened with a busy timeout and
// immediate transactions so concurrent writers queue on SQLite's lock rather
// than failing; reads use a separate read-only pool. The database is the only
// source of truth; nothing is cached between calls.
//
// Schema changes bump catalogVersion in schema.go; the version lives in
// PRAGMA user_version.
package catalog
