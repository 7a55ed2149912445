package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// catalogVersion is stored in PRAGMA user_version.
const catalogVersion = 1

// ErrSchemaMismatch is returned by Open when the file was written by a
// different catalog layout.
var ErrSchemaMismatch = errors.New("catalog schema mismatch")

// migrate stamps a fresh file with catalogVersion and refuses any other
// version. A zero user_version means nothing has been written yet.
func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read catalog version: %w", err)
	}
	switch version {
	case catalogVersion:
		return nil
	case 0:
	default:
		return fmt.Errorf("%w: file is at v%d, this build reads v%d; restore a matching backup",
			ErrSchemaMismatch, version, catalogVersion)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog setup: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create catalog tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", catalogVersion)); err != nil {
		return fmt.Errorf("stamp catalog version: %w", err)
	}
	return tx.Commit()
}
