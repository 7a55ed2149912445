package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
)

// AdminSnapshot reads characters (by sort order, with commission counts) and
// commissions (by owner sort order, then file name descending) on one
// read-only connection.
func (s *Store) AdminSnapshot(ctx context.Context) (Snapshot, error) {
	ctx = ensureContext(ctx)
	var snap Snapshot
	err := s.read(ctx, func(conn *sql.Conn) error {
		characters, err := listCharacters(ctx, conn)
		if err != nil {
			return err
		}
		commissions, err := listCommissions(ctx, conn)
		if err != nil {
			return err
		}
		snap = Snapshot{Characters: characters, Commissions: commissions}
		return nil
	})
	if err != nil {
		return Snapshot{}, dbError("read admin snapshot", err)
	}
	return snap, nil
}

func listCommissions(ctx context.Context, q queryer) ([]Commission, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT commissions.id, commissions.character_id, characters.name, commissions.file_name,
		       commissions.links, commissions.design, commissions.description, commissions.hidden
		FROM commissions
		JOIN characters ON characters.id = commissions.character_id
		ORDER BY characters.sort_order ASC, commissions.file_name DESC`)
	if err != nil {
		return nil, fmt.Errorf("query commissions: %w", err)
	}
	defer rows.Close()

	commissions := []Commission{}
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		commissions = append(commissions, *c)
	}
	return commissions, rows.Err()
}

// CheckHealth returns diagnostic information about the catalog database,
// including whether the ordering invariants currently hold.
func (s *Store) CheckHealth(ctx context.Context) (Health, error) {
	ctx = ensureContext(ctx)
	health := Health{DBPath: s.path}

	info, err := os.Stat(s.path)
	if err != nil {
		return health, fmt.Errorf("stat catalog database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("catalog database path %q is a directory", s.path)
	}

	err = s.read(ctx, func(conn *sql.Conn) error {
		if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&health.SchemaVersion); err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		if err := conn.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&health.IntegrityCheck); err != nil {
			return fmt.Errorf("integrity check: %w", err)
		}

		var (
			distinct int
			minOrder sql.NullInt64
			maxOrder sql.NullInt64
		)
		if err := conn.QueryRowContext(ctx,
			"SELECT COUNT(1), COUNT(DISTINCT sort_order), MIN(sort_order), MAX(sort_order) FROM characters",
		).Scan(&health.Characters, &distinct, &minOrder, &maxOrder); err != nil {
			return fmt.Errorf("inspect sort order: %w", err)
		}
		health.DuplicateSortOrder = health.Characters - distinct
		health.DenseOrder = health.Characters == 0 ||
			(health.DuplicateSortOrder == 0 && minOrder.Int64 == 1 && maxOrder.Int64 == int64(health.Characters))

		var inversions int
		if err := conn.QueryRowContext(ctx, `
			SELECT COUNT(1) FROM characters stale
			JOIN characters active ON active.status = 'active'
			WHERE stale.status = 'stale' AND stale.sort_order < active.sort_order`,
		).Scan(&inversions); err != nil {
			return fmt.Errorf("inspect partitions: %w", err)
		}
		health.PartitionOrdered = inversions == 0

		if err := conn.QueryRowContext(ctx, "SELECT COUNT(1) FROM commissions").Scan(&health.Commissions); err != nil {
			return fmt.Errorf("count commissions: %w", err)
		}
		if err := conn.QueryRowContext(ctx, `
			SELECT COUNT(1) FROM commissions
			LEFT JOIN characters ON characters.id = commissions.character_id
			WHERE characters.id IS NULL`,
		).Scan(&health.OrphanCommissions); err != nil {
			return fmt.Errorf("count orphan commissions: %w", err)
		}
		return nil
	})
	if err != nil {
		return health, dbError("check catalog health", err)
	}
	return health, nil
}
