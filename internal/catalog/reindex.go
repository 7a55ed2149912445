package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"commissions/internal/apperr"
	"commissions/internal/logging"
)

// Reindex rewrites sort order and status for every listed character in one
// transaction. The lists are concatenated, active first; the character at
// position i (0-based) gets sort_order i+1 and the status of the list it came
// from.
//
// Lists with a non-positive id, a repeated id, or an id present in both lists
// are rejected before any write. An id that matches no row aborts the whole
// transaction with a not-found error. Characters missing from both lists keep
// their previous order and status; that leaves the ordering non-dense, so it
// is logged as a warning.
func (s *Store) Reindex(ctx context.Context, active, stale []int64) error {
	ctx = ensureContext(ctx)
	if err := s.ensureWritable(); err != nil {
		return err
	}
	if err := validateOrder(active, stale); err != nil {
		return err
	}

	combined := make([]int64, 0, len(active)+len(stale))
	combined = append(combined, active...)
	combined = append(combined, stale...)

	var total int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "UPDATE characters SET sort_order = ?, status = ? WHERE id = ?")
		if err != nil {
			return fmt.Errorf("prepare reindex: %w", err)
		}
		defer stmt.Close()

		for i, id := range combined {
			status := StatusActive
			if i >= len(active) {
				status = StatusStale
			}
			res, err := stmt.ExecContext(ctx, i+1, string(status), id)
			if err != nil {
				return fmt.Errorf("reindex character %d: %w", id, err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return apperr.NotFound(fmt.Sprintf("Character %d not found.", id))
			}
		}
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM characters").Scan(&total); err != nil {
			return fmt.Errorf("count characters: %w", err)
		}
		return nil
	})
	if err != nil {
		return dbError("reindex characters", err)
	}

	logger := logging.WithContext(ctx, s.logger)
	if untouched := total - len(combined); untouched > 0 {
		logging.WarnWithContext(logger, "character order is partial", "reindex_partial",
			logging.Int("listed", len(combined)),
			logging.Int("untouched", untouched),
			logging.String(logging.FieldErrorHint, "send the full membership of both groups"),
			logging.String(logging.FieldImpact, "sort order may contain duplicates or gaps"),
		)
	}
	logger.Info("characters reindexed",
		logging.Int("active", len(active)),
		logging.Int("stale", len(stale)),
	)
	return nil
}

func validateOrder(active, stale []int64) error {
	seen := make(map[int64]struct{}, len(active)+len(stale))
	for _, list := range [][]int64{active, stale} {
		for _, id := range list {
			if id <= 0 {
				return apperr.Validation("Invalid character order payload.")
			}
			if _, dup := seen[id]; dup {
				return apperr.Validation(fmt.Sprintf("Character %d appears more than once in the order.", id))
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}
