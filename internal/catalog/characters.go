package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"commissions/internal/apperr"
	"commissions/internal/logging"
)

const characterColumns = "characters.id, characters.name, characters.status, characters.sort_order"

// normalizeName trims surrounding whitespace and composes the name to NFC so
// visually identical names compare equal.
func normalizeName(raw string) (string, error) {
	name := norm.NFC.String(strings.TrimSpace(raw))
	if name == "" {
		return "", apperr.Validation("Character name is required.")
	}
	return name, nil
}

func validateStatus(status Status) (Status, error) {
	parsed, err := ParseStatus(string(status))
	if err != nil {
		return "", apperr.Validation("Invalid character status.")
	}
	return parsed, nil
}

// CreateCharacter appends a character after the current highest sort order.
// An empty status defaults to active.
func (s *Store) CreateCharacter(ctx context.Context, name string, status Status) (*Character, error) {
	ctx = ensureContext(ctx)
	if err := s.ensureWritable(); err != nil {
		return nil, err
	}
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	status, err = validateStatus(status)
	if err != nil {
		return nil, err
	}

	character := &Character{Name: name, Status: status}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(sort_order), 0) + 1 FROM characters").Scan(&next); err != nil {
			return fmt.Errorf("read max sort order: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO characters (name, status, sort_order) VALUES (?, ?, ?)",
			name, string(status), next,
		)
		if err != nil {
			return fmt.Errorf("insert character: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		character.ID = id
		character.SortOrder = next
		return nil
	})
	if err != nil {
		return nil, dbError("create character", err)
	}
	s.logger.Info("character created",
		logging.Int64("character_id", character.ID),
		logging.String("name", character.Name),
		logging.Int("sort_order", character.SortOrder),
	)
	return character, nil
}

// RenameCharacter updates name and status in place; sort order is untouched.
func (s *Store) RenameCharacter(ctx context.Context, id int64, name string, status Status) error {
	ctx = ensureContext(ctx)
	if err := s.ensureWritable(); err != nil {
		return err
	}
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	status, err = validateStatus(status)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE characters SET name = ?, status = ? WHERE id = ?",
			name, string(status), id,
		)
		if err != nil {
			return fmt.Errorf("update character: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return apperr.NotFound("Character not found.")
		}
		return nil
	})
	if err != nil {
		return dbError("update character", err)
	}
	s.logger.Info("character updated", logging.Int64("character_id", id), logging.String("status", string(status)))
	return nil
}

// DeleteCharacter removes the character and every commission that references
// it in a single transaction. It returns the number of commissions removed.
func (s *Store) DeleteCharacter(ctx context.Context, id int64) (int64, error) {
	ctx = ensureContext(ctx)
	if err := s.ensureWritable(); err != nil {
		return 0, err
	}

	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var name string
		err := tx.QueryRowContext(ctx, "SELECT name FROM characters WHERE id = ?", id).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("Character not found.")
		}
		if err != nil {
			return fmt.Errorf("lookup character: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM commissions WHERE character_id = ?", id)
		if err != nil {
			return fmt.Errorf("delete commissions: %w", err)
		}
		removed, _ = res.RowsAffected()
		if _, err := tx.ExecContext(ctx, "DELETE FROM characters WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete character: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, dbError("delete character", err)
	}
	s.logger.Info("character deleted",
		logging.Int64("character_id", id),
		logging.Int64("commissions_removed", removed),
	)
	return removed, nil
}

// GetCharacter returns one character with its commission count.
func (s *Store) GetCharacter(ctx context.Context, id int64) (*Character, error) {
	ctx = ensureContext(ctx)
	var character *Character
	err := s.read(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, `
			SELECT `+characterColumns+`, COUNT(commissions.id)
			FROM characters
			LEFT JOIN commissions ON commissions.character_id = characters.id
			WHERE characters.id = ?
			GROUP BY characters.id`, id)
		c, err := scanCharacter(row)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("Character not found.")
		}
		if err != nil {
			return err
		}
		character = c
		return nil
	})
	if err != nil {
		return nil, dbError("get character", err)
	}
	return character, nil
}

// ListCharacters returns every character ordered by sort order, with
// commission counts.
func (s *Store) ListCharacters(ctx context.Context) ([]Character, error) {
	ctx = ensureContext(ctx)
	var characters []Character
	err := s.read(ctx, func(conn *sql.Conn) error {
		var err error
		characters, err = listCharacters(ctx, conn)
		return err
	})
	if err != nil {
		return nil, dbError("list characters", err)
	}
	return characters, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listCharacters(ctx context.Context, q queryer) ([]Character, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+characterColumns+`, COUNT(commissions.id)
		FROM characters
		LEFT JOIN commissions ON commissions.character_id = characters.id
		GROUP BY characters.id
		ORDER BY characters.sort_order ASC, characters.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}
	defer rows.Close()

	characters := []Character{}
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		characters = append(characters, *c)
	}
	return characters, rows.Err()
}

func scanCharacter(scanner interface{ Scan(dest ...any) error }) (*Character, error) {
	var (
		c      Character
		status string
	)
	if err := scanner.Scan(&c.ID, &c.Name, &status, &c.SortOrder, &c.CommissionCount); err != nil {
		return nil, err
	}
	c.Status = Status(status)
	return &c, nil
}
