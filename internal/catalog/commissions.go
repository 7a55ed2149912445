package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"commissions/internal/apperr"
	"commissions/internal/logging"
)

func normalizeCommission(in CommissionInput) (CommissionInput, string, error) {
	if in.CharacterID <= 0 {
		return in, "", apperr.Validation("Character selection is required.")
	}
	in.FileName = strings.TrimSpace(in.FileName)
	if in.FileName == "" {
		return in, "", apperr.Validation("File name is required.")
	}
	links := make([]string, 0, len(in.Links))
	for _, link := range in.Links {
		if link = strings.TrimSpace(link); link != "" {
			links = append(links, link)
		}
	}
	in.Links = links
	in.Design = strings.TrimSpace(in.Design)
	in.Description = strings.TrimSpace(in.Description)

	encoded, err := json.Marshal(links)
	if err != nil {
		return in, "", fmt.Errorf("encode links: %w", err)
	}
	return in, string(encoded), nil
}

// characterName looks up the owner of a commission inside tx.
func characterName(ctx context.Context, tx *sql.Tx, id int64) (string, error) {
	var name string
	err := tx.QueryRowContext(ctx, "SELECT name FROM characters WHERE id = ?", id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFound("Selected character does not exist.")
	}
	if err != nil {
		return "", fmt.Errorf("lookup character: %w", err)
	}
	return name, nil
}

// CreateCommission inserts a commission after checking that its character
// exists.
func (s *Store) CreateCommission(ctx context.Context, in CommissionInput) (*Commission, error) {
	ctx = ensureContext(ctx)
	if err := s.ensureWritable(); err != nil {
		return nil, err
	}
	in, links, err := normalizeCommission(in)
	if err != nil {
		return nil, err
	}

	commission := &Commission{
		CharacterID: in.CharacterID,
		FileName:    in.FileName,
		Links:       in.Links,
		Design:      in.Design,
		Description: in.Description,
		Hidden:      in.Hidden,
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		name, err := characterName(ctx, tx, in.CharacterID)
		if err != nil {
			return err
		}
		commission.CharacterName = name
		res, err := tx.ExecContext(ctx, `
			INSERT INTO commissions (character_id, file_name, links, design, description, hidden)
			VALUES (?, ?, ?, ?, ?, ?)`,
			in.CharacterID, in.FileName, links, nullableString(in.Design), nullableString(in.Description), boolToInt(in.Hidden),
		)
		if err != nil {
			return fmt.Errorf("insert commission: %w", err)
		}
		commission.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, dbError("create commission", err)
	}
	s.logger.Info("commission created",
		logging.Int64("commission_id", commission.ID),
		logging.Int64("character_id", commission.CharacterID),
		logging.String("file_name", commission.FileName),
	)
	return commission, nil
}

// UpdateCommission replaces every writable field of commission id.
func (s *Store) UpdateCommission(ctx context.Context, id int64, in CommissionInput) (*Commission, error) {
	ctx = ensureContext(ctx)
	if err := s.ensureWritable(); err != nil {
		return nil, err
	}
	in, links, err := normalizeCommission(in)
	if err != nil {
		return nil, err
	}

	commission := &Commission{
		ID:          id,
		CharacterID: in.CharacterID,
		FileName:    in.FileName,
		Links:       in.Links,
		Design:      in.Design,
		Description: in.Description,
		Hidden:      in.Hidden,
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		name, err := characterName(ctx, tx, in.CharacterID)
		if err != nil {
			return err
		}
		commission.CharacterName = name
		res, err := tx.ExecContext(ctx, `
			UPDATE commissions
			SET character_id = ?, file_name = ?, links = ?, design = ?, description = ?, hidden = ?
			WHERE id = ?`,
			in.CharacterID, in.FileName, links, nullableString(in.Design), nullableString(in.Description), boolToInt(in.Hidden), id,
		)
		if err != nil {
			return fmt.Errorf("update commission: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return apperr.NotFound("Commission not found.")
		}
		return nil
	})
	if err != nil {
		return nil, dbError("update commission", err)
	}
	s.logger.Info("commission updated", logging.Int64("commission_id", id))
	return commission, nil
}

// DeleteCommission removes a single commission.
func (s *Store) DeleteCommission(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	if err := s.ensureWritable(); err != nil {
		return err
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM commissions WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete commission: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return apperr.NotFound("Commission not found.")
		}
		return nil
	})
	if err != nil {
		return dbError("delete commission", err)
	}
	s.logger.Info("commission deleted", logging.Int64("commission_id", id))
	return nil
}

func scanCommission(scanner interface{ Scan(dest ...any) error }) (*Commission, error) {
	var (
		c           Commission
		links       string
		design      sql.NullString
		description sql.NullString
		hidden      int
	)
	if err := scanner.Scan(&c.ID, &c.CharacterID, &c.CharacterName, &c.FileName, &links, &design, &description, &hidden); err != nil {
		return nil, err
	}
	c.Links = []string{}
	if strings.TrimSpace(links) != "" {
		if err := json.Unmarshal([]byte(links), &c.Links); err != nil {
			return nil, fmt.Errorf("decode links for commission %d: %w", c.ID, err)
		}
	}
	c.Design = design.String
	c.Description = description.String
	c.Hidden = hidden != 0
	return &c, nil
}
