package catalog

import (
	"fmt"
	"strings"
)

// Status partitions characters into two display groups.
type Status string

const (
	StatusActive Status = "active"
	StatusStale  Status = "stale"
)

// ParseStatus accepts "active" or "stale" in any case. An empty value
// defaults to active.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case "", StatusActive:
		return StatusActive, nil
	case StatusStale:
		return StatusStale, nil
	default:
		return "", fmt.Errorf("unknown character status %q", raw)
	}
}

// Character is a row of the characters table.
type Character struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Status          Status `json:"status"`
	SortOrder       int    `json:"sortOrder"`
	CommissionCount int    `json:"commissionCount"`
}

// Commission is a row of the commissions table joined with its owner's name.
type Commission struct {
	ID            int64    `json:"id"`
	CharacterID   int64    `json:"characterId"`
	CharacterName string   `json:"characterName"`
	FileName      string   `json:"fileName"`
	Links         []string `json:"links"`
	Design        string   `json:"design,omitempty"`
	Description   string   `json:"description,omitempty"`
	Hidden        bool     `json:"hidden"`
}

// CommissionInput carries the writable fields of a commission.
type CommissionInput struct {
	CharacterID int64    `json:"characterId"`
	FileName    string   `json:"fileName"`
	Links       []string `json:"links"`
	Design      string   `json:"design"`
	Description string   `json:"description"`
	Hidden      bool     `json:"hidden"`
}

// Snapshot is everything the admin screen renders.
type Snapshot struct {
	Characters  []Character  `json:"characters"`
	Commissions []Commission `json:"commissions"`
}

// Health reports consistency diagnostics for the catalog database.
type Health struct {
	DBPath             string `json:"db_path"`
	SchemaVersion      int    `json:"schema_version"`
	IntegrityCheck     string `json:"integrity_check"`
	Characters         int    `json:"characters"`
	Commissions        int    `json:"commissions"`
	DenseOrder         bool   `json:"dense_order"`
	PartitionOrdered   bool   `json:"partition_ordered"`
	OrphanCommissions  int    `json:"orphan_commissions"`
	DuplicateSortOrder int    `json:"duplicate_sort_order"`
}

// Consistent reports whether the ordering invariants hold.
func (h Health) Consistent() bool {
	return h.IntegrityCheck == "ok" && h.DenseOrder && h.PartitionOrdered && h.OrphanCommissions == 0
}
