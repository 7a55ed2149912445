package testsupport

import (
	"context"
	"testing"

	"commissions/internal/catalog"
	"commissions/internal/config"
	"commissions/internal/logging"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewCharacter creates a character for tests using the provided store.
func NewCharacter(t testing.TB, store *catalog.Store, name string, status catalog.Status) *catalog.Character {
	t.Helper()

	character, err := store.CreateCharacter(context.Background(), name, status)
	if err != nil {
		t.Fatalf("store.CreateCharacter: %v", err)
	}
	return character
}

// NewCommission creates a commission owned by characterID.
func NewCommission(t testing.TB, store *catalog.Store, characterID int64, fileName string) *catalog.Commission {
	t.Helper()

	commission, err := store.CreateCommission(context.Background(), catalog.CommissionInput{
		CharacterID: characterID,
		FileName:    fileName,
		Links:       []string{"https://example.com/" + fileName},
	})
	if err != nil {
		t.Fatalf("store.CreateCommission: %v", err)
	}
	return commission
}
