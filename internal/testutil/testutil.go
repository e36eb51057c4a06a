// Package testutil provides shared test helpers for setting up stores and
// seeded accounts.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/starford/wunjo/internal/models"
	"github.com/starford/wunjo/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "wunjo-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// SeedUser inserts a user with a throwaway password hash and returns it.
func SeedUser(t *testing.T, db *store.DB, email string) models.User {
	t.Helper()
	u := models.User{
		ID:        models.NewID(),
		Email:     models.NormalizeEmail(email),
		CreatedAt: time.Now().UTC(),
	}
	if err := db.CreateUser(context.Background(), u, "test-hash"); err != nil {
		t.Fatal(err)
	}
	return u
}
