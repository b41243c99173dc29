// Package testutil provides shared test helpers for setting up databases,
// upload directories and seed users.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/starford/notedrop/internal/auth"
	"github.com/starford/notedrop/internal/models"
	"github.com/starford/notedrop/internal/storage"
	"github.com/starford/notedrop/internal/store"
)

// TestDB creates a migrated temporary SQLite database that is automatically
// cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "notedrop-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(context.Background(), "sqlite3", dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	return db
}

// TestUploads creates a temporary upload directory with a storage provider.
func TestUploads(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// CreateUser inserts a user whose password is "password-" + username.
func CreateUser(t *testing.T, repo store.Repository, username string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword("password-" + username)
	if err != nil {
		t.Fatal(err)
	}
	u := &models.User{Username: username, Email: username + "@example.com", PasswordHash: hash}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

// CountFiles returns the number of entries in dir.
func CountFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}
