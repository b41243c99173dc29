package store

import (
	"context"
	"errors"
	"os"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notedrop/internal/apperr"
	"github.com/starford/notedrop/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "notedrop-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(context.Background(), "sqlite3", f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func mustUser(t *testing.T, db *DB, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{
		"sqlite": DialectSQLite, "sqlite3": DialectSQLite,
		"postgresql": DialectPostgres, "postgres": DialectPostgres, "pgx": DialectPostgres,
	} {
		got, err := ParseDialect(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDialect("mysql")
	assert.Error(t, err)
}

func TestMigrateTwice(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Migrate())
}

func TestCreateUserDuplicates(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := mustUser(t, db, "alice")
	assert.NotZero(t, alice.ID)

	err := db.CreateUser(ctx, &models.User{Username: "alice", Email: "other@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, apperr.ErrDuplicateUsername)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	err = db.CreateUser(ctx, &models.User{Username: "alice2", Email: "alice@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, apperr.ErrDuplicateEmail)

	_, err = db.UserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSearchUsers(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := mustUser(t, db, "alice")
	mustUser(t, db, "Alicia")
	mustUser(t, db, "bob")
	mustUser(t, db, "al_x")

	got, err := db.SearchUsers(ctx, "ALI", alice.ID, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alicia", got[0].Username)

	got, err = db.SearchUsers(ctx, "l_", 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 1, "underscore must match literally")
	assert.Equal(t, "al_x", got[0].Username)

	got, err = db.SearchUsers(ctx, "", 0, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestNoteLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := mustUser(t, db, "alice")

	n := &models.Note{Title: "Plan", Content: "step 1", UserID: alice.ID}
	require.NoError(t, db.CreateNote(ctx, n))
	pub := &models.Note{Title: "Hello", Content: "world", UserID: alice.ID, IsPublic: true}
	require.NoError(t, db.CreateNote(ctx, pub))

	n.Content = "step 2"
	n.IsPublic = true
	require.NoError(t, db.UpdateNote(ctx, n))

	got, err := db.NoteByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "step 2", got.Content)
	assert.True(t, got.IsPublic)

	public, err := db.PublicNotes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, pub.ID, public[0].ID, "newest first")

	owned, err := db.NotesByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, n.ID, owned[0].ID, "most recently updated first")

	require.NoError(t, db.DeleteNote(ctx, n.ID))
	_, err = db.NoteByID(ctx, n.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, db.DeleteNote(ctx, n.ID), apperr.ErrNotFound)
	assert.ErrorIs(t, db.UpdateNote(ctx, n), apperr.ErrNotFound)
}

func TestNoteShareUnique(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")
	n := &models.Note{Title: "Plan", Content: "x", UserID: alice.ID}
	require.NoError(t, db.CreateNote(ctx, n))

	share := func() error {
		return db.CreateNoteShare(ctx, &models.NoteShare{NoteID: n.ID, SharedWithUserID: bob.ID, SharedByUserID: alice.ID})
	}
	require.NoError(t, share())
	assert.ErrorIs(t, share(), apperr.ErrAlreadyShared)

	ids, err := db.NoteGrantees(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{bob.ID}, ids)

	grants, err := db.NoteShares(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "bob", grants[0].Username)

	shared, err := db.NotesSharedWith(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, n.ID, shared[0].ID)

	require.NoError(t, db.DeleteNoteShare(ctx, n.ID, bob.ID))
	assert.ErrorIs(t, db.DeleteNoteShare(ctx, n.ID, bob.ID), apperr.ErrNotFound)
	require.NoError(t, share(), "grant can be recreated after revoke")
}

func seedFolder(t *testing.T, db *DB, owner int64, files ...string) (*models.Folder, []models.File) {
	t.Helper()
	ctx := context.Background()
	f := &models.Folder{Name: "Inbox", UserID: owner, IsPublic: true, AllowFileDrop: true}
	require.NoError(t, db.CreateFolder(ctx, f))
	batch := make([]models.File, 0, len(files))
	for _, name := range files {
		batch = append(batch, models.File{
			Filename: name, OriginalFilename: name, Filepath: name, FileSize: 1,
			FolderID: f.ID, UploadedBy: models.AnonymousUploader,
		})
	}
	if len(batch) > 0 {
		require.NoError(t, db.CreateFiles(ctx, batch))
	}
	return f, batch
}

func TestDeleteFolderCascade(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")
	folder, files := seedFolder(t, db, alice.ID, "a.txt", "b.txt")
	require.NoError(t, db.CreateFolderShare(ctx, &models.FolderShare{FolderID: folder.ID, SharedWithUserID: bob.ID, SharedByUserID: alice.ID}))

	listed, err := db.FilesInFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	hookErr := errors.New("bytes still in use")
	err = db.DeleteFolder(ctx, folder.ID, func([]models.File) error { return hookErr })
	assert.ErrorIs(t, err, hookErr)
	_, err = db.FolderByID(ctx, folder.ID)
	require.NoError(t, err, "failed hook must roll back")
	ids, _ := db.FolderGrantees(ctx, folder.ID)
	assert.Len(t, ids, 1)

	var removed []models.File
	require.NoError(t, db.DeleteFolder(ctx, folder.ID, func(fs []models.File) error {
		removed = fs
		return nil
	}))
	assert.Len(t, removed, 2)
	_, err = db.FolderByID(ctx, folder.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = db.FileByID(ctx, files[0].ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	ids, _ = db.FolderGrantees(ctx, folder.ID)
	assert.Empty(t, ids)
}

func TestDeleteFile(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := mustUser(t, db, "alice")
	_, files := seedFolder(t, db, alice.ID, "a.txt")

	var got models.File
	require.NoError(t, db.DeleteFile(ctx, files[0].ID, func(f models.File) error {
		got = f
		return nil
	}))
	assert.Equal(t, "a.txt", got.Filepath)
	assert.ErrorIs(t, db.DeleteFile(ctx, files[0].ID, nil), apperr.ErrNotFound)
}

func TestDeleteUserCascade(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")

	note := &models.Note{Title: "n", Content: "c", UserID: alice.ID}
	require.NoError(t, db.CreateNote(ctx, note))
	require.NoError(t, db.CreateNoteShare(ctx, &models.NoteShare{NoteID: note.ID, SharedWithUserID: bob.ID, SharedByUserID: alice.ID}))
	_, aliceFiles := seedFolder(t, db, alice.ID, "mine.txt")

	// alice dropped a file into bob's folder and holds a grant on it
	bobFolder, _ := seedFolder(t, db, bob.ID)
	require.NoError(t, db.CreateFolderShare(ctx, &models.FolderShare{FolderID: bobFolder.ID, SharedWithUserID: alice.ID, SharedByUserID: bob.ID}))
	dropped := []models.File{{
		Filename: "drop.txt", OriginalFilename: "drop.txt", Filepath: "drop.txt", FileSize: 1,
		FolderID: bobFolder.ID, UploadedBy: "alice", UploadedByUserID: &alice.ID,
	}}
	require.NoError(t, db.CreateFiles(ctx, dropped))

	var removed []models.File
	require.NoError(t, db.DeleteUser(ctx, alice.ID, func(fs []models.File) error {
		removed = fs
		return nil
	}))
	require.Len(t, removed, 1)
	assert.Equal(t, aliceFiles[0].ID, removed[0].ID)

	_, err := db.UserByID(ctx, alice.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = db.NoteByID(ctx, note.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	kept, err := db.FileByID(ctx, dropped[0].ID)
	require.NoError(t, err)
	assert.Nil(t, kept.UploadedByUserID)
	assert.Equal(t, "alice", kept.UploadedBy)

	ids, _ := db.FolderGrantees(ctx, bobFolder.ID)
	assert.Empty(t, ids)
}

func TestCreateFilesCommitFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	conn := sqlx.NewDb(sqlDB, "sqlmock")
	defer conn.Close()
	db := New(conn, DialectSQLite)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO files")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit().WillReturnError(errors.New("disk I/O error"))

	err = db.CreateFiles(context.Background(), []models.File{{Filename: "a", FolderID: 1, UploadedBy: "bob"}})
	assert.ErrorContains(t, err, "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlaceholders(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	conn := sqlx.NewDb(sqlDB, "sqlmock")
	defer conn.Close()
	db := New(conn, DialectPostgres)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM note_shares WHERE note_id = $1 AND shared_with_user_id = $2")).
		WithArgs(int64(3), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, db.DeleteNoteShare(context.Background(), 3, 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}
