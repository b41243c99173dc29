package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/starford/notedrop/internal/models"
)

// CreateNoteShare inserts a note grant. The UNIQUE(note_id,
// shared_with_user_id) index makes this the single authority on duplicates:
// a concurrent second insert fails with apperr.ErrAlreadyShared.
func (db *DB) CreateNoteShare(ctx context.Context, s *models.NoteShare) error {
	s.SharedAt = db.now()
	q := db.sb.Insert("note_shares").
		Columns("note_id", "shared_with_user_id", "shared_by_user_id", "shared_at").
		Values(s.NoteID, s.SharedWithUserID, s.SharedByUserID, s.SharedAt).
		Suffix("RETURNING id")
	if err := db.get(ctx, db.conn, &s.ID, q); err != nil {
		return mapError("store: create note share", err)
	}
	return nil
}

// CreateFolderShare inserts a folder grant; duplicates yield
// apperr.ErrAlreadyShared.
func (db *DB) CreateFolderShare(ctx context.Context, s *models.FolderShare) error {
	s.SharedAt = db.now()
	q := db.sb.Insert("folder_shares").
		Columns("folder_id", "shared_with_user_id", "shared_by_user_id", "shared_at").
		Values(s.FolderID, s.SharedWithUserID, s.SharedByUserID, s.SharedAt).
		Suffix("RETURNING id")
	if err := db.get(ctx, db.conn, &s.ID, q); err != nil {
		return mapError("store: create folder share", err)
	}
	return nil
}

// DeleteNoteShare revokes a note grant.
func (db *DB) DeleteNoteShare(ctx context.Context, noteID, userID int64) error {
	q := db.sb.Delete("note_shares").Where(sq.Eq{"note_id": noteID, "shared_with_user_id": userID})
	return db.execOne(ctx, db.conn, q, "store: delete note share")
}

// DeleteFolderShare revokes a folder grant.
func (db *DB) DeleteFolderShare(ctx context.Context, folderID, userID int64) error {
	q := db.sb.Delete("folder_shares").Where(sq.Eq{"folder_id": folderID, "shared_with_user_id": userID})
	return db.execOne(ctx, db.conn, q, "store: delete folder share")
}

// NoteGrantees returns the ids of users a note is shared with.
func (db *DB) NoteGrantees(ctx context.Context, noteID int64) ([]int64, error) {
	ids := []int64{}
	q := db.sb.Select("shared_with_user_id").From("note_shares").Where(sq.Eq{"note_id": noteID})
	if err := db.selectAll(ctx, db.conn, &ids, q); err != nil {
		return nil, mapError("store: note grantees", err)
	}
	return ids, nil
}

// FolderGrantees returns the ids of users a folder is shared with.
func (db *DB) FolderGrantees(ctx context.Context, folderID int64) ([]int64, error) {
	ids := []int64{}
	q := db.sb.Select("shared_with_user_id").From("folder_shares").Where(sq.Eq{"folder_id": folderID})
	if err := db.selectAll(ctx, db.conn, &ids, q); err != nil {
		return nil, mapError("store: folder grantees", err)
	}
	return ids, nil
}

// NoteShares lists the grantees of a note with their usernames.
func (db *DB) NoteShares(ctx context.Context, noteID int64) ([]models.Grant, error) {
	q := db.sb.Select("u.id AS user_id", "u.username", "s.shared_at").
		From("note_shares s").
		Join("users u ON u.id = s.shared_with_user_id").
		Where(sq.Eq{"s.note_id": noteID}).
		OrderBy("s.shared_at", "u.id")
	grants := []models.Grant{}
	if err := db.selectAll(ctx, db.conn, &grants, q); err != nil {
		return nil, mapError("store: note shares", err)
	}
	return grants, nil
}

// FolderShares lists the grantees of a folder with their usernames.
func (db *DB) FolderShares(ctx context.Context, folderID int64) ([]models.Grant, error) {
	q := db.sb.Select("u.id AS user_id", "u.username", "s.shared_at").
		From("folder_shares s").
		Join("users u ON u.id = s.shared_with_user_id").
		Where(sq.Eq{"s.folder_id": folderID}).
		OrderBy("s.shared_at", "u.id")
	grants := []models.Grant{}
	if err := db.selectAll(ctx, db.conn, &grants, q); err != nil {
		return nil, mapError("store: folder shares", err)
	}
	return grants, nil
}
