package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/starford/notedrop/internal/models"
)

var noteColumns = []string{"id", "title", "content", "user_id", "is_public", "created_at", "updated_at"}

// CreateNote inserts n and sets its ID and timestamps.
func (db *DB) CreateNote(ctx context.Context, n *models.Note) error {
	n.CreatedAt = db.now()
	n.UpdatedAt = n.CreatedAt
	q := db.sb.Insert("notes").
		Columns("title", "content", "user_id", "is_public", "created_at", "updated_at").
		Values(n.Title, n.Content, n.UserID, n.IsPublic, n.CreatedAt, n.UpdatedAt).
		Suffix("RETURNING id")
	if err := db.get(ctx, db.conn, &n.ID, q); err != nil {
		return mapError("store: create note", err)
	}
	return nil
}

// NoteByID returns the note with the given id.
func (db *DB) NoteByID(ctx context.Context, id int64) (*models.Note, error) {
	var n models.Note
	q := db.sb.Select(noteColumns...).From("notes").Where(sq.Eq{"id": id})
	if err := db.get(ctx, db.conn, &n, q); err != nil {
		return nil, mapError("store: note by id", err)
	}
	return &n, nil
}

// UpdateNote stores title, content and visibility of n and bumps UpdatedAt.
func (db *DB) UpdateNote(ctx context.Context, n *models.Note) error {
	n.UpdatedAt = db.now()
	q := db.sb.Update("notes").
		Set("title", n.Title).
		Set("content", n.Content).
		Set("is_public", n.IsPublic).
		Set("updated_at", n.UpdatedAt).
		Where(sq.Eq{"id": n.ID})
	return db.execOne(ctx, db.conn, q, "store: update note")
}

// DeleteNote removes a note and its shares.
func (db *DB) DeleteNote(ctx context.Context, id int64) error {
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := db.exec(ctx, tx, db.sb.Delete("note_shares").Where(sq.Eq{"note_id": id})); err != nil {
			return fmt.Errorf("store: delete note shares: %w", err)
		}
		return db.execOne(ctx, tx, db.sb.Delete("notes").Where(sq.Eq{"id": id}), "store: delete note")
	})
}

// NotesByOwner lists a user's notes, most recently updated first.
func (db *DB) NotesByOwner(ctx context.Context, ownerID int64) ([]models.Note, error) {
	q := db.sb.Select(noteColumns...).From("notes").
		Where(sq.Eq{"user_id": ownerID}).
		OrderBy("updated_at DESC", "id DESC")
	notes := []models.Note{}
	if err := db.selectAll(ctx, db.conn, &notes, q); err != nil {
		return nil, mapError("store: notes by owner", err)
	}
	return notes, nil
}

// PublicNotes lists the newest public notes.
func (db *DB) PublicNotes(ctx context.Context, limit int) ([]models.Note, error) {
	q := db.sb.Select(noteColumns...).From("notes").
		Where(sq.Eq{"is_public": true}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit))
	notes := []models.Note{}
	if err := db.selectAll(ctx, db.conn, &notes, q); err != nil {
		return nil, mapError("store: public notes", err)
	}
	return notes, nil
}

// NotesSharedWith lists notes directly shared with a user, newest share first.
func (db *DB) NotesSharedWith(ctx context.Context, userID int64) ([]models.Note, error) {
	q := db.sb.Select(prefixed("n", noteColumns)...).
		From("notes n").
		Join("note_shares s ON s.note_id = n.id").
		Where(sq.Eq{"s.shared_with_user_id": userID}).
		OrderBy("s.shared_at DESC", "n.id DESC")
	notes := []models.Note{}
	if err := db.selectAll(ctx, db.conn, &notes, q); err != nil {
		return nil, mapError("store: notes shared with", err)
	}
	return notes, nil
}
