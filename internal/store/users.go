package store

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/starford/notedrop/internal/models"
)

var userColumns = []string{"id", "username", "email", "password_hash", "created_at"}

// CreateUser inserts u and sets its ID and CreatedAt. Duplicate usernames or
// emails yield apperr.ErrDuplicateUsername or apperr.ErrDuplicateEmail.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	u.CreatedAt = db.now()
	q := db.sb.Insert("users").
		Columns("username", "email", "password_hash", "created_at").
		Values(u.Username, u.Email, u.PasswordHash, u.CreatedAt).
		Suffix("RETURNING id")
	if err := db.get(ctx, db.conn, &u.ID, q); err != nil {
		return mapError("store: create user", err)
	}
	return nil
}

// UserByID returns the user with the given id.
func (db *DB) UserByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	q := db.sb.Select(userColumns...).From("users").Where(sq.Eq{"id": id})
	if err := db.get(ctx, db.conn, &u, q); err != nil {
		return nil, mapError("store: user by id", err)
	}
	return &u, nil
}

// UserByUsername returns the user with the exact username.
func (db *DB) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	q := db.sb.Select(userColumns...).From("users").Where(sq.Eq{"username": username})
	if err := db.get(ctx, db.conn, &u, q); err != nil {
		return nil, mapError("store: user by username", err)
	}
	return &u, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchUsers returns up to limit users whose username contains query,
// ignoring case, excluding excludeID.
func (db *DB) SearchUsers(ctx context.Context, query string, excludeID int64, limit int) ([]models.User, error) {
	pattern := "%" + strings.ToLower(likeEscaper.Replace(query)) + "%"
	q := db.sb.Select(userColumns...).From("users").
		Where(sq.Expr(`LOWER(username) LIKE ? ESCAPE '\'`, pattern)).
		Where(sq.NotEq{"id": excludeID}).
		OrderBy("username").
		Limit(uint64(limit))
	users := []models.User{}
	if err := db.selectAll(ctx, db.conn, &users, q); err != nil {
		return nil, mapError("store: search users", err)
	}
	return users, nil
}

// DeleteUser removes a user with everything they own. Shares on owned
// resources and shares granted to or by the user go first, then files in
// owned folders, the folders, the notes and finally the user. Files the user
// dropped into other folders are kept but lose their uploader link.
//
// beforeCommit receives the removed file records and runs inside the
// transaction; an error from it rolls everything back.
func (db *DB) DeleteUser(ctx context.Context, id int64, beforeCommit func([]models.File) error) error {
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		ownedNotes := sq.Expr("note_id IN (SELECT id FROM notes WHERE user_id = ?)", id)
		ownedFolders := sq.Expr("folder_id IN (SELECT id FROM folders WHERE user_id = ?)", id)
		involved := sq.Or{sq.Eq{"shared_with_user_id": id}, sq.Eq{"shared_by_user_id": id}}

		if _, err := db.exec(ctx, tx, db.sb.Delete("note_shares").Where(sq.Or{ownedNotes, involved})); err != nil {
			return fmt.Errorf("store: delete user note shares: %w", err)
		}
		if _, err := db.exec(ctx, tx, db.sb.Delete("folder_shares").Where(sq.Or{ownedFolders, involved})); err != nil {
			return fmt.Errorf("store: delete user folder shares: %w", err)
		}

		var files []models.File
		if err := db.selectAll(ctx, tx, &files, db.sb.Select(fileColumns...).From("files").Where(ownedFolders)); err != nil {
			return fmt.Errorf("store: list user files: %w", err)
		}
		if _, err := db.exec(ctx, tx, db.sb.Delete("files").Where(ownedFolders)); err != nil {
			return fmt.Errorf("store: delete user files: %w", err)
		}
		if _, err := db.exec(ctx, tx, db.sb.Update("files").
			Set("uploaded_by_user_id", nil).
			Where(sq.Eq{"uploaded_by_user_id": id})); err != nil {
			return fmt.Errorf("store: detach user uploads: %w", err)
		}
		if _, err := db.exec(ctx, tx, db.sb.Delete("folders").Where(sq.Eq{"user_id": id})); err != nil {
			return fmt.Errorf("store: delete user folders: %w", err)
		}
		if _, err := db.exec(ctx, tx, db.sb.Delete("notes").Where(sq.Eq{"user_id": id})); err != nil {
			return fmt.Errorf("store: delete user notes: %w", err)
		}
		if err := db.execOne(ctx, tx, db.sb.Delete("users").Where(sq.Eq{"id": id}), "store: delete user"); err != nil {
			return err
		}
		if beforeCommit != nil {
			return beforeCommit(files)
		}
		return nil
	})
}
