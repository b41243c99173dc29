package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/starford/notedrop/internal/models"
)

var folderColumns = []string{"id", "name", "description", "user_id", "is_public", "allow_file_drop", "created_at"}

// CreateFolder inserts f and sets its ID and CreatedAt.
func (db *DB) CreateFolder(ctx context.Context, f *models.Folder) error {
	f.CreatedAt = db.now()
	q := db.sb.Insert("folders").
		Columns("name", "description", "user_id", "is_public", "allow_file_drop", "created_at").
		Values(f.Name, f.Description, f.UserID, f.IsPublic, f.AllowFileDrop, f.CreatedAt).
		Suffix("RETURNING id")
	if err := db.get(ctx, db.conn, &f.ID, q); err != nil {
		return mapError("store: create folder", err)
	}
	return nil
}

// FolderByID returns the folder with the given id.
func (db *DB) FolderByID(ctx context.Context, id int64) (*models.Folder, error) {
	var f models.Folder
	q := db.sb.Select(folderColumns...).From("folders").Where(sq.Eq{"id": id})
	if err := db.get(ctx, db.conn, &f, q); err != nil {
		return nil, mapError("store: folder by id", err)
	}
	return &f, nil
}

// UpdateFolder stores name, description and both visibility flags of f.
func (db *DB) UpdateFolder(ctx context.Context, f *models.Folder) error {
	q := db.sb.Update("folders").
		Set("name", f.Name).
		Set("description", f.Description).
		Set("is_public", f.IsPublic).
		Set("allow_file_drop", f.AllowFileDrop).
		Where(sq.Eq{"id": f.ID})
	return db.execOne(ctx, db.conn, q, "store: update folder")
}

// DeleteFolder removes a folder, its shares and its file records in that
// order. beforeCommit receives the removed file records and runs inside the
// transaction; an error from it rolls everything back.
func (db *DB) DeleteFolder(ctx context.Context, id int64, beforeCommit func([]models.File) error) error {
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := db.exec(ctx, tx, db.sb.Delete("folder_shares").Where(sq.Eq{"folder_id": id})); err != nil {
			return fmt.Errorf("store: delete folder shares: %w", err)
		}
		var files []models.File
		if err := db.selectAll(ctx, tx, &files, db.sb.Select(fileColumns...).From("files").Where(sq.Eq{"folder_id": id})); err != nil {
			return fmt.Errorf("store: list folder files: %w", err)
		}
		if _, err := db.exec(ctx, tx, db.sb.Delete("files").Where(sq.Eq{"folder_id": id})); err != nil {
			return fmt.Errorf("store: delete folder files: %w", err)
		}
		if err := db.execOne(ctx, tx, db.sb.Delete("folders").Where(sq.Eq{"id": id}), "store: delete folder"); err != nil {
			return err
		}
		if beforeCommit != nil {
			return beforeCommit(files)
		}
		return nil
	})
}

// FoldersByOwner lists a user's folders, newest first.
func (db *DB) FoldersByOwner(ctx context.Context, ownerID int64) ([]models.Folder, error) {
	q := db.sb.Select(folderColumns...).From("folders").
		Where(sq.Eq{"user_id": ownerID}).
		OrderBy("created_at DESC", "id DESC")
	folders := []models.Folder{}
	if err := db.selectAll(ctx, db.conn, &folders, q); err != nil {
		return nil, mapError("store: folders by owner", err)
	}
	return folders, nil
}

// PublicFolders lists the newest public folders.
func (db *DB) PublicFolders(ctx context.Context, limit int) ([]models.Folder, error) {
	q := db.sb.Select(folderColumns...).From("folders").
		Where(sq.Eq{"is_public": true}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit))
	folders := []models.Folder{}
	if err := db.selectAll(ctx, db.conn, &folders, q); err != nil {
		return nil, mapError("store: public folders", err)
	}
	return folders, nil
}

// FoldersSharedWith lists folders directly shared with a user, newest share first.
func (db *DB) FoldersSharedWith(ctx context.Context, userID int64) ([]models.Folder, error) {
	q := db.sb.Select(prefixed("f", folderColumns)...).
		From("folders f").
		Join("folder_shares s ON s.folder_id = f.id").
		Where(sq.Eq{"s.shared_with_user_id": userID}).
		OrderBy("s.shared_at DESC", "f.id DESC")
	folders := []models.Folder{}
	if err := db.selectAll(ctx, db.conn, &folders, q); err != nil {
		return nil, mapError("store: folders shared with", err)
	}
	return folders, nil
}
