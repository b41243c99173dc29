package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/starford/notedrop/internal/models"
)

var fileColumns = []string{
	"id", "filename", "original_filename", "filepath", "file_size", "file_type",
	"checksum", "folder_id", "uploaded_by", "uploaded_by_user_id", "uploaded_at",
}

// CreateFiles inserts a batch of file records in one transaction and sets
// their IDs and UploadedAt. Either every record is committed or none is.
func (db *DB) CreateFiles(ctx context.Context, files []models.File) error {
	now := db.now()
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		for i := range files {
			f := &files[i]
			q := db.sb.Insert("files").
				Columns("filename", "original_filename", "filepath", "file_size", "file_type",
					"checksum", "folder_id", "uploaded_by", "uploaded_by_user_id", "uploaded_at").
				Values(f.Filename, f.OriginalFilename, f.Filepath, f.FileSize, f.FileType,
					f.Checksum, f.FolderID, f.UploadedBy, f.UploadedByUserID, now).
				Suffix("RETURNING id")
			if err := db.get(ctx, tx, &f.ID, q); err != nil {
				return mapError("store: create file", err)
			}
			f.UploadedAt = now
		}
		return nil
	})
}

// FileByID returns the file record with the given id.
func (db *DB) FileByID(ctx context.Context, id int64) (*models.File, error) {
	var f models.File
	q := db.sb.Select(fileColumns...).From("files").Where(sq.Eq{"id": id})
	if err := db.get(ctx, db.conn, &f, q); err != nil {
		return nil, mapError("store: file by id", err)
	}
	return &f, nil
}

// FilesInFolder lists a folder's files, newest upload first.
func (db *DB) FilesInFolder(ctx context.Context, folderID int64) ([]models.File, error) {
	q := db.sb.Select(fileColumns...).From("files").
		Where(sq.Eq{"folder_id": folderID}).
		OrderBy("uploaded_at DESC", "id DESC")
	files := []models.File{}
	if err := db.selectAll(ctx, db.conn, &files, q); err != nil {
		return nil, mapError("store: files in folder", err)
	}
	return files, nil
}

// DeleteFile removes a file record. beforeCommit runs inside the transaction
// with the removed record; an error from it keeps the record.
func (db *DB) DeleteFile(ctx context.Context, id int64, beforeCommit func(models.File) error) error {
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		var f models.File
		if err := db.get(ctx, tx, &f, db.sb.Select(fileColumns...).From("files").Where(sq.Eq{"id": id})); err != nil {
			return mapError("store: delete file", err)
		}
		if err := db.execOne(ctx, tx, db.sb.Delete("files").Where(sq.Eq{"id": id}), "store: delete file"); err != nil {
			return err
		}
		if beforeCommit != nil {
			return beforeCommit(f)
		}
		return nil
	})
}
