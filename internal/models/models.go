// Package models defines the persisted entities of notedrop.
package models

import "time"

// AnonymousUploader is recorded as File.UploadedBy for uploads without a session.
const AnonymousUploader = "anonymous"

// User is a registered account. Username and Email are unique.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Note is owned by exactly one user for its whole lifetime.
type Note struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	UserID    int64     `db:"user_id" json:"user_id"`
	IsPublic  bool      `db:"is_public" json:"is_public"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Folder groups uploaded files. AllowFileDrop only matters when IsPublic is set.
type Folder struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Description   string    `db:"description" json:"description"`
	UserID        int64     `db:"user_id" json:"user_id"`
	IsPublic      bool      `db:"is_public" json:"is_public"`
	AllowFileDrop bool      `db:"allow_file_drop" json:"allow_file_drop"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// File is the record of a stored upload. Filename is generated; OriginalFilename
// is what the uploader sent, sanitised, and is used for downloads.
type File struct {
	ID               int64     `db:"id" json:"id"`
	Filename         string    `db:"filename" json:"filename"`
	OriginalFilename string    `db:"original_filename" json:"original_filename"`
	Filepath         string    `db:"filepath" json:"-"`
	FileSize         int64     `db:"file_size" json:"file_size"`
	FileType         string    `db:"file_type" json:"file_type"`
	Checksum         string    `db:"checksum" json:"checksum"`
	FolderID         int64     `db:"folder_id" json:"folder_id"`
	UploadedBy       string    `db:"uploaded_by" json:"uploaded_by"`
	UploadedByUserID *int64    `db:"uploaded_by_user_id" json:"uploaded_by_user_id"`
	UploadedAt       time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// NoteShare grants SharedWithUserID read access to NoteID.
type NoteShare struct {
	ID               int64     `db:"id" json:"id"`
	NoteID           int64     `db:"note_id" json:"note_id"`
	SharedWithUserID int64     `db:"shared_with_user_id" json:"shared_with_user_id"`
	SharedByUserID   int64     `db:"shared_by_user_id" json:"shared_by_user_id"`
	SharedAt         time.Time `db:"shared_at" json:"shared_at"`
}

// FolderShare grants SharedWithUserID read and upload access to FolderID.
type FolderShare struct {
	ID               int64     `db:"id" json:"id"`
	FolderID         int64     `db:"folder_id" json:"folder_id"`
	SharedWithUserID int64     `db:"shared_with_user_id" json:"shared_with_user_id"`
	SharedByUserID   int64     `db:"shared_by_user_id" json:"shared_by_user_id"`
	SharedAt         time.Time `db:"shared_at" json:"shared_at"`
}

// Grant is a share joined with the grantee's username, used for listings.
type Grant struct {
	UserID   int64     `db:"user_id" json:"user_id"`
	Username string    `db:"username" json:"username"`
	SharedAt time.Time `db:"shared_at" json:"shared_at"`
}
