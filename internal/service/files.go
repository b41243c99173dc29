package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/starford/notedrop/internal/access"
	"github.com/starford/notedrop/internal/apperr"
	"github.com/starford/notedrop/internal/models"
	"github.com/starford/notedrop/internal/storage"
)

// Upload is one file of a multi-file upload.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// UploadResult reports stored files and the names that were skipped because
// they carry no usable name or extension.
type UploadResult struct {
	Files   []models.File `json:"files"`
	Skipped []string      `json:"skipped,omitempty"`
}

// UploadFiles stores a batch of uploads in a folder. Bytes are written first;
// the records of the whole batch are then committed in one transaction. If
// any write or the commit fails, every object written for the batch is
// removed again so no orphaned bytes stay behind.
func (s *Service) UploadFiles(ctx context.Context, actor access.Actor, folderID int64, uploads []Upload) (*UploadResult, error) {
	_, res, err := s.loadFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if err := s.check(access.FolderUpload(actor, res)); err != nil {
		return nil, err
	}

	uploader, uploaderID := models.AnonymousUploader, (*int64)(nil)
	if !actor.IsAnonymous() {
		id := actor.UserID
		uploader, uploaderID = actor.Username, &id
	}

	result := &UploadResult{}
	var written []storage.Object
	records := make([]models.File, 0, len(uploads))
	for _, up := range uploads {
		// Only names with a dot are accepted; the dot may be lost to sanitising.
		name := storage.SanitizeFilename(up.Filename)
		if name == "" || !strings.Contains(up.Filename, ".") {
			result.Skipped = append(result.Skipped, up.Filename)
			continue
		}
		obj, err := s.files.Store(ctx, up.Body, name)
		if err != nil {
			s.metrics.StorageFailure("store")
			s.discard(ctx, written)
			return nil, err
		}
		written = append(written, obj)
		records = append(records, models.File{
			Filename:         obj.Name,
			OriginalFilename: name,
			Filepath:         obj.Path,
			FileSize:         obj.Size,
			FileType:         contentType(up.ContentType, name),
			Checksum:         obj.Checksum,
			FolderID:         folderID,
			UploadedBy:       uploader,
			UploadedByUserID: uploaderID,
		})
	}
	if len(records) == 0 {
		return nil, apperr.Invalid("files", "no files selected")
	}

	if err := s.repo.CreateFiles(ctx, records); err != nil {
		s.discard(ctx, written)
		return nil, apperr.Storage("record uploads", err)
	}
	for _, f := range records {
		s.metrics.AddUploadedBytes(f.FileSize)
	}
	s.logger.Info("files uploaded",
		slog.Int64("folder_id", folderID),
		slog.Int("count", len(records)),
		slog.String("uploaded_by", uploader))
	result.Files = records
	return result, nil
}

// discard removes objects written for a batch that will not be committed.
func (s *Service) discard(ctx context.Context, objs []storage.Object) {
	paths := make([]string, 0, len(objs))
	for _, obj := range objs {
		paths = append(paths, obj.Path)
	}
	s.removeObjects(ctx, "compensate", paths)
}

// purge deletes the bytes of file records that are already gone from the
// database. A failure leaves orphaned bytes behind and is only logged.
func (s *Service) purge(ctx context.Context, files []models.File) {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Filepath)
	}
	s.removeObjects(ctx, "delete", paths)
}

func (s *Service) removeObjects(ctx context.Context, op string, paths []string) {
	ctx = context.WithoutCancel(ctx)
	for _, path := range paths {
		if err := s.files.Delete(ctx, path); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			s.metrics.StorageFailure(op)
			s.logger.Error("failed to remove stored bytes",
				slog.String("op", op),
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}
}

// collect returns a delete hook that remembers the removed file records so
// their bytes can be purged once the transaction has committed.
func collect(dst *[]models.File) func([]models.File) error {
	return func(files []models.File) error {
		*dst = append(*dst, files...)
		return nil
	}
}

func contentType(declared, name string) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (s *Service) loadFile(ctx context.Context, id int64) (*models.File, access.FileResource, error) {
	f, err := s.repo.FileByID(ctx, id)
	if err != nil {
		return nil, access.FileResource{}, err
	}
	_, folder, err := s.loadFolder(ctx, f.FolderID)
	if err != nil {
		return nil, access.FileResource{}, fmt.Errorf("load folder of file %d: %w", id, err)
	}
	return f, access.FileResource{ID: f.ID, Folder: folder, UploaderID: f.UploadedByUserID}, nil
}

// OpenFile returns a file record and its bytes for download. The caller
// closes the reader.
func (s *Service) OpenFile(ctx context.Context, actor access.Actor, id int64) (*models.File, io.ReadCloser, error) {
	f, res, err := s.loadFile(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.check(access.FileRead(actor, res)); err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(ctx, f.Filepath)
	if err != nil {
		return nil, nil, err
	}
	return f, rc, nil
}

// DeleteFile removes a file record and its bytes. The folder owner and the
// uploader may do so.
func (s *Service) DeleteFile(ctx context.Context, actor access.Actor, id int64) (*models.File, error) {
	f, res, err := s.loadFile(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(access.FileDelete(actor, res)); err != nil {
		return nil, err
	}
	var removed []models.File
	err = s.repo.DeleteFile(ctx, id, func(file models.File) error {
		removed = append(removed, file)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.purge(ctx, removed)
	return f, nil
}
