package service

import (
	"context"
	"errors"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notedrop/internal/access"
	"github.com/starford/notedrop/internal/apperr"
	"github.com/starford/notedrop/internal/models"
)

// FolderInput carries the editable fields of a folder.
type FolderInput struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	IsPublic      bool   `json:"is_public"`
	AllowFileDrop bool   `json:"allow_file_drop"`
}

// Validate validates the folder input.
func (in *FolderInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 150)),
	)
}

// FolderView is a readable folder with its files, newest first.
type FolderView struct {
	Folder    models.Folder  `json:"folder"`
	Files     []models.File  `json:"files"`
	CanUpload bool           `json:"can_upload"`
	CanManage bool           `json:"can_manage"`
	Shares    []models.Grant `json:"shares,omitempty"`
}

// CreateFolder creates a folder owned by the actor.
func (s *Service) CreateFolder(ctx context.Context, actor access.Actor, in FolderInput) (*models.Folder, error) {
	if err := requireLogin(actor); err != nil {
		return nil, err
	}
	if err := validate(&in); err != nil {
		return nil, err
	}
	f := &models.Folder{
		Name:          in.Name,
		Description:   in.Description,
		UserID:        actor.UserID,
		IsPublic:      in.IsPublic,
		AllowFileDrop: in.AllowFileDrop,
	}
	if err := s.repo.CreateFolder(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// ViewFolder returns a folder the actor may read together with its files.
func (s *Service) ViewFolder(ctx context.Context, actor access.Actor, id int64) (*FolderView, error) {
	f, res, err := s.loadFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(access.FolderRead(actor, res)); err != nil {
		return nil, err
	}
	files, err := s.repo.FilesInFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &FolderView{
		Folder:    *f,
		Files:     files,
		CanUpload: access.FolderUpload(actor, res).Allowed,
		CanManage: access.FolderMutate(actor, res).Allowed,
	}
	if access.FolderShare(actor, res).Allowed {
		if view.Shares, err = s.repo.FolderShares(ctx, id); err != nil {
			return nil, err
		}
	}
	return view, nil
}

// EditableFolder returns a folder for its owner to edit.
func (s *Service) EditableFolder(ctx context.Context, actor access.Actor, id int64) (*models.Folder, error) {
	f, res, err := s.loadFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(access.FolderMutate(actor, res)); err != nil {
		return nil, err
	}
	return f, nil
}

// UpdateFolder replaces name, description and visibility flags of a folder.
func (s *Service) UpdateFolder(ctx context.Context, actor access.Actor, id int64, in FolderInput) (*models.Folder, error) {
	f, res, err := s.loadFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(access.FolderMutate(actor, res)); err != nil {
		return nil, err
	}
	if err := validate(&in); err != nil {
		return nil, err
	}
	f.Name, f.Description, f.IsPublic, f.AllowFileDrop = in.Name, in.Description, in.IsPublic, in.AllowFileDrop
	if err := s.repo.UpdateFolder(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// UploadTarget returns a folder the actor may upload into.
func (s *Service) UploadTarget(ctx context.Context, actor access.Actor, id int64) (*models.Folder, error) {
	f, res, err := s.loadFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(access.FolderUpload(actor, res)); err != nil {
		return nil, err
	}
	return f, nil
}

// PublicDrop returns a folder's drop-box page. A folder that is not both
// public and open for drops does not have one and reads as not found.
func (s *Service) PublicDrop(ctx context.Context, actor access.Actor, id int64) (*models.Folder, error) {
	f, res, err := s.loadFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	d := access.PublicDrop(actor, res)
	s.metrics.ObserveDecision(d)
	if !d.Allowed {
		return nil, apperr.ErrNotFound
	}
	return f, nil
}

// DeleteFolder removes a folder with its shares, file records and stored bytes.
// Bytes are deleted after the records are committed.
func (s *Service) DeleteFolder(ctx context.Context, actor access.Actor, id int64) error {
	_, res, err := s.loadFolder(ctx, id)
	if err != nil {
		return err
	}
	if err := s.check(access.FolderDelete(actor, res)); err != nil {
		return err
	}
	var removed []models.File
	if err := s.repo.DeleteFolder(ctx, id, collect(&removed)); err != nil {
		return err
	}
	s.purge(ctx, removed)
	s.logger.Info("folder deleted", slog.Int64("folder_id", id))
	return nil
}

// ShareFolder grants username read and upload access to a folder owned by
// the actor.
func (s *Service) ShareFolder(ctx context.Context, actor access.Actor, id int64, username string) (*models.FolderShare, error) {
	_, res, err := s.loadFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(access.FolderShare(actor, res)); err != nil {
		return nil, err
	}
	req, err := s.grantRequest(ctx, username, res.Grantees)
	if err != nil {
		return nil, err
	}
	if err := s.grantError(access.ShareGrant(actor, req)); err != nil {
		return nil, err
	}
	share := &models.FolderShare{FolderID: id, SharedWithUserID: req.GranteeID, SharedByUserID: actor.UserID}
	if err := s.repo.CreateFolderShare(ctx, share); err != nil {
		return nil, err
	}
	s.logger.Info("folder shared",
		slog.Int64("folder_id", id),
		slog.Int64("shared_with", req.GranteeID))
	return share, nil
}

// UnshareFolder revokes username's grant on a folder owned by the actor.
func (s *Service) UnshareFolder(ctx context.Context, actor access.Actor, id int64, username string) error {
	_, res, err := s.loadFolder(ctx, id)
	if err != nil {
		return err
	}
	if err := s.check(access.FolderUnshare(actor, res)); err != nil {
		return err
	}
	u, err := s.repo.UserByUsername(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Invalid("username", "user not found")
	}
	if err != nil {
		return err
	}
	return s.repo.DeleteFolderShare(ctx, id, u.ID)
}

// FolderShares lists the grants of a folder owned by the actor.
func (s *Service) FolderShares(ctx context.Context, actor access.Actor, id int64) ([]models.Grant, error) {
	_, res, err := s.loadFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(access.FolderShare(actor, res)); err != nil {
		return nil, err
	}
	return s.repo.FolderShares(ctx, id)
}
