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

// NoteInput carries the editable fields of a note.
type NoteInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	IsPublic bool   `json:"is_public"`
}

// Validate validates the note input.
func (in *NoteInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Content, validation.Required),
	)
}

// NoteView is a readable note with what the viewer may do with it.
type NoteView struct {
	Note    models.Note    `json:"note"`
	Owner   string         `json:"owner"`
	CanEdit bool           `json:"can_edit"`
	Shares  []models.Grant `json:"shares,omitempty"`
}

// CreateNote creates a note owned by the actor.
func (s *Service) CreateNote(ctx context.Context, actor access.Actor, in NoteInput) (*models.Note, error) {
	if err := requireLogin(actor); err != nil {
		return nil, err
	}
	if err := validate(&in); err != nil {
		return nil, err
	}
	n := &models.Note{Title: in.Title, Content: in.Content, IsPublic: in.IsPublic, UserID: actor.UserID}
	if err := s.repo.CreateNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// ViewNote returns a note the actor may read. Owners also get the grant list.
func (s *Service) ViewNote(ctx context.Context, actor access.Actor, id int64) (*NoteView, error) {
	n, res, err := s.loadNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(access.NoteRead(actor, res)); err != nil {
		return nil, err
	}
	view := &NoteView{Note: *n, CanEdit: access.NoteMutate(actor, res).Allowed}
	owner, err := s.repo.UserByID(ctx, n.UserID)
	if err != nil {
		return nil, err
	}
	view.Owner = owner.Username
	if access.NoteShare(actor, res).Allowed {
		if view.Shares, err = s.repo.NoteShares(ctx, id); err != nil {
			return nil, err
		}
	}
	return view, nil
}

// EditableNote returns a note for its owner to edit.
func (s *Service) EditableNote(ctx context.Context, actor access.Actor, id int64) (*models.Note, error) {
	n, res, err := s.loadNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(access.NoteMutate(actor, res)); err != nil {
		return nil, err
	}
	return n, nil
}

// UpdateNote replaces title, content and visibility of a note.
func (s *Service) UpdateNote(ctx context.Context, actor access.Actor, id int64, in NoteInput) (*models.Note, error) {
	n, res, err := s.loadNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(access.NoteMutate(actor, res)); err != nil {
		return nil, err
	}
	if err := validate(&in); err != nil {
		return nil, err
	}
	n.Title, n.Content, n.IsPublic = in.Title, in.Content, in.IsPublic
	if err := s.repo.UpdateNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// DeleteNote removes a note and its grants.
func (s *Service) DeleteNote(ctx context.Context, actor access.Actor, id int64) error {
	_, res, err := s.loadNote(ctx, id)
	if err != nil {
		return err
	}
	if err := s.check(access.NoteDelete(actor, res)); err != nil {
		return err
	}
	return s.repo.DeleteNote(ctx, id)
}

// ShareNote grants username read access to a note owned by the actor.
func (s *Service) ShareNote(ctx context.Context, actor access.Actor, id int64, username string) (*models.NoteShare, error) {
	_, res, err := s.loadNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(access.NoteShare(actor, res)); err != nil {
		return nil, err
	}
	req, err := s.grantRequest(ctx, username, res.Grantees)
	if err != nil {
		return nil, err
	}
	if err := s.grantError(access.ShareGrant(actor, req)); err != nil {
		return nil, err
	}
	share := &models.NoteShare{NoteID: id, SharedWithUserID: req.GranteeID, SharedByUserID: actor.UserID}
	if err := s.repo.CreateNoteShare(ctx, share); err != nil {
		return nil, err
	}
	s.logger.Info("note shared",
		slog.Int64("note_id", id),
		slog.Int64("shared_with", req.GranteeID))
	return share, nil
}

// UnshareNote revokes username's grant on a note owned by the actor.
func (s *Service) UnshareNote(ctx context.Context, actor access.Actor, id int64, username string) error {
	_, res, err := s.loadNote(ctx, id)
	if err != nil {
		return err
	}
	if err := s.check(access.NoteUnshare(actor, res)); err != nil {
		return err
	}
	u, err := s.repo.UserByUsername(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Invalid("username", "user not found")
	}
	if err != nil {
		return err
	}
	return s.repo.DeleteNoteShare(ctx, id, u.ID)
}

// NoteShares lists the grants of a note owned by the actor.
func (s *Service) NoteShares(ctx context.Context, actor access.Actor, id int64) ([]models.Grant, error) {
	_, res, err := s.loadNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(access.NoteShare(actor, res)); err != nil {
		return nil, err
	}
	return s.repo.NoteShares(ctx, id)
}
