package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/notedrop/internal/access"
	"github.com/starford/notedrop/internal/apperr"
	"github.com/starford/notedrop/internal/auth"
	"github.com/starford/notedrop/internal/models"
)

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate validates the registration input.
func (in *RegisterInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Username, validation.Required, validation.Length(1, 150)),
		validation.Field(&in.Email, validation.Required, validation.Length(1, 150), is.EmailFormat),
		validation.Field(&in.Password, validation.Required, validation.By(maxBytes(auth.MaxPasswordBytes))),
	)
}

func maxBytes(n int) validation.RuleFunc {
	return func(v interface{}) error {
		if s, _ := v.(string); len(s) > n {
			return fmt.Errorf("must be at most %d bytes", n)
		}
		return nil
	}
}

// UserSummary is the public view of a user in search results.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Register creates an account. Duplicate usernames and emails are reported
// as apperr.ErrDuplicateUsername and apperr.ErrDuplicateEmail.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validate(&in); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{Username: in.Username, Email: in.Email, PasswordHash: hash}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", slog.Int64("user_id", u.ID))
	return u, nil
}

// Authenticate checks credentials. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.repo.UserByUsername(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("invalid username or password: %w", apperr.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if err := auth.VerifyPassword(u.PasswordHash, password); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteAccount removes the actor's account with all owned notes, folders,
// files and shares. Stored bytes of removed files are deleted once the
// transaction has committed.
func (s *Service) DeleteAccount(ctx context.Context, actor access.Actor) error {
	if err := requireLogin(actor); err != nil {
		return err
	}
	var removed []models.File
	if err := s.repo.DeleteUser(ctx, actor.UserID, collect(&removed)); err != nil {
		return err
	}
	s.purge(ctx, removed)
	s.logger.Info("user deleted", slog.Int64("user_id", actor.UserID))
	return nil
}

// SearchUsers finds users by case-insensitive username substring, excluding
// the actor. Queries shorter than two characters return nothing.
func (s *Service) SearchUsers(ctx context.Context, actor access.Actor, query string) ([]UserSummary, error) {
	if err := requireLogin(actor); err != nil {
		return nil, err
	}
	out := []UserSummary{}
	if utf8.RuneCountInString(query) < 2 {
		return out, nil
	}
	users, err := s.repo.SearchUsers(ctx, query, actor.UserID, ListLimit)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out = append(out, UserSummary{ID: u.ID, Username: u.Username})
	}
	return out, nil
}

// Home lists the newest public notes and folders.
type Home struct {
	Notes   []models.Note   `json:"public_notes"`
	Folders []models.Folder `json:"public_folders"`
}

// Home returns the public landing page listing.
func (s *Service) Home(ctx context.Context) (*Home, error) {
	notes, err := s.repo.PublicNotes(ctx, ListLimit)
	if err != nil {
		return nil, err
	}
	folders, err := s.repo.PublicFolders(ctx, ListLimit)
	if err != nil {
		return nil, err
	}
	return &Home{Notes: notes, Folders: folders}, nil
}

// Dashboard is a user's own and shared resources.
type Dashboard struct {
	Notes         []models.Note   `json:"user_notes"`
	Folders       []models.Folder `json:"user_folders"`
	SharedNotes   []models.Note   `json:"shared_notes"`
	SharedFolders []models.Folder `json:"shared_folders"`
}

// Dashboard returns the actor's notes (most recently updated first), folders
// and everything shared with them.
func (s *Service) Dashboard(ctx context.Context, actor access.Actor) (*Dashboard, error) {
	if err := requireLogin(actor); err != nil {
		return nil, err
	}
	var (
		d   Dashboard
		err error
	)
	if d.Notes, err = s.repo.NotesByOwner(ctx, actor.UserID); err != nil {
		return nil, err
	}
	if d.Folders, err = s.repo.FoldersByOwner(ctx, actor.UserID); err != nil {
		return nil, err
	}
	if d.SharedNotes, err = s.repo.NotesSharedWith(ctx, actor.UserID); err != nil {
		return nil, err
	}
	if d.SharedFolders, err = s.repo.FoldersSharedWith(ctx, actor.UserID); err != nil {
		return nil, err
	}
	return &d, nil
}
