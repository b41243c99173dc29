// Package service orchestrates notedrop's use cases. Every method takes the
// acting identity explicitly, loads the resource snapshot, asks the access
// core for a decision and only then touches the store or upload storage.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notedrop/internal/access"
	"github.com/starford/notedrop/internal/apperr"
	"github.com/starford/notedrop/internal/metrics"
	"github.com/starford/notedrop/internal/models"
	"github.com/starford/notedrop/internal/storage"
	"github.com/starford/notedrop/internal/store"
)

// ListLimit caps the public listings on the home page and user search results.
const ListLimit = 10

// Service coordinates persistence, upload storage and access decisions.
type Service struct {
	repo    store.Repository
	files   storage.Provider
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records access decisions and storage activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates a new service.
func New(repo store.Repository, files storage.Provider, opts ...Option) *Service {
	s := &Service{repo: repo, files: files, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// check records d and converts a denial into an apperr.ErrForbidden error.
func (s *Service) check(d access.Decision) error {
	s.metrics.ObserveDecision(d)
	if !d.Allowed {
		s.logger.Debug("access denied",
			slog.String("action", string(d.Action)),
			slog.String("reason", string(d.Reason)))
	}
	return d.Err()
}

func requireLogin(actor access.Actor) error {
	if actor.IsAnonymous() {
		return fmt.Errorf("login required: %w", apperr.ErrUnauthorized)
	}
	return nil
}

func (s *Service) loadNote(ctx context.Context, id int64) (*models.Note, access.NoteResource, error) {
	n, err := s.repo.NoteByID(ctx, id)
	if err != nil {
		return nil, access.NoteResource{}, err
	}
	grantees, err := s.repo.NoteGrantees(ctx, id)
	if err != nil {
		return nil, access.NoteResource{}, err
	}
	return n, noteResource(n, grantees), nil
}

func noteResource(n *models.Note, grantees []int64) access.NoteResource {
	return access.NoteResource{ID: n.ID, OwnerID: n.UserID, Public: n.IsPublic, Grantees: grantees}
}

func (s *Service) loadFolder(ctx context.Context, id int64) (*models.Folder, access.FolderResource, error) {
	f, err := s.repo.FolderByID(ctx, id)
	if err != nil {
		return nil, access.FolderResource{}, err
	}
	grantees, err := s.repo.FolderGrantees(ctx, id)
	if err != nil {
		return nil, access.FolderResource{}, err
	}
	return f, folderResource(f, grantees), nil
}

func folderResource(f *models.Folder, grantees []int64) access.FolderResource {
	return access.FolderResource{
		ID:            f.ID,
		OwnerID:       f.UserID,
		Public:        f.IsPublic,
		AllowFileDrop: f.AllowFileDrop,
		Grantees:      grantees,
	}
}

// grantRequest resolves username into a share request against grantees.
func (s *Service) grantRequest(ctx context.Context, username string, grantees []int64) (access.GrantRequest, error) {
	u, err := s.repo.UserByUsername(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		return access.GrantRequest{}, nil
	}
	if err != nil {
		return access.GrantRequest{}, err
	}
	return access.GrantRequest{GranteeID: u.ID, AlreadyShared: slices.Contains(grantees, u.ID)}, nil
}

// grantError turns a refused share into the correctable condition it stands for.
func (s *Service) grantError(d access.Decision) error {
	s.metrics.ObserveDecision(d)
	switch d.Reason {
	case access.ReasonGranteeUnknown:
		return apperr.Invalid("username", "user not found")
	case access.ReasonSelfShare:
		return apperr.Invalid("username", "cannot share with yourself")
	case access.ReasonAlreadyShared:
		return apperr.ErrAlreadyShared
	case access.ReasonGrantable:
		return nil
	default:
		return d.Err()
	}
}

// validate converts ozzo validation errors into an apperr.ValidationError for
// the first offending field.
func validate(v validation.Validatable) error {
	err := v.Validate()
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		fields := make([]string, 0, len(errs))
		for f := range errs {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			if errs[f] != nil {
				return apperr.Invalid(f, errs[f].Error())
			}
		}
	}
	return fmt.Errorf("validate input: %w", err)
}
