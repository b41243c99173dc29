// Package storage maps logical file records to bytes on a storage medium.
//
// Providers know nothing about ownership or sharing; every policy decision is
// made before they are called.
package storage

import (
	"context"
	"io"
)

// Object describes bytes written by a Provider.
type Object struct {
	// Name is the generated, collision-safe file name.
	Name string
	// Path is the provider-specific key used to open or delete the bytes.
	Path     string
	Size     int64
	Checksum string
}

// Provider is the interface for upload storage.
type Provider interface {
	// Store writes everything read from r under a freshly generated name derived
	// from desiredName. On failure no partial bytes are left behind.
	Store(ctx context.Context, r io.Reader, desiredName string) (Object, error)
	// Open returns a reader for the bytes at path. The caller closes it.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete removes the bytes at path. Missing bytes either yield
	// apperr.ErrNotFound or succeed, depending on the backend; callers treat
	// both as removed.
	Delete(ctx context.Context, path string) error
}

// maxNameAttempts bounds regeneration when a generated name is already taken.
const maxNameAttempts = 5
