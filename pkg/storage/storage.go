// Package storage defines the storage abstraction layer for survey assets.
// Blobs live in named containers; backends store them and mint the short
// lived read tokens that are appended to asset URLs.
package storage

import (
	"context"
	"io"
	"net/url"

	"github.com/yi-nology/survey_vault/pkg/storage/sas"
)

// Storage defines the interface for object storage operations.
// All storage backends (local, S3-compatible) must implement this interface.
type Storage interface {
	// PutObject uploads a blob into container.
	PutObject(ctx context.Context, container, key string, data io.Reader, contentType string, size int64) error

	// GetObject retrieves a blob. The caller must close the returned reader.
	GetObject(ctx context.Context, container, key string) (io.ReadCloser, error)

	// DeleteObject removes a blob. Deleting a missing blob is not an error.
	DeleteObject(ctx context.Context, container, key string) error

	// ObjectExists checks if a blob exists.
	ObjectExists(ctx context.Context, container, key string) (bool, error)

	// MintTokens issues read tokens for blobs (ScopeFile) or for the whole
	// container (ScopeContainer).
	MintTokens(ctx context.Context, container string, scope sas.Scope, names []string) (*sas.Grant, error)

	// Type returns the storage type identifier ("local" or "s3").
	Type() string
}

// TokenVerifier is implemented by backends that serve blobs themselves and
// therefore have to check the tokens they minted.
type TokenVerifier interface {
	VerifyToken(container, key string, query url.Values) error
}
