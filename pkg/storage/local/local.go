// Package local implements the local filesystem storage adapter.
// Containers are directories under the base path. Read tokens are HMAC
// signatures over the container, the blob and the expiry time, verified by
// the server when it streams the blob back.
package local

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/yi-nology/survey_vault/pkg/storage/sas"
)

// Config holds local storage configuration.
type Config struct {
	BasePath   string
	SigningKey []byte
	TokenTTL   time.Duration
}

// Storage implements the storage.Storage interface using local filesystem.
type Storage struct {
	basePath string
	signer   *signer
}

// New creates a new local storage adapter. Without a signing key a random
// one is generated, which invalidates issued tokens on restart.
func New(cfg Config) (*Storage, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "data/blobs"
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage directory: %w", err)
	}

	// Ensure base directory exists
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	key := cfg.SigningKey
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		hlog.Warnf("local storage: no signing key configured, using an ephemeral key")
	}

	return &Storage{
		basePath: abs,
		signer:   newSigner(key, cfg.TokenTTL, time.Now),
	}, nil
}

// PutObject writes a blob to the local filesystem.
func (s *Storage) PutObject(ctx context.Context, container, key string, data io.Reader, contentType string, size int64) error {
	fullPath, err := s.keyToPath(container, key)
	if err != nil {
		return err
	}

	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		os.Remove(fullPath)
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}

// GetObject opens a blob from the local filesystem.
func (s *Storage) GetObject(ctx context.Context, container, key string) (io.ReadCloser, error) {
	fullPath, err := s.keyToPath(container, key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object not found: %s/%s: %w", container, key, os.ErrNotExist)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}

	return f, nil
}

// DeleteObject removes a blob from the local filesystem.
func (s *Storage) DeleteObject(ctx context.Context, container, key string) error {
	fullPath, err := s.keyToPath(container, key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil // Already deleted
		}
		return fmt.Errorf("delete file: %w", err)
	}

	// Try to remove parent directory if empty
	dir := filepath.Dir(fullPath)
	if dir != filepath.Join(s.basePath, container) {
		os.Remove(dir) // Ignore error if directory is not empty
	}

	return nil
}

// ObjectExists checks if a blob exists in the local filesystem.
func (s *Storage) ObjectExists(ctx context.Context, container, key string) (bool, error) {
	fullPath, err := s.keyToPath(container, key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat file: %w", err)
	}

	return !info.IsDir(), nil
}

// MintTokens signs read tokens for the named blobs or for the container.
func (s *Storage) MintTokens(ctx context.Context, container string, scope sas.Scope, names []string) (*sas.Grant, error) {
	if container == "" {
		return nil, fmt.Errorf("container name is required")
	}
	return s.signer.mint(container, scope, names)
}

// VerifyToken checks a token presented in a blob request's query string.
func (s *Storage) VerifyToken(container, key string, query url.Values) error {
	return s.signer.verify(container, key, query)
}

// Type returns "local" as the storage type identifier.
func (s *Storage) Type() string {
	return "local"
}

// BasePath returns the base path of the storage.
func (s *Storage) BasePath() string {
	return s.basePath
}

// keyToPath converts a container and blob key to a full filesystem path,
// refusing keys that escape the container directory.
func (s *Storage) keyToPath(container, key string) (string, error) {
	if container == "" || strings.ContainsAny(container, `/\`) || container == "." || container == ".." {
		return "", fmt.Errorf("invalid container name: %q", container)
	}
	root := filepath.Join(s.basePath, container)
	full := filepath.Join(root, filepath.FromSlash(key))
	if full == root || !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	return full, nil
}
