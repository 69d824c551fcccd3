package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/google/uuid"
	"github.com/yi-nology/survey_vault/biz/dal/db"
	"github.com/yi-nology/survey_vault/biz/dal/model"
	"github.com/yi-nology/survey_vault/pkg/assetstorage"
	"github.com/yi-nology/survey_vault/pkg/session"
	"github.com/yi-nology/survey_vault/pkg/storage"
	"github.com/yi-nology/survey_vault/pkg/storage/sas"
	"github.com/yi-nology/survey_vault/pkg/validator"

	"gorm.io/gorm"
)

var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrForbidden        = errors.New("access to blob denied")
	ErrBlobNotFound     = errors.New("blob not found")
	ErrServingDisabled  = errors.New("storage backend does not serve blobs")
	ErrLedgerNotEnabled = errors.New("grant ledger is not configured")
)

// FileUploadInput captures metadata and payload for user file uploads.
type FileUploadInput struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Blob is an opened blob ready to be streamed back to a client.
type Blob struct {
	Reader      io.ReadCloser
	ContentType string
	FileName    string
}

// StorageService exposes the asset authorization core together with the
// upload, download and ledger flows around it.
type StorageService struct {
	issuer   *assetstorage.Issuer
	store    storage.Storage
	db       *gorm.DB
	assetDAO *db.AssetDAO
	grantDAO *db.GrantDAO
	upload   *validator.UploadConfig
}

// NewStorageService wires the service. dbConn may be nil, which disables
// asset metadata and the grant ledger.
func NewStorageService(issuer *assetstorage.Issuer, store storage.Storage, dbConn *gorm.DB, upload *validator.UploadConfig) *StorageService {
	if upload == nil {
		upload = validator.DefaultUploadConfig()
	}
	return &StorageService{
		issuer:   issuer,
		store:    store,
		db:       dbConn,
		assetDAO: db.NewAssetDAO(),
		grantDAO: db.NewGrantDAO(),
		upload:   upload,
	}
}

// AuthorizeDocument decodes a survey definition and returns it with read
// tokens merged into every private asset URL.
func (s *StorageService) AuthorizeDocument(ctx context.Context, raw []byte) (assetstorage.Document, error) {
	doc, err := assetstorage.ParseDocument(raw)
	if err != nil {
		return nil, &assetstorage.ValidationError{Field: "document", Message: err.Error()}
	}
	if _, err := s.issuer.AuthorizeDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// AuthorizeText rewrites every storage URL found in content.
func (s *StorageService) AuthorizeText(ctx context.Context, content string) (string, error) {
	out, _, err := s.issuer.AuthorizeText(ctx, content)
	return out, err
}

// IssueTokens returns read tokens keyed by URL.
func (s *StorageService) IssueTokens(ctx context.Context, urls []string) (assetstorage.TokenMap, error) {
	return s.issuer.IssueTokens(ctx, urls)
}

// ContainerToken returns a container scoped read token for the caller.
func (s *StorageService) ContainerToken(ctx context.Context, container string) (*assetstorage.ContainerReadToken, error) {
	return s.issuer.IssueContainerToken(ctx, strings.TrimSpace(container))
}

// UploadFile stores a user file under <user>/<uuid>/<name> in the user
// files container and returns its metadata with the canonical URL.
func (s *StorageService) UploadFile(ctx context.Context, input *FileUploadInput) (*model.Asset, error) {
	cfg := s.issuer.Config()
	if !cfg.Enabled {
		return nil, assetstorage.ErrNotEnabled
	}
	sess, ok := session.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	if input == nil {
		return nil, &assetstorage.ValidationError{Field: "file", Message: "input required"}
	}
	size := int64(len(input.Data))
	if err := s.upload.ValidateFileSize(size); err != nil {
		return nil, &assetstorage.ValidationError{Field: "file", Message: err.Error()}
	}
	contentType, err := s.upload.DetectAndValidateMimeType(input.Data, input.ContentType)
	if err != nil {
		return nil, &assetstorage.ValidationError{Field: "file", Message: err.Error()}
	}

	fileID := uuid.NewString()
	fileName, ok := validator.SanitizeFileName(input.FileName)
	if !ok {
		fileName = fileID
	}
	prefix, ok := userPrefix(sess)
	if !ok {
		return nil, ErrForbidden
	}
	key := path.Join(prefix, fileID, fileName)
	if !validator.ValidateBlobKey(key) {
		return nil, &assetstorage.ValidationError{Field: "file", Message: "cannot derive a valid blob name"}
	}

	container := cfg.ContainerName(assetstorage.ContainerUserFiles)
	if err := s.store.PutObject(ctx, container, key, bytes.NewReader(input.Data), contentType, size); err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}

	asset := &model.Asset{
		FileID:      fileID,
		Container:   container,
		BlobName:    key,
		UserID:      sess.UserID,
		FileName:    fileName,
		ContentType: contentType,
		FileSize:    size,
		URL:         assetstorage.BlobURL(cfg, container, key),
	}
	if s.db != nil {
		if err := s.assetDAO.Create(ctx, s.db, asset); err != nil {
			// Rollback: delete uploaded file
			_ = s.store.DeleteObject(ctx, container, key)
			return nil, err
		}
	}
	hlog.CtxInfof(ctx, "stored %s/%s (%d bytes) for user %s", container, key, size, sess.UserID)
	return asset, nil
}

// DeleteFile removes a user file. Callers may only delete blobs under their
// own user prefix.
func (s *StorageService) DeleteFile(ctx context.Context, blobName string) error {
	cfg := s.issuer.Config()
	if !cfg.Enabled {
		return assetstorage.ErrNotEnabled
	}
	sess, ok := session.FromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	blobName = strings.TrimPrefix(blobName, "/")
	if !validator.ValidateBlobKey(blobName) {
		return &assetstorage.ValidationError{Field: "blob", Message: "invalid blob name"}
	}
	prefix, ok := userPrefix(sess)
	if !ok || !strings.HasPrefix(blobName, prefix+"/") {
		return ErrForbidden
	}

	container := cfg.ContainerName(assetstorage.ContainerUserFiles)
	if s.db != nil {
		asset, err := s.assetDAO.GetByBlob(ctx, s.db, container, blobName)
		switch {
		case err == nil:
			if asset.UserID != sess.UserID {
				return ErrForbidden
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("load asset: %w", err)
		}
	}
	exists, err := s.store.ObjectExists(ctx, container, blobName)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if !exists {
		return ErrBlobNotFound
	}
	if err := s.store.DeleteObject(ctx, container, blobName); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if s.db != nil {
		if err := s.assetDAO.DeleteByBlob(ctx, s.db, container, blobName); err != nil {
			hlog.CtxWarnf(ctx, "delete asset row %s/%s: %v", container, blobName, err)
		}
	}
	return nil
}

// OpenBlob opens a blob for streaming. When storage is private the request
// query must carry a token the backend minted for this blob or container.
func (s *StorageService) OpenBlob(ctx context.Context, container, blobName string, query url.Values) (*Blob, error) {
	cfg := s.issuer.Config()
	if !cfg.Enabled {
		return nil, assetstorage.ErrNotEnabled
	}
	container = strings.ToLower(container)
	blobName = strings.TrimPrefix(blobName, "/")
	if !knownContainer(cfg, container) || !validator.ValidateBlobKey(blobName) {
		return nil, ErrBlobNotFound
	}

	if cfg.Private {
		verifier, ok := s.store.(storage.TokenVerifier)
		if !ok {
			return nil, ErrServingDisabled
		}
		if err := verifier.VerifyToken(container, blobName, query); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrForbidden, err)
		}
	}

	reader, err := s.store.GetObject(ctx, container, blobName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("get file: %w", err)
	}

	blob := &Blob{Reader: reader, FileName: path.Base(blobName)}
	if s.db != nil {
		if asset, err := s.assetDAO.GetByBlob(ctx, s.db, container, blobName); err == nil {
			blob.ContentType = asset.ContentType
			blob.FileName = asset.FileName
		}
	}
	if blob.ContentType == "" {
		blob.ContentType = mime.TypeByExtension(path.Ext(blobName))
	}
	return blob, nil
}

// ListGrants returns recent ledger entries, newest first.
func (s *StorageService) ListGrants(ctx context.Context, container string, limit int) ([]model.TokenGrant, error) {
	if s.db == nil {
		return nil, ErrLedgerNotEnabled
	}
	return s.grantDAO.List(ctx, s.db, strings.ToLower(strings.TrimSpace(container)), limit)
}

// userNamespace seeds the name based UUIDs used as per-user blob prefixes.
var userNamespace = uuid.MustParse("6f1c1e52-8d0a-5b7e-9a44-3c2b7d1f0e91")

// userPrefix is the first blob name segment of every file a user uploads.
// Distinct user IDs always map to distinct prefixes.
func userPrefix(sess *session.Session) (string, bool) {
	if sess.UserID == "" {
		return "", false
	}
	return uuid.NewSHA1(userNamespace, []byte(sess.UserID)).String(), true
}

func knownContainer(cfg assetstorage.Config, name string) bool {
	for _, c := range cfg.Containers() {
		if c == name {
			return true
		}
	}
	return false
}

// IsTokenError reports whether err came from rejecting a blob token.
func IsTokenError(err error) bool {
	return errors.Is(err, sas.ErrTokenMissing) ||
		errors.Is(err, sas.ErrTokenExpired) ||
		errors.Is(err, sas.ErrTokenInvalid) ||
		errors.Is(err, sas.ErrTokenNotYetValid)
}
