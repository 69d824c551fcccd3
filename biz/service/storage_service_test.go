package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yi-nology/survey_vault/biz/dal/db"
	"github.com/yi-nology/survey_vault/biz/service"
	"github.com/yi-nology/survey_vault/pkg/assetstorage"
	"github.com/yi-nology/survey_vault/pkg/session"
	"github.com/yi-nology/survey_vault/pkg/storage/local"
	"github.com/yi-nology/survey_vault/pkg/validator"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testHost = "files.example.test"

var pngData = append([]byte("\x89PNG\r\n\x1a\n"), []byte("not really an image")...)

func newTestService(t *testing.T, private bool) *service.StorageService {
	t.Helper()
	return newTestServiceWithTTL(t, private, 0)
}

func newTestServiceWithTTL(t *testing.T, private bool, ttl time.Duration) *service.StorageService {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	store, err := local.New(local.Config{BasePath: t.TempDir(), SigningKey: []byte("test-signing-key"), TokenTTL: ttl})
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	cfg := assetstorage.NewConfig(true, private, testHost, assetstorage.ContainerNames{
		UserFiles: "user-files",
		Content:   "content",
	})
	issuer := assetstorage.NewIssuer(cfg, service.NewGrantRecorder(store, conn), session.Provider{})
	return service.NewStorageService(issuer, store, conn, validator.NewUploadConfig(1024, nil))
}

func userContext(userID string) context.Context {
	return session.WithSession(context.Background(), &session.Session{UserID: userID})
}

func openURL(t *testing.T, svc *service.StorageService, ctx context.Context, raw string) (string, error) {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	blob, err := svc.OpenBlob(ctx, parts[0], parts[1], u.Query())
	if err != nil {
		return "", err
	}
	defer blob.Reader.Close()
	data, err := io.ReadAll(blob.Reader)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	return string(data), nil
}

func TestUploadAndAuthorizeDocument(t *testing.T) {
	svc := newTestService(t, true)
	ctx := userContext("u1")

	asset, err := svc.UploadFile(ctx, &service.FileUploadInput{FileName: "my photo.png", Data: pngData})
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if asset.ContentType != "image/png" || asset.FileName != "my_photo.png" {
		t.Fatalf("unexpected asset metadata: %+v", asset)
	}
	wantPrefix := "https://" + testHost + "/user-files/"
	if !strings.HasPrefix(asset.URL, wantPrefix) || !strings.HasSuffix(asset.URL, "/my_photo.png") {
		t.Fatalf("unexpected url %q", asset.URL)
	}

	if _, err := openURL(t, svc, ctx, asset.URL); !errors.Is(err, service.ErrForbidden) || !service.IsTokenError(err) {
		t.Fatalf("expected token error without a token, got %v", err)
	}

	raw := fmt.Sprintf(`{"logo":%q,"pages":[{"elements":[{"type":"image","imageLink":%q}]}]}`, asset.URL, asset.URL)
	doc, err := svc.AuthorizeDocument(ctx, []byte(raw))
	if err != nil {
		t.Fatalf("AuthorizeDocument: %v", err)
	}
	logo, _ := doc["logo"].(string)
	if !strings.Contains(logo, "sig=") {
		t.Fatalf("logo was not enriched: %q", logo)
	}
	content, err := openURL(t, svc, ctx, logo)
	if err != nil {
		t.Fatalf("open enriched url: %v", err)
	}
	if content != string(pngData) {
		t.Fatalf("unexpected content %q", content)
	}

	grants, err := svc.ListGrants(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListGrants: %v", err)
	}
	if len(grants) != 1 || grants[0].Scope != "file" || grants[0].ResourceCount != 1 || grants[0].UserID != "u1" {
		t.Fatalf("unexpected ledger: %+v", grants)
	}
}

func TestAuthorizeText(t *testing.T) {
	svc := newTestService(t, true)
	ctx := userContext("u1")
	asset, err := svc.UploadFile(ctx, &service.FileUploadInput{FileName: "a.png", Data: pngData})
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}

	out, err := svc.AuthorizeText(ctx, `{"x":"`+asset.URL+`","y":"https://elsewhere.test/a.png"}`)
	if err != nil {
		t.Fatalf("AuthorizeText: %v", err)
	}
	if !strings.Contains(out, asset.URL+"?") || !strings.Contains(out, `"https://elsewhere.test/a.png"`) {
		t.Fatalf("unexpected rewrite: %s", out)
	}
}

func TestAuthorizeDocumentRejectsInvalidJSON(t *testing.T) {
	svc := newTestService(t, true)
	_, err := svc.AuthorizeDocument(context.Background(), []byte("{not json"))
	if !assetstorage.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIssueTokensWithoutURLs(t *testing.T) {
	svc := newTestService(t, true)
	for _, urls := range [][]string{nil, {}} {
		tokens, err := svc.IssueTokens(context.Background(), urls)
		if err != nil {
			t.Fatalf("IssueTokens(%v): %v", urls, err)
		}
		if tokens == nil || len(tokens) != 0 {
			t.Fatalf("expected an empty token map, got %#v", tokens)
		}
	}
}

func TestReauthorizeExpiredDocument(t *testing.T) {
	svc := newTestServiceWithTTL(t, true, time.Second)
	ctx := userContext("u1")
	asset, err := svc.UploadFile(ctx, &service.FileUploadInput{FileName: "a.png", Data: pngData})
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}

	raw := fmt.Sprintf(`{"logo":%q}`, asset.URL)
	doc, err := svc.AuthorizeDocument(ctx, []byte(raw))
	if err != nil {
		t.Fatalf("AuthorizeDocument: %v", err)
	}
	time.Sleep(2 * time.Second)

	stale, _ := doc["logo"].(string)
	if _, err := openURL(t, svc, ctx, stale); !service.IsTokenError(err) {
		t.Fatalf("expected the first token to have expired, got %v", err)
	}

	enriched, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	again, err := svc.AuthorizeDocument(ctx, enriched)
	if err != nil {
		t.Fatalf("AuthorizeDocument (again): %v", err)
	}
	logo, _ := again["logo"].(string)
	if n := strings.Count(logo, "sig="); n != 2 {
		t.Fatalf("expected the fresh token to be appended, got %d sets in %q", n, logo)
	}
	content, err := openURL(t, svc, ctx, logo)
	if err != nil {
		t.Fatalf("open re-authorized url: %v", err)
	}
	if content != string(pngData) {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestContainerTokenOpensAnyBlob(t *testing.T) {
	svc := newTestService(t, true)
	ctx := userContext("u1")
	asset, err := svc.UploadFile(ctx, &service.FileUploadInput{FileName: "a.png", Data: pngData})
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}

	anon, err := svc.ContainerToken(context.Background(), "user-files")
	if err != nil {
		t.Fatalf("ContainerToken (anonymous): %v", err)
	}
	if anon.HasToken() {
		t.Fatalf("anonymous caller must not receive a token")
	}

	tok, err := svc.ContainerToken(ctx, " USER_FILES ")
	if err != nil {
		t.Fatalf("ContainerToken: %v", err)
	}
	if !tok.HasToken() || tok.ContainerName != "user-files" {
		t.Fatalf("unexpected token: %+v", tok)
	}
	if _, err := openURL(t, svc, ctx, assetstorage.MergeToken(asset.URL, tok.Token)); err != nil {
		t.Fatalf("open with container token: %v", err)
	}

	if _, err := svc.ContainerToken(ctx, "nope"); !assetstorage.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUploadValidation(t *testing.T) {
	svc := newTestService(t, true)

	if _, err := svc.UploadFile(context.Background(), &service.FileUploadInput{FileName: "a.png", Data: pngData}); !errors.Is(err, service.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	ctx := userContext("u1")
	cases := map[string][]byte{
		"empty":     nil,
		"too large": append(append([]byte{}, pngData...), make([]byte, 2048)...),
		"binary":    {0x00, 0x01, 0x02, 0x03, 0xfe},
	}
	for name, data := range cases {
		if _, err := svc.UploadFile(ctx, &service.FileUploadInput{FileName: "x.bin", Data: data}); !assetstorage.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestDeleteFile(t *testing.T) {
	svc := newTestService(t, false)
	owner := userContext("u1")
	asset, err := svc.UploadFile(owner, &service.FileUploadInput{FileName: "a.png", Data: pngData})
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	blobName := strings.TrimPrefix(asset.URL, "https://"+testHost+"/user-files/")

	if err := svc.DeleteFile(userContext("u2"), blobName); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for another user, got %v", err)
	}
	if err := svc.DeleteFile(owner, "../"+blobName); !assetstorage.IsValidation(err) {
		t.Fatalf("expected validation error for traversal, got %v", err)
	}
	if err := svc.DeleteFile(owner, blobName); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if err := svc.DeleteFile(owner, blobName); !errors.Is(err, service.ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound on second delete, got %v", err)
	}
	if _, err := openURL(t, svc, owner, asset.URL); !errors.Is(err, service.ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound after delete, got %v", err)
	}
}

func TestDeleteFileCollidingUserIDs(t *testing.T) {
	svc := newTestService(t, false)
	spaced, underscored := userContext("a b"), userContext("a_b")

	first, err := svc.UploadFile(spaced, &service.FileUploadInput{FileName: "a.png", Data: pngData})
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	second, err := svc.UploadFile(underscored, &service.FileUploadInput{FileName: "a.png", Data: pngData})
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	firstBlob := strings.TrimPrefix(first.URL, "https://"+testHost+"/user-files/")
	secondBlob := strings.TrimPrefix(second.URL, "https://"+testHost+"/user-files/")
	if strings.SplitN(firstBlob, "/", 2)[0] == strings.SplitN(secondBlob, "/", 2)[0] {
		t.Fatalf("users %q and %q share a prefix: %s, %s", "a b", "a_b", firstBlob, secondBlob)
	}

	if err := svc.DeleteFile(underscored, firstBlob); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.DeleteFile(spaced, secondBlob); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	for _, u := range []string{first.URL, second.URL} {
		if _, err := openURL(t, svc, context.Background(), u); err != nil {
			t.Fatalf("blob %s should survive: %v", u, err)
		}
	}
	if err := svc.DeleteFile(spaced, firstBlob); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func TestPublicStorageServesWithoutToken(t *testing.T) {
	svc := newTestService(t, false)
	ctx := userContext("u1")
	asset, err := svc.UploadFile(ctx, &service.FileUploadInput{FileName: "a.png", Data: pngData})
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if _, err := openURL(t, svc, context.Background(), asset.URL); err != nil {
		t.Fatalf("open public blob: %v", err)
	}
	tokens, err := svc.IssueTokens(ctx, []string{asset.URL})
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}
	if len(tokens) != 0 {
		t.Fatalf("public storage must not mint tokens, got %v", tokens)
	}
	if _, err := svc.OpenBlob(ctx, "unknown", "a.png", nil); !errors.Is(err, service.ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound for unknown container, got %v", err)
	}
}

func TestListGrantsWithoutDatabase(t *testing.T) {
	store, err := local.New(local.Config{BasePath: t.TempDir(), SigningKey: []byte("k")})
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	cfg := assetstorage.NewConfig(true, true, testHost, assetstorage.ContainerNames{UserFiles: "user-files", Content: "content"})
	svc := service.NewStorageService(assetstorage.NewIssuer(cfg, store, session.Provider{}), store, nil, nil)
	if _, err := svc.ListGrants(context.Background(), "", 10); !errors.Is(err, service.ErrLedgerNotEnabled) {
		t.Fatalf("expected ErrLedgerNotEnabled, got %v", err)
	}
}
