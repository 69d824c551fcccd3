package assetstorage

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/yi-nology/survey_vault/pkg/storage/sas"
	"golang.org/x/sync/errgroup"
)

// Session is the authenticated caller as seen by this package.
type Session struct {
	UserID        string
	Authenticated bool
}

// SessionProvider returns the caller's session, or nil when there is none.
type SessionProvider interface {
	CurrentSession(ctx context.Context) *Session
}

// ContainerReadToken is a token scoped to a whole container. Token is empty
// when no token is needed (public storage) or the caller has no access.
type ContainerReadToken struct {
	ContainerName string    `json:"container_name"`
	Token         string    `json:"token,omitempty"`
	GeneratedAt   time.Time `json:"generated_at,omitempty"`
	ExpiresOn     time.Time `json:"expires_on,omitempty"`
}

// HasToken reports whether a token was issued.
func (t *ContainerReadToken) HasToken() bool {
	return t != nil && t.Token != ""
}

// Issuer mints read tokens for storage URLs and applies them to documents.
type Issuer struct {
	cfg      Config
	minter   sas.Minter
	sessions SessionProvider
}

// NewIssuer creates an Issuer. sessions may be nil, in which case container
// tokens are never issued to anyone.
func NewIssuer(cfg Config, minter sas.Minter, sessions SessionProvider) *Issuer {
	return &Issuer{cfg: cfg, minter: minter, sessions: sessions}
}

// Config returns the configuration the issuer was built with.
func (i *Issuer) Config() Config {
	return i.cfg
}

// containerBatch is the set of blobs requested from one container.
type containerBatch struct {
	container string
	blobs     []string
	grant     *sas.Grant
	err       error
}

// IssueTokens mints a read token for every storage URL in urls. URLs that do
// not classify, or that name no blob, are skipped. One minting request is
// made per container, concurrently, and a failing container only drops its
// own URLs from the result. The only error is ErrNotEnabled.
func (i *Issuer) IssueTokens(ctx context.Context, urls []string) (TokenMap, error) {
	if !i.cfg.Enabled {
		return nil, ErrNotEnabled
	}
	tokens := TokenMap{}
	if !i.cfg.Private || len(urls) == 0 {
		return tokens, nil
	}

	type resolved struct {
		url       string
		container string
		blob      string
	}
	var refs []resolved
	batches := map[string]*containerBatch{}
	var order []*containerBatch
	seenBlob := map[string]map[string]struct{}{}

	for _, u := range urls {
		info, ok := Classify(u, i.cfg)
		if !ok || info.BlobName == "" {
			continue
		}
		refs = append(refs, resolved{url: u, container: info.ContainerName, blob: info.BlobName})

		b, ok := batches[info.ContainerName]
		if !ok {
			b = &containerBatch{container: info.ContainerName}
			batches[info.ContainerName] = b
			order = append(order, b)
			seenBlob[info.ContainerName] = map[string]struct{}{}
		}
		if _, dup := seenBlob[info.ContainerName][info.BlobName]; dup {
			continue
		}
		seenBlob[info.ContainerName][info.BlobName] = struct{}{}
		b.blobs = append(b.blobs, info.BlobName)
	}
	if len(order) == 0 {
		return tokens, nil
	}

	// Each goroutine owns its batch; failures are recorded, never returned,
	// so one container cannot cancel the others.
	var g errgroup.Group
	for _, b := range order {
		g.Go(func() error {
			grant, err := i.minter.MintTokens(ctx, b.container, sas.ScopeFile, b.blobs)
			if err != nil {
				b.err = &UpstreamError{Container: b.container, Err: err}
				return nil
			}
			b.grant = grant
			return nil
		})
	}
	_ = g.Wait()

	for _, b := range order {
		if b.err != nil {
			hlog.CtxWarnf(ctx, "asset tokens: skipping container %s (%d blobs): %v", b.container, len(b.blobs), b.err)
		}
	}
	for _, r := range refs {
		b := batches[r.container]
		if b.err != nil {
			continue
		}
		if tok, ok := b.grant.Token(r.blob); ok {
			tokens[r.url] = tok
		}
	}
	return tokens, nil
}

// IssueContainerToken mints a token covering every blob in containerName,
// which may be a physical container name or a logical type. Public storage
// and unauthenticated callers get a result without a token.
func (i *Issuer) IssueContainerToken(ctx context.Context, containerName string) (*ContainerReadToken, error) {
	if !i.cfg.Enabled {
		return nil, ErrNotEnabled
	}
	if containerName == "" {
		return nil, &ValidationError{Field: "container_name", Message: "container name is required"}
	}
	container, ok := i.cfg.ResolveContainer(containerName)
	if !ok {
		return nil, &ValidationError{Field: "container_name", Message: "unknown container " + containerName}
	}
	result := &ContainerReadToken{ContainerName: container}
	if !i.cfg.Private {
		return result, nil
	}
	if !i.authenticated(ctx) {
		return result, nil
	}

	grant, err := i.minter.MintTokens(ctx, container, sas.ScopeContainer, []string{container})
	if err != nil {
		return nil, &UpstreamError{Container: container, Err: err}
	}
	tok, ok := grant.Token(container)
	if !ok {
		return nil, &UpstreamError{Container: container, Err: errors.New("no token returned")}
	}
	result.Token = tok
	result.GeneratedAt = grant.GeneratedAt
	result.ExpiresOn = grant.ExpiresOn
	return result, nil
}

func (i *Issuer) authenticated(ctx context.Context) bool {
	if i.sessions == nil {
		return false
	}
	sess := i.sessions.CurrentSession(ctx)
	return sess != nil && sess.Authenticated
}

// AuthorizeDocument runs a full pass over doc: manifest, minting and in
// place enrichment. It returns the tokens that were applied.
func (i *Issuer) AuthorizeDocument(ctx context.Context, doc Document) (TokenMap, error) {
	tokens, err := i.IssueTokens(ctx, GenerateManifest(doc))
	if err != nil {
		return nil, err
	}
	ApplyTokens(doc, tokens)
	return tokens, nil
}

// AuthorizeText is AuthorizeDocument for serialized content that is not
// decoded into a Document.
func (i *Issuer) AuthorizeText(ctx context.Context, content string) (string, TokenMap, error) {
	tokens, err := i.IssueTokens(ctx, ExtractStorageURLs(content, i.cfg.HostName))
	if err != nil {
		return "", nil, err
	}
	return RewriteStorageURLs(content, i.cfg.HostName, tokens), tokens, nil
}
