// Package sas defines the contract between the asset authorization core and
// the storage backends that mint short-lived read tokens.
package sas

import (
	"context"
	"errors"
	"time"
)

// Scope selects what a minted token grants access to.
type Scope string

const (
	// ScopeFile mints one token per named blob.
	ScopeFile Scope = "file"
	// ScopeContainer mints a single token valid for every blob in the container.
	ScopeContainer Scope = "container"
)

// ErrScopeUnsupported is returned by backends that cannot mint the requested scope.
var ErrScopeUnsupported = errors.New("token scope not supported by storage backend")

// Grant is the result of a successful minting call.
// ReadTokens is keyed by blob name for ScopeFile and by container name for ScopeContainer.
// A token is a query string fragment without a leading "?".
type Grant struct {
	ReadTokens  map[string]string `json:"read_tokens"`
	ExpiresOn   time.Time         `json:"expires_on"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Token returns the token minted for name, if any.
func (g *Grant) Token(name string) (string, bool) {
	if g == nil || g.ReadTokens == nil {
		return "", false
	}
	tok, ok := g.ReadTokens[name]
	if !ok || tok == "" {
		return "", false
	}
	return tok, true
}

// Minter mints read tokens for resources in a single container.
type Minter interface {
	MintTokens(ctx context.Context, container string, scope Scope, names []string) (*Grant, error)
}

// Verification failures reported by backends that check their own tokens.
var (
	ErrTokenMissing = errors.New("access token missing")
	ErrTokenExpired = errors.New("access token expired")
	ErrTokenInvalid = errors.New("access token invalid")

	ErrTokenNotYetValid = errors.New("access token not yet valid")
)
