package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/redis/go-redis/v9"
	"github.com/yi-nology/survey_vault/pkg/lock"
	"github.com/yi-nology/survey_vault/pkg/storage/sas"
)

const (
	// DefaultKeyPrefix namespaces the Redis keys written by CachedMinter.
	DefaultKeyPrefix = "survey_vault:"

	grantKeySegment      = "container_grant:"
	grantLockSegment     = "grant_lock:"
	grantLockTTL         = 10 * time.Second
	grantLockWait        = 3 * time.Second
	DefaultRefreshMargin = 5 * time.Minute
)

// CachedMinter shares container scoped grants between replicas through
// Redis until shortly before they expire. File scoped requests always go to
// the backend. With a nil client every request goes to the backend.
type CachedMinter struct {
	inner  sas.Minter
	client *redis.Client
	margin time.Duration
	prefix string
	now    func() time.Time
}

// NewCachedMinter wraps inner. margin is how long before expiry a cached
// grant stops being handed out.
func NewCachedMinter(inner sas.Minter, client *redis.Client, margin time.Duration) *CachedMinter {
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	return &CachedMinter{inner: inner, client: client, margin: margin, prefix: DefaultKeyPrefix, now: time.Now}
}

// WithKeyPrefix replaces DefaultKeyPrefix in every key m reads or writes.
func (m *CachedMinter) WithKeyPrefix(prefix string) *CachedMinter {
	if prefix != "" {
		m.prefix = prefix
	}
	return m
}

func (m *CachedMinter) grantKey(container string) string {
	return m.prefix + grantKeySegment + container
}

func (m *CachedMinter) lockKey(container string) string {
	return m.prefix + grantLockSegment + container
}

// MintTokens implements sas.Minter.
func (m *CachedMinter) MintTokens(ctx context.Context, container string, scope sas.Scope, names []string) (*sas.Grant, error) {
	if m.client == nil || scope != sas.ScopeContainer {
		return m.inner.MintTokens(ctx, container, scope, names)
	}

	key := m.grantKey(container)
	if grant, ok := m.lookup(ctx, key); ok {
		return grant, nil
	}

	// One replica mints while the others wait and then read its grant. If
	// the lock cannot be had, mint anyway.
	l := lock.New(m.client, m.lockKey(container), grantLockTTL, grantLockWait)
	if lockID, err := l.Acquire(ctx); err != nil {
		hlog.CtxWarnf(ctx, "grant cache: %v", err)
	} else {
		defer func() {
			if err := l.Release(ctx, lockID); err != nil {
				hlog.CtxWarnf(ctx, "grant cache: %v", err)
			}
		}()
		if grant, ok := m.lookup(ctx, key); ok {
			return grant, nil
		}
	}

	grant, err := m.inner.MintTokens(ctx, container, scope, names)
	if err != nil {
		return nil, err
	}
	m.store(ctx, key, grant)
	return grant, nil
}

func (m *CachedMinter) lookup(ctx context.Context, key string) (*sas.Grant, bool) {
	raw, err := m.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			hlog.CtxWarnf(ctx, "grant cache: get %s: %v", key, err)
		}
		return nil, false
	}
	var grant sas.Grant
	if err := json.Unmarshal(raw, &grant); err != nil {
		hlog.CtxWarnf(ctx, "grant cache: decode %s: %v", key, err)
		return nil, false
	}
	if !m.now().Add(m.margin).Before(grant.ExpiresOn) {
		return nil, false
	}
	return &grant, true
}

func (m *CachedMinter) store(ctx context.Context, key string, grant *sas.Grant) {
	ttl := grant.ExpiresOn.Sub(m.now()) - m.margin
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(grant)
	if err != nil {
		hlog.CtxWarnf(ctx, "grant cache: encode %s: %v", key, err)
		return
	}
	if err := m.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		hlog.CtxWarnf(ctx, "grant cache: set %s: %v", key, err)
	}
}
