package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/redis/go-redis/v9"
	"github.com/yi-nology/survey_vault/pkg/config"
)

const defaultDialTimeout = 5 * time.Second

// NewClient connects to the Redis server holding cached container grants
// and checks it answers within cfg.DialTimeout.
// Returns nil, nil if Redis is not enabled.
func NewClient(cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	addr := cfg.Address
	if addr == "" {
		addr = "localhost:6379"
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	hlog.Infof("grant cache connected to redis %s (db %d, prefix %q)", addr, cfg.DB, KeyPrefix(cfg))
	return client, nil
}

// KeyPrefix returns the configured key namespace, always ending in ':'.
// An empty prefix stays empty and callers fall back to their own default.
func KeyPrefix(cfg config.RedisConfig) string {
	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" || strings.HasSuffix(prefix, ":") {
		return prefix
	}
	return prefix + ":"
}
