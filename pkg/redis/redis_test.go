package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/yi-nology/survey_vault/pkg/config"
)

func TestNewClientDisabled(t *testing.T) {
	client, err := NewClient(config.RedisConfig{Enabled: false, Address: "unused:1"})
	if err != nil || client != nil {
		t.Fatalf("expected nil client when disabled, got %v, %v", client, err)
	}
}

func TestNewClientPings(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(config.RedisConfig{Enabled: true, Address: mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	mr.Close()
	if _, err := NewClient(config.RedisConfig{Enabled: true, Address: mr.Addr()}); err == nil {
		t.Fatalf("expected ping failure against a stopped server")
	}
}

func TestNewClientAppliesTimeouts(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(config.RedisConfig{
		Enabled:      true,
		Address:      mr.Addr(),
		DialTimeout:  time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	opts := client.Options()
	if opts.DialTimeout != time.Second || opts.ReadTimeout != 2*time.Second || opts.WriteTimeout != 3*time.Second {
		t.Fatalf("timeouts not applied: dial %s read %s write %s", opts.DialTimeout, opts.ReadTimeout, opts.WriteTimeout)
	}

	defaulted, err := NewClient(config.RedisConfig{Enabled: true, Address: mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer defaulted.Close()
	if got := defaulted.Options().DialTimeout; got != defaultDialTimeout {
		t.Fatalf("expected default dial timeout, got %s", got)
	}
}

func TestKeyPrefix(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"  ":            "",
		"survey_vault:": "survey_vault:",
		"staging":       "staging:",
		" tenant-a ":    "tenant-a:",
	}
	for in, want := range cases {
		if got := KeyPrefix(config.RedisConfig{KeyPrefix: in}); got != want {
			t.Fatalf("KeyPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
