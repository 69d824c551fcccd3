package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yi-nology/survey_vault/pkg/config"
)

func TestOpenSQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vault.db")
	db, err := Open(config.DatabaseConfig{Driver: "SQLite", SQLite: config.SQLiteConfig{Path: path}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer Close(db)

	if err := db.Exec("CREATE TABLE probe (id INTEGER)").Error; err != nil {
		t.Fatalf("exec: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected database file at %s: %v", path, err)
	}
}

func TestOpenRejectsIncompleteConfig(t *testing.T) {
	cases := []config.DatabaseConfig{
		{Driver: "sqlite"},
		{Driver: "mysql"},
		{Driver: "postgres"},
		{Driver: "oracle"},
	}
	for _, cfg := range cases {
		if _, err := Open(cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestCloseNil(t *testing.T) {
	if err := Close(nil); err != nil {
		t.Fatalf("Close(nil): %v", err)
	}
}
