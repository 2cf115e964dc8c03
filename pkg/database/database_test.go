package database

import (
	"path/filepath"
	"testing"

	"github.com/yi-nology/mediable/pkg/config"
)

func TestWithForeignKeys(t *testing.T) {
	tests := map[string]string{
		"data/media.db":                  "data/media.db?_foreign_keys=on",
		"file:x?mode=memory":             "file:x?mode=memory&_foreign_keys=on",
		"data/media.db?_foreign_keys=on": "data/media.db?_foreign_keys=on",
	}
	for in, want := range tests {
		if got := withForeignKeys(in); got != want {
			t.Errorf("withForeignKeys(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "media.db")
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", SQLite: config.SQLiteConfig{Path: path}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var fk int
	if err := db.Raw("PRAGMA foreign_keys").Scan(&fk).Error; err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if fk != 1 {
		t.Fatalf("expected foreign keys enabled, got %d", fk)
	}
	sqlDB, _ := db.DB()
	_ = sqlDB.Close()
}

func TestOpenRejectsMisconfiguration(t *testing.T) {
	cases := []config.DatabaseConfig{
		{Driver: "oracle"},
		{Driver: "mysql"},
		{Driver: "postgres"},
		{Driver: "sqlite"},
	}
	for _, cfg := range cases {
		if _, err := Open(cfg); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
}
