package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yi-nology/mediable/biz/dal/model"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent), // Reduce log noise in tests
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// one connection keeps the in-memory database alive and serializes writers
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		t.Fatalf("Failed to migrate tables: %v", err)
	}

	return db
}

// CleanupTestDB closes the database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("Warning: Failed to get underlying DB: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Logf("Warning: Failed to close DB: %v", err)
	}
}

// CreateTestFile creates a file asset stored at path on the public disk.
func CreateTestFile(t *testing.T, db *gorm.DB, name, path string, parentID *string) *model.Asset {
	t.Helper()
	asset := &model.Asset{
		Name:      name,
		Type:      model.TypeFile,
		Path:      &path,
		MimeType:  "image/png",
		Extension: "png",
		Size:      10,
		ParentID:  parentID,
	}
	if err := NewAssetDAO().Create(context.Background(), db, asset); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return asset
}

// CreateTestDirectory creates a directory asset.
func CreateTestDirectory(t *testing.T, db *gorm.DB, name string, parentID *string) *model.Asset {
	t.Helper()
	asset := &model.Asset{
		Name:     name,
		Type:     model.TypeDirectory,
		ParentID: parentID,
	}
	if err := NewAssetDAO().Create(context.Background(), db, asset); err != nil {
		t.Fatalf("Failed to create test directory: %v", err)
	}
	return asset
}
