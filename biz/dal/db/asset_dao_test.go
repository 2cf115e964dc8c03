package db

import (
	"context"
	"errors"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yi-nology/mediable/biz/dal/model"
)

func TestAssetDAO_Create(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	dao := NewAssetDAO()
	ctx := context.Background()

	t.Run("Defaults", func(t *testing.T) {
		path := "2024/05/29/photo.png"
		asset := &model.Asset{Name: "photo.png", Path: &path, Size: 10}
		if err := dao.Create(ctx, db, asset); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if asset.ID == "" {
			t.Fatal("Expected ID to be assigned")
		}

		found, err := dao.GetByID(ctx, db, asset.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if found.Disk != model.DefaultDisk || found.Type != model.TypeFile {
			t.Errorf("Unexpected defaults disk=%s type=%s", found.Disk, found.Type)
		}
		if len(found.Conversions) != 0 {
			t.Errorf("Expected empty conversions, got %v", found.Conversions.Names())
		}
	})

	t.Run("DuplicatePath", func(t *testing.T) {
		path := "2024/05/29/taken.png"
		if err := dao.Create(ctx, db, &model.Asset{Name: "taken.png", Path: &path}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		err := dao.Create(ctx, db, &model.Asset{Name: "taken.png", Path: &path})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			t.Fatalf("Expected ErrDuplicatedKey, got %v", err)
		}

		other := "private"
		if err := dao.Create(ctx, db, &model.Asset{Name: "taken.png", Path: &path, Disk: other}); err != nil {
			t.Fatalf("Same path on another disk should be allowed: %v", err)
		}
	})

	t.Run("NilEntity", func(t *testing.T) {
		if err := dao.Create(ctx, db, nil); err == nil {
			t.Error("Expected error for nil entity")
		}
	})

	t.Run("DuplicatePathOnSameDisk", func(t *testing.T) {
		CreateTestFile(t, db, "dup.png", "2024/05/29/dup.png", nil)
		path := "2024/05/29/dup.png"
		err := dao.Create(ctx, db, &model.Asset{Name: "dup.png", Path: &path})
		if err == nil {
			t.Error("Expected unique violation for duplicate path")
		}
	})

	t.Run("DirectoriesShareEmptyPath", func(t *testing.T) {
		CreateTestDirectory(t, db, "a", nil)
		CreateTestDirectory(t, db, "b", nil)
	})
}

func TestAssetDAO_ConversionsAndMetadata(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	dao := NewAssetDAO()
	ctx := context.Background()

	asset := CreateTestFile(t, db, "photo.png", "2024/05/29/photo.png", nil)

	var conv model.Conversions
	_ = conv.Set(model.Conversion{Name: "thumb", Path: "2024/05/29/conversions/thumb/photo.png", ImageSize: "150x150"})
	_ = conv.Set(model.Conversion{Name: "large", Path: "2024/05/29/conversions/large/photo.png"})
	if err := dao.UpdateConversions(ctx, db, asset.ID, conv); err != nil {
		t.Fatalf("UpdateConversions failed: %v", err)
	}
	if err := dao.UpdateMetadata(ctx, db, asset.ID, datatypes.JSONMap{"alt": "cat"}); err != nil {
		t.Fatalf("UpdateMetadata failed: %v", err)
	}

	found, err := dao.GetByID(ctx, db, asset.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if names := found.Conversions.Names(); len(names) != 2 || names[0] != "thumb" || names[1] != "large" {
		t.Errorf("Unexpected conversions %v", names)
	}
	if found.Metadata["alt"] != "cat" {
		t.Errorf("Unexpected metadata %v", found.Metadata)
	}

	if err := dao.UpdateConversions(ctx, db, "missing", conv); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}

func TestAssetDAO_SoftDeleteRestore(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	dao := NewAssetDAO()
	ctx := context.Background()

	asset := CreateTestFile(t, db, "photo.png", "2024/05/29/photo.png", nil)

	if err := dao.SoftDelete(ctx, db, asset.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if _, err := dao.GetByID(ctx, db, asset.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Expected soft deleted asset to be hidden, got %v", err)
	}
	trashed, err := dao.GetWithTrashed(ctx, db, asset.ID)
	if err != nil || !trashed.IsTrashed() {
		t.Fatalf("GetWithTrashed = %v, %v", trashed, err)
	}
	if _, err := dao.FindByPath(ctx, db, model.DefaultDisk, "2024/05/29/photo.png"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("FindByPath should skip trashed assets, got %v", err)
	}
	taken, err := dao.PathTaken(ctx, db, model.DefaultDisk, "2024/05/29/photo.png")
	if err != nil || !taken {
		t.Errorf("PathTaken = %v, %v", taken, err)
	}
	only, err := dao.List(ctx, db, ListFilter{OnlyTrashed: true})
	if err != nil || len(only) != 1 {
		t.Errorf("OnlyTrashed list = %d, %v", len(only), err)
	}

	if err := dao.Restore(ctx, db, asset.ID); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if err := dao.Restore(ctx, db, asset.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("Restoring an active asset should report not found, got %v", err)
	}
	if _, err := dao.FindByPath(ctx, db, model.DefaultDisk, "2024/05/29/photo.png"); err != nil {
		t.Errorf("FindByPath after restore failed: %v", err)
	}
}

func TestAssetDAO_ListAndChildren(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	dao := NewAssetDAO()
	ctx := context.Background()

	dir := CreateTestDirectory(t, db, "albums", nil)
	CreateTestFile(t, db, "a.png", "2024/05/29/a.png", &dir.ID)
	CreateTestFile(t, db, "b.png", "2024/05/29/b.png", &dir.ID)
	CreateTestFile(t, db, "root.png", "2024/05/29/root.png", nil)

	children, err := dao.ListChildren(ctx, db, dir.ID, false)
	if err != nil || len(children) != 2 {
		t.Fatalf("ListChildren = %d, %v", len(children), err)
	}

	root, err := dao.List(ctx, db, ListFilter{Root: true})
	if err != nil {
		t.Fatalf("List root failed: %v", err)
	}
	if len(root) != 2 || root[0].ID != dir.ID {
		t.Fatalf("Expected directory first among 2 root assets, got %d", len(root))
	}

	files, err := dao.List(ctx, db, ListFilter{Type: model.TypeFile, Limit: 2})
	if err != nil || len(files) != 2 {
		t.Fatalf("List files = %d, %v", len(files), err)
	}

	n, err := dao.CountChildren(ctx, db, dir.ID)
	if err != nil || n != 2 {
		t.Fatalf("CountChildren = %d, %v", n, err)
	}

	if err := dao.UpdateParent(ctx, db, children[0].ID, nil); err != nil {
		t.Fatalf("UpdateParent failed: %v", err)
	}
	if n, _ := dao.CountChildren(ctx, db, dir.ID); n != 1 {
		t.Fatalf("Expected 1 child after move, got %d", n)
	}
}

func TestAssetDAO_Purge(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	dao := NewAssetDAO()
	assoc := NewAssociationDAO()
	ctx := context.Background()

	dir := CreateTestDirectory(t, db, "albums", nil)
	child := CreateTestFile(t, db, "a.png", "2024/05/29/a.png", &dir.ID)
	if err := dao.SoftDelete(ctx, db, child.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if err := assoc.Attach(ctx, db, &model.Association{AssetID: dir.ID, MediableType: "user", MediableID: "1"}); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	if err := dao.Purge(ctx, db, dir.ID); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if _, err := dao.GetWithTrashed(ctx, db, dir.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Expected purged record to be gone, got %v", err)
	}

	orphan, err := dao.GetWithTrashed(ctx, db, child.ID)
	if err != nil {
		t.Fatalf("Child should survive purge: %v", err)
	}
	if orphan.ParentID != nil {
		t.Errorf("Expected child to be detached, parent_id=%v", *orphan.ParentID)
	}

	rows, err := assoc.ListByAsset(ctx, db, dir.ID)
	if err != nil || len(rows) != 0 {
		t.Errorf("Expected associations removed, got %d, %v", len(rows), err)
	}

	if err := dao.Purge(ctx, db, dir.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("Second purge should report not found, got %v", err)
	}
}
