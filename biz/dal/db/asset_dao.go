package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yi-nology/mediable/biz/dal/model"
)

// AssetDAO handles persistence of media assets.
type AssetDAO struct{}

func NewAssetDAO() *AssetDAO { return &AssetDAO{} }

// ListFilter narrows List results. A nil ParentID with Root unset lists
// assets at every depth.
type ListFilter struct {
	Disk        string
	ParentID    *string
	Root        bool
	Type        string
	WithTrashed bool
	OnlyTrashed bool
	Limit       int
	Offset      int
}

// Create persists a new asset, assigning an id when none is set.
func (dao *AssetDAO) Create(ctx context.Context, db *gorm.DB, asset *model.Asset) error {
	if asset == nil {
		return errors.New("asset must not be nil")
	}
	if asset.Name == "" {
		return errors.New("asset name is required")
	}
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	if asset.Disk == "" {
		asset.Disk = model.DefaultDisk
	}
	if asset.Type == "" {
		asset.Type = model.TypeFile
	}
	return db.WithContext(ctx).Create(asset).Error
}

// GetByID fetches an active asset.
func (dao *AssetDAO) GetByID(ctx context.Context, db *gorm.DB, id string) (*model.Asset, error) {
	var asset model.Asset
	if err := db.WithContext(ctx).Where("id = ?", id).First(&asset).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// GetWithTrashed fetches an asset whether or not it is soft deleted.
func (dao *AssetDAO) GetWithTrashed(ctx context.Context, db *gorm.DB, id string) (*model.Asset, error) {
	return dao.GetByID(ctx, db.Unscoped(), id)
}

// FindByPath fetches the active asset stored at path on disk.
func (dao *AssetDAO) FindByPath(ctx context.Context, db *gorm.DB, disk, path string) (*model.Asset, error) {
	var asset model.Asset
	if err := db.WithContext(ctx).
		Where("disk = ? AND path = ?", disk, path).
		First(&asset).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// PathTaken reports whether any record, trashed ones included, claims path.
func (dao *AssetDAO) PathTaken(ctx context.Context, db *gorm.DB, disk, path string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Unscoped().
		Model(&model.Asset{}).
		Where("disk = ? AND path = ?", disk, path).
		Count(&count).Error
	return count > 0, err
}

// ListChildren returns the direct children of parentID.
func (dao *AssetDAO) ListChildren(ctx context.Context, db *gorm.DB, parentID string, withTrashed bool) ([]model.Asset, error) {
	return dao.List(ctx, db, ListFilter{ParentID: &parentID, WithTrashed: withTrashed})
}

// CountChildren counts direct children including soft deleted ones.
func (dao *AssetDAO) CountChildren(ctx context.Context, db *gorm.DB, parentID string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Unscoped().
		Model(&model.Asset{}).
		Where("parent_id = ?", parentID).
		Count(&count).Error
	return count, err
}

// List returns assets matching filter, directories first then newest first.
func (dao *AssetDAO) List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]model.Asset, error) {
	tx := db.WithContext(ctx)
	if filter.WithTrashed || filter.OnlyTrashed {
		tx = tx.Unscoped()
	}
	if filter.OnlyTrashed {
		tx = tx.Where("deleted_at IS NOT NULL")
	}
	if filter.Disk != "" {
		tx = tx.Where("disk = ?", filter.Disk)
	}
	switch {
	case filter.ParentID != nil:
		tx = tx.Where("parent_id = ?", *filter.ParentID)
	case filter.Root:
		tx = tx.Where("parent_id IS NULL")
	}
	if filter.Type != "" {
		tx = tx.Where("type = ?", filter.Type)
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit).Offset(filter.Offset)
	}

	var assets []model.Asset
	if err := tx.
		Order("CASE WHEN type = 'dir' THEN 0 ELSE 1 END").
		Order("created_at DESC").
		Order("id").
		Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

// UpdateConversions replaces the conversions manifest.
func (dao *AssetDAO) UpdateConversions(ctx context.Context, db *gorm.DB, id string, conversions model.Conversions) error {
	return dao.updateColumn(ctx, db, id, "conversions", conversions)
}

// UpdateMetadata replaces the metadata map.
func (dao *AssetDAO) UpdateMetadata(ctx context.Context, db *gorm.DB, id string, metadata datatypes.JSONMap) error {
	return dao.updateColumn(ctx, db, id, "metadata", metadata)
}

// UpdateParent moves the asset under parentID, or to the root when nil.
func (dao *AssetDAO) UpdateParent(ctx context.Context, db *gorm.DB, id string, parentID *string) error {
	return dao.updateColumn(ctx, db, id, "parent_id", parentID)
}

func (dao *AssetDAO) updateColumn(ctx context.Context, db *gorm.DB, id, column string, value any) error {
	result := db.WithContext(ctx).
		Model(&model.Asset{}).
		Where("id = ?", id).
		Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoftDelete marks the asset deleted.
func (dao *AssetDAO) SoftDelete(ctx context.Context, db *gorm.DB, id string) error {
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&model.Asset{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Restore clears the soft delete marker.
func (dao *AssetDAO) Restore(ctx context.Context, db *gorm.DB, id string) error {
	result := db.WithContext(ctx).Unscoped().
		Model(&model.Asset{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Purge permanently removes the asset row together with its associations
// and detaches any children, all in one transaction.
func (dao *AssetDAO) Purge(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("media_id = ?", id).Delete(&model.Association{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().
			Model(&model.Asset{}).
			Where("parent_id = ?", id).
			Update("parent_id", nil).Error; err != nil {
			return err
		}
		result := tx.Unscoped().Where("id = ?", id).Delete(&model.Asset{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
