package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yi-nology/mediable/biz/dal/model"
)

// AssociationDAO persists owner associations.
type AssociationDAO struct{}

func NewAssociationDAO() *AssociationDAO { return &AssociationDAO{} }

// Attach records the association; attaching an existing one is a no-op.
func (dao *AssociationDAO) Attach(ctx context.Context, db *gorm.DB, entity *model.Association) error {
	if entity == nil {
		return errors.New("association must not be nil")
	}
	if entity.AssetID == "" || entity.MediableType == "" || entity.MediableID == "" {
		return errors.New("media_id, mediable_type and mediable_id are required")
	}
	if entity.Channel == "" {
		entity.Channel = model.DefaultChannel
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entity).Error
}

// Detach removes associations between the asset and owner. An empty channel
// removes every channel.
func (dao *AssociationDAO) Detach(ctx context.Context, db *gorm.DB, assetID, ownerType, ownerID, channel string) (int64, error) {
	tx := db.WithContext(ctx).
		Where("media_id = ? AND mediable_type = ? AND mediable_id = ?", assetID, ownerType, ownerID)
	if channel != "" {
		tx = tx.Where("channel = ?", channel)
	}
	result := tx.Delete(&model.Association{})
	return result.RowsAffected, result.Error
}

// ListAssetsByOwner returns the active assets owned by the entity, oldest
// first. An empty channel matches every channel.
func (dao *AssociationDAO) ListAssetsByOwner(ctx context.Context, db *gorm.DB, ownerType, ownerID, channel string) ([]model.Asset, error) {
	sub := db.WithContext(ctx).
		Model(&model.Association{}).
		Select("media_id").
		Where("mediable_type = ? AND mediable_id = ?", ownerType, ownerID)
	if channel != "" {
		sub = sub.Where("channel = ?", channel)
	}

	var assets []model.Asset
	if err := db.WithContext(ctx).
		Where("id IN (?)", sub).
		Order("created_at").
		Order("id").
		Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

// ListByAsset returns every association pointing at the asset.
func (dao *AssociationDAO) ListByAsset(ctx context.Context, db *gorm.DB, assetID string) ([]model.Association, error) {
	var rows []model.Association
	if err := db.WithContext(ctx).
		Where("media_id = ?", assetID).
		Order("mediable_type").
		Order("mediable_id").
		Order("channel").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
