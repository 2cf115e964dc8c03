package media

import (
	"context"
	"errors"
	"maps"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yi-nology/mediable/biz/dal/db"
	"github.com/yi-nology/mediable/biz/dal/model"
)

var (
	ErrAssetNotFound     = errors.New("asset not found")
	ErrNotDirectory      = errors.New("parent is not a directory")
	ErrDirectoryNotEmpty = errors.New("directory is not empty")
	ErrNotImage          = errors.New("asset is not an image")
	ErrInvalidMove       = errors.New("cannot move a directory into itself")
	ErrOwnerRequired     = errors.New("owner type and id are required")
)

// Logic contains persistence rules on top of the DAOs.
type Logic struct {
	db             *gorm.DB
	assetDAO       *db.AssetDAO
	associationDAO *db.AssociationDAO
}

func NewLogic(dbConn *gorm.DB) *Logic {
	return &Logic{
		db:             dbConn,
		assetDAO:       db.NewAssetDAO(),
		associationDAO: db.NewAssociationDAO(),
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAssetNotFound
	}
	return err
}

func (l *Logic) getAsset(ctx context.Context, id string) (*model.Asset, error) {
	if id == "" {
		return nil, ErrAssetNotFound
	}
	asset, err := l.assetDAO.GetByID(ctx, l.db, id)
	return asset, notFound(err)
}

func (l *Logic) getAssetWithTrashed(ctx context.Context, id string) (*model.Asset, error) {
	if id == "" {
		return nil, ErrAssetNotFound
	}
	asset, err := l.assetDAO.GetWithTrashed(ctx, l.db, id)
	return asset, notFound(err)
}

func (l *Logic) findByPath(ctx context.Context, disk, path string) (*model.Asset, error) {
	asset, err := l.assetDAO.FindByPath(ctx, l.db, disk, path)
	return asset, notFound(err)
}

func (l *Logic) pathTaken(ctx context.Context, disk, path string) (bool, error) {
	return l.assetDAO.PathTaken(ctx, l.db, disk, path)
}

// getDirectory loads an active asset and requires it to be a directory.
func (l *Logic) getDirectory(ctx context.Context, id string) (*model.Asset, error) {
	dir, err := l.getAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if !dir.IsDirectory() {
		return nil, ErrNotDirectory
	}
	return dir, nil
}

// createAsset stores the asset and, when owner is set, its association in
// one transaction.
func (l *Logic) createAsset(ctx context.Context, asset *model.Asset, owner Owner, channel string) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := l.assetDAO.Create(ctx, tx, asset); err != nil {
			return err
		}
		if owner == nil {
			return nil
		}
		return l.associationDAO.Attach(ctx, tx, &model.Association{
			AssetID:      asset.ID,
			MediableType: owner.OwnerType(),
			MediableID:   owner.OwnerID(),
			Channel:      channel,
		})
	})
}

// setConversions merges entries into the stored manifest and returns the
// previous entries they replaced.
func (l *Logic) setConversions(ctx context.Context, id string, entries ...model.Conversion) (model.Conversions, model.Conversions, error) {
	var manifest, replaced model.Conversions
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		asset, err := l.assetDAO.GetWithTrashed(ctx, tx, id)
		if err != nil {
			return notFound(err)
		}
		manifest = asset.Conversions
		for _, entry := range entries {
			if prev, ok := manifest.Get(entry.Name); ok {
				replaced = append(replaced, prev)
			}
			if err := manifest.Set(entry); err != nil {
				return err
			}
		}
		return notFound(l.assetDAO.UpdateConversions(ctx, tx, id, manifest))
	})
	if err != nil {
		return nil, nil, err
	}
	return manifest, replaced, nil
}

// mergeMetadata applies patch to the stored metadata. Nil values remove keys.
func (l *Logic) mergeMetadata(ctx context.Context, id string, patch map[string]any) (*model.Asset, error) {
	var asset *model.Asset
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		asset, err = l.assetDAO.GetByID(ctx, tx, id)
		if err != nil {
			return notFound(err)
		}
		merged := datatypes.JSONMap{}
		maps.Copy(merged, asset.Metadata)
		for k, v := range patch {
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}
		asset.Metadata = merged
		return notFound(l.assetDAO.UpdateMetadata(ctx, tx, id, merged))
	})
	return asset, err
}

func (l *Logic) list(ctx context.Context, filter db.ListFilter) ([]model.Asset, error) {
	return l.assetDAO.List(ctx, l.db, filter)
}

func (l *Logic) childrenWithTrashed(ctx context.Context, parentID string) ([]model.Asset, error) {
	return l.assetDAO.ListChildren(ctx, l.db, parentID, true)
}

func (l *Logic) countChildren(ctx context.Context, parentID string) (int64, error) {
	return l.assetDAO.CountChildren(ctx, l.db, parentID)
}

func (l *Logic) updateParent(ctx context.Context, id string, parentID *string) error {
	return notFound(l.assetDAO.UpdateParent(ctx, l.db, id, parentID))
}

func (l *Logic) softDelete(ctx context.Context, id string) error {
	return notFound(l.assetDAO.SoftDelete(ctx, l.db, id))
}

func (l *Logic) restore(ctx context.Context, id string) error {
	return notFound(l.assetDAO.Restore(ctx, l.db, id))
}

func (l *Logic) purge(ctx context.Context, id string) error {
	return notFound(l.assetDAO.Purge(ctx, l.db, id))
}

func (l *Logic) attach(ctx context.Context, assoc *model.Association) error {
	return l.associationDAO.Attach(ctx, l.db, assoc)
}

func (l *Logic) detach(ctx context.Context, assetID, ownerType, ownerID, channel string) (int64, error) {
	return l.associationDAO.Detach(ctx, l.db, assetID, ownerType, ownerID, channel)
}

func (l *Logic) assetsOf(ctx context.Context, ownerType, ownerID, channel string) ([]model.Asset, error) {
	return l.associationDAO.ListAssetsByOwner(ctx, l.db, ownerType, ownerID, channel)
}

func (l *Logic) ownersOf(ctx context.Context, assetID string) ([]model.Association, error) {
	return l.associationDAO.ListByAsset(ctx, l.db, assetID)
}
