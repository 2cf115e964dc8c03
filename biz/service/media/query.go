package media

import (
	"context"

	"github.com/yi-nology/mediable/biz/dal/db"
	"github.com/yi-nology/mediable/biz/dal/model"
)

// ListOptions filters List. With neither ParentID nor Root set, assets at
// every depth are returned.
type ListOptions struct {
	Disk        string
	ParentID    *string
	Root        bool
	Type        string
	WithTrashed bool
	OnlyTrashed bool
	Limit       int
	Offset      int
}

// Get returns an active asset.
func (s *Service) Get(ctx context.Context, id string) (*model.Asset, error) {
	return s.logic.getAsset(ctx, id)
}

// GetWithTrashed returns an asset even when soft deleted.
func (s *Service) GetWithTrashed(ctx context.Context, id string) (*model.Asset, error) {
	return s.logic.getAssetWithTrashed(ctx, id)
}

// FindByPath returns the active asset stored at path. An empty disk means
// the default disk.
func (s *Service) FindByPath(ctx context.Context, path, disk string) (*model.Asset, error) {
	if disk == "" {
		disk = s.defaultDisk
	}
	return s.logic.findByPath(ctx, disk, path)
}

// Children returns the active direct children of a directory.
func (s *Service) Children(ctx context.Context, parentID string) ([]model.Asset, error) {
	if _, err := s.logic.getDirectory(ctx, parentID); err != nil {
		return nil, err
	}
	return s.logic.list(ctx, db.ListFilter{ParentID: &parentID})
}

// List returns assets matching opts, directories first then newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]model.Asset, error) {
	return s.logic.list(ctx, db.ListFilter(opts))
}

// UpdateMetadata merges patch into the asset metadata. A nil value removes
// the key.
func (s *Service) UpdateMetadata(ctx context.Context, id string, patch map[string]any) (*model.Asset, error) {
	return s.logic.mergeMetadata(ctx, id, patch)
}

// Move re-parents the asset under parentID, or to the root when nil. Moving
// a directory into itself or one of its descendants fails with
// ErrInvalidMove.
func (s *Service) Move(ctx context.Context, id string, parentID *string) (*model.Asset, error) {
	asset, err := s.logic.getAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if parentID != nil {
		parent, err := s.logic.getDirectory(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		for cur := parent; ; {
			if cur.ID == asset.ID {
				return nil, ErrInvalidMove
			}
			if cur.ParentID == nil {
				break
			}
			next, err := s.logic.getAssetWithTrashed(ctx, *cur.ParentID)
			if err != nil {
				break
			}
			cur = next
		}
	}
	if err := s.logic.updateParent(ctx, id, parentID); err != nil {
		return nil, err
	}
	asset.ParentID = parentID
	return asset, nil
}

// Attach links the asset to owner under channel ("default" when empty).
// Attaching twice is a no-op.
func (s *Service) Attach(ctx context.Context, assetID string, owner Owner, channel string) error {
	if !validOwner(owner) {
		return ErrOwnerRequired
	}
	if _, err := s.logic.getAsset(ctx, assetID); err != nil {
		return err
	}
	return s.logic.attach(ctx, &model.Association{
		AssetID:      assetID,
		MediableType: owner.OwnerType(),
		MediableID:   owner.OwnerID(),
		Channel:      channel,
	})
}

// Detach removes the link between asset and owner. An empty channel removes
// every channel. The asset itself is never deleted.
func (s *Service) Detach(ctx context.Context, assetID string, owner Owner, channel string) (int64, error) {
	if !validOwner(owner) {
		return 0, ErrOwnerRequired
	}
	return s.logic.detach(ctx, assetID, owner.OwnerType(), owner.OwnerID(), channel)
}

// AssetsOf lists the active assets owned by owner, optionally in one channel.
func (s *Service) AssetsOf(ctx context.Context, owner Owner, channel string) ([]model.Asset, error) {
	if !validOwner(owner) {
		return nil, ErrOwnerRequired
	}
	return s.logic.assetsOf(ctx, owner.OwnerType(), owner.OwnerID(), channel)
}

// OwnersOf lists every association pointing at the asset.
func (s *Service) OwnersOf(ctx context.Context, assetID string) ([]model.Association, error) {
	return s.logic.ownersOf(ctx, assetID)
}
