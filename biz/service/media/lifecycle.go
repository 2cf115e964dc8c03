package media

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/yi-nology/mediable/biz/dal/model"
)

// ChildPolicy decides what purging a directory does to its children.
type ChildPolicy int

const (
	// DetachChildren moves children to the root in the purge transaction.
	DetachChildren ChildPolicy = iota
	// CascadeChildren purges every descendant first, blobs included.
	CascadeChildren
	// RestrictChildren refuses to purge a directory that has children.
	RestrictChildren
)

func (p ChildPolicy) String() string {
	switch p {
	case DetachChildren:
		return "detach"
	case CascadeChildren:
		return "cascade"
	case RestrictChildren:
		return "restrict"
	default:
		return fmt.Sprintf("ChildPolicy(%d)", int(p))
	}
}

// ParseChildPolicy maps "detach", "cascade" or "restrict" onto a policy.
func ParseChildPolicy(name string) (ChildPolicy, error) {
	switch name {
	case "", "detach":
		return DetachChildren, nil
	case "cascade":
		return CascadeChildren, nil
	case "restrict":
		return RestrictChildren, nil
	default:
		return DetachChildren, fmt.Errorf("unknown child policy %q", name)
	}
}

// PurgeOptions tunes Purge.
type PurgeOptions struct {
	Children ChildPolicy
}

// Delete soft deletes the asset. Its bytes and conversions stay in place.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.logic.softDelete(ctx, id)
}

// Restore brings a soft deleted asset back.
func (s *Service) Restore(ctx context.Context, id string) (*model.Asset, error) {
	if err := s.logic.restore(ctx, id); err != nil {
		return nil, err
	}
	return s.logic.getAsset(ctx, id)
}

// Purge permanently deletes the asset, active or soft deleted. Every
// conversion blob and the primary blob are deleted before the record is
// removed; blob delete failures are logged and never stop the purge.
// Purging an id that no longer exists returns ErrAssetNotFound.
func (s *Service) Purge(ctx context.Context, id string, opts PurgeOptions) error {
	return s.purge(ctx, id, opts, map[string]struct{}{})
}

func (s *Service) purge(ctx context.Context, id string, opts PurgeOptions, seen map[string]struct{}) error {
	if _, ok := seen[id]; ok {
		return nil
	}
	seen[id] = struct{}{}

	asset, err := s.logic.getAssetWithTrashed(ctx, id)
	if err != nil {
		return err
	}

	if asset.IsDirectory() {
		switch opts.Children {
		case RestrictChildren:
			n, err := s.logic.countChildren(ctx, id)
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("%w: %s has %d children", ErrDirectoryNotEmpty, asset.Name, n)
			}
		case CascadeChildren:
			children, err := s.logic.childrenWithTrashed(ctx, id)
			if err != nil {
				return err
			}
			for _, child := range children {
				if err := s.purge(ctx, child.ID, opts, seen); err != nil {
					return fmt.Errorf("purge child %s: %w", child.ID, err)
				}
			}
		}
	}

	s.deleteBlobs(ctx, asset)
	if err := s.logic.purge(ctx, id); err != nil {
		return err
	}
	hlog.CtxInfof(ctx, "purged %s %s (%s)", asset.Type, asset.ID, asset.Name)
	return nil
}

// deleteBlobs removes every conversion blob and then the primary blob.
func (s *Service) deleteBlobs(ctx context.Context, asset *model.Asset) {
	paths := asset.Conversions.Paths()
	if p := asset.StoragePath(); p != "" {
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return
	}

	disk, err := s.disk(asset.Disk)
	if err != nil {
		hlog.CtxWarnf(ctx, "purge %s: %v, %d blobs left behind", asset.ID, err, len(paths))
		return
	}
	for _, p := range paths {
		if err := disk.Delete(ctx, p); err != nil {
			hlog.CtxWarnf(ctx, "purge %s: delete %s on disk %s: %v", asset.ID, p, disk.Name, err)
		}
	}
}
