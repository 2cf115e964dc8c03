package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yi-nology/mediable/biz/dal/model"
	"github.com/yi-nology/mediable/pkg/common"
	"github.com/yi-nology/mediable/pkg/imageproc"
	"github.com/yi-nology/mediable/pkg/mediaerr"
	"github.com/yi-nology/mediable/pkg/sanitize"
	"github.com/yi-nology/mediable/pkg/storage"
	"github.com/yi-nology/mediable/pkg/validator"
)

const (
	dateFolderLayout = "2006/01/02"
	maxNameAttempts  = 100
	maxClaimAttempts = 3
)

// UploadOptions tunes a single upload. Zero values pick the defaults.
type UploadOptions struct {
	Disk     string
	Name     string
	Owner    Owner
	Channel  string
	ParentID *string
	Metadata map[string]any
	// GenerateGlobal applies the registry's global conversions to image
	// uploads. Conversion failures are logged and do not fail the upload.
	GenerateGlobal bool
}

// DirectoryOptions tunes MakeDirectory.
type DirectoryOptions struct {
	Disk     string
	ParentID *string
	Owner    Owner
	Channel  string
	Metadata map[string]any
}

// Upload validates src against the disk policy, writes it under a date
// partitioned path and records the asset. Nothing is written when
// sanitization or validation fails, and no record is created when the write
// fails.
func (s *Service) Upload(ctx context.Context, src Source, opts UploadOptions) (*model.Asset, error) {
	disk, err := s.disk(opts.Disk)
	if err != nil {
		return nil, err
	}
	if opts.Owner != nil && !validOwner(opts.Owner) {
		return nil, ErrOwnerRequired
	}

	data, err := src.read(disk.Policy.MaxSize)
	if err != nil {
		var mediaErr *mediaerr.Error
		if errors.As(err, &mediaErr) {
			return nil, err
		}
		return nil, mediaerr.UploadFailed(src.Name, err)
	}
	size := int64(len(data))
	mimeType := validator.NormalizeMimeType(detectMimeType(src.MimeType, data))

	fileName := opts.Name
	if fileName == "" {
		fileName = src.Name
	}
	name, err := sanitize.FileName(fileName, mimeType)
	if err != nil {
		return nil, err
	}

	if err := disk.Policy.Validate(validator.File{
		MimeType:  mimeType,
		Extension: name.Extension,
		Size:      size,
	}); err != nil {
		return nil, err
	}

	if opts.ParentID != nil {
		if _, err := s.logic.getDirectory(ctx, *opts.ParentID); err != nil {
			return nil, err
		}
	}

	var imageSize string
	if s.isImageMimeType(mimeType) {
		if w, h, err := imageproc.Dimensions(data); err == nil {
			imageSize = common.FormatDimensions(w, h)
		} else {
			hlog.CtxDebugf(ctx, "measure image %s: %v", name, err)
		}
	}

	folder := s.now().Format(dateFolderLayout)
	if err := s.ensureDirectory(ctx, disk, folder); err != nil {
		return nil, mediaerr.UploadFailed(path.Join(folder, name.String()), err)
	}

	var asset *model.Asset
	for attempt := 0; ; attempt++ {
		storedPath, storedName, err := s.claimPath(ctx, disk, folder, name, data, mimeType)
		if err != nil {
			return nil, err
		}

		asset = &model.Asset{
			Disk:      disk.Name,
			Type:      model.TypeFile,
			Name:      storedName,
			Path:      &storedPath,
			MimeType:  mimeType,
			Extension: name.Extension,
			ImageSize: imageSize,
			Size:      size,
			Metadata:  datatypes.JSONMap(opts.Metadata),
			ParentID:  opts.ParentID,
		}
		if opts.Owner != nil {
			ownerType, ownerID := opts.Owner.OwnerType(), opts.Owner.OwnerID()
			asset.UploadedByType = &ownerType
			asset.UploadedByID = &ownerID
		}

		err = s.logic.createAsset(ctx, asset, opts.Owner, opts.Channel)
		if err == nil {
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Another record owns the path; the blob is its bytes now.
			hlog.CtxWarnf(ctx, "path %s on disk %s claimed by another record", storedPath, disk.Name)
			if attempt < maxClaimAttempts {
				continue
			}
			return nil, fmt.Errorf("create asset: %w", err)
		}
		// Rollback: delete uploaded file
		if delErr := disk.Delete(ctx, storedPath); delErr != nil {
			hlog.CtxWarnf(ctx, "rollback %s on disk %s: %v", storedPath, disk.Name, delErr)
		}
		return nil, fmt.Errorf("create asset: %w", err)
	}
	storedPath := asset.StoragePath()
	hlog.CtxInfof(ctx, "uploaded %s to %s:%s (%s)", asset.ID, disk.Name, storedPath, common.ReadableSize(size, 1))

	if opts.GenerateGlobal && s.IsImage(asset) && len(s.registry.ListGlobal()) > 0 {
		manifest, err := s.ApplyGlobalConversions(ctx, asset.ID)
		if err != nil {
			hlog.CtxWarnf(ctx, "global conversions for %s: %v", asset.ID, err)
		}
		if manifest != nil {
			asset.Conversions = manifest
		}
	}
	return asset, nil
}

// MakeDirectory creates a directory asset.
func (s *Service) MakeDirectory(ctx context.Context, name string, opts DirectoryOptions) (*model.Asset, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, "/\\") {
		return nil, fmt.Errorf("invalid directory name %q", name)
	}
	disk, err := s.disk(opts.Disk)
	if err != nil {
		return nil, err
	}
	if opts.Owner != nil && !validOwner(opts.Owner) {
		return nil, ErrOwnerRequired
	}
	if opts.ParentID != nil {
		if _, err := s.logic.getDirectory(ctx, *opts.ParentID); err != nil {
			return nil, err
		}
	}

	dir := &model.Asset{
		Disk:     disk.Name,
		Type:     model.TypeDirectory,
		Name:     name,
		Metadata: datatypes.JSONMap(opts.Metadata),
		ParentID: opts.ParentID,
	}
	if opts.Owner != nil {
		ownerType, ownerID := opts.Owner.OwnerType(), opts.Owner.OwnerID()
		dir.UploadedByType = &ownerType
		dir.UploadedByID = &ownerID
	}
	if err := s.logic.createAsset(ctx, dir, opts.Owner, opts.Channel); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	return dir, nil
}

// claimPath writes data at the first free folder/name, suffixing the base
// name while the path is held by a record or a blob. The blob is written with
// an exclusive create, so a concurrent upload racing for the same name moves
// on to the next candidate instead of replacing it.
func (s *Service) claimPath(ctx context.Context, disk *storage.Disk, folder string, name sanitize.Name, data []byte, mimeType string) (string, string, error) {
	candidate := name
	for i := 0; ; i++ {
		switch {
		case i == maxNameAttempts:
			candidate.Base = name.Base + "-" + uuid.NewString()[:8]
		case i > maxNameAttempts:
			return "", "", mediaerr.UploadFailed(path.Join(folder, name.String()), errors.New("no free file name"))
		case i > 0:
			candidate.Base = fmt.Sprintf("%s-%d", name.Base, i)
		}
		p := path.Join(folder, candidate.String())

		taken, err := s.logic.pathTaken(ctx, disk.Name, p)
		if err != nil {
			return "", "", err
		}
		if taken {
			continue
		}
		err = disk.Create(ctx, p, bytes.NewReader(data), mimeType, int64(len(data)))
		if errors.Is(err, storage.ErrObjectExists) {
			continue
		}
		if err != nil {
			return "", "", mediaerr.UploadFailed(p, err)
		}
		return p, candidate.String(), nil
	}
}

func (s *Service) ensureDirectory(ctx context.Context, disk *storage.Disk, folder string) error {
	exists, err := disk.DirectoryExists(ctx, folder)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return disk.MakeDirectory(ctx, folder)
}
