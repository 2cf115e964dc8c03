package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"golang.org/x/sync/errgroup"

	"github.com/yi-nology/mediable/biz/dal/model"
	"github.com/yi-nology/mediable/pkg/common"
	"github.com/yi-nology/mediable/pkg/imageproc"
	"github.com/yi-nology/mediable/pkg/logging"
	"github.com/yi-nology/mediable/pkg/mediaerr"
	"github.com/yi-nology/mediable/pkg/storage"
)

// ConversionPath is where the named conversion of a blob at primaryPath is
// stored: next to the primary file under conversions/<name>/.
func ConversionPath(primaryPath, name string) string {
	dir, file := path.Split(primaryPath)
	return path.Join(dir, "conversions", name, file)
}

// formatExtensions maps encoder format names onto file extensions.
var formatExtensions = map[string]string{
	"jpeg": "jpg",
	"png":  "png",
	"gif":  "gif",
	"bmp":  "bmp",
	"tiff": "tiff",
	"webp": "webp",
}

// conversionTarget is ConversionPath with the extension swapped for the
// written format when the codec could not write the decoded one.
func conversionTarget(primaryPath, name, decoded, written string) string {
	target := ConversionPath(primaryPath, name)
	if written == decoded {
		return target
	}
	ext, ok := formatExtensions[written]
	if !ok {
		ext = written
	}
	return strings.TrimSuffix(target, path.Ext(target)) + "." + ext
}

// ApplyConversion generates the named conversion for the asset, stores it and
// records it in the manifest. Re-applying overwrites the previous result.
// Concurrent calls for the same pair both run unless a Locker is configured.
func (s *Service) ApplyConversion(ctx context.Context, assetID, name string) (conv model.Conversion, err error) {
	transform, err := s.registry.Get(name)
	if err != nil {
		return model.Conversion{}, err
	}
	err = s.withLock(ctx, conversionLockKey(assetID, name), func() error {
		conv, err = s.applyConversion(ctx, assetID, name, transform)
		return err
	})
	return conv, err
}

func (s *Service) applyConversion(ctx context.Context, assetID, name string, transform imageproc.Transform) (model.Conversion, error) {
	asset, disk, err := s.convertible(ctx, assetID)
	if err != nil {
		return model.Conversion{}, err
	}
	data, err := s.readPrimary(ctx, disk, asset)
	if err != nil {
		return model.Conversion{}, err
	}

	conv, err := s.runConversion(ctx, disk, asset, name, transform, data)
	if err != nil {
		return model.Conversion{}, err
	}
	_, replaced, err := s.logic.setConversions(ctx, asset.ID, conv)
	if err != nil {
		return model.Conversion{}, err
	}
	s.dropReplaced(ctx, disk, replaced, model.Conversions{conv})
	return conv, nil
}

// ApplyGlobalConversions generates every global conversion for the asset in
// parallel and records the successful ones in a single manifest update. The
// failures are joined into the returned error.
func (s *Service) ApplyGlobalConversions(ctx context.Context, assetID string) (model.Conversions, error) {
	names := s.registry.ListGlobal()
	asset, disk, err := s.convertible(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return asset.Conversions, nil
	}
	data, err := s.readPrimary(ctx, disk, asset)
	if err != nil {
		return nil, err
	}

	results := make([]model.Conversion, len(names))
	errs := make([]error, len(names))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, name := range names {
		g.Go(func() error {
			defer logging.Recover(ctx, &errs[i])
			transform, err := s.registry.Get(name)
			if err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = s.withLock(ctx, conversionLockKey(asset.ID, name), func() error {
				var err error
				results[i], err = s.runConversion(ctx, disk, asset, name, transform, data)
				return err
			})
			return nil
		})
	}
	_ = g.Wait()

	var done model.Conversions
	for i := range names {
		if errs[i] == nil {
			done = append(done, results[i])
		}
	}
	manifest := asset.Conversions
	if len(done) > 0 {
		var replaced model.Conversions
		manifest, replaced, err = s.logic.setConversions(ctx, asset.ID, done...)
		if err != nil {
			return nil, err
		}
		s.dropReplaced(ctx, disk, replaced, done)
	}
	return manifest, errors.Join(errs...)
}

func (s *Service) convertible(ctx context.Context, assetID string) (*model.Asset, *storage.Disk, error) {
	asset, err := s.logic.getAsset(ctx, assetID)
	if err != nil {
		return nil, nil, err
	}
	if !s.IsImage(asset) || asset.StoragePath() == "" {
		return nil, nil, ErrNotImage
	}
	disk, err := s.disk(asset.Disk)
	if err != nil {
		return nil, nil, err
	}
	return asset, disk, nil
}

func (s *Service) readPrimary(ctx context.Context, disk *storage.Disk, asset *model.Asset) ([]byte, error) {
	rc, err := disk.Get(ctx, asset.StoragePath())
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, mediaerr.FileNotFound(asset.StoragePath())
		}
		return nil, fmt.Errorf("read %s: %w", asset.StoragePath(), err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", asset.StoragePath(), err)
	}
	return data, nil
}

func conversionLockKey(assetID, name string) string {
	return fmt.Sprintf("conversion:%s:%s", assetID, name)
}

// withLock runs fn holding key when a Locker is configured.
func (s *Service) withLock(ctx context.Context, key string, fn func() error) error {
	if s.locker == nil {
		return fn()
	}
	token, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	defer func() {
		if err := s.locker.Release(ctx, key, token); err != nil {
			hlog.CtxWarnf(ctx, "release %s: %v", key, err)
		}
	}()
	return fn()
}

// runConversion decodes the primary bytes, applies transform and writes the
// result.
func (s *Service) runConversion(ctx context.Context, disk *storage.Disk, asset *model.Asset, name string, transform imageproc.Transform, data []byte) (model.Conversion, error) {
	img, format, err := s.codec.Decode(bytes.NewReader(data))
	if err != nil {
		return model.Conversion{}, fmt.Errorf("conversion %s of %s: %w", name, asset.ID, err)
	}
	out, err := transform(img)
	if err != nil {
		return model.Conversion{}, fmt.Errorf("conversion %s of %s: %w", name, asset.ID, err)
	}

	var buf bytes.Buffer
	written, err := s.codec.Encode(&buf, out, format)
	if err != nil {
		return model.Conversion{}, fmt.Errorf("conversion %s of %s: %w", name, asset.ID, err)
	}

	target := conversionTarget(asset.StoragePath(), name, format, written)
	if err := s.ensureDirectory(ctx, disk, path.Dir(target)); err != nil {
		return model.Conversion{}, mediaerr.UploadFailed(target, err)
	}
	if err := disk.Put(ctx, target, bytes.NewReader(buf.Bytes()), "image/"+written, int64(buf.Len())); err != nil {
		return model.Conversion{}, mediaerr.UploadFailed(target, err)
	}

	return model.Conversion{
		Name:      name,
		Path:      target,
		ImageSize: dimensionsOf(out),
	}, nil
}

// dropReplaced deletes blobs of replaced entries that no current entry
// points at any more, such as a conversion that used to be written in a
// different format.
func (s *Service) dropReplaced(ctx context.Context, disk *storage.Disk, replaced, current model.Conversions) {
	for _, old := range replaced {
		if cur, ok := current.Get(old.Name); ok && cur.Path == old.Path {
			continue
		}
		if err := disk.Delete(ctx, old.Path); err != nil {
			hlog.CtxWarnf(ctx, "delete replaced conversion %s on disk %s: %v", old.Path, disk.Name, err)
		}
	}
}

func dimensionsOf(img image.Image) string {
	b := img.Bounds()
	return common.FormatDimensions(b.Dx(), b.Dy())
}
