package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/yi-nology/mediable/biz/dal/model"
	"github.com/yi-nology/mediable/pkg/common"
)

// SrcsetKey is the ConversionURLs entry holding the srcset attribute value.
const SrcsetKey = "srcset"

// Path returns the blob path of the asset, or of the named conversion. An
// empty or "origin" conversion means the primary file; an unknown
// conversion yields "".
func (s *Service) Path(asset *model.Asset, conversion string) string {
	if conversion == "" || conversion == model.OriginConversion {
		return asset.StoragePath()
	}
	conv, ok := asset.Conversions.Get(conversion)
	if !ok {
		return ""
	}
	return conv.Path
}

// URL returns the public URL of the asset or one of its conversions, "" when
// the disk is not publicly addressable or the path is unknown.
func (s *Service) URL(ctx context.Context, asset *model.Asset, conversion string) (string, error) {
	p := s.Path(asset, conversion)
	if p == "" {
		return "", nil
	}
	disk, err := s.disk(asset.Disk)
	if err != nil {
		return "", err
	}
	return disk.URL(ctx, p)
}

// ConversionURLs returns the URL of the primary file under "origin", of every
// conversion under its name, and a srcset string under "srcset" listing
// them in manifest order with their widths.
func (s *Service) ConversionURLs(ctx context.Context, asset *model.Asset) (map[string]string, error) {
	entries := append(model.Conversions{{
		Name:      model.OriginConversion,
		Path:      asset.StoragePath(),
		ImageSize: asset.ImageSize,
	}}, asset.Conversions...)

	disk, err := s.disk(asset.Disk)
	if err != nil {
		return nil, err
	}

	urls := make(map[string]string, len(entries)+1)
	srcset := make([]string, 0, len(entries))
	for _, entry := range entries {
		url, err := disk.URL(ctx, entry.Path)
		if err != nil {
			return nil, fmt.Errorf("url of %s: %w", entry.Name, err)
		}
		urls[entry.Name] = url
		srcset = append(srcset, fmt.Sprintf("%s %sw", url, common.DimensionWidth(entry.ImageSize)))
	}
	urls[SrcsetKey] = strings.Join(srcset, ", ")
	return urls, nil
}

// ReadableSize formats the asset size, e.g. "1.5 MB".
func (s *Service) ReadableSize(asset *model.Asset, precision int) string {
	return common.ReadableSize(asset.Size, precision)
}
