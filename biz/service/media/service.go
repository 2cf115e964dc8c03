// Package media manages uploaded assets: validating and storing uploads,
// generating named conversions and governing the asset lifecycle.
package media

import (
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/yi-nology/mediable/biz/dal/model"
	"github.com/yi-nology/mediable/pkg/imageproc"
	"github.com/yi-nology/mediable/pkg/lock"
	"github.com/yi-nology/mediable/pkg/storage"
	"github.com/yi-nology/mediable/pkg/validator"
)

const defaultConversionWorkers = 4

// Service orchestrates uploads, conversions and lifecycle operations.
type Service struct {
	logic          *Logic
	disks          *storage.Manager
	registry       *Registry
	defaultDisk    string
	imageMimeTypes []string
	codec          imageproc.Codec
	locker         lock.Locker
	now            func() time.Time
	workers        int
}

// Option customizes a Service.
type Option func(*Service)

// WithDefaultDisk sets the disk used when an operation names none.
func WithDefaultDisk(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.defaultDisk = name
		}
	}
}

// WithImageMimeTypes sets the mime types treated as images.
func WithImageMimeTypes(mimeTypes []string) Option {
	return func(s *Service) {
		s.imageMimeTypes = make([]string, 0, len(mimeTypes))
		for _, mt := range mimeTypes {
			s.imageMimeTypes = append(s.imageMimeTypes, validator.NormalizeMimeType(mt))
		}
	}
}

// WithCodec replaces the image codec used by conversions.
func WithCodec(codec imageproc.Codec) Option {
	return func(s *Service) { s.codec = codec }
}

// WithLocker serializes each (asset, conversion) pair through locker.
func WithLocker(locker lock.Locker) Option {
	return func(s *Service) { s.locker = locker }
}

// WithClock overrides the time source used for storage paths.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithConversionWorkers bounds how many global conversions run at once.
func WithConversionWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

func NewService(db *gorm.DB, disks *storage.Manager, registry *Registry, opts ...Option) *Service {
	s := &Service{
		logic:       NewLogic(db),
		disks:       disks,
		registry:    registry,
		defaultDisk: model.DefaultDisk,
		codec:       imageproc.StdCodec{},
		now:         time.Now,
		workers:     defaultConversionWorkers,
	}
	WithImageMimeTypes([]string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp", "image/tiff"})(s)
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	return s
}

// Registry returns the conversion registry the service applies.
func (s *Service) Registry() *Registry {
	return s.registry
}

func (s *Service) disk(name string) (*storage.Disk, error) {
	if name == "" {
		name = s.defaultDisk
	}
	return s.disks.Disk(name)
}

func (s *Service) isImageMimeType(mimeType string) bool {
	mt := validator.NormalizeMimeType(mimeType)
	return mt != "" && slices.Contains(s.imageMimeTypes, mt)
}

// IsImage reports whether the asset is a file with an image mime type.
func (s *Service) IsImage(asset *model.Asset) bool {
	return asset != nil && !asset.IsDirectory() && s.isImageMimeType(asset.MimeType)
}
