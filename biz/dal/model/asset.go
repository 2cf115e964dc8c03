package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Asset kinds.
const (
	TypeFile      = "file"
	TypeDirectory = "dir"
)

// DefaultDisk is the disk assets land on when none is named.
const DefaultDisk = "public"

// Asset stores a file or directory entry and where its bytes live.
type Asset struct {
	ID             string            `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Disk           string            `gorm:"column:disk;type:varchar(20);index;uniqueIndex:uk_media_disk_path,priority:1;default:public" json:"disk"`
	Type           string            `gorm:"column:type;type:varchar(5);index;default:file" json:"type"`
	Name           string            `gorm:"column:name;type:varchar(255)" json:"name"`
	Path           *string           `gorm:"column:path;type:varchar(190);uniqueIndex:uk_media_disk_path,priority:2" json:"path,omitempty"`
	MimeType       string            `gorm:"column:mime_type;type:varchar(100)" json:"mime_type,omitempty"`
	Extension      string            `gorm:"column:extension;type:varchar(10)" json:"extension,omitempty"`
	ImageSize      string            `gorm:"column:image_size;type:varchar(20)" json:"image_size,omitempty"`
	Size           int64             `gorm:"column:size;default:0" json:"size"`
	Conversions    Conversions       `gorm:"column:conversions" json:"conversions,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	ParentID       *string           `gorm:"column:parent_id;type:varchar(36);index" json:"parent_id,omitempty"`
	UploadedByType *string           `gorm:"column:uploaded_by_type;type:varchar(100);index:idx_media_uploaded_by,priority:1" json:"uploaded_by_type,omitempty"`
	UploadedByID   *string           `gorm:"column:uploaded_by_id;type:varchar(100);index:idx_media_uploaded_by,priority:2" json:"uploaded_by_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	DeletedAt      gorm.DeletedAt    `gorm:"index" json:"-"`

	Children []Asset `gorm:"foreignKey:ParentID;references:ID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName overrides gorm to use media table.
func (Asset) TableName() string {
	return "media"
}

// IsDirectory reports whether the asset is a directory entry.
func (a *Asset) IsDirectory() bool {
	return a.Type == TypeDirectory
}

// StoragePath returns the primary blob path, or "" for directories.
func (a *Asset) StoragePath() string {
	if a.Path == nil {
		return ""
	}
	return *a.Path
}

// IsTrashed reports whether the asset is soft deleted.
func (a *Asset) IsTrashed() bool {
	return a.DeletedAt.Valid
}
