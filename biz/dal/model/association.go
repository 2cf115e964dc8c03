package model

import "time"

// DefaultChannel is used when an association names no channel.
const DefaultChannel = "default"

// Association links an asset to an owning entity of any type.
type Association struct {
	AssetID      string    `gorm:"column:media_id;type:varchar(36);primaryKey;index" json:"media_id"`
	MediableType string    `gorm:"column:mediable_type;type:varchar(100);primaryKey;index:idx_mediable_owner,priority:1" json:"mediable_type"`
	MediableID   string    `gorm:"column:mediable_id;type:varchar(100);primaryKey;index:idx_mediable_owner,priority:2" json:"mediable_id"`
	Channel      string    `gorm:"column:channel;type:varchar(50);primaryKey;index;default:default" json:"channel"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Asset *Asset `gorm:"foreignKey:AssetID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE" json:"-"`
}

// TableName overrides gorm to use mediable table.
func (Association) TableName() string {
	return "mediable"
}
