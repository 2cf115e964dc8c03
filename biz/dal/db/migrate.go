package db

import (
	"gorm.io/gorm"

	"github.com/yi-nology/mediable/biz/dal/model"
)

// Migrate creates or updates the media and mediable tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Asset{},
		&model.Association{},
	)
}
