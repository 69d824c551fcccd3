package db

import (
	"github.com/yi-nology/survey_vault/biz/dal/model"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the storage service tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Asset{}, &model.TokenGrant{})
}
