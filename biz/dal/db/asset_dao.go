package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/yi-nology/survey_vault/biz/dal/model"

	"gorm.io/gorm"
)

// AssetDAO handles CRUD operations for uploaded blobs.
type AssetDAO struct{}

func NewAssetDAO() *AssetDAO { return &AssetDAO{} }

func (dao *AssetDAO) Create(ctx context.Context, db *gorm.DB, asset *model.Asset) error {
	if asset == nil {
		return errors.New("asset must not be nil")
	}
	if asset.Container == "" || asset.BlobName == "" {
		return errors.New("asset container and blob_name are required")
	}
	if asset.FileID == "" {
		asset.FileID = uuid.NewString()
	}
	return db.WithContext(ctx).Create(asset).Error
}

func (dao *AssetDAO) GetByBlob(ctx context.Context, db *gorm.DB, container, blobName string) (*model.Asset, error) {
	var asset model.Asset
	if err := db.WithContext(ctx).
		Where("container = ? AND blob_name = ?", container, blobName).
		First(&asset).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// DeleteByBlob removes the metadata row; a missing row is not an error.
func (dao *AssetDAO) DeleteByBlob(ctx context.Context, db *gorm.DB, container, blobName string) error {
	return db.WithContext(ctx).Unscoped().
		Where("container = ? AND blob_name = ?", container, blobName).
		Delete(&model.Asset{}).Error
}

func (dao *AssetDAO) ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]model.Asset, error) {
	var assets []model.Asset
	if err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}
