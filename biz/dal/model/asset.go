package model

import (
	"time"

	"gorm.io/gorm"
)

// Asset stores metadata for files uploaded into a storage container.
type Asset struct {
	ID          uint           `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt   time.Time      `json:"created_at,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at,omitempty"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	FileID      string         `gorm:"column:file_id;uniqueIndex:idx_file" json:"file_id,omitempty"`
	Container   string         `gorm:"column:container;uniqueIndex:idx_asset_blob,priority:1" json:"container,omitempty"`
	BlobName    string         `gorm:"column:blob_name;type:varchar(1024);uniqueIndex:idx_asset_blob,priority:2" json:"blob_name,omitempty"`
	UserID      string         `gorm:"column:user_id;index:idx_asset_user" json:"user_id,omitempty"`
	FileName    string         `gorm:"column:file_name" json:"file_name,omitempty"`
	ContentType string         `gorm:"column:content_type" json:"content_type,omitempty"`
	FileSize    int64          `gorm:"column:file_size" json:"file_size,omitempty"`
	URL         string         `gorm:"column:url;type:text" json:"url,omitempty"`
}

// TableName overrides gorm to use asset table.
func (Asset) TableName() string {
	return "asset"
}
