package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yi-nology/survey_vault/biz/dal/model"

	"gorm.io/gorm"
)

// DefaultGrantListLimit caps List when the caller passes no limit.
const DefaultGrantListLimit = 50

// GrantDAO persists the token grant ledger.
type GrantDAO struct{}

func NewGrantDAO() *GrantDAO { return &GrantDAO{} }

func (dao *GrantDAO) Create(ctx context.Context, db *gorm.DB, grant *model.TokenGrant) error {
	if grant == nil {
		return errors.New("grant must not be nil")
	}
	if grant.Container == "" {
		return errors.New("grant container is required")
	}
	if grant.GrantID == "" {
		grant.GrantID = uuid.NewString()
	}
	return db.WithContext(ctx).Create(grant).Error
}

// List returns the newest grants first, optionally filtered by container.
func (dao *GrantDAO) List(ctx context.Context, db *gorm.DB, container string, limit int) ([]model.TokenGrant, error) {
	if limit <= 0 {
		limit = DefaultGrantListLimit
	}
	query := db.WithContext(ctx).Model(&model.TokenGrant{})
	if container != "" {
		query = query.Where("container = ?", container)
	}
	var grants []model.TokenGrant
	if err := query.Order("generated_at DESC").Order("id DESC").Limit(limit).Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

// DeleteExpiredBefore removes grants that expired before cutoff and reports
// how many rows went away.
func (dao *GrantDAO) DeleteExpiredBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.WithContext(ctx).Where("expires_on < ?", cutoff).Delete(&model.TokenGrant{})
	return result.RowsAffected, result.Error
}
