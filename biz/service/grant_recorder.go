package service

import (
	"context"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/yi-nology/survey_vault/biz/dal/db"
	"github.com/yi-nology/survey_vault/biz/dal/model"
	"github.com/yi-nology/survey_vault/pkg/session"
	"github.com/yi-nology/survey_vault/pkg/storage/sas"

	"gorm.io/gorm"
)

// GrantRecorder is a sas.Minter that writes every successful grant to the
// token grant ledger. Ledger failures are logged and never fail the mint.
type GrantRecorder struct {
	inner sas.Minter
	db    *gorm.DB
	dao   *db.GrantDAO
}

// NewGrantRecorder wraps inner. With a nil dbConn it only forwards.
func NewGrantRecorder(inner sas.Minter, dbConn *gorm.DB) *GrantRecorder {
	return &GrantRecorder{inner: inner, db: dbConn, dao: db.NewGrantDAO()}
}

// MintTokens implements sas.Minter.
func (r *GrantRecorder) MintTokens(ctx context.Context, container string, scope sas.Scope, names []string) (*sas.Grant, error) {
	grant, err := r.inner.MintTokens(ctx, container, scope, names)
	if err != nil || grant == nil || r.db == nil {
		return grant, err
	}

	row := &model.TokenGrant{
		Container:     container,
		Scope:         string(scope),
		ResourceCount: len(grant.ReadTokens),
		GeneratedAt:   grant.GeneratedAt,
		ExpiresOn:     grant.ExpiresOn,
	}
	if sess, ok := session.FromContext(ctx); ok {
		row.UserID = sess.UserID
	}
	if err := r.dao.Create(ctx, r.db, row); err != nil {
		hlog.CtxWarnf(ctx, "record %s grant for container %s: %v", scope, container, err)
	}
	return grant, nil
}
