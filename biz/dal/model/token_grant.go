package model

import "time"

// TokenGrant records one read authorization handed out by the storage
// service. Tokens themselves are never persisted.
type TokenGrant struct {
	ID            uint      `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
	GrantID       string    `gorm:"column:grant_id;uniqueIndex:idx_grant" json:"grant_id"`
	Container     string    `gorm:"column:container;index:idx_grant_container" json:"container"`
	Scope         string    `gorm:"column:scope;type:varchar(16)" json:"scope"`
	UserID        string    `gorm:"column:user_id" json:"user_id,omitempty"`
	ResourceCount int       `gorm:"column:resource_count" json:"resource_count"`
	GeneratedAt   time.Time `gorm:"column:generated_at" json:"generated_at"`
	ExpiresOn     time.Time `gorm:"column:expires_on;index:idx_grant_expiry" json:"expires_on"`
}

// TableName overrides gorm to use token_grant table.
func (TokenGrant) TableName() string {
	return "token_grant"
}
