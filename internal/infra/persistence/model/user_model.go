package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table. Email is unique per tenant, not globally.
type UserModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_users_tenant_email;index"`
	Email         string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_tenant_email"`
	PasswordHash  *string   `gorm:"type:varchar(255)"`
	FullName      string    `gorm:"type:varchar(255)"`
	IsActive      bool      `gorm:"not null"`
	IsSuperuser   bool      `gorm:"not null"`
	OAuthProvider *string   `gorm:"column:oauth_provider;type:varchar(50);index:idx_users_oauth"`
	OAuthID       *string   `gorm:"column:oauth_id;type:varchar(255);index:idx_users_oauth"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Tenant *TenantModel `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
