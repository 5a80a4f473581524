package model

import (
	"time"

	"github.com/google/uuid"
)

// PermissionModel mirrors the global 'permissions' table.
type PermissionModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Resource    string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_permissions_resource_action"`
	Action      string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_permissions_resource_action"`
	Description string    `gorm:"type:text"`
}

// TableName explicitly sets the table name for GORM.
func (PermissionModel) TableName() string {
	return "permissions"
}

// RoleModel mirrors the 'roles' table. Names are unique per tenant.
type RoleModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_roles_tenant_name"`
	Name        string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_roles_tenant_name"`
	Description string    `gorm:"type:text"`
	IsDefault   bool      `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Tenant      *TenantModel      `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
	Permissions []PermissionModel `gorm:"many2many:role_permissions;joinForeignKey:RoleID;joinReferences:PermissionID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (RoleModel) TableName() string {
	return "roles"
}

// RolePermissionModel mirrors the 'role_permissions' join table.
type RolePermissionModel struct {
	RoleID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	PermissionID uuid.UUID `gorm:"type:uuid;primaryKey;index"`

	Role       *RoleModel       `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	Permission *PermissionModel `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (RolePermissionModel) TableName() string {
	return "role_permissions"
}

// UserRoleModel mirrors the 'user_roles' join table, which carries its own timestamps.
// Deleting the user or the role removes the assignment.
type UserRoleModel struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoleID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	User *UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Role *RoleModel `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (UserRoleModel) TableName() string {
	return "user_roles"
}
