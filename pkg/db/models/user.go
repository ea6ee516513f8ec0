package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pabloeorellana/orpos-backend/pkg/enums"
)

// User is an operator account scoped to a tenant. Permissions carry the
// fine-grained capability strings checked by the permission middleware.
type User struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	TenantID     uuid.UUID        `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_users_tenant_email"`
	Email        string           `gorm:"column:email;not null;uniqueIndex:idx_users_tenant_email"`
	PasswordHash string           `gorm:"column:password_hash;not null"`
	FullName     string           `gorm:"column:full_name;not null"`
	Role         enums.MemberRole `gorm:"column:role;type:text;not null"`
	Permissions  pq.StringArray   `gorm:"column:permissions;type:text[]"`
	IsActive     bool             `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time       `gorm:"column:last_login_at"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
