package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLog records a best-effort trail entry for a mutating operation.
// Writes to this table never roll back the business transaction.
type AuditLog struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TenantID  uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;index:idx_audit_logs_tenant"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	Action    string          `gorm:"column:action;not null"`
	Details   json.RawMessage `gorm:"column:details;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
