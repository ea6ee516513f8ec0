package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pabloeorellana/orpos-backend/pkg/enums"
)

// Payment is an append-only outflow record tied to the shift that was
// open when it was created.
type Payment struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	TenantID      uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;index:idx_payments_tenant"`
	UserID        uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	ShiftID       uuid.UUID         `gorm:"column:shift_id;type:uuid;not null;index:idx_payments_shift"`
	Type          enums.PaymentType `gorm:"column:type;type:text;not null"`
	Recipient     string            `gorm:"column:recipient;not null"`
	Amount        decimal.Decimal   `gorm:"column:amount;type:decimal(20,4);not null"`
	Description   string            `gorm:"column:description"`
	SourceOfFunds enums.FundsSource `gorm:"column:source_of_funds;type:text;not null"`
	PaymentDate   time.Time         `gorm:"column:payment_date;not null"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
}
