package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pabloeorellana/orpos-backend/pkg/enums"
)

// Return is an append-only refund event against a sale. A sale may own
// zero or many returns; cumulative returned quantity per product never
// exceeds the quantity originally sold.
type Return struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TenantID      uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null;index:idx_returns_tenant"`
	SaleID        uuid.UUID           `gorm:"column:sale_id;type:uuid;not null;index:idx_returns_sale"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:decimal(20,4);not null"`
	Reason        string              `gorm:"column:reason"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	ReturnDate    time.Time           `gorm:"column:return_date;not null"`
	Items         []ReturnItem        `gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// ReturnItem snapshots the refunded quantity and unit price.
type ReturnItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ReturnID      uuid.UUID       `gorm:"column:return_id;type:uuid;not null;index:idx_return_items_return"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity      decimal.Decimal `gorm:"column:quantity;type:decimal(20,4);not null"`
	PriceAtReturn decimal.Decimal `gorm:"column:price_at_return;type:decimal(20,4);not null"`
}
