package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pabloeorellana/orpos-backend/pkg/enums"
)

// Sale is an immutable financial event recorded at checkout. Only
// ReturnStatus is recomputed afterwards, by the return transaction.
type Sale struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TenantID      uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null;index:idx_sales_tenant"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	ShiftID       uuid.UUID           `gorm:"column:shift_id;type:uuid;not null;index:idx_sales_shift"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:decimal(20,4);not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	ReturnStatus  enums.ReturnStatus  `gorm:"column:return_status;type:text;not null;default:'none'"`
	SaleDate      time.Time           `gorm:"column:sale_date;not null"`
	Items         []SaleItem          `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// SaleItem snapshots price and quantity at sale time. Later product
// price changes never touch these rows.
type SaleItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SaleID      uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index:idx_sale_items_sale"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:decimal(20,4);not null"`
	PriceAtTime decimal.Decimal `gorm:"column:price_at_time;type:decimal(20,4);not null"`
}
