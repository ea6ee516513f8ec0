package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable item. Stock supports fractional, weight-based
// quantities and is only ever written through the inventory ledger.
type Product struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TenantID  uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_products_tenant_sku"`
	Name      string          `gorm:"column:name;not null"`
	SKU       string          `gorm:"column:sku;not null;uniqueIndex:idx_products_tenant_sku"`
	Stock     decimal.Decimal `gorm:"column:stock;type:decimal(20,4);not null;default:0"`
	Price     decimal.Decimal `gorm:"column:price;type:decimal(20,4);not null;default:0"`
	Cost      decimal.Decimal `gorm:"column:cost;type:decimal(20,4);not null;default:0"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
