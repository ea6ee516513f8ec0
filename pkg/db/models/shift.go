package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pabloeorellana/orpos-backend/pkg/enums"
)

// Shift is one open-to-close cash-drawer session for one user. At most
// one open shift exists per (tenant, user) at any instant. All total,
// expected and difference columns are written once, at close, inside
// the same transaction as the aggregation reads.
type Shift struct {
	ID                     uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	TenantID               uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;index:idx_shifts_tenant"`
	UserID                 uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index:idx_shifts_user"`
	Status                 enums.ShiftStatus `gorm:"column:status;type:text;not null;default:'open'"`
	OpeningBalance         decimal.Decimal   `gorm:"column:opening_balance;type:decimal(20,4);not null;default:0"`
	OpeningVirtualBalance  decimal.Decimal   `gorm:"column:opening_virtual_balance;type:decimal(20,4);not null;default:0"`
	ClosingBalance         decimal.Decimal   `gorm:"column:closing_balance;type:decimal(20,4);not null;default:0"`
	ClosingVirtualBalance  decimal.Decimal   `gorm:"column:closing_virtual_balance;type:decimal(20,4);not null;default:0"`
	ExpectedBalance        decimal.Decimal   `gorm:"column:expected_balance;type:decimal(20,4);not null;default:0"`
	ExpectedVirtualBalance decimal.Decimal   `gorm:"column:expected_virtual_balance;type:decimal(20,4);not null;default:0"`
	Difference             decimal.Decimal   `gorm:"column:difference;type:decimal(20,4);not null;default:0"`
	DifferenceVirtual      decimal.Decimal   `gorm:"column:difference_virtual;type:decimal(20,4);not null;default:0"`
	TotalCashSales         decimal.Decimal   `gorm:"column:total_cash_sales;type:decimal(20,4);not null;default:0"`
	TotalCardSales         decimal.Decimal   `gorm:"column:total_card_sales;type:decimal(20,4);not null;default:0"`
	TotalTransferSales     decimal.Decimal   `gorm:"column:total_transfer_sales;type:decimal(20,4);not null;default:0"`
	TotalOtherSales        decimal.Decimal   `gorm:"column:total_other_sales;type:decimal(20,4);not null;default:0"`
	TotalCashReturns       decimal.Decimal   `gorm:"column:total_cash_returns;type:decimal(20,4);not null;default:0"`
	TotalCashPayments      decimal.Decimal   `gorm:"column:total_cash_payments;type:decimal(20,4);not null;default:0"`
	TotalVirtualPayments   decimal.Decimal   `gorm:"column:total_virtual_payments;type:decimal(20,4);not null;default:0"`
	TransactionCount       int               `gorm:"column:transaction_count;not null;default:0"`
	StartTime              time.Time         `gorm:"column:start_time;not null"`
	EndTime                *time.Time        `gorm:"column:end_time"`
	CreatedAt              time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
