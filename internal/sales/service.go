package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pabloeorellana/orpos-backend/internal/inventory"
	"github.com/pabloeorellana/orpos-backend/pkg/db/models"
	"github.com/pabloeorellana/orpos-backend/pkg/enums"
	pkgerrors "github.com/pabloeorellana/orpos-backend/pkg/errors"
	"github.com/pabloeorellana/orpos-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type shiftLoader interface {
	LockByID(ctx context.Context, tx *gorm.DB, tenantID, shiftID uuid.UUID) (*models.Shift, error)
}

type stockReserver interface {
	ReserveAndDecrement(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, items []inventory.Item) error
}

type auditRecorder interface {
	LogAction(ctx context.Context, tenantID, userID uuid.UUID, action string, details any)
}

type ledgerEngine struct{}

func (ledgerEngine) ReserveAndDecrement(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, items []inventory.Item) error {
	return inventory.ReserveAndDecrement(ctx, tx, tenantID, items)
}

// Service executes the sale transaction: stock decrement plus sale and
// line-item rows, all or nothing.
type Service interface {
	Create(ctx context.Context, input CreateSaleInput) (*models.Sale, error)
	Get(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error)
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Sale, string, error)
}

// SaleItemInput is one line of the cart as priced at the register. The
// price is a snapshot; the current product price is never re-read.
type SaleItemInput struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// CreateSaleInput carries everything the sale transaction needs. The
// total amount arrives final from the caller (service fees and the like
// are composed upstream).
type CreateSaleInput struct {
	TenantID      uuid.UUID
	UserID        uuid.UUID
	ShiftID       uuid.UUID
	Items         []SaleItemInput
	TotalAmount   decimal.Decimal
	PaymentMethod enums.PaymentMethod
}

type service struct {
	tx        txRunner
	repo      Repository
	shiftRepo shiftLoader
	ledger    stockReserver
	audit     auditRecorder
}

// NewService builds the sale transaction service.
func NewService(tx txRunner, repo Repository, shiftRepo shiftLoader, ledger stockReserver, audit auditRecorder) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if shiftRepo == nil {
		return nil, fmt.Errorf("shift loader required")
	}
	if ledger == nil {
		ledger = ledgerEngine{}
	}
	return &service{
		tx:        tx,
		repo:      repo,
		shiftRepo: shiftRepo,
		ledger:    ledger,
		audit:     audit,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateSaleInput) (*models.Sale, error) {
	if err := validateCreateSale(input); err != nil {
		return nil, err
	}

	var created *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// The shift row is read under FOR UPDATE so this sale serializes
		// with the close transaction and cannot commit onto a shift that
		// has already been aggregated.
		shift, err := s.shiftRepo.LockByID(ctx, tx, input.TenantID, input.ShiftID)
		if err != nil {
			return err
		}
		if shift.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "shift belongs to another user")
		}
		if shift.Status != enums.ShiftStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shift is not active").WithDetails(map[string]any{
				"shift_id": shift.ID,
			})
		}

		movements := make([]inventory.Item, len(input.Items))
		for i, item := range input.Items {
			movements[i] = inventory.Item{ProductID: item.ProductID, Quantity: item.Quantity}
		}
		if err := s.ledger.ReserveAndDecrement(ctx, tx, input.TenantID, movements); err != nil {
			return err
		}

		sale := &models.Sale{
			TenantID:      input.TenantID,
			UserID:        input.UserID,
			ShiftID:       input.ShiftID,
			TotalAmount:   input.TotalAmount,
			PaymentMethod: input.PaymentMethod,
			ReturnStatus:  enums.ReturnStatusNone,
			SaleDate:      time.Now().UTC(),
			Items:         make([]models.SaleItem, len(input.Items)),
		}
		for i, item := range input.Items {
			sale.Items[i] = models.SaleItem{
				ProductID:   item.ProductID,
				Quantity:    item.Quantity,
				PriceAtTime: item.Price,
			}
		}
		if err := s.repo.WithTx(tx).Create(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert sale")
		}
		created = sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.LogAction(ctx, input.TenantID, input.UserID, "sale.created", map[string]any{
			"sale_id":        created.ID,
			"shift_id":       created.ShiftID,
			"total_amount":   created.TotalAmount.String(),
			"payment_method": created.PaymentMethod,
			"item_count":     len(created.Items),
		})
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error) {
	if tenantID == uuid.Nil || saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and sale id required")
	}
	return s.repo.FindByID(ctx, tenantID, saleID)
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Sale, string, error) {
	if tenantID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	return s.repo.List(ctx, tenantID, params)
}

func validateCreateSale(input CreateSaleInput) error {
	if input.TenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.ShiftID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "shift id required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale requires at least one item")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.TotalAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "total amount cannot be negative")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if !item.Quantity.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive").WithDetails(map[string]any{
				"product_id": item.ProductID,
			})
		}
		if item.Price.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "item price cannot be negative").WithDetails(map[string]any{
				"product_id": item.ProductID,
			})
		}
	}
	return nil
}
