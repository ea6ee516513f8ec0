package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pabloeorellana/orpos-backend/internal/inventory"
	"github.com/pabloeorellana/orpos-backend/pkg/db/models"
	pkgerrors "github.com/pabloeorellana/orpos-backend/pkg/errors"
	"github.com/pabloeorellana/orpos-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockAdjuster interface {
	Increment(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, items []inventory.Item) error
}

type auditRecorder interface {
	LogAction(ctx context.Context, tenantID, userID uuid.UUID, action string, details any)
}

type ledgerEngine struct{}

func (ledgerEngine) Increment(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, items []inventory.Item) error {
	return inventory.Increment(ctx, tx, tenantID, items)
}

// Service manages the product catalog. Stock never changes through
// Create or Update after the initial quantity; receiving goes through
// the inventory ledger.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*models.Product, error)
	Update(ctx context.Context, input UpdateProductInput) (*models.Product, error)
	Deactivate(ctx context.Context, tenantID, userID, productID uuid.UUID) error
	Get(ctx context.Context, tenantID, productID uuid.UUID) (*models.Product, error)
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Product, string, error)
	ReceiveStock(ctx context.Context, input ReceiveStockInput) (*models.Product, error)
}

// CreateProductInput holds the payload to create a catalog entry.
type CreateProductInput struct {
	TenantID     uuid.UUID
	UserID       uuid.UUID
	Name         string
	SKU          string
	InitialStock decimal.Decimal
	Price        decimal.Decimal
	Cost         decimal.Decimal
}

// UpdateProductInput holds optional mutation values. Nil fields are
// left untouched. Stock is deliberately absent.
type UpdateProductInput struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	ProductID uuid.UUID
	Name      *string
	SKU       *string
	Price     *decimal.Decimal
	Cost      *decimal.Decimal
	IsActive  *bool
}

// ReceiveStockInput adds received goods to a product's stock.
type ReceiveStockInput struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

type service struct {
	tx     txRunner
	repo   Repository
	ledger stockAdjuster
	audit  auditRecorder
}

// NewService constructs a product catalog service.
func NewService(tx txRunner, repo Repository, ledger stockAdjuster, audit auditRecorder) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if ledger == nil {
		ledger = ledgerEngine{}
	}
	return &service{tx: tx, repo: repo, ledger: ledger, audit: audit}, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if input.TenantID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and user id required")
	}
	name := strings.TrimSpace(input.Name)
	sku := strings.TrimSpace(input.SKU)
	if name == "" || sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and sku required")
	}
	if input.InitialStock.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial stock cannot be negative")
	}
	if input.Price.IsNegative() || input.Cost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price and cost cannot be negative")
	}

	product := &models.Product{
		TenantID: input.TenantID,
		Name:     name,
		SKU:      sku,
		Stock:    input.InitialStock,
		Price:    input.Price,
		Cost:     input.Cost,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.LogAction(ctx, input.TenantID, input.UserID, "product.created", map[string]any{
			"product_id": product.ID,
			"sku":        product.SKU,
		})
	}
	return product, nil
}

func (s *service) Update(ctx context.Context, input UpdateProductInput) (*models.Product, error) {
	if input.TenantID == uuid.Nil || input.UserID == uuid.Nil || input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id, user id and product id required")
	}

	product, err := s.repo.FindByID(ctx, input.TenantID, input.ProductID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = name
	}
	if input.SKU != nil {
		sku := strings.TrimSpace(*input.SKU)
		if sku == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku cannot be empty")
		}
		product.SKU = sku
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		product.Price = *input.Price
	}
	if input.Cost != nil {
		if input.Cost.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost cannot be negative")
		}
		product.Cost = *input.Cost
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.LogAction(ctx, input.TenantID, input.UserID, "product.updated", map[string]any{
			"product_id": product.ID,
		})
	}
	return product, nil
}

func (s *service) Deactivate(ctx context.Context, tenantID, userID, productID uuid.UUID) error {
	if tenantID == uuid.Nil || userID == uuid.Nil || productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id, user id and product id required")
	}
	if err := s.repo.Deactivate(ctx, tenantID, productID); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.LogAction(ctx, tenantID, userID, "product.deactivated", map[string]any{
			"product_id": productID,
		})
	}
	return nil
}

func (s *service) Get(ctx context.Context, tenantID, productID uuid.UUID) (*models.Product, error) {
	if tenantID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and product id required")
	}
	return s.repo.FindByID(ctx, tenantID, productID)
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Product, string, error) {
	if tenantID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	return s.repo.List(ctx, tenantID, params)
}

func (s *service) ReceiveStock(ctx context.Context, input ReceiveStockInput) (*models.Product, error) {
	if input.TenantID == uuid.Nil || input.UserID == uuid.Nil || input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id, user id and product id required")
	}
	if !input.Quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		err := s.ledger.Increment(ctx, tx, input.TenantID, []inventory.Item{
			{ProductID: input.ProductID, Quantity: input.Quantity},
		})
		if err != nil {
			return err
		}
		product, err := s.repo.WithTx(tx).FindByID(ctx, input.TenantID, input.ProductID)
		if err != nil {
			return err
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.LogAction(ctx, input.TenantID, input.UserID, "product.stock_received", map[string]any{
			"product_id": updated.ID,
			"quantity":   input.Quantity.String(),
			"stock":      updated.Stock.String(),
		})
	}
	return updated, nil
}
