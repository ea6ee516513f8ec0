package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pabloeorellana/orpos-backend/internal/inventory"
	"github.com/pabloeorellana/orpos-backend/internal/sales"
	"github.com/pabloeorellana/orpos-backend/pkg/db/models"
	"github.com/pabloeorellana/orpos-backend/pkg/enums"
	pkgerrors "github.com/pabloeorellana/orpos-backend/pkg/errors"
	"github.com/pabloeorellana/orpos-backend/pkg/pagination"
)

// refundPaymentMethod is the only method refunds are issued with.
// Virtual-wallet refunds are not part of the current business rules;
// shift reconciliation relies on this when it deducts returns from the
// cash side only.
const refundPaymentMethod = enums.PaymentMethodCash

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

// Service executes the return transaction: refund rows, stock
// restoration and the parent sale's status recomputation, all or
// nothing.
type Service interface {
	Create(ctx context.Context, input CreateReturnInput) (*models.Return, error)
	Get(ctx context.Context, tenantID, returnID uuid.UUID) (*models.Return, error)
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Return, string, error)
}

// ReturnItemInput is one refunded line. The price is the snapshot from
// the original sale item, echoed back by the caller.
type ReturnItemInput struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// CreateReturnInput carries everything the return transaction needs.
type CreateReturnInput struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	SaleID   uuid.UUID
	Items    []ReturnItemInput
	Reason   string
}

type service struct {
	tx        txRunner
	repo      Repository
	salesRepo sales.Repository
	ledger    stockAdjuster
	audit     auditRecorder
}

// NewService builds the return transaction service.
func NewService(tx txRunner, repo Repository, salesRepo sales.Repository, ledger stockAdjuster, audit auditRecorder) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if salesRepo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if ledger == nil {
		ledger = ledgerEngine{}
	}
	return &service{
		tx:        tx,
		repo:      repo,
		salesRepo: salesRepo,
		ledger:    ledger,
		audit:     audit,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateReturnInput) (*models.Return, error) {
	if err := validateCreateReturn(input); err != nil {
		return nil, err
	}

	var created *models.Return
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// The sale row is read under FOR UPDATE so concurrent returns
		// against the same sale serialize and the over-return check
		// always sees the prior returns' committed totals.
		sale, err := s.salesRepo.WithTx(tx).LockByID(ctx, input.TenantID, input.SaleID)
		if err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		prior, err := repo.ReturnedQuantitiesBySale(ctx, input.TenantID, input.SaleID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return history")
		}

		requested := sumRequested(input.Items)
		if err := checkOverReturn(sale.Items, prior, requested); err != nil {
			return err
		}

		movements := make([]inventory.Item, 0, len(requested))
		for productID, qty := range requested {
			movements = append(movements, inventory.Item{ProductID: productID, Quantity: qty})
		}
		if err := s.ledger.Increment(ctx, tx, input.TenantID, movements); err != nil {
			return err
		}

		ret := &models.Return{
			TenantID:      input.TenantID,
			SaleID:        input.SaleID,
			UserID:        input.UserID,
			TotalAmount:   refundTotal(input.Items),
			Reason:        input.Reason,
			PaymentMethod: refundPaymentMethod,
			ReturnDate:    time.Now().UTC(),
			Items:         make([]models.ReturnItem, len(input.Items)),
		}
		for i, item := range input.Items {
			ret.Items[i] = models.ReturnItem{
				ProductID:     item.ProductID,
				Quantity:      item.Quantity,
				PriceAtReturn: item.Price,
			}
		}
		if err := repo.Create(ctx, ret); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert return")
		}

		cumulative := make(map[uuid.UUID]decimal.Decimal, len(prior)+len(requested))
		for id, qty := range prior {
			cumulative[id] = qty
		}
		for id, qty := range requested {
			cumulative[id] = cumulative[id].Add(qty)
		}
		status := ComputeStatus(sale.Items, cumulative)
		if err := s.salesRepo.WithTx(tx).UpdateReturnStatus(ctx, input.TenantID, input.SaleID, status.String()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale return status")
		}

		created = ret
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.LogAction(ctx, input.TenantID, input.UserID, "return.created", map[string]any{
			"return_id":    created.ID,
			"sale_id":      created.SaleID,
			"total_amount": created.TotalAmount.String(),
			"item_count":   len(created.Items),
		})
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, tenantID, returnID uuid.UUID) (*models.Return, error) {
	if tenantID == uuid.Nil || returnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and return id required")
	}
	return s.repo.FindByID(ctx, tenantID, returnID)
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Return, string, error) {
	if tenantID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	return s.repo.List(ctx, tenantID, params)
}

func validateCreateReturn(input CreateReturnInput) error {
	if input.TenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.SaleID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "return requires at least one item")
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

func sumRequested(items []ReturnItemInput) map[uuid.UUID]decimal.Decimal {
	totals := make(map[uuid.UUID]decimal.Decimal, len(items))
	for _, item := range items {
		totals[item.ProductID] = totals[item.ProductID].Add(item.Quantity)
	}
	return totals
}

// checkOverReturn rejects the whole return before any mutation when any
// line would push cumulative returned quantity past the originally sold
// quantity.
func checkOverReturn(original []models.SaleItem, prior, requested map[uuid.UUID]decimal.Decimal) error {
	sold := make(map[uuid.UUID]decimal.Decimal, len(original))
	for _, item := range original {
		sold[item.ProductID] = sold[item.ProductID].Add(item.Quantity)
	}

	for productID, qty := range requested {
		soldQty, ok := sold[productID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "product not on sale").WithDetails(map[string]any{
				"product_id": productID,
			})
		}
		cumulative := prior[productID].Add(qty)
		if cumulative.GreaterThan(soldQty) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return exceeds sold quantity").WithDetails(map[string]any{
				"product_id":       productID,
				"sold":             soldQty.String(),
				"already_returned": prior[productID].String(),
				"requested":        qty.String(),
			})
		}
	}
	return nil
}

func refundTotal(items []ReturnItemInput) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(item.Quantity))
	}
	return total
}
