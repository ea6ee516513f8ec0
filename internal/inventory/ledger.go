package inventory

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pabloeorellana/orpos-backend/pkg/db/models"
	pkgerrors "github.com/pabloeorellana/orpos-backend/pkg/errors"
)

// Item is one stock movement request against a product.
type Item struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// ReserveAndDecrement verifies and decrements stock for every item, or
// changes nothing. Product rows are locked in ascending id order so
// concurrent checkouts acquire locks deterministically. Must run inside
// the caller's transaction; a returned error aborts the whole unit of
// work.
func ReserveAndDecrement(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, items []Item) error {
	merged, err := mergeItems(tenantID, items)
	if err != nil {
		return err
	}

	for _, item := range merged {
		product, err := lockProduct(ctx, tx, tenantID, item.ProductID)
		if err != nil {
			return err
		}
		if product.Stock.LessThan(item.Quantity) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").WithDetails(map[string]any{
				"product_id": item.ProductID,
				"available":  product.Stock.String(),
				"requested":  item.Quantity.String(),
			})
		}
		if err := applyStockDelta(ctx, tx, product, item.Quantity.Neg()); err != nil {
			return err
		}
	}
	return nil
}

// Increment adds stock back for every item; used by returns and
// receiving. There is no upper bound. Like ReserveAndDecrement it locks
// rows in ascending id order and must run inside the caller's
// transaction.
func Increment(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, items []Item) error {
	merged, err := mergeItems(tenantID, items)
	if err != nil {
		return err
	}

	for _, item := range merged {
		product, err := lockProduct(ctx, tx, tenantID, item.ProductID)
		if err != nil {
			return err
		}
		if err := applyStockDelta(ctx, tx, product, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// mergeItems validates the request, sums duplicate product lines, and
// returns the movements sorted by product id.
func mergeItems(tenantID uuid.UUID, items []Item) ([]Item, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}

	totals := make(map[uuid.UUID]decimal.Decimal, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if !item.Quantity.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").WithDetails(map[string]any{
				"product_id": item.ProductID,
			})
		}
		totals[item.ProductID] = totals[item.ProductID].Add(item.Quantity)
	}

	merged := make([]Item, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, Item{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ProductID.String() < merged[j].ProductID.String()
	})
	return merged, nil
}

func lockProduct(ctx context.Context, tx *gorm.DB, tenantID, productID uuid.UUID) (*models.Product, error) {
	query := tx.WithContext(ctx)
	// SQLite (used by tests) serializes writers itself and rejects FOR UPDATE.
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var product models.Product
	err := query.
		Where("id = ? AND tenant_id = ?", productID, tenantID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{
				"product_id": productID,
			})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product row")
	}
	return &product, nil
}

func applyStockDelta(ctx context.Context, tx *gorm.DB, product *models.Product, delta decimal.Decimal) error {
	newStock := product.Stock.Add(delta)
	err := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND tenant_id = ?", product.ID, product.TenantID).
		Update("stock", newStock).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product stock")
	}
	return nil
}
