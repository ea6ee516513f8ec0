package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pabloeorellana/orpos-backend/pkg/db"
	"github.com/pabloeorellana/orpos-backend/pkg/db/models"
	pkgerrors "github.com/pabloeorellana/orpos-backend/pkg/errors"
	"github.com/pabloeorellana/orpos-backend/pkg/pagination"
)

// Repository manages product catalog persistence. Stock is not written
// here; only the inventory ledger touches it.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, tenantID, productID uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Deactivate(ctx context.Context, tenantID, productID uuid.UUID) error
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Product, string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a product repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(product).Error
	if err != nil && db.IsUniqueViolation(err, "idx_products_tenant_sku") {
		return pkgerrors.New(pkgerrors.CodeConflict, "sku already in use").WithDetails(map[string]any{
			"sku": product.SKU,
		})
	}
	return err
}

func (r *repository) FindByID(ctx context.Context, tenantID, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", productID, tenantID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	return &product, nil
}

func (r *repository) Update(ctx context.Context, product *models.Product) error {
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND tenant_id = ?", product.ID, product.TenantID).
		Updates(map[string]any{
			"name":      product.Name,
			"sku":       product.SKU,
			"price":     product.Price,
			"cost":      product.Cost,
			"is_active": product.IsActive,
		}).Error
	if err != nil && db.IsUniqueViolation(err, "idx_products_tenant_sku") {
		return pkgerrors.New(pkgerrors.CodeConflict, "sku already in use").WithDetails(map[string]any{
			"sku": product.SKU,
		})
	}
	return err
}

func (r *repository) Deactivate(ctx context.Context, tenantID, productID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND tenant_id = ?", productID, tenantID).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Product, string, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC, id DESC")

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	limit := pagination.LimitWithBuffer(params.Limit)
	var products []models.Product
	if err := query.Limit(limit).Find(&products).Error; err != nil {
		return nil, "", err
	}

	products, more := pagination.TrimPage(products, limit)
	next := ""
	if more {
		last := products[len(products)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return products, next, nil
}
