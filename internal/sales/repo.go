package sales

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pabloeorellana/orpos-backend/pkg/db/models"
	pkgerrors "github.com/pabloeorellana/orpos-backend/pkg/errors"
	"github.com/pabloeorellana/orpos-backend/pkg/pagination"
)

// Repository manages persistence for sales and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sale *models.Sale) error
	FindByID(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error)
	LockByID(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error)
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Sale, string, error)
	UpdateReturnStatus(ctx context.Context, tenantID, saleID uuid.UUID, status string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sales repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sale *models.Sale) error {
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	for i := range sale.Items {
		if sale.Items[i].ID == uuid.Nil {
			sale.Items[i].ID = uuid.New()
		}
		sale.Items[i].SaleID = sale.ID
	}
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *repository) FindByID(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error) {
	return r.byID(ctx, tenantID, saleID, false)
}

// LockByID reads the sale under FOR UPDATE. Return creation takes this
// lock before summing prior returns, so two concurrent returns against
// the same sale cannot both pass the over-return check.
func (r *repository) LockByID(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error) {
	return r.byID(ctx, tenantID, saleID, true)
}

func (r *repository) byID(ctx context.Context, tenantID, saleID uuid.UUID, lock bool) (*models.Sale, error) {
	query := r.db.WithContext(ctx).Preload("Items")
	if lock && r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var sale models.Sale
	err := query.
		Where("id = ? AND tenant_id = ?", saleID, tenantID).
		First(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, err
	}
	return &sale, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Sale, string, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
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
	var sales []models.Sale
	if err := query.Limit(limit).Find(&sales).Error; err != nil {
		return nil, "", err
	}

	sales, more := pagination.TrimPage(sales, limit)
	next := ""
	if more {
		last := sales[len(sales)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return sales, next, nil
}

func (r *repository) UpdateReturnStatus(ctx context.Context, tenantID, saleID uuid.UUID, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ? AND tenant_id = ?", saleID, tenantID).
		Update("return_status", status).Error
}
