package returns

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pabloeorellana/orpos-backend/internal/sales"
	"github.com/pabloeorellana/orpos-backend/pkg/db/models"
	"github.com/pabloeorellana/orpos-backend/pkg/enums"
	pkgerrors "github.com/pabloeorellana/orpos-backend/pkg/errors"
)

type dbTxRunner struct {
	db *gorm.DB
}

func (r dbTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fixture struct {
	db       *gorm.DB
	svc      Service
	tenantID uuid.UUID
	userID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:returns_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Product{},
		&models.Sale{},
		&models.SaleItem{},
		&models.Return{},
		&models.ReturnItem{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tenantID := uuid.New()
	userID := uuid.New()
	svc, err := NewService(dbTxRunner{db: db}, NewRepository(db), sales.NewRepository(db), nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{db: db, svc: svc, tenantID: tenantID, userID: userID}
}

func (f *fixture) seedProduct(t *testing.T, stock string) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:       uuid.New(),
		TenantID: f.tenantID,
		Name:     "test product",
		SKU:      "sku-" + uuid.NewString()[:8],
		Stock:    decimal.RequireFromString(stock),
		Price:    decimal.RequireFromString("10"),
	}
	if err := f.db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func (f *fixture) seedSale(t *testing.T, items []models.SaleItem) uuid.UUID {
	t.Helper()
	total := decimal.Zero
	for i := range items {
		items[i].ID = uuid.New()
		total = total.Add(items[i].PriceAtTime.Mul(items[i].Quantity))
	}
	sale := models.Sale{
		ID:            uuid.New(),
		TenantID:      f.tenantID,
		UserID:        f.userID,
		ShiftID:       uuid.New(),
		TotalAmount:   total,
		PaymentMethod: enums.PaymentMethodCash,
		ReturnStatus:  enums.ReturnStatusNone,
		SaleDate:      time.Now().UTC(),
		Items:         items,
	}
	if err := f.db.Create(&sale).Error; err != nil {
		t.Fatalf("seed sale: %v", err)
	}
	return sale.ID
}

func (f *fixture) saleStatus(t *testing.T, saleID uuid.UUID) enums.ReturnStatus {
	t.Helper()
	var sale models.Sale
	if err := f.db.First(&sale, "id = ?", saleID).Error; err != nil {
		t.Fatalf("reload sale: %v", err)
	}
	return sale.ReturnStatus
}

func (f *fixture) stock(t *testing.T, productID uuid.UUID) decimal.Decimal {
	t.Helper()
	var product models.Product
	if err := f.db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product.Stock
}

func TestCreateReturnPartialThenFull(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "0")
	saleID := f.seedSale(t, []models.SaleItem{
		{ProductID: productID, Quantity: decimal.RequireFromString("3"), PriceAtTime: decimal.RequireFromString("10")},
	})

	first, err := f.svc.Create(context.Background(), CreateReturnInput{
		TenantID: f.tenantID,
		UserID:   f.userID,
		SaleID:   saleID,
		Items: []ReturnItemInput{
			{ProductID: productID, Quantity: decimal.RequireFromString("1"), Price: decimal.RequireFromString("10")},
		},
		Reason: "damaged",
	})
	if err != nil {
		t.Fatalf("first return: %v", err)
	}
	if !first.TotalAmount.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("unexpected refund total: %s", first.TotalAmount)
	}
	if first.PaymentMethod != enums.PaymentMethodCash {
		t.Fatalf("expected cash refund, got %s", first.PaymentMethod)
	}
	if got := f.saleStatus(t, saleID); got != enums.ReturnStatusPartial {
		t.Fatalf("expected partial after first return, got %s", got)
	}
	if got := f.stock(t, productID); !got.Equal(decimal.RequireFromString("1")) {
		t.Fatalf("expected stock 1, got %s", got)
	}

	_, err = f.svc.Create(context.Background(), CreateReturnInput{
		TenantID: f.tenantID,
		UserID:   f.userID,
		SaleID:   saleID,
		Items: []ReturnItemInput{
			{ProductID: productID, Quantity: decimal.RequireFromString("2"), Price: decimal.RequireFromString("10")},
		},
	})
	if err != nil {
		t.Fatalf("second return: %v", err)
	}
	if got := f.saleStatus(t, saleID); got != enums.ReturnStatusFull {
		t.Fatalf("expected full after returns accumulate, got %s", got)
	}
	if got := f.stock(t, productID); !got.Equal(decimal.RequireFromString("3")) {
		t.Fatalf("expected stock 3, got %s", got)
	}
}

func TestCreateReturnOverReturnRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "0")
	saleID := f.seedSale(t, []models.SaleItem{
		{ProductID: productID, Quantity: decimal.RequireFromString("2"), PriceAtTime: decimal.RequireFromString("10")},
	})

	_, err := f.svc.Create(context.Background(), CreateReturnInput{
		TenantID: f.tenantID,
		UserID:   f.userID,
		SaleID:   saleID,
		Items: []ReturnItemInput{
			{ProductID: productID, Quantity: decimal.RequireFromString("1.5"), Price: decimal.RequireFromString("10")},
		},
	})
	if err != nil {
		t.Fatalf("first return: %v", err)
	}

	_, err = f.svc.Create(context.Background(), CreateReturnInput{
		TenantID: f.tenantID,
		UserID:   f.userID,
		SaleID:   saleID,
		Items: []ReturnItemInput{
			{ProductID: productID, Quantity: decimal.RequireFromString("1"), Price: decimal.RequireFromString("10")},
		},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	if got := f.stock(t, productID); !got.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("expected stock unchanged at 1.5, got %s", got)
	}
	if got := f.saleStatus(t, saleID); got != enums.ReturnStatusPartial {
		t.Fatalf("expected status still partial, got %s", got)
	}

	var count int64
	if err := f.db.Model(&models.Return{}).Count(&count).Error; err != nil {
		t.Fatalf("count returns: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 return row, got %d", count)
	}
}

func TestCreateReturnUnknownProductOnSale(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "0")
	saleID := f.seedSale(t, []models.SaleItem{
		{ProductID: productID, Quantity: decimal.RequireFromString("1"), PriceAtTime: decimal.RequireFromString("10")},
	})

	_, err := f.svc.Create(context.Background(), CreateReturnInput{
		TenantID: f.tenantID,
		UserID:   f.userID,
		SaleID:   saleID,
		Items: []ReturnItemInput{
			{ProductID: uuid.New(), Quantity: decimal.RequireFromString("1"), Price: decimal.RequireFromString("10")},
		},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateReturnSaleNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "0")

	_, err := f.svc.Create(context.Background(), CreateReturnInput{
		TenantID: f.tenantID,
		UserID:   f.userID,
		SaleID:   uuid.New(),
		Items: []ReturnItemInput{
			{ProductID: productID, Quantity: decimal.RequireFromString("1"), Price: decimal.RequireFromString("10")},
		},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateReturnTenantIsolation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "0")
	saleID := f.seedSale(t, []models.SaleItem{
		{ProductID: productID, Quantity: decimal.RequireFromString("1"), PriceAtTime: decimal.RequireFromString("10")},
	})

	_, err := f.svc.Create(context.Background(), CreateReturnInput{
		TenantID: uuid.New(),
		UserID:   f.userID,
		SaleID:   saleID,
		Items: []ReturnItemInput{
			{ProductID: productID, Quantity: decimal.RequireFromString("1"), Price: decimal.RequireFromString("10")},
		},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign tenant, got %v", err)
	}
}
