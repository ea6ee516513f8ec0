package sales

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

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

type stubShiftLoader struct {
	shift *models.Shift
	err   error
}

func (s stubShiftLoader) LockByID(ctx context.Context, tx *gorm.DB, tenantID, shiftID uuid.UUID) (*models.Shift, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.shift, nil
}

type recordedAudit struct {
	action  string
	details any
}

type stubAudit struct {
	entries []recordedAudit
}

func (s *stubAudit) LogAction(ctx context.Context, tenantID, userID uuid.UUID, action string, details any) {
	s.entries = append(s.entries, recordedAudit{action: action, details: details})
}

func newSalesTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:sales_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.Sale{}, &models.SaleItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedSaleProduct(t *testing.T, db *gorm.DB, tenantID uuid.UUID, stock string) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     "test product",
		SKU:      "sku-" + uuid.NewString()[:8],
		Stock:    decimal.RequireFromString(stock),
		Price:    decimal.RequireFromString("10"),
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func openShift(tenantID, userID uuid.UUID) *models.Shift {
	return &models.Shift{
		ID:       uuid.New(),
		TenantID: tenantID,
		UserID:   userID,
		Status:   enums.ShiftStatusOpen,
	}
}

func TestCreateSale(t *testing.T) {
	t.Parallel()

	db := newSalesTestDB(t)
	tenantID := uuid.New()
	userID := uuid.New()
	productID := seedSaleProduct(t, db, tenantID, "10")
	shift := openShift(tenantID, userID)
	audit := &stubAudit{}

	svc, err := NewService(dbTxRunner{db: db}, NewRepository(db), stubShiftLoader{shift: shift}, nil, audit)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	sale, err := svc.Create(context.Background(), CreateSaleInput{
		TenantID: tenantID,
		UserID:   userID,
		ShiftID:  shift.ID,
		Items: []SaleItemInput{
			{ProductID: productID, Quantity: decimal.RequireFromString("3"), Price: decimal.RequireFromString("10")},
		},
		TotalAmount:   decimal.RequireFromString("30"),
		PaymentMethod: enums.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.ID == uuid.Nil {
		t.Fatal("expected sale id to be assigned")
	}
	if sale.ReturnStatus != enums.ReturnStatusNone {
		t.Fatalf("unexpected return status: %s", sale.ReturnStatus)
	}

	var product models.Product
	if err := db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if !product.Stock.Equal(decimal.RequireFromString("7")) {
		t.Fatalf("expected stock 7, got %s", product.Stock)
	}

	stored, err := svc.Get(context.Background(), tenantID, sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if len(stored.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(stored.Items))
	}
	if !stored.Items[0].PriceAtTime.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("unexpected snapshot price: %s", stored.Items[0].PriceAtTime)
	}

	if len(audit.entries) != 1 || audit.entries[0].action != "sale.created" {
		t.Fatalf("expected sale.created audit entry, got %+v", audit.entries)
	}
}

func TestCreateSaleInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	db := newSalesTestDB(t)
	tenantID := uuid.New()
	userID := uuid.New()
	inStock := seedSaleProduct(t, db, tenantID, "5")
	outOfStock := seedSaleProduct(t, db, tenantID, "1")
	shift := openShift(tenantID, userID)

	svc, err := NewService(dbTxRunner{db: db}, NewRepository(db), stubShiftLoader{shift: shift}, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.Create(context.Background(), CreateSaleInput{
		TenantID: tenantID,
		UserID:   userID,
		ShiftID:  shift.ID,
		Items: []SaleItemInput{
			{ProductID: inStock, Quantity: decimal.RequireFromString("2"), Price: decimal.RequireFromString("10")},
			{ProductID: outOfStock, Quantity: decimal.RequireFromString("2"), Price: decimal.RequireFromString("10")},
		},
		TotalAmount:   decimal.RequireFromString("40"),
		PaymentMethod: enums.PaymentMethodCash,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	var product models.Product
	if err := db.First(&product, "id = ?", inStock).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if !product.Stock.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("expected stock untouched at 5, got %s", product.Stock)
	}

	var count int64
	if err := db.Model(&models.Sale{}).Count(&count).Error; err != nil {
		t.Fatalf("count sales: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no sale rows, got %d", count)
	}
}

func TestCreateSaleShiftGuards(t *testing.T) {
	t.Parallel()

	db := newSalesTestDB(t)
	tenantID := uuid.New()
	userID := uuid.New()
	productID := seedSaleProduct(t, db, tenantID, "5")

	input := CreateSaleInput{
		TenantID: tenantID,
		UserID:   userID,
		Items: []SaleItemInput{
			{ProductID: productID, Quantity: decimal.RequireFromString("1"), Price: decimal.RequireFromString("10")},
		},
		TotalAmount:   decimal.RequireFromString("10"),
		PaymentMethod: enums.PaymentMethodCard,
	}

	t.Run("closed shift", func(t *testing.T) {
		shift := openShift(tenantID, userID)
		shift.Status = enums.ShiftStatusClosed
		svc, err := NewService(dbTxRunner{db: db}, NewRepository(db), stubShiftLoader{shift: shift}, nil, nil)
		if err != nil {
			t.Fatalf("new service: %v", err)
		}
		in := input
		in.ShiftID = shift.ID
		_, err = svc.Create(context.Background(), in)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict, got %v", err)
		}
	})

	t.Run("foreign shift", func(t *testing.T) {
		shift := openShift(tenantID, uuid.New())
		svc, err := NewService(dbTxRunner{db: db}, NewRepository(db), stubShiftLoader{shift: shift}, nil, nil)
		if err != nil {
			t.Fatalf("new service: %v", err)
		}
		in := input
		in.ShiftID = shift.ID
		_, err = svc.Create(context.Background(), in)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("missing shift", func(t *testing.T) {
		loader := stubShiftLoader{err: pkgerrors.New(pkgerrors.CodeNotFound, "shift not found")}
		svc, err := NewService(dbTxRunner{db: db}, NewRepository(db), loader, nil, nil)
		if err != nil {
			t.Fatalf("new service: %v", err)
		}
		in := input
		in.ShiftID = uuid.New()
		_, err = svc.Create(context.Background(), in)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestCreateSaleValidation(t *testing.T) {
	t.Parallel()

	db := newSalesTestDB(t)
	tenantID := uuid.New()
	userID := uuid.New()
	shift := openShift(tenantID, userID)
	svc, err := NewService(dbTxRunner{db: db}, NewRepository(db), stubShiftLoader{shift: shift}, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	cases := []struct {
		name  string
		input CreateSaleInput
	}{
		{
			name: "empty cart",
			input: CreateSaleInput{
				TenantID:      tenantID,
				UserID:        userID,
				ShiftID:       shift.ID,
				TotalAmount:   decimal.Zero,
				PaymentMethod: enums.PaymentMethodCash,
			},
		},
		{
			name: "zero quantity",
			input: CreateSaleInput{
				TenantID: tenantID,
				UserID:   userID,
				ShiftID:  shift.ID,
				Items: []SaleItemInput{
					{ProductID: uuid.New(), Quantity: decimal.Zero, Price: decimal.RequireFromString("10")},
				},
				TotalAmount:   decimal.Zero,
				PaymentMethod: enums.PaymentMethodCash,
			},
		},
		{
			name: "bad payment method",
			input: CreateSaleInput{
				TenantID: tenantID,
				UserID:   userID,
				ShiftID:  shift.ID,
				Items: []SaleItemInput{
					{ProductID: uuid.New(), Quantity: decimal.RequireFromString("1"), Price: decimal.RequireFromString("10")},
				},
				TotalAmount:   decimal.RequireFromString("10"),
				PaymentMethod: enums.PaymentMethod("barter"),
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
