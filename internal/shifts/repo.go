package shifts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pabloeorellana/orpos-backend/pkg/db/models"
	"github.com/pabloeorellana/orpos-backend/pkg/enums"
	pkgerrors "github.com/pabloeorellana/orpos-backend/pkg/errors"
	"github.com/pabloeorellana/orpos-backend/pkg/pagination"
)

// Repository manages persistence for shifts and the aggregation queries
// the close step runs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, shift *models.Shift) error
	FindByID(ctx context.Context, tx *gorm.DB, tenantID, shiftID uuid.UUID) (*models.Shift, error)
	LockByID(ctx context.Context, tx *gorm.DB, tenantID, shiftID uuid.UUID) (*models.Shift, error)
	FindOpenByUser(ctx context.Context, tx *gorm.DB, tenantID, userID uuid.UUID) (*models.Shift, error)
	LockOpenByUser(ctx context.Context, tx *gorm.DB, tenantID, userID uuid.UUID) (*models.Shift, error)
	Update(ctx context.Context, shift *models.Shift) error
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Shift, string, error)
	AggregateSales(ctx context.Context, tx *gorm.DB, tenantID, shiftID uuid.UUID) (SalesAggregate, error)
	AggregateCashReturns(ctx context.Context, tx *gorm.DB, tenantID, shiftID uuid.UUID) (decimal.Decimal, error)
	AggregatePayments(ctx context.Context, tx *gorm.DB, tenantID, shiftID uuid.UUID) (PaymentsAggregate, error)
}

// SalesAggregate is the per-method sale totals plus transaction count
// for one shift.
type SalesAggregate struct {
	Cash     decimal.Decimal
	Card     decimal.Decimal
	Transfer decimal.Decimal
	Other    decimal.Decimal
	Count    int
}

// PaymentsAggregate is the outflow totals for one shift split by the
// source of funds.
type PaymentsAggregate struct {
	Cash    decimal.Decimal
	Virtual decimal.Decimal
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a shifts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) session(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *repository) Create(ctx context.Context, shift *models.Shift) error {
	if shift.ID == uuid.Nil {
		shift.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(shift).Error
}

func (r *repository) FindByID(ctx context.Context, tx *gorm.DB, tenantID, shiftID uuid.UUID) (*models.Shift, error) {
	return r.byID(ctx, tx, tenantID, shiftID, false)
}

// LockByID reads the shift under FOR UPDATE. Sale and payment creation
// take this lock when validating the shift, and close takes it before
// aggregating, so a transaction can never land on a shift after its
// totals were summed.
func (r *repository) LockByID(ctx context.Context, tx *gorm.DB, tenantID, shiftID uuid.UUID) (*models.Shift, error) {
	return r.byID(ctx, tx, tenantID, shiftID, true)
}

func (r *repository) byID(ctx context.Context, tx *gorm.DB, tenantID, shiftID uuid.UUID, lock bool) (*models.Shift, error) {
	query := r.session(tx).WithContext(ctx)
	if lock && r.session(tx).Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var shift models.Shift
	err := query.
		Where("id = ? AND tenant_id = ?", shiftID, tenantID).
		First(&shift).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shift not found")
		}
		return nil, err
	}
	return &shift, nil
}

func (r *repository) FindOpenByUser(ctx context.Context, tx *gorm.DB, tenantID, userID uuid.UUID) (*models.Shift, error) {
	return r.openByUser(ctx, tx, tenantID, userID, false)
}

// LockOpenByUser reads the user's open shift under FOR UPDATE so a
// concurrent start for the same user serializes behind it.
func (r *repository) LockOpenByUser(ctx context.Context, tx *gorm.DB, tenantID, userID uuid.UUID) (*models.Shift, error) {
	return r.openByUser(ctx, tx, tenantID, userID, true)
}

func (r *repository) openByUser(ctx context.Context, tx *gorm.DB, tenantID, userID uuid.UUID, lock bool) (*models.Shift, error) {
	query := r.session(tx).WithContext(ctx).
		Where("tenant_id = ? AND user_id = ? AND status = ?", tenantID, userID, enums.ShiftStatusOpen)
	if lock && r.session(tx).Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var shift models.Shift
	if err := query.First(&shift).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no open shift")
		}
		return nil, err
	}
	return &shift, nil
}

func (r *repository) Update(ctx context.Context, shift *models.Shift) error {
	return r.db.WithContext(ctx).Save(shift).Error
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Shift, string, error) {
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
	var shifts []models.Shift
	if err := query.Limit(limit).Find(&shifts).Error; err != nil {
		return nil, "", err
	}

	shifts, more := pagination.TrimPage(shifts, limit)
	next := ""
	if more {
		last := shifts[len(shifts)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return shifts, next, nil
}

// AggregateSales sums sale totals by payment method for the shift. A
// shift with no sales yields zeros.
func (r *repository) AggregateSales(ctx context.Context, tx *gorm.DB, tenantID, shiftID uuid.UUID) (SalesAggregate, error) {
	type row struct {
		PaymentMethod string
		Total         decimal.Decimal
		Count         int
	}
	var rows []row
	err := r.session(tx).WithContext(ctx).
		Model(&models.Sale{}).
		Select("payment_method, SUM(total_amount) AS total, COUNT(*) AS count").
		Where("tenant_id = ? AND shift_id = ?", tenantID, shiftID).
		Group("payment_method").
		Scan(&rows).Error
	if err != nil {
		return SalesAggregate{}, err
	}

	agg := SalesAggregate{
		Cash:     decimal.Zero,
		Card:     decimal.Zero,
		Transfer: decimal.Zero,
		Other:    decimal.Zero,
	}
	for _, r := range rows {
		agg.Count += r.Count
		switch enums.PaymentMethod(r.PaymentMethod) {
		case enums.PaymentMethodCash:
			agg.Cash = r.Total
		case enums.PaymentMethodCard:
			agg.Card = r.Total
		case enums.PaymentMethodTransfer:
			agg.Transfer = r.Total
		default:
			agg.Other = agg.Other.Add(r.Total)
		}
	}
	return agg, nil
}

// AggregateCashReturns sums cash refunds issued against sales belonging
// to the shift, regardless of which shift was open when the refund was
// taken.
func (r *repository) AggregateCashReturns(ctx context.Context, tx *gorm.DB, tenantID, shiftID uuid.UUID) (decimal.Decimal, error) {
	type row struct {
		Total decimal.Decimal
	}
	var result row
	err := r.session(tx).WithContext(ctx).
		Model(&models.Return{}).
		Select("COALESCE(SUM(returns.total_amount), 0) AS total").
		Joins("JOIN sales ON sales.id = returns.sale_id").
		Where("returns.tenant_id = ? AND returns.payment_method = ? AND sales.shift_id = ?",
			tenantID, enums.PaymentMethodCash, shiftID).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// AggregatePayments sums outflows recorded on the shift by funds source.
func (r *repository) AggregatePayments(ctx context.Context, tx *gorm.DB, tenantID, shiftID uuid.UUID) (PaymentsAggregate, error) {
	type row struct {
		SourceOfFunds string
		Total         decimal.Decimal
	}
	var rows []row
	err := r.session(tx).WithContext(ctx).
		Model(&models.Payment{}).
		Select("source_of_funds, SUM(amount) AS total").
		Where("tenant_id = ? AND shift_id = ?", tenantID, shiftID).
		Group("source_of_funds").
		Scan(&rows).Error
	if err != nil {
		return PaymentsAggregate{}, err
	}

	agg := PaymentsAggregate{Cash: decimal.Zero, Virtual: decimal.Zero}
	for _, r := range rows {
		switch enums.FundsSource(r.SourceOfFunds) {
		case enums.FundsSourceVirtualWallet:
			agg.Virtual = r.Total
		default:
			agg.Cash = agg.Cash.Add(r.Total)
		}
	}
	return agg, nil
}
