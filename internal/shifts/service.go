package shifts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pabloeorellana/orpos-backend/pkg/db"
	"github.com/pabloeorellana/orpos-backend/pkg/db/models"
	"github.com/pabloeorellana/orpos-backend/pkg/enums"
	pkgerrors "github.com/pabloeorellana/orpos-backend/pkg/errors"
	"github.com/pabloeorellana/orpos-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type auditRecorder interface {
	LogAction(ctx context.Context, tenantID, userID uuid.UUID, action string, details any)
}

// Service is the shift lifecycle: open a cash-drawer session, let sales
// and payments reference it, close it with a reconciliation report.
type Service interface {
	Start(ctx context.Context, input StartShiftInput) (*models.Shift, error)
	Close(ctx context.Context, input CloseShiftInput) (*Summary, error)
	Get(ctx context.Context, tenantID, shiftID uuid.UUID) (*models.Shift, error)
	GetActive(ctx context.Context, tenantID, userID uuid.UUID) (*models.Shift, error)
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Shift, string, error)
}

// StartShiftInput opens a new drawer session with the operator-counted
// opening balances.
type StartShiftInput struct {
	TenantID              uuid.UUID
	UserID                uuid.UUID
	OpeningBalance        decimal.Decimal
	OpeningVirtualBalance decimal.Decimal
}

// CloseShiftInput closes a session with the operator-counted balances.
type CloseShiftInput struct {
	TenantID               uuid.UUID
	UserID                 uuid.UUID
	ShiftID                uuid.UUID
	CountedBalance         decimal.Decimal
	CountedVirtualBalance  decimal.Decimal
}

// Summary is the cash-up report shown to the operator at close. It is
// derived purely from stored shift columns so re-reading the shift
// later reproduces it exactly.
type Summary struct {
	ShiftID                uuid.UUID       `json:"shift_id"`
	OpeningBalance         decimal.Decimal `json:"opening_balance"`
	OpeningVirtualBalance  decimal.Decimal `json:"opening_virtual_balance"`
	TotalCashSales         decimal.Decimal `json:"total_cash_sales"`
	TotalCardSales         decimal.Decimal `json:"total_card_sales"`
	TotalTransferSales     decimal.Decimal `json:"total_transfer_sales"`
	TotalOtherSales        decimal.Decimal `json:"total_other_sales"`
	TotalCashReturns       decimal.Decimal `json:"total_cash_returns"`
	TotalCashPayments      decimal.Decimal `json:"total_cash_payments"`
	TotalVirtualPayments   decimal.Decimal `json:"total_virtual_payments"`
	ExpectedBalance        decimal.Decimal `json:"expected_balance"`
	ExpectedVirtualBalance decimal.Decimal `json:"expected_virtual_balance"`
	CountedBalance         decimal.Decimal `json:"counted_balance"`
	CountedVirtualBalance  decimal.Decimal `json:"counted_virtual_balance"`
	Difference             decimal.Decimal `json:"difference"`
	DifferenceVirtual      decimal.Decimal `json:"difference_virtual"`
	TransactionCount       int             `json:"transaction_count"`
	StartTime              time.Time       `json:"start_time"`
	EndTime                *time.Time      `json:"end_time"`
}

type service struct {
	tx    txRunner
	repo  Repository
	audit auditRecorder
}

// NewService builds the shift lifecycle service.
func NewService(tx txRunner, repo Repository, audit auditRecorder) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("shifts repository required")
	}
	return &service{tx: tx, repo: repo, audit: audit}, nil
}

func (s *service) Start(ctx context.Context, input StartShiftInput) (*models.Shift, error) {
	if input.TenantID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and user id required")
	}
	if input.OpeningBalance.IsNegative() || input.OpeningVirtualBalance.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "opening balances cannot be negative")
	}

	var created *models.Shift
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// The lock-then-insert runs inside one transaction so two
		// concurrent starts for the same user cannot both observe
		// "no open shift".
		existing, err := s.repo.LockOpenByUser(ctx, tx, input.TenantID, input.UserID)
		if err != nil {
			if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return err
			}
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "a shift is already open").WithDetails(map[string]any{
				"shift_id": existing.ID,
			})
		}

		shift := &models.Shift{
			TenantID:              input.TenantID,
			UserID:                input.UserID,
			Status:                enums.ShiftStatusOpen,
			OpeningBalance:        input.OpeningBalance,
			OpeningVirtualBalance: input.OpeningVirtualBalance,
			StartTime:             time.Now().UTC(),
		}
		if err := s.repo.WithTx(tx).Create(ctx, shift); err != nil {
			// When no open shift exists the lock above holds nothing, so
			// a concurrent start can slip past the check; the partial
			// unique index rejects the loser and that loss is the same
			// business condition as finding the row.
			if db.IsUniqueViolation(err, "idx_shifts_open_singleton") {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "a shift is already open")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert shift")
		}
		created = shift
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.LogAction(ctx, input.TenantID, input.UserID, "shift.started", map[string]any{
			"shift_id":        created.ID,
			"opening_balance": created.OpeningBalance.String(),
		})
	}
	return created, nil
}

func (s *service) Close(ctx context.Context, input CloseShiftInput) (*Summary, error) {
	if input.TenantID == uuid.Nil || input.UserID == uuid.Nil || input.ShiftID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id, user id and shift id required")
	}

	var closed *models.Shift
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// FOR UPDATE on the shift row: sale and payment creation take
		// the same lock while validating the shift, so nothing can
		// attach to it between the aggregation and the status flip.
		shift, err := s.repo.LockByID(ctx, tx, input.TenantID, input.ShiftID)
		if err != nil {
			return err
		}
		if shift.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "shift belongs to another user")
		}
		if shift.Status != enums.ShiftStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shift already closed")
		}

		salesAgg, err := s.repo.AggregateSales(ctx, tx, input.TenantID, shift.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate sales")
		}
		cashReturns, err := s.repo.AggregateCashReturns(ctx, tx, input.TenantID, shift.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate returns")
		}
		paymentsAgg, err := s.repo.AggregatePayments(ctx, tx, input.TenantID, shift.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate payments")
		}

		expectedCash := shift.OpeningBalance.
			Add(salesAgg.Cash).
			Sub(cashReturns).
			Sub(paymentsAgg.Cash)
		virtualSales := salesAgg.Card.Add(salesAgg.Transfer).Add(salesAgg.Other)
		expectedVirtual := shift.OpeningVirtualBalance.
			Add(virtualSales).
			Sub(paymentsAgg.Virtual)

		now := time.Now().UTC()
		shift.Status = enums.ShiftStatusClosed
		shift.TotalCashSales = salesAgg.Cash
		shift.TotalCardSales = salesAgg.Card
		shift.TotalTransferSales = salesAgg.Transfer
		shift.TotalOtherSales = salesAgg.Other
		shift.TotalCashReturns = cashReturns
		shift.TotalCashPayments = paymentsAgg.Cash
		shift.TotalVirtualPayments = paymentsAgg.Virtual
		shift.TransactionCount = salesAgg.Count
		shift.ExpectedBalance = expectedCash
		shift.ExpectedVirtualBalance = expectedVirtual
		shift.ClosingBalance = input.CountedBalance
		shift.ClosingVirtualBalance = input.CountedVirtualBalance
		shift.Difference = input.CountedBalance.Sub(expectedCash)
		shift.DifferenceVirtual = input.CountedVirtualBalance.Sub(expectedVirtual)
		shift.EndTime = &now

		if err := s.repo.WithTx(tx).Update(ctx, shift); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close shift")
		}
		closed = shift
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.LogAction(ctx, input.TenantID, input.UserID, "shift.closed", map[string]any{
			"shift_id":   closed.ID,
			"expected":   closed.ExpectedBalance.String(),
			"counted":    closed.ClosingBalance.String(),
			"difference": closed.Difference.String(),
		})
	}
	return BuildSummary(closed), nil
}

func (s *service) Get(ctx context.Context, tenantID, shiftID uuid.UUID) (*models.Shift, error) {
	if tenantID == uuid.Nil || shiftID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and shift id required")
	}
	return s.repo.FindByID(ctx, nil, tenantID, shiftID)
}

func (s *service) GetActive(ctx context.Context, tenantID, userID uuid.UUID) (*models.Shift, error) {
	if tenantID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and user id required")
	}
	return s.repo.FindOpenByUser(ctx, nil, tenantID, userID)
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Shift, string, error) {
	if tenantID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	return s.repo.List(ctx, tenantID, params)
}

// BuildSummary projects a closed shift's stored columns into the cash-up
// report. No arithmetic happens here beyond what close already stored.
func BuildSummary(shift *models.Shift) *Summary {
	return &Summary{
		ShiftID:                shift.ID,
		OpeningBalance:         shift.OpeningBalance,
		OpeningVirtualBalance:  shift.OpeningVirtualBalance,
		TotalCashSales:         shift.TotalCashSales,
		TotalCardSales:         shift.TotalCardSales,
		TotalTransferSales:     shift.TotalTransferSales,
		TotalOtherSales:        shift.TotalOtherSales,
		TotalCashReturns:       shift.TotalCashReturns,
		TotalCashPayments:      shift.TotalCashPayments,
		TotalVirtualPayments:   shift.TotalVirtualPayments,
		ExpectedBalance:        shift.ExpectedBalance,
		ExpectedVirtualBalance: shift.ExpectedVirtualBalance,
		CountedBalance:         shift.ClosingBalance,
		CountedVirtualBalance:  shift.ClosingVirtualBalance,
		Difference:             shift.Difference,
		DifferenceVirtual:      shift.DifferenceVirtual,
		TransactionCount:       shift.TransactionCount,
		StartTime:              shift.StartTime,
		EndTime:                shift.EndTime,
	}
}
