package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pabloeorellana/orpos-backend/pkg/db/models"
	"github.com/pabloeorellana/orpos-backend/pkg/enums"
	pkgerrors "github.com/pabloeorellana/orpos-backend/pkg/errors"
	"github.com/pabloeorellana/orpos-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type openShiftFinder interface {
	LockOpenByUser(ctx context.Context, tx *gorm.DB, tenantID, userID uuid.UUID) (*models.Shift, error)
}

type auditRecorder interface {
	LogAction(ctx context.Context, tenantID, userID uuid.UUID, action string, details any)
}

// Service records outflows (supplier payments, expenses, salaries)
// against the caller's active shift.
type Service interface {
	Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error)
	Get(ctx context.Context, tenantID, paymentID uuid.UUID) (*models.Payment, error)
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Payment, string, error)
}

// CreatePaymentInput carries one outflow. The shift is resolved from the
// caller's open drawer, never passed in.
type CreatePaymentInput struct {
	TenantID      uuid.UUID
	UserID        uuid.UUID
	Type          enums.PaymentType
	Recipient     string
	Amount        decimal.Decimal
	Description   string
	SourceOfFunds enums.FundsSource
}

type service struct {
	tx        txRunner
	repo      Repository
	shiftRepo openShiftFinder
	audit     auditRecorder
}

// NewService builds the payment recording service.
func NewService(tx txRunner, repo Repository, shiftRepo openShiftFinder, audit auditRecorder) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if shiftRepo == nil {
		return nil, fmt.Errorf("shift finder required")
	}
	return &service{tx: tx, repo: repo, shiftRepo: shiftRepo, audit: audit}, nil
}

func (s *service) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	if err := validateCreatePayment(input); err != nil {
		return nil, err
	}

	var created *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// Locking the open shift row serializes the payment with a
		// concurrent close of the same shift.
		shift, err := s.shiftRepo.LockOpenByUser(ctx, tx, input.TenantID, input.UserID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "no active shift")
			}
			return err
		}

		payment := &models.Payment{
			TenantID:      input.TenantID,
			UserID:        input.UserID,
			ShiftID:       shift.ID,
			Type:          input.Type,
			Recipient:     input.Recipient,
			Amount:        input.Amount,
			Description:   input.Description,
			SourceOfFunds: input.SourceOfFunds,
			PaymentDate:   time.Now().UTC(),
		}
		if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert payment")
		}
		created = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.LogAction(ctx, input.TenantID, input.UserID, "payment.created", map[string]any{
			"payment_id":      created.ID,
			"shift_id":        created.ShiftID,
			"amount":          created.Amount.String(),
			"type":            created.Type,
			"source_of_funds": created.SourceOfFunds,
		})
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, tenantID, paymentID uuid.UUID) (*models.Payment, error) {
	if tenantID == uuid.Nil || paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and payment id required")
	}
	return s.repo.FindByID(ctx, tenantID, paymentID)
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Payment, string, error) {
	if tenantID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	return s.repo.List(ctx, tenantID, params)
}

func validateCreatePayment(input CreatePaymentInput) error {
	if input.TenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment type")
	}
	if input.Recipient == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.SourceOfFunds.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid source of funds")
	}
	return nil
}
