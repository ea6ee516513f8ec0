package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pabloeorellana/orpos-backend/api/responses"
	"github.com/pabloeorellana/orpos-backend/api/validators"
	paymentsvc "github.com/pabloeorellana/orpos-backend/internal/payments"
	"github.com/pabloeorellana/orpos-backend/pkg/enums"
	pkgerrors "github.com/pabloeorellana/orpos-backend/pkg/errors"
	"github.com/pabloeorellana/orpos-backend/pkg/logger"
)

type createPaymentRequest struct {
	Type          string          `json:"type" validate:"required"`
	Recipient     string          `json:"recipient" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	SourceOfFunds string          `json:"source_of_funds" validate:"required"`
}

// PaymentCreate records an outflow against the caller's open shift.
func PaymentCreate(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentType, err := enums.ParsePaymentType(strings.TrimSpace(payload.Type))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment type"))
			return
		}

		source, err := enums.ParseFundsSource(strings.TrimSpace(payload.SourceOfFunds))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source of funds"))
			return
		}

		payment, err := svc.Create(r.Context(), paymentsvc.CreatePaymentInput{
			TenantID:      caller.TenantID,
			UserID:        caller.UserID,
			Type:          paymentType,
			Recipient:     validators.SanitizeString(payload.Recipient, 255),
			Amount:        payload.Amount,
			Description:   validators.SanitizeString(payload.Description, 1000),
			SourceOfFunds: source,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

// PaymentGet fetches a single payment record.
func PaymentGet(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := parseUUIDParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Get(r.Context(), caller.TenantID, paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payment)
	}
}

// PaymentList pages through the tenant's payments, newest first.
func PaymentList(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payments, next, err := svc.List(r.Context(), caller.TenantID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listEnvelope{Items: payments, NextCursor: next})
	}
}
