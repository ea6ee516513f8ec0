package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/pabloeorellana/orpos-backend/api/responses"
	"github.com/pabloeorellana/orpos-backend/api/validators"
	shiftsvc "github.com/pabloeorellana/orpos-backend/internal/shifts"
	"github.com/pabloeorellana/orpos-backend/pkg/logger"
)

type startShiftRequest struct {
	OpeningBalance        decimal.Decimal `json:"opening_balance"`
	OpeningVirtualBalance decimal.Decimal `json:"opening_virtual_balance"`
}

type closeShiftRequest struct {
	CountedBalance        decimal.Decimal `json:"counted_balance"`
	CountedVirtualBalance decimal.Decimal `json:"counted_virtual_balance"`
}

// ShiftStart opens a drawer session for the caller.
func ShiftStart(svc shiftsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload startShiftRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shift, err := svc.Start(r.Context(), shiftsvc.StartShiftInput{
			TenantID:              caller.TenantID,
			UserID:                caller.UserID,
			OpeningBalance:        payload.OpeningBalance,
			OpeningVirtualBalance: payload.OpeningVirtualBalance,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, shift)
	}
}

// ShiftClose reconciles and closes a drawer session, returning the
// cash-up summary.
func ShiftClose(svc shiftsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shiftID, err := parseUUIDParam(r, "shiftId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload closeShiftRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Close(r.Context(), shiftsvc.CloseShiftInput{
			TenantID:              caller.TenantID,
			UserID:                caller.UserID,
			ShiftID:               shiftID,
			CountedBalance:        payload.CountedBalance,
			CountedVirtualBalance: payload.CountedVirtualBalance,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

// ShiftGet fetches a single shift.
func ShiftGet(svc shiftsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shiftID, err := parseUUIDParam(r, "shiftId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shift, err := svc.Get(r.Context(), caller.TenantID, shiftID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, shift)
	}
}

// ShiftActive fetches the caller's currently open shift, if any.
func ShiftActive(svc shiftsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shift, err := svc.GetActive(r.Context(), caller.TenantID, caller.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, shift)
	}
}

// ShiftList pages through the tenant's shifts, newest first.
func ShiftList(svc shiftsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		shifts, next, err := svc.List(r.Context(), caller.TenantID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listEnvelope{Items: shifts, NextCursor: next})
	}
}
