package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pabloeorellana/orpos-backend/api/responses"
	"github.com/pabloeorellana/orpos-backend/api/validators"
	returnsvc "github.com/pabloeorellana/orpos-backend/internal/returns"
	"github.com/pabloeorellana/orpos-backend/pkg/logger"
)

type returnItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
	Price     decimal.Decimal `json:"price"`
}

type createReturnRequest struct {
	SaleID uuid.UUID           `json:"sale_id" validate:"required"`
	Items  []returnItemRequest `json:"items" validate:"required,min=1,dive"`
	Reason string              `json:"reason"`
}

// ReturnCreate refunds items from a prior sale and restocks them.
func ReturnCreate(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createReturnRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]returnsvc.ReturnItemInput, len(payload.Items))
		for i, item := range payload.Items {
			items[i] = returnsvc.ReturnItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     item.Price,
			}
		}

		ret, err := svc.Create(r.Context(), returnsvc.CreateReturnInput{
			TenantID: caller.TenantID,
			UserID:   caller.UserID,
			SaleID:   payload.SaleID,
			Items:    items,
			Reason:   validators.SanitizeString(payload.Reason, 1000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, ret)
	}
}

// ReturnGet fetches a return with its line items.
func ReturnGet(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		returnID, err := parseUUIDParam(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ret, err := svc.Get(r.Context(), caller.TenantID, returnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ret)
	}
}

// ReturnList pages through the tenant's returns, newest first.
func ReturnList(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		returns, next, err := svc.List(r.Context(), caller.TenantID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listEnvelope{Items: returns, NextCursor: next})
	}
}
