package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pabloeorellana/orpos-backend/api/middleware"
	"github.com/pabloeorellana/orpos-backend/api/validators"
	pkgerrors "github.com/pabloeorellana/orpos-backend/pkg/errors"
	"github.com/pabloeorellana/orpos-backend/pkg/pagination"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// actor is the authenticated caller as resolved from the request context.
type actor struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
}

func actorFromRequest(r *http.Request) (actor, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	tenantID := middleware.TenantIDFromContext(r.Context())
	if tenantID == "" {
		return actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "tenant context missing")
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tenant id")
	}
	return actor{UserID: uid, TenantID: tid}, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid id").WithDetails(map[string]any{"param": name})
	}
	return id, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", defaultPageSize, 1, maxPageSize)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	}, nil
}

// listEnvelope pairs a result page with the cursor for the next one.
type listEnvelope struct {
	Items      any    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}
