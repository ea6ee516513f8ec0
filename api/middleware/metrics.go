package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pabloeorellana/orpos-backend/pkg/metrics"
)

// operationForRoute maps mutating register endpoints to metric names.
func operationForRoute(method, pattern string) string {
	if method != http.MethodPost {
		return ""
	}
	switch pattern {
	case "/api/v1/sales":
		return "sale.create"
	case "/api/v1/returns":
		return "return.create"
	case "/api/v1/shifts/{shiftId}/close":
		return "shift.close"
	case "/api/v1/shifts":
		return "shift.start"
	case "/api/v1/payments":
		return "payment.create"
	}
	return ""
}

// Metrics observes register operation durations and outcomes.
func Metrics(ops *metrics.OperationMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if ops == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)

			pattern := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					pattern = p
				}
			}
			op := operationForRoute(r.Method, pattern)
			if op == "" {
				return
			}

			ops.ObserveDuration(op, time.Since(start))
			if rec.status >= http.StatusBadRequest {
				ops.IncFailure(op)
				return
			}
			switch op {
			case "sale.create":
				ops.IncSaleCreated()
			case "return.create":
				ops.IncReturnCreated()
			case "shift.close":
				ops.IncShiftClosed()
			}
		})
	}
}
