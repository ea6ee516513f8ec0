package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/pabloeorellana/orpos-backend/api/responses"
	"github.com/pabloeorellana/orpos-backend/pkg/config"
	"github.com/pabloeorellana/orpos-backend/pkg/db"
	"github.com/pabloeorellana/orpos-backend/pkg/logger"
	"github.com/pabloeorellana/orpos-backend/pkg/redis"
)

const readinessTimeout = 5 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ORPOS-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the backing services. Optional dependencies report
// "skipped" when not wired.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger, auditP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{
			"database": pingStatus(ctx, dbP),
			"redis":    pingStatus(ctx, redisP),
			"audit":    pingStatus(ctx, auditP),
		}

		healthy := true
		for name, status := range checks {
			if status == "error" {
				healthy = false
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "dependency", name), "health.dependency_unreachable")
				}
			}
		}

		w.Header().Set("X-ORPOS-Env", cfg.App.Env)
		if !healthy {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "checks": checks})
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func pingStatus(ctx context.Context, p pinger) string {
	if p == nil {
		return "skipped"
	}
	if err := p.Ping(ctx); err != nil {
		return "error"
	}
	return "ok"
}
