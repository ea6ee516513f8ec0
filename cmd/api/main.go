package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/pabloeorellana/orpos-backend/api/routes"
	"github.com/pabloeorellana/orpos-backend/internal/audit"
	"github.com/pabloeorellana/orpos-backend/internal/auth"
	"github.com/pabloeorellana/orpos-backend/internal/payments"
	"github.com/pabloeorellana/orpos-backend/internal/products"
	"github.com/pabloeorellana/orpos-backend/internal/returns"
	"github.com/pabloeorellana/orpos-backend/internal/sales"
	"github.com/pabloeorellana/orpos-backend/internal/shifts"
	"github.com/pabloeorellana/orpos-backend/pkg/auth/session"
	"github.com/pabloeorellana/orpos-backend/pkg/config"
	"github.com/pabloeorellana/orpos-backend/pkg/db"
	"github.com/pabloeorellana/orpos-backend/pkg/logger"
	"github.com/pabloeorellana/orpos-backend/pkg/metrics"
	"github.com/pabloeorellana/orpos-backend/pkg/migrate"
	"github.com/pabloeorellana/orpos-backend/pkg/pubsub"
	"github.com/pabloeorellana/orpos-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	// The audit fan-out topic is optional; without it the sink only
	// writes audit_logs rows.
	var pubsubClient *pubsub.Client
	if cfg.Audit.Topic != "" && cfg.GCP.ProjectID != "" {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.GCP, cfg.Audit, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
	}

	var publisher audit.Publisher
	if pubsubClient != nil {
		publisher = pubsubClient.AuditPublisher()
	}
	auditService, err := audit.NewService(dbClient.DB(), cfg.Audit, logg, publisher)
	if err != nil {
		logg.Error(ctx, "failed to create audit service", err)
		os.Exit(1)
	}

	productRepo := products.NewRepository(dbClient.DB())
	saleRepo := sales.NewRepository(dbClient.DB())
	returnRepo := returns.NewRepository(dbClient.DB())
	shiftRepo := shifts.NewRepository(dbClient.DB())
	paymentRepo := payments.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       auth.NewUserRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(dbClient, productRepo, nil, auditService)
	if err != nil {
		logg.Error(ctx, "failed to create product service", err)
		os.Exit(1)
	}

	saleService, err := sales.NewService(dbClient, saleRepo, shiftRepo, nil, auditService)
	if err != nil {
		logg.Error(ctx, "failed to create sale service", err)
		os.Exit(1)
	}

	returnService, err := returns.NewService(dbClient, returnRepo, saleRepo, nil, auditService)
	if err != nil {
		logg.Error(ctx, "failed to create return service", err)
		os.Exit(1)
	}

	shiftService, err := shifts.NewService(dbClient, shiftRepo, auditService)
	if err != nil {
		logg.Error(ctx, "failed to create shift service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(dbClient, paymentRepo, shiftRepo, auditService)
	if err != nil {
		logg.Error(ctx, "failed to create payment service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	operationMetrics := metrics.NewOperationMetrics(registry)

	deps := routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		Session:        sessionManager,
		AuthService:    authService,
		ProductService: productService,
		SaleService:    saleService,
		ReturnService:  returnService,
		ShiftService:   shiftService,
		PaymentService: paymentService,
		Operations:     operationMetrics,
		Gatherer:       registry,
	}
	if pubsubClient != nil {
		deps.Audit = pubsubClient
	}
	router := routes.NewRouter(deps)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(runCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErrs error
	if err := server.Shutdown(shutdownCtx); err != nil {
		shutdownErrs = multierr.Append(shutdownErrs, err)
	}
	if pubsubClient != nil {
		if err := pubsubClient.Close(); err != nil {
			shutdownErrs = multierr.Append(shutdownErrs, err)
		}
	}
	if err := redisClient.Close(); err != nil {
		shutdownErrs = multierr.Append(shutdownErrs, err)
	}
	if err := dbClient.Close(); err != nil {
		shutdownErrs = multierr.Append(shutdownErrs, err)
	}
	if shutdownErrs != nil {
		logg.Error(runCtx, "shutdown finished with errors", shutdownErrs)
		os.Exit(1)
	}
	logg.Info(runCtx, "shutdown complete")
}
