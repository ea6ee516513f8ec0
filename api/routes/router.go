package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pabloeorellana/orpos-backend/api/controllers"
	"github.com/pabloeorellana/orpos-backend/api/middleware"
	authsvc "github.com/pabloeorellana/orpos-backend/internal/auth"
	paymentsvc "github.com/pabloeorellana/orpos-backend/internal/payments"
	productsvc "github.com/pabloeorellana/orpos-backend/internal/products"
	returnsvc "github.com/pabloeorellana/orpos-backend/internal/returns"
	salesvc "github.com/pabloeorellana/orpos-backend/internal/sales"
	shiftsvc "github.com/pabloeorellana/orpos-backend/internal/shifts"
	"github.com/pabloeorellana/orpos-backend/pkg/config"
	"github.com/pabloeorellana/orpos-backend/pkg/db"
	"github.com/pabloeorellana/orpos-backend/pkg/logger"
	"github.com/pabloeorellana/orpos-backend/pkg/metrics"
	"github.com/pabloeorellana/orpos-backend/pkg/redis"
)

// Capability strings carried in access-token claims. Super admins
// bypass all of them.
const (
	PermProductsManage = "products.manage"
	PermSalesCreate    = "sales.create"
	PermReturnsCreate  = "returns.create"
	PermShiftsManage   = "shifts.manage"
	PermPaymentsCreate = "payments.create"
)

type sessionVerifier interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type auditPinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles everything the router wires together.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      db.Pinger
	Redis   *redis.Client
	Audit   auditPinger
	Session sessionVerifier

	AuthService    authsvc.Service
	ProductService productsvc.Service
	SaleService    salesvc.Service
	ReturnService  returnsvc.Service
	ShiftService   shiftsvc.Service
	PaymentService paymentsvc.Service

	Operations *metrics.OperationMetrics
	Gatherer   prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	var redisP redis.Pinger
	if deps.Redis != nil {
		redisP = deps.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisP, deps.Audit))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		login := controllers.AuthLogin(deps.AuthService, logg)
		if deps.Redis != nil {
			r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", login)
		} else {
			r.Post("/login", login)
		}
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.With(middleware.Auth(cfg.JWT, deps.Session, logg)).Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Session, logg))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}
		r.Use(middleware.Metrics(deps.Operations))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.ProductService, logg))
			r.Get("/{productId}", controllers.ProductGet(deps.ProductService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(PermProductsManage, logg))
				r.Post("/", controllers.ProductCreate(deps.ProductService, logg))
				r.Patch("/{productId}", controllers.ProductUpdate(deps.ProductService, logg))
				r.Delete("/{productId}", controllers.ProductDeactivate(deps.ProductService, logg))
				r.Post("/{productId}/receive-stock", controllers.ProductReceiveStock(deps.ProductService, logg))
			})
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", controllers.SaleList(deps.SaleService, logg))
			r.Get("/{saleId}", controllers.SaleGet(deps.SaleService, logg))
			r.With(middleware.RequirePermission(PermSalesCreate, logg)).Post("/", controllers.SaleCreate(deps.SaleService, logg))
		})

		r.Route("/returns", func(r chi.Router) {
			r.Get("/", controllers.ReturnList(deps.ReturnService, logg))
			r.Get("/{returnId}", controllers.ReturnGet(deps.ReturnService, logg))
			r.With(middleware.RequirePermission(PermReturnsCreate, logg)).Post("/", controllers.ReturnCreate(deps.ReturnService, logg))
		})

		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", controllers.ShiftList(deps.ShiftService, logg))
			r.Get("/active", controllers.ShiftActive(deps.ShiftService, logg))
			r.Get("/{shiftId}", controllers.ShiftGet(deps.ShiftService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(PermShiftsManage, logg))
				r.Post("/", controllers.ShiftStart(deps.ShiftService, logg))
				r.Post("/{shiftId}/close", controllers.ShiftClose(deps.ShiftService, logg))
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", controllers.PaymentList(deps.PaymentService, logg))
			r.Get("/{paymentId}", controllers.PaymentGet(deps.PaymentService, logg))
			r.With(middleware.RequirePermission(PermPaymentsCreate, logg)).Post("/", controllers.PaymentCreate(deps.PaymentService, logg))
		})
	})

	return r
}
