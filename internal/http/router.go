package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paygate/paygate/internal/auth"
	"github.com/paygate/paygate/internal/config"
	"github.com/paygate/paygate/internal/http/handlers"
	"github.com/paygate/paygate/internal/http/middlewares"
	"github.com/paygate/paygate/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps carries everything the router wires into handlers. Stores are
// interfaces so integration tests can run against the in-memory repos.
type Deps struct {
	Users    handlers.UserStore
	Payments handlers.PaymentStore
	Gateway  handlers.PaymentGateway
	JWT      *auth.Manager
	Revoker  auth.TokenRevoker
	Prom     *observability.Prom
	Metrics  *prometheus.Registry
	Ping     func() error
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(1 << 20)) // 1 MiB
	r.Use(otelgin.Middleware("paygate"))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	// health + metrics + docs

	health := handlers.NewHealthHandler(deps.Ping)
	r.GET("/health", health.Health)
	r.GET("/readyz", health.Readyz)

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// auth

	authLimiter := middlewares.NewRateLimiter(10, time.Minute)
	paymentLimiter := middlewares.NewRateLimiter(30, time.Minute)

	authHandler := handlers.NewAuthHandler(deps.Users, deps.JWT, deps.Revoker)
	authMW := middlewares.NewAuthMiddleware(deps.JWT, deps.Revoker)

	authGroup := r.Group("/auth")
	authGroup.Use(middlewares.RequireJSON())
	{
		authGroup.POST("/signup", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.SignUp)
		authGroup.POST("/signin", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.SignIn)
		authGroup.POST("/signout", authMW.RequireAuth(), authHandler.SignOut)
		authGroup.GET("/profile", authMW.RequireAuth(), authHandler.Profile)
	}

	// payments

	paymentsHandler := handlers.NewPaymentsHandler(deps.Payments, deps.Gateway, deps.Prom)

	paymentsGroup := r.Group("/payments")
	paymentsGroup.Use(middlewares.RequireJSON())
	{
		paymentsGroup.POST("/create-payment", authMW.RequireAuth(), paymentLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP), paymentsHandler.CreatePayment)
		paymentsGroup.POST("/verify-payment", authMW.RequireAuth(), paymentLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP), paymentsHandler.VerifyPayment)
		paymentsGroup.GET("/my-payments", authMW.RequireAuth(), paymentsHandler.MyPayments)

		// provider callbacks authenticate with the webhook signature, not a bearer token
		paymentsGroup.POST("/webhook", paymentsHandler.Webhook)
	}

	return r
}
