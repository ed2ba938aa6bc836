package handler

import (
	"vinefi-traceability/internal/adapter/http/middleware"
	redisStore "vinefi-traceability/internal/adapter/storage/redis"
	"vinefi-traceability/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	PaymentSvc     ports.PaymentService
	WineTokenSvc   ports.WineTokenService
	StatusSvc      ports.StatusService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = endpoint rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	// --- Custodial wallets (JWT-authenticated) ---
	walletHandler := NewWalletHandler(deps.WalletSvc, deps.PaymentSvc)
	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.POST("/provision", rl("wallets"), walletHandler.Provision)
		wallets.POST("/sign-payment", rl("payments"), walletHandler.SignPayment)
	}

	// --- Wine lot tokens (JWT-authenticated) ---
	tokenHandler := NewTokenHandler(deps.WineTokenSvc)
	tokens := v1.Group("/tokens", jwtAuth)
	{
		tokens.POST("", rl("tokens"), tokenHandler.Create)
		tokens.POST("/mint", rl("tokens"), tokenHandler.Mint)
		tokens.POST("/transfer", rl("tokens"), tokenHandler.Transfer)
	}

	// --- Status tracking ---
	statusHandler := NewStatusHandler(deps.StatusSvc)
	lots := v1.Group("/lots")
	{
		lots.POST("/status", jwtAuth, rl("lot_status"), statusHandler.UpdateLotStatus)
		lots.GET("/history", rl("public_trace"), statusHandler.LotHistory)
	}

	bottles := v1.Group("/bottles", jwtAuth)
	{
		bottles.POST("/status", rl("bottle_scan"), statusHandler.UpdateBottleStatus)
	}

	// --- Public traceability (no auth, per-IP rate limited) ---
	traceHandler := NewTraceHandler(deps.StatusSvc)
	trace := v1.Group("/trace")
	{
		trace.GET("", rl("public_trace"), traceHandler.TraceGet)
		trace.POST("", rl("public_trace"), traceHandler.TracePost)
	}

	return r
}
