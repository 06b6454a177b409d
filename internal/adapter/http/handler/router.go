package handler

import (
	"custody-engine/internal/adapter/http/middleware"
	redisStore "custody-engine/internal/adapter/storage/redis"
	"custody-engine/internal/core/domain"
	"custody-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	CustodySvc     ports.CustodyService
	SettlementSvc  ports.SettlementService
	AccessSvc      ports.AccessControlService
	RegistrySvc    ports.TokenRegistryService
	LedgerSvc      ports.LedgerService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
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

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	// --- Client fund operations (JWT-authenticated) ---
	custodyHandler := NewCustodyHandler(deps.CustodySvc)
	custody := v1.Group("/custody", jwtAuth)
	{
		custody.POST("/deposit", rl("custody"), custodyHandler.Deposit)
		custody.POST("/withdraw", rl("custody"), custodyHandler.Withdraw)
		custody.POST("/release", rl("custody"), custodyHandler.Release)
		custody.GET("/balance-sheet", rl("custody"), custodyHandler.BalanceSheet)
	}

	// --- Platform administration (JWT + admin role) ---
	adminHandler := NewAdminHandler(deps.AccessSvc, deps.RegistrySvc, deps.CustodySvc, deps.LedgerSvc)

	// Bootstrap is open until the first admin is seeded; the service locks it.
	v1.POST("/admin/bootstrap", rl("admin"), adminHandler.Bootstrap)

	// Renounce is JWT-only: holders may drop their own roles, and the service
	// requires admin rights for dropping anyone else's.
	v1.POST("/admin/roles/renounce", jwtAuth, rl("admin"), adminHandler.RenounceRole)
	v1.GET("/admin/roles/check", jwtAuth, rl("admin"), adminHandler.CheckRole)

	requireAdmin := middleware.RequireRole(deps.AccessSvc, domain.RoleAdmin)
	admin := v1.Group("/admin", jwtAuth, requireAdmin)
	{
		admin.POST("/roles/grant", rl("admin"), adminHandler.GrantRole)
		admin.POST("/tokens", rl("admin"), adminHandler.WhitelistToken)
		admin.DELETE("/tokens/:mint", rl("admin"), adminHandler.DelistToken)
		admin.POST("/fundlock", rl("admin"), adminHandler.InitFundlock)
		admin.POST("/ledgers", rl("admin"), adminHandler.InitLedger)
	}

	// --- Backend settlement (JWT + utility account role) ---
	settlementHandler := NewSettlementHandler(deps.SettlementSvc)
	requireUtility := middleware.RequireRole(deps.AccessSvc, domain.RoleUtilityAccount)
	settlement := v1.Group("/settlement", jwtAuth, requireUtility)
	{
		settlement.POST("/fund-movements", rl("settlement"), settlementHandler.SettleFundMovements)
		settlement.POST("/positions", rl("settlement"), settlementHandler.SettlePositions)
	}

	return r
}
