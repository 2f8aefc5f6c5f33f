package handler

import (
	"usdt-custody/internal/adapter/http/middleware"
	redisStore "usdt-custody/internal/adapter/storage/redis"
	"usdt-custody/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	WalletSvc      ports.WalletService
	TopUpSvc       ports.TopUpService
	SellSvc        ports.SellService
	WithdrawSvc    ports.WithdrawService
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

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

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

	authHandler := NewAuthHandler(deps.AuthSvc)
	walletHandler := NewWalletHandler(deps.WalletSvc)
	topupHandler := NewTopUpHandler(deps.TopUpSvc)
	sellHandler := NewSellHandler(deps.SellSvc)
	withdrawHandler := NewWithdrawHandler(deps.WithdrawSvc)

	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- Authenticated user routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	user := v1.Group("", jwtAuth)
	{
		user.GET("/users/me", rl("read"), authHandler.Me)
		user.GET("/wallet", rl("read"), walletHandler.Get)

		user.POST("/topups", rl("submit"), topupHandler.Submit)
		user.GET("/topups/my", rl("read"), topupHandler.ListMine)

		user.POST("/sells", rl("submit"), sellHandler.Submit)
		user.GET("/sells/my", rl("read"), sellHandler.ListMine)

		user.POST("/withdrawals", rl("submit"), withdrawHandler.Submit)
		user.GET("/withdrawals/my", rl("read"), withdrawHandler.ListMine)
	}

	// --- Admin routes (JWT + is_admin claim, default deny) ---
	admin := v1.Group("/admin", jwtAuth, middleware.AdminRequired())
	{
		admin.GET("/users", rl("admin"), authHandler.ListUsers)

		admin.GET("/topups/pending", rl("admin"), topupHandler.ListPending)
		admin.POST("/topups/:id/resolve", rl("admin"), topupHandler.Resolve)

		admin.GET("/sells/pending", rl("admin"), sellHandler.ListPending)
		admin.POST("/sells/:id/resolve", rl("admin"), sellHandler.Resolve)

		admin.GET("/withdrawals/pending", rl("admin"), withdrawHandler.ListPending)
		admin.POST("/withdrawals/:id/resolve", rl("admin"), withdrawHandler.Resolve)
	}

	return r
}
