package handler

import (
	"cutcoin-wallet/internal/adapter/http/middleware"
	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	TokenSvc       ports.TokenService
	RateLimiter    ports.RateLimiter // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(64 << 10))
	r.Use(middleware.RequireJSON())

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if a store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	v1 := r.Group("/api/v1", jwtAuth)

	// --- Student routes ---
	walletHandler := NewWalletHandler(deps.WalletSvc)
	paymentHandler := NewPaymentHandler(deps.WalletSvc)
	student := v1.Group("", middleware.RequireRole(domain.OwnerStudent))
	{
		student.GET("/wallet", rl("wallet_read"), walletHandler.GetWallet)
		student.GET("/wallet/transactions", rl("wallet_read"), walletHandler.ListTransactions)

		student.POST("/transfers", rl("transfers"), walletHandler.InitiateTransfer)
		student.POST("/transfers/confirm", rl("confirm"), walletHandler.ConfirmTransfer)

		student.POST("/withdrawals", rl("merchant_cash"), walletHandler.InitiateWithdrawal)
		student.POST("/withdrawals/confirm", rl("confirm"), walletHandler.ConfirmWithdrawal)
		student.POST("/deposits", rl("merchant_cash"), walletHandler.InitiateDeposit)

		student.GET("/merchant-transactions/pending", rl("wallet_read"), walletHandler.ListPending)
		student.POST("/merchant-transactions/:reference/cancel", rl("merchant_cash"), walletHandler.CancelMerchantTransaction)

		student.POST("/topups", rl("topups"), paymentHandler.InitiateTopup)
		student.POST("/topups/:reference/complete", rl("topups"), paymentHandler.CompleteTopup)
	}

	// --- Merchant routes ---
	merchantHandler := NewMerchantHandler(deps.WalletSvc)
	merchant := v1.Group("/merchant", middleware.RequireRole(domain.OwnerMerchant))
	{
		merchant.GET("/wallet", rl("merchant"), merchantHandler.GetWallet)
		merchant.GET("/transactions", rl("merchant"), merchantHandler.ListTransactions)
		merchant.GET("/transactions/pending", rl("merchant"), merchantHandler.ListPending)
		merchant.POST("/transactions/:reference/confirm", rl("merchant"), merchantHandler.Confirm)
		merchant.POST("/transactions/:reference/reject", rl("merchant"), merchantHandler.Reject)
	}

	return r
}
