package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"usdt-custody/config"
	httpHandler "usdt-custody/internal/adapter/http/handler"
	pgStorage "usdt-custody/internal/adapter/storage/postgres"
	redisStorage "usdt-custody/internal/adapter/storage/redis"
	"usdt-custody/internal/core/ports"
	"usdt-custody/internal/service"
	"usdt-custody/pkg/logger"

	"github.com/shopspring/decimal"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting USDT custody API")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// Initialize repositories
	userRepo := pgStorage.NewUserRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	topupRepo := pgStorage.NewTopUpRepo(pool)
	sellRepo := pgStorage.NewSellRepo(pool)
	withdrawalRepo := pgStorage.NewWithdrawalRepo(pool)
	outboxRepo := pgStorage.NewOutboxRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize core services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	maxUnitPrice, err := decimal.NewFromString(cfg.Trade.MaxUnitPrice)
	if err != nil {
		log.Fatal().Err(err).Str("value", cfg.Trade.MaxUnitPrice).Msg("Invalid max unit price")
	}

	// Initialize business services
	authSvc := service.NewAuthService(userRepo, walletRepo, hashSvc, tokenSvc, transactor, log)
	walletSvc := service.NewWalletService(walletRepo)
	topupSvc := service.NewTopUpService(topupRepo, walletRepo, outboxRepo, transactor, log)
	sellSvc := service.NewSellService(sellRepo, walletRepo, outboxRepo, authSvc, encSvc, transactor, maxUnitPrice, log)
	withdrawSvc := service.NewWithdrawService(withdrawalRepo, walletRepo, outboxRepo, authSvc, transactor, log)

	// Initialize rate limit store and health checkers
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		WalletSvc:      walletSvc,
		TopUpSvc:       topupSvc,
		SellSvc:        sellSvc,
		WithdrawSvc:    withdrawSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
