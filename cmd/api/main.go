package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"custody-engine/config"
	httpHandler "custody-engine/internal/adapter/http/handler"
	pgStorage "custody-engine/internal/adapter/storage/postgres"
	redisStorage "custody-engine/internal/adapter/storage/redis"
	"custody-engine/internal/core/ports"
	"custody-engine/internal/service"
	"custody-engine/pkg/logger"
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
		Msg("Starting Custody Engine")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	balanceRepo := pgStorage.NewBalanceRepo(pool)
	withdrawalRepo := pgStorage.NewWithdrawalRepo(pool)
	vaultRepo := pgStorage.NewVaultRepo(pool)
	fundlockRepo := pgStorage.NewFundlockRepo(pool)
	whitelistRepo := pgStorage.NewWhitelistRepo(pool)
	roleRepo := pgStorage.NewRoleRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	positionRepo := pgStorage.NewPositionRepo(pool)
	clientRepo := pgStorage.NewClientRepo(pool)
	settlementRepo := pgStorage.NewSettlementRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	settlementCache := redisStorage.NewSettlementCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	authSvc := service.NewAuthService(clientRepo, hashSvc, tokenSvc)
	accessSvc := service.NewAccessControlService(roleRepo, log)
	registrySvc := service.NewTokenRegistryService(whitelistRepo, accessSvc, log)
	ledgerSvc := service.NewLedgerService(ledgerRepo, whitelistRepo, accessSvc, log)
	custodySvc := service.NewCustodyService(
		balanceRepo,
		withdrawalRepo,
		vaultRepo,
		fundlockRepo,
		whitelistRepo,
		accessSvc,
		transactor,
		cfg.Fundlock.WithdrawalLimit,
		log,
	)
	settlementSvc := service.NewSettlementService(
		ledgerRepo,
		balanceRepo,
		withdrawalRepo,
		fundlockRepo,
		positionRepo,
		settlementRepo,
		settlementCache,
		accessSvc,
		transactor,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		CustodySvc:     custodySvc,
		SettlementSvc:  settlementSvc,
		AccessSvc:      accessSvc,
		RegistrySvc:    registrySvc,
		LedgerSvc:      ledgerSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
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

	// Graceful shutdown
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
