package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vinefi-traceability/config"
	httpHandler "vinefi-traceability/internal/adapter/http/handler"
	"vinefi-traceability/internal/adapter/ledger"
	pgStorage "vinefi-traceability/internal/adapter/storage/postgres"
	redisStorage "vinefi-traceability/internal/adapter/storage/redis"
	"vinefi-traceability/internal/core/ports"
	"vinefi-traceability/internal/service"
	"vinefi-traceability/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("vinefi-traceability", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("network", cfg.Stellar.Network).
		Msg("Starting VineFi Traceability")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	activityRepo := pgStorage.NewActivityRepo(pool)
	tokenRepo := pgStorage.NewWineTokenRepo(pool)
	holdingRepo := pgStorage.NewHoldingRepo(pool)
	tokenTxRepo := pgStorage.NewTokenTransactionRepo(pool)
	lotEventRepo := pgStorage.NewLotEventRepo(pool)
	bottleRepo := pgStorage.NewBottleRepo(pool)
	bottleEventRepo := pgStorage.NewBottleEventRepo(pool)
	qrRepo := pgStorage.NewQRCodeRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize ledger gateway
	horizon := ledger.NewHorizonClient(cfg.Stellar.HorizonURL, 30*time.Second)
	sorobanRPC := ledger.NewRPCClient(cfg.Stellar.SorobanRPCURL, 30*time.Second)
	gateway := ledger.NewGateway(
		horizon,
		sorobanRPC,
		ledger.NetworkPassphrase(cfg.Stellar.Network),
		cfg.Stellar.BaseFee,
		cfg.Stellar.TransactionTimeout,
		cfg.Stellar.ConfirmationTimeout,
		cfg.Stellar.PollInterval,
		log,
	)

	// Initialize core services
	cipherSvc, err := service.NewAESCipherService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cipher service")
	}
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Friendbot funding only works off the public network.
	fundNew := cfg.Stellar.FundNewWallets && !cfg.Stellar.IsPublic()

	// Initialize business services
	walletSvc := service.NewWalletService(
		walletRepo,
		activityRepo,
		cipherSvc,
		gateway,
		fundNew,
		cfg.Stellar.Network,
		log,
	)
	rateLimitSvc := service.NewActivityRateLimitService(activityRepo, log)
	paymentSvc := service.NewPaymentService(
		walletSvc,
		rateLimitSvc,
		gateway,
		cfg.RateLimit.SignPerMinute,
		cfg.RateLimit.SignPerHour,
		log,
	)
	wineTokenSvc := service.NewWineTokenService(
		tokenRepo,
		holdingRepo,
		tokenTxRepo,
		walletRepo,
		walletSvc,
		rateLimitSvc,
		gateway,
		transactor,
		cfg.Stellar.FactoryContractID,
		cfg.RateLimit.SignPerMinute,
		cfg.RateLimit.SignPerHour,
		log,
	)
	statusSvc := service.NewStatusService(
		tokenRepo,
		lotEventRepo,
		bottleRepo,
		bottleEventRepo,
		qrRepo,
		walletSvc,
		rateLimitSvc,
		gateway,
		cfg.RateLimit.StatusPerMinute,
		cfg.RateLimit.StatusPerHour,
		log,
	)

	// Initialize rate limit store
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		PaymentSvc:     paymentSvc,
		WineTokenSvc:   wineTokenSvc,
		StatusSvc:      statusSvc,
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

	// Start server in goroutine
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
