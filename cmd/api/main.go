package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cutcoin-wallet/config"
	kafkaEvents "cutcoin-wallet/internal/adapter/events/kafka"
	"cutcoin-wallet/internal/adapter/events/logsink"
	stripeGateway "cutcoin-wallet/internal/adapter/gateway/stripe"
	httpHandler "cutcoin-wallet/internal/adapter/http/handler"
	memStorage "cutcoin-wallet/internal/adapter/storage/memory"
	pgStorage "cutcoin-wallet/internal/adapter/storage/postgres"
	redisStorage "cutcoin-wallet/internal/adapter/storage/redis"
	"cutcoin-wallet/internal/core/ports"
	"cutcoin-wallet/internal/service"
	"cutcoin-wallet/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// storage bundles whichever backend the storage driver selected.
type storage struct {
	repos    service.WalletRepos
	quotes   ports.QuoteStore
	limiter  ports.RateLimiter
	checkers []ports.HealthChecker
	closers  []func()
}

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
		Str("storage", cfg.Storage.Driver).
		Msg("Starting CUTcoin wallet")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret must be set (CUT_JWT_SECRET)")
	}
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer store.close()

	// Event and notification sinks
	var (
		events   ports.EventPublisher
		notifier ports.Notifier
	)
	if cfg.Kafka.Enabled {
		publisher := kafkaEvents.NewPublisher(cfg.Kafka)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close Kafka writers")
			}
		}()
		events, notifier = publisher, publisher
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("Kafka publisher enabled")
	} else {
		sink := logsink.New(log)
		events, notifier = sink, sink
	}

	// Top-up gateway (optional)
	var gateway ports.PaymentGateway
	if cfg.Stripe.Enabled() {
		gateway = stripeGateway.New(cfg.Stripe.SecretKey)
		log.Info().Msg("Stripe top-ups enabled")
	} else {
		log.Warn().Msg("stripe.secret_key not set, top-ups disabled")
	}

	walletSvc := service.NewWalletService(store.repos, service.WalletCollaborators{
		Quotes:   store.quotes,
		Limiter:  store.limiter,
		Notifier: notifier,
		Events:   events,
		Gateway:  gateway,
	}, service.WalletOptions{
		OTPTTL:         cfg.Wallet.OTPTTL,
		OTPMaxAttempts: int64(cfg.Wallet.OTPMaxAttempts),
		OTPMaxLive:     cfg.Wallet.OTPMaxLive,
		QuoteTTL:       cfg.Wallet.QuoteTTL,
		TxRetries:      cfg.Wallet.TxRetries,
		Currency:       cfg.Stripe.Currency,
	}, log)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Background expiry of stale merchant transactions
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweepDone := make(chan struct{})
	expirer := service.NewPendingExpirer(store.repos.MerchantTxs, walletSvc, cfg.Wallet.PendingTTL, cfg.Wallet.SweepInterval, log)
	go func() {
		defer close(sweepDone)
		expirer.Run(sweepCtx)
	}()

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		TokenSvc:       tokenSvc,
		RateLimiter:    store.limiter,
		HealthCheckers: store.checkers,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	stopSweep()
	<-sweepDone

	// Let receipts, events and audit rows of committed operations land.
	walletSvc.Drain()

	log.Info().Msg("Server exited")
}

// openStorage wires PostgreSQL and Redis, or the in-process store when the
// driver is "memory".
func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn().Msg("memory storage selected: state is lost on exit")
		mem := memStorage.NewStore()
		return &storage{
			repos: service.WalletRepos{
				Wallets:     memStorage.NewWalletRepo(mem),
				Merchants:   memStorage.NewMerchantRepo(mem),
				Ledger:      memStorage.NewLedgerRepo(mem),
				MerchantTxs: memStorage.NewMerchantTxRepo(mem),
				Payments:    memStorage.NewPaymentRepo(mem),
				OTPs:        memStorage.NewOTPRepo(mem),
				Audit:       memStorage.NewAuditRepo(mem),
				Settings:    memStorage.NewSettingsRepo(mem),
				Transactor:  mem,
			},
			quotes:   memStorage.NewQuoteStore(),
			limiter:  memStorage.NewRateLimiter(),
			checkers: []ports.HealthChecker{mem},
		}, nil
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	log.Info().Msg("PostgreSQL connected")

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}
	log.Info().Msg("Redis connected")

	return &storage{
		repos: service.WalletRepos{
			Wallets:     pgStorage.NewWalletRepo(pool),
			Merchants:   pgStorage.NewMerchantRepo(pool),
			Ledger:      pgStorage.NewLedgerRepo(pool),
			MerchantTxs: pgStorage.NewMerchantTxRepo(pool),
			Payments:    pgStorage.NewPaymentRepo(pool),
			OTPs:        pgStorage.NewOTPRepo(pool),
			Audit:       pgStorage.NewAuditRepo(pool),
			Settings:    pgStorage.NewSettingsRepo(pool),
			Transactor:  pgStorage.NewTransactor(pool, cfg.Database.LockTimeout),
		},
		quotes:   redisStorage.NewQuoteStore(rdb),
		limiter:  redisStorage.NewRateLimitStore(rdb),
		checkers: []ports.HealthChecker{pgStorage.NewHealthCheck(pool), redisStorage.NewHealthCheck(rdb)},
		closers: []func(){
			func() { _ = rdb.Close() },
			pool.Close,
		},
	}, nil
}

func (s *storage) close() {
	for _, fn := range s.closers {
		fn()
	}
}
