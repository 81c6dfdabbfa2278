// cmd/server/main.go
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mtandao/campaignhub-backend/internal/config"
	"github.com/mtandao/campaignhub-backend/internal/controller"
	"github.com/mtandao/campaignhub-backend/internal/federation"
	"github.com/mtandao/campaignhub-backend/internal/metrics"
	"github.com/mtandao/campaignhub-backend/internal/middleware"
	"github.com/mtandao/campaignhub-backend/internal/queue"
	"github.com/mtandao/campaignhub-backend/internal/registry"
	"github.com/mtandao/campaignhub-backend/internal/repository"
	"github.com/mtandao/campaignhub-backend/internal/service"
	"github.com/mtandao/campaignhub-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config load failed")
	}

	logger := newLogger(cfg.LogLevel)
	m := metrics.New()

	broker := store.NewBroker(store.BrokerConfig{
		Host:           cfg.DBHost,
		Port:           cfg.DBPort,
		User:           cfg.DBUser,
		Password:       cfg.DBPassword,
		SSLMode:        cfg.DBSSLMode,
		ConnectTimeout: cfg.ConnectTimeout,
		Logger:         logger,
		Metrics:        m,
	})

	// The global store stays open for the process lifetime; per-tenant
	// handles are scoped to single operations.
	globalDB, err := openGlobal(broker, cfg.GlobalDBName)
	if err != nil {
		logger.Fatal().Err(err).Msg("global store unreachable")
	}
	defer globalDB.Close()

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := cache.Ping(context.Background()).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, account cache disabled")
			cache = nil
		}
	}

	accountRepo := &repository.AccountRepository{DB: globalDB}
	reg := &registry.Registry{
		Accounts: accountRepo,
		Cache:    cache,
		CacheTTL: cfg.AccountCacheTTL,
		Metrics:  m,
		Logger:   logger,
	}

	executor := &federation.Executor{
		Workers: cfg.FanoutWorkers,
		Timeout: cfg.TenantQueryTimeout,
		Logger:  logger,
		Metrics: m,
	}

	q := newQueue(cfg, broker, logger)
	newSession := func() service.Session { return broker.NewSession() }

	accountService := &service.AccountService{
		Accounts:   accountRepo,
		Registry:   reg,
		Executor:   executor,
		NewSession: newSession,
		Provision:  broker.Provision,
		Logger:     logger,
	}
	campaignService := &service.CampaignService{
		Registry:   reg,
		Executor:   executor,
		NewSession: newSession,
		Logger:     logger,
	}
	detailService := &service.DetailService{
		Registry:         reg,
		Accounts:         accountRepo,
		Queue:            q,
		NewSession:       newSession,
		CostPerRecipient: cfg.CostPerRecipient,
		Logger:           logger,
	}

	validate := validator.New()
	accountController := &controller.AccountController{AccountService: accountService, Validate: validate}
	campaignController := &controller.CampaignController{CampaignService: campaignService, Validate: validate}
	detailController := &controller.DetailController{DetailService: detailService}

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireOwner)

		// Account routes
		r.Post("/accounts", accountController.CreateAccount)
		r.Get("/accounts", accountController.ListAccounts)
		r.Get("/accounts/{accountId}", accountController.GetAccount)
		r.Delete("/accounts/{accountId}", accountController.DeleteAccount)
		r.Post("/accounts/{accountId}/balance", accountController.AdjustBalance)

		// Campaign routes
		r.Post("/campaigns", campaignController.CreateCampaign)
		r.Get("/campaigns", campaignController.ListCampaigns)
		r.Delete("/campaigns/{campaignId}", campaignController.DeleteCampaign)

		// Campaign detail routes
		r.Post("/campaigns/{campaignId}/details", detailController.GenerateDetails)
		r.Get("/campaigns/{campaignId}/details", detailController.GetCampaignDetail)
		r.Patch("/details/{detailId}/status", detailController.UpdateDetailStatus)
	})

	logger.Info().Str("addr", cfg.ServerAddr).Msg("server running")
	if err := http.ListenAndServe(cfg.ServerAddr, r); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// openGlobal connects to the registry store and applies its schema. A
// failure here is fatal: nothing works without the registry.
func openGlobal(broker *store.Broker, name string) (*sql.DB, error) {
	sess := broker.NewSession()
	h, err := sess.Acquire(context.Background(), name)
	if err != nil {
		return nil, err
	}
	if _, err := h.DB().Exec(store.GlobalSchema); err != nil {
		sess.Release()
		return nil, err
	}
	return h.DB(), nil
}

// newQueue prefers RabbitMQ and falls back to the in-process queue with a
// local delivery subscriber for single-binary setups.
func newQueue(cfg *config.Config, broker *store.Broker, logger zerolog.Logger) queue.Queue {
	amqpQueue, err := queue.NewAMQPQueue(cfg.AMQPURL, logger)
	if err == nil {
		return amqpQueue
	}
	logger.Warn().Err(err).Msg("amqp unreachable, using in-memory delivery queue")

	inmem := queue.NewInMemoryQueue(logger)
	if err := queue.StartDeliverySubscriber(inmem, broker, queue.MockSender, logger); err != nil {
		logger.Warn().Err(err).Msg("failed to start local delivery subscriber")
	}
	return inmem
}
