package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/ksavin/snipurl/config"
	appmodel "github.com/ksavin/snipurl/internal/app/model"
	apprepository "github.com/ksavin/snipurl/internal/app/repository"
	appserver "github.com/ksavin/snipurl/internal/app/server"
	appservice "github.com/ksavin/snipurl/internal/app/service"
	httputil "github.com/ksavin/snipurl/internal/http/util"
	"github.com/ksavin/snipurl/internal/infra/logger"
	infraNATS "github.com/ksavin/snipurl/internal/infra/nats"
	infraPostgres "github.com/ksavin/snipurl/internal/infra/postgres"
	infraPrometheus "github.com/ksavin/snipurl/internal/infra/prometheus"
	infraRedis "github.com/ksavin/snipurl/internal/infra/redis"
	prom "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("base_url", cfg.App.BaseURL),
		zap.Int("code_length", cfg.App.CodeLength),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, &appmodel.Link{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	metrics := infraPrometheus.NewMetrics(prom.DefaultRegisterer)

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server", zap.String("addr", promServer.Addr))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	scopes := apprepository.NewScopeFactory(gormDB)
	rootStore := scopes.For(nil)

	codes, err := rootStore.Codes(ctx)
	if err != nil {
		log.Fatal("Failed to warm negative-lookup filter", zap.Error(err))
	}
	log.Info("Negative-lookup filter warmed", zap.Int("codes", len(codes)))

	resolver := appservice.NewResolver(rootStore, appservice.ResolverOptions{
		Cache:   appservice.NewRedisLinkCache(redisClient, cfg.App.CacheTTL, log),
		Filter:  appservice.NewCodeFilter(codes),
		Timeout: cfg.App.ResolveTimeout,
		Metrics: metrics,
		Logger:  log,
	})

	refresher := appservice.NewFilterRefresher(log, rootStore, resolver, 0)
	refresher.Start()
	defer refresher.Stop()

	publisher := appservice.NewClickPublisher(js)
	consumer := appservice.NewClickConsumer(js, log, rootStore, metrics)
	if err := consumer.Start(); err != nil {
		log.Fatal("Failed to start click consumer", zap.Error(err))
	}

	gen := appservice.NewCodeGenerator(cfg.App.CodeAlphabet, cfg.App.CodeLength)
	shortenerSvc := appservice.NewShortener(gen, rootStore, resolver, cfg.App.BaseURL, cfg.App.MaxCodeRetries, metrics)

	tokens := httputil.NewTokenSigner([]byte(cfg.App.TokenSecret), cfg.App.TokenTTL)

	server := appserver.New(appserver.Dependencies{
		Logger:    log,
		Postgres:  pool,
		Scopes:    scopes,
		Shortener: shortenerSvc,
		Resolver:  resolver,
		Clicks:    publisher,
		Tokens:    tokens,
		Metrics:   metrics,
		ErrorPage: cfg.App.ErrorPage,
	})

	if err := server.Listen(cfg.App.ListenAddr); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
