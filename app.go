package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/config"
	"github.com/SAP-F-2025/course-marketplace/internal/events"
	"github.com/SAP-F-2025/course-marketplace/internal/mailer"
	"github.com/SAP-F-2025/course-marketplace/internal/markdown"
	"github.com/SAP-F-2025/course-marketplace/internal/mercadopago"
	"github.com/SAP-F-2025/course-marketplace/internal/metrics"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories/casdoor"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories/postgres"
	"github.com/SAP-F-2025/course-marketplace/internal/scheduler"
	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/storage"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
	"github.com/SAP-F-2025/course-marketplace/pkg"
)

// app holds the process-wide dependencies shared by the commands
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager
	repoManager  repositories.RepositoryManager
	pubsub       *events.PubSub
	storage      *storage.LocalStorage
	metrics      *metrics.Metrics
	services     services.ServiceManager
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
}

func casdoorConfig(cfg *config.Config) casdoor.CasdoorConfig {
	return casdoor.CasdoorConfig{
		Endpoint:         cfg.Casdoor.Endpoint,
		ClientID:         cfg.Casdoor.ClientID,
		ClientSecret:     cfg.Casdoor.ClientSecret,
		Certificate:      cfg.Casdoor.Cert,
		OrganizationName: cfg.Casdoor.Organization,
		ApplicationName:  cfg.Casdoor.Application,
		RedirectURL:      cfg.Casdoor.RedirectURL,
	}
}

// newApp connects every backing system and builds the service layer
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return nil, err
	}
	a.db = db

	// Redis is optional, caching is skipped without it
	if cfg.RedisURL != "" {
		a.redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Failed to initialize Redis, continuing without cache", "error", err)
			a.redisClient = nil
		}
	}
	a.cacheManager = cache.NewCacheManager(a.redisClient)

	a.repoManager = postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:            db,
		RedisClient:   a.redisClient,
		CacheManager:  a.cacheManager,
		CasdoorConfig: casdoorConfig(cfg),
	})
	if err := a.repoManager.Initialize(); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(registry)

	a.pubsub, err = events.NewPubSub(cfg.Kafka, logger)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	logger.Info("Event backend ready", "backend", a.pubsub.Backend)

	a.storage, err = storage.NewLocalStorage(cfg.Storage)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	deps := services.Dependencies{
		Cache:     a.cacheManager,
		Payments:  mercadopago.NewClient(cfg.MercadoPago),
		Mailer:    mailer.New(cfg.SendGrid, logger),
		Publisher: events.NewWatermillPublisher(a.pubsub.Publisher, logger),
		Storage:   a.storage,
		Markdown:  markdown.NewRenderer(),
		Metrics:   a.metrics,
	}

	a.services = services.NewDefaultServiceManager(db, a.repoManager.GetRepository(), logger, validator.New(), deps, cfg)
	if err := a.services.Initialize(ctx); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return a, nil
}

// newConsumer subscribes the invoice mailer to approved payments
func (a *app) newConsumer() (*events.Consumer, error) {
	consumer, err := events.NewConsumer(a.pubsub.Subscriber, a.logger, events.ConsumerConfig{
		Registerer: a.metrics.Registry(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event consumer: %w", err)
	}
	consumer.Handle("invoice-mailer", a.cfg.Kafka.InvoiceTopic, a.services.Invoice().HandlePaymentApproved)
	return consumer, nil
}

// newScheduler registers the periodic jobs. It returns nil when command does not own them.
func (a *app) newScheduler(command string) (*scheduler.Scheduler, error) {
	if !a.cfg.SchedulerRunsIn(command) {
		a.logger.Info("Scheduler not started in this process", "command", command,
			"enabled", a.cfg.Scheduler.Enabled, "owner", a.cfg.Scheduler.Owner)
		return nil, nil
	}

	s := scheduler.New(a.logger)
	progress := a.services.Progress()
	invoices := a.services.Invoice()

	if err := s.Add("ranking-refresh", a.cfg.Scheduler.RankingRefreshSpec, progress.RefreshRanking); err != nil {
		return nil, err
	}
	err := s.Add("invoice-retry", a.cfg.Scheduler.InvoiceRetrySpec, func(ctx context.Context) error {
		n, err := invoices.RetryPending(ctx)
		if n > 0 {
			a.logger.Info("Requeued pending invoices", "count", n)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// close releases whatever newApp managed to open
func (a *app) close(ctx context.Context) {
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.logger.Error("Failed to close event backend", "error", err)
		}
	}
	if a.services != nil {
		if err := a.services.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to shutdown services", "error", err)
		}
	}

	// the repository owns the database and redis connections once built
	if a.repoManager != nil && a.repoManager.GetRepository() != nil {
		if err := a.repoManager.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to close repositories", "error", err)
		}
		return
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	if a.redisClient != nil {
		a.redisClient.Close()
	}
}
