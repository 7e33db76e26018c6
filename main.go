package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/SAP-F-2025/course-marketplace/internal/config"
	"github.com/SAP-F-2025/course-marketplace/internal/handlers"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
	"github.com/SAP-F-2025/course-marketplace/pkg"
)

const shutdownTimeout = 30 * time.Second

func main() {
	root := &cobra.Command{
		Use:          "course-marketplace",
		Short:        "Online course marketplace API",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API with the invoice consumer, and the scheduled jobs unless a worker owns them",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "worker",
			Short: "Run only the invoice consumer, and the scheduled jobs when Kafka is configured",
			RunE:  runWorker,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema and exit",
			RunE:  runMigrate,
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	slogLogger := newLogger(cfg)
	logger := utils.NewSlogLogger(slogLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, slogLogger)
	if err != nil {
		return err
	}

	consumer, err := a.newConsumer()
	if err != nil {
		a.close(context.Background())
		return err
	}
	jobs, err := a.newScheduler(config.SchedulerOwnerServe)
	if err != nil {
		a.close(context.Background())
		return err
	}

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.MaxMultipartMemory = 8 << 20

	handlers.SetupMiddleware(router, logger, cfg.CORSAllowedOrigins, a.metrics)

	repo := a.repoManager.GetRepository()
	authMiddleware := handlers.NewCasdoorAuthMiddleware(
		handlers.NewCasdoorAuthenticator(casdoorConfig(cfg), repo.User()),
		cfg.SiteURL,
		logger,
	)

	checks := []handlers.HealthCheck{{Name: "database", Check: a.repoManager.HealthCheck}}
	if a.cacheManager.Enabled() {
		checks = append(checks, handlers.HealthCheck{Name: "redis", Check: a.cacheManager.HealthCheck})
	}

	handlerManager := handlers.NewHandlerManager(a.services, logger, authMiddleware, handlers.RouterConfig{
		StorageDir:   a.storage.Dir(),
		Metrics:      a.metrics,
		HealthChecks: checks,
	})
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- consumer.Run(ctx)
	}()
	if jobs != nil {
		jobs.Start()
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if jobs != nil {
		jobs.Stop(shutdownCtx)
	}
	if err := consumer.Close(); err != nil {
		logger.Error("Failed to close event consumer", "error", err)
	}
	if err := <-consumerDone; err != nil {
		logger.Error("Event consumer stopped with error", "error", err)
	}
	a.close(shutdownCtx)

	logger.Info("Server exited")
	return nil
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)

	if len(cfg.Kafka.Brokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set, the worker only sees events it publishes itself")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	consumer, err := a.newConsumer()
	if err != nil {
		a.close(context.Background())
		return err
	}
	jobs, err := a.newScheduler(config.SchedulerOwnerWorker)
	if err != nil {
		a.close(context.Background())
		return err
	}
	if jobs != nil {
		jobs.Start()
	}

	logger.Info("Worker started", "topic", cfg.Kafka.InvoiceTopic)
	runErr := consumer.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if jobs != nil {
		jobs.Stop(shutdownCtx)
	}
	a.close(shutdownCtx)

	logger.Info("Worker exited")
	return runErr
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)

	// InitDatabase would migrate on its own when DB_AUTO_MIGRATE is set
	cfg.Database.AutoMigrate = false
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	if err := pkg.Migrate(db); err != nil {
		return err
	}
	logger.Info("Database schema is up to date")
	return nil
}
