package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/config"
	"github.com/SAP-F-2025/course-marketplace/internal/events"
	"github.com/SAP-F-2025/course-marketplace/internal/mailer"
	"github.com/SAP-F-2025/course-marketplace/internal/markdown"
	"github.com/SAP-F-2025/course-marketplace/internal/metrics"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/storage"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

// ServiceManagerConfig holds the settings the services read at construction
type ServiceManagerConfig struct {
	SiteURL  string
	Currency string

	WebhookSecret string
	InvoiceTopic  string

	ImagesBucket     string
	StoragePublicURL string

	ResetTokenSecret string
	ResetTokenTTL    time.Duration
}

// Dependencies are the adapters to external systems
type Dependencies struct {
	Cache     *cache.CacheManager
	Payments  PaymentGateway
	Mailer    mailer.Sender
	Publisher events.EventPublisher
	Storage   storage.ObjectStorage
	Markdown  MarkdownRenderer
	Metrics   *metrics.Metrics
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	deps      Dependencies
	config    ServiceManagerConfig

	// Service instances
	authService       AuthService
	courseService     CourseService
	enrollmentService EnrollmentService
	learningService   LearningService
	progressService   ProgressService
	checkoutService   CheckoutService
	invoiceService    InvoiceService
	profileService    ProfileService
	dashboardService  DashboardService
	adminService      AdminService
	reportService     ReportService
	sitemapService    SitemapService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, deps Dependencies, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		deps:      deps,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager configured from the application config
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, deps Dependencies, cfg *config.Config) ServiceManager {
	return NewServiceManager(db, repo, logger, validator, deps, ConfigFromApp(cfg))
}

// ConfigFromApp maps the application config onto the service settings
func ConfigFromApp(cfg *config.Config) ServiceManagerConfig {
	return ServiceManagerConfig{
		SiteURL:          cfg.SiteURL,
		Currency:         cfg.MercadoPago.Currency,
		WebhookSecret:    cfg.MercadoPago.WebhookSecret,
		InvoiceTopic:     cfg.Kafka.InvoiceTopic,
		ImagesBucket:     cfg.Storage.ImagesBucket,
		StoragePublicURL: cfg.Storage.PublicURL,
		ResetTokenSecret: cfg.ResetTokenSecret,
		ResetTokenTTL:    cfg.ResetTokenTTL,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.validateDependencies(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	sm.initializeServices()

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) validateDependencies() error {
	var errs []error
	if sm.deps.Payments == nil {
		errs = append(errs, errors.New("payment gateway is required"))
	}
	if sm.deps.Publisher == nil {
		errs = append(errs, errors.New("event publisher is required"))
	}
	if sm.deps.Storage == nil {
		errs = append(errs, errors.New("object storage is required"))
	}

	// optional adapters fall back to local implementations
	if sm.deps.Cache == nil {
		sm.deps.Cache = cache.NewCacheManager(nil)
	}
	if sm.deps.Mailer == nil {
		sm.deps.Mailer = mailer.NewConsoleSender(sm.logger)
	}
	if sm.deps.Markdown == nil {
		sm.deps.Markdown = markdown.NewRenderer()
	}
	return errors.Join(errs...)
}

func (sm *serviceManager) initializeServices() {
	d := sm.deps

	sm.authService = NewAuthService(sm.repo, sm.db, sm.logger, sm.validator, d.Cache, d.Mailer, AuthConfig{
		SiteURL:          sm.config.SiteURL,
		ResetTokenSecret: sm.config.ResetTokenSecret,
		ResetTokenTTL:    sm.config.ResetTokenTTL,
	})
	sm.courseService = NewCourseService(sm.repo, sm.db, sm.logger, sm.validator, d.Cache)
	sm.enrollmentService = NewEnrollmentService(sm.repo, sm.db, sm.logger, d.Metrics)
	sm.learningService = NewLearningService(sm.repo, sm.db, sm.logger, d.Markdown)
	sm.progressService = NewProgressService(sm.repo, sm.db, sm.logger, d.Cache)

	sm.checkoutService = NewCheckoutService(sm.repo, sm.db, sm.logger, sm.validator, d.Payments, d.Publisher, sm.enrollmentService, d.Metrics, CheckoutConfig{
		SiteURL:       sm.config.SiteURL,
		Currency:      sm.config.Currency,
		WebhookSecret: sm.config.WebhookSecret,
		InvoiceTopic:  sm.config.InvoiceTopic,
	})
	sm.invoiceService = NewInvoiceService(sm.repo, sm.db, sm.logger, d.Mailer, d.Publisher, d.Metrics, sm.config.InvoiceTopic)

	sm.profileService = NewProfileService(sm.repo, sm.db, sm.logger, sm.progressService)
	sm.dashboardService = NewDashboardService(sm.repo, sm.db, sm.logger, sm.progressService)
	sm.adminService = NewAdminService(sm.repo, sm.db, sm.logger, sm.validator, d.Storage, d.Cache, AdminConfig{
		ImagesBucket: sm.config.ImagesBucket,
		PublicURL:    sm.config.StoragePublicURL,
	})
	sm.reportService = NewReportService(sm.repo, sm.db, sm.logger, sm.progressService)
	sm.sitemapService = NewSitemapService(sm.repo, sm.db, sm.logger, d.Cache, sm.config.SiteURL)

	sm.logger.Info("Services initialized",
		"mailer", fmt.Sprintf("%T", d.Mailer),
		"cache_enabled", d.Cache.Enabled())
}

// ready panics when a getter is used before Initialize
func (sm *serviceManager) ready(name string, svc interface{}) {
	if !sm.initialized {
		panic("service manager not initialized")
	}
	if svc == nil {
		panic(name + " service not initialized")
	}
}

// Service getters
func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("auth", sm.authService)
	return sm.authService
}

func (sm *serviceManager) Course() CourseService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("course", sm.courseService)
	return sm.courseService
}

func (sm *serviceManager) Enrollment() EnrollmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("enrollment", sm.enrollmentService)
	return sm.enrollmentService
}

func (sm *serviceManager) Learning() LearningService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("learning", sm.learningService)
	return sm.learningService
}

func (sm *serviceManager) Progress() ProgressService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("progress", sm.progressService)
	return sm.progressService
}

func (sm *serviceManager) Checkout() CheckoutService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("checkout", sm.checkoutService)
	return sm.checkoutService
}

func (sm *serviceManager) Invoice() InvoiceService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("invoice", sm.invoiceService)
	return sm.invoiceService
}

func (sm *serviceManager) Profile() ProfileService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("profile", sm.profileService)
	return sm.profileService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("dashboard", sm.dashboardService)
	return sm.dashboardService
}

func (sm *serviceManager) Admin() AdminService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("admin", sm.adminService)
	return sm.adminService
}

func (sm *serviceManager) Report() ReportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("report", sm.reportService)
	return sm.reportService
}

func (sm *serviceManager) Sitemap() SitemapService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("sitemap", sm.sitemapService)
	return sm.sitemapService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	// redis is optional, only a configured one can fail
	if sm.deps.Cache.Enabled() {
		if err := sm.deps.Cache.HealthCheck(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	// adapters are owned and closed by the caller
	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}
