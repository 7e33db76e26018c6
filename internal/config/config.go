package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	Database DatabaseConfig
	RedisURL string

	Casdoor     CasdoorConfig
	MercadoPago MercadoPagoConfig
	SendGrid    SendGridConfig
	Kafka       KafkaConfig
	Storage     StorageConfig
	Scheduler   SchedulerConfig

	// SiteURL is the public base URL of the storefront
	SiteURL            string
	CORSAllowedOrigins []string

	ResetTokenSecret string
	ResetTokenTTL    time.Duration
}

type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
	RedirectURL  string
}

type MercadoPagoConfig struct {
	AccessToken   string
	BaseURL       string
	WebhookSecret string
	Currency      string
	Timeout       time.Duration
}

type SendGridConfig struct {
	APIKey    string
	FromName  string
	FromEmail string
}

type KafkaConfig struct {
	Brokers       []string
	InvoiceTopic  string
	ConsumerGroup string
}

type StorageConfig struct {
	Dir          string
	PublicURL    string
	ImagesBucket string
}

// Process names that may own the periodic jobs
const (
	SchedulerOwnerAuto   = "auto"
	SchedulerOwnerServe  = "serve"
	SchedulerOwnerWorker = "worker"
)

type SchedulerConfig struct {
	Enabled bool
	// Owner picks the one process that runs the jobs: auto, serve or worker
	Owner              string
	RankingRefreshSpec string
	InvoiceRetrySpec   string
}

// LoadConfig reads .env (if any) and the process environment.
func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    parseLogLevel(v.GetString("LOG_LEVEL")),
		Database: DatabaseConfig{
			URL:          v.GetString("DATABASE_URL"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
			AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
		},
		RedisURL: v.GetString("REDIS_URL"),
		Casdoor: CasdoorConfig{
			Endpoint:     strings.TrimRight(v.GetString("CASDOOR_ENDPOINT"), "/"),
			ClientID:     v.GetString("CASDOOR_CLIENT_ID"),
			ClientSecret: v.GetString("CASDOOR_CLIENT_SECRET"),
			Cert:         v.GetString("CASDOOR_CERT"),
			Organization: v.GetString("CASDOOR_ORGANIZATION"),
			Application:  v.GetString("CASDOOR_APPLICATION"),
			RedirectURL:  v.GetString("CASDOOR_REDIRECT_URL"),
		},
		MercadoPago: MercadoPagoConfig{
			AccessToken:   v.GetString("MP_ACCESS_TOKEN"),
			BaseURL:       strings.TrimRight(v.GetString("MP_BASE_URL"), "/"),
			WebhookSecret: v.GetString("MP_WEBHOOK_SECRET"),
			Currency:      v.GetString("MP_CURRENCY"),
			Timeout:       v.GetDuration("MP_TIMEOUT"),
		},
		SendGrid: SendGridConfig{
			APIKey:    v.GetString("SENDGRID_API_KEY"),
			FromName:  v.GetString("MAIL_FROM_NAME"),
			FromEmail: v.GetString("MAIL_FROM_EMAIL"),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(v.GetString("KAFKA_BROKERS")),
			InvoiceTopic:  v.GetString("KAFKA_INVOICE_TOPIC"),
			ConsumerGroup: v.GetString("KAFKA_CONSUMER_GROUP"),
		},
		Storage: StorageConfig{
			Dir:          v.GetString("STORAGE_DIR"),
			PublicURL:    strings.TrimRight(v.GetString("STORAGE_PUBLIC_URL"), "/"),
			ImagesBucket: v.GetString("COURSE_IMAGES_BUCKET"),
		},
		Scheduler: SchedulerConfig{
			Enabled:            v.GetBool("SCHEDULER_ENABLED"),
			Owner:              strings.ToLower(strings.TrimSpace(v.GetString("SCHEDULER_OWNER"))),
			RankingRefreshSpec: v.GetString("RANKING_REFRESH_SPEC"),
			InvoiceRetrySpec:   v.GetString("INVOICE_RETRY_SPEC"),
		},
		SiteURL:            strings.TrimRight(v.GetString("SITE_URL"), "/"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		ResetTokenSecret:   v.GetString("RESET_TOKEN_SECRET"),
		ResetTokenTTL:      v.GetDuration("RESET_TOKEN_TTL"),
	}

	if cfg.Storage.PublicURL == "" {
		cfg.Storage.PublicURL = cfg.SiteURL + "/storage"
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{cfg.SiteURL}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("MP_BASE_URL", "https://api.mercadopago.com")
	v.SetDefault("MP_CURRENCY", "ARS")
	v.SetDefault("MP_TIMEOUT", "15s")
	v.SetDefault("MAIL_FROM_NAME", "Cursos")
	v.SetDefault("MAIL_FROM_EMAIL", "facturacion@example.com")
	v.SetDefault("KAFKA_INVOICE_TOPIC", "payment.approved")
	v.SetDefault("KAFKA_CONSUMER_GROUP", "course-marketplace-invoices")
	v.SetDefault("STORAGE_DIR", "./data/storage")
	v.SetDefault("COURSE_IMAGES_BUCKET", "course-images")
	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_OWNER", SchedulerOwnerAuto)
	v.SetDefault("RANKING_REFRESH_SPEC", "@every 10m")
	v.SetDefault("INVOICE_RETRY_SPEC", "@every 5m")
	v.SetDefault("SITE_URL", "http://localhost:3000")
	v.SetDefault("RESET_TOKEN_TTL", "1h")
}

func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Casdoor.Endpoint == "" || c.Casdoor.ClientID == "" {
		errs = append(errs, errors.New("CASDOOR_ENDPOINT and CASDOOR_CLIENT_ID are required"))
	}
	switch c.Scheduler.Owner {
	case SchedulerOwnerAuto, SchedulerOwnerServe, SchedulerOwnerWorker:
	default:
		errs = append(errs, fmt.Errorf("SCHEDULER_OWNER must be auto, serve or worker, got %q", c.Scheduler.Owner))
	}
	if c.ResetTokenSecret == "" {
		// fall back to the client secret so reset tokens are still signed
		c.ResetTokenSecret = c.Casdoor.ClientSecret
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SchedulerRunsIn reports whether the given command starts the periodic jobs.
// In auto mode serve owns them, unless Kafka is configured and a worker process is expected.
func (c *Config) SchedulerRunsIn(command string) bool {
	if !c.Scheduler.Enabled {
		return false
	}
	switch c.Scheduler.Owner {
	case SchedulerOwnerServe, SchedulerOwnerWorker:
		return command == c.Scheduler.Owner
	}
	if len(c.Kafka.Brokers) > 0 {
		return command == SchedulerOwnerWorker
	}
	return command == SchedulerOwnerServe
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
