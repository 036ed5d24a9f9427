package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name           string   `envconfig:"APP_NAME" default:"PrimaDev License"`
		Port           int      `envconfig:"PORT" default:"8080"`
		PublicBaseURL  string   `envconfig:"PUBLIC_BASE_URL" default:"https://primadev-license.netlify.app"`
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
		Timezone       string   `envconfig:"APP_TIMEZONE" default:"Asia/Jakarta"`
	}

	Server struct {
		ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
		WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
		IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
		ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"20s"`
	}

	DB struct {
		Host         string        `envconfig:"DB_HOST" default:"localhost"`
		Port         int           `envconfig:"DB_PORT" default:"5432"`
		User         string        `envconfig:"DB_USER" default:"postgres"`
		Password     string        `envconfig:"DB_PASSWORD" default:""`
		Name         string        `envconfig:"DB_NAME" default:"licensehub"`
		SSLMode      string        `envconfig:"DB_SSLMODE" default:"disable"`
		MaxOpenConns int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
		MaxIdleConns int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	}

	Log LogConfig

	Midtrans struct {
		ServerKey    string        `envconfig:"MIDTRANS_SERVER_KEY"`
		ClientKey    string        `envconfig:"MIDTRANS_CLIENT_KEY"`
		IsProduction bool          `envconfig:"MIDTRANS_IS_PRODUCTION" default:"false"`
		CoreBaseURL  string        `envconfig:"MIDTRANS_CORE_BASE_URL"`
		SnapBaseURL  string        `envconfig:"MIDTRANS_SNAP_BASE_URL"`
		Timeout      time.Duration `envconfig:"MIDTRANS_TIMEOUT" default:"30s"`
	}

	EmailJS struct {
		ServiceID  string `envconfig:"EMAILJS_SERVICE_ID"`
		TemplateID string `envconfig:"EMAILJS_TEMPLATE_ID"`
		PublicKey  string `envconfig:"EMAILJS_PUBLIC_KEY"`
		PrivateKey string `envconfig:"EMAILJS_PRIVATE_KEY"`
		Endpoint   string `envconfig:"EMAILJS_ENDPOINT" default:"https://api.emailjs.com/api/v1.0/email/send"`
	}

	Redis struct {
		URL            string        `envconfig:"REDIS_URL"`
		IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
	}

	Admin struct {
		JWTSecret string `envconfig:"ADMIN_JWT_SECRET"`
		Issuer    string `envconfig:"ADMIN_JWT_ISSUER"`
	}

	Catalog struct {
		SeedFile string `envconfig:"CATALOG_SEED_FILE" default:"products.json"`
	}
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

func (c *Config) Validate() error {
	if c.Midtrans.ServerKey == "" {
		return errors.New("MIDTRANS_SERVER_KEY is required")
	}

	if c.DB.Host == "" || c.DB.Name == "" {
		return errors.New("database host and name are required")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// NewLogger builds the JSON process logger for the configured level.
func (c LogConfig) NewLogger() *slog.Logger {
	level := parseLogLevel(c.Level)

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}))
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
