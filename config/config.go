package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Env      string `env:"ENV" env-default:"development"`
	Port     string `env:"PORT" env-default:"8080"`
	LogDir   string `env:"LOG_DIR" env-default:"logs"`
	TimeZone string `env:"TIME_ZONE" env-default:"Asia/Jakarta"`

	DBHost     string `env:"DB_HOST" env-default:"localhost"`
	DBPort     string `env:"DB_PORT" env-default:"5432"`
	DBUser     string `env:"DB_USER" env-default:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" env-default:"gymease"`
	DBSSLMode  string `env:"DB_SSLMODE" env-default:"disable"`

	JWTSecret      string        `env:"JWT_SECRET" env-required:"true"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" env-default:"24h"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" env-default:"http://localhost:3000"`

	Payment  PaymentConfig
	WhatsApp WhatsAppConfig
	SMTP     SMTPConfig
	Jobs     JobsConfig

	AdminUsername string `env:"ADMIN_USERNAME" env-default:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// PaymentConfig selects and configures the QR payment provider
type PaymentConfig struct {
	Provider            string        `env:"PAYMENT_PROVIDER" env-default:"xendit"`
	Timeout             time.Duration `env:"PAYMENT_TIMEOUT" env-default:"10s"`
	UnpaidTTL           time.Duration `env:"UNPAID_TTL" env-default:"24h"`
	XenditBaseURL       string        `env:"XENDIT_BASE_URL" env-default:"https://api.xendit.co"`
	XenditSecretKey     string        `env:"XENDIT_SECRET_KEY"`
	XenditCallbackToken string        `env:"XENDIT_CALLBACK_TOKEN"`
	RazorpayKey         string        `env:"RAZORPAY_KEY"`
	RazorpaySecret      string        `env:"RAZORPAY_SECRET"`
}

type WhatsAppConfig struct {
	URL     string        `env:"WHATSAPP_API_URL" env-default:"https://payment-notif.maleotech.id/broadcastwhatsapp/personal"`
	Timeout time.Duration `env:"WHATSAPP_TIMEOUT" env-default:"5s"`
}

// SMTPConfig holds email configuration. Email receipts are disabled when Host is empty.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" env-default:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

// JobsConfig drives the background outbox and expiry workers
type JobsConfig struct {
	OutboxInterval    time.Duration `env:"OUTBOX_INTERVAL" env-default:"30s"`
	OutboxMaxAttempts int           `env:"OUTBOX_MAX_ATTEMPTS" env-default:"5"`
	OutboxBatchSize   int           `env:"OUTBOX_BATCH_SIZE" env-default:"50"`
	OutboxLease       time.Duration `env:"OUTBOX_LEASE" env-default:"5m"`
	RetryAttempts     uint          `env:"RETRY_ATTEMPTS" env-default:"3"`
	RetryDelay        time.Duration `env:"RETRY_DELAY" env-default:"200ms"`
	RetryMaxDelay     time.Duration `env:"RETRY_MAX_DELAY" env-default:"2s"`
	ExpiryInterval    time.Duration `env:"EXPIRY_INTERVAL" env-default:"5m"`
}

// LoadConfig loads configuration from the environment, reading .env first when present
func LoadConfig() (*Config, error) {
	// .env is optional in containers
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("error reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints cleanenv cannot express
func (c *Config) Validate() error {
	switch c.Payment.Provider {
	case "xendit", "razorpay":
	default:
		return fmt.Errorf("unknown PAYMENT_PROVIDER %q", c.Payment.Provider)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid TIME_ZONE %q: %w", c.TimeZone, err)
	}
	if c.Jobs.OutboxMaxAttempts < 1 {
		return fmt.Errorf("OUTBOX_MAX_ATTEMPTS must be at least 1")
	}
	if c.Jobs.OutboxInterval < time.Second || c.Jobs.ExpiryInterval < time.Second {
		return fmt.Errorf("OUTBOX_INTERVAL and EXPIRY_INTERVAL must be at least 1s")
	}
	return nil
}

// Location returns the configured business time zone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DSN builds the postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
