package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Server
	Port       string `env:"PORT" envDefault:"8001"`
	Env        string `env:"ENV" envDefault:"development"`
	AppBaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Database
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"burnout"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"password"`
	DBName     string `env:"DB_NAME" envDefault:"burnout_checker"`
	DBSSLMode  string `env:"DB_SSL_MODE" envDefault:"disable"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Session
	SessionExpiry  time.Duration `env:"SESSION_EXPIRY" envDefault:"24h"`
	ReaperInterval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// OTP
	OTPExpiry            time.Duration `env:"OTP_EXPIRY" envDefault:"10m"`
	OTPMaxResendAttempts int           `env:"OTP_MAX_RESEND_ATTEMPTS" envDefault:"3"`
	OTPMaxAttempts       int           `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`
	OTPBcryptCost        int           `env:"OTP_BCRYPT_COST" envDefault:"10"`

	// Security
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	RateLimitDuration time.Duration `env:"RATE_LIMIT_DURATION" envDefault:"1m"`

	// CORS
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Email
	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"smtp"` // "smtp" | "log"
	SMTPHost      string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort      int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername  string `env:"SMTP_USERNAME"`
	SMTPPassword  string `env:"SMTP_PASSWORD"`
	SMTPFrom      string `env:"SMTP_FROM" envDefault:"noreply@yourdomain.com"`
	SMTPFromName  string `env:"SMTP_FROM_NAME" envDefault:"Burnout Score Checker"`

	// SMS
	SMSProvider       string `env:"SMS_PROVIDER" envDefault:"log"` // "seven" | "clicksend" | "log"
	SMSFrom           string `env:"SMS_FROM" envDefault:"Burnout"`
	SevenAPIKey       string `env:"SEVEN_API_KEY"`
	ClickSendUsername string `env:"CLICKSEND_USERNAME"`
	ClickSendAPIKey   string `env:"CLICKSEND_API_KEY"`

	// Report generation
	ReportGenerator string        `env:"REPORT_GENERATOR" envDefault:"openai"` // "openai" | "template"
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY"`
	OpenAIModel     string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL   string        `env:"OPENAI_BASE_URL"`
	ReportTimeout   time.Duration `env:"REPORT_TIMEOUT" envDefault:"90s"`

	// Payment
	PaymentProvider   string `env:"PAYMENT_PROVIDER" envDefault:"link"` // "link" | "stripe" | "paypal"
	PaymentProductURL string `env:"PAYMENT_PRODUCT_URL" envDefault:"https://parameswaran8.gumroad.com/l/burnout-report"`
	ReportPriceCents  int64  `env:"REPORT_PRICE_CENTS" envDefault:"900"`
	ReportCurrency    string `env:"REPORT_CURRENCY" envDefault:"usd"`

	// Stripe
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	// PayPal
	PayPalClientID string `env:"PAYPAL_CLIENT_ID"`
	PayPalSecret   string `env:"PAYPAL_SECRET"`
	PayPalMode     string `env:"PAYPAL_MODE" envDefault:"sandbox"` // "sandbox" | "live"

	// Report archive (S3 compatible, disabled when the bucket is empty)
	ArchiveBucket          string `env:"ARCHIVE_S3_BUCKET"`
	ArchiveEndpoint        string `env:"ARCHIVE_S3_ENDPOINT"`
	ArchiveRegion          string `env:"ARCHIVE_S3_REGION" envDefault:"us-east-1"`
	ArchiveAccessKeyID     string `env:"ARCHIVE_S3_ACCESS_KEY_ID"`
	ArchiveSecretAccessKey string `env:"ARCHIVE_S3_SECRET_ACCESS_KEY"`
	ArchiveUsePathStyle    bool   `env:"ARCHIVE_S3_USE_PATH_STYLE" envDefault:"true"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the funnel cannot run with.
func (c *Config) Validate() error {
	if c.SessionExpiry <= 0 {
		return fmt.Errorf("SESSION_EXPIRY must be positive")
	}
	if c.OTPExpiry <= 0 {
		return fmt.Errorf("OTP_EXPIRY must be positive")
	}
	if c.OTPMaxAttempts < 1 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be at least 1")
	}
	if c.OTPMaxResendAttempts < 1 {
		return fmt.Errorf("OTP_MAX_RESEND_ATTEMPTS must be at least 1")
	}
	if c.PaymentProvider == "stripe" && c.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required for the stripe payment provider")
	}
	if c.PaymentProvider == "paypal" && (c.PayPalClientID == "" || c.PayPalSecret == "") {
		return fmt.Errorf("PAYPAL_CLIENT_ID and PAYPAL_SECRET are required for the paypal payment provider")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
