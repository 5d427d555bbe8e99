package config

import (
	"flag"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	defaultServerAddress         = ":8080"
	defaultDatabaseDSN           = ""
	defaultLogLevel              = "debug"
	defaultPaystackBaseURL       = "https://api.paystack.co"
	defaultPaystackVerifyTimeout = 10 * time.Second
	defaultSweepInterval         = time.Minute
	defaultSweepMinAge           = 2 * time.Minute
	defaultAdminUser             = "admin"
)

// Config holds service settings. Flags are parsed first, environment variables override them.
type Config struct {
	ServerAddr  string `envconfig:"RUN_ADDRESS"`
	DatabaseDSN string `envconfig:"DATABASE_URI"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	PaystackSecretKey     string        `envconfig:"PAYSTACK_SECRET_KEY"`
	PaystackBaseURL       string        `envconfig:"PAYSTACK_BASE_URL"`
	PaystackVerifyTimeout time.Duration `envconfig:"PAYSTACK_VERIFY_TIMEOUT"`
	PaystackCallbackURL   string        `envconfig:"PAYSTACK_CALLBACK_URL"`

	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripeSuccessURL    string `envconfig:"STRIPE_SUCCESS_URL"`
	StripeCancelURL     string `envconfig:"STRIPE_CANCEL_URL"`

	AuthTokenKey      string `envconfig:"AUTH_TOKEN_KEY"`
	AdminUser         string `envconfig:"ADMIN_USER"`
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`
	AdminCookieSecure bool   `envconfig:"ADMIN_COOKIE_SECURE"`

	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL"`
	SweepMinAge   time.Duration `envconfig:"SWEEP_MIN_AGE"`
}

// New returns new Config parsed from command line args and environment variables.
func New(args []string) (*Config, error) {
	cfg := Config{}

	fs := flag.NewFlagSet("creditmart", flag.ContinueOnError)

	// initialize flags
	fs.StringVar(&cfg.ServerAddr, "a", defaultServerAddress, "server address")
	fs.StringVar(&cfg.DatabaseDSN, "d", defaultDatabaseDSN, "database DSN")
	fs.StringVar(&cfg.LogLevel, "l", defaultLogLevel, "log level")
	fs.StringVar(&cfg.PaystackBaseURL, "p", defaultPaystackBaseURL, "paystack api base url")
	fs.DurationVar(&cfg.PaystackVerifyTimeout, "verify-timeout", defaultPaystackVerifyTimeout, "paystack verify timeout")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", defaultSweepInterval, "pending order sweep interval")
	fs.DurationVar(&cfg.SweepMinAge, "sweep-min-age", defaultSweepMinAge, "minimal age of swept pending order")
	fs.StringVar(&cfg.AdminUser, "admin", defaultAdminUser, "admin user name")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// if environment variable is set, then using it
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
