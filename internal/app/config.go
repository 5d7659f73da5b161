package app

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// CompanyName appears on rendered reports.
	CompanyName string `envconfig:"COMPANY_NAME" default:"Siam Ledger Co., Ltd."`

	// PGDSN selects the Postgres voucher store. Empty keeps the in-memory
	// store, which is the default for a single-process deployment.
	PGDSN string `envconfig:"PG_DSN" default:""`

	// RedisAddr enables report caching and background jobs. Empty disables
	// both.
	RedisAddr string `envconfig:"REDIS_ADDR" default:""`

	// DefaultVATRate is the percentage applied when an invoice line does
	// not carry its own rate. Thailand's standard rate is 7.
	DefaultVATRate string `envconfig:"DEFAULT_VAT_RATE" default:"7"`

	// CashAccount and ContraAccount are the codes banking movements post
	// against.
	CashAccount   string `envconfig:"CASH_ACCOUNT" default:"1000"`
	ContraAccount string `envconfig:"CONTRA_ACCOUNT" default:"3000"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
