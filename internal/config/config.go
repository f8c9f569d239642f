package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/ehr/claims/internal/domain/validation"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBSchema           string        `mapstructure:"DB_SCHEMA"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS       float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit          string        `mapstructure:"BODY_LIMIT"`
	BatchWorkers       int           `mapstructure:"BATCH_WORKERS"`
	IdempotencyTTL     time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	StrictSourceFormat bool          `mapstructure:"STRICT_SOURCE_FORMAT"`

	ComplianceWindowDays int    `mapstructure:"COMPLIANCE_WINDOW_DAYS"`
	StaleServiceDays     int    `mapstructure:"STALE_SERVICE_DAYS"`
	AmountCeiling        string `mapstructure:"AMOUNT_CEILING"`
	AmountTolerance      string `mapstructure:"AMOUNT_TOLERANCE"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_SCHEMA", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "BODY_LIMIT",
	"BATCH_WORKERS", "IDEMPOTENCY_TTL", "REQUEST_TIMEOUT", "STRICT_SOURCE_FORMAT",
	"COMPLIANCE_WINDOW_DAYS", "STALE_SERVICE_DAYS", "AMOUNT_CEILING", "AMOUNT_TOLERANCE",
}

// Load reads .env (if present) and the environment. DATABASE_URL is
// optional; without it submissions are not stored.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("BODY_LIMIT", "2M")
	v.SetDefault("BATCH_WORKERS", 8)
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("STRICT_SOURCE_FORMAT", false)
	v.SetDefault("COMPLIANCE_WINDOW_DAYS", 30)
	v.SetDefault("STALE_SERVICE_DAYS", 365)
	v.SetDefault("AMOUNT_CEILING", validation.DefaultAmountCeiling.String())
	v.SetDefault("AMOUNT_TOLERANCE", validation.DefaultAmountTolerance.String())

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Persistent reports whether a database is configured.
func (c *Config) Persistent() bool {
	return c.DatabaseURL != ""
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.BatchWorkers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be positive, got %d", c.BatchWorkers)
	}
	if c.ComplianceWindowDays <= 0 {
		return fmt.Errorf("COMPLIANCE_WINDOW_DAYS must be positive, got %d", c.ComplianceWindowDays)
	}
	if c.StaleServiceDays <= 0 {
		return fmt.Errorf("STALE_SERVICE_DAYS must be positive, got %d", c.StaleServiceDays)
	}
	ceiling, err := decimal.NewFromString(c.AmountCeiling)
	if err != nil {
		return fmt.Errorf("AMOUNT_CEILING is not a number: %w", err)
	}
	if !ceiling.IsPositive() {
		return fmt.Errorf("AMOUNT_CEILING must be positive, got %s", ceiling)
	}
	tolerance, err := decimal.NewFromString(c.AmountTolerance)
	if err != nil {
		return fmt.Errorf("AMOUNT_TOLERANCE is not a number: %w", err)
	}
	if tolerance.IsNegative() {
		return fmt.Errorf("AMOUNT_TOLERANCE must not be negative, got %s", tolerance)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}

// Rules converts the threshold settings into validation rules. It assumes
// Validate has passed.
func (c *Config) Rules() validation.Rules {
	rules := validation.DefaultRules()
	rules.ComplianceWindow = time.Duration(c.ComplianceWindowDays) * 24 * time.Hour
	rules.StaleServiceAge = time.Duration(c.StaleServiceDays) * 24 * time.Hour
	if d, err := decimal.NewFromString(c.AmountCeiling); err == nil {
		rules.AmountCeiling = d
	}
	if d, err := decimal.NewFromString(c.AmountTolerance); err == nil {
		rules.AmountTolerance = d
	}
	return rules
}
