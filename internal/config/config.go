package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/segyhp/coop-ledger/internal/domain"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	RabbitMQ  RabbitMQConfig  `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
	RateLimit RateLimitConfig `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `mapstructure:"DATABASE_AUTO_MIGRATE"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"REDIS_ENABLED"`
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
	// PreviewTTL bounds how long a cached year-end preview is kept.
	PreviewTTL time.Duration `mapstructure:"REDIS_PREVIEW_TTL"`
	// ClearLockTTL bounds how long a crashed clear can hold the lock.
	ClearLockTTL time.Duration `mapstructure:"REDIS_CLEAR_LOCK_TTL"`
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"RABBITMQ_URL"`
	Exchange string `mapstructure:"RABBITMQ_EXCHANGE"`
}

type SchedulerConfig struct {
	Timezone        string `mapstructure:"SCHEDULER_TIMEZONE"`
	SnapshotSpec    string `mapstructure:"SCHEDULER_SNAPSHOT_SPEC"`
	YearEndPreview  string `mapstructure:"SCHEDULER_YEAR_END_PREVIEW_SPEC"`
	SnapshotHistory int    `mapstructure:"SCHEDULER_SNAPSHOT_HISTORY"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	ServiceChargeRate string `mapstructure:"SERVICE_CHARGE_RATE"`
	ShareUnitValue    string `mapstructure:"SHARE_UNIT_VALUE"`
	// DistributionBasis has no default: the operator must choose whether
	// year-end earnings are accrued or paid-only service charge.
	DistributionBasis string `mapstructure:"DISTRIBUTION_BASIS"`
	// ConfirmationPhrase gates the year-end clear. It deters accidental
	// clicks; it is not a credential.
	ConfirmationPhrase string `mapstructure:"YEAR_END_CONFIRMATION_PHRASE"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"CLEAR_RATE_LIMIT_ENABLED"`
	RPS     float64 `mapstructure:"CLEAR_RATE_LIMIT_RPS"`
	Burst   int     `mapstructure:"CLEAR_RATE_LIMIT_BURST"`
}

var defaults = map[string]any{
	"SERVER_PORT":                     "8080",
	"SERVER_HOST":                     "0.0.0.0",
	"ENV":                             "development",
	"SERVER_READ_TIMEOUT":             "15s",
	"SERVER_WRITE_TIMEOUT":            "15s",
	"DATABASE_URL":                    "",
	"DATABASE_MAX_OPEN_CONNS":         10,
	"DATABASE_MAX_IDLE_CONNS":         5,
	"DATABASE_CONN_MAX_LIFETIME":      "30m",
	"DATABASE_AUTO_MIGRATE":           true,
	"REDIS_ENABLED":                   true,
	"REDIS_HOST":                      "localhost",
	"REDIS_PORT":                      "6379",
	"REDIS_PASSWORD":                  "",
	"REDIS_DB":                        0,
	"REDIS_PREVIEW_TTL":               "24h",
	"REDIS_CLEAR_LOCK_TTL":            "5m",
	"RABBITMQ_URL":                    "",
	"RABBITMQ_EXCHANGE":               "coop-ledger",
	"SCHEDULER_TIMEZONE":              "Asia/Manila",
	"SCHEDULER_SNAPSHOT_SPEC":         "0 0 0 * * *",
	"SCHEDULER_YEAR_END_PREVIEW_SPEC": "0 0 18 31 12 *",
	"SCHEDULER_SNAPSHOT_HISTORY":      30,
	"LOG_LEVEL":                       "info",
	"LOG_FORMAT":                      "json",
	"SERVICE_CHARGE_RATE":             "0.02",
	"SHARE_UNIT_VALUE":                "500",
	"DISTRIBUTION_BASIS":              "",
	"YEAR_END_CONFIRMATION_PHRASE":    "CLEAR YEAR-END DATA",
	"HEALTH_CHECK_TIMEOUT":            "5s",
	"CLEAR_RATE_LIMIT_ENABLED":        true,
	"CLEAR_RATE_LIMIT_RPS":            0.2,
	"CLEAR_RATE_LIMIT_BURST":          3,
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Populate the process environment from .env when present
	_ = godotenv.Load()

	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Read from environment variables
	v.AutomaticEnv()

	// Try to read from .env file (optional)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	rate, err := decimal.NewFromString(c.Business.ServiceChargeRate)
	if err != nil {
		return fmt.Errorf("SERVICE_CHARGE_RATE must be a valid decimal: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("SERVICE_CHARGE_RATE must be in [0, 1), got %s", rate)
	}
	if !rate.Equal(rate.Truncate(domain.ServiceChargeRatePlaces)) {
		return fmt.Errorf("SERVICE_CHARGE_RATE allows at most %d decimal places, got %s", domain.ServiceChargeRatePlaces, rate)
	}

	unit, err := decimal.NewFromString(c.Business.ShareUnitValue)
	if err != nil {
		return fmt.Errorf("SHARE_UNIT_VALUE must be a valid decimal: %w", err)
	}
	if !unit.IsPositive() {
		return fmt.Errorf("SHARE_UNIT_VALUE must be greater than 0")
	}

	if c.Business.DistributionBasis == "" {
		return fmt.Errorf("DISTRIBUTION_BASIS is required (accrued or paid_only)")
	}
	if _, err := domain.ParseDistributionBasis(c.Business.DistributionBasis); err != nil {
		return fmt.Errorf("DISTRIBUTION_BASIS: %w", err)
	}

	if strings.TrimSpace(c.Business.ConfirmationPhrase) == "" {
		return fmt.Errorf("YEAR_END_CONFIRMATION_PHRASE must not be blank")
	}

	// Validate health check timeout
	if _, err := time.ParseDuration(c.Health.Timeout); err != nil {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be a valid duration: %w", err)
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid location: %w", err)
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for name, spec := range map[string]string{
		"SCHEDULER_SNAPSHOT_SPEC":         c.Scheduler.SnapshotSpec,
		"SCHEDULER_YEAR_END_PREVIEW_SPEC": c.Scheduler.YearEndPreview,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s must be a valid cron spec: %w", name, err)
		}
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("CLEAR_RATE_LIMIT_RPS and CLEAR_RATE_LIMIT_BURST must be positive")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetServiceChargeRate returns the default service charge rate as decimal
func (c *Config) GetServiceChargeRate() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.Business.ServiceChargeRate)
	return rate
}

// GetShareUnitValue returns the peso value of one share
func (c *Config) GetShareUnitValue() decimal.Decimal {
	unit, _ := decimal.NewFromString(c.Business.ShareUnitValue)
	return unit
}

// GetDistributionBasis returns the configured year-end distribution basis
func (c *Config) GetDistributionBasis() domain.DistributionBasis {
	basis, _ := domain.ParseDistributionBasis(c.Business.DistributionBasis)
	return basis
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Health.Timeout)
	return timeout
}

// GetSchedulerLocation returns the scheduler time zone
func (c *Config) GetSchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
