package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Server    ServerConfig
	Tenant    TenantConfig
	Lease     LeaseConfig
	Reconcile ReconcileConfig
	Notify    NotifyConfig
	Log       LogConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
	// EventChannel receives lifecycle events; empty disables publishing.
	EventChannel string
}

// JWTConfig holds access token settings.
type JWTConfig struct {
	Secret    string //nolint:gosec // G117: JWT signing secret config
	AccessTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	// RateLimit is the sustained requests per second allowed per client IP.
	RateLimit float64
	RateBurst int
}

// TenantConfig controls where and how tenant collections are stored.
type TenantConfig struct {
	Schema        string
	CopyBatchSize int
	NativeRename  bool
}

// LeaseConfig bounds how long a lifecycle operation holds its names.
type LeaseConfig struct {
	TTL time.Duration
}

// ReconcileConfig controls the repair sweep.
type ReconcileConfig struct {
	GracePeriod time.Duration
	DropOrphans bool
	OnStartup   bool
	// Interval between background sweeps while serving; zero disables them.
	Interval time.Duration
}

// NotifyConfig holds report delivery settings.
type NotifyConfig struct {
	SlackWebhookURL string
}

// LogConfig selects the log level and output format (json or text).
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	dbPort, err := getEnvInt("TENANTRY_DB_PORT", 5432)
	collect(err)
	dbMaxConns, err := getEnvInt("TENANTRY_DB_MAX_CONNS", 25)
	collect(err)
	redisDB, err := getEnvInt("TENANTRY_REDIS_DB", 0)
	collect(err)
	accessTTL, err := getEnvDuration("TENANTRY_JWT_ACCESS_TTL", time.Hour)
	collect(err)
	readTimeout, err := getEnvDuration("TENANTRY_SERVER_READ_TIMEOUT", 10*time.Second)
	collect(err)
	writeTimeout, err := getEnvDuration("TENANTRY_SERVER_WRITE_TIMEOUT", 5*time.Minute)
	collect(err)
	rateLimit, err := getEnvFloat("TENANTRY_RATE_LIMIT", 10)
	collect(err)
	rateBurst, err := getEnvInt("TENANTRY_RATE_BURST", 20)
	collect(err)
	copyBatch, err := getEnvInt("TENANTRY_COPY_BATCH_SIZE", 500)
	collect(err)
	nativeRename, err := getEnvBool("TENANTRY_NATIVE_RENAME", true)
	collect(err)
	leaseTTL, err := getEnvDuration("TENANTRY_LEASE_TTL", 5*time.Minute)
	collect(err)
	grace, err := getEnvDuration("TENANTRY_RECONCILE_GRACE", 10*time.Minute)
	collect(err)
	dropOrphans, err := getEnvBool("TENANTRY_RECONCILE_DROP_ORPHANS", false)
	collect(err)
	onStartup, err := getEnvBool("TENANTRY_RECONCILE_ON_STARTUP", true)
	collect(err)
	interval, err := getEnvDuration("TENANTRY_RECONCILE_INTERVAL", 0)
	collect(err)

	if len(errs) > 0 {
		return nil, fmt.Errorf("config.Load: %w", errors.Join(errs...))
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("TENANTRY_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("TENANTRY_DB_USER", "tenantry"),
			Password: getEnv("TENANTRY_DB_PASSWORD", ""),
			DBName:   getEnv("TENANTRY_DB_NAME", "tenantry_dev"),
			SSLMode:  getEnv("TENANTRY_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:         getEnv("TENANTRY_REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("TENANTRY_REDIS_PASSWORD", ""),
			DB:           redisDB,
			EventChannel: getEnv("TENANTRY_EVENT_CHANNEL", "orgs:events"),
		},
		JWT: JWTConfig{
			Secret:    getEnv("TENANTRY_JWT_SECRET", ""),
			AccessTTL: accessTTL,
		},
		Server: ServerConfig{
			Addr:         getEnv("TENANTRY_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  getEnvList("TENANTRY_CORS_ORIGINS", []string{"http://localhost:5173"}),
			RateLimit:    rateLimit,
			RateBurst:    rateBurst,
		},
		Tenant: TenantConfig{
			Schema:        getEnv("TENANTRY_TENANT_SCHEMA", "tenant_data"),
			CopyBatchSize: copyBatch,
			NativeRename:  nativeRename,
		},
		Lease: LeaseConfig{TTL: leaseTTL},
		Reconcile: ReconcileConfig{
			GracePeriod: grace,
			DropOrphans: dropOrphans,
			OnStartup:   onStartup,
			Interval:    interval,
		},
		Notify: NotifyConfig{
			SlackWebhookURL: getEnv("TENANTRY_SLACK_WEBHOOK_URL", ""),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("TENANTRY_LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("TENANTRY_LOG_FORMAT", "json")),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return errors.New("TENANTRY_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("TENANTRY_JWT_SECRET must be at least 32 characters")
	}

	if c.Database.SSLMode == "disable" {
		log.Warn().Msg("TENANTRY_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("TENANTRY_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("TENANTRY_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("TENANTRY_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("TENANTRY_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("TENANTRY_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("TENANTRY_RATE_LIMIT must be positive, got %g", c.Server.RateLimit)
	}
	if c.Server.RateBurst < 1 {
		return fmt.Errorf("TENANTRY_RATE_BURST must be >= 1, got %d", c.Server.RateBurst)
	}
	if c.Tenant.Schema == "" {
		return errors.New("TENANTRY_TENANT_SCHEMA must not be empty")
	}
	if c.Tenant.CopyBatchSize < 1 {
		return fmt.Errorf("TENANTRY_COPY_BATCH_SIZE must be >= 1, got %d", c.Tenant.CopyBatchSize)
	}
	if c.Lease.TTL <= 0 {
		return fmt.Errorf("TENANTRY_LEASE_TTL must be positive, got %s", c.Lease.TTL)
	}
	if c.Reconcile.GracePeriod < c.Lease.TTL {
		return fmt.Errorf("TENANTRY_RECONCILE_GRACE (%s) must not be shorter than TENANTRY_LEASE_TTL (%s)",
			c.Reconcile.GracePeriod, c.Lease.TTL)
	}
	if c.Reconcile.Interval < 0 {
		return fmt.Errorf("TENANTRY_RECONCILE_INTERVAL must not be negative, got %s", c.Reconcile.Interval)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("TENANTRY_LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
