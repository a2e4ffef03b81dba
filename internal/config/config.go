// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the root configuration for the service.
type Config struct {
	App         AppConfig
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Jobs        JobsConfig
	ThreatIntel ThreatIntelConfig
	Ingest      IngestConfig
	Risk        RiskConfig
	Storage     StorageConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string
	Environment string
}

// IsProduction reports whether the service runs in production.
func (c AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig holds Redis settings shared by the job queue and scope locks.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// JobsConfig holds background worker settings.
type JobsConfig struct {
	Concurrency   int
	MaxRetry      int
	IngestTimeout time.Duration
	// ScopeLockTTL bounds how long one reconciliation may hold a scope.
	ScopeLockTTL time.Duration
}

// ThreatIntelConfig holds feed sync settings.
type ThreatIntelConfig struct {
	EPSSURL      string
	KEVURL       string
	EPSSEnabled  bool
	KEVEnabled   bool
	SyncSchedule string
	BatchSize    int
	FetchTimeout time.Duration
	// RequestsPerSecond rate-limits outbound feed fetches.
	RequestsPerSecond float64
}

// IngestConfig holds scan submission settings.
type IngestConfig struct {
	// DedupWindow is how far back a scan submission may attach to an
	// existing scan of the same artifact and scanner. Zero means "since
	// midnight UTC".
	DedupWindow time.Duration
	// PreserveTriaged leaves FALSE_POSITIVE/WONT_FIX findings untouched
	// by auto-close instead of flipping them to FIXED.
	PreserveTriaged  bool
	MaxDocumentBytes int64
}

// RiskConfig holds release risk evaluation settings.
type RiskConfig struct {
	SLADays            int
	PermissiveLicenses []string
	ForbiddenLicenses  []string
	WeakCopyleft       []string
}

// StorageConfig holds raw document storage settings.
type StorageConfig struct {
	// Backend is "s3" or "file".
	Backend    string
	S3Bucket   string
	S3Region   string
	S3Prefix   string
	S3Endpoint string
	LocalDir   string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "wellq-api"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			MaxBodyBytes:    getEnvInt64("SERVER_MAX_BODY_BYTES", 64<<20),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "wellq"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "wellq"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrateOnStart:  getEnvBool("DB_MIGRATE_ON_START", true),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Jobs: JobsConfig{
			Concurrency:   getEnvInt("JOBS_CONCURRENCY", 10),
			MaxRetry:      getEnvInt("JOBS_MAX_RETRY", 3),
			IngestTimeout: getEnvDuration("JOBS_INGEST_TIMEOUT", 10*time.Minute),
			ScopeLockTTL:  getEnvDuration("JOBS_SCOPE_LOCK_TTL", 5*time.Minute),
		},
		ThreatIntel: ThreatIntelConfig{
			EPSSURL:           getEnv("THREATINTEL_EPSS_URL", "https://epss.cyentia.com/epss_scores-current.csv.gz"),
			KEVURL:            getEnv("THREATINTEL_KEV_URL", "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"),
			EPSSEnabled:       getEnvBool("THREATINTEL_EPSS_ENABLED", true),
			KEVEnabled:        getEnvBool("THREATINTEL_KEV_ENABLED", true),
			SyncSchedule:      getEnv("THREATINTEL_SYNC_SCHEDULE", "0 4 * * *"),
			BatchSize:         getEnvInt("THREATINTEL_BATCH_SIZE", 1000),
			FetchTimeout:      getEnvDuration("THREATINTEL_FETCH_TIMEOUT", 5*time.Minute),
			RequestsPerSecond: getEnvFloat("THREATINTEL_REQUESTS_PER_SECOND", 2),
		},
		Ingest: IngestConfig{
			DedupWindow:      getEnvDuration("INGEST_DEDUP_WINDOW", 0),
			PreserveTriaged:  getEnvBool("INGEST_PRESERVE_TRIAGED", false),
			MaxDocumentBytes: getEnvInt64("INGEST_MAX_DOCUMENT_BYTES", 256<<20),
		},
		Risk: RiskConfig{
			SLADays: getEnvInt("RISK_SLA_DAYS", 7),
			PermissiveLicenses: getEnvSlice("RISK_PERMISSIVE_LICENSES", []string{
				"MIT", "Apache", "BSD", "ISC", "Unlicense", "Zlib",
			}),
			ForbiddenLicenses: getEnvSlice("RISK_FORBIDDEN_LICENSES", []string{
				"GPL-3.0", "AGPL", "SSPL",
			}),
			WeakCopyleft: getEnvSlice("RISK_WEAK_COPYLEFT_LICENSES", []string{
				"LGPL", "MPL", "EPL", "CDDL",
			}),
		},
		Storage: StorageConfig{
			Backend:    getEnv("STORAGE_BACKEND", "file"),
			S3Bucket:   getEnv("STORAGE_S3_BUCKET", ""),
			S3Region:   getEnv("STORAGE_S3_REGION", "us-east-1"),
			S3Prefix:   getEnv("STORAGE_S3_PREFIX", "scan-documents"),
			S3Endpoint: getEnv("STORAGE_S3_ENDPOINT", ""),
			LocalDir:   getEnv("STORAGE_LOCAL_DIR", "/var/lib/wellq/documents"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.App.IsProduction() && c.Database.Password == "" {
		return fmt.Errorf("database password is required in production")
	}
	if c.Jobs.Concurrency < 1 {
		return fmt.Errorf("jobs concurrency must be at least 1")
	}
	if c.ThreatIntel.BatchSize < 1 {
		return fmt.Errorf("threat intel batch size must be at least 1")
	}
	switch c.Storage.Backend {
	case "file":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage local dir is required for file backend")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("storage s3 bucket is required for s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				result = append(result, v)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
