// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/folio/internal/utils"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// DB driver names accepted by FOLIO_DB_DRIVER
const (
	DriverModernc = "sqlite"
	DriverCGO     = "sqlite3"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool
	DBDriver string

	LedgerCSV    string   // Ledger file loaded at startup and on reload, optional
	Benchmark    string   // Default analytics benchmark symbol
	Watchlist    []string // Extra symbols whose history is fetched at startup
	RiskFreeRate float64

	PriceCacheTTL    time.Duration
	SeriesCacheTTL   time.Duration
	DiscoveryTimeout time.Duration
	DiscoveryRetries int
	DisableDiscovery bool

	EODHDAPIKey  string
	EODHDBaseURL string

	Schedules ScheduleConfig
	Backup    *BackupConfig
}

// ScheduleConfig holds cron expressions (with seconds) for background jobs
type ScheduleConfig struct {
	Cleanup       string
	PriceRefresh  string
	WALCheckpoint string
	LedgerReload  string
	Backup        string
	Maintenance   string
}

// BackupConfig holds S3-compatible backup settings
type BackupConfig struct {
	Bucket          string
	Endpoint        string // Custom endpoint for S3-compatible storage, empty for AWS
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	RetentionDays   int
}

// Enabled reports whether a backup bucket is configured.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FOLIO_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("FOLIO_PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		DBDriver: getEnv("FOLIO_DB_DRIVER", DriverModernc),

		LedgerCSV:    getEnv("FOLIO_LEDGER_CSV", ""),
		Benchmark:    strings.ToUpper(getEnv("FOLIO_BENCHMARK", "SPY")),
		Watchlist:    utils.ParseSymbols(getEnv("FOLIO_WATCHLIST", "")),
		RiskFreeRate: getEnvAsFloat("FOLIO_RISK_FREE_RATE", 0.02),

		PriceCacheTTL:    getEnvAsDuration("FOLIO_PRICE_CACHE_TTL", 30*time.Minute),
		SeriesCacheTTL:   getEnvAsDuration("FOLIO_SERIES_CACHE_TTL", 10*time.Minute),
		DiscoveryTimeout: getEnvAsDuration("FOLIO_DISCOVERY_TIMEOUT", 30*time.Second),
		DiscoveryRetries: getEnvAsInt("FOLIO_DISCOVERY_RETRIES", 3),
		DisableDiscovery: getEnvAsBool("FOLIO_DISABLE_DISCOVERY", false),

		EODHDAPIKey:  getEnv("EODHD_API_KEY", ""),
		EODHDBaseURL: getEnv("EODHD_BASE_URL", "https://eodhd.com/api"),

		Schedules: loadScheduleConfig(),
		Backup:    loadBackupConfig(),
	}

	if cfg.LedgerCSV != "" && !filepath.IsAbs(cfg.LedgerCSV) {
		cfg.LedgerCSV = filepath.Join(absDataDir, cfg.LedgerCSV)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configuration values are usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DBDriver != DriverModernc && c.DBDriver != DriverCGO {
		return fmt.Errorf("invalid db driver %q, expected %q or %q", c.DBDriver, DriverModernc, DriverCGO)
	}
	if c.RiskFreeRate < 0 || c.RiskFreeRate >= 1 {
		return fmt.Errorf("invalid risk-free rate %v, expected a decimal in [0, 1)", c.RiskFreeRate)
	}
	if c.PriceCacheTTL <= 0 || c.SeriesCacheTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.DiscoveryTimeout <= 0 {
		return fmt.Errorf("discovery timeout must be positive")
	}
	if c.DiscoveryRetries < 0 {
		return fmt.Errorf("discovery retries must not be negative")
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range c.Schedules.byName() {
		if spec == "" {
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", name, spec, err)
		}
	}

	if c.Backup.Enabled() {
		if c.Backup.RetentionDays < 0 {
			return fmt.Errorf("backup retention days must not be negative")
		}
		if (c.Backup.AccessKeyID == "") != (c.Backup.SecretAccessKey == "") {
			return fmt.Errorf("backup access key id and secret must be set together")
		}
	}

	return nil
}

func (s ScheduleConfig) byName() map[string]string {
	return map[string]string{
		"cleanup":        s.Cleanup,
		"price refresh":  s.PriceRefresh,
		"wal checkpoint": s.WALCheckpoint,
		"ledger reload":  s.LedgerReload,
		"backup":         s.Backup,
		"maintenance":    s.Maintenance,
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func loadScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		Cleanup:       getEnv("FOLIO_CLEANUP_SCHEDULE", "0 */15 * * * *"),
		PriceRefresh:  getEnv("FOLIO_REFRESH_SCHEDULE", "0 30 22 * * MON-FRI"), // after the US close
		WALCheckpoint: getEnv("FOLIO_WAL_SCHEDULE", "0 0 * * * *"),
		LedgerReload:  getEnv("FOLIO_LEDGER_RELOAD_SCHEDULE", "0 */5 * * * *"),
		Backup:        getEnv("FOLIO_BACKUP_SCHEDULE", "0 0 3 * * *"),
		Maintenance:   getEnv("FOLIO_MAINTENANCE_SCHEDULE", "0 30 3 * * SUN"),
	}
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Bucket:          getEnv("FOLIO_BACKUP_BUCKET", ""),
		Endpoint:        getEnv("FOLIO_BACKUP_ENDPOINT", ""),
		Region:          getEnv("FOLIO_BACKUP_REGION", "auto"),
		AccessKeyID:     getEnv("FOLIO_BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("FOLIO_BACKUP_SECRET_ACCESS_KEY", ""),
		Prefix:          getEnv("FOLIO_BACKUP_PREFIX", "folio-backup-"),
		RetentionDays:   getEnvAsInt("FOLIO_BACKUP_RETENTION_DAYS", 30),
	}
}
