// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir         string // Base directory for databases (always absolute)
	Port            int
	LogLevel        string
	DevMode         bool
	QuoteServiceURL string // Quote microservice base URL
	QuoteCacheTTL   int    // Quote cache freshness window in seconds
	MaxTradeShares  int64  // Upper bound on shares per trade
	Backup          *BackupConfig
}

// BackupConfig holds S3-compatible backup storage configuration.
// Backups are disabled when Bucket is empty.
type BackupConfig struct {
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Schedule        string // cron expression for backup uploads
	RetentionDays   int
}

// Enabled reports whether cloud backups are configured
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != "" && b.AccessKeyID != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DASHBOARD_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		Port:            getEnvAsInt("PORT", 8001),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		QuoteServiceURL: getEnv("QUOTE_SERVICE_URL", "http://localhost:9000"),
		QuoteCacheTTL:   getEnvAsInt("QUOTE_CACHE_TTL_SECONDS", 60),
		MaxTradeShares:  int64(getEnvAsInt("MAX_TRADE_SHARES", 1_000_000)),
		Backup:          loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MaxTradeShares <= 0 {
		return fmt.Errorf("max trade shares must be positive, got %d", c.MaxTradeShares)
	}
	return nil
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

// loadBackupConfig loads S3 backup settings; credentials come from env only
func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
		Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
		AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
		Region:          getEnv("BACKUP_S3_REGION", "auto"),
		Schedule:        getEnv("BACKUP_SCHEDULE", "0 30 2 * * *"), // 02:30 daily
		RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
	}
}
