package config

import (
	"fmt"
	"os"
	"strconv"
)

// AppConfig represents the complete application configuration
type AppConfig struct {
	Storage StorageConfig `json:"storage" yaml:"storage" toml:"storage"`
	Purge   PurgeConfig   `json:"purge" yaml:"purge" toml:"purge"`
	Logger  LoggerConfig  `json:"logger" yaml:"logger" toml:"logger"`
	DryRun  bool          `json:"dry_run" yaml:"dry_run" toml:"dry_run"` // If true, no versions are deleted, only reported
}

// Validate validates the entire configuration
func (ac *AppConfig) Validate() error {
	if err := ac.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config error: %w", err)
	}
	if err := ac.Purge.Validate(); err != nil {
		return fmt.Errorf("purge config error: %w", err)
	}
	if err := ac.Logger.Validate(); err != nil {
		return fmt.Errorf("logger config error: %w", err)
	}
	return nil
}

// ApplyDefaults applies default values to all components
func (ac *AppConfig) ApplyDefaults() {
	ac.Storage.Common.ApplyDefaults()
	ac.Purge.ApplyDefaults()
	ac.Logger.ApplyDefaults()
}

// LoadFromEnv loads configuration from environment variables
// This is a helper to populate config from env vars
func LoadFromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}

	// General configuration
	cfg.DryRun = getEnvBool("DRY_RUN", false)

	// Logger configuration
	cfg.Logger.Level = LogLevel(getEnv("LOG_LEVEL", string(LogLevelInfo)))

	// Storage configuration
	cfg.Storage.StorageType = StorageType(getEnv("STORAGE_TYPE", string(StorageTypeB2)))
	cfg.Storage.Common.TimeoutSeconds = getEnvInt("STORAGE_TIMEOUT_SECONDS", 30)
	cfg.Storage.Common.MaxRPS = getEnvInt("STORAGE_MAX_RPS", 0)

	cfg.Storage.B2 = &B2Config{
		Region:           getEnv("B2_REGION", ""),
		Bucket:           getEnv("B2_BUCKET", ""),
		ApplicationKeyID: getEnv("B2_APPLICATION_KEY_ID", ""),
		ApplicationKey:   getEnv("B2_APPLICATION_KEY", ""),
		Endpoint:         getEnv("B2_ENDPOINT", ""),
	}

	// Purge configuration
	cfg.Purge.Prefix = getEnv("PURGE_PREFIX", "")
	cfg.Purge.RetentionDays = getEnvInt("PURGE_RETENTION_DAYS", 0)
	cfg.Purge.WorkerCount = getEnvInt("PURGE_WORKER_COUNT", 0)
	cfg.Purge.BatchSize = getEnvInt("PURGE_BATCH_SIZE", 0)

	// Apply defaults
	cfg.ApplyDefaults()

	return cfg, nil
}

// Helper functions for environment variables
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
