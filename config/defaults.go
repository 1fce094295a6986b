package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "caselight.db")

	// Ingest defaults
	v.SetDefault("ingest.watch_dir", "")
	v.SetDefault("ingest.dataset", "")

	// Extractor (NER sidecar) defaults
	v.SetDefault("extractor.url", "http://localhost:8765/extract")
	v.SetDefault("extractor.rate_per_minute", 60)
	v.SetDefault("extractor.max_retries", 3)
	v.SetDefault("extractor.timeout_seconds", 30)
	v.SetDefault("extractor.allow_loopback", true)

	// Log defaults
	v.SetDefault("log.json", false)
	v.SetDefault("log.verbose", false)
}

// BindSensitiveEnvVars explicitly binds configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	// Database path
	v.BindEnv("database.path", "CASELIGHT_DATABASE_PATH")

	// Extractor endpoint
	v.BindEnv("extractor.url", "CASELIGHT_EXTRACTOR_URL")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "caselight.db" // Fallback default
	}
	return c.Database.Path
}
