// Package config loads the caselight configuration from TOML files and
// environment variables, merged in precedence order.
package config

// Config represents the caselight configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Log       LogConfig       `mapstructure:"log"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// IngestConfig configures ingestion runs
type IngestConfig struct {
	WatchDir string `mapstructure:"watch_dir"` // drop directory for extraction JSON files (watch mode)
	Dataset  string `mapstructure:"dataset"`   // default dataset label when the extraction file has none
}

// ExtractorConfig configures the NER sidecar client
type ExtractorConfig struct {
	URL            string `mapstructure:"url"`             // e.g., "http://localhost:8765/extract"
	RatePerMinute  int    `mapstructure:"rate_per_minute"` // request rate limit (default: 60)
	MaxRetries     int    `mapstructure:"max_retries"`     // retries for transient failures (default: 3)
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // per-request timeout (default: 30)
	AllowLoopback  bool   `mapstructure:"allow_loopback"`  // permit loopback sidecar URLs (default: true)
}

// LogConfig configures logging output
type LogConfig struct {
	JSON    bool `mapstructure:"json"`    // JSON log lines instead of console output
	Verbose bool `mapstructure:"verbose"` // debug-level logging
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
