package config

import "github.com/caselight/caselight/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Database path is optional - empty defaults to "caselight.db"

	if c.Extractor.RatePerMinute < 0 {
		return errors.Newf("extractor.rate_per_minute must be >= 0, got %d", c.Extractor.RatePerMinute)
	}
	if c.Extractor.MaxRetries < 0 {
		return errors.Newf("extractor.max_retries must be >= 0, got %d", c.Extractor.MaxRetries)
	}
	if c.Extractor.TimeoutSeconds < 0 {
		return errors.Newf("extractor.timeout_seconds must be >= 0, got %d", c.Extractor.TimeoutSeconds)
	}

	return nil
}
