package config

import (
	"fmt"
	"net/url"

	"fedcorpus/pkg/utils"
)

// Validate enforces required values and reasonable limits. Call after
// ApplyDefaults.
func (c *Config) Validate() error {
	s := c.Scraper

	if s.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("%w: scraper.max_concurrent_requests must be > 0", utils.ErrConfigValidation)
	}
	if s.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: scraper.requests_per_second must be > 0", utils.ErrConfigValidation)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("%w: scraper.max_retries must be >= 0", utils.ErrConfigValidation)
	}
	if s.BaseBackoff <= 0 || s.MaxBackoff <= 0 {
		return fmt.Errorf("%w: scraper backoff durations must be > 0", utils.ErrConfigValidation)
	}
	if s.MaxBackoff < s.BaseBackoff {
		return fmt.Errorf("%w: scraper.max_backoff must be >= scraper.base_backoff", utils.ErrConfigValidation)
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("%w: scraper.request_timeout must be > 0", utils.ErrConfigValidation)
	}
	if s.StartYear > s.EndYear {
		return fmt.Errorf("%w: scraper.start_year (%d) must be <= scraper.end_year (%d)",
			utils.ErrConfigValidation, s.StartYear, s.EndYear)
	}

	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: scraper.base_url %q is not an absolute URL", utils.ErrConfigValidation, s.BaseURL)
	}

	if c.Storage.DataDir == "" {
		return fmt.Errorf("%w: storage.data_dir must be set", utils.ErrConfigValidation)
	}
	return nil
}
