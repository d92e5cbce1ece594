package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ScraperConfig governs politeness, retry behavior and the crawl window
// toward the Federal Reserve site.
type ScraperConfig struct {
	// Rate limiting
	MaxConcurrentRequests int     `yaml:"max_concurrent_requests,omitempty"`
	RequestsPerSecond     float64 `yaml:"requests_per_second,omitempty"`

	// Retry settings
	MaxRetries  int           `yaml:"max_retries,omitempty"`
	BaseBackoff time.Duration `yaml:"base_backoff,omitempty"`
	MaxBackoff  time.Duration `yaml:"max_backoff,omitempty"`

	// Request settings
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
	UserAgent      string        `yaml:"user_agent,omitempty"`
	IgnoreRobots   bool          `yaml:"ignore_robots,omitempty"`

	// Year range (EndYear 0 means the current year)
	StartYear int `yaml:"start_year,omitempty"`
	EndYear   int `yaml:"end_year,omitempty"`

	BaseURL string `yaml:"base_url,omitempty"`
}

// StorageConfig sets where JSONL document logs live.
type StorageConfig struct {
	DataDir string `yaml:"data_dir,omitempty"` // Documents are written under <data_dir>/documents
}

// HTTPClientConfig holds settings for the shared HTTP client transport.
type HTTPClientConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns,omitempty"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host,omitempty"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout,omitempty"`
	TLSHandshakeTimeout time.Duration `yaml:"tls_handshake_timeout,omitempty"`
	DialerTimeout       time.Duration `yaml:"dialer_timeout,omitempty"`
	DialerKeepAlive     time.Duration `yaml:"dialer_keep_alive,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	Scraper    ScraperConfig    `yaml:"scraper,omitempty"`
	Storage    StorageConfig    `yaml:"storage,omitempty"`
	HTTPClient HTTPClientConfig `yaml:"http_client,omitempty"`
}

// Load reads a yaml config file, applies defaults and validates.
// An empty path yields the default configuration.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero-valued fields with the defaults the Fed's
// politeness budget tolerates.
func (c *Config) ApplyDefaults() {
	s := &c.Scraper
	if s.MaxConcurrentRequests == 0 {
		s.MaxConcurrentRequests = 3
	}
	if s.RequestsPerSecond == 0 {
		s.RequestsPerSecond = 2.0
	}
	if s.MaxRetries == 0 {
		s.MaxRetries = 5
	}
	if s.BaseBackoff == 0 {
		s.BaseBackoff = 5 * time.Second
	}
	if s.MaxBackoff == 0 {
		s.MaxBackoff = 300 * time.Second
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = 30 * time.Second
	}
	if s.UserAgent == "" {
		s.UserAgent = "fedcorpus/1.0 (research collection; contact: ops@fedcorpus.dev)"
	}
	if s.StartYear == 0 {
		s.StartYear = 2015
	}
	if s.EndYear == 0 {
		s.EndYear = time.Now().Year()
	}
	if s.BaseURL == "" {
		s.BaseURL = "https://www.federalreserve.gov"
	}

	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}

	h := &c.HTTPClient
	if h.MaxIdleConns == 0 {
		h.MaxIdleConns = 20
	}
	if h.MaxIdleConnsPerHost == 0 {
		h.MaxIdleConnsPerHost = 5
	}
	if h.IdleConnTimeout == 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout == 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.DialerTimeout == 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive == 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}
