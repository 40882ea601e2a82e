package model

import "time"

// Config holds the complete distortia configuration.
// Sections map 1:1 to keys in ~/.distortia/config.yaml.
type Config struct {
	Classifier   ClassifierConfig   `yaml:"classifier" mapstructure:"classifier"`
	Feedback     FeedbackConfig     `yaml:"feedback" mapstructure:"feedback"`
	Catalog      CatalogConfig      `yaml:"catalog" mapstructure:"catalog"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// ClassifierConfig selects and configures the external classifier
type ClassifierConfig struct {
	Provider string        `yaml:"provider" mapstructure:"provider"` // http, openai, ollama
	BaseURL  string        `yaml:"base_url" mapstructure:"base_url"`
	Model    string        `yaml:"model" mapstructure:"model"`
	APIKey   string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Mode     Mode          `yaml:"mode" mapstructure:"mode"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// FeedbackConfig points at the feedback-collection endpoint.
// RequestsPerSecond overrides rate_limiting for the endpoint's host; zero
// keeps the global rate.
type FeedbackConfig struct {
	URL               string        `yaml:"url" mapstructure:"url"`
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size" mapstructure:"burst_size"`
}

// CatalogConfig optionally replaces the embedded label catalog
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CacheConfig controls classification caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// StoreConfig configures the local feedback collector database
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	Collector       bool          `yaml:"collector" mapstructure:"collector"` // Serve POST /feedback backed by the store
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// ConcurrencyConfig bounds batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig limits outbound requests per host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose    bool `yaml:"verbose" mapstructure:"verbose"`
	Disclaimer bool `yaml:"disclaimer" mapstructure:"disclaimer"`
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // console or json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Classifier: ClassifierConfig{
			Provider: "http",
			BaseURL:  "http://localhost:5000",
			Mode:     ModeBatch,
			Timeout:  30 * time.Second,
		},
		Feedback: FeedbackConfig{
			URL:     "http://localhost:5000/feedback",
			Timeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "~/.distortia/cache",
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Store: StoreConfig{
			Path: "~/.distortia/feedback.db",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
		Output: OutputConfig{
			Disclaimer: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
