package model

import "time"

// Config holds all runtime settings.
// Values come from defaults, ~/.yojana/config.yaml, YOJANA_* env vars and flags.
type Config struct {
	HTTP         HTTPConfig         `mapstructure:"http" yaml:"http"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	Concurrency  ConcurrencyConfig  `mapstructure:"concurrency" yaml:"concurrency"`
	RateLimiting RateLimitConfig    `mapstructure:"rate_limiting" yaml:"rate_limiting"`
	Extraction   ExtractionConfig   `mapstructure:"extraction" yaml:"extraction"`
	Store        StoreConfig        `mapstructure:"store" yaml:"store"`
	Jurisdiction JurisdictionConfig `mapstructure:"jurisdiction" yaml:"jurisdiction"`
	LLM          LLMConfig          `mapstructure:"llm" yaml:"llm"`
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Output       OutputConfig       `mapstructure:"output" yaml:"output"`
}

// HTTPConfig controls page fetching
type HTTPConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent     string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	InsecureTLS   bool          `mapstructure:"insecure_tls" yaml:"insecure_tls"`
	MaxRetries    int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
	RespectRobots bool          `mapstructure:"respect_robots" yaml:"respect_robots"`
	HTTPProxy     string        `mapstructure:"http_proxy" yaml:"http_proxy,omitempty"`
	HTTPSProxy    string        `mapstructure:"https_proxy" yaml:"https_proxy,omitempty"`
	NoProxy       string        `mapstructure:"no_proxy" yaml:"no_proxy,omitempty"`
}

// CacheConfig controls the fetched page cache
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	Directory string        `mapstructure:"directory" yaml:"directory"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// ConcurrencyConfig controls the batch worker pool
type ConcurrencyConfig struct {
	Workers   int `mapstructure:"workers" yaml:"workers"`
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
}

// RateLimitConfig controls per-domain request pacing
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`

	// PerDomain overrides the request rate for a domain and its subdomains
	PerDomain map[string]float64 `mapstructure:"per_domain" yaml:"per_domain,omitempty"`
}

// ExtractionConfig tunes passage location
type ExtractionConfig struct {
	HeadingKeywords []string `mapstructure:"heading_keywords" yaml:"heading_keywords"`
	PassageKeywords []string `mapstructure:"passage_keywords" yaml:"passage_keywords"`
	MaxPassageChars int      `mapstructure:"max_passage_chars" yaml:"max_passage_chars"`
}

// StoreConfig controls where RuleDocuments are persisted
type StoreConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	Validate  bool   `mapstructure:"validate" yaml:"validate"`
}

// JurisdictionConfig maps source hosts to state names
type JurisdictionConfig struct {
	Domains map[string]string `mapstructure:"domains" yaml:"domains,omitempty"`
}

// LLMConfig controls the optional match explainer
type LLMConfig struct {
	Provider string        `mapstructure:"provider" yaml:"provider"` // openai, gemini, ollama
	Model    string        `mapstructure:"model" yaml:"model"`
	APIKey   string        `mapstructure:"api_key" yaml:"-"`
	BaseURL  string        `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// OutputConfig controls logging and printing
type OutputConfig struct {
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
	JSONLog bool `mapstructure:"json_log" yaml:"json_log"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "Yojana/0.1 (+https://github.com/ppiankov/yojana)",
			MaxBodyBytes:  5_000_000,
			MaxRetries:    3,
			RetryBackoff:  2 * time.Second,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Directory: ".yojana/cache",
			TTL:       24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:   4,
			QueueSize: 100,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             2,
		},
		Extraction: ExtractionConfig{
			HeadingKeywords: []string{"eligibility", "eligible", "who can apply", "criteria"},
			PassageKeywords: []string{
				"income", "age", "aged", "years", "resident", "domicile", "category",
				"caste", "below poverty line", "bpl", "widow", "disabled", "farmer",
				"student", "women", "girl", "annual", "family",
			},
			MaxPassageChars: 8000,
		},
		Store: StoreConfig{
			Directory: ".yojana/rules",
			Validate:  true,
		},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Timeout:  60 * time.Second,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}
