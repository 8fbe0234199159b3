package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 8000
	DefaultEndpoint     = "https://services.centralmarket.com/cm-graphql-service/"
	DefaultTimeout      = 20 * time.Second
	DefaultAttempts     = 3
	DefaultBaseDelay    = 800 * time.Millisecond
	DefaultPushInterval = 30 * time.Second

	DefaultProductPageURL = "https://www.centralmarket.com/product/" +
		"central-market-green-chile-chicken-soup-16-oz/608890"
)

// Environment variables that override the corresponding config fields.
const (
	EnvHost       = "SHELFWATCH_HOST"
	EnvPort       = "SHELFWATCH_PORT"
	EnvProductURL = "SHELFWATCH_PRODUCT_URL"
)

// Config is the top-level shelfwatch configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Product  ProductConfig  `yaml:"product"`
	Upstream UpstreamConfig `yaml:"upstream"`

	// Stores is the ordered list of stores to check. Snapshot results keep
	// this order.
	Stores []StoreTarget `yaml:"stores"`

	Push   PushConfig   `yaml:"push"`
	Notify NotifyConfig `yaml:"notify"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Debug adds the full error chain to the JSON error payload returned by
	// /api/status. Off by default — the chain can expose upstream URLs.
	Debug bool `yaml:"debug"`
}

// Addr returns the host:port string for the HTTP listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ProductConfig identifies the product being watched.
type ProductConfig struct {
	// PageURL is the product page on the retailer site. The numeric product
	// id is taken from its last path segment.
	PageURL string `yaml:"page_url"`

	// HTMLSnapshot optionally points at a saved copy of the product page.
	// When set, the product id is extracted from the file instead of the
	// URL — useful when the live URL scheme changes.
	HTMLSnapshot string `yaml:"html_snapshot"`
}

// UpstreamConfig holds the GraphQL endpoint settings.
type UpstreamConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	Retry    RetryConfig   `yaml:"retry"`
}

// RetryConfig bounds the per-store retry loop.
type RetryConfig struct {
	// Attempts is the total number of tries per upstream operation.
	Attempts int `yaml:"attempts"`

	// BaseDelay is the backoff unit: the sleep after attempt n is
	// n × BaseDelay.
	BaseDelay time.Duration `yaml:"base_delay"`
}

// StoreTarget is one store to check, in display order.
type StoreTarget struct {
	// Label is the human-readable store name shown on the status page.
	Label string `yaml:"label"`

	// StoreID is the retailer's numeric store id. Zero means "look it up by
	// label in the store directory" at collection time.
	StoreID int `yaml:"store_id"`
}

// PushConfig controls the WebSocket broadcast loop.
type PushConfig struct {
	// Interval is how often the hub re-collects and broadcasts while at
	// least one client is connected (or a webhook target is configured).
	Interval time.Duration `yaml:"interval"`
}

// NotifyConfig holds webhook delivery targets for in-stock transitions.
type NotifyConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook
	// URL. Keeps secrets out of the config file.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
// Returns empty string if URLEnv is unset or the variable is not found.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads the config file at path, applies defaults, environment
// overrides, and validation. An empty path skips the file and uses the
// compiled-in defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values, including the
// compiled-in store list.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Product: ProductConfig{
			PageURL: DefaultProductPageURL,
		},
		Upstream: UpstreamConfig{
			Endpoint: DefaultEndpoint,
			Timeout:  DefaultTimeout,
			Retry: RetryConfig{
				Attempts:  DefaultAttempts,
				BaseDelay: DefaultBaseDelay,
			},
		},
		Stores: []StoreTarget{
			{Label: "Plano", StoreID: 546},
			{Label: "Lovers Lane", StoreID: 552},
		},
		Push: PushConfig{
			Interval: DefaultPushInterval,
		},
	}
}

// applyEnv overrides config fields from the environment. Invalid values are
// ignored in favor of whatever the file or defaults supplied.
func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(EnvHost); ok && v != "" {
		cfg.Server.Host = v
	}
	if v, ok := os.LookupEnv(EnvPort); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v, ok := os.LookupEnv(EnvProductURL); ok && v != "" {
		cfg.Product.PageURL = v
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Product.PageURL == "" && cfg.Product.HTMLSnapshot == "" {
		return fmt.Errorf("product.page_url or product.html_snapshot is required")
	}
	if cfg.Upstream.Endpoint == "" {
		return fmt.Errorf("upstream.endpoint is required")
	}
	if cfg.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}
	if cfg.Upstream.Retry.Attempts < 1 {
		return fmt.Errorf("upstream.retry.attempts must be at least 1")
	}
	if cfg.Upstream.Retry.BaseDelay < 0 {
		return fmt.Errorf("upstream.retry.base_delay must not be negative")
	}
	if len(cfg.Stores) == 0 {
		return fmt.Errorf("at least one store target is required")
	}
	for i, st := range cfg.Stores {
		if st.Label == "" {
			return fmt.Errorf("stores[%d]: label is required", i)
		}
		if st.StoreID < 0 {
			return fmt.Errorf("stores[%d] %q: store_id must not be negative", i, st.Label)
		}
	}
	if cfg.Push.Interval <= 0 {
		return fmt.Errorf("push.interval must be positive")
	}
	for i, wh := range cfg.Notify.Webhooks {
		switch wh.Type {
		case "slack", "http":
		default:
			return fmt.Errorf("notify.webhooks[%d]: unknown type %q", i, wh.Type)
		}
		if wh.URLEnv == "" {
			return fmt.Errorf("notify.webhooks[%d]: url_env is required", i)
		}
	}
	return nil
}
