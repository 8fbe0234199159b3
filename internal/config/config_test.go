package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// loadFromString writes yaml to a temp file and loads it, failing the test
// on error.
func loadFromString(t *testing.T, yaml string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, yaml)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

func loadStringErr(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return Load(path)
}

func TestLoad_Valid(t *testing.T) {
	yaml := `
server:
  host: "0.0.0.0"
  port: 9090
product:
  page_url: "https://example.com/product/thing/123"
upstream:
  endpoint: "https://example.com/graphql/"
  timeout: 5s
  retry:
    attempts: 2
    base_delay: 100ms
stores:
  - label: Plano
    store_id: 546
  - label: "Lovers Lane"
`
	cfg := loadFromString(t, yaml)

	if cfg.Server.Addr() != "0.0.0.0:9090" {
		t.Errorf("addr: got %q", cfg.Server.Addr())
	}
	if cfg.Product.PageURL != "https://example.com/product/thing/123" {
		t.Errorf("page_url: got %q", cfg.Product.PageURL)
	}
	if cfg.Upstream.Timeout != 5*time.Second {
		t.Errorf("timeout: got %v", cfg.Upstream.Timeout)
	}
	if cfg.Upstream.Retry.Attempts != 2 {
		t.Errorf("attempts: got %d", cfg.Upstream.Retry.Attempts)
	}
	if len(cfg.Stores) != 2 {
		t.Fatalf("stores: got %d, want 2", len(cfg.Stores))
	}
	if cfg.Stores[0].StoreID != 546 {
		t.Errorf("stores[0].store_id: got %d", cfg.Stores[0].StoreID)
	}
	// Label-only entry is legal — resolved against the directory later.
	if cfg.Stores[1].StoreID != 0 {
		t.Errorf("stores[1].store_id: got %d, want 0", cfg.Stores[1].StoreID)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}

	if cfg.Server.Host != DefaultHost || cfg.Server.Port != DefaultPort {
		t.Errorf("server: got %s", cfg.Server.Addr())
	}
	if cfg.Upstream.Endpoint != DefaultEndpoint {
		t.Errorf("endpoint: got %q", cfg.Upstream.Endpoint)
	}
	if cfg.Upstream.Timeout != DefaultTimeout {
		t.Errorf("timeout: got %v, want %v", cfg.Upstream.Timeout, DefaultTimeout)
	}
	if cfg.Upstream.Retry.Attempts != DefaultAttempts {
		t.Errorf("attempts: got %d, want %d", cfg.Upstream.Retry.Attempts, DefaultAttempts)
	}
	if cfg.Upstream.Retry.BaseDelay != DefaultBaseDelay {
		t.Errorf("base_delay: got %v, want %v", cfg.Upstream.Retry.BaseDelay, DefaultBaseDelay)
	}
	if len(cfg.Stores) != 2 || cfg.Stores[0].Label != "Plano" || cfg.Stores[1].StoreID != 552 {
		t.Errorf("default stores: got %+v", cfg.Stores)
	}
	if cfg.Push.Interval != DefaultPushInterval {
		t.Errorf("push interval: got %v", cfg.Push.Interval)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvHost, "10.0.0.5")
	t.Setenv(EnvPort, "8111")
	t.Setenv(EnvProductURL, "https://example.com/product/other/999")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr() != "10.0.0.5:8111" {
		t.Errorf("addr: got %q", cfg.Server.Addr())
	}
	if cfg.Product.PageURL != "https://example.com/product/other/999" {
		t.Errorf("page_url: got %q", cfg.Product.PageURL)
	}
}

func TestLoad_BadPortEnvIgnored(t *testing.T) {
	t.Setenv(EnvPort, "not-a-port")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("port: got %d, want default %d", cfg.Server.Port, DefaultPort)
	}
}

func TestLoad_NoStores(t *testing.T) {
	yaml := `
stores: []
`
	if _, err := loadStringErr(t, yaml); err == nil {
		t.Fatal("expected error for empty store list, got nil")
	}
}

func TestLoad_StoreWithoutLabel(t *testing.T) {
	yaml := `
stores:
  - store_id: 546
`
	if _, err := loadStringErr(t, yaml); err == nil {
		t.Fatal("expected error for missing store label, got nil")
	}
}

func TestLoad_BadAttempts(t *testing.T) {
	yaml := `
upstream:
  retry:
    attempts: 0
`
	if _, err := loadStringErr(t, yaml); err == nil {
		t.Fatal("expected error for zero attempts, got nil")
	}
}

func TestLoad_UnknownWebhookType(t *testing.T) {
	yaml := `
notify:
  webhooks:
    - type: carrier-pigeon
      url_env: PIGEON_URL
`
	if _, err := loadStringErr(t, yaml); err == nil {
		t.Fatal("expected error for unknown webhook type, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := loadStringErr(t, "stores: [\n"); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestWebhookURL_FromEnv(t *testing.T) {
	t.Setenv("TEST_HOOK_URL", "https://hooks.example.com/x")

	wh := WebhookConfig{Type: "http", URLEnv: "TEST_HOOK_URL"}
	if got := wh.URL(); got != "https://hooks.example.com/x" {
		t.Errorf("URL: got %q", got)
	}

	empty := WebhookConfig{Type: "http"}
	if got := empty.URL(); got != "" {
		t.Errorf("URL with no env: got %q", got)
	}
}
