package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// startWatch runs Watch against path and returns the channel onChange feeds.
func startWatch(t *testing.T, path string) <-chan *Config {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	reloads := make(chan *Config, 8)
	go func() {
		if err := Watch(ctx, path, func(cfg *Config) { reloads <- cfg }); err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()

	// Give the watcher a moment to install before the first rewrite.
	time.Sleep(50 * time.Millisecond)
	return reloads
}

func TestWatch_ReloadsOnRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, "stores:\n  - label: Plano\n    store_id: 546\n")

	reloads := startWatch(t, path)

	writeConfigFile(t, path,
		"stores:\n"+
			"  - label: Plano\n"+
			"    store_id: 546\n"+
			"  - label: \"Lovers Lane\"\n"+
			"    store_id: 552\n")

	select {
	case cfg := <-reloads:
		if len(cfg.Stores) != 2 {
			t.Errorf("stores after reload: got %d, want 2", len(cfg.Stores))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onChange not called after rewrite")
	}
}

func TestWatch_BrokenRewriteKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, "stores:\n  - label: Plano\n    store_id: 546\n")

	reloads := startWatch(t, path)

	writeConfigFile(t, path, "stores: [\n") // unparseable

	select {
	case cfg := <-reloads:
		t.Fatalf("onChange called for broken config: %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}

	// A later good rewrite still comes through.
	writeConfigFile(t, path, "server:\n  port: 9001\n")
	select {
	case cfg := <-reloads:
		if cfg.Server.Port != 9001 {
			t.Errorf("port after reload: got %d, want 9001", cfg.Server.Port)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onChange not called after valid rewrite")
	}
}
