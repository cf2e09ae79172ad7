package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.Catalog.Paths) == 0 {
		t.Error("expected default catalog paths")
	}
	if cfg.Serve.HTTPAddr != ":8420" {
		t.Errorf("expected default http addr :8420, got %q", cfg.Serve.HTTPAddr)
	}
	if !cfg.Serve.NATS.Embedded {
		t.Error("expected embedded NATS by default")
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("expected default debounce 500ms, got %v", cfg.Watch.Debounce)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Catalog.Paths = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing catalog paths")
	}

	cfg = DefaultConfig()
	cfg.Serve.HTTPAddr = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing http addr")
	}

	cfg = DefaultConfig()
	cfg.Watch.Debounce = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative debounce")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
catalog:
  paths:
    - /etc/propane/bodies/**/*.yaml
serve:
  http_addr: ":9000"
watch:
  debounce: 2s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if len(cfg.Catalog.Paths) != 1 || cfg.Catalog.Paths[0] != "/etc/propane/bodies/**/*.yaml" {
		t.Errorf("unexpected catalog paths: %v", cfg.Catalog.Paths)
	}
	if cfg.Serve.HTTPAddr != ":9000" {
		t.Errorf("expected http addr :9000, got %q", cfg.Serve.HTTPAddr)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("expected debounce 2s, got %v", cfg.Watch.Debounce)
	}
	// Untouched fields keep their defaults.
	if !cfg.Serve.NATS.Embedded {
		t.Error("expected embedded NATS default to survive partial config")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("catalog: [not: valid"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFromFileDisablesCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
serve:
  nats:
    cache: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Serve.NATS.Cache {
		t.Error("explicit cache: false should override the default")
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Merge(&Config{
		Serve: ServeConfig{
			HTTPAddr: ":9999",
			NATS:     NATSConfig{URL: "nats://localhost:4222"},
		},
	})

	if base.Serve.HTTPAddr != ":9999" {
		t.Errorf("expected merged http addr, got %q", base.Serve.HTTPAddr)
	}
	if base.Serve.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected merged NATS URL, got %q", base.Serve.NATS.URL)
	}
	if base.Serve.NATS.Embedded {
		t.Error("external NATS URL should disable the embedded server")
	}
	// Fields absent from the overlay are untouched.
	if len(base.Catalog.Paths) == 0 {
		t.Error("expected catalog paths to survive merge")
	}
	if !base.Serve.NATS.Cache {
		t.Error("merge must not change the cache setting")
	}

	base.Merge(nil)
	if base.Serve.HTTPAddr != ":9999" {
		t.Error("merging nil should be a no-op")
	}
}
