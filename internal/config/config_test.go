package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	if c.Debounce() != 16*time.Millisecond {
		t.Errorf("Expected 16ms debounce, got %s", c.Debounce())
	}
	if c.MetricsTimeout() != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %s", c.MetricsTimeout())
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"mode", func(c *Config) { c.Layout.Mode = "zoom" }, "layout.mode"},
		{"debounce", func(c *Config) { c.Layout.DebounceMS = -1 }, "debounce"},
		{"selector", func(c *Config) { c.Layout.OverlaySelector = "" }, "selectors"},
		{"timeout", func(c *Config) { c.Metrics.TimeoutSeconds = 0 }, "timeout"},
		{"format", func(c *Config) { c.Preview.Format = "gif" }, "preview.format"},
		{"quality", func(c *Config) { c.Preview.Quality = 101 }, "quality"},
		{"backend", func(c *Config) { c.Vision.Backend = "openai" }, "backend"},
		{"addr", func(c *Config) { c.Server.Addr = "" }, "addr"},
		{"server timeout", func(c *Config) { c.Server.TimeoutSeconds = 0 }, "server.timeout_seconds"},
	}
	for _, tc := range cases {
		c := Default()
		tc.mutate(c)
		err := c.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: expected error mentioning %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	c := Default()
	c.Layout.Mode = "scale"
	c.Vision.Model = "llava"
	if err := c.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Layout.Mode != "scale" || loaded.Vision.Model != "llava" {
		t.Errorf("Unexpected config %+v", loaded)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"layout": {"mode": "scale"}}`), 0644)

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if c.Layout.Mode != "scale" || c.Server.Addr != ":8080" || c.Preview.Quality != 90 {
		t.Errorf("Unexpected config %+v", c)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFromFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{"), 0644)
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestGetConfigPath(t *testing.T) {
	if p := GetConfigPath(); !strings.HasSuffix(p, "config.json") {
		t.Errorf("Unexpected config path %q", p)
	}
}
