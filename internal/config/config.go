package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds the application configuration
type Config struct {
	Layout  LayoutConfig  `json:"layout"`
	Metrics MetricsConfig `json:"metrics"`
	Preview PreviewConfig `json:"preview"`
	Vision  VisionConfig  `json:"vision"`
	Server  ServerConfig  `json:"server"`
}

// LayoutConfig holds configuration for the hotspot layout engine
type LayoutConfig struct {
	Mode              string `json:"mode"`
	DebounceMS        int    `json:"debounce_ms"`
	ContainerSelector string `json:"container_selector"`
	OverlaySelector   string `json:"overlay_selector"`
}

// MetricsConfig holds configuration for image metrics resolution
type MetricsConfig struct {
	TimeoutSeconds int    `json:"timeout_seconds"`
	UserAgent      string `json:"user_agent"`
}

// PreviewConfig holds configuration for debug preview images
type PreviewConfig struct {
	Format    string `json:"format"`
	Quality   int    `json:"quality"`
	Lossless  bool   `json:"lossless"`
	OutputDir string `json:"output_dir"`
}

// VisionConfig holds configuration for anchor suggestion
type VisionConfig struct {
	Backend string `json:"backend"`
	URL     string `json:"url"`
	Model   string `json:"model"`
	MaxDim  int    `json:"max_dim"`
}

// ServerConfig holds configuration for the tour server
type ServerConfig struct {
	Addr           string `json:"addr"`
	TourDir        string `json:"tour_dir"`
	TourFile       string `json:"tour_file"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Layout: LayoutConfig{
			Mode:              "position",
			DebounceMS:        16,
			ContainerSelector: "#map",
			OverlaySelector:   ".map-button",
		},
		Metrics: MetricsConfig{
			TimeoutSeconds: 30,
			UserAgent:      "Tour-Viewer/1.0",
		},
		Preview: PreviewConfig{
			Format:    "png",
			Quality:   90,
			Lossless:  false,
			OutputDir: "./output",
		},
		Vision: VisionConfig{
			Backend: "ollama",
			URL:     "http://localhost:11434",
			Model:   "qwen2.5vl:7b",
			MaxDim:  1024,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			TourDir:        ".",
			TourFile:       "data.js",
			TimeoutSeconds: 60,
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Missing fields keep
// their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Layout.Mode != "position" && c.Layout.Mode != "scale" {
		return fmt.Errorf("layout.mode must be position or scale")
	}

	if c.Layout.DebounceMS < 0 {
		return fmt.Errorf("layout.debounce_ms cannot be negative")
	}

	if c.Layout.ContainerSelector == "" || c.Layout.OverlaySelector == "" {
		return fmt.Errorf("layout selectors cannot be empty")
	}

	if c.Metrics.TimeoutSeconds < 1 {
		return fmt.Errorf("metrics.timeout_seconds must be positive")
	}

	switch c.Preview.Format {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("preview.format must be jpg, png or webp")
	}

	if c.Preview.Quality < 1 || c.Preview.Quality > 100 {
		return fmt.Errorf("preview.quality must be between 1 and 100")
	}

	if c.Vision.Backend != "ollama" && c.Vision.Backend != "llamacpp" {
		return fmt.Errorf("vision.backend must be ollama or llamacpp")
	}

	if c.Vision.MaxDim < 0 {
		return fmt.Errorf("vision.max_dim cannot be negative")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}

	if c.Server.TimeoutSeconds < 1 {
		return fmt.Errorf("server.timeout_seconds must be positive")
	}

	return nil
}

// Debounce returns the layout debounce window
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Layout.DebounceMS) * time.Millisecond
}

// MetricsTimeout returns the image metrics request timeout
func (c *Config) MetricsTimeout() time.Duration {
	return time.Duration(c.Metrics.TimeoutSeconds) * time.Second
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "tour-viewer", "config.json")
}
