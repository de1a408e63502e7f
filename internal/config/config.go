package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds process-wide settings. Grid holds the per-call defaults that
// every new call session starts from.
type Config struct {
	RedisURL       string
	AllowedOrigins []string
	Grid           GridConfig
}

// GridConfig can be overridden by the YAML file named in GRID_CONFIG.
type GridConfig struct {
	MaxTilesPerPage        int     `yaml:"max_tiles_per_page"`
	AspectRatio            float64 `yaml:"aspect_ratio"`
	AutoLayers             bool    `yaml:"auto_layers"`
	SubscriptionDebounceMs int     `yaml:"subscription_debounce_ms"`
	RecentSpeakerCount     int     `yaml:"recent_speaker_count"`
}

// DefaultGridConfig returns the built-in grid defaults.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		MaxTilesPerPage:        DefaultMaxTilesPerPage,
		AspectRatio:            DefaultAspectRatio,
		AutoLayers:             true,
		SubscriptionDebounceMs: int(SubscriptionDebounce / time.Millisecond),
		RecentSpeakerCount:     MaxRecentSpeakerCount,
	}
}

// Debounce returns the subscription debounce as a duration.
func (g GridConfig) Debounce() time.Duration {
	return time.Duration(g.SubscriptionDebounceMs) * time.Millisecond
}

// Load reads .env (if present), the environment and the optional grid file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  .env not loaded: %v", err)
	}

	cfg := &Config{
		RedisURL:       os.Getenv("REDIS_URL"),
		AllowedOrigins: splitOrigins(os.Getenv("ALLOWED_ORIGINS")),
		Grid:           DefaultGridConfig(),
	}

	if v := os.Getenv("AUTO_LAYERS"); v != "" {
		auto, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid AUTO_LAYERS %q: %w", v, err)
		}
		cfg.Grid.AutoLayers = auto
	}

	if path := os.Getenv("GRID_CONFIG"); path != "" {
		grid, err := LoadGridFile(path, cfg.Grid)
		if err != nil {
			return nil, err
		}
		cfg.Grid = grid
	}

	if err := cfg.Grid.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grid configuration: %w", err)
	}

	return cfg, nil
}

// LoadGridFile overlays the YAML file at path on top of base.
func LoadGridFile(path string, base GridConfig) (GridConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read grid config: %w", err)
	}

	grid := base
	if err := yaml.Unmarshal(data, &grid); err != nil {
		return base, fmt.Errorf("failed to parse grid config: %w", err)
	}
	return grid, nil
}

// Validate rejects settings the layout and planner cannot work with.
func (g GridConfig) Validate() error {
	if g.MaxTilesPerPage < 1 {
		return fmt.Errorf("max_tiles_per_page must be >= 1 (got %d)", g.MaxTilesPerPage)
	}
	if g.AspectRatio <= 0 {
		return fmt.Errorf("aspect_ratio must be > 0 (got %v)", g.AspectRatio)
	}
	if g.SubscriptionDebounceMs < 0 {
		return fmt.Errorf("subscription_debounce_ms must be >= 0 (got %d)", g.SubscriptionDebounceMs)
	}
	if g.RecentSpeakerCount < 0 {
		return fmt.Errorf("recent_speaker_count must be >= 0 (got %d)", g.RecentSpeakerCount)
	}
	return nil
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
