// File path: internal/embedding/config.go
package embedding

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config controls backend selection and the content-hash cache.
type Config struct {
	// Backends lists backend names in priority order.
	Backends []string `json:"backends"`

	OpenAIModel string `json:"openai_model"`
	OpenAIKey   string `json:"-"`

	LocalDimension int `json:"local_dimension"`

	CacheCapacity int `json:"cache_capacity"`
}

// DefaultConfig returns the baseline embedding configuration.
func DefaultConfig() Config {
	return Config{
		Backends:       []string{"openai", "local"},
		OpenAIModel:    "text-embedding-3-small",
		LocalDimension: 256,
		CacheCapacity:  4096,
	}
}

// Merge overlays non-zero override fields onto the receiver.
func (c Config) Merge(override Config) Config {
	result := c
	if len(override.Backends) > 0 {
		result.Backends = append([]string(nil), override.Backends...)
	}
	if strings.TrimSpace(override.OpenAIModel) != "" {
		result.OpenAIModel = strings.TrimSpace(override.OpenAIModel)
	}
	if strings.TrimSpace(override.OpenAIKey) != "" {
		result.OpenAIKey = override.OpenAIKey
	}
	if override.LocalDimension > 0 {
		result.LocalDimension = override.LocalDimension
	}
	if override.CacheCapacity > 0 {
		result.CacheCapacity = override.CacheCapacity
	}
	return result
}

// LoadConfig builds a Config from an optional JSON file plus environment
// overrides.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("REDLINE_EMBED_CONFIG_FILE")); path != "" {
		fileCfg, err := loadConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Merge(fileCfg)
	}
	envCfg, err := loadConfigEnv()
	if err != nil {
		return Config{}, err
	}
	cfg = cfg.Merge(envCfg)
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if len(c.Backends) == 0 {
		c.Backends = defaults.Backends
	}
	if strings.TrimSpace(c.OpenAIModel) == "" {
		c.OpenAIModel = defaults.OpenAIModel
	}
	if c.LocalDimension <= 0 {
		c.LocalDimension = defaults.LocalDimension
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = defaults.CacheCapacity
	}
	return c
}

func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read embedding config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse embedding config: %w", err)
	}
	return cfg, nil
}

func loadConfigEnv() (Config, error) {
	cfg := Config{}
	if backends := strings.TrimSpace(os.Getenv("REDLINE_EMBED_BACKENDS")); backends != "" {
		for _, part := range strings.Split(backends, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				cfg.Backends = append(cfg.Backends, trimmed)
			}
		}
	}
	if model := strings.TrimSpace(os.Getenv("OPENAI_EMBED_MODEL")); model != "" {
		cfg.OpenAIModel = model
	}
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		cfg.OpenAIKey = key
	}
	if dim := strings.TrimSpace(os.Getenv("REDLINE_EMBED_LOCAL_DIM")); dim != "" {
		value, err := strconv.Atoi(dim)
		if err != nil {
			return Config{}, fmt.Errorf("parse REDLINE_EMBED_LOCAL_DIM: %w", err)
		}
		if value > 0 {
			cfg.LocalDimension = value
		}
	}
	if capacity := strings.TrimSpace(os.Getenv("REDLINE_EMBED_CACHE_CAPACITY")); capacity != "" {
		value, err := strconv.Atoi(capacity)
		if err != nil {
			return Config{}, fmt.Errorf("parse REDLINE_EMBED_CACHE_CAPACITY: %w", err)
		}
		if value > 0 {
			cfg.CacheCapacity = value
		}
	}
	return cfg, nil
}
