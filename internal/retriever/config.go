// File path: internal/retriever/config.go
package retriever

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config tunes the hybrid blend and the result window.
type Config struct {
	// SemanticWeight is w in hybrid = w·semantic + (1−w)·lexical.
	SemanticWeight float64 `json:"semantic_weight"`
	// RerankWeight is the share of the final score taken from the reranker
	// when one is configured: final = (1−r)·hybrid + r·rerank.
	RerankWeight float64 `json:"rerank_weight"`
	// SemanticTopK bounds the similarity search candidate set.
	SemanticTopK int `json:"semantic_top_k"`
	// WindowLow/WindowHigh bound the dynamic result window.
	WindowLow  int `json:"window_low"`
	WindowHigh int `json:"window_high"`
}

func DefaultConfig() Config {
	return Config{
		SemanticWeight: 0.7,
		RerankWeight:   0.6,
		SemanticTopK:   20,
		WindowLow:      3,
		WindowHigh:     8,
	}
}

func (c Config) Merge(override Config) Config {
	result := c
	if override.SemanticWeight > 0 {
		result.SemanticWeight = override.SemanticWeight
	}
	if override.RerankWeight > 0 {
		result.RerankWeight = override.RerankWeight
	}
	if override.SemanticTopK > 0 {
		result.SemanticTopK = override.SemanticTopK
	}
	if override.WindowLow > 0 {
		result.WindowLow = override.WindowLow
	}
	if override.WindowHigh > 0 {
		result.WindowHigh = override.WindowHigh
	}
	return result
}

func LoadConfig() (Config, error) {
	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("REDLINE_RETRIEVER_CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("read retriever config: %w", err)
		}
		var fileCfg Config
		if err := json.Unmarshal(data, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse retriever config: %w", err)
		}
		cfg = cfg.Merge(fileCfg)
	}
	envCfg, err := loadConfigEnv()
	if err != nil {
		return Config{}, err
	}
	cfg = cfg.Merge(envCfg)
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.SemanticWeight <= 0 {
		c.SemanticWeight = defaults.SemanticWeight
	}
	if c.RerankWeight <= 0 {
		c.RerankWeight = defaults.RerankWeight
	}
	if c.SemanticTopK <= 0 {
		c.SemanticTopK = defaults.SemanticTopK
	}
	if c.WindowLow <= 0 {
		c.WindowLow = defaults.WindowLow
	}
	if c.WindowHigh <= 0 {
		c.WindowHigh = defaults.WindowHigh
	}
	return c
}

func (c Config) validate() error {
	if c.SemanticWeight > 1 {
		return fmt.Errorf("semantic weight %f out of range", c.SemanticWeight)
	}
	if c.RerankWeight > 1 {
		return fmt.Errorf("rerank weight %f out of range", c.RerankWeight)
	}
	if c.WindowHigh < c.WindowLow {
		return fmt.Errorf("window bounds inverted: [%d, %d]", c.WindowLow, c.WindowHigh)
	}
	return nil
}

func loadConfigEnv() (Config, error) {
	cfg := Config{}
	if err := envFloat("REDLINE_RETRIEVER_SEMANTIC_WEIGHT", &cfg.SemanticWeight); err != nil {
		return Config{}, err
	}
	if err := envFloat("REDLINE_RETRIEVER_RERANK_WEIGHT", &cfg.RerankWeight); err != nil {
		return Config{}, err
	}
	if err := envInt("REDLINE_RETRIEVER_SEMANTIC_TOP_K", &cfg.SemanticTopK); err != nil {
		return Config{}, err
	}
	if err := envInt("REDLINE_RETRIEVER_WINDOW_LOW", &cfg.WindowLow); err != nil {
		return Config{}, err
	}
	if err := envInt("REDLINE_RETRIEVER_WINDOW_HIGH", &cfg.WindowHigh); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envFloat(name string, out *float64) error {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*out = value
	return nil
}

func envInt(name string, out *int) error {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*out = value
	return nil
}
