// File path: internal/data/orchestrator/config.go
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config controls the construction of the orchestrator.
type Config struct {
	CorpusPath        string
	CatalogPath       string
	FeedbackWindow    time.Duration
	MinFeedbackVolume int
}

// DefaultConfig returns the baseline configuration used when no overrides
// are supplied.
func DefaultConfig() Config {
	return Config{
		CorpusPath:        filepath.Join("data", "corpus"),
		CatalogPath:       filepath.Join("data", "catalog.db"),
		FeedbackWindow:    30 * 24 * time.Hour,
		MinFeedbackVolume: 20,
	}
}

// LoadConfig builds a Config from defaults and environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if value := strings.TrimSpace(os.Getenv("REDLINE_CORPUS_PATH")); value != "" {
		cfg.CorpusPath = value
	}
	if value := strings.TrimSpace(os.Getenv("REDLINE_CATALOG_PATH")); value != "" {
		cfg.CatalogPath = value
	}
	if value := strings.TrimSpace(os.Getenv("REDLINE_FEEDBACK_WINDOW")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse REDLINE_FEEDBACK_WINDOW: %w", err)
		}
		cfg.FeedbackWindow = dur
	}
	if value := strings.TrimSpace(os.Getenv("REDLINE_FEEDBACK_MIN_VOLUME")); value != "" {
		volume, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse REDLINE_FEEDBACK_MIN_VOLUME: %w", err)
		}
		if volume > 0 {
			cfg.MinFeedbackVolume = volume
		}
	}
	return applyDefaults(cfg), nil
}

func applyDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.CorpusPath) == "" {
		cfg.CorpusPath = defaults.CorpusPath
	}
	if strings.TrimSpace(cfg.CatalogPath) == "" {
		cfg.CatalogPath = defaults.CatalogPath
	}
	if cfg.FeedbackWindow <= 0 {
		cfg.FeedbackWindow = defaults.FeedbackWindow
	}
	if cfg.MinFeedbackVolume <= 0 {
		cfg.MinFeedbackVolume = defaults.MinFeedbackVolume
	}
	return cfg
}

func (c Config) validate() error {
	if strings.TrimSpace(c.CorpusPath) == "" {
		return fmt.Errorf("corpus path required")
	}
	if strings.TrimSpace(c.CatalogPath) == "" {
		return fmt.Errorf("catalog path required")
	}
	if c.FeedbackWindow <= 0 {
		return fmt.Errorf("feedback window must be positive")
	}
	return nil
}
