// File path: internal/suggest/config.go
package suggest

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config tunes the suggestion pipeline.
type Config struct {
	// RuleTableFile points at the JSON rule table for the deterministic
	// tier. Empty means builtin rules only.
	RuleTableFile string `json:"rule_table_file"`
	// RetrievalTimeout bounds the retrieval-augmented tier end to end.
	RetrievalTimeout time.Duration `json:"-"`
	// RetrievalTimeoutString is the JSON-facing form of RetrievalTimeout.
	RetrievalTimeoutString string `json:"retrieval_timeout"`
	// RetrievalLimit is how many passages the retrieval tier requests.
	RetrievalLimit int `json:"retrieval_limit"`
	// ConfidenceFloor is the minimum adjusted score a tier result needs
	// before the pipeline stops escalating.
	ConfidenceFloor float64 `json:"confidence_floor"`
	// CacheTTL bounds how long resolved suggestions stay cached.
	CacheTTL       time.Duration `json:"-"`
	CacheTTLString string        `json:"cache_ttl"`
	// FeedbackWindow scopes effectiveness lookups for confidence
	// adjustment.
	FeedbackWindow       time.Duration `json:"-"`
	FeedbackWindowString string        `json:"feedback_window"`
}

// Merge overlays non-zero fields from other.
func (c Config) Merge(other Config) Config {
	if other.RuleTableFile != "" {
		c.RuleTableFile = other.RuleTableFile
	}
	if other.RetrievalTimeout > 0 {
		c.RetrievalTimeout = other.RetrievalTimeout
	}
	if other.RetrievalLimit > 0 {
		c.RetrievalLimit = other.RetrievalLimit
	}
	if other.ConfidenceFloor > 0 {
		c.ConfidenceFloor = other.ConfidenceFloor
	}
	if other.CacheTTL > 0 {
		c.CacheTTL = other.CacheTTL
	}
	if other.FeedbackWindow > 0 {
		c.FeedbackWindow = other.FeedbackWindow
	}
	return c
}

// LoadConfig reads REDLINE_SUGGEST_CONFIG_FILE (when set) and then applies
// environment overrides.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if path := os.Getenv("REDLINE_SUGGEST_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read suggest config: %w", err)
		}
		var fileCfg Config
		if err := json.Unmarshal(data, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse suggest config: %w", err)
		}
		if fileCfg.RetrievalTimeoutString != "" {
			d, err := time.ParseDuration(fileCfg.RetrievalTimeoutString)
			if err != nil {
				return Config{}, fmt.Errorf("parse retrieval_timeout: %w", err)
			}
			fileCfg.RetrievalTimeout = d
		}
		if fileCfg.CacheTTLString != "" {
			d, err := time.ParseDuration(fileCfg.CacheTTLString)
			if err != nil {
				return Config{}, fmt.Errorf("parse cache_ttl: %w", err)
			}
			fileCfg.CacheTTL = d
		}
		if fileCfg.FeedbackWindowString != "" {
			d, err := time.ParseDuration(fileCfg.FeedbackWindowString)
			if err != nil {
				return Config{}, fmt.Errorf("parse feedback_window: %w", err)
			}
			fileCfg.FeedbackWindow = d
		}
		cfg = cfg.Merge(fileCfg)
	}
	if v := os.Getenv("REDLINE_SUGGEST_RULE_TABLE"); v != "" {
		cfg.RuleTableFile = v
	}
	if v := os.Getenv("REDLINE_SUGGEST_RETRIEVAL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse REDLINE_SUGGEST_RETRIEVAL_TIMEOUT: %w", err)
		}
		cfg.RetrievalTimeout = d
	}
	if v := os.Getenv("REDLINE_SUGGEST_RETRIEVAL_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse REDLINE_SUGGEST_RETRIEVAL_LIMIT: %w", err)
		}
		cfg.RetrievalLimit = n
	}
	if v := os.Getenv("REDLINE_SUGGEST_CONFIDENCE_FLOOR"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse REDLINE_SUGGEST_CONFIDENCE_FLOOR: %w", err)
		}
		cfg.ConfidenceFloor = f
	}
	if v := os.Getenv("REDLINE_SUGGEST_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse REDLINE_SUGGEST_CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = d
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) withDefaults() Config {
	if c.RetrievalTimeout <= 0 {
		c.RetrievalTimeout = 8 * time.Second
	}
	if c.RetrievalLimit <= 0 {
		c.RetrievalLimit = 5
	}
	if c.ConfidenceFloor <= 0 {
		c.ConfidenceFloor = 0.5
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 15 * time.Minute
	}
	if c.FeedbackWindow <= 0 {
		c.FeedbackWindow = 30 * 24 * time.Hour
	}
	return c
}

func (c Config) validate() error {
	if c.ConfidenceFloor > 1 {
		return fmt.Errorf("confidence floor %.2f out of range", c.ConfidenceFloor)
	}
	return nil
}
