// File path: internal/cache/config.go
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config selects the suggestion-cache backend and its sizing.
type Config struct {
	// Backend is "memory" or "redis".
	Backend string `json:"backend"`

	Capacity int `json:"capacity"`

	TTL       time.Duration `json:"-"`
	TTLString string        `json:"ttl"`

	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"-"`
	RedisDB       int    `json:"redis_db"`
}

func DefaultConfig() Config {
	return Config{
		Backend:   "memory",
		Capacity:  defaultCapacity,
		TTL:       15 * time.Minute,
		RedisAddr: "localhost:6379",
	}
}

func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.Backend) != "" {
		result.Backend = strings.TrimSpace(override.Backend)
	}
	if override.Capacity > 0 {
		result.Capacity = override.Capacity
	}
	if override.TTL > 0 {
		result.TTL = override.TTL
	}
	if strings.TrimSpace(override.TTLString) != "" {
		result.TTLString = strings.TrimSpace(override.TTLString)
	}
	if strings.TrimSpace(override.RedisAddr) != "" {
		result.RedisAddr = strings.TrimSpace(override.RedisAddr)
	}
	if strings.TrimSpace(override.RedisPassword) != "" {
		result.RedisPassword = override.RedisPassword
	}
	if override.RedisDB > 0 {
		result.RedisDB = override.RedisDB
	}
	return result
}

func LoadConfig() (Config, error) {
	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("REDLINE_CACHE_CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("read cache config: %w", err)
		}
		var fileCfg Config
		if err := json.Unmarshal(data, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse cache config: %w", err)
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
	if strings.TrimSpace(c.Backend) == "" {
		c.Backend = defaults.Backend
	}
	if c.Capacity <= 0 {
		c.Capacity = defaults.Capacity
	}
	if c.TTL <= 0 {
		if c.TTLString != "" {
			if parsed, err := time.ParseDuration(c.TTLString); err == nil {
				c.TTL = parsed
			}
		}
		if c.TTL <= 0 {
			c.TTL = defaults.TTL
		}
	}
	if strings.TrimSpace(c.RedisAddr) == "" {
		c.RedisAddr = defaults.RedisAddr
	}
	return c
}

func loadConfigEnv() (Config, error) {
	cfg := Config{}
	if backend := strings.TrimSpace(os.Getenv("REDLINE_CACHE_BACKEND")); backend != "" {
		cfg.Backend = backend
	}
	if capacity := strings.TrimSpace(os.Getenv("REDLINE_CACHE_CAPACITY")); capacity != "" {
		value, err := strconv.Atoi(capacity)
		if err != nil {
			return Config{}, fmt.Errorf("parse REDLINE_CACHE_CAPACITY: %w", err)
		}
		if value > 0 {
			cfg.Capacity = value
		}
	}
	if ttl := strings.TrimSpace(os.Getenv("REDLINE_CACHE_TTL")); ttl != "" {
		cfg.TTLString = ttl
		if parsed, err := time.ParseDuration(ttl); err == nil {
			cfg.TTL = parsed
		}
	}
	if addr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); addr != "" {
		cfg.RedisAddr = addr
	}
	if password := strings.TrimSpace(os.Getenv("REDIS_PASSWORD")); password != "" {
		cfg.RedisPassword = password
	}
	if db := strings.TrimSpace(os.Getenv("REDIS_DB")); db != "" {
		value, err := strconv.Atoi(db)
		if err != nil {
			return Config{}, fmt.Errorf("parse REDIS_DB: %w", err)
		}
		if value >= 0 {
			cfg.RedisDB = value
		}
	}
	return cfg, nil
}

// NewFromConfig builds the configured backend.
func NewFromConfig(cfg Config) Cache {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "redis":
		return NewRedis(cfg)
	default:
		return NewMemory(cfg.Capacity)
	}
}
