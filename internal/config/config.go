// Package config loads the proxy configuration from the environment.
package config

import (
	"fmt"

	"github.com/Sternrassler/legiscan-client/pkg/expiration"
	"github.com/ilyakaznacheev/cleanenv"
)

// Cache backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type LegiScan struct {
	APIKey       string `env:"LEGISCAN_API_KEY" env-required:"true" env-description:"LegiScan API key"`
	BaseURL      string `env:"LEGISCAN_BASE_URL" env-default:"https://api.legiscan.com/" env-description:"LegiScan API endpoint"`
	MonthlyQuota int64  `env:"LEGISCAN_MONTHLY_QUOTA" env-default:"30000" env-description:"Upstream requests allowed per month, 0 disables the check"`
}

type Cache struct {
	Backend         string            `env:"LEGISCAN_CACHE_BACKEND" env-default:"file" env-description:"Cache backend: file, redis or memory"`
	Dir             string            `env:"LEGISCAN_CACHE_DIR" env-description:"Cache directory (default $HOME/appdata/poliscore/legiscan)"`
	PolicyOverrides map[string]string `env:"LEGISCAN_POLICY_OVERRIDES" env-description:"Per-operation expiration, e.g. getBill:1h,getPerson:daily"`
}

type Redis struct {
	Addr string `env:"REDIS_ADDR" env-default:"localhost:6379" env-description:"Redis address for the redis backend and quota counter"`
	DB   int    `env:"REDIS_DB" env-default:"0" env-description:"Redis database"`
}

type Server struct {
	Port                string `env:"PORT" env-default:"8080" env-description:"HTTP listen port"`
	PrefetchConcurrency int    `env:"PREFETCH_CONCURRENCY" env-default:"4" env-description:"Parallel bill loads during warm-up"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`
	Pretty bool   `env:"LOG_PRETTY" env-default:"false" env-description:"Human-readable console logs"`
}

type Config struct {
	LegiScan LegiScan
	Cache    Cache
	Redis    Redis
	Server   Server
	Log      Log
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values cleanenv cannot.
func (c Config) Validate() error {
	if c.LegiScan.APIKey == "" {
		return fmt.Errorf("LEGISCAN_API_KEY is required")
	}
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown cache backend %q (want file, redis or memory)", c.Cache.Backend)
	}
	if c.LegiScan.MonthlyQuota < 0 {
		return fmt.Errorf("monthly quota must be >= 0 (got %d)", c.LegiScan.MonthlyQuota)
	}
	if c.Server.PrefetchConcurrency <= 0 {
		return fmt.Errorf("prefetch concurrency must be > 0 (got %d)", c.Server.PrefetchConcurrency)
	}
	if _, err := c.Policies(); err != nil {
		return err
	}
	return nil
}

// Policies returns the default expiration table with overrides applied.
func (c Config) Policies() (expiration.Table, error) {
	return expiration.DefaultTable().Override(c.Cache.PolicyOverrides)
}

// Description returns the environment variable help text.
func Description() (string, error) {
	var cfg Config
	return cleanenv.GetDescription(&cfg, nil)
}
