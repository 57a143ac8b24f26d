package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// TierConfig maps a static API key to its fixed quality ceiling.
type TierConfig struct {
	Name       string `yaml:"name"`
	MaxQuality string `yaml:"max_quality"`
}

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Upstream struct {
		PagelistURL string        `yaml:"pagelist_url"`
		ViewURL     string        `yaml:"view_url"`
		PlayURL     string        `yaml:"playurl_url"`
		UserInfoURL string        `yaml:"userinfo_url"`
		Timeout     time.Duration `yaml:"timeout"`
		Referer     string        `yaml:"referer"`
		Origin      string        `yaml:"origin"`
		UserAgent   string        `yaml:"user_agent"`
	} `yaml:"upstream"`

	Access struct {
		Keys          map[string]TierConfig `yaml:"keys"`
		ProKey        string                `yaml:"pro_key"`
		ProTier       TierConfig            `yaml:"pro_tier"`
		CredentialTTL time.Duration         `yaml:"credential_ttl"`
	} `yaml:"access"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Upstream
	if c.Upstream.PagelistURL == "" || c.Upstream.ViewURL == "" || c.Upstream.PlayURL == "" {
		return fmt.Errorf("upstream endpoint URLs must not be empty")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be > 0")
	}

	// Access
	if c.Access.ProKey == "" {
		return fmt.Errorf("access.pro_key must not be empty")
	}
	if c.Access.ProTier.MaxQuality == "" {
		return fmt.Errorf("access.pro_tier.max_quality must not be empty")
	}
	if c.Access.CredentialTTL <= 0 {
		return fmt.Errorf("access.credential_ttl must be > 0")
	}
	for key, tier := range c.Access.Keys {
		if tier.MaxQuality == "" {
			return fmt.Errorf("access.keys[%s].max_quality must not be empty", key)
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	// Proxied streams are long-lived; the write timeout has to cover a
	// full download, not a single API round trip.
	cfg.Server.WriteTimeout = 30 * time.Minute
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Upstream.PagelistURL = "https://api.bilibili.com/x/player/pagelist"
	cfg.Upstream.ViewURL = "https://api.bilibili.com/x/web-interface/view"
	cfg.Upstream.PlayURL = "https://api.bilibili.com/x/player/wbi/playurl"
	cfg.Upstream.UserInfoURL = "https://api.bilibili.com/x/space/myinfo"
	cfg.Upstream.Timeout = 15 * time.Second
	cfg.Upstream.Referer = "https://www.bilibili.com"
	cfg.Upstream.Origin = "https://www.bilibili.com"
	cfg.Upstream.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

	cfg.Access.Keys = map[string]TierConfig{
		"public_j389u4tc9w08u4pq4mqp9xwup4": {
			Name:       "720p limit",
			MaxQuality: "64",
		},
	}
	cfg.Access.ProKey = "pro_q3j984jjw4908jqcw94htw94ew84unt9ohogeh"
	cfg.Access.ProTier = TierConfig{
		Name:       "1080p limit",
		MaxQuality: "125",
	}
	cfg.Access.CredentialTTL = 30 * 24 * time.Hour

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 50
	cfg.RateLimiting.Burst = 100

	return cfg
}

func (c *Config) applyEnvOverrides() {
	// Apply environment variable overrides
	if addr := os.Getenv("BILIGATE_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if addr := os.Getenv("BILIGATE_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
		c.Redis.Enabled = true
	}
	if level := os.Getenv("BILIGATE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if key := os.Getenv("BILIGATE_PRO_KEY"); key != "" {
		c.Access.ProKey = key
	}
}
