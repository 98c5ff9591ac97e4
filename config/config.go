// Package config loads service configuration from an optional YAML file,
// with environment variables taking precedence over file values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the server needs to start.
type Config struct {
	Addr        string `yaml:"addr"`
	DatabaseURL string `yaml:"database_url"`
	LogLevel    string `yaml:"log_level"`
	Pool        Pool   `yaml:"pool"`
}

// Pool mirrors the pgx pool tuning options.
type Pool struct {
	MaxConns          int32         `yaml:"max_conns"`
	MinConns          int32         `yaml:"min_conns"`
	MaxConnIdleTime   time.Duration `yaml:"max_conn_idle_time"`
	MaxConnLifetime   time.Duration `yaml:"max_conn_lifetime"`
	HealthCheckPeriod time.Duration `yaml:"health_check_period"`
}

// Load reads the YAML file at path (skipped if path is empty or the file
// doesn't exist), then applies env overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Addr:     ":3000",
		LogLevel: "info",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Optional file; env alone is a valid configuration.
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FLOW_HTTP_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("FLOW_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := envInt32("PG_MAX_CONNS"); v > 0 {
		c.Pool.MaxConns = v
	}
	if v := envInt32("PG_MIN_CONNS"); v > 0 {
		c.Pool.MinConns = v
	}
	if d := envDuration("PG_MAX_CONN_IDLE"); d > 0 {
		c.Pool.MaxConnIdleTime = d
	}
	if d := envDuration("PG_MAX_CONN_LIFETIME"); d > 0 {
		c.Pool.MaxConnLifetime = d
	}
	if d := envDuration("PG_HEALTHCHECK_PERIOD"); d > 0 {
		c.Pool.HealthCheckPeriod = d
	}
}

func envInt32(key string) int32 {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0
	}
	return int32(v)
}

func envDuration(key string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}
