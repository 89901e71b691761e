// Package config handles YAML configuration loading with environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/eugener/reel/internal/cache"
	"github.com/eugener/reel/internal/circuitbreaker"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendTiered = "tiered"
)

// Config is the top-level service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Warmer    WarmerConfig    `yaml:"warmer"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`       // file path or ":memory:"
	SeedFile string `yaml:"seed_file"` // JSON catalogue fixture loaded at startup; empty = none
}

// CacheConfig holds cache-aside resolver and store settings.
type CacheConfig struct {
	Backend       string           `yaml:"backend"` // memory, redis, tiered
	TTL           time.Duration    `yaml:"ttl"`
	MaxSize       int              `yaml:"max_size"`  // in-process entries (memory and tiered)
	LocalTTL      time.Duration    `yaml:"local_ttl"` // tiered: lifetime of local copies
	StoreTimeout  time.Duration    `yaml:"store_timeout"`
	SingleFlight  bool             `yaml:"single_flight"`
	FlightTimeout time.Duration    `yaml:"flight_timeout"`
	Breaker       BreakerConfig    `yaml:"breaker"`
	Redis         RedisConfig      `yaml:"redis"`
	Operations    []OperationEntry `yaml:"operations"`
}

// BreakerConfig guards the remote store with a circuit breaker.
type BreakerConfig struct {
	Enabled        bool          `yaml:"enabled"`
	ErrorThreshold float64       `yaml:"error_threshold"`
	MinSamples     int           `yaml:"min_samples"`
	WindowSeconds  int           `yaml:"window_seconds"`
	OpenTimeout    time.Duration `yaml:"open_timeout"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// OperationEntry is one row of the operation table.
type OperationEntry struct {
	ID    string        `yaml:"id"`
	TTL   time.Duration `yaml:"ttl"`   // 0 = cache.ttl
	Shape string        `yaml:"shape"` // single, list, or empty to infer
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	LogLevel string        `yaml:"log_level"` // debug, info, warn, error
	Metrics  MetricsConfig `yaml:"metrics"`
	Tracing  TracingConfig `yaml:"tracing"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`    // OTLP gRPC endpoint
	SampleRate float64 `yaml:"sample_rate"` // 0.0 to 1.0
}

// WarmerConfig controls the cache warmer worker.
type WarmerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		return match
	})
}

// Default returns the configuration used for any field the file leaves unset.
func Default() *Config {
	breaker := circuitbreaker.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			DSN: "reel.db",
		},
		Cache: CacheConfig{
			Backend:       BackendMemory,
			TTL:           cache.DefaultTTL,
			MaxSize:       10_000,
			LocalTTL:      10 * time.Second,
			StoreTimeout:  250 * time.Millisecond,
			FlightTimeout: 30 * time.Second,
			Breaker: BreakerConfig{
				ErrorThreshold: breaker.ErrorThreshold,
				MinSamples:     breaker.MinSamples,
				WindowSeconds:  breaker.WindowSeconds,
				OpenTimeout:    breaker.OpenTimeout,
			},
			Redis: RedisConfig{
				Addr:         "localhost:6379",
				DialTimeout:  2 * time.Second,
				ReadTimeout:  time.Second,
				WriteTimeout: time.Second,
			},
		},
		Telemetry: TelemetryConfig{
			LogLevel: "info",
			Tracing:  TracingConfig{SampleRate: 1.0},
		},
		Warmer: WarmerConfig{
			Interval: 4 * time.Minute,
		},
	}
}

// Load reads and parses a YAML config file, expanding environment variables,
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = expandEnv(data)

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	cc := c.Cache
	switch cc.Backend {
	case BackendMemory, BackendRedis, BackendTiered:
	default:
		errs = append(errs, fmt.Errorf("cache.backend: unknown backend %q", cc.Backend))
	}
	if cc.Backend != BackendMemory && cc.Redis.Addr == "" {
		errs = append(errs, fmt.Errorf("cache.redis.addr: required for backend %q", cc.Backend))
	}
	if cc.Backend != BackendRedis && cc.MaxSize <= 0 {
		errs = append(errs, errors.New("cache.max_size: must be positive"))
	}
	if cc.TTL < 0 || cc.StoreTimeout < 0 || cc.FlightTimeout < 0 || cc.LocalTTL < 0 {
		errs = append(errs, errors.New("cache: durations must not be negative"))
	}
	if cc.TTL == 0 {
		errs = append(errs, errors.New("cache.ttl: must be positive"))
	}
	if cc.Backend == BackendTiered && cc.LocalTTL == 0 {
		errs = append(errs, errors.New("cache.local_ttl: must be positive for backend tiered"))
	}
	if b := cc.Breaker; b.Enabled {
		if b.ErrorThreshold <= 0 || b.ErrorThreshold > 1 {
			errs = append(errs, errors.New("cache.breaker.error_threshold: must be in (0, 1]"))
		}
		if b.MinSamples < 1 || b.WindowSeconds < 1 || b.OpenTimeout <= 0 {
			errs = append(errs, errors.New("cache.breaker: min_samples, window_seconds and open_timeout must be positive"))
		}
	}
	if _, err := cc.OperationSpecs(); err != nil {
		errs = append(errs, err)
	}
	if c.Warmer.Enabled && c.Warmer.Interval <= 0 {
		errs = append(errs, errors.New("warmer.interval: must be positive"))
	}
	if r := c.Telemetry.Tracing.SampleRate; r < 0 || r > 1 {
		errs = append(errs, errors.New("telemetry.tracing.sample_rate: must be in [0, 1]"))
	}
	return errors.Join(errs...)
}

// OperationSpecs converts the operation table for cache.Options.
func (c CacheConfig) OperationSpecs() ([]cache.OperationSpec, error) {
	specs := make([]cache.OperationSpec, 0, len(c.Operations))
	seen := make(map[string]bool, len(c.Operations))
	for _, op := range c.Operations {
		if op.ID == "" {
			return nil, errors.New("cache.operations: entry without id")
		}
		if seen[op.ID] {
			return nil, fmt.Errorf("cache.operations: %q declared twice", op.ID)
		}
		seen[op.ID] = true
		if op.TTL < 0 {
			return nil, fmt.Errorf("cache.operations: %q: negative ttl", op.ID)
		}
		shape, err := cache.ParseShape(op.Shape)
		if err != nil {
			return nil, fmt.Errorf("cache.operations: %q: %w", op.ID, err)
		}
		specs = append(specs, cache.OperationSpec{ID: op.ID, TTL: op.TTL, Shape: shape})
	}
	return specs, nil
}

// BreakerSettings converts the breaker section for circuitbreaker.NewBreaker.
func (b BreakerConfig) BreakerSettings() circuitbreaker.Config {
	return circuitbreaker.Config{
		ErrorThreshold: b.ErrorThreshold,
		MinSamples:     b.MinSamples,
		WindowSeconds:  b.WindowSeconds,
		OpenTimeout:    b.OpenTimeout,
	}
}

// RedisOptions converts the redis section for cache.NewRedis.
func (r RedisConfig) RedisOptions() cache.RedisOptions {
	return cache.RedisOptions{
		Addr:         r.Addr,
		Username:     r.Username,
		Password:     r.Password,
		DB:           r.DB,
		PoolSize:     r.PoolSize,
		DialTimeout:  r.DialTimeout,
		ReadTimeout:  r.ReadTimeout,
		WriteTimeout: r.WriteTimeout,
	}
}
