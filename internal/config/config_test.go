package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eugener/reel/internal/cache"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  addr: ":9090"
  read_timeout: 10s
database:
  dsn: ":memory:"
  seed_file: testdata/catalog.json
cache:
  backend: tiered
  ttl: 10m
  local_ttl: 5s
  single_flight: true
  breaker:
    enabled: true
  redis:
    addr: redis:6379
    db: 2
  operations:
    - id: film_by_id
      ttl: 1h
      shape: single
    - id: film_list
      shape: list
warmer:
  enabled: true
  interval: 2m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q, want %q", cfg.Server.Addr, ":9090")
	}
	if cfg.Database.DSN != ":memory:" {
		t.Errorf("dsn = %q, want %q", cfg.Database.DSN, ":memory:")
	}
	if cfg.Cache.Backend != BackendTiered || cfg.Cache.TTL != 10*time.Minute || !cfg.Cache.SingleFlight {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Cache.Redis.Addr != "redis:6379" || cfg.Cache.Redis.DB != 2 {
		t.Errorf("redis = %+v", cfg.Cache.Redis)
	}
	// Unset breaker fields keep their defaults.
	if !cfg.Cache.Breaker.Enabled || cfg.Cache.Breaker.MinSamples != 20 {
		t.Errorf("breaker = %+v", cfg.Cache.Breaker)
	}

	specs, err := cfg.Cache.OperationSpecs()
	if err != nil {
		t.Fatal(err)
	}
	want := []cache.OperationSpec{
		{ID: "film_by_id", TTL: time.Hour, Shape: cache.ShapeSingle},
		{ID: "film_list", Shape: cache.ShapeList},
	}
	if len(specs) != len(want) {
		t.Fatalf("specs = %+v", specs)
	}
	for i := range want {
		if specs[i] != want[i] {
			t.Errorf("spec[%d] = %+v, want %+v", i, specs[i], want[i])
		}
	}
	if cfg.Warmer.Interval != 2*time.Minute {
		t.Errorf("warmer interval = %v", cfg.Warmer.Interval)
	}
}

func TestExpandEnv(t *testing.T) {
	// Cannot use t.Parallel() with t.Setenv
	t.Setenv("TEST_REDIS_PASSWORD", "s3cret")

	result := expandEnv([]byte("key: ${TEST_REDIS_PASSWORD}"))
	if string(result) != "key: s3cret" {
		t.Errorf("expandEnv = %q, want %q", result, "key: s3cret")
	}

	// Unset vars are left as-is.
	result = expandEnv([]byte("key: ${NONEXISTENT_VAR_12345}"))
	if string(result) != "key: ${NONEXISTENT_VAR_12345}" {
		t.Errorf("expandEnv unset = %q", result)
	}

	path := writeConfig(t, `
cache:
  backend: redis
  redis:
    password: ${TEST_REDIS_PASSWORD}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cache.Redis.Password != "s3cret" {
		t.Errorf("password = %q", cfg.Cache.Redis.Password)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("default addr = %q, want %q", cfg.Server.Addr, ":8080")
	}
	if cfg.Database.DSN != "reel.db" {
		t.Errorf("default dsn = %q, want %q", cfg.Database.DSN, "reel.db")
	}
	if cfg.Cache.Backend != BackendMemory {
		t.Errorf("default backend = %q", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL != 300*time.Second {
		t.Errorf("default ttl = %v, want 300s", cfg.Cache.TTL)
	}
	if cfg.Cache.SingleFlight {
		t.Error("single flight should default to off")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"default ok", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }, "unknown backend"},
		{"redis without addr", func(c *Config) {
			c.Cache.Backend = BackendRedis
			c.Cache.Redis.Addr = ""
		}, "cache.redis.addr"},
		{"zero max size", func(c *Config) { c.Cache.MaxSize = 0 }, "max_size"},
		{"redis ignores max size", func(c *Config) {
			c.Cache.Backend = BackendRedis
			c.Cache.MaxSize = 0
		}, ""},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -time.Second }, "negative"},
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }, "cache.ttl"},
		{"zero ttl redis", func(c *Config) {
			c.Cache.Backend = BackendRedis
			c.Cache.TTL = 0
		}, "cache.ttl"},
		{"zero local ttl tiered", func(c *Config) {
			c.Cache.Backend = BackendTiered
			c.Cache.LocalTTL = 0
		}, "cache.local_ttl"},
		{"memory ignores local ttl", func(c *Config) { c.Cache.LocalTTL = 0 }, ""},
		{"breaker threshold", func(c *Config) {
			c.Cache.Breaker.Enabled = true
			c.Cache.Breaker.ErrorThreshold = 1.5
		}, "error_threshold"},
		{"bad shape", func(c *Config) {
			c.Cache.Operations = []OperationEntry{{ID: "film_by_id", Shape: "tree"}}
		}, "unknown result shape"},
		{"duplicate op", func(c *Config) {
			c.Cache.Operations = []OperationEntry{{ID: "a"}, {ID: "a"}}
		}, "declared twice"},
		{"warmer interval", func(c *Config) {
			c.Warmer.Enabled = true
			c.Warmer.Interval = 0
		}, "warmer.interval"},
		{"sample rate", func(c *Config) { c.Telemetry.Tracing.SampleRate = 2 }, "sample_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadExampleConfig(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join("..", "..", "configs", "reel.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cache.Backend != BackendTiered {
		t.Errorf("backend = %q, want %q", cfg.Cache.Backend, BackendTiered)
	}
	specs, err := cfg.Cache.OperationSpecs()
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 3 {
		t.Errorf("operations = %d, want 3", len(specs))
	}
}
