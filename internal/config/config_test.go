package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.Service.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.Service.Timeout)
	assert.Equal(t, CacheFile, cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Watch.Interval)
	assert.Equal(t, 5000, cfg.ResolveMaxPoints(0))
	assert.Equal(t, 10, cfg.ResolveMaxPoints(10))
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service:
  base_url: http://forecast:8000
  timeout: 5s
cache:
  backend: redis
  ttl: 24h
watch:
  interval: 15m
`), 0o600))
	t.Setenv("FORECASTBENCH_CACHE_REDIS_ADDR", "redis:6380")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://forecast:8000", cfg.Service.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Service.Timeout)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "redis:6380", cfg.Cache.Redis.Addr)
	assert.Equal(t, 15*time.Minute, cfg.Watch.Interval)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Service: ServiceConfig{BaseURL: "http://x", Timeout: time.Second},
			Cache:   CacheConfig{Backend: CacheNone},
			Watch:   WatchConfig{Interval: time.Minute},
			Export:  ExportConfig{MaxPoints: 10},
		}
	}
	base := valid()
	require.NoError(t, base.Validate())

	cases := map[string]func(*Config){
		"no base url":       func(c *Config) { c.Service.BaseURL = " " },
		"unknown backend":   func(c *Config) { c.Cache.Backend = "memcached" },
		"file without path": func(c *Config) { c.Cache.Backend = CacheFile },
		"zero interval":     func(c *Config) { c.Watch.Interval = 0 },
		"zero max points":   func(c *Config) { c.Export.MaxPoints = 0 },
		"telegram no token": func(c *Config) { c.Notify.Telegram = TelegramConfig{Enabled: true, ChatID: "1"} },
		"metrics no addr":   func(c *Config) { c.Metrics.Enabled = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
