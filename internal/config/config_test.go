package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func baseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("JWT_SECRET", "0123456789abcdef")
}

func TestLoadDefaults(t *testing.T) {
	baseEnv(t)
	cfg, err := load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.JWT.TTL != 24*time.Hour || cfg.JWT.RefreshTTL != 168*time.Hour {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Price.Provider != ProviderYahoo || cfg.Price.JobSchedule != "@every 1h" {
		t.Fatalf("price defaults = %+v", cfg.Price)
	}
	if cfg.Cache.Backend != CacheMemory || cfg.Cache.PriceTTL != 5*time.Minute || cfg.Cache.ChartTTL != 30*time.Minute {
		t.Fatalf("cache defaults = %+v", cfg.Cache)
	}
}

func TestLoadFromEnv(t *testing.T) {
	baseEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("PRICE_PROVIDER", "Random")
	t.Setenv("PRICE_RANDOM_FLOOR", "10")
	t.Setenv("PRICE_RANDOM_CEIL", "20")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("LOG_ENCODING", "console")

	cfg, err := load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" || cfg.Price.Provider != ProviderRandom || cfg.Price.RandomCeil != 20 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Redis.Addr != "cache:6379" || cfg.Redis.DB != 2 || cfg.Log.Encoding != "console" {
		t.Fatalf("redis/log = %+v %+v", cfg.Redis, cfg.Log)
	}
}

func TestLoadFile(t *testing.T) {
	baseEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "admin_token: s3cret\ncache:\n  chart_ttl: 1h\nyahoo:\n  timeout: 3s\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AdminToken != "s3cret" || cfg.Cache.ChartTTL != time.Hour || cfg.Yahoo.Timeout != 3*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"no database", map[string]string{"DATABASE_URL": ""}, "DATABASE_URL"},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "JWT_SECRET"},
		{"refresh shorter", map[string]string{"JWT_REFRESH_TTL": "1h"}, "JWT_REFRESH_TTL"},
		{"provider", map[string]string{"PRICE_PROVIDER": "bloomberg"}, "PRICE_PROVIDER"},
		{"random bounds", map[string]string{"PRICE_PROVIDER": "random", "PRICE_RANDOM_FLOOR": "30", "PRICE_RANDOM_CEIL": "20"}, "PRICE_RANDOM_CEIL"},
		{"cache backend", map[string]string{"CACHE_BACKEND": "memcached"}, "CACHE_BACKEND"},
		{"ttl", map[string]string{"CACHE_PRICE_TTL": "0s"}, "CACHE_PRICE_TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load("")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
