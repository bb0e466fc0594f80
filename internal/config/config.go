package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures application level settings. Every key can be set from
// the environment (nested keys join with "_", so jwt.secret is
// JWT_SECRET) or from the YAML file named by CONFIG_FILE.
type Config struct {
	Port        string `mapstructure:"port"`
	DatabaseURL string `mapstructure:"database_url"`
	FrontendURL string `mapstructure:"frontend_url"`
	AdminToken  string `mapstructure:"admin_token"`

	Server ServerConfig `mapstructure:"server"`
	JWT    JWTConfig    `mapstructure:"jwt"`
	Log    LogConfig    `mapstructure:"log"`
	Price  PriceConfig  `mapstructure:"price"`
	Yahoo  YahooConfig  `mapstructure:"yahoo"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

type ServerConfig struct {
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	TTL        time.Duration `mapstructure:"ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type PriceConfig struct {
	Provider    string  `mapstructure:"provider"`
	JobSchedule string  `mapstructure:"job_schedule"`
	RandomFloor float64 `mapstructure:"random_floor"`
	RandomCeil  float64 `mapstructure:"random_ceil"`
	Concurrency int     `mapstructure:"concurrency"`
}

type YahooConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Backend   string        `mapstructure:"backend"`
	Prefix    string        `mapstructure:"prefix"`
	PriceTTL  time.Duration `mapstructure:"price_ttl"`
	ChartTTL  time.Duration `mapstructure:"chart_ttl"`
	SymbolTTL time.Duration `mapstructure:"symbol_ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

const (
	ProviderYahoo  = "yahoo"
	ProviderRandom = "random"

	CacheMemory = "memory"
	CacheRedis  = "redis"

	minSecretLen = 16
)

// Load reads an optional .env file, then the environment and the optional
// CONFIG_FILE, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	return load(os.Getenv("CONFIG_FILE"))
}

func load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Price.Provider = strings.ToLower(strings.TrimSpace(cfg.Price.Provider))
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("database_url", "")
	v.SetDefault("frontend_url", "http://localhost:3000")
	v.SetDefault("admin_token", "")

	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("jwt.refresh_ttl", "168h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.development", false)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)

	v.SetDefault("price.provider", ProviderYahoo)
	v.SetDefault("price.job_schedule", "@every 1h")
	v.SetDefault("price.random_floor", 50.0)
	v.SetDefault("price.random_ceil", 500.0)
	v.SetDefault("price.concurrency", 4)

	v.SetDefault("yahoo.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("yahoo.timeout", "8s")

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.prefix", "stock-notebook:")
	v.SetDefault("cache.price_ttl", "5m")
	v.SetDefault("cache.chart_ttl", "30m")
	v.SetDefault("cache.symbol_ttl", "24h")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}

// Validate reports the first invalid setting by its environment name.
func (cfg *Config) Validate() error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if _, err := url.Parse(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("DATABASE_URL: %w", err)
	}
	if len(cfg.JWT.Secret) < minSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLen)
	}
	if cfg.JWT.TTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if cfg.JWT.RefreshTTL < cfg.JWT.TTL {
		return errors.New("JWT_REFRESH_TTL must not be shorter than JWT_TTL")
	}

	switch cfg.Price.Provider {
	case ProviderYahoo:
		if cfg.Yahoo.Timeout <= 0 {
			return errors.New("YAHOO_TIMEOUT must be positive")
		}
	case ProviderRandom:
		if cfg.Price.RandomFloor <= 0 || cfg.Price.RandomCeil <= 0 {
			return errors.New("invalid random price bounds configured")
		}
		if cfg.Price.RandomCeil <= cfg.Price.RandomFloor {
			return errors.New("PRICE_RANDOM_CEIL must be greater than PRICE_RANDOM_FLOOR")
		}
	default:
		return fmt.Errorf("PRICE_PROVIDER %q: want %s or %s", cfg.Price.Provider, ProviderYahoo, ProviderRandom)
	}
	if cfg.Price.JobSchedule == "" {
		return errors.New("PRICE_JOB_SCHEDULE is required")
	}

	switch cfg.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if cfg.Redis.Addr == "" {
			return errors.New("REDIS_ADDR is required when CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND %q: want %s or %s", cfg.Cache.Backend, CacheMemory, CacheRedis)
	}
	for key, ttl := range map[string]time.Duration{
		"CACHE_PRICE_TTL":  cfg.Cache.PriceTTL,
		"CACHE_CHART_TTL":  cfg.Cache.ChartTTL,
		"CACHE_SYMBOL_TTL": cfg.Cache.SymbolTTL,
	} {
		if ttl <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
