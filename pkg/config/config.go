// Package config loads service settings from the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the service configuration.
type Config struct {
	Addr             string
	TLSCert          string
	TLSKey           string
	DatabaseURL      string
	RedisAddr        string
	CartBackend      string
	SessionBackend   string
	CartDebounce     time.Duration
	CartTTL          time.Duration
	CartIdle         time.Duration
	SessionTTL       time.Duration
	LogLevel         string
	OTELHost         string
	TraceProbability float64
}

// Load reads settings. CARTFLOW_CONFIG may name a config file; environment
// variables override it.
func Load() (Config, error) {
	v := viper.New()
	v.SetDefault("ADDR", ":8443")
	v.SetDefault("TLS_CERT", "")
	v.SetDefault("TLS_KEY", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("CART_BACKEND", BackendMemory)
	v.SetDefault("SESSION_BACKEND", BackendMemory)
	v.SetDefault("CART_DEBOUNCE", "300ms")
	v.SetDefault("CART_TTL", "720h")
	v.SetDefault("CART_IDLE", "30m")
	v.SetDefault("SESSION_TTL", "720h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OTEL_HOST", "")
	v.SetDefault("TRACE_PROBABILITY", 1.0)
	v.AutomaticEnv()

	if path := os.Getenv("CARTFLOW_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		Addr:             v.GetString("ADDR"),
		TLSCert:          v.GetString("TLS_CERT"),
		TLSKey:           v.GetString("TLS_KEY"),
		DatabaseURL:      v.GetString("DATABASE_URL"),
		RedisAddr:        v.GetString("REDIS_ADDR"),
		CartBackend:      v.GetString("CART_BACKEND"),
		SessionBackend:   v.GetString("SESSION_BACKEND"),
		CartDebounce:     v.GetDuration("CART_DEBOUNCE"),
		CartTTL:          v.GetDuration("CART_TTL"),
		CartIdle:         v.GetDuration("CART_IDLE"),
		SessionTTL:       v.GetDuration("SESSION_TTL"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		OTELHost:         v.GetString("OTEL_HOST"),
		TraceProbability: v.GetFloat64("TRACE_PROBABILITY"),
	}
	return cfg, cfg.Validate()
}

// Validate checks backend selections against their connection settings.
func (c Config) Validate() error {
	var errs []error
	switch c.CartBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("CART_BACKEND=redis requires REDIS_ADDR"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("CART_BACKEND=postgres requires DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CART_BACKEND %q", c.CartBackend))
	}
	switch c.SessionBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("SESSION_BACKEND=redis requires REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend))
	}
	if c.CartDebounce < 0 {
		errs = append(errs, errors.New("CART_DEBOUNCE must not be negative"))
	}
	if c.CartIdle < 0 {
		errs = append(errs, errors.New("CART_IDLE must not be negative"))
	}
	if c.TraceProbability < 0 || c.TraceProbability > 1 {
		errs = append(errs, errors.New("TRACE_PROBABILITY must be within [0,1]"))
	}
	return errors.Join(errs...)
}

// TLS reports whether both certificate files are configured.
func (c Config) TLS() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}
