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
	t.Setenv("CARTFLOW_CONFIG", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8443", cfg.Addr)
	assert.Equal(t, BackendMemory, cfg.CartBackend)
	assert.Equal(t, BackendMemory, cfg.SessionBackend)
	assert.Equal(t, 300*time.Millisecond, cfg.CartDebounce)
	assert.Equal(t, 30*time.Minute, cfg.CartIdle)
	assert.Equal(t, 1.0, cfg.TraceProbability)
	assert.False(t, cfg.TLS())
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("CARTFLOW_CONFIG", "")
	t.Setenv("CART_BACKEND", "redis")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CART_DEBOUNCE", "1s")
	t.Setenv("CART_IDLE", "5m")
	t.Setenv("TLS_CERT", "certs/server.crt")
	t.Setenv("TLS_KEY", "certs/server.key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.CartBackend)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, time.Second, cfg.CartDebounce)
	assert.Equal(t, 5*time.Minute, cfg.CartIdle)
	assert.True(t, cfg.TLS())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cartflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9000\"\nlog_level: debug\n"), 0o600))
	t.Setenv("CARTFLOW_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		cfg     Config
		wantErr bool
	}{
		"memory":            {cfg: Config{CartBackend: BackendMemory, SessionBackend: BackendMemory}},
		"postgres":          {cfg: Config{CartBackend: BackendPostgres, SessionBackend: BackendMemory, DatabaseURL: "postgres://x"}},
		"postgres no dsn":   {cfg: Config{CartBackend: BackendPostgres, SessionBackend: BackendMemory}, wantErr: true},
		"redis no addr":     {cfg: Config{CartBackend: BackendMemory, SessionBackend: BackendRedis}, wantErr: true},
		"unknown backend":   {cfg: Config{CartBackend: "sqlite", SessionBackend: BackendMemory}, wantErr: true},
		"bad probability":   {cfg: Config{CartBackend: BackendMemory, SessionBackend: BackendMemory, TraceProbability: 2}, wantErr: true},
		"negative debounce": {cfg: Config{CartBackend: BackendMemory, SessionBackend: BackendMemory, CartDebounce: -1}, wantErr: true},
		"negative idle":     {cfg: Config{CartBackend: BackendMemory, SessionBackend: BackendMemory, CartIdle: -1}, wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
