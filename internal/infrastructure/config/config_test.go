package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads; blank values fall back to defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENVIRONMENT", "PORT", "GRPC_PORT", "METRICS_PORT", "PUBLIC_DIR",
		"OTLP_ENDPOINT", "LOG_LEVEL", "LOG_FORMAT", "SHUTDOWN_TIMEOUT",
		"ENABLE_GRPC", "ENABLE_METRICS", "ENABLE_TRACING", "ENABLE_REFLECTION",
		"EVENT_BUFFER_SIZE", "SSE_HEARTBEAT", "REQUEST_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 3030, cfg.Port)
	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, 9090, cfg.MetricsPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 64, cfg.EventBufferSize)
	assert.Equal(t, 15*time.Second, cfg.SSEHeartbeat)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("SSE_HEARTBEAT", "5s")
	t.Setenv("ENABLE_GRPC", "false")
	t.Setenv("EVENT_BUFFER_SIZE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 5*time.Second, cfg.SSEHeartbeat)
	assert.False(t, cfg.EnableGRPC)
	assert.Equal(t, 64, cfg.EventBufferSize, "unparsable values fall back to the default")
	assert.True(t, cfg.IsProduction())

	server := cfg.GetServerConfig()
	assert.Equal(t, 8080, server.Port)
	assert.Equal(t, 5*time.Second, server.SSEHeartbeat)

	obs := cfg.GetObservabilityConfig()
	assert.Equal(t, "console", obs.LogFormat)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:            3030,
			GRPCPort:        50051,
			MetricsPort:     9090,
			LogLevel:        "info",
			LogFormat:       "json",
			EventBufferSize: 8,
			ShutdownTimeout: time.Second,
			EnableGRPC:      true,
			EnableMetrics:   true,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad port", mutate: func(c *Config) { c.Port = 0 }},
		{name: "port collision", mutate: func(c *Config) { c.MetricsPort = c.Port }},
		{name: "grpc collision", mutate: func(c *Config) { c.GRPCPort = c.MetricsPort }},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "trace" }},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }},
		{name: "tracing without endpoint", mutate: func(c *Config) { c.EnableTracing = true }},
		{name: "zero buffer", mutate: func(c *Config) { c.EventBufferSize = 0 }},
		{name: "negative heartbeat", mutate: func(c *Config) { c.SSEHeartbeat = -time.Second }},
		{name: "missing public dir", mutate: func(c *Config) { c.PublicDir = "/does/not/exist" }},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
