package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Environment string
	Port        int
	GRPCPort    int
	MetricsPort int
	PublicDir   string

	// Observability
	OTLPEndpoint string
	LogLevel     string
	LogFormat    string // json or console

	// Graceful Shutdown
	ShutdownTimeout time.Duration

	// Feature Flags
	EnableGRPC       bool
	EnableMetrics    bool
	EnableTracing    bool
	EnableReflection bool

	// Real-time events
	EventBufferSize int
	SSEHeartbeat    time.Duration

	// Timeouts
	RequestTimeout time.Duration
}

func Load() (*Config, error) {
	// Load .env file if exists (for local development)
	_ = godotenv.Load()

	cfg := &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnvAsInt("PORT", 3030),
		GRPCPort:    getEnvAsInt("GRPC_PORT", 50051),
		MetricsPort: getEnvAsInt("METRICS_PORT", 9090),
		PublicDir:   getEnv("PUBLIC_DIR", ""),

		// Observability
		OTLPEndpoint: getEnv("OTLP_ENDPOINT", "localhost:4317"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),

		// Graceful Shutdown
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		// Feature Flags
		EnableGRPC:       getEnvAsBool("ENABLE_GRPC", true),
		EnableMetrics:    getEnvAsBool("ENABLE_METRICS", true),
		EnableTracing:    getEnvAsBool("ENABLE_TRACING", false),
		EnableReflection: getEnvAsBool("ENABLE_REFLECTION", false),

		// Real-time events
		EventBufferSize: getEnvAsInt("EVENT_BUFFER_SIZE", 64),
		SSEHeartbeat:    getEnvAsDuration("SSE_HEARTBEAT", 15*time.Second),

		// Timeouts
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	// Port validation
	ports := map[string]int{"port": c.Port, "metrics port": c.MetricsPort, "grpc port": c.GRPCPort}
	for name, port := range ports {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s: %d", name, port)
		}
	}
	if c.EnableMetrics && c.MetricsPort == c.Port {
		return fmt.Errorf("metrics port must differ from port (%d)", c.Port)
	}
	if c.EnableGRPC && (c.GRPCPort == c.Port || (c.EnableMetrics && c.GRPCPort == c.MetricsPort)) {
		return fmt.Errorf("grpc port %d collides with another listener", c.GRPCPort)
	}

	// Log level validation
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.LogLevel)
	}

	// Log format validation
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("invalid log format: %s (valid: json, console)", c.LogFormat)
	}

	if c.EnableTracing && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP_ENDPOINT is required when tracing is enabled")
	}

	if c.EventBufferSize < 1 {
		return fmt.Errorf("event buffer size must be positive, got %d", c.EventBufferSize)
	}
	if c.SSEHeartbeat < 0 || c.RequestTimeout < 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("durations must not be negative and shutdown timeout must be positive")
	}

	if c.PublicDir != "" {
		info, err := os.Stat(c.PublicDir)
		if err != nil {
			return fmt.Errorf("public directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("public directory %s is not a directory", c.PublicDir)
		}
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

type ServerConfig struct {
	Port            int
	GRPCPort        int
	MetricsPort     int
	PublicDir       string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	EventBufferSize int
	SSEHeartbeat    time.Duration
}

func (c *Config) GetServerConfig() ServerConfig {
	return ServerConfig{
		Port:            c.Port,
		GRPCPort:        c.GRPCPort,
		MetricsPort:     c.MetricsPort,
		PublicDir:       c.PublicDir,
		ShutdownTimeout: c.ShutdownTimeout,
		RequestTimeout:  c.RequestTimeout,
		EventBufferSize: c.EventBufferSize,
		SSEHeartbeat:    c.SSEHeartbeat,
	}
}

type ObservabilityConfig struct {
	EnableMetrics bool
	EnableTracing bool
	OTLPEndpoint  string
	LogLevel      string
	LogFormat     string
}

func (c *Config) GetObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		EnableMetrics: c.EnableMetrics,
		EnableTracing: c.EnableTracing,
		OTLPEndpoint:  c.OTLPEndpoint,
		LogLevel:      c.LogLevel,
		LogFormat:     c.LogFormat,
	}
}
