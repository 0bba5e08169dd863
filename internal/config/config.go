package config

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// CORS configuration for the dashboard
	CORS CORSConfig

	// WebSocket configuration
	WebSocket WebSocketConfig

	// Logging configuration
	Logging LoggingConfig

	// Scoring configuration
	Scoring ScoringConfig

	// Routing configuration
	Routing RoutingConfig

	// Metrics configuration
	Metrics MetricsConfig

	// Application metadata
	App AppConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrateOnStart  bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	RoutingRPS        float64 // Stricter limit for assign/reassign
	RoutingBurst      int
}

// CORSConfig holds cross-origin settings
type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           int
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	PingInterval    time.Duration
	PongWait        time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// ScoringConfig holds the performance score formula and its cache.
type ScoringConfig struct {
	Weights       ScoreWeights
	Strategies    ScoreStrategies
	SLATargets    SLATargets
	HistoryWindow int
	CacheSize     int
	CacheTTL      time.Duration
	Parallelism   int
}

// ScoreWeights holds one weight per score component.
type ScoreWeights struct {
	ResolutionTime   float64
	CustomerImpact   float64
	SLACompliance    float64
	TicketComplexity float64
	Quality          float64
}

// Sum adds the weights.
func (w ScoreWeights) Sum() float64 {
	return w.ResolutionTime + w.CustomerImpact + w.SLACompliance + w.TicketComplexity + w.Quality
}

// ScoreStrategies names the strategy used for each score component.
type ScoreStrategies struct {
	ResolutionTime   string
	CustomerImpact   string
	SLACompliance    string
	TicketComplexity string
	Quality          string
}

// SLATargets are the resolution targets per ticket priority.
type SLATargets struct {
	Critical time.Duration
	High     time.Duration
	Normal   time.Duration
	Low      time.Duration
}

// RoutingConfig holds dispatcher settings
type RoutingConfig struct {
	Workers       int
	MaxQueue      int
	RetryInterval time.Duration // zero disables the unassigned sweep
	RetryBatch    int
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", ":8080"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getIntOrDefault("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntOrDefault("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationOrDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getDurationOrDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			MigrateOnStart:  getBoolOrDefault("DB_MIGRATE_ON_START", true),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			AccessTokenTTL: getDurationOrDefault("JWT_ACCESS_TOKEN_TTL", 1*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolOrDefault("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getFloatOrDefault("RATE_LIMIT_RPS", 10),
			BurstSize:         getIntOrDefault("RATE_LIMIT_BURST", 20),
			RoutingRPS:        getFloatOrDefault("RATE_LIMIT_ROUTING_RPS", 2),
			RoutingBurst:      getIntOrDefault("RATE_LIMIT_ROUTING_BURST", 10),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getStringSliceOrDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			AllowCredentials: getBoolOrDefault("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getIntOrDefault("CORS_MAX_AGE", 300),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:  getStringSliceOrDefault("WS_ALLOWED_ORIGINS", []string{}),
			ReadBufferSize:  getIntOrDefault("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getIntOrDefault("WS_WRITE_BUFFER_SIZE", 1024),
			PingInterval:    getDurationOrDefault("WS_PING_INTERVAL", 54*time.Second),
			PongWait:        getDurationOrDefault("WS_PONG_WAIT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		Scoring: ScoringConfig{
			Weights: ScoreWeights{
				ResolutionTime:   getFloatOrDefault("SCORE_WEIGHT_RESOLUTION_TIME", 0.30),
				CustomerImpact:   getFloatOrDefault("SCORE_WEIGHT_CUSTOMER_IMPACT", 0.25),
				SLACompliance:    getFloatOrDefault("SCORE_WEIGHT_SLA_COMPLIANCE", 0.20),
				TicketComplexity: getFloatOrDefault("SCORE_WEIGHT_TICKET_COMPLEXITY", 0.15),
				Quality:          getFloatOrDefault("SCORE_WEIGHT_QUALITY", 0.10),
			},
			Strategies: ScoreStrategies{
				ResolutionTime:   getEnvOrDefault("SCORE_STRATEGY_RESOLUTION_TIME", "sla_linear"),
				CustomerImpact:   getEnvOrDefault("SCORE_STRATEGY_CUSTOMER_IMPACT", "impact_weighted_satisfaction"),
				SLACompliance:    getEnvOrDefault("SCORE_STRATEGY_SLA_COMPLIANCE", "met_ratio"),
				TicketComplexity: getEnvOrDefault("SCORE_STRATEGY_TICKET_COMPLEXITY", "priority_impact_mix"),
				Quality:          getEnvOrDefault("SCORE_STRATEGY_QUALITY", "first_time_fix"),
			},
			SLATargets: SLATargets{
				Critical: getDurationOrDefault("SLA_TARGET_CRITICAL", 4*time.Hour),
				High:     getDurationOrDefault("SLA_TARGET_HIGH", 8*time.Hour),
				Normal:   getDurationOrDefault("SLA_TARGET_NORMAL", 24*time.Hour),
				Low:      getDurationOrDefault("SLA_TARGET_LOW", 72*time.Hour),
			},
			HistoryWindow: getIntOrDefault("SCORE_HISTORY_WINDOW", 200),
			CacheSize:     getIntOrDefault("SCORE_CACHE_SIZE", 1024),
			CacheTTL:      getDurationOrDefault("SCORE_CACHE_TTL", 30*time.Second),
			Parallelism:   getIntOrDefault("SCORE_PARALLELISM", 4),
		},
		Routing: RoutingConfig{
			Workers:       getIntOrDefault("DISPATCH_WORKERS", 4),
			MaxQueue:      getIntOrDefault("DISPATCH_MAX_QUEUE", 1000),
			RetryInterval: getDurationOrDefault("ROUTING_RETRY_INTERVAL", time.Minute),
			RetryBatch:    getIntOrDefault("ROUTING_RETRY_BATCH", 50),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolOrDefault("METRICS_ENABLED", true),
			Path:    getEnvOrDefault("METRICS_PATH", "/metrics"),
		},
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", "service-desk-routing"),
			Version:     getEnvOrDefault("APP_VERSION", "dev"),
			Environment: getEnvOrDefault("APP_ENV", "development"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	// Required fields
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}

	// Security validations
	if c.App.Environment == "production" {
		if len(c.JWT.Secret) < 32 {
			errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
		}

		if len(c.WebSocket.AllowedOrigins) == 0 {
			errs = append(errs, "WS_ALLOWED_ORIGINS must be set in production")
		}
	}

	// Logical validations
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		errs = append(errs, "DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	}

	// Scoring
	if math.Abs(c.Scoring.Weights.Sum()-1) > 1e-9 {
		errs = append(errs, fmt.Sprintf("SCORE_WEIGHT_* must sum to 1.0, got %.4f", c.Scoring.Weights.Sum()))
	}
	if c.Scoring.HistoryWindow <= 0 {
		errs = append(errs, "SCORE_HISTORY_WINDOW must be positive")
	}
	if c.Scoring.CacheSize <= 0 {
		errs = append(errs, "SCORE_CACHE_SIZE must be positive")
	}
	if c.Scoring.Parallelism <= 0 {
		errs = append(errs, "SCORE_PARALLELISM must be positive")
	}
	for name, d := range map[string]time.Duration{
		"SLA_TARGET_CRITICAL": c.Scoring.SLATargets.Critical,
		"SLA_TARGET_HIGH":     c.Scoring.SLATargets.High,
		"SLA_TARGET_NORMAL":   c.Scoring.SLATargets.Normal,
		"SLA_TARGET_LOW":      c.Scoring.SLATargets.Low,
	} {
		if d <= 0 {
			errs = append(errs, name+" must be positive")
		}
	}

	// Routing
	if c.Routing.Workers <= 0 {
		errs = append(errs, "DISPATCH_WORKERS must be positive")
	}
	if c.Routing.RetryInterval < 0 {
		errs = append(errs, "ROUTING_RETRY_INTERVAL must not be negative")
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s, DB: %s, JWT: [REDACTED], RateLimit: %v, Workers: %d, Environment: %s}",
		c.Server.Port,
		redactURL(c.Database.URL),
		c.RateLimit.Enabled,
		c.Routing.Workers,
		c.App.Environment,
	)
}

// redactURL redacts sensitive parts of a database URL
func redactURL(url string) string {
	if url == "" {
		return ""
	}
	// Very basic redaction - in production you'd want something more robust
	if idx := strings.Index(url, "@"); idx > 0 {
		return "[REDACTED]" + url[idx:]
	}
	return "[REDACTED]"
}
