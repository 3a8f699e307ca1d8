// Package config loads runtime configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"opino-backend/infrastructure/ratelimit"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the full runtime configuration.
type Config struct {
	Environment   string
	ServerAddress string

	AWSRegion        string
	DynamoDBTable    string
	OwnerIndexName   string
	CommentIndexName string
	EventBusName     string
	MetricsNamespace string

	JWTSecret string
	JWTIssuer string

	TurnstileSecret string

	// DashboardOrigins is the CORS allow-list for the authenticated API.
	DashboardOrigins []string

	RateLimits map[ratelimit.EndpointClass]ratelimit.ClassLimit

	ThreadCacheTTL    time.Duration
	SiteCacheTTL      time.Duration
	DashboardCacheTTL time.Duration
}

// Load reads configuration from the environment, applying defaults suitable
// for local development.
func Load() *Config {
	return &Config{
		Environment:   getEnv("ENVIRONMENT", EnvDevelopment),
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),

		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		DynamoDBTable:    getEnv("DYNAMODB_TABLE", ""),
		OwnerIndexName:   getEnv("OWNER_INDEX_NAME", "GSI1"),
		CommentIndexName: getEnv("COMMENT_INDEX_NAME", "GSI2"),
		EventBusName:     getEnv("EVENT_BUS_NAME", ""),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "Opino"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "opino"),

		TurnstileSecret: getEnv("TURNSTILE_SECRET", ""),

		DashboardOrigins: getEnvList("DASHBOARD_ORIGINS", []string{"http://localhost:3000"}),

		RateLimits: map[ratelimit.EndpointClass]ratelimit.ClassLimit{
			ratelimit.ClassComment: {
				Limit:  getEnvInt("RATE_LIMIT_COMMENT", 5),
				Window: getEnvDuration("RATE_LIMIT_COMMENT_WINDOW", time.Minute),
			},
			ratelimit.ClassThread: {
				Limit:  getEnvInt("RATE_LIMIT_THREAD", 30),
				Window: getEnvDuration("RATE_LIMIT_THREAD_WINDOW", time.Minute),
			},
			ratelimit.ClassDashboard: {
				Limit:  getEnvInt("RATE_LIMIT_API", 100),
				Window: getEnvDuration("RATE_LIMIT_API_WINDOW", time.Minute),
			},
		},

		ThreadCacheTTL:    getEnvDuration("THREAD_CACHE_TTL", 30*time.Second),
		SiteCacheTTL:      getEnvDuration("SITE_CACHE_TTL", 5*time.Minute),
		DashboardCacheTTL: getEnvDuration("DASHBOARD_CACHE_TTL", time.Minute),
	}
}

// Validate rejects configurations that cannot run safely in production.
func (c *Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.DynamoDBTable == "" {
		return fmt.Errorf("DYNAMODB_TABLE is required in production")
	}
	return nil
}

// IsDevelopment reports whether this is a development configuration.
func (c *Config) IsDevelopment() bool { return c.Environment == EnvDevelopment }

// IsProduction reports whether this is a production configuration.
func (c *Config) IsProduction() bool { return c.Environment == EnvProduction }

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
