// Package config loads the service configuration from environment
// variables, with development defaults for everything but production
// secrets.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
)

// Config holds every setting the service reads at startup.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// Warning settings
	AnonymizeConversations bool   // hide the issuer from restricted recipients
	AnonymousUsername      string // display name of the anonymous moderator
	SummaryForumID         int64  // forum that receives a thread per warning
	SummaryThreadID        int64  // thread that receives a reply per warning
	PostingUserID          int64  // identity that authors summary posts
}

// Load reads the environment into a Config. In production mode it
// refuses to start on placeholder secrets.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "warnings"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "warnings"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		AnonymizeConversations: envBool("WARNING_ANONYMIZE_CONVERSATIONS"),
		AnonymousUsername:      envOrDefault("WARNING_ANONYMOUS_USERNAME", "Moderator"),
		SummaryForumID:         envInt64("WARNING_SUMMARY_FORUM_ID"),
		SummaryThreadID:        envInt64("WARNING_SUMMARY_THREAD_ID"),
		PostingUserID:          envInt64("WARNING_POSTING_USER_ID"),
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// IsDev reports whether the service runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, falling back when unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envBool reads a boolean environment variable; unset or malformed is false.
func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

// envInt64 reads an integer environment variable; unset or malformed is 0.
func envInt64(key string) int64 {
	v, _ := strconv.ParseInt(os.Getenv(key), 10, 64)
	return v
}
