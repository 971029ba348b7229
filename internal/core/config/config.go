// Package config provides configuration management for the tagkeeper server.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"
)

// ServerConfig holds configuration for the HTTP API server.
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
}

// EngineConfig bounds the bulk rule application engine.
type EngineConfig struct {
	Workers            int
	BatchSize          int
	MaxConcurrentTasks int
	LeaseDuration      time.Duration
	PollInterval       time.Duration
}

// EventsConfig points at the Redis stream engine events are published to.
// An empty RedisURL disables publishing.
type EventsConfig struct {
	RedisURL string
	Stream   string
}

// Config is the full server configuration.
type Config struct {
	Server ServerConfig
	Engine EngineConfig
	Events EventsConfig
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			RequestTimeout: 30 * time.Second,
		},
		Engine: EngineConfig{
			Workers:            8,
			BatchSize:          500,
			MaxConcurrentTasks: 4,
			LeaseDuration:      time.Minute,
			PollInterval:       5 * time.Second,
		},
		Events: EventsConfig{
			RedisURL: "",
			Stream:   "tagkeeper:events",
		},
	}
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports TGK_HMAC_SECRET (single) and TGK_HMAC_SECRET_N (rotation).
// Returns a map of secret_id to decoded secret bytes. Secret IDs are
// UUIDs without hyphens (32 hex chars) matching the API key format.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	// Format: <secret_id>:<base64_secret>
	if val := os.Getenv("TGK_HMAC_SECRET"); val != "" {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return nil, fmt.Errorf("TGK_HMAC_SECRET: %w", err)
		}
		secrets[secretID] = decoded
	}

	// Numbered secrets enable rotation: old and new keys stay valid
	// during the migration window.
	for i := 1; ; i++ {
		key := fmt.Sprintf("TGK_HMAC_SECRET_%d", i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return nil, fmt.Errorf("duplicate secret_id '%s' found in environment variables (check TGK_HMAC_SECRET and TGK_HMAC_SECRET_* for conflicts)", secretID)
		}
		secrets[secretID] = decoded
	}

	return secrets, nil
}

// ParseHMACSecretWithID parses the <secret_id>:<base64_secret> format.
// The secret ID must be 32 hex chars (a UUID without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUID without hyphens)")
	}
	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(secret) < 32 {
		return "", nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(secret))
	}

	return secretID, secret, nil
}
