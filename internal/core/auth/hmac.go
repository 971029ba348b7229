package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseAPIKey extracts secret_id and random_data from an API key.
// Format: tgk-v1-<secret_id>-<random_data> where secret_id is 32 hex chars
// (a UUID without hyphens) and random_data is 64 hex chars (256 bits).
func ParseAPIKey(key string) (secretID, randomData string, err error) {
	parts := strings.Split(key, "-")
	if len(parts) != 4 {
		return "", "", ErrInvalidKeyFormat
	}
	if parts[0] != "tgk" || parts[1] != "v1" {
		return "", "", ErrInvalidKeyFormat
	}

	secretID = parts[2]
	randomData = parts[3]
	if len(secretID) != 32 || len(randomData) != 64 {
		return "", "", ErrInvalidKeyFormat
	}
	for _, c := range secretID + randomData {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", "", ErrInvalidKeyFormat
		}
	}

	return secretID, randomData, nil
}

// ComputeKeyHash returns the hex-encoded HMAC-SHA256 of the full API key.
// This is what the api_keys table stores; the raw key is never persisted.
func ComputeKeyHash(secret []byte, apiKey string) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(apiKey))
	return hex.EncodeToString(h.Sum(nil))
}

// FormatAPIKey constructs an API key from its components.
func FormatAPIKey(secretID, randomData string) string {
	return fmt.Sprintf("tgk-v1-%s-%s", secretID, randomData)
}

// GenerateAPIKey mints a new API key under the given secret ID with 256
// bits of fresh randomness. Used by the apikey-create command; the caller
// stores ComputeKeyHash of the result.
func GenerateAPIKey(secretID string) (string, error) {
	if len(secretID) != 32 {
		return "", ErrInvalidKeyFormat
	}
	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return "", fmt.Errorf("generating key material: %w", err)
	}
	return FormatAPIKey(secretID, hex.EncodeToString(random)), nil
}
