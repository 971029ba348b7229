package config

import (
	"os"
	"testing"
	"time"
)

func TestHMACSecrets(t *testing.T) {
	os.Unsetenv("TGK_HMAC_SECRET")
	os.Unsetenv("TGK_HMAC_SECRET_1")
	os.Unsetenv("TGK_HMAC_SECRET_2")

	t.Run("single secret", func(t *testing.T) {
		os.Setenv("TGK_HMAC_SECRET", "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("TGK_HMAC_SECRET")

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 1 {
			t.Errorf("expected 1 secret, got %d", len(secrets))
		}
		if _, ok := secrets["0123456789abcdef0123456789abcdef"]; !ok {
			t.Errorf("secret_id not found in map")
		}
	})

	t.Run("multiple numbered secrets", func(t *testing.T) {
		os.Setenv("TGK_HMAC_SECRET_1", "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		os.Setenv("TGK_HMAC_SECRET_2", "fedcba9876543210fedcba9876543210:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("TGK_HMAC_SECRET_1")
		defer os.Unsetenv("TGK_HMAC_SECRET_2")

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 2 {
			t.Errorf("expected 2 secrets, got %d", len(secrets))
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		os.Setenv("TGK_HMAC_SECRET", "invalid_format")
		defer os.Unsetenv("TGK_HMAC_SECRET")

		if _, err := HMACSecrets(); err == nil {
			t.Error("expected error for invalid format")
		}
	})

	t.Run("duplicate secret_id between single and numbered", func(t *testing.T) {
		os.Setenv("TGK_HMAC_SECRET", "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		os.Setenv("TGK_HMAC_SECRET_1", "0123456789abcdef0123456789abcdef:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("TGK_HMAC_SECRET")
		defer os.Unsetenv("TGK_HMAC_SECRET_1")

		if _, err := HMACSecrets(); err == nil {
			t.Error("expected error for duplicate secret_id")
		}
	})
}

func TestLoadConfig(t *testing.T) {
	os.Unsetenv("TGK_SERVER_HOST")
	os.Unsetenv("TGK_SERVER_PORT")

	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Host != "0.0.0.0" {
			t.Errorf("expected host 0.0.0.0, got %s", cfg.Server.Host)
		}
		if cfg.Server.Port != 8080 {
			t.Errorf("expected port 8080, got %d", cfg.Server.Port)
		}
		if cfg.Server.RequestTimeout != 30*time.Second {
			t.Errorf("expected timeout 30s, got %v", cfg.Server.RequestTimeout)
		}
		if cfg.Engine.Workers != 8 {
			t.Errorf("expected workers 8, got %d", cfg.Engine.Workers)
		}
		if cfg.Engine.BatchSize != 500 {
			t.Errorf("expected batch_size 500, got %d", cfg.Engine.BatchSize)
		}
		if cfg.Engine.LeaseDuration != time.Minute {
			t.Errorf("expected lease_duration 1m, got %v", cfg.Engine.LeaseDuration)
		}
		if cfg.Events.Stream != "tagkeeper:events" {
			t.Errorf("expected stream tagkeeper:events, got %s", cfg.Events.Stream)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		os.Setenv("TGK_SERVER_PORT", "9999")
		os.Setenv("TGK_SERVER_HOST", "127.0.0.1")
		os.Setenv("TGK_ENGINE_WORKERS", "2")
		defer os.Unsetenv("TGK_SERVER_PORT")
		defer os.Unsetenv("TGK_SERVER_HOST")
		defer os.Unsetenv("TGK_ENGINE_WORKERS")

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 9999 {
			t.Errorf("expected port 9999, got %d", cfg.Server.Port)
		}
		if cfg.Server.Host != "127.0.0.1" {
			t.Errorf("expected host 127.0.0.1, got %s", cfg.Server.Host)
		}
		if cfg.Engine.Workers != 2 {
			t.Errorf("expected workers 2, got %d", cfg.Engine.Workers)
		}
	})

	t.Run("invalid port range", func(t *testing.T) {
		os.Setenv("TGK_SERVER_PORT", "70000")
		defer os.Unsetenv("TGK_SERVER_PORT")

		if _, err := LoadConfig(""); err == nil {
			t.Error("expected error for port > 65535")
		}
	})

	t.Run("invalid negative values", func(t *testing.T) {
		os.Setenv("TGK_ENGINE_BATCH_SIZE", "-1")
		defer os.Unsetenv("TGK_ENGINE_BATCH_SIZE")

		if _, err := LoadConfig(""); err == nil {
			t.Error("expected error for negative batch_size")
		}
	})

	t.Run("config file", func(t *testing.T) {
		tmpfile, err := os.CreateTemp("", "config-*.yaml")
		if err != nil {
			t.Fatal(err)
		}
		defer os.Remove(tmpfile.Name())

		configContent := `server:
  port: 9090
engine:
  workers: 3
`
		if _, err := tmpfile.Write([]byte(configContent)); err != nil {
			t.Fatal(err)
		}
		tmpfile.Close()

		cfg, err := LoadConfig(tmpfile.Name())
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 9090 {
			t.Errorf("expected port 9090, got %d", cfg.Server.Port)
		}
		if cfg.Engine.Workers != 3 {
			t.Errorf("expected workers 3, got %d", cfg.Engine.Workers)
		}
	})

	t.Run("secret in config file rejected", func(t *testing.T) {
		tmpfile, err := os.CreateTemp("", "config-*.yaml")
		if err != nil {
			t.Fatal(err)
		}
		defer os.Remove(tmpfile.Name())

		configContent := `server:
  hmac_secret: "should_be_rejected"
`
		if _, err := tmpfile.Write([]byte(configContent)); err != nil {
			t.Fatal(err)
		}
		tmpfile.Close()

		if _, err := LoadConfig(tmpfile.Name()); err == nil {
			t.Error("expected error for secret in config file")
		}
	})
}

func TestParseHMACSecretWithID(t *testing.T) {
	t.Run("valid format", func(t *testing.T) {
		secretID, secret, err := ParseHMACSecretWithID("0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		if err != nil {
			t.Fatalf("ParseHMACSecretWithID failed: %v", err)
		}
		if secretID != "0123456789abcdef0123456789abcdef" {
			t.Errorf("unexpected secret_id: %s", secretID)
		}
		if len(secret) < 32 {
			t.Errorf("secret too short: %d bytes", len(secret))
		}
	})

	t.Run("missing colon", func(t *testing.T) {
		if _, _, err := ParseHMACSecretWithID("0123456789abcdef0123456789abcdef"); err == nil {
			t.Error("expected error for missing colon")
		}
	})

	t.Run("invalid secret_id length", func(t *testing.T) {
		if _, _, err := ParseHMACSecretWithID("tooshort:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"); err == nil {
			t.Error("expected error for short secret_id")
		}
	})

	t.Run("non-hex chars in secret_id", func(t *testing.T) {
		if _, _, err := ParseHMACSecretWithID("0123456789abcdefGHIJKLMNOPQRSTUV:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"); err == nil {
			t.Error("expected error for non-hex secret_id")
		}
	})

	t.Run("secret too short", func(t *testing.T) {
		if _, _, err := ParseHMACSecretWithID("0123456789abcdef0123456789abcdef:c2hvcnQ="); err == nil {
			t.Error("expected error for secret < 32 bytes")
		}
	})
}
