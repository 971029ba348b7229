package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// Precedence: CLI flags > environment > config file > defaults.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.request_timeout", defaults.Server.RequestTimeout.String())
	v.SetDefault("engine.workers", defaults.Engine.Workers)
	v.SetDefault("engine.batch_size", defaults.Engine.BatchSize)
	v.SetDefault("engine.max_concurrent_tasks", defaults.Engine.MaxConcurrentTasks)
	v.SetDefault("engine.lease_duration", defaults.Engine.LeaseDuration.String())
	v.SetDefault("engine.poll_interval", defaults.Engine.PollInterval.String())
	v.SetDefault("events.redis_url", defaults.Events.RedisURL)
	v.SetDefault("events.stream", defaults.Events.Stream)

	v.SetEnvPrefix("TGK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets are environment-only; a config file carrying one is a
	// deployment mistake worth failing loudly on.
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
		},
		Engine: EngineConfig{
			Workers:            v.GetInt("engine.workers"),
			BatchSize:          v.GetInt("engine.batch_size"),
			MaxConcurrentTasks: v.GetInt("engine.max_concurrent_tasks"),
			LeaseDuration:      v.GetDuration("engine.lease_duration"),
			PollInterval:       v.GetDuration("engine.poll_interval"),
		},
		Events: EventsConfig{
			RedisURL: v.GetString("events.redis_url"),
			Stream:   v.GetString("events.stream"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Engine.Workers <= 0 {
		return fmt.Errorf("engine.workers must be positive, got %d", cfg.Engine.Workers)
	}
	if cfg.Engine.BatchSize <= 0 {
		return fmt.Errorf("engine.batch_size must be positive, got %d", cfg.Engine.BatchSize)
	}
	if cfg.Engine.MaxConcurrentTasks <= 0 {
		return fmt.Errorf("engine.max_concurrent_tasks must be positive, got %d", cfg.Engine.MaxConcurrentTasks)
	}
	if cfg.Engine.LeaseDuration <= 0 {
		return fmt.Errorf("engine.lease_duration must be positive, got %v", cfg.Engine.LeaseDuration)
	}
	if cfg.Engine.PollInterval <= 0 {
		return fmt.Errorf("engine.poll_interval must be positive, got %v", cfg.Engine.PollInterval)
	}
	if cfg.Events.Stream == "" {
		return fmt.Errorf("events.stream must not be empty")
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.IsSet("hmac_secret") || v.IsSet("server.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use TGK_HMAC_SECRET environment variable)")
	}
	return nil
}
