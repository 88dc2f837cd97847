// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like GEMINI_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overrides, e.g. config.production.yaml
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig() // ignore error if not found

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideFromEnv(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the usual locations so the server can run from
// the repo root or from a package directory.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	for _, p := range possiblePaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "email-assistant"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10
	}
	if cfg.AI.TextModel == "" {
		cfg.AI.TextModel = "gemini-2.0-flash"
	}
	if cfg.AI.ImageModel == "" {
		cfg.AI.ImageModel = "imagen-3.0-generate-002"
	}
	if cfg.Template.Dir == "" {
		cfg.Template.Dir = "templates"
	}
	if cfg.Apollo.BaseURL == "" {
		cfg.Apollo.BaseURL = "https://api.apollo.io/v1"
	}
	if cfg.Stages.Template.Timeout <= 0 {
		cfg.Stages.Template.Timeout = 30000
	}
	if cfg.Stages.Content.Timeout <= 0 {
		cfg.Stages.Content.Timeout = 120000
	}
	if cfg.Stages.Compilation.Timeout <= 0 {
		cfg.Stages.Compilation.Timeout = 10000
	}
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = 86400
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Database.Postgres.MaxConnections <= 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle <= 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
}

// overrideFromEnv fills secrets directly from the environment when viper did
// not pick them up from a config file.
func overrideFromEnv(cfg *Config) {
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Apollo.APIKey == "" {
		cfg.Apollo.APIKey = os.Getenv("APOLLO_API_KEY")
	}
}

func validateConfig(cfg *Config) error {
	if cfg.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key (or GEMINI_API_KEY) is required")
	}
	if cfg.Delivery.Enabled && cfg.Delivery.From == "" {
		return fmt.Errorf("delivery.from is required when delivery is enabled")
	}
	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when redis is enabled")
	}
	return nil
}
