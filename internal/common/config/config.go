// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	AI       AIConfig       `mapstructure:"ai"`
	Database DatabaseConfig `mapstructure:"database"`
	Template TemplateConfig `mapstructure:"template"`
	Apollo   ApolloConfig   `mapstructure:"apollo"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Stages   StagesConfig   `mapstructure:"stages"`
	Session  SessionConfig  `mapstructure:"session"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Addr            string `mapstructure:"addr"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // seconds
}

// AIConfig holds the generative model settings. TextModel serves template
// selection and content generation; ImageModel serves image generation.
type AIConfig struct {
	APIKey     string `mapstructure:"api_key"`
	TextModel  string `mapstructure:"text_model"`
	ImageModel string `mapstructure:"image_model"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type TemplateConfig struct {
	Dir string `mapstructure:"dir"`
}

// ApolloConfig holds settings for the contact-enrichment client.
type ApolloConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// DeliveryConfig holds settings for sending compiled emails via SES.
type DeliveryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
	From    string `mapstructure:"from"`
}

// StageConfig holds the core settings applicable to every pipeline stage.
type StageConfig struct {
	Timeout int `mapstructure:"timeout"` // milliseconds
}

func (s StageConfig) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Millisecond
}

type StagesConfig struct {
	Template    StageConfig `mapstructure:"template"`
	Content     StageConfig `mapstructure:"content"`
	Compilation StageConfig `mapstructure:"compilation"`
}

type SessionConfig struct {
	TTL int `mapstructure:"ttl"` // seconds
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
