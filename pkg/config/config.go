package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for study-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis realtime tier (optional)
	Redis RedisConfig `yaml:"redis"`

	// AI completion endpoint
	AI AIConfig `yaml:"ai"`

	// Unattended generation defaults
	Pilot PilotConfig `yaml:"pilot"`

	// Path for the persisted local state file
	LocalStatePath string `yaml:"local_state_path" env:"LOCAL_STATE_PATH" env-default:"local_state.json"`

	// JWT signing secret for the admin HTTP surface
	JWTSecret string `yaml:"-" env:"JWT_SECRET"` // Secret - not in YAML
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"study"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"study_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds the realtime tier connection settings.
// Leave Host empty to run without Redis.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// AIConfig holds the completion endpoint settings.
type AIConfig struct {
	Endpoint string `yaml:"endpoint" env:"AI_ENDPOINT" env-default:"https://api.groq.com/openai/v1"`
	APIKey   string `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML
	Model    string `yaml:"model" env:"AI_MODEL" env-default:"llama-3.3-70b-versatile"`

	// AllowedModelsStr is a comma-separated allow-list. A requested model
	// outside the list falls back to Model.
	AllowedModelsStr string `yaml:"allowed_models" env:"AI_ALLOWED_MODELS" env-default:""`

	// AllowedModels is the parsed list from AllowedModelsStr.
	AllowedModels []string `yaml:"-"`
}

// PilotConfig holds defaults for unattended generation runs.
type PilotConfig struct {
	// Concurrency caps parallel chapter tasks within one class batch.
	Concurrency int `yaml:"concurrency" env:"PILOT_CONCURRENCY" env-default:"3"`
	// MCQConcurrency caps parallel question batches for a single request.
	MCQConcurrency int `yaml:"mcq_concurrency" env:"PILOT_MCQ_CONCURRENCY" env-default:"50"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	cfg.AI.AllowedModels = parseList(cfg.AI.AllowedModelsStr)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.AI.Endpoint == "" {
		return fmt.Errorf("ai.endpoint must be set")
	}
	if c.AI.Model == "" {
		return fmt.Errorf("ai.model must be set")
	}
	if c.Pilot.Concurrency < 1 {
		return fmt.Errorf("pilot.concurrency must be at least 1")
	}
	return nil
}

// parseList splits a comma-separated value, trimming whitespace and
// dropping empty entries.
func parseList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
