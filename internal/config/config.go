package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Worker       WorkerConfig       `yaml:"worker"`
	Verification VerificationConfig `yaml:"verification"`
	Webhooks     WebhookConfig      `yaml:"webhooks"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
	// AdminKey grants privileged access (job cancellation, debug log
	// lines, SMTP sentinel endpoints) via the X-Admin-Key header.
	// Empty disables privileged access entirely.
	AdminKey       string   `yaml:"admin_key"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Addr returns the host:port the server listens on.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnMaxLifetime returns the connection lifetime as a duration
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// RedisConfig holds Redis connection settings. An empty Addr disables
// Redis; verification then runs without the shared SMTP sentinel and the
// reaper falls back to Postgres advisory locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// WorkerConfig holds job executor settings
type WorkerConfig struct {
	NumWorkers          int `yaml:"num_workers"`
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
}

// PollInterval returns the claim poll interval as a duration
func (c WorkerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// VerificationConfig holds the global verification defaults. Workspaces
// override these per-key through the config API.
type VerificationConfig struct {
	SMTPTimeoutSeconds int     `yaml:"smtp_timeout_seconds"`
	DNSTimeoutSeconds  float64 `yaml:"dns_timeout_seconds"`
	MailFrom           string  `yaml:"mail_from"`
}

// WebhookConfig holds webhook delivery settings
type WebhookConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the per-delivery timeout as a duration
func (c WebhookConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 10
	}
	if cfg.Database.ConnMaxLifetimeMinutes == 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}
	if cfg.Worker.NumWorkers == 0 {
		cfg.Worker.NumWorkers = 4
	}
	if cfg.Worker.PollIntervalSeconds == 0 {
		cfg.Worker.PollIntervalSeconds = 2
	}
	if cfg.Verification.SMTPTimeoutSeconds == 0 {
		cfg.Verification.SMTPTimeoutSeconds = 5
	}
	if cfg.Verification.DNSTimeoutSeconds == 0 {
		cfg.Verification.DNSTimeoutSeconds = 5.0
	}
	if cfg.Webhooks.TimeoutSeconds == 0 {
		cfg.Webhooks.TimeoutSeconds = 10
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
// A missing config file is fine; everything can come from the environment.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
		applyDefaults(cfg)
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("ADMIN_API_KEY"); v != "" {
		cfg.Server.AdminKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Worker.NumWorkers = n
		}
	}
	if v := os.Getenv("SMTP_MAIL_FROM"); v != "" {
		cfg.Verification.MailFrom = v
	}

	return cfg, nil
}
