// Package config loads the API server configuration from defaults, an
// optional YAML file and PAWMATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/pawmate/pawmate/pkg/logger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PAWMATE"

// ConfigPathEnv names the variable holding the YAML file path.
const ConfigPathEnv = "PAWMATE_CONFIG"

// Config is the complete process configuration.
type Config struct {
	Server    ServerConfig         `yaml:"server" envconfig:"server"`
	Database  DatabaseConfig       `yaml:"database" envconfig:"database"`
	Auth      AuthConfig           `yaml:"auth" envconfig:"auth"`
	Logging   logger.LoggingConfig `yaml:"logging" envconfig:"logging"`
	Media     MediaConfig          `yaml:"media" envconfig:"media"`
	Scan      ScanConfig           `yaml:"scan" envconfig:"scan"`
	Redis     RedisConfig          `yaml:"redis" envconfig:"redis"`
	RateLimit RateLimitConfig      `yaml:"rate_limit" envconfig:"rate_limit"`
	CORS      CORSConfig           `yaml:"cors" envconfig:"cors"`
	Jobs      JobsConfig           `yaml:"jobs" envconfig:"jobs"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"host"`
	Port            int           `yaml:"port" envconfig:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"shutdown_timeout"`
	AuditLogPath    string        `yaml:"audit_log_path" envconfig:"audit_log_path"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the PostgreSQL pool. An empty DSN selects the
// in-memory store.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" envconfig:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate" envconfig:"auto_migrate"`
}

type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret" envconfig:"jwt_secret"`
	Issuer      string        `yaml:"issuer" envconfig:"issuer"`
	TokenTTL    time.Duration `yaml:"token_ttl" envconfig:"token_ttl"`
	AdminEmails []string      `yaml:"admin_emails" envconfig:"admin_emails"`
}

// MediaConfig selects where uploaded images are stored.
type MediaConfig struct {
	Backend         string `yaml:"backend" envconfig:"backend"`
	LocalDir        string `yaml:"local_dir" envconfig:"local_dir"`
	PublicBaseURL   string `yaml:"public_base_url" envconfig:"public_base_url"`
	GCSBucket       string `yaml:"gcs_bucket" envconfig:"gcs_bucket"`
	GCSCredentials  string `yaml:"gcs_credentials" envconfig:"gcs_credentials"`
	GCSPublicPrefix string `yaml:"gcs_public_prefix" envconfig:"gcs_public_prefix"`
}

// ScanConfig selects the image classifier.
type ScanConfig struct {
	Provider       string        `yaml:"provider" envconfig:"provider"`
	OpenAIKey      string        `yaml:"openai_key" envconfig:"openai_key"`
	OpenAIModel    string        `yaml:"openai_model" envconfig:"openai_model"`
	OpenAIBaseURL  string        `yaml:"openai_base_url" envconfig:"openai_base_url"`
	InferenceURL   string        `yaml:"inference_url" envconfig:"inference_url"`
	InferenceKey   string        `yaml:"inference_key" envconfig:"inference_key"`
	LabelPath      string        `yaml:"label_path" envconfig:"label_path"`
	ConfidencePath string        `yaml:"confidence_path" envconfig:"confidence_path"`
	FindingsPath   string        `yaml:"findings_path" envconfig:"findings_path"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"timeout"`
}

type RedisConfig struct {
	URL string `yaml:"url" envconfig:"url"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second" envconfig:"requests_per_second"`
	Burst             int `yaml:"burst" envconfig:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"allowed_origins"`
}

type JobsConfig struct {
	Enabled          bool   `yaml:"enabled" envconfig:"enabled"`
	CompleteBookings string `yaml:"complete_bookings" envconfig:"complete_bookings"`
	StreakReminders  string `yaml:"streak_reminders" envconfig:"streak_reminders"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Auth: AuthConfig{
			Issuer:   "pawmate",
			TokenTTL: 24 * time.Hour,
		},
		Logging: logger.LoggingConfig{Level: "info", Format: "json"},
		Media: MediaConfig{
			Backend:       "local",
			LocalDir:      "data/media",
			PublicBaseURL: "/media",
		},
		Scan: ScanConfig{
			Provider:       "none",
			OpenAIModel:    "gpt-4o-mini",
			LabelPath:      "$.label",
			ConfidencePath: "$.confidence",
			Timeout:        30 * time.Second,
		},
		RateLimit: RateLimitConfig{RequestsPerSecond: 20, Burst: 40},
		CORS:      CORSConfig{AllowedOrigins: []string{"*"}},
		Jobs: JobsConfig{
			Enabled:          true,
			CompleteBookings: "@hourly",
			StreakReminders:  "0 19 * * *",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// PAWMATE_CONFIG (if any), then environment overrides.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv(ConfigPathEnv))
}

// LoadFrom is Load with an explicit file path. An empty path skips the file.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	} else if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 16 characters"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Media.Backend {
	case "local":
		if strings.TrimSpace(c.Media.LocalDir) == "" {
			errs = append(errs, errors.New("media.local_dir is required for local backend"))
		}
	case "gcs":
		if strings.TrimSpace(c.Media.GCSBucket) == "" {
			errs = append(errs, errors.New("media.gcs_bucket is required for gcs backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown media.backend %q", c.Media.Backend))
	}
	switch c.Scan.Provider {
	case "", "none":
	case "openai":
		if strings.TrimSpace(c.Scan.OpenAIKey) == "" {
			errs = append(errs, errors.New("scan.openai_key is required for openai provider"))
		}
	case "http":
		if strings.TrimSpace(c.Scan.InferenceURL) == "" {
			errs = append(errs, errors.New("scan.inference_url is required for http provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown scan.provider %q", c.Scan.Provider))
	}
	return errors.Join(errs...)
}

// IsAdminEmail reports whether email is listed in auth.admin_emails.
func (a AuthConfig) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, candidate := range a.AdminEmails {
		if strings.ToLower(strings.TrimSpace(candidate)) == email && email != "" {
			return true
		}
	}
	return false
}
