// Package config loads application configuration from defaults, a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
// NEWSLETTER_EMAIL_CLIENT__BASE_URL maps to email_client.base_url.
const EnvPrefix = "NEWSLETTER_"

// Config is the root application configuration.
// It is built once by Load and must not be modified afterwards.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Log         LogConfig         `koanf:"log"`
	EmailClient EmailClientConfig `koanf:"email_client"`
	CORS        CORSConfig        `koanf:"cors"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port" validate:"required"`
	MetricsPort       string        `koanf:"metrics_port" validate:"required"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout" validate:"gt=0"`
	ConnectAttempts int           `koanf:"connect_attempts" validate:"gte=1"`
	// MigrationsSource enables migrations on startup when set, e.g. "file://migrations".
	MigrationsSource string `koanf:"migrations_source"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

// EmailClientConfig configures the transactional email provider client.
type EmailClientConfig struct {
	BaseURL            string        `koanf:"base_url" validate:"required,url"`
	SenderEmail        string        `koanf:"sender_email" validate:"required,email"`
	AuthorizationToken string        `koanf:"authorization_token" validate:"required"`
	Timeout            time.Duration `koanf:"timeout" validate:"gt=0"`
	// RateLimit caps provider requests per second. Zero disables throttling.
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`
	// ConfirmationBaseURL is the public URL of this service used in confirmation links.
	ConfirmationBaseURL string `koanf:"confirmation_base_url" validate:"required,url"`
}

// CORSConfig configures cross-origin access for browser form posts.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.host":                "0.0.0.0",
		"server.port":                "8000",
		"server.metrics_port":        "9090",
		"server.read_timeout":        "15s",
		"server.read_header_timeout": "5s",
		"server.write_timeout":       "15s",
		"server.idle_timeout":        "60s",
		"database.max_open_conns":    10,
		"database.max_idle_conns":    2,
		"database.conn_max_lifetime": "30m",
		"database.connect_timeout":   "30s",
		"database.connect_attempts":  5,
		"log.level":                  "info",
		"log.format":                 "json",
		"email_client.timeout":       "10s",
	}
}

// Load builds the configuration. Sources, lowest precedence first:
// built-in defaults, the YAML file at path (skipped when path is empty),
// a .env file in the working directory (if present) and NEWSLETTER_* variables.
func Load(path string) (*Config, error) {
	if err := LoadDotenv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// envKey maps NEWSLETTER_EMAIL_CLIENT__BASE_URL to email_client.base_url.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// LoadDotenv copies variables from ./.env into the process environment.
// Variables that are already set keep their values. A missing file is not an error.
func LoadDotenv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// ConfigPathFromEnv returns the config file path from NEWSLETTER_CONFIG_FILE.
func ConfigPathFromEnv() string {
	return os.Getenv(EnvPrefix + "CONFIG_FILE")
}
