package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the flight assistant
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Slack     SlackConfig     `mapstructure:"slack"`
	Amadeus   AmadeusConfig   `mapstructure:"amadeus"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// SlackConfig contains the Slack app credentials and command settings.
// BotToken and SigningSecret are not validated at load time: the server
// reports their absence when the boundary is actually used.
type SlackConfig struct {
	BotToken      string `mapstructure:"bot_token"`
	SigningSecret string `mapstructure:"signing_secret"`
	Command       string `mapstructure:"command"`
}

// AmadeusConfig contains the Amadeus API credentials and endpoints.
// ClientID/ClientSecret absence is deliberately tolerated here; the request
// executor turns it into a credentials_error envelope per request.
type AmadeusConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	AuthURL      string        `mapstructure:"auth_url"`
	BaseURLV1    string        `mapstructure:"base_url_v1"`
	BaseURLV2    string        `mapstructure:"base_url_v2"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Normalize applies the Amadeus test environment defaults.
func (a AmadeusConfig) Normalize() AmadeusConfig {
	if strings.TrimSpace(a.AuthURL) == "" {
		a.AuthURL = "https://test.api.amadeus.com/v1/security/oauth2/token"
	}
	if strings.TrimSpace(a.BaseURLV1) == "" {
		a.BaseURLV1 = "https://test.api.amadeus.com/v1"
	}
	if strings.TrimSpace(a.BaseURLV2) == "" {
		a.BaseURLV2 = "https://test.api.amadeus.com/v2"
	}
	if a.Timeout <= 0 {
		a.Timeout = 30 * time.Second
	}
	return a
}

// LLMConfig contains the language model provider settings
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Normalize applies defaults for unset LLM values.
func (l LLMConfig) Normalize() LLMConfig {
	if strings.TrimSpace(l.BaseURL) == "" {
		l.BaseURL = "https://api.openai.com/v1"
	}
	if strings.TrimSpace(l.Model) == "" {
		l.Model = "gpt-4o-mini"
	}
	if l.Timeout <= 0 {
		l.Timeout = 120 * time.Second
	}
	return l
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings. An empty host disables the
// channel history feature.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a Redis connection is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Host) != ""
}

func (r RedisConfig) Validate() error {
	if !r.Enabled() {
		return nil
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required when host is set")
	}
	return nil
}

// PostgresConfig contains Postgres connection settings. Empty settings
// disable the query log.
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a Postgres connection is configured.
func (p PostgresConfig) Enabled() bool {
	return strings.TrimSpace(p.URL) != "" || strings.TrimSpace(p.Host) != ""
}

// DSN builds the connection string from the individual settings when a URL
// is not provided.
func (p PostgresConfig) DSN() (string, error) {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL, nil
	}
	if strings.TrimSpace(p.Host) == "" || strings.TrimSpace(p.DBName) == "" {
		return "", fmt.Errorf("postgres not configured (storage.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

func (p PostgresConfig) Validate() error {
	if !p.Enabled() {
		return nil
	}
	_, err := p.DSN()
	return err
}

// LoadConfig loads config from file, falling back to environment variables
// only when no config file is present.
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "3m")
	viper.SetDefault("server.address", ":10020")
	viper.SetDefault("slack.command", "/flights")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("telemetry.enabled", true)

	// Secrets are usually env-only; registering the keys lets AutomaticEnv
	// feed them through Unmarshal without a config file entry.
	for _, key := range []string{
		"slack.bot_token", "slack.signing_secret",
		"amadeus.client_id", "amadeus.client_secret",
		"llm.api_key", "llm.model", "llm.base_url",
		"storage.redis.host", "storage.redis.port", "storage.redis.password",
		"storage.postgres.url",
	} {
		viper.SetDefault(key, "")
	}

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("FLIGHTDECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine (env-only deployment); an explicit path or a
		// malformed file is not.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Amadeus = cfg.Amadeus.Normalize()
	cfg.LLM = cfg.LLM.Normalize()

	if err := cfg.Storage.Redis.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.Postgres.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
