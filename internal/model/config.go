package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ProviderEndpoint holds the connection settings for one upstream service.
type ProviderEndpoint struct {
	// BaseURL is the root URL of the provider's REST API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// ProvidersConfig holds settings shared by, and specific to, each provider.
type ProvidersConfig struct {
	MailGW     ProviderEndpoint `mapstructure:"mailgw" yaml:"mailgw"`
	OneSecMail ProviderEndpoint `mapstructure:"onesecmail" yaml:"onesecmail"`

	// RateLimit caps outgoing requests per second to a provider.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`

	// RequestTimeoutSec bounds a single HTTP exchange. Zero means no
	// client-side timeout.
	RequestTimeoutSec int `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
}

// SessionConfig controls mailbox lifetime and the two recurring tickers.
type SessionConfig struct {
	LifetimeSec         int `mapstructure:"lifetime_sec" yaml:"lifetime_sec"`
	CountdownIntervalMs int `mapstructure:"countdown_interval_ms" yaml:"countdown_interval_ms"`
	PollIntervalMs      int `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
}

// LogConfig controls the zap logger and its rotating file sink.
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
	File        string `mapstructure:"file" yaml:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// HistoryConfig controls the local record of allocated mailboxes.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ServeConfig holds settings for the browser surface.
type ServeConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Provider  ProviderType    `mapstructure:"provider" yaml:"provider"`
	Providers ProvidersConfig `mapstructure:"providers" yaml:"providers"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	History   HistoryConfig   `mapstructure:"history" yaml:"history"`
	Serve     ServeConfig     `mapstructure:"serve" yaml:"serve"`
}

// Lifetime returns the fixed mailbox lifetime.
func (c SessionConfig) Lifetime() time.Duration {
	return time.Duration(c.LifetimeSec) * time.Second
}

// CountdownInterval returns the countdown ticker period.
func (c SessionConfig) CountdownInterval() time.Duration {
	return time.Duration(c.CountdownIntervalMs) * time.Millisecond
}

// PollInterval returns the message poll ticker period.
func (c SessionConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout.
func (c ProvidersConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// ConfigDir returns ~/.config/tempmail, falling back to the working
// directory when the home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "tempmail")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/tempmail/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// setDefaults registers every default so missing keys resolve sensibly
// and so environment overrides are picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", string(ProviderMailGW))
	v.SetDefault("providers.mailgw.base_url", "https://api.mail.gw")
	v.SetDefault("providers.onesecmail.base_url", "https://www.1secmail.com/api/v1/")
	v.SetDefault("providers.rate_limit", 8.0)
	v.SetDefault("providers.request_timeout_sec", 30)
	v.SetDefault("session.lifetime_sec", 600)
	v.SetDefault("session.countdown_interval_ms", 1000)
	v.SetDefault("session.poll_interval_ms", 5000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", filepath.Join(ConfigDir(), "tempmail.log"))
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", filepath.Join(ConfigDir(), "history.db"))
	v.SetDefault("serve.addr", "127.0.0.1:8025")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// TEMPMAIL_* environment variables override file values, and flags override
// both. A missing file is not an error.
func LoadConfig(path string, flags *pflag.FlagSet) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TEMPMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects settings that would leave the session tickers unusable.
func (c *AppConfig) Validate() error {
	switch c.Provider {
	case ProviderMailGW, ProviderOneSecMail:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Session.LifetimeSec <= 0 {
		return errors.New("session.lifetime_sec must be positive")
	}
	if c.Session.CountdownIntervalMs <= 0 {
		return errors.New("session.countdown_interval_ms must be positive")
	}
	if c.Session.PollIntervalMs <= 0 {
		return errors.New("session.poll_interval_ms must be positive")
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("provider", string(cfg.Provider))
	v.Set("providers", cfg.Providers)
	v.Set("session", cfg.Session)
	v.Set("log", cfg.Log)
	v.Set("history", cfg.History)
	v.Set("serve", cfg.Serve)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
