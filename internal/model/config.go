package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// OracleConfig selects and tunes the classification model.
type OracleConfig struct {
	// Provider is "anthropic" or "gemini".
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Model       string  `mapstructure:"model" yaml:"model"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	// BaseURL overrides the provider endpoint (used for proxies and tests).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// APIKeyEnv names an environment variable that takes precedence over the
	// keyring entry.
	APIKeyEnv string `mapstructure:"api_key_env" yaml:"api_key_env"`
}

// MailConfig selects the mail transport.
type MailConfig struct {
	// Provider is "gmail" or "imap".
	Provider string `mapstructure:"provider" yaml:"provider"`
	FetchMax int    `mapstructure:"fetch_max" yaml:"fetch_max"`

	// PollIntervalSec is how often the watcher checks for new mail.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	IMAPHost string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort string `mapstructure:"imap_port" yaml:"imap_port"`
	SMTPHost string `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort string `mapstructure:"smtp_port" yaml:"smtp_port"`
	Username string `mapstructure:"username" yaml:"username"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
}

// GoogleConfig holds OAuth client settings shared by Gmail and Calendar.
type GoogleConfig struct {
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	CalendarID      string `mapstructure:"calendar_id" yaml:"calendar_id"`
}

// ScheduleConfig holds the slot-resolution policy.
type ScheduleConfig struct {
	// Timezone is the IANA name or fixed offset label of local civil time.
	Timezone           string `mapstructure:"timezone" yaml:"timezone"`
	DefaultDurationMin int    `mapstructure:"default_duration_min" yaml:"default_duration_min"`
	StepMin            int    `mapstructure:"step_min" yaml:"step_min"`
	MaxProbes          int    `mapstructure:"max_probes" yaml:"max_probes"`
	CheckConflicts     bool   `mapstructure:"check_conflicts" yaml:"check_conflicts"`
	AutoResolve        bool   `mapstructure:"auto_resolve" yaml:"auto_resolve"`
}

// StoreConfig locates the local state database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Oracle   OracleConfig   `mapstructure:"oracle" yaml:"oracle"`
	Mail     MailConfig     `mapstructure:"mail" yaml:"mail"`
	Google   GoogleConfig   `mapstructure:"google" yaml:"google"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
}

// envPrefix scopes environment overrides, e.g. SMART_INBOX_ORACLE_MODEL.
const envPrefix = "SMART_INBOX"

// DefaultConfigDir returns ~/.config/smart-inbox.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "smart-inbox")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/smart-inbox/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// defaults maps every config key to its default value.
func defaults() map[string]any {
	return map[string]any{
		"oracle.provider":               "anthropic",
		"oracle.model":                  "claude-sonnet-4-5-20250929",
		"oracle.max_tokens":             1024,
		"oracle.temperature":            0.2,
		"oracle.base_url":               "",
		"oracle.api_key_env":            "",
		"mail.provider":                 "gmail",
		"mail.fetch_max":                10,
		"mail.poll_interval_sec":        120,
		"mail.imap_host":                "",
		"mail.imap_port":                "993",
		"mail.smtp_host":                "",
		"mail.smtp_port":                "465",
		"mail.username":                 "",
		"mail.tls":                      true,
		"google.credentials_file":       "credentials.json",
		"google.calendar_id":            "primary",
		"schedule.timezone":             "Asia/Kolkata",
		"schedule.default_duration_min": 30,
		"schedule.step_min":             30,
		"schedule.max_probes":           48,
		"schedule.check_conflicts":      true,
		"schedule.auto_resolve":         false,
		"store.path":                    filepath.Join(DefaultConfigDir(), "state.db"),
		"log.level":                     "info",
		"log.format":                    "console",
		"server.addr":                   ":8080",
	}
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	cfg := &AppConfig{}
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(cfg)
	return cfg
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A .env file in the working directory is loaded first so that environment
// overrides (SMART_INBOX_*) can live there. If the config file does not
// exist, defaults plus environment overrides are returned.
func LoadConfig(path string) (*AppConfig, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for k, val := range defaults() {
		v.SetDefault(k, val)
	}

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks enumerated settings and numeric bounds.
func (c *AppConfig) Validate() error {
	switch c.Oracle.Provider {
	case "anthropic", "gemini":
	default:
		return fmt.Errorf("oracle.provider %q must be anthropic or gemini", c.Oracle.Provider)
	}

	switch c.Mail.Provider {
	case "gmail":
	case "imap":
		if c.Mail.IMAPHost == "" || c.Mail.Username == "" {
			return fmt.Errorf("mail.imap_host and mail.username are required for imap")
		}
	default:
		return fmt.Errorf("mail.provider %q must be gmail or imap", c.Mail.Provider)
	}

	if c.Schedule.DefaultDurationMin <= 0 {
		return fmt.Errorf("schedule.default_duration_min must be positive")
	}
	if c.Schedule.StepMin <= 0 {
		return fmt.Errorf("schedule.step_min must be positive")
	}
	if c.Schedule.MaxProbes <= 0 {
		return fmt.Errorf("schedule.max_probes must be positive")
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

	v.Set("oracle", cfg.Oracle)
	v.Set("mail", cfg.Mail)
	v.Set("google", cfg.Google)
	v.Set("schedule", cfg.Schedule)
	v.Set("store", cfg.Store)
	v.Set("log", cfg.Log)
	v.Set("server", cfg.Server)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
