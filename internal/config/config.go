package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/samvad-hq/shapes-probe/pkg/reporters"
)

const redacted = "[redacted]"

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name" yaml:"app_name"`
	Env      string `mapstructure:"app_env" yaml:"app_env"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	HelloURL           string        `mapstructure:"hello_url" yaml:"hello_url"`
	ShapesURL          string        `mapstructure:"shapes_url" yaml:"shapes_url"`
	ShapesAPIKey       string        `mapstructure:"shapes_api_key" yaml:"shapes_api_key"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds" yaml:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-" yaml:"-"`

	WatchIntervalSeconds int64         `mapstructure:"watch_interval" yaml:"watch_interval"`
	WatchInterval        time.Duration `mapstructure:"-" yaml:"-"`

	HistoryType            string        `mapstructure:"history_type" yaml:"history_type"`
	HistoryPath            string        `mapstructure:"history_path" yaml:"history_path"`
	HistoryTTLSeconds      int64         `mapstructure:"history_ttl_seconds" yaml:"history_ttl_seconds"`
	HistoryCleanupSeconds  int64         `mapstructure:"history_cleanup_interval_seconds" yaml:"history_cleanup_interval_seconds"`
	HistoryTTL             time.Duration `mapstructure:"-" yaml:"-"`
	HistoryCleanupInterval time.Duration `mapstructure:"-" yaml:"-"`

	ReportersFile string             `mapstructure:"reporters_file" yaml:"reporters_file"`
	Reporters     []reporters.Config `mapstructure:"-" yaml:"reporters,omitempty"`

	IconDir  string `mapstructure:"icon_dir" yaml:"icon_dir"`
	IconSize int    `mapstructure:"icon_size" yaml:"icon_size"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "shapes-probe")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("hello_url", "https://shapes.approov.io/v1/hello/")
	v.SetDefault("shapes_url", "https://shapes.approov.io/v1/shapes/")
	v.SetDefault("shapes_api_key", "yXClypapWNHIifHUWmBIyPFAm")
	v.SetDefault("http_timeout_seconds", 0)
	v.SetDefault("watch_interval", 30) // seconds
	v.SetDefault("history_type", "bbolt")
	v.SetDefault("history_path", "./data/history.db")
	v.SetDefault("history_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("history_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
	v.SetDefault("reporters_file", "")
	v.SetDefault("icon_dir", "")
	v.SetDefault("icon_size", 128)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if cfg.ReportersFile != "" {
		list, err := LoadReporters(cfg.ReportersFile)
		if err != nil {
			return nil, err
		}
		cfg.Reporters = list
	}
	return &cfg, nil
}

// LoadReporters reads the reporters list from a YAML, JSON or TOML file. The
// format follows the file extension.
func LoadReporters(path string) ([]reporters.Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read reporters file: %w", err)
	}

	var list []reporters.Config
	if err := v.UnmarshalKey("reporters", &list); err != nil {
		return nil, fmt.Errorf("unmarshal reporters: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("reporters file %s declares no reporters", path)
	}

	list, err := reporters.Prepare(list)
	if err != nil {
		return nil, fmt.Errorf("reporters file %s: %w", path, err)
	}
	return list, nil
}

// Redacted returns a copy that is safe to log or print.
func (cfg Config) Redacted() Config {
	out := cfg
	if out.ShapesAPIKey != "" {
		out.ShapesAPIKey = redacted
	}
	if len(cfg.Reporters) > 0 {
		out.Reporters = make([]reporters.Config, len(cfg.Reporters))
		for i, r := range cfg.Reporters {
			out.Reporters[i] = r.Redacted()
		}
	}
	return out
}

func (cfg *Config) normalize() error {
	cfg.HelloURL = strings.TrimSpace(cfg.HelloURL)
	cfg.ShapesURL = strings.TrimSpace(cfg.ShapesURL)
	if cfg.HelloURL == "" {
		return fmt.Errorf("invalid hello_url (must not be empty)")
	}
	if cfg.ShapesURL == "" {
		return fmt.Errorf("invalid shapes_url (must not be empty)")
	}

	if cfg.HTTPTimeoutSeconds < 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be zero or positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.WatchIntervalSeconds <= 0 {
		return fmt.Errorf("invalid watch_interval (must be positive seconds)")
	}
	cfg.WatchInterval = time.Duration(cfg.WatchIntervalSeconds) * time.Second

	if cfg.HistoryTTLSeconds <= 0 {
		return fmt.Errorf("invalid history_ttl_seconds (must be positive seconds)")
	}
	if cfg.HistoryCleanupSeconds <= 0 {
		return fmt.Errorf("invalid history_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.HistoryTTL = time.Duration(cfg.HistoryTTLSeconds) * time.Second
	cfg.HistoryCleanupInterval = time.Duration(cfg.HistoryCleanupSeconds) * time.Second

	if cfg.IconSize <= 0 {
		return fmt.Errorf("invalid icon_size (must be positive pixels)")
	}
	return nil
}
