// Package config loads configuration for the filterdesk console.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "/etc/filterdesk/filterdesk.conf"
	configEnvVar      = "FILTERDESK_CONFIG"
)

// Config contains all runtime options required by the console.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	API     APIConfig     `mapstructure:"api"`
	Logging LoggingConfig `mapstructure:"logging"`
	Console ConsoleConfig `mapstructure:"-"`
}

// ServerConfig holds the console's own HTTP listener settings.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// APIConfig holds the remote settings API settings.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"-"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level            string `mapstructure:"level"`
	File             string `mapstructure:"file"`
	AuditLog         string `mapstructure:"audit_log"`
	ImportErrorLimit int    `mapstructure:"import_error_limit"`
}

// ConsoleConfig holds per-browser session settings.
type ConsoleConfig struct {
	SessionIdle  time.Duration `mapstructure:"session_idle"`
	MaxSessions  int           `mapstructure:"max_sessions"`
	ResolveWait  time.Duration `mapstructure:"resolve_wait"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
}

// ValidateLogLevel ensures the user-provided log level matches the supported set.
func ValidateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(level)] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", level)
	}
	return nil
}

// ValidateAddress confirms that an address string has a valid host and TCP port.
func ValidateAddress(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if port == "" {
		return errors.New("invalid port")
	}
	if err != nil {
		return fmt.Errorf("invalid address format %s: %w", addr, err)
	}
	if ip := net.ParseIP(host); ip == nil {
		return fmt.Errorf("invalid IP address: %s", host)
	}
	if _, err := net.LookupPort("tcp", port); err != nil {
		return fmt.Errorf("invalid port: %s", port)
	}
	return nil
}

// ParseBaseURL adds the http scheme when a base URL is provided without one
// and drops any trailing slash.
func ParseBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("empty base url")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("base url has no host")
	}
	return strings.TrimSuffix(u.String(), "/"), nil
}

// Setup loads the TOML configuration file and produces a Config instance.
// An empty path falls back to $FILTERDESK_CONFIG and then the default location.
func Setup(path string) (*Config, error) {
	configPath := strings.TrimSpace(path)
	if configPath == "" {
		configPath = defaultConfigPath
		if fromEnv := strings.TrimSpace(os.Getenv(configEnvVar)); fromEnv != "" {
			configPath = fromEnv
		}
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	return load(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	return decode(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var err error
	cfg.API.Timeout, err = parseDuration(v.GetString("api.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid api.timeout: %w", err)
	}

	cfg.Console, err = parseConsoleConfig(v)
	if err != nil {
		return nil, err
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", "127.0.0.1:8088")
	v.SetDefault("api.base_url", "http://settings.it")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "stdout")
	v.SetDefault("logging.import_error_limit", 20)
	v.SetDefault("console.session_idle", "30m")
	v.SetDefault("console.max_sessions", 256)
	v.SetDefault("console.resolve_wait", "2s")
	v.SetDefault("console.secure_cookie", false)
}

func parseDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

func parseConsoleConfig(v *viper.Viper) (ConsoleConfig, error) {
	raw := map[string]interface{}{
		"session_idle":  v.Get("console.session_idle"),
		"max_sessions":  v.Get("console.max_sessions"),
		"resolve_wait":  v.Get("console.resolve_wait"),
		"secure_cookie": v.Get("console.secure_cookie"),
	}

	var cfg ConsoleConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return ConsoleConfig{}, fmt.Errorf("console decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return ConsoleConfig{}, fmt.Errorf("parse console: %w", err)
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if err := ValidateLogLevel(cfg.Logging.Level); err != nil {
		return err
	}

	if cfg.Server.Listen == "" {
		return errors.New("server.listen is required")
	}
	if err := ValidateAddress(cfg.Server.Listen); err != nil {
		return fmt.Errorf("invalid server.listen: %w", err)
	}

	baseURL, err := ParseBaseURL(cfg.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid api.base_url: %w", err)
	}
	cfg.API.BaseURL = baseURL

	if cfg.API.Timeout < 0 {
		return errors.New("api.timeout must be >= 0")
	}

	if cfg.Logging.ImportErrorLimit < 0 {
		return errors.New("logging.import_error_limit must be >= 0")
	}

	if cfg.Console.MaxSessions <= 0 {
		return errors.New("console.max_sessions must be > 0")
	}
	if cfg.Console.SessionIdle <= 0 {
		return errors.New("console.session_idle must be > 0")
	}
	if cfg.Console.ResolveWait < 0 {
		return errors.New("console.resolve_wait must be >= 0")
	}

	return nil
}
