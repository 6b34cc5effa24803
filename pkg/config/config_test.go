package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestValidateLogLevel(t *testing.T) {
	validLevels := []string{"debug", "info", "warn", "error", "DEBUG", "INFO", "WARN", "ERROR"}
	for _, level := range validLevels {
		if err := ValidateLogLevel(level); err != nil {
			t.Errorf("ValidateLogLevel(%s) returned error: %v", level, err)
		}
	}

	invalidLevels := []string{"", "trace", "fatal", "invalid", "debugging"}
	for _, level := range invalidLevels {
		if err := ValidateLogLevel(level); err == nil {
			t.Errorf("ValidateLogLevel(%s) should return error", level)
		}
	}
}

func TestValidateAddress(t *testing.T) {
	validAddresses := []string{
		"127.0.0.1:8088",
		"0.0.0.0:80",
		"192.168.1.1:8443",
	}
	for _, addr := range validAddresses {
		if err := ValidateAddress(addr); err != nil {
			t.Errorf("ValidateAddress(%s) returned error: %v", addr, err)
		}
	}

	invalidAddresses := []string{
		"localhost:8088",       // not IP
		"127.0.0.1",            // no port
		"256.256.256.256:8088", // invalid IP
		"127.0.0.1:999999",     // invalid port
		":8088",                // missing IP
		"127.0.0.1:",           // missing port
	}
	for _, addr := range invalidAddresses {
		if err := ValidateAddress(addr); err == nil {
			t.Errorf("ValidateAddress(%s) should return error", addr)
		}
	}
}

func TestParseBaseURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"settings.it", "http://settings.it", false},
		{"http://settings.it/", "http://settings.it", false},
		{"https://10.0.0.5:8443", "https://10.0.0.5:8443", false},
		{"  settings.it:8080  ", "http://settings.it:8080", false},
		{"", "", true},
		{"ftp://settings.it", "", true},
		{"http://", "", true},
	}

	for _, tt := range tests {
		result, err := ParseBaseURL(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseBaseURL(%q) should return error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseBaseURL(%q) returned error: %v", tt.input, err)
			continue
		}
		if result != tt.expected {
			t.Errorf("ParseBaseURL(%q) = %s, want %s", tt.input, result, tt.expected)
		}
	}
}

func TestSetupReadsTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filterdesk.conf")
	content := `
[server]
listen = "127.0.0.1:9090"

[api]
base_url = "settings.it:8080"
timeout = "3s"

[logging]
level = "debug"
audit_log = "/tmp/audit.log"

[console]
session_idle = "5m"
max_sessions = 8
resolve_wait = "250ms"
secure_cookie = true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Setup(path)
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}

	if cfg.Server.Listen != "127.0.0.1:9090" {
		t.Errorf("server.listen = %s", cfg.Server.Listen)
	}
	if cfg.API.BaseURL != "http://settings.it:8080" {
		t.Errorf("api.base_url = %s", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("api.timeout = %s", cfg.API.Timeout)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.File != "stdout" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Logging.ImportErrorLimit != 20 {
		t.Errorf("logging.import_error_limit = %d, want default 20", cfg.Logging.ImportErrorLimit)
	}
	if cfg.Console.SessionIdle != 5*time.Minute || cfg.Console.MaxSessions != 8 {
		t.Errorf("console = %+v", cfg.Console)
	}
	if cfg.Console.ResolveWait != 250*time.Millisecond || !cfg.Console.SecureCookie {
		t.Errorf("console = %+v", cfg.Console)
	}
}

func TestSetupUsesEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.conf")
	if err := os.WriteFile(path, []byte("[server]\nlisten = \"127.0.0.1:7070\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configEnvVar, path)

	cfg, err := Setup("")
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	if cfg.Server.Listen != "127.0.0.1:7070" {
		t.Errorf("server.listen = %s", cfg.Server.Listen)
	}
	if cfg.API.BaseURL != "http://settings.it" {
		t.Errorf("api.base_url = %s, want default", cfg.API.BaseURL)
	}
}

func TestFromViperRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  interface{}
	}{
		{"bad level", "logging.level", "trace"},
		{"bad listen", "server.listen", "localhost:80"},
		{"bad base url", "api.base_url", "ftp://x"},
		{"zero sessions", "console.max_sessions", 0},
		{"negative limit", "logging.import_error_limit", -1},
		{"bad timeout", "api.timeout", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)
			if _, err := FromViper(v); err == nil {
				t.Errorf("FromViper with %s=%v should return error", tt.key, tt.val)
			}
		})
	}
}
