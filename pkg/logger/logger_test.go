package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger(t *testing.T) {
	testCases := []struct {
		level    string
		message  string
		toFile   bool
		wantText string
	}{
		{"debug", "debug message", false, "debug message"},
		{"info", "info message", false, "info message"},
		{"warn", "warn message", false, "warn message"},
		{"error", "error message", false, "error message"},
		{"debug", "debug to file", true, "debug to file"},
		{"info", "info to file", true, "info to file"},
		{"warn", "warn to file", true, "warn to file"},
		{"error", "error to file", true, "error to file"},
	}

	for _, tc := range testCases {
		name := tc.level + "-stdout"
		if tc.toFile {
			name = tc.level + "-file"
		}
		t.Run(name, func(t *testing.T) {
			logFile := "stdout"
			if tc.toFile {
				logFile = filepath.Join(t.TempDir(), "test.log")
			}

			Setup(tc.level, logFile)

			slog.Debug(tc.message)
			slog.Info(tc.message)
			slog.Warn(tc.message)
			slog.Error(tc.message)

			if !tc.toFile {
				// For stdout tests, we can only verify setup completed without error
				return
			}

			content, err := os.ReadFile(logFile) // #nosec G304 -- test temp file path.
			if err != nil {
				t.Fatalf("Failed to read log file: %v", err)
			}

			logContent := string(content)
			if !strings.Contains(logContent, tc.wantText) {
				t.Errorf("Log file does not contain expected text %q", tc.wantText)
			}

			switch tc.level {
			case "error":
				if strings.Contains(logContent, "level=INFO") {
					t.Error("Error level log contains INFO messages")
				}
			case "warn":
				if strings.Contains(logContent, "level=DEBUG") {
					t.Error("Warn level log contains DEBUG messages")
				}
			case "info":
				if strings.Contains(logContent, "level=DEBUG") {
					t.Error("Info level log contains DEBUG messages")
				}
			}
		})
	}
}

func TestGetLogLevelDefaultsToInfo(t *testing.T) {
	if got := getLogLevel("verbose"); got != slog.LevelInfo {
		t.Errorf("getLogLevel(verbose) = %v, want %v", got, slog.LevelInfo)
	}
	if got := getLogLevel("WARN"); got != slog.LevelWarn {
		t.Errorf("getLogLevel(WARN) = %v, want %v", got, slog.LevelWarn)
	}
}

func TestSetupUnwritableFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	log := Setup("info", filepath.Join(dir, "missing", "sub", "x.log"))
	if log == nil {
		t.Fatal("expected a logger even when the file cannot be opened")
	}
}

func TestSetLevelChangesInstalledLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "reload.log")
	log := Setup("error", logFile)

	log.Info("before reload")
	SetLevel("info")
	log.Info("after reload")

	content, err := os.ReadFile(logFile) // #nosec G304 -- test temp file path.
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if strings.Contains(string(content), "before reload") {
		t.Error("info message logged while level was error")
	}
	if !strings.Contains(string(content), "after reload") {
		t.Error("info message missing after SetLevel")
	}
}
