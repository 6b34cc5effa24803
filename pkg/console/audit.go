package console

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// auditLogger appends one line per settings mutation. A nil auditLogger
// drops everything.
type auditLogger struct {
	file *os.File
	mu   sync.Mutex
}

func newAuditLogger(path string, log *slog.Logger) *auditLogger {
	if path == "" {
		return nil
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 -- path provided via config.
	if err != nil {
		if log == nil {
			slog.Default().Error("failed to open audit log file", "error", err)
		} else {
			log.Error("failed to open audit log file", "error", err)
		}
		return nil
	}
	return &auditLogger{file: file}
}

func (a *auditLogger) Record(browser, action, target string, err error) {
	if a == nil || a.file == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	line := fmt.Sprintf("%s browser=%s action=%s target=%q result=%s\n",
		time.Now().UTC().Format(time.RFC3339),
		browser,
		action,
		target,
		result,
	)
	a.mu.Lock()
	defer a.mu.Unlock()
	_, _ = a.file.WriteString(line)
}

func (a *auditLogger) Close() error {
	if a == nil || a.file == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
