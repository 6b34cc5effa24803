package domains

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
)

// ParseOptions configures ParseList.
type ParseOptions struct {
	ListID     string
	Logger     *slog.Logger
	ErrorLimit int
}

// ParseStats summarises list parsing results.
type ParseStats struct {
	TotalLines int
	Domains    int
	Duplicates int
	Invalid    int
}

type errorLimiter struct {
	limit int
	count int
}

// LoadFile parses the domain list at path.
func LoadFile(path string, log *slog.Logger, errorLimit int) ([]string, ParseStats, error) {
	file, err := os.Open(path) // #nosec G304 -- path is provided on the command line.
	if err != nil {
		return nil, ParseStats{}, fmt.Errorf("open domain list: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			if log == nil {
				slog.Default().Warn("failed to close domain list file", "error", err)
			} else {
				log.Warn("failed to close domain list file", "error", err)
			}
		}
	}()

	return ParseList(file, ParseOptions{ListID: path, Logger: log, ErrorLimit: errorLimit})
}

// ParseList reads one or more domains per line. Blank lines and comments
// ("#", "//", ";") are skipped, a leading IP is dropped so hosts files work,
// and domains keep their first-seen order without duplicates.
func ParseList(r io.Reader, opts ParseOptions) ([]string, ParseStats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	stats := ParseStats{}
	limiter := errorLimiter{limit: opts.ErrorLimit}
	seen := make(map[string]struct{})
	domains := make([]string, 0)

	scanner := bufio.NewScanner(r)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := stripBOM(scanner.Text())
		stats.TotalLines++
		line = strings.TrimSpace(line)
		if line == "" || isCommentLine(line) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		tokens := fields
		if ip := net.ParseIP(fields[0]); ip != nil {
			tokens = fields[1:]
		}

		for _, token := range tokens {
			if isCommentLine(token) {
				break
			}
			domain, err := Normalize(token)
			if err != nil {
				stats.Invalid++
				limiter.log(logger, opts.ListID, lineNum, token, err)
				continue
			}
			if _, dup := seen[domain]; dup {
				stats.Duplicates++
				continue
			}
			seen[domain] = struct{}{}
			domains = append(domains, domain)
			stats.Domains++
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("scan list: %w", err)
	}

	limiter.summary(logger, opts.ListID, stats.Invalid)
	logger.Info("parsed domain list", "list", opts.ListID, "domains", stats.Domains, "duplicates", stats.Duplicates, "invalid", stats.Invalid)
	return domains, stats, nil
}

func (l *errorLimiter) log(logger *slog.Logger, listID string, lineNum int, token string, err error) {
	if l.limit == 0 {
		return
	}
	if l.limit > 0 && l.count >= l.limit {
		l.count++
		return
	}
	l.count++
	logger.Error("invalid domain list entry", "list", listID, "line", lineNum, "entry", token, "error", err)
}

func (l *errorLimiter) summary(logger *slog.Logger, listID string, invalid int) {
	if l.limit <= 0 {
		return
	}
	if invalid > l.limit {
		logger.Warn("domain list parsing errors suppressed", "list", listID, "errors", invalid, "logged", l.limit)
	}
}

func stripBOM(line string) string {
	return strings.TrimPrefix(line, "\ufeff")
}

func isCommentLine(line string) bool {
	return strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") || strings.HasPrefix(line, ";")
}
