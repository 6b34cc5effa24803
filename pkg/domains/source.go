package domains

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultDownloadTimeout = 20 * time.Second

// Source is where a domain list is read from: a local path or an http(s) URL.
type Source struct {
	Location string
	// Token is sent as a bearer token when Location is a URL.
	Token   string
	Timeout time.Duration
}

// Load reads and parses the list behind source.
func Load(ctx context.Context, source Source, log *slog.Logger, errorLimit int) ([]string, ParseStats, error) {
	if !isURL(source.Location) {
		return LoadFile(source.Location, log, errorLimit)
	}
	data, err := download(ctx, source, log)
	if err != nil {
		return nil, ParseStats{}, fmt.Errorf("download domain list: %w", err)
	}
	return ParseList(bytes.NewReader(data), ParseOptions{ListID: source.Location, Logger: log, ErrorLimit: errorLimit})
}

func download(ctx context.Context, source Source, log *slog.Logger) ([]byte, error) {
	if log == nil {
		log = slog.Default()
	}
	timeout := source.Timeout
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.Location, nil)
	if err != nil {
		return nil, err
	}
	if source.Token != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(source.Token))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn("failed to close domain list response body", "error", err)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
