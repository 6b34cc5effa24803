package settingsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type response struct {
	code int
	body []byte
}

func (r *response) ok() bool {
	return r.code >= http.StatusOK && r.code < http.StatusMultipleChoices
}

func (r *response) statusError(method, path string) error {
	body := strings.TrimSpace(string(r.body))
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &StatusError{Method: method, Path: path, Code: r.code, Body: body}
}

// doJSON sends payload as JSON (when non-nil), checks for a 2xx answer and
// decodes the body into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	resp, err := c.send(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return resp.statusError(method, path)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path, contentType string, body io.Reader) (*response, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(path, method, "error").Inc()
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn("failed to close settings api response body", "path", path, "error", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(path, method, "error").Inc()
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}

	result := &response{code: resp.StatusCode, body: data}
	outcome := "ok"
	if !result.ok() {
		outcome = "rejected"
	}
	requestsTotal.WithLabelValues(path, method, outcome).Inc()
	c.log.Debug("settings api request", "method", method, "path", path, "status", resp.StatusCode, "took", time.Since(start))
	return result, nil
}
