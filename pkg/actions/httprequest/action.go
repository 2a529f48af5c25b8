// Package httprequest provides the http_request workflow action.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/helixcrm/helix/pkg/models"
)

const (
	defaultTimeout = 30 * time.Second
	maxTimeout     = 120 * time.Second
	maxBodyBytes   = 10 << 20
)

var (
	// ErrURLMissing is returned when the configuration has no url.
	ErrURLMissing = errors.New("missing or invalid 'url' in configuration")
	// ErrRequestFailed is returned when the endpoint answers outside the
	// 2xx range. A non-2xx response fails the whole run.
	ErrRequestFailed = errors.New("http request returned non-success status")
)

// Action performs one HTTP request against an external endpoint and
// exposes the response to later actions.
type Action struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string
	Timeout time.Duration

	client *http.Client
}

func NewAction(config map[string]any) (*Action, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, ErrURLMissing
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	body, _ := config["body"].(string)

	headers := make(map[string]string)

	if headersConfig, ok := config["headers"].(map[string]any); ok {
		for k, v := range headersConfig {
			if strVal, ok := v.(string); ok {
				headers[k] = strVal
			}
		}
	}

	timeout := defaultTimeout
	if seconds, ok := config["timeout_seconds"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
		if timeout > maxTimeout {
			timeout = maxTimeout
		}
	}

	return &Action{
		URL:     url,
		Method:  strings.ToUpper(method),
		Headers: headers,
		Body:    body,
		Timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger.InfoContext(ctx, "Executing HTTP request", "method", a.Method, "url", a.URL)

	var bodyReader io.Reader
	if a.Body != "" {
		bodyReader = strings.NewReader(a.Body)
	}

	req, err := http.NewRequestWithContext(ctx, a.Method, a.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for key, value := range a.Headers {
		req.Header.Set(key, value)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d from %s", ErrRequestFailed, resp.StatusCode, a.URL)
	}

	// JSON bodies land as structured data, everything else as a string.
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		parsed = string(raw)
	}

	return map[string]any{
		"http_status":   resp.StatusCode,
		"http_response": parsed,
	}, nil
}
