// Package nps fetches paginated collections from the National Park Service
// API and lands them in object storage as parquet snapshots.
package nps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultPageSize is the number of records requested per page.
const DefaultPageSize = 50

// ErrMissingAPIKey is returned when a fetch is attempted without an API key.
var ErrMissingAPIKey = errors.New("nps api key is not configured")

// UpstreamError reports a failed or malformed page fetch.
type UpstreamError struct {
	Endpoint   string
	Start      int
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s (start=%d): status %d: %v", e.Endpoint, e.Start, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream %s (start=%d): %v", e.Endpoint, e.Start, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Config holds client settings.
type Config struct {
	APIKey   string
	PageSize int
	Timeout  time.Duration
}

// Client pages through NPS collection endpoints.
type Client struct {
	http     *http.Client
	apiKey   string
	pageSize int
	logger   *slog.Logger
}

// NewClient creates a Client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		apiKey:   cfg.APIKey,
		pageSize: cfg.PageSize,
		logger:   logger,
	}
}

type page struct {
	Total json.RawMessage  `json:"total"`
	Data  []map[string]any `json:"data"`
}

// FetchCollection requests pages of endpoint until the accumulated records
// reach the total declared by the first page.
func (c *Client) FetchCollection(ctx context.Context, endpoint string) ([]map[string]any, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if endpoint == "" {
		return nil, &UpstreamError{Err: errors.New("endpoint is empty")}
	}

	var records []map[string]any
	total := -1
	for start := 0; ; start += c.pageSize {
		p, err := c.fetchPage(ctx, endpoint, start)
		if err != nil {
			return nil, err
		}
		if total < 0 {
			total, err = parseTotal(p.Total, len(p.Data))
			if err != nil {
				return nil, &UpstreamError{Endpoint: endpoint, Start: start, Err: err}
			}
		}
		records = append(records, p.Data...)
		if len(records) >= total {
			break
		}
		if len(p.Data) == 0 {
			return nil, &UpstreamError{
				Endpoint: endpoint,
				Start:    start,
				Err:      fmt.Errorf("empty page after %d of %d records", len(records), total),
			}
		}
	}

	c.logger.Info("fetched collection", "endpoint", endpoint, "records", len(records), "total", total)
	return records, nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string, start int) (*page, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Start: start, Err: err}
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("start", strconv.Itoa(start))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Start: start, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("requesting page", "endpoint", endpoint, "start", start, "limit", c.pageSize)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Start: start, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Start: start, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			Endpoint:   endpoint,
			Start:      start,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var p page
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Start: start, StatusCode: resp.StatusCode, Err: fmt.Errorf("malformed body: %w", err)}
	}
	return &p, nil
}

// parseTotal reads the declared total, which the API sends as a string or a
// number. A missing total falls back to the first page's length.
func parseTotal(raw json.RawMessage, fallback int) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback, nil
	}
	s := string(raw)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid total %s", raw)
	}
	return n, nil
}
