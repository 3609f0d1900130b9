// Package catalog fetches the facility catalog from its JSON API.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/facility-freshness/internal/domain"
	"github.com/couchcryptid/facility-freshness/internal/observability"
)

const source = "catalog"

// maxErrorBody bounds how much of a failed response is quoted in the error.
const maxErrorBody = 512

// Client retrieves catalog records over HTTP.
// It implements pipeline.CatalogFetcher.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a catalog client for the given endpoint.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// FetchCatalog downloads the catalog and coerces every object element into a
// domain.CatalogRecord. Non-object elements are skipped. Any transport error,
// non-2xx status or malformed body fails the whole fetch.
func (c *Client) FetchCatalog(ctx context.Context) ([]domain.CatalogRecord, error) {
	start := time.Now()
	records, err := c.fetch(ctx)
	c.metrics.FetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchErrors.WithLabelValues(source).Inc()
		return nil, err
	}
	return records, nil
}

// Open requests the catalog and returns the response body for the caller to
// decode and close. A non-2xx status is an error quoting the start of the body.
func (c *Client) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("catalog API error: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return resp.Body, nil
}

func (c *Client) fetch(ctx context.Context) ([]domain.CatalogRecord, error) {
	body, err := c.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	records, skipped, err := Decode(body)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		c.logger.Warn("catalog elements skipped", "skipped", skipped, "kept", len(records))
	}
	c.logger.Debug("catalog fetched", "records", len(records))
	return records, nil
}

// Decode reads a catalog document: a JSON array whose object elements become
// records. It also reports how many non-object elements were skipped.
func Decode(r io.Reader) ([]domain.CatalogRecord, int, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("decode catalog: %w", err)
	}

	records := make([]domain.CatalogRecord, 0, len(raw))
	skipped := 0
	for _, elem := range raw {
		obj, ok := elem.(map[string]any)
		if !ok {
			skipped++
			continue
		}
		records = append(records, domain.CatalogRecordFromRaw(obj))
	}
	return records, skipped, nil
}
