// Package linksheet fetches and parses the published CSV sheet that links each
// facility to its latest document.
package linksheet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/facility-freshness/internal/domain"
	"github.com/couchcryptid/facility-freshness/internal/observability"
)

const source = "links"

const maxErrorBody = 512

// Client downloads the link sheet as CSV.
// It implements pipeline.LinkSheetFetcher.
type Client struct {
	sheetURL   string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a link sheet client for the given CSV export URL.
func NewClient(sheetURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		sheetURL: sheetURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// FetchLinkSheet downloads and parses the sheet. Rows without an identifier are
// dropped and counted; a failed request or a sheet without a clues column is an error.
func (c *Client) FetchLinkSheet(ctx context.Context) ([]domain.LinkRecord, error) {
	start := time.Now()
	records, err := c.fetch(ctx)
	c.metrics.FetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchErrors.WithLabelValues(source).Inc()
		return nil, err
	}
	return records, nil
}

// Open requests the sheet export and returns the response body for the caller
// to parse and close. A non-2xx status is an error quoting the start of the body.
func (c *Client) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sheetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("link sheet request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("link sheet error: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return resp.Body, nil
}

func (c *Client) fetch(ctx context.Context) ([]domain.LinkRecord, error) {
	body, err := c.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	records, dropped, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse link sheet: %w", err)
	}
	if dropped > 0 {
		c.metrics.LinkRowsDropped.Add(float64(dropped))
		c.logger.Warn("link sheet rows dropped", "dropped", dropped, "kept", len(records))
	}
	c.logger.Debug("link sheet fetched", "records", len(records))
	return records, nil
}
