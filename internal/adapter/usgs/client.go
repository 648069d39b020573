package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
)

// DefaultBaseURL is the USGS summary feed root.
const DefaultBaseURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary"

// Client fetches GeoJSON summary feeds. It implements store.FeedClient.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a feed client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// FeedURL returns the document URL for a selector, e.g.
// ".../summary/significant_month.geojson".
func (c *Client) FeedURL(period domain.Period, severity domain.Severity) string {
	return fmt.Sprintf("%s/%s.geojson", c.baseURL, domain.FeedName(period, severity))
}

// FetchFeed performs exactly one GET for the selector. It does not retry.
// Every failure is returned as a *domain.NetworkError.
func (c *Client) FetchFeed(ctx context.Context, period domain.Period, severity domain.Severity) (domain.FeedDocument, error) {
	u := c.FeedURL(period, severity)
	start := time.Now()

	doc, err := c.doRequest(ctx, u)
	c.metrics.FeedRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FeedRequests.WithLabelValues("error").Inc()
		return domain.FeedDocument{}, err
	}

	c.metrics.FeedRequests.WithLabelValues("success").Inc()
	c.metrics.FeedFeatures.Observe(float64(len(doc.Features)))
	c.logger.Debug("feed fetched",
		"url", u,
		"features", len(doc.Features),
		"duration", time.Since(start),
	)
	return doc, nil
}

func (c *Client) doRequest(ctx context.Context, u string) (domain.FeedDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.FeedDocument{}, &domain.NetworkError{URL: u, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.FeedDocument{}, &domain.NetworkError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.FeedDocument{}, &domain.NetworkError{
			URL:        u,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}

	var doc domain.FeedDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return domain.FeedDocument{}, &domain.NetworkError{URL: u, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return doc, nil
}
