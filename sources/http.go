// Package sources contains the upstream clients the aggregator fans out to.
// Each client converts its upstream's native shape into models values and
// short-circuits to an empty result when its source is not configured.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"feedhub/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "feedhub/1.0"

	// Upper bound for upstream response bodies
	maxBodySize = 4 << 20
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_upstream_requests_total",
		Help: "Upstream requests made by the source clients",
	}, []string{"source", "outcome"})

	upstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedhub_upstream_request_duration_seconds",
		Help:    "Latency of upstream requests made by the source clients",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"source"})
)

// HTTPConfig is shared by all clients
type HTTPConfig struct {
	Client    *http.Client
	UserAgent string
}

func (c HTTPConfig) client() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func (c HTTPConfig) userAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return DefaultUserAgent
}

// getJSON performs a GET request and decodes the JSON response body into out.
// Every failure is wrapped with models.ErrUpstream.
func getJSON(ctx context.Context, client *http.Client, userAgent, source, url string, out any) (err error) {
	start := time.Now()
	defer func() {
		upstreamLatency.WithLabelValues(source).Observe(time.Since(start).Seconds())
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		upstreamRequests.WithLabelValues(source, outcome).Inc()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", models.ErrUpstream, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned http %d", models.ErrUpstream, source, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", models.ErrUpstream, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", models.ErrUpstream, source, err)
	}
	return nil
}
