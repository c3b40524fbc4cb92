// Package httputil holds the HTTP hygiene every plain-HTTP adapter shares:
// timeouts, a per-adapter concurrency cap, bounded retry, and gzip
// handling.
package httputil

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Config is the per-adapter HTTP policy.
type Config struct {
	Timeout           time.Duration
	MaxConcurrent     int
	MaxAttempts       int // bounded, single-digit retry attempts
	RequestsPerSecond float64
	UserAgent         string
	Headers           map[string]string
}

func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = 10
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = float64(c.MaxConcurrent)
	}
	return c
}

// Client wraps *http.Client with the semaphore, limiter, and retry policy
// an adapter needs, so adapter shapes only implement their own decoding.
type Client struct {
	http    *http.Client
	cfg     Config
	sem     chan struct{}
	limiter *rate.Limiter
}

func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.MaxConcurrent),
	}
}

// ErrClientStatus marks a non-retryable 4xx response.
type ErrClientStatus struct {
	StatusCode int
}

func (e *ErrClientStatus) Error() string {
	return fmt.Sprintf("httputil: client error status %d", e.StatusCode)
}

// Get performs a rate-limited, semaphore-bounded, retried GET and returns
// the decompressed body. It acquires the concurrency slot for the whole
// retry sequence, matching the "per-adapter concurrency cap" contract.
func (c *Client) Get(ctx context.Context, url string, query map[string]string) ([]byte, error) {
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		body, err := c.doOnce(ctx, url, query)
		if err == nil {
			return body, nil
		}
		var clientErr *ErrClientStatus
		if errors.As(err, &clientErr) {
			return nil, err // never retry on 4xx
		}
		lastErr = err
		if attempt < c.cfg.MaxAttempts {
			select {
			case <-time.After(backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("httputil: exhausted %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}

func backoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * 100 * time.Millisecond
}

func (c *Client) doOnce(ctx context.Context, url string, query map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httputil: building request: %w", err)
	}
	q := req.URL.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()

	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httputil: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, &ErrClientStatus{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("httputil: server status %d", resp.StatusCode)
	}

	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("httputil: gzip reader: %w", err)
		}
		defer gz.Close()
		return io.ReadAll(gz)
	}
	return io.ReadAll(resp.Body)
}
