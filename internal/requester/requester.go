// Package requester implements the paced, retrying JSON client used against
// the open-access API.
package requester

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/openglam/smithsonian-harvester/internal/metrics"
)

// Config controls pacing, the retry budget and transport behavior.
type Config struct {
	// APIKey is attached to every request when set.
	APIKey string
	// Delay is the minimum interval between request attempts. Zero disables
	// pacing.
	Delay time.Duration
	// MaxRetries is the total attempt budget per logical request.
	MaxRetries int
	Timeout    time.Duration
	UserAgent  string
}

// Client paces requests through a token bucket and retries transient
// failures with jittered exponential backoff. An error surfaces only after
// the whole attempt budget is spent.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	backoff backoffPolicy
	logger  *zap.Logger
}

// New builds a Client. Defaults: 3 attempts, 15s timeout.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newHTTPTransport(),
		},
		limiter: rate.NewLimiter(limit, 1),
		backoff: newBackoffPolicy(),
		logger:  logger,
	}
}

// GetJSON issues one logical GET against the endpoint and decodes the
// response body into out. Pacing applies to every attempt; attempts that
// fail on transport, status or decode are retried up to the budget.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.RetryAttempt()
			if err := c.backoff.Sleep(ctx, attempt); err != nil {
				metrics.RequestDone("failure")
				return fmt.Errorf("backoff interrupted: %w", err)
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			metrics.RequestDone("failure")
			return fmt.Errorf("rate limit wait: %w", err)
		}

		body, err := c.do(ctx, endpoint, params)
		if err != nil {
			lastErr = err
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				metrics.RequestDone("failure")
				return fmt.Errorf("request canceled: %w", err)
			}
			c.logger.Debug("request attempt failed",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}
		if err := json.Unmarshal(body, out); err != nil {
			lastErr = fmt.Errorf("decode response: %w", err)
			continue
		}
		metrics.RequestDone("success")
		return nil
	}
	metrics.RequestDone("failure")
	return fmt.Errorf("retries exhausted after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	query := url.Values{}
	for key, values := range params {
		query[key] = values
	}
	if c.cfg.APIKey != "" {
		query.Set("api_key", c.cfg.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.URL.RawQuery = query.Encode()
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveRequestDuration(time.Since(start).Seconds())
	if err != nil {
		if urlErr := ctx.Err(); urlErr != nil {
			return nil, urlErr
		}
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}
	return body, nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
