package fetch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options parameterise the JSON client.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// Retries is the number of additional attempts after the first. Only
	// retryable failures (429, 5xx, transport, JSON parse) are retried.
	Retries int
	// BaseDelay is the first backoff delay; attempt n sleeps BaseDelay*2^n.
	BaseDelay time.Duration
}

// Client performs JSON GET requests with typed error classification and
// exponential backoff. It owns no state beyond the retry loop.
type Client struct {
	opts   Options
	client *http.Client
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New constructs a JSON client.
func New(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 250 * time.Millisecond
	}

	return &Client{
		opts:   opts,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "fetch").Logger(),
		sleep:  sleepCtx,
	}
}

// GetJSON fetches url and decodes the body into out, retrying retryable
// failures up to the configured budget. Non-retryable errors and exhausted
// budgets surface to the caller as-is.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.opts.Retries; attempt++ {
		err := c.getOnce(ctx, url, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt >= c.opts.Retries || !isRetryable(err) {
			return err
		}

		delay := c.opts.BaseDelay << attempt
		c.logger.Debug().
			Str("url", url).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("retrying fetch")
		if serr := c.sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return lastErr
}

func (c *Client) getOnce(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &TransportError{Status: resp.StatusCode, URL: url}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ParseError{URL: url, Err: err}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
