// Package backend reads event data from the external event API.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"eventpage/internal/cache"
	appLog "eventpage/internal/log"
	"eventpage/internal/model"
)

// API paths, relative to the configured base URL.
const (
	PathEvent    = "/api/event"
	PathSpeakers = "/api/speakers"
	PathSchedule = "/api/schedule"
)

const (
	defaultTimeout = 10 * time.Second
	// maxBodyBytes bounds a single response body.
	maxBodyBytes = 4 << 20
)

// Options configures a Client.
type Options struct {
	// BaseURL is the API origin, e.g. "http://127.0.0.1:8000".
	BaseURL string
	// Timeout bounds a single request. Zero means 10s. Ignored when
	// HTTPClient is set.
	Timeout time.Duration
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
	// Cache stores successfully decoded bodies for CacheTTL. Nil disables
	// caching.
	Cache    cache.Provider
	CacheTTL time.Duration
	// Limiter throttles outgoing requests. Nil means unlimited.
	Limiter *rate.Limiter
}

// Client issues read-only requests against the three event endpoints.
type Client struct {
	base     *url.URL
	http     *http.Client
	cache    cache.Provider
	cacheTTL time.Duration
	limiter  *rate.Limiter
}

// NewClient validates the base URL and builds a Client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("backend: base URL is empty")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("backend: invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend: unsupported scheme %q", base.Scheme)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	c := &Client{
		base:     base,
		http:     hc,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		limiter:  opts.Limiter,
	}
	if c.cache == nil {
		c.cache = cache.Nop{}
	}
	return c, nil
}

// Endpoint returns the absolute URL for path, with q as a url-encoded
// filter when non-empty.
func (c *Client) Endpoint(path, q string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	if q != "" {
		u.RawQuery = url.Values{"q": {q}}.Encode()
	}
	return u.String()
}

// FetchEvent reads the event metadata. The event endpoint takes no filter.
func (c *Client) FetchEvent(ctx context.Context) Outcome[model.Event] {
	return fetch[model.Event](ctx, c, c.Endpoint(PathEvent, ""))
}

// FetchSpeakers reads the speaker list, filtered by q when non-empty.
// Filtering is done by the backend.
func (c *Client) FetchSpeakers(ctx context.Context, q string) Outcome[[]model.Speaker] {
	return fetch[[]model.Speaker](ctx, c, c.Endpoint(PathSpeakers, q))
}

// FetchSchedule reads the schedule, filtered by q when non-empty.
func (c *Client) FetchSchedule(ctx context.Context, q string) Outcome[[]model.ScheduleItem] {
	return fetch[[]model.ScheduleItem](ctx, c, c.Endpoint(PathSchedule, q))
}

func fetch[T any](ctx context.Context, c *Client, endpoint string) Outcome[T] {
	if body, hit, err := c.cache.Get(ctx, endpoint); err != nil {
		appLog.Error("backend cache read failed", err, "endpoint", endpoint)
	} else if hit {
		var v T
		if err := json.Unmarshal(body, &v); err == nil {
			appLog.Debug("backend cache hit", "endpoint", endpoint)
			return ok(v)
		}
	}

	body, err := c.get(ctx, endpoint)
	if err != nil {
		logFailure(StatusNetworkFailed, err, endpoint)
		return failed[T](StatusNetworkFailed, err)
	}

	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		err = fmt.Errorf("backend: decode %s: %w", endpoint, err)
		logFailure(StatusDecodeFailed, err, endpoint)
		return failed[T](StatusDecodeFailed, err)
	}

	if c.cacheTTL > 0 {
		if err := c.cache.Set(ctx, endpoint, body, c.cacheTTL); err != nil {
			// The fresh value is still returned.
			appLog.Error("backend cache write failed", err, "endpoint", endpoint)
		}
	}
	return ok(v)
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("backend: rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: %s from %s", ErrStatus, resp.Status, endpoint)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	appLog.Debug("backend fetch success", "endpoint", endpoint, "status", resp.StatusCode, "bytes", len(body), "elapsed", time.Since(start))
	return body, nil
}

func logFailure(status Status, err error, endpoint string) {
	if errors.Is(err, context.Canceled) {
		// Superseded search cycles cancel their requests.
		appLog.Debug("backend fetch canceled", "endpoint", endpoint)
		return
	}
	appLog.Error("backend fetch failed", err, "endpoint", endpoint, "status", status.String())
}
