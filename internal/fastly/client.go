// Package fastly is a small client for the billing, stats and service
// endpoints of the Fastly API.
package fastly

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const DefaultBaseURL = "https://api.fastly.com"

// Options configures a Client.
type Options struct {
	BaseURL   string
	UserAgent string
	// Timeout bounds each request. Zero means no timeout.
	Timeout   time.Duration
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Client issues one GET per call. Failures of any kind are logged and reported
// as an absent result so a single bad unit of work never stops a sync.
type Client struct {
	baseURL   *url.URL
	auth      *Authenticator
	userAgent string
	timeout   time.Duration
	transport http.RoundTripper
	logger    *slog.Logger

	once sync.Once
	http *http.Client
}

func NewClient(auth *Authenticator, opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", opts.BaseURL, err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		baseURL:   base,
		auth:      auth,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		transport: opts.Transport,
		logger:    opts.Logger,
	}, nil
}

// session returns the HTTP client shared by every call on c, creating it on
// first use.
func (c *Client) session() *http.Client {
	c.once.Do(func() {
		c.http = &http.Client{
			Transport: c.auth.Transport(c.transport),
			Timeout:   c.timeout,
		}
	})
	return c.http
}

// Bill fetches the bill for the month containing at. It returns nil on failure.
func (c *Client) Bill(ctx context.Context, at time.Time) Bill {
	path := fmt.Sprintf("billing/v2/year/%d/month/%d", at.Year(), int(at.Month()))
	var bill Bill
	if err := c.get(ctx, path, nil, &bill); err != nil {
		c.logger.Error("bill api call failed", "year", at.Year(), "month", int(at.Month()), "error", err)
		return nil
	}
	return bill
}

// Stats fetches aggregate stats between from and to. A zero from requests the
// API's default range. It returns nil on failure.
func (c *Client) Stats(ctx context.Context, from, to time.Time) *StatsResult {
	var query url.Values
	if !from.IsZero() {
		query = url.Values{}
		query.Set("from", strconv.FormatInt(from.Unix(), 10))
		query.Set("to", strconv.FormatInt(to.Unix(), 10))
	}
	var result StatsResult
	if err := c.get(ctx, "stats", query, &result); err != nil {
		c.logger.Error("stats api call failed", "from", from.Unix(), "to", to.Unix(), "error", err)
		return nil
	}
	return &result
}

// Service fetches metadata for one service. It returns nil on failure.
func (c *Client) Service(ctx context.Context, id string) *Service {
	var svc Service
	if err := c.get(ctx, "service/"+id, nil, &svc); err != nil {
		c.logger.Error("service api call failed", "service_id", id, "error", err)
		return nil
	}
	return &svc
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	if query != nil {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.session().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s returned status %d: %s", u.Path, resp.StatusCode, truncate(body, 256))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding GET %s response: %w", u.Path, err)
	}
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
