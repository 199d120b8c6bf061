package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/japaniel/britishdays/pkg/slang"
)

// DefaultUserAgent identifies the collector to Wikimedia APIs.
const DefaultUserAgent = "BritishDaysBot/1.0 (Educational Language Learning App)"

// Read content with size limit to prevent OOM from unexpected responses
const maxBodySize = 10 * 1024 * 1024

// ClientOptions configures the HTTP side of a MediaWiki source.
type ClientOptions struct {
	Endpoint   string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	// RateLimit is requests per second; <= 0 disables limiting.
	RateLimit float64
	UserAgent string
}

// Client issues GET requests against a MediaWiki action API.
type Client struct {
	source     slang.SourceType
	endpoint   string
	http       *http.Client
	limiter    *rate.Limiter
	retries    int
	retryDelay time.Duration
	userAgent  string
	logger     *zap.Logger
}

// NewClient creates a MediaWiki API client for one source.
func NewClient(st slang.SourceType, opts ClientOptions, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	limit := rate.Inf
	burst := 1
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
		burst = int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Client{
		source:     st,
		endpoint:   opts.Endpoint,
		http:       &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		retries:    retries,
		retryDelay: delay,
		userAgent:  ua,
		logger:     logger,
	}
}

// ArticleURL returns the human-facing URL of a page on the same wiki as the endpoint.
func (c *Client) ArticleURL(title string) string {
	base, err := url.Parse(c.endpoint)
	if err != nil || base.Host == "" {
		return ""
	}
	page := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/wiki/" + strings.ReplaceAll(title, " ", "_")}
	return page.String()
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *apiError) Error() string { return fmt.Sprintf("api error %s: %s", e.Code, e.Info) }

// Get calls the API with params (format=json and formatversion=2 are added) and decodes
// the response into out. Transient failures are retried with exponential backoff.
func (c *Client) Get(ctx context.Context, location string, params url.Values, out interface{}) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("format", "json")
	q.Set("formatversion", "2")
	reqURL := c.endpoint + "?" + q.Encode()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryDelay
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retries)), ctx)

	attempt := 0
	op := func() error {
		attempt++
		err := c.do(ctx, location, reqURL, out)
		if err == nil {
			return nil
		}
		if fe, ok := AsFetchError(err); ok && fe.Retryable {
			c.logger.Debug("Retryable fetch failure",
				zap.String("source", string(c.source)),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		return backoff.Permanent(err)
	}
	err := backoff.Retry(op, policy)
	if err == nil {
		return nil
	}
	if _, ok := AsFetchError(err); !ok {
		// The backoff policy reports context errors bare.
		return c.fail(location, KindNetwork, true, err)
	}
	return err
}

func (c *Client) do(ctx context.Context, location, reqURL string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return c.fail(location, KindNetwork, false, fmt.Errorf("rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return c.fail(location, KindHTTP, false, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(location, KindNetwork, true, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return c.fail(location, KindNetwork, true, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return c.fail(location, KindHTTP, false, fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return c.fail(location, KindNetwork, true, fmt.Errorf("read body: %w", err))
	}
	if len(body) > maxBodySize {
		return c.fail(location, KindParse, false, fmt.Errorf("response body exceeded %d bytes", maxBodySize))
	}

	var envelope struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return c.fail(location, KindParse, false, fmt.Errorf("decode response: %w", err))
	}
	if envelope.Error != nil {
		return c.fail(location, KindParse, false, envelope.Error)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return c.fail(location, KindParse, false, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) fail(location string, kind ErrorKind, retryable bool, err error) error {
	return &FetchError{Source: c.source, Location: location, Kind: kind, Retryable: retryable, Err: err}
}
