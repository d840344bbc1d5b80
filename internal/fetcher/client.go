package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matthacksteiner/kinderlosfrei/internal/domain"
	"github.com/matthacksteiner/kinderlosfrei/internal/utils"
	"github.com/matthacksteiner/kinderlosfrei/pkg/version"
	"github.com/tidwall/gjson"
)

// DefaultMaxResponseSize caps a single CMS response body (100 MiB)
const DefaultMaxResponseSize int64 = 100 << 20

// Client fetches JSON documents from the CMS API
type Client struct {
	httpClient      *http.Client
	userAgent       string
	retrier         *Retrier
	maxResponseSize int64
	logger          *utils.Logger
}

// ClientOptions contains options for creating a Client
type ClientOptions struct {
	Timeout time.Duration
	// Retries is the total number of attempts per request
	Retries         int
	RetryDelay      time.Duration
	MaxRetryDelay   time.Duration
	Backoff         BackoffMode
	UserAgent       string
	MaxResponseSize int64
	// HTTPClient overrides the underlying client (tests, custom transports)
	HTTPClient *http.Client
	Logger     *utils.Logger
}

// DefaultClientOptions returns default client options
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:         30 * time.Second,
		Retries:         3,
		RetryDelay:      1 * time.Second,
		MaxRetryDelay:   30 * time.Second,
		Backoff:         BackoffFixed,
		UserAgent:       version.UserAgent(),
		MaxResponseSize: DefaultMaxResponseSize,
	}
}

// NewClient creates a new CMS API client
func NewClient(opts ClientOptions) (*Client, error) {
	defaults := DefaultClientOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.Retries <= 0 {
		opts.Retries = defaults.Retries
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaults.UserAgent
	}
	if opts.MaxResponseSize <= 0 {
		opts.MaxResponseSize = defaults.MaxResponseSize
	}
	mode, err := ParseBackoffMode(string(opts.Backoff))
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	logger = logger.WithComponent("fetcher")

	retrier := NewRetrier(RetrierOptions{
		Attempts: opts.Retries,
		Delay:    opts.RetryDelay,
		MaxDelay: opts.MaxRetryDelay,
		Mode:     mode,
		OnRetry: func(err error, wait time.Duration) {
			logger.Debug().Err(err).Dur("wait", wait).Msg("Retrying request")
		},
	})

	return &Client{
		httpClient:      httpClient,
		userAgent:       opts.UserAgent,
		retrier:         retrier,
		maxResponseSize: opts.MaxResponseSize,
		logger:          logger,
	}, nil
}

// FetchJSON performs a GET against url and returns the raw JSON body.
// Transient failures are retried; once attempts are exhausted, or on a
// permanent failure, the error is a *domain.FetchError wrapping
// domain.ErrResourceUnavailable. Context cancellation is returned as is.
func (c *Client) FetchJSON(ctx context.Context, url string) ([]byte, error) {
	body, attempts, err := RetryWithValue(ctx, c.retrier, func() ([]byte, error) {
		return c.doRequest(ctx, url)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, unavailable(url, attempts, err)
	}
	return body, nil
}

// unavailable converts the last attempt's error into the final FetchError
func unavailable(url string, attempts int, err error) error {
	status := 0
	cause := err
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		status = fetchErr.StatusCode
		cause = fetchErr.Err
	}
	return &domain.FetchError{
		URL:        url,
		StatusCode: status,
		Attempts:   attempts,
		Err:        fmt.Errorf("%w: %w", domain.ErrResourceUnavailable, cause),
	}
}

// doRequest performs a single attempt
func (c *Client) doRequest(ctx context.Context, targetURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, domain.NewFetchError(targetURL, 0, fmt.Errorf("%w: %w", domain.ErrInvalidURL, err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.RetryableError{
			Err: domain.NewFetchError(targetURL, 0, fmt.Errorf("request failed: %w", err)),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

		fetchErr := domain.NewFetchError(targetURL, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode))
		if ShouldRetryStatus(resp.StatusCode) {
			return nil, &domain.RetryableError{
				Err:        fetchErr,
				RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}
		return nil, fetchErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize+1))
	if err != nil {
		return nil, &domain.RetryableError{
			Err: domain.NewFetchError(targetURL, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)),
		}
	}
	if int64(len(body)) > c.maxResponseSize {
		return nil, domain.NewFetchError(targetURL, resp.StatusCode,
			fmt.Errorf("response exceeds %d bytes", c.maxResponseSize))
	}

	if !gjson.ValidBytes(body) {
		return nil, &domain.RetryableError{
			Err: domain.NewFetchError(targetURL, 0, domain.ErrInvalidJSON),
		}
	}

	return body, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
