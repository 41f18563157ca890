// Package simulation runs Safe transactions produced by a plan through the Tenderly
// simulation API.
package simulation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
	"github.com/smartcontractkit/vault-admin/pkg/logger"
)

const (
	DefaultBaseURL      = "https://api.tenderly.co/api/v1"
	DefaultDashboardURL = "https://dashboard.tenderly.co"
	DefaultAttempts     = 3
	DefaultRetryDelay   = 2 * time.Second
)

var ErrMissingCredentials = errors.New("tenderly credentials are required")

// Credentials authenticate against a Tenderly project.
type Credentials struct {
	AccessKey   string
	AccountSlug string
	ProjectSlug string
}

func (c Credentials) validate() error {
	var missing []string
	if c.AccessKey == "" {
		missing = append(missing, "access key")
	}
	if c.AccountSlug == "" {
		missing = append(missing, "account slug")
	}
	if c.ProjectSlug == "" {
		missing = append(missing, "project slug")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	return nil
}

// StatusError is a non 2xx response of the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tenderly API returned status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Client is a Tenderly simulation API client. It reads Safe state through a view reader.
type Client struct {
	lggr         logger.Logger
	creds        Credentials
	reader       viewreader.Reader
	baseURL      string
	dashboardURL string
	httpClient   *http.Client
	attempts     uint
	retryDelay   time.Duration
	now          func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetry sets how many times a request is attempted on 429 and 5xx responses.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.retryDelay = delay
	}
}

// WithClock sets the time source used to schedule timelock executions.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a Tenderly client.
func NewClient(lggr logger.Logger, creds Credentials, reader viewreader.Reader, opts ...Option) (*Client, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}

	c := &Client{
		lggr:         lggr.Named("tenderly"),
		creds:        creds,
		reader:       reader,
		baseURL:      DefaultBaseURL,
		dashboardURL: DefaultDashboardURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		attempts:   DefaultAttempts,
		retryDelay: DefaultRetryDelay,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.attempts == 0 {
		c.attempts = 1
	}

	return c, nil
}

func (c *Client) projectURL(endpoint string) (string, error) {
	u, err := url.JoinPath(c.baseURL, "account", c.creds.AccountSlug, "project", c.creds.ProjectSlug, endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to build request URL: %w", err)
	}

	return u, nil
}

func (c *Client) simulationURL(id string) string {
	return fmt.Sprintf("%s/%s/%s/simulator/%s", c.dashboardURL, c.creds.AccountSlug, c.creds.ProjectSlug, id)
}

// post sends body as JSON to endpoint and decodes the response into out, retrying on
// throttling and server errors.
func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	reqURL, err := c.projectURL(endpoint)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	respBody, err := retry.DoWithData(func() ([]byte, error) {
		return c.send(ctx, reqURL, payload)
	},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var se *StatusError
			return errors.As(err, &se) && se.retryable()
		}),
		retry.OnRetry(func(n uint, err error) {
			c.lggr.Warnw("Retrying tenderly request", "endpoint", endpoint, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse tenderly response: %w", err)
	}

	return nil
}

func (c *Client) send(ctx context.Context, reqURL string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Access-Key", c.creds.AccessKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
