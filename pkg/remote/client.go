// Package remote is the client for the hosted scan service. The service
// runs the same scanner this tool drives locally, so a submitted job
// yields a report the ingest package parses unchanged.
//
// Every failure mode — refused connections, error statuses, malformed
// responses — wraps ErrUnavailable, so callers degrade to local scanning
// with a single errors.Is check.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fleetscan/fleetscan/pkg/defaults"
	"github.com/fleetscan/fleetscan/pkg/duration"
	"github.com/fleetscan/fleetscan/pkg/httpclient"
	"github.com/fleetscan/fleetscan/pkg/jsonutil"
	"github.com/fleetscan/fleetscan/pkg/retry"
)

// ErrUnavailable is the failure kind for every scan API breakdown.
// errors.Is(err, ErrUnavailable) means "fall back to local scans".
var ErrUnavailable = errors.New("remote: scan API unavailable")

// Options configures a Client.
type Options struct {
	// BaseURL is the service root, e.g. https://scan.internal.example.
	// Required; must be absolute. A trailing slash is trimmed.
	BaseURL string

	// Token is sent as a Bearer credential when non-empty.
	Token string

	// Client overrides the pooled HTTP client. Nil builds one from
	// httpclient.APIConfig.
	Client *http.Client

	// MaxAttempts bounds attempts per request on 429/5xx responses
	// (default defaults.RetryMedium).
	MaxAttempts int

	// RateLimit caps requests per second (default defaults.RateLimitRemote).
	RateLimit float64

	// MaxBody caps response reads in bytes (default defaults.MaxResponseBody).
	MaxBody int64

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client talks to the hosted scan API. Safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	retry   retry.Config
	maxBody int64
	logger  *slog.Logger
}

// New builds a Client from opts.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		return nil, errors.New("remote: base URL required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("remote: invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote: base URL must be absolute, got %q", opts.BaseURL)
	}

	httpc := opts.Client
	if httpc == nil {
		httpc, err = httpclient.New(httpclient.APIConfig())
		if err != nil {
			return nil, err
		}
	}

	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaults.RetryMedium
	}
	rps := opts.RateLimit
	if rps <= 0 {
		rps = defaults.RateLimitRemote
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	maxBody := opts.MaxBody
	if maxBody <= 0 {
		maxBody = defaults.MaxResponseBody
	}

	return &Client{
		baseURL: base,
		token:   opts.Token,
		http:    httpc,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		retry: retry.Config{
			MaxAttempts: attempts,
			InitDelay:   duration.BackoffInitial,
			MaxDelay:    duration.BackoffMax,
			Strategy:    retry.Exponential,
			Jitter:      true,
		},
		maxBody: maxBody,
		logger:  orDefault(opts.Logger),
	}, nil
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string { return c.baseURL }

// Available reports whether the service answers its docs probe with
// HTTP 200. The probe is a single attempt: a service that needs retries
// to answer a docs request is not one to route a batch through.
func (c *Client) Available(ctx context.Context) bool {
	_, status, err := c.attempt(ctx, http.MethodGet, "/api/v1/docs", nil, duration.HTTPProbe)
	if err != nil {
		c.logger.Debug("remote: availability probe failed", slog.String("error", err.Error()))
		return false
	}
	return status == http.StatusOK
}

type submitRequest struct {
	Provider string   `json:"provider"`
	Projects []string `json:"projects"`
	OrgID    string   `json:"org_id,omitempty"`
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

// Submit queues a scan of projects under provider and returns the job id.
// A 200 without a job id is a failure: there is nothing to poll.
func (c *Client) Submit(ctx context.Context, provider string, projects []string, orgID string) (string, error) {
	if provider == "" {
		provider = defaults.ScannerProvider
	}
	if len(projects) == 0 {
		return "", errors.New("remote: no projects to scan")
	}

	payload, err := jsonutil.Marshal(submitRequest{Provider: provider, Projects: projects, OrgID: orgID})
	if err != nil {
		return "", fmt.Errorf("remote: encode scan request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/api/v1/scan", payload, duration.HTTPDefault)
	if err != nil {
		return "", err
	}

	var sr submitResponse
	if err := jsonutil.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("%w: decode scan response: %v", ErrUnavailable, err)
	}
	if sr.JobID == "" {
		return "", fmt.Errorf("%w: scan accepted but no job_id returned", ErrUnavailable)
	}

	c.logger.Info("remote: scan submitted",
		slog.String("job_id", sr.JobID),
		slog.String("provider", provider),
		slog.Int("projects", len(projects)))
	return sr.JobID, nil
}

// Results downloads the report for a job. The bytes are whatever the
// scanner produced; callers hand them to ingest for parsing.
func (c *Client) Results(ctx context.Context, jobID string) ([]byte, error) {
	if jobID == "" {
		return nil, errors.New("remote: job id required")
	}

	body, err := c.do(ctx, http.MethodGet, "/api/v1/results/"+url.PathEscape(jobID), nil, duration.HTTPResults)
	if err != nil {
		return nil, err
	}

	c.logger.Info("remote: results downloaded",
		slog.String("job_id", jobID),
		slog.Int("bytes", len(body)))
	return body, nil
}

// Run submits a scan and downloads its results in one call. On a results
// failure the job id is still returned so the caller can retry the
// download without re-queueing the scan.
func (c *Client) Run(ctx context.Context, provider string, projects []string, orgID string) (string, []byte, error) {
	jobID, err := c.Submit(ctx, provider, projects, orgID)
	if err != nil {
		return "", nil, err
	}
	results, err := c.Results(ctx, jobID)
	if err != nil {
		return jobID, nil, err
	}
	return jobID, results, nil
}

// do runs one API call under the retry policy. 429 and 5xx responses and
// transport errors retry with backoff; any other non-200 status stops
// immediately.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, timeout time.Duration) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, c.retry, func() error {
		b, status, err := c.attempt(ctx, method, path, payload, timeout)
		if err != nil {
			return err
		}
		switch {
		case status == http.StatusOK:
			body = b
			return nil
		case status == http.StatusTooManyRequests || status >= 500:
			c.logger.Debug("remote: retryable response",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", status))
			return fmt.Errorf("%w: %s %s: HTTP %d", ErrUnavailable, method, path, status)
		default:
			return retry.Stop(fmt.Errorf("%w: %s %s: HTTP %d", ErrUnavailable, method, path, status))
		}
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// attempt performs one rate-limited request and returns the response body
// and status. It errors only on transport, read, and size-cap failures;
// status classification belongs to the caller.
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, timeout time.Duration) ([]byte, int, error) {
	// The limiter waits under the outer context: queueing for a token
	// must not eat into the request's own timeout.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, retry.Stop(err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, 0, retry.Stop(fmt.Errorf("%w: build request: %v", ErrUnavailable, err))
	}
	req.Header.Set("User-Agent", defaults.UserAgent())
	req.Header.Set("Accept", defaults.AcceptJSON)
	if payload != nil {
		req.Header.Set("Content-Type", defaults.ContentTypeJSON)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if int64(len(data)) > c.maxBody {
		// Oversized bodies don't shrink on retry.
		return nil, 0, retry.Stop(fmt.Errorf("%w: response exceeds %d byte cap", ErrUnavailable, c.maxBody))
	}
	return data, resp.StatusCode, nil
}

func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
