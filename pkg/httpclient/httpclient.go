// Package httpclient provides the shared pooled HTTP client factory with
// optional HTTP and SOCKS5 proxy support. Every package that speaks HTTP
// builds its client here so connection pooling, TLS posture, and proxy
// wiring are decided in one place.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fleetscan/fleetscan/pkg/defaults"
	"github.com/fleetscan/fleetscan/pkg/duration"
)

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the whole-request ceiling (default: duration.HTTPDefault).
	// Per-call contexts usually bound individual requests tighter; this is
	// the outer stop.
	Timeout time.Duration

	// Proxy routes requests through an HTTP, HTTPS, SOCKS5, or SOCKS5h
	// proxy. Empty means direct.
	Proxy string

	// InsecureSkipVerify disables TLS certificate verification. Off by
	// default: the scan API is a first-party endpoint with real certs.
	InsecureSkipVerify bool

	// MaxIdleConns is the pool-wide idle connection cap
	// (default: defaults.HTTPMaxIdleConns).
	MaxIdleConns int

	// MaxConnsPerHost caps connections per host
	// (default: defaults.HTTPMaxConnsPerHost).
	MaxConnsPerHost int

	// IdleConnTimeout is how long idle connections stay pooled
	// (default: duration.IdleConnTimeout).
	IdleConnTimeout time.Duration

	// DialTimeout bounds TCP connection establishment
	// (default: duration.DialTimeout).
	DialTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake
	// (default: duration.TLSHandshakeTimeout).
	TLSHandshakeTimeout time.Duration

	// DisableKeepAlives disables HTTP keep-alives if true.
	DisableKeepAlives bool
}

// DefaultConfig returns the standard client configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:             duration.HTTPDefault,
		MaxIdleConns:        defaults.HTTPMaxIdleConns,
		MaxConnsPerHost:     defaults.HTTPMaxConnsPerHost,
		IdleConnTimeout:     duration.IdleConnTimeout,
		DialTimeout:         duration.DialTimeout,
		TLSHandshakeTimeout: duration.TLSHandshakeTimeout,
	}
}

// APIConfig returns a Config tuned for the hosted scan API. Result
// downloads can run minutes, so the outer timeout is the results ceiling;
// per-endpoint contexts tighten it for probes and submissions.
func APIConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = duration.HTTPResults
	return cfg
}

var (
	defaultClient *http.Client
	defaultOnce   sync.Once
)

// Default returns a shared, pre-configured HTTP client. The client is safe
// for concurrent use and pools connections across all callers.
func Default() *http.Client {
	defaultOnce.Do(func() {
		// DefaultConfig carries no proxy, so New cannot fail.
		defaultClient, _ = New(DefaultConfig())
	})
	return defaultClient
}

// New builds a pooled client from cfg. It returns an error only when the
// proxy configuration is unusable; a client is never silently unproxied.
func New(cfg Config) (*http.Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = duration.HTTPDefault
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = defaults.HTTPMaxIdleConns
	}
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = defaults.HTTPMaxConnsPerHost
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = duration.IdleConnTimeout
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = duration.DialTimeout
	}
	if cfg.TLSHandshakeTimeout == 0 {
		cfg.TLSHandshakeTimeout = duration.TLSHandshakeTimeout
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		DisableKeepAlives:   cfg.DisableKeepAlives,

		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,

		DialContext: dialer.DialContext,

		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	if cfg.Proxy != "" {
		pc, err := ParseProxyURL(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		if pc.IsSOCKS {
			// SOCKS replaces the dialer; CONNECT proxies go through
			// the transport's own proxy machinery.
			sd, err := SOCKSDialer(pc, cfg.DialTimeout)
			if err != nil {
				return nil, err
			}
			transport.DialContext = sd.DialContext
		} else {
			transport.Proxy = http.ProxyURL(pc.URL)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}, nil
}

// WithTimeout returns a DefaultConfig with the specified timeout.
func WithTimeout(timeout time.Duration) Config {
	cfg := DefaultConfig()
	cfg.Timeout = timeout
	return cfg
}

// WithProxy returns a DefaultConfig with the specified proxy.
func WithProxy(proxyURL string) Config {
	cfg := DefaultConfig()
	cfg.Proxy = proxyURL
	return cfg
}
