package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// ErrProxyConnect indicates the SOCKS proxy dialer could not be built or
// a dial through it failed. Callers check it with errors.Is.
var ErrProxyConnect = errors.New("httpclient: proxy connection failed")

// supportedProxySchemes gates ParseProxyURL. SOCKS4 is deliberately
// absent: golang.org/x/net/proxy cannot dial it, and pretending otherwise
// means traffic silently bypasses the proxy.
var supportedProxySchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true,
}

// ProxyConfig is a parsed and validated proxy URL.
type ProxyConfig struct {
	URL       *url.URL
	Scheme    string
	Host      string
	Port      string
	Username  string
	Password  string
	IsSOCKS   bool
	RemoteDNS bool // socks5h: hostnames resolve on the proxy side
}

// ParseProxyURL validates and parses a proxy URL string.
// It returns (nil, nil) when proxyURL is empty — no proxy configured.
//
// Supported schemes: http, https, socks5, and socks5h (SOCKS5 with DNS
// resolved by the proxy, so no local lookups leak). A bare host:port
// defaults to http. Missing ports default per scheme: 8080 for http,
// 8443 for https, 1080 for SOCKS.
func ParseProxyURL(proxyURL string) (*ProxyConfig, error) {
	if proxyURL == "" {
		return nil, nil
	}

	if !strings.Contains(proxyURL, "://") {
		proxyURL = "http://" + proxyURL
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("httpclient: invalid proxy URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !supportedProxySchemes[scheme] {
		return nil, fmt.Errorf("httpclient: unsupported proxy scheme %q (supported: http, https, socks5, socks5h)", scheme)
	}

	host := parsed.Hostname()
	port := parsed.Port()
	if host == "" {
		return nil, errors.New("httpclient: proxy URL missing host")
	}
	if port == "" {
		switch scheme {
		case "http":
			port = "8080"
		case "https":
			port = "8443"
		default:
			port = "1080"
		}
	}

	cfg := &ProxyConfig{
		URL:       parsed,
		Scheme:    scheme,
		Host:      host,
		Port:      port,
		IsSOCKS:   scheme == "socks5" || scheme == "socks5h",
		RemoteDNS: scheme == "socks5h",
	}
	if parsed.User != nil {
		cfg.Username = parsed.User.Username()
		cfg.Password, _ = parsed.User.Password()
	}
	return cfg, nil
}

// Address returns the proxy endpoint in host:port form.
func (p *ProxyConfig) Address() string {
	if p == nil {
		return ""
	}
	return net.JoinHostPort(p.Host, p.Port)
}

// ContextDialer matches the DialContext shape http.Transport wants.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// SOCKSDialer builds a SOCKS5 dialer for cfg, usable as a transport's
// DialContext. The returned dialer honors context deadlines even though
// x/net/proxy dialers only support them opportunistically.
func SOCKSDialer(cfg *ProxyConfig, timeout time.Duration) (ContextDialer, error) {
	if cfg == nil || !cfg.IsSOCKS {
		return nil, fmt.Errorf("%w: not a SOCKS proxy", ErrProxyConnect)
	}

	// x/net/proxy registers socks5 only. socks5h differs from socks5
	// solely in where DNS happens, and passing hostnames through the
	// tunnel uncut achieves that.
	u := &url.URL{Scheme: "socks5", Host: cfg.Address()}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}

	d, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProxyConnect, err)
	}
	return &timeoutDialer{dialer: d, timeout: timeout}, nil
}

// timeoutDialer adds per-dial timeouts to a proxy.Dialer.
type timeoutDialer struct {
	dialer  proxy.Dialer
	timeout time.Duration
}

func (t *timeoutDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	// connCh is unbuffered: a dial that completes after the caller gave up
	// rendezvouses with nobody, and the goroutine closes the conn instead
	// of leaking it into a buffer.
	connCh := make(chan net.Conn)
	errCh := make(chan error, 1)

	go func() {
		var conn net.Conn
		var err error
		if cd, ok := t.dialer.(proxy.ContextDialer); ok {
			conn, err = cd.DialContext(ctx, network, address)
		} else {
			conn, err = t.dialer.Dial(network, address)
		}
		if err != nil {
			errCh <- err
			return
		}
		select {
		case connCh <- conn:
		case <-ctx.Done():
			conn.Close()
		}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: dial %s: %w", ErrProxyConnect, address, ctx.Err())
	case conn := <-connCh:
		return conn, nil
	case err := <-errCh:
		return nil, fmt.Errorf("%w: dial %s: %w", ErrProxyConnect, address, err)
	}
}
