package httpclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fleetscan/fleetscan/pkg/defaults"
	"github.com/fleetscan/fleetscan/pkg/duration"
)

func mustNew(t *testing.T, cfg Config) *http.Client {
	t.Helper()
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func transportOf(t *testing.T, client *http.Client) *http.Transport {
	t.Helper()
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("Transport is %T, want *http.Transport", client.Transport)
	}
	return transport
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Timeout != duration.HTTPDefault {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, duration.HTTPDefault)
	}
	if cfg.MaxIdleConns != defaults.HTTPMaxIdleConns {
		t.Errorf("MaxIdleConns = %d, want %d", cfg.MaxIdleConns, defaults.HTTPMaxIdleConns)
	}
	if cfg.MaxConnsPerHost != defaults.HTTPMaxConnsPerHost {
		t.Errorf("MaxConnsPerHost = %d, want %d", cfg.MaxConnsPerHost, defaults.HTTPMaxConnsPerHost)
	}
	if cfg.IdleConnTimeout != duration.IdleConnTimeout {
		t.Errorf("IdleConnTimeout = %v, want %v", cfg.IdleConnTimeout, duration.IdleConnTimeout)
	}
	if cfg.DialTimeout != duration.DialTimeout {
		t.Errorf("DialTimeout = %v, want %v", cfg.DialTimeout, duration.DialTimeout)
	}
	if cfg.TLSHandshakeTimeout != duration.TLSHandshakeTimeout {
		t.Errorf("TLSHandshakeTimeout = %v, want %v", cfg.TLSHandshakeTimeout, duration.TLSHandshakeTimeout)
	}
	if cfg.InsecureSkipVerify {
		t.Error("InsecureSkipVerify must default to false for a first-party API")
	}
}

func TestAPIConfig(t *testing.T) {
	cfg := APIConfig()
	if cfg.Timeout != duration.HTTPResults {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, duration.HTTPResults)
	}
	if cfg.MaxIdleConns != defaults.HTTPMaxIdleConns {
		t.Errorf("MaxIdleConns = %d, want %d", cfg.MaxIdleConns, defaults.HTTPMaxIdleConns)
	}
}

func TestNew_ZeroValuesGetDefaults(t *testing.T) {
	client := mustNew(t, Config{})
	if client.Timeout != duration.HTTPDefault {
		t.Errorf("Timeout = %v, want %v", client.Timeout, duration.HTTPDefault)
	}

	transport := transportOf(t, client)
	if transport.MaxIdleConns != defaults.HTTPMaxIdleConns {
		t.Errorf("MaxIdleConns = %d, want %d", transport.MaxIdleConns, defaults.HTTPMaxIdleConns)
	}
	if transport.IdleConnTimeout != duration.IdleConnTimeout {
		t.Errorf("IdleConnTimeout = %v, want %v", transport.IdleConnTimeout, duration.IdleConnTimeout)
	}
}

func TestNew_PoolingConfigured(t *testing.T) {
	client := mustNew(t, Config{MaxConnsPerHost: 7})
	transport := transportOf(t, client)

	if transport.MaxIdleConnsPerHost != 7 {
		t.Errorf("MaxIdleConnsPerHost = %d, want 7", transport.MaxIdleConnsPerHost)
	}
	if transport.MaxConnsPerHost != 7 {
		t.Errorf("MaxConnsPerHost = %d, want 7", transport.MaxConnsPerHost)
	}
	if !transport.ForceAttemptHTTP2 {
		t.Error("ForceAttemptHTTP2 should be enabled")
	}
}

func TestNew_InsecureSkipVerify(t *testing.T) {
	client := mustNew(t, Config{InsecureSkipVerify: true})
	transport := transportOf(t, client)
	if !transport.TLSClientConfig.InsecureSkipVerify {
		t.Error("InsecureSkipVerify not applied to transport")
	}
}

func TestNew_HTTPProxyWired(t *testing.T) {
	client := mustNew(t, Config{Proxy: "http://127.0.0.1:3128"})
	transport := transportOf(t, client)
	if transport.Proxy == nil {
		t.Fatal("transport.Proxy not set for HTTP proxy")
	}
}

func TestNew_SOCKSProxyWired(t *testing.T) {
	client := mustNew(t, Config{Proxy: "socks5://127.0.0.1:1080"})
	transport := transportOf(t, client)
	// SOCKS routes through the dialer, not the transport proxy hook.
	if transport.Proxy != nil {
		t.Error("transport.Proxy should be nil for SOCKS proxies")
	}
	if transport.DialContext == nil {
		t.Fatal("transport.DialContext not set for SOCKS proxy")
	}
}

func TestNew_BadProxyRejected(t *testing.T) {
	if _, err := New(Config{Proxy: "ftp://127.0.0.1:21"}); err == nil {
		t.Error("expected error for unsupported proxy scheme")
	}
}

func TestDefault_SharedInstance(t *testing.T) {
	a := Default()
	b := Default()
	if a == nil {
		t.Fatal("Default() returned nil")
	}
	if a != b {
		t.Error("Default() must return the same client instance")
	}
}

func TestClient_MakesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := mustNew(t, WithTimeout(5*time.Second))
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want %q", body, "ok")
	}
}

func TestClient_FollowsRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			http.Redirect(w, r, "/end", http.StatusFound)
		case "/end":
			w.Write([]byte("arrived"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := mustNew(t, WithTimeout(5*time.Second))
	resp, err := client.Get(srv.URL + "/start")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d (redirect should be followed)", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "arrived" {
		t.Errorf("body = %q, want %q", body, "arrived")
	}
}

func TestWithTimeout(t *testing.T) {
	cfg := WithTimeout(duration.HTTPProbe)
	if cfg.Timeout != duration.HTTPProbe {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, duration.HTTPProbe)
	}
	if cfg.MaxIdleConns != defaults.HTTPMaxIdleConns {
		t.Error("WithTimeout must keep the remaining defaults")
	}
}

func TestWithProxy(t *testing.T) {
	cfg := WithProxy("http://127.0.0.1:8080")
	if cfg.Proxy != "http://127.0.0.1:8080" {
		t.Errorf("Proxy = %q", cfg.Proxy)
	}
	if cfg.Timeout != duration.HTTPDefault {
		t.Error("WithProxy must keep the remaining defaults")
	}
}
