package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fleetscan/fleetscan/pkg/defaults"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testClient builds a Client aimed at srv with test-friendly backoff.
func testClient(t *testing.T, srv *httptest.Server, mutate func(*Options)) *Client {
	t.Helper()
	opts := Options{
		BaseURL:   srv.URL,
		Logger:    quietLogger(),
		RateLimit: 1000,
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	// Tests must not sleep through production backoff.
	c.retry.InitDelay = time.Millisecond
	c.retry.MaxDelay = 5 * time.Millisecond
	c.retry.Jitter = false
	return c
}

func TestNew_Validation(t *testing.T) {
	t.Run("empty_base_url", func(t *testing.T) {
		if _, err := New(Options{}); err == nil {
			t.Error("expected error for empty base URL")
		}
	})

	t.Run("relative_base_url", func(t *testing.T) {
		if _, err := New(Options{BaseURL: "scan.internal.example"}); err == nil {
			t.Error("expected error for base URL without scheme")
		}
	})

	t.Run("defaults_applied", func(t *testing.T) {
		c, err := New(Options{BaseURL: "https://scan.internal.example", Logger: quietLogger()})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if c.retry.MaxAttempts != defaults.RetryMedium {
			t.Errorf("MaxAttempts = %d, want %d", c.retry.MaxAttempts, defaults.RetryMedium)
		}
		if c.maxBody != defaults.MaxResponseBody {
			t.Errorf("maxBody = %d, want %d", c.maxBody, defaults.MaxResponseBody)
		}
		if c.limiter == nil {
			t.Error("limiter not constructed")
		}
	})

	t.Run("trailing_slash_trimmed", func(t *testing.T) {
		c, err := New(Options{BaseURL: "https://scan.internal.example/", Logger: quietLogger()})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if c.BaseURL() != "https://scan.internal.example" {
			t.Errorf("BaseURL() = %q", c.BaseURL())
		}
	})
}

func TestAvailable(t *testing.T) {
	t.Run("answers_200", func(t *testing.T) {
		var sawAuth, sawUA atomic.Bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v1/docs" {
				t.Errorf("path = %q, want /api/v1/docs", r.URL.Path)
			}
			sawAuth.Store(r.Header.Get("Authorization") == "Bearer sekret")
			sawUA.Store(r.Header.Get("User-Agent") == defaults.UserAgent())
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		c := testClient(t, srv, func(o *Options) { o.Token = "sekret" })
		if !c.Available(context.Background()) {
			t.Error("Available() = false, want true")
		}
		if !sawAuth.Load() {
			t.Error("bearer token not sent")
		}
		if !sawUA.Load() {
			t.Error("user agent not sent")
		}
	})

	t.Run("error_status_is_single_attempt", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c := testClient(t, srv, nil)
		if c.Available(context.Background()) {
			t.Error("Available() = true for 503")
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("probe made %d requests, want 1 (probes must not retry)", got)
		}
	})

	t.Run("unreachable_service", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		c := testClient(t, srv, nil)
		srv.Close()

		if c.Available(context.Background()) {
			t.Error("Available() = true for closed server")
		}
	})

	t.Run("non_200_success_codes_rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		c := testClient(t, srv, nil)
		if c.Available(context.Background()) {
			t.Error("Available() = true for 204, want strict 200")
		}
	})
}

func TestSubmit(t *testing.T) {
	t.Run("posts_scan_request", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			if r.URL.Path != "/api/v1/scan" {
				t.Errorf("path = %q, want /api/v1/scan", r.URL.Path)
			}
			if ct := r.Header.Get("Content-Type"); ct != defaults.ContentTypeJSON {
				t.Errorf("Content-Type = %q", ct)
			}

			var req struct {
				Provider string   `json:"provider"`
				Projects []string `json:"projects"`
				OrgID    string   `json:"org_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if req.Provider != "gcp" {
				t.Errorf("provider = %q, want gcp", req.Provider)
			}
			if len(req.Projects) != 2 || req.Projects[0] != "proj-alpha" {
				t.Errorf("projects = %v", req.Projects)
			}
			if req.OrgID != "org-99" {
				t.Errorf("org_id = %q, want org-99", req.OrgID)
			}

			w.Write([]byte(`{"job_id":"job-42"}`))
		}))
		defer srv.Close()

		c := testClient(t, srv, nil)
		jobID, err := c.Submit(context.Background(), "gcp", []string{"proj-alpha", "proj-beta"}, "org-99")
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if jobID != "job-42" {
			t.Errorf("jobID = %q, want job-42", jobID)
		}
	})

	t.Run("empty_provider_uses_default", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Provider string `json:"provider"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			if req.Provider != defaults.ScannerProvider {
				t.Errorf("provider = %q, want %q", req.Provider, defaults.ScannerProvider)
			}
			w.Write([]byte(`{"job_id":"job-1"}`))
		}))
		defer srv.Close()

		c := testClient(t, srv, nil)
		if _, err := c.Submit(context.Background(), "", []string{"proj-alpha"}, ""); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	})

	t.Run("no_projects_rejected_without_request", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer srv.Close()

		c := testClient(t, srv, nil)
		if _, err := c.Submit(context.Background(), "gcp", nil, ""); err == nil {
			t.Error("expected error for empty project list")
		}
		if calls.Load() != 0 {
			t.Error("no HTTP request should be made for an empty project list")
		}
	})

	t.Run("missing_job_id_is_unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := testClient(t, srv, nil)
		_, err := c.Submit(context.Background(), "gcp", []string{"proj-alpha"}, "")
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
		if err == nil || !strings.Contains(err.Error(), "job_id") {
			t.Errorf("error should name the missing job_id, got %v", err)
		}
	})

	t.Run("retries_transient_failures", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch calls.Add(1) {
			case 1:
				w.WriteHeader(http.StatusInternalServerError)
			case 2:
				w.WriteHeader(http.StatusTooManyRequests)
			default:
				w.Write([]byte(`{"job_id":"job-42"}`))
			}
		}))
		defer srv.Close()

		c := testClient(t, srv, nil)
		jobID, err := c.Submit(context.Background(), "gcp", []string{"proj-alpha"}, "")
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if jobID != "job-42" {
			t.Errorf("jobID = %q", jobID)
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("server saw %d requests, want 3", got)
		}
	})

	t.Run("bounded_attempts", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := testClient(t, srv, nil)
		_, err := c.Submit(context.Background(), "gcp", []string{"proj-alpha"}, "")
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
		if got := calls.Load(); got != int32(defaults.RetryMedium) {
			t.Errorf("server saw %d requests, want %d", got, defaults.RetryMedium)
		}
	})
}

func TestResults(t *testing.T) {
	t.Run("downloads_report", func(t *testing.T) {
		report := `[{"check_id":"gcs_bucket_public_access","status":"FAIL"}]`
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v1/results/job-42" {
				t.Errorf("path = %q", r.URL.Path)
			}
			w.Write([]byte(report))
		}))
		defer srv.Close()

		c := testClient(t, srv, nil)
		got, err := c.Results(context.Background(), "job-42")
		if err != nil {
			t.Fatalf("Results() error = %v", err)
		}
		if string(got) != report {
			t.Errorf("body = %q, want %q", got, report)
		}
	})

	t.Run("escapes_job_id", func(t *testing.T) {
		var gotPath atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath.Store(r.URL.EscapedPath())
			w.Write([]byte("{}"))
		}))
		defer srv.Close()

		c := testClient(t, srv, nil)
		if _, err := c.Results(context.Background(), "job 42/x"); err != nil {
			t.Fatalf("Results() error = %v", err)
		}
		if got := gotPath.Load(); got != "/api/v1/results/job%2042%2Fx" {
			t.Errorf("escaped path = %q", got)
		}
	})

	t.Run("empty_job_id_rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		}))
		defer srv.Close()

		c := testClient(t, srv, nil)
		if _, err := c.Results(context.Background(), ""); err == nil {
			t.Error("expected error for empty job id")
		}
	})

	t.Run("not_found_is_unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		c := testClient(t, srv, nil)
		_, err := c.Results(context.Background(), "job-unknown")
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})
}

func TestRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/scan":
			w.Write([]byte(`{"job_id":"job-7"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/results/job-7":
			w.Write([]byte(`[{"check_id":"iam_admin_sa","status":"FAIL"}]`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	jobID, results, err := c.Run(context.Background(), "gcp", []string{"proj-alpha"}, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if jobID != "job-7" {
		t.Errorf("jobID = %q", jobID)
	}
	if !strings.Contains(string(results), "iam_admin_sa") {
		t.Errorf("results = %q", results)
	}
}

func TestClient_RateLimitHonorsContext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// One token of burst, then ~100s per token: the second call can never
	// acquire within its deadline and must fail fast instead of sleeping.
	c := testClient(t, srv, func(o *Options) { o.RateLimit = 0.01 })

	if !c.Available(context.Background()) {
		t.Fatal("first probe should succeed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if c.Available(ctx) {
		t.Error("second probe should fail while rate limited")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("rate-limited probe took %v, should fail fast", elapsed)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d requests, want 1", got)
	}
}
