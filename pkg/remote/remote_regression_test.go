// Regression tests for remote retry classification.
//
// Bug: the client retried every non-200 response. A 400 from a malformed
// request re-submitted the same scan up to MaxAttempts times — the service
// queued duplicate jobs for accounts that were already misconfigured, and
// auth failures took three backoff rounds to surface. Fix: only 429 and
// 5xx responses retry; every other status is permanent and returns on the
// first attempt.
//
// Second bug: a results body over the size cap was retried as if the next
// download might shrink. Each retry pulled tens of megabytes just to fail
// the same cap check. Fix: cap violations stop the retry loop immediately.
package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_ClientErrorDoesNotResubmit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	_, err := c.Submit(context.Background(), "gcp", []string{"proj-alpha"}, "")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 1, calls.Load(), "a 4xx must not re-submit the scan")
}

func TestSubmit_UnauthorizedFailsFirstAttempt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	_, err := c.Submit(context.Background(), "gcp", []string{"proj-alpha"}, "")

	require.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 1, calls.Load(), "auth failures must surface immediately")
}

func TestResults_OversizedBodyNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write(make([]byte, 256))
	}))
	defer srv.Close()

	c := testClient(t, srv, func(o *Options) { o.MaxBody = 64 })
	_, err := c.Results(context.Background(), "job-42")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "cap")
	assert.EqualValues(t, 1, calls.Load(), "an oversized body must not be re-downloaded")
}
