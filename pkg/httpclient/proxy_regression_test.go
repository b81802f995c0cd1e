// Regression tests for proxy handling.
//
// Bug: New silently dropped proxy URLs it could not parse and built a
// direct client instead — traffic that policy required to traverse the
// egress proxy went straight to the scan API, and nothing logged the
// downgrade. Fix: New returns an error for any proxy configuration it
// cannot honor, including schemes x/net/proxy cannot dial (socks4).
//
// Second bug: timeoutDialer sent late connections into a buffered channel,
// so a SOCKS dial that completed after its caller timed out parked an open
// socket in a buffer forever. Under a slow proxy every retry leaked one fd.
// Fix: the handoff channel is unbuffered; a completion with no receiver
// closes the conn.
package httpclient

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MalformedProxyURLRejected(t *testing.T) {
	t.Parallel()

	client, err := New(Config{Proxy: "http://proxy.internal:not-a-port"})
	require.Error(t, err, "malformed proxy URL must fail, not fall back to direct")
	assert.Nil(t, client, "no client may exist when the proxy cannot be honored")
}

func TestNew_UnsupportedProxySchemeRejected(t *testing.T) {
	t.Parallel()

	for _, proxyURL := range []string{
		"ftp://127.0.0.1:21",
		"socks4://127.0.0.1:1080",
		"quic://127.0.0.1:443",
	} {
		client, err := New(Config{Proxy: proxyURL})
		require.Error(t, err, "proxy %q must be rejected", proxyURL)
		assert.Nil(t, client)
		assert.Contains(t, err.Error(), "unsupported proxy scheme")
	}
}

func TestNew_EmptyProxyStaysDirect(t *testing.T) {
	t.Parallel()

	client, err := New(Config{Proxy: ""})
	require.NoError(t, err)
	require.NotNil(t, client)
}

// slowConnDialer hands back a prepared conn after a fixed delay.
type slowConnDialer struct {
	conn  net.Conn
	delay time.Duration
}

func (d *slowConnDialer) Dial(network, addr string) (net.Conn, error) {
	time.Sleep(d.delay)
	return d.conn, nil
}

// trackedConn records whether Close was called.
type trackedConn struct {
	net.Conn
	closed atomic.Bool
}

func (c *trackedConn) Close() error {
	c.closed.Store(true)
	return c.Conn.Close()
}

func TestTimeoutDialer_AbandonedDialClosesConn(t *testing.T) {
	t.Parallel()

	client, server := net.Pipe()
	defer server.Close()
	tracked := &trackedConn{Conn: client}

	td := &timeoutDialer{
		dialer:  &slowConnDialer{conn: tracked, delay: 100 * time.Millisecond},
		timeout: 10 * time.Millisecond,
	}

	_, err := td.DialContext(context.Background(), "tcp", "10.0.0.1:443")
	require.Error(t, err, "dial must time out before the slow dialer completes")

	assert.Eventually(t, tracked.closed.Load, 2*time.Second, 10*time.Millisecond,
		"connection completed after abandonment must be closed")
}
