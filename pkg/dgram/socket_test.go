//go:build unix

package dgram

import (
	"context"
	"net/netip"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loopback = netip.MustParseAddrPort("127.0.0.1:0")

func listen(t *testing.T) *Socket {
	t.Helper()
	s, err := Listen(loopback, Config{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestListenEphemeralPort(t *testing.T) {
	s := listen(t)
	addr := s.LocalAddr()
	assert.NotZero(t, addr.Port())
	assert.Equal(t, netip.MustParseAddr("127.0.0.1"), addr.Addr())
	assert.False(t, s.RemoteAddr().IsValid())
}

func TestListenWithConfig(t *testing.T) {
	s, err := Listen(loopback, Config{TTL: 8, ReadBuffer: 1 << 16, WriteBuffer: 1 << 16})
	require.NoError(t, err)
	s.Close()
}

func TestListenAddressInUse(t *testing.T) {
	first := listen(t)

	_, err := Listen(first.LocalAddr(), Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAddressInUse)
}

func TestRecvWouldBlock(t *testing.T) {
	s := listen(t)

	buf := make([]byte, 64)
	_, _, err := s.RecvFrom(buf)
	require.Error(t, err)
	assert.Equal(t, WouldBlock, ResultOf(err))
	assert.True(t, ResultOf(err).Recoverable())
}

func TestSendRecvRoundTrip(t *testing.T) {
	a := listen(t)
	b := listen(t)

	require.NoError(t, a.SendTo([]byte("hello"), b.LocalAddr()))
	require.NoError(t, b.WaitReadable(context.Background(), time.Second))

	buf := make([]byte, 64)
	n, from, err := b.RecvFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
	assert.Equal(t, a.LocalAddr(), from)

	// Nothing else queued.
	_, _, err = b.RecvFrom(buf)
	assert.Equal(t, WouldBlock, ResultOf(err))
}

func TestRecvTruncated(t *testing.T) {
	a := listen(t)
	b := listen(t)

	require.NoError(t, a.SendTo(make([]byte, 100), b.LocalAddr()))
	require.NoError(t, b.WaitReadable(context.Background(), time.Second))

	buf := make([]byte, 10)
	n, _, err := b.RecvFrom(buf)
	assert.Equal(t, 10, n)
	assert.Equal(t, Truncated, ResultOf(err))
}

func TestWaitReadableTimeout(t *testing.T) {
	s := listen(t)

	start := time.Now()
	err := s.WaitReadable(context.Background(), 50*time.Millisecond)
	elapsed := time.Since(start)

	assert.Equal(t, TimedOut, ResultOf(err))
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)

	// The deadline is cleared afterwards, so reads keep working.
	_, _, err = s.RecvFrom(make([]byte, 8))
	assert.Equal(t, WouldBlock, ResultOf(err))
}

func TestWaitReadableZeroTimeout(t *testing.T) {
	a := listen(t)
	b := listen(t)

	err := b.WaitReadable(context.Background(), 0)
	assert.Equal(t, TimedOut, ResultOf(err))

	require.NoError(t, a.SendTo([]byte("x"), b.LocalAddr()))
	require.NoError(t, b.WaitReadable(context.Background(), time.Second))
	assert.NoError(t, b.WaitReadable(context.Background(), 0))
}

func TestWaitReadableContextCancel(t *testing.T) {
	s := listen(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := s.WaitReadable(ctx, -1)
	assert.Equal(t, Cancelled, ResultOf(err))
	assert.ErrorIs(t, err, context.Canceled)

	err = s.WaitReadable(ctx, time.Second)
	assert.Equal(t, Cancelled, ResultOf(err))
}

func TestWaitReadableContextDeadline(t *testing.T) {
	s := listen(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := s.WaitReadable(ctx, 5*time.Second)
	assert.Equal(t, TimedOut, ResultOf(err))
}

func TestWaitReadableClose(t *testing.T) {
	s, err := Listen(loopback, Config{})
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		s.Close()
	}()

	err = s.WaitReadable(context.Background(), 5*time.Second)
	assert.Equal(t, Cancelled, ResultOf(err))
}

func TestDialRoundTrip(t *testing.T) {
	server := listen(t)

	client, err := Dial(server.LocalAddr(), Config{})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, server.LocalAddr(), client.RemoteAddr())

	require.NoError(t, client.Send([]byte("ping")))
	require.NoError(t, server.WaitReadable(context.Background(), time.Second))

	buf := make([]byte, 16)
	n, from, err := server.RecvFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))
	assert.Equal(t, client.LocalAddr(), from)

	require.NoError(t, server.SendTo([]byte("pong"), from))
	require.NoError(t, client.WaitReadable(context.Background(), time.Second))
	n, from, err = client.RecvFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf[:n]))
	assert.Equal(t, server.LocalAddr(), from)
}

func TestSendUnconnected(t *testing.T) {
	s := listen(t)
	err := s.Send([]byte("x"))
	assert.Equal(t, NetworkFailure, ResultOf(err))
}

func TestDialRefused(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("relies on ICMP port unreachable being reported on loopback")
	}

	// Grab a free port, then release it.
	tmp := listen(t)
	addr := tmp.LocalAddr()
	tmp.Close()

	client, err := Dial(addr, Config{})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Send([]byte("anyone?")))

	err = client.WaitReadable(context.Background(), time.Second)
	if err == nil {
		_, _, err = client.RecvFrom(make([]byte, 16))
	}
	assert.Equal(t, Reset, ResultOf(err))
	assert.True(t, ResultOf(err).Recoverable())
}
