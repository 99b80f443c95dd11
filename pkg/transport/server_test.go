package transport

import (
	"bytes"
	"context"
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fragudp/fragudp-go/pkg/dgram"
	"github.com/fragudp/fragudp-go/pkg/frag"
	"github.com/fragudp/fragudp-go/pkg/log"
)

var (
	peerA = netip.MustParseAddrPort("10.0.0.2:4000")
	peerB = netip.MustParseAddrPort("10.0.0.3:4000")
)

func patterned(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*13 + 1)
	}
	return b
}

// encode returns the datagrams of msg under a fresh message ID.
func encode(msg []byte) [][]byte {
	var out [][]byte
	for d := range frag.DefaultCodec().Encode(uuid.New(), msg) {
		out = append(out, bytes.Clone(d))
	}
	return out
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockLogger struct {
	mock.Mock
	mu     sync.Mutex
	events []log.Event
}

func newMockLogger() *mockLogger {
	m := &mockLogger{}
	m.On("Log", mock.Anything).Run(func(args mock.Arguments) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.events = append(m.events, args.Get(0).(log.Event))
	})
	return m
}

func (m *mockLogger) Log(event log.Event) {
	m.Called(event)
}

func (m *mockLogger) find(match func(log.Event) bool) []log.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []log.Event
	for _, e := range m.events {
		if match(e) {
			out = append(out, e)
		}
	}
	return out
}

func newTestServer(t *testing.T, config Config) (*Server, *fakeSocket) {
	t.Helper()
	sock := newFakeSocket("10.0.0.1:9000")
	s, err := NewServer(sock, config)
	require.NoError(t, err)
	return s, sock
}

func TestServerSendFragments(t *testing.T) {
	s, sock := newTestServer(t, Config{})

	msg := patterned(5120)
	require.NoError(t, s.Send(msg, peerA))

	sent := sock.sentDatagrams()
	require.Len(t, sent, 10)

	var joined []byte
	var id uuid.UUID
	for i, d := range sent {
		assert.Equal(t, peerA, d.addr)
		h, err := frag.ParseHeader(d.data)
		require.NoError(t, err)
		if i == 0 {
			id = h.MessageID
		}
		assert.Equal(t, id, h.MessageID)
		assert.Equal(t, uint64(i), h.Index)
		assert.Equal(t, uint64(10), h.Count)
		if i < 9 {
			assert.Len(t, d.data, frag.DefaultMTU)
		}
		joined = append(joined, d.data[frag.HeaderSize:]...)
	}
	assert.Len(t, sent[9].data, frag.HeaderSize+224)
	assert.Equal(t, msg, joined)
}

func TestServerSendFreshMessageIDs(t *testing.T) {
	s, sock := newTestServer(t, Config{})

	require.NoError(t, s.Send([]byte("one"), peerA))
	require.NoError(t, s.Send([]byte("two"), peerA))

	sent := sock.sentDatagrams()
	require.Len(t, sent, 2)
	h1, _ := frag.ParseHeader(sent[0].data)
	h2, _ := frag.ParseHeader(sent[1].data)
	assert.NotEqual(t, h1.MessageID, h2.MessageID)
}

func TestServerSendErrors(t *testing.T) {
	t.Run("invalid address", func(t *testing.T) {
		s, _ := newTestServer(t, Config{})
		err := s.Send([]byte("x"), netip.AddrPort{})
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})

	t.Run("too large", func(t *testing.T) {
		s, sock := newTestServer(t, Config{MaxMessageSize: 100})
		err := s.Send(make([]byte, 101), peerA)
		assert.ErrorIs(t, err, ErrMessageTooLarge)
		assert.Empty(t, sock.sentDatagrams())
	})

	t.Run("socket failure", func(t *testing.T) {
		s, sock := newTestServer(t, Config{})
		sock.sendErr = &dgram.Error{Op: "send", Result: dgram.Unreachable}
		err := s.Send([]byte("x"), peerA)
		require.Error(t, err)
		assert.Equal(t, dgram.Unreachable, dgram.ResultOf(err))
	})
}

func TestNewServerInvalidMTU(t *testing.T) {
	_, err := NewServer(newFakeSocket("10.0.0.1:9000"), Config{MTU: 10})
	assert.ErrorIs(t, err, frag.ErrInvalidMTU)
}

func TestServerTryReceiveOutOfOrder(t *testing.T) {
	s, sock := newTestServer(t, Config{})

	msg := patterned(5120)
	datagrams := encode(msg)
	for i := len(datagrams) - 1; i >= 0; i-- {
		sock.deliver(datagrams[i], peerA)
	}

	for i := 0; i < len(datagrams)-1; i++ {
		got, _, ok, err := s.TryReceive()
		require.NoError(t, err)
		require.False(t, ok, "read %d", i)
		assert.Nil(t, got)
	}
	assert.Equal(t, 1, s.Pending())

	got, from, ok, err := s.TryReceive()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, msg, got)
	assert.Equal(t, peerA, from)
	assert.Equal(t, 0, s.Pending())
}

func TestServerTryReceiveEmpty(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	got, from, ok, err := s.TryReceive()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.False(t, from.IsValid())
}

func TestServerTryReceiveDropsInvalidDatagrams(t *testing.T) {
	logger := newMockLogger()
	s, sock := newTestServer(t, Config{Logger: logger})

	valid := encode([]byte("abc"))
	require.Len(t, valid, 1)

	sock.deliver([]byte("garbage"), peerA)
	sock.deliver(make([]byte, frag.DefaultMTU+1), peerA)
	short := bytes.Clone(encode(patterned(1000))[0][:100])
	sock.deliver(short, peerA)
	sock.deliver(valid[0], peerB)

	for range 3 {
		_, _, ok, err := s.TryReceive()
		require.NoError(t, err)
		require.False(t, ok)
	}
	got, from, ok, err := s.TryReceive()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), got)
	assert.Equal(t, peerB, from)
	assert.Equal(t, 0, s.Pending())

	drops := logger.find(func(e log.Event) bool {
		return e.Drop != nil && e.Drop.Reason == log.DropMalformed
	})
	assert.Len(t, drops, 3)
}

func TestServerTryReceiveSocketResults(t *testing.T) {
	tests := []struct {
		name    string
		result  dgram.Result
		wantErr bool
	}{
		{"reset", dgram.Reset, false},
		{"timed out", dgram.TimedOut, false},
		{"truncated", dgram.Truncated, false},
		{"network failure", dgram.NetworkFailure, true},
		{"unreachable", dgram.Unreachable, true},
		{"cancelled", dgram.Cancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sock := newTestServer(t, Config{})
			sock.recvErr = &dgram.Error{Op: "recv", Result: tt.result}

			_, _, ok, err := s.TryReceive()
			assert.False(t, ok)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.result, dgram.ResultOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServerReceiveTimeoutExpires(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	start := time.Now()
	got, _, ok, err := s.ReceiveTimeout(30 * time.Millisecond)
	elapsed := time.Since(start)

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.GreaterOrEqual(t, elapsed, 25*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestServerReceiveTimeoutBoundedUnderNoise(t *testing.T) {
	s, sock := newTestServer(t, Config{})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		partial := encode(patterned(2000))
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				sock.deliver([]byte("noise"), peerB)
				sock.deliver(partial[0], peerB)
			}
		}
	}()

	start := time.Now()
	_, _, ok, err := s.ReceiveTimeout(50 * time.Millisecond)
	elapsed := time.Since(start)

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestServerReceiveTimeoutDelivers(t *testing.T) {
	s, sock := newTestServer(t, Config{})

	msg := patterned(3000)
	go func() {
		for _, d := range encode(msg) {
			time.Sleep(time.Millisecond)
			sock.deliver(d, peerA)
		}
	}()

	got, from, ok, err := s.ReceiveTimeout(2 * time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, msg, got)
	assert.Equal(t, peerA, from)
}

func TestServerReceiveBlocksUntilComplete(t *testing.T) {
	s, sock := newTestServer(t, Config{})

	msg := patterned(1500)
	datagrams := encode(msg)
	sock.deliver(datagrams[2], peerA)
	sock.deliver(datagrams[0], peerA)
	go func() {
		time.Sleep(30 * time.Millisecond)
		sock.deliver(datagrams[1], peerA)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, from, err := s.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
	assert.Equal(t, peerA, from)
}

func TestServerReceiveContextCancel(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, _, err := s.Receive(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestServerAutoSweep(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	logger := newMockLogger()
	s, sock := newTestServer(t, Config{
		IdleTimeout: 10 * time.Second,
		Logger:      logger,
		Now:         clock.Now,
	})

	sock.deliver(encode(patterned(1000))[0], peerA)
	_, _, ok, err := s.TryReceive()
	require.NoError(t, err)
	require.False(t, ok)
	assert.Equal(t, 1, s.Pending())

	// Within the sweep interval nothing is swept.
	clock.Advance(4 * time.Second)
	s.TryReceive()
	assert.Equal(t, 1, s.Pending())

	// Sweep runs but the context is not idle long enough.
	clock.Advance(2 * time.Second)
	s.TryReceive()
	assert.Equal(t, 1, s.Pending())

	clock.Advance(6 * time.Second)
	s.TryReceive()
	assert.Equal(t, 0, s.Pending())

	evictions := logger.find(func(e log.Event) bool { return e.Eviction != nil })
	require.Len(t, evictions, 1)
	assert.Equal(t, uint64(1), evictions[0].Eviction.Received)
	assert.Equal(t, uint64(2), evictions[0].Eviction.Count)
}

func TestServerManualSweep(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s, sock := newTestServer(t, Config{Now: clock.Now})

	sock.deliver(encode(patterned(1000))[0], peerA)
	s.TryReceive()
	require.Equal(t, 1, s.Pending())

	// No automatic sweeping without IdleTimeout.
	clock.Advance(time.Hour)
	s.TryReceive()
	assert.Equal(t, 1, s.Pending())

	assert.Equal(t, 0, s.Sweep(2*time.Hour))
	assert.Equal(t, 1, s.Sweep(time.Minute))
	assert.Equal(t, 0, s.Pending())
}

func TestServerReset(t *testing.T) {
	logger := newMockLogger()
	s, oldSock := newTestServer(t, Config{Logger: logger})

	datagrams := encode(patterned(1000))
	oldSock.deliver(datagrams[0], peerA)
	s.TryReceive()
	require.Equal(t, 1, s.Pending())

	newSock := newFakeSocket("10.0.0.1:9001")
	require.NoError(t, s.Reset(newSock))

	assert.True(t, oldSock.closed)
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, newSock.LocalAddr(), s.LocalAddr())

	// The remaining fragment alone cannot complete the message any more.
	newSock.deliver(datagrams[1], peerA)
	_, _, ok, err := s.TryReceive()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Pending())

	states := logger.find(func(e log.Event) bool { return e.StateChange != nil })
	require.Len(t, states, 1)
	assert.Equal(t, "10.0.0.1:9001", states[0].StateChange.NewState)
}

func TestServerResetRestartsSweepInterval(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s, _ := newTestServer(t, Config{
		IdleTimeout:   time.Second,
		SweepInterval: 500 * time.Millisecond,
		Now:           clock.Now,
	})

	clock.Advance(400 * time.Millisecond)
	newSock := newFakeSocket("10.0.0.1:9001")
	require.NoError(t, s.Reset(newSock))
	assert.True(t, s.ep.lastSweep.Equal(clock.Now()))

	newSock.deliver(encode(patterned(1000))[0], peerA)
	clock.Advance(100 * time.Millisecond)
	s.TryReceive()
	require.Equal(t, 1, s.Pending())

	// The interval counts from the reset, not from creation.
	clock.Advance(300 * time.Millisecond)
	s.TryReceive()
	assert.True(t, s.ep.lastSweep.Equal(clock.Now().Add(-400*time.Millisecond)))
}

func TestServerLogsMessageFlow(t *testing.T) {
	logger := newMockLogger()
	s, sock := newTestServer(t, Config{Logger: logger})

	require.NoError(t, s.Send(patterned(1000), peerA))
	for _, d := range encode(patterned(600)) {
		sock.deliver(d, peerB)
	}
	for range 2 {
		s.TryReceive()
	}

	out := logger.find(func(e log.Event) bool {
		return e.Direction == log.DirectionOut && e.Layer == log.LayerSocket
	})
	assert.Len(t, out, 2)

	msgs := logger.find(func(e log.Event) bool { return e.Message != nil })
	require.Len(t, msgs, 2)
	assert.Equal(t, log.DirectionOut, msgs[0].Direction)
	assert.Equal(t, 1000, msgs[0].Message.Size)
	assert.Equal(t, log.DirectionIn, msgs[1].Direction)
	assert.Equal(t, 600, msgs[1].Message.Size)
	assert.Equal(t, peerB.String(), msgs[1].RemoteAddr)

	for _, e := range logger.find(func(log.Event) bool { return true }) {
		assert.Equal(t, s.EndpointID(), e.EndpointID)
		assert.Equal(t, log.RoleServer, e.LocalRole)
	}
	logger.AssertCalled(t, "Log", mock.Anything)
}

func TestServerClose(t *testing.T) {
	s, sock := newTestServer(t, Config{})
	require.NoError(t, s.Close())
	assert.True(t, sock.closed)

	_, _, ok, err := s.TryReceive()
	assert.False(t, ok)
	assert.Equal(t, dgram.Cancelled, dgram.ResultOf(err))
}
