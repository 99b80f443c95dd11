package dgram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"
)

// Config holds socket options. Zero values keep the OS defaults.
type Config struct {
	// TTL is the IPv4 time-to-live for outgoing datagrams.
	TTL int `yaml:"ttl"`

	// ReadBuffer is the socket receive buffer size in bytes.
	ReadBuffer int `yaml:"read_buffer"`

	// WriteBuffer is the socket send buffer size in bytes.
	WriteBuffer int `yaml:"write_buffer"`
}

// aLongTimeAgo is a deadline that has always passed.
var aLongTimeAgo = time.Unix(1, 0)

// Socket is an IPv4 UDP socket with non-blocking receive.
//
// Send and receive may be used from different goroutines, but at most one
// goroutine may receive or wait at a time.
type Socket struct {
	conn   *net.UDPConn
	raw    syscall.RawConn
	remote netip.AddrPort
}

// Listen binds an unconnected socket to addr. A zero port picks an
// ephemeral port.
func Listen(addr netip.AddrPort, cfg Config) (*Socket, error) {
	conn, err := net.ListenUDP("udp4", net.UDPAddrFromAddrPort(addr))
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen %s: %w", addr, ErrAddressInUse)
		}
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return newSocket(conn, netip.AddrPort{}, cfg)
}

// Dial creates a socket connected to remote. Only datagrams from remote are
// received and ICMP errors for remote surface as Reset or Unreachable.
func Dial(remote netip.AddrPort, cfg Config) (*Socket, error) {
	conn, err := net.DialUDP("udp4", nil, net.UDPAddrFromAddrPort(remote))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", remote, err)
	}
	return newSocket(conn, remote, cfg)
}

func newSocket(conn *net.UDPConn, remote netip.AddrPort, cfg Config) (*Socket, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("syscall conn: %w", err)
	}

	if err := applyConfig(conn, cfg); err != nil {
		conn.Close()
		return nil, err
	}

	return &Socket{conn: conn, raw: raw, remote: remote}, nil
}

func applyConfig(conn *net.UDPConn, cfg Config) error {
	if cfg.TTL > 0 {
		if err := ipv4.NewConn(conn).SetTTL(cfg.TTL); err != nil {
			return fmt.Errorf("set ttl: %w", err)
		}
	}
	if cfg.ReadBuffer > 0 {
		if err := conn.SetReadBuffer(cfg.ReadBuffer); err != nil {
			return fmt.Errorf("set read buffer: %w", err)
		}
	}
	if cfg.WriteBuffer > 0 {
		if err := conn.SetWriteBuffer(cfg.WriteBuffer); err != nil {
			return fmt.Errorf("set write buffer: %w", err)
		}
	}
	return nil
}

// SendTo writes one datagram to an unconnected socket's destination.
func (s *Socket) SendTo(b []byte, to netip.AddrPort) error {
	if s.remote.IsValid() {
		return s.Send(b)
	}
	_, err := s.conn.WriteToUDPAddrPort(b, to)
	return classify("send", err)
}

// Send writes one datagram to the connected remote.
func (s *Socket) Send(b []byte) error {
	if !s.remote.IsValid() {
		return &Error{Op: "send", Result: NetworkFailure, Err: errors.New("socket not connected")}
	}
	_, err := s.conn.Write(b)
	return classify("send", err)
}

// RecvFrom performs a single non-blocking read into b.
//
// It returns an error with Result WouldBlock when no datagram is queued.
// When the datagram was larger than b, the first len(b) bytes are returned
// together with an error whose Result is Truncated.
func (s *Socket) RecvFrom(b []byte) (int, netip.AddrPort, error) {
	n, from, truncated, err := s.recv(b)
	if err != nil {
		return 0, netip.AddrPort{}, classify("recv", err)
	}
	if truncated {
		return n, from, &Error{Op: "recv", Result: Truncated}
	}
	return n, from, nil
}

// WaitReadable blocks until a datagram is queued.
//
// A negative timeout waits without limit. It returns an error with Result
// TimedOut when the timeout or the context deadline elapses first and
// Cancelled when ctx is cancelled or the socket is closed.
func (s *Socket) WaitReadable(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return contextError(err)
	}

	ready, err := s.queued()
	if err != nil || ready {
		return classify("wait", err)
	}
	if timeout == 0 {
		return &Error{Op: "wait", Result: TimedOut}
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return classify("wait", err)
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		s.conn.SetReadDeadline(aLongTimeAgo)
		close(fired)
	})
	defer func() {
		if !stop() {
			<-fired
		}
		s.conn.SetReadDeadline(time.Time{})
	}()

	err = s.wait()
	if err != nil && ctx.Err() != nil {
		return contextError(ctx.Err())
	}
	return classify("wait", err)
}

// LocalAddr returns the bound local address.
func (s *Socket) LocalAddr() netip.AddrPort {
	return s.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// RemoteAddr returns the connected remote, or the zero value for an
// unconnected socket.
func (s *Socket) RemoteAddr() netip.AddrPort {
	return s.remote
}

// Close closes the socket. A blocked WaitReadable returns Cancelled.
func (s *Socket) Close() error {
	return s.conn.Close()
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Op: "wait", Result: TimedOut, Err: err}
	}
	return &Error{Op: "wait", Result: Cancelled, Err: err}
}
