//go:build unix

package dgram

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"os"

	"golang.org/x/sys/unix"
)

// recv reads one datagram without blocking.
func (s *Socket) recv(b []byte) (n int, from netip.AddrPort, truncated bool, err error) {
	var e error
	err = s.raw.Read(func(fd uintptr) bool {
		var flags int
		var sa unix.Sockaddr
		n, _, flags, sa, e = unix.Recvmsg(int(fd), b, nil, unix.MSG_DONTWAIT)
		if e == nil {
			truncated = flags&unix.MSG_TRUNC != 0
			from = addrPortOf(sa)
		}
		return true
	})
	if err != nil {
		return 0, netip.AddrPort{}, false, err
	}
	if e != nil {
		return 0, netip.AddrPort{}, false, e
	}
	return n, from, truncated, nil
}

// queued reports whether a datagram is queued without consuming it.
// A pending socket error is returned (and cleared by the kernel).
func (s *Socket) queued() (bool, error) {
	var e error
	err := s.raw.Control(func(fd uintptr) {
		e = peek(fd)
	})
	if err != nil {
		return false, err
	}
	if errors.Is(e, unix.EAGAIN) {
		return false, nil
	}
	return e == nil, e
}

// wait blocks in the runtime poller until a datagram is queued or the read
// deadline passes.
func (s *Socket) wait() error {
	var e error
	err := s.raw.Read(func(fd uintptr) bool {
		e = peek(fd)
		return !errors.Is(e, unix.EAGAIN)
	})
	if err != nil {
		return err
	}
	return e
}

func peek(fd uintptr) error {
	var buf [1]byte
	_, _, err := unix.Recvfrom(int(fd), buf[:], unix.MSG_PEEK|unix.MSG_DONTWAIT)
	return err
}

func addrPortOf(sa unix.Sockaddr) netip.AddrPort {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port))
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(sa.Addr).Unmap(), uint16(sa.Port))
	default:
		return netip.AddrPort{}
	}
}

// classify wraps err in an *Error carrying its Result.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var result Result
	switch {
	case errors.Is(err, unix.EAGAIN):
		result = WouldBlock
	case errors.Is(err, unix.ECONNREFUSED), errors.Is(err, unix.ECONNRESET):
		result = Reset
	case errors.Is(err, unix.ETIMEDOUT), errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded):
		result = TimedOut
	case errors.Is(err, unix.EHOSTUNREACH), errors.Is(err, unix.ENETUNREACH):
		result = Unreachable
	case errors.Is(err, net.ErrClosed), errors.Is(err, context.Canceled):
		result = Cancelled
	case errors.Is(err, unix.EMSGSIZE):
		result = Truncated
	default:
		result = NetworkFailure
	}
	return &Error{Op: op, Result: result, Err: err}
}
