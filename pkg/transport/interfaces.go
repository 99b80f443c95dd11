package transport

import (
	"context"
	"net/netip"
	"time"

	"github.com/fragudp/fragudp-go/pkg/dgram"
)

// DatagramSocket is the socket a transport sends and receives through.
// Implemented by *dgram.Socket.
type DatagramSocket interface {
	// SendTo writes one datagram. Connected sockets ignore to.
	SendTo(b []byte, to netip.AddrPort) error

	// RecvFrom performs one non-blocking read. Failures carry a dgram.Result.
	RecvFrom(b []byte) (int, netip.AddrPort, error)

	// WaitReadable blocks until a datagram is queued. A negative timeout
	// waits without limit.
	WaitReadable(ctx context.Context, timeout time.Duration) error

	// LocalAddr returns the bound local address.
	LocalAddr() netip.AddrPort

	// Close closes the socket.
	Close() error
}

// ServerTransport exchanges messages with arbitrary peers.
// Implemented by Server.
type ServerTransport interface {
	// Send sends a message to a peer.
	Send(msg []byte, to netip.AddrPort) error

	// TryReceive performs one non-blocking read.
	TryReceive() ([]byte, netip.AddrPort, bool, error)

	// Receive blocks until a message completes.
	Receive(ctx context.Context) ([]byte, netip.AddrPort, error)

	// ReceiveTimeout blocks for at most timeout.
	ReceiveTimeout(timeout time.Duration) ([]byte, netip.AddrPort, bool, error)

	// Close closes the socket.
	Close() error
}

// ClientTransport exchanges messages with one fixed peer.
// Implemented by Client.
type ClientTransport interface {
	// Send sends a message to the remote.
	Send(msg []byte) error

	// TryReceive performs one non-blocking read.
	TryReceive() ([]byte, bool, error)

	// Receive blocks until a message completes.
	Receive(ctx context.Context) ([]byte, error)

	// ReceiveTimeout blocks for at most timeout.
	ReceiveTimeout(timeout time.Duration) ([]byte, bool, error)

	// Close closes the socket.
	Close() error
}

// Compile-time interface satisfaction checks.
var (
	_ DatagramSocket  = (*dgram.Socket)(nil)
	_ ServerTransport = (*Server)(nil)
	_ ClientTransport = (*Client)(nil)
)
