package transport

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/fragudp/fragudp-go/pkg/dgram"
	"github.com/fragudp/fragudp-go/pkg/log"
)

// Server exchanges messages with arbitrary peers through one bound socket.
type Server struct {
	ep *endpoint
}

// Listen binds a Server to a local IPv4 address such as ":9000" or
// "127.0.0.1:0". The error matches ErrAddressInUse when the address is taken.
func Listen(address string, config Config) (*Server, error) {
	addr, err := resolve(address)
	if err != nil {
		return nil, err
	}

	sock, err := dgram.Listen(addr, config.Socket)
	if err != nil {
		return nil, err
	}

	s, err := NewServer(sock, config)
	if err != nil {
		sock.Close()
		return nil, err
	}
	return s, nil
}

// NewServer creates a Server on an existing socket. The Server takes
// ownership of sock.
func NewServer(sock DatagramSocket, config Config) (*Server, error) {
	ep, err := newEndpoint(sock, log.RoleServer, config)
	if err != nil {
		return nil, fmt.Errorf("new server: %w", err)
	}
	return &Server{ep: ep}, nil
}

// Send fragments msg and writes every fragment to to.
// Returning nil means the datagrams were handed to the socket, not that
// the peer received them.
func (s *Server) Send(msg []byte, to netip.AddrPort) error {
	if !to.IsValid() || !to.Addr().Is4() {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, to)
	}
	return s.ep.send(msg, to)
}

// TryReceive performs exactly one non-blocking read. It returns ok == true
// with the message and the sender of its final fragment when that read
// completed a message.
func (s *Server) TryReceive() (msg []byte, from netip.AddrPort, ok bool, err error) {
	return s.ep.tryReceive()
}

// Receive blocks until a message completes or ctx is done.
func (s *Server) Receive(ctx context.Context) ([]byte, netip.AddrPort, error) {
	return s.ep.receive(ctx)
}

// ReceiveTimeout blocks until a message completes or timeout elapses.
// It returns ok == false with a nil error on timeout.
func (s *Server) ReceiveTimeout(timeout time.Duration) ([]byte, netip.AddrPort, bool, error) {
	return s.ep.receiveTimeout(timeout)
}

// Reset closes the current socket, continues on sock and discards all
// partially received messages.
func (s *Server) Reset(sock DatagramSocket) error {
	return s.ep.reset(sock)
}

// Sweep discards partial messages that received no fragment for longer
// than idle and returns how many were discarded.
func (s *Server) Sweep(idle time.Duration) int {
	return s.ep.sweep(idle)
}

// Pending returns the number of partially received messages.
func (s *Server) Pending() int {
	return s.ep.cache.Len()
}

// EndpointID returns the identifier used in protocol log events.
func (s *Server) EndpointID() string {
	return s.ep.id
}

// MTU returns the configured datagram size.
func (s *Server) MTU() int {
	return s.ep.codec.MTU()
}

// LocalAddr returns the bound local address.
func (s *Server) LocalAddr() netip.AddrPort {
	return s.ep.sock.LocalAddr()
}

// Close closes the socket.
func (s *Server) Close() error {
	return s.ep.close()
}
