package transport

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/fragudp/fragudp-go/pkg/dgram"
	"github.com/fragudp/fragudp-go/pkg/log"
)

// Client exchanges messages with one remote endpoint.
type Client struct {
	ep *endpoint
}

// Dial creates a Client for the IPv4 address of a server, such as
// "192.168.1.10:9000". The address is resolved once.
func Dial(address string, config Config) (*Client, error) {
	remote, err := resolve(address)
	if err != nil {
		return nil, err
	}
	if remote.Addr().IsUnspecified() || remote.Port() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}

	sock, err := dgram.Dial(remote, config.Socket)
	if err != nil {
		return nil, err
	}

	c, err := NewClient(sock, remote, config)
	if err != nil {
		sock.Close()
		return nil, err
	}
	return c, nil
}

// NewClient creates a Client on an existing socket. Datagrams from
// addresses other than remote are dropped. The Client takes ownership of
// sock.
func NewClient(sock DatagramSocket, remote netip.AddrPort, config Config) (*Client, error) {
	if !remote.IsValid() {
		return nil, fmt.Errorf("new client: %w: %s", ErrInvalidAddress, remote)
	}
	ep, err := newEndpoint(sock, log.RoleClient, config)
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}
	ep.remote = remote
	return &Client{ep: ep}, nil
}

// Send fragments msg and writes every fragment to the remote.
func (c *Client) Send(msg []byte) error {
	return c.ep.send(msg, c.ep.remote)
}

// TryReceive performs exactly one non-blocking read.
func (c *Client) TryReceive() ([]byte, bool, error) {
	msg, _, ok, err := c.ep.tryReceive()
	return msg, ok, err
}

// Receive blocks until a message completes or ctx is done.
func (c *Client) Receive(ctx context.Context) ([]byte, error) {
	msg, _, err := c.ep.receive(ctx)
	return msg, err
}

// ReceiveTimeout blocks until a message completes or timeout elapses.
// It returns ok == false with a nil error on timeout.
func (c *Client) ReceiveTimeout(timeout time.Duration) ([]byte, bool, error) {
	msg, _, ok, err := c.ep.receiveTimeout(timeout)
	return msg, ok, err
}

// Reset closes the current socket, continues on sock and discards all
// partially received messages. The remote is unchanged.
func (c *Client) Reset(sock DatagramSocket) error {
	return c.ep.reset(sock)
}

// Sweep discards partial messages that received no fragment for longer
// than idle and returns how many were discarded.
func (c *Client) Sweep(idle time.Duration) int {
	return c.ep.sweep(idle)
}

// Pending returns the number of partially received messages.
func (c *Client) Pending() int {
	return c.ep.cache.Len()
}

// EndpointID returns the identifier used in protocol log events.
func (c *Client) EndpointID() string {
	return c.ep.id
}

// LocalAddr returns the local address.
func (c *Client) LocalAddr() netip.AddrPort {
	return c.ep.sock.LocalAddr()
}

// RemoteAddr returns the remote endpoint.
func (c *Client) RemoteAddr() netip.AddrPort {
	return c.ep.remote
}

// Close closes the socket.
func (c *Client) Close() error {
	return c.ep.close()
}
