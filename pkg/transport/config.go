package transport

import (
	"errors"
	"time"

	"github.com/fragudp/fragudp-go/pkg/dgram"
	"github.com/fragudp/fragudp-go/pkg/frag"
	"github.com/fragudp/fragudp-go/pkg/log"
	"github.com/fragudp/fragudp-go/pkg/reassembly"
)

// Transport errors.
var (
	// ErrAddressInUse indicates the local address is already bound.
	ErrAddressInUse = dgram.ErrAddressInUse

	// ErrMessageTooLarge indicates the message exceeds Config.MaxMessageSize.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrInvalidAddress indicates a destination that is not a valid IPv4 endpoint.
	ErrInvalidAddress = errors.New("invalid address")
)

// Config configures a Server or Client.
type Config struct {
	// MTU is the largest datagram sent or accepted (default: 576).
	// Both peers must use the same value.
	MTU int

	// MaxMessageSize is the largest message sent or reassembled
	// (default: 64 MiB).
	MaxMessageSize int

	// IdleTimeout enables automatic sweeping of reassemblies that received
	// no fragment for longer than this. Zero leaves sweeping to the caller.
	IdleTimeout time.Duration

	// SweepInterval is the minimum time between automatic sweeps
	// (default: IdleTimeout / 2).
	SweepInterval time.Duration

	// Socket holds options for sockets created by Listen and Dial.
	Socket dgram.Config

	// Logger for protocol logging (optional).
	Logger log.Logger

	// Now returns the current time (default: time.Now).
	Now func() time.Time
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MTU:            frag.DefaultMTU,
		MaxMessageSize: reassembly.DefaultMaxMessageSize,
	}
}

func (c Config) withDefaults() Config {
	if c.MTU == 0 {
		c.MTU = frag.DefaultMTU
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = reassembly.DefaultMaxMessageSize
	}
	if c.IdleTimeout > 0 && c.SweepInterval <= 0 {
		c.SweepInterval = c.IdleTimeout / 2
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
