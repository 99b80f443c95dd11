package discovery

import (
	"context"
	"time"
)

// Advertiser publishes a server via mDNS.
type Advertiser interface {
	// Advertise starts advertising the server, replacing any previous
	// advertisement.
	Advertise(ctx context.Context, info *ServerInfo) error

	// Update replaces the TXT records of the current advertisement.
	Update(info *ServerInfo) error

	// Stop withdraws the advertisement.
	Stop() error
}

// AdvertiserConfig configures an advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertising to a single network interface.
	// Empty means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	TTL time.Duration
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		TTL: DefaultTTL,
	}
}
