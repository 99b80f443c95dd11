package discovery

import (
	"errors"
	"net/netip"
	"time"
)

// Service constants for mDNS.
const (
	// ServiceType is the DNS-SD service type of fragudp servers.
	ServiceType = "_fragudp._udp"

	// Domain is the mDNS domain.
	Domain = "local"
)

// TXT record keys.
const (
	TXTKeyVersion = "v"    // Wire format version
	TXTKeyMTU     = "mtu"  // Datagram size in bytes
	TXTKeyRole    = "role" // Endpoint role
	TXTKeyName    = "name" // Server name (optional)
)

// RoleServer is the only role that advertises.
const RoleServer = "server"

// Timing constants.
const (
	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 5 * time.Second

	// DefaultTTL is the default DNS record TTL.
	DefaultTTL = 120 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxTXTRecordSize is the maximum total TXT record size.
	MaxTXTRecordSize = 400
)

// Discovery errors.
var (
	ErrMissingRequired     = errors.New("missing required field")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrInvalidVersion      = errors.New("unsupported protocol version")
	ErrInvalidMTU          = errors.New("invalid MTU")
	ErrInvalidPort         = errors.New("invalid port")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
	ErrNotAdvertising      = errors.New("not advertising")
)

// ServerInfo describes a server for advertising.
type ServerInfo struct {
	// InstanceName is the DNS-SD instance name.
	InstanceName string

	// Port is the UDP port the server listens on.
	Port uint16

	// MTU is the server's datagram size.
	MTU int

	// Name is an optional human-readable name.
	Name string
}

// Validate checks the fields required for advertising.
func (i *ServerInfo) Validate() error {
	if err := ValidateInstanceName(i.InstanceName); err != nil {
		return err
	}
	if i.Port == 0 {
		return ErrInvalidPort
	}
	if i.MTU <= 0 {
		return ErrInvalidMTU
	}
	return nil
}

// ServerService is a server found by browsing.
type ServerService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	Version string
	MTU     int
	Name    string
}

// AddrPort returns the first IPv4 address of the service with its port.
func (s *ServerService) AddrPort() (netip.AddrPort, bool) {
	for _, a := range s.Addresses {
		addr, err := netip.ParseAddr(a)
		if err != nil || !addr.Unmap().Is4() {
			continue
		}
		return netip.AddrPortFrom(addr.Unmap(), s.Port), true
	}
	return netip.AddrPort{}, false
}
