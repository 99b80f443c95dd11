// Package config loads fragudp command configuration from YAML files.
//
// A file holds any subset of the fields; missing fields keep their
// defaults. Command-line flags are applied on top of the loaded values.
//
//	listen: ":9000"
//	peer: "192.168.1.10:9000"
//	mtu: 576
//	max_message_size: 1048576
//	idle_timeout: 30s
//	sweep_interval: 10s
//	socket:
//	  ttl: 16
//	  read_buffer: 262144
//	protocol_log: /var/log/fragudp/session.flog
//	log_level: debug
//	discovery:
//	  advertise: true
//	  instance: lab-1
//	  name: Lab bench
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fragudp/fragudp-go/pkg/dgram"
	"github.com/fragudp/fragudp-go/pkg/discovery"
	"github.com/fragudp/fragudp-go/pkg/frag"
	"github.com/fragudp/fragudp-go/pkg/log"
	"github.com/fragudp/fragudp-go/pkg/reassembly"
	"github.com/fragudp/fragudp-go/pkg/transport"
)

// DefaultListen is the default server address.
const DefaultListen = ":9000"

// ErrInvalid indicates a configuration value out of range.
var ErrInvalid = errors.New("invalid configuration")

// Config is the configuration shared by the fragudp commands.
type Config struct {
	// Listen is the server bind address.
	Listen string `yaml:"listen"`

	// Peer is the server address a client dials.
	Peer string `yaml:"peer"`

	MTU            int           `yaml:"mtu"`
	MaxMessageSize int           `yaml:"max_message_size"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`

	Socket dgram.Config `yaml:"socket"`

	// ProtocolLog is the path of a CBOR protocol log file. Empty disables it.
	ProtocolLog string `yaml:"protocol_log"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Discovery Discovery `yaml:"discovery"`
}

// Discovery configures mDNS advertising and browsing.
type Discovery struct {
	Advertise bool          `yaml:"advertise"`
	Instance  string        `yaml:"instance"`
	Name      string        `yaml:"name"`
	Interface string        `yaml:"interface"`
	TTL       time.Duration `yaml:"ttl"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Listen:         DefaultListen,
		MTU:            frag.DefaultMTU,
		MaxMessageSize: reassembly.DefaultMaxMessageSize,
		IdleTimeout:    30 * time.Second,
		LogLevel:       "info",
		Discovery: Discovery{
			TTL:     discovery.DefaultTTL,
			Timeout: discovery.BrowseTimeout,
		},
	}
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses a configuration file. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.MTU <= frag.HeaderSize || c.MTU > frag.MaxMTU {
		return fmt.Errorf("%w: mtu %d (must be %d..%d)", ErrInvalid, c.MTU, frag.HeaderSize+1, frag.MaxMTU)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("%w: max_message_size %d", ErrInvalid, c.MaxMessageSize)
	}
	if c.IdleTimeout < 0 || c.SweepInterval < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalid)
	}
	if c.Socket.TTL < 0 || c.Socket.TTL > 255 {
		return fmt.Errorf("%w: ttl %d", ErrInvalid, c.Socket.TTL)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	if c.Discovery.Instance != "" {
		if err := discovery.ValidateInstanceName(c.Discovery.Instance); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	return nil
}

// Transport returns the transport configuration, with logger attached.
func (c Config) Transport(logger log.Logger) transport.Config {
	tc := transport.DefaultConfig()
	tc.MTU = c.MTU
	tc.MaxMessageSize = c.MaxMessageSize
	tc.IdleTimeout = c.IdleTimeout
	tc.SweepInterval = c.SweepInterval
	tc.Socket = c.Socket
	tc.Logger = logger
	return tc
}

// Advertiser returns the mDNS advertiser configuration.
func (c Config) Advertiser() discovery.AdvertiserConfig {
	ac := discovery.DefaultAdvertiserConfig()
	ac.Interface = c.Discovery.Interface
	if c.Discovery.TTL > 0 {
		ac.TTL = c.Discovery.TTL
	}
	return ac
}

// Browser returns the mDNS browser configuration.
func (c Config) Browser() discovery.BrowserConfig {
	bc := discovery.DefaultBrowserConfig()
	bc.Interface = c.Discovery.Interface
	if c.Discovery.Timeout > 0 {
		bc.Timeout = c.Discovery.Timeout
	}
	return bc
}
