package transport

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/fragudp/fragudp-go/pkg/dgram"
	"github.com/fragudp/fragudp-go/pkg/frag"
	"github.com/fragudp/fragudp-go/pkg/log"
	"github.com/fragudp/fragudp-go/pkg/reassembly"
)

// endpoint is the state shared by Server and Client.
type endpoint struct {
	config Config
	codec  *frag.Codec
	cache  *reassembly.Cache
	sock   DatagramSocket
	buf    []byte

	// remote filters inbound datagrams when valid (client only).
	remote netip.AddrPort

	id        string
	role      log.Role
	logger    log.Logger
	lastSweep time.Time
}

func newEndpoint(sock DatagramSocket, role log.Role, config Config) (*endpoint, error) {
	config = config.withDefaults()

	codec, err := frag.NewCodec(config.MTU)
	if err != nil {
		return nil, err
	}

	e := &endpoint{
		config: config,
		codec:  codec,
		sock:   sock,
		// One spare byte so oversized datagrams fail decoding instead of
		// being silently cut to MTU.
		buf:    make([]byte, config.MTU+1),
		id:     uuid.New().String(),
		role:   role,
		logger: config.Logger,
	}
	opts := []reassembly.Option{reassembly.WithMaxMessageSize(config.MaxMessageSize)}
	if config.Logger != nil {
		// Cache events are stamped with the endpoint's role and address.
		opts = append(opts, reassembly.WithLogger(log.LoggerFunc(func(ev log.Event) {
			ev.LocalRole = e.role
			ev.LocalAddr = e.sock.LocalAddr().String()
			e.logger.Log(ev)
		}), e.id))
	}
	e.cache = reassembly.NewCache(codec.PayloadCapacity(), opts...)
	e.lastSweep = config.Now()
	return e, nil
}

// resolve parses an IPv4 "host:port" string. An empty host means all
// interfaces.
func resolve(address string) (netip.AddrPort, error) {
	ua, err := net.ResolveUDPAddr("udp4", address)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	ap := ua.AddrPort()
	addr := ap.Addr().Unmap()
	if !addr.IsValid() {
		addr = netip.IPv4Unspecified()
	}
	return netip.AddrPortFrom(addr, ap.Port()), nil
}

func (e *endpoint) send(msg []byte, to netip.AddrPort) error {
	if len(msg) > e.config.MaxMessageSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(msg), e.config.MaxMessageSize)
	}

	id := uuid.New()
	for datagram := range e.codec.Encode(id, msg) {
		if err := e.sock.SendTo(datagram, to); err != nil {
			e.logError(log.DirectionOut, err, "send")
			return fmt.Errorf("send fragment: %w", err)
		}
		if e.logger != nil {
			ev := e.event(log.DirectionOut, log.LayerSocket, log.CategoryData, to)
			ev.Datagram = log.NewDatagramEvent(datagram)
			e.logger.Log(ev)
		}
	}

	if e.logger != nil {
		ev := e.event(log.DirectionOut, log.LayerMessage, log.CategoryData, to)
		ev.Message = &log.MessageEvent{
			MessageID: id.String(),
			Size:      len(msg),
			Fragments: e.codec.FragmentCount(len(msg)),
		}
		e.logger.Log(ev)
	}
	return nil
}

// tryReceive performs one non-blocking read. Recoverable socket conditions
// and discarded datagrams report ok == false with a nil error.
func (e *endpoint) tryReceive() ([]byte, netip.AddrPort, bool, error) {
	now := e.config.Now()
	e.autoSweep(now)

	n, from, err := e.sock.RecvFrom(e.buf)
	if err != nil {
		switch r := dgram.ResultOf(err); {
		case r == dgram.Truncated:
			e.logDrop(log.DropTruncated, n, from)
			return nil, netip.AddrPort{}, false, nil
		case r == dgram.WouldBlock:
			return nil, netip.AddrPort{}, false, nil
		case r.Recoverable():
			e.logError(log.DirectionIn, err, "recv")
			return nil, netip.AddrPort{}, false, nil
		default:
			e.logError(log.DirectionIn, err, "recv")
			return nil, netip.AddrPort{}, false, err
		}
	}

	datagram := e.buf[:n]
	if e.logger != nil {
		ev := e.event(log.DirectionIn, log.LayerSocket, log.CategoryData, from)
		ev.Datagram = log.NewDatagramEvent(datagram)
		e.logger.Log(ev)
	}

	if e.remote.IsValid() && from != e.remote {
		e.logDrop(log.DropForeign, n, from)
		return nil, netip.AddrPort{}, false, nil
	}

	f, ok := e.codec.Decode(datagram)
	if !ok {
		e.logDrop(log.DropMalformed, n, from)
		return nil, netip.AddrPort{}, false, nil
	}

	if e.logger != nil {
		ev := e.event(log.DirectionIn, log.LayerFragment, log.CategoryData, from)
		ev.Fragment = &log.FragmentEvent{
			MessageID:   f.MessageID.String(),
			Index:       f.Index,
			Count:       f.Count,
			PayloadSize: len(f.Payload),
		}
		e.logger.Log(ev)
	}

	msg, done := e.cache.Ingest(f, now)
	if !done {
		return nil, netip.AddrPort{}, false, nil
	}

	if e.logger != nil {
		ev := e.event(log.DirectionIn, log.LayerMessage, log.CategoryData, from)
		ev.Message = &log.MessageEvent{
			MessageID: f.MessageID.String(),
			Size:      len(msg),
			Fragments: f.Count,
		}
		e.logger.Log(ev)
	}
	return msg, from, true, nil
}

// receive blocks until a message completes or ctx ends.
func (e *endpoint) receive(ctx context.Context) ([]byte, netip.AddrPort, error) {
	for {
		msg, from, ok, err := e.tryReceive()
		if err != nil {
			return nil, netip.AddrPort{}, err
		}
		if ok {
			return msg, from, nil
		}

		if err := e.sock.WaitReadable(ctx, e.waitLimit(-1)); err != nil {
			if ctx.Err() == nil && dgram.ResultOf(err).Recoverable() {
				continue
			}
			return nil, netip.AddrPort{}, fmt.Errorf("receive: %w", err)
		}
	}
}

// receiveTimeout blocks until a message completes or timeout has elapsed
// since the call. Waits after a non-completing datagram use the remaining
// budget.
func (e *endpoint) receiveTimeout(timeout time.Duration) ([]byte, netip.AddrPort, bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		msg, from, ok, err := e.tryReceive()
		if err != nil || ok {
			return msg, from, ok, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, netip.AddrPort{}, false, nil
		}

		if err := e.sock.WaitReadable(context.Background(), e.waitLimit(remaining)); err != nil {
			if dgram.ResultOf(err).Recoverable() {
				continue
			}
			return nil, netip.AddrPort{}, false, fmt.Errorf("receive: %w", err)
		}
	}
}

// waitLimit caps a wait so automatic sweeps still run on an idle socket.
func (e *endpoint) waitLimit(d time.Duration) time.Duration {
	if e.config.IdleTimeout <= 0 {
		return d
	}
	if d < 0 || d > e.config.SweepInterval {
		return e.config.SweepInterval
	}
	return d
}

func (e *endpoint) autoSweep(now time.Time) {
	if e.config.IdleTimeout <= 0 || now.Sub(e.lastSweep) < e.config.SweepInterval {
		return
	}
	e.lastSweep = now
	e.cache.Sweep(e.config.IdleTimeout, now)
}

func (e *endpoint) sweep(idle time.Duration) int {
	now := e.config.Now()
	e.lastSweep = now
	return e.cache.Sweep(idle, now)
}

// reset closes the current socket, installs sock and discards every
// partial reassembly.
func (e *endpoint) reset(sock DatagramSocket) error {
	old := e.sock
	e.sock = sock
	cleared := e.cache.Clear()
	e.lastSweep = e.config.Now()

	if e.logger != nil {
		ev := e.event(log.DirectionIn, log.LayerMessage, log.CategoryState, netip.AddrPort{})
		ev.StateChange = &log.StateChangeEvent{
			OldState: old.LocalAddr().String(),
			NewState: sock.LocalAddr().String(),
			Reason:   fmt.Sprintf("socket reset, %d partial messages discarded", cleared),
		}
		e.logger.Log(ev)
	}

	if err := old.Close(); err != nil {
		return fmt.Errorf("close previous socket: %w", err)
	}
	return nil
}

func (e *endpoint) close() error {
	if e.logger != nil {
		ev := e.event(log.DirectionOut, log.LayerMessage, log.CategoryState, netip.AddrPort{})
		ev.StateChange = &log.StateChangeEvent{OldState: "open", NewState: "closed"}
		e.logger.Log(ev)
	}
	return e.sock.Close()
}

func (e *endpoint) event(dir log.Direction, layer log.Layer, cat log.Category, remote netip.AddrPort) log.Event {
	ev := log.Event{
		Timestamp:  e.config.Now(),
		EndpointID: e.id,
		Direction:  dir,
		Layer:      layer,
		Category:   cat,
		LocalRole:  e.role,
		LocalAddr:  e.sock.LocalAddr().String(),
	}
	if remote.IsValid() {
		ev.RemoteAddr = remote.String()
	}
	return ev
}

func (e *endpoint) logDrop(reason log.DropReason, size int, from netip.AddrPort) {
	if e.logger == nil {
		return
	}
	ev := e.event(log.DirectionIn, log.LayerFragment, log.CategoryDrop, from)
	ev.Drop = &log.DropEvent{Reason: reason, Size: size}
	if h, err := frag.ParseHeader(e.buf[:size]); err == nil {
		ev.Drop.MessageID = h.MessageID.String()
		ev.Drop.Index = h.Index
		ev.Drop.Count = h.Count
	}
	e.logger.Log(ev)
}

func (e *endpoint) logError(dir log.Direction, err error, op string) {
	if e.logger == nil {
		return
	}
	ev := e.event(dir, log.LayerSocket, log.CategoryError, netip.AddrPort{})
	ev.Error = &log.ErrorEventData{
		Layer:   log.LayerSocket,
		Message: err.Error(),
		Result:  dgram.ResultOf(err).String(),
		Context: op,
	}
	e.logger.Log(ev)
}
