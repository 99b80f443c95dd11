package transport

import (
	"bytes"
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/fragudp/fragudp-go/pkg/dgram"
)

type datagram struct {
	data []byte
	addr netip.AddrPort
}

// fakeSocket is an in-memory DatagramSocket. Inbound datagrams are queued
// with deliver; outbound ones are recorded.
type fakeSocket struct {
	mu      sync.Mutex
	local   netip.AddrPort
	inbound []datagram
	sent    []datagram
	recvErr error
	sendErr error
	closed  bool
	waits   int
}

func newFakeSocket(local string) *fakeSocket {
	return &fakeSocket{local: netip.MustParseAddrPort(local)}
}

func (f *fakeSocket) deliver(data []byte, from netip.AddrPort) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbound = append(f.inbound, datagram{data: bytes.Clone(data), addr: from})
}

func (f *fakeSocket) SendTo(b []byte, to netip.AddrPort) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, datagram{data: bytes.Clone(b), addr: to})
	return nil
}

func (f *fakeSocket) RecvFrom(b []byte) (int, netip.AddrPort, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, netip.AddrPort{}, &dgram.Error{Op: "recv", Result: dgram.Cancelled}
	}
	if f.recvErr != nil {
		err := f.recvErr
		f.recvErr = nil
		return 0, netip.AddrPort{}, err
	}
	if len(f.inbound) == 0 {
		return 0, netip.AddrPort{}, &dgram.Error{Op: "recv", Result: dgram.WouldBlock}
	}
	d := f.inbound[0]
	f.inbound = f.inbound[1:]
	n := copy(b, d.data)
	if n < len(d.data) {
		return n, d.addr, &dgram.Error{Op: "recv", Result: dgram.Truncated}
	}
	return n, d.addr, nil
}

// WaitReadable returns at once when data is queued and otherwise sleeps
// for the timeout (capped at 20ms for unlimited waits).
func (f *fakeSocket) WaitReadable(ctx context.Context, timeout time.Duration) error {
	f.mu.Lock()
	f.waits++
	ready := len(f.inbound) > 0 || f.recvErr != nil
	f.mu.Unlock()

	if ready {
		return nil
	}
	if timeout < 0 {
		timeout = 20 * time.Millisecond
	}
	select {
	case <-ctx.Done():
		return &dgram.Error{Op: "wait", Result: dgram.Cancelled, Err: ctx.Err()}
	case <-time.After(timeout):
		return &dgram.Error{Op: "wait", Result: dgram.TimedOut}
	}
}

func (f *fakeSocket) LocalAddr() netip.AddrPort {
	return f.local
}

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSocket) sentDatagrams() []datagram {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]datagram(nil), f.sent...)
}
