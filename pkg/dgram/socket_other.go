//go:build !unix

package dgram

import (
	"errors"
	"net/netip"
)

func (s *Socket) recv([]byte) (int, netip.AddrPort, bool, error) {
	return 0, netip.AddrPort{}, false, errors.ErrUnsupported
}

func (s *Socket) queued() (bool, error) {
	return false, errors.ErrUnsupported
}

func (s *Socket) wait() error {
	return errors.ErrUnsupported
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Result: NetworkFailure, Err: err}
}
