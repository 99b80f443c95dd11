package dgram

import (
	"errors"
	"fmt"
)

// Result classifies the outcome of a socket operation.
type Result uint8

const (
	// OK indicates success.
	OK Result = iota
	// WouldBlock indicates no datagram was queued.
	WouldBlock
	// Truncated indicates the datagram did not fit the receive buffer.
	Truncated
	// TimedOut indicates a wait reached its deadline.
	TimedOut
	// Reset indicates the peer refused or reset the association.
	Reset
	// NetworkFailure indicates any other OS failure.
	NetworkFailure
	// Cancelled indicates the socket was closed or the context cancelled.
	Cancelled
	// Unreachable indicates the host or network is unreachable.
	Unreachable
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case OK:
		return "OK"
	case WouldBlock:
		return "WouldBlock"
	case Truncated:
		return "Truncated"
	case TimedOut:
		return "TimedOut"
	case Reset:
		return "Reset"
	case NetworkFailure:
		return "NetworkFailure"
	case Cancelled:
		return "Cancelled"
	case Unreachable:
		return "Unreachable"
	default:
		return fmt.Sprintf("Result(%d)", uint8(r))
	}
}

// Recoverable reports whether the operation may simply be retried.
func (r Result) Recoverable() bool {
	switch r {
	case WouldBlock, TimedOut, Reset, Truncated:
		return true
	default:
		return false
	}
}

// ErrAddressInUse is returned when the local address is already bound.
var ErrAddressInUse = errors.New("address already in use")

// Error describes a failed socket operation.
type Error struct {
	// Op is the operation that failed ("send", "recv", "wait", ...).
	Op string

	// Result classifies the failure.
	Result Result

	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "dgram " + e.Op + ": " + e.Result.String()
	}
	return "dgram " + e.Op + ": " + e.Result.String() + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the operation timed out.
func (e *Error) Timeout() bool {
	return e.Result == TimedOut
}

// ResultOf returns the Result carried by err. A nil error is OK and an
// error that does not carry a Result is a NetworkFailure.
func ResultOf(err error) Result {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Result
	}
	return NetworkFailure
}
