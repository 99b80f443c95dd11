// Package dgram provides a non-blocking IPv4 UDP socket with an explicit
// readiness wait.
//
// Receiving is split in two steps. RecvFrom performs exactly one
// non-blocking read and reports WouldBlock when nothing is queued.
// WaitReadable blocks until a datagram is queued, the timeout elapses, or the
// context is cancelled. Callers loop over the two.
//
// Failures carry a Result from a small vocabulary so callers can tell
// transient conditions (WouldBlock, TimedOut, Reset, Truncated) from fatal
// ones:
//
//	n, from, err := sock.RecvFrom(buf)
//	switch r := dgram.ResultOf(err); {
//	case r == dgram.OK:
//	    handle(buf[:n], from)
//	case r.Recoverable():
//	    // try again later
//	default:
//	    return err
//	}
//
// Binding to an address that is already taken returns an error matching
// ErrAddressInUse.
package dgram
