package frag

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"

	"github.com/google/uuid"
)

// Framing constants.
const (
	// HeaderSize is the size of the fragment header in bytes.
	HeaderSize = 32

	// DefaultMTU is the default maximum datagram size in bytes.
	DefaultMTU = 576

	// DefaultPayloadCapacity is the payload capacity of a fragment at DefaultMTU.
	DefaultPayloadCapacity = DefaultMTU - HeaderSize

	// MaxMTU is the largest UDP payload over IPv4.
	MaxMTU = 65507
)

// Header field offsets.
const (
	offsetMessageID = 0
	offsetIndex     = 16
	offsetCount     = 24
)

// Framing errors.
var (
	// ErrShortHeader indicates the buffer is smaller than HeaderSize.
	ErrShortHeader = errors.New("buffer shorter than fragment header")

	// ErrInvalidMTU indicates an MTU that cannot carry a header and payload.
	ErrInvalidMTU = errors.New("invalid MTU")
)

// Header is the fixed header that precedes the payload of every fragment.
type Header struct {
	// MessageID identifies the message the fragment belongs to.
	MessageID uuid.UUID

	// Index is the zero-based position of the fragment within the message.
	Index uint64

	// Count is the total number of fragments of the message.
	Count uint64
}

// IsLast reports whether the header describes the final fragment of its message.
func (h Header) IsLast() bool {
	return h.Count > 0 && h.Index == h.Count-1
}

// Put writes the header into the first HeaderSize bytes of b.
// It panics if b is shorter than HeaderSize.
func (h Header) Put(b []byte) {
	_ = b[HeaderSize-1]
	copy(b[offsetMessageID:offsetIndex], h.MessageID[:])
	binary.BigEndian.PutUint64(b[offsetIndex:offsetCount], h.Index)
	binary.BigEndian.PutUint64(b[offsetCount:HeaderSize], h.Count)
}

// ParseHeader reads a header from the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d < %d", ErrShortHeader, len(b), HeaderSize)
	}

	var h Header
	copy(h.MessageID[:], b[offsetMessageID:offsetIndex])
	h.Index = binary.BigEndian.Uint64(b[offsetIndex:offsetCount])
	h.Count = binary.BigEndian.Uint64(b[offsetCount:HeaderSize])
	return h, nil
}

// String returns a short description of the header.
func (h Header) String() string {
	return fmt.Sprintf("%s %d/%d", h.MessageID, h.Index, h.Count)
}

// Fragment is a decoded fragment. Payload aliases the datagram it was
// decoded from.
type Fragment struct {
	Header
	Payload []byte
}

// Codec splits messages into fragments and validates inbound fragments
// for a fixed MTU.
type Codec struct {
	mtu int
}

// NewCodec creates a codec for the given MTU.
func NewCodec(mtu int) (*Codec, error) {
	if mtu <= HeaderSize || mtu > MaxMTU {
		return nil, fmt.Errorf("%w: %d (must be %d..%d)", ErrInvalidMTU, mtu, HeaderSize+1, MaxMTU)
	}
	return &Codec{mtu: mtu}, nil
}

// DefaultCodec returns a codec for DefaultMTU.
func DefaultCodec() *Codec {
	return &Codec{mtu: DefaultMTU}
}

// MTU returns the maximum datagram size.
func (c *Codec) MTU() int {
	return c.mtu
}

// PayloadCapacity returns the number of payload bytes a full fragment carries.
func (c *Codec) PayloadCapacity() int {
	return c.mtu - HeaderSize
}

// FragmentCount returns the number of fragments a message of n bytes encodes to.
// An empty message still occupies one (empty) fragment.
func (c *Codec) FragmentCount(n int) uint64 {
	if n <= 0 {
		return 1
	}
	capacity := c.PayloadCapacity()
	return uint64((n + capacity - 1) / capacity)
}

// Encode returns the datagrams for msg in index order, tagged with id.
//
// The sequence is produced lazily. The yielded slice is reused between
// iterations and is only valid until the next one; callers that keep
// datagrams must copy them.
func (c *Codec) Encode(id uuid.UUID, msg []byte) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		capacity := c.PayloadCapacity()
		count := c.FragmentCount(len(msg))
		buf := make([]byte, c.mtu)

		for i := uint64(0); i < count; i++ {
			start := int(i) * capacity
			end := min(start+capacity, len(msg))

			Header{MessageID: id, Index: i, Count: count}.Put(buf)
			n := copy(buf[HeaderSize:], msg[start:end])

			if !yield(buf[:HeaderSize+n]) {
				return
			}
		}
	}
}

// Decode parses and validates a single datagram.
//
// It reports false when the datagram is shorter than the header, when the
// index is not below the count, when the datagram exceeds the MTU, or when a
// datagram shorter than the MTU is not the last fragment of its message.
func (c *Codec) Decode(datagram []byte) (Fragment, bool) {
	h, err := ParseHeader(datagram)
	if err != nil {
		return Fragment{}, false
	}
	if h.Index >= h.Count {
		return Fragment{}, false
	}

	switch n := len(datagram); {
	case n > c.mtu:
		return Fragment{}, false
	case n < c.mtu && !h.IsLast():
		return Fragment{}, false
	}

	return Fragment{Header: h, Payload: datagram[HeaderSize:]}, true
}
