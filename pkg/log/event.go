package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// EndpointID uniquely identifies the transport instance (UUID).
	EndpointID string `cbor:"2,keyasint"`

	// Direction indicates datagram flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// LocalRole indicates whether this is a server or client.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// LocalAddr is the bound socket address (IP:port).
	LocalAddr string `cbor:"7,keyasint,omitempty"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Datagram    *DatagramEvent    `cbor:"10,keyasint,omitempty"` // Socket layer
	Fragment    *FragmentEvent    `cbor:"11,keyasint,omitempty"` // Fragment layer (decoded header)
	Message     *MessageEvent     `cbor:"12,keyasint,omitempty"` // Message layer (sent or reassembled)
	Drop        *DropEvent        `cbor:"13,keyasint,omitempty"` // Discarded datagrams
	Eviction    *EvictionEvent    `cbor:"14,keyasint,omitempty"` // Abandoned reassemblies
	StateChange *StateChangeEvent `cbor:"15,keyasint,omitempty"` // Endpoint lifecycle
	Error       *ErrorEventData   `cbor:"16,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of datagram flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming datagram or message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing datagram or message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerSocket is the datagram layer (raw bytes).
	LayerSocket Layer = 0
	// LayerFragment is the fragment header layer.
	LayerFragment Layer = 1
	// LayerMessage is the reassembled message layer.
	LayerMessage Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerSocket:
		return "SOCKET"
	case LayerFragment:
		return "FRAGMENT"
	case LayerMessage:
		return "MESSAGE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryData indicates a datagram, fragment or message.
	CategoryData Category = 0
	// CategoryDrop indicates discarded input or an evicted reassembly.
	CategoryDrop Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryData:
		return "DATA"
	case CategoryDrop:
		return "DROP"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role indicates whether the local endpoint is a server or client.
type Role uint8

const (
	// RoleServer indicates a bound server endpoint.
	RoleServer Role = 0
	// RoleClient indicates a connected client endpoint.
	RoleClient Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleServer:
		return "SERVER"
	case RoleClient:
		return "CLIENT"
	default:
		return "UNKNOWN"
	}
}

// MaxDatagramDataSize is the largest number of datagram bytes copied into
// a DatagramEvent. Larger datagrams are truncated.
const MaxDatagramDataSize = 256

// DatagramEvent captures raw datagram data at the socket layer.
type DatagramEvent struct {
	// Size is the datagram size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw datagram bytes (may be truncated for large datagrams).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// NewDatagramEvent builds a DatagramEvent holding a copy of at most
// MaxDatagramDataSize bytes of b.
func NewDatagramEvent(b []byte) *DatagramEvent {
	ev := &DatagramEvent{Size: len(b)}
	data := b
	if len(data) > MaxDatagramDataSize {
		data = data[:MaxDatagramDataSize]
		ev.Truncated = true
	}
	ev.Data = append([]byte(nil), data...)
	return ev
}

// FragmentEvent captures a decoded fragment header.
type FragmentEvent struct {
	// MessageID is the message the fragment belongs to (UUID).
	MessageID string `cbor:"1,keyasint"`

	// Index is the position of the fragment within its message.
	Index uint64 `cbor:"2,keyasint"`

	// Count is the total number of fragments of the message.
	Count uint64 `cbor:"3,keyasint"`

	// PayloadSize is the number of payload bytes carried.
	PayloadSize int `cbor:"4,keyasint"`
}

// MessageEvent captures a message that was sent or fully reassembled.
type MessageEvent struct {
	// MessageID identifies the message (UUID).
	MessageID string `cbor:"1,keyasint"`

	// Size is the message length in bytes.
	Size int `cbor:"2,keyasint"`

	// Fragments is the number of fragments the message spans.
	Fragments uint64 `cbor:"3,keyasint"`
}

// DropEvent captures a datagram the receive path discarded.
type DropEvent struct {
	// Reason the datagram was discarded.
	Reason DropReason `cbor:"1,keyasint"`

	// MessageID is set when the header could be parsed.
	MessageID string `cbor:"2,keyasint,omitempty"`

	// Index is the fragment index from the header.
	Index uint64 `cbor:"3,keyasint,omitempty"`

	// Count is the fragment count from the header.
	Count uint64 `cbor:"4,keyasint,omitempty"`

	// Size is the datagram size in bytes.
	Size int `cbor:"5,keyasint,omitempty"`
}

// DropReason indicates why a datagram was discarded.
type DropReason uint8

const (
	// DropMalformed indicates the datagram failed fragment validation.
	DropMalformed DropReason = 0
	// DropCountMismatch indicates the count disagrees with the message's
	// reassembly in progress.
	DropCountMismatch DropReason = 1
	// DropDuplicate indicates the fragment was already received.
	DropDuplicate DropReason = 2
	// DropTooLarge indicates the announced message exceeds the size limit.
	DropTooLarge DropReason = 3
	// DropTruncated indicates the socket truncated the datagram.
	DropTruncated DropReason = 4
	// DropForeign indicates a datagram from an address other than the
	// client's remote.
	DropForeign DropReason = 5
)

// String returns the drop reason name.
func (r DropReason) String() string {
	switch r {
	case DropMalformed:
		return "MALFORMED"
	case DropCountMismatch:
		return "COUNT_MISMATCH"
	case DropDuplicate:
		return "DUPLICATE"
	case DropTooLarge:
		return "TOO_LARGE"
	case DropTruncated:
		return "TRUNCATED"
	case DropForeign:
		return "FOREIGN"
	default:
		return "UNKNOWN"
	}
}

// EvictionEvent captures an incomplete reassembly removed for inactivity.
type EvictionEvent struct {
	// MessageID identifies the abandoned message (UUID).
	MessageID string `cbor:"1,keyasint"`

	// Received is the number of distinct fragments that had arrived.
	Received uint64 `cbor:"2,keyasint"`

	// Count is the announced number of fragments.
	Count uint64 `cbor:"3,keyasint"`

	// Idle is the time since the last accepted fragment.
	// Stored as nanoseconds.
	Idle time.Duration `cbor:"4,keyasint"`
}

// StateChangeEvent captures endpoint lifecycle events.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Result is the socket result classification (if applicable).
	Result string `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}

// MessageID returns the message ID carried by the event payload, or ""
// if the payload does not refer to a message.
func (e Event) MessageID() string {
	switch {
	case e.Fragment != nil:
		return e.Fragment.MessageID
	case e.Message != nil:
		return e.Message.MessageID
	case e.Drop != nil:
		return e.Drop.MessageID
	case e.Eviction != nil:
		return e.Eviction.MessageID
	default:
		return ""
	}
}
