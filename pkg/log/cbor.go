package log

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Decoding limits. An event is a small map of small maps; anything deeper
// or wider is a corrupt log.
const (
	maxNestedLevels = 8
	maxMapPairs     = 64
)

// Events are written with canonical key order and RFC 3339 timestamps at
// nanosecond precision, so two loggers given the same event write the same
// bytes.
var (
	encMode = mustEncMode(cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	})

	decMode = mustDecMode(cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyQuiet,
		IndefLength:     cbor.IndefLengthAllowed,
		MaxNestedLevels: maxNestedLevels,
		MaxMapPairs:     maxMapPairs,
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: cbor encode options: %v", err))
	}
	return em
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	dm, err := opts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("log: cbor decode options: %v", err))
	}
	return dm
}

// EncodeEvent returns the CBOR encoding of event.
func EncodeEvent(event Event) ([]byte, error) {
	return encMode.Marshal(event)
}

// DecodeEvent decodes a single CBOR-encoded event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := decMode.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}

// NewEncoder returns an encoder that writes events to w back to back.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a decoder for a stream of events read from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
