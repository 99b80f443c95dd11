package log

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ErrTruncated indicates the log ends in the middle of an event, as happens
// when the writing process was killed or the file is still being written.
var ErrTruncated = errors.New("log ends mid-event")

// Filter selects events. Zero-valued fields match every event.
type Filter struct {
	EndpointID string

	// MessageID matches the message ID carried in fragment, message, drop
	// or eviction payloads.
	MessageID string

	Role      *Role
	Direction *Direction
	Layer     *Layer
	Category  *Category

	// TimeStart and TimeEnd bound the half-open range [TimeStart, TimeEnd).
	TimeStart *time.Time
	TimeEnd   *time.Time
}

// Match reports whether event satisfies every criterion of f.
func (f Filter) Match(event Event) bool {
	switch {
	case f.EndpointID != "" && event.EndpointID != f.EndpointID:
		return false
	case f.MessageID != "" && event.MessageID() != f.MessageID:
		return false
	case f.Role != nil && event.LocalRole != *f.Role:
		return false
	case f.Direction != nil && event.Direction != *f.Direction:
		return false
	case f.Layer != nil && event.Layer != *f.Layer:
		return false
	case f.Category != nil && event.Category != *f.Category:
		return false
	case f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart):
		return false
	case f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	}
	return true
}

// Reader streams events from a CBOR protocol log.
type Reader struct {
	src     io.Reader
	decoder *cbor.Decoder
	filter  Filter
	decoded int
}

// NewReader opens a log file for reading.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a log file and yields only events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewStreamReader(f, filter), nil
}

// NewStreamReader reads events from r, for example a pipe. Close closes r
// if it implements io.Closer.
func NewStreamReader(r io.Reader, filter Filter) *Reader {
	return &Reader{
		src:     r,
		decoder: NewDecoder(r),
		filter:  filter,
	}
}

// Next returns the next matching event, or io.EOF at the end of the log.
// A log cut off inside an event yields an error matching ErrTruncated.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		err := r.decoder.Decode(&event)
		switch {
		case err == io.EOF:
			return Event{}, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Event{}, fmt.Errorf("after event %d: %w", r.decoded, ErrTruncated)
		case err != nil:
			return Event{}, fmt.Errorf("event %d: %w", r.decoded+1, err)
		}

		r.decoded++
		if r.filter.Match(event) {
			return event, nil
		}
	}
}

// Events returns the remaining matching events as a sequence. A read error
// is yielded once with a zero Event and ends the sequence.
func (r *Reader) Events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			event, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(event, err) || err != nil {
				return
			}
		}
	}
}

// Decoded returns how many events were read so far, matching or not.
func (r *Reader) Decoded() int {
	return r.decoded
}

// Close closes the underlying source.
func (r *Reader) Close() error {
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
