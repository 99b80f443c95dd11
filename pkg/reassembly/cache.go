package reassembly

import (
	"time"

	"github.com/google/uuid"

	"github.com/fragudp/fragudp-go/pkg/frag"
	"github.com/fragudp/fragudp-go/pkg/log"
)

// DefaultMaxMessageSize is the largest message a Cache will allocate for
// unless configured otherwise.
const DefaultMaxMessageSize = 64 << 20

// Option configures a Cache.
type Option func(*Cache)

// WithMaxMessageSize limits the size of a reassembled message. A fragment
// is dropped when its count could only describe a longer message, so every
// message of up to n bytes is accepted. A non-positive value keeps the
// default.
func WithMaxMessageSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxMessageSize = n
		}
	}
}

// WithLogger reports drops and evictions as protocol events attributed to
// the given endpoint.
func WithLogger(logger log.Logger, endpointID string) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
		c.endpointID = endpointID
	}
}

// messageContext is the reassembly state of one message.
type messageContext struct {
	buf          []byte
	received     []bool
	remaining    uint64
	count        uint64
	length       int
	lastActivity time.Time
}

// Cache reassembles fragments keyed by message ID.
type Cache struct {
	capacity       int
	maxMessageSize int
	contexts       map[uuid.UUID]*messageContext

	logger     log.Logger
	endpointID string
}

// NewCache creates a cache for fragments carrying at most payloadCapacity
// bytes each. payloadCapacity must be positive.
func NewCache(payloadCapacity int, opts ...Option) *Cache {
	if payloadCapacity <= 0 {
		panic("reassembly: payload capacity must be positive")
	}
	c := &Cache{
		capacity:       payloadCapacity,
		maxMessageSize: DefaultMaxMessageSize,
		contexts:       make(map[uuid.UUID]*messageContext),
		logger:         log.NoopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ingest adds a validated fragment to its message.
//
// It returns the complete message and true when f supplied the last missing
// fragment; the context is removed at that point. Fragments whose count
// disagrees with an existing context and duplicates are ignored. Any fragment
// accepted for an existing context refreshes its activity time, duplicates
// included.
func (c *Cache) Ingest(f frag.Fragment, now time.Time) ([]byte, bool) {
	if f.Index >= f.Count || len(f.Payload) > c.capacity {
		c.logDrop(f, log.DropMalformed, now)
		return nil, false
	}
	if !f.IsLast() && len(f.Payload) != c.capacity {
		c.logDrop(f, log.DropMalformed, now)
		return nil, false
	}

	ctx, ok := c.contexts[f.MessageID]
	if !ok {
		if f.Count > c.maxFragments() {
			c.logDrop(f, log.DropTooLarge, now)
			return nil, false
		}
		ctx = &messageContext{
			buf:       make([]byte, int(f.Count)*c.capacity),
			received:  make([]bool, f.Count),
			remaining: f.Count,
			count:     f.Count,
			length:    -1,
		}
		c.contexts[f.MessageID] = ctx
	}

	if f.Count != ctx.count {
		c.logDrop(f, log.DropCountMismatch, now)
		return nil, false
	}

	ctx.lastActivity = now

	if ctx.received[f.Index] {
		c.logDrop(f, log.DropDuplicate, now)
		return nil, false
	}

	offset := int(f.Index) * c.capacity
	copy(ctx.buf[offset:], f.Payload)
	ctx.received[f.Index] = true
	if f.IsLast() {
		ctx.length = offset + len(f.Payload)
	}

	ctx.remaining--
	if ctx.remaining > 0 {
		return nil, false
	}

	delete(c.contexts, f.MessageID)
	return ctx.buf[:ctx.length], true
}

// Sweep removes every context whose last activity is more than idle before
// now and returns how many were removed.
func (c *Cache) Sweep(idle time.Duration, now time.Time) int {
	evicted := 0
	for id, ctx := range c.contexts {
		since := now.Sub(ctx.lastActivity)
		if since <= idle {
			continue
		}
		delete(c.contexts, id)
		evicted++

		c.logger.Log(log.Event{
			Timestamp:  now,
			EndpointID: c.endpointID,
			Direction:  log.DirectionIn,
			Layer:      log.LayerMessage,
			Category:   log.CategoryDrop,
			Eviction: &log.EvictionEvent{
				MessageID: id.String(),
				Received:  ctx.count - ctx.remaining,
				Count:     ctx.count,
				Idle:      since,
			},
		})
	}
	return evicted
}

// maxFragments returns the fragment count of a maxMessageSize message.
func (c *Cache) maxFragments() uint64 {
	n := uint64(c.maxMessageSize / c.capacity)
	if c.maxMessageSize%c.capacity != 0 {
		n++
	}
	return n
}

// Clear removes every context and returns how many were removed.
func (c *Cache) Clear() int {
	n := len(c.contexts)
	clear(c.contexts)
	return n
}

// Len returns the number of messages being reassembled.
func (c *Cache) Len() int {
	return len(c.contexts)
}

// Contains reports whether a context exists for id.
func (c *Cache) Contains(id uuid.UUID) bool {
	_, ok := c.contexts[id]
	return ok
}

// Progress returns how many distinct fragments of id have arrived and how
// many the message has in total.
func (c *Cache) Progress(id uuid.UUID) (received, count uint64, ok bool) {
	ctx, ok := c.contexts[id]
	if !ok {
		return 0, 0, false
	}
	return ctx.count - ctx.remaining, ctx.count, true
}

func (c *Cache) logDrop(f frag.Fragment, reason log.DropReason, now time.Time) {
	c.logger.Log(log.Event{
		Timestamp:  now,
		EndpointID: c.endpointID,
		Direction:  log.DirectionIn,
		Layer:      log.LayerFragment,
		Category:   log.CategoryDrop,
		Drop: &log.DropEvent{
			Reason:    reason,
			MessageID: f.MessageID.String(),
			Index:     f.Index,
			Count:     f.Count,
			Size:      frag.HeaderSize + len(f.Payload),
		},
	})
}
