package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
// Drops and evictions are logged at Info, errors at Warn.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("endpoint_id", event.EndpointID),
		slog.String("role", event.LocalRole.String()),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}

	level := slog.LevelDebug

	switch {
	case event.Datagram != nil:
		attrs = append(attrs,
			slog.Int("datagram_size", event.Datagram.Size),
			slog.Bool("truncated", event.Datagram.Truncated),
		)
	case event.Fragment != nil:
		attrs = append(attrs,
			slog.String("msg_id", event.Fragment.MessageID),
			slog.Uint64("frag_index", event.Fragment.Index),
			slog.Uint64("frag_count", event.Fragment.Count),
			slog.Int("payload_size", event.Fragment.PayloadSize),
		)
	case event.Message != nil:
		attrs = append(attrs,
			slog.String("msg_id", event.Message.MessageID),
			slog.Int("msg_size", event.Message.Size),
			slog.Uint64("fragments", event.Message.Fragments),
		)
	case event.Drop != nil:
		level = slog.LevelInfo
		attrs = append(attrs, slog.String("drop_reason", event.Drop.Reason.String()))
		if event.Drop.MessageID != "" {
			attrs = append(attrs,
				slog.String("msg_id", event.Drop.MessageID),
				slog.Uint64("frag_index", event.Drop.Index),
				slog.Uint64("frag_count", event.Drop.Count),
			)
		}
		if event.Drop.Size > 0 {
			attrs = append(attrs, slog.Int("datagram_size", event.Drop.Size))
		}
	case event.Eviction != nil:
		level = slog.LevelInfo
		attrs = append(attrs,
			slog.String("msg_id", event.Eviction.MessageID),
			slog.Uint64("received", event.Eviction.Received),
			slog.Uint64("frag_count", event.Eviction.Count),
			slog.Duration("idle", event.Eviction.Idle),
		)
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Result != "" {
			attrs = append(attrs, slog.String("error_result", event.Error.Result))
		}
	}

	a.logger.LogAttrs(context.Background(), level, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
