// Package log provides structured protocol logging for fragudp.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at each layer of the transport (socket, fragment,
// message). It is separate from operational logging (slog or the standard
// log package): protocol capture provides a machine-readable trace of every
// datagram, dropped fragment, completed message and evicted reassembly.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.Logger, _ = log.NewFileLogger("/var/log/fragudp/server.flog")
//
//	// Both: use MultiLogger
//	cfg.Logger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Socket: raw datagram bytes (DatagramEvent)
//   - Fragment: decoded fragment headers (FragmentEvent) and drops (DropEvent)
//   - Message: completed or sent messages (MessageEvent), evictions
//     (EvictionEvent) and endpoint state changes (StateChangeEvent)
//
// Errors have a dedicated event type at any layer.
//
// # File Format
//
// A log file is a plain concatenation of CBOR-encoded events with the .flog
// extension; there is no header, so files can be appended to and piped.
// Reader streams them back, optionally through a Filter, and reports a log
// cut off mid-event with ErrTruncated. The fragudp-log CLI tool provides
// viewing, export, filtering and statistics.
package log
