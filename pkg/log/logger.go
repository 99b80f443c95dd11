package log

// Logger receives protocol events from transports and reassembly caches.
//
// Log is called synchronously on the receive and send paths, possibly from
// several transports at once. Implementations must be safe for concurrent
// use and should return quickly.
type Logger interface {
	Log(event Event)
}

// LoggerFunc adapts a function to the Logger interface.
type LoggerFunc func(Event)

// Log calls f(event).
func (f LoggerFunc) Log(event Event) {
	f(event)
}

// NoopLogger discards every event.
type NoopLogger struct{}

// Log does nothing.
func (NoopLogger) Log(Event) {}

var (
	_ Logger = NoopLogger{}
	_ Logger = LoggerFunc(nil)
)
