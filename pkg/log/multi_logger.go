package log

// MultiLogger fans events out to several loggers, typically a FileLogger
// and an SlogAdapter.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger combines loggers. Nil entries and NoopLoggers are skipped
// and nested MultiLoggers are flattened.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		m.add(l)
	}
	return m
}

func (m *MultiLogger) add(l Logger) {
	switch l := l.(type) {
	case nil, NoopLogger, *NoopLogger:
	case *MultiLogger:
		if l != nil {
			m.loggers = append(m.loggers, l.loggers...)
		}
	default:
		m.loggers = append(m.loggers, l)
	}
}

// Len returns the number of loggers events are sent to.
func (m *MultiLogger) Len() int {
	return len(m.loggers)
}

// Log sends the event to every logger in order.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
