package log

import (
	"fmt"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLoggerOption configures a FileLogger.
type FileLoggerOption func(*fileLoggerOptions)

type fileLoggerOptions struct {
	flags int
	perm  os.FileMode
}

// WithTruncate starts the file empty instead of appending to it.
func WithTruncate() FileLoggerOption {
	return func(o *fileLoggerOptions) {
		o.flags = o.flags&^os.O_APPEND | os.O_TRUNC
	}
}

// WithPermissions sets the mode used when the file is created (default 0644).
func WithPermissions(perm os.FileMode) FileLoggerOption {
	return func(o *fileLoggerOptions) {
		o.perm = perm
	}
}

// FileLogger appends events to a .flog file as a sequence of CBOR items.
// It is safe for concurrent use.
type FileLogger struct {
	path string

	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
	written uint64
	err     error
	closed  bool
}

// NewFileLogger opens path for logging, creating it if needed. Events are
// appended to an existing file unless WithTruncate is given.
func NewFileLogger(path string, opts ...FileLoggerOption) (*FileLogger, error) {
	o := fileLoggerOptions{
		flags: os.O_CREATE | os.O_WRONLY | os.O_APPEND,
		perm:  0o644,
	}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.OpenFile(path, o.flags, o.perm)
	if err != nil {
		return nil, fmt.Errorf("open protocol log: %w", err)
	}
	return &FileLogger{
		path:    path,
		file:    f,
		encoder: NewEncoder(f),
	}, nil
}

// Log writes one event. Write failures never reach the caller; the first
// one is kept and reported by Err.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.encoder.Encode(event); err != nil {
		if l.err == nil {
			l.err = fmt.Errorf("write %s: %w", l.path, err)
		}
		return
	}
	l.written++
}

// Written returns the number of events written.
func (l *FileLogger) Written() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

// Err returns the first write error, if any.
func (l *FileLogger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Path returns the log file path.
func (l *FileLogger) Path() string {
	return l.path
}

// Sync commits written events to stable storage.
func (l *FileLogger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	return l.file.Sync()
}

// Close closes the file. Later calls to Log are ignored and further calls
// to Close return nil.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)
