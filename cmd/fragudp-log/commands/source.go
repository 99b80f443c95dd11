package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fragudp/fragudp-go/pkg/log"
)

// StdinPath selects standard input as the log source.
const StdinPath = "-"

// Warnings receives notices that do not fail a command.
var Warnings io.Writer = os.Stderr

// openLog opens path, or standard input for StdinPath, yielding events that
// match filter.
func openLog(path string, filter log.Filter) (*log.Reader, error) {
	if path == StdinPath {
		// Hide Close so the reader does not close stdin.
		return log.NewStreamReader(struct{ io.Reader }{os.Stdin}, filter), nil
	}
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return reader, nil
}

// each calls fn for every remaining event of reader. A log that ends
// mid-event (still being written, or its writer was killed) is reported to
// Warnings and ends the iteration without an error.
func each(reader *log.Reader, fn func(log.Event) error) error {
	for event, err := range reader.Events() {
		if errors.Is(err, log.ErrTruncated) {
			fmt.Fprintf(Warnings, "Warning: %v\n", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := fn(event); err != nil {
			return err
		}
	}
	return nil
}
