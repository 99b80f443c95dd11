package commands

import (
	"fmt"
	"time"

	"github.com/fragudp/fragudp-go/pkg/log"
)

// FilterOptions specifies filtering criteria for the filter command.
type FilterOptions struct {
	Output     string
	EndpointID string
	MessageID  string
	Role       string
	TimeStart  string
	TimeEnd    string
	Layer      string
	Direction  string
	Category   string
}

// buildFilter converts the string options to a log.Filter.
func (opts FilterOptions) buildFilter() (log.Filter, error) {
	filter := log.Filter{
		EndpointID: opts.EndpointID,
		MessageID:  opts.MessageID,
	}

	if opts.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeStart)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if opts.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeEnd)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	if opts.Role != "" {
		r, err := ParseRoleFlag(opts.Role)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Role = &r
	}
	if opts.Layer != "" {
		l, err := ParseLayerFlag(opts.Layer)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Layer = &l
	}
	if opts.Direction != "" {
		d, err := ParseDirectionFlag(opts.Direction)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Direction = &d
	}
	if opts.Category != "" {
		c, err := ParseCategoryFlag(opts.Category)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Category = &c
	}
	return filter, nil
}

// RunFilter filters the log file and writes matching events to a new file.
// It returns the number of events written.
func RunFilter(path string, opts FilterOptions) (int, error) {
	filter, err := opts.buildFilter()
	if err != nil {
		return 0, err
	}

	reader, err := openLog(path, filter)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(opts.Output, log.WithTruncate())
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}

	err = each(reader, func(event log.Event) error {
		logger.Log(event)
		return logger.Err()
	})
	if cerr := logger.Close(); err == nil {
		err = cerr
	}
	return int(logger.Written()), err
}
