// Package commands implements the fragudp-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fragudp/fragudp-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
	MessageID string
}

func (f ViewFilter) toLogFilter() log.Filter {
	return log.Filter{
		Layer:     f.Layer,
		Direction: f.Direction,
		Category:  f.Category,
		MessageID: f.MessageID,
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [ep:id ROLE] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [ep:%s %s] %-3s %s %s",
		ts, shortenID(event.EndpointID), event.LocalRole, event.Direction, event.Layer, eventType(event))
	if event.RemoteAddr != "" {
		fmt.Fprintf(w, " %s", event.RemoteAddr)
	}
	fmt.Fprintln(w)

	switch {
	case event.Datagram != nil:
		formatDatagramDetails(w, event.Datagram)
	case event.Fragment != nil:
		f := event.Fragment
		fmt.Fprintf(w, "  Message: %s\n", f.MessageID)
		fmt.Fprintf(w, "  Fragment: %d/%d (%d bytes)\n", f.Index+1, f.Count, f.PayloadSize)
	case event.Message != nil:
		m := event.Message
		fmt.Fprintf(w, "  Message: %s\n", m.MessageID)
		fmt.Fprintf(w, "  Size: %d bytes in %d fragment(s)\n", m.Size, m.Fragments)
	case event.Drop != nil:
		formatDropDetails(w, event.Drop)
	case event.Eviction != nil:
		e := event.Eviction
		fmt.Fprintf(w, "  Message: %s\n", e.MessageID)
		fmt.Fprintf(w, "  Received: %d/%d fragments, idle %s\n", e.Received, e.Count, formatDuration(e.Idle))
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// eventType returns the label of the payload carried by event.
func eventType(event log.Event) string {
	switch {
	case event.Datagram != nil:
		return "Datagram"
	case event.Fragment != nil:
		return "Fragment"
	case event.Message != nil:
		return "Message"
	case event.Drop != nil:
		return "Drop"
	case event.Eviction != nil:
		return "Eviction"
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenID returns the first 8 characters of an ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatDatagramDetails(w io.Writer, d *log.DatagramEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", d.Size)
	if len(d.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(d.Data))
		if d.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatDropDetails(w io.Writer, d *log.DropEvent) {
	fmt.Fprintf(w, "  Reason: %s\n", d.Reason)
	if d.MessageID != "" {
		fmt.Fprintf(w, "  Message: %s\n", d.MessageID)
		fmt.Fprintf(w, "  Fragment: %d/%d\n", d.Index+1, d.Count)
	}
	if d.Size > 0 {
		fmt.Fprintf(w, "  Size: %d bytes\n", d.Size)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer)
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Result != "" {
		fmt.Fprintf(w, "  Result: %s\n", err.Result)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "socket":
		return log.LayerSocket, nil
	case "fragment":
		return log.LayerFragment, nil
	case "message":
		return log.LayerMessage, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be socket, fragment, or message)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "data":
		return log.CategoryData, nil
	case "drop":
		return log.CategoryDrop, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be data, drop, state, or error)", s)
	}
}

// ParseRoleFlag parses a role string from command-line flag (case-insensitive).
func ParseRoleFlag(s string) (log.Role, error) {
	switch strings.ToLower(s) {
	case "server":
		return log.RoleServer, nil
	case "client":
		return log.RoleClient, nil
	default:
		return 0, fmt.Errorf("invalid role: %s (must be server or client)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := openLog(path, filter.toLogFilter())
	if err != nil {
		return err
	}
	defer reader.Close()

	return each(reader, func(event log.Event) error {
		formatEvent(output, event)
		return nil
	})
}
