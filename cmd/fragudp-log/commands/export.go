package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fragudp/fragudp-go/pkg/log"
)

// csvHeader names the export columns. Payload columns are empty when the
// event does not carry them.
var csvHeader = []string{
	"timestamp", "endpoint_id", "role", "direction", "layer", "category",
	"remote", "type", "message_id", "index", "count", "size", "detail",
}

// RunExport writes every event of the log to output (stdout when empty)
// as JSON lines or CSV.
func RunExport(path, format, output string) error {
	reader, err := openLog(path, log.Filter{})
	if err != nil {
		return err
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	return export(reader, format, w)
}

func export(reader *log.Reader, format string, w io.Writer) error {
	switch format {
	case "jsonl":
		enc := json.NewEncoder(w)
		return each(reader, func(event log.Event) error {
			if err := enc.Encode(event); err != nil {
				return fmt.Errorf("failed to encode event: %w", err)
			}
			return nil
		})

	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		err := each(reader, func(event log.Event) error {
			return cw.Write(csvRow(event))
		})
		cw.Flush()
		if err != nil {
			return err
		}
		return cw.Error()

	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func csvRow(event log.Event) []string {
	var index, count, size, detail string
	itoa := func(n uint64) string { return strconv.FormatUint(n, 10) }

	switch {
	case event.Datagram != nil:
		size = strconv.Itoa(event.Datagram.Size)
	case event.Fragment != nil:
		index, count = itoa(event.Fragment.Index), itoa(event.Fragment.Count)
		size = strconv.Itoa(event.Fragment.PayloadSize)
	case event.Message != nil:
		count = itoa(event.Message.Fragments)
		size = strconv.Itoa(event.Message.Size)
	case event.Drop != nil:
		if event.Drop.MessageID != "" {
			index, count = itoa(event.Drop.Index), itoa(event.Drop.Count)
		}
		size = strconv.Itoa(event.Drop.Size)
		detail = event.Drop.Reason.String()
	case event.Eviction != nil:
		count = itoa(event.Eviction.Count)
		detail = fmt.Sprintf("received %d, idle %s", event.Eviction.Received, event.Eviction.Idle)
	case event.StateChange != nil:
		detail = event.StateChange.NewState
		if event.StateChange.Reason != "" {
			detail += ": " + event.StateChange.Reason
		}
	case event.Error != nil:
		detail = event.Error.Message
	}

	return []string{
		event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		event.EndpointID,
		event.LocalRole.String(),
		event.Direction.String(),
		event.Layer.String(),
		event.Category.String(),
		event.RemoteAddr,
		eventType(event),
		event.MessageID(),
		index,
		count,
		size,
		detail,
	}
}
