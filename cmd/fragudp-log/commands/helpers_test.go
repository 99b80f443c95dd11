package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fragudp/fragudp-go/pkg/log"
)

const (
	serverID = "11111111-2222-3333-4444-555555555555"
	clientID = "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
	msgID    = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
)

var baseTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

// sessionEvents is a small client-to-server exchange: one two-fragment
// message, a duplicate, and an eviction.
func sessionEvents() []log.Event {
	at := func(ms int) time.Time { return baseTime.Add(time.Duration(ms) * time.Millisecond) }
	return []log.Event{
		{
			Timestamp: at(0), EndpointID: clientID, LocalRole: log.RoleClient,
			Direction: log.DirectionOut, Layer: log.LayerMessage, Category: log.CategoryData,
			LocalAddr: "127.0.0.1:40000", RemoteAddr: "127.0.0.1:9000",
			Message: &log.MessageEvent{MessageID: msgID, Size: 600, Fragments: 2},
		},
		{
			Timestamp: at(1), EndpointID: serverID, LocalRole: log.RoleServer,
			Direction: log.DirectionIn, Layer: log.LayerSocket, Category: log.CategoryData,
			LocalAddr: "127.0.0.1:9000", RemoteAddr: "127.0.0.1:40000",
			Datagram: &log.DatagramEvent{Size: 576, Data: []byte{0x6b, 0xa7}, Truncated: true},
		},
		{
			Timestamp: at(2), EndpointID: serverID, LocalRole: log.RoleServer,
			Direction: log.DirectionIn, Layer: log.LayerFragment, Category: log.CategoryData,
			RemoteAddr: "127.0.0.1:40000",
			Fragment:   &log.FragmentEvent{MessageID: msgID, Index: 0, Count: 2, PayloadSize: 544},
		},
		{
			Timestamp: at(3), EndpointID: serverID, LocalRole: log.RoleServer,
			Direction: log.DirectionIn, Layer: log.LayerFragment, Category: log.CategoryDrop,
			RemoteAddr: "127.0.0.1:40000",
			Drop:       &log.DropEvent{Reason: log.DropDuplicate, MessageID: msgID, Index: 0, Count: 2, Size: 576},
		},
		{
			Timestamp: at(4), EndpointID: serverID, LocalRole: log.RoleServer,
			Direction: log.DirectionIn, Layer: log.LayerMessage, Category: log.CategoryData,
			RemoteAddr: "127.0.0.1:40000",
			Message:    &log.MessageEvent{MessageID: msgID, Size: 600, Fragments: 2},
		},
		{
			Timestamp: at(2000), EndpointID: serverID, LocalRole: log.RoleServer,
			Direction: log.DirectionIn, Layer: log.LayerMessage, Category: log.CategoryDrop,
			Eviction: &log.EvictionEvent{MessageID: "other", Received: 1, Count: 3, Idle: 1500 * time.Millisecond},
		},
		{
			Timestamp: at(2500), EndpointID: serverID, LocalRole: log.RoleServer,
			Direction: log.DirectionIn, Layer: log.LayerSocket, Category: log.CategoryError,
			Error: &log.ErrorEventData{Layer: log.LayerSocket, Message: "connection refused", Result: "Reset", Context: "recv"},
		},
	}
}

// writeLog writes events to a new log file and returns its path.
func writeLog(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.flog")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

// readLog reads all events of a log file.
func readLog(t *testing.T, path string) []log.Event {
	t.Helper()
	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer reader.Close()

	var events []log.Event
	for {
		e, err := reader.Next()
		if err != nil {
			return events
		}
		events = append(events, e)
	}
}
