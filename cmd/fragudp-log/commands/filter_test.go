package commands

import (
	"path/filepath"
	"testing"

	"github.com/fragudp/fragudp-go/pkg/log"
)

func TestRunFilter(t *testing.T) {
	path := writeLog(t, sessionEvents())

	tests := []struct {
		name      string
		opts      FilterOptions
		wantCount int
	}{
		{name: "no criteria", opts: FilterOptions{}, wantCount: 7},
		{name: "client role", opts: FilterOptions{Role: "client"}, wantCount: 1},
		{name: "server endpoint", opts: FilterOptions{EndpointID: serverID}, wantCount: 6},
		{name: "message", opts: FilterOptions{MessageID: msgID}, wantCount: 4},
		{name: "socket layer", opts: FilterOptions{Layer: "socket"}, wantCount: 2},
		{name: "outgoing", opts: FilterOptions{Direction: "out"}, wantCount: 1},
		{name: "errors", opts: FilterOptions{Category: "error"}, wantCount: 1},
		{name: "time window", opts: FilterOptions{TimeStart: "2026-03-14T09:26:54Z", TimeEnd: "2026-03-14T09:27:00Z"}, wantCount: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Output = filepath.Join(t.TempDir(), "out.flog")

			count, err := RunFilter(path, tt.opts)
			if err != nil {
				t.Fatalf("RunFilter: %v", err)
			}
			if count != tt.wantCount {
				t.Errorf("count = %d, want %d", count, tt.wantCount)
			}
			if got := len(readLog(t, tt.opts.Output)); got != tt.wantCount {
				t.Errorf("output has %d events, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestRunFilterInvalidOptions(t *testing.T) {
	path := writeLog(t, sessionEvents())
	out := filepath.Join(t.TempDir(), "out.flog")

	for _, opts := range []FilterOptions{
		{Output: out, Role: "peer"},
		{Output: out, Layer: "wire"},
		{Output: out, Direction: "up"},
		{Output: out, Category: "control"},
		{Output: out, TimeStart: "yesterday"},
		{Output: out, TimeEnd: "tomorrow"},
	} {
		if _, err := RunFilter(path, opts); err == nil {
			t.Errorf("expected error for %+v", opts)
		}
	}
}

func TestRunFilterPreservesEvents(t *testing.T) {
	path := writeLog(t, sessionEvents())
	out := filepath.Join(t.TempDir(), "out.flog")

	if _, err := RunFilter(path, FilterOptions{Output: out, Category: "drop"}); err != nil {
		t.Fatalf("RunFilter: %v", err)
	}

	events := readLog(t, out)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Drop == nil || events[0].Drop.Reason != log.DropDuplicate {
		t.Errorf("expected duplicate drop, got %+v", events[0])
	}
	if events[1].Eviction == nil || events[1].Eviction.Count != 3 {
		t.Errorf("expected eviction, got %+v", events[1])
	}
}
