package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fragudp/fragudp-go/pkg/log"
)

func TestCollect(t *testing.T) {
	stats, err := Collect(writeLog(t, sessionEvents()))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if stats.TotalEvents != 7 {
		t.Errorf("TotalEvents = %d, want 7", stats.TotalEvents)
	}
	if stats.EventsByLayer[log.LayerMessage] != 3 {
		t.Errorf("message layer events = %d, want 3", stats.EventsByLayer[log.LayerMessage])
	}
	if stats.DropsByReason[log.DropDuplicate] != 1 {
		t.Errorf("duplicate drops = %d, want 1", stats.DropsByReason[log.DropDuplicate])
	}
	if stats.Evictions != 1 || stats.Errors != 1 {
		t.Errorf("evictions = %d, errors = %d", stats.Evictions, stats.Errors)
	}
	if len(stats.Endpoints) != 2 {
		t.Fatalf("endpoints = %d, want 2", len(stats.Endpoints))
	}

	server := stats.Endpoints[serverID]
	if server.Role != log.RoleServer || server.LocalAddr != "127.0.0.1:9000" {
		t.Errorf("server endpoint = %+v", server)
	}
	if server.MessagesIn != 1 || server.BytesIn != 600 || server.Datagrams != 1 || server.Drops != 1 {
		t.Errorf("server counters = %+v", server)
	}

	client := stats.Endpoints[clientID]
	if client.MessagesOut != 1 || client.BytesOut != 600 {
		t.Errorf("client counters = %+v", client)
	}
}

func TestRunStats(t *testing.T) {
	var buf bytes.Buffer
	if err := RunStats(writeLog(t, sessionEvents()), &buf); err != nil {
		t.Fatalf("RunStats: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"Total Events: 7",
		"FRAGMENT:",
		"DROP:",
		"DUPLICATE:",
		"Endpoints: 2",
		"[aaaaaaaa] CLIENT 127.0.0.1:40000",
		"[11111111] SERVER 127.0.0.1:9000",
		"Messages: 1 in (600 bytes), 0 out (0 bytes)",
		"Evictions: 1",
		"Errors: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestRunStatsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RunStats(writeLog(t, nil), &buf); err != nil {
		t.Fatalf("RunStats: %v", err)
	}
	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}
