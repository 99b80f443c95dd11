package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fragudp/fragudp-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	DropsByReason     map[log.DropReason]int
	Endpoints         map[string]*EndpointStats
	Errors            int
	Evictions         int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// EndpointStats holds statistics for a single transport endpoint.
type EndpointStats struct {
	Role      log.Role
	LocalAddr string
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int

	MessagesIn  int
	MessagesOut int
	BytesIn     int
	BytesOut    int
	Datagrams   int
	Drops       int
}

// Collect reads every event of the log file into a Stats.
func Collect(path string) (*Stats, error) {
	reader, err := openLog(path, log.Filter{})
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		DropsByReason:     make(map[log.DropReason]int),
		Endpoints:         make(map[string]*EndpointStats),
	}

	err = each(reader, func(event log.Event) error {
		stats.add(event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	ep, ok := s.Endpoints[event.EndpointID]
	if !ok {
		ep = &EndpointStats{
			Role:      event.LocalRole,
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
		}
		s.Endpoints[event.EndpointID] = ep
	}
	ep.Events++
	if event.Timestamp.After(ep.LastSeen) {
		ep.LastSeen = event.Timestamp
	}
	if ep.LocalAddr == "" {
		ep.LocalAddr = event.LocalAddr
	}

	switch {
	case event.Datagram != nil:
		ep.Datagrams++
	case event.Message != nil:
		if event.Direction == log.DirectionIn {
			ep.MessagesIn++
			ep.BytesIn += event.Message.Size
		} else {
			ep.MessagesOut++
			ep.BytesOut += event.Message.Size
		}
	case event.Drop != nil:
		ep.Drops++
		s.DropsByReason[event.Drop.Reason]++
	case event.Eviction != nil:
		s.Evictions++
	case event.Error != nil:
		s.Errors++
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := Collect(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== fragudp Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerSocket, log.LayerFragment, log.LayerMessage} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryData, log.CategoryDrop, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.DropsByReason) > 0 {
		fmt.Fprintln(w, "Drops by Reason:")
		reasons := make([]log.DropReason, 0, len(stats.DropsByReason))
		for r := range stats.DropsByReason {
			reasons = append(reasons, r)
		}
		sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
		for _, r := range reasons {
			fmt.Fprintf(w, "  %-16s %d\n", r.String()+":", stats.DropsByReason[r])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Endpoints: %d\n", len(stats.Endpoints))
	if len(stats.Endpoints) > 0 {
		type endpointInfo struct {
			id    string
			stats *EndpointStats
		}
		eps := make([]endpointInfo, 0, len(stats.Endpoints))
		for id, es := range stats.Endpoints {
			eps = append(eps, endpointInfo{id, es})
		}
		sort.Slice(eps, func(i, j int) bool {
			return eps[i].stats.FirstSeen.Before(eps[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, e := range eps {
			duration := e.stats.LastSeen.Sub(e.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %s %s, %d events, duration %s\n",
				shortenID(e.id), e.stats.Role, e.stats.LocalAddr, e.stats.Events, duration)
			fmt.Fprintf(w, "           Messages: %d in (%d bytes), %d out (%d bytes)\n",
				e.stats.MessagesIn, e.stats.BytesIn, e.stats.MessagesOut, e.stats.BytesOut)
			if e.stats.Drops > 0 {
				fmt.Fprintf(w, "           Drops: %d\n", e.stats.Drops)
			}
		}
	}

	if stats.Evictions > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Evictions: %d\n", stats.Evictions)
	}
	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
