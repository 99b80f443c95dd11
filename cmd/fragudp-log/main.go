// Command fragudp-log is a tool for viewing and analyzing fragudp protocol
// log files.
//
// Log files are created by running fragudp with the -protocol-log flag.
// A path of "-" reads the log from standard input. A log that ends in the
// middle of an event, such as one still being written, is read up to that
// point with a warning.
//
// Usage:
//
//	fragudp-log <command> [flags] <file.flog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	fragudp-log view server.flog
//
//	# View only discarded datagrams
//	fragudp-log view -category drop server.flog
//
//	# Follow one message through the log
//	fragudp-log view -message 6ba7b810-9dad-11d1-80b4-00c04fd430c8 server.flog
//
//	# Keep only client-side events
//	fragudp-log filter -role client -o client.flog session.flog
//
//	# Show statistics of a copied log
//	ssh bench cat /var/log/fragudp/server.flog | fragudp-log stats -
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fragudp/fragudp-go/cmd/fragudp-log/commands"
)

const usage = `fragudp-log - fragudp Protocol Log Analyzer

Usage:
  fragudp-log <command> [flags] <file.flog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

A file argument of "-" reads the log from standard input.
Use "fragudp-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// newFlagSet creates a flag set whose usage text names the command.
func newFlagSet(name, synopsis, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "fragudp-log %s - %s\n\nUsage:\n  fragudp-log %s %s\n\nFlags:\n", name, synopsis, name, args)
		fs.PrintDefaults()
	}
	return fs
}

// logPath returns the single positional argument or exits.
func logPath(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runView(args []string) {
	fs := newFlagSet("view", "View log file in human-readable format", "[flags] <file.flog>")
	layer := fs.String("layer", "", "Filter by layer (socket, fragment, message)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (data, drop, state, error)")
	message := fs.String("message", "", "Filter by message ID")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := logPath(fs)

	filter := commands.ViewFilter{MessageID: *message}

	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		if err != nil {
			fail(err)
		}
		filter.Layer = &l
	}
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			fail(err)
		}
		filter.Direction = &d
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fail(err)
		}
		filter.Category = &c
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export log file to JSON or CSV format", "[flags] <file.flog>")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := logPath(fs)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Filter log file and write to new file", "[flags] <file.flog>")
	output := fs.String("o", "", "Output file (required)")
	endpoint := fs.String("endpoint", "", "Filter by endpoint ID")
	message := fs.String("message", "", "Filter by message ID")
	role := fs.String("role", "", "Filter by role (server, client)")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")
	layer := fs.String("layer", "", "Filter by layer (socket, fragment, message)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (data, drop, state, error)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := logPath(fs)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	opts := commands.FilterOptions{
		Output:     *output,
		EndpointID: *endpoint,
		MessageID:  *message,
		Role:       *role,
		TimeStart:  *timeStart,
		TimeEnd:    *timeEnd,
		Layer:      *layer,
		Direction:  *direction,
		Category:   *category,
	}

	count, err := commands.RunFilter(path, opts)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", count, *output)
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show statistics about the log file", "<file.flog>")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := logPath(fs)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
