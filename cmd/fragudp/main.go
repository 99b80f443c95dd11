// Command fragudp sends and receives fragmented messages over UDP.
//
// Usage:
//
//	fragudp <command> [flags]
//
// Commands:
//
//	listen    Run a server that prints (and optionally echoes) messages
//	send      Send one message to a server and optionally wait for a reply
//	chat      Interactive client: each line is sent as a message
//	discover  Browse the local network for advertised servers
//	version   Print the wire format version
//
// Common flags:
//
//	-config string        YAML configuration file
//	-mtu int              Datagram size in bytes (default 576)
//	-idle duration        Evict incomplete messages idle for longer than this
//	-protocol-log string  File path for protocol event logging (CBOR format)
//	-log-level string     Log level: debug, info, warn, error; warn and error hide progress messages (default "info")
//
// Examples:
//
//	# Echo server advertised via mDNS
//	fragudp listen -addr :9000 -echo -advertise -name lab-1
//
//	# Send a file and wait for the echo
//	fragudp send -peer 192.168.1.10:9000 -f payload.bin -wait 2s
//
//	# Find a server by instance name and chat with it
//	fragudp chat -find lab-1
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fragudp/fragudp-go/pkg/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "listen":
		err = runListen(args)
	case "send":
		err = runSend(args)
	case "chat":
		err = runChat(args)
	case "discover":
		err = runDiscover(args)
	case "version":
		fmt.Printf("fragudp wire format %s\n", version.Current)
		return
	case "help", "-h", "-help", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if err == flag.ErrHelp {
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: fragudp <command> [flags]

Commands:
  listen    Run a server that prints (and optionally echoes) messages
  send      Send one message to a server
  chat      Interactive client
  discover  Browse for advertised servers
  version   Print the wire format version

Run 'fragudp <command> -h' for command flags.`)
}

// quiet suppresses progress messages; warnings and errors still print.
var quiet bool

func setupLogging(level string) {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
	quiet = false

	switch level {
	case "debug":
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	case "warn", "error":
		log.SetFlags(log.Ltime)
		quiet = true
	}
}

// infof logs a progress message unless the log level is warn or error.
func infof(format string, args ...any) {
	if quiet {
		return
	}
	log.Output(2, fmt.Sprintf(format, args...))
}
