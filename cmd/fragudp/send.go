package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fragudp/fragudp-go/internal/config"
	"github.com/fragudp/fragudp-go/pkg/discovery"
	"github.com/fragudp/fragudp-go/pkg/transport"
)

func runSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	var (
		common  commonFlags
		peer    string
		find    string
		text    string
		file    string
		wait    time.Duration
		outFile string
	)
	common.register(fs)
	fs.StringVar(&peer, "peer", "", "Server address host:port")
	fs.StringVar(&find, "find", "", "Resolve the server by mDNS instance name")
	fs.StringVar(&text, "m", "", "Message text")
	fs.StringVar(&file, "f", "", "Read the message from a file (\"-\" for stdin)")
	fs.DurationVar(&wait, "wait", 0, "Wait this long for a reply")
	fs.StringVar(&outFile, "o", "", "Write the reply to a file instead of stdout")
	if err := parse(fs, args); err != nil {
		return err
	}

	cfg, err := common.load(fs, peerFlag(&peer))
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	msg, err := readMessage(text, file, os.Stdin)
	if err != nil {
		return err
	}

	client, closeFn, err := dialClient(&cfg, find, fs)
	if err != nil {
		return err
	}
	defer closeFn()

	start := time.Now()
	if err := client.Send(msg); err != nil {
		return err
	}
	infof("Sent %d bytes to %s", len(msg), client.RemoteAddr())

	if wait <= 0 {
		return nil
	}

	reply, ok, err := client.ReceiveTimeout(wait)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no reply within %s", wait)
	}
	infof("Reply: %d bytes after %s", len(reply), time.Since(start).Round(time.Microsecond))

	if outFile != "" {
		return os.WriteFile(outFile, reply, 0o644)
	}
	fmt.Println(preview(reply))
	return nil
}

func peerFlag(peer *string) func(string, *config.Config) {
	return func(name string, cfg *config.Config) {
		if name == "peer" {
			cfg.Peer = *peer
		}
	}
}

// readMessage returns the message given by -m or -f. With neither set the
// message is empty.
func readMessage(text, file string, stdin io.Reader) ([]byte, error) {
	switch {
	case text != "" && file != "":
		return nil, errors.New("-m and -f are mutually exclusive")
	case file == "-":
		return io.ReadAll(stdin)
	case file != "":
		return os.ReadFile(file)
	default:
		return []byte(text), nil
	}
}

// dialClient connects to cfg.Peer, or to the server advertised as find.
// The returned function closes the client and the protocol log.
func dialClient(cfg *config.Config, find string, fs *flag.FlagSet) (*transport.Client, func() error, error) {
	if find != "" {
		if err := resolvePeer(cfg, find, flagSet(fs, "mtu")); err != nil {
			return nil, nil, err
		}
	}
	if cfg.Peer == "" {
		return nil, nil, errors.New("no peer: use -peer, -find or set peer in the config file")
	}

	logger, closeLog, err := protocolLogger(*cfg)
	if err != nil {
		return nil, nil, err
	}

	client, err := transport.Dial(cfg.Peer, cfg.Transport(logger))
	if err != nil {
		closeLog()
		return nil, nil, err
	}

	return client, func() error {
		err := client.Close()
		if lerr := closeLog(); err == nil {
			err = lerr
		}
		return err
	}, nil
}

// resolvePeer browses for instance and sets cfg.Peer. Unless the MTU was
// given explicitly, the advertised MTU is adopted.
func resolvePeer(cfg *config.Config, instance string, keepMTU bool) error {
	browser, err := discovery.NewMDNSBrowser(cfg.Browser())
	if err != nil {
		return err
	}
	defer browser.Stop()

	infof("Looking for %q...", instance)
	svc, err := browser.FindByName(context.Background(), instance)
	if err != nil {
		return fmt.Errorf("find %q: %w", instance, err)
	}

	addr, ok := svc.AddrPort()
	if !ok {
		return fmt.Errorf("find %q: no IPv4 address advertised", instance)
	}
	cfg.Peer = addr.String()

	if !keepMTU && svc.MTU != cfg.MTU {
		infof("Using advertised MTU %d", svc.MTU)
		cfg.MTU = svc.MTU
	}
	return cfg.Validate()
}

func flagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
