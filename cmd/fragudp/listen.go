package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fragudp/fragudp-go/internal/backoff"
	"github.com/fragudp/fragudp-go/internal/config"
	"github.com/fragudp/fragudp-go/pkg/discovery"
	"github.com/fragudp/fragudp-go/pkg/transport"
)

func runListen(args []string) error {
	fs := flag.NewFlagSet("listen", flag.ContinueOnError)
	var (
		common      commonFlags
		addr        string
		echo        bool
		advertise   bool
		name        string
		portRetries int
		bindWait    time.Duration
	)
	common.register(fs)
	fs.StringVar(&addr, "addr", "", "Listen address (default \":9000\")")
	fs.BoolVar(&echo, "echo", false, "Send every message back to its sender")
	fs.BoolVar(&advertise, "advertise", false, "Advertise the server via mDNS")
	fs.StringVar(&name, "name", "", "mDNS instance name (default: hostname-port)")
	fs.IntVar(&portRetries, "port-retries", 0, "Try this many following ports if the address is in use")
	fs.DurationVar(&bindWait, "bind-wait", 0, "Keep retrying a busy address this long before moving to the next port")
	if err := parse(fs, args); err != nil {
		return err
	}

	cfg, err := common.load(fs, func(flagName string, cfg *config.Config) {
		switch flagName {
		case "addr":
			cfg.Listen = addr
		case "advertise":
			cfg.Discovery.Advertise = advertise
		case "name":
			cfg.Discovery.Instance = name
		}
	})
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	logger, closeLog, err := protocolLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := listenWithRetry(ctx, cfg.Listen, portRetries, bindWait, cfg.Transport(logger))
	if err != nil {
		return err
	}
	defer srv.Close()

	infof("Listening on %s (mtu %d, endpoint %s)", srv.LocalAddr(), srv.MTU(), srv.EndpointID())

	if cfg.Discovery.Advertise {
		adv, err := discovery.NewMDNSAdvertiser(cfg.Advertiser())
		if err != nil {
			return err
		}
		info := &discovery.ServerInfo{
			InstanceName: instanceName(cfg.Discovery.Instance, srv.LocalAddr().Port()),
			Port:         srv.LocalAddr().Port(),
			MTU:          srv.MTU(),
			Name:         cfg.Discovery.Name,
		}
		if err := adv.Advertise(ctx, info); err != nil {
			log.Printf("Warning: mDNS advertising failed: %v", err)
		} else {
			infof("Advertising %s as %q", discovery.ServiceType, info.InstanceName)
			defer adv.Stop()
		}
	}

	for {
		msg, from, err := srv.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				infof("Shutting down...")
				return nil
			}
			return err
		}

		fmt.Printf("%s  %d bytes: %s\n", from, len(msg), preview(msg))

		if echo {
			if err := srv.Send(msg, from); err != nil {
				log.Printf("Echo to %s failed: %v", from, err)
			}
		}
	}
}

// listenWithRetry binds addr. While the address is in use it retries with
// backoff for up to bindWait, then moves on to the following ports.
func listenWithRetry(ctx context.Context, addr string, retries int, bindWait time.Duration, cfg transport.Config) (*transport.Server, error) {
	srv, err := bindWithBackoff(ctx, addr, bindWait, cfg)

	for i := 1; i <= retries && errors.Is(err, transport.ErrAddressInUse); i++ {
		var candidate string
		candidate, err = offsetPort(addr, i)
		if err != nil {
			return nil, err
		}
		infof("Address in use, trying %s", candidate)
		srv, err = transport.Listen(candidate, cfg)
	}
	return srv, err
}

// bindWithBackoff retries addr while it is in use and wait has not elapsed.
func bindWithBackoff(ctx context.Context, addr string, wait time.Duration, cfg transport.Config) (*transport.Server, error) {
	deadline := time.Now().Add(wait)
	b := backoff.New(backoff.Config{Max: time.Second})

	for {
		srv, err := transport.Listen(addr, cfg)
		if err == nil || !errors.Is(err, transport.ErrAddressInUse) {
			return srv, err
		}
		if time.Now().Add(b.Current()).After(deadline) {
			return nil, err
		}
		if b.Attempts() == 0 {
			infof("Address %s in use, retrying for up to %s", addr, wait)
		}
		if werr := b.Wait(ctx); werr != nil {
			return nil, err
		}
	}
}

// offsetPort returns addr with its port increased by n.
func offsetPort(addr string, n int) (string, error) {
	if n == 0 {
		return addr, nil
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", transport.ErrInvalidAddress, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port == 0 || port+n > 65535 {
		return "", fmt.Errorf("%w: cannot offset port %q", transport.ErrInvalidAddress, portStr)
	}
	return net.JoinHostPort(host, strconv.Itoa(port+n)), nil
}

// instanceName returns name, or hostname-port when name is empty.
func instanceName(name string, port uint16) string {
	if name != "" {
		return name
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "fragudp"
	}
	instance := fmt.Sprintf("%s-%d", host, port)
	if len(instance) > discovery.MaxInstanceNameLen {
		instance = instance[:discovery.MaxInstanceNameLen]
	}
	return instance
}

// preview returns printable text for short messages and a size summary for
// binary or long ones.
func preview(msg []byte) string {
	const limit = 64
	for _, b := range msg {
		if (b < 0x20 && b != '\t') || b == 0x7f {
			return "<binary>"
		}
	}
	if len(msg) > limit {
		return strconv.Quote(string(msg[:limit])) + "..."
	}
	return strconv.Quote(string(msg))
}
