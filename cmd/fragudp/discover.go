package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fragudp/fragudp-go/internal/config"
	"github.com/fragudp/fragudp-go/pkg/discovery"
)

func runDiscover(args []string) error {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	var (
		common  commonFlags
		timeout time.Duration
		iface   string
	)
	common.register(fs)
	fs.DurationVar(&timeout, "timeout", 0, "How long to browse (default 5s)")
	fs.StringVar(&iface, "interface", "", "Network interface to browse on")
	if err := parse(fs, args); err != nil {
		return err
	}

	cfg, err := common.load(fs, func(name string, cfg *config.Config) {
		switch name {
		case "timeout":
			cfg.Discovery.Timeout = timeout
		case "interface":
			cfg.Discovery.Interface = iface
		}
	})
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	browser, err := discovery.NewMDNSBrowser(cfg.Browser())
	if err != nil {
		return err
	}
	defer browser.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Browser().Timeout)
	defer cancel()

	services, err := browser.Browse(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Browsing for %s (%s)...\n", discovery.ServiceType, cfg.Browser().Timeout)
	found := 0
	for svc := range services {
		printService(os.Stdout, svc)
		found++
	}
	fmt.Printf("%d server(s) found\n", found)
	return nil
}

func printService(w io.Writer, svc *discovery.ServerService) {
	fmt.Fprintf(w, "%s\n", svc.InstanceName)
	if svc.Name != "" {
		fmt.Fprintf(w, "  Name:      %s\n", svc.Name)
	}
	fmt.Fprintf(w, "  Host:      %s\n", svc.Host)
	fmt.Fprintf(w, "  Port:      %d\n", svc.Port)
	fmt.Fprintf(w, "  MTU:       %d\n", svc.MTU)
	fmt.Fprintf(w, "  Version:   %s\n", svc.Version)
	fmt.Fprintf(w, "  Addresses: %s\n", strings.Join(svc.Addresses, ", "))
	if addr, ok := svc.AddrPort(); ok {
		fmt.Fprintf(w, "  Dial:      fragudp send -peer %s -mtu %d\n", addr, svc.MTU)
	}
}
