package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fragudp/fragudp-go/internal/config"
	fraglog "github.com/fragudp/fragudp-go/pkg/log"
)

// commonFlags are the flags every subcommand accepts. Values given on the
// command line override the configuration file.
type commonFlags struct {
	configFile  string
	mtu         int
	idle        time.Duration
	protocolLog string
	logLevel    string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configFile, "config", "", "YAML configuration file")
	fs.IntVar(&c.mtu, "mtu", 0, "Datagram size in bytes (default 576)")
	fs.DurationVar(&c.idle, "idle", 0, "Evict incomplete messages idle for longer than this")
	fs.StringVar(&c.protocolLog, "protocol-log", "", "File path for protocol event logging (CBOR format)")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error; warn and error hide progress messages")
}

// load reads the configuration file and applies the flags that were set,
// then lets apply override command-specific fields.
func (c *commonFlags) load(fs *flag.FlagSet, apply func(name string, cfg *config.Config)) (config.Config, error) {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return config.Config{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mtu":
			cfg.MTU = c.mtu
		case "idle":
			cfg.IdleTimeout = c.idle
		case "protocol-log":
			cfg.ProtocolLog = c.protocolLog
		case "log-level":
			cfg.LogLevel = c.logLevel
		default:
			if apply != nil {
				apply(f.Name, &cfg)
			}
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// protocolLogger builds the protocol logger for cfg. At debug level events
// also go to the operational log. The returned close function is never nil.
func protocolLogger(cfg config.Config) (fraglog.Logger, func() error, error) {
	var loggers []fraglog.Logger
	closeFn := func() error { return nil }

	if cfg.ProtocolLog != "" {
		fl, err := fraglog.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return nil, closeFn, fmt.Errorf("failed to create protocol logger: %w", err)
		}
		infof("Protocol logging to: %s", cfg.ProtocolLog)
		loggers = append(loggers, fl)
		closeFn = fl.Close
	}
	if cfg.LogLevel == "debug" {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		loggers = append(loggers, fraglog.NewSlogAdapter(slog.New(handler)))
	}

	switch len(loggers) {
	case 0:
		return nil, closeFn, nil
	case 1:
		return loggers[0], closeFn, nil
	default:
		return fraglog.NewMultiLogger(loggers...), closeFn, nil
	}
}

// parse parses args, mapping -h to flag.ErrHelp.
func parse(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		return flag.ErrHelp
	}
	return err
}
