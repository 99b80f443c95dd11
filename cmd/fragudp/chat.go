package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/fragudp/fragudp-go/pkg/transport"
)

// pollInterval bounds how long the chat loop waits for a reply before
// checking for new input.
const pollInterval = 50 * time.Millisecond

func runChat(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	var (
		common commonFlags
		peer   string
		find   string
	)
	common.register(fs)
	fs.StringVar(&peer, "peer", "", "Server address host:port")
	fs.StringVar(&find, "find", "", "Resolve the server by mDNS instance name")
	if err := parse(fs, args); err != nil {
		return err
	}

	cfg, err := common.load(fs, peerFlag(&peer))
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	client, closeFn, err := dialClient(&cfg, find, fs)
	if err != nil {
		return err
	}
	defer closeFn()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "fragudp> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	log.SetOutput(rl.Stderr())

	fmt.Fprintf(rl.Stdout(), "Connected to %s from %s. Type a line to send it, /quit to exit.\n",
		client.RemoteAddr(), client.LocalAddr())

	lines := make(chan string)
	go readLines(rl, lines)

	return chatLoop(client, lines, func(msg []byte) {
		fmt.Fprintf(rl.Stdout(), "< %s\n", msg)
	})
}

// readLines feeds input lines to out until EOF or /quit, then closes out.
func readLines(rl *readline.Instance, out chan<- string) {
	defer close(out)
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "/quit" || line == "/exit" {
			return
		}
		if line != "" {
			out <- line
		}
	}
}

// chatLoop owns the client: it sends each line from lines and hands every
// received message to show, until lines is closed.
func chatLoop(client transport.ClientTransport, lines <-chan string, show func([]byte)) error {
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := client.Send([]byte(line)); err != nil {
				log.Printf("Send failed: %v", err)
			}
		default:
		}

		msg, ok, err := client.ReceiveTimeout(pollInterval)
		if err != nil {
			return err
		}
		if ok {
			show(msg)
		}
	}
}
