// A minimal line-oriented terminal client for the chat server. Lines
// starting with '/' are sent as commands (sigil stripped on the wire),
// everything else as chat text.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/avolkov/protochat/internal/wire"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5000", "server address")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	conn, err := net.DialTimeout("tcp", *addr, 5*time.Second)
	if err != nil {
		logger.Error("connect failed", "addr", *addr, "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	logger.Info("connected", "addr", *addr)

	go readLoop(conn, logger)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var m wire.Message
		if strings.HasPrefix(line, "/") {
			m.Command = &wire.Command{Cmd: strings.TrimPrefix(line, "/")}
		} else {
			m.Chat = &wire.Chat{Text: line}
		}
		if err := wire.WriteFrame(conn, m); err != nil {
			logger.Error("write failed", "error", err)
			return
		}
	}
}

func readLoop(conn net.Conn, logger *slog.Logger) {
	r := wire.NewReader(conn)
	for {
		m, err := r.ReadFrame()
		if err != nil {
			logger.Info("disconnected", "error", err)
			os.Exit(0)
		}
		switch {
		case m.Auth != nil:
			status := "ERR"
			if m.Auth.Success {
				status = "OK"
			}
			fmt.Printf("<%s> %s\n", status, m.Auth.Message)
		case m.Chat != nil:
			fmt.Printf("[%s] %s\n", m.Chat.From, m.Chat.Text)
		case m.Users != nil:
			fmt.Println("Online users:")
			for _, name := range m.Users.Names {
				fmt.Printf(" - %s\n", name)
			}
		case m.History != nil:
			fmt.Println("Chat history:")
			for _, c := range m.History.Messages {
				fmt.Printf("[%s] %s\n", c.From, c.Text)
			}
		case m.Heartbeat != nil:
			// Liveness echo, nothing to show.
		}
	}
}
