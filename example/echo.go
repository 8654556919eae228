package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/Zereker/linestream"
)

// echo replies to every line with the same line.
// "LITERAL <n>" switches to a raw read of n bytes and reports its size;
// "QUIT" ends the session.
func echo(ctx context.Context, f *linestream.Framer) error {
	if err := f.WriteLine("+OK echo ready"); err != nil {
		return err
	}

	for {
		line, err := f.ReadLine()
		if err != nil {
			return err
		}

		switch {
		case strings.EqualFold(line, "QUIT"):
			return f.WriteLine("+OK bye")

		case strings.HasPrefix(strings.ToUpper(line), "LITERAL "):
			n, err := strconv.Atoi(strings.TrimSpace(line[len("LITERAL "):]))
			if err != nil || n < 0 {
				if err := f.WriteLine("-ERR bad literal size"); err != nil {
					return err
				}
				continue
			}
			block, err := f.ConsumeRaw(n)
			if err != nil {
				return err
			}
			if err := f.WriteLine(fmt.Sprintf("+OK %d bytes", len(block))); err != nil {
				return err
			}

		default:
			if err := f.WriteLine(line); err != nil {
				return err
			}
		}
	}
}

func main() {
	addrFlag := flag.String("addr", "127.0.0.1:12345", "listen address")
	configFlag := flag.String("config", "", "optional TOML framer config")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var cfg linestream.Config
	if *configFlag != "" {
		var err error
		cfg, err = linestream.LoadConfig(*configFlag)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	framerOpts, err := cfg.Options(logger)
	if err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	addr, err := net.ResolveTCPAddr("tcp", *addrFlag)
	if err != nil {
		logger.Error("invalid address", "error", err)
		os.Exit(1)
	}

	server, err := linestream.New(addr,
		linestream.ServerLoggerOption(logger),
		linestream.FramerOptions(framerOpts...),
	)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = server.Serve(ctx, linestream.HandlerFunc(echo))
	if err != nil && err != context.Canceled && err != io.EOF {
		logger.Error("server error", "error", err)
	}
}
