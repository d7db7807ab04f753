// Package cmd routes the chatly binary's subcommands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/chatly/chatly/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the entry point called from main. The default command runs the
// server; version and help work without valid configuration.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			printVersion()
			return nil
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "serve":
			// fallthrough to the default below
		default:
			printHelp()
			return fmt.Errorf("unknown command %q", os.Args[1])
		}
	}

	logger := initLogger()
	slog.SetDefault(logger)

	return runServe(logger)
}

// initLogger builds the process logger. DEBUG in the environment enables
// debug-level records; CHATLY_LOG_JSON switches to JSON output.
func initLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{
		Level: level,
		JSON:  os.Getenv("CHATLY_LOG_JSON") != "",
	})
}

func printHelp() {
	fmt.Println(`chatly - multi-tenant support chat backend

Usage:
  chatly [serve]    start the HTTP and websocket server (default)
  chatly version    print version information
  chatly help       show this help`)
}
