package simulate

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/statline/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initializes the logger, also writing to logFile when one is
// given. The returned func closes the file.
func SetupLogging(logFile string, verbose bool) (func() error, error) {
	var (
		w      io.Writer = os.Stdout
		closer           = func() error { return nil }
	)
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closer = file.Close
	}

	if err := logger.Init(logger.WithWriter(w)); err != nil {
		_ = closer()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := "info"
	if verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		_ = closer()
		return nil, err
	}
	return closer, nil
}

// ShowHelp prints usage information for the simulation tool.
func ShowHelp() {
	os.Stdout.WriteString(`Statline Simulation Tool
========================

Plays random drag-and-drop sessions against a running statline server and
checks every answer: values are conserved, rejected moves change nothing,
a placed value cannot be placed again, a filled slot stays filled until
reset, and reset restores the starting pool.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sessions int
        Number of sessions to play (default 100)
  -moves int
        Drag attempts per session (default 20)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -seed uint
        Seed for the drag generator (default 1)
  -invalid float
        Share of drags aimed at unknown slots or positions (default 0.1)
  -values string
        Comma separated pool for every session (default: server default)
  -log string
        Also write output to this file
  -verbose
        Log every move
  -help
        Show this help message

Examples:
  # Play with default settings
  go run ./cmd/simulate

  # Many short sessions against another address
  go run ./cmd/simulate -sessions 5000 -moves 10 -url http://localhost:8080

  # Reproduce a run with a custom pool
  go run ./cmd/simulate -seed 42 -values 18,16,14,12,10,8,6 -verbose
`)
}
