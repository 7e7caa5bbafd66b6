package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/okian/statline/internal/simulate"
)

// Default configuration constants.
const (
	defaultSessions    = 100
	defaultMoves       = 20
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 10 * time.Second
	defaultRunTimeout  = 10 * time.Minute
	defaultInvalidRate = 0.1
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		sessions = flag.Int("sessions", defaultSessions, "Number of sessions to play")
		moves    = flag.Int("moves", defaultMoves, "Drag attempts per session")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed     = flag.Uint64("seed", 1, "Seed for the drag generator")
		invalid  = flag.Float64("invalid", defaultInvalidRate, "Share of drags aimed at unknown slots or positions")
		values   = flag.String("values", "", "Comma separated pool for every session")
		logFile  = flag.String("log", "", "Also write output to this file")
		verbose  = flag.Bool("verbose", false, "Log every move")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	pool, err := parseValues(*values)
	if err != nil {
		os.Stderr.WriteString("invalid -values: " + err.Error() + "\n")
		os.Exit(2)
	}

	closeLog, err := simulate.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)

	config := &simulate.Config{
		BaseURL:     strings.TrimSuffix(*baseURL, "/"),
		Sessions:    *sessions,
		Moves:       *moves,
		Workers:     max(*workers, 1),
		Timeout:     *timeout,
		Seed:        *seed,
		InvalidRate: *invalid,
		Values:      pool,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	_, err = simulate.Run(ctx, config)
	stop()
	cancel()
	_ = closeLog()
	if err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func parseValues(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
