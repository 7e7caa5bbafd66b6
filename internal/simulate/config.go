// Package simulate drives random drag-and-drop sessions against a running
// assignment service and checks every response against the engine's
// guarantees from the client side.
package simulate

import (
	"errors"
	"time"

	"github.com/okian/statline/internal/adapters/http/api"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Sessions    int           // Number of sessions to play
	Moves       int           // Drag attempts per session
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	Seed        uint64        // Seed for the drag generator
	InvalidRate float64       // Share of drags aimed at unknown slots or positions
	Values      []int         // Pool for every session; empty means the server default
	LogFile     string        // Log file for run output
	Verbose     bool          // Log every move
}

// Stats holds run statistics.
type Stats struct {
	SessionsPlayed int
	MovesSent      int
	MovesApplied   int
	MovesRejected  int
	Rechecks       int
	Resets         int
	Violations     int
	RequestsFailed int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}

// Drag is a move as a browser client names it.
type Drag struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// moveResult mirrors the body of POST /sessions/{id}/moves.
type moveResult struct {
	Applied bool            `json:"applied"`
	Outcome string          `json:"outcome"`
	Session api.SessionView `json:"session"`
}

// Error constants.
var (
	ErrUnhealthy  = errors.New("service is not healthy")
	ErrViolations = errors.New("assignment guarantees violated")
	ErrStatus     = errors.New("unexpected status")
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)
