// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/statline/internal/domain/engine"
)

// Event is one engine change tagged with the session it happened in.
// Events flow from the engine hooks through the change queue to the workers.
type Event struct {
	SessionID string        // owning session
	Change    engine.Change // what happened
	At        time.Time     // when the engine published it
}

// Rejected reports whether the event records a turned-down move.
func (e Event) Rejected() bool {
	return e.Change.Kind == engine.KindMoved && !e.Change.Outcome.Applied()
}
