package engine

import (
	"context"

	"github.com/okian/statline/internal/domain/attribute"
)

// Kind names the operation that produced a Change.
type Kind string

const (
	KindInitialized Kind = "initialized"
	KindMoved       Kind = "moved"
	KindReset       Kind = "reset"
)

// Outcome is the result of a move request. Rejections are not errors: the
// state is left exactly as it was.
type Outcome int

const (
	Applied Outcome = iota
	RejectedSlotFilled
	RejectedSourceEmpty
	RejectedOutOfRange
	RejectedUnknownSlot
	RejectedUninitialized
)

var outcomeNames = map[Outcome]string{
	Applied:               "applied",
	RejectedSlotFilled:    "slot_filled",
	RejectedSourceEmpty:   "source_empty",
	RejectedOutOfRange:    "out_of_range",
	RejectedUnknownSlot:   "unknown_slot",
	RejectedUninitialized: "uninitialized",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}

// Applied reports whether the move changed state.
func (o Outcome) Applied() bool { return o == Applied }

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Change describes a single transition or rejected request.
type Change struct {
	Kind     Kind           `json:"kind"`
	Position int            `json:"position"`
	Slot     attribute.Slot `json:"slot,omitempty"`
	Value    Value          `json:"value"`
	Outcome  Outcome        `json:"outcome"`
	Epoch    uint64         `json:"epoch"`
	// Complete is set when the change filled the last open slot of the epoch.
	Complete bool `json:"complete"`
}

// Hooks observe the engine. They run synchronously, in transition order, while
// the engine's write lock is held, so they must not call back into the engine.
type Hooks struct {
	// OnChange receives every applied transition with the state it published.
	OnChange func(ctx context.Context, c Change, s State)

	// OnReject receives move requests that were turned down.
	OnReject func(ctx context.Context, c Change)
}

func (h Hooks) withDefaults() Hooks {
	if h.OnChange == nil {
		h.OnChange = func(context.Context, Change, State) {}
	}
	if h.OnReject == nil {
		h.OnReject = func(context.Context, Change) {}
	}
	return h
}
