// Package engine implements the attribute score assignment engine: a pool of
// values moved one by one into a fixed set of slots, with reset back to the
// original pool.
//
// Every transition builds a fresh State and publishes it wholesale, so readers
// never observe a half-applied move. Writers serialize on a mutex.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/statline/internal/domain/attribute"
)

// ErrPoolSize is returned by Initialize when the value count differs from the
// slot count.
var ErrPoolSize = errors.New("pool size must equal slot count")

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithHooks sets the observers notified on transitions and rejections.
func WithHooks(h Hooks) Option {
	return func(e *Engine) {
		e.hooks = h
	}
}

// Engine owns one session's pool and assignment.
type Engine struct {
	mu      sync.Mutex
	current atomic.Pointer[State]

	slots       []attribute.Slot
	initial     []Value
	initialized bool
	hooks       Hooks
}

// New creates an uninitialized engine over the attribute catalogue.
func New(opts ...Option) *Engine {
	e := &Engine{
		slots: attribute.All(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.hooks = e.hooks.withDefaults()

	e.current.Store(&State{
		Pool:       []Value{},
		Assignment: blankAssignment(e.slots),
	})
	return e
}

// Slots returns the slots this engine assigns to, in display order.
func (e *Engine) Slots() []attribute.Slot {
	out := make([]attribute.Slot, len(e.slots))
	copy(out, e.slots)
	return out
}

// Initialized reports whether Initialize has been applied.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	return e.current.Load().Clone()
}

// Initialize seeds the pool and clears the assignment. It applies at most once
// per engine; later calls are no-ops and return false.
func (e *Engine) Initialize(ctx context.Context, scores []int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return false, nil
	}
	if len(scores) != len(e.slots) {
		return false, fmt.Errorf("%w: got %d values for %d slots", ErrPoolSize, len(scores), len(e.slots))
	}

	e.initial = Values(scores)
	e.initialized = true

	next := e.origin(e.current.Load().Epoch + 1)
	e.current.Store(&next)
	e.hooks.OnChange(ctx, Change{Kind: KindInitialized, Position: -1, Epoch: next.Epoch}, next.Clone())
	return true, nil
}

// Move transfers the value at position into slot. Illegal requests leave the
// state untouched and report why through the returned Outcome. The returned
// State is the one in effect when the move was decided.
func (e *Engine) Move(ctx context.Context, position int, slot attribute.Slot) (Outcome, State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.current.Load()
	outcome := e.check(cur, position, slot)
	if !outcome.Applied() {
		e.hooks.OnReject(ctx, Change{
			Kind:     KindMoved,
			Position: position,
			Slot:     slot,
			Outcome:  outcome,
			Epoch:    cur.Epoch,
		})
		return outcome, cur.Clone()
	}

	next := e.applyLocked(ctx, cur, position, slot)
	return Applied, next.Clone()
}

// Fill places each remaining value into the slot at the same position, the
// fixed-order mode where values are not chosen by the user. Positions whose
// value is gone or whose slot is taken are skipped. It returns the number of
// moves applied and the resulting state.
func (e *Engine) Fill(ctx context.Context) (int, State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return 0, e.current.Load().Clone()
	}

	applied := 0
	for i, slot := range e.slots {
		cur := e.current.Load()
		if e.check(cur, i, slot) != Applied {
			continue
		}
		e.applyLocked(ctx, cur, i, slot)
		applied++
	}
	return applied, e.current.Load().Clone()
}

// Reset restores the pool captured at Initialize and clears every slot,
// starting a new epoch. On an uninitialized engine there is nothing to restore
// and the current state is returned unchanged.
func (e *Engine) Reset(ctx context.Context) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return e.current.Load().Clone()
	}

	next := e.origin(e.current.Load().Epoch + 1)
	e.current.Store(&next)
	e.hooks.OnChange(ctx, Change{Kind: KindReset, Position: -1, Epoch: next.Epoch}, next.Clone())
	return next.Clone()
}

func (e *Engine) check(cur *State, position int, slot attribute.Slot) Outcome {
	if !e.initialized {
		return RejectedUninitialized
	}
	held, known := cur.Assignment[slot]
	switch {
	case !known:
		return RejectedUnknownSlot
	case position < 0 || position >= len(cur.Pool):
		return RejectedOutOfRange
	case !held.IsEmpty():
		return RejectedSlotFilled
	case cur.Pool[position].IsEmpty():
		return RejectedSourceEmpty
	}
	return Applied
}

// applyLocked publishes the successor of cur with the move applied. The caller
// holds e.mu and has checked the move.
func (e *Engine) applyLocked(ctx context.Context, cur *State, position int, slot attribute.Slot) *State {
	next := cur.Clone()
	moved := next.Pool[position]
	next.Assignment[slot] = moved
	next.Pool[position] = Empty
	e.current.Store(&next)

	e.hooks.OnChange(ctx, Change{
		Kind:     KindMoved,
		Position: position,
		Slot:     slot,
		Value:    moved,
		Outcome:  Applied,
		Epoch:    next.Epoch,
		Complete: next.Complete(),
	}, next.Clone())
	return &next
}

// origin builds the post-Initialize state for the given epoch.
func (e *Engine) origin(epoch uint64) State {
	pool := make([]Value, len(e.initial))
	copy(pool, e.initial)
	return State{
		Epoch:      epoch,
		Pool:       pool,
		Assignment: blankAssignment(e.slots),
	}
}
