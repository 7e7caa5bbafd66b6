package engine

import (
	"github.com/okian/statline/internal/domain/attribute"
)

// State is one published (pool, assignment) pair. A published State is never
// mutated; every transition builds a new one.
type State struct {
	// Epoch counts Initialize and Reset calls. Zero means uninitialized.
	Epoch uint64 `json:"epoch"`
	// Pool holds the values still available for dragging, by position.
	Pool []Value `json:"pool"`
	// Assignment has exactly one entry per slot.
	Assignment map[attribute.Slot]Value `json:"assignment"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{
		Epoch:      s.Epoch,
		Pool:       make([]Value, len(s.Pool)),
		Assignment: make(map[attribute.Slot]Value, len(s.Assignment)),
	}
	copy(out.Pool, s.Pool)
	for k, v := range s.Assignment {
		out.Assignment[k] = v
	}
	return out
}

// Assigned returns the number of filled slots.
func (s State) Assigned() int {
	n := 0
	for _, v := range s.Assignment {
		if !v.IsEmpty() {
			n++
		}
	}
	return n
}

// Remaining returns the number of non-empty pool positions.
func (s State) Remaining() int {
	n := 0
	for _, v := range s.Pool {
		if !v.IsEmpty() {
			n++
		}
	}
	return n
}

// Complete reports whether every slot holds a value.
func (s State) Complete() bool {
	return len(s.Assignment) > 0 && s.Assigned() == len(s.Assignment)
}

func blankAssignment(slots []attribute.Slot) map[attribute.Slot]Value {
	m := make(map[attribute.Slot]Value, len(slots))
	for _, s := range slots {
		m[s] = Empty
	}
	return m
}
