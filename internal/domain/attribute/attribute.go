// Package attribute defines the fixed catalogue of character attribute slots.
package attribute

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSlot is returned when a slot identifier is not part of the catalogue.
var ErrUnknownSlot = errors.New("unknown attribute slot")

// Slot identifies one attribute a score value can be assigned to.
type Slot string

// The attribute slots, in display order.
const (
	STR Slot = "STR"
	COR Slot = "COR"
	STA Slot = "STA"
	PER Slot = "PER"
	INT Slot = "INT"
	PRS Slot = "PRS"
	LUC Slot = "LUC"
)

// Count is the number of attribute slots.
const Count = 7

var ordered = [Count]Slot{STR, COR, STA, PER, INT, PRS, LUC}

var names = map[Slot]string{
	STR: "Strength",
	COR: "Coordination",
	STA: "Stamina",
	PER: "Perception",
	INT: "Intellect",
	PRS: "Presence",
	LUC: "Luck",
}

// All returns the slots in display order. The returned slice is a fresh copy.
func All() []Slot {
	out := make([]Slot, Count)
	copy(out, ordered[:])
	return out
}

// Parse resolves a slot identifier, ignoring case and surrounding whitespace.
func Parse(s string) (Slot, error) {
	slot := Slot(strings.ToUpper(strings.TrimSpace(s)))
	if !slot.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSlot, s)
	}
	return slot, nil
}

// Valid reports whether s belongs to the catalogue.
func (s Slot) Valid() bool {
	_, ok := names[s]
	return ok
}

// Name returns the display name, e.g. "Strength".
func (s Slot) Name() string {
	return names[s]
}

// Index returns the display position of s, or -1 if s is unknown.
func (s Slot) Index() int {
	for i, slot := range ordered {
		if slot == s {
			return i
		}
	}
	return -1
}

func (s Slot) String() string { return string(s) }
