package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/statline/internal/domain/attribute"
)

// Drag-and-drop element ids as a browser client names them: a value in the
// pool is "draggable<position>" and an attribute cell is "droppable<SLOT>".
// Both prefixes are nine characters long.
const (
	draggablePrefix = "draggable"
	droppablePrefix = "droppable"
)

// SourceID formats the element id of the pool value at position.
func SourceID(position int) string {
	return draggablePrefix + strconv.Itoa(position)
}

// TargetID formats the element id of the attribute cell for slot.
func TargetID(slot attribute.Slot) string {
	return droppablePrefix + string(slot)
}

// ParseSourceID extracts the pool position from a draggable id.
func ParseSourceID(id string) (int, error) {
	rest, ok := strings.CutPrefix(id, draggablePrefix)
	if !ok || rest == "" {
		return 0, fmt.Errorf("%w: source %q is not a draggable id", ErrBadRequest, id)
	}
	pos, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: source %q has no numeric position", ErrBadRequest, id)
	}
	return pos, nil
}

// ParseTargetID extracts the slot from a droppable id. The slot is returned
// as written; whether it names a real attribute is the engine's call.
func ParseTargetID(id string) (attribute.Slot, error) {
	rest, ok := strings.CutPrefix(id, droppablePrefix)
	if !ok || rest == "" {
		return "", fmt.Errorf("%w: target %q is not a droppable id", ErrBadRequest, id)
	}
	return slotOf(rest), nil
}

// slotOf resolves a slot name case-insensitively, falling back to the raw
// text so the engine can reject it as unknown.
func slotOf(s string) attribute.Slot {
	if slot, err := attribute.Parse(s); err == nil {
		return slot
	}
	return attribute.Slot(s)
}
