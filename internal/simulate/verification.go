package simulate

import (
	"fmt"
	"maps"
	"slices"

	"github.com/okian/statline/internal/domain/attribute"
	"github.com/okian/statline/internal/domain/engine"
)

// checkConservation verifies that the values in the pool and the slots
// together are exactly the values the session started with.
func checkConservation(origin []int, st engine.State) error {
	var seen []int
	for _, v := range st.Pool {
		if n, ok := v.Get(); ok {
			seen = append(seen, n)
		}
	}
	for _, v := range st.Assignment {
		if n, ok := v.Get(); ok {
			seen = append(seen, n)
		}
	}
	want := slices.Clone(origin)
	slices.Sort(want)
	slices.Sort(seen)
	if !slices.Equal(want, seen) {
		return fmt.Errorf("values not conserved: started with %v, now hold %v", want, seen)
	}
	return nil
}

// sameState compares pool and assignment, ignoring the epoch.
func sameState(a, b engine.State) bool {
	return slices.Equal(a.Pool, b.Pool) && maps.Equal(a.Assignment, b.Assignment)
}

// checkMove verifies a move's effect given the state before it. A rejected
// move must change nothing; an applied one moves exactly one value.
func checkMove(before, after engine.State, pos int, slot attribute.Slot, applied bool) error {
	if after.Epoch != before.Epoch {
		return fmt.Errorf("move changed epoch from %d to %d", before.Epoch, after.Epoch)
	}
	if !applied {
		if !sameState(before, after) {
			return fmt.Errorf("rejected move %d->%s changed the state", pos, slot)
		}
		return nil
	}

	if pos < 0 || pos >= len(before.Pool) {
		return fmt.Errorf("move %d->%s applied outside the pool", pos, slot)
	}
	moved := before.Pool[pos]
	if moved.IsEmpty() {
		return fmt.Errorf("move %d->%s applied from an empty position", pos, slot)
	}
	if !before.Assignment[slot].IsEmpty() {
		return fmt.Errorf("move %d->%s applied into a filled slot", pos, slot)
	}

	want := before.Clone()
	want.Pool[pos] = engine.Empty
	want.Assignment[slot] = moved
	if !sameState(want, after) {
		return fmt.Errorf("move %d->%s: expected pool %v, got %v", pos, slot, want.Pool, after.Pool)
	}
	return nil
}

// checkReset verifies that a reset restored the state the session started in.
func checkReset(origin, after engine.State) error {
	if !sameState(origin, after) {
		return fmt.Errorf("reset did not restore origin: pool %v, assigned %d", after.Pool, after.Assigned())
	}
	if after.Epoch != origin.Epoch+1 {
		return fmt.Errorf("reset epoch %d, expected %d", after.Epoch, origin.Epoch+1)
	}
	return nil
}
