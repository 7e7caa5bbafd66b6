package engine

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Value is a score value or the empty marker. The zero Value is Empty.
type Value struct {
	n  int
	ok bool
}

// Empty marks a consumed pool position or an unassigned slot.
var Empty = Value{}

// Some wraps a score.
func Some(n int) Value { return Value{n: n, ok: true} }

// Get returns the score and whether one is present.
func (v Value) Get() (int, bool) { return v.n, v.ok }

// IsEmpty reports whether v holds no score.
func (v Value) IsEmpty() bool { return !v.ok }

func (v Value) String() string {
	if !v.ok {
		return "-"
	}
	return strconv.Itoa(v.n)
}

// MarshalJSON encodes a score as a number and Empty as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(v.n)), nil
}

// UnmarshalJSON accepts a number or null.
func (v *Value) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*v = Empty
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = Some(n)
	return nil
}

// Values wraps a list of scores.
func Values(scores []int) []Value {
	out := make([]Value, len(scores))
	for i, n := range scores {
		out[i] = Some(n)
	}
	return out
}
