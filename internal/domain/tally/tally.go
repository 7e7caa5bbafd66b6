// Package tally aggregates the engine change feed into service-wide counters:
// how many moves, rejections, resets and completed epochs there were, and which
// values players put into which attribute.
package tally

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/okian/statline/internal/domain/attribute"
	"github.com/okian/statline/internal/domain/engine"
	"github.com/okian/statline/internal/domain/model"
	"github.com/puzpuzpuz/xsync/v4"
)

// Recorder consumes change events.
type Recorder interface {
	Record(ctx context.Context, e model.Event) error
}

type slotTotals struct {
	count atomic.Int64
	sum   atomic.Int64
}

// Tally is a Recorder safe for use by many workers at once.
type Tally struct {
	initializations *xsync.Counter
	moves           *xsync.Counter
	resets          *xsync.Counter
	completions     *xsync.Counter

	rejections *xsync.Map[engine.Outcome, *xsync.Counter]
	slots      *xsync.Map[attribute.Slot, *slotTotals]
}

// New creates an empty tally.
func New() *Tally {
	return &Tally{
		initializations: xsync.NewCounter(),
		moves:           xsync.NewCounter(),
		resets:          xsync.NewCounter(),
		completions:     xsync.NewCounter(),
		rejections:      xsync.NewMap[engine.Outcome, *xsync.Counter](),
		slots:           xsync.NewMap[attribute.Slot, *slotTotals](),
	}
}

// Record folds one event into the counters.
func (t *Tally) Record(_ context.Context, e model.Event) error {
	c := e.Change
	switch c.Kind {
	case engine.KindInitialized:
		t.initializations.Inc()
	case engine.KindReset:
		t.resets.Inc()
	case engine.KindMoved:
		if !c.Outcome.Applied() {
			counter, _ := t.rejections.LoadOrStore(c.Outcome, xsync.NewCounter())
			counter.Inc()
			return nil
		}
		n, ok := c.Value.Get()
		if !ok {
			return fmt.Errorf("applied move into %s carries no value", c.Slot)
		}
		t.moves.Inc()
		totals, _ := t.slots.LoadOrStore(c.Slot, &slotTotals{})
		totals.count.Add(1)
		totals.sum.Add(int64(n))
		if c.Complete {
			t.completions.Inc()
		}
	default:
		return fmt.Errorf("unknown change kind %q", c.Kind)
	}
	return nil
}

// SlotSummary describes the values placed into one attribute.
type SlotSummary struct {
	Assignments int64   `json:"assignments"`
	Mean        float64 `json:"mean"`
}

// Summary is a point-in-time copy of the counters.
type Summary struct {
	Initializations int64                          `json:"initializations"`
	Moves           int64                          `json:"moves"`
	Resets          int64                          `json:"resets"`
	Completions     int64                          `json:"completions"`
	Rejections      map[string]int64               `json:"rejections"`
	Slots           map[attribute.Slot]SlotSummary `json:"slots"`
}

// Summary returns the current counters.
func (t *Tally) Summary() Summary {
	s := Summary{
		Initializations: t.initializations.Value(),
		Moves:           t.moves.Value(),
		Resets:          t.resets.Value(),
		Completions:     t.completions.Value(),
		Rejections:      make(map[string]int64),
		Slots:           make(map[attribute.Slot]SlotSummary),
	}
	t.rejections.Range(func(o engine.Outcome, c *xsync.Counter) bool {
		s.Rejections[o.String()] = c.Value()
		return true
	})
	t.slots.Range(func(slot attribute.Slot, totals *slotTotals) bool {
		count := totals.count.Load()
		sum := totals.sum.Load()
		summary := SlotSummary{Assignments: count}
		if count > 0 {
			summary.Mean = float64(sum) / float64(count)
		}
		s.Slots[slot] = summary
		return true
	})
	return s
}
