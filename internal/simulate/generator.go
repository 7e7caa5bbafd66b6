package simulate

import (
	"math/rand/v2"

	"github.com/okian/statline/internal/adapters/http/api"
	"github.com/okian/statline/internal/domain/attribute"
)

// unknownTarget names no attribute; the engine rejects it as unknown_slot.
var unknownTarget = api.TargetID(attribute.Slot("XYZ"))

// Generator produces random drags for one session.
type Generator struct {
	rng         *rand.Rand
	invalidRate float64
}

// NewGenerator creates a generator; equal seeds yield equal drag sequences.
func NewGenerator(seed uint64, invalidRate float64) *Generator {
	return &Generator{
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		invalidRate: invalidRate,
	}
}

// Next returns a drag and the position and slot it resolves to. Most drags
// name a real position and slot; the configured share aims outside of them.
func (g *Generator) Next() (Drag, int, attribute.Slot) {
	pos := g.rng.IntN(attribute.Count)
	slot := attribute.All()[g.rng.IntN(attribute.Count)]

	if g.rng.Float64() < g.invalidRate {
		if g.rng.IntN(2) == 0 {
			return Drag{Source: api.SourceID(pos), Target: unknownTarget}, pos, attribute.Slot("XYZ")
		}
		pos = attribute.Count + g.rng.IntN(attribute.Count)
	}
	return Drag{Source: api.SourceID(pos), Target: api.TargetID(slot)}, pos, slot
}

// Other picks a slot different from slot.
func (g *Generator) Other(slot attribute.Slot) attribute.Slot {
	idx := slot.Index()
	if idx < 0 {
		return attribute.All()[g.rng.IntN(attribute.Count)]
	}
	return attribute.All()[(idx+1+g.rng.IntN(attribute.Count-1))%attribute.Count]
}

// OtherPosition picks a position different from pos.
func (g *Generator) OtherPosition(pos int) int {
	return (pos + 1 + g.rng.IntN(attribute.Count-1)) % attribute.Count
}
