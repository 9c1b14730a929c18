package stagebuilder

import "sync/atomic"

// SlotIdGenerator hands out monotonically increasing slot ids, unique
// within a single build. It is owned exclusively by one Builder instance
// and is not safe for concurrent use across builds.
type SlotIdGenerator struct {
	next uint64
}

// NewSlotIdGenerator returns a generator whose first id is 1 (0 is reserved
// to mean "no slot").
func NewSlotIdGenerator() *SlotIdGenerator {
	return &SlotIdGenerator{next: 0}
}

// Generate returns the next unused SlotId.
func (g *SlotIdGenerator) Generate() SlotId {
	return SlotId(atomic.AddUint64(&g.next, 1))
}

// FrameId identifies a local expression-evaluation scope. Frames are
// allocated by the (out-of-scope) expression sub-builders; the generator
// lives here because it is shared build-wide state, same as the slot and
// spool generators.
type FrameId uint64

// FrameIdGenerator hands out monotonically increasing frame ids.
type FrameIdGenerator struct {
	next uint64
}

// NewFrameIdGenerator returns a new generator starting at 1.
func NewFrameIdGenerator() *FrameIdGenerator { return &FrameIdGenerator{} }

// Generate returns the next unused FrameId.
func (g *FrameIdGenerator) Generate() FrameId {
	return FrameId(atomic.AddUint64(&g.next, 1))
}

// SpoolId identifies a spill-to-disk spool used by blocking operators (sort,
// hash join) that may need to materialize intermediate state.
type SpoolId uint64

// SpoolIdGenerator hands out monotonically increasing spool ids.
type SpoolIdGenerator struct {
	next uint64
}

// NewSpoolIdGenerator returns a new generator starting at 1.
func NewSpoolIdGenerator() *SpoolIdGenerator { return &SpoolIdGenerator{} }

// Generate returns the next unused SpoolId.
func (g *SpoolIdGenerator) Generate() SpoolId {
	return SpoolId(atomic.AddUint64(&g.next, 1))
}
