package stagebuilder

import (
	"strings"

	"golang.org/x/text/collate"
)

// sortKeyRegime is the choice §4.4 and invariant 5 (§8) describe.
type sortKeyRegime int

const (
	regimeFast sortKeyRegime = iota
	regimeSlow
)

// chooseSortKeyRegime implements invariant 5: fast iff the multiset of
// top-level field names of the sort parts has no duplicates.
func chooseSortKeyRegime(parts []SortPart) sortKeyRegime {
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		top := topLevelField(p.Path)
		if seen[top] {
			return regimeSlow
		}
		seen[top] = true
	}
	return regimeFast
}

func topLevelField(path string) string {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return path
}

// SortKeyTraversalOp is one level of the fast-regime traversal chain for a
// single sort part: descend one path component and fold leaf values with a
// three-way compare (min for Ascending, max for Descending).
type SortKeyTraversalOp struct {
	Component string
	Direction SortDirection
	// IsLeaf marks the final component of the path, where the empty-array
	// leaf policy (undefined, not null) applies.
	IsLeaf bool
}

// SortKeyPlanPart is the fast-regime subplan for one sort-pattern part.
type SortKeyPlanPart struct {
	Path          string
	Direction     SortDirection
	TopLevelSlot  SlotId // getField(result, top level), missing -> null
	Traversal     []SortKeyTraversalOp
	ResultSlot    SlotId // final folded sort-key slot for this part
	UsesCollation bool
}

// SortKeyPlan is the complete §4.4 output: either a fast-regime vector of
// per-part plans, or a slow-regime single opaque call.
type SortKeyPlan struct {
	Regime sortKeyRegime

	// Fast regime.
	Parts []SortKeyPlanPart

	// Slow regime.
	SlowCallSlot SlotId

	// Parallel-arrays guard, set by the fast regime whenever len(parts) >= 2.
	// The slow regime leaves it nil: its single generateSortKey slot already
	// covers MQL array semantics.
	Guard *ParallelArraysGuard
}

// ParallelArraysGuard is the runtime check described in §4.4: fail with
// BadValue if more than one sort-key path evaluates to an array for a given
// document. Two shapes, matched to invariant coverage in §8 scenario 4.
type ParallelArraysGuard struct {
	// KeySlots are the per-part slots (or traversal intermediate slots)
	// whose array-ness is checked.
	KeySlots []SlotId
	// TwoPartExpr is set when len(KeySlots) == 2: the short-circuiting
	// disjunction (¬isArray(k0) ∨ ¬isArray(k1) ∨ fail).
	TwoPartExpr bool
	// SummedExpr is set when len(KeySlots) >= 3: sum the boolean
	// array-ness values and fail unless the sum is <= 1.
	SummedExpr bool
}

func newParallelArraysGuard(slots []SlotId) *ParallelArraysGuard {
	if len(slots) < 2 {
		return nil
	}
	g := &ParallelArraysGuard{KeySlots: slots}
	if len(slots) == 2 {
		g.TwoPartExpr = true
	} else {
		g.SummedExpr = true
	}
	return g
}

// buildSortKeyFast builds the fast-regime plan for a sort pattern with no
// shared top-level prefixes. resultSlot is the child's "result" binding
// every getField call reads from. hasCollator reports whether the runtime
// environment installed a collator, per the spec's "when a collator slot
// exists" clause.
func (b *Builder) buildSortKeyFast(parts []SortPart, resultSlot SlotId, hasCollator bool) SortKeyPlan {
	plan := SortKeyPlan{Regime: regimeFast, Parts: make([]SortKeyPlanPart, 0, len(parts))}
	keySlots := make([]SlotId, 0, len(parts))
	for _, part := range parts {
		components := strings.Split(part.Path, ".")
		p := SortKeyPlanPart{
			Path:          part.Path,
			Direction:     part.Direction,
			TopLevelSlot:  b.ids.Generate(),
			UsesCollation: hasCollator,
		}
		for i, comp := range components[1:] {
			p.Traversal = append(p.Traversal, SortKeyTraversalOp{
				Component: comp,
				Direction: part.Direction,
				IsLeaf:    i == len(components)-2,
			})
		}
		p.ResultSlot = b.ids.Generate()
		plan.Parts = append(plan.Parts, p)
		keySlots = append(keySlots, p.ResultSlot)
	}
	plan.Guard = newParallelArraysGuard(keySlots)
	return plan
}

// buildSortKeySlow builds the slow-regime plan: one generateSortKey(...)
// call producing a single opaque sort-key slot. The guard, per §4.4, is
// still emitted against that same single opaque value and any sibling part
// values would need when len(parts) >= 2 the caller tracks separately; in
// the slow regime there is exactly one emitted key slot so the guard only
// ever degenerates to len < 2 (no guard) since generateSortKey already
// encapsulates MQL array tie-break semantics internally.
func (b *Builder) buildSortKeySlow(parts []SortPart) SortKeyPlan {
	return SortKeyPlan{Regime: regimeSlow, SlowCallSlot: b.ids.Generate()}
}

// buildSortKeyPlan is the §4.4 entry point: choose a regime, build it, and
// return the plan the Sort translator wraps a child in.
func (b *Builder) buildSortKeyPlan(parts []SortPart, resultSlot SlotId) SortKeyPlan {
	hasCollator := b.env.Has(EnvCollator)
	switch chooseSortKeyRegime(parts) {
	case regimeFast:
		return b.buildSortKeyFast(parts, resultSlot, hasCollator)
	default:
		return b.buildSortKeySlow(parts)
	}
}

// collComparisonKey is the collation hook §4.4 names: when a collator is
// installed, each leaf value is mapped through it before the three-way
// compare. Grounded on golang.org/x/text/collate, the teacher's own
// collation dependency.
func collComparisonKey(c *collate.Collator, s string) []byte {
	if c == nil {
		return []byte(s)
	}
	return c.Key(&collate.Buffer{}, []byte(s))
}
