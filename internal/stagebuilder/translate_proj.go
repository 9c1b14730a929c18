package stagebuilder

import "github.com/viix-io/docplan/internal/physfactory"

// translateProjectionSimple lowers proj-simple (§4.2 "Projection-simple").
// Wraps the child result in a make-object that keeps only the named
// fields.
func (b *Builder) translateProjectionSimple(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	childReqs := reqs.Set(SlotResult)
	childRoot, bindings := b.build(n.Child(0), childReqs)
	resultSlot, _ := bindings.Get(SlotResult)

	outSlot := b.ids.Generate()
	root := b.factory.ConstructMakeObject(childRoot, map[string]any{
		"keepFields": n.Projection.Fields,
		"inSlot":     resultSlot,
		"outSlot":    outSlot,
	})
	bindings = bindings.Set(SlotResult, outSlot)
	return root, narrowBindingsTo(bindings, reqs)
}

// translateProjectionCovered lowers proj-covered (§4.2
// "Projection-covered"). Requires no result from the child; instead
// computes an index-key bitset matching the projection's required fields
// against the index-scan's key pattern, and builds the object directly
// from the returned scalar slots.
func (b *Builder) translateProjectionCovered(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	bits := fieldsToKeyPatternBitset(n.Projection.Fields, n.KeyPattern)
	childReqs := reqs.Clear(SlotResult).SetIndexKeyBitset(bits)
	childRoot, bindings := b.build(n.Child(0), childReqs)

	slots := bindings.IndexKeySlots()
	fields := make([]RehydrateField, 0, len(n.Projection.Fields))
	positions := bits.Positions()
	for i, pos := range positions {
		if i >= len(slots) {
			assertKindf(n.Kind, "projection-covered: fewer produced key slots than bitset positions")
		}
		fields = append(fields, RehydrateField{Name: n.KeyPattern[pos].Path, Expr: RehydrateExpr{Slot: slots[i]}})
	}

	outSlot := b.ids.Generate()
	root := b.factory.ConstructMakeObject(childRoot, map[string]any{
		"expr":    RehydrateExpr{Fields: fields},
		"outSlot": outSlot,
	})

	bindings = bindings.Set(SlotResult, outSlot)
	return root, narrowBindingsTo(bindings, reqs)
}

// fieldsToKeyPatternBitset matches a projection's required field names
// against an index key pattern's dotted paths, used by
// translateProjectionCovered to determine which scalar components the
// child index scan must surface.
func fieldsToKeyPatternBitset(fields []string, keyPattern []IndexKeyPart) IndexKeyBitset {
	var bits IndexKeyBitset
	for _, field := range fields {
		for i, kp := range keyPattern {
			if kp.Path == field {
				bits = bits.Set(i)
				break
			}
		}
	}
	return bits
}

// translateProjectionDefault lowers proj-default (§4.2
// "Projection-default"). Delegates to the out-of-scope projection
// expression sub-builder with result required.
func (b *Builder) translateProjectionDefault(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	childReqs := reqs.Set(SlotResult)
	childRoot, bindings := b.build(n.Child(0), childReqs)
	resultSlot, _ := bindings.Get(SlotResult)

	root, outSlot := b.projectionBuilder(b, n.Projection, childRoot, resultSlot)
	bindings = bindings.Set(SlotResult, outSlot)
	return root, narrowBindingsTo(bindings, reqs)
}
