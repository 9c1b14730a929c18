package stagebuilder

import "github.com/viix-io/docplan/internal/physfactory"

// buildSeekLoopJoin is §4.7: outer produces a recordId slot; inner is a
// collection scan seeked to that record id, limited to one row. Grounded on
// the teacher's buildJoin column-offset bookkeeping in relational_builder.go
// (stitching two children's output columns together for a join) — here
// simplified to the loop-join's fixed outer/inner shape.
func (b *Builder) buildSeekLoopJoin(collection string, outer physfactory.PhysNode, outerRecordId SlotId, forward []SlotId) (physfactory.PhysNode, SlotId, SlotId) {
	innerResult := b.ids.Generate()
	innerRecordId := b.ids.Generate()

	inner := b.factory.ConstructCollScan(map[string]any{
		"collection": collection,
		"seek":       outerRecordId,
		"limit":      int64(1),
		"resultSlot": innerResult,
		"recordIdSlot": innerRecordId,
	})

	root := b.factory.ConstructLoopJoin(outer, inner, map[string]any{
		"outerRecordId": outerRecordId,
		"innerSeekKey":  outerRecordId,
		"forwardSlots":  forward,
	})
	return root, innerResult, innerRecordId
}
