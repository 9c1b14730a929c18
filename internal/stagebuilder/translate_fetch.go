package stagebuilder

import "github.com/viix-io/docplan/internal/physfactory"

// translateFetch lowers a fetch (§4.2 "Fetch", §4.7). Requires a recordId
// from the child; constructs the nested-loop join described in §4.7;
// forwards all other slots the parent wanted; applies the residual filter,
// if any, on top via the out-of-scope filter expression sub-builder.
func (b *Builder) translateFetch(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	childReqs := reqs.Set(SlotRecordId).Clear(SlotResult)
	// The fetch always needs result from the inner seek, but that result is
	// produced by the loop-join's inner side, not by the child; the child
	// only needs to produce recordId plus whatever else the parent wants
	// forwarded through the join untouched.
	child := n.Child(0)
	childRoot, childBindings := b.build(child, childReqs)

	outerRecordId, ok := childBindings.Get(SlotRecordId)
	if !ok {
		assertKindf(n.Kind, "fetch child did not produce recordId")
	}

	forward := make([]SlotId, 0, len(reqs.Names()))
	for _, name := range reqs.Names() {
		if name == SlotResult || name == SlotRecordId {
			continue
		}
		if id, ok := childBindings.Get(name); ok {
			forward = append(forward, id)
		}
	}

	root, innerResult, innerRecordId := b.buildSeekLoopJoin(n.Collection, childRoot, outerRecordId, forward)

	var bindings SlotBindings
	bindings = bindings.Set(SlotResult, innerResult)
	bindings = bindings.Set(SlotRecordId, innerRecordId)
	for _, name := range reqs.Names() {
		if name == SlotResult || name == SlotRecordId {
			continue
		}
		if id, ok := childBindings.Get(name); ok {
			bindings = bindings.Set(name, id)
		}
	}

	if n.ResidualFilter != nil {
		root = b.filterBuilder(b, n.ResidualFilter, root, innerResult)
	}

	return root, bindings
}
