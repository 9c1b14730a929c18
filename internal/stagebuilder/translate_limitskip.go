package stagebuilder

import "github.com/viix-io/docplan/internal/physfactory"

// translateLimit lowers a limit (§4.2 "Limit"). If the child is a skip,
// fuses (limit, skip) into a single limit-skip operator to avoid two
// passes. Suppresses the limit operator entirely when building the resume
// branch of a tailable union — limits apply only to the anchor branch.
func (b *Builder) translateLimit(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	child := n.Child(0)
	if child != nil && child.Kind == KindSkip {
		return b.buildFusedLimitSkip(n.LimitValue, child.SkipValue, child.Child(0), reqs)
	}

	childRoot, bindings := b.build(child, reqs)
	if reqs.IsTailableResumeBranch() {
		return childRoot, bindings
	}
	root := b.factory.ConstructLimitSkip(childRoot, map[string]any{"limit": n.LimitValue})
	return root, bindings
}

// translateSkip lowers a skip (§4.2 "Skip"). Symmetric fusion-aware
// construction; same tailable-branch suppression as Limit. A bare skip
// (without an enclosing limit) is only reached when the dispatcher visits
// it directly, i.e. it was not already fused by a parent Limit.
func (b *Builder) translateSkip(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	child := n.Child(0)
	childRoot, bindings := b.build(child, reqs)
	if reqs.IsTailableResumeBranch() {
		return childRoot, bindings
	}
	root := b.factory.ConstructLimitSkip(childRoot, map[string]any{"skip": n.SkipValue})
	return root, bindings
}

// buildFusedLimitSkip builds the single limit-skip operator both
// translateLimit and a bare (limit over skip) pairing collapse into.
func (b *Builder) buildFusedLimitSkip(limit, skip int64, grandchild *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	childRoot, bindings := b.build(grandchild, reqs)
	if reqs.IsTailableResumeBranch() {
		return childRoot, bindings
	}
	root := b.factory.ConstructLimitSkip(childRoot, map[string]any{"limit": limit, "skip": skip})
	return root, bindings
}
