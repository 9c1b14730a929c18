package stagebuilder

import "github.com/viix-io/docplan/internal/physfactory"

// buildTailableUnion is the §4.5 rewrite: wrap subtree in an anchor-branch +
// resume-branch union governed by the named resumeRecordId runtime slot.
// Grounded on the teacher's cascades.go "build now, rebuild identically
// later with a different flag" pattern (setupCascade defers a rebuild of
// the same memo expression under a different evaluation context); here both
// branches are built eagerly since there is no deferred execution step, but
// the idea — one static subtree materialized twice under different
// requirements — carries over directly.
func (b *Builder) buildTailableUnion(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	if reqs.IsBuildingTailableUnion() {
		assertf("buildTailableUnion: re-entered while already building a tailable union")
	}

	resumeSlot := b.ensureResumeRecordIdInstalled()

	anchorReqs := reqs.WithBuildingTailableUnion(true).WithTailableResumeBranch(false)
	resumeReqs := reqs.WithBuildingTailableUnion(true).WithTailableResumeBranch(true)

	anchorRoot, anchorBindings := b.build(n, anchorReqs)
	resumeRoot, resumeBindings := b.build(n, resumeReqs)

	anchorRoot = b.factory.ConstructFilter(anchorRoot, map[string]any{
		"predicate": "!exists(resumeRecordId)",
		"resumeRecordId": resumeSlot,
	})
	resumeRoot = b.factory.ConstructFilter(resumeRoot, map[string]any{
		"predicate": "exists(resumeRecordId)",
		"resumeRecordId": resumeSlot,
	})
	resumeRoot = b.factory.ConstructLimitSkip(resumeRoot, map[string]any{"limit": int64(1)})

	outBindings, outputSlots := b.freshUnionOutputSlots(reqs)
	root := b.factory.ConstructUnion([]physfactory.PhysNode{anchorRoot, resumeRoot}, map[string]any{
		"outputSlots": outputSlots,
		"branchCorrespondence": [][]SlotId{
			bindingsToVector(anchorBindings, reqs),
			bindingsToVector(resumeBindings, reqs),
		},
	})
	return root, outBindings
}

// ensureResumeRecordIdInstalled installs the resumeRecordId runtime slot
// (initial value Nothing) the first time a tailable union is built; the
// dispatcher only diverts into this builder once per build (invariant 6,
// §8), so in practice this always installs rather than reuses, but the
// guard keeps the function safe to call defensively.
func (b *Builder) ensureResumeRecordIdInstalled() SlotId {
	if id, _, ok := b.env.Lookup(EnvResumeRecordId); ok {
		return id
	}
	return b.env.Install(EnvResumeRecordId, Nothing)
}

// freshUnionOutputSlots allocates one fresh slot per requested name (plus
// index-key vector if requested) for the union's own output, declared once
// and used as the branch slot correspondence for both branches per §4.5.
func (b *Builder) freshUnionOutputSlots(reqs RequirementsSet) (SlotBindings, []SlotId) {
	var bindings SlotBindings
	var out []SlotId
	for _, name := range reqs.Names() {
		id := b.ids.Generate()
		bindings = bindings.Set(name, id)
		out = append(out, id)
	}
	if bits, ok := reqs.IndexKeyBitset(); ok {
		slots := make([]SlotId, bits.Count())
		for i := range slots {
			slots[i] = b.ids.Generate()
		}
		bindings = bindings.WithIndexKeySlots(slots)
		out = append(out, slots...)
	}
	return bindings, out
}

// bindingsToVector reads off bindings in the same deterministic order
// freshUnionOutputSlots used, so each branch's output vector lines up
// positionally with the union's declared output slots.
func bindingsToVector(bindings SlotBindings, reqs RequirementsSet) []SlotId {
	var out []SlotId
	for _, name := range reqs.Names() {
		id, ok := bindings.Get(name)
		if !ok {
			assertf("tailable union branch missing requested slot %s", name)
		}
		out = append(out, id)
	}
	if _, ok := reqs.IndexKeyBitset(); ok {
		out = append(out, bindings.IndexKeySlots()...)
	}
	return out
}
