package stagebuilder

import (
	"github.com/viix-io/docplan/internal/physfactory"
)

// translateTextMatch lowers text-match (§4.2 "Text match"). Recurses with
// result required. Materializes an FTS-matcher object from the catalog at
// build time — a contract violation if the referenced index or descriptor
// is absent — embeds a pointer to it as a compile-time constant in an
// ftsMatch(matcher, doc) expression, guarded by an isObject(doc) check that
// fails with CodeFTSNonObject if the subject is not an object. The match
// becomes a filter stage.
func (b *Builder) translateTextMatch(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	childReqs := reqs.Set(SlotResult)
	childRoot, bindings := b.build(n.Child(0), childReqs)
	resultSlot, _ := bindings.Get(SlotResult)

	if b.catalog == nil {
		assertKindf(n.Kind, "text-match: no catalog configured to resolve FTS index %q", n.IndexName)
	}
	descriptor, ok := b.catalog.LookupFTSDescriptor(n.Collection, n.IndexName)
	if !ok {
		assertKindf(n.Kind, "text-match: FTS descriptor for index %q on collection %q not found", n.IndexName, n.Collection)
	}
	if descriptor.Matcher == nil {
		assertKindf(n.Kind, "text-match: FTS descriptor for index %q has no matcher", n.IndexName)
	}

	root := b.factory.ConstructFilter(childRoot, map[string]any{
		"predicate": "isObject(doc) ? ftsMatch(matcher, doc) : fail",
		"matcher":   descriptor.Matcher,
		"doc":       resultSlot,
		"onNonObject": CodeFTSNonObject,
	})

	return root, narrowBindingsTo(bindings, reqs)
}

// translateReturnKey lowers return-key (§4.2 "Return-key"). Demands
// returnKey from the child, then rebinds the child's returnKey slot as the
// parent-visible result.
func (b *Builder) translateReturnKey(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	childReqs := reqs.Clear(SlotResult).Set(SlotReturnKey)
	childRoot, childBindings := b.build(n.Child(0), childReqs)

	returnKeySlot, ok := childBindings.Get(SlotReturnKey)
	if !ok {
		assertKindf(n.Kind, "return-key child did not produce returnKey")
	}

	var bindings SlotBindings
	if reqs.Has(SlotResult) {
		bindings = bindings.Set(SlotResult, returnKeySlot)
	}
	for _, name := range reqs.Names() {
		if name == SlotResult {
			continue
		}
		if id, ok := childBindings.Get(name); ok {
			bindings = bindings.Set(name, id)
		}
	}
	return childRoot, bindings
}

// translateEOF lowers eof (§4.2 "EOF"). Produces a zero-row plan that
// nonetheless binds every slot the parent asked for to a Nothing constant,
// so downstream slot-accessor lookups don't fail.
func (b *Builder) translateEOF(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	var bindings SlotBindings
	nothingSlots := make(map[SlotName]SlotId, len(reqs.Names()))
	for _, name := range reqs.Names() {
		id := b.ids.Generate()
		bindings = bindings.Set(name, id)
		nothingSlots[name] = id
	}
	var indexKeySlots []SlotId
	if bits, ok := reqs.IndexKeyBitset(); ok {
		indexKeySlots = make([]SlotId, bits.Count())
		for i := range indexKeySlots {
			indexKeySlots[i] = b.ids.Generate()
		}
		bindings = bindings.WithIndexKeySlots(indexKeySlots)
	}
	attrs := map[string]any{
		"value":         Nothing,
		"slots":         nothingSlots,
		"indexKeySlots": indexKeySlots,
	}
	root := b.factory.ConstructNothing(attrs)
	return root, bindings
}

// translateShardingFilter lowers sharding-filter (§4.2 "Shard filter",
// §4.6). Picks the covered path when the child is an index scan (or
// index-simulating virtual scan) and result is not strictly required;
// otherwise falls back to the full-row binding path.
func (b *Builder) translateShardingFilter(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	if b.sfFactory == nil {
		assertKindf(n.Kind, "sharding-filter: no shard-filterer factory configured")
	}
	filterer, err := b.sfFactory.NewFilterer(n.Collection)
	if err != nil {
		assertKindf(n.Kind, "sharding-filter: failed to construct filterer for %q: %v", n.Collection, err)
	}

	child := n.Child(0)
	childIsCoverable := child.Kind == KindIxScan || (child.Kind == KindVirtualScan && child.SimulatesIndex)

	if childIsCoverable && !reqs.Has(SlotResult) {
		keyPattern := child.KeyPattern
		return b.buildShardFilterCovered(n, child, reqs, filterer, keyPattern)
	}
	return b.buildShardFilterFallback(n, child, reqs, filterer)
}
