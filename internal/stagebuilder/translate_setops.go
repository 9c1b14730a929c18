package stagebuilder

import "github.com/viix-io/docplan/internal/physfactory"

// translateOr lowers Or/TextOr (§4.2 "Or / TextOr"). Builds a union whose
// output slot vector is freshly allocated, with each branch contributing
// its own slot vector in the same order. If Dedup, requires recordId from
// each branch and layers a unique operator on recordId. If the or carries a
// residual filter, requires result from each branch and applies the filter
// afterward.
func (b *Builder) translateOr(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	childReqs := reqs
	if n.Dedup {
		childReqs = childReqs.Set(SlotRecordId)
	}
	if n.ResidualFilter != nil {
		childReqs = childReqs.Set(SlotResult)
	}

	branchRoots := make([]physfactory.PhysNode, len(n.Children))
	branchBindings := make([]SlotBindings, len(n.Children))
	for i, child := range n.Children {
		root, bnd := b.build(child, childReqs)
		branchRoots[i] = root
		branchBindings[i] = bnd
	}

	outBindings, outputSlots := b.freshUnionOutputSlots(childReqs)
	correspondence := make([][]SlotId, len(n.Children))
	for i := range n.Children {
		correspondence[i] = bindingsToVector(branchBindings[i], childReqs)
	}

	root := b.factory.ConstructUnion(branchRoots, map[string]any{
		"outputSlots":          outputSlots,
		"branchCorrespondence": correspondence,
	})

	if n.Dedup {
		recordIdSlot, _ := outBindings.Get(SlotRecordId)
		root = b.factory.ConstructUnique(root, map[string]any{"key": recordIdSlot})
	}

	if n.ResidualFilter != nil {
		resultSlot, _ := outBindings.Get(SlotResult)
		root = b.filterBuilder(b, n.ResidualFilter, root, resultSlot)
	}

	bindings := narrowBindingsTo(outBindings, reqs)
	return root, bindings
}

// narrowBindingsTo drops any names bound beyond what reqs actually asked
// for; translateOr's childReqs is a superset of reqs (it adds recordId/
// result for Dedup/filter bookkeeping), but the returned bindings must
// exactly match the original parent requirements (§4.2 rule iv).
func narrowBindingsTo(bindings SlotBindings, reqs RequirementsSet) SlotBindings {
	var out SlotBindings
	for _, name := range reqs.Names() {
		if id, ok := bindings.Get(name); ok {
			out = out.Set(name, id)
		}
	}
	if _, ok := reqs.IndexKeyBitset(); ok {
		out = out.WithIndexKeySlots(bindings.IndexKeySlots())
	}
	return out
}

// translateAndHash lowers And-hash (§4.2 "And-hash"). Requires every child
// to produce both result and recordId; folds left by stacking hash-joins,
// using recordId as the equi-join key and result as the carried payload,
// inheriting the collator from the runtime environment. Subsequent
// hash-joins reuse the previously emitted inner id/result slots.
func (b *Builder) translateAndHash(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	if len(n.Children) < 2 {
		assertKindf(n.Kind, "and-hash requires at least two children")
	}
	childReqs := reqs.Set(SlotResult).Set(SlotRecordId)

	root, bindings := b.build(n.Children[0], childReqs)
	resultSlot, _ := bindings.Get(SlotResult)
	recordIdSlot, _ := bindings.Get(SlotRecordId)

	collatorId, _, hasCollator := b.env.Lookup(EnvCollator)

	for i := 1; i < len(n.Children); i++ {
		innerRoot, innerBindings := b.build(n.Children[i], childReqs)
		innerResult, _ := innerBindings.Get(SlotResult)
		innerRecordId, _ := innerBindings.Get(SlotRecordId)

		attrs := map[string]any{
			"outerKey": recordIdSlot,
			"innerKey": innerRecordId,
			"payload":  resultSlot,
		}
		if hasCollator {
			attrs["collator"] = collatorId
		}
		root = b.factory.ConstructHashJoin(root, innerRoot, attrs)
		resultSlot = innerResult
		recordIdSlot = innerRecordId
	}

	bindings = narrowBindingsTo(bindings.Set(SlotResult, resultSlot).Set(SlotRecordId, recordIdSlot), reqs)
	return root, bindings
}

// translateAndSorted lowers And-sorted (§4.2 "And-sorted"). Same contract
// as And-hash; folds with merge-joins over recordId in ascending order.
func (b *Builder) translateAndSorted(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	if len(n.Children) < 2 {
		assertKindf(n.Kind, "and-sorted requires at least two children")
	}
	childReqs := reqs.Set(SlotResult).Set(SlotRecordId)

	root, bindings := b.build(n.Children[0], childReqs)
	resultSlot, _ := bindings.Get(SlotResult)
	recordIdSlot, _ := bindings.Get(SlotRecordId)

	for i := 1; i < len(n.Children); i++ {
		innerRoot, innerBindings := b.build(n.Children[i], childReqs)
		innerResult, _ := innerBindings.Get(SlotResult)
		innerRecordId, _ := innerBindings.Get(SlotRecordId)

		root = b.factory.ConstructMergeJoin(root, innerRoot, map[string]any{
			"outerKey":  recordIdSlot,
			"innerKey":  innerRecordId,
			"payload":   resultSlot,
			"direction": Ascending,
		})
		resultSlot = innerResult
		recordIdSlot = innerRecordId
	}

	bindings = narrowBindingsTo(bindings.Set(SlotResult, resultSlot).Set(SlotRecordId, recordIdSlot), reqs)
	return root, bindings
}

// translateSortMerge lowers a sort-merge (§4.2 "Sort-merge"). For each
// child, derives an index-key bitset by matching the child index-scan's key
// pattern against the sort pattern (each child may order its key pattern
// differently); builds a position map so extracted slots are reordered to
// the sort pattern's order; composes a sorted-merge; optionally layers a
// unique on recordId for dedup.
func (b *Builder) translateSortMerge(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	if len(n.Children) != len(n.ChildKeyPatterns) {
		assertKindf(n.Kind, "sort-merge: %d children but %d child key patterns", len(n.Children), len(n.ChildKeyPatterns))
	}
	childReqs := reqs.Set(SlotRecordId)

	branchRoots := make([]physfactory.PhysNode, len(n.Children))
	branchKeySlots := make([][]SlotId, len(n.Children))
	branchBindings := make([]SlotBindings, len(n.Children))

	for i, child := range n.Children {
		keyPattern := n.ChildKeyPatterns[i]
		bits := sortMergeBitset(keyPattern, n.SortPattern)
		cr := childReqs.SetIndexKeyBitset(bits)
		root, bnd := b.build(child, cr)

		positionMap := sortMergePositionMap(keyPattern, bits, n.SortPattern)
		produced := bnd.IndexKeySlots()
		reordered := make([]SlotId, len(n.SortPattern))
		for sortIdx, prodIdx := range positionMap {
			if prodIdx < 0 || prodIdx >= len(produced) {
				assertKindf(n.Kind, "sort-merge: position map lookup miss for child %d", i)
			}
			reordered[sortIdx] = produced[prodIdx]
		}

		branchRoots[i] = root
		branchKeySlots[i] = reordered
		branchBindings[i] = bnd
	}

	directions := make([]SortDirection, len(n.SortPattern))
	for i, p := range n.SortPattern {
		directions[i] = p.Direction
	}

	outBindings, outputSlots := b.freshUnionOutputSlots(childReqs)
	correspondence := make([][]SlotId, len(n.Children))
	for i := range n.Children {
		correspondence[i] = bindingsToVector(branchBindings[i], childReqs)
	}

	root := b.factory.ConstructSortedMerge(branchRoots, map[string]any{
		"mergeKeySlots":        branchKeySlots,
		"directions":           directions,
		"outputSlots":          outputSlots,
		"branchCorrespondence": correspondence,
	})

	if n.Dedup {
		recordIdSlot, _ := outBindings.Get(SlotRecordId)
		root = b.factory.ConstructUnique(root, map[string]any{"key": recordIdSlot})
	}

	bindings := narrowBindingsTo(outBindings, reqs)
	return root, bindings
}

// sortMergeBitset computes, for one child's index key pattern, the bitset
// of positions whose dotted path appears somewhere in the overall sort
// pattern — those are the components this child must surface as scalar
// slots so sort-merge can reorder them into sort-pattern order.
func sortMergeBitset(keyPattern []IndexKeyPart, sortPattern []SortPart) IndexKeyBitset {
	var bits IndexKeyBitset
	for i, kp := range keyPattern {
		for _, sp := range sortPattern {
			if kp.Path == sp.Path {
				bits = bits.Set(i)
				break
			}
		}
	}
	return bits
}

// sortMergePositionMap returns, for each sort-pattern index, the position
// within the child's *produced* (bitset-filtered) slot vector that holds
// that sort part's value. A miss is a contract violation (§7 "sort-key
// position lookup miss").
func sortMergePositionMap(keyPattern []IndexKeyPart, bits IndexKeyBitset, sortPattern []SortPart) []int {
	producedPositions := bits.Positions()
	keyPatternIndexToProducedIndex := make(map[int]int, len(producedPositions))
	for prodIdx, kpIdx := range producedPositions {
		keyPatternIndexToProducedIndex[kpIdx] = prodIdx
	}

	out := make([]int, len(sortPattern))
	for sortIdx, sp := range sortPattern {
		out[sortIdx] = -1
		for kpIdx, kp := range keyPattern {
			if kp.Path == sp.Path {
				if prodIdx, ok := keyPatternIndexToProducedIndex[kpIdx]; ok {
					out[sortIdx] = prodIdx
				}
				break
			}
		}
	}
	return out
}
