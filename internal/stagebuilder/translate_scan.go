package stagebuilder

import "github.com/viix-io/docplan/internal/physfactory"

// translateCollScan lowers a collection scan (§4.2 "Collection scan").
// Delegates to the (out-of-scope) collection-scan body generator; then, if
// returnKey was requested, projects the empty object into a fresh slot
// named returnKey, since a collection scan carries no index key at all.
func (b *Builder) translateCollScan(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	if reqs.Has(SlotOplogTs) && !n.TracksOplogTs {
		assertKindf(n.Kind, "oplogTs requested but this collection scan does not track it")
	}

	resultSlot := b.ids.Generate()
	recordIdSlot := b.ids.Generate()
	attrs := map[string]any{
		"collection":   n.Collection,
		"resultSlot":   resultSlot,
		"recordIdSlot": recordIdSlot,
	}
	var oplogTsSlot SlotId
	if n.TracksOplogTs {
		oplogTsSlot = b.ids.Generate()
		attrs["oplogTsSlot"] = oplogTsSlot
	}
	if n.RequiresReadLock {
		attrs["lockAcquisitionCallback"] = b.lockAcquisitionCallback(n.Collection)
	}

	root := b.factory.ConstructCollScan(attrs)

	var bindings SlotBindings
	bindings = bindings.Set(SlotResult, resultSlot)
	bindings = bindings.Set(SlotRecordId, recordIdSlot)
	if n.TracksOplogTs {
		bindings = bindings.Set(SlotOplogTs, oplogTsSlot)
	}

	if reqs.Has(SlotReturnKey) {
		returnKeySlot := b.ids.Generate()
		root = b.factory.ConstructProject(root, map[string]any{
			"expr":    "newObj()",
			"outSlot": returnKeySlot,
		})
		bindings = bindings.Set(SlotReturnKey, returnKeySlot)
	}

	return root, bindings
}

// lockAcquisitionCallback is the §5 "scoped resource acquisition" hook:
// injected into scan operators whenever the logical node requests a
// read-availability check. It is invoked at execution time, never during
// build; this method only constructs the opaque description the reference
// factory stores.
func (b *Builder) lockAcquisitionCallback(collection string) map[string]any {
	return map[string]any{
		"kind":       "readAvailabilityCheck",
		"collection": collection,
		"onFailure":  CodeReadUnavailable,
	}
}

// translateVirtualScan lowers an inline-document virtual scan (§4.2
// "Virtual scan"). Loads the node's inline documents into an array
// constant wrapped in a multi-output scan; when simulating an index scan
// and the parent passed an index-key bitset, projects each requested field
// out of the result object via getField.
func (b *Builder) translateVirtualScan(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	resultSlot := b.ids.Generate()
	recordIdSlot := b.ids.Generate()
	root := b.factory.ConstructVirtualScan(map[string]any{
		"inlineDocs":   n.InlineDocs,
		"resultSlot":   resultSlot,
		"recordIdSlot": recordIdSlot,
	})

	var bindings SlotBindings
	bindings = bindings.Set(SlotResult, resultSlot)
	bindings = bindings.Set(SlotRecordId, recordIdSlot)

	if bits, ok := reqs.IndexKeyBitset(); ok && n.SimulatesIndex {
		positions := bits.Positions()
		slots := make([]SlotId, len(positions))
		for i, pos := range positions {
			path := n.KeyPattern[pos].Path
			out := b.ids.Generate()
			root = b.factory.ConstructProject(root, map[string]any{
				"expr":    "getField(result, " + path + ")",
				"inSlot":  resultSlot,
				"outSlot": out,
			})
			slots[i] = out
		}
		bindings = bindings.WithIndexKeySlots(slots)
	}

	return root, bindings
}

// translateIxScan lowers an index scan (§4.2 "Index scan").
func (b *Builder) translateIxScan(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	if reqs.Has(SlotOplogTs) {
		assertKindf(n.Kind, "oplogTs requested from an index scan")
	}

	parentBits, hasParentBits := reqs.IndexKeyBitset()
	neededBits := parentBits
	if reqs.Has(SlotResult) || reqs.Has(SlotReturnKey) {
		for i := range n.KeyPattern {
			neededBits = neededBits.Set(i)
		}
	}

	recordIdSlot := b.ids.Generate()
	keySlots := make([]SlotId, neededBits.Count())
	for i := range keySlots {
		keySlots[i] = b.ids.Generate()
	}
	attrs := map[string]any{
		"collection":   n.Collection,
		"indexName":    n.IndexName,
		"keyPattern":   n.KeyPattern,
		"keyBitset":    neededBits,
		"keySlots":     keySlots,
		"recordIdSlot": recordIdSlot,
	}
	if n.RequiresReadLock {
		attrs["lockAcquisitionCallback"] = b.lockAcquisitionCallback(n.Collection)
	}
	root := b.factory.ConstructIxScan(attrs)

	var bindings SlotBindings
	bindings = bindings.Set(SlotRecordId, recordIdSlot)

	if reqs.Has(SlotReturnKey) {
		fields := make([]RehydrateField, len(n.KeyPattern))
		for i, part := range n.KeyPattern {
			fields[i] = RehydrateField{Name: part.Path, Expr: RehydrateExpr{Slot: keySlots[i]}}
		}
		returnKeySlot := b.ids.Generate()
		root = b.factory.ConstructProject(root, map[string]any{
			"expr":    RehydrateExpr{Fields: fields},
			"outSlot": returnKeySlot,
		})
		bindings = bindings.Set(SlotReturnKey, returnKeySlot)
	}

	if reqs.Has(SlotResult) {
		expr := rehydrate(n.KeyPattern, keySlots, b.debugf)
		resultSlot := b.ids.Generate()
		root = b.factory.ConstructProject(root, map[string]any{
			"expr":    expr,
			"outSlot": resultSlot,
		})
		bindings = bindings.Set(SlotResult, resultSlot)
	}

	if hasParentBits {
		narrowed := narrowIndexKeySlots(keySlots, neededBits, parentBits)
		bindings = bindings.WithIndexKeySlots(narrowed)
	}

	return root, bindings
}

// debugf forwards to the optional obs debug hook, a no-op when unset.
func (b *Builder) debugf(format string, args ...any) {
	if b.obs.OnDebug != nil {
		b.obs.OnDebug(format, args...)
	}
}
