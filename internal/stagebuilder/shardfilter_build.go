package stagebuilder

import (
	"github.com/viix-io/docplan/internal/physfactory"
	"github.com/viix-io/docplan/internal/shardfilter"
)

// shardKeyBitset computes, over an index scan's key pattern, the bitset of
// positions covering the shard key's own pattern (by matching dotted
// paths), used by the covered builder. Sort-merge solves the analogous
// problem with its own sortMergeBitset.
func shardKeyBitset(keyPattern []IndexKeyPart, shardKeyPattern []IndexKeyPart) IndexKeyBitset {
	var bits IndexKeyBitset
	for _, shardPart := range shardKeyPattern {
		for i, kp := range keyPattern {
			if kp.Path == shardPart.Path {
				bits = bits.Set(i)
				break
			}
		}
	}
	return bits
}

// buildShardFilterCovered is the covered path of §4.6: the child is an
// index scan (or index-simulating virtual scan) and result is not strictly
// required, so the builder requests only the union of the parent's bitset
// and the shard-key bitset, builds a shard-key object from just those
// slots, and filters via shardFilter(filterer, shardKey).
func (b *Builder) buildShardFilterCovered(
	n *LogicalNode,
	child *LogicalNode,
	reqs RequirementsSet,
	filterer shardfilter.ShardFilterer,
	childKeyPattern []IndexKeyPart,
) (physfactory.PhysNode, SlotBindings) {
	parentBits, _ := reqs.IndexKeyBitset()
	shardBits := shardKeyBitset(childKeyPattern, n.ShardKeyPattern)
	unionBits := parentBits.Union(shardBits)

	childReqs := reqs.Clear(SlotResult).SetIndexKeyBitset(unionBits)
	childRoot, childBindings := b.build(child, childReqs)

	fullSlots := childBindings.IndexKeySlots()
	shardKeyFields := make([]shardKeyComponent, 0, len(n.ShardKeyPattern))
	for _, part := range n.ShardKeyPattern {
		for i, kp := range childKeyPattern {
			if kp.Path == part.Path && unionBits.Has(i) {
				pos := indexOfSetBit(unionBits, i)
				shardKeyFields = append(shardKeyFields, shardKeyComponent{path: part.Path, slot: fullSlots[pos]})
				break
			}
		}
	}

	shardKeySlot := b.ids.Generate()
	makeObjAttrs := map[string]any{"fields": shardKeyFields, "outSlot": shardKeySlot}
	root := b.factory.ConstructMakeObject(childRoot, makeObjAttrs)
	root = b.factory.ConstructFilter(root, map[string]any{
		"predicate": "shardFilter(filterer, shardKey)",
		"filterer":  filterer,
		"shardKey":  shardKeySlot,
	})

	narrowed := narrowIndexKeySlots(fullSlots, unionBits, parentBits)
	bindings := SlotBindings{}
	for _, name := range reqs.Names() {
		if name == SlotResult {
			continue
		}
		id, ok := childBindings.Get(name)
		if !ok {
			assertf("shard filter covered path: parent requested %s but child did not produce it", name)
		}
		bindings = bindings.Set(name, id)
	}
	if _, ok := reqs.IndexKeyBitset(); ok {
		bindings = bindings.WithIndexKeySlots(narrowed)
	}
	return root, bindings
}

type shardKeyComponent struct {
	path string
	slot SlotId
}

func indexOfSetBit(bits IndexKeyBitset, target int) int {
	idx := 0
	for _, p := range bits.Positions() {
		if p == target {
			return idx
		}
		idx++
	}
	return -1
}

// buildShardFilterFallback is §4.6's fallback: non-IXSCAN child, or result
// strictly required. result is required from the child; for each shard-key
// component a getField + array-traversal binding is generated (hashed
// components run through the hash function); an all-components-exist check
// collapses the shard key to Nothing if any component could not be
// resolved, so the filterer rejects the row.
func (b *Builder) buildShardFilterFallback(
	n *LogicalNode,
	child *LogicalNode,
	reqs RequirementsSet,
	filterer shardfilter.ShardFilterer,
) (physfactory.PhysNode, SlotBindings) {
	childReqs := reqs.Set(SlotResult)
	childRoot, childBindings := b.build(child, childReqs)
	resultSlot, _ := childBindings.Get(SlotResult)

	bindingSlots := make([]SlotId, len(n.ShardKeyPattern))
	for i, part := range n.ShardKeyPattern {
		fieldSlot := b.ids.Generate()
		attrs := map[string]any{"from": resultSlot, "path": part.Path, "outSlot": fieldSlot}
		childRoot = b.factory.ConstructTraverse(childRoot, attrs)
		if part.Hashed {
			hashedSlot := b.ids.Generate()
			childRoot = b.factory.ConstructProject(childRoot, map[string]any{
				"expr": "hash(" + part.Path + ")", "inSlot": fieldSlot, "outSlot": hashedSlot,
			})
			fieldSlot = hashedSlot
		}
		bindingSlots[i] = fieldSlot
	}

	shardKeySlot := b.ids.Generate()
	fields := make([]shardKeyComponent, len(n.ShardKeyPattern))
	for i, part := range n.ShardKeyPattern {
		fields[i] = shardKeyComponent{path: part.Path, slot: bindingSlots[i]}
	}
	root := b.factory.ConstructMakeObject(childRoot, map[string]any{
		"fields":           fields,
		"outSlot":          shardKeySlot,
		"allComponentsExistCheck": true,
		"onMissing":        "Nothing",
	})
	root = b.factory.ConstructFilter(root, map[string]any{
		"predicate": "shardFilter(filterer, shardKey)",
		"filterer":  filterer,
		"shardKey":  shardKeySlot,
	})

	bindings := SlotBindings{}
	for _, name := range reqs.Names() {
		id, ok := childBindings.Get(name)
		if !ok {
			assertf("shard filter fallback path: parent requested %s but child did not produce it", name)
		}
		bindings = bindings.Set(name, id)
	}
	return root, bindings
}
