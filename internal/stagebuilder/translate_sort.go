package stagebuilder

import "github.com/viix-io/docplan/internal/physfactory"

// translateSort lowers a sort (§4.2 "Sort", §4.4). Requires result from the
// child (a sort key is always computed from the document), builds the
// sort-key plan, and wraps the child in a sort operator.
func (b *Builder) translateSort(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	childReqs := reqs.Set(SlotResult)
	childRoot, bindings := b.build(n.Child(0), childReqs)
	resultSlot, _ := bindings.Get(SlotResult)

	plan := b.buildSortKeyPlan(n.SortPattern, resultSlot)

	root := childRoot
	var keySlots []SlotId
	var directions []SortDirection

	switch plan.Regime {
	case regimeFast:
		for _, part := range plan.Parts {
			root = b.factory.ConstructProject(root, map[string]any{
				"expr":    "getField(result, " + part.Path + ")",
				"inSlot":  resultSlot,
				"outSlot": part.TopLevelSlot,
				"onMissing": "null",
			})
			cur := part.TopLevelSlot
			for _, op := range part.Traversal {
				next := b.ids.Generate()
				root = b.factory.ConstructTraverse(root, map[string]any{
					"inSlot":    cur,
					"outSlot":   next,
					"component": op.Component,
					"direction": op.Direction,
					"leafPolicy": leafPolicy(op.IsLeaf),
					"usesCollation": part.UsesCollation,
				})
				cur = next
			}
			if cur != part.ResultSlot {
				root = b.factory.ConstructProject(root, map[string]any{
					"expr":    "identity",
					"inSlot":  cur,
					"outSlot": part.ResultSlot,
				})
			}
			keySlots = append(keySlots, part.ResultSlot)
			directions = append(directions, part.Direction)
		}
	default:
		root = b.factory.ConstructProject(root, map[string]any{
			"expr":    "generateSortKey(sortSpec, result)",
			"inSlot":  resultSlot,
			"outSlot": plan.SlowCallSlot,
		})
		keySlots = append(keySlots, plan.SlowCallSlot)
		directions = append(directions, Ascending)
	}

	if plan.Guard != nil {
		root = b.factory.ConstructFilter(root, map[string]any{
			"predicate": "parallelArraysGuard",
			"keySlots":  plan.Guard.KeySlots,
			"twoPartExpr": plan.Guard.TwoPartExpr,
			"summedExpr":  plan.Guard.SummedExpr,
			"onViolation": CodeParallelArrays,
		})
	}

	limit := n.LimitValue
	if limit == 0 {
		limit = -1 // possibly-infinite limit sentinel
	}
	root = b.factory.ConstructSort(root, map[string]any{
		"keySlots":      keySlots,
		"directions":    directions,
		"payload":       resultSlot,
		"limit":         limit,
		"memoryCapBytes": defaultSortMemoryCapBytes,
		"allowDiskSpill": true,
	})

	return root, bindings
}

// defaultSortMemoryCapBytes is the memory cap passed to the sort operator
// per §4.4's "a memory cap" clause; the out-of-scope operator library owns
// the real default, this is only a plausible placeholder for the reference
// factory's attrs bag.
const defaultSortMemoryCapBytes = 100 * 1024 * 1024

func leafPolicy(isLeaf bool) string {
	if isLeaf {
		return "emptyArrayUndefined"
	}
	return "emptyOrMissingNull"
}
