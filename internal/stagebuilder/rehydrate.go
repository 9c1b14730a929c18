package stagebuilder

import "strings"

// rehydrateTrieNode is one node of the index-key rehydration trie (§4.3,
// §3 "Index-key trie"). Children are kept in insertion order so emission
// walks the trie the same way the key pattern was declared.
type rehydrateTrieNode struct {
	children     map[string]*rehydrateTrieNode
	order        []string
	slot         SlotId
	hasSlot      bool
	originalPath string
}

func newRehydrateTrieNode() *rehydrateTrieNode {
	return &rehydrateTrieNode{children: make(map[string]*rehydrateTrieNode)}
}

// rehydrateTrie is the ordered trie built over an index key pattern.
type rehydrateTrie struct {
	root *rehydrateTrieNode
}

// buildRehydrateTrie inserts each (path, slot) pair in order, applying the
// short-circuit rule: a path is dropped if an ancestor node along the way
// already carries a bound slot (a strictly-shorter prefix already covers
// it). obsDebug, if non-nil, is invoked once per dropped/ambiguous path —
// the §9 open-question decision to log rather than assert, kept optional so
// rehydrate.go has no hard dependency on the logging package.
func buildRehydrateTrie(pattern []IndexKeyPart, slots []SlotId, obsDebug func(format string, args ...any)) *rehydrateTrie {
	if len(pattern) != len(slots) {
		assertf("rehydration: %d key pattern components but %d slots", len(pattern), len(slots))
	}
	t := &rehydrateTrie{root: newRehydrateTrieNode()}
	for i, part := range pattern {
		t.insert(part.Path, slots[i], obsDebug)
	}
	return t
}

func (t *rehydrateTrie) insert(path string, slot SlotId, obsDebug func(format string, args ...any)) {
	components := strings.Split(path, ".")
	node := t.root
	for depth, comp := range components {
		if node.hasSlot {
			// A strictly-shorter prefix already binds this whole subtree;
			// the new path is dropped per the short-circuit rule.
			if obsDebug != nil {
				obsDebug("rehydrate: dropping %q, shadowed by shorter-prefix binding at depth %d", path, depth)
			}
			return
		}
		child, ok := node.children[comp]
		if !ok {
			child = newRehydrateTrieNode()
			node.children[comp] = child
			node.order = append(node.order, comp)
		}
		node = child
	}
	if len(node.children) > 0 && obsDebug != nil {
		obsDebug("rehydrate: %q binds a prefix of already-inserted path(s); those descendants are now unreachable", path)
	}
	node.hasSlot = true
	node.slot = slot
	node.originalPath = path
}

// RehydrateExpr is the emitted nested-object-construction expression: either
// a bound slot reference (a leaf) or a newObj over named sub-expressions
// (an internal node), mirroring the newObj(name1, value1, ...) shape §4.3
// describes.
type RehydrateExpr struct {
	// Slot is set for a leaf: the expression is simply a reference to this
	// slot's runtime value.
	Slot SlotId
	// Fields is set for an internal node: ordered (name, sub-expression)
	// pairs fed to newObj.
	Fields []RehydrateField
}

// RehydrateField is one (name, value) pair of a newObj emission.
type RehydrateField struct {
	Name string
	Expr RehydrateExpr
}

// IsLeaf reports whether e is a direct slot reference rather than a nested
// newObj.
func (e RehydrateExpr) IsLeaf() bool { return e.Fields == nil }

// Emit walks the trie in insertion order and produces the root
// RehydrateExpr, the object-construction expression the index-scan and
// covered-shard-filter translators attach to their result/returnKey slot.
func (t *rehydrateTrie) Emit() RehydrateExpr {
	return emitNode(t.root)
}

func emitNode(n *rehydrateTrieNode) RehydrateExpr {
	if n.hasSlot {
		return RehydrateExpr{Slot: n.slot}
	}
	fields := make([]RehydrateField, 0, len(n.order))
	for _, comp := range n.order {
		fields = append(fields, RehydrateField{Name: comp, Expr: emitNode(n.children[comp])})
	}
	return RehydrateExpr{Fields: fields}
}

// ExtractPath walks e as if it were the reconstructed object and returns
// the scalar slot bound at the given dotted path, honoring the same
// short-circuit dominance a real document extraction would see (used by
// tests to verify invariant 4 in §8).
func (e RehydrateExpr) ExtractPath(path string) (SlotId, bool) {
	components := strings.Split(path, ".")
	cur := e
	for _, comp := range components {
		if cur.IsLeaf() {
			// A shorter-prefix binding dominates: whatever is "inside" it
			// is this same scalar value.
			return cur.Slot, true
		}
		found := false
		for _, f := range cur.Fields {
			if f.Name == comp {
				cur = f.Expr
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
	}
	if cur.IsLeaf() {
		return cur.Slot, true
	}
	return 0, false
}

// rehydrate is the entry point translators call: given a key pattern and
// its aligned slot vector, build the trie and emit the reconstruction
// expression in one step.
func rehydrate(pattern []IndexKeyPart, slots []SlotId, obsDebug func(format string, args ...any)) RehydrateExpr {
	return buildRehydrateTrie(pattern, slots, obsDebug).Emit()
}
