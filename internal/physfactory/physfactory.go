// Package physfactory defines the opaque physical-operator construction
// boundary the stage builder depends on (§1 "out of scope", §4.8). A real
// document database would bind PhysFactory to its execution engine; this
// package supplies only the interface plus a reference in-memory
// implementation good enough to drive and assert against in tests.
package physfactory

// NodeKind names one of the opaque physical operator constructors listed
// in §1. The stage builder never branches on these beyond passing them
// through to the factory; they exist so the reference factory (and tests)
// have something to print and assert against.
type NodeKind string

const (
	KindCollScan    NodeKind = "COLL_SCAN"
	KindIxScan      NodeKind = "IX_SCAN"
	KindVirtualScan NodeKind = "VIRTUAL_SCAN"
	KindFilter      NodeKind = "FILTER"
	KindProject     NodeKind = "PROJECT"
	KindSort        NodeKind = "SORT"
	KindHashJoin    NodeKind = "HASH_JOIN"
	KindMergeJoin   NodeKind = "MERGE_JOIN"
	KindLoopJoin    NodeKind = "LOOP_JOIN"
	KindSortedMerge NodeKind = "SORTED_MERGE"
	KindUnion       NodeKind = "UNION"
	KindUnique      NodeKind = "UNIQUE"
	KindLimitSkip   NodeKind = "LIMIT_SKIP"
	KindMakeObject  NodeKind = "MAKE_OBJECT"
	KindTraverse    NodeKind = "TRAVERSE"
	KindNothing     NodeKind = "NOTHING"
)

// PhysNode is the opaque result handed back by every Factory constructor.
// The stage builder never inspects a PhysNode's contents; it only threads
// roots into parent constructors and returns the final root to its caller.
type PhysNode interface {
	// Kind reports the operator this node was constructed as, useful only
	// for debug dumps (explain.go) and test assertions against the
	// reference factory below.
	Kind() NodeKind
}

// Factory is the "opaque constructor" boundary named in §1: one method per
// physical operator the stage builder composes. Attrs on each method is a
// free-form bag (slot ids, directions, predicates, ...) the reference
// factory stores verbatim for introspection; a production factory would
// interpret them to build real executable operators.
type Factory interface {
	ConstructCollScan(attrs map[string]any) PhysNode
	ConstructIxScan(attrs map[string]any) PhysNode
	ConstructVirtualScan(attrs map[string]any) PhysNode
	ConstructFilter(input PhysNode, attrs map[string]any) PhysNode
	ConstructProject(input PhysNode, attrs map[string]any) PhysNode
	ConstructSort(input PhysNode, attrs map[string]any) PhysNode
	ConstructHashJoin(outer, inner PhysNode, attrs map[string]any) PhysNode
	ConstructMergeJoin(outer, inner PhysNode, attrs map[string]any) PhysNode
	ConstructLoopJoin(outer, inner PhysNode, attrs map[string]any) PhysNode
	ConstructSortedMerge(children []PhysNode, attrs map[string]any) PhysNode
	ConstructUnion(children []PhysNode, attrs map[string]any) PhysNode
	ConstructUnique(input PhysNode, attrs map[string]any) PhysNode
	ConstructLimitSkip(input PhysNode, attrs map[string]any) PhysNode
	ConstructMakeObject(input PhysNode, attrs map[string]any) PhysNode
	ConstructTraverse(input PhysNode, attrs map[string]any) PhysNode
	ConstructNothing(attrs map[string]any) PhysNode
}
