package stagebuilder

// NodeKind is the closed set of logical node tags the upstream query
// planner can hand the builder.
type NodeKind int

const (
	KindCollScan NodeKind = iota
	KindVirtualScan
	KindIxScan
	KindFetch
	KindLimit
	KindSkip
	KindSortSimple
	KindSortDefault
	KindSortKeyGenerator
	KindProjSimple
	KindProjCovered
	KindProjDefault
	KindOr
	KindTextOr
	KindTextMatch
	KindReturnKey
	KindEOF
	KindAndHash
	KindAndSorted
	KindSortMerge
	KindShardingFilter
)

func (k NodeKind) String() string {
	switch k {
	case KindCollScan:
		return "COLLSCAN"
	case KindVirtualScan:
		return "VIRTUAL_SCAN"
	case KindIxScan:
		return "IXSCAN"
	case KindFetch:
		return "FETCH"
	case KindLimit:
		return "LIMIT"
	case KindSkip:
		return "SKIP"
	case KindSortSimple:
		return "SORT_SIMPLE"
	case KindSortDefault:
		return "SORT_DEFAULT"
	case KindSortKeyGenerator:
		return "SORT_KEY_GENERATOR"
	case KindProjSimple:
		return "PROJECTION_SIMPLE"
	case KindProjCovered:
		return "PROJECTION_COVERED"
	case KindProjDefault:
		return "PROJECTION_DEFAULT"
	case KindOr:
		return "OR"
	case KindTextOr:
		return "TEXT_OR"
	case KindTextMatch:
		return "TEXT_MATCH"
	case KindReturnKey:
		return "RETURN_KEY"
	case KindEOF:
		return "EOF"
	case KindAndHash:
		return "AND_HASH"
	case KindAndSorted:
		return "AND_SORTED"
	case KindSortMerge:
		return "SORT_MERGE"
	case KindShardingFilter:
		return "SHARDING_FILTER"
	default:
		return "UNKNOWN"
	}
}

// PlanNodeId is the logical planner's own node identifier, carried through
// purely for provenance/debugging; the builder never interprets it.
type PlanNodeId int64

// SortDirection is the per-part direction of a sort pattern.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// IndexKeyPart is one component of an index key pattern: a dotted field
// path and its direction. Hashed is only meaningful on a ShardKeyPattern
// component (§4.6): on the fallback path a hashed shard-key field runs
// through a hash(...) projection before the shard-key object is built.
type IndexKeyPart struct {
	Path      string
	Direction SortDirection
	Hashed    bool
}

// SortPart is one component of a sort pattern.
type SortPart struct {
	Path      string
	Direction SortDirection
}

// FilterExpr is an opaque residual filter predicate handed down from the
// logical planner; the filter expression sub-builder that turns it into a
// physical filter is an external collaborator (out of scope for this
// package) and is represented as a function hook on the Builder.
type FilterExpr struct {
	Description string
}

// ProjectionSpec is an opaque projection shape handed down from the logical
// planner; like FilterExpr, the expression sub-builder that evaluates it is
// out of scope here.
type ProjectionSpec struct {
	Fields []string
}

// LogicalNode is one node of the solution tree the query planner produced.
// The payload fields are kind-specific; translators only read the fields
// relevant to their own kind (enforced only by convention, matching the
// closed tagged-variant shape called for by the design).
type LogicalNode struct {
	Kind   NodeKind
	NodeId PlanNodeId
	Children []*LogicalNode

	// Collection / scan payload. TracksOplogTs, RequestsResumeToken, and
	// Tailable mirror CollectionScanNode's own shouldTrackLatestOplogTimestamp
	// / requestResumeToken / tailable fields (sbe_stage_builder.cpp:335-337):
	// three independent flags carried by the scan node itself, read by the
	// prelude scan in Build, not derived from the query.
	Collection          string
	IndexName           string
	KeyPattern          []IndexKeyPart
	TracksOplogTs       bool
	RequestsResumeToken bool
	Tailable            bool
	RequiresReadLock    bool
	InlineDocs          []map[string]any
	SimulatesIndex      bool

	// Fetch / filter payload.
	ResidualFilter *FilterExpr

	// Limit/skip payload.
	LimitValue int64
	SkipValue  int64

	// Sort payload.
	SortPattern []SortPart

	// Projection payload.
	Projection *ProjectionSpec

	// Or/TextOr payload.
	Dedup bool

	// Sort-merge payload: each child's own key pattern (may be ordered
	// differently from the overall sort pattern).
	ChildKeyPatterns [][]IndexKeyPart

	// Shard filter payload.
	ShardKeyPattern []IndexKeyPart
}

// Child returns the i'th child, or nil if out of range.
func (n *LogicalNode) Child(i int) *LogicalNode {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// CanonicalQuery carries the query-wide context every translator may
// consult: collation, tailability, and whether the latest oplog timestamp
// must be tracked.
type CanonicalQuery struct {
	Collator    *Collator
	IsTailable  bool
	NeedsOplogTs bool
}

// findOplogSourceNode performs the single prelude scan described for the
// top-level entry point: locate a collection-scan or virtual-scan node so
// PlanStageData's flags can be precomputed once, before translation starts.
func findOplogSourceNode(n *LogicalNode) *LogicalNode {
	if n == nil {
		return nil
	}
	if n.Kind == KindCollScan || n.Kind == KindVirtualScan {
		return n
	}
	for _, c := range n.Children {
		if found := findOplogSourceNode(c); found != nil {
			return found
		}
	}
	return nil
}
