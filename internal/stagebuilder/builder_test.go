package stagebuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viix-io/docplan/internal/catalog"
	"github.com/viix-io/docplan/internal/physfactory"
	"github.com/viix-io/docplan/internal/shardfilter"
)

func newScenarioBuilder(t *testing.T, query *CanonicalQuery, opts ...BuilderOption) *Builder {
	t.Helper()
	cat := catalog.NewInMemCatalog()
	sf := &shardfilter.Static{}
	return New(context.Background(), physfactory.New(), cat, sf, query, ObsHooks{}, opts...)
}

// TestBuildFetchOverIxScan is scenario 1 of §8: FETCH(IXSCAN({a:1})) with
// {result} lowers to a loop-join over a seek-by-recordId inner scan, and the
// bindings contain both result and recordId.
func TestBuildFetchOverIxScan(t *testing.T) {
	tree := &LogicalNode{
		Kind:       KindFetch,
		Collection: "widgets",
		Children: []*LogicalNode{
			{
				Kind:       KindIxScan,
				Collection: "widgets",
				IndexName:  "a_1",
				KeyPattern: []IndexKeyPart{{Path: "a"}},
			},
		},
	}

	b := newScenarioBuilder(t, &CanonicalQuery{})
	root, data, err := b.Build(tree, NewRequirementsSet(SlotResult))
	require.NoError(t, err)

	resultSlot, ok := data.Bindings.Get(SlotResult)
	require.True(t, ok)
	require.NotZero(t, resultSlot)
	recordIdSlot, ok := data.Bindings.Get(SlotRecordId)
	require.True(t, ok)
	require.NotZero(t, recordIdSlot)

	loopJoin, ok := root.(interface{ Kind() physfactory.NodeKind })
	require.True(t, ok)
	require.Equal(t, physfactory.KindLoopJoin, loopJoin.Kind())
}

// TestBuildIxScanReturnKey is scenario 2 of §8: IXSCAN({a:1, b:1}) with only
// {returnKey} binds two key slots into a newObj and exposes it as returnKey,
// with result absent.
func TestBuildIxScanReturnKey(t *testing.T) {
	tree := &LogicalNode{
		Kind:       KindIxScan,
		Collection: "widgets",
		IndexName:  "ab",
		KeyPattern: []IndexKeyPart{{Path: "a"}, {Path: "b"}},
	}

	b := newScenarioBuilder(t, &CanonicalQuery{})
	_, data, err := b.Build(tree, NewRequirementsSet(SlotReturnKey))
	require.NoError(t, err)

	_, hasResult := data.Bindings.Get(SlotResult)
	require.False(t, hasResult)
	returnKeySlot, ok := data.Bindings.Get(SlotReturnKey)
	require.True(t, ok)
	require.NotZero(t, returnKeySlot)
}

// TestBuildIxScanNestedRehydration is scenario 3 of §8.
func TestBuildIxScanNestedRehydration(t *testing.T) {
	tree := &LogicalNode{
		Kind:       KindIxScan,
		Collection: "widgets",
		IndexName:  "abx",
		KeyPattern: []IndexKeyPart{{Path: "a.b"}, {Path: "x"}, {Path: "a.c"}},
	}

	b := newScenarioBuilder(t, &CanonicalQuery{})
	root, data, err := b.Build(tree, NewRequirementsSet(SlotResult))
	require.NoError(t, err)

	resultSlot, ok := data.Bindings.Get(SlotResult)
	require.True(t, ok)
	require.NotZero(t, resultSlot)

	ixscan, ok := root.(interface{ Kind() physfactory.NodeKind })
	require.True(t, ok)
	// translateIxScan wraps the ixscan in one project per requested output
	// (result here); the outer node is therefore a PROJECT over an IX_SCAN.
	require.Equal(t, physfactory.KindProject, ixscan.Kind())
}

// TestBuildSortFastRegimeWithGuard is scenario 4 of §8.
func TestBuildSortFastRegimeWithGuard(t *testing.T) {
	tree := &LogicalNode{
		Kind: KindSortSimple,
		SortPattern: []SortPart{
			{Path: "a", Direction: Ascending},
			{Path: "b", Direction: Descending},
		},
		Children: []*LogicalNode{
			{Kind: KindCollScan, Collection: "widgets"},
		},
	}

	b := newScenarioBuilder(t, &CanonicalQuery{})
	root, data, err := b.Build(tree, NewRequirementsSet(SlotResult))
	require.NoError(t, err)

	_, ok := data.Bindings.Get(SlotResult)
	require.True(t, ok)

	sortNode, ok := root.(interface {
		Kind() physfactory.NodeKind
		Attrs() map[string]any
	})
	require.True(t, ok)
	require.Equal(t, physfactory.KindSort, sortNode.Kind())
	directions, ok := sortNode.Attrs()["directions"].([]SortDirection)
	require.True(t, ok)
	require.Equal(t, []SortDirection{Ascending, Descending}, directions)
}

// TestBuildTailableCollScanLimitUnion is scenario 5 of §8.
func TestBuildTailableCollScanLimitUnion(t *testing.T) {
	tree := &LogicalNode{
		Kind:       KindLimit,
		LimitValue: 10,
		Children: []*LogicalNode{
			{
				Kind:                KindCollScan,
				Collection:          "widgets",
				TracksOplogTs:       true,
				RequestsResumeToken: true,
				Tailable:            true,
			},
		},
	}

	b := newScenarioBuilder(t, &CanonicalQuery{IsTailable: true})
	root, data, err := b.Build(tree, NewRequirementsSet(SlotResult, SlotRecordId))
	require.NoError(t, err)

	union, ok := root.(interface {
		Kind() physfactory.NodeKind
		Children() []physfactory.PhysNode
	})
	require.True(t, ok)
	require.Equal(t, physfactory.KindUnion, union.Kind())
	require.Len(t, union.Children(), 2)

	_, hasResult := data.Bindings.Get(SlotResult)
	require.True(t, hasResult)
	_, hasRecordId := data.Bindings.Get(SlotRecordId)
	require.True(t, hasRecordId)

	_, _, hasResume := data.Env.Lookup(EnvResumeRecordId)
	require.True(t, hasResume)

	// The three PlanStageData flags come from the located collscan node's
	// own fields, not from the query: they must reflect the tree that was
	// actually built even though CanonicalQuery never set NeedsOplogTs.
	require.True(t, data.ShouldTrackLatestOplogTimestamp)
	require.True(t, data.ShouldTrackResumeToken)
	require.True(t, data.ShouldUseTailableScan)
}

// TestBuildPlanStageDataFlagsComeFromScanNodeNotQuery is the regression test
// for the bug where ShouldTrackLatestOplogTimestamp/ShouldTrackResumeToken/
// ShouldUseTailableScan were derived from CanonicalQuery instead of the
// prelude-scan-located collscan node: a query that never sets NeedsOplogTs
// must still report true when the located scan node tracks it, and a query
// with no tailable collscan at all must report every flag false.
func TestBuildPlanStageDataFlagsComeFromScanNodeNotQuery(t *testing.T) {
	tree := &LogicalNode{Kind: KindCollScan, Collection: "widgets", TracksOplogTs: true}
	b := newScenarioBuilder(t, &CanonicalQuery{})
	_, data, err := b.Build(tree, NewRequirementsSet(SlotResult, SlotOplogTs))
	require.NoError(t, err)

	require.True(t, data.ShouldTrackLatestOplogTimestamp,
		"the scan node tracks the oplog timestamp even though the query never asked for it")
	require.False(t, data.ShouldTrackResumeToken)
	require.False(t, data.ShouldUseTailableScan)

	plainTree := &LogicalNode{Kind: KindCollScan, Collection: "widgets"}
	b2 := newScenarioBuilder(t, &CanonicalQuery{})
	_, data2, err := b2.Build(plainTree, NewRequirementsSet(SlotResult))
	require.NoError(t, err)
	require.False(t, data2.ShouldTrackLatestOplogTimestamp)
	require.False(t, data2.ShouldTrackResumeToken)
	require.False(t, data2.ShouldUseTailableScan)
}

// TestBuildShardingFilterCoveredPath is scenario 6 of §8: with no result
// requested and an index-scan child, the covered path is taken: the index
// produces only the shard key's own component, and no fetch is introduced.
func TestBuildShardingFilterCoveredPath(t *testing.T) {
	tree := &LogicalNode{
		Kind:            KindShardingFilter,
		Collection:      "widgets",
		ShardKeyPattern: []IndexKeyPart{{Path: "a"}},
		Children: []*LogicalNode{
			{
				Kind:       KindIxScan,
				Collection: "widgets",
				IndexName:  "ab",
				KeyPattern: []IndexKeyPart{{Path: "a"}, {Path: "b"}},
			},
		},
	}

	b := newScenarioBuilder(t, &CanonicalQuery{})
	root, _, err := b.Build(tree, NewRequirementsSet(SlotRecordId))
	require.NoError(t, err)

	filterNode, ok := root.(interface {
		Kind() physfactory.NodeKind
		Children() []physfactory.PhysNode
	})
	require.True(t, ok)
	require.Equal(t, physfactory.KindFilter, filterNode.Kind())

	makeObj := filterNode.Children()[0].(interface {
		Kind() physfactory.NodeKind
	})
	require.Equal(t, physfactory.KindMakeObject, makeObj.Kind())
}

// TestBuildOplogTsRequiresTrackingCollScan is invariant 3 of §8.
func TestBuildOplogTsRequiresTrackingCollScan(t *testing.T) {
	tracking := &LogicalNode{Kind: KindCollScan, Collection: "widgets", TracksOplogTs: true}
	b := newScenarioBuilder(t, &CanonicalQuery{NeedsOplogTs: true})
	_, data, err := b.Build(tracking, NewRequirementsSet(SlotOplogTs))
	require.NoError(t, err)
	_, ok := data.Bindings.Get(SlotOplogTs)
	require.True(t, ok)

	nonTracking := &LogicalNode{Kind: KindCollScan, Collection: "widgets"}
	b2 := newScenarioBuilder(t, &CanonicalQuery{})
	require.Panics(t, func() {
		b2.build(nonTracking, NewRequirementsSet(SlotOplogTs))
	}, "requesting oplogTs from a non-tracking collscan is a contract violation")
}

func TestBuildReturnsErrorInsteadOfPanicking(t *testing.T) {
	// A node kind with no registered translator (sort-key-generator) is a
	// contract violation that Build must classify into a returned error, not
	// let escape as a panic.
	tree := &LogicalNode{Kind: KindSortKeyGenerator}
	b := newScenarioBuilder(t, &CanonicalQuery{})
	_, _, err := b.Build(tree, RequirementsSet{})
	require.Error(t, err)
}

func TestBuildIsSingleUse(t *testing.T) {
	tree := &LogicalNode{Kind: KindCollScan, Collection: "widgets"}
	b := newScenarioBuilder(t, &CanonicalQuery{})
	_, _, err := b.Build(tree, NewRequirementsSet(SlotResult))
	require.NoError(t, err)

	_, _, err = b.Build(tree, NewRequirementsSet(SlotResult))
	require.Error(t, err)
}

// TestBuildCollScanSlotsAreDistinctAndNonZero is invariant 2 of §8.
func TestBuildCollScanSlotsAreDistinctAndNonZero(t *testing.T) {
	tree := &LogicalNode{Kind: KindCollScan, Collection: "widgets", TracksOplogTs: true}
	b := newScenarioBuilder(t, &CanonicalQuery{})
	_, data, err := b.Build(tree, NewRequirementsSet(SlotResult, SlotRecordId, SlotOplogTs))
	require.NoError(t, err)

	result, _ := data.Bindings.Get(SlotResult)
	recordId, _ := data.Bindings.Get(SlotRecordId)
	oplogTs, _ := data.Bindings.Get(SlotOplogTs)

	require.NotZero(t, result)
	require.NotZero(t, recordId)
	require.NotZero(t, oplogTs)
	require.NotEqual(t, result, recordId)
	require.NotEqual(t, result, oplogTs)
	require.NotEqual(t, recordId, oplogTs)
}

// TestBuildEOFBindsEverySlotToNothingWithAttrsToMatch is the regression test
// for the bug where translateEOF generated fresh slot ids for every
// requested name but never told the physical factory which ids those were:
// a real factory backing ConstructNothing must see the generated ids in
// attrs, not just the opaque Nothing constant.
func TestBuildEOFBindsEverySlotToNothingWithAttrsToMatch(t *testing.T) {
	tree := &LogicalNode{Kind: KindEOF}
	b := newScenarioBuilder(t, &CanonicalQuery{})
	root, data, err := b.Build(tree, NewRequirementsSet(SlotResult, SlotRecordId))
	require.NoError(t, err)

	resultSlot, ok := data.Bindings.Get(SlotResult)
	require.True(t, ok)
	recordIdSlot, ok := data.Bindings.Get(SlotRecordId)
	require.True(t, ok)

	nothing, ok := root.(interface{ Attrs() map[string]any })
	require.True(t, ok)
	slots, ok := nothing.Attrs()["slots"].(map[SlotName]SlotId)
	require.True(t, ok)
	require.Equal(t, resultSlot, slots[SlotResult])
	require.Equal(t, recordIdSlot, slots[SlotRecordId])
}

// TestNilObsHooksAreNoOp is invariant 11 of §8 at the core-package level:
// ObsHooks' zero value must behave identically to populated hooks.
func TestNilObsHooksAreNoOp(t *testing.T) {
	tree := &LogicalNode{Kind: KindCollScan, Collection: "widgets"}

	withHooks := newScenarioBuilder(t, &CanonicalQuery{})
	var dispatches int
	withHooks.obs = ObsHooks{OnDispatch: func(NodeKind) { dispatches++ }}
	_, dataWith, errWith := withHooks.Build(tree, NewRequirementsSet(SlotResult))
	require.NoError(t, errWith)
	require.Equal(t, 1, dispatches)

	withoutHooks := newScenarioBuilder(t, &CanonicalQuery{})
	_, dataWithout, errWithout := withoutHooks.Build(tree, NewRequirementsSet(SlotResult))
	require.NoError(t, errWithout)

	require.Equal(t, dataWith.DebugString(), dataWithout.DebugString(),
		"observability hooks must be strictly additive and never change the build result")
}
