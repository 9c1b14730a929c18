package stagebuilder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChooseSortKeyRegime(t *testing.T) {
	require.Equal(t, regimeFast, chooseSortKeyRegime([]SortPart{{Path: "a"}, {Path: "b"}}))
	require.Equal(t, regimeFast, chooseSortKeyRegime([]SortPart{{Path: "a.x"}, {Path: "b.y"}}))
	require.Equal(t, regimeSlow, chooseSortKeyRegime([]SortPart{{Path: "a.x"}, {Path: "a.y"}}),
		"two parts sharing the top-level field a must pick the slow regime")
}

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	ids := NewSlotIdGenerator()
	return &Builder{
		ids:    ids,
		frames: NewFrameIdGenerator(),
		spools: NewSpoolIdGenerator(),
		env:    NewRuntimeEnvironment(ids),
	}
}

// TestBuildSortKeyPlanFastWithGuard is scenario 4 of §8: a two-part sort
// pattern with distinct top-level fields picks the fast regime and carries a
// two-part parallel-arrays guard.
func TestBuildSortKeyPlanFastWithGuard(t *testing.T) {
	b := newTestBuilder(t)
	parts := []SortPart{{Path: "a", Direction: Ascending}, {Path: "b", Direction: Descending}}

	plan := b.buildSortKeyPlan(parts, 1)
	require.Equal(t, regimeFast, plan.Regime)
	require.Len(t, plan.Parts, 2)
	require.Equal(t, Ascending, plan.Parts[0].Direction)
	require.Equal(t, Descending, plan.Parts[1].Direction)

	require.NotNil(t, plan.Guard)
	require.True(t, plan.Guard.TwoPartExpr)
	require.False(t, plan.Guard.SummedExpr)
	require.Len(t, plan.Guard.KeySlots, 2)
}

func TestBuildSortKeyPlanFastNoGuardForSinglePart(t *testing.T) {
	b := newTestBuilder(t)
	plan := b.buildSortKeyPlan([]SortPart{{Path: "a"}}, 1)
	require.Nil(t, plan.Guard)
}

func TestBuildSortKeyPlanSummedGuardForThreeOrMore(t *testing.T) {
	b := newTestBuilder(t)
	parts := []SortPart{{Path: "a"}, {Path: "b"}, {Path: "c"}}
	plan := b.buildSortKeyPlan(parts, 1)
	require.NotNil(t, plan.Guard)
	require.True(t, plan.Guard.SummedExpr)
	require.False(t, plan.Guard.TwoPartExpr)
}

func TestBuildSortKeyPlanSlowRegimeForSharedPrefix(t *testing.T) {
	b := newTestBuilder(t)
	parts := []SortPart{{Path: "a.x"}, {Path: "a.y"}}
	plan := b.buildSortKeyPlan(parts, 1)
	require.Equal(t, regimeSlow, plan.Regime)
	require.NotZero(t, plan.SlowCallSlot)
}

func TestSortKeyTraversalLeafMarking(t *testing.T) {
	b := newTestBuilder(t)
	plan := b.buildSortKeyFast([]SortPart{{Path: "a.b.c"}}, 1, false)
	require.Len(t, plan.Parts, 1)
	traversal := plan.Parts[0].Traversal
	require.Len(t, traversal, 2)
	require.False(t, traversal[0].IsLeaf)
	require.True(t, traversal[1].IsLeaf)
}
