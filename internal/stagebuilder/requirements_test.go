package stagebuilder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequirementsSetCopyThenModify(t *testing.T) {
	base := NewRequirementsSet(SlotResult, SlotRecordId)
	derived := base.Set(SlotReturnKey).Clear(SlotResult)

	require.True(t, base.Has(SlotResult))
	require.False(t, base.Has(SlotReturnKey))

	require.False(t, derived.Has(SlotResult))
	require.True(t, derived.Has(SlotRecordId))
	require.True(t, derived.Has(SlotReturnKey))
}

func TestIndexKeyBitsetPositionsAndCount(t *testing.T) {
	var bits IndexKeyBitset
	bits = bits.Set(0).Set(2).Set(5)

	require.Equal(t, []int{0, 2, 5}, bits.Positions())
	require.Equal(t, 3, bits.Count())
	require.True(t, bits.Has(2))
	require.False(t, bits.Has(3))
	require.False(t, bits.Empty())
}

func TestSlotBindingsSatisfiesNamed(t *testing.T) {
	reqs := NewRequirementsSet(SlotResult, SlotRecordId)

	var complete SlotBindings
	complete = complete.Set(SlotResult, 1).Set(SlotRecordId, 2)
	require.True(t, complete.SatisfiesNamed(reqs))

	var partial SlotBindings
	partial = partial.Set(SlotResult, 1)
	require.False(t, partial.SatisfiesNamed(reqs))
}

func TestNarrowIndexKeySlots(t *testing.T) {
	full := []SlotId{10, 11, 12}
	var fullBits IndexKeyBitset
	fullBits = fullBits.Set(0).Set(1).Set(2)

	var wantBits IndexKeyBitset
	wantBits = wantBits.Set(1)

	narrowed := narrowIndexKeySlots(full, fullBits, wantBits)
	require.Equal(t, []SlotId{11}, narrowed)

	// Identical bitsets short-circuit to the same slice.
	require.Equal(t, full, narrowIndexKeySlots(full, fullBits, fullBits))
}
