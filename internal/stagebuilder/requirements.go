package stagebuilder

// SlotName identifies one of the well-known named slots that flow between
// translators. The set is closed: a new kind is never discovered at
// runtime, so a fixed-size struct is a better fit than a general set type.
type SlotName int

const (
	// SlotResult is the fully materialized document.
	SlotResult SlotName = iota
	// SlotRecordId is the storage-engine record identifier.
	SlotRecordId
	// SlotReturnKey is the reconstructed index-key-only object.
	SlotReturnKey
	// SlotOplogTs is the latest oplog timestamp observed by a collection scan.
	SlotOplogTs

	numSlotNames
)

func (n SlotName) String() string {
	switch n {
	case SlotResult:
		return "result"
	case SlotRecordId:
		return "recordId"
	case SlotReturnKey:
		return "returnKey"
	case SlotOplogTs:
		return "oplogTs"
	default:
		return "unknown"
	}
}

// SlotId is an opaque identifier for a physical slot, unique within one build.
// Zero is never a valid id; it is reserved to mean "absent".
type SlotId uint64

// IndexKeyBitset tracks which positions of an index key pattern a caller
// wants materialized as scalar slots. Key patterns are small (single digit
// to low dozens of components in practice) so a bit-per-position uint64 is
// ample; a pattern wider than 64 components is a contract violation on its
// own merits.
type IndexKeyBitset uint64

// Set returns a copy of b with position i set.
func (b IndexKeyBitset) Set(i int) IndexKeyBitset { return b | (1 << uint(i)) }

// Has reports whether position i is requested.
func (b IndexKeyBitset) Has(i int) bool { return b&(1<<uint(i)) != 0 }

// Union returns the bitwise union of b and other.
func (b IndexKeyBitset) Union(other IndexKeyBitset) IndexKeyBitset { return b | other }

// Empty reports whether no positions are set.
func (b IndexKeyBitset) Empty() bool { return b == 0 }

// Count returns the number of set positions, used to size output slices.
func (b IndexKeyBitset) Count() int {
	n := 0
	for x := b; x != 0; x >>= 1 {
		if x&1 != 0 {
			n++
		}
	}
	return n
}

// Positions returns, in ascending order, the positions set in b.
func (b IndexKeyBitset) Positions() []int {
	var out []int
	for i := 0; i < 64; i++ {
		if b.Has(i) {
			out = append(out, i)
		}
	}
	return out
}

// RequirementsSet is the downward contract: what a parent translator wants
// from the subtree it is about to recurse into. Requirements compose by
// copy-then-modify (see Clone/With*/Without).
type RequirementsSet struct {
	names [numSlotNames]bool

	hasIndexKeyBitset bool
	indexKeyBitset    IndexKeyBitset

	isTailableResumeBranch  bool
	isBuildingTailableUnion bool
}

// NewRequirementsSet returns a RequirementsSet that has requested exactly
// the given names.
func NewRequirementsSet(names ...SlotName) RequirementsSet {
	var r RequirementsSet
	for _, n := range names {
		r.names[n] = true
	}
	return r
}

// Clone returns an independent copy, the starting point for the
// "copy-then-modify" idiom every translator uses to compute child
// requirements.
func (r RequirementsSet) Clone() RequirementsSet { return r }

// Has reports whether name was requested.
func (r RequirementsSet) Has(name SlotName) bool { return r.names[name] }

// Set returns a copy of r with name requested.
func (r RequirementsSet) Set(name SlotName) RequirementsSet {
	r.names[name] = true
	return r
}

// Clear returns a copy of r with name no longer requested.
func (r RequirementsSet) Clear(name SlotName) RequirementsSet {
	r.names[name] = false
	return r
}

// SetIndexKeyBitset returns a copy of r carrying the given index-key bitset.
func (r RequirementsSet) SetIndexKeyBitset(bits IndexKeyBitset) RequirementsSet {
	r.hasIndexKeyBitset = true
	r.indexKeyBitset = bits
	return r
}

// ClearIndexKeyBitset returns a copy of r with no index-key bitset set.
func (r RequirementsSet) ClearIndexKeyBitset() RequirementsSet {
	r.hasIndexKeyBitset = false
	r.indexKeyBitset = 0
	return r
}

// IndexKeyBitset returns the requested bitset and whether one was set at all.
func (r RequirementsSet) IndexKeyBitset() (IndexKeyBitset, bool) {
	return r.indexKeyBitset, r.hasIndexKeyBitset
}

// WithTailableResumeBranch returns a copy of r with the resume-branch flag set.
func (r RequirementsSet) WithTailableResumeBranch(v bool) RequirementsSet {
	r.isTailableResumeBranch = v
	return r
}

// IsTailableResumeBranch reports whether this subtree is being built as the
// resume branch of a tailable union; limit/skip translators consult
// this to suppress their own operator.
func (r RequirementsSet) IsTailableResumeBranch() bool { return r.isTailableResumeBranch }

// WithBuildingTailableUnion returns a copy of r with the in-progress flag set.
func (r RequirementsSet) WithBuildingTailableUnion(v bool) RequirementsSet {
	r.isBuildingTailableUnion = v
	return r
}

// IsBuildingTailableUnion reports whether the dispatcher has already diverted
// into the tailable-union builder for this subtree, preventing re-entry.
func (r RequirementsSet) IsBuildingTailableUnion() bool { return r.isBuildingTailableUnion }

// Names returns the requested names, in canonical order, mostly for
// diagnostics and test assertions.
func (r RequirementsSet) Names() []SlotName {
	var out []SlotName
	for i := SlotName(0); i < numSlotNames; i++ {
		if r.names[i] {
			out = append(out, i)
		}
	}
	return out
}

// SlotBindings is the upward contract: the concrete slot ids a subtree
// actually produced. A name only appears here if the returned
// subtree materializes it, and if the originating requirements asked for a
// name the bindings for that subtree must contain it.
type SlotBindings struct {
	slots [numSlotNames]SlotId

	indexKeySlots []SlotId
}

// Get returns the bound slot id for name and whether it is present.
func (s SlotBindings) Get(name SlotName) (SlotId, bool) {
	id := s.slots[name]
	return id, id != 0
}

// MustGet returns the bound slot id for name, panicking via the caller's
// own assertion if absent; translators use Get and raise a proper
// *errors.AssertionFailedf* instead, this helper exists for tests.
func (s SlotBindings) MustGet(name SlotName) SlotId {
	id, ok := s.Get(name)
	if !ok {
		panic("stagebuilder: slot " + name.String() + " not bound")
	}
	return id
}

// Set returns a copy of s with name bound to id.
func (s SlotBindings) Set(name SlotName, id SlotId) SlotBindings {
	s.slots[name] = id
	return s
}

// WithIndexKeySlots returns a copy of s carrying the given index-key slot
// vector, aligned 1:1 with the bitset that was requested downward.
func (s SlotBindings) WithIndexKeySlots(slots []SlotId) SlotBindings {
	s.indexKeySlots = slots
	return s
}

// IndexKeySlots returns the bound index-key slot vector, or nil if none was
// produced.
func (s SlotBindings) IndexKeySlots() []SlotId { return s.indexKeySlots }

// SatisfiesNamed reports whether every name requested in r is present in s,
// the universal invariant checked at every translator return and again at
// the top-level Build postcondition.
func (s SlotBindings) SatisfiesNamed(r RequirementsSet) bool {
	for i := SlotName(0); i < numSlotNames; i++ {
		if r.names[i] {
			if _, ok := s.Get(i); !ok {
				return false
			}
		}
	}
	return true
}

// narrowIndexKeySlots returns the subsequence of full (produced against
// fullBits) whose positions are set in wantBits, preserving order. This is
// the "makeIndexKeyOutputSlotsMatchingParentReqs" operation referenced by
// the index-scan and covered-shard-filter translators: a translator may have
// requested strictly more key components than its parent did, and must
// narrow the vector back down before returning.
func narrowIndexKeySlots(full []SlotId, fullBits, wantBits IndexKeyBitset) []SlotId {
	if wantBits == fullBits {
		return full
	}
	fullPositions := fullBits.Positions()
	index := make(map[int]SlotId, len(fullPositions))
	for i, pos := range fullPositions {
		if i < len(full) {
			index[pos] = full[i]
		}
	}
	out := make([]SlotId, 0, wantBits.Count())
	for _, pos := range wantBits.Positions() {
		if id, ok := index[pos]; ok {
			out = append(out, id)
		}
	}
	return out
}
