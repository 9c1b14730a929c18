package stagebuilder

import (
	"github.com/viix-io/docplan/internal/physfactory"
)

// translator is the signature every per-kind lowerer implements: the
// dispatcher's table is keyed by NodeKind and maps onto values of this
// type (§9 "Polymorphism on logical-node kind ... plus a table of
// translators keyed by tag").
type translator func(b *Builder, n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings)

var translators map[NodeKind]translator

func init() {
	translators = map[NodeKind]translator{
		KindCollScan:       (*Builder).translateCollScan,
		KindVirtualScan:    (*Builder).translateVirtualScan,
		KindIxScan:         (*Builder).translateIxScan,
		KindFetch:          (*Builder).translateFetch,
		KindLimit:          (*Builder).translateLimit,
		KindSkip:           (*Builder).translateSkip,
		KindSortSimple:     (*Builder).translateSort,
		KindSortDefault:    (*Builder).translateSort,
		KindProjSimple:     (*Builder).translateProjectionSimple,
		KindProjCovered:    (*Builder).translateProjectionCovered,
		KindProjDefault:    (*Builder).translateProjectionDefault,
		KindOr:             (*Builder).translateOr,
		KindTextOr:         (*Builder).translateOr,
		KindTextMatch:      (*Builder).translateTextMatch,
		KindReturnKey:      (*Builder).translateReturnKey,
		KindEOF:            (*Builder).translateEOF,
		KindAndHash:        (*Builder).translateAndHash,
		KindAndSorted:      (*Builder).translateAndSorted,
		KindSortMerge:      (*Builder).translateSortMerge,
		KindShardingFilter: (*Builder).translateShardingFilter,
	}
}

// tailableDivertible reports whether kind is one of the three logical
// kinds the dispatcher diverts into the tailable-union builder for
// (§4.1): collscan, limit, skip.
func tailableDivertible(kind NodeKind) bool {
	switch kind {
	case KindCollScan, KindLimit, KindSkip:
		return true
	default:
		return false
	}
}

// build is the dispatcher (§4.1): maps the node's tag to its translator,
// interposing the tailable-union rewrite first. This is what Build's
// top-level entry point calls, and what every translator calls
// recursively for its children.
func (b *Builder) build(n *LogicalNode, reqs RequirementsSet) (physfactory.PhysNode, SlotBindings) {
	if n == nil {
		assertf("build: nil logical node")
	}

	if err := b.ctx.Err(); err != nil {
		panic(err)
	}

	if b.query != nil && b.query.IsTailable && tailableDivertible(n.Kind) && !reqs.IsBuildingTailableUnion() {
		if b.obs.OnDispatch != nil {
			b.obs.OnDispatch(n.Kind)
		}
		return b.buildTailableUnion(n, reqs)
	}

	fn, ok := translators[n.Kind]
	if !ok {
		assertKindf(n.Kind, "no translator registered for logical node kind")
	}

	if b.obs.OnDispatch != nil {
		b.obs.OnDispatch(n.Kind)
	}

	root, bindings := fn(b, n, reqs)

	if !bindings.SatisfiesNamed(reqs) {
		assertKindf(n.Kind, "translator returned bindings that do not satisfy parent requirements")
	}
	return root, bindings
}
