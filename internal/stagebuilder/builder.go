// Package stagebuilder lowers a logical query-solution tree into a
// physical execution tree of slot-based operators. See SPEC_FULL.md for
// the full contract; this file holds the single-use Builder entry point,
// grounded on cockroachdb-cockroach's execbuilder.Builder/New/Build and its
// recover-and-classify build() boundary.
package stagebuilder

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"

	"github.com/viix-io/docplan/internal/catalog"
	"github.com/viix-io/docplan/internal/physfactory"
	"github.com/viix-io/docplan/internal/shardfilter"
)

// ObsHooks are the optional, strictly-additive observability callbacks
// (§6 expansion). A nil hook is a legal no-op; see internal/obs for the
// zap/prometheus-backed implementation wired in by the CLI front door.
type ObsHooks struct {
	OnDispatch         func(kind NodeKind)
	OnContractViolation func(kind NodeKind, err error)
	OnDebug            func(format string, args ...any)
}

// PlanStageData is the outbound bundle described in §6: the runtime
// environment, the top-level slot bindings, and the three flags
// precomputed by the prelude scan.
type PlanStageData struct {
	Env      *RuntimeEnvironment
	Bindings SlotBindings

	ShouldTrackLatestOplogTimestamp bool
	ShouldTrackResumeToken          bool
	ShouldUseTailableScan           bool
}

// DebugString renders §6's debug output: result/recordId/oplogTs top-level
// slot ids followed by the runtime-environment dump.
func (d *PlanStageData) DebugString() string {
	result, _ := d.Bindings.Get(SlotResult)
	recordId, _ := d.Bindings.Get(SlotRecordId)
	oplogTs, _ := d.Bindings.Get(SlotOplogTs)
	return "result=s" + itoa(uint64(result)) +
		" recordId=s" + itoa(uint64(recordId)) +
		" oplogTs=s" + itoa(uint64(oplogTs)) +
		" " + d.Env.DumpString()
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	const digits = "0123456789"
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v%10]
		v /= 10
	}
	return string(buf[i:])
}

// Builder is a single-use lowering pass instance. New constructs one;
// Build consumes it exactly once (§3 "the builder is single-use").
type Builder struct {
	ctx context.Context

	factory   physfactory.Factory
	catalog   catalog.Catalog
	sfFactory shardfilter.ShardFiltererFactory

	query *CanonicalQuery

	ids    *SlotIdGenerator
	frames *FrameIdGenerator
	spools *SpoolIdGenerator
	env    *RuntimeEnvironment

	obs ObsHooks

	// filterBuilder / projectionBuilder are the out-of-scope expression
	// sub-builders (§1) the Fetch, Or/TextOr, and Projection-default
	// translators delegate to. Default to a pass-through that hands the
	// opaque FilterExpr/ProjectionSpec straight to the physical factory, as
	// a standalone module with no real expression compiler behind it must.
	filterBuilder     FilterExprBuilder
	projectionBuilder ProjectionExprBuilder

	used bool

	// oplogSource caches the result of the prelude scan (the located
	// collscan/virtual-scan node) so PlanStageData's three flags are read
	// off that node once, without re-walking the tree.
	oplogSource *LogicalNode
}

// FilterExprBuilder is the out-of-scope filter expression sub-builder
// boundary (§1): turns a FilterExpr into a physical filter stage on top of
// input, which already produces resultSlot.
type FilterExprBuilder func(b *Builder, expr *FilterExpr, input physfactory.PhysNode, resultSlot SlotId) physfactory.PhysNode

// ProjectionExprBuilder is the out-of-scope projection expression
// sub-builder boundary (§1): turns a ProjectionSpec into a physical
// projection stage on top of input, returning the new result slot.
type ProjectionExprBuilder func(b *Builder, spec *ProjectionSpec, input physfactory.PhysNode, resultSlot SlotId) (physfactory.PhysNode, SlotId)

func defaultFilterBuilder(b *Builder, expr *FilterExpr, input physfactory.PhysNode, resultSlot SlotId) physfactory.PhysNode {
	return b.factory.ConstructFilter(input, map[string]any{
		"predicate":  expr.Description,
		"resultSlot": resultSlot,
	})
}

func defaultProjectionBuilder(b *Builder, spec *ProjectionSpec, input physfactory.PhysNode, resultSlot SlotId) (physfactory.PhysNode, SlotId) {
	out := b.ids.Generate()
	root := b.factory.ConstructProject(input, map[string]any{
		"fields":     spec.Fields,
		"inSlot":     resultSlot,
		"outSlot":    out,
	})
	return root, out
}

// BuilderOption customizes a Builder at construction time; used only to
// override the default out-of-scope expression sub-builders.
type BuilderOption func(*Builder)

// WithFilterBuilder overrides the filter expression sub-builder.
func WithFilterBuilder(fn FilterExprBuilder) BuilderOption {
	return func(b *Builder) { b.filterBuilder = fn }
}

// WithProjectionBuilder overrides the projection expression sub-builder.
func WithProjectionBuilder(fn ProjectionExprBuilder) BuilderOption {
	return func(b *Builder) { b.projectionBuilder = fn }
}

// New constructs a Builder. factory, catalog, and sfFactory are the
// out-of-scope collaborators described in §1/§4.8; obs is optional
// (zero-value ObsHooks is a legal, silent no-op).
func New(
	ctx context.Context,
	factory physfactory.Factory,
	cat catalog.Catalog,
	sfFactory shardfilter.ShardFiltererFactory,
	query *CanonicalQuery,
	obs ObsHooks,
	opts ...BuilderOption,
) *Builder {
	if ctx == nil {
		ctx = context.Background()
	}
	ids := NewSlotIdGenerator()
	b := &Builder{
		ctx:               ctx,
		factory:           factory,
		catalog:           cat,
		sfFactory:         sfFactory,
		query:             query,
		ids:               ids,
		frames:            NewFrameIdGenerator(),
		spools:            NewSpoolIdGenerator(),
		env:               NewRuntimeEnvironment(ids),
		obs:               obs,
		filterBuilder:     defaultFilterBuilder,
		projectionBuilder: defaultProjectionBuilder,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build is the top-level entry point: lowers tree under the given
// top-level requirements and returns the physical root plus PlanStageData.
// Build may be called exactly once per Builder.
func (b *Builder) Build(tree *LogicalNode, reqs RequirementsSet) (_ physfactory.PhysNode, _ *PlanStageData, err error) {
	if b.used {
		return nil, nil, errors.AssertionFailedf("stagebuilder: Build called twice on the same Builder instance")
	}
	b.used = true
	b.ctx = logtags.AddTag(b.ctx, "build", int64(tree.NodeId))

	defer func() {
		if r := recover(); r != nil {
			if causeErr, ok := r.(error); ok {
				if b.obs.OnContractViolation != nil {
					b.obs.OnContractViolation(tree.Kind, causeErr)
				}
				err = causeErr
				return
			}
			panic(r)
		}
	}()

	b.env.Install(EnvTimeZoneDB, "UTC")
	if b.query != nil && b.query.Collator != nil {
		b.env.Install(EnvCollator, b.query.Collator)
	}

	b.oplogSource = findOplogSourceNode(tree)

	root, bindings := b.build(tree, reqs)

	if reqs.Has(SlotResult) {
		if _, ok := bindings.Get(SlotResult); !ok {
			assertf("Build postcondition: result requested but not bound")
		}
	}
	if b.query != nil && b.query.NeedsOplogTs {
		if _, ok := bindings.Get(SlotOplogTs); !ok {
			assertf("Build postcondition: oplogTs required by query but not bound")
		}
	}
	if reqs.Has(SlotRecordId) {
		if _, ok := bindings.Get(SlotRecordId); !ok {
			assertf("Build postcondition: recordId requested but not bound")
		}
	}

	data := &PlanStageData{
		Env:      b.env,
		Bindings: bindings,
	}
	if b.oplogSource != nil {
		data.ShouldTrackLatestOplogTimestamp = b.oplogSource.TracksOplogTs
		data.ShouldTrackResumeToken = b.oplogSource.RequestsResumeToken
		data.ShouldUseTailableScan = b.oplogSource.Tailable
	}
	return root, data, nil
}
