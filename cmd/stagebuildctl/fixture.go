package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/viix-io/docplan/internal/catalog"
	"github.com/viix-io/docplan/internal/stagebuilder"
)

// fixture is the on-disk JSON shape the CLI front door reads: a logical
// tree plus the small set of query options and catalog entries needed to
// drive one Build call manually, outside of tests (§6 expansion).
type fixture struct {
	Collection   string            `json:"collection"`
	Tree         fixtureNode       `json:"tree"`
	Requirements []string          `json:"requirements"`
	Query        fixtureQuery      `json:"query"`
	Catalog      fixtureCatalog    `json:"catalog"`
}

type fixtureQuery struct {
	Tailable     bool   `json:"tailable"`
	NeedsOplogTs bool   `json:"needsOplogTs"`
	CollatorName string `json:"collator,omitempty"`
}

type fixtureCatalog struct {
	Indexes []fixtureIndex `json:"indexes,omitempty"`
	FTS     []fixtureFTS   `json:"fts,omitempty"`
}

type fixtureIndex struct {
	Name       string            `json:"name"`
	KeyPattern []fixtureKeyPart  `json:"keyPattern"`
	Multikey   bool              `json:"multikey,omitempty"`
	Sparse     bool              `json:"sparse,omitempty"`
}

type fixtureFTS struct {
	IndexName string `json:"indexName"`
	Language  string `json:"language"`
}

type fixtureKeyPart struct {
	Path      string `json:"path"`
	Ascending bool   `json:"ascending"`
	Hashed    bool   `json:"hashed,omitempty"`
}

type fixtureNode struct {
	Kind                string           `json:"kind"`
	NodeId              int64            `json:"nodeId"`
	Children            []fixtureNode    `json:"children,omitempty"`
	Collection          string           `json:"collection,omitempty"`
	IndexName           string           `json:"indexName,omitempty"`
	KeyPattern          []fixtureKeyPart `json:"keyPattern,omitempty"`
	TracksOplogTs       bool             `json:"tracksOplogTs,omitempty"`
	RequestsResumeToken bool             `json:"requestsResumeToken,omitempty"`
	Tailable            bool             `json:"tailable,omitempty"`
	RequiresReadLock    bool             `json:"requiresReadLock,omitempty"`
	SimulatesIndex      bool             `json:"simulatesIndex,omitempty"`
	LimitValue          int64            `json:"limitValue,omitempty"`
	SkipValue           int64            `json:"skipValue,omitempty"`
	SortPattern         []fixtureKeyPart `json:"sortPattern,omitempty"`
	Dedup               bool             `json:"dedup,omitempty"`
	ProjectionFields    []string         `json:"projectionFields,omitempty"`
	ShardKeyPattern     []fixtureKeyPart `json:"shardKeyPattern,omitempty"`
	ResidualFilter      string           `json:"residualFilter,omitempty"`
}

var kindByName = map[string]stagebuilder.NodeKind{
	"COLLSCAN":            stagebuilder.KindCollScan,
	"VIRTUAL_SCAN":        stagebuilder.KindVirtualScan,
	"IXSCAN":              stagebuilder.KindIxScan,
	"FETCH":               stagebuilder.KindFetch,
	"LIMIT":               stagebuilder.KindLimit,
	"SKIP":                stagebuilder.KindSkip,
	"SORT_SIMPLE":         stagebuilder.KindSortSimple,
	"SORT_DEFAULT":        stagebuilder.KindSortDefault,
	"SORT_KEY_GENERATOR":  stagebuilder.KindSortKeyGenerator,
	"PROJECTION_SIMPLE":   stagebuilder.KindProjSimple,
	"PROJECTION_COVERED":  stagebuilder.KindProjCovered,
	"PROJECTION_DEFAULT":  stagebuilder.KindProjDefault,
	"OR":                  stagebuilder.KindOr,
	"TEXT_OR":             stagebuilder.KindTextOr,
	"TEXT_MATCH":          stagebuilder.KindTextMatch,
	"RETURN_KEY":          stagebuilder.KindReturnKey,
	"EOF":                 stagebuilder.KindEOF,
	"AND_HASH":            stagebuilder.KindAndHash,
	"AND_SORTED":          stagebuilder.KindAndSorted,
	"SORT_MERGE":          stagebuilder.KindSortMerge,
	"SHARDING_FILTER":     stagebuilder.KindShardingFilter,
}

var slotByName = map[string]stagebuilder.SlotName{
	"result":    stagebuilder.SlotResult,
	"recordId":  stagebuilder.SlotRecordId,
	"returnKey": stagebuilder.SlotReturnKey,
	"oplogTs":   stagebuilder.SlotOplogTs,
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &f, nil
}

func convertKeyPattern(parts []fixtureKeyPart) []stagebuilder.IndexKeyPart {
	out := make([]stagebuilder.IndexKeyPart, len(parts))
	for i, p := range parts {
		dir := stagebuilder.Descending
		if p.Ascending {
			dir = stagebuilder.Ascending
		}
		out[i] = stagebuilder.IndexKeyPart{Path: p.Path, Direction: dir, Hashed: p.Hashed}
	}
	return out
}

func convertSortPattern(parts []fixtureKeyPart) []stagebuilder.SortPart {
	out := make([]stagebuilder.SortPart, len(parts))
	for i, p := range parts {
		dir := stagebuilder.Descending
		if p.Ascending {
			dir = stagebuilder.Ascending
		}
		out[i] = stagebuilder.SortPart{Path: p.Path, Direction: dir}
	}
	return out
}

func convertNode(fn fixtureNode) (*stagebuilder.LogicalNode, error) {
	kind, ok := kindByName[fn.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown logical node kind %q", fn.Kind)
	}
	n := &stagebuilder.LogicalNode{
		Kind:                kind,
		NodeId:              stagebuilder.PlanNodeId(fn.NodeId),
		Collection:          fn.Collection,
		IndexName:           fn.IndexName,
		KeyPattern:          convertKeyPattern(fn.KeyPattern),
		TracksOplogTs:       fn.TracksOplogTs,
		RequestsResumeToken: fn.RequestsResumeToken,
		Tailable:            fn.Tailable,
		RequiresReadLock:    fn.RequiresReadLock,
		SimulatesIndex:      fn.SimulatesIndex,
		LimitValue:          fn.LimitValue,
		SkipValue:           fn.SkipValue,
		SortPattern:         convertSortPattern(fn.SortPattern),
		Dedup:               fn.Dedup,
		ShardKeyPattern:     convertKeyPattern(fn.ShardKeyPattern),
	}
	if len(fn.ProjectionFields) > 0 {
		n.Projection = &stagebuilder.ProjectionSpec{Fields: fn.ProjectionFields}
	}
	if fn.ResidualFilter != "" {
		n.ResidualFilter = &stagebuilder.FilterExpr{Description: fn.ResidualFilter}
	}
	for _, c := range fn.Children {
		child, err := convertNode(c)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

func convertRequirements(names []string) (stagebuilder.RequirementsSet, error) {
	var slots []stagebuilder.SlotName
	for _, name := range names {
		slot, ok := slotByName[name]
		if !ok {
			return stagebuilder.RequirementsSet{}, fmt.Errorf("unknown requirement name %q", name)
		}
		slots = append(slots, slot)
	}
	return stagebuilder.NewRequirementsSet(slots...), nil
}

func buildCatalog(collection string, fc fixtureCatalog) *catalog.InMemCatalog {
	cat := catalog.NewInMemCatalog()
	for _, idx := range fc.Indexes {
		parts := make([]catalog.IndexKeyPart, len(idx.KeyPattern))
		for i, p := range idx.KeyPattern {
			parts[i] = catalog.IndexKeyPart{Path: p.Path, Ascending: p.Ascending}
		}
		cat.AddIndex(collection, &catalog.IndexDescriptor{
			Name:       idx.Name,
			KeyPattern: parts,
			Multikey:   idx.Multikey,
			Sparse:     idx.Sparse,
		})
	}
	for _, f := range fc.FTS {
		cat.AddFTSDescriptor(collection, &catalog.FTSDescriptor{
			IndexName: f.IndexName,
			Matcher:   &catalog.FTSMatcher{Language: f.Language},
		})
	}
	return cat
}
