package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viix-io/docplan/internal/obs"
	"github.com/viix-io/docplan/internal/physfactory"
	"github.com/viix-io/docplan/internal/shardfilter"
	"github.com/viix-io/docplan/internal/stagebuilder"
)

const sampleFixtureJSON = `{
  "collection": "widgets",
  "tree": {
    "kind": "FETCH",
    "collection": "widgets",
    "children": [
      {
        "kind": "IXSCAN",
        "collection": "widgets",
        "indexName": "a_1",
        "keyPattern": [{"path": "a", "ascending": true}]
      }
    ]
  },
  "requirements": ["result"],
  "query": {},
  "catalog": {}
}`

// TestCLIFixtureParsingMatchesDirectBuild is invariant 10 of §8: the CLI
// front door's fixture-to-Build pipeline must produce output identical to
// calling the Builder API directly on the equivalent logical tree, for the
// same logical tree and requirements. The CLI introduces no divergent
// behavior of its own — it is pure plumbing.
func TestCLIFixtureParsingMatchesDirectBuild(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleFixtureJSON), 0o644))

	f, err := loadFixture(path)
	require.NoError(t, err)
	require.Equal(t, "widgets", f.Collection)

	tree, err := convertNode(f.Tree)
	require.NoError(t, err)
	reqs, err := convertRequirements(f.Requirements)
	require.NoError(t, err)
	cat := buildCatalog(f.Collection, f.Catalog)

	sfFactory := &shardfilter.Static{}

	// The CLI path, as runBuild exercises it, minus the printing.
	cliBuilder := stagebuilder.New(context.Background(), physfactory.New(), cat, sfFactory,
		&stagebuilder.CanonicalQuery{}, obs.NewObsHooks(nil, nil))
	_, cliData, err := cliBuilder.Build(tree, reqs)
	require.NoError(t, err)

	// The equivalent tree built directly against the Builder API, bypassing
	// the fixture/JSON layer entirely.
	directTree := &stagebuilder.LogicalNode{
		Kind:       stagebuilder.KindFetch,
		Collection: "widgets",
		Children: []*stagebuilder.LogicalNode{
			{
				Kind:       stagebuilder.KindIxScan,
				Collection: "widgets",
				IndexName:  "a_1",
				KeyPattern: []stagebuilder.IndexKeyPart{{Path: "a", Direction: stagebuilder.Ascending}},
			},
		},
	}
	directBuilder := stagebuilder.New(context.Background(), physfactory.New(), cat, sfFactory,
		&stagebuilder.CanonicalQuery{}, stagebuilder.ObsHooks{})
	_, directData, err := directBuilder.Build(directTree, stagebuilder.NewRequirementsSet(stagebuilder.SlotResult))
	require.NoError(t, err)

	require.Equal(t, directData.DebugString(), cliData.DebugString(),
		"the CLI's fixture-driven build must match a direct Builder call byte for byte")
}

func TestConvertNodeRejectsUnknownKind(t *testing.T) {
	_, err := convertNode(fixtureNode{Kind: "NOT_A_REAL_KIND"})
	require.Error(t, err)
}

func TestConvertRequirementsRejectsUnknownSlot(t *testing.T) {
	_, err := convertRequirements([]string{"result", "not-a-real-slot"})
	require.Error(t, err)
}

func TestBuildCatalogScopesIndexesUnderTheFixtureCollection(t *testing.T) {
	fc := fixtureCatalog{
		Indexes: []fixtureIndex{{Name: "a_1", KeyPattern: []fixtureKeyPart{{Path: "a", Ascending: true}}}},
	}
	cat := buildCatalog("widgets", fc)

	_, ok := cat.LookupIndex("widgets", "a_1")
	require.True(t, ok)
	_, ok = cat.LookupIndex("", "a_1")
	require.False(t, ok, "the fixed catalog bug must not regress: indexes are scoped to the fixture collection, not empty string")
}
