package shardfilter

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestStaticRejectsMissingComponent(t *testing.T) {
	s := &Static{Pattern: []IndexKeyPart{{Path: "a"}}}
	require.True(t, s.Reject(bson.D{}))
}

func TestStaticAcceptsOwnedValue(t *testing.T) {
	doc := bson.D{{Key: "a", Value: "x"}}
	val, ok := lookup(doc, "a")
	require.True(t, ok)

	s := &Static{
		Pattern: []IndexKeyPart{{Path: "a"}},
		Owned:   map[string]map[string]bool{"a": {val.String(): true}},
	}
	require.False(t, s.Reject(doc))
}

func TestStaticRejectsUnownedValue(t *testing.T) {
	owned, ok := lookup(bson.D{{Key: "a", Value: "x"}}, "a")
	require.True(t, ok)

	s := &Static{
		Pattern: []IndexKeyPart{{Path: "a"}},
		Owned:   map[string]map[string]bool{"a": {owned.String(): true}},
	}
	require.True(t, s.Reject(bson.D{{Key: "a", Value: "y"}}))
}

func TestStaticUntrackedComponentAlwaysOwned(t *testing.T) {
	s := &Static{Pattern: []IndexKeyPart{{Path: "a"}}}
	require.False(t, s.Reject(bson.D{{Key: "a", Value: "anything"}}),
		"a component absent from Owned is always-owned")
}

func TestStaticNewFiltererIgnoresCollection(t *testing.T) {
	s := &Static{Pattern: []IndexKeyPart{{Path: "a"}}}
	f, err := s.NewFilterer("widgets")
	require.NoError(t, err)
	require.Same(t, s, f)
}
