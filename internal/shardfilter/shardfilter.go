// Package shardfilter supplies the post-read shard-ownership predicate
// boundary the stage builder depends on (§1 "out of scope", §4.8). Grounded
// on vitessio-vitess's go/vt/vtgate/planbuilder/operators/vindex.go: a
// vindex binds a subset of a row's columns to decide routing/ownership; a
// ShardFilterer binds a subset of an index key's components the same way
// and rejects rows that resolve to a shard key this process does not own.
package shardfilter

import "go.mongodb.org/mongo-driver/bson"

// IndexKeyPart mirrors stagebuilder's own type structurally, same rationale
// as catalog.IndexKeyPart.
type IndexKeyPart struct {
	Path      string
	Ascending bool
	Hashed    bool
}

// ShardFilterer decides, for one collection, whether a constructed shard
// key belongs to this shard.
type ShardFilterer interface {
	// KeyPattern returns the shard key's own pattern. The stage builder's
	// covered-path builder (§4.6) does not call it; it takes the shard key
	// from the logical node's ShardKeyPattern.
	KeyPattern() []IndexKeyPart
	// Reject reports whether shardKey does not belong to this shard. A
	// bson.RawValue zero value (Nothing) for any component always rejects.
	Reject(shardKey bson.D) bool
}

// ShardFiltererFactory constructs a ShardFilterer for a given collection;
// grounded on the spec's "shard-filterer factory" inbound collaborator
// (§6).
type ShardFiltererFactory interface {
	NewFilterer(collection string) (ShardFilterer, error)
}

// Static is the reference ShardFiltererFactory/ShardFilterer: every shard
// key value is checked against a fixed set of owned values per component,
// enough to drive and assert against in tests without a real sharding
// protocol.
type Static struct {
	Pattern []IndexKeyPart
	// Owned, when non-nil, maps a component path to the set of values this
	// shard owns for that component. A component absent from Owned is
	// treated as always-owned.
	Owned map[string]map[string]bool
}

// NewFilterer implements ShardFiltererFactory. collection is accepted for
// interface conformance but unused by the static reference implementation,
// which owns one fixed pattern regardless of collection.
func (s *Static) NewFilterer(collection string) (ShardFilterer, error) {
	return s, nil
}

// KeyPattern implements ShardFilterer.
func (s *Static) KeyPattern() []IndexKeyPart { return s.Pattern }

// Reject implements ShardFilterer.
func (s *Static) Reject(shardKey bson.D) bool {
	for _, part := range s.Pattern {
		val, ok := lookup(shardKey, part.Path)
		if !ok || (val.Type == 0 && len(val.Value) == 0) {
			return true
		}
		owned, tracked := s.Owned[part.Path]
		if !tracked {
			continue
		}
		if !owned[val.String()] {
			return true
		}
	}
	return false
}

func lookup(doc bson.D, path string) (bson.RawValue, bool) {
	for _, elem := range doc {
		if elem.Key == path {
			data, err := bson.Marshal(bson.D{{Key: "v", Value: elem.Value}})
			if err != nil {
				return bson.RawValue{}, false
			}
			return bson.Raw(data).Lookup("v"), true
		}
	}
	return bson.RawValue{}, false
}
