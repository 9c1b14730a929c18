// Package catalog supplies the thin index/collection metadata lookup
// boundary the stage builder depends on (§1 "out of scope", §4.8). Grounded
// on cockroachdb-cockroach's pkg/sql/opt/testutils/testcat: a small
// in-memory stand-in for a real catalog, wired so builder tests and the CLI
// front door have concrete descriptors to look up by name.
package catalog

// IndexKeyPart mirrors stagebuilder's own type structurally (dotted path +
// direction) so catalog stays importable without depending back on
// stagebuilder; the two are kept in sync by convention, same as the
// teacher's cat.Catalog staying independent of opt's own column types.
type IndexKeyPart struct {
	Path      string
	Ascending bool
}

// IndexDescriptor is a catalog entry for one index on one collection.
type IndexDescriptor struct {
	Name       string
	KeyPattern []IndexKeyPart
	Multikey   bool
	Sparse     bool
}

// FTSMatcher is an opaque handle to a compiled full-text matcher; the real
// matching engine is out of scope (§1), so this package only carries enough
// to satisfy the text-match translator's "embed a pointer to it" contract.
type FTSMatcher struct {
	Language string
}

// FTSDescriptor is a catalog entry for one full-text index.
type FTSDescriptor struct {
	IndexName string
	Matcher   *FTSMatcher
}

// Catalog is the lookup interface translators consult. Reads must be pure:
// a missing entry is reported via the boolean, never by panicking, so
// callers can turn an absence into their own contract-violation message
// with the offending node's provenance attached.
type Catalog interface {
	LookupIndex(collection, indexName string) (*IndexDescriptor, bool)
	LookupFTSDescriptor(collection, indexName string) (*FTSDescriptor, bool)
}

// InMemCatalog is the reference Catalog: two plain maps, populated directly
// by tests and by the CLI front door's fixture loader.
type InMemCatalog struct {
	indexes map[string]*IndexDescriptor
	fts     map[string]*FTSDescriptor
}

// NewInMemCatalog returns an empty catalog.
func NewInMemCatalog() *InMemCatalog {
	return &InMemCatalog{
		indexes: make(map[string]*IndexDescriptor),
		fts:     make(map[string]*FTSDescriptor),
	}
}

func key(collection, name string) string { return collection + "\x00" + name }

// AddIndex registers idx under (collection, idx.Name), overwriting any
// previous entry with the same key.
func (c *InMemCatalog) AddIndex(collection string, idx *IndexDescriptor) {
	c.indexes[key(collection, idx.Name)] = idx
}

// AddFTSDescriptor registers d under (collection, d.IndexName).
func (c *InMemCatalog) AddFTSDescriptor(collection string, d *FTSDescriptor) {
	c.fts[key(collection, d.IndexName)] = d
}

// LookupIndex implements Catalog.
func (c *InMemCatalog) LookupIndex(collection, indexName string) (*IndexDescriptor, bool) {
	d, ok := c.indexes[key(collection, indexName)]
	return d, ok
}

// LookupFTSDescriptor implements Catalog.
func (c *InMemCatalog) LookupFTSDescriptor(collection, indexName string) (*FTSDescriptor, bool) {
	d, ok := c.fts[key(collection, indexName)]
	return d, ok
}
