package stagebuilder

import (
	"fmt"
	"sort"
	"strings"
)

// RuntimeEnvName is one of the closed set of contractual runtime-environment
// slot names (§3, §6).
type RuntimeEnvName string

const (
	// EnvTimeZoneDB is always installed before translation starts.
	EnvTimeZoneDB RuntimeEnvName = "timeZoneDB"
	// EnvCollator is installed iff the query carries a collator.
	EnvCollator RuntimeEnvName = "collator"
	// EnvResumeRecordId is installed only while building a tailable union.
	EnvResumeRecordId RuntimeEnvName = "resumeRecordId"
)

// Collator is an opaque handle to the (out-of-scope) collation engine; the
// builder never interprets it beyond passing it to collComparisonKey calls
// in the sort-key builder.
type Collator struct {
	Locale string
}

// RuntimeEnvironment is the process-wide, per-query registry of named global
// slots (§3). It is owned by exactly one Builder instance for the lifetime
// of one build.
type RuntimeEnvironment struct {
	slotIds map[RuntimeEnvName]SlotId
	values  map[RuntimeEnvName]any
	gen     *SlotIdGenerator
}

// NewRuntimeEnvironment returns an empty environment sharing gen with the
// rest of the build.
func NewRuntimeEnvironment(gen *SlotIdGenerator) *RuntimeEnvironment {
	return &RuntimeEnvironment{
		slotIds: make(map[RuntimeEnvName]SlotId),
		values:  make(map[RuntimeEnvName]any),
		gen:     gen,
	}
}

// Install registers name with an initial value, allocating a fresh global
// slot id for it. Installing the same name twice is a contract violation:
// the registry is populated once per build, never mutated piecewise after.
func (e *RuntimeEnvironment) Install(name RuntimeEnvName, value any) SlotId {
	if _, ok := e.slotIds[name]; ok {
		assertf("runtime environment slot %q installed twice", name)
	}
	id := e.gen.Generate()
	e.slotIds[name] = id
	e.values[name] = value
	return id
}

// Lookup returns the slot id and value installed for name, or false if
// name was never installed for this build.
func (e *RuntimeEnvironment) Lookup(name RuntimeEnvName) (SlotId, any, bool) {
	id, ok := e.slotIds[name]
	if !ok {
		return 0, nil, false
	}
	return id, e.values[name], ok
}

// Has reports whether name was installed.
func (e *RuntimeEnvironment) Has(name RuntimeEnvName) bool {
	_, ok := e.slotIds[name]
	return ok
}

// MustLookup is Lookup but raises a contract violation if absent. No
// translator in this package calls it; and-hash, for instance, uses Lookup
// and simply omits the collator when none is installed.
func (e *RuntimeEnvironment) MustLookup(name RuntimeEnvName) (SlotId, any) {
	id, v, ok := e.Lookup(name)
	if !ok {
		assertf("runtime environment slot %q required but not installed", name)
	}
	return id, v
}

// Set overwrites the value (not the slot id) bound to an already-installed
// name; used only by the tailable-union driver's conceptual contract
// (resumeRecordId's value is mutated between cursor iterations at execution
// time, not during build, but the hook lives here for symmetry and tests).
func (e *RuntimeEnvironment) Set(name RuntimeEnvName, value any) {
	if _, ok := e.slotIds[name]; !ok {
		assertf("runtime environment slot %q set before install", name)
	}
	e.values[name] = value
}

// DumpString renders a deterministic, sorted debug dump of every installed
// name, its slot id, and value, for inclusion in the top-level debug output
// (§6).
func (e *RuntimeEnvironment) DumpString() string {
	names := make([]string, 0, len(e.slotIds))
	for n := range e.slotIds {
		names = append(names, string(n))
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("env{")
	for i, n := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=s%d(%v)", n, e.slotIds[RuntimeEnvName(n)], e.values[RuntimeEnvName(n)])
	}
	b.WriteString("}")
	return b.String()
}
