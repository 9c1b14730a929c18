package stagebuilder

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// BuildErrorCode is the stable, user-visible failure taxonomy (§7). Unlike
// contract violations (raised via errors.AssertionFailedf and recovered at
// the Build boundary, see builder.go), these are ordinary returned errors.
type BuildErrorCode int

const (
	// CodeParallelArrays is raised when a sort pattern's parallel-arrays
	// guard would trip at runtime: more than one sort-key path evaluated to
	// an array for some document.
	CodeParallelArrays BuildErrorCode = iota + 1
	// CodeFTSNonObject is embedded in the text-match filter expression and
	// surfaced when the subject of ftsMatch is not an object.
	CodeFTSNonObject
	// CodeReadUnavailable is raised by the lock-acquisition callback when a
	// scan's target namespace cannot currently serve reads.
	CodeReadUnavailable
)

func (c BuildErrorCode) String() string {
	switch c {
	case CodeParallelArrays:
		return "BadValue/ParallelArrays"
	case CodeFTSNonObject:
		return "FTSNonObjectSubject"
	case CodeReadUnavailable:
		return "ReadUnavailable"
	default:
		return "Unknown"
	}
}

// BuildError is a plain, returned (never panicked) user-visible failure.
// Contract violations use errors.AssertionFailedf instead and are only ever
// raised from within the recover-and-classify boundary in Build.
type BuildError struct {
	Code BuildErrorCode
	msg  string
	Node PlanNodeId
	err  error
}

func (e *BuildError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *BuildError) Unwrap() error { return e.err }

func newBuildError(code BuildErrorCode, node PlanNodeId, msg string) *BuildError {
	return &BuildError{Code: code, Node: node, msg: msg}
}

func wrapBuildError(code BuildErrorCode, node PlanNodeId, msg string, cause error) *BuildError {
	return &BuildError{Code: code, Node: node, msg: msg, err: errors.Wrapf(cause, "%s", redact.Safe(msg))}
}

// assertf raises a contract violation: a bug in the tree the planner handed
// us, or in this package itself, never a user-correctable condition. It
// panics; Build's deferred recover classifies it back into a returned error
// (mirroring the teacher's build() recover-and-classify pattern).
func assertf(format string, args ...interface{}) {
	panic(errors.AssertionFailedf(format, args...))
}

// assertKindf annotates an assertion failure with the offending node kind,
// marked redact.Safe since node kinds are never user data.
func assertKindf(kind NodeKind, format string, args ...interface{}) {
	panic(errors.AssertionFailedf("%s: "+format, append([]interface{}{redact.Safe(kind.String())}, args...)...))
}
