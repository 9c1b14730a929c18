package stagebuilder

import "github.com/viix-io/docplan/internal/physfactory"

// Explain renders root as an indented PhysNode tree, the format the CLI's
// --explain flag prints (§6 expansion). Grounded on the teacher's
// exec/explain/emit.go tree-walk-and-print skeleton, pared down to this
// module's much smaller physical operator set (no FK cascades, no
// distributed spans).
func Explain(root physfactory.PhysNode) string {
	return physfactory.Dump(root)
}
