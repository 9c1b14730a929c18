// Command stagebuildctl is a manual-exercise front door over the
// stagebuilder library (§6 expansion): it reads a JSON logical-tree
// fixture and a small set of query options, builds a Catalog +
// PhysFactory from the same file, runs Build, and prints the §6 debug
// string plus, with --explain, a PhysNode tree dump. It is not part of the
// in-scope core and carries no invariants of its own beyond matching
// Builder.Build byte for byte (§8 invariant 10).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
