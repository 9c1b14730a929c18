package physfactory

import (
	"fmt"
	"sort"
	"strings"
)

// node is the reference, introspectable PhysNode: a kind, its attrs, and
// its children in construction order. Good enough for the §8 scenario
// table's structural assertions, nowhere near a real executable plan.
type node struct {
	kind     NodeKind
	attrs    map[string]any
	children []PhysNode
}

func (n *node) Kind() NodeKind { return n.kind }

// Attrs returns the attribute bag a node was constructed with, exposed for
// test assertions (e.g. asserting a SORT node's "directions" attr).
func (n *node) Attrs() map[string]any { return n.attrs }

// Children returns a node's children in construction order.
func (n *node) Children() []PhysNode { return n.children }

// MemFactory is the reference in-memory implementation of physfactory.Factory.
// It performs no optimization and no real execution; each constructor
// simply records a node in the introspectable tree.
type MemFactory struct{}

// New returns a ready-to-use reference factory. It carries no state of its
// own; every call is independent.
func New() *MemFactory { return &MemFactory{} }

func (f *MemFactory) ConstructCollScan(attrs map[string]any) PhysNode {
	return &node{kind: KindCollScan, attrs: attrs}
}

func (f *MemFactory) ConstructIxScan(attrs map[string]any) PhysNode {
	return &node{kind: KindIxScan, attrs: attrs}
}

func (f *MemFactory) ConstructVirtualScan(attrs map[string]any) PhysNode {
	return &node{kind: KindVirtualScan, attrs: attrs}
}

func (f *MemFactory) ConstructFilter(input PhysNode, attrs map[string]any) PhysNode {
	return &node{kind: KindFilter, attrs: attrs, children: []PhysNode{input}}
}

func (f *MemFactory) ConstructProject(input PhysNode, attrs map[string]any) PhysNode {
	return &node{kind: KindProject, attrs: attrs, children: []PhysNode{input}}
}

func (f *MemFactory) ConstructSort(input PhysNode, attrs map[string]any) PhysNode {
	return &node{kind: KindSort, attrs: attrs, children: []PhysNode{input}}
}

func (f *MemFactory) ConstructHashJoin(outer, inner PhysNode, attrs map[string]any) PhysNode {
	return &node{kind: KindHashJoin, attrs: attrs, children: []PhysNode{outer, inner}}
}

func (f *MemFactory) ConstructMergeJoin(outer, inner PhysNode, attrs map[string]any) PhysNode {
	return &node{kind: KindMergeJoin, attrs: attrs, children: []PhysNode{outer, inner}}
}

func (f *MemFactory) ConstructLoopJoin(outer, inner PhysNode, attrs map[string]any) PhysNode {
	return &node{kind: KindLoopJoin, attrs: attrs, children: []PhysNode{outer, inner}}
}

func (f *MemFactory) ConstructSortedMerge(children []PhysNode, attrs map[string]any) PhysNode {
	return &node{kind: KindSortedMerge, attrs: attrs, children: children}
}

func (f *MemFactory) ConstructUnion(children []PhysNode, attrs map[string]any) PhysNode {
	return &node{kind: KindUnion, attrs: attrs, children: children}
}

func (f *MemFactory) ConstructUnique(input PhysNode, attrs map[string]any) PhysNode {
	return &node{kind: KindUnique, attrs: attrs, children: []PhysNode{input}}
}

func (f *MemFactory) ConstructLimitSkip(input PhysNode, attrs map[string]any) PhysNode {
	return &node{kind: KindLimitSkip, attrs: attrs, children: []PhysNode{input}}
}

func (f *MemFactory) ConstructMakeObject(input PhysNode, attrs map[string]any) PhysNode {
	children := []PhysNode{}
	if input != nil {
		children = append(children, input)
	}
	return &node{kind: KindMakeObject, attrs: attrs, children: children}
}

func (f *MemFactory) ConstructTraverse(input PhysNode, attrs map[string]any) PhysNode {
	return &node{kind: KindTraverse, attrs: attrs, children: []PhysNode{input}}
}

func (f *MemFactory) ConstructNothing(attrs map[string]any) PhysNode {
	return &node{kind: KindNothing, attrs: attrs}
}

// Dump renders n and its descendants as an indented tree, the shape the
// CLI's --explain flag prints (see cmd/stagebuildctl and explain.go).
func Dump(n PhysNode) string {
	var b strings.Builder
	dump(&b, n, 0)
	return b.String()
}

func dump(b *strings.Builder, n PhysNode, depth int) {
	if n == nil {
		return
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(string(n.Kind()))
	if nn, ok := n.(*node); ok && len(nn.attrs) > 0 {
		keys := make([]string, 0, len(nn.attrs))
		for k := range nn.attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s=%v", k, nn.attrs[k])
		}
		b.WriteString("}")
	}
	b.WriteString("\n")
	if nn, ok := n.(*node); ok {
		for _, c := range nn.children {
			dump(b, c, depth+1)
		}
	}
}
