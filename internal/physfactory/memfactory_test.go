package physfactory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemFactoryConstructsIntrospectableTree(t *testing.T) {
	f := New()

	scan := f.ConstructCollScan(map[string]any{"collection": "widgets"})
	require.Equal(t, KindCollScan, scan.Kind())

	filtered := f.ConstructFilter(scan, map[string]any{"predicate": "x > 0"})
	require.Equal(t, KindFilter, filtered.Kind())

	joined := f.ConstructHashJoin(scan, filtered, map[string]any{"outerKey": 1})
	require.Equal(t, KindHashJoin, joined.Kind())

	node, ok := joined.(*node)
	require.True(t, ok)
	require.Len(t, node.Children(), 2)
	require.Equal(t, scan, node.Children()[0])
	require.Equal(t, filtered, node.Children()[1])
}

func TestDumpRendersIndentedTree(t *testing.T) {
	f := New()
	scan := f.ConstructCollScan(map[string]any{"collection": "widgets"})
	filtered := f.ConstructFilter(scan, map[string]any{"predicate": "x > 0"})

	out := Dump(filtered)
	require.Contains(t, out, "FILTER")
	require.Contains(t, out, "COLL_SCAN")
	// The child line must be indented one level deeper than its parent.
	lines := splitLines(out)
	require.True(t, len(lines) >= 2)
	require.Equal(t, 0, leadingSpaces(lines[0]))
	require.Equal(t, 2, leadingSpaces(lines[1]))
}

func TestConstructMakeObjectAllowsNilInput(t *testing.T) {
	f := New()
	obj := f.ConstructMakeObject(nil, map[string]any{"fields": []string{"a"}})
	n, ok := obj.(*node)
	require.True(t, ok)
	require.Empty(t, n.Children())
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, c := range s {
		if c == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	return lines
}

func leadingSpaces(s string) int {
	n := 0
	for _, c := range s {
		if c != ' ' {
			break
		}
		n++
	}
	return n
}
