// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

// edge is "from builds before to".
type edge struct{ from, to string }

func build(nodes []string, edges []edge) *Graph {
	g := New()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		g.AddEdge(e.from, e.to)
	}
	return g
}

func TestTopologicalSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		nodes []string
		edges []edge
		want  []string
	}{
		{name: "empty"},
		{name: "lone handle", nodes: []string{"core"}, want: []string{"core"}},
		{
			name:  "leaf to top",
			edges: []edge{{"core", "net"}, {"net", "app"}},
			want:  []string{"core", "net", "app"},
		},
		{
			name:  "shared leaf",
			edges: []edge{{"core", "net"}, {"core", "ui"}, {"net", "app"}, {"ui", "app"}},
			want:  []string{"core", "net", "ui", "app"},
		},
		{
			name:  "separate branches keep insertion order",
			nodes: []string{"tools", "core"},
			edges: []edge{{"core", "app"}, {"libx", "tools"}},
			want:  []string{"core", "libx", "app", "tools"},
		},
		{
			name:  "repeated edge",
			edges: []edge{{"core", "app"}, {"core", "app"}, {"core", "app"}},
			want:  []string{"core", "app"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := build(tt.nodes, tt.edges).TopologicalSort()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopologicalSort_Cycles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		edges   []edge
		members []string
	}{
		{
			name:    "two descriptions list each other",
			edges:   []edge{{"net", "app"}, {"app", "net"}},
			members: []string{"app", "net"},
		},
		{
			name:    "self reference",
			edges:   []edge{{"core", "core"}},
			members: []string{"core"},
		},
		{
			name:    "loop behind a clean prefix",
			edges:   []edge{{"core", "net"}, {"net", "ui"}, {"ui", "app"}, {"app", "net"}},
			members: []string{"app", "net", "ui"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := build(nil, tt.edges).TopologicalSort()
			if !errors.Is(err, ErrCycle) {
				t.Fatalf("expected ErrCycle, got %v", err)
			}
			var cycErr *CycleError
			if !errors.As(err, &cycErr) {
				t.Fatalf("expected *CycleError, got %T", err)
			}
			loop := cycErr.Cycle
			if len(loop) < 2 || loop[0] != loop[len(loop)-1] {
				t.Fatalf("cycle %v is not closed", loop)
			}
			members := slices.Clone(loop[:len(loop)-1])
			slices.Sort(members)
			if !slices.Equal(members, tt.members) {
				t.Errorf("cycle members = %v, want %v", members, tt.members)
			}
			for i := range len(loop) - 1 {
				if !slices.Contains(build(nil, tt.edges).adjacency[loop[i]], loop[i+1]) {
					t.Errorf("cycle step %s -> %s is not an edge", loop[i], loop[i+1])
				}
			}
		})
	}
}

func TestGraph_Nodes(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("core", "app")
	g.AddNode("core")

	if g.Len() != 2 {
		t.Errorf("Len = %d, want 2", g.Len())
	}
	if !g.HasNode("app") || g.HasNode("net") {
		t.Error("HasNode reports the wrong membership")
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()
	err := &CycleError{Cycle: []string{"app", "net", "app"}}
	if want := "dependency cycle detected: app -> net -> app"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
