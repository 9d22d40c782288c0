// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/fnlbuild/fnlbuild/internal/tree"
)

type fakeSearcher struct {
	calls   [][]string
	err     error
	matches func(terms []string) []Match
}

func (f *fakeSearcher) Search(_ context.Context, terms []string, _ string) ([]Match, error) {
	f.calls = append(f.calls, slices.Clone(terms))
	if f.err != nil {
		return nil, f.err
	}
	if f.matches == nil {
		return nil, nil
	}
	return f.matches(terms), nil
}

func writeCandidates(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func resolve(t *testing.T, dir string, sources []string, opts ...Option) *Result {
	t.Helper()
	res, err := NewResolver(NewScanSearcher(), opts...).Resolve(context.Background(), sources, dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return res
}

func children(t *testing.T, res *Result, node string) []string {
	t.Helper()
	kids, err := res.Tree.Children(node)
	if err != nil {
		t.Fatalf("Children(%q): %v", node, err)
	}
	return kids
}

func TestResolve_SingleDescription(t *testing.T) {
	t.Parallel()
	dir := writeCandidates(t, map[string]string{"F.fnl": "HANDLE\nF\na\nb\n"})

	res := resolve(t, dir, []string{"a", "b"})

	if tops := children(t, res, res.Root); !slices.Equal(tops, []string{"F"}) {
		t.Fatalf("top-level nodes = %v, want [F]", tops)
	}
	if kids := children(t, res, "F"); !slices.Equal(kids, []string{"a", "b"}) {
		t.Errorf("children of F = %v, want [a b]", kids)
	}
	if order := res.BuildOrder(); !slices.Equal(order, []string{"F"}) {
		t.Errorf("BuildOrder() = %v, want [F]", order)
	}
	if res.Files["F"] != "F.fnl" {
		t.Errorf("Files[F] = %q", res.Files["F"])
	}
	if len(res.Dropped) != 0 {
		t.Errorf("Dropped = %v", res.Dropped)
	}
	rec, ok := res.Record("a")
	if !ok || rec.Owner != "F" || rec.State() != StateLocked || rec.Kind != KindSource {
		t.Errorf("Record(a) = %+v", rec)
	}
	n, _ := res.Tree.Lookup("a")
	if n.Handle != "F" || !n.Locked {
		t.Errorf("node a = %+v", n)
	}
}

func TestResolve_MatchAtOrAboveHeaderIgnored(t *testing.T) {
	t.Parallel()
	dir := writeCandidates(t, map[string]string{
		"G.fnl": "TITLE a\na\nHANDLE\nG\n**\nb\n",
	})

	res := resolve(t, dir, []string{"a", "b"})

	if kids := children(t, res, "G"); !slices.Equal(kids, []string{"b"}) {
		t.Errorf("children of G = %v, want [b]", kids)
	}
	if !slices.Equal(res.Dropped, []string{"a"}) {
		t.Errorf("Dropped = %v, want [a]", res.Dropped)
	}
	if res.Tree.Contains("a") {
		t.Error("dropped source should be removed from the tree")
	}
}

func TestResolve_HandleOnDeclarationLineIsNotSelfOwned(t *testing.T) {
	t.Parallel()
	dir := writeCandidates(t, map[string]string{"F.fnl": "HANDLE\nF\na\n"})
	res := resolve(t, dir, []string{"a"})
	if p, _, _ := res.Tree.Parent("F"); p != res.Root {
		t.Errorf("F should be top level, parent = %q", p)
	}
}

func TestResolve_NestedDescriptions(t *testing.T) {
	t.Parallel()
	dir := writeCandidates(t, map[string]string{
		"APP.fnl": "HANDLE\nAPP\nLIB\nmain.c\n",
		"LIB.fnl": "HANDLE\nLIB\nx.c\n",
		"ETC.fnl": "HANDLE\nETC\nnotes.txt\n",
	})

	res := resolve(t, dir, []string{"x.c", "main.c", "ghost.c"})

	if tops := res.Tops(); !slices.Equal(tops, []string{"APP"}) {
		t.Fatalf("Tops() = %v, want [APP]", tops)
	}
	if order := res.BuildOrder(); !slices.Equal(order, []string{"LIB", "APP"}) {
		t.Errorf("BuildOrder() = %v, want [LIB APP]", order)
	}
	if kids := children(t, res, "LIB"); !slices.Equal(kids, []string{"x.c"}) {
		t.Errorf("children of LIB = %v", kids)
	}
	path, err := res.Tree.PathToRoot("x.c")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(path, []string{"x.c", "LIB", "APP", RootID}) {
		t.Errorf("PathToRoot(x.c) = %v", path)
	}
	if !slices.Equal(res.Dropped, []string{"ghost.c"}) {
		t.Errorf("Dropped = %v", res.Dropped)
	}
	if _, ok := res.Files["ETC"]; ok {
		t.Error("a description owning none of the sources must not appear")
	}
	if res.Passes != 2 {
		t.Errorf("Passes = %d, want 2", res.Passes)
	}
}

func TestResolve_IndependentBranches(t *testing.T) {
	t.Parallel()
	dir := writeCandidates(t, map[string]string{
		"A.fnl": "HANDLE\nA\na.c\n",
		"B.fnl": "HANDLE\nB\nb.c\n",
		"C.fnl": "HANDLE\nC\nA\n",
	})

	res := resolve(t, dir, []string{"b.c", "a.c"})

	want := []Branch{
		{Top: "B", Node: "B", Order: []string{"B"}},
		{Top: "C", Node: "C", Order: []string{"A", "C"}},
	}
	if len(res.Branches) != len(want) {
		t.Fatalf("Branches = %+v", res.Branches)
	}
	for i, b := range res.Branches {
		if b.Top != want[i].Top || b.Node != want[i].Node || !slices.Equal(b.Order, want[i].Order) {
			t.Errorf("branch %d = %+v, want %+v", i, b, want[i])
		}
	}
}

func TestResolve_FirstMatchWins(t *testing.T) {
	t.Parallel()
	dir := writeCandidates(t, map[string]string{
		"A.fnl": "HANDLE\nA\nshared.h\n",
		"B.fnl": "HANDLE\nB\nshared.h\n",
	})

	res := resolve(t, dir, []string{"shared.h"})
	if order := res.BuildOrder(); !slices.Equal(order, []string{"A"}) {
		t.Errorf("BuildOrder() = %v, want [A]", order)
	}

	// The resolver honours the searcher's order, not file names.
	fake := &fakeSearcher{matches: func(terms []string) []Match {
		if slices.Contains(terms, "shared.h") {
			return []Match{
				{File: "B.fnl", Line: 3, Text: "shared.h"},
				{File: "A.fnl", Line: 3, Text: "shared.h"},
			}
		}
		return nil
	}}
	res, err := NewResolver(fake).Resolve(context.Background(), []string{"shared.h"}, dir)
	if err != nil {
		t.Fatal(err)
	}
	if order := res.BuildOrder(); !slices.Equal(order, []string{"B"}) {
		t.Errorf("BuildOrder() = %v, want [B]", order)
	}
}

func TestResolve_DuplicateHandleFirstFileWins(t *testing.T) {
	t.Parallel()
	dir := writeCandidates(t, map[string]string{
		"a.fnl": "HANDLE\nH\ny.c\n",
		"z.fnl": "HANDLE\nH\ns.c\n",
	})

	res := resolve(t, dir, []string{"y.c", "s.c"})
	if got := res.Files["H"]; got != "a.fnl" {
		t.Errorf(`Files["H"] = %q, want "a.fnl"`, got)
	}
	if !slices.Equal(res.Dropped, []string{"s.c"}) {
		t.Errorf("Dropped = %v, want [s.c]", res.Dropped)
	}
	if order := res.BuildOrder(); !slices.Equal(order, []string{"H"}) {
		t.Errorf("BuildOrder() = %v, want [H]", order)
	}
}

func TestResolve_ReferenceCycle(t *testing.T) {
	t.Parallel()
	dir := writeCandidates(t, map[string]string{
		"A.fnl": "HANDLE\nA\nB\ns1\n",
		"B.fnl": "HANDLE\nB\nA\n",
	})

	_, err := NewResolver(NewScanSearcher()).Resolve(context.Background(), []string{"s1"}, dir)
	if !errors.Is(err, ErrReferenceCycle) {
		t.Fatalf("expected ErrReferenceCycle, got %v", err)
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	if !slices.Equal(cycleErr.Cycle, []string{"A", "B", "A"}) {
		t.Errorf("Cycle = %v, want [A B A]", cycleErr.Cycle)
	}
}

func TestResolve_SelfReferenceBelowHeader(t *testing.T) {
	t.Parallel()
	dir := writeCandidates(t, map[string]string{"A.fnl": "HANDLE\nA\ns1\nA\n"})
	_, err := NewResolver(NewScanSearcher()).Resolve(context.Background(), []string{"s1"}, dir)
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) || !slices.Equal(cycleErr.Cycle, []string{"A", "A"}) {
		t.Fatalf("expected cycle [A A], got %v", err)
	}
}

func TestResolve_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		dir  string
	}{
		{"missing directory", filepath.Join(t.TempDir(), "absent")},
		{"not a directory", file},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fake := &fakeSearcher{}
			_, err := NewResolver(fake).Resolve(context.Background(), []string{"a"}, tt.dir)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) || cfgErr.Path != tt.dir {
				t.Errorf("ConfigurationError = %+v", cfgErr)
			}
			if len(fake.calls) != 0 {
				t.Errorf("searcher called %d times before configuration was validated", len(fake.calls))
			}
		})
	}
}

func TestResolve_SearchFailureIsFatal(t *testing.T) {
	t.Parallel()
	dir := writeCandidates(t, map[string]string{"F.fnl": "HANDLE\nF\na\n"})
	boom := errors.New("grep exploded")
	_, err := NewResolver(&fakeSearcher{err: boom}).Resolve(context.Background(), []string{"a"}, dir)
	if !errors.Is(err, ErrSearch) || !errors.Is(err, boom) {
		t.Fatalf("expected ErrSearch wrapping the cause, got %v", err)
	}
}

func TestResolve_NotConverged(t *testing.T) {
	t.Parallel()
	dir := writeCandidates(t, map[string]string{"F.fnl": "HANDLE\nF\na\n"})
	_, err := NewResolver(NewScanSearcher(), WithMaxPasses(1)).Resolve(context.Background(), []string{"a"}, dir)
	var ncErr *NotConvergedError
	if !errors.As(err, &ncErr) || !errors.Is(err, ErrNotConverged) {
		t.Fatalf("expected NotConvergedError, got %v", err)
	}
	if ncErr.Passes != 1 || !slices.Equal(ncErr.Pending, []string{"F"}) {
		t.Errorf("NotConvergedError = %+v", ncErr)
	}
}

func TestResolve_CanceledContext(t *testing.T) {
	t.Parallel()
	dir := writeCandidates(t, map[string]string{"F.fnl": "HANDLE\nF\na\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fake := &fakeSearcher{}
	_, err := NewResolver(fake).Resolve(ctx, []string{"a"}, dir)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(fake.calls) != 0 {
		t.Error("no search should run on a canceled context")
	}
}

func TestResolve_WithoutSources(t *testing.T) {
	t.Parallel()
	dir := writeCandidates(t, map[string]string{
		"APP.fnl": "HANDLE\nAPP\nLIB\nmain.c\n",
		"LIB.fnl": "HANDLE\nLIB\nx.c\n",
	})
	res := resolve(t, dir, []string{"x.c", "main.c"}, WithSources(false))

	if kids := children(t, res, "APP"); !slices.Equal(kids, []string{"LIB"}) {
		t.Errorf("children of APP = %v, want [LIB]", kids)
	}
	if res.Tree.Contains("x.c") || res.Tree.Contains("main.c") {
		t.Error("source leaves should be pruned")
	}
	if order := res.BuildOrder(); !slices.Equal(order, []string{"LIB", "APP"}) {
		t.Errorf("BuildOrder() = %v", order)
	}
}

func TestResolve_DuplicateSources(t *testing.T) {
	t.Parallel()
	dir := writeCandidates(t, map[string]string{"F.fnl": "HANDLE\nF\na\n"})

	res := resolve(t, dir, []string{"a", "a"})
	if kids := children(t, res, "F"); !slices.Equal(kids, []string{"a", "a."}) {
		t.Errorf("children of F = %v, want [a a.]", kids)
	}
	rec, _ := res.Record("a.")
	if rec == nil || rec.Term != "a" || rec.Owner != "F" {
		t.Errorf("Record(a.) = %+v", rec)
	}

	_, err := NewResolver(NewScanSearcher(), WithDuplicatePolicy(tree.DuplicateReject)).
		Resolve(context.Background(), []string{"a", "a"}, dir)
	if !errors.Is(err, tree.ErrDuplicateID) {
		t.Errorf("reject policy: got %v, want ErrDuplicateID", err)
	}
}

func TestResolve_SearchesEachTermOncePerPass(t *testing.T) {
	t.Parallel()
	dir := writeCandidates(t, map[string]string{"F.fnl": "HANDLE\nF\na\n"})
	fake := &fakeSearcher{matches: func(terms []string) []Match {
		if slices.Contains(terms, "a") {
			return []Match{{File: "F.fnl", Line: 3, Text: "a"}}
		}
		return []Match{{File: "F.fnl", Line: 2, Text: "F"}}
	}}
	if _, err := NewResolver(fake).Resolve(context.Background(), []string{"a", "a", "zz"}, dir); err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"a", "zz"}, {"F"}}
	if len(fake.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", fake.calls, want)
	}
	for i := range want {
		if !slices.Equal(fake.calls[i], want[i]) {
			t.Errorf("pass %d terms = %v, want %v", i+1, fake.calls[i], want[i])
		}
	}
}

func TestResolve_Events(t *testing.T) {
	t.Parallel()
	dir := writeCandidates(t, map[string]string{
		"APP.fnl": "HANDLE\nAPP\nLIB\n",
		"LIB.fnl": "HANDLE\nLIB\nx.c\n",
	})
	var marks []string
	observer := func(ev Event) { marks = append(marks, ev.Kind.Symbol()+ev.Term) }

	resolve(t, dir, []string{"x.c", "nope.c"}, WithObserver(observer))

	want := []string{"+LIB", "#x.c", "-nope.c", "+APP", "@LIB", "^APP"}
	if !slices.Equal(marks, want) {
		t.Errorf("events = %v, want %v", marks, want)
	}
}

func TestResult_RenderBranch(t *testing.T) {
	t.Parallel()
	dir := writeCandidates(t, map[string]string{
		"app.fnl": "HANDLE\nAPP\nLIB\nmain.c\n",
		"lib.fnl": "HANDLE\nLIB\nx.c\n",
	})
	res := resolve(t, dir, []string{"x.c", "main.c"})
	out, err := res.RenderBranch(res.Branches[0])
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"APP: app.fnl",
		"├─ main.c",
		"╰─ LIB: lib.fnl",
		"   ╰─ x.c",
		"",
	}, "\n")
	if out != want {
		t.Errorf("RenderBranch =\n%s\nwant\n%s", out, want)
	}
}
