// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"fmt"

	"github.com/fnlbuild/fnlbuild/internal/tree"
)

type (
	// Branch is one independent top-level description with its build order.
	Branch struct {
		// Top is the handle of the top-level description.
		Top string
		// Node is Top's identifier in the result tree.
		Node string
		// Order lists the descriptions of the branch leaf-first, ending with Top.
		Order []string
	}

	// Result is the outcome of a successful Resolve.
	Result struct {
		Tree *tree.Tree
		// Root is the synthetic root node.
		Root     string
		Branches []Branch
		// Files maps each handle to the candidate file declaring it.
		Files map[string]string
		// Dropped lists sources no description owns, in drop order.
		Dropped []string
		Passes  int
		records map[string]*Record
	}
)

func (rn *run) result() (*Result, error) {
	res := &Result{
		Tree:    rn.tree,
		Root:    rn.root,
		Files:   make(map[string]string, len(rn.handles)),
		Dropped: rn.dropped,
		Passes:  rn.pass,
		records: rn.records,
	}
	for handle, rec := range rn.handles {
		res.Files[handle] = rec.File
	}

	tops, err := rn.tree.Children(rn.root)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(rn.handles))
	for _, top := range tops {
		topRec := rn.records[top]
		if topRec == nil || topRec.Kind != KindDescription {
			continue
		}
		below, err := rn.tree.Descendants(top)
		if err != nil {
			return nil, err
		}
		b := Branch{Top: topRec.Term, Node: top}
		for _, id := range append(below, top) {
			rec := rn.records[id]
			if rec == nil || rec.Kind != KindDescription || seen[rec.Term] {
				continue
			}
			seen[rec.Term] = true
			b.Order = append(b.Order, rec.Term)
		}
		res.Branches = append(res.Branches, b)
	}
	return res, nil
}

// BuildOrder flattens the branches into one leaf-first list of handles.
func (res *Result) BuildOrder() []string {
	var out []string
	for _, b := range res.Branches {
		out = append(out, b.Order...)
	}
	return out
}

// Tops returns the top-level handles in discovery order.
func (res *Result) Tops() []string {
	out := make([]string, len(res.Branches))
	for i, b := range res.Branches {
		out[i] = b.Top
	}
	return out
}

// Record returns the bookkeeping for a result tree node.
func (res *Result) Record(node string) (*Record, bool) {
	rec, ok := res.records[node]
	return rec, ok
}

// Label is the display text of a result tree node: "handle: file" for
// descriptions and the term for sources.
func (res *Result) Label(n tree.Node) string {
	rec, ok := res.records[n.ID]
	if !ok {
		return n.ID
	}
	if rec.Kind == KindDescription {
		return fmt.Sprintf("%s: %s", rec.Term, rec.File)
	}
	return rec.Term
}

// RenderBranch draws a branch with Label as node text.
func (res *Result) RenderBranch(b Branch) (string, error) {
	return res.Tree.RenderFunc(b.Node, res.Label)
}
