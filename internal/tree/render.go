// SPDX-License-Identifier: MPL-2.0

package tree

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Line-art pieces. A marker precedes a node's label; a leader continues the
// vertical line of an ancestor that still has siblings below it.
const (
	markLast  = "╰─ "
	markMid   = "├─ "
	leadBlank = "   "
	leadBar   = "│  "
)

// Render returns id and its descendants as indented line art, one node per
// line, each line ending in a newline.
func (t *Tree) Render(id string) (string, error) {
	return t.RenderFunc(id, nil)
}

// RenderFunc is Render with a custom label for every node. A nil label uses
// the node identifier. Output produced with a custom label cannot be Parsed
// back unless the label keeps identifiers intact.
func (t *Tree) RenderFunc(id string, label func(Node) string) (string, error) {
	idx, err := t.index(id)
	if err != nil {
		return "", err
	}
	if label == nil {
		label = func(n Node) string { return n.ID }
	}
	var b strings.Builder
	b.WriteString(label(t.snapshot(idx)))
	b.WriteByte('\n')
	t.render(&b, idx, "", label)
	return b.String(), nil
}

func (t *Tree) render(b *strings.Builder, idx int, prefix string, label func(Node) string) {
	children := t.slots[idx].children
	for i, c := range children {
		mark, lead := markMid, leadBar
		if i == len(children)-1 {
			mark, lead = markLast, leadBlank
		}
		b.WriteString(prefix)
		b.WriteString(mark)
		b.WriteString(label(t.snapshot(c)))
		b.WriteByte('\n')
		t.render(b, c, prefix+lead, label)
	}
}

// String renders the whole attached tree, or "" when nothing is attached.
func (t *Tree) String() string {
	root, ok := t.Root()
	if !ok {
		return ""
	}
	s, _ := t.Render(root)
	return s
}

// Parse rebuilds a tree from Render output. Depth is recovered from the
// leaders in front of each marker; the first non-empty line is the root.
func Parse(r io.Reader, opts ...Option) (*Tree, error) {
	t := New(opts...)
	var stack []string
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}
		if stack == nil {
			id, err := t.AddRoot(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			stack = []string{id}
			continue
		}

		depth, rest := 0, line
		for {
			if s, ok := strings.CutPrefix(rest, leadBar); ok {
				rest = s
			} else if s, ok := strings.CutPrefix(rest, leadBlank); ok {
				rest = s
			} else {
				break
			}
			depth++
		}
		label, ok := strings.CutPrefix(rest, markMid)
		if !ok {
			if label, ok = strings.CutPrefix(rest, markLast); !ok {
				return nil, fmt.Errorf("line %d: missing branch marker in %q", lineNum, line)
			}
		}
		if depth >= len(stack) {
			return nil, fmt.Errorf("line %d: depth %d skips a level", lineNum, depth+1)
		}
		id, err := t.AddNode(label, stack[depth])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		stack = append(stack[:depth+1], id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading tree: %w", err)
	}
	return t, nil
}
