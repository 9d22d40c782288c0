// SPDX-License-Identifier: MPL-2.0

package sources

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"

	"github.com/fnlbuild/fnlbuild/internal/tree"
)

// FollowRoot is the synthetic root of the tree returned by Follow.
const FollowRoot = "follow"

// includeLine matches "dir/file.c:#include <x.h>" and "file.c:#include "x.h"".
var includeLine = regexp.MustCompile(`^(?:.*/)?([^/:]+):\s*#\s*include\s*["<]([^">]+)[">]`)

type (
	// IncludeIndex maps an included file's base name to the files including
	// it, in index order.
	IncludeIndex map[string][]string

	// Followed is the result of Follow.
	Followed struct {
		// Tree has the original identifiers under FollowRoot and every
		// includer under the file it includes.
		Tree *tree.Tree
		// Sources holds the original identifiers followed by every added
		// includer, in discovery order.
		Sources []string
		// Added counts the includers found.
		Added int
		// Rounds is the number of expansion rounds run.
		Rounds int
	}
)

// ParseIncludeIndex reads an includes index, one "file:#include" line per
// entry. Lines that are not include directives are ignored.
func ParseIncludeIndex(r io.Reader) (IncludeIndex, error) {
	idx := make(IncludeIndex)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		m := includeLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		includer, included := m[1], path.Base(m[2])
		idx[included] = append(idx[included], includer)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading includes index: %w", err)
	}
	return idx, nil
}

// LoadIncludeIndex parses the includes index at path.
func LoadIncludeIndex(path string) (IncludeIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseIncludeIndex(f)
}

// Follow adds every file that directly or transitively includes one of ids.
// Each round looks up the includers of the files found by the previous one
// and stops when a round finds nothing new.
func Follow(ctx context.Context, ids []string, idx IncludeIndex) (*Followed, error) {
	t := tree.New()
	root, err := t.AddNode(FollowRoot, "")
	if err != nil {
		return nil, err
	}

	res := &Followed{Tree: t}
	// node maps a file name to its tree node.
	node := make(map[string]string, len(ids))
	for _, id := range ids {
		nid, err := t.AddNode(id, root)
		if err != nil {
			return nil, err
		}
		if _, seen := node[id]; !seen {
			node[id] = nid
		}
		res.Sources = append(res.Sources, id)
	}

	frontier := ids
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("following includes: %w", err)
		}
		res.Rounds++
		var next []string
		for _, included := range frontier {
			for _, includer := range idx[included] {
				if _, known := node[includer]; known {
					continue
				}
				nid, err := t.AddNode(includer, node[included])
				if err != nil {
					return nil, err
				}
				node[includer] = nid
				res.Sources = append(res.Sources, includer)
				res.Added++
				next = append(next, includer)
			}
		}
		frontier = next
	}
	return res, nil
}
