// SPDX-License-Identifier: MPL-2.0

package tree

import "slices"

const (
	// DuplicateRename appends "." to a colliding identifier until it is unique.
	DuplicateRename DuplicatePolicy = iota
	// DuplicateReject fails node creation with ErrDuplicateID.
	DuplicateReject

	// renameSuffix is appended to a colliding identifier under DuplicateRename.
	renameSuffix = "."

	noParent = -1
)

type (
	// DuplicatePolicy decides what happens when a new node's identifier is taken.
	DuplicatePolicy int

	// Option configures a Tree.
	Option func(*Tree)

	// slot is one arena entry. Links are arena indexes, never pointers.
	slot struct {
		id       string
		handle   string
		parent   int
		children []int
		locked   bool
		orphan   bool
	}

	// Tree owns every node, attached or orphaned.
	Tree struct {
		slots    []*slot
		attached map[string]int
		orphans  map[string]int
		policy   DuplicatePolicy
	}

	// Node is a read-only snapshot of one tree node.
	Node struct {
		ID string
		// Handle is the identifier of the build description owning this node, if resolved.
		Handle string
		// Parent is empty for the root and for the top of an orphaned subtree.
		Parent   string
		Children []string
		Locked   bool
		Orphan   bool
	}
)

// String returns the policy name as used in configuration.
func (p DuplicatePolicy) String() string {
	switch p {
	case DuplicateRename:
		return "rename"
	case DuplicateReject:
		return "reject"
	default:
		return "unknown"
	}
}

// WithDuplicatePolicy sets how identifier collisions are handled.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(t *Tree) { t.policy = p }
}

// New creates an empty tree.
func New(opts ...Option) *Tree {
	t := &Tree{
		attached: make(map[string]int),
		orphans:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Len returns the number of attached nodes.
func (t *Tree) Len() int { return len(t.attached) }

// OrphanCount returns the number of orphaned nodes.
func (t *Tree) OrphanCount() int { return len(t.orphans) }

// Policy returns the tree's duplicate identifier policy.
func (t *Tree) Policy() DuplicatePolicy { return t.policy }

// --- creation and attachment ---

// AddNode creates a node and returns its final identifier, which differs from
// id when the identifier was already taken under DuplicateRename.
//
// With a parent the node becomes that parent's last child; an orphaned parent
// keeps the new node in the orphan pool with it. Without a parent the node
// becomes the root's last child, or the root itself when nothing is attached.
func (t *Tree) AddNode(id, parent string) (string, error) {
	pIdx := noParent
	if parent != "" {
		var err error
		if pIdx, err = t.index(parent); err != nil {
			return "", err
		}
	}

	idx, newID, err := t.newSlot(id)
	if err != nil {
		return "", err
	}

	switch {
	case pIdx != noParent:
		t.link(pIdx, idx)
		if !t.slots[pIdx].orphan {
			t.markAttached(idx)
		}
	default:
		rootIdx, ok := t.rootIndex()
		if ok {
			t.link(rootIdx, idx)
		}
		t.markAttached(idx)
	}
	return newID, nil
}

// AddRoot creates a node above the current root, which becomes its only child.
// On a tree with nothing attached the node simply becomes the root.
func (t *Tree) AddRoot(id string) (string, error) {
	oldRoot, hasRoot := t.rootIndex()
	idx, newID, err := t.newSlot(id)
	if err != nil {
		return "", err
	}
	if hasRoot {
		t.link(idx, oldRoot)
	}
	t.markAttached(idx)
	return newID, nil
}

// InsertBefore splices a new node between target and its parent, taking
// target's position among its siblings. A root target gets a new root above it.
func (t *Tree) InsertBefore(id, target string) (string, error) {
	tIdx, err := t.index(target)
	if err != nil {
		return "", err
	}
	ts := t.slots[tIdx]
	if ts.parent == noParent {
		if ts.orphan {
			return "", structural("insert before", target, ErrOrphan)
		}
		return t.AddRoot(id)
	}

	idx, newID, err := t.newSlot(id)
	if err != nil {
		return "", err
	}
	ns := t.slots[idx]
	p := t.slots[ts.parent]
	pos := slices.Index(p.children, tIdx)
	p.children[pos] = idx
	ns.parent = ts.parent
	ns.children = []int{tIdx}
	ts.parent = idx
	if !ts.orphan {
		t.markAttached(idx)
	}
	return newID, nil
}

// InsertAfter makes a new node the only child of target and moves target's
// previous children, in order, beneath the new node.
func (t *Tree) InsertAfter(id, target string) (string, error) {
	tIdx, err := t.index(target)
	if err != nil {
		return "", err
	}
	idx, newID, err := t.newSlot(id)
	if err != nil {
		return "", err
	}
	ts, ns := t.slots[tIdx], t.slots[idx]
	ns.children = ts.children
	for _, c := range ns.children {
		t.slots[c].parent = idx
	}
	ts.children = []int{idx}
	ns.parent = tIdx
	if !ts.orphan {
		t.markAttached(idx)
	}
	return newID, nil
}

// CreateOrphan creates a node in the orphan pool.
func (t *Tree) CreateOrphan(id string) (string, error) {
	_, newID, err := t.newSlot(id)
	return newID, err
}

// Adopt attaches an orphan, together with any subtree hanging from it, as the
// last child of parent. Adopting a node that is already attached is an error;
// use AdoptSubtree to move attached nodes.
func (t *Tree) Adopt(parent, child string) error {
	pIdx, err := t.index(parent)
	if err != nil {
		return err
	}
	cIdx, err := t.index(child)
	if err != nil {
		return err
	}
	if !t.slots[cIdx].orphan {
		return structural("adopt", child, ErrNotOrphan)
	}
	if t.inSubtree(cIdx, pIdx) {
		return structural("adopt", child, ErrCycle)
	}
	t.unlink(cIdx)
	t.link(pIdx, cIdx)
	if !t.slots[pIdx].orphan {
		t.markAttached(cIdx)
	}
	return nil
}

// AdoptSubtree transplants the attached subtree rooted at child beneath
// parent. Both nodes must be attached to this tree.
func (t *Tree) AdoptSubtree(parent, child string) error {
	pIdx, err := t.index(parent)
	if err != nil {
		return err
	}
	cIdx, err := t.index(child)
	if err != nil {
		return err
	}
	if t.slots[pIdx].orphan || t.slots[cIdx].orphan {
		return structural("adopt subtree", child, ErrCrossTree)
	}
	if t.inSubtree(cIdx, pIdx) {
		return structural("adopt subtree", child, ErrCycle)
	}
	t.unlink(cIdx)
	t.link(pIdx, cIdx)
	return nil
}

// Detach removes an attached node from its parent and moves it, with its
// whole subtree, into the orphan pool. Detaching the root empties the tree.
func (t *Tree) Detach(id string) error {
	idx, err := t.index(id)
	if err != nil {
		return err
	}
	if t.slots[idx].orphan {
		return structural("detach", id, ErrOrphan)
	}
	t.unlink(idx)
	t.markOrphaned(idx)
	return nil
}

// SetHandle records the identifier of the build description owning id.
func (t *Tree) SetHandle(id, handle string) error {
	idx, err := t.index(id)
	if err != nil {
		return err
	}
	t.slots[idx].handle = handle
	return nil
}

// Lock marks a node's resolution as final.
func (t *Tree) Lock(id string) error {
	idx, err := t.index(id)
	if err != nil {
		return err
	}
	t.slots[idx].locked = true
	return nil
}

// --- deletion ---

// DeleteLeaf deletes each named node. It stops at the first node that has
// children or does not exist.
func (t *Tree) DeleteLeaf(ids ...string) error {
	for _, id := range ids {
		idx, err := t.index(id)
		if err != nil {
			return err
		}
		if len(t.slots[idx].children) > 0 {
			return structural("delete", id, ErrHasChildren)
		}
		t.unlink(idx)
		s := t.slots[idx]
		if s.orphan {
			delete(t.orphans, s.id)
		} else {
			delete(t.attached, s.id)
		}
		t.slots[idx] = nil
	}
	return nil
}

// DeleteSubtree deletes each named node after all of its descendants,
// deepest first.
func (t *Tree) DeleteSubtree(ids ...string) error {
	for _, id := range ids {
		order, err := t.SubtreeIDs(id)
		if err != nil {
			return err
		}
		if err := t.DeleteLeaf(order...); err != nil {
			return err
		}
	}
	return nil
}

// --- queries ---

// Lookup returns a snapshot of the node, searching attached nodes first and
// orphans second.
func (t *Tree) Lookup(id string) (Node, error) {
	idx, err := t.index(id)
	if err != nil {
		return Node{}, err
	}
	return t.snapshot(idx), nil
}

// Contains reports whether id names an attached or orphaned node.
func (t *Tree) Contains(id string) bool {
	_, err := t.index(id)
	return err == nil
}

// Root returns the root identifier, or false when nothing is attached.
func (t *Tree) Root() (string, bool) {
	idx, ok := t.rootIndex()
	if !ok {
		return "", false
	}
	return t.slots[idx].id, true
}

// Parent returns the parent identifier; the root and orphan tops have none.
func (t *Tree) Parent(id string) (string, bool, error) {
	idx, err := t.index(id)
	if err != nil {
		return "", false, err
	}
	p := t.slots[idx].parent
	if p == noParent {
		return "", false, nil
	}
	return t.slots[p].id, true, nil
}

// Children returns the node's children in insertion order.
func (t *Tree) Children(id string) ([]string, error) {
	idx, err := t.index(id)
	if err != nil {
		return nil, err
	}
	return t.ids(t.slots[idx].children), nil
}

// IsRoot reports whether id is the attached node without a parent.
func (t *Tree) IsRoot(id string) (bool, error) {
	idx, err := t.index(id)
	if err != nil {
		return false, err
	}
	s := t.slots[idx]
	return !s.orphan && s.parent == noParent, nil
}

// IsLeaf reports whether id has no children.
func (t *Tree) IsLeaf(id string) (bool, error) {
	idx, err := t.index(id)
	if err != nil {
		return false, err
	}
	return len(t.slots[idx].children) == 0, nil
}

// Level returns the number of edges between id and the root.
func (t *Tree) Level(id string) (int, error) {
	path, err := t.PathToRoot(id)
	if err != nil {
		return 0, err
	}
	return len(path) - 1, nil
}

// Height returns the number of edges on the longest path down to a leaf.
func (t *Tree) Height(id string) (int, error) {
	idx, err := t.index(id)
	if err != nil {
		return 0, err
	}
	return t.height(idx), nil
}

func (t *Tree) height(idx int) int {
	h := 0
	for _, c := range t.slots[idx].children {
		h = max(h, t.height(c)+1)
	}
	return h
}

// PathToRoot returns id followed by each ancestor up to and including the root.
func (t *Tree) PathToRoot(id string) ([]string, error) {
	idx, err := t.index(id)
	if err != nil {
		return nil, err
	}
	if t.slots[idx].orphan {
		return nil, structural("path to root", id, ErrOrphan)
	}
	var path []string
	for ; idx != noParent; idx = t.slots[idx].parent {
		path = append(path, t.slots[idx].id)
	}
	return path, nil
}

// Ancestors returns the path to the root without id itself.
func (t *Tree) Ancestors(id string) ([]string, error) {
	path, err := t.PathToRoot(id)
	if err != nil {
		return nil, err
	}
	return path[1:], nil
}

// Siblings returns the other children of id's parent, in order.
func (t *Tree) Siblings(id string) ([]string, error) {
	idx, err := t.index(id)
	if err != nil {
		return nil, err
	}
	p := t.slots[idx].parent
	if p == noParent {
		return nil, nil
	}
	var out []string
	for _, c := range t.slots[p].children {
		if c != idx {
			out = append(out, t.slots[c].id)
		}
	}
	return out, nil
}

// Descendants returns every node beneath id, leaf-first: each child's own
// descendants come before the child, and children keep insertion order.
func (t *Tree) Descendants(id string) ([]string, error) {
	idx, err := t.index(id)
	if err != nil {
		return nil, err
	}
	return t.ids(t.descendants(idx, nil)), nil
}

// SubtreeIDs returns Descendants(id) followed by id.
func (t *Tree) SubtreeIDs(id string) ([]string, error) {
	idx, err := t.index(id)
	if err != nil {
		return nil, err
	}
	return t.ids(append(t.descendants(idx, nil), idx)), nil
}

func (t *Tree) descendants(idx int, acc []int) []int {
	for _, c := range t.slots[idx].children {
		acc = t.descendants(c, acc)
		acc = append(acc, c)
	}
	return acc
}

// Walk visits id and its descendants in pre-order with their depth relative
// to id. Returning an error from fn stops the walk.
func (t *Tree) Walk(id string, fn func(n Node, depth int) error) error {
	idx, err := t.index(id)
	if err != nil {
		return err
	}
	return t.walk(idx, 0, fn)
}

func (t *Tree) walk(idx, depth int, fn func(Node, int) error) error {
	if err := fn(t.snapshot(idx), depth); err != nil {
		return err
	}
	for _, c := range t.slots[idx].children {
		if err := t.walk(c, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// --- arena internals ---

func (t *Tree) index(id string) (int, error) {
	if idx, ok := t.attached[id]; ok {
		return idx, nil
	}
	if idx, ok := t.orphans[id]; ok {
		return idx, nil
	}
	return 0, &NotFoundError{ID: id}
}

func (t *Tree) exists(id string) bool {
	_, a := t.attached[id]
	_, o := t.orphans[id]
	return a || o
}

// newSlot allocates an orphan slot under a unique identifier.
func (t *Tree) newSlot(id string) (int, string, error) {
	if id == "" {
		return 0, "", ErrEmptyID
	}
	if t.exists(id) {
		if t.policy == DuplicateReject {
			return 0, "", &DuplicateIDError{ID: id}
		}
		for t.exists(id) {
			id += renameSuffix
		}
	}
	t.slots = append(t.slots, &slot{id: id, parent: noParent, orphan: true})
	idx := len(t.slots) - 1
	t.orphans[id] = idx
	return idx, id, nil
}

func (t *Tree) rootIndex() (int, bool) {
	for _, idx := range t.attached {
		for t.slots[idx].parent != noParent {
			idx = t.slots[idx].parent
		}
		return idx, true
	}
	return 0, false
}

func (t *Tree) link(parent, child int) {
	t.slots[parent].children = append(t.slots[parent].children, child)
	t.slots[child].parent = parent
}

// unlink removes idx from its parent's child list by index identity.
func (t *Tree) unlink(idx int) {
	s := t.slots[idx]
	if s.parent == noParent {
		return
	}
	p := t.slots[s.parent]
	if pos := slices.Index(p.children, idx); pos >= 0 {
		p.children = slices.Delete(p.children, pos, pos+1)
	}
	s.parent = noParent
}

// inSubtree reports whether idx is top or one of top's descendants.
func (t *Tree) inSubtree(top, idx int) bool {
	for ; idx != noParent; idx = t.slots[idx].parent {
		if idx == top {
			return true
		}
	}
	return false
}

func (t *Tree) markAttached(idx int) {
	s := t.slots[idx]
	if s.orphan {
		delete(t.orphans, s.id)
		t.attached[s.id] = idx
		s.orphan = false
	}
	for _, c := range s.children {
		t.markAttached(c)
	}
}

func (t *Tree) markOrphaned(idx int) {
	s := t.slots[idx]
	if !s.orphan {
		delete(t.attached, s.id)
		t.orphans[s.id] = idx
		s.orphan = true
	}
	for _, c := range s.children {
		t.markOrphaned(c)
	}
}

func (t *Tree) ids(idxs []int) []string {
	out := make([]string, len(idxs))
	for i, idx := range idxs {
		out[i] = t.slots[idx].id
	}
	return out
}

func (t *Tree) snapshot(idx int) Node {
	s := t.slots[idx]
	n := Node{
		ID:       s.id,
		Handle:   s.handle,
		Children: t.ids(s.children),
		Locked:   s.locked,
		Orphan:   s.orphan,
	}
	if s.parent != noParent {
		n.Parent = t.slots[s.parent].id
	}
	return n
}
