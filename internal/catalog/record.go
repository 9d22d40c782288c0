// SPDX-License-Identifier: MPL-2.0

package catalog

const (
	// KindSource is a source identifier supplied by the caller.
	KindSource Kind = iota
	// KindDescription is a build description discovered through its header.
	KindDescription
)

const (
	// StateUncataloged means no owner has been found yet.
	StateUncataloged State = iota
	// StateFound means an owner was recorded but the node is still searchable.
	StateFound
	// StateLocked means resolution is final.
	StateLocked
)

type (
	// Kind tells source records from description records.
	Kind int

	// State is a record's position in the resolution state machine.
	State int

	// Record is the resolver's bookkeeping for one tree node.
	Record struct {
		// Node is the tree identifier, which differs from Term when the
		// identifier was renamed to keep it unique.
		Node string
		// Term is what gets searched: the source identifier or the handle.
		Term string
		Kind Kind
		// Owner is the handle of the description that owns this record.
		Owner string
		// File is the candidate file declaring the handle, for descriptions.
		File   string
		locked bool
	}
)

func (k Kind) String() string {
	if k == KindDescription {
		return "description"
	}
	return "source"
}

func (s State) String() string {
	switch s {
	case StateFound:
		return "found"
	case StateLocked:
		return "locked"
	default:
		return "uncataloged"
	}
}

// State derives the record's state from its owner and lock.
func (r *Record) State() State {
	switch {
	case r.locked:
		return StateLocked
	case r.Owner != "":
		return StateFound
	default:
		return StateUncataloged
	}
}

// Locked reports whether resolution of the record is final.
func (r *Record) Locked() bool { return r.locked }
