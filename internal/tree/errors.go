// SPDX-License-Identifier: MPL-2.0

package tree

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an identifier is in neither the attached
	// nor the orphan pool.
	ErrNotFound = errors.New("node not found")
	// ErrDuplicateID is returned under DuplicateReject when an identifier
	// is already taken.
	ErrDuplicateID = errors.New("duplicate node id")
	// ErrEmptyID is returned when a node would be created without an identifier.
	ErrEmptyID = errors.New("empty node id")

	// ErrStructural matches every StructuralError.
	ErrStructural = errors.New("structural violation")
	// ErrHasChildren is the reason for deleting a node that still has children.
	ErrHasChildren = errors.New("node has children")
	// ErrNotOrphan is the reason for adopting a node that is already attached.
	ErrNotOrphan = errors.New("node is not an orphan")
	// ErrCrossTree is the reason for transplanting a subtree whose root or
	// new parent is not attached to this tree.
	ErrCrossTree = errors.New("subtree and new parent are not in the same tree")
	// ErrCycle is the reason for moving a node beneath itself or one of its descendants.
	ErrCycle = errors.New("node would become its own ancestor")
	// ErrOrphan is the reason for asking an orphan a root-dependent question.
	ErrOrphan = errors.New("node is an orphan")
)

type (
	// NotFoundError reports a lookup miss. It wraps ErrNotFound.
	NotFoundError struct {
		ID string
	}

	// DuplicateIDError reports an identifier collision under DuplicateReject.
	// It wraps ErrDuplicateID.
	DuplicateIDError struct {
		ID string
	}

	// StructuralError reports an operation that would break the tree's shape.
	// It matches ErrStructural and unwraps to its Reason.
	StructuralError struct {
		Op     string
		ID     string
		Reason error
	}
)

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("node %q not in attached nodes or orphans", e.ID)
}

// Unwrap returns ErrNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("node id %q already in tree", e.ID)
}

// Unwrap returns ErrDuplicateID for errors.Is() compatibility.
func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.ID, e.Reason)
}

// Unwrap returns the specific reason (ErrHasChildren, ErrNotOrphan, ...).
func (e *StructuralError) Unwrap() error { return e.Reason }

// Is reports whether target is ErrStructural.
func (e *StructuralError) Is(target error) bool { return target == ErrStructural }

func structural(op, id string, reason error) error {
	return &StructuralError{Op: op, ID: id, Reason: reason}
}
