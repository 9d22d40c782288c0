// SPDX-License-Identifier: MPL-2.0

package catalog

const (
	// EventDropped reports a source no description owns.
	EventDropped EventKind = iota
	// EventCataloged reports a source placed under its owner.
	EventCataloged
	// EventHandleAdded reports a newly discovered description.
	EventHandleAdded
	// EventNested reports a description placed under another description.
	EventNested
	// EventTopLevel reports a description that became a top-level branch.
	EventTopLevel
)

type (
	// EventKind classifies resolver progress.
	EventKind int

	// Event is a single resolver progress notification.
	Event struct {
		Kind EventKind
		Pass int
		// Term is the source identifier or handle the event is about.
		Term string
		// Owner is set for EventCataloged and EventNested.
		Owner string
	}

	// Observer receives progress events synchronously.
	Observer func(Event)
)

// Symbol returns the single-character progress mark for the event kind.
func (k EventKind) Symbol() string {
	switch k {
	case EventDropped:
		return "-"
	case EventCataloged:
		return "#"
	case EventHandleAdded:
		return "+"
	case EventNested:
		return "@"
	case EventTopLevel:
		return "^"
	default:
		return "?"
	}
}

func (k EventKind) String() string {
	switch k {
	case EventDropped:
		return "dropped"
	case EventCataloged:
		return "cataloged"
	case EventHandleAdded:
		return "handle added"
	case EventNested:
		return "nested"
	case EventTopLevel:
		return "top level"
	default:
		return "unknown"
	}
}
