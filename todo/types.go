// Package todo implements the client-side model for items in the
// Things Cloud synchronization protocol.
//
// A Todo holds the full field set the protocol knows about. Fields
// with invariants are mutated through setters and verbs (Complete,
// Trash, Today, AsProject, ...) that validate before mutating and
// stamp the modification date. Fields the client does not interpret
// are carried verbatim so that edits never destroy data written by
// other clients.
//
// The wire representation (short alias keys, integer enums, epoch
// timestamps) lives in codec.go.
package todo

import "fmt"

// Status represents the completion state of a todo.
// The values are the protocol's wire values.
type Status int

const (
	// StatusTodo indicates the item is open.
	StatusTodo Status = 0

	// StatusCancelled indicates the item was abandoned.
	StatusCancelled Status = 2

	// StatusComplete indicates the item was finished.
	StatusComplete Status = 3
)

// IsValid returns true if the status is a known wire value.
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusCancelled, StatusComplete:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusTodo:
		return "todo"
	case StatusCancelled:
		return "cancelled"
	case StatusComplete:
		return "complete"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Destination represents which list an item lives in. Today and
// Evening are not destinations: they are derived from
// DestinationAnytime plus the scheduled date (see Todo.IsToday).
type Destination int

const (
	// DestinationInbox is the default list for new items.
	DestinationInbox Destination = 0

	// DestinationAnytime holds items available to work on, including
	// items scheduled for today.
	DestinationAnytime Destination = 1

	// DestinationSomeday holds items deferred indefinitely.
	DestinationSomeday Destination = 2
)

// IsValid returns true if the destination is a known wire value.
func (d Destination) IsValid() bool {
	switch d {
	case DestinationInbox, DestinationAnytime, DestinationSomeday:
		return true
	default:
		return false
	}
}

func (d Destination) String() string {
	switch d {
	case DestinationInbox:
		return "inbox"
	case DestinationAnytime:
		return "anytime"
	case DestinationSomeday:
		return "someday"
	default:
		return fmt.Sprintf("destination(%d)", int(d))
	}
}

// Type represents the category of a record.
type Type int

const (
	// TypeTask is a plain actionable item (default).
	TypeTask Type = 0

	// TypeProject is a container for tasks.
	TypeProject Type = 1

	// TypeHeading is a section divider within a project.
	TypeHeading Type = 2
)

// IsValid returns true if the type is a known wire value.
func (t Type) IsValid() bool {
	switch t {
	case TypeTask, TypeProject, TypeHeading:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	switch t {
	case TypeTask:
		return "task"
	case TypeProject:
		return "project"
	case TypeHeading:
		return "heading"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Note is the structured note attached to a todo. The protocol
// versions note edits with a change counter.
type Note struct {
	Tag           string `json:"_t"`
	ChangeCounter int    `json:"ch"`
	Value         string `json:"v"`
	Type          int    `json:"t"`
}

// NewNote returns an empty note with the protocol's default type tag.
func NewNote() Note {
	return Note{Tag: "tx"}
}

// TimeOfDay is a clock time with second precision, used for reminders.
// The wire encodes it as seconds since midnight.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// Seconds returns the time as seconds since midnight.
func (t TimeOfDay) Seconds() int {
	return (t.Hour*60+t.Minute)*60 + t.Second
}

// TimeOfDayFromSeconds converts seconds-since-midnight into a TimeOfDay.
func TimeOfDayFromSeconds(s int) (TimeOfDay, error) {
	if s < 0 || s >= 24*60*60 {
		return TimeOfDay{}, fmt.Errorf("seconds since midnight out of range: %d", s)
	}
	return TimeOfDay{
		Hour:   s / 3600,
		Minute: (s / 60) % 60,
		Second: s % 60,
	}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}
