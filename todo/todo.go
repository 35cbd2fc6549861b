package todo

import (
	"encoding/json"
	"time"

	"github.com/thingsdev/thingscloud/internal/clock"
	"github.com/thingsdev/thingscloud/internal/ids"
)

// Todo represents one task, project, or heading.
//
// Guarded fields (status, destination, projects, ...) are unexported
// and mutated through the methods in operations.go. Passthrough
// fields the client does not interpret are exported; the protocol
// requires carrying them, not understanding them.
type Todo struct {
	id    string
	clock clock.Clock

	// Index is the position among siblings, assigned by the server
	// when the item is created.
	Index int

	title            string
	status           Status
	destination      Destination
	creationDate     time.Time
	modificationDate time.Time
	scheduledDate    *time.Time
	// todayIndexReferenceDate mirrors scheduledDate on every write.
	todayIndexReferenceDate *time.Time
	completionDate          *time.Time
	dueDate                 *time.Time
	trashed                 bool
	instanceCreationPaused  bool
	projects                []string
	areas                   []string
	evening                 bool
	typ                     Type
	reminder                *TimeOfDay

	// Passthrough fields, preserved verbatim across decode/encode.
	Tags                         []any
	DueDateSuppressionDate       *time.Time
	RepeatingTemplate            []string
	RepeaterMigrationDate        json.RawMessage
	Delegate                     []any
	DueDateOffset                int
	LastAlarmInteractionDate     *time.Time
	ActionGroup                  []string
	LeavesTombstone              bool
	InstanceCreationCount        int
	TodayIndex                   int
	InstanceCreationStartDate    *time.Time
	Repeater                     json.RawMessage
	AfterCompletionReferenceDate *time.Time
	RecurrenceRule               json.RawMessage

	// Note is the structured note body.
	Note Note
}

// Options configures a new Todo.
type Options struct {
	// Clock is the time source used for creation, modification, and
	// today derivation. Defaults to the system clock.
	Clock clock.Clock
}

// New creates a local todo with a fresh id and protocol defaults:
// task type, inbox, open status, creation and modification dates set
// to now.
func New(title string, opts Options) *Todo {
	c := opts.Clock
	if c == nil {
		c = clock.System()
	}
	now := c.Now()
	return &Todo{
		id:               ids.New(),
		clock:            c,
		title:            title,
		status:           StatusTodo,
		destination:      DestinationInbox,
		creationDate:     now,
		modificationDate: now,
		typ:              TypeTask,
		Note:             NewNote(),
	}
}

// ID returns the item's immutable 22-character identifier.
func (t *Todo) ID() string { return t.id }

// Title returns the item's title.
func (t *Todo) Title() string { return t.title }

// Status returns the item's completion status.
func (t *Todo) Status() Status { return t.status }

// Destination returns the list the item lives in.
func (t *Todo) Destination() Destination { return t.destination }

// Type returns the record category.
func (t *Todo) Type() Type { return t.typ }

// CreationDate returns when the item was created.
func (t *Todo) CreationDate() time.Time { return t.creationDate }

// ModificationDate returns when the item was last mutated.
func (t *Todo) ModificationDate() time.Time { return t.modificationDate }

// ScheduledDate returns the date the item is scheduled for, or nil.
func (t *Todo) ScheduledDate() *time.Time { return t.scheduledDate }

// CompletionDate returns when the item was completed or cancelled,
// or nil for open items.
func (t *Todo) CompletionDate() *time.Time { return t.completionDate }

// DueDate returns the deadline, or nil.
func (t *Todo) DueDate() *time.Time { return t.dueDate }

// Reminder returns the reminder time of day, or nil.
func (t *Todo) Reminder() *TimeOfDay { return t.reminder }

// Trashed returns true if the item has been soft-deleted.
func (t *Todo) Trashed() bool { return t.trashed }

// InstanceCreationPaused reports whether recurring-instance creation
// is paused for this item.
func (t *Todo) InstanceCreationPaused() bool { return t.instanceCreationPaused }

// Project returns the id of the containing project, or "" if none.
// The wire carries a list but the protocol's semantics are
// single-valued.
func (t *Todo) Project() string {
	if len(t.projects) == 0 {
		return ""
	}
	return t.projects[0]
}

// Area returns the id of the containing area, or "" if none.
func (t *Todo) Area() string {
	if len(t.areas) == 0 {
		return ""
	}
	return t.areas[0]
}

// IsToday reports whether the item appears in the Today list: it is
// in Anytime and scheduled for the current day.
func (t *Todo) IsToday() bool {
	return t.destination == DestinationAnytime &&
		t.scheduledDate != nil &&
		t.scheduledDate.Equal(clock.Today(t.clock))
}

// IsEvening reports whether the item appears in the This Evening
// list. The evening flag is only meaningful while the item is in
// Today.
func (t *Todo) IsEvening() bool {
	return t.IsToday() && t.evening
}

// touch stamps the modification date. Every field-mutating operation
// calls it after its validation has passed.
func (t *Todo) touch() {
	t.modificationDate = t.clock.Now()
}
