package todo

import (
	"fmt"
	"time"

	"github.com/thingsdev/thingscloud/internal/clock"
)

// SetTitle changes the item's title.
func (t *Todo) SetTitle(title string) {
	t.title = title
	t.touch()
}

// setStatus validates and performs a status transition. Transitions
// to the current status are rejected rather than ignored, so callers
// learn about no-op bugs instead of silently resending state.
func (t *Todo) setStatus(s Status) error {
	if !s.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, int(s))
	}
	if t.status == s {
		return fmt.Errorf("%w: %s", ErrStatusUnchanged, s)
	}
	t.status = s
	switch s {
	case StatusTodo:
		t.completionDate = nil
	case StatusComplete, StatusCancelled:
		now := t.clock.Now()
		t.completionDate = &now
	}
	t.touch()
	return nil
}

// Reopen transitions the item back to the open status and clears the
// completion date. Fails if the item is already open.
func (t *Todo) Reopen() error {
	return t.setStatus(StatusTodo)
}

// Complete marks the item complete and stamps the completion date.
// Fails if the item is already complete.
func (t *Todo) Complete() error {
	return t.setStatus(StatusComplete)
}

// Cancel marks the item cancelled and stamps the completion date.
// Fails if the item is already cancelled.
func (t *Todo) Cancel() error {
	return t.setStatus(StatusCancelled)
}

// Trash soft-deletes the item. Fails if it is already trashed.
func (t *Todo) Trash() error {
	if t.trashed {
		return ErrAlreadyTrashed
	}
	t.trashed = true
	t.touch()
	return nil
}

// Restore takes the item out of the trash. Fails if it is not
// trashed.
func (t *Todo) Restore() error {
	if !t.trashed {
		return ErrNotTrashed
	}
	t.trashed = false
	t.touch()
	return nil
}

// SetDestination moves the item to another list. Only tasks may be
// moved; projects and headings keep the destination the protocol
// gave them.
func (t *Todo) SetDestination(d Destination) error {
	if !d.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidDestination, int(d))
	}
	if t.typ != TypeTask {
		return fmt.Errorf("%w: cannot move a %s", ErrNotTask, t.typ)
	}
	t.setDestination(d)
	return nil
}

// setDestination changes the destination without the task-only
// check. Verbs that define their own transition (AsProject, Today,
// project/area assignment) use it for their documented side effects.
func (t *Todo) setDestination(d Destination) {
	t.destination = d
	t.touch()
}

// SetProject files the item under the project with the given id.
// Projects and areas are mutually exclusive, so any area assignment
// is cleared, and an inbox item is promoted to Anytime.
func (t *Todo) SetProject(projectID string) error {
	if projectID == t.id {
		return ErrSelfProject
	}
	t.projects = []string{projectID}
	t.areas = nil
	if t.destination == DestinationInbox {
		t.setDestination(DestinationAnytime)
	}
	t.touch()
	return nil
}

// SetProjectItem files the item under the given project, validating
// that it actually is one.
func (t *Todo) SetProjectItem(project *Todo) error {
	if project.Type() != TypeProject {
		return ErrNotProject
	}
	return t.SetProject(project.ID())
}

// ClearProject removes the item from its project.
func (t *Todo) ClearProject() {
	t.projects = nil
	t.touch()
}

// SetArea files the item under the area with the given id. Any
// project assignment is cleared, and an inbox item is promoted to
// Anytime.
func (t *Todo) SetArea(areaID string) {
	t.areas = []string{areaID}
	t.projects = nil
	if t.destination == DestinationInbox {
		t.setDestination(DestinationAnytime)
	}
	t.touch()
}

// ClearArea removes the item from its area.
func (t *Todo) ClearArea() {
	t.areas = nil
	t.touch()
}

// SetScheduledDate schedules the item for a date, or unschedules it
// when d is nil. The today-index reference date mirrors every write.
func (t *Todo) SetScheduledDate(d *time.Time) {
	t.scheduledDate = copyTime(d)
	t.todayIndexReferenceDate = copyTime(d)
	t.touch()
}

// SetDueDate sets or clears the deadline.
func (t *Todo) SetDueDate(d *time.Time) {
	t.dueDate = copyTime(d)
	t.touch()
}

// SetReminder sets or clears the reminder time of day.
func (t *Todo) SetReminder(r *TimeOfDay) {
	if r == nil {
		t.reminder = nil
	} else {
		v := *r
		t.reminder = &v
	}
	t.touch()
}

// SetNote replaces the note body and bumps its change counter.
func (t *Todo) SetNote(value string) {
	t.Note.Value = value
	t.Note.ChangeCounter++
	t.touch()
}

// Today moves the item into the Today list: destination Anytime,
// scheduled for the current day's local midnight.
func (t *Todo) Today() error {
	today := clock.Today(t.clock)
	t.setDestination(DestinationAnytime)
	t.SetScheduledDate(&today)
	return nil
}

// Evening moves the item into the This Evening section of Today.
func (t *Todo) Evening() error {
	if err := t.Today(); err != nil {
		return err
	}
	t.evening = true
	t.touch()
	return nil
}

// AsProject converts a task into a project. The conversion is
// one-way: projects and headings cannot be converted. Instance
// creation is paused and an inbox item is promoted to Anytime, which
// is how the protocol's own clients perform the conversion.
func (t *Todo) AsProject() error {
	if t.typ != TypeTask {
		return fmt.Errorf("%w: cannot convert a %s to a project", ErrNotTask, t.typ)
	}
	t.typ = TypeProject
	t.instanceCreationPaused = true
	if t.destination == DestinationInbox {
		t.setDestination(DestinationAnytime)
	}
	t.touch()
	return nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
