package todo

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is the base error for all rejected local
// mutations. Every specific transition error below wraps it, so
// callers can dispatch on the kind with errors.Is.
var ErrInvalidTransition = errors.New("invalid transition")

var (
	// ErrStatusUnchanged is returned when a status verb would set the
	// status the item already has.
	ErrStatusUnchanged = fmt.Errorf("%w: status already set", ErrInvalidTransition)

	// ErrAlreadyTrashed is returned when trashing an item that is
	// already in the trash.
	ErrAlreadyTrashed = fmt.Errorf("%w: already trashed", ErrInvalidTransition)

	// ErrNotTrashed is returned when restoring an item that is not in
	// the trash.
	ErrNotTrashed = fmt.Errorf("%w: not trashed", ErrInvalidTransition)

	// ErrNotTask is returned when changing the destination of a
	// project or heading, or converting a non-task to a project.
	ErrNotTask = fmt.Errorf("%w: not a task", ErrInvalidTransition)

	// ErrSelfProject is returned when assigning an item as its own
	// project.
	ErrSelfProject = fmt.Errorf("%w: item cannot be its own project", ErrInvalidTransition)

	// ErrNotProject is returned when assigning a non-project item as
	// a project.
	ErrNotProject = fmt.Errorf("%w: assigned item is not a project", ErrInvalidTransition)

	// ErrInvalidStatus is returned for a status outside the protocol's
	// value set.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidDestination is returned for a destination outside the
	// protocol's value set.
	ErrInvalidDestination = errors.New("invalid destination")
)
