package history

import (
	"fmt"

	"github.com/thingsdev/thingscloud/todo"
)

// Item pairs a record with its sync envelope: the last snapshot known
// to be on the server. A nil synced payload means the item has never
// been successfully created server-side, which is what switches
// BuildUpdate between create and edit.
type Item struct {
	Todo   *todo.Todo
	synced todo.Payload
}

// NewItem wraps a locally created record that the server has not
// seen yet.
func NewItem(t *todo.Todo) *Item {
	return &Item{Todo: t}
}

// Synced returns a copy of the last-synced snapshot, or nil if the
// item was never committed.
func (it *Item) Synced() todo.Payload {
	return it.synced.Clone()
}

// BuildUpdate computes the outbound update for the item: a full
// snapshot (KindNew) if it was never committed, otherwise a delta of
// the fields that differ from the synced snapshot (KindEdit).
//
// The pending-change check is derived here, at commit time, by a full
// comparison against the synced snapshot. A field changed and then
// changed back does not appear, and an item with no effective changes
// yields ErrNoChanges.
func (it *Item) BuildUpdate() (Update, error) {
	if it.synced == nil {
		snap, err := it.Todo.Snapshot()
		if err != nil {
			return Update{}, err
		}
		return Update{ID: it.Todo.ID(), Kind: KindNew, Payload: snap}, nil
	}

	delta, err := it.Todo.Diff(it.synced)
	if err != nil {
		return Update{}, err
	}
	if !effectiveChange(delta) {
		return Update{}, fmt.Errorf("%w: %s", ErrNoChanges, it.Todo.ID())
	}
	return Update{ID: it.Todo.ID(), Kind: KindEdit, Payload: delta}, nil
}

// effectiveChange reports whether a delta carries anything beyond the
// modification date. Setters stamp "md" even when a field is changed
// and then changed back, and a commit that only moves the
// modification date is exactly the empty-edit churn the protocol
// forbids.
func effectiveChange(delta todo.Payload) bool {
	for key := range delta {
		if key != "md" {
			return true
		}
	}
	return false
}

// CommitAccepted records that the server accepted the update. A full
// snapshot replaces the synced state; a delta is merged into it
// field by field.
func (it *Item) CommitAccepted(u Update) {
	switch u.Kind {
	case KindNew:
		it.synced = u.Payload.Clone()
	case KindEdit:
		it.synced = todo.Merge(it.synced, u.Payload)
	}
}

// HasPendingChanges reports whether BuildUpdate would produce an
// update: the item was never committed, or at least one field differs
// from the synced snapshot.
func (it *Item) HasPendingChanges() (bool, error) {
	if it.synced == nil {
		return true, nil
	}
	delta, err := it.Todo.Diff(it.synced)
	if err != nil {
		return false, err
	}
	return effectiveChange(delta), nil
}
