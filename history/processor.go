package history

import (
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/thingsdev/thingscloud/internal/clock"
	"github.com/thingsdev/thingscloud/todo"
)

// Table is the local item table plus the watermark: the client's copy
// of the server's head index. It is not safe for concurrent use; the
// client is a single logical actor.
type Table struct {
	items     map[string]*Item
	watermark int
	clock     clock.Clock
	logger    *log.Logger
}

// TableOptions configures a new table.
type TableOptions struct {
	// Clock is attached to records decoded from remote snapshots.
	// Defaults to the system clock.
	Clock clock.Clock

	// Logger receives skipped-update notices during batch
	// processing. Defaults to a stderr logger.
	Logger *log.Logger
}

// NewTable returns an empty table with a zero watermark.
func NewTable(opts TableOptions) *Table {
	c := opts.Clock
	if c == nil {
		c = clock.System()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Table{
		items:  make(map[string]*Item),
		clock:  c,
		logger: logger,
	}
}

// Add inserts a locally created record. The returned item has no
// synced state, so its first BuildUpdate produces a create.
func (tb *Table) Add(t *todo.Todo) *Item {
	it := NewItem(t)
	tb.items[t.ID()] = it
	return it
}

// Get looks up an item by id.
func (tb *Table) Get(id string) (*Item, bool) {
	it, ok := tb.items[id]
	return it, ok
}

// Len returns the number of items in the table.
func (tb *Table) Len() int {
	return len(tb.items)
}

// All returns the items ordered by server index, with unsynced items
// (index 0) sorted to the end by creation date.
func (tb *Table) All() []*Item {
	items := make([]*Item, 0, len(tb.items))
	for _, it := range tb.items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i].Todo, items[j].Todo
		if a.Index != b.Index {
			if a.Index == 0 {
				return false
			}
			if b.Index == 0 {
				return true
			}
			return a.Index < b.Index
		}
		return a.CreationDate().Before(b.CreationDate())
	})
	return items
}

// Watermark returns the last observed head index.
func (tb *Table) Watermark() int {
	return tb.watermark
}

// SetWatermark seeds the watermark, typically from a shared session's
// head index or a persisted state file.
func (tb *Table) SetWatermark(n int) {
	tb.watermark = n
}

// ApplyResult reports what a batch application did.
type ApplyResult struct {
	Created int
	Edited  int
	Deleted int

	// Skipped lists the ids of edit/delete updates that referenced
	// records the table has never seen. They are logged and skipped
	// so that the rest of the batch still applies.
	Skipped []string
}

// Apply processes a batch of server updates in array order and then
// advances the watermark to the batch's current index.
//
// New inserts (last write wins on id collision), Edit applies the
// delta's present fields directly onto the record, Delete removes the
// id. Edits and deletes for unknown ids are logged, surfaced in the
// result, and skipped. A payload that fails to decode aborts the
// batch with ErrProtocolViolation and leaves the watermark where it
// was.
func (tb *Table) Apply(b Batch) (ApplyResult, error) {
	var res ApplyResult
	for _, u := range b.Updates {
		switch u.Kind {
		case KindNew:
			t, err := todo.DecodeSnapshot(u.ID, u.Payload, tb.clock)
			if err != nil {
				return res, fmt.Errorf("%w: new %s: %v", ErrProtocolViolation, u.ID, err)
			}
			// Re-encode so the synced snapshot is in the client's
			// canonical form; later diffs compare byte-for-byte.
			snap, err := t.Snapshot()
			if err != nil {
				return res, fmt.Errorf("new %s: %w", u.ID, err)
			}
			tb.items[u.ID] = &Item{Todo: t, synced: snap}
			res.Created++

		case KindEdit:
			it, ok := tb.items[u.ID]
			if !ok {
				tb.logger.Printf("skipping edit of unknown record %s", u.ID)
				res.Skipped = append(res.Skipped, u.ID)
				continue
			}
			if err := it.Todo.ApplyPayload(u.Payload); err != nil {
				return res, fmt.Errorf("%w: edit %s: %v", ErrProtocolViolation, u.ID, err)
			}
			if it.synced != nil {
				if err := tb.absorbIntoSynced(it, u.Payload); err != nil {
					return res, err
				}
			}
			res.Edited++

		case KindDelete:
			if _, ok := tb.items[u.ID]; !ok {
				tb.logger.Printf("skipping delete of unknown record %s", u.ID)
				res.Skipped = append(res.Skipped, u.ID)
				continue
			}
			delete(tb.items, u.ID)
			res.Deleted++

		default:
			return res, fmt.Errorf("%w: unknown update kind %d", ErrProtocolViolation, int(u.Kind))
		}
	}

	tb.watermark = b.CurrentIndex
	return res, nil
}

// absorbIntoSynced folds a remote delta into the item's synced
// snapshot using the client's canonical encoding of the updated
// record, touching only the delta's keys. Fields with uncommitted
// local changes keep diffing against the old values and stay pending.
func (tb *Table) absorbIntoSynced(it *Item, delta todo.Payload) error {
	snap, err := it.Todo.Snapshot()
	if err != nil {
		return err
	}
	canonical := make(todo.Payload, len(delta))
	for key := range delta {
		if raw, ok := snap[key]; ok {
			canonical[key] = raw
		}
	}
	it.synced = todo.Merge(it.synced, canonical)
	return nil
}
