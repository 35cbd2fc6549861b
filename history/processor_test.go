package history

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/thingsdev/thingscloud/todo"
)

func newTestTable(c *tickClock) *Table {
	return NewTable(TableOptions{
		Clock:  c,
		Logger: log.New(io.Discard, "", 0),
	})
}

// snapshotFor builds the wire payload a server would report for a
// newly created item.
func snapshotFor(t *testing.T, item *todo.Todo) todo.Payload {
	t.Helper()
	snap, err := item.Snapshot()
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	return snap
}

func TestApply_New(t *testing.T) {
	c := newTickClock()
	tb := newTestTable(c)
	remote := todo.New("from another device", todo.Options{Clock: c})

	res, err := tb.Apply(Batch{
		CurrentIndex: 5,
		Updates: []Update{
			{ID: remote.ID(), Kind: KindNew, Payload: snapshotFor(t, remote)},
		},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if res.Created != 1 {
		t.Errorf("expected 1 created, got %d", res.Created)
	}
	if tb.Watermark() != 5 {
		t.Errorf("watermark should advance to 5, got %d", tb.Watermark())
	}
	it, ok := tb.Get(remote.ID())
	if !ok {
		t.Fatal("item not inserted")
	}
	if it.Todo.Title() != "from another device" {
		t.Errorf("unexpected title %q", it.Todo.Title())
	}

	// A remotely created item arrives already in sync.
	pending, err := it.HasPendingChanges()
	if err != nil {
		t.Fatalf("pending check failed: %v", err)
	}
	if pending {
		t.Error("remote insert should not be pending")
	}
}

func TestApply_Edit(t *testing.T) {
	c := newTickClock()
	tb := newTestTable(c)
	remote := todo.New("task", todo.Options{Clock: c})
	_, err := tb.Apply(Batch{
		CurrentIndex: 1,
		Updates: []Update{
			{ID: remote.ID(), Kind: KindNew, Payload: snapshotFor(t, remote)},
		},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	res, err := tb.Apply(Batch{
		CurrentIndex: 2,
		Updates: []Update{
			{ID: remote.ID(), Kind: KindEdit, Payload: todo.Payload{
				"tt": json.RawMessage(`"renamed remotely"`),
				"md": json.RawMessage("1623758500"),
			}},
		},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if res.Edited != 1 {
		t.Errorf("expected 1 edited, got %d", res.Edited)
	}
	if tb.Watermark() != 2 {
		t.Errorf("watermark should advance to 2, got %d", tb.Watermark())
	}
	it, _ := tb.Get(remote.ID())
	if it.Todo.Title() != "renamed remotely" {
		t.Errorf("edit not applied, title %q", it.Todo.Title())
	}
	// The edit was absorbed into the synced snapshot too, so nothing
	// is left pending.
	pending, err := it.HasPendingChanges()
	if err != nil {
		t.Fatalf("pending check failed: %v", err)
	}
	if pending {
		t.Error("absorbed remote edit should not be pending")
	}
}

func TestApply_EditPreservesLocalPendingChanges(t *testing.T) {
	c := newTickClock()
	tb := newTestTable(c)
	remote := todo.New("task", todo.Options{Clock: c})
	_, err := tb.Apply(Batch{
		CurrentIndex: 1,
		Updates: []Update{
			{ID: remote.ID(), Kind: KindNew, Payload: snapshotFor(t, remote)},
		},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	// Local uncommitted change to one field, remote edit to another.
	it, _ := tb.Get(remote.ID())
	if err := it.Todo.Complete(); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	_, err = tb.Apply(Batch{
		CurrentIndex: 2,
		Updates: []Update{
			{ID: remote.ID(), Kind: KindEdit, Payload: todo.Payload{
				"tt": json.RawMessage(`"renamed remotely"`),
			}},
		},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if it.Todo.Title() != "renamed remotely" {
		t.Errorf("remote edit lost, title %q", it.Todo.Title())
	}
	if it.Todo.Status() != todo.StatusComplete {
		t.Error("local change lost")
	}
	// The local status change must still be pending: the remote delta
	// only moved the title's synced baseline.
	u, err := it.BuildUpdate()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if u.Kind != KindEdit {
		t.Fatalf("expected edit, got %s", u.Kind)
	}
	if _, ok := u.Payload["ss"]; !ok {
		t.Errorf("status change should remain pending, keys %v", u.Payload.Keys())
	}
	if _, ok := u.Payload["tt"]; ok {
		t.Errorf("title is in sync and must not be resent, keys %v", u.Payload.Keys())
	}
}

func TestApply_UnknownEditSkipped(t *testing.T) {
	c := newTickClock()
	tb := newTestTable(c)
	known := todo.New("known", todo.Options{Clock: c})

	res, err := tb.Apply(Batch{
		CurrentIndex: 3,
		Updates: []Update{
			{ID: "UNKNOWN0000000000000AA", Kind: KindEdit, Payload: todo.Payload{
				"tt": json.RawMessage(`"ghost"`),
			}},
			{ID: known.ID(), Kind: KindNew, Payload: snapshotFor(t, known)},
		},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	// The unknown edit is skipped; the rest of the batch still lands.
	if len(res.Skipped) != 1 || res.Skipped[0] != "UNKNOWN0000000000000AA" {
		t.Errorf("expected one skipped id, got %v", res.Skipped)
	}
	if res.Created != 1 {
		t.Errorf("expected 1 created, got %d", res.Created)
	}
	if tb.Watermark() != 3 {
		t.Errorf("watermark should still advance, got %d", tb.Watermark())
	}
}

func TestApply_Delete(t *testing.T) {
	c := newTickClock()
	tb := newTestTable(c)
	remote := todo.New("task", todo.Options{Clock: c})
	_, err := tb.Apply(Batch{
		CurrentIndex: 1,
		Updates: []Update{
			{ID: remote.ID(), Kind: KindNew, Payload: snapshotFor(t, remote)},
		},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	res, err := tb.Apply(Batch{
		CurrentIndex: 2,
		Updates: []Update{
			{ID: remote.ID(), Kind: KindDelete},
			{ID: "UNKNOWN0000000000000AA", Kind: KindDelete},
		},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if res.Deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", res.Deleted)
	}
	if len(res.Skipped) != 1 {
		t.Errorf("expected 1 skipped, got %v", res.Skipped)
	}
	if _, ok := tb.Get(remote.ID()); ok {
		t.Error("deleted item still present")
	}
}

func TestApply_MalformedPayloadAborts(t *testing.T) {
	c := newTickClock()
	tb := newTestTable(c)
	tb.SetWatermark(10)

	_, err := tb.Apply(Batch{
		CurrentIndex: 11,
		Updates: []Update{
			{ID: "BADBADBADBADBADBADBDAA", Kind: KindNew, Payload: todo.Payload{
				"ss": json.RawMessage(`"garbage"`),
			}},
		},
	})
	if !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation, got %v", err)
	}
	// The failed batch must not move the watermark; the next refresh
	// re-fetches it.
	if tb.Watermark() != 10 {
		t.Errorf("watermark moved on failure: %d", tb.Watermark())
	}
}

func TestApply_UnknownKindAborts(t *testing.T) {
	c := newTickClock()
	tb := newTestTable(c)

	_, err := tb.Apply(Batch{
		CurrentIndex: 1,
		Updates:      []Update{{ID: "X", Kind: Kind(9)}},
	})
	if !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation, got %v", err)
	}
}

func TestApply_NewThenEditInOneBatch(t *testing.T) {
	c := newTickClock()
	tb := newTestTable(c)
	remote := todo.New("task", todo.Options{Clock: c})

	res, err := tb.Apply(Batch{
		CurrentIndex: 2,
		Updates: []Update{
			{ID: remote.ID(), Kind: KindNew, Payload: snapshotFor(t, remote)},
			{ID: remote.ID(), Kind: KindEdit, Payload: todo.Payload{
				"ss": json.RawMessage("3"),
				"sp": json.RawMessage("1623758500"),
			}},
		},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if res.Created != 1 || res.Edited != 1 {
		t.Errorf("expected 1 created and 1 edited, got %+v", res)
	}
	it, _ := tb.Get(remote.ID())
	if it.Todo.Status() != todo.StatusComplete {
		t.Errorf("in-batch edit not applied, status %s", it.Todo.Status())
	}
}

func TestAll_Ordering(t *testing.T) {
	c := newTickClock()
	tb := newTestTable(c)

	a := todo.New("a", todo.Options{Clock: c})
	a.Index = 7
	b := todo.New("b", todo.Options{Clock: c})
	b.Index = 3
	unsynced := todo.New("local only", todo.Options{Clock: c})

	tb.Add(a)
	tb.Add(b)
	tb.Add(unsynced)

	all := tb.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 items, got %d", len(all))
	}
	if all[0].Todo.ID() != b.ID() || all[1].Todo.ID() != a.ID() || all[2].Todo.ID() != unsynced.ID() {
		t.Errorf("unexpected order: %s %s %s",
			all[0].Todo.Title(), all[1].Todo.Title(), all[2].Todo.Title())
	}
}
