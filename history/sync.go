package history

import (
	"context"
	"errors"
	"fmt"
)

// Transport is the interface the reconciliation core needs from the
// HTTP layer. The cloud package provides the real implementation.
type Transport interface {
	// FetchHistory returns all updates strictly after sinceIndex and
	// the server's current head index.
	FetchHistory(ctx context.Context, sinceIndex int) (Batch, error)

	// Commit sends updates based at ancestorIndex and returns the new
	// server head index.
	Commit(ctx context.Context, ancestorIndex int, updates []Update) (int, error)
}

// Syncer drives a table against a transport. It is not safe for
// concurrent use: the watermark is an optimistic concurrency token,
// and overlapping commits would race on it.
type Syncer struct {
	table     *Table
	transport Transport
}

// NewSyncer binds a table to a transport.
func NewSyncer(table *Table, transport Transport) *Syncer {
	return &Syncer{table: table, transport: transport}
}

// Table returns the table the syncer drives.
func (s *Syncer) Table() *Table {
	return s.table
}

// Refresh fetches everything after the current watermark and applies
// it. The watermark only advances after a response is observed and
// the batch applies cleanly; a failed or cancelled fetch leaves it
// untouched, so the next refresh re-derives the truth.
func (s *Syncer) Refresh(ctx context.Context) (ApplyResult, error) {
	batch, err := s.transport.FetchHistory(ctx, s.table.Watermark())
	if err != nil {
		return ApplyResult{}, err
	}
	return s.table.Apply(batch)
}

// Push commits the item's pending changes: a create for items the
// server has never seen, otherwise an edit delta. On acceptance the
// item's synced snapshot and the watermark are updated.
//
// An item whose fields all match its synced snapshot yields
// ErrNoChanges; callers should treat that as "nothing to do", not
// retry.
func (s *Syncer) Push(ctx context.Context, it *Item) error {
	// A create consumes the next history slot, and the server assigns
	// that slot as the item's order index.
	if it.synced == nil && it.Todo.Index == 0 {
		it.Todo.Index = s.table.Watermark() + 1
	}

	u, err := it.BuildUpdate()
	if err != nil {
		return err
	}

	head, err := s.transport.Commit(ctx, s.table.Watermark(), []Update{u})
	if err != nil {
		return err
	}

	it.CommitAccepted(u)
	s.table.SetWatermark(head)
	return nil
}

// PushPending pushes every item with pending changes, in table
// order. It returns the number of items committed.
func (s *Syncer) PushPending(ctx context.Context) (int, error) {
	pushed := 0
	for _, it := range s.table.All() {
		pending, err := it.HasPendingChanges()
		if err != nil {
			return pushed, err
		}
		if !pending {
			continue
		}
		if err := s.Push(ctx, it); err != nil {
			if errors.Is(err, ErrNoChanges) {
				continue
			}
			return pushed, fmt.Errorf("push %s: %w", it.Todo.ID(), err)
		}
		pushed++
	}
	return pushed, nil
}
