// Package history implements the reconciliation half of the sync
// client: deciding what to transmit for a locally mutated item
// (full snapshot for never-committed items, minimal delta otherwise)
// and applying batches of server-reported updates onto the local item
// table while tracking the commit watermark.
package history

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/thingsdev/thingscloud/todo"
)

var (
	// ErrProtocolViolation is returned when the server reports
	// something the client cannot interpret: a malformed update body,
	// an unknown update kind, or a payload that fails to decode.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrUnknownRecord is reported when an edit or delete references
	// an id the local table has never seen.
	ErrUnknownRecord = errors.New("unknown record")

	// ErrNoChanges is returned when building an update for an item
	// whose fields all match its last synced snapshot. Empty edits
	// must not be committed.
	ErrNoChanges = errors.New("no changes to send")
)

// Kind classifies a history update. The values are the protocol's
// "t" wire field.
type Kind int

const (
	// KindNew carries a full snapshot of a created item.
	KindNew Kind = 0

	// KindEdit carries a delta of only the changed fields.
	KindEdit Kind = 1

	// KindDelete carries no payload; the item is gone.
	KindDelete Kind = 2
)

// IsValid returns true if the kind is a known wire value.
func (k Kind) IsValid() bool {
	switch k {
	case KindNew, KindEdit, KindDelete:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k {
	case KindNew:
		return "new"
	case KindEdit:
		return "edit"
	case KindDelete:
		return "delete"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// entityTask is the schema entity name for todo records.
const entityTask = "Task6"

// Update is a single change in the global history: either reported
// by the server or built locally for a commit.
type Update struct {
	ID      string
	Kind    Kind
	Payload todo.Payload
}

// Batch is one page of server history: the updates strictly after
// the requested index, plus the server's current head index.
type Batch struct {
	CurrentIndex int
	Updates      []Update
}

// updateBody is the wire form of an update, keyed by item id in the
// enclosing object.
type updateBody struct {
	Kind    int          `json:"t"`
	Entity  string       `json:"e"`
	Payload todo.Payload `json:"p,omitempty"`
}

// MarshalCommit encodes updates into the commit request body: an
// object keyed by item id.
func MarshalCommit(updates []Update) ([]byte, error) {
	body := make(map[string]updateBody, len(updates))
	for _, u := range updates {
		if !u.Kind.IsValid() {
			return nil, fmt.Errorf("marshal update %s: invalid kind %d", u.ID, int(u.Kind))
		}
		body[u.ID] = updateBody{
			Kind:    int(u.Kind),
			Entity:  entityTask,
			Payload: u.Payload,
		}
	}
	return json.Marshal(body)
}

// DecodeItem decodes one element of the server's items array. Each
// element is an object keyed by item id; the server usually sends one
// id per element but the shape permits several.
func DecodeItem(raw json.RawMessage) ([]Update, error) {
	var body map[string]updateBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: malformed history item: %v", ErrProtocolViolation, err)
	}
	updates := make([]Update, 0, len(body))
	for id, b := range body {
		kind := Kind(b.Kind)
		if !kind.IsValid() {
			return nil, fmt.Errorf("%w: unknown update kind %d for %s", ErrProtocolViolation, b.Kind, id)
		}
		updates = append(updates, Update{
			ID:      id,
			Kind:    kind,
			Payload: b.Payload,
		})
	}
	return updates, nil
}
