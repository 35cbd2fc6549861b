package history

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/thingsdev/thingscloud/todo"
)

func TestMarshalCommit(t *testing.T) {
	data, err := MarshalCommit([]Update{
		{
			ID:   "AAAAAAAAAAAAAAAAAAAAAA",
			Kind: KindEdit,
			Payload: todo.Payload{
				"tt": json.RawMessage(`"renamed"`),
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var body map[string]struct {
		Kind    int             `json:"t"`
		Entity  string          `json:"e"`
		Payload json.RawMessage `json:"p"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	u, ok := body["AAAAAAAAAAAAAAAAAAAAAA"]
	if !ok {
		t.Fatal("commit body should be keyed by item id")
	}
	if u.Kind != 1 {
		t.Errorf("expected kind 1, got %d", u.Kind)
	}
	if u.Entity != "Task6" {
		t.Errorf("expected entity Task6, got %q", u.Entity)
	}
	if string(u.Payload) != `{"tt":"renamed"}` {
		t.Errorf("unexpected payload: %s", u.Payload)
	}
}

func TestMarshalCommit_DeleteOmitsPayload(t *testing.T) {
	data, err := MarshalCommit([]Update{
		{ID: "AAAAAAAAAAAAAAAAAAAAAA", Kind: KindDelete},
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var body map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := body["AAAAAAAAAAAAAAAAAAAAAA"]["p"]; ok {
		t.Error("delete should carry no payload")
	}
}

func TestMarshalCommit_InvalidKind(t *testing.T) {
	_, err := MarshalCommit([]Update{{ID: "X", Kind: Kind(5)}})
	if err == nil {
		t.Fatal("invalid kind should fail")
	}
}

func TestDecodeItem(t *testing.T) {
	raw := json.RawMessage(`{
		"AAAAAAAAAAAAAAAAAAAAAA": {"t": 0, "e": "Task6", "p": {"tt": "new task"}}
	}`)

	updates, err := DecodeItem(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	u := updates[0]
	if u.ID != "AAAAAAAAAAAAAAAAAAAAAA" {
		t.Errorf("unexpected id %q", u.ID)
	}
	if u.Kind != KindNew {
		t.Errorf("expected new, got %s", u.Kind)
	}
	if string(u.Payload["tt"]) != `"new task"` {
		t.Errorf("unexpected payload: %v", u.Payload)
	}
}

func TestDecodeItem_Malformed(t *testing.T) {
	_, err := DecodeItem(json.RawMessage(`[1,2,3]`))
	if !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation, got %v", err)
	}
}

func TestDecodeItem_UnknownKind(t *testing.T) {
	raw := json.RawMessage(`{"AAAAAAAAAAAAAAAAAAAAAA": {"t": 9, "e": "Task6"}}`)
	_, err := DecodeItem(raw)
	if !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation, got %v", err)
	}
}

func TestKindStrings(t *testing.T) {
	if KindNew.String() != "new" || KindEdit.String() != "edit" || KindDelete.String() != "delete" {
		t.Error("unexpected kind strings")
	}
	if Kind(9).IsValid() {
		t.Error("kind 9 should be invalid")
	}
}
