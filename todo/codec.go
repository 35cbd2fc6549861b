package todo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/thingsdev/thingscloud/internal/clock"
)

// Payload is a wire-encoded record: short alias keys mapped to raw
// JSON values. A full payload (snapshot) carries every key; a delta
// carries only the keys that changed. A key that is present with a
// JSON null clears the field; a key that is absent leaves the field
// untouched.
type Payload map[string]json.RawMessage

// Keys returns the payload's wire keys in sorted order.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of the payload.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns base with delta's keys overwritten field-by-field.
// Neither argument is modified.
func Merge(base, delta Payload) Payload {
	out := base.Clone()
	if out == nil {
		out = make(Payload, len(delta))
	}
	for k, v := range delta {
		out[k] = v
	}
	return out
}

// fieldCodec binds one wire key to its encode and decode behavior.
// The table below is the static replacement for the protocol's
// historical runtime rename dictionaries: adding a field means adding
// exactly one entry.
type fieldCodec struct {
	key    string
	encode func(*Todo) (any, error)
	decode func(*Todo, json.RawMessage) error
}

var wireFields = []fieldCodec{
	{"ix",
		func(t *Todo) (any, error) { return t.Index, nil },
		func(t *Todo, raw json.RawMessage) error { return decInt(raw, &t.Index) }},
	{"tt",
		func(t *Todo) (any, error) { return t.title, nil },
		func(t *Todo, raw json.RawMessage) error { return decString(raw, &t.title) }},
	{"ss",
		func(t *Todo) (any, error) { return int(t.status), nil },
		func(t *Todo, raw json.RawMessage) error {
			var v int
			if err := decInt(raw, &v); err != nil {
				return err
			}
			s := Status(v)
			if !s.IsValid() {
				return fmt.Errorf("%w: %d", ErrInvalidStatus, v)
			}
			t.status = s
			return nil
		}},
	{"st",
		func(t *Todo) (any, error) { return int(t.destination), nil },
		func(t *Todo, raw json.RawMessage) error {
			var v int
			if err := decInt(raw, &v); err != nil {
				return err
			}
			d := Destination(v)
			if !d.IsValid() {
				return fmt.Errorf("%w: %d", ErrInvalidDestination, v)
			}
			t.destination = d
			return nil
		}},
	{"cd",
		func(t *Todo) (any, error) { return preciseTimestamp(t.creationDate), nil },
		func(t *Todo, raw json.RawMessage) error {
			v, err := decTime(raw)
			if err != nil || v == nil {
				return err
			}
			t.creationDate = *v
			return nil
		}},
	{"md",
		func(t *Todo) (any, error) { return preciseTimestamp(t.modificationDate), nil },
		func(t *Todo, raw json.RawMessage) error {
			v, err := decTime(raw)
			if err != nil || v == nil {
				return err
			}
			t.modificationDate = *v
			return nil
		}},
	{"sr",
		func(t *Todo) (any, error) { return roundedTimestamp(t.scheduledDate), nil },
		func(t *Todo, raw json.RawMessage) error { return decTimePtr(raw, &t.scheduledDate) }},
	{"tir",
		func(t *Todo) (any, error) { return roundedTimestamp(t.todayIndexReferenceDate), nil },
		func(t *Todo, raw json.RawMessage) error { return decTimePtr(raw, &t.todayIndexReferenceDate) }},
	{"sp",
		func(t *Todo) (any, error) { return roundedTimestamp(t.completionDate), nil },
		func(t *Todo, raw json.RawMessage) error { return decTimePtr(raw, &t.completionDate) }},
	{"dd",
		func(t *Todo) (any, error) { return roundedTimestamp(t.dueDate), nil },
		func(t *Todo, raw json.RawMessage) error { return decTimePtr(raw, &t.dueDate) }},
	{"tr",
		func(t *Todo) (any, error) { return t.trashed, nil },
		func(t *Todo, raw json.RawMessage) error { return decBool(raw, &t.trashed) }},
	{"icp",
		func(t *Todo) (any, error) { return t.instanceCreationPaused, nil },
		func(t *Todo, raw json.RawMessage) error { return decBool(raw, &t.instanceCreationPaused) }},
	{"pr",
		func(t *Todo) (any, error) { return stringList(t.projects), nil },
		func(t *Todo, raw json.RawMessage) error { return decStringList(raw, &t.projects) }},
	{"ar",
		func(t *Todo) (any, error) { return stringList(t.areas), nil },
		func(t *Todo, raw json.RawMessage) error { return decStringList(raw, &t.areas) }},
	{"sb",
		// The evening flag is one of the fields the wire writes as
		// 0/1 rather than true/false.
		func(t *Todo) (any, error) { return boolBit(t.evening), nil },
		func(t *Todo, raw json.RawMessage) error { return decBool(raw, &t.evening) }},
	{"tg",
		func(t *Todo) (any, error) { return anyList(t.Tags), nil },
		func(t *Todo, raw json.RawMessage) error { return decAnyList(raw, &t.Tags) }},
	{"tp",
		func(t *Todo) (any, error) { return int(t.typ), nil },
		func(t *Todo, raw json.RawMessage) error {
			var v int
			if err := decInt(raw, &v); err != nil {
				return err
			}
			typ := Type(v)
			if !typ.IsValid() {
				return fmt.Errorf("invalid record type: %d", v)
			}
			t.typ = typ
			return nil
		}},
	{"dds",
		func(t *Todo) (any, error) { return roundedTimestamp(t.DueDateSuppressionDate), nil },
		func(t *Todo, raw json.RawMessage) error { return decTimePtr(raw, &t.DueDateSuppressionDate) }},
	{"rt",
		func(t *Todo) (any, error) { return stringList(t.RepeatingTemplate), nil },
		func(t *Todo, raw json.RawMessage) error { return decStringList(raw, &t.RepeatingTemplate) }},
	{"rmd",
		func(t *Todo) (any, error) { return rawValue(t.RepeaterMigrationDate), nil },
		func(t *Todo, raw json.RawMessage) error { return decRaw(raw, &t.RepeaterMigrationDate) }},
	{"dl",
		func(t *Todo) (any, error) { return anyList(t.Delegate), nil },
		func(t *Todo, raw json.RawMessage) error { return decAnyList(raw, &t.Delegate) }},
	{"do",
		func(t *Todo) (any, error) { return t.DueDateOffset, nil },
		func(t *Todo, raw json.RawMessage) error { return decInt(raw, &t.DueDateOffset) }},
	{"lai",
		func(t *Todo) (any, error) { return roundedTimestamp(t.LastAlarmInteractionDate), nil },
		func(t *Todo, raw json.RawMessage) error { return decTimePtr(raw, &t.LastAlarmInteractionDate) }},
	{"agr",
		func(t *Todo) (any, error) { return stringList(t.ActionGroup), nil },
		func(t *Todo, raw json.RawMessage) error { return decStringList(raw, &t.ActionGroup) }},
	{"lt",
		func(t *Todo) (any, error) { return t.LeavesTombstone, nil },
		func(t *Todo, raw json.RawMessage) error { return decBool(raw, &t.LeavesTombstone) }},
	{"icc",
		func(t *Todo) (any, error) { return t.InstanceCreationCount, nil },
		func(t *Todo, raw json.RawMessage) error { return decInt(raw, &t.InstanceCreationCount) }},
	{"ti",
		func(t *Todo) (any, error) { return t.TodayIndex, nil },
		func(t *Todo, raw json.RawMessage) error { return decInt(raw, &t.TodayIndex) }},
	{"ato",
		func(t *Todo) (any, error) {
			if t.reminder == nil {
				return nil, nil
			}
			return t.reminder.Seconds(), nil
		},
		func(t *Todo, raw json.RawMessage) error {
			if isNull(raw) {
				t.reminder = nil
				return nil
			}
			var s int
			if err := decInt(raw, &s); err != nil {
				return err
			}
			tod, err := TimeOfDayFromSeconds(s)
			if err != nil {
				return err
			}
			t.reminder = &tod
			return nil
		}},
	{"icsd",
		func(t *Todo) (any, error) { return roundedTimestamp(t.InstanceCreationStartDate), nil },
		func(t *Todo, raw json.RawMessage) error { return decTimePtr(raw, &t.InstanceCreationStartDate) }},
	{"rp",
		func(t *Todo) (any, error) { return rawValue(t.Repeater), nil },
		func(t *Todo, raw json.RawMessage) error { return decRaw(raw, &t.Repeater) }},
	{"acrd",
		func(t *Todo) (any, error) { return roundedTimestamp(t.AfterCompletionReferenceDate), nil },
		func(t *Todo, raw json.RawMessage) error { return decTimePtr(raw, &t.AfterCompletionReferenceDate) }},
	{"rr",
		func(t *Todo) (any, error) { return rawValue(t.RecurrenceRule), nil },
		func(t *Todo, raw json.RawMessage) error { return decRaw(raw, &t.RecurrenceRule) }},
	{"nt",
		func(t *Todo) (any, error) { return t.Note, nil },
		func(t *Todo, raw json.RawMessage) error {
			if isNull(raw) {
				t.Note = NewNote()
				return nil
			}
			var n Note
			if err := json.Unmarshal(raw, &n); err != nil {
				return err
			}
			t.Note = n
			return nil
		}},
}

var wireFieldsByKey = func() map[string]*fieldCodec {
	m := make(map[string]*fieldCodec, len(wireFields))
	for i := range wireFields {
		m[wireFields[i].key] = &wireFields[i]
	}
	return m
}()

// Snapshot encodes every field into a full wire payload, as used for
// create commits and as the baseline for delta derivation.
func (t *Todo) Snapshot() (Payload, error) {
	p := make(Payload, len(wireFields))
	for i := range wireFields {
		fc := &wireFields[i]
		v, err := fc.encode(t)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", fc.key, err)
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", fc.key, err)
		}
		p[fc.key] = raw
	}
	return p, nil
}

// Diff encodes the record and returns only the keys whose encoding
// differs from base. Because the comparison is against the snapshot
// rather than a record of which setters ran, a field that was changed
// and then changed back does not appear in the result.
func (t *Todo) Diff(base Payload) (Payload, error) {
	snap, err := t.Snapshot()
	if err != nil {
		return nil, err
	}
	delta := make(Payload)
	for key, raw := range snap {
		if prev, ok := base[key]; ok && bytes.Equal(prev, raw) {
			continue
		}
		delta[key] = raw
	}
	return delta, nil
}

// ApplyPayload decodes the payload's present keys onto the record.
// This is the entry point for incoming remote mutations: it writes
// the underlying storage directly and does not stamp the modification
// date (the payload carries its own).
//
// A key holding null clears its field; an absent key leaves the field
// untouched; a wire key the client does not know is ignored for
// forward compatibility. Any malformed value rejects the whole
// payload and leaves the record unchanged.
func (t *Todo) ApplyPayload(p Payload) error {
	tmp := *t
	for key, raw := range p {
		fc, ok := wireFieldsByKey[key]
		if !ok {
			continue
		}
		if err := fc.decode(&tmp, raw); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
	}
	*t = tmp
	return nil
}

// DecodeSnapshot builds a record from a full wire payload, as
// reported by the server for newly created items.
func DecodeSnapshot(id string, p Payload, c clock.Clock) (*Todo, error) {
	if c == nil {
		c = clock.System()
	}
	t := &Todo{
		id:    id,
		clock: c,
		Note:  NewNote(),
	}
	if err := t.ApplyPayload(p); err != nil {
		return nil, err
	}
	return t, nil
}

// Wire value helpers. Timestamps encode as epoch seconds: creation
// and modification dates keep fractional precision, every other date
// field is rounded to whole seconds, matching the protocol schema.

func preciseTimestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func roundedTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func boolBit(b bool) int {
	if b {
		return 1
	}
	return 0
}

func stringList(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func anyList(s []any) []any {
	if s == nil {
		return []any{}
	}
	return s
}

func rawValue(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decInt(raw json.RawMessage, out *int) error {
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*out = v
	return nil
}

func decString(raw json.RawMessage, out *string) error {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*out = v
	return nil
}

// decBool accepts JSON booleans as well as the 0/1 integers some
// schema versions write for flag fields.
func decBool(raw json.RawMessage, out *bool) error {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		*out = b
		return nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("expected bool or 0/1, got %s", raw)
	}
	*out = n != 0
	return nil
}

// decTime parses an epoch-seconds number (integer or fractional)
// into a UTC time. Null yields nil.
func decTime(raw json.RawMessage) (*time.Time, error) {
	if isNull(raw) {
		return nil, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("expected epoch timestamp, got %s", raw)
	}
	sec := math.Floor(f)
	nsec := math.Round((f - sec) * float64(time.Second))
	t := time.Unix(int64(sec), int64(nsec)).UTC()
	return &t, nil
}

func decTimePtr(raw json.RawMessage, out **time.Time) error {
	v, err := decTime(raw)
	if err != nil {
		return err
	}
	*out = v
	return nil
}

func decStringList(raw json.RawMessage, out *[]string) error {
	if isNull(raw) {
		*out = nil
		return nil
	}
	var v []string
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	if len(v) == 0 {
		*out = nil
		return nil
	}
	*out = v
	return nil
}

func decAnyList(raw json.RawMessage, out *[]any) error {
	if isNull(raw) {
		*out = nil
		return nil
	}
	var v []any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	if len(v) == 0 {
		*out = nil
		return nil
	}
	*out = v
	return nil
}

func decRaw(raw json.RawMessage, out *json.RawMessage) error {
	if isNull(raw) {
		*out = nil
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return err
	}
	*out = json.RawMessage(buf.Bytes())
	return nil
}
