package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/thingsdev/thingscloud/internal/clock"
	"github.com/thingsdev/thingscloud/todo"
)

const (
	// ItemsFile is the JSONL file holding one record per line.
	ItemsFile = "items.jsonl"

	// StateFile holds the watermark.
	StateFile = "state.json"

	maxJSONLineBytes = 1024 * 1024
)

// Store persists a table to a cache directory so the client survives
// process restarts: records (with their synced snapshots) as JSONL,
// the watermark as a small JSON state file.
type Store struct {
	dir    string
	clock  clock.Clock
	logger *log.Logger
}

// StoreOptions configures a store.
type StoreOptions struct {
	// Clock is attached to loaded records. Defaults to the system
	// clock.
	Clock clock.Clock

	// Logger is passed through to tables loaded from the store.
	Logger *log.Logger
}

// OpenStore opens (creating if needed) the cache directory at dir.
func OpenStore(dir string, opts StoreOptions) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	c := opts.Clock
	if c == nil {
		c = clock.System()
	}
	return &Store{dir: dir, clock: c, logger: opts.Logger}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

type storedItem struct {
	ID     string       `json:"id"`
	Todo   todo.Payload `json:"todo"`
	Synced todo.Payload `json:"synced,omitempty"`
}

type storedState struct {
	Watermark int `json:"watermark"`
}

// Load reads the persisted table. A missing cache yields an empty
// table with a zero watermark.
func (s *Store) Load() (*Table, error) {
	tb := NewTable(TableOptions{Clock: s.clock, Logger: s.logger})

	state, err := s.loadState()
	if err != nil {
		return nil, err
	}
	tb.watermark = state.Watermark

	f, err := os.Open(filepath.Join(s.dir, ItemsFile))
	if os.IsNotExist(err) {
		return tb, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open items file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var stored storedItem
		if err := json.Unmarshal(data, &stored); err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", ItemsFile, line, err)
		}
		t, err := todo.DecodeSnapshot(stored.ID, stored.Todo, s.clock)
		if err != nil {
			return nil, fmt.Errorf("decode %s line %d: %w", ItemsFile, line, err)
		}
		tb.items[stored.ID] = &Item{Todo: t, synced: stored.Synced}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read items file: %w", err)
	}

	return tb, nil
}

// Save writes the table back to the cache directory. Files are
// written to a temp path and renamed into place.
func (s *Store) Save(tb *Table) error {
	var buf bytes.Buffer
	for _, it := range tb.All() {
		snap, err := it.Todo.Snapshot()
		if err != nil {
			return fmt.Errorf("encode %s: %w", it.Todo.ID(), err)
		}
		line, err := json.Marshal(storedItem{
			ID:     it.Todo.ID(),
			Todo:   snap,
			Synced: it.synced,
		})
		if err != nil {
			return fmt.Errorf("encode %s: %w", it.Todo.ID(), err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := s.writeFile(ItemsFile, buf.Bytes()); err != nil {
		return err
	}

	state, err := json.Marshal(storedState{Watermark: tb.watermark})
	if err != nil {
		return err
	}
	return s.writeFile(StateFile, state)
}

func (s *Store) loadState() (storedState, error) {
	var state storedState
	data, err := os.ReadFile(filepath.Join(s.dir, StateFile))
	if os.IsNotExist(err) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("read state file: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("parse state file: %w", err)
	}
	return state, nil
}

func (s *Store) writeFile(name string, data []byte) error {
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
