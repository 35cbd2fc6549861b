package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/thingsdev/thingscloud/history"
	"github.com/thingsdev/thingscloud/todo"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Options{
		Account: "test-history-key",
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	return client, srv
}

func TestNewClient_RequiresAccount(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("missing account should fail")
	}
}

func TestFetchHistory(t *testing.T) {
	var gotPath, gotStart, gotSchema, gotAppID string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotStart = r.URL.Query().Get("start-index")
		gotSchema = r.Header.Get("Schema")
		gotAppID = r.Header.Get("App-Id")
		w.Write([]byte(`{
			"items": [
				{"AAAAAAAAAAAAAAAAAAAAAA": {"t": 0, "e": "Task6", "p": {"tt": "hello"}}}
			],
			"current-item-index": 17,
			"latest-total-content-size": 1234,
			"schema": 301
		}`))
	}))

	batch, err := client.FetchHistory(context.Background(), 12)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if gotPath != "/version/1/history/test-history-key/items" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotStart != "12" {
		t.Errorf("expected start-index 12, got %q", gotStart)
	}
	if gotSchema != "301" {
		t.Errorf("expected schema 301, got %q", gotSchema)
	}
	if gotAppID != DefaultAppID {
		t.Errorf("unexpected app id %q", gotAppID)
	}
	if batch.CurrentIndex != 17 {
		t.Errorf("expected current index 17, got %d", batch.CurrentIndex)
	}
	if len(batch.Updates) != 1 || batch.Updates[0].ID != "AAAAAAAAAAAAAAAAAAAAAA" {
		t.Fatalf("unexpected updates: %+v", batch.Updates)
	}
	if batch.Updates[0].Kind != history.KindNew {
		t.Errorf("expected new, got %s", batch.Updates[0].Kind)
	}
}

func TestFetchHistory_EmptyPage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": [], "current-item-index": 40}`))
	}))

	batch, err := client.FetchHistory(context.Background(), 40)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if batch.CurrentIndex != 40 || len(batch.Updates) != 0 {
		t.Errorf("unexpected batch: %+v", batch)
	}
}

func TestFetchHistory_MissingIndex(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": []}`))
	}))

	_, err := client.FetchHistory(context.Background(), 0)
	if !errors.Is(err, history.ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation, got %v", err)
	}
}

func TestFetchHistory_ServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))

	_, err := client.FetchHistory(context.Background(), 0)
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if terr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", terr.StatusCode)
	}
}

func TestCommit(t *testing.T) {
	var gotPath, gotAncestor, gotCount string
	var gotBody map[string]json.RawMessage
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAncestor = r.URL.Query().Get("ancestor-index")
		gotCount = r.URL.Query().Get("_cnt")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("bad commit body: %v", err)
		}
		w.Write([]byte(`{"server-head-index": 18}`))
	}))

	head, err := client.Commit(context.Background(), 17, []history.Update{
		{
			ID:   "AAAAAAAAAAAAAAAAAAAAAA",
			Kind: history.KindEdit,
			Payload: todo.Payload{
				"tt": json.RawMessage(`"renamed"`),
			},
		},
	})
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if gotPath != "/version/1/history/test-history-key/commit" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAncestor != "17" || gotCount != "1" {
		t.Errorf("unexpected params: ancestor=%q cnt=%q", gotAncestor, gotCount)
	}
	if _, ok := gotBody["AAAAAAAAAAAAAAAAAAAAAA"]; !ok {
		t.Errorf("commit body not keyed by id: %v", gotBody)
	}
	if head != 18 {
		t.Errorf("expected head 18, got %d", head)
	}
}

func TestCommit_Empty(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty commit must not reach the server")
	}))

	_, err := client.Commit(context.Background(), 0, nil)
	if !errors.Is(err, history.ErrNoChanges) {
		t.Fatalf("expected ErrNoChanges, got %v", err)
	}
}

func TestCommit_MissingHeadIndex(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	_, err := client.Commit(context.Background(), 0, []history.Update{
		{ID: "AAAAAAAAAAAAAAAAAAAAAA", Kind: history.KindDelete},
	})
	if !errors.Is(err, history.ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation, got %v", err)
	}
}

func TestCommit_Conflict(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "stale ancestor", http.StatusConflict)
	}))

	_, err := client.Commit(context.Background(), 5, []history.Update{
		{ID: "AAAAAAAAAAAAAAAAAAAAAA", Kind: history.KindDelete},
	})
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if terr.StatusCode != http.StatusConflict {
		t.Errorf("expected status 409, got %d", terr.StatusCode)
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	base := errors.New("timeout")
	err := &TransportError{Op: "fetch history", Err: base}
	if !errors.Is(err, base) {
		t.Error("TransportError should unwrap its cause")
	}
	if err.Error() == "" {
		t.Error("empty error string")
	}
}
