package supclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fernwick/supbridge/internal/models"
)

func mustDecodeJSON(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("bad test fixture: %v", err)
	}
	return v
}

func TestDecodeSnapshotFull(t *testing.T) {
	raw := mustDecodeJSON(t, `{
		"result": {"data": {"chats": [
			{"id": "c1", "type": "direct", "messages": [
				{"id": "m1", "senderId": "u1", "content": "hi", "createdAt": "2024-05-01T10:00:00Z"},
				{"id": "m2", "senderId": "u2", "content": "yo", "mentions": ["bot"]}
			]},
			{"id": "c2", "type": "group", "messages": [
				{"id": "m3", "senderId": "u3", "content": "hey", "mentions": [{"id": "bot"}, {"name": "no-id"}]}
			]}
		]}}
	}`)

	snapshot := decodeSnapshot(raw)
	if len(snapshot.Chats) != 2 {
		t.Fatalf("expected 2 chats, got %d", len(snapshot.Chats))
	}

	c1 := snapshot.Chats[0]
	if c1.ID != "c1" || c1.Type != models.ChatTypeDirect {
		t.Errorf("unexpected chat c1: %+v", c1)
	}
	if len(c1.Messages) != 2 {
		t.Fatalf("expected 2 messages in c1, got %d", len(c1.Messages))
	}
	m1 := c1.Messages[0]
	if m1.ID != "m1" || m1.SenderID != "u1" || m1.Content != "hi" {
		t.Errorf("unexpected message m1: %+v", m1)
	}
	if m1.ChatID != "c1" {
		t.Errorf("expected chat id backfilled from chat, got %q", m1.ChatID)
	}
	if m1.CreatedAt.IsZero() {
		t.Error("expected createdAt parsed")
	}
	if got := c1.Messages[1].Mentions; len(got) != 1 || got[0] != "bot" {
		t.Errorf("unexpected mentions on m2: %v", got)
	}

	// Mention objects keep their id; entries without one are dropped.
	if got := snapshot.Chats[1].Messages[0].Mentions; len(got) != 1 || got[0] != "bot" {
		t.Errorf("unexpected mentions on m3: %v", got)
	}
}

func TestDecodeSnapshotTolerance(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty object", `{}`},
		{"null result", `{"result": null}`},
		{"missing data", `{"result": {}}`},
		{"missing chats", `{"result": {"data": {}}}`},
		{"chats wrong type", `{"result": {"data": {"chats": "nope"}}}`},
		{"top level array", `[1, 2, 3]`},
		{"top level string", `"hello"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := decodeSnapshot(mustDecodeJSON(t, tt.raw))
			if len(snapshot.Chats) != 0 {
				t.Errorf("expected empty snapshot, got %d chats", len(snapshot.Chats))
			}
		})
	}
}

func TestDecodeSnapshotSkipsMalformedEntries(t *testing.T) {
	raw := mustDecodeJSON(t, `{
		"result": {"data": {"chats": [
			"not-a-chat",
			{"id": "c1", "type": "direct", "messages": [42, {"id": "m1", "content": "ok"}]},
			{"messages": null}
		]}}
	}`)

	snapshot := decodeSnapshot(raw)
	if len(snapshot.Chats) != 2 {
		t.Fatalf("expected 2 decodable chats, got %d", len(snapshot.Chats))
	}
	if len(snapshot.Chats[0].Messages) != 1 {
		t.Errorf("expected 1 decodable message, got %d", len(snapshot.Chats[0].Messages))
	}
	if len(snapshot.Chats[1].Messages) != 0 {
		t.Errorf("expected no messages for chat with null messages, got %d", len(snapshot.Chats[1].Messages))
	}
}

func TestFetchSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/trpc/loader.chatPanelData" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"result":{"data":{"chats":[{"id":"c1","type":"direct","messages":[{"id":"m1","senderId":"u1","content":"hi"}]}]}}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	snapshot, err := client.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snapshot.Chats) != 1 || snapshot.Chats[0].ID != "c1" {
		t.Errorf("unexpected snapshot: %+v", snapshot)
	}
}

func TestSearchUsersEncodesInput(t *testing.T) {
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.Query().Get("input")
		w.Write([]byte(`{"result":{"data":[]}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.SearchUsers(context.Background(), "ann marie"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var input map[string]string
	if err := json.Unmarshal([]byte(rawQuery), &input); err != nil {
		t.Fatalf("input param is not JSON: %v", err)
	}
	if input["query"] != "ann marie" {
		t.Errorf("expected query round-tripped, got %q", input["query"])
	}
}
