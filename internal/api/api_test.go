package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fernwick/supbridge/internal/models"
	"github.com/fernwick/supbridge/internal/store"
	"github.com/fernwick/supbridge/internal/syncer"
)

// stubSender scripts SendMessage outcomes.
type stubSender struct {
	err      error
	lastChat string
	lastText string
}

func (s *stubSender) SendMessage(ctx context.Context, chatID, text string, mentions []string) (string, error) {
	s.lastChat = chatID
	s.lastText = text
	return "sup-1-abcd1234", s.err
}

type stubStatus struct {
	state syncer.State
	seen  int
}

func (s *stubStatus) State() syncer.State { return s.state }
func (s *stubStatus) SeenCount() int      { return s.seen }

func doRequest(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeSendResult(t *testing.T, rr *httptest.ResponseRecorder) models.SendResult {
	t.Helper()
	var result models.SendResult
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("decode send result: %v", err)
	}
	return result
}

func TestHandleSendSuccess(t *testing.T) {
	sender := &stubSender{}
	st := store.NewInMemoryStore()
	server := NewServer(sender, nil, nil, st)

	rr := doRequest(t, server.Handler(), http.MethodPost, "/send", sendRequest{ChatID: "c1", Text: "hello"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	result := decodeSendResult(t, rr)
	if !result.OK || result.Error != "" {
		t.Errorf("expected ok result, got %+v", result)
	}
	if sender.lastChat != "c1" || sender.lastText != "hello" {
		t.Errorf("sender got %q/%q", sender.lastChat, sender.lastText)
	}

	receipts, _ := st.GetReceipts()
	if len(receipts) != 1 || receipts[0].Status != models.StatusTypeSent {
		t.Errorf("expected one sent receipt, got %v", receipts)
	}
}

func TestHandleSendFailureIsStructured(t *testing.T) {
	sender := &stubSender{err: errors.New("remote said no")}
	st := store.NewInMemoryStore()
	server := NewServer(sender, nil, nil, st)

	rr := doRequest(t, server.Handler(), http.MethodPost, "/send", sendRequest{ChatID: "c1", Text: "hello"})
	if rr.Code != http.StatusOK {
		t.Fatalf("send failures must not surface as HTTP errors, got %d", rr.Code)
	}
	result := decodeSendResult(t, rr)
	if result.OK || result.Error == "" {
		t.Errorf("expected structured failure, got %+v", result)
	}

	receipts, _ := st.GetReceipts()
	if len(receipts) != 1 || receipts[0].Status != models.StatusTypeFailed {
		t.Errorf("expected one failed receipt, got %v", receipts)
	}
}

func TestHandleSendNotConfigured(t *testing.T) {
	server := NewServer(nil, nil, nil, store.NewInMemoryStore())

	rr := doRequest(t, server.Handler(), http.MethodPost, "/send", sendRequest{ChatID: "c1", Text: "hello"})
	result := decodeSendResult(t, rr)
	if result.OK || result.Error != models.ErrNotConfigured.Error() {
		t.Errorf("expected not-configured result, got %+v", result)
	}
}

func TestHandleSendBadBody(t *testing.T) {
	server := NewServer(&stubSender{}, nil, nil, store.NewInMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/send", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for undecodable body, got %d", rr.Code)
	}
	if result := decodeSendResult(t, rr); result.OK {
		t.Error("expected ok=false for undecodable body")
	}
}

func TestHandleEvents(t *testing.T) {
	st := store.NewInMemoryStore()
	st.AddEvent(models.SyncEvent{Channel: models.ChannelSup, ChatID: "c1", MessageID: "m1", IsDM: true})
	server := NewServer(nil, nil, nil, st)

	rr := doRequest(t, server.Handler(), http.MethodGet, "/events", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var events []models.EventRecord
	if err := json.NewDecoder(rr.Body).Decode(&events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 1 || events[0].Event.MessageID != "m1" {
		t.Errorf("unexpected events: %v", events)
	}
}

func TestHandleEventsEmpty(t *testing.T) {
	server := NewServer(nil, nil, nil, store.NewInMemoryStore())
	rr := doRequest(t, server.Handler(), http.MethodGet, "/events", nil)
	if body := rr.Body.String(); body != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", body)
	}
}

func TestHandleStatus(t *testing.T) {
	server := NewServer(nil, nil, &stubStatus{state: syncer.StateRunning, seen: 7}, nil)

	rr := doRequest(t, server.Handler(), http.MethodGet, "/status", nil)
	var resp statusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if resp.State != syncer.StateRunning || resp.SeenCount != 7 {
		t.Errorf("unexpected status: %+v", resp)
	}
}

func TestHandleStatusWithoutLoop(t *testing.T) {
	server := NewServer(nil, nil, nil, nil)
	rr := doRequest(t, server.Handler(), http.MethodGet, "/status", nil)
	var resp statusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if resp.State != syncer.StateStopped {
		t.Errorf("expected stopped state without a loop, got %s", resp.State)
	}
}

type stubSearcher struct {
	result any
	err    error
	query  string
}

func (s *stubSearcher) SearchUsers(ctx context.Context, query string) (any, error) {
	s.query = query
	return s.result, s.err
}

func TestHandleSearch(t *testing.T) {
	searcher := &stubSearcher{result: map[string]any{"users": []any{}}}
	server := NewServer(nil, searcher, nil, nil)

	rr := doRequest(t, server.Handler(), http.MethodGet, "/search?q=ann", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if searcher.query != "ann" {
		t.Errorf("expected query forwarded, got %q", searcher.query)
	}

	rr = doRequest(t, server.Handler(), http.MethodGet, "/search", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing query, got %d", rr.Code)
	}
}

func TestHandleSearchNotConfigured(t *testing.T) {
	server := NewServer(nil, nil, nil, nil)
	rr := doRequest(t, server.Handler(), http.MethodGet, "/search?q=ann", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rr.Code)
	}
}
