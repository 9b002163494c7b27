package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, base string, maxPages int) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: base, MaxPages: maxPages, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func writePage(w http.ResponseWriter, msgs []Message, next string) {
	body := map[string]any{"messages": msgs, "links": map[string]any{"next": nil}}
	if next != "" {
		body["links"] = map[string]any{"next": next}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func TestTopicMessagesFollowsPages(t *testing.T) {
	var firstQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "":
			firstQuery = r.URL.RequestURI()
			writePage(w, []Message{{SequenceNumber: 1}, {SequenceNumber: 2}}, "/api/v1/topics/0.0.5/messages?limit=2&page=2")
		case "2":
			writePage(w, []Message{{SequenceNumber: 3}, {SequenceNumber: 4}}, "/api/v1/topics/0.0.5/messages?limit=2&page=3")
		case "3":
			writePage(w, []Message{{SequenceNumber: 5}}, "")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	msgs, err := c.TopicMessages(context.Background(), "0.0.5", 0, 2)
	if err != nil {
		t.Fatalf("topic messages: %v", err)
	}
	if firstQuery != "/api/v1/topics/0.0.5/messages?limit=2" {
		t.Fatalf("unexpected first request %s", firstQuery)
	}
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if m.SequenceNumber != int64(i+1) {
			t.Fatalf("messages out of order at %d: %+v", i, m)
		}
	}
}

func TestTopicMessagesDefaultsLimit(t *testing.T) {
	var limit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit = r.URL.Query().Get("limit")
		writePage(w, nil, "")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	msgs, err := c.TopicMessages(context.Background(), "0.0.5", 0, 0)
	if err != nil {
		t.Fatalf("topic messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty result, got %d", len(msgs))
	}
	if limit != "10" {
		t.Fatalf("expected default limit 10, got %q", limit)
	}
}

func TestTopicMessagesFirstPageFailureReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	msgs, err := c.TopicMessages(context.Background(), "0.0.5", 0, 10)
	if err != nil {
		t.Fatalf("failures must not surface as errors: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %d", len(msgs))
	}
}

func TestTopicMessagesKeepsPartialResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "" {
			writePage(w, []Message{{SequenceNumber: 1}}, "/api/v1/topics/0.0.5/messages?page=2")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	msgs, err := c.TopicMessages(context.Background(), "0.0.5", 0, 10)
	if err != nil {
		t.Fatalf("topic messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected first page to survive, got %d", len(msgs))
	}
}

func TestTopicMessagesStopsOnRepeatedLink(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writePage(w, []Message{{SequenceNumber: 1}}, "/api/v1/topics/0.0.5/messages?limit=10")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	msgs, err := c.TopicMessages(context.Background(), "0.0.5", 0, 10)
	if err != nil {
		t.Fatalf("topic messages: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single request, got %d", hits.Load())
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
}

func TestTopicMessagesHonoursPageBudget(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		writePage(w, []Message{{SequenceNumber: int64(n)}}, fmt.Sprintf("/api/v1/topics/0.0.5/messages?page=%d", n+1))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	msgs, err := c.TopicMessages(context.Background(), "0.0.5", 0, 10)
	if err != nil {
		t.Fatalf("topic messages: %v", err)
	}
	if hits.Load() != 3 || len(msgs) != 3 {
		t.Fatalf("expected 3 pages, got %d requests and %d messages", hits.Load(), len(msgs))
	}
}

func TestTopicMessagesKeepsBasePathPrefix(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/mirror/api/v1/topics/0.0.9/messages", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "" {
			writePage(w, []Message{{SequenceNumber: 1}}, "/api/v1/topics/0.0.9/messages?page=2")
			return
		}
		writePage(w, []Message{{SequenceNumber: 2}}, "")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/mirror/", 0)
	msgs, err := c.TopicMessages(context.Background(), "0.0.9", 0, 10)
	if err != nil {
		t.Fatalf("topic messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected both pages through the prefixed base, got %d", len(msgs))
	}
}

func TestTopicMessagesPreservesUnmodelledFields(t *testing.T) {
	const page = `{"messages":[{"consensus_timestamp":"1700000000.000000001","topic_id":"0.0.5","message":"aGk=","sequence_number":1,` +
		`"chunk_info":{"number":1,"total":2,"initial_transaction_id":{"account_id":"0.0.2","nonce":0,"scheduled":false,"transaction_valid_start":"1699999999.1"}},` +
		`"payer_account_id":"0.0.2","extra_field":"kept"}],"links":{"next":null}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	msgs, err := c.TopicMessages(context.Background(), "0.0.5", 0, 10)
	if err != nil {
		t.Fatalf("topic messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ChunkInfo == nil || msgs[0].ChunkInfo.Total != 2 {
		t.Fatalf("typed fields not decoded: %+v", msgs)
	}

	out, err := json.Marshal(msgs[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(out, &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if record["extra_field"] != "kept" {
		t.Fatalf("extra field dropped: %s", out)
	}
	chunk, _ := record["chunk_info"].(map[string]any)
	initial, _ := chunk["initial_transaction_id"].(map[string]any)
	if initial["account_id"] != "0.0.2" {
		t.Fatalf("initial_transaction_id dropped: %s", out)
	}
}

func TestMessageMarshalWithoutSourceRecord(t *testing.T) {
	out, err := json.Marshal(Message{TopicID: "0.0.5", SequenceNumber: 7})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(out, &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if record["topic_id"] != "0.0.5" || record["sequence_number"] != float64(7) {
		t.Fatalf("unexpected record %s", out)
	}
}

func TestTopicMessagesRebasesForeignLinks(t *testing.T) {
	var foreignHits atomic.Int32
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignHits.Add(1)
		writePage(w, []Message{{SequenceNumber: 99}}, "")
	}))
	defer foreign.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "" {
			writePage(w, []Message{{SequenceNumber: 1}}, foreign.URL+"/api/v1/topics/0.0.5/messages?page=2")
			return
		}
		writePage(w, []Message{{SequenceNumber: 2}}, "")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	msgs, err := c.TopicMessages(context.Background(), "0.0.5", 0, 10)
	if err != nil {
		t.Fatalf("topic messages: %v", err)
	}
	if foreignHits.Load() != 0 {
		t.Fatalf("client followed a link to another host")
	}
	if len(msgs) != 2 || msgs[1].SequenceNumber != 2 {
		t.Fatalf("expected second page from the configured mirror, got %+v", msgs)
	}
}

func TestTopicMessagesWaitRespectsContext(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", 0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.TopicMessages(ctx, "0.0.5", time.Minute, 10)
	if xerrors.CodeOf(err) != xerrors.CodeTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("wait did not stop on context cancellation")
	}
}

func TestTopicMessagesRequiresTopic(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", 0)
	if _, err := c.TopicMessages(context.Background(), "  ", 0, 10); xerrors.CodeOf(err) != xerrors.CodeInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestMessageContent(t *testing.T) {
	m := Message{Message: "aGVsbG8="}
	body, err := m.Content()
	if err != nil || string(body) != "hello" {
		t.Fatalf("unexpected content %q %v", body, err)
	}
}

func TestNewClientRejectsEmptyBase(t *testing.T) {
	if _, err := NewClient(Config{}); xerrors.CodeOf(err) != xerrors.CodeInitializationFailure {
		t.Fatalf("expected initialization failure, got %v", err)
	}
}
