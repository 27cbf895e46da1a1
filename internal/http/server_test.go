package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finpro/internal/groq"
	"finpro/internal/log"
	"finpro/internal/store"
	"finpro/internal/tabular/memory"
)

func newTestServer(t *testing.T, completer *groq.Client) *Server {
	t.Helper()
	tab := memory.New()
	logger := log.New(log.Config{
		Component: log.ComponentHTTP,
		Handler:   slog.NewTextHandler(io.Discard, nil),
	})
	if completer == nil {
		completer = groq.New("")
	}
	return NewServer(":0", store.NewUsers(tab), store.NewTransactions(tab), completer, nil, logger)
}

func doGet(t *testing.T, srv *Server, query string) map[string]any {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("GET %s status=%d", query, rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("GET %s: body not a JSON object: %v", query, err)
	}
	return body
}

func doGetList(t *testing.T, srv *Server, query string) []map[string]any {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("GET %s status=%d", query, rr.Code)
	}
	var body []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("GET %s: body not a JSON array: %v\n%s", query, err, rr.Body.String())
	}
	return body
}

func doPost(t *testing.T, srv *Server, payload map[string]any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("POST %v status=%d", payload["action"], rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("POST %v: body not JSON: %v", payload["action"], err)
	}
	return body
}

func txPayload(action, username, desc string, amount any, rowIndex int) map[string]any {
	p := map[string]any{
		"action":      action,
		"username":    username,
		"date":        "2024-03-01",
		"description": desc,
		"amount":      amount,
		"type":        "expense",
		"method":      "credit",
		"card":        "nubank",
		"category":    "Food",
	}
	if rowIndex != 0 {
		p["rowIndex"] = rowIndex
	}
	return p
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestRegisterThenCheckUser(t *testing.T) {
	srv := newTestServer(t, nil)

	body := doPost(t, srv, map[string]any{"action": "registerUser", "username": "alice", "password": "secret1"})
	if body["success"] != true {
		t.Fatalf("register failed: %v", body)
	}

	body = doGet(t, srv, "action=checkUser&username=alice&password=secret1")
	if body["success"] != true || body["username"] != "alice" {
		t.Fatalf("checkUser with correct password: %v", body)
	}

	body = doGet(t, srv, "action=checkUser&username=alice&password=wrong")
	if body["success"] != false {
		t.Fatalf("checkUser with wrong password should fail: %v", body)
	}
	if body["message"] == nil {
		t.Fatalf("expected a message on failure: %v", body)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	srv := newTestServer(t, nil)

	doPost(t, srv, map[string]any{"action": "registerUser", "username": "alice", "password": "secret1"})
	body := doPost(t, srv, map[string]any{"action": "registerUser", "username": "alice", "password": "other"})
	if body["success"] != false {
		t.Fatalf("duplicate register should fail: %v", body)
	}
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "exists") {
		t.Fatalf("expected already-exists message, got %q", msg)
	}
}

func TestGetDataFiltersByUserAndInjectsRowIndex(t *testing.T) {
	srv := newTestServer(t, nil)

	doPost(t, srv, txPayload("add", "alice", "groceries", 42.5, 0))
	doPost(t, srv, txPayload("add", "bob", "rent", 1200, 0))
	doPost(t, srv, txPayload("add", "alice", "coffee", "3.75", 0))

	list := doGetList(t, srv, "username=alice")
	if len(list) != 2 {
		t.Fatalf("expected 2 rows for alice, got %d", len(list))
	}
	for _, item := range list {
		idx, ok := item["_rowIndex"].(float64)
		if !ok || idx < 2 {
			t.Fatalf("expected _rowIndex >= 2, got %v", item["_rowIndex"])
		}
		if item["Username"] != "alice" {
			t.Fatalf("row leaked from another user: %v", item)
		}
	}
	if list[0]["Description"] != "groceries" || list[1]["Description"] != "coffee" {
		t.Fatalf("unexpected rows: %v", list)
	}
	// String amounts coerce like numeric ones.
	if list[1]["Amount"] != "3.75" {
		t.Fatalf("expected string amount coerced to 3.75, got %v", list[1]["Amount"])
	}
}

func TestGetDataEmptyForUnknownUser(t *testing.T) {
	srv := newTestServer(t, nil)
	list := doGetList(t, srv, "username=nobody")
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %v", list)
	}
}

func TestGetDataRequiresUsername(t *testing.T) {
	srv := newTestServer(t, nil)
	body := doGet(t, srv, "action=getData")
	if body["error"] == nil {
		t.Fatalf("expected error without username, got %v", body)
	}
}

func TestAddWithUnparsableAmountDefaultsToZero(t *testing.T) {
	srv := newTestServer(t, nil)

	body := doPost(t, srv, txPayload("add", "alice", "mystery", "not-a-number", 0))
	if body["success"] != true {
		t.Fatalf("add failed: %v", body)
	}
	list := doGetList(t, srv, "username=alice")
	if len(list) != 1 || list[0]["Amount"] != "0" {
		t.Fatalf("expected amount 0, got %v", list)
	}
}

func TestUpdateOverwritesWholeRow(t *testing.T) {
	srv := newTestServer(t, nil)

	doPost(t, srv, txPayload("add", "alice", "groceries", 42.5, 0))
	list := doGetList(t, srv, "username=alice")
	idx := int(list[0]["_rowIndex"].(float64))

	p := txPayload("update", "alice", "market", 50, idx)
	p["category"] = "Household"
	body := doPost(t, srv, p)
	if body["success"] != true {
		t.Fatalf("update failed: %v", body)
	}

	list = doGetList(t, srv, "username=alice")
	if len(list) != 1 {
		t.Fatalf("expected 1 row, got %d", len(list))
	}
	if list[0]["Description"] != "market" || list[0]["Category"] != "Household" || list[0]["Amount"] != "50" {
		t.Fatalf("row not fully overwritten: %v", list[0])
	}
}

func TestDeleteShiftsLaterRows(t *testing.T) {
	srv := newTestServer(t, nil)

	for i := 1; i <= 3; i++ {
		doPost(t, srv, txPayload("add", "alice", fmt.Sprintf("tx%d", i), float64(i), 0))
	}

	body := doPost(t, srv, map[string]any{"action": "delete", "username": "alice", "rowIndex": 3})
	if body["success"] != true {
		t.Fatalf("delete failed: %v", body)
	}

	list := doGetList(t, srv, "username=alice")
	if len(list) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(list))
	}
	if list[0]["Description"] != "tx1" || int(list[0]["_rowIndex"].(float64)) != 2 {
		t.Fatalf("earlier row disturbed: %v", list[0])
	}
	if list[1]["Description"] != "tx3" || int(list[1]["_rowIndex"].(float64)) != 3 {
		t.Fatalf("later row did not shift up: %v", list[1])
	}
}

func TestUpdateDeleteInvalidIndexMutatesNothing(t *testing.T) {
	srv := newTestServer(t, nil)
	doPost(t, srv, txPayload("add", "alice", "keep", 10, 0))

	for _, idx := range []int{1, 0, -5} {
		body := doPost(t, srv, txPayload("update", "alice", "clobber", 99, idx))
		if body["success"] != false || body["error"] != "invalid index" {
			t.Fatalf("update rowIndex=%d: %v", idx, body)
		}
		body = doPost(t, srv, map[string]any{"action": "delete", "username": "alice", "rowIndex": idx})
		if body["success"] != false || body["error"] != "invalid index" {
			t.Fatalf("delete rowIndex=%d: %v", idx, body)
		}
	}

	list := doGetList(t, srv, "username=alice")
	if len(list) != 1 || list[0]["Description"] != "keep" {
		t.Fatalf("table mutated by invalid-index requests: %v", list)
	}
}

func TestUnknownActionAndBadBody(t *testing.T) {
	srv := newTestServer(t, nil)

	body := doPost(t, srv, map[string]any{"action": "dropTables"})
	if body["error"] == nil {
		t.Fatalf("expected invalid action error, got %v", body)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("bad body status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "error") {
		t.Fatalf("expected error body, got %s", rr.Body.String())
	}
}

func TestCallGroqNotConfigured(t *testing.T) {
	calls := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer upstream.Close()

	srv := newTestServer(t, groq.New("", groq.WithBaseURL(upstream.URL)))
	body := doPost(t, srv, map[string]any{
		"action":   "callGroq",
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	})
	if body["error"] != "Groq API key not configured" {
		t.Fatalf("expected not-configured error, got %v", body)
	}
	if calls != 0 {
		t.Fatalf("expected no upstream calls, got %d", calls)
	}
}

func TestCallGroqPassesThrough(t *testing.T) {
	const reply = `{"choices":[{"message":{"role":"assistant","content":"insight"}}]}`
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, reply)
	}))
	defer upstream.Close()

	srv := newTestServer(t, groq.New("key", groq.WithBaseURL(upstream.URL)))
	rr := httptest.NewRecorder()
	payload := `{"action":"callGroq","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("status=%d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != reply {
		t.Fatalf("expected verbatim upstream body, got %s", rr.Body.String())
	}
}

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) PublishTransactionEvent(_ context.Context, action, username string, rowIndex int, _ []string) error {
	p.events = append(p.events, fmt.Sprintf("%s:%s:%d", action, username, rowIndex))
	return nil
}

func TestMutationsPublishEvents(t *testing.T) {
	tab := memory.New()
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	pub := &recordingPublisher{}
	srv := NewServer(":0", store.NewUsers(tab), store.NewTransactions(tab), groq.New(""), pub, logger)

	doPost(t, srv, txPayload("add", "alice", "groceries", 42.5, 0))
	doPost(t, srv, txPayload("update", "alice", "market", 50, 2))
	doPost(t, srv, map[string]any{"action": "delete", "username": "alice", "rowIndex": 2})

	want := []string{"add:alice:0", "update:alice:2", "delete:alice:2"}
	if len(pub.events) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), pub.events)
	}
	for i, w := range want {
		if pub.events[i] != w {
			t.Fatalf("event %d: expected %s, got %s", i, w, pub.events[i])
		}
	}
}

func TestInvalidIndexPublishesNothing(t *testing.T) {
	tab := memory.New()
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	pub := &recordingPublisher{}
	srv := NewServer(":0", store.NewUsers(tab), store.NewTransactions(tab), groq.New(""), pub, logger)

	doPost(t, srv, map[string]any{"action": "delete", "username": "alice", "rowIndex": 1})
	if len(pub.events) != 0 {
		t.Fatalf("expected no events, got %v", pub.events)
	}
}
