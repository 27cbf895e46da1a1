package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finpro/internal/core"
)

func TestCheckUserBuildsQueryAndMapsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		q := r.URL.Query()
		if q.Get("action") != "checkUser" || q.Get("username") != "alice" || q.Get("password") != "secret1" {
			t.Errorf("unexpected query: %v", q)
		}
		io.WriteString(w, `{"success":true,"username":"alice"}`)
	}))
	defer srv.Close()

	res, err := New(srv.URL).CheckUser(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("checkUser: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
}

func TestCheckUserFailureCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":false,"message":"invalid username or password"}`)
	}))
	defer srv.Close()

	res, err := New(srv.URL).CheckUser(context.Background(), "alice", "wrong")
	if err != nil {
		t.Fatalf("checkUser: %v", err)
	}
	if res.Success || res.Message != "invalid username or password" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestTransactionsMapsDefaultsAndSortsByDateDesc(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[
			{"Username":"alice","Date":"2024-01-15","Description":"old","Amount":"10","Type":"expense","Method":"credit","Card":"nubank","Category":"Food","_rowIndex":2},
			{"Username":"alice","Date":"2024-03-01","Description":"new","Amount":"not-a-number","Type":"weird","Method":"","Card":"unknown-bank","Category":"","_rowIndex":3}
		]`)
	}))
	defer srv.Close()

	txs, err := New(srv.URL).Transactions(context.Background(), "alice")
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].Description != "new" || txs[1].Description != "old" {
		t.Fatalf("expected newest first, got %q then %q", txs[0].Description, txs[1].Description)
	}

	got := txs[0]
	if got.Amount != 0 {
		t.Errorf("unparsable amount should default to 0, got %v", got.Amount)
	}
	if got.Type != core.Expense {
		t.Errorf("unknown type should default to expense, got %v", got.Type)
	}
	if got.Method != core.Credit {
		t.Errorf("empty method should default to credit, got %v", got.Method)
	}
	if got.Card != "other" {
		t.Errorf("unknown card should default to other, got %v", got.Card)
	}
	if got.Category != "General" {
		t.Errorf("empty category should default to General, got %v", got.Category)
	}
	if got.RowIndex != 3 {
		t.Errorf("expected row index 3, got %d", got.RowIndex)
	}
}

func TestSaveDispatchesAddForUnpersisted(t *testing.T) {
	var gotAction string
	var gotRowIndex float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		gotAction, _ = payload["action"].(string)
		gotRowIndex, _ = payload["rowIndex"].(float64)
		io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	tx := core.Transaction{Username: "alice", Date: "2024-03-01", Description: "x", Amount: 5, Type: core.Expense, Method: core.Credit, Card: "other", Category: "Food"}

	if err := c.Save(context.Background(), tx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if gotAction != "add" || gotRowIndex != 0 {
		t.Fatalf("expected add with rowIndex 0, got %s/%v", gotAction, gotRowIndex)
	}

	tx.RowIndex = 4
	if err := c.Save(context.Background(), tx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if gotAction != "update" || gotRowIndex != 4 {
		t.Fatalf("expected update at row 4, got %s/%v", gotAction, gotRowIndex)
	}
}

func TestSaveSurfacesBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":false,"error":"invalid index"}`)
	}))
	defer srv.Close()

	err := New(srv.URL).Save(context.Background(), core.Transaction{RowIndex: 1})
	if err == nil || !strings.Contains(err.Error(), "invalid index") {
		t.Fatalf("expected invalid index error, got %v", err)
	}
}

func TestDeleteSendsUsernameAndRowIndex(t *testing.T) {
	var gotRowIndex float64
	var gotUsername string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		if payload["action"] != "delete" {
			t.Errorf("expected delete action, got %v", payload["action"])
		}
		gotUsername, _ = payload["username"].(string)
		gotRowIndex, _ = payload["rowIndex"].(float64)
		io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()

	if err := New(srv.URL).Delete(context.Background(), "alice", 5); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotUsername != "alice" {
		t.Fatalf("expected username alice, got %q", gotUsername)
	}
	if gotRowIndex != 5 {
		t.Fatalf("expected rowIndex 5, got %v", gotRowIndex)
	}
}

func TestInsightsExtractsCompletionContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		if payload["action"] != "callGroq" {
			t.Errorf("expected callGroq action, got %v", payload["action"])
		}
		msgs, _ := payload["messages"].([]any)
		if len(msgs) != 2 {
			t.Errorf("expected system and user messages, got %d", len(msgs))
		}
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"spend less on coffee"}}]}`)
	}))
	defer srv.Close()

	got, err := New(srv.URL).Insights(context.Background(), []core.Transaction{
		{Date: "2024-03-01", Description: "coffee", Amount: 5, Type: core.Expense, Card: "nubank"},
	})
	if err != nil {
		t.Fatalf("insights: %v", err)
	}
	if got != "spend less on coffee" {
		t.Fatalf("unexpected insight: %q", got)
	}
}

func TestInsightsSurfacesProxyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"error":"Groq API key not configured"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Insights(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
