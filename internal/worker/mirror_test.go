package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"finpro/internal/amqp"
	"finpro/internal/log"
	"finpro/internal/tabular"
	"finpro/internal/tabular/memory"
)

func newTestMirror() (*Mirror, tabular.RowStore) {
	store := memory.New()
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	return NewMirror(store, logger), store
}

func row(desc string) []string {
	return []string{"alice", "2024-03-01", desc, "10", "expense", "credit", "nubank", "Food"}
}

func TestMirrorAppliesAddUpdateDelete(t *testing.T) {
	ctx := context.Background()
	m, store := newTestMirror()

	events := []*amqp.TransactionEventMessage{
		amqp.NewTransactionEventMessage(amqp.ActionAdd, "alice", 0, row("first")),
		amqp.NewTransactionEventMessage(amqp.ActionAdd, "alice", 0, row("second")),
		amqp.NewTransactionEventMessage(amqp.ActionUpdate, "alice", 2, row("first-edited")),
		amqp.NewTransactionEventMessage(amqp.ActionDelete, "alice", 3, nil),
	}
	for _, ev := range events {
		if err := m.Apply(ctx, ev); err != nil {
			t.Fatalf("apply %s: %v", ev.Action, err)
		}
	}

	rows, err := store.ReadAll(ctx, tabular.TransactionsTable)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d rows", len(rows))
	}
	if rows[1][2] != "first-edited" {
		t.Fatalf("expected edited row to survive, got %v", rows[1])
	}
}

func TestMirrorRejectsUnknownAction(t *testing.T) {
	m, _ := newTestMirror()
	ev := amqp.NewTransactionEventMessage("truncate", "alice", 2, nil)
	if err := m.Apply(context.Background(), ev); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestMirrorUpdateOutOfRangeFails(t *testing.T) {
	m, _ := newTestMirror()
	ev := amqp.NewTransactionEventMessage(amqp.ActionUpdate, "alice", 9, row("ghost"))
	if err := m.Apply(context.Background(), ev); err == nil {
		t.Fatal("expected error for out-of-range update")
	}
}
