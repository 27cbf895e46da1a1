package store

import (
	"context"

	"finpro/internal/core"
	"finpro/internal/tabular"
)

type Transactions struct {
	tab tabular.RowStore
}

func NewTransactions(tab tabular.RowStore) *Transactions {
	return &Transactions{tab: tab}
}

// Record is one filtered row of the Transactions table: the raw cell values
// keyed by header name plus the row's 1-based position. The position is the
// record's identity and goes stale whenever an earlier row is deleted.
type Record struct {
	Fields   map[string]string
	RowIndex int
}

// ListByUser returns the records whose first column equals username, in
// physical row order. An empty table yields an empty slice.
func (t *Transactions) ListByUser(ctx context.Context, username string) ([]Record, error) {
	if err := t.tab.Ensure(ctx, tabular.TransactionsTable); err != nil {
		return nil, err
	}
	rows, err := t.tab.ReadAll(ctx, tabular.TransactionsTable)
	if err != nil {
		return nil, err
	}
	out := []Record{}
	if len(rows) == 0 {
		return out, nil
	}
	headers := rows[0]
	for i := 1; i < len(rows); i++ {
		if cell(rows[i], 0) != username {
			continue
		}
		fields := make(map[string]string, len(headers))
		for j, h := range headers {
			fields[h] = cell(rows[i], j)
		}
		out = append(out, Record{Fields: fields, RowIndex: i + 1})
	}
	return out, nil
}

// Add appends the transaction as the last row.
func (t *Transactions) Add(ctx context.Context, tx core.Transaction) error {
	if err := t.tab.Ensure(ctx, tabular.TransactionsTable); err != nil {
		return err
	}
	return t.tab.Append(ctx, tabular.TransactionsTable, rowFrom(tx))
}

// Update overwrites the whole row at pos; partial updates are not supported.
func (t *Transactions) Update(ctx context.Context, pos int, tx core.Transaction) error {
	if err := t.tab.Ensure(ctx, tabular.TransactionsTable); err != nil {
		return err
	}
	return t.tab.Overwrite(ctx, tabular.TransactionsTable, pos, rowFrom(tx))
}

// Delete physically removes the row at pos; later rows shift up one
// position, invalidating any row indexes callers still hold.
func (t *Transactions) Delete(ctx context.Context, pos int) error {
	if err := t.tab.Ensure(ctx, tabular.TransactionsTable); err != nil {
		return err
	}
	return t.tab.Delete(ctx, tabular.TransactionsTable, pos)
}

// rowFrom serializes a transaction in the fixed column order of the table.
func rowFrom(tx core.Transaction) []string {
	return []string{
		tx.Username,
		tx.Date,
		tx.Description,
		core.FormatAmount(tx.Amount),
		string(tx.Type),
		string(tx.Method),
		tx.Card,
		tx.Category,
	}
}
