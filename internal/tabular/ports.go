// Package tabular defines the port for the row-oriented stores backing the
// tracker. Rows are addressed by their 1-based physical position; position 1
// is always the header row.
package tabular

import (
	"context"
	"errors"
)

// Table describes one logical sheet: its name and fixed header row.
type Table struct {
	Name    string
	Headers []string
}

var (
	UsersTable = Table{
		Name:    "Users",
		Headers: []string{"Username", "Password", "CreatedAt"},
	}
	TransactionsTable = Table{
		Name:    "Transactions",
		Headers: []string{"Username", "Date", "Description", "Amount", "Type", "Method", "Card", "Category"},
	}
)

var (
	// ErrRowOutOfRange is returned for positions that do not address a data
	// row (position 1 is the header, positions past the end do not exist).
	ErrRowOutOfRange = errors.New("row position out of range")
)

// RowStore is the port every storage backend implements.
type RowStore interface {
	// Ensure creates the table with its header row if absent. It runs before
	// every read or write and must be idempotent.
	Ensure(ctx context.Context, t Table) error

	// ReadAll returns every row of the table, header included at index 0.
	ReadAll(ctx context.Context, t Table) ([][]string, error)

	// Append adds one row after the current last row.
	Append(ctx context.Context, t Table, row []string) error

	// Overwrite replaces the whole row at the given 1-based position. It
	// returns ErrRowOutOfRange when the position addresses no data row.
	Overwrite(ctx context.Context, t Table, pos int, row []string) error

	// Delete physically removes the row at the given 1-based position; all
	// later rows shift up by one. It returns ErrRowOutOfRange when the
	// position addresses no data row.
	Delete(ctx context.Context, t Table, pos int) error
}
