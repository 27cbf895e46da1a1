// Package store holds the two-table persistence model: Users and
// Transactions over a row-oriented tabular store. Lookups are linear scans;
// there is no index and no store-level uniqueness enforcement, so two
// concurrent registrations of the same username can both pass the scan.
// That race is accepted for single-user-at-a-time usage.
package store

import (
	"context"
	"time"

	"finpro/internal/tabular"
)

type Users struct {
	tab tabular.RowStore
}

func NewUsers(tab tabular.RowStore) *Users {
	return &Users{tab: tab}
}

// Check reports whether a row matches both username and password exactly.
// Passwords are stored and compared in plaintext, as the persisted layout
// dictates.
func (u *Users) Check(ctx context.Context, username, password string) (bool, error) {
	rows, err := u.readAll(ctx)
	if err != nil {
		return false, err
	}
	for i := 1; i < len(rows); i++ {
		if cell(rows[i], 0) == username && cell(rows[i], 1) == password {
			return true, nil
		}
	}
	return false, nil
}

// Exists reports whether any row carries the username.
func (u *Users) Exists(ctx context.Context, username string) (bool, error) {
	rows, err := u.readAll(ctx)
	if err != nil {
		return false, err
	}
	for i := 1; i < len(rows); i++ {
		if cell(rows[i], 0) == username {
			return true, nil
		}
	}
	return false, nil
}

// Create appends a new user row with the current timestamp.
func (u *Users) Create(ctx context.Context, username, password string) error {
	if err := u.tab.Ensure(ctx, tabular.UsersTable); err != nil {
		return err
	}
	row := []string{username, password, time.Now().UTC().Format(time.RFC3339)}
	return u.tab.Append(ctx, tabular.UsersTable, row)
}

func (u *Users) readAll(ctx context.Context) ([][]string, error) {
	if err := u.tab.Ensure(ctx, tabular.UsersTable); err != nil {
		return nil, err
	}
	return u.tab.ReadAll(ctx, tabular.UsersTable)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
