package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Credit PaymentMethod = "credit"
	Debit  PaymentMethod = "debit"
)

type (
	TransactionType string
	PaymentMethod   string

	User struct {
		Username  string
		Password  string
		CreatedAt time.Time
	}

	// Transaction is one data row of the Transactions table. RowIndex is the
	// 1-based physical position of the row in the store and doubles as the
	// transaction's identity; row 1 is the header and never a valid index.
	// A RowIndex of 0 means the transaction has not been persisted yet.
	Transaction struct {
		Username    string
		Date        string // ISO date, no time component
		Description string
		Amount      float64
		Type        TransactionType
		Method      PaymentMethod
		Card        string
		Category    string
		RowIndex    int
	}

	Card struct {
		ID   string
		Name string
	}
)

// Cards the form offers. "other" is the fallback for unknown values.
var CardOptions = []Card{
	{ID: "nubank", Name: "NuBank"},
	{ID: "itau", Name: "Itaú"},
	{ID: "santander", Name: "Santander"},
	{ID: "mercadopago", Name: "Mercado Pago"},
	{ID: "inter", Name: "Inter"},
	{ID: "cash", Name: "Cash"},
	{ID: "other", Name: "Other"},
}

// Categories the form suggests; the field itself is free-form.
var CategoryOptions = []string{
	"Food", "Transport", "Leisure", "Health", "Education", "Bills", "Other",
}

var (
	ErrEmptyUsername    = errors.New("empty username")
	ErrEmptyPassword    = errors.New("empty password")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
)

// CardByID resolves a card id to its display entry, falling back to "other".
func CardByID(id string) Card {
	for _, c := range CardOptions {
		if c.ID == id {
			return c
		}
	}
	return CardOptions[len(CardOptions)-1]
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (m PaymentMethod) Valid() bool {
	return m == Credit || m == Debit
}

// Validate covers the client-side checks performed before any network call.
// The backend itself accepts rows without schema validation.
func (t Transaction) Validate() error {
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	return nil
}

// ValidateCredentials applies the registration rules: usernames need at
// least 3 characters, passwords at least 4.
func ValidateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return ErrEmptyUsername
	}
	if strings.TrimSpace(password) == "" {
		return ErrEmptyPassword
	}
	if len(username) < 3 {
		return errors.New("username must be at least 3 characters")
	}
	if len(password) < 4 {
		return errors.New("password must be at least 4 characters")
	}
	return nil
}
