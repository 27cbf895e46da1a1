package core

import (
	"errors"
	"testing"
)

func TestTransactionValidate(t *testing.T) {
	tx := Transaction{Description: "lunch", Amount: 12.5}
	if err := tx.Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	tx.Amount = 0
	if err := tx.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	tx.Amount = -3
	if err := tx.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}

	tx.Amount = 1
	tx.Description = "   "
	if err := tx.Validate(); !errors.Is(err, ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{"ok", "alice", "s3cret", false},
		{"empty username", "", "s3cret", true},
		{"empty password", "alice", "", true},
		{"short username", "al", "s3cret", true},
		{"short password", "alice", "abc", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCredentials(tt.username, tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateCredentials(%q, %q) = %v, wantErr=%v", tt.username, tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestCardByIDFallsBackToOther(t *testing.T) {
	if got := CardByID("nubank"); got.Name != "NuBank" {
		t.Fatalf("unexpected card: %+v", got)
	}
	if got := CardByID("no-such-issuer"); got.ID != "other" {
		t.Fatalf("expected fallback to other, got %+v", got)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12.34", 12.34},
		{"12,34", 12.34},
		{" 7 ", 7},
		{"", 0},
		{"abc", 0},
		{"-5", -5},
	}
	for _, tt := range tests {
		if got := ParseAmount(tt.in); got != tt.want {
			t.Fatalf("ParseAmount(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCoerceAmount(t *testing.T) {
	if got := CoerceAmount(float64(9.5)); got != 9.5 {
		t.Fatalf("number: got %v", got)
	}
	if got := CoerceAmount("3,25"); got != 3.25 {
		t.Fatalf("string: got %v", got)
	}
	if got := CoerceAmount(nil); got != 0 {
		t.Fatalf("nil: got %v", got)
	}
	if got := CoerceAmount([]string{"x"}); got != 0 {
		t.Fatalf("unexpected type: got %v", got)
	}
}

func TestFormatAmountRoundTrips(t *testing.T) {
	for _, f := range []float64{0, 1, 12.34, 0.1} {
		if got := ParseAmount(FormatAmount(f)); got != f {
			t.Fatalf("round trip %v -> %v", f, got)
		}
	}
}
