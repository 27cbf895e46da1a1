package tui

import (
	"testing"
)

func TestSessionRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	s, err := LoadSession()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s != nil {
		t.Fatalf("expected no session, got %+v", s)
	}

	if err := SaveSession(Session{Username: "alice"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	s, err = LoadSession()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s == nil || s.Username != "alice" {
		t.Fatalf("expected alice session, got %+v", s)
	}

	if err := ClearSession(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	s, err = LoadSession()
	if err != nil {
		t.Fatalf("load after clear: %v", err)
	}
	if s != nil {
		t.Fatalf("expected no session after clear, got %+v", s)
	}
}

func TestClearSessionWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if err := ClearSession(); err != nil {
		t.Fatalf("clearing a missing session should not fail: %v", err)
	}
}
