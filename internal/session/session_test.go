package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/mahanteshimath/duckdb-snowflake/internal/engine"
)

func TestHistoryCapAndOrder(t *testing.T) {
	s := New("test", nil)

	for i := 0; i < HistoryLimit+1; i++ {
		s.RecordHistory(HistoryEntry{
			SQL:  fmt.Sprintf("SELECT %d", i),
			Mode: ModeRemote,
			At:   time.Now(),
		})
	}

	history := s.History()
	if len(history) != HistoryLimit {
		t.Fatalf("history length = %d, want %d", len(history), HistoryLimit)
	}
	if history[0].SQL != fmt.Sprintf("SELECT %d", HistoryLimit) {
		t.Fatalf("newest entry = %q", history[0].SQL)
	}
	for _, entry := range history {
		if entry.SQL == "SELECT 0" {
			t.Fatal("oldest entry should have been evicted")
		}
	}
}

func TestResetClearsEverything(t *testing.T) {
	s := New("test", nil)
	s.MarkConnected("sf_secret_test", "account=xy12345;user=alice;password=****")
	s.SetSelection("DB1", "PUBLIC", "T1")
	s.SetAttachAlias("sfdb")
	s.SetLastResult("SELECT 1", engine.Result{Columns: []string{"c"}, Rows: [][]any{{int64(1)}}})

	s.Reset()

	if s.Connected() {
		t.Fatal("connected should be false after reset")
	}
	if s.Secret() != "" {
		t.Fatalf("secret = %q", s.Secret())
	}
	if s.AttachAlias() != "" {
		t.Fatalf("attach alias = %q", s.AttachAlias())
	}
	if db, schema, table := s.Selection(); db != "" || schema != "" || table != "" {
		t.Fatalf("selection = %q.%q.%q", db, schema, table)
	}
	if _, _, ok := s.LastResult(); ok {
		t.Fatal("last result should be absent after reset")
	}
}

func TestResetKeepsHistory(t *testing.T) {
	s := New("test", nil)
	s.RecordHistory(HistoryEntry{SQL: "SELECT 1", Mode: ModeLocal})
	s.Reset()
	if len(s.History()) != 1 {
		t.Fatal("history should survive disconnect")
	}
	s.ClearHistory()
	if len(s.History()) != 0 {
		t.Fatal("history should be empty after clear")
	}
}

func TestLastResultReplaced(t *testing.T) {
	s := New("test", nil)
	s.SetLastResult("SELECT 1", engine.Result{Columns: []string{"a"}})
	s.SetLastResult("SELECT 2", engine.Result{Columns: []string{"b"}})

	result, sqlText, ok := s.LastResult()
	if !ok {
		t.Fatal("last result missing")
	}
	if sqlText != "SELECT 2" || result.Columns[0] != "b" {
		t.Fatalf("last result = %q %v", sqlText, result.Columns)
	}
}

func TestSecretNameScopedToSession(t *testing.T) {
	if got := SecretName("ab12cd"); got != "sf_secret_ab12cd" {
		t.Fatalf("SecretName() = %q", got)
	}
	// Hostile characters are flattened so the name stays a valid identifier.
	if got := SecretName("x'; DROP--"); got != "sf_secret_x___DROP__" {
		t.Fatalf("SecretName() = %q", got)
	}
	if SecretName("a") == SecretName("b") {
		t.Fatal("secret names must differ per session")
	}
}

func TestRegistryReusesAndDeletes(t *testing.T) {
	r := NewRegistry(time.Minute, "community")
	defer r.Close()

	s1 := r.Get("one")
	if s1 == nil || s1.ID != "one" {
		t.Fatalf("session = %+v", s1)
	}
	if r.Get("one") != s1 {
		t.Fatal("registry should reuse the live session")
	}
	if r.Len() != 1 {
		t.Fatalf("len = %d", r.Len())
	}

	r.Delete("one")
	if r.Get("one") == s1 {
		t.Fatal("deleted session should not be reused")
	}
}

func TestNewIDIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		if id == "" || seen[id] {
			t.Fatalf("duplicate or empty id %q", id)
		}
		seen[id] = true
	}
}
