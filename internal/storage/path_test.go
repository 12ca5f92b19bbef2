package storage

import (
	"testing"
	"time"
)

func TestBuildExportKey(t *testing.T) {
	ts := time.Date(2026, time.February, 19, 4, 5, 6, 0, time.FixedZone("x", -5*3600))
	key, err := BuildExportKey("ab12cd34", "csv", ts)
	if err != nil {
		t.Fatalf("BuildExportKey() error = %v", err)
	}
	want := "ab12cd34/2026-02-19/result-090506.csv"
	if key != want {
		t.Fatalf("BuildExportKey() = %q, want %q", key, want)
	}
}

func TestBuildExportKeyRejectsInvalidComponents(t *testing.T) {
	if _, err := BuildExportKey("../oops", "csv", time.Now()); err == nil {
		t.Fatal("expected invalid session id error")
	}
	if _, err := BuildExportKey("ab12cd34", "csv/../..", time.Now()); err == nil {
		t.Fatal("expected invalid extension error")
	}
}
