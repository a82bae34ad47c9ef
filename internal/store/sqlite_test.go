// ABOUTME: Tests for the SQLite primary store
// ABOUTME: Covers slot creation, round-trips, overwrites, and the empty-slot sentinel

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "wallet.db")
	s, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	return s
}

func TestNewSQLite(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "wallet.db")

	s, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLite_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "wallet.db")

	s, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestGetState_Empty(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	_, err := s.GetState(context.Background())
	if !errors.Is(err, ErrNoState) {
		t.Errorf("expected ErrNoState, got %v", err)
	}
}

func TestPutAndGetState(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	env := &Envelope{
		Version: 3,
		Data: map[string]any{
			"preferences":  map[string]any{"locale": "en"},
			"transactions": []any{},
		},
	}

	if err := s.PutState(ctx, env); err != nil {
		t.Fatalf("PutState failed: %v", err)
	}

	got, err := s.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}

	if got.Version != 3 {
		t.Errorf("expected version 3, got %d", got.Version)
	}
	prefs, ok := got.Data["preferences"].(map[string]any)
	if !ok {
		t.Fatalf("preferences key missing or wrong type: %v", got.Data["preferences"])
	}
	if prefs["locale"] != "en" {
		t.Errorf("expected locale en, got %v", prefs["locale"])
	}
}

func TestPutState_Overwrites(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.PutState(ctx, &Envelope{Version: 1, Data: map[string]any{"a": "old"}}); err != nil {
		t.Fatalf("PutState failed: %v", err)
	}
	if err := s.PutState(ctx, &Envelope{Version: 2, Data: map[string]any{"a": "new"}}); err != nil {
		t.Fatalf("PutState failed: %v", err)
	}

	got, err := s.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("expected version 2, got %d", got.Version)
	}
	if got.Data["a"] != "new" {
		t.Errorf("expected a=new, got %v", got.Data["a"])
	}
}

func TestPutState_SurvivesReopen(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "wallet.db")
	ctx := context.Background()

	s, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	if err := s.PutState(ctx, &Envelope{Version: 7, Data: map[string]any{"k": "v"}}); err != nil {
		t.Fatalf("PutState failed: %v", err)
	}
	s.Close()

	s2, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("reopening failed: %v", err)
	}
	defer s2.Close()

	got, err := s2.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState after reopen failed: %v", err)
	}
	if got.Version != 7 || got.Data["k"] != "v" {
		t.Errorf("state did not survive reopen: %+v", got)
	}
}
