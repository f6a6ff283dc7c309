package events

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMemoryService_Bounded(t *testing.T) {
	s := NewMemoryService(3)
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		e, err := s.Record(t0.Add(time.Duration(i)*time.Second), KindValve, string(rune('a'+i)))
		if err != nil {
			t.Fatalf("Record() err=%v", err)
		}
		if e.ID == "" {
			t.Fatal("event id not assigned")
		}
	}
	got := s.List()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Message != "c" || got[2].Message != "e" {
		t.Fatalf("unexpected retained events: %+v", got)
	}
}

func TestFileService_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileService(dir, 10)
	if err != nil {
		t.Fatalf("NewFileService() err=%v", err)
	}
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if _, err := s.Record(t0, KindAction, "force open"); err != nil {
		t.Fatalf("Record() err=%v", err)
	}
	if _, err := s.Record(t0.Add(time.Second), KindFault, "sensor read failed"); err != nil {
		t.Fatalf("Record() err=%v", err)
	}

	// corrupt line must be skipped on reload
	f, err := os.OpenFile(filepath.Join(dir, "events.jsonl"), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = f.WriteString("{not json\n")
	_ = f.Close()

	reopened, err := NewFileService(dir, 10)
	if err != nil {
		t.Fatalf("reopen err=%v", err)
	}
	got := reopened.List()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Kind != KindAction || got[1].Message != "sensor read failed" {
		t.Fatalf("reloaded events = %+v", got)
	}
	if !got[0].At.Equal(t0) {
		t.Fatalf("timestamp lost: %v", got[0].At)
	}
}

func TestNewFileService_EmptyDir(t *testing.T) {
	if _, err := NewFileService("", 0); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func fileLines(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return bytes.Count(data, []byte("\n"))
}

func TestFileService_CompactsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")
	s, err := NewFileService(dir, 3)
	if err != nil {
		t.Fatalf("NewFileService() err=%v", err)
	}
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		if _, err := s.Record(t0.Add(time.Duration(i)*time.Second), KindValve, fmt.Sprintf("move %d", i)); err != nil {
			t.Fatalf("Record() err=%v", err)
		}
		if n := fileLines(t, path); n > 6 {
			t.Fatalf("after %d records file has %d lines, want at most 6", i+1, n)
		}
	}

	reopened, err := NewFileService(dir, 3)
	if err != nil {
		t.Fatalf("reopen err=%v", err)
	}
	got := reopened.List()
	if len(got) != 3 || got[0].Message != "move 7" || got[2].Message != "move 9" {
		t.Fatalf("retained events = %+v", got)
	}

	// a smaller limit shrinks an oversized file on open
	if _, err := NewFileService(dir, 2); err != nil {
		t.Fatalf("reopen with smaller limit err=%v", err)
	}
	if n := fileLines(t, path); n != 2 {
		t.Fatalf("file has %d lines after compaction on open, want 2", n)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}
