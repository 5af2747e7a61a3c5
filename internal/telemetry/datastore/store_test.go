package datastore

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tracehook/tracehook/internal/telemetry/model"
)

func testSession(id string) *model.TelemetrySession {
	return &model.TelemetrySession{
		SessionID: id,
		StartTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestStore_FlushWritesAtomicFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(Config{Directory: dir}, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Shutdown()

	session := testSession("abc-123")
	s.Store(session.SessionID, session)

	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Name() == "2025_01_01_abc-123.json" {
			found = true
		}
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("leftover tmp file: %s", e.Name())
		}
	}
	if !found {
		t.Fatalf("expected session file, got entries: %v", entries)
	}

	info, err := os.Stat(filepath.Join(dir, "2025_01_01_abc-123.json"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}
}

func TestStore_GetInMemoryThenDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(Config{Directory: dir}, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Shutdown()

	session := testSession("sess-1")
	s.Store(session.SessionID, session)

	if got := s.Get("sess-1"); got == nil || got.SessionID != "sess-1" {
		t.Fatalf("expected in-memory hit, got %v", got)
	}

	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// Force a fresh Store so Get must read from disk.
	s2, err := NewStore(Config{Directory: dir}, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s2.Shutdown()

	got := s2.Get("sess-1")
	if got == nil || got.SessionID != "sess-1" {
		t.Fatalf("expected disk round-trip hit, got %v", got)
	}
}

func TestStore_CorruptedFileIsArchived(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2025_01_01_bad-id.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := NewStore(Config{Directory: dir}, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Shutdown()

	if got := s.Get("bad-id"); got != nil {
		t.Fatalf("expected nil for corrupted file, got %v", got)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected original corrupted file to be gone, stat err=%v", err)
	}

	entries, _ := os.ReadDir(dir)
	archived := false
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			archived = true
		}
	}
	if !archived {
		t.Errorf("expected an archived corrupted_* sibling file, got entries: %v", entries)
	}
}

func TestStore_CleanupOldFiles(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "2020_01_01_old.json")
	if err := os.WriteFile(oldPath, []byte("{}"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	old := time.Now().AddDate(0, 0, -100)
	if err := os.Chtimes(oldPath, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	s, err := NewStore(Config{Directory: dir, MaxAgeDays: 30}, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Shutdown()

	if n := s.CleanupOldFiles(0); n != 1 {
		t.Errorf("expected 1 file cleaned up, got %d", n)
	}
	if files := s.sessionFiles(); len(files) != 0 {
		t.Errorf("expected no session files left, got %v", files)
	}
}

func TestStore_ConcurrentFlush(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(Config{Directory: dir}, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Shutdown()

	session := testSession("concurrent")
	s.Store(session.SessionID, session)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Flush()
		}()
	}
	wg.Wait()
}
