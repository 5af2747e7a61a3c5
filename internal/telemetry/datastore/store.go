// Package datastore persists telemetry sessions to a local directory: one
// JSON file per session, written atomically (tempfile + fsync + rename),
// guarded by POSIX advisory locks, with a background auto-flush ticker and
// age-based cleanup. Grounded on the teacher's internal/artifacts.LocalStore
// (atomic tempfile-then-rename shape) and internal/sessions.SessionLocker
// (per-session locking idea, here backed by real flock instead of an
// in-process mutex since the lock must also mean something to a second
// process reading the same file).
package datastore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/tracehook/tracehook/internal/obs"
	"github.com/tracehook/tracehook/internal/telemetry/model"
)

// maxStorageErrors is the number of write/read failures after which
// persistent storage is disabled for the rest of the session; in-memory
// collection keeps working regardless (§7: "repeated storage errors (≥10)
// disable persistent storage but keep in-memory collection alive").
const maxStorageErrors = 10

// defaultMaxAgeDays is the cleanup threshold when the caller doesn't specify
// one explicitly.
const defaultMaxAgeDays = 30

const autoFlushInterval = 60 * time.Second

// RemoteSink is the optional best-effort forwarder a finalized session is
// handed to after a successful flush. The concrete OTLP-backed
// implementation lives in internal/telemetry/remote; datastore only depends
// on this interface so the core never imports a transport.
type RemoteSink interface {
	Send(sessionID string, session *model.TelemetrySession) error
}

// Config controls where sessions are stored and how long they're kept.
type Config struct {
	// Directory, if set, is used verbatim. Otherwise
	// ${HOME}/.cache/tracehook/sessions[/App] is tried, falling back to a
	// fresh temp directory if even that can't be created.
	Directory string
	App       string

	// MaxAgeDays bounds CleanupOldFiles; 0 means defaultMaxAgeDays.
	MaxAgeDays int
}

// Store is the on-disk session persister. One Store instance backs one
// telemetry Manager for its process lifetime.
type Store struct {
	mu      sync.Mutex
	dir     string
	logger  *slog.Logger
	remote  RemoteSink
	metrics *obs.Metrics

	maxAgeDays int

	currentID      string
	current        *model.TelemetrySession
	storageErrors  int
	storageDisabled bool

	tickerStop chan struct{}
	shutdownOnce sync.Once
}

// NewStore resolves the storage directory and returns a ready Store. Errors
// are only returned when even the temp-directory fallback fails.
func NewStore(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "telemetry.datastore")

	dir, err := resolveDirectory(cfg)
	if err != nil {
		return nil, err
	}

	maxAge := cfg.MaxAgeDays
	if maxAge <= 0 {
		maxAge = defaultMaxAgeDays
	}

	s := &Store{
		dir:        dir,
		logger:     logger,
		maxAgeDays: maxAge,
		tickerStop: make(chan struct{}),
	}
	go s.autoFlushLoop()
	return s, nil
}

// SetRemoteSink wires the optional remote sink; nil (the default) disables
// forwarding entirely.
func (s *Store) SetRemoteSink(sink RemoteSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remote = sink
}

// SetMetrics wires optional Prometheus instrumentation; nil (the default)
// disables observation entirely.
func (s *Store) SetMetrics(metrics *obs.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = metrics
}

// Directory returns the resolved storage directory.
func (s *Store) Directory() string { return s.dir }

func resolveDirectory(cfg Config) (string, error) {
	dir := cfg.Directory
	if dir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			dir = filepath.Join(home, ".cache", "tracehook", "sessions")
			if cfg.App != "" {
				dir = filepath.Join(dir, cfg.App)
			}
		}
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o700); err == nil {
			return dir, nil
		}
	}
	// Permission error (or no $HOME): fall back to a fresh temp directory.
	tmp, err := os.MkdirTemp("", "tracehook-sessions-")
	if err != nil {
		return "", fmt.Errorf("datastore: create fallback temp directory: %w", err)
	}
	return tmp, nil
}

func (s *Store) filenameFor(sessionID string, start time.Time) string {
	return fmt.Sprintf("%s_%s.json", start.Format("2006_01_02"), sessionID)
}

// Store updates the in-memory current session. It does not write to disk —
// callers flush explicitly (directly, or via the auto-flush ticker).
func (s *Store) Store(sessionID string, session *model.TelemetrySession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentID = sessionID
	s.current = session
}

// Get returns the session for sessionID: the in-memory copy if it's the
// current one, else whatever can be read back from disk.
func (s *Store) Get(sessionID string) *model.TelemetrySession {
	s.mu.Lock()
	if s.currentID == sessionID && s.current != nil {
		session := *s.current
		s.mu.Unlock()
		return &session
	}
	dir := s.dir
	s.mu.Unlock()

	matches, _ := filepath.Glob(filepath.Join(dir, "*_"+sessionID+".json"))
	if len(matches) == 0 {
		return nil
	}
	return s.readSessionFile(matches[0])
}

func (s *Store) readSessionFile(path string) *model.TelemetrySession {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH); err == nil {
		defer unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.recordError("read session file: " + err.Error())
		return nil
	}

	var session model.TelemetrySession
	if err := json.Unmarshal(data, &session); err != nil {
		s.archiveCorrupted(path)
		return nil
	}
	return &session
}

func (s *Store) archiveCorrupted(path string) {
	suffix := time.Now().Format("20060102_150405")
	corrupted := fmt.Sprintf("%s.corrupted_%s", path, suffix)
	if err := os.Rename(path, corrupted); err != nil {
		s.logger.Warn("failed to archive corrupted session file", "path", path, "error", err)
		return
	}
	s.logger.Warn("archived corrupted session file", "path", path, "archived_as", corrupted)
	s.recordError("corrupted session file: " + path)
}

// Flush writes the current session (if any) to disk atomically. After a
// successful write of a *finalized* session (EndTime set), it is handed to
// the remote sink, if one is configured.
func (s *Store) Flush() error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil
	}
	if s.storageDisabled {
		s.mu.Unlock()
		return nil
	}
	sessionID := s.currentID
	session := *s.current
	remote := s.remote
	metrics := s.metrics
	s.mu.Unlock()

	start := time.Now()
	err := s.writeAtomic(sessionID, &session)
	if metrics != nil {
		metrics.TelemetryFlushDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		s.recordError(err.Error())
		if metrics != nil {
			metrics.TelemetryFlushTotal.WithLabelValues("error").Inc()
		}
		return err
	}
	if metrics != nil {
		metrics.TelemetryFlushTotal.WithLabelValues("success").Inc()
	}

	if session.EndTime != nil && remote != nil {
		if err := remote.Send(sessionID, &session); err != nil {
			s.logger.Warn("remote telemetry sink failed", "session_id", sessionID, "error", err)
		}
	}
	return nil
}

func (s *Store) writeAtomic(sessionID string, session *model.TelemetrySession) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("datastore: marshal session: %w", err)
	}

	target := filepath.Join(s.dir, s.filenameFor(sessionID, session.StartTime))
	tmp := target + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("datastore: create temp file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("datastore: lock temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("datastore: write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("datastore: fsync temp file: %w", err)
	}
	unix.Flock(int(f.Fd()), unix.LOCK_UN)
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("datastore: close temp file: %w", err)
	}

	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("datastore: rename into place: %w", err)
	}
	if err := os.Chmod(target, 0o600); err != nil {
		return fmt.Errorf("datastore: chmod session file: %w", err)
	}
	return nil
}

// ForceFlushAll flushes, exactly like Flush; it changes no task status
// itself. Used by the interrupt/shutdown path: the collector (not the
// store) owns promoting task status, so the caller runs
// Collector.MarkInProgressInterrupted before Store()-ing the resulting
// session and invoking ForceFlushAll.
func (s *Store) ForceFlushAll() error {
	return s.Flush()
}

// CleanupOldFiles removes session JSON files older than maxAgeDays (or the
// Store's configured default if maxAgeDays <= 0), returning the count
// removed.
func (s *Store) CleanupOldFiles(maxAgeDays int) int {
	if maxAgeDays <= 0 {
		maxAgeDays = s.maxAgeDays
	}
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed
}

// sessionFiles returns session JSON filenames sorted oldest-first; used only
// by tests to assert cleanup behavior deterministically.
func (s *Store) sessionFiles() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func (s *Store) autoFlushLoop() {
	ticker := time.NewTicker(autoFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Flush(); err != nil {
				s.logger.Warn("auto-flush failed, will retry next tick", "error", err)
			}
		case <-s.tickerStop:
			return
		}
	}
}

func (s *Store) recordError(message string) {
	s.mu.Lock()
	s.storageErrors++
	disabled := s.storageErrors >= maxStorageErrors
	s.storageDisabled = disabled
	s.mu.Unlock()

	s.logger.Error("telemetry storage error", "message", message, "count", s.storageErrors)
	if disabled {
		s.logger.Error("persistent telemetry storage disabled after repeated errors; continuing in-memory only")
	}
}

// Shutdown stops the auto-flush ticker, flushes once more, and runs cleanup.
// Safe to call more than once.
func (s *Store) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.tickerStop)
		_ = s.Flush()
		s.CleanupOldFiles(0)
	})
}
