package telemetry

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"github.com/tracehook/tracehook/internal/obs"
	"github.com/tracehook/tracehook/internal/telemetry/datastore"
)

// Config controls whether telemetry is active and where it persists to.
// Zero value is "enabled, default storage location" — matching the
// teacher's preference for safe-by-default instrumentation.
type Config struct {
	Disabled bool

	Directory  string
	App        string
	MaxAgeDays int

	ProjectRoot string
}

// Manager is the process-wide telemetry entry point: it owns one data
// store and at most one live Collector, and guarantees collected data is
// persisted on every exit path (explicit shutdown, signal, or process
// finalize). Mirrors hookengine.Manager's Global()/ResetInstance()
// singleton shape.
type Manager struct {
	mu sync.Mutex

	cfg    Config
	logger *slog.Logger

	store     *datastore.Store
	collector *Collector
	sessionID string

	initialized  bool
	shuttingDown bool
	shutdownOnce sync.Once

	sigCh chan os.Signal
}

var (
	globalMu       sync.Mutex
	globalInstance *Manager
)

// Global returns the process-wide Manager, constructing and initializing
// it on first use.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalInstance == nil {
		globalInstance = NewManager(Config{}, nil)
		_ = globalInstance.Initialize()
	}
	return globalInstance
}

// ResetInstance shuts down the process-wide singleton, if one exists, and
// drops it. Tests only.
func ResetInstance() {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalInstance != nil {
		globalInstance.Shutdown()
	}
	globalInstance = nil
}

// NewManager builds an unstarted Manager; call Initialize before use (or
// go through Global, which does this automatically).
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:    cfg,
		logger: logger.With("component", "telemetry.manager"),
	}
}

// Initialize builds the data store, generates the first session id, runs
// an initial cleanup pass, and installs signal handlers. Safe to call more
// than once; only the first call does anything.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return nil
	}

	if m.cfg.Disabled {
		m.initialized = true
		return nil
	}

	store, err := datastore.NewStore(datastore.Config{
		Directory:  m.cfg.Directory,
		App:        m.cfg.App,
		MaxAgeDays: m.cfg.MaxAgeDays,
	}, m.logger)
	if err != nil {
		m.logger.Error("failed to initialize telemetry data store, disabling persistence", "error", err)
		m.initialized = true
		return err
	}

	store.CleanupOldFiles(0)

	m.store = store
	m.sessionID = uuid.NewString()
	m.initialized = true

	m.installSignalHandlers()
	return nil
}

// SetRemoteSink wires the optional remote sink into the underlying data
// store. A no-op before Initialize or when telemetry is disabled.
func (m *Manager) SetRemoteSink(sink datastore.RemoteSink) {
	m.mu.Lock()
	store := m.store
	m.mu.Unlock()
	if store != nil {
		store.SetRemoteSink(sink)
	}
}

// SetMetrics wires Prometheus instrumentation into the underlying data
// store. A no-op before Initialize or when telemetry is disabled.
func (m *Manager) SetMetrics(metrics *obs.Metrics) {
	m.mu.Lock()
	store := m.store
	m.mu.Unlock()
	if store != nil {
		store.SetMetrics(metrics)
	}
}

// GetCollector lazily creates the session's Collector. When telemetry is
// disabled, or the data store failed to initialize, it returns a noop
// collector that silently accepts all operations — callers never need to
// branch on whether telemetry is active.
func (m *Manager) GetCollector() *Collector {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.Disabled || m.store == nil {
		return noopCollector()
	}
	if m.collector == nil {
		env := DetectEnvironment(m.cfg.ProjectRoot)
		m.collector = NewCollector(m.sessionID, env, m.logger)
	}
	return m.collector
}

// FlushData forwards to the data store; a no-op when telemetry is
// disabled.
func (m *Manager) FlushData() error {
	m.mu.Lock()
	store := m.store
	collector := m.collector
	sessionID := m.sessionID
	m.mu.Unlock()

	if store == nil || collector == nil {
		return nil
	}
	session := collector.CurrentSession()
	store.Store(sessionID, &session)
	return store.Flush()
}

// ForceFlushAllData ends any still-active tools and agents as partial and
// marks still-active tasks interrupted, then writes. Used on the shutdown and signal paths where
// the caller cannot wait for in-flight work to finish normally.
func (m *Manager) ForceFlushAllData() error {
	m.mu.Lock()
	store := m.store
	collector := m.collector
	sessionID := m.sessionID
	m.mu.Unlock()

	if store == nil || collector == nil {
		return nil
	}
	collector.MarkInProgressInterrupted()
	session := collector.CurrentSession()
	store.Store(sessionID, &session)
	return store.ForceFlushAll()
}

// FinalizeCurrentSession closes out the current session (setting its end
// time and rolling up duration) and persists it: collector.FinalizeSession
// then store.Store then store.Flush.
func (m *Manager) FinalizeCurrentSession() error {
	m.mu.Lock()
	store := m.store
	collector := m.collector
	sessionID := m.sessionID
	m.mu.Unlock()

	if store == nil || collector == nil {
		return nil
	}
	session := collector.FinalizeSession()
	store.Store(sessionID, &session)
	return store.Flush()
}

// StartNewSession finalizes the current session, generates a fresh
// session id, and drops the collector so the next GetCollector call
// builds a new one against the new id.
func (m *Manager) StartNewSession() error {
	if err := m.FinalizeCurrentSession(); err != nil {
		m.logger.Warn("failed to finalize session before starting a new one", "error", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionID = uuid.NewString()
	m.collector = nil
	return nil
}

// Shutdown is guarded by a boolean + mutex: the first call force-flushes,
// attempts a normal finalize, then shuts down the store; later calls are a
// no-op. Invoked from main's deferred shutdown and from signal handlers —
// both converge here.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.mu.Lock()
		m.shuttingDown = true
		store := m.store
		m.mu.Unlock()

		if store == nil {
			return
		}

		if err := m.ForceFlushAllData(); err != nil {
			m.logger.Warn("force-flush during shutdown failed", "error", err)
		}
		if err := m.FinalizeCurrentSession(); err != nil {
			m.logger.Warn("finalize during shutdown failed", "error", err)
		}
		store.Shutdown()
	})
}

// installSignalHandlers wires SIGINT, SIGTERM, and SIGHUP to Shutdown,
// restoring default disposition and re-raising the signal afterward so
// normal termination still occurs. Installation is best-effort: if it
// can't meaningfully run (e.g. called from a non-main context where
// os/signal would never deliver), the manager simply proceeds without
// handlers rather than failing Initialize.
func (m *Manager) installSignalHandlers() {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Warn("failed to install telemetry signal handlers, continuing without them", "recovered", rec)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	m.sigCh = sigCh

	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		m.logger.Info("received signal, shutting down telemetry", "signal", sig)
		m.Shutdown()
		signal.Reset(sig)
		_ = syscall.Kill(os.Getpid(), sig.(syscall.Signal))
	}()
}

// IsEnabled reports whether telemetry is active for this manager. Used by
// WithTelemetry to decide whether to wrap an agent at all, per the "return
// the unwrapped agent when disabled" rule.
func (m *Manager) IsEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.cfg.Disabled && m.store != nil
}

// SessionID returns the current session identifier.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Store exposes the underlying data store, primarily so cmd/tracehook can
// wire a remote sink or read back past sessions. Returns nil when
// telemetry is disabled.
func (m *Manager) Store() *datastore.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store
}
