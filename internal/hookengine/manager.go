package hookengine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tracehook/tracehook/internal/hookconfig"
	"github.com/tracehook/tracehook/internal/obs"
)

// HookStatistics is the typed snapshot returned by Manager.Statistics
// (resolved Open Question #3: typed structs, not a bare map).
type HookStatistics struct {
	CountsByEvent   map[EventKind]Counts
	PatternCacheLen int
	ManagerErrors   ErrorStatistics
	ScriptErrors    ErrorStatistics
}

// Manager is the single authoritative entry point for the hook system. It
// is a process-wide singleton, reached through Global(); ResetInstance is
// provided only for tests, mirroring the teacher's own singleton-reset
// pattern for its per-process caches.
type Manager struct {
	mu sync.Mutex

	sessionID string

	matcher         *Matcher
	registry        *Registry
	scriptRunner    *ScriptRunner
	callbackRunner  *CallbackRunner
	classifier      *ErrorClassifier
	scriptErrors    *ErrorClassifier
	logger          *slog.Logger
	metrics         *obs.Metrics
	configSources   []hookconfig.Source
	configLoaded    bool
	debug           bool
}

var (
	globalMu       sync.Mutex
	globalInstance *Manager
)

// Global returns the process-wide Manager, constructing it on first use.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalInstance == nil {
		globalInstance = NewManager(nil, nil)
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

// ManagerOption configures a Manager at construction time.
type ManagerOption func(*Manager)

// WithConfigSources supplies the hook-configuration sources LoadConfiguration
// reads from. Without this option the manager runs with zero hooks.
func WithConfigSources(sources ...hookconfig.Source) ManagerOption {
	return func(m *Manager) { m.configSources = sources }
}

// WithMetrics wires a Prometheus instrumentation set into the manager.
func WithMetrics(metrics *obs.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager builds a Manager with a fresh session id, ready to run with
// zero hooks until LoadConfiguration (or the first Trigger, which loads
// lazily) registers some.
func NewManager(logger *slog.Logger, errClassifierLogger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	matcher := NewMatcher()
	classifier := NewErrorClassifier(logger)
	scriptErrors := NewErrorClassifier(logger)

	m := &Manager{
		sessionID:      uuid.NewString(),
		matcher:        matcher,
		registry:       NewRegistry(matcher, logger),
		classifier:     classifier,
		scriptErrors:   scriptErrors,
		scriptRunner:   NewScriptRunner(scriptErrors, logger),
		callbackRunner: NewCallbackRunner(classifier, logger),
		logger:         logger.With("component", "hookengine.manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadConfiguration reads the configured hook sources (if any) and registers
// their script hooks. Each call registers them again on top of any already
// registered; ReloadConfiguration clears script hooks first. Trigger calls
// it automatically when no load has happened yet.
func (m *Manager) LoadConfiguration() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadConfigurationLocked()
}

func (m *Manager) loadConfigurationLocked() error {
	if len(m.configSources) == 0 {
		m.configLoaded = true
		return nil
	}

	merged, err := hookconfig.LoadAndMerge(m.configSources)
	if err != nil {
		m.classifier.HandleConfigurationError("manager", err.Error())
		m.configLoaded = true // a reload can still recover later
		return err
	}

	for eventName, groups := range merged.Hooks {
		event := EventKind(eventName)
		if !event.IsValid() {
			m.classifier.HandleConfigurationError("manager", "unknown event in hook configuration: "+eventName)
			continue
		}
		for _, group := range groups {
			for _, h := range group.Hooks {
				if h.Type != "command" {
					continue // "callback" hooks are never configured from files
				}
				timeout := time.Duration(h.Timeout) * time.Second
				if h.Timeout <= 0 {
					timeout = time.Duration(merged.Settings.DefaultTimeout) * time.Second
				}
				sh := ScriptHook{
					Matcher:          group.Matcher,
					Command:          h.Command,
					Timeout:          timeout,
					WorkingDirectory: h.WorkingDirectory,
				}
				if err := m.registry.RegisterScript(event, sh); err != nil {
					m.classifier.HandleValidationError("manager", err.Error())
				}
			}
		}
	}

	m.configLoaded = true
	return nil
}

// Trigger builds a HookContext, dispatches every matching hook, and
// aggregates the results.
func (m *Manager) Trigger(ctx context.Context, event EventKind, toolName string, toolInput map[string]any, toolResponse map[string]any) (result HookResult) {
	defer func() {
		if rec := recover(); rec != nil {
			m.classifier.HandleSystemError("manager", fmt.Sprintf("panic in trigger: %v", rec))
			result = ErrorResult(fmt.Sprintf("Hook system error: %v", rec))
		}
	}()

	m.mu.Lock()
	if !m.configLoaded {
		_ = m.loadConfigurationLocked()
	}
	m.mu.Unlock()

	cwd, _ := os.Getwd()
	hookCtx := &HookContext{
		SessionID:    m.sessionID,
		Cwd:          cwd,
		Event:        event,
		ToolName:     toolName,
		ToolInput:    toolInput,
		ToolResponse: toolResponse,
	}

	scripts, callbacks := m.registry.Match(event, toolName)
	if len(scripts) == 0 && len(callbacks) == 0 {
		r := SuccessResult()
		r.NoHooksExecuted = true
		return r
	}

	results := make([]HookResult, 0, len(scripts)+len(callbacks))

	for _, sh := range scripts {
		start := time.Now()
		r := m.scriptRunner.Run(ctx, sh, hookCtx)
		m.observe(event, "script", r, time.Since(start))
		results = append(results, r)
	}
	for _, ch := range callbacks {
		if m.classifier.IsDisabled(ch.Matcher) {
			continue
		}
		start := time.Now()
		r := m.callbackRunner.Run(ctx, ch, hookCtx)
		m.observe(event, "callback", r, time.Since(start))
		results = append(results, r)
	}

	return Aggregate(results)
}

func (m *Manager) observe(event EventKind, hookType string, r HookResult, dur time.Duration) {
	if m.metrics == nil {
		return
	}
	outcome := string(r.Decision)
	if outcome == "" {
		if r.Success {
			outcome = "allow"
		} else {
			outcome = "error"
		}
	}
	m.metrics.HookDispatchTotal.WithLabelValues(string(event), hookType, outcome).Inc()
	m.metrics.HookDispatchDuration.WithLabelValues(string(event), hookType).Observe(dur.Seconds())
}

// RegisterCallback registers an in-process callback hook, returning its
// opaque registration ID (used later with UnregisterCallback since Go
// function values are not comparable).
func (m *Manager) RegisterCallback(event EventKind, matcher string, fn CallbackFunc, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return m.registry.RegisterCallback(event, CallbackHook{Matcher: matcher, Fn: fn, Timeout: timeout})
}

// UnregisterCallback removes a previously registered callback by ID.
func (m *Manager) UnregisterCallback(event EventKind, id string) bool {
	return m.registry.RemoveCallback(event, id)
}

// ReloadConfiguration drops all script hooks for every event and re-invokes
// LoadConfiguration. Callback hooks are untouched — they are programmatic,
// not configured.
func (m *Manager) ReloadConfiguration() error {
	m.registry.ClearScripts()
	m.mu.Lock()
	m.configLoaded = false
	defer m.mu.Unlock()
	return m.loadConfigurationLocked()
}

// ClearAllHooks empties the registry of both script and callback hooks for
// every event kind.
func (m *Manager) ClearAllHooks() {
	m.registry.Clear("")
}

// ClearErrorStatistics resets both the manager-level and script-runner-level
// error classifiers.
func (m *Manager) ClearErrorStatistics() {
	m.classifier.Reset()
	m.scriptErrors.Reset()
}

// SetDebugMode toggles verbose diagnostic logging on both classifiers.
func (m *Manager) SetDebugMode(on bool) {
	m.mu.Lock()
	m.debug = on
	m.mu.Unlock()
	m.classifier.SetDebugMode(on)
	m.scriptErrors.SetDebugMode(on)
}

// Shutdown performs lifecycle maintenance; currently a no-op beyond
// clearing hooks, since the hook manager holds no external resources of its
// own (unlike the telemetry manager, which owns file handles and timers).
func (m *Manager) Shutdown() {
	m.ClearAllHooks()
}

// Statistics returns counts per event, pattern-cache size, and both error
// summaries.
func (m *Manager) Statistics() HookStatistics {
	counts := make(map[EventKind]Counts)
	for _, event := range []EventKind{PreToolUse, PostToolUse, PostToolError, UserPromptSubmit} {
		counts[event] = m.registry.Counts(event)
	}
	return HookStatistics{
		CountsByEvent:   counts,
		PatternCacheLen: m.matcher.CacheSize(),
		ManagerErrors:   m.classifier.Summary(),
		ScriptErrors:    m.scriptErrors.Summary(),
	}
}

// SessionID returns the session identifier generated at construction.
func (m *Manager) SessionID() string {
	return m.sessionID
}
