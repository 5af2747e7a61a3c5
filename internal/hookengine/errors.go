package hookengine

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrorCategory is the taxonomy slot a hook-system failure is filed under.
type ErrorCategory string

const (
	CategoryTimeout           ErrorCategory = "timeout"
	CategoryScriptError       ErrorCategory = "script_error"
	CategoryCallbackError     ErrorCategory = "callback_error" // renamed from python_error; see DESIGN.md
	CategoryConfigurationErr  ErrorCategory = "configuration_error"
	CategoryPermissionError   ErrorCategory = "permission_error"
	CategoryValidationError   ErrorCategory = "validation_error"
	CategorySystemError       ErrorCategory = "system_error"
)

// Severity ranks how seriously a classified error should be treated.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// maxRecentErrors bounds the ring buffer of recent classified errors.
const maxRecentErrors = 100

// maxComponentErrors is the per-component error count at which the
// component is disabled for the remainder of the session.
const maxComponentErrors = 10

// ClassifiedError is one entry in the error classifier's history.
type ClassifiedError struct {
	Category  ErrorCategory
	Severity  Severity
	Component string
	Message   string
	Hint      string
	At        time.Time
}

// ErrorStatistics is a snapshot of the classifier's state, returned in place
// of an untyped map (resolved Open Question #3 — see DESIGN.md).
type ErrorStatistics struct {
	CountsByCategory map[ErrorCategory]int
	Recent           []ClassifiedError
	DisabledCount    int
}

// ErrorClassifier records, categorizes, and throttles hook-system failures
// so they never mask tool logic.
type ErrorClassifier struct {
	mu         sync.Mutex
	logger     *slog.Logger
	debug      bool
	counts     map[ErrorCategory]int
	ring       []ClassifiedError
	disabled   map[string]bool
	componentN map[string]int
	corrupted  map[string]bool
}

// NewErrorClassifier builds a classifier logging through logger.
func NewErrorClassifier(logger *slog.Logger) *ErrorClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorClassifier{
		logger:     logger.With("component", "hookengine.errors"),
		counts:     make(map[ErrorCategory]int),
		disabled:   make(map[string]bool),
		componentN: make(map[string]int),
		corrupted:  make(map[string]bool),
	}
}

// SetDebugMode toggles verbose diagnostic logging (stack traces, hook
// metadata) on classified errors.
func (c *ErrorClassifier) SetDebugMode(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debug = on
}

func recoveryHint(category ErrorCategory) string {
	switch category {
	case CategoryTimeout:
		return "increase the hook's timeout or speed up its work"
	case CategoryScriptError:
		return "check the hook command's exit code and stderr output"
	case CategoryCallbackError:
		return "check the registered callback function for panics or errors"
	case CategoryConfigurationErr:
		return "validate the hook configuration file against its schema"
	case CategoryPermissionError:
		return "check file permissions and execute bits on the hook command"
	case CategoryValidationError:
		return "check the hook registration's matcher, command, and timeout"
	default:
		return "check logs for the underlying system error"
	}
}

func severityFor(category ErrorCategory) Severity {
	switch category {
	case CategoryTimeout, CategoryCallbackError, CategoryValidationError:
		return SeverityMedium
	case CategoryPermissionError:
		return SeverityHigh
	case CategorySystemError:
		return SeverityCritical
	case CategoryConfigurationErr:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// record is the shared implementation behind every Handle* method.
func (c *ErrorClassifier) record(category ErrorCategory, component, message string, panicVal any) ClassifiedError {
	severity := severityFor(category)
	entry := ClassifiedError{
		Category:  category,
		Severity:  severity,
		Component: component,
		Message:   message,
		Hint:      recoveryHint(category),
		At:        time.Now(),
	}

	c.mu.Lock()
	c.counts[category]++
	c.ring = append(c.ring, entry)
	if len(c.ring) > maxRecentErrors {
		c.ring = c.ring[len(c.ring)-maxRecentErrors:]
	}
	if component != "" {
		c.componentN[component]++
		if c.componentN[component] >= maxComponentErrors {
			c.disabled[component] = true
		}
	}
	debugOn := c.debug
	c.mu.Unlock()

	level := slog.LevelWarn
	switch severity {
	case SeverityLow:
		level = slog.LevelInfo
	case SeverityHigh, SeverityCritical:
		level = slog.LevelError
	}

	args := []any{"category", category, "severity", severity, "component", component, "hint", entry.Hint}
	if debugOn {
		if panicVal != nil {
			args = append(args, "panic", panicVal, "stack", string(debug.Stack()))
		} else {
			args = append(args, "stack", string(debug.Stack()))
		}
	}
	c.logger.Log(nil, level, message, args...)

	return entry
}

// HandleTimeout classifies a hook timeout.
func (c *ErrorClassifier) HandleTimeout(component, message string) ClassifiedError {
	return c.record(CategoryTimeout, component, message, nil)
}

// HandleScriptError classifies a script-hook failure.
func (c *ErrorClassifier) HandleScriptError(component, message string) ClassifiedError {
	return c.record(CategoryScriptError, component, message, nil)
}

// HandleCallbackError classifies an in-process callback-hook failure. If
// panicVal is non-nil this was recovered from a panic.
func (c *ErrorClassifier) HandleCallbackError(component, message string, panicVal any) ClassifiedError {
	return c.record(CategoryCallbackError, component, message, panicVal)
}

// HandleConfigurationError classifies a hook-configuration problem.
func (c *ErrorClassifier) HandleConfigurationError(component, message string) ClassifiedError {
	return c.record(CategoryConfigurationErr, component, message, nil)
}

// HandlePermissionError classifies a permission failure (e.g. exit code 126).
func (c *ErrorClassifier) HandlePermissionError(component, message string) ClassifiedError {
	return c.record(CategoryPermissionError, component, message, nil)
}

// HandleValidationError classifies a bad registration or malformed input.
func (c *ErrorClassifier) HandleValidationError(component, message string) ClassifiedError {
	return c.record(CategoryValidationError, component, message, nil)
}

// HandleSystemError classifies an IO/process-level failure.
func (c *ErrorClassifier) HandleSystemError(component, message string) ClassifiedError {
	return c.record(CategorySystemError, component, message, nil)
}

// MarkCorrupted records that a data-store file could not be parsed and was
// archived, so callers can skip re-reading it.
func (c *ErrorClassifier) MarkCorrupted(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.corrupted[path] = true
}

// IsCorrupted reports whether path was previously marked corrupted.
func (c *ErrorClassifier) IsCorrupted(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.corrupted[path]
}

// IsDisabled reports whether component has accumulated enough errors to be
// skipped for the remainder of the session.
func (c *ErrorClassifier) IsDisabled(component string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disabled[component]
}

// Summary returns a snapshot of the classifier's current state.
func (c *ErrorClassifier) Summary() ErrorStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := make(map[ErrorCategory]int, len(c.counts))
	for k, v := range c.counts {
		counts[k] = v
	}
	recent := make([]ClassifiedError, len(c.ring))
	copy(recent, c.ring)

	return ErrorStatistics{
		CountsByCategory: counts,
		Recent:           recent,
		DisabledCount:    len(c.disabled),
	}
}

// Reset clears all classifier state: counts, ring buffer, disabled
// components, and corrupted-file markers.
func (c *ErrorClassifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[ErrorCategory]int)
	c.ring = nil
	c.disabled = make(map[string]bool)
	c.componentN = make(map[string]int)
	c.corrupted = make(map[string]bool)
}
