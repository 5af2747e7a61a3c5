package telemetry

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tracehook/tracehook/internal/telemetry/model"
)

// Runnable is anything that can be instrumented: an agent whose single
// entry point takes a task description and returns a result or an error.
type Runnable interface {
	Run(ctx context.Context, task string) (any, error)
}

// spanConfig collects the optional attributes telemetry_context accepted
// as keyword arguments in the teacher's original call-site.
type spanConfig struct {
	sopCategory string
	taskID      string
	taskType    string
	agentKind   model.AgentKind
}

// SpanOption configures the task/agent span WithTelemetry opens.
type SpanOption func(*spanConfig)

// WithSOPCategory tags the opened task with a standard-operating-procedure
// category, surfaced later in TaskExecution.SOPCategory.
func WithSOPCategory(category string) SpanOption {
	return func(c *spanConfig) { c.sopCategory = category }
}

// WithTaskID pins the task id instead of generating a fresh one.
func WithTaskID(id string) SpanOption {
	return func(c *spanConfig) { c.taskID = id }
}

// WithTaskType tags the opened task with a caller-defined type string.
func WithTaskType(taskType string) SpanOption {
	return func(c *spanConfig) { c.taskType = taskType }
}

// WithAgentKind classifies the wrapped agent; defaults to
// model.AgentKindManaged when omitted.
func WithAgentKind(kind model.AgentKind) SpanOption {
	return func(c *spanConfig) { c.agentKind = kind }
}

// instrumentedRunnable wraps an inner Runnable so every Run call is
// bracketed by an agent span, and tracks whether any call failed so the
// release closure can close the owning task with the right status.
type instrumentedRunnable struct {
	inner     Runnable
	collector *Collector
	agentName string
	taskID    string
	kind      model.AgentKind

	mu       sync.Mutex
	failed   bool
	lastErrs string
}

// Run wraps the inner call in start_agent_execution/end_agent_execution.
// If the inner call returns an error, the agent span ends as failed and
// the error is re-raised unchanged to the caller.
func (w *instrumentedRunnable) Run(ctx context.Context, task string) (any, error) {
	agentID := uuid.NewString()
	w.collector.StartAgentExecution(agentID, w.kind, w.agentName, w.taskID)

	result, err := w.inner.Run(ctx, task)
	if err != nil {
		w.mu.Lock()
		w.failed = true
		w.lastErrs = err.Error()
		w.mu.Unlock()
		w.collector.EndAgentExecution(agentID, model.StatusFailed, w.taskID, err.Error())
		return result, err
	}

	w.collector.EndAgentExecution(agentID, model.StatusCompleted, w.taskID, "")
	return result, nil
}

// WithTelemetry instruments agent under a newly started task named
// agentName, returning the instrumented Runnable plus a release closure
// the caller must defer. The release closure ends the task as failed (if
// any Run call on the wrapper returned an error) or completed, and is
// idiomatic Go's stand-in for the teacher's context-manager cleanup —
// there is no implicit destructor, so "guaranteed on every exit path"
// means "the caller defers this closure".
//
// When mgr is nil or telemetry is disabled, agent is returned unwrapped
// alongside a no-op release closure.
func WithTelemetry(mgr *Manager, agent Runnable, agentName string, opts ...SpanOption) (Runnable, func()) {
	if mgr == nil || !mgr.IsEnabled() {
		return agent, func() {}
	}

	cfg := &spanConfig{agentKind: model.AgentKindManaged}
	for _, opt := range opts {
		opt(cfg)
	}

	taskID := cfg.taskID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	collector := mgr.GetCollector()
	collector.StartTask(taskID, agentName, cfg.sopCategory, cfg.taskType)

	wrapped := &instrumentedRunnable{
		inner:     agent,
		collector: collector,
		agentName: agentName,
		taskID:    taskID,
		kind:      cfg.agentKind,
	}

	release := func() {
		wrapped.mu.Lock()
		failed, errMsg := wrapped.failed, wrapped.lastErrs
		wrapped.mu.Unlock()

		status := model.StatusCompleted
		if failed {
			status = model.StatusFailed
		}
		collector.EndTask(taskID, status, errMsg, nil)
	}

	return wrapped, release
}
