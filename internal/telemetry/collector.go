package telemetry

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tracehook/tracehook/internal/telemetry/model"
)

// Collector is the single thread-safe buffer of the current session. Every
// operation is idempotent-safe against "already active" / "not active"
// conditions: it logs a warning and no-ops rather than returning an error,
// matching the spec's "telemetry errors never propagate to tool code" rule.
type Collector struct {
	mu     sync.Mutex
	logger *slog.Logger

	session model.TelemetrySession

	activeTasks  map[string]*model.TaskExecution
	activeAgents map[string]*activeAgent
	activeTools  map[string]*activeTool

	// taskOrder preserves the order tasks were started in, so "most
	// recently started active task" attachment has a well-defined answer.
	taskOrder []string
}

type activeAgent struct {
	taskID string
	agent  model.AgentExecution
}

type activeTool struct {
	agentID string
	taskID  string
	tool    model.ToolExecution
}

// NewCollector builds a collector for a freshly started session.
func NewCollector(sessionID string, env model.Environment, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		logger: logger.With("component", "telemetry.collector"),
		session: model.TelemetrySession{
			SessionID: sessionID,
			StartTime: time.Now(),
			Env:       env,
		},
		activeTasks:  make(map[string]*model.TaskExecution),
		activeAgents: make(map[string]*activeAgent),
		activeTools:  make(map[string]*activeTool),
	}
}

// noopCollector returns a fully functional but unpersisted Collector: it
// behaves exactly like a normal one in memory, but is never handed to a
// data store, so nothing it records is ever written to disk. Used by
// Manager.GetCollector when telemetry is disabled or the store failed to
// initialize, so callers never have to branch on whether telemetry is on.
func noopCollector() *Collector {
	return NewCollector("", model.Environment{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// mostRecentActiveTaskLocked returns the id of the most recently started
// still-active task, or "" if none. Caller must hold c.mu.
func (c *Collector) mostRecentActiveTaskLocked() string {
	for i := len(c.taskOrder) - 1; i >= 0; i-- {
		if _, ok := c.activeTasks[c.taskOrder[i]]; ok {
			return c.taskOrder[i]
		}
	}
	return ""
}

// StartTask begins a new task in IN_PROGRESS.
func (c *Collector) StartTask(id, description, sopCategory, taskType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.activeTasks[id]; exists {
		c.logger.Warn("task already active, ignoring StartTask", "task_id", id)
		return
	}
	c.activeTasks[id] = &model.TaskExecution{
		ID:          id,
		Description: description,
		StartTime:   time.Now(),
		Status:      model.StatusInProgress,
		SOPCategory: sopCategory,
		TaskType:    taskType,
	}
	c.taskOrder = append(c.taskOrder, id)
}

// EndTask closes out task id: sets its end time, status, optional error and
// code-change metrics, and moves it from active into the session.
func (c *Collector) EndTask(id string, status model.Status, errMsg string, changes *model.CodeChangeMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	task, ok := c.activeTasks[id]
	if !ok {
		c.logger.Warn("task not active, ignoring EndTask", "task_id", id)
		return
	}
	now := time.Now()
	task.EndTime = &now
	task.Status = status
	task.Error = errMsg
	task.CodeChanges = changes

	delete(c.activeTasks, id)
	c.session.AddTask(*task)
}

// StartAgentExecution begins an agent span, attached to taskID when given,
// else to the most recently started active task.
func (c *Collector) StartAgentExecution(id string, kind model.AgentKind, name, taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.activeAgents[id]; exists {
		c.logger.Warn("agent already active, ignoring StartAgentExecution", "agent_id", id)
		return
	}
	if taskID == "" {
		taskID = c.mostRecentActiveTaskLocked()
	}
	c.activeAgents[id] = &activeAgent{
		taskID: taskID,
		agent: model.AgentExecution{
			Kind:      kind,
			Name:      name,
			StartTime: time.Now(),
			Status:    model.StatusInProgress,
		},
	}
}

// EndAgentExecution closes agent id, attaching the completed record to its
// owning task (named at Start time, or the most-recently-active fallback).
func (c *Collector) EndAgentExecution(id string, status model.Status, taskID, errMsg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	active, ok := c.activeAgents[id]
	if !ok {
		c.logger.Warn("agent not active, ignoring EndAgentExecution", "agent_id", id)
		return
	}
	now := time.Now()
	active.agent.EndTime = &now
	active.agent.Duration = now.Sub(active.agent.StartTime).Seconds()
	active.agent.Status = status
	active.agent.Error = errMsg

	owner := taskID
	if owner == "" {
		owner = active.taskID
	}
	if owner == "" {
		owner = c.mostRecentActiveTaskLocked()
	}
	if task, ok := c.activeTasks[owner]; ok {
		task.Agents = append(task.Agents, active.agent)
	} else {
		c.logger.Warn("owning task no longer active, dropping agent execution", "agent_id", id)
	}
	delete(c.activeAgents, id)
}

// StartToolExecution begins a tool span, attached to agentID when given.
func (c *Collector) StartToolExecution(id, name, agentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.activeTools[id]; exists {
		c.logger.Warn("tool already active, ignoring StartToolExecution", "tool_call_id", id)
		return
	}
	c.activeTools[id] = &activeTool{
		agentID: agentID,
		taskID:  c.mostRecentActiveTaskLocked(),
		tool: model.ToolExecution{
			Name:      name,
			StartTime: time.Now(),
			Status:    model.StatusInProgress,
		},
	}
}

// EndToolExecution closes tool id and attaches the record to the named
// agent if given, else to the owning task's direct tool list.
func (c *Collector) EndToolExecution(id string, status model.Status, agentID, errMsg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	active, ok := c.activeTools[id]
	if !ok {
		c.logger.Warn("tool not active, ignoring EndToolExecution", "tool_call_id", id)
		return
	}
	now := time.Now()
	active.tool.EndTime = &now
	active.tool.Duration = now.Sub(active.tool.StartTime).Seconds()
	active.tool.Status = status
	active.tool.Error = errMsg

	owner := agentID
	if owner == "" {
		owner = active.agentID
	}
	if owner != "" {
		if agent, ok := c.activeAgents[owner]; ok {
			agent.agent.Tools = append(agent.agent.Tools, active.tool)
			delete(c.activeTools, id)
			return
		}
	}

	taskOwner := active.taskID
	if taskOwner == "" {
		taskOwner = c.mostRecentActiveTaskLocked()
	}
	if task, ok := c.activeTasks[taskOwner]; ok {
		task.Tools = append(task.Tools, active.tool)
	} else {
		c.logger.Warn("owning task no longer active, dropping tool execution", "tool_call_id", id)
	}
	delete(c.activeTools, id)
}

// RecordLLMCall attaches call by explicit agentID, else explicit taskID,
// else the most-recently-started active task's direct LLM calls.
func (c *Collector) RecordLLMCall(call model.LLMCall, agentID, taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if agentID != "" {
		if agent, ok := c.activeAgents[agentID]; ok {
			agent.agent.LLMCalls = append(agent.agent.LLMCalls, call)
			return
		}
	}
	owner := taskID
	if owner == "" {
		owner = c.mostRecentActiveTaskLocked()
	}
	if task, ok := c.activeTasks[owner]; ok {
		task.LLMCalls = append(task.LLMCalls, call)
		return
	}
	c.logger.Warn("no active task or agent to attach LLM call to, dropping", "agent_id", agentID, "task_id", taskID)
}

// RecordCodeChanges sets code-change metrics on the active task.
func (c *Collector) RecordCodeChanges(taskID string, changes model.CodeChangeMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	task, ok := c.activeTasks[taskID]
	if !ok {
		c.logger.Warn("task not active, ignoring RecordCodeChanges", "task_id", taskID)
		return
	}
	task.CodeChanges = &changes
}

// StartSupervisorTask starts a task and a supervisor-kind agent for it in
// one call, returning the synthesized agent execution id.
func (c *Collector) StartSupervisorTask(taskID, description, agentName string) (agentID string) {
	c.StartTask(taskID, description, "", "")
	agentID = taskID + ":supervisor"
	c.StartAgentExecution(agentID, model.AgentKindSupervisor, agentName, taskID)
	return agentID
}

// EndSupervisorTask ends the supervisor agent then the task itself.
func (c *Collector) EndSupervisorTask(taskID, agentID string, status model.Status, errMsg string) {
	c.EndAgentExecution(agentID, status, taskID, errMsg)
	c.EndTask(taskID, status, errMsg, nil)
}

// FinalizeSession ends every still-active task/agent/tool with status
// partial, sets the session end time, and returns the session. The caller
// must not mutate the collector further afterward.
func (c *Collector) FinalizeSession() model.TelemetrySession {
	c.mu.Lock()

	for id, active := range c.activeTools {
		now := time.Now()
		active.tool.EndTime = &now
		active.tool.Duration = now.Sub(active.tool.StartTime).Seconds()
		active.tool.Status = model.StatusPartial
		if active.agentID != "" {
			if agent, ok := c.activeAgents[active.agentID]; ok {
				agent.agent.Tools = append(agent.agent.Tools, active.tool)
			}
		} else if task, ok := c.activeTasks[active.taskID]; ok {
			task.Tools = append(task.Tools, active.tool)
		}
		delete(c.activeTools, id)
	}

	for id, active := range c.activeAgents {
		now := time.Now()
		active.agent.EndTime = &now
		active.agent.Duration = now.Sub(active.agent.StartTime).Seconds()
		active.agent.Status = model.StatusPartial
		owner := active.taskID
		if owner == "" {
			owner = c.mostRecentActiveTaskLocked()
		}
		if task, ok := c.activeTasks[owner]; ok {
			task.Agents = append(task.Agents, active.agent)
		}
		delete(c.activeAgents, id)
	}

	for _, id := range append([]string(nil), c.taskOrder...) {
		if task, ok := c.activeTasks[id]; ok {
			now := time.Now()
			task.EndTime = &now
			task.Status = model.StatusPartial
			c.session.AddTask(*task)
			delete(c.activeTasks, id)
		}
	}

	now := time.Now()
	c.session.EndTime = &now
	session := c.session
	c.mu.Unlock()
	return session
}

// MarkInProgressInterrupted closes every still-active tool and agent span as
// partial (same as FinalizeSession), then promotes every still-active task
// to interrupted with a fixed message — used by the force-flush-on-interrupt
// path (see datastore.Store.ForceFlushAll).
func (c *Collector) MarkInProgressInterrupted() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, active := range c.activeTools {
		now := time.Now()
		active.tool.EndTime = &now
		active.tool.Duration = now.Sub(active.tool.StartTime).Seconds()
		active.tool.Status = model.StatusPartial
		if active.agentID != "" {
			if agent, ok := c.activeAgents[active.agentID]; ok {
				agent.agent.Tools = append(agent.agent.Tools, active.tool)
			}
		} else if task, ok := c.activeTasks[active.taskID]; ok {
			task.Tools = append(task.Tools, active.tool)
		}
		delete(c.activeTools, id)
	}

	for id, active := range c.activeAgents {
		now := time.Now()
		active.agent.EndTime = &now
		active.agent.Duration = now.Sub(active.agent.StartTime).Seconds()
		active.agent.Status = model.StatusPartial
		owner := active.taskID
		if owner == "" {
			owner = c.mostRecentActiveTaskLocked()
		}
		if task, ok := c.activeTasks[owner]; ok {
			task.Agents = append(task.Agents, active.agent)
		}
		delete(c.activeAgents, id)
	}

	for _, id := range append([]string(nil), c.taskOrder...) {
		task, ok := c.activeTasks[id]
		if !ok {
			continue
		}
		now := time.Now()
		task.EndTime = &now
		task.Status = model.StatusInterrupted
		task.Error = "Session interrupted"
		c.session.AddTask(*task)
		delete(c.activeTasks, id)
	}
}

// CurrentSession returns a copy of the session as currently buffered,
// without ending any active spans.
func (c *Collector) CurrentSession() model.TelemetrySession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}
