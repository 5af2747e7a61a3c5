// Package model defines the telemetry data model shared by the collector,
// the on-disk datastore, and the optional remote sink: session → task →
// agent → tool/LLM event, adapted from the teacher's internal/audit event
// taxonomy and internal/usage token accounting.
package model

import "time"

// Status is the lifecycle state of a task, agent, or tool span.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusPartial    Status = "partial"
	StatusInterrupted Status = "interrupted"
)

// AgentKind classifies the role an AgentExecution played.
type AgentKind string

const (
	AgentKindSupervisor  AgentKind = "supervisor"
	AgentKindMicro       AgentKind = "micro"
	AgentKindToolCalling AgentKind = "tool-calling"
	AgentKindCode        AgentKind = "code"
	AgentKindManaged     AgentKind = "managed"
)

// TokenUsage tracks prompt/completion/total token counts, optionally broken
// down by model, and an optional cost estimate.
type TokenUsage struct {
	PromptTokens     int                `json:"prompt_tokens"`
	CompletionTokens int                `json:"completion_tokens"`
	TotalTokens      int                `json:"total_tokens"`
	ByModel          map[string]int     `json:"by_model,omitempty"`
	CostEstimate     *float64           `json:"cost_estimate,omitempty"`
}

// Add sums other into u in place: prompt/completion/total counts, the
// per-model breakdown (merged, not replaced), and cost estimates when both
// sides provide one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens

	if len(other.ByModel) > 0 {
		if u.ByModel == nil {
			u.ByModel = make(map[string]int, len(other.ByModel))
		}
		for model, count := range other.ByModel {
			u.ByModel[model] += count
		}
	}

	if other.CostEstimate != nil {
		sum := other.CostEstimate
		if u.CostEstimate != nil {
			total := *u.CostEstimate + *other.CostEstimate
			sum = &total
		}
		u.CostEstimate = sum
	}
}

// LLMCall records one model invocation.
type LLMCall struct {
	Model            string     `json:"model"`
	PromptTokens     int        `json:"prompt_tokens"`
	CompletionTokens int        `json:"completion_tokens"`
	TotalTokens      int        `json:"total_tokens"`
	Duration         float64    `json:"duration_seconds"`
	Timestamp        time.Time  `json:"timestamp"`
	CostEstimate     *float64   `json:"cost_estimate,omitempty"`
}

// totalTokens returns TotalTokens, or prompt+completion when the caller
// didn't supply it directly; the field itself is left unchanged.
func (c *LLMCall) totalTokens() int {
	if c.TotalTokens != 0 {
		return c.TotalTokens
	}
	return c.PromptTokens + c.CompletionTokens
}

// ToolExecution records one direct tool invocation (outside an agent frame,
// or inside one — both use this same record shape).
type ToolExecution struct {
	Name      string     `json:"name"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Duration  float64    `json:"duration_seconds"`
	Status    Status     `json:"status"`
	Error     string     `json:"error,omitempty"`
}

// AgentExecution records one agent activation and everything it did.
type AgentExecution struct {
	Kind      AgentKind        `json:"kind"`
	Name      string           `json:"name"`
	StartTime time.Time        `json:"start_time"`
	EndTime   *time.Time       `json:"end_time,omitempty"`
	Duration  float64          `json:"duration_seconds"`
	Status    Status           `json:"status"`
	LLMCalls  []LLMCall        `json:"llm_calls,omitempty"`
	Tools     []ToolExecution  `json:"tool_executions,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// TotalTokens sums this agent's own LLM-call tokens.
func (a *AgentExecution) TotalTokens() int {
	total := 0
	for _, call := range a.LLMCalls {
		total += call.totalTokens()
	}
	return total
}

// CodeChangeMetrics summarizes code edits a task made, if any.
type CodeChangeMetrics struct {
	FilesChanged int `json:"files_changed"`
	LinesAdded   int `json:"lines_added"`
	LinesRemoved int `json:"lines_removed"`
}

// TaskExecution is the top-level unit of work within a session: it owns
// zero or more agent executions plus any tool/LLM activity that happened
// directly inside the task frame (outside any agent).
type TaskExecution struct {
	ID          string              `json:"id"`
	Description string              `json:"description"`
	StartTime   time.Time           `json:"start_time"`
	EndTime     *time.Time          `json:"end_time,omitempty"`
	Status      Status              `json:"status"`
	SOPCategory string              `json:"sop_category,omitempty"`
	TaskType    string              `json:"task_type,omitempty"`
	Agents      []AgentExecution    `json:"agent_executions,omitempty"`
	Tools       []ToolExecution     `json:"tool_executions,omitempty"`
	LLMCalls    []LLMCall           `json:"llm_calls,omitempty"`
	CodeChanges *CodeChangeMetrics  `json:"code_changes,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// TotalTokens sums the task's own direct LLM calls plus every agent's total.
func (t *TaskExecution) TotalTokens() int {
	total := 0
	for _, call := range t.LLMCalls {
		total += call.totalTokens()
	}
	for i := range t.Agents {
		total += t.Agents[i].TotalTokens()
	}
	return total
}

// Environment captures the execution environment once at session start.
type Environment struct {
	OSType      string            `json:"os_type"`
	OSVersion   string            `json:"os_version"`
	GoVersion   string            `json:"runtime_version"`
	Cwd         string            `json:"cwd"`
	ProjectRoot string            `json:"project_root,omitempty"`
	User        string            `json:"user,omitempty"`
	Timezone    string            `json:"timezone"`
	Env         map[string]string `json:"env,omitempty"`
}

// TelemetrySession is the single top-level record persisted per process
// lifetime (or per explicit new session).
type TelemetrySession struct {
	SessionID string          `json:"session_id"`
	StartTime time.Time       `json:"start_time"`
	EndTime   *time.Time      `json:"end_time,omitempty"`
	Env       Environment     `json:"environment"`
	Tasks     []TaskExecution `json:"tasks"`
	Tokens    TokenUsage      `json:"token_usage"`
	Duration  float64         `json:"duration_seconds"`
}

// AddTask appends t, rolls its token usage into the session total, and (if
// t reports an end time) adds its duration to the session total.
func (s *TelemetrySession) AddTask(t TaskExecution) {
	s.Tasks = append(s.Tasks, t)

	usage := TokenUsage{TotalTokens: t.TotalTokens()}
	s.Tokens.Add(usage)

	if t.EndTime != nil {
		s.Duration += t.EndTime.Sub(t.StartTime).Seconds()
	}
}
