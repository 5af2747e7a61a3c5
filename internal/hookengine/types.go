package hookengine

import (
	"fmt"
	"strings"
	"time"
)

// EventKind identifies the point in a tool call's lifecycle a hook fires at.
type EventKind string

const (
	PreToolUse       EventKind = "PreToolUse"
	PostToolUse      EventKind = "PostToolUse"
	PostToolError    EventKind = "PostToolError"
	UserPromptSubmit EventKind = "UserPromptSubmit"
)

// IsValid reports whether k is a member of the event enumeration.
func (k EventKind) IsValid() bool {
	switch k {
	case PreToolUse, PostToolUse, PostToolError, UserPromptSubmit:
		return true
	default:
		return false
	}
}

// Decision is the disposition a hook expresses about a tool call.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
	DecisionAsk   Decision = "ask"
	DecisionBlock Decision = "block"
)

// HookContext is the immutable record passed to every hook.
type HookContext struct {
	SessionID    string         `json:"session_id"`
	Cwd          string         `json:"cwd"`
	Event        EventKind      `json:"hook_event_name"`
	ToolName     string         `json:"tool_name"`
	ToolInput    map[string]any `json:"tool_input"`
	ToolResponse map[string]any `json:"tool_response,omitempty"`
}

// HookResult is the outcome of running one hook, or the aggregate of many.
type HookResult struct {
	Success           bool     `json:"success"`
	Decision          Decision `json:"decision,omitempty"`
	Reason            string   `json:"reason,omitempty"`
	AdditionalContext string   `json:"additional_context,omitempty"`
	SuppressOutput    bool     `json:"suppress_output"`
	ContinueExecution bool     `json:"continue_execution"`
	Output            string   `json:"output,omitempty"`

	// NoHooksExecuted resolves the spec's `_no_hooks_executed` open question:
	// it is exported rather than name-mangled private state.
	NoHooksExecuted bool `json:"-"`
}

// SuccessResult returns a bare successful allow.
func SuccessResult() HookResult {
	return HookResult{Success: true, ContinueExecution: true}
}

// ErrorResult returns a failed result carrying reason as the error message.
// Per the aggregation rules a failed result with no explicit decision is
// still treated as blocking by ShouldBlock.
func ErrorResult(reason string) HookResult {
	return HookResult{Success: false, Reason: reason, ContinueExecution: false}
}

// DenyResult returns a denying result; deny always stops execution.
func DenyResult(reason string) HookResult {
	return HookResult{Success: true, Decision: DecisionDeny, Reason: reason, ContinueExecution: false}
}

// AskResult returns an ask result; it blocks but keeps ContinueExecution
// true per the spec's explicit instruction (resolved Open Question #4 —
// ShouldBlock still reports true for an ask decision).
func AskResult(reason string) HookResult {
	return HookResult{Success: true, Decision: DecisionAsk, Reason: reason, ContinueExecution: true}
}

// BlockResult returns feedback that lets the tool run but surfaces output.
func BlockResult(reason, output string) HookResult {
	return HookResult{Success: true, Decision: DecisionBlock, Reason: reason, Output: output, ContinueExecution: true}
}

// AllowResult returns an explicit allow carrying optional additional context.
func AllowResult(additionalContext string, suppressOutput bool, output string) HookResult {
	return HookResult{
		Success:           true,
		Decision:          DecisionAllow,
		AdditionalContext: additionalContext,
		SuppressOutput:    suppressOutput,
		Output:            output,
		ContinueExecution: true,
	}
}

// ShouldBlock reports whether this result should prevent the tool from
// running (or, for POST hooks, is treated as blocking feedback).
func (r HookResult) ShouldBlock() bool {
	if r.Decision == DecisionDeny || r.Decision == DecisionAsk {
		return true
	}
	if !r.ContinueExecution {
		return true
	}
	if !r.Success && r.Decision != DecisionAllow {
		return true
	}
	return false
}

// BlockedResponseType classifies why a call was blocked, for the structured
// response returned to the caller in place of running the tool.
type BlockedResponseType string

const (
	BlockedDenied               BlockedResponseType = "denied"
	BlockedConfirmationRequired BlockedResponseType = "confirmation_required"
	BlockedHookError            BlockedResponseType = "hook_error"
	BlockedGeneric              BlockedResponseType = "blocked"
)

// BlockedResponse builds the structured map returned instead of running the
// tool when ShouldBlock() is true. The reason default and message prefix are
// per-type, matching get_blocked_response's four branches exactly (deny,
// ask, failed-hook, generic block) rather than one undifferentiated message.
func (r HookResult) BlockedResponse() map[string]any {
	var typ BlockedResponseType
	var reason, message string

	switch {
	case r.Decision == DecisionDeny:
		typ = BlockedDenied
		reason = orDefault(r.Reason, "Tool execution denied by hook")
		message = "Tool execution was denied: " + orDefault(r.Reason, "No reason provided")
	case r.Decision == DecisionAsk:
		typ = BlockedConfirmationRequired
		reason = orDefault(r.Reason, "User confirmation required")
		message = "Confirm tool execution: " + orDefault(r.Reason, "Hook requires user approval")
	case !r.Success:
		typ = BlockedHookError
		reason = orDefault(r.Reason, "Hook execution failed")
		message = "Hook execution failed: " + orDefault(r.Reason, "Unknown error")
	default:
		typ = BlockedGeneric
		reason = orDefault(r.Reason, "Tool execution blocked by hook")
		message = "Tool execution blocked: " + orDefault(r.Reason, "No reason provided")
	}

	return map[string]any{
		"blocked":            true,
		"decision":           string(r.Decision),
		"reason":             reason,
		"output":             r.Output,
		"additional_context": r.AdditionalContext,
		"type":               string(typ),
		"message":            message,
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Merge folds this result's feedback into a tool's own result map.
func (r HookResult) Merge(toolResult map[string]any) map[string]any {
	merged := make(map[string]any, len(toolResult)+2)
	for k, v := range toolResult {
		merged[k] = v
	}

	feedback := map[string]any{
		"decision": string(r.Decision),
		"reason":   r.Reason,
		"output":   r.Output,
		"success":  r.Success,
	}
	if r.AdditionalContext != "" {
		feedback["additional_context"] = r.AdditionalContext
	}
	merged["hook_feedback"] = feedback

	if r.Decision == DecisionBlock {
		merged["hook_blocked"] = true
	}
	if r.Decision == DecisionAllow && r.AdditionalContext != "" {
		merged["agent_context_injection"] = r.AdditionalContext
	}
	if r.SuppressOutput {
		merged["original_result"] = toolResult
		merged["original_tool_output"] = toolResult
		merged["result"] = orDefault(r.Output, "Output suppressed by hook")
	}

	return merged
}

// ScriptHook runs an external process to decide on a tool call.
type ScriptHook struct {
	Matcher          string
	Command          string
	Timeout          time.Duration
	WorkingDirectory string
}

func (h ScriptHook) validate() error {
	if h.Matcher == "" {
		return fmt.Errorf("script hook: empty matcher")
	}
	if strings.TrimSpace(h.Command) == "" {
		return fmt.Errorf("script hook: empty command")
	}
	if h.Timeout <= 0 {
		return fmt.Errorf("script hook: timeout must be positive")
	}
	return nil
}

// CallbackFunc is an in-process hook function.
type CallbackFunc func(ctx *HookContext) HookResult

// CallbackHook runs an in-process function to decide on a tool call.
type CallbackHook struct {
	ID      string
	Matcher string
	Fn      CallbackFunc
	Timeout time.Duration
}

func (h CallbackHook) validate() error {
	if h.Matcher == "" {
		return fmt.Errorf("callback hook: empty matcher")
	}
	if h.Fn == nil {
		return fmt.Errorf("callback hook: nil function reference")
	}
	if h.Timeout <= 0 {
		return fmt.Errorf("callback hook: timeout must be positive")
	}
	return nil
}

// BadRegistration is returned when a hook fails validation at registration.
type BadRegistration struct {
	Reason string
}

func (e *BadRegistration) Error() string {
	return "bad hook registration: " + e.Reason
}

func joinNonEmpty(parts []string, sep string) string {
	filtered := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			filtered = append(filtered, p)
		}
	}
	return strings.Join(filtered, sep)
}
