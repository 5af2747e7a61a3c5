package hookengine

import (
	"context"
	"testing"
	"time"
)

func newTestScriptRunner() *ScriptRunner {
	return NewScriptRunner(NewErrorClassifier(nil), nil)
}

func TestScriptRunner_ExitZeroAllows(t *testing.T) {
	r := newTestScriptRunner()
	hook := ScriptHook{Matcher: "*", Command: "true", Timeout: 2 * time.Second}
	res := r.Run(context.Background(), hook, &HookContext{ToolName: "FileWrite"})
	if !res.Success || res.Decision != "" {
		t.Errorf("expected bare success for exit 0, got %+v", res)
	}
}

func TestScriptRunner_ExitTwoDenies(t *testing.T) {
	r := newTestScriptRunner()
	hook := ScriptHook{Matcher: "*", Command: "sh -c \"echo not allowed 1>&2; exit 2\"", Timeout: 2 * time.Second}
	res := r.Run(context.Background(), hook, &HookContext{ToolName: "FileWrite"})
	if res.Decision != DecisionDeny {
		t.Errorf("expected deny for exit code 2, got %+v", res)
	}
}

func TestScriptRunner_JSONOutputDecision(t *testing.T) {
	r := newTestScriptRunner()
	hook := ScriptHook{
		Matcher: "*",
		Command: `sh -c "echo '{\"decision\":\"block\",\"reason\":\"needs review\"}'"`,
		Timeout: 2 * time.Second,
	}
	res := r.Run(context.Background(), hook, &HookContext{ToolName: "FileWrite"})
	if res.Decision != DecisionBlock || res.Reason != "needs review" {
		t.Errorf("expected parsed block decision, got %+v", res)
	}
}

func TestScriptRunner_TimeoutKillsProcessGroup(t *testing.T) {
	r := newTestScriptRunner()
	hook := ScriptHook{Matcher: "*", Command: "sleep 5", Timeout: 50 * time.Millisecond}
	start := time.Now()
	res := r.Run(context.Background(), hook, &HookContext{})
	if res.Success {
		t.Error("expected a timeout error result")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout handling took far longer than the configured timeout")
	}
}

func TestScriptRunner_EmptyCommandRejected(t *testing.T) {
	r := newTestScriptRunner()
	hook := ScriptHook{Matcher: "*", Command: "   ", Timeout: time.Second}
	res := r.Run(context.Background(), hook, &HookContext{})
	if res.Success {
		t.Error("expected rejection of an empty command")
	}
}

func TestShellSplit(t *testing.T) {
	fields, err := shellSplit(`echo "hello world" 'second arg'`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"echo", "hello world", "second arg"}
	if len(fields) != len(want) {
		t.Fatalf("expected %v, got %v", want, fields)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("field %d: expected %q, got %q", i, want[i], fields[i])
		}
	}
}
