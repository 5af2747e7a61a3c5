package hookengine

import "testing"

// Exercises Scenario A's exact input verbatim (deny with reason "no writes")
// to pin the spec-mandated message prefix.
func TestHookResult_BlockedResponse_DenyMessageFormat(t *testing.T) {
	r := DenyResult("no writes")
	resp := r.BlockedResponse()

	if resp["type"] != string(BlockedDenied) {
		t.Errorf("type = %v, want %v", resp["type"], BlockedDenied)
	}
	if resp["reason"] != "no writes" {
		t.Errorf("reason = %v, want %q", resp["reason"], "no writes")
	}
	if resp["message"] != "Tool execution was denied: no writes" {
		t.Errorf("message = %v, want %q", resp["message"], "Tool execution was denied: no writes")
	}
}

func TestHookResult_BlockedResponse_DenyDefaultReason(t *testing.T) {
	r := DenyResult("")
	resp := r.BlockedResponse()

	if resp["reason"] != "Tool execution denied by hook" {
		t.Errorf("reason = %v, want default", resp["reason"])
	}
	if resp["message"] != "Tool execution was denied: No reason provided" {
		t.Errorf("message = %v, want default", resp["message"])
	}
}

func TestHookResult_BlockedResponse_Ask(t *testing.T) {
	r := AskResult("need approval")
	resp := r.BlockedResponse()

	if resp["type"] != string(BlockedConfirmationRequired) {
		t.Errorf("type = %v, want %v", resp["type"], BlockedConfirmationRequired)
	}
	if resp["message"] != "Confirm tool execution: need approval" {
		t.Errorf("message = %v", resp["message"])
	}
}

func TestHookResult_BlockedResponse_AskDefault(t *testing.T) {
	r := AskResult("")
	resp := r.BlockedResponse()

	if resp["reason"] != "User confirmation required" {
		t.Errorf("reason = %v", resp["reason"])
	}
	if resp["message"] != "Confirm tool execution: Hook requires user approval" {
		t.Errorf("message = %v", resp["message"])
	}
}

func TestHookResult_BlockedResponse_HookError(t *testing.T) {
	r := ErrorResult("boom")
	resp := r.BlockedResponse()

	if resp["type"] != string(BlockedHookError) {
		t.Errorf("type = %v, want %v", resp["type"], BlockedHookError)
	}
	if resp["message"] != "Hook execution failed: boom" {
		t.Errorf("message = %v", resp["message"])
	}
}

func TestHookResult_BlockedResponse_HookErrorDefault(t *testing.T) {
	r := ErrorResult("")
	resp := r.BlockedResponse()

	if resp["reason"] != "Hook execution failed" {
		t.Errorf("reason = %v", resp["reason"])
	}
	if resp["message"] != "Hook execution failed: Unknown error" {
		t.Errorf("message = %v", resp["message"])
	}
}

func TestHookResult_BlockedResponse_GenericBlock(t *testing.T) {
	// A blocking result that is neither deny/ask nor failed: e.g. success
	// with ContinueExecution=false.
	r := HookResult{Success: true, ContinueExecution: false, Reason: "paused"}
	resp := r.BlockedResponse()

	if resp["type"] != string(BlockedGeneric) {
		t.Errorf("type = %v, want %v", resp["type"], BlockedGeneric)
	}
	if resp["message"] != "Tool execution blocked: paused" {
		t.Errorf("message = %v", resp["message"])
	}
}

func TestHookResult_Merge_SuppressOutputReplacesResultWithHookOutput(t *testing.T) {
	r := HookResult{Success: true, Decision: DecisionAllow, SuppressOutput: true, Output: "summary only"}
	toolResult := map[string]any{"result": "the full raw output", "written": true}

	merged := r.Merge(toolResult)

	if merged["result"] != "summary only" {
		t.Errorf("result = %v, want hook output to replace it", merged["result"])
	}
	if merged["original_result"] == nil {
		t.Error("expected original_result to preserve the tool's own result")
	}
}

func TestHookResult_Merge_SuppressOutputFallsBackWhenHookOutputEmpty(t *testing.T) {
	r := HookResult{Success: true, Decision: DecisionAllow, SuppressOutput: true}
	toolResult := map[string]any{"result": "secret"}

	merged := r.Merge(toolResult)

	if merged["result"] != "Output suppressed by hook" {
		t.Errorf("result = %v, want placeholder", merged["result"])
	}
}
