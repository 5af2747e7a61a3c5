package hookengine

import (
	"context"
	"testing"
	"time"
)

func TestManager_TriggerWithNoHooksReportsNoHooksExecuted(t *testing.T) {
	m := NewManager(nil, nil)
	r := m.Trigger(context.Background(), PreToolUse, "FileWrite", map[string]any{"path": "a"}, nil)
	if !r.NoHooksExecuted {
		t.Error("expected NoHooksExecuted when nothing is registered")
	}
	if !r.Success {
		t.Error("expected success with zero hooks")
	}
}

func TestManager_RegisterCallbackAndTrigger(t *testing.T) {
	m := NewManager(nil, nil)
	seen := make(chan string, 1)
	_, err := m.RegisterCallback(PreToolUse, "*", func(ctx *HookContext) HookResult {
		seen <- ctx.ToolName
		return AllowResult("looks fine", false, "")
	}, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := m.Trigger(context.Background(), PreToolUse, "FileWrite", nil, nil)
	if r.NoHooksExecuted {
		t.Error("expected the registered callback to run")
	}
	if r.Decision != DecisionAllow {
		t.Errorf("expected allow, got %q", r.Decision)
	}

	select {
	case name := <-seen:
		if name != "FileWrite" {
			t.Errorf("expected callback to see tool name FileWrite, got %q", name)
		}
	case <-time.After(time.Second):
		t.Fatal("callback was never invoked")
	}
}

func TestManager_CallbackDenyBlocks(t *testing.T) {
	m := NewManager(nil, nil)
	_, _ = m.RegisterCallback(PreToolUse, "*", func(ctx *HookContext) HookResult {
		return DenyResult("not on my watch")
	}, time.Second)

	r := m.Trigger(context.Background(), PreToolUse, "FileWrite", nil, nil)
	if !r.ShouldBlock() {
		t.Error("expected deny to block the call")
	}
	resp := r.BlockedResponse()
	if resp["type"] != string(BlockedDenied) {
		t.Errorf("expected denied blocked response, got %v", resp["type"])
	}
}

func TestManager_ReloadConfigurationPreservesCallbacks(t *testing.T) {
	m := NewManager(nil, nil)
	id, _ := m.RegisterCallback(PreToolUse, "*", func(ctx *HookContext) HookResult { return SuccessResult() }, time.Second)
	if id == "" {
		t.Fatal("expected a registration id")
	}

	if err := m.ReloadConfiguration(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := m.Statistics()
	if stats.CountsByEvent[PreToolUse].Callback != 1 {
		t.Errorf("expected callback hook preserved across reload, got %d", stats.CountsByEvent[PreToolUse].Callback)
	}
}

func TestManager_GlobalSingletonResets(t *testing.T) {
	ResetInstance()
	a := Global()
	b := Global()
	if a != b {
		t.Error("expected Global() to return the same instance")
	}
	ResetInstance()
	c := Global()
	if c == a {
		t.Error("expected ResetInstance to force a fresh instance")
	}
}
