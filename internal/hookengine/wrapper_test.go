package hookengine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInvokeTool_RunsWithNoHooks(t *testing.T) {
	m := NewManager(nil, nil)
	tool := ToolFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
		return map[string]any{"ok": true}, nil
	})

	out, err := InvokeTool(context.Background(), m, "FileWrite", nil, tool)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["ok"] != true {
		t.Errorf("expected raw tool result passthrough, got %v", out)
	}
}

func TestInvokeTool_DeniedNeverRunsTool(t *testing.T) {
	m := NewManager(nil, nil)
	_, _ = m.RegisterCallback(PreToolUse, "*", func(ctx *HookContext) HookResult {
		return DenyResult("nope")
	}, time.Second)

	ran := false
	tool := ToolFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
		ran = true
		return nil, nil
	})

	out, err := InvokeTool(context.Background(), m, "FileWrite", nil, tool)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ran {
		t.Error("tool must not run when pre-hook denies")
	}
	if out["blocked"] != true {
		t.Errorf("expected blocked response, got %v", out)
	}
}

func TestInvokeTool_ToolErrorPropagatesAndFiresPostError(t *testing.T) {
	m := NewManager(nil, nil)
	sawError := make(chan string, 1)
	_, _ = m.RegisterCallback(PostToolError, "*", func(ctx *HookContext) HookResult {
		if ctx.ToolResponse != nil {
			sawError <- ctx.ToolResponse["error"].(string)
		}
		return SuccessResult()
	}, time.Second)

	boom := errors.New("disk full")
	tool := ToolFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
		return nil, boom
	})

	_, err := InvokeTool(context.Background(), m, "FileWrite", nil, tool)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the original error to propagate unchanged, got %v", err)
	}

	select {
	case msg := <-sawError:
		if msg != "disk full" {
			t.Errorf("unexpected error message in post-error hook: %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("post-error hook was never invoked")
	}
}

func TestInvokeTool_PostHookMergesFeedback(t *testing.T) {
	m := NewManager(nil, nil)
	_, _ = m.RegisterCallback(PostToolUse, "*", func(ctx *HookContext) HookResult {
		return BlockResult("needs review", "flagged")
	}, time.Second)

	tool := ToolFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
		return map[string]any{"written": true}, nil
	})

	out, err := InvokeTool(context.Background(), m, "FileWrite", nil, tool)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["written"] != true {
		t.Errorf("expected original tool result preserved, got %v", out)
	}
	if out["hook_blocked"] != true {
		t.Errorf("expected hook_blocked set for a block decision, got %v", out)
	}
}
