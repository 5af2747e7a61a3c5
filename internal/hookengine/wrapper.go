package hookengine

import (
	"context"
	"fmt"
)

// Tool is any value the runtime treats as a tool: an Execute method taking
// and returning a map of opaque JSON-shaped values. The name used for
// matching is not part of the interface; InvokeTool takes it separately.
// Accepting this interface (rather than a
// concrete type) lets call sites pass function-literal adapters while
// keeping the wrapper agnostic of any particular tool's Go type.
type Tool interface {
	Execute(ctx context.Context, input map[string]any) (map[string]any, error)
}

// ToolFunc adapts a plain function to the Tool interface.
type ToolFunc func(ctx context.Context, input map[string]any) (map[string]any, error)

// Execute implements Tool.
func (f ToolFunc) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	return f(ctx, input)
}

// InvokeTool wraps one call to tool named toolName with pre/post/error
// hooks, in the order: PRE_TOOL_USE, the tool body, then POST_TOOL_USE (or
// POST_TOOL_ERROR on failure).
//
// A denied or ask-blocked pre-hook result short-circuits: the tool never
// runs and the structured blocked response is returned instead. A tool
// error is never swallowed — it propagates to the caller unchanged, after
// POST_TOOL_ERROR hooks have been given a chance to observe it.
func InvokeTool(ctx context.Context, manager *Manager, toolName string, input map[string]any, tool Tool) (map[string]any, error) {
	preResult := manager.Trigger(ctx, PreToolUse, toolName, input, nil)
	if preResult.ShouldBlock() {
		return preResult.BlockedResponse(), nil
	}
	preHookExecuted := !preResult.NoHooksExecuted

	raw, err := tool.Execute(ctx, input)
	if err != nil {
		manager.Trigger(ctx, PostToolError, toolName, input, map[string]any{
			"error":      err.Error(),
			"error_type": errorType(err),
		})
		return nil, err
	}

	postResult := manager.Trigger(ctx, PostToolUse, toolName, input, map[string]any{"result": raw})
	postHookExecuted := !postResult.NoHooksExecuted

	if preHookExecuted || postHookExecuted {
		return postResult.Merge(raw), nil
	}
	return raw, nil
}

func errorType(err error) string {
	return fmt.Sprintf("%T", err)
}
