package hookengine

import (
	"context"
	"fmt"
	"log/slog"
)

// CallbackRunner invokes an in-process hook function with a per-call
// timeout. Each call gets its own goroutine rather than a shared worker
// pool: a goroutine that outlives its timeout is simply abandoned, its
// result discarded, which keeps slow or misbehaving callbacks isolated from
// each other (see DESIGN.md's note on the corresponding Open Question).
type CallbackRunner struct {
	classifier *ErrorClassifier
	logger     *slog.Logger
}

// NewCallbackRunner builds a runner that records failures through classifier.
func NewCallbackRunner(classifier *ErrorClassifier, logger *slog.Logger) *CallbackRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &CallbackRunner{classifier: classifier, logger: logger.With("component", "hookengine.callbackrunner")}
}

type callbackOutcome struct {
	result HookResult
}

// Run calls hook.Fn with hookCtx, returning its result or a classified
// error if it panics or exceeds hook.Timeout.
func (r *CallbackRunner) Run(ctx context.Context, hook CallbackHook, hookCtx *HookContext) HookResult {
	if err := hook.validate(); err != nil {
		r.classifier.HandleValidationError("callbackrunner", err.Error())
		return ErrorResult(err.Error())
	}

	callCtx, cancel := context.WithTimeout(ctx, hook.Timeout)
	defer cancel()

	done := make(chan callbackOutcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				severity := classifyPanic(rec)
				r.classifier.HandleCallbackError(hook.Matcher, fmt.Sprintf("callback panicked: %v", rec), rec)
				done <- callbackOutcome{result: ErrorResult(fmt.Sprintf("%s: %v", severity, rec))}
			}
		}()
		res := hook.Fn(hookCtx)
		done <- callbackOutcome{result: res}
	}()

	select {
	case outcome := <-done:
		return outcome.result
	case <-callCtx.Done():
		r.classifier.HandleTimeout(hook.Matcher, fmt.Sprintf("callback %q timed out", hook.Matcher))
		return ErrorResult(fmt.Sprintf("Timeout after %vs executing callback", hook.Timeout.Seconds()))
	}
}

// classifyPanic labels a recovered panic for logging purposes; the actual
// severity bucketing lives in the error classifier's category table.
func classifyPanic(rec any) string {
	if _, ok := rec.(error); ok {
		return "callback error"
	}
	return "callback panic"
}
