package hookengine

import "testing"

func TestAggregate_NoResults(t *testing.T) {
	r := Aggregate(nil)
	if !r.Success || !r.ContinueExecution {
		t.Errorf("expected bare success for empty result set, got %+v", r)
	}
}

func TestAggregate_AllFailed(t *testing.T) {
	r := Aggregate([]HookResult{ErrorResult("boom"), ErrorResult("bust")})
	if r.Success {
		t.Error("expected failure when every hook failed")
	}
	if r.Reason != "All hooks failed: boom; bust" {
		t.Errorf("unexpected reason: %q", r.Reason)
	}
}

func TestAggregate_DenyWins(t *testing.T) {
	r := Aggregate([]HookResult{
		AllowResult("", false, ""),
		DenyResult("not allowed"),
		BlockResult("feedback", "out"),
	})
	if r.Decision != DecisionDeny {
		t.Errorf("expected deny to take precedence, got %q", r.Decision)
	}
	if r.ContinueExecution {
		t.Error("deny must set ContinueExecution false")
	}
}

func TestAggregate_AskBeatsBlock(t *testing.T) {
	r := Aggregate([]HookResult{
		BlockResult("feedback", "out"),
		AskResult("need confirmation"),
	})
	if r.Decision != DecisionAsk {
		t.Errorf("expected ask to beat block, got %q", r.Decision)
	}
	if !r.ContinueExecution {
		t.Error("ask keeps ContinueExecution true per spec")
	}
	if !r.ShouldBlock() {
		t.Error("ask must still report ShouldBlock true")
	}
}

func TestAggregate_BlockBeatsAllow(t *testing.T) {
	r := Aggregate([]HookResult{
		AllowResult("ctx", false, ""),
		BlockResult("feedback", "out"),
	})
	if r.Decision != DecisionBlock {
		t.Errorf("expected block to beat allow, got %q", r.Decision)
	}
}

func TestAggregate_AllowJoinsContext(t *testing.T) {
	r := Aggregate([]HookResult{
		AllowResult("first", false, "out1"),
		AllowResult("second", true, "out2"),
	})
	if r.Decision != DecisionAllow {
		t.Errorf("expected allow, got %q", r.Decision)
	}
	if r.AdditionalContext != "first; second" {
		t.Errorf("unexpected joined context: %q", r.AdditionalContext)
	}
	if !r.SuppressOutput {
		t.Error("expected SuppressOutput true if any result suppresses")
	}
}

func TestAggregate_FailedResultsIgnoredWhenSomeSucceed(t *testing.T) {
	r := Aggregate([]HookResult{
		ErrorResult("ignored"),
		AllowResult("", false, ""),
	})
	if r.Decision != DecisionAllow {
		t.Errorf("expected the successful result to win, got %q", r.Decision)
	}
}
