package hookengine

import "testing"

func TestErrorClassifier_RecordsAndSummarizes(t *testing.T) {
	c := NewErrorClassifier(nil)
	c.HandleTimeout("scriptrunner", "timed out")
	c.HandleScriptError("scriptrunner", "bad exit")

	summary := c.Summary()
	if summary.CountsByCategory[CategoryTimeout] != 1 {
		t.Errorf("expected 1 timeout, got %d", summary.CountsByCategory[CategoryTimeout])
	}
	if summary.CountsByCategory[CategoryScriptError] != 1 {
		t.Errorf("expected 1 script error, got %d", summary.CountsByCategory[CategoryScriptError])
	}
	if len(summary.Recent) != 2 {
		t.Errorf("expected 2 recent entries, got %d", len(summary.Recent))
	}
}

func TestErrorClassifier_DisablesComponentAfterThreshold(t *testing.T) {
	c := NewErrorClassifier(nil)
	for i := 0; i < maxComponentErrors; i++ {
		c.HandleScriptError("flaky-hook", "failed again")
	}
	if !c.IsDisabled("flaky-hook") {
		t.Error("expected component to be disabled after reaching the error threshold")
	}
}

func TestErrorClassifier_RingBufferBounded(t *testing.T) {
	c := NewErrorClassifier(nil)
	for i := 0; i < maxRecentErrors+10; i++ {
		c.HandleSystemError("x", "err")
	}
	summary := c.Summary()
	if len(summary.Recent) != maxRecentErrors {
		t.Errorf("expected ring buffer capped at %d, got %d", maxRecentErrors, len(summary.Recent))
	}
}

func TestErrorClassifier_Reset(t *testing.T) {
	c := NewErrorClassifier(nil)
	c.HandleTimeout("x", "err")
	c.Reset()
	summary := c.Summary()
	if len(summary.Recent) != 0 || len(summary.CountsByCategory) != 0 {
		t.Error("expected Reset to clear all classifier state")
	}
}

func TestErrorClassifier_CorruptedFileTracking(t *testing.T) {
	c := NewErrorClassifier(nil)
	if c.IsCorrupted("session.json") {
		t.Error("nothing should be marked corrupted yet")
	}
	c.MarkCorrupted("session.json")
	if !c.IsCorrupted("session.json") {
		t.Error("expected session.json to be marked corrupted")
	}
}
