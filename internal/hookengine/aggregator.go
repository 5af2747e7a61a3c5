package hookengine

// Aggregate combines n hook results into one by a fixed precedence over
// decisions: deny > ask > block > allow, applied only over the successful
// subset. Aggregate is pure and referentially transparent.
func Aggregate(results []HookResult) HookResult {
	if len(results) == 0 {
		return SuccessResult()
	}

	var successful []HookResult
	for _, r := range results {
		if r.Success {
			successful = append(successful, r)
		}
	}

	if len(successful) == 0 {
		reasons := make([]string, len(results))
		for i, r := range results {
			reasons[i] = r.Reason
		}
		return ErrorResult("All hooks failed: " + joinNonEmpty(reasons, "; "))
	}

	if denies := byDecision(successful, DecisionDeny); len(denies) > 0 {
		return HookResult{
			Success:           true,
			Decision:          DecisionDeny,
			Reason:            "Denied by hooks: " + joinReasons(denies),
			ContinueExecution: false,
		}
	}

	if asks := byDecision(successful, DecisionAsk); len(asks) > 0 {
		return HookResult{
			Success:           true,
			Decision:          DecisionAsk,
			Reason:            "Confirmation required: " + joinReasons(asks),
			ContinueExecution: true,
		}
	}

	if blocks := byDecision(successful, DecisionBlock); len(blocks) > 0 {
		return HookResult{
			Success:           true,
			Decision:          DecisionBlock,
			Reason:            "Blocked with feedback: " + joinReasons(blocks),
			Output:            joinOutputs(blocks),
			ContinueExecution: true,
		}
	}

	contexts := make([]string, 0, len(successful))
	outputs := make([]string, 0, len(successful))
	suppress := false
	for _, r := range successful {
		if r.AdditionalContext != "" {
			contexts = append(contexts, r.AdditionalContext)
		}
		if r.Output != "" {
			outputs = append(outputs, r.Output)
		}
		suppress = suppress || r.SuppressOutput
	}

	return HookResult{
		Success:           true,
		Decision:          DecisionAllow,
		AdditionalContext: joinNonEmpty(contexts, "; "),
		SuppressOutput:    suppress,
		Output:            joinNonEmpty(outputs, "; "),
		ContinueExecution: true,
	}
}

func byDecision(results []HookResult, d Decision) []HookResult {
	var out []HookResult
	for _, r := range results {
		if r.Decision == d {
			out = append(out, r)
		}
	}
	return out
}

func joinReasons(results []HookResult) string {
	reasons := make([]string, len(results))
	for i, r := range results {
		reasons[i] = r.Reason
	}
	return joinNonEmpty(reasons, "; ")
}

func joinOutputs(results []HookResult) string {
	outputs := make([]string, len(results))
	for i, r := range results {
		outputs[i] = r.Output
	}
	return joinNonEmpty(outputs, "; ")
}
