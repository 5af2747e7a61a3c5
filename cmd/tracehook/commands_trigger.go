package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tracehook/tracehook/internal/hookengine"
)

// buildTriggerCmd creates the "trigger" command: manually fires one hook
// event against the process-wide hook manager and prints the aggregated
// result. That manager loads no hook configuration file, so only callbacks
// registered in this process run; with none registered the result is a
// bare success.
func buildTriggerCmd() *cobra.Command {
	var inputJSON string
	var responseJSON string

	cmd := &cobra.Command{
		Use:   "trigger <event> <tool>",
		Short: "Manually fire a hook event for a tool and print the aggregated result",
		Long: `Manually fire a hook event for a tool and print the aggregated result.

<event> must be one of PreToolUse, PostToolUse, PostToolError, UserPromptSubmit.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrigger(args[0], args[1], inputJSON, responseJSON)
		},
	}
	cmd.Flags().StringVar(&inputJSON, "input", "{}", "JSON object passed as tool_input")
	cmd.Flags().StringVar(&responseJSON, "response", "", "JSON object passed as tool_response (PostToolUse/PostToolError only)")
	return cmd
}

func runTrigger(eventName, toolName, inputJSON, responseJSON string) error {
	event := hookengine.EventKind(eventName)
	if !event.IsValid() {
		return fmt.Errorf("unknown event %q: must be one of PreToolUse, PostToolUse, PostToolError, UserPromptSubmit", eventName)
	}

	var input map[string]any
	if err := json.Unmarshal([]byte(inputJSON), &input); err != nil {
		return fmt.Errorf("--input: %w", err)
	}

	var response map[string]any
	if responseJSON != "" {
		if err := json.Unmarshal([]byte(responseJSON), &response); err != nil {
			return fmt.Errorf("--response: %w", err)
		}
	}

	result := hookengine.Global().Trigger(context.Background(), event, toolName, input, response)
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
