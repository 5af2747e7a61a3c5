package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tracehook/tracehook/internal/hookengine"
)

// buildStatsCmd creates the "stats" command: prints the process-wide hook
// manager's registered-hook counts per event, pattern cache size, and error
// summaries.
func buildStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print registered-hook counts and error statistics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
}

func runStats() error {
	stats := hookengine.Global().Statistics()
	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
