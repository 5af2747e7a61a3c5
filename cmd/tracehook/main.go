// Package main provides the CLI entry point for tracehook: an
// observable-tool-invocation runtime combining a hook engine (pre/post/error
// interception around tool calls) with a telemetry pipeline (session →
// task → agent → tool/LLM event recording, persisted to disk and
// optionally forwarded over OTLP).
//
// # Basic usage
//
// Run as a long-lived process with hook and telemetry configuration:
//
//	tracehook serve --hook-config hooks.yaml --telemetry-config telemetry.yaml
//
// Manually fire a hook event (no hook configuration file is loaded for
// this command):
//
//	tracehook trigger PreToolUse my-tool --input '{"path":"README.md"}'
//
// Inspect registered-hook counts and error counters:
//
//	tracehook stats
//
// Inspect a persisted telemetry session:
//
//	tracehook sessions show <session-id> --directory ~/.cache/tracehook/sessions
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "tracehook",
		Short:        "tracehook - observable tool-invocation runtime",
		Long:         `tracehook runs a hook engine and telemetry pipeline around tool invocations in an AI-agent framework.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildTriggerCmd(),
		buildStatsCmd(),
		buildSessionsCmd(),
	)

	return rootCmd
}
