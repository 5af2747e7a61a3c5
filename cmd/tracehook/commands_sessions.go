package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tracehook/tracehook/internal/telemetry/datastore"
)

// buildSessionsCmd creates the "sessions" command group for inspecting
// persisted telemetry sessions independent of a running serve process.
func buildSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect persisted telemetry sessions",
	}
	cmd.AddCommand(buildSessionsShowCmd())
	return cmd
}

func buildSessionsShowCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a persisted session's JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsShow(dir, args[0])
		},
	}
	cmd.Flags().StringVar(&dir, "directory", "", "session storage directory (defaults to ${HOME}/.cache/tracehook/sessions)")
	return cmd
}

func runSessionsShow(dir, sessionID string) error {
	store, err := datastore.NewStore(datastore.Config{Directory: dir}, nil)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Shutdown()

	session := store.Get(sessionID)
	if session == nil {
		return fmt.Errorf("session %s not found under %s", sessionID, store.Directory())
	}

	out, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
