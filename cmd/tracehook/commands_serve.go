package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tracehook/tracehook/internal/hookconfig"
	"github.com/tracehook/tracehook/internal/hookengine"
	"github.com/tracehook/tracehook/internal/obs"
	"github.com/tracehook/tracehook/internal/telemetry"
	"github.com/tracehook/tracehook/internal/telemetry/remote"
	"github.com/tracehook/tracehook/internal/telemetryconfig"
)

// buildServeCmd creates the "serve" command: the long-lived process that
// owns a hook manager and a telemetry manager built from the given
// configuration. Both are constructed with NewManager, so they are
// separate from the hookengine.Global() and telemetry.Global() singletons.
func buildServeCmd() *cobra.Command {
	var hookConfigPath string
	var telemetryConfigPath string

	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the hook engine and telemetry pipeline as a long-lived process",
		Long: `Run the hook engine and telemetry pipeline as a long-lived process.

Loads hook configuration (JSON/JSON5/YAML) and telemetry configuration,
installs the telemetry manager's signal handlers, and blocks until
interrupted, terminated, or hung up. On every exit path the current
telemetry session is flushed to disk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(hookConfigPath, telemetryConfigPath, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&hookConfigPath, "hook-config", "", "path to a hook configuration file (JSON/JSON5/YAML)")
	cmd.Flags().StringVar(&telemetryConfigPath, "telemetry-config", "", "path to a telemetry configuration file (JSON/JSON5/YAML)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve Prometheus /metrics on (empty disables it)")
	return cmd
}

func runServe(hookConfigPath, telemetryConfigPath, metricsAddr string) error {
	telCfg, err := telemetryconfig.Load(telemetryConfigPath)
	if err != nil {
		return err
	}

	metrics := obs.NewMetrics()
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
		defer server.Close()
	}

	var sources []hookconfig.Source
	if hookConfigPath != "" {
		sources = append(sources, hookconfig.Source{Path: hookConfigPath})
	}
	hookMgr := hookengine.NewManager(nil, nil, hookengine.WithConfigSources(sources...), hookengine.WithMetrics(metrics))
	if err := hookMgr.LoadConfiguration(); err != nil {
		slog.Warn("hook configuration failed to load, continuing with zero hooks", "error", err)
	}

	watcher, err := hookconfig.WatchSources(sources, func() {
		if err := hookMgr.ReloadConfiguration(); err != nil {
			slog.Warn("hook configuration reload failed", "error", err)
		} else {
			slog.Info("hook configuration reloaded")
		}
	}, nil)
	if err != nil {
		slog.Warn("failed to watch hook configuration for changes", "error", err)
	}
	defer watcher.Close()

	telMgr := telemetry.NewManager(telemetry.Config{
		Disabled:   telCfg.Disabled,
		Directory:  telCfg.Storage.Directory,
		App:        telCfg.Storage.App,
		MaxAgeDays: telCfg.Storage.MaxAgeDays,
	}, nil)
	if err := telMgr.Initialize(); err != nil {
		slog.Warn("telemetry initialization failed, continuing without persistence", "error", err)
	}
	telMgr.SetMetrics(metrics)
	defer telMgr.Shutdown()

	if telCfg.Remote.Endpoint != "" {
		sink, shutdownSink := remote.New(remote.Config{
			App:            telCfg.Storage.App,
			Endpoint:       telCfg.Remote.Endpoint,
			Insecure:       telCfg.Remote.Insecure,
			MaxSendRetries: telCfg.Remote.MaxSendRetries,
		}, nil)
		telMgr.SetRemoteSink(sink)
		defer shutdownSink(context.Background())
	}

	slog.Info("tracehook serving", "session_id", telMgr.SessionID(), "hook_session_id", hookMgr.SessionID())

	// Blocks forever: the telemetry manager's own signal handler (installed
	// in Initialize) is what actually ends the process, by restoring the
	// signal's default disposition and re-raising it to itself.
	select {}
}
