// Package hookconfig loads and merges hook configuration from JSON, JSON5,
// and YAML files: $include resolution, environment-variable expansion, and
// deterministic multi-source merging, adapted from the teacher's
// internal/config/loader.go.
package hookconfig

// Hook is one configured action within a matcher group: either a shell
// command ("command") or a programmatically-registered callback
// ("callback" — the port's rename of the original's "python" type, since
// callbacks are never loaded from a file; see DESIGN.md).
type Hook struct {
	Type             string `json:"type" yaml:"type"`
	Command          string `json:"command" yaml:"command"`
	Timeout          int    `json:"timeout" yaml:"timeout"`
	WorkingDirectory string `json:"working_directory" yaml:"working_directory"`
}

// HookGroup binds a matcher pattern to the hooks that fire when it matches.
type HookGroup struct {
	Matcher string `json:"matcher" yaml:"matcher"`
	Hooks   []Hook `json:"hooks" yaml:"hooks"`
}

// Settings carries the hook system's tunables.
type Settings struct {
	DefaultTimeout              int  `json:"default_timeout" yaml:"default_timeout"`
	MaxConcurrentHooks          int  `json:"max_concurrent_hooks" yaml:"max_concurrent_hooks"`
	EnablePerformanceMonitoring bool `json:"enable_performance_monitoring" yaml:"enable_performance_monitoring"`
}

// MergedConfig is the fully merged, validated hook configuration.
type MergedConfig struct {
	Hooks    map[string][]HookGroup `json:"hooks" yaml:"hooks"`
	Settings Settings               `json:"hook_settings" yaml:"hook_settings"`
}

func defaultSettings() Settings {
	return Settings{DefaultTimeout: 60, MaxConcurrentHooks: 5}
}

// Source identifies one hook configuration file to load. Multiple sources
// merge in the order given: later hook lists are concatenated onto earlier
// ones; hook_settings keys are overwritten by later sources.
type Source struct {
	Path string
}
