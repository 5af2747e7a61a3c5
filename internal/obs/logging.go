// Package obs provides the structured logging and metrics shared by the
// hook engine and telemetry pipeline.
package obs

import (
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// LogConfig configures the package-level logger.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string

	// Format is "json" or "text". Defaults to "json".
	Format string

	// Output defaults to os.Stdout.
	Output io.Writer

	// AddSource includes file and line number in log records.
	AddSource bool
}

// defaultRedactPatterns covers the secret shapes most likely to show up in
// tool inputs or hook output: API keys, bearer tokens, and JWTs.
var defaultRedactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)[\s:=]+["']?([a-zA-Z0-9_\-]{16,})["']?`),
	regexp.MustCompile(`(?i)(bearer|token)[\s:]+([a-zA-Z0-9_\-\.]{16,})`),
	regexp.MustCompile(`(?i)(secret|password|passwd|pwd)[\s:=]+["']?([^\s"']{8,})["']?`),
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{95,}`),
	regexp.MustCompile(`sk-[a-zA-Z0-9]{48,}`),
	regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),
}

// Redact masks secret-shaped substrings of s, the way tool input is scrubbed
// before it reaches a log record.
func Redact(s string) string {
	for _, re := range defaultRedactPatterns {
		s = re.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

// NewLogger builds a *slog.Logger for a given subsystem component, matching
// the teacher's "one logger per component" convention
// (`.With("component", "hooks")` in the original hooks package).
func NewLogger(cfg LogConfig, component string) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindString {
				a.Value = slog.StringValue(Redact(a.Value.String()))
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}

	return slog.New(handler).With("component", component)
}
