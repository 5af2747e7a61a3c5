package telemetryconfig

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"
)

// Load reads a single telemetry configuration file, expanding ${VAR}
// references before parsing. An empty path returns the zero-value
// (enabled, default storage location, no remote sink) rather than an
// error — telemetry config is optional, unlike hook config.
func Load(path string) (Config, error) {
	cfg := defaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("telemetryconfig: reading %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(data))

	if err := parseInto(&cfg, []byte(expanded), path); err != nil {
		return cfg, fmt.Errorf("telemetryconfig: parsing %s: %w", path, err)
	}
	return cfg, nil
}

func parseInto(cfg *Config, data []byte, pathHint string) error {
	format := strings.ToLower(filepath.Ext(pathHint))
	if format == ".json" || format == ".json5" {
		return json5.Unmarshal(data, cfg)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(cfg); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("expected a single YAML document")
	}
	return nil
}
