package hookconfig

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

const includeKey = "$include"

// LoadAndMerge reads every source in order, validates each against the hook
// configuration schema, and merges them: hook lists concatenate, settings
// are overwritten by later sources.
func LoadAndMerge(sources []Source) (*MergedConfig, error) {
	merged := &MergedConfig{
		Hooks:    make(map[string][]HookGroup),
		Settings: defaultSettings(),
	}

	for _, src := range sources {
		raw, err := loadRaw(src.Path)
		if err != nil {
			return nil, fmt.Errorf("hookconfig: loading %s: %w", src.Path, err)
		}
		if err := Validate(raw); err != nil {
			return nil, fmt.Errorf("hookconfig: %s failed schema validation: %w", src.Path, err)
		}

		cfg, err := decodeRaw(raw)
		if err != nil {
			return nil, fmt.Errorf("hookconfig: decoding %s: %w", src.Path, err)
		}

		for event, groups := range cfg.Hooks {
			merged.Hooks[event] = append(merged.Hooks[event], groups...)
		}
		if cfg.Settings.DefaultTimeout > 0 {
			merged.Settings.DefaultTimeout = cfg.Settings.DefaultTimeout
		}
		if cfg.Settings.MaxConcurrentHooks > 0 {
			merged.Settings.MaxConcurrentHooks = cfg.Settings.MaxConcurrentHooks
		}
		if settings, ok := raw["hook_settings"].(map[string]any); ok {
			if _, set := settings["enable_performance_monitoring"]; set {
				merged.Settings.EnablePerformanceMonitoring = cfg.Settings.EnablePerformanceMonitoring
			}
		}
	}

	return merged, nil
}

// loadRaw reads a single file into a raw map, expanding ${VAR} references
// and resolving $include directives with cycle detection.
func loadRaw(path string) (map[string]any, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("hook config path is required")
	}
	seen := map[string]bool{}
	return loadRawRecursive(path, seen)
}

func loadRawRecursive(path string, seen map[string]bool) (map[string]any, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if seen[absPath] {
		return nil, fmt.Errorf("hook config include cycle detected at %s", absPath)
	}
	seen[absPath] = true
	defer delete(seen, absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	expanded := os.ExpandEnv(string(data))
	raw, err := parseRawBytes([]byte(expanded), absPath)
	if err != nil {
		return nil, err
	}

	includes, err := extractIncludes(raw)
	if err != nil {
		return nil, err
	}

	result := map[string]any{}
	if len(includes) > 0 {
		baseDir := filepath.Dir(absPath)
		for _, inc := range includes {
			if strings.TrimSpace(inc) == "" {
				continue
			}
			incPath := inc
			if !filepath.IsAbs(incPath) {
				incPath = filepath.Join(baseDir, incPath)
			}
			incRaw, err := loadRawRecursive(incPath, seen)
			if err != nil {
				return nil, err
			}
			result = mergeMaps(result, incRaw)
		}
	}

	result = mergeMaps(result, raw)
	return result, nil
}

func parseRawBytes(data []byte, pathHint string) (map[string]any, error) {
	format := strings.ToLower(filepath.Ext(pathHint))
	if format == ".json" || format == ".json5" {
		var raw map[string]any
		if err := json5.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		if raw == nil {
			raw = map[string]any{}
		}
		return raw, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("hook config: expected a single YAML document")
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

func extractIncludes(raw map[string]any) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	includeVal, ok := raw[includeKey]
	if !ok {
		return nil, nil
	}
	delete(raw, includeKey)

	switch typed := includeVal.(type) {
	case string:
		return []string{typed}, nil
	case []string:
		return typed, nil
	case []any:
		paths := make([]string, 0, len(typed))
		for _, entry := range typed {
			value, ok := entry.(string)
			if !ok {
				return nil, fmt.Errorf("$include entries must be strings")
			}
			paths = append(paths, value)
		}
		return paths, nil
	default:
		return nil, fmt.Errorf("$include must be a string or list of strings")
	}
}

func mergeMaps(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for key, value := range src {
		if valueMap, ok := value.(map[string]any); ok {
			if existing, ok := dst[key].(map[string]any); ok {
				dst[key] = mergeMaps(existing, valueMap)
				continue
			}
		}
		dst[key] = value
	}
	return dst
}

func decodeRaw(raw map[string]any) (*MergedConfig, error) {
	payload, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize hook config: %w", err)
	}
	cfg := &MergedConfig{Settings: defaultSettings()}
	decoder := yaml.NewDecoder(bytes.NewReader(payload))
	if err := decoder.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse hook config: %w", err)
	}
	return cfg, nil
}
