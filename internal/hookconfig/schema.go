package hookconfig

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaDoc describes the hook configuration shape documented in the
// specification: a map of event name to matcher groups, plus hook_settings.
const schemaDoc = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "hooks": {
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["matcher", "hooks"],
          "properties": {
            "matcher": { "type": "string", "minLength": 1 },
            "hooks": {
              "type": "array",
              "minItems": 1,
              "items": {
                "type": "object",
                "required": ["type"],
                "properties": {
                  "type": { "type": "string", "enum": ["command", "callback", "python"] },
                  "command": { "type": "string" },
                  "timeout": { "type": "integer", "minimum": 1 },
                  "working_directory": { "type": "string" }
                }
              }
            }
          }
        }
      }
    },
    "hook_settings": {
      "type": "object",
      "properties": {
        "default_timeout": { "type": "integer", "minimum": 1 },
        "max_concurrent_hooks": { "type": "integer", "minimum": 1 },
        "enable_performance_monitoring": { "type": "boolean" }
      }
    }
  }
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("hookconfig.json", strings.NewReader(schemaDoc)); err != nil {
			compileErr = err
			return
		}
		compiled, compileErr = compiler.Compile("hookconfig.json")
	})
	return compiled, compileErr
}

// Validate checks raw against the hook configuration schema. A schema
// violation is a configuration_error, classified and logged by callers —
// never a panic.
func Validate(raw map[string]any) error {
	s, err := schema()
	if err != nil {
		return fmt.Errorf("hookconfig: schema compile failed: %w", err)
	}

	// jsonschema validates against plain any values produced by
	// encoding/json (float64 numbers, string keys); round-trip through
	// JSON so YAML- or JSON5-sourced maps normalize the same way.
	buf, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("hookconfig: re-encoding config for validation: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(buf, &normalized); err != nil {
		return fmt.Errorf("hookconfig: re-decoding config for validation: %w", err)
	}

	if err := s.Validate(normalized); err != nil {
		return err
	}

	if hooksVal, ok := raw["hooks"]; ok {
		hooksMap, ok := hooksVal.(map[string]any)
		if ok {
			for eventName := range hooksMap {
				if !validEventNames[eventName] {
					return fmt.Errorf("unknown event name %q", eventName)
				}
			}
		}
	}
	return nil
}

var validEventNames = map[string]bool{
	"PreToolUse":       true,
	"PostToolUse":      true,
	"PostToolError":    true,
	"UserPromptSubmit": true,
}
