package telemetryconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Disabled {
		t.Errorf("expected telemetry enabled by default")
	}
}

func TestLoad_YAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("TRACEHOOK_TELEMETRY_DIR", "/var/lib/tracehook")

	dir := t.TempDir()
	path := filepath.Join(dir, "telemetry.yaml")
	content := `
storage:
  directory: ${TRACEHOOK_TELEMETRY_DIR}
  app: tracehook
  max_age_days: 14
remote:
  endpoint: collector.internal:4317
  insecure: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Directory != "/var/lib/tracehook" {
		t.Errorf("expected expanded directory, got %q", cfg.Storage.Directory)
	}
	if cfg.Storage.MaxAgeDays != 14 {
		t.Errorf("expected max_age_days 14, got %d", cfg.Storage.MaxAgeDays)
	}
	if cfg.Remote.Endpoint != "collector.internal:4317" || !cfg.Remote.Insecure {
		t.Errorf("expected remote config to decode, got %+v", cfg.Remote)
	}
}

func TestLoad_JSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "telemetry.json")
	content := `{"disabled": true, "storage": {"app": "ci"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Disabled {
		t.Errorf("expected disabled=true to decode")
	}
	if cfg.Storage.App != "ci" {
		t.Errorf("expected app 'ci', got %q", cfg.Storage.App)
	}
}
