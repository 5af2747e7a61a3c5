// Package telemetryconfig loads telemetry runtime configuration from a
// JSON, JSON5, or YAML file, with ${VAR} environment-variable expansion,
// mirroring internal/hookconfig's loading shape at a smaller scale (no
// $include — one telemetry config file is the expected deployment, unlike
// hook configuration which composes from multiple sources by convention).
package telemetryconfig

// Storage controls where and how long session files are kept.
type Storage struct {
	Directory  string `json:"directory" yaml:"directory"`
	App        string `json:"app" yaml:"app"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// Remote controls the optional OTLP remote sink.
type Remote struct {
	Endpoint       string `json:"endpoint" yaml:"endpoint"`
	Insecure       bool   `json:"insecure" yaml:"insecure"`
	MaxSendRetries int    `json:"max_send_retries" yaml:"max_send_retries"`
}

// Config is the full telemetry configuration file shape.
type Config struct {
	Disabled bool    `json:"disabled" yaml:"disabled"`
	Storage  Storage `json:"storage" yaml:"storage"`
	Remote   Remote  `json:"remote" yaml:"remote"`
}

func defaultConfig() Config {
	return Config{}
}
