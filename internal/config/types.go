package config

type Config struct {
	Agent   AgentConfig    `json:"agent,omitempty"`
	Logging LoggingConfig  `json:"logging"`
	Storage *StorageConfig `json:"storage,omitempty"`

	// Jobs is the schedule, keyed by job name.
	Jobs map[string]JobConfig `json:"jobs"`
}

// AgentConfig controls the agent loop.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - tick_interval: "1s"
//   - drain_timeout: "30s"
type AgentConfig struct {
	TickInterval string `json:"tick_interval,omitempty"`
	DrainTimeout string `json:"drain_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the optional run-history persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./tickd_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// JobConfig describes one scheduled job. Exactly one trigger variant must
// be set: an interval (one of seconds/minutes/hours/days), a list of
// absolute timestamps (when), or a cron expression.
type JobConfig struct {
	Function  string         `json:"function"`
	Args      []any          `json:"args,omitempty"`
	Kwargs    map[string]any `json:"kwargs,omitempty"`
	Returners []string       `json:"returners,omitempty"`

	// Enabled is a pointer so "omitted" defaults to true while an
	// explicit false stays false.
	Enabled       *bool `json:"enabled,omitempty"`
	MaxConcurrent int   `json:"max_concurrent,omitempty"`

	// Interval trigger: count of the named unit.
	Seconds int `json:"seconds,omitempty"`
	Minutes int `json:"minutes,omitempty"`
	Hours   int `json:"hours,omitempty"`
	Days    int `json:"days,omitempty"`

	// SkipDuringRange suppresses interval fires inside a daily window.
	SkipDuringRange *RangeConfig `json:"skip_during_range,omitempty"`

	// When lists absolute fire instants, RFC 3339.
	When []string `json:"when,omitempty"`

	// Cron is a standard five-field expression.
	Cron string `json:"cron,omitempty"`
}

// RangeConfig is a daily time window. Start and End are clock times such
// as "14:00" or "2:30pm"; the window wraps midnight when end < start.
type RangeConfig struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
