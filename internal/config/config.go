// Package config provides the configuration schema, loader, and backend
// registry for the retico runtime.
package config

// Config is the root configuration structure for a retico server process.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Backends  BackendsConfig   `yaml:"backends"`
	Pipelines []PipelineConfig `yaml:"pipelines"`
	Graph     GraphConfig      `yaml:"graph"`
}

// ServerConfig holds network and logging settings for the retico server.
type ServerConfig struct {
	// ListenAddr is the TCP address the metrics/health server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Valid values: "debug", "info", "warn", "error".
	LogLevel LogLevel `yaml:"log_level"`
}

// LogLevel is a validated logging verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is one of the known log levels.
func (l LogLevel) IsValid() bool {
	switch l {
	case "", LogDebug, LogInfo, LogWarn, LogError:
		return true
	default:
		return false
	}
}

// BackendsConfig declares which backend implementation to use for each
// external contract named in [github.com/retico-go/retico/pkg/backend].
// Each field selects a named backend registered in the [Registry].
type BackendsConfig struct {
	ASR       BackendEntry `yaml:"asr"`
	TTS       BackendEntry `yaml:"tts"`
	Translate BackendEntry `yaml:"translate"`
	Platform  BackendEntry `yaml:"platform"`
}

// BackendEntry is the common configuration block shared by all backend types.
// The Name field is used to look up the constructor in the [Registry].
type BackendEntry struct {
	// Name selects the registered backend implementation (e.g., "whisper", "openai", "discord").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the backend's API, if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default API endpoint.
	// Leave empty to use the backend's built-in default.
	BaseURL string `yaml:"base_url"`

	// ModelPath selects a specific model or model file (e.g. a whisper.cpp
	// .bin path, or an OpenAI model name).
	ModelPath string `yaml:"model_path"`

	// Options holds backend-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// PipelineConfig describes one two-speaker dialogue pipeline instance: the
// languages it bridges and where its recorders persist their output.
// It corresponds to one instantiation of the wiring described in
// SPEC_FULL.md §5 (the two-agent dialogue simulation).
type PipelineConfig struct {
	// Name is a unique human-readable identifier for this pipeline (used in logs
	// and as the default graph snapshot name).
	Name string `yaml:"name"`

	// SourceLanguage and TargetLanguage are BCP-47 tags passed to the
	// Translator backend for this pipeline's two speakers.
	SourceLanguage string `yaml:"source_language"`
	TargetLanguage string `yaml:"target_language"`

	// FirstSpeaker selects which side of the turn-taking state machine starts
	// with the floor. true means this pipeline's local agent speaks first.
	FirstSpeaker bool `yaml:"first_speaker"`

	// RecordTextTo, if non-empty, is the file path passed to
	// [github.com/retico-go/retico/pkg/text.NewRecorder] for this pipeline.
	RecordTextTo string `yaml:"record_text_to"`

	// RecordActsTo, if non-empty, is the file path passed to the dialogue-act
	// recorder for this pipeline.
	RecordActsTo string `yaml:"record_acts_to"`

	// DM selects the inner dialogue-manager adapter (pkg/dm) driving both
	// sides of this pipeline.
	DM DMConfig `yaml:"dm"`
}

// DMConfig selects and configures one of the pkg/dm adapters for a
// PipelineConfig.
type DMConfig struct {
	// Kind is "agenda", "ngram", or "llm". Defaults to "agenda" with an empty
	// step list (an inert manager useful for network/backend smoke testing)
	// when left blank.
	Kind string `yaml:"kind"`

	// LLM configures the backend used when Kind is "llm" — Name selects a
	// registered LLM backend (e.g. "anyllm"), matching the Registry's
	// BackendEntry-based Create* convention.
	LLM BackendEntry `yaml:"llm"`

	// SystemPrompt is passed to pkg/dm/llmdm.New when Kind is "llm".
	SystemPrompt string `yaml:"system_prompt"`
}

// GraphConfig controls how a running pipeline's module graph is persisted
// for later inspection or replay, via [github.com/retico-go/retico/pkg/graph]
// or [github.com/retico-go/retico/pkg/graph/pgstore].
type GraphConfig struct {
	// SnapshotPath, if non-empty, is a file path that [graph.Save] writes to
	// on shutdown. Mutually exclusive with PostgresDSN in practice, though
	// both may be set.
	SnapshotPath string `yaml:"snapshot_path"`

	// PostgresDSN, if non-empty, is the PostgreSQL connection string used by
	// [pgstore.New] to persist graph snapshots under SnapshotName.
	PostgresDSN string `yaml:"postgres_dsn"`

	// SnapshotName names the snapshot row written to Postgres. Defaults to
	// the pipeline name if empty.
	SnapshotName string `yaml:"snapshot_name"`
}
