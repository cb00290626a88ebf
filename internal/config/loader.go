package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidBackendNames lists known backend names per backend kind.
// Used by [Validate] to warn about unrecognised backend names.
var ValidBackendNames = map[string][]string{
	"asr":       {"whisper"},
	"tts":       {},
	"translate": {"openai"},
	"platform":  {"discord"},
	"llm":       {"anyllm"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateBackendName("asr", cfg.Backends.ASR.Name)
	validateBackendName("tts", cfg.Backends.TTS.Name)
	validateBackendName("translate", cfg.Backends.Translate.Name)
	validateBackendName("platform", cfg.Backends.Platform.Name)

	if cfg.Backends.ASR.Name == "" && len(cfg.Pipelines) > 0 {
		slog.Warn("no ASR backend configured; pipelines will not be able to recognize incoming speech")
	}
	if cfg.Backends.TTS.Name == "" && len(cfg.Pipelines) > 0 {
		slog.Warn("no TTS backend configured; pipelines will not be able to synthesize dispatched speech")
	}

	pipelineNamesSeen := make(map[string]int, len(cfg.Pipelines))
	for i, p := range cfg.Pipelines {
		prefix := fmt.Sprintf("pipelines[%d]", i)
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := pipelineNamesSeen[p.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of pipelines[%d]", prefix, p.Name, prev))
			}
			pipelineNamesSeen[p.Name] = i
		}
		if p.SourceLanguage != "" && p.TargetLanguage != "" && p.SourceLanguage == p.TargetLanguage && cfg.Backends.Translate.Name != "" {
			slog.Warn("pipeline configures a translate backend but source and target languages are identical",
				"pipeline", p.Name)
		}
		switch p.DM.Kind {
		case "", "agenda", "ngram":
		case "llm":
			validateBackendName("llm", p.DM.LLM.Name)
			if p.DM.LLM.Name == "" {
				errs = append(errs, fmt.Errorf("%s.dm.llm.name is required when dm.kind is \"llm\"", prefix))
			}
		default:
			errs = append(errs, fmt.Errorf("%s.dm.kind %q is invalid; valid values: agenda, ngram, llm", prefix, p.DM.Kind))
		}
	}

	if cfg.Graph.PostgresDSN != "" && cfg.Graph.SnapshotPath != "" {
		slog.Warn("graph.snapshot_path and graph.postgres_dsn are both set; both stores will be written on shutdown")
	}

	return errors.Join(errs...)
}

// validateBackendName logs a warning if name is non-empty and not found in
// the [ValidBackendNames] list for the given kind.
func validateBackendName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidBackendNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown backend name — may be a typo or third-party backend",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
