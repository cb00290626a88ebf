package config_test

import (
	"testing"

	"github.com/retico-go/retico/internal/config"
)

func TestDiff_LogLevelChange(t *testing.T) {
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Fatal("expected LogLevelChanged")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Fatalf("NewLogLevel = %q, want debug", d.NewLogLevel)
	}
}

func TestDiff_PipelineAddedRemovedChanged(t *testing.T) {
	old := &config.Config{Pipelines: []config.PipelineConfig{
		{Name: "p1", SourceLanguage: "en", TargetLanguage: "de"},
		{Name: "p2"},
	}}
	new := &config.Config{Pipelines: []config.PipelineConfig{
		{Name: "p1", SourceLanguage: "en", TargetLanguage: "fr"},
		{Name: "p3"},
	}}

	d := config.Diff(old, new)
	if !d.PipelinesChanged {
		t.Fatal("expected PipelinesChanged")
	}

	var sawAdded, sawRemoved, sawLangChange bool
	for _, pd := range d.PipelineChanges {
		switch {
		case pd.Name == "p3" && pd.Added:
			sawAdded = true
		case pd.Name == "p2" && pd.Removed:
			sawRemoved = true
		case pd.Name == "p1" && pd.LanguageChanged:
			sawLangChange = true
		}
	}
	if !sawAdded || !sawRemoved || !sawLangChange {
		t.Fatalf("missing expected diff entries: %+v", d.PipelineChanges)
	}
}

func TestDiff_NoChanges(t *testing.T) {
	cfg := &config.Config{Pipelines: []config.PipelineConfig{{Name: "p1"}}}
	d := config.Diff(cfg, cfg)
	if d.PipelinesChanged || d.LogLevelChanged {
		t.Fatalf("expected no changes, got %+v", d)
	}
}
