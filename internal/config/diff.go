package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	PipelinesChanged bool
	PipelineChanges  []PipelineDiff
	LogLevelChanged  bool
	NewLogLevel      LogLevel
}

// PipelineDiff describes what changed for a single pipeline between two configs.
type PipelineDiff struct {
	Name            string
	LanguageChanged bool
	RecordingChanged bool
	Added           bool
	Removed         bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart — backend
// selection is intentionally excluded since swapping a live ASR/TTS/
// Translator backend requires restarting the affected pipeline's modules.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	oldPipelines := make(map[string]*PipelineConfig, len(old.Pipelines))
	for i := range old.Pipelines {
		oldPipelines[old.Pipelines[i].Name] = &old.Pipelines[i]
	}
	newPipelines := make(map[string]*PipelineConfig, len(new.Pipelines))
	for i := range new.Pipelines {
		newPipelines[new.Pipelines[i].Name] = &new.Pipelines[i]
	}

	for name, oldP := range oldPipelines {
		newP, exists := newPipelines[name]
		if !exists {
			d.PipelineChanges = append(d.PipelineChanges, PipelineDiff{Name: name, Removed: true})
			d.PipelinesChanged = true
			continue
		}
		pd := diffPipeline(name, oldP, newP)
		if pd.LanguageChanged || pd.RecordingChanged {
			d.PipelineChanges = append(d.PipelineChanges, pd)
			d.PipelinesChanged = true
		}
	}

	for name := range newPipelines {
		if _, exists := oldPipelines[name]; !exists {
			d.PipelineChanges = append(d.PipelineChanges, PipelineDiff{Name: name, Added: true})
			d.PipelinesChanged = true
		}
	}

	return d
}

// diffPipeline compares two pipeline configs with the same name.
func diffPipeline(name string, old, new *PipelineConfig) PipelineDiff {
	pd := PipelineDiff{Name: name}

	if old.SourceLanguage != new.SourceLanguage || old.TargetLanguage != new.TargetLanguage {
		pd.LanguageChanged = true
	}
	if old.RecordTextTo != new.RecordTextTo || old.RecordActsTo != new.RecordActsTo {
		pd.RecordingChanged = true
	}

	return pd
}
