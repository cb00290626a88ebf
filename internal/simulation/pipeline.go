package simulation

import (
	"context"
	"fmt"

	"github.com/retico-go/retico/pkg/audio"
	"github.com/retico-go/retico/pkg/backend"
	"github.com/retico-go/retico/pkg/dialogue"
	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/module"
	"github.com/retico-go/retico/pkg/text"
	"github.com/retico-go/retico/pkg/turntaking"
)

// AgentConfig describes one side of a two-agent dialogue simulation: the
// backends and inner dialogue manager driving it, the audio format its
// dispatcher paces out, and optional recording sinks.
type AgentConfig struct {
	// Name identifies this agent in module ids and log output, e.g. "agent-a".
	Name string

	// FirstSpeaker marks this side as the one that opens the dialogue.
	FirstSpeaker bool

	DM  turntaking.InnerDialogueManager
	ASR backend.ASR
	TTS backend.TTS

	// NLUNext supplies the act and concepts understood from each recognized
	// utterance — see [NLU].
	NLUNext func() (act string, concepts map[string]string)

	// NLGTemplates and NLGDefault configure [NLG]'s act-to-text rendering.
	NLGTemplates map[string]string
	NLGDefault   string

	Rate       int
	SampleSize int
	Channels   int
	ChunkSize  int
	Speed      float64
	Seed       int64

	// RecordActsPath and RecordTextPath, if non-empty, wire a
	// [dialogue.Recorder] over this agent's dispatchable acts and a
	// [text.Recorder] over its generated text.
	RecordActsPath string
	RecordTextPath string
}

// AgentPipeline wires one agent's full chain: ASR → NLU → turn-taking DM →
// NLG → TTS → dispatcher, plus the EoT predictor fed by the far end's
// incoming audio. It is a Go analogue of one side of
// original_source/retico/headless.py's module graph.
type AgentPipeline struct {
	name string

	asr        *module.General
	asrBase    *module.Base
	nlu        *module.General
	nluBase    *module.Base
	eot        *module.General
	eotBase    *module.Base
	manager    *turntaking.Manager
	managerBase *module.Base
	nlg        *module.General
	nlgBase    *module.Base
	tts        *module.General
	ttsBase    *module.Base
	dispatcher *audio.Dispatcher
	dispatcherBase *module.Base

	actsRecorder *dialogue.Recorder
	actsSink     *module.Consuming
	textRecorder *text.Recorder
	textSink     *module.Consuming
}

// NewAgentPipeline constructs an AgentPipeline from cfg. The pipeline is
// internally wired (ASR→NLU→manager, manager→NLG→TTS→dispatcher, and the
// dispatcher's own output feeding the manager's self-tracking input); it is
// not yet connected to the other agent — callers use [Session], or
// [AgentPipeline.DispatcherOutput] and [AgentPipeline.SubscribeIncomingAudio]
// directly, to wire the network link between two pipelines.
func NewAgentPipeline(cfg AgentConfig) (*AgentPipeline, error) {
	p := &AgentPipeline{name: cfg.Name}

	p.asrBase = module.NewBase(iu.ModuleID(cfg.Name+"-asr"), []iu.Kind{iu.KindDispatchedAudio}, []iu.Kind{iu.KindSpeechRecognition})
	p.asr = module.NewGeneral(p.asrBase, backend.NewASRModule(p.asrBase, cfg.ASR, cfg.Name+"-asr"))

	p.nluBase = module.NewBase(iu.ModuleID(cfg.Name+"-nlu"), []iu.Kind{iu.KindSpeechRecognition}, []iu.Kind{iu.KindDialogueAct})
	p.nlu = module.NewGeneral(p.nluBase, NewNLU(p.nluBase, cfg.NLUNext))
	p.nluBase.Subscribe(p.asrBase)

	p.eotBase = module.NewBase(iu.ModuleID(cfg.Name+"-eot"), []iu.Kind{iu.KindDispatchedAudio}, []iu.Kind{iu.KindEndOfTurn})
	p.eot = module.NewGeneral(p.eotBase, NewEoT(p.eotBase))

	p.managerBase = module.NewBase(iu.ModuleID(cfg.Name+"-dm"),
		[]iu.Kind{iu.KindDialogueAct, iu.KindDispatchedAudio, iu.KindEndOfTurn},
		[]iu.Kind{iu.KindDispatchableAct})
	p.manager = turntaking.NewManager(p.managerBase, cfg.DM, cfg.FirstSpeaker, cfg.Seed)
	p.managerBase.Subscribe(p.nluBase)
	p.managerBase.Subscribe(p.eotBase)

	p.nlgBase = module.NewBase(iu.ModuleID(cfg.Name+"-nlg"), []iu.Kind{iu.KindDispatchableAct}, []iu.Kind{iu.KindGeneratedText})
	p.nlg = module.NewGeneral(p.nlgBase, NewNLG(p.nlgBase, cfg.NLGTemplates, cfg.NLGDefault))
	p.nlgBase.Subscribe(p.managerBase)

	p.ttsBase = module.NewBase(iu.ModuleID(cfg.Name+"-tts"), []iu.Kind{iu.KindGeneratedText}, []iu.Kind{iu.KindSpeech})
	p.tts = module.NewGeneral(p.ttsBase, backend.NewTTSModule(p.ttsBase, cfg.TTS, cfg.Name+"-tts"))
	p.ttsBase.Subscribe(p.nlgBase)

	p.dispatcherBase = module.NewBase(iu.ModuleID(cfg.Name+"-dispatcher"), []iu.Kind{iu.KindSpeech}, []iu.Kind{iu.KindDispatchedAudio})
	p.dispatcher = audio.NewDispatcher(p.dispatcherBase, cfg.ChunkSize, cfg.Rate, cfg.SampleSize, cfg.Channels, cfg.Speed, false)
	p.dispatcherBase.Subscribe(p.ttsBase)

	// The manager tracks its own dispatch progress via its own outgoing
	// audio, matching spec.md §4.5's self DialogueState.
	p.managerBase.Subscribe(p.dispatcherBase)

	if cfg.RecordActsPath != "" {
		rec, err := dialogue.NewRecorder(cfg.RecordActsPath)
		if err != nil {
			return nil, fmt.Errorf("simulation: %s acts recorder: %w", cfg.Name, err)
		}
		p.actsRecorder = rec
		sinkBase := module.NewBase(iu.ModuleID(cfg.Name+"-acts-recorder"), []iu.Kind{iu.KindDispatchableAct}, nil)
		p.actsSink = module.NewConsuming(sinkBase, rec)
		sinkBase.Subscribe(p.managerBase)
	}
	if cfg.RecordTextPath != "" {
		rec, err := text.NewRecorder(cfg.RecordTextPath)
		if err != nil {
			return nil, fmt.Errorf("simulation: %s text recorder: %w", cfg.Name, err)
		}
		p.textRecorder = rec
		sinkBase := module.NewBase(iu.ModuleID(cfg.Name+"-text-recorder"), []iu.Kind{iu.KindGeneratedText}, nil)
		p.textSink = module.NewConsuming(sinkBase, rec)
		sinkBase.Subscribe(p.nlgBase)
	}

	return p, nil
}

// DispatcherOutput returns the module whose output is this agent's outgoing
// DispatchedAudio stream, for wiring into a network link to the other agent.
func (p *AgentPipeline) DispatcherOutput() *module.Base { return p.dispatcherBase }

// GraphSeed returns a module reachable from every other stage in this
// pipeline, suitable as a [github.com/retico-go/retico/pkg/graph.Collect]
// seed — Collect's BFS walks both producers and subscribers, so one
// reachable module is enough to recover the whole component.
func (p *AgentPipeline) GraphSeed() *module.Base { return p.dispatcherBase }

// SubscribeIncomingAudio wires producer's DispatchedAudio output (typically
// a [network.Module] degrading the far end's dispatcher output) into this
// agent's ASR and EoT inputs.
func (p *AgentPipeline) SubscribeIncomingAudio(producer *module.Base) {
	p.asrBase.Subscribe(producer)
	p.eotBase.Subscribe(producer)
}

// Run starts every stage of the pipeline. Stages with no producer yet
// subscribed (the ASR/EoT inputs, before SubscribeIncomingAudio is called)
// simply have no left buffer to drain until one is wired.
func (p *AgentPipeline) Run(ctx context.Context) error {
	runners := []interface{ Run(context.Context) error }{
		p.asr, p.nlu, p.eot, p.manager, p.nlg, p.tts, p.dispatcher,
	}
	for _, r := range runners {
		if err := r.Run(ctx); err != nil {
			return fmt.Errorf("simulation: %s: run: %w", p.name, err)
		}
	}
	if p.actsSink != nil {
		if err := p.actsSink.Run(ctx); err != nil {
			return err
		}
	}
	if p.textSink != nil {
		if err := p.textSink.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop stops every stage and closes any recorder sinks.
func (p *AgentPipeline) Stop() error {
	stoppers := []interface{ Stop() error }{
		p.asr, p.nlu, p.eot, p.manager, p.nlg, p.tts, p.dispatcher,
	}
	var firstErr error
	for _, s := range stoppers {
		if err := s.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if p.actsSink != nil {
		_ = p.actsSink.Stop()
	}
	if p.textSink != nil {
		_ = p.textSink.Stop()
	}
	if p.actsRecorder != nil {
		if err := p.actsRecorder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if p.textRecorder != nil {
		if err := p.textRecorder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Manager exposes the turn-taking manager for event subscription
// (e.g. "dialogue_end") in tests and supervising code.
func (p *AgentPipeline) Manager() *turntaking.Manager { return p.manager }
