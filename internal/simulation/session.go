package simulation

import (
	"context"
	"fmt"

	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/module"
	"github.com/retico-go/retico/pkg/network"
)

// SessionConfig wires two [AgentPipeline]s together through a pair of
// independent network links (A→B and B→A), matching spec.md §2's two-agent
// control-flow diagram and original_source/retico/headless.py's subscribe
// step.
type SessionConfig struct {
	AgentA AgentConfig
	AgentB AgentConfig

	// LinkAtoB and LinkBtoA degrade the audio travelling from A to B and
	// from B to A respectively. Either may be empty for an undegraded link.
	LinkAtoB []network.Degradation
	LinkBtoA []network.Degradation
}

// Session is a running two-agent dialogue simulation.
type Session struct {
	A, B *AgentPipeline

	linkAtoB     *network.Module
	linkAtoBBase *module.Base
	linkBtoA     *network.Module
	linkBtoABase *module.Base

	linkAtoBRunner *module.General
	linkBtoARunner *module.General
}

// NewSession builds both pipelines and the network links between them, but
// does not start them — call [Session.Run].
func NewSession(cfg SessionConfig) (*Session, error) {
	a, err := NewAgentPipeline(cfg.AgentA)
	if err != nil {
		return nil, fmt.Errorf("simulation: agent A: %w", err)
	}
	b, err := NewAgentPipeline(cfg.AgentB)
	if err != nil {
		return nil, fmt.Errorf("simulation: agent B: %w", err)
	}

	s := &Session{A: a, B: b}

	s.linkAtoBBase = module.NewBase("link-a-to-b", []iu.Kind{iu.KindDispatchedAudio}, []iu.Kind{iu.KindDispatchedAudio})
	s.linkAtoB = network.New(cfg.LinkAtoB...)
	s.linkAtoBBase.Subscribe(a.DispatcherOutput())
	b.SubscribeIncomingAudio(s.linkAtoBBase)

	s.linkBtoABase = module.NewBase("link-b-to-a", []iu.Kind{iu.KindDispatchedAudio}, []iu.Kind{iu.KindDispatchedAudio})
	s.linkBtoA = network.New(cfg.LinkBtoA...)
	s.linkBtoABase.Subscribe(b.DispatcherOutput())
	a.SubscribeIncomingAudio(s.linkBtoABase)

	return s, nil
}

// Run starts both pipelines and both network links.
func (s *Session) Run(ctx context.Context) error {
	linkAtoB := module.NewGeneral(s.linkAtoBBase, s.linkAtoB)
	linkBtoA := module.NewGeneral(s.linkBtoABase, s.linkBtoA)
	s.linkAtoBRunner, s.linkBtoARunner = linkAtoB, linkBtoA

	if err := s.A.Run(ctx); err != nil {
		return err
	}
	if err := s.B.Run(ctx); err != nil {
		return err
	}
	if err := linkAtoB.Run(ctx); err != nil {
		return err
	}
	if err := linkBtoA.Run(ctx); err != nil {
		return err
	}
	return nil
}

// Stop stops both network links and both pipelines. Safe to call only after
// a successful Run.
func (s *Session) Stop() error {
	var firstErr error
	if s.linkAtoBRunner != nil {
		if err := s.linkAtoBRunner.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.linkBtoARunner != nil {
		if err := s.linkBtoARunner.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.A.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.B.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
