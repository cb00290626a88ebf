package discord

import (
	"github.com/retico-go/retico/pkg/audio"
	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/module"
)

// Modules bundles the pipeline stages wired to one Discord voice Connection:
// one Microphone per participant currently in the channel, plus a single
// Speaker for dispatched output. NewModules does not track participants
// that join after it is called; re-invoke it (or re-subscribe new
// Microphones individually) after an [audio.EventJoin] callback if the
// pipeline must pick up new speakers.
type Modules struct {
	Microphones map[string]*audio.Microphone
	Speaker     *audio.Speaker
}

// NewModules constructs one Microphone per participant in conn's current
// InputStreams snapshot (captured audio is converted to (rate, sampleSize,
// channels) on the way in) plus one Speaker writing to conn's OutputStream.
// idFor assigns a module.ModuleID to each participant's Microphone, keyed
// by the platform participant id discordgo reports.
func NewModules(conn audio.Connection, idFor func(participantID string) string, rate, sampleSize, channels int) (*Modules, error) {
	mics := make(map[string]*audio.Microphone)
	for participantID, frames := range conn.InputStreams() {
		base := module.NewBase(iu.ModuleID(idFor(participantID)), nil, []iu.Kind{iu.KindAudio})
		mics[participantID] = audio.NewMicrophone(base, frames, rate, sampleSize, channels)
	}
	speaker := audio.NewSpeaker(conn.OutputStream())
	return &Modules{Microphones: mics, Speaker: speaker}, nil
}
