package iu

// Audio carries a single frame of raw PCM audio, as captured from a
// microphone or produced by a codec.
type Audio struct {
	Header
	RawAudio   []byte
	Rate       int
	SampleSize int // bytes per sample
	Channels   int
}

func (a *Audio) Kind() Kind { return KindAudio }

// Speech carries a complete, variable-length synthesized utterance that has
// not yet been chunked for real-time playback. Dispatch reports whether the
// dispatcher should begin pacing this utterance out immediately, or hold it
// until the turn-taking scheduler releases it.
type Speech struct {
	Header
	RawAudio   []byte
	Rate       int
	SampleSize int
	Channels   int
	Dispatch   bool
}

func (s *Speech) Kind() Kind { return KindSpeech }

// DispatchedAudio is one fixed-size frame cut from a Speech utterance by the
// dispatcher. Completion is the fraction (0,1] of the parent utterance
// dispatched so far, inclusive of this frame.
type DispatchedAudio struct {
	Header
	RawAudio     []byte
	Rate         int
	SampleSize   int
	Channels     int
	Completion   float64
	IsDispatching bool
}

func (d *DispatchedAudio) Kind() Kind { return KindDispatchedAudio }

// Text carries a span of plain text, final or not.
type Text struct {
	Header
	Text string
}

func (t *Text) Kind() Kind { return KindText }

// GeneratedText is text produced by an NLG stage, with a Dispatch flag
// mirroring Speech's: whether the downstream TTS/dispatcher chain should
// treat it as ready to speak immediately.
type GeneratedText struct {
	Header
	Text     string
	Dispatch bool
}

func (g *GeneratedText) Kind() Kind { return KindGeneratedText }

// Word is a single recognized token within a SpeechRecognition hypothesis.
type Word struct {
	Text       string
	Confidence float64
	Stable     bool
}

// SpeechRecognition carries an incremental ASR hypothesis: a ranked list of
// candidate transcriptions (Predictions), the currently most likely one
// (Text), and whether that hypothesis is Stability-committed or Final.
type SpeechRecognition struct {
	Header
	Predictions []string
	Text        string
	Stability   float64
	Confidence  float64
	Final       bool
}

func (s *SpeechRecognition) Kind() Kind { return KindSpeechRecognition }

// DialogueAct carries a recognized or planned dialogue act together with the
// slot/value pairs ("concepts") extracted or to be realized for it.
type DialogueAct struct {
	Header
	Act        string
	Concepts   map[string]string
	Confidence float64
}

func (d *DialogueAct) Kind() Kind { return KindDialogueAct }

// SetAct replaces the act, concepts, and confidence in place — used by
// modules that revise their own most recent, uncommitted DialogueAct rather
// than emitting a brand new one.
func (d *DialogueAct) SetAct(act string, concepts map[string]string, confidence float64) {
	d.Act = act
	d.Concepts = concepts
	d.Confidence = confidence
}

// DispatchableAct is a DialogueAct additionally marked as ready (or not) for
// the turn-taking scheduler to release to NLG/TTS.
type DispatchableAct struct {
	DialogueAct
	Dispatch bool
}

func (d *DispatchableAct) Kind() Kind { return KindDispatchableAct }

// EndOfTurn reports the current estimate of whether a speaker has finished
// their turn.
type EndOfTurn struct {
	Header
	Probability float64
	IsSpeaking  bool
}

func (e *EndOfTurn) Kind() Kind { return KindEndOfTurn }

// SetEOT replaces the probability and speaking flag in place, mirroring the
// original's in-place update of end-of-turn estimates.
func (e *EndOfTurn) SetEOT(isSpeaking bool, probability float64) {
	e.IsSpeaking = isSpeaking
	e.Probability = probability
}
