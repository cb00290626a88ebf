package turntaking

import "time"

// DialogueState tracks one participant's half of the conversation: when
// their current utterance started/ended, whether they are currently
// speaking, how far along their utterance is (dispatch completion for self,
// end-of-turn probability for the other), and the dialogue acts involved.
type DialogueState struct {
	UtterStart time.Time
	UtterEnd   time.Time
	IsSpeaking bool

	// Completion is the local dispatcher's progress (0..1) for self, or the
	// end-of-turn predictor's probability (0..1) for other.
	Completion float64

	// UtterLen is the estimated total duration, in seconds, of the current
	// utterance — used to project remaining speech time while still talking.
	UtterLen float64

	CurrentAct string
	LastAct    string
}

// TimeSinceEOT computes the spec's time_since_eot derived value for other,
// relative to now: if other is silent, it is utter_end_other − now; if other
// is still speaking, it is the negative projected-remaining-speech estimate
// −(utter_len/completion − utter_len).
func TimeSinceEOT(other *DialogueState, now time.Time) float64 {
	if !other.IsSpeaking {
		return other.UtterEnd.Sub(now).Seconds()
	}
	if other.Completion <= 0 {
		return -other.UtterLen
	}
	return -(other.UtterLen/other.Completion - other.UtterLen)
}

// ISpokeLast reports whether self currently holds (or most recently held)
// the floor: either self is speaking now, or self's utterance ended after
// other's.
func ISpokeLast(self, other *DialogueState) bool {
	return self.IsSpeaking || self.UtterEnd.After(other.UtterEnd)
}

// BothSpeak reports whether self and other are simultaneously speaking.
func BothSpeak(self, other *DialogueState) bool { return self.IsSpeaking && other.IsSpeaking }

// BothSilent reports whether neither self nor other is speaking.
func BothSilent(self, other *DialogueState) bool { return !self.IsSpeaking && !other.IsSpeaking }

// ISpeak reports whether self alone is speaking.
func ISpeak(self, other *DialogueState) bool { return self.IsSpeaking && !other.IsSpeaking }

// TheySpeak reports whether other alone is speaking.
func TheySpeak(self, other *DialogueState) bool { return !self.IsSpeaking && other.IsSpeaking }

// InMiddleOfTurn reports whether state's completion is strictly within
// (0.3, 0.7), the spec's definition of "in the middle" of an utterance.
func InMiddleOfTurn(state *DialogueState) bool {
	return state.Completion > 0.3 && state.Completion < 0.7
}

// SpokeLongerThan reports whether other has been continuously speaking for
// more than d, as of now.
func SpokeLongerThan(other *DialogueState, now time.Time, d time.Duration) bool {
	return other.IsSpeaking && now.Sub(other.UtterStart) > d
}
