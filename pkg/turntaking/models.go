// Package turntaking implements the dual-state, gap-and-overlap/pause-timed
// turn-taking dialogue manager described in the spec: a scheduler that
// decides, once every ~50ms, whether the local side should speak, stay
// silent, or interrupt, based on two [DialogueState] records (self and
// other) and two probabilistic timing models.
package turntaking

import "math"

// gando computes the gap-and-overlap timing model: the SCT11 default form.
// A negative result models overlap (speak before the other finishes); a
// positive result models a gap (wait after the other finishes). r must be in
// (0, 1].
func gando(r float64) float64 {
	return -0.322581 * math.Log(0.433008*(1/r-1))
}

// gandoRNV1 is the alternate gap-and-overlap form used when the other
// side's current act is provide_partial, provide_info, or confirm.
func gandoRNV1(r float64) float64 {
	return -0.159767 * math.Log(0.169563*(1/r-1))
}

// rnv1Acts is the set of other-side acts that switch the gap-and-overlap
// model to the RNV1 alternate form (and halve a positive result).
var rnv1Acts = map[string]struct{}{
	"provide_partial": {},
	"provide_info":    {},
	"confirm":         {},
}

// Gando returns the gap-and-overlap delay in seconds for random draw r,
// given the other side's current dialogue act. When otherAct is one of the
// RNV1-triggering acts, the alternate form is used and a positive result is
// halved.
func Gando(r float64, otherAct string) float64 {
	if _, ok := rnv1Acts[otherAct]; ok {
		v := gandoRNV1(r)
		if v > 0 {
			v /= 2
		}
		return v
	}
	return gando(r)
}

// Pause returns the continue-own-turn pause duration in seconds for random
// draw r, adjusted for the speaker's last act and the other side's last
// known act, and clamped to a floor of 0.2s.
//
// Adjustments, matching the spec exactly:
//   - +1.5s if the speaker's last act was request_info.
//   - +0.5s for the pair (self last act confirm, other last act provide_partial).
//   - hard reset to 0.2s for the mutual-greeting pair (both last acts greeting).
//   - +0.5s if the speaker's last act was greeting and the other act is unknown ("").
func Pause(r float64, selfLastAct, otherLastAct string) float64 {
	if selfLastAct == "greeting" && otherLastAct == "greeting" {
		return 0.2
	}

	v := 0.925071 * (0.843217 + 2.92309*r*r)

	switch {
	case selfLastAct == "request_info":
		v += 1.5
	case selfLastAct == "confirm" && otherLastAct == "provide_partial":
		v += 0.5
	case selfLastAct == "greeting" && otherLastAct == "":
		v += 0.5
	}

	if v < 0.2 {
		v = 0.2
	}
	return v
}
