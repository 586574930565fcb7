// synth_envelope.go - ADSR envelope state machine

/*
Idle → Attack → Decay → Sustain → Release → Idle. Exponential segments by
default using one-pole approaches toward overshoot targets so every segment
terminates in its configured time; linear segments selectable per envelope.
Gate-on from a sounding state continues from the current level rather than
zero, which keeps retriggers and steals click-free. Release decaying below
RELEASE_EPSILON moves the envelope to Idle, the signal the voice pool uses
to reclaim the slot.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

import "math"

type envStage int32

const (
	envIdle envStage = iota
	envAttack
	envDecay
	envSustain
	envRelease
)

// Overshoot ratios for the exponential one-pole segments. The attack drives
// toward 1+ratio so it actually reaches 1.0; decay/release drive toward
// target-ratio so they actually reach the target.
const (
	envAttackRatio = 0.3
	envDecayRatio  = 0.0001
	envMinSegment  = 0.0005 // Segments at or below this jump instantly
)

// EnvelopeParams is the control-thread view of one ADSR.
type EnvelopeParams struct {
	Attack  float32 // seconds
	Decay   float32 // seconds
	Sustain float32 // level 0..1
	Release float32 // seconds
	Linear  bool    // linear segments instead of exponential
}

// envelope is per-voice render state. Coefficients are derived from the
// params and sample rate by setParams, which runs at block rate, never per
// sample.
type envelope struct {
	stage envStage
	level float32

	sustain float32
	linear  bool

	// exponential segment coefficients
	attackCoef  float32
	attackBase  float32
	decayCoef   float32
	decayBase   float32
	releaseCoef float32
	releaseBase float32

	// linear segment increments
	attackInc  float32
	decayDec   float32
	releaseDec float32

	attackInstant  bool
	decayInstant   bool
	releaseInstant bool
}

// setParams recomputes segment coefficients. Safe to call every block; the
// state machine position is untouched.
func (e *envelope) setParams(p EnvelopeParams, sampleRate float64) {
	e.sustain = clamp01(p.Sustain)
	e.linear = p.Linear

	a := float64(p.Attack)
	d := float64(p.Decay)
	r := float64(p.Release)

	e.attackInstant = a <= envMinSegment
	e.decayInstant = d <= envMinSegment
	e.releaseInstant = r <= envMinSegment

	if !e.attackInstant {
		samples := a * sampleRate
		e.attackCoef = float32(math.Exp(-math.Log((1.0+envAttackRatio)/envAttackRatio) / samples))
		e.attackBase = float32((1.0 + envAttackRatio) * (1.0 - float64(e.attackCoef)))
		e.attackInc = float32(1.0 / samples)
	}
	if !e.decayInstant {
		samples := d * sampleRate
		e.decayCoef = float32(math.Exp(-math.Log((1.0+envDecayRatio)/envDecayRatio) / samples))
		e.decayBase = float32((float64(e.sustain) - envDecayRatio) * (1.0 - float64(e.decayCoef)))
		e.decayDec = float32((1.0 - float64(e.sustain)) / samples)
	}
	if !e.releaseInstant {
		samples := r * sampleRate
		e.releaseCoef = float32(math.Exp(-math.Log((1.0+envDecayRatio)/envDecayRatio) / samples))
		e.releaseBase = float32(-envDecayRatio * (1.0 - float64(e.releaseCoef)))
		e.releaseDec = float32(1.0 / samples)
	}
}

// gateOn starts the attack. From Idle the envelope rises from zero; from any
// sounding stage it continues from the current level so there is no jump.
// With retrigger=false (legato) a sounding envelope keeps its current stage.
func (e *envelope) gateOn(retrigger bool) {
	if e.stage == envIdle {
		e.level = 0
		e.stage = envAttack
		return
	}
	if retrigger {
		e.stage = envAttack
	}
}

// gateOff moves any sounding stage straight to Release.
func (e *envelope) gateOff() {
	if e.stage != envIdle {
		e.stage = envRelease
	}
}

// reset silences the envelope immediately. Used on engine Reset, never as a
// substitute for Release.
func (e *envelope) reset() {
	e.stage = envIdle
	e.level = 0
}

func (e *envelope) active() bool { return e.stage != envIdle }

// process advances one sample and returns the new level.
//
//go:nosplit
func (e *envelope) process() float32 {
	switch e.stage {
	case envAttack:
		if e.attackInstant {
			e.level = 1.0
			e.stage = envDecay
			break
		}
		if e.linear {
			e.level += e.attackInc
		} else {
			e.level = e.attackBase + e.level*e.attackCoef
		}
		if e.level >= 1.0 {
			e.level = 1.0
			e.stage = envDecay
		}

	case envDecay:
		if e.decayInstant {
			e.level = e.sustain
			e.stage = envSustain
			break
		}
		if e.linear {
			e.level -= e.decayDec
		} else {
			e.level = e.decayBase + e.level*e.decayCoef
		}
		if e.level <= e.sustain {
			e.level = e.sustain
			e.stage = envSustain
		}

	case envSustain:
		e.level = e.sustain
		if e.level <= RELEASE_EPSILON {
			// Zero sustain behaves like a one-shot envelope.
			e.level = 0
			e.stage = envIdle
		}

	case envRelease:
		if e.releaseInstant {
			e.level = 0
			e.stage = envIdle
			break
		}
		if e.linear {
			e.level -= e.releaseDec
		} else {
			e.level = e.releaseBase + e.level*e.releaseCoef
		}
		if e.level <= RELEASE_EPSILON {
			e.level = 0
			e.stage = envIdle
		}

	case envIdle:
		// nothing
	}
	return e.level
}
