// synth_lfo.go - Low-frequency oscillator bank

/*
Eight LFOs per patch. Each is a phase accumulator driving a shape function,
free-running in Hz or synced to the host tempo as a note division. Outputs
are bipolar, scaled by depth (and a per-LFO fade-in), and feed the modulation
matrix at block rate. An LFO in note-reset mode keeps an independent phase
per voice, reset to the configured start phase at note-on; the random shapes
always run from the bank's shared state.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

type LFOShape int32

const (
	LFOSine LFOShape = iota
	LFOTriangle
	LFOSawUp
	LFOSawDown
	LFOSquare
	LFOSampleHold
	LFOSmoothRandom
	LFOWavetable
)

// LFODivision selects tempo sync. DivOff means the free RateHz is used.
type LFODivision int32

const (
	DivOff LFODivision = iota
	Div1_1
	Div1_2
	Div1_4
	Div1_8
	Div1_16
	Div1_32
	Div1_4Dot
	Div1_8Dot
	Div1_4Trip
	Div1_8Trip
)

// divisionBeats maps a division to its length in quarter-note beats.
var divisionBeats = [...]float64{
	DivOff:     0,
	Div1_1:     4,
	Div1_2:     2,
	Div1_4:     1,
	Div1_8:     0.5,
	Div1_16:    0.25,
	Div1_32:    0.125,
	Div1_4Dot:  1.5,
	Div1_8Dot:  0.75,
	Div1_4Trip: 2.0 / 3.0,
	Div1_8Trip: 1.0 / 3.0,
}

// LFOParams is the control-thread view of one LFO.
type LFOParams struct {
	Shape      LFOShape
	RateHz     float32     // free-running rate when Sync == DivOff
	Sync       LFODivision // tempo-synced note division
	Depth      float32     // output scale 0..1
	StartPhase float32     // phase (turns) applied on note reset
	NoteReset  bool        // per-voice phase, reset at note-on
	FadeIn     float32     // seconds to full depth after (re)start
	Table      TableID     // source table for LFOWavetable
}

// lfoRateHz resolves the effective rate for the current tempo.
func lfoRateHz(p *LFOParams, bpm float64) float32 {
	if p.Sync == DivOff || int(p.Sync) >= len(divisionBeats) {
		return p.RateHz
	}
	beats := divisionBeats[p.Sync]
	if beats <= 0 || bpm <= 0 {
		return p.RateHz
	}
	return float32(bpm / 60.0 / beats)
}

// lfoState is the render-side state of one bank slot.
type lfoState struct {
	phase     float32 // turns [0,1)
	heldValue float32 // current sample-and-hold value
	prevValue float32 // previous random target (smooth random)
	nextValue float32 // upcoming random target (smooth random)
	fade      float32 // fade-in level 0..1
}

// lfoBank is the engine-global LFO state. Per-voice reset phases live on the
// voice; the bank only owns the shared free-running state and the random
// generators, which keeps random shapes deterministic for a fixed seed.
type lfoBank struct {
	states [NUM_LFOS]lfoState
	rng    uint32
}

func (b *lfoBank) reset(seed uint32) {
	if seed == 0 {
		seed = 1
	}
	b.rng = seed
	for i := range b.states {
		st := &b.states[i]
		st.phase = 0
		st.fade = 0
		b.rng = xorshift32(b.rng)
		st.heldValue = bipolar(b.rng)
		st.prevValue = st.heldValue
		b.rng = xorshift32(b.rng)
		st.nextValue = bipolar(b.rng)
	}
}

// bipolar maps PRNG output to [-1,1].
func bipolar(r uint32) float32 {
	return 2*float32(r)/float32(^uint32(0)) - 1
}

// advance moves every global phase forward by n samples and refreshes random
// targets on wrap. Runs once per block after values have been read.
func (b *lfoBank) advance(params *[NUM_LFOS]LFOParams, sampleRate, bpm float64, n int) {
	for i := range b.states {
		p := &params[i]
		st := &b.states[i]

		rate := lfoRateHz(p, bpm)
		if rate < 0 {
			rate = 0
		}
		inc := float32(float64(rate) / sampleRate * float64(n))
		st.phase += inc
		if st.phase >= 1.0 {
			st.phase -= float32(int(st.phase))
			st.prevValue = st.nextValue
			b.rng = xorshift32(b.rng)
			st.nextValue = bipolar(b.rng)
			b.rng = xorshift32(b.rng)
			st.heldValue = bipolar(b.rng)
		}

		if p.FadeIn <= 0 {
			st.fade = 1
		} else if st.fade < 1 {
			st.fade += float32(float64(n) / (float64(p.FadeIn) * sampleRate))
			if st.fade > 1 {
				st.fade = 1
			}
		}
	}
}

// value returns LFO i's bipolar output (depth and fade applied) at its
// global phase.
func (b *lfoBank) value(i int, p *LFOParams, lut *lutContext, store *wavetableStore, tblLimit int) float32 {
	st := &b.states[i]
	return b.shapeValue(st, p, st.phase, lut, store, tblLimit) * p.Depth * st.fade
}

// valueAt evaluates LFO i at an explicit phase and fade, used by voices in
// note-reset mode. Random shapes fall back to the bank's shared state so a
// per-voice phase never desynchronizes the generators.
func (b *lfoBank) valueAt(i int, p *LFOParams, phase, fade float32, lut *lutContext, store *wavetableStore, tblLimit int) float32 {
	st := &b.states[i]
	return b.shapeValue(st, p, phase, lut, store, tblLimit) * p.Depth * fade
}

func (b *lfoBank) shapeValue(st *lfoState, p *LFOParams, phase float32, lut *lutContext, store *wavetableStore, tblLimit int) float32 {
	switch p.Shape {
	case LFOSine:
		return lut.SinTurns(phase)
	case LFOTriangle:
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	case LFOSawUp:
		return 2*phase - 1
	case LFOSawDown:
		return 1 - 2*phase
	case LFOSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case LFOSampleHold:
		return st.heldValue
	case LFOSmoothRandom:
		return st.prevValue + phase*(st.nextValue-st.prevValue)
	case LFOWavetable:
		if wt := store.table(p.Table, tblLimit); wt != nil {
			return wt.sampleAt(0, phase, 0)
		}
		return 0
	}
	return 0
}
