// synth_mod.go - Modulation matrix, macros and vector pad

/*
Routing model: a flat table of (source, destination, amount) rows. The matrix
is evaluated once per block per voice for the per-voice destinations, and
once per block for the global ones, using source values captured at block
start. Faster-moving modulation (the amplitude envelope, pitch glide) runs
per sample inside the voice loop instead of through the matrix; that split is
a deliberate precision/performance trade-off and is part of the design, not
an optimization to remove.

Multiple rows targeting one destination sum. The sum is applied to the
destination's base parameter in its own normalized space and clamped there,
so matrix output itself is an unclamped offset.

Macros are virtual sources: each macro's unipolar value fans out over up to
eight (destination, amount) targets, injected as extra contributions before
the sum. The vector pad contributes VectorX/VectorY as bipolar sources and
separately computes the bilinear corner weights for vector oscillator mode.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

type ModSource int32

const (
	SrcNone ModSource = iota
	SrcEnv1
	SrcEnv2
	SrcEnv3
	SrcEnv4
	SrcLFO1
	SrcLFO2
	SrcLFO3
	SrcLFO4
	SrcLFO5
	SrcLFO6
	SrcLFO7
	SrcLFO8
	SrcVelocity
	SrcModWheel
	SrcAftertouch
	SrcPitchBend
	SrcKeyTrack
	SrcNoteRandom
	SrcVectorX
	SrcVectorY
	numModSources
)

type ModDest int32

const (
	DestNone ModDest = iota

	// Per-voice destinations, evaluated with that voice's sources.
	DestOsc1Pitch // scaled by PITCH_MOD_SEMITONES
	DestOsc2Pitch
	DestOsc1Morph
	DestOsc2Morph
	DestOsc1Level
	DestOsc2Level
	DestVoicePan
	DestVoiceAmp
	DestFilter1Cutoff // offset in normalized cutoff space
	DestFilter2Cutoff
	DestFilter1Res
	DestFilter2Res

	// Global destinations, evaluated once per block; voice-scoped sources
	// read as zero here.
	DestMasterGain
	DestChorusMix
	DestChorusRate
	DestDelayMix
	DestDelayFeedback
	DestReverbMix

	numModDests
)

// firstGlobalDest splits the destination space for the two evaluation passes.
const firstGlobalDest = DestMasterGain

// Full matrix pitch swing at amount 1.0.
const PITCH_MOD_SEMITONES = 24.0

// ModRoute is one matrix row. Amount is bipolar [-1,1].
type ModRoute struct {
	Source ModSource
	Dest   ModDest
	Amount float32
}

// MacroTarget is one fan-out arm of a macro.
type MacroTarget struct {
	Dest   ModDest
	Amount float32
}

// Macro is a named meta-control: one unipolar value driving several
// destinations at once.
type Macro struct {
	Name    string
	Value   float32 // 0..1
	Targets [MACRO_TARGETS]MacroTarget
}

// VectorCorner pairs a wavetable with a morph position for one pad corner.
type VectorCorner struct {
	Table TableID
	Morph float32
}

// VectorParams describes the pad. Corner order: 00 (bottom-left),
// 10 (bottom-right), 01 (top-left), 11 (top-right).
type VectorParams struct {
	Enabled bool
	X, Y    float32 // 0..1
	Corners [4]VectorCorner
}

// vectorWeights returns the bilinear corner weights for a pad position.
func vectorWeights(x, y float32) (w00, w10, w01, w11 float32) {
	x = clamp01(x)
	y = clamp01(y)
	w00 = (1 - x) * (1 - y)
	w10 = x * (1 - y)
	w01 = (1 - x) * y
	w11 = x * y
	return
}

// modValues holds one evaluation's summed destination offsets.
type modValues [numModDests]float32

func (v *modValues) clear() {
	for i := range v {
		v[i] = 0
	}
}

// modContext carries the block-start source values for one evaluation. For
// the global pass the voice-scoped fields stay zero.
type modContext struct {
	envLevels  [NUM_ENVS]float32
	lfoValues  [NUM_LFOS]float32
	velocity   float32
	modWheel   float32
	aftertouch float32
	pitchBend  float32
	keyTrack   float32
	noteRandom float32
	vectorX    float32 // pad x mapped to [-1,1]
	vectorY    float32
}

//go:nosplit
func (ctx *modContext) source(s ModSource) float32 {
	switch {
	case s >= SrcEnv1 && s <= SrcEnv4:
		return ctx.envLevels[s-SrcEnv1]
	case s >= SrcLFO1 && s <= SrcLFO8:
		return ctx.lfoValues[s-SrcLFO1]
	}
	switch s {
	case SrcVelocity:
		return ctx.velocity
	case SrcModWheel:
		return ctx.modWheel
	case SrcAftertouch:
		return ctx.aftertouch
	case SrcPitchBend:
		return ctx.pitchBend
	case SrcKeyTrack:
		return ctx.keyTrack
	case SrcNoteRandom:
		return ctx.noteRandom
	case SrcVectorX:
		return ctx.vectorX
	case SrcVectorY:
		return ctx.vectorY
	}
	return 0
}

// computeModBlock sums route and macro contributions into dst for the
// destination range [lo,hi). Rows with no source or destination are skipped;
// a malformed row never aborts the block.
func computeModBlock(routes *[MAX_MOD_ROUTES]ModRoute, macros *[NUM_MACROS]Macro, ctx *modContext, dst *modValues, lo, hi ModDest) {
	for i := range routes {
		r := &routes[i]
		if r.Source == SrcNone || r.Dest == DestNone || r.Dest < lo || r.Dest >= hi {
			continue
		}
		if r.Source < 0 || r.Source >= numModSources || r.Dest >= numModDests {
			continue
		}
		dst[r.Dest] += ctx.source(r.Source) * r.Amount
	}

	for m := range macros {
		mac := &macros[m]
		if mac.Value == 0 {
			continue
		}
		for t := range mac.Targets {
			tgt := &mac.Targets[t]
			if tgt.Dest == DestNone || tgt.Dest < lo || tgt.Dest >= hi || tgt.Dest >= numModDests {
				continue
			}
			dst[tgt.Dest] += mac.Value * tgt.Amount
		}
	}
}

// validModSource and validModDest guard the control-surface setters.
func validModSource(s ModSource) bool { return s >= SrcNone && s < numModSources }
func validModDest(d ModDest) bool     { return d >= DestNone && d < numModDests }
