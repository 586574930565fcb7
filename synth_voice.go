// synth_voice.go - Voice state and per-voice block rendering

/*
A voice is a plain struct slot in the pool's fixed array: two wavetable
oscillator slots with up to sixteen unison sub-voices each, a sub oscillator,
a noise source, four envelopes, two serial stereo filter slots, glide state
and per-voice LFO phases. No interfaces and no allocation anywhere on the
render path; the engine calls beginBlock once per block to derive coefficients
from the published snapshot, then render for each sample segment.

Per-sample work is kept to phase accumulation, table reads, envelope steps
and filter updates. Everything slower (modulation matrix, filter coefficients,
unison ratios, mip selection, pan laws) is computed at block rate.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

import "math"

type SubShape int32

const (
	SubSine SubShape = iota
	SubSquare
)

// OscParams is the control-thread view of one oscillator slot.
type OscParams struct {
	Enabled     bool
	Table       TableID
	Morph       float32 // frame position 0..1
	Semitones   float32 // coarse pitch offset
	Cents       float32 // fine pitch offset
	Level       float32 // 0..1
	Pan         float32 // -1..1
	Unison      int     // 1..MAX_UNISON
	DetuneCents float32 // max unison detune spread
	Spread      float32 // stereo spread 0..1
	PhaseRetrig bool    // deterministic phases at note-on
	StartPhase  float32 // base phase (turns) when retriggering
}

// SubParams is the sub-oscillator mixed under oscillator output.
type SubParams struct {
	Level  float32
	Octave int // 1 or 2 octaves below the note
	Shape  SubShape
}

// NoiseParams is the white-noise layer.
type NoiseParams struct {
	Level float32
}

// GlideParams controls portamento.
type GlideParams struct {
	Enabled    bool
	Time       float32 // seconds to cover most of the distance
	LegatoOnly bool    // only glide when notes overlap
}

// DriftParams adds slow per-voice pitch instability.
type DriftParams struct {
	DepthCents float32 // 0 disables
}

// unison phase offsets use a fixed irrational-ish stride so sub-voices never
// line up, which is what prevents comb cancellation at note-on.
const unisonPhaseStride = 0.6180339887

// oscBlock is one oscillator slot's coefficients for the current block.
type oscBlock struct {
	enabled bool
	table   *Wavetable
	mip     int32
	morph   float32
	level   float32
	n       int32 // unison count
	// per-unison pitch ratio relative to the glided base frequency, and
	// baked left/right gains (unison pan * slot pan * voice pan)
	ratio [MAX_UNISON]float32
	gainL [MAX_UNISON]float32
	gainR [MAX_UNISON]float32

	// vector mode (slot 0 only): corner tables replace the slot table
	vector  bool
	corner  [4]*Wavetable
	cMip    [4]int32
	cMorph  [4]float32
	cWeight [4]float32
}

// voiceBlock is everything beginBlock derives for the render loop.
type voiceBlock struct {
	osc        [NUM_OSCS]oscBlock
	subLevel   float32
	subShape   SubShape
	subRatio   float32 // sub frequency = base * subRatio
	subGainL   float32
	subGainR   float32
	noiseLevel float32
	ampScale   float32 // velocity curve * matrix amp offset
	coeffs     [2]filterCoeffs
	filterOn   [2]bool
	glideCoef  float32
	targetFreq float32
}

// voice is one pool slot. Mutated only by the audio thread once active.
type voice struct {
	// Identity and lifecycle
	active        bool
	releasing     bool   // note-off processed (envelope released)
	heldBySustain bool   // note-off deferred by the sustain pedal
	note          int32  // sounding MIDI note
	channel       int32
	velocity      float32
	startClock    uint64 // engine sample clock at note-on; steal ordering

	// Pitch: base frequency glides toward the target at glideCoef per sample
	currentFreq float32
	noteRandom  float32
	drift       float32
	driftRng    uint32

	// Oscillator phase accumulators (turns)
	phases   [NUM_OSCS][MAX_UNISON]float32
	subPhase float32
	noiseRng uint32

	// Modulators
	envs      [NUM_ENVS]envelope
	lfoPhase  [NUM_LFOS]float32
	lfoFade   [NUM_LFOS]float32

	// Two serial filter slots, separate state per stereo channel
	filters [2][2]filterState

	declick     float32 // short ramp after a hard steal
	declickInc  float32

	mod modValues // matrix output for this voice's last block (queryable)
	vb  voiceBlock
}

// allocate sizes the comb buffers once at Prepare.
func (v *voice) allocate(sampleRate float64) {
	for slot := 0; slot < 2; slot++ {
		for ch := 0; ch < 2; ch++ {
			v.filters[slot][ch].allocate(sampleRate)
		}
	}
}

// start initializes the slot for a new note. stolen indicates the slot was
// sounding, in which case envelopes continue from their current level and a
// short declick ramp is applied. glideFrom < 0 disables portamento for this
// note. rng seeds deterministic per-note randomness.
func (v *voice) start(note int32, velocity float32, channel int32, clock uint64, glideFrom float32, retrigger, stolen bool, snap *renderSnapshot, rng *uint32, sampleRate float64) {
	v.active = true
	v.releasing = false
	v.heldBySustain = false
	v.note = note
	v.channel = channel
	v.velocity = velocity
	v.startClock = clock

	*rng = xorshift32(*rng)
	v.noteRandom = bipolar(*rng)
	*rng = xorshift32(*rng)
	v.driftRng = *rng
	*rng = xorshift32(*rng)
	v.noiseRng = *rng | 1

	target := noteToHz(float32(note))
	if glideFrom >= 0 {
		v.currentFreq = noteToHz(glideFrom)
	} else {
		v.currentFreq = target
	}

	for o := 0; o < NUM_OSCS; o++ {
		p := &snap.Oscs[o]
		if p.PhaseRetrig {
			for u := 0; u < MAX_UNISON; u++ {
				ph := p.StartPhase + float32(u)*unisonPhaseStride
				v.phases[o][u] = ph - float32(int(ph))
			}
		} else if !stolen {
			for u := 0; u < MAX_UNISON; u++ {
				*rng = xorshift32(*rng)
				v.phases[o][u] = float32(*rng) / float32(^uint32(0))
			}
		}
		// A stolen voice without retrigger keeps its phases running, which
		// avoids a waveform jump on top of the level ramp.
	}
	if !stolen {
		v.subPhase = 0
	}

	for i := range v.envs {
		v.envs[i].setParams(snap.Envs[i], sampleRate)
		v.envs[i].gateOn(retrigger)
	}

	for i := 0; i < NUM_LFOS; i++ {
		if snap.LFOs[i].NoteReset {
			v.lfoPhase[i] = snap.LFOs[i].StartPhase
			v.lfoFade[i] = 0
		}
	}

	if !stolen {
		for slot := 0; slot < 2; slot++ {
			for ch := 0; ch < 2; ch++ {
				v.filters[slot][ch].reset()
			}
		}
		v.declick = 1
		v.declickInc = 0
	} else {
		v.declick = 0
		v.declickInc = float32(1.0 / (DECLICK_SEC * sampleRate))
	}
	v.drift = 0
}

// noteOff releases the envelopes (or defers while the sustain pedal is down).
func (v *voice) noteOff(sustainDown bool) {
	if !v.active || v.releasing {
		return
	}
	if sustainDown {
		v.heldBySustain = true
		return
	}
	v.release()
}

func (v *voice) release() {
	v.releasing = true
	v.heldBySustain = false
	for i := range v.envs {
		v.envs[i].gateOff()
	}
}

// kill silences the slot immediately. Reset path only; normal shutdown goes
// through release.
func (v *voice) kill() {
	v.active = false
	v.releasing = false
	v.heldBySustain = false
	for i := range v.envs {
		v.envs[i].reset()
	}
	for slot := 0; slot < 2; slot++ {
		for ch := 0; ch < 2; ch++ {
			v.filters[slot][ch].reset()
		}
	}
}

// setGlideTarget retunes the voice (mono/legato note changes).
func (v *voice) setGlideTarget(note int32) {
	v.note = note
}

// equalPowerPan returns left/right gains for pan in [-1,1].
func equalPowerPan(pan float32) (l, r float32) {
	theta := float64(pan+1) * (math.Pi / 4)
	return float32(math.Cos(theta)), float32(math.Sin(theta))
}

// beginBlock derives the block's coefficients: matrix evaluation, unison
// ratios and gains, mip choices, filter coefficients, glide and drift.
func (v *voice) beginBlock(snap *renderSnapshot, bank *lfoBank, lut *lutContext, store *wavetableStore, sampleRate float64) {
	vb := &v.vb

	// Block-start modulation context for this voice.
	var ctx modContext
	for i := 0; i < NUM_ENVS; i++ {
		ctx.envLevels[i] = v.envs[i].level
	}
	for i := 0; i < NUM_LFOS; i++ {
		p := &snap.LFOs[i]
		if p.NoteReset {
			ctx.lfoValues[i] = bank.valueAt(i, p, v.lfoPhase[i], v.lfoFade[i], lut, store, snap.TableCount)
		} else {
			ctx.lfoValues[i] = bank.value(i, p, lut, store, snap.TableCount)
		}
	}
	ctx.velocity = v.velocity
	ctx.modWheel = snap.ModWheel
	ctx.aftertouch = snap.Aftertouch
	ctx.pitchBend = snap.PitchBend
	ctx.keyTrack = clampF(float32(v.note-60)/24.0, -1, 1)
	ctx.noteRandom = v.noteRandom
	ctx.vectorX = 2*snap.Vector.X - 1
	ctx.vectorY = 2*snap.Vector.Y - 1

	v.mod.clear()
	computeModBlock(&snap.Routes, &snap.Macros, &ctx, &v.mod, DestNone+1, firstGlobalDest)

	// Drift: slow random walk toward fresh targets, scaled in cents.
	if snap.Drift.DepthCents > 0 {
		v.driftRng = xorshift32(v.driftRng)
		v.drift += 0.02 * (bipolar(v.driftRng) - v.drift)
	} else {
		v.drift = 0
	}
	driftSemis := v.drift * snap.Drift.DepthCents / 100.0

	// Glide: one-pole per sample in the frequency domain.
	vb.targetFreq = noteToHz(float32(v.note))
	if snap.Glide.Enabled && snap.Glide.Time > 0.0005 {
		vb.glideCoef = float32(1.0 - math.Exp(-1.0/(float64(snap.Glide.Time)*sampleRate)))
	} else {
		vb.glideCoef = 1
	}

	bendSemis := snap.PitchBend * snap.BendRangeSemis
	voicePan := clampF(v.mod[DestVoicePan], -1, 1)
	vpL, vpR := equalPowerPan(voicePan)
	vb.ampScale = v.velocity * clampF(1+v.mod[DestVoiceAmp], 0, 2)

	for o := 0; o < NUM_OSCS; o++ {
		p := &snap.Oscs[o]
		ob := &vb.osc[o]

		level := clamp01(p.Level + v.mod[DestOsc1Level+ModDest(o)])
		ob.enabled = p.Enabled && level > 0
		if !ob.enabled {
			continue
		}
		ob.level = level
		ob.morph = clamp01(p.Morph + v.mod[DestOsc1Morph+ModDest(o)])

		n := p.Unison
		if n < 1 {
			n = 1
		} else if n > MAX_UNISON {
			n = MAX_UNISON
		}
		ob.n = int32(n)

		pitchSemis := p.Semitones + p.Cents/100.0 + bendSemis + driftSemis +
			v.mod[DestOsc1Pitch+ModDest(o)]*PITCH_MOD_SEMITONES

		slotGain := ob.level / float32(math.Sqrt(float64(n)))
		for u := 0; u < n; u++ {
			spreadPos := float32(0)
			if n > 1 {
				spreadPos = 2*float32(u)/float32(n-1) - 1
			}
			detuneSemis := spreadPos * p.DetuneCents / 100.0
			ob.ratio[u] = float32(math.Exp2(float64(pitchSemis+detuneSemis) / 12.0))

			pan := clampF(p.Pan+voicePan+spreadPos*p.Spread, -1, 1)
			l, r := equalPowerPan(pan)
			ob.gainL[u] = l * slotGain
			ob.gainR[u] = r * slotGain
		}

		// Resolve tables and mip levels from the block-start frequency.
		baseStep := v.currentFreq * ob.ratio[0]
		if o == 0 && snap.Vector.Enabled {
			ob.vector = true
			w00, w10, w01, w11 := vectorWeights(snap.Vector.X, snap.Vector.Y)
			weights := [4]float32{w00, w10, w01, w11}
			for c := 0; c < 4; c++ {
				corner := &snap.Vector.Corners[c]
				ob.corner[c] = store.table(corner.Table, snap.TableCount)
				ob.cMorph[c] = clamp01(corner.Morph + v.mod[DestOsc1Morph])
				ob.cWeight[c] = weights[c]
				if ob.corner[c] != nil {
					step := baseStep * float32(ob.corner[c].frameLen) / float32(sampleRate)
					ob.cMip[c] = int32(ob.corner[c].selectMip(step))
				}
			}
			ob.table = nil
		} else {
			ob.vector = false
			ob.table = store.table(p.Table, snap.TableCount)
			if ob.table != nil {
				step := baseStep * float32(ob.table.frameLen) / float32(sampleRate)
				ob.mip = int32(ob.table.selectMip(step))
			}
		}
	}

	// Sub oscillator and noise ride the voice pan.
	vb.subLevel = snap.Sub.Level
	vb.subShape = snap.Sub.Shape
	switch snap.Sub.Octave {
	case 2:
		vb.subRatio = 0.25
	default:
		vb.subRatio = 0.5
	}
	vb.subGainL = vpL
	vb.subGainR = vpR
	vb.noiseLevel = snap.Noise.Level

	// Filter coefficients; envelope 2 drives cutoff at block rate.
	for slot := 0; slot < 2; slot++ {
		fp := &snap.Filters[slot]
		vb.filterOn[slot] = fp.Type != FilterOff
		if !vb.filterOn[slot] {
			continue
		}
		computeFilterCoeffs(fp,
			v.mod[DestFilter1Cutoff+ModDest(slot)],
			v.mod[DestFilter1Res+ModDest(slot)],
			v.envs[1].level,
			float32(v.note), sampleRate, &vb.coeffs[slot])
	}

	// Refresh envelope coefficients in case the snapshot changed.
	for i := range v.envs {
		v.envs[i].setParams(snap.Envs[i], sampleRate)
	}

	// Deferred note-off once the pedal lifts.
	if v.heldBySustain && !snap.SustainPedal {
		v.release()
	}
}

// advanceVoiceLFOs moves per-voice LFO phases after the block has rendered.
func (v *voice) advanceVoiceLFOs(snap *renderSnapshot, sampleRate float64, n int) {
	for i := 0; i < NUM_LFOS; i++ {
		p := &snap.LFOs[i]
		if !p.NoteReset {
			continue
		}
		rate := lfoRateHz(p, snap.Tempo)
		v.lfoPhase[i] += float32(float64(rate) / sampleRate * float64(n))
		v.lfoPhase[i] -= float32(int(v.lfoPhase[i]))
		if p.FadeIn <= 0 {
			v.lfoFade[i] = 1
		} else if v.lfoFade[i] < 1 {
			v.lfoFade[i] += float32(float64(n) / (float64(p.FadeIn) * sampleRate))
			if v.lfoFade[i] > 1 {
				v.lfoFade[i] = 1
			}
		}
	}
}

// render adds this voice's samples [from,to) into the stereo accumulators.
// Returns false once the amplitude envelope has finished, meaning the slot
// can be reclaimed.
//
//go:nosplit
func (v *voice) render(outL, outR []float32, from, to int, lut *lutContext, sampleRate float64) bool {
	vb := &v.vb
	invSR := float32(1.0 / sampleRate)

	for i := from; i < to; i++ {
		// Glide toward the target note frequency.
		v.currentFreq += vb.glideCoef * (vb.targetFreq - v.currentFreq)

		if v.declick < 1 {
			v.declick += v.declickInc
			if v.declick > 1 {
				v.declick = 1
			}
		}

		var sampleL, sampleR float32

		for o := 0; o < NUM_OSCS; o++ {
			ob := &vb.osc[o]
			if !ob.enabled {
				continue
			}
			n := int(ob.n)
			for u := 0; u < n; u++ {
				ph := v.phases[o][u]
				var s float32
				if ob.vector {
					for c := 0; c < 4; c++ {
						if w := ob.cWeight[c]; w > 0 && ob.corner[c] != nil {
							s += w * ob.corner[c].sampleAt(int(ob.cMip[c]), ph, ob.cMorph[c])
						}
					}
				} else if ob.table != nil {
					s = ob.table.sampleAt(int(ob.mip), ph, ob.morph)
				}
				sampleL += s * ob.gainL[u]
				sampleR += s * ob.gainR[u]

				ph += v.currentFreq * ob.ratio[u] * invSR
				ph -= float32(int(ph))
				v.phases[o][u] = ph
			}
		}

		if vb.subLevel > 0 {
			dt := v.currentFreq * vb.subRatio * invSR
			var s float32
			if vb.subShape == SubSquare {
				if v.subPhase < 0.5 {
					s = 1
				} else {
					s = -1
				}
				s += polyBLEP32(v.subPhase, dt)
				half := v.subPhase + 0.5
				half -= float32(int(half))
				s -= polyBLEP32(half, dt)
			} else {
				s = lut.SinTurns(v.subPhase)
			}
			s *= vb.subLevel
			sampleL += s * vb.subGainL
			sampleR += s * vb.subGainR

			v.subPhase += dt
			v.subPhase -= float32(int(v.subPhase))
		}

		if vb.noiseLevel > 0 {
			v.noiseRng = xorshift32(v.noiseRng)
			s := bipolar(v.noiseRng) * vb.noiseLevel * 0.7071
			sampleL += s * vb.subGainL
			sampleR += s * vb.subGainR
		}

		for slot := 0; slot < 2; slot++ {
			if !vb.filterOn[slot] {
				continue
			}
			c := &vb.coeffs[slot]
			sampleL = v.filters[slot][0].process(c, lut, sampleL)
			sampleR = v.filters[slot][1].process(c, lut, sampleR)
		}

		amp := v.envs[0].process() * vb.ampScale * v.declick
		v.envs[1].process()
		v.envs[2].process()
		v.envs[3].process()

		outL[i] += sampleL * amp
		outR[i] += sampleR * amp
	}

	return v.envs[0].active()
}
