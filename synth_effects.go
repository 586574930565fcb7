// synth_effects.go - Master effects chain

/*
Global stereo effects applied after the voice mix: distortion, chorus,
delay and reverb, in a configurable order. All delay lines are allocated
at Prepare time for the session sample rate, so block processing never
allocates. Effect parameters are read from the active snapshot once per
block, with the global modulation offsets added on top.

The reverb is a Schroeder bank: four parallel feedback combs with damped
feedback and a slow read-tap wobble to decorrelate the tail, followed by
two series allpasses. The right channel uses slightly longer lines than
the left, which is where the stereo spread comes from.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

import "math"

type EffectKind int32

const (
	FXDistortion EffectKind = iota
	FXChorus
	FXDelay
	FXReverb
	numEffectKinds
)

type DistortionShape int32

const (
	DistOff DistortionShape = iota
	DistSoft
	DistHard
	DistFold
	DistAsym
	DistTube
	DistCrush
	DistDecimate
)

const (
	CHORUS_BASE_SEC         = 0.007
	CHORUS_DEPTH_SEC        = 0.003
	CHORUS_MAX_SEC          = 0.05
	DELAY_MAX_SEC           = 2.0
	DELAY_FEEDBACK_MAX      = 0.98
	REVERB_PREDELAY_MAX_SEC = 0.25
	REVERB_INPUT_GAIN       = 0.03
)

// Schroeder line lengths in seconds; the right channel adds a fixed
// sample offset to each.
var reverbCombTimes = [4]float64{0.0297, 0.0371, 0.0411, 0.0437}
var reverbAllpassTimes = [2]float64{0.005, 0.0017}

const reverbCombSpread = 23
const reverbAllpassSpread = 7

type DistortionParams struct {
	Shape DistortionShape
	Drive float32 // 0..1, mapped to 1..10x pre-gain
	Mix   float32
}

type ChorusParams struct {
	Enabled bool
	RateHz  float32
	Depth   float32
	Mix     float32
}

type DelayParams struct {
	Enabled  bool
	TimeSec  float32     // free-running time when Sync == DivOff
	Sync     LFODivision // tempo-synced time; DivOff uses TimeSec
	Feedback float32
	Damp     float32 // one-pole lowpass amount in the feedback path
	Mix      float32
	PingPong bool
}

type ReverbParams struct {
	Enabled     bool
	Size        float32
	Damp        float32
	PreDelaySec float32
	Mix         float32
}

type EffectsParams struct {
	Order      [4]EffectKind
	Distortion DistortionParams
	Chorus     ChorusParams
	Delay      DelayParams
	Reverb     ReverbParams
}

func defaultEffectsOrder() [4]EffectKind {
	return [4]EffectKind{FXDistortion, FXChorus, FXDelay, FXReverb}
}

type combState struct {
	buf      []float32
	pos      int
	filt     float32
	lfoPhase float64
}

type allpassState struct {
	buf []float32
	pos int
}

type effectsChain struct {
	sampleRate float64

	// Distortion decimator hold, one per channel.
	decimCount [2]int
	decimHold  [2]float32

	// Chorus.
	chorusBuf   [2][]float32
	chorusPos   int
	chorusPhase float64

	// Delay.
	delayBuf [2][]float32
	delayPos int
	delayLP  [2]float32

	// Reverb.
	preBuf   []float32
	prePos   int
	combs    [2][4]combState
	allpass  [2][2]allpassState
	prepared bool
}

func (fx *effectsChain) prepare(sampleRate float64) {
	fx.sampleRate = sampleRate

	chorusLen := int(CHORUS_MAX_SEC*sampleRate) + 4
	delayLen := int(DELAY_MAX_SEC*sampleRate) + 4
	preLen := int(REVERB_PREDELAY_MAX_SEC*sampleRate) + 4
	for ch := 0; ch < 2; ch++ {
		fx.chorusBuf[ch] = make([]float32, chorusLen)
		fx.delayBuf[ch] = make([]float32, delayLen)
	}
	fx.preBuf = make([]float32, preLen)

	for ch := 0; ch < 2; ch++ {
		spread := 0
		if ch == 1 {
			spread = reverbCombSpread
		}
		for i := range fx.combs[ch] {
			n := int(reverbCombTimes[i]*sampleRate) + spread
			fx.combs[ch][i].buf = make([]float32, n)
			// Stagger the wobble phases so the combs never move together.
			fx.combs[ch][i].lfoPhase = float64(ch*4+i) * 0.125
		}
		spread = 0
		if ch == 1 {
			spread = reverbAllpassSpread
		}
		for i := range fx.allpass[ch] {
			n := int(reverbAllpassTimes[i]*sampleRate) + spread
			fx.allpass[ch][i].buf = make([]float32, n)
		}
	}
	fx.prepared = true
	fx.reset()
}

func (fx *effectsChain) reset() {
	if !fx.prepared {
		return
	}
	fx.decimCount = [2]int{}
	fx.decimHold = [2]float32{}
	fx.chorusPos = 0
	fx.chorusPhase = 0
	fx.delayPos = 0
	fx.delayLP = [2]float32{}
	fx.prePos = 0
	for ch := 0; ch < 2; ch++ {
		clear(fx.chorusBuf[ch])
		clear(fx.delayBuf[ch])
		for i := range fx.combs[ch] {
			clear(fx.combs[ch][i].buf)
			fx.combs[ch][i].pos = 0
			fx.combs[ch][i].filt = 0
		}
		for i := range fx.allpass[ch] {
			clear(fx.allpass[ch][i].buf)
			fx.allpass[ch][i].pos = 0
		}
	}
	clear(fx.preBuf)
}

// process runs the whole chain in place over one block.
func (fx *effectsChain) process(outL, outR []float32, snap *renderSnapshot, mod *modValues, lut *lutContext) {
	if !fx.prepared {
		return
	}
	for _, kind := range snap.Effects.Order {
		switch kind {
		case FXDistortion:
			fx.processDistortion(outL, outR, &snap.Effects.Distortion, lut)
		case FXChorus:
			fx.processChorus(outL, outR, &snap.Effects.Chorus, mod, lut)
		case FXDelay:
			fx.processDelay(outL, outR, &snap.Effects.Delay, snap.Tempo, mod)
		case FXReverb:
			fx.processReverb(outL, outR, &snap.Effects.Reverb, mod, lut)
		}
	}
}

func (fx *effectsChain) processDistortion(outL, outR []float32, p *DistortionParams, lut *lutContext) {
	if p.Shape == DistOff || p.Mix <= 0 {
		return
	}
	drive := 1 + clamp01(p.Drive)*9
	mix := clamp01(p.Mix)

	// Crush resolution, from 16 bits at zero drive down to 2.
	bits := 16 - clamp01(p.Drive)*14
	crushScale := float32(math.Exp2(float64(bits - 1)))

	// Decimator hold length, keep every Nth sample.
	holdEvery := 1 + int(clamp01(p.Drive)*31)

	for i := range outL {
		outL[i] = fx.distortSample(0, outL[i], p.Shape, drive, mix, crushScale, holdEvery, lut)
		outR[i] = fx.distortSample(1, outR[i], p.Shape, drive, mix, crushScale, holdEvery, lut)
	}
}

func (fx *effectsChain) distortSample(ch int, x float32, shape DistortionShape, drive, mix, crushScale float32, holdEvery int, lut *lutContext) float32 {
	var y float32
	switch shape {
	case DistSoft:
		y = lut.Tanh(x * drive)
	case DistHard:
		y = clampF(x*drive, -1, 1)
	case DistFold:
		y = foldback(x * drive)
	case DistAsym:
		// Positive half driven harder than the negative; still maps 0 to 0.
		if x >= 0 {
			y = lut.Tanh(x * drive * 1.5)
		} else {
			y = lut.Tanh(x * drive * 0.5)
		}
	case DistTube:
		// Grid-biased tanh stage adds even harmonics; the idle response is
		// subtracted so zero in stays zero out, and the scale holds the
		// negative rail at -1.
		idle := lut.Tanh(0.4)
		y = (lut.Tanh(x*drive+0.4) - idle) * 0.7247
	case DistCrush:
		d := clampF(x*drive, -1, 1)
		y = float32(math.Round(float64(d*crushScale))) / crushScale
	case DistDecimate:
		if fx.decimCount[ch] == 0 {
			fx.decimHold[ch] = clampF(x*drive, -1, 1)
		}
		fx.decimCount[ch]++
		if fx.decimCount[ch] >= holdEvery {
			fx.decimCount[ch] = 0
		}
		y = fx.decimHold[ch]
	default:
		return x
	}
	return x + (y-x)*mix
}

// foldback reflects the signal off the +-1 rails until it lands inside.
func foldback(x float32) float32 {
	for x > 1 || x < -1 {
		if x > 1 {
			x = 2 - x
		}
		if x < -1 {
			x = -2 - x
		}
	}
	return x
}

func (fx *effectsChain) processChorus(outL, outR []float32, p *ChorusParams, mod *modValues, lut *lutContext) {
	rate := float64(clampF(p.RateHz+mod[DestChorusRate]*5, 0.01, 10))
	inc := rate / fx.sampleRate
	mix := clamp01(p.Mix + mod[DestChorusMix])
	n := len(outL)

	if !p.Enabled || mix <= 0 {
		// Keep the sweep moving so re-enabling does not jump.
		fx.chorusPhase = math.Mod(fx.chorusPhase+float64(n)*inc, 1)
		return
	}

	depth := CHORUS_DEPTH_SEC * float64(clamp01(p.Depth)) * fx.sampleRate
	base := CHORUS_BASE_SEC * fx.sampleRate
	bufL := fx.chorusBuf[0]
	bufR := fx.chorusBuf[1]
	size := len(bufL)

	for i := 0; i < n; i++ {
		bufL[fx.chorusPos] = outL[i]
		bufR[fx.chorusPos] = outR[i]

		phR := fx.chorusPhase + 0.25
		if phR >= 1 {
			phR -= 1
		}
		delL := base + depth*(0.5+0.5*float64(lut.SinTurns(float32(fx.chorusPhase))))
		delR := base + depth*(0.5+0.5*float64(lut.SinTurns(float32(phR))))

		wetL := readFrac(bufL, fx.chorusPos, delL)
		wetR := readFrac(bufR, fx.chorusPos, delR)
		outL[i] = outL[i]*(1-mix) + wetL*mix
		outR[i] = outR[i]*(1-mix) + wetR*mix

		fx.chorusPos++
		if fx.chorusPos >= size {
			fx.chorusPos = 0
		}
		fx.chorusPhase += inc
		if fx.chorusPhase >= 1 {
			fx.chorusPhase -= 1
		}
	}
}

// readFrac reads delaySamples behind writePos with linear interpolation.
func readFrac(buf []float32, writePos int, delaySamples float64) float32 {
	n := len(buf)
	rp := float64(writePos) - delaySamples
	for rp < 0 {
		rp += float64(n)
	}
	i0 := int(rp)
	frac := float32(rp - float64(i0))
	i1 := i0 + 1
	if i1 >= n {
		i1 -= n
	}
	return buf[i0] + (buf[i1]-buf[i0])*frac
}

func (fx *effectsChain) processDelay(outL, outR []float32, p *DelayParams, bpm float64, mod *modValues) {
	if !p.Enabled {
		return
	}
	timeSec := float64(p.TimeSec)
	if p.Sync != DivOff && bpm > 0 {
		timeSec = divisionBeats[p.Sync] * 60.0 / bpm
	}
	timeSec = math.Min(math.Max(timeSec, 0.001), DELAY_MAX_SEC)
	delaySamples := int(timeSec * fx.sampleRate)
	if delaySamples < 1 {
		delaySamples = 1
	}

	fb := clampF(p.Feedback+mod[DestDelayFeedback], 0, DELAY_FEEDBACK_MAX)
	mix := clamp01(p.Mix + mod[DestDelayMix])
	dampCoef := clamp01(p.Damp) * 0.95
	bufL := fx.delayBuf[0]
	bufR := fx.delayBuf[1]
	size := len(bufL)

	for i := range outL {
		rp := fx.delayPos - delaySamples
		if rp < 0 {
			rp += size
		}
		tapL := bufL[rp]
		tapR := bufR[rp]

		// Damped feedback.
		fx.delayLP[0] += (tapL - fx.delayLP[0]) * (1 - dampCoef)
		fx.delayLP[1] += (tapR - fx.delayLP[1]) * (1 - dampCoef)
		fx.delayLP[0] = flushDenorm(fx.delayLP[0])
		fx.delayLP[1] = flushDenorm(fx.delayLP[1])

		if p.PingPong {
			bufL[fx.delayPos] = outL[i] + fx.delayLP[1]*fb
			bufR[fx.delayPos] = outR[i] + fx.delayLP[0]*fb
		} else {
			bufL[fx.delayPos] = outL[i] + fx.delayLP[0]*fb
			bufR[fx.delayPos] = outR[i] + fx.delayLP[1]*fb
		}

		outL[i] = outL[i]*(1-mix) + tapL*mix
		outR[i] = outR[i]*(1-mix) + tapR*mix

		fx.delayPos++
		if fx.delayPos >= size {
			fx.delayPos = 0
		}
	}
}

func (fx *effectsChain) processReverb(outL, outR []float32, p *ReverbParams, mod *modValues, lut *lutContext) {
	mix := clamp01(p.Mix + mod[DestReverbMix])
	if !p.Enabled || mix <= 0 {
		return
	}
	feedback := clamp01(p.Size)*0.85 + 0.1
	damp := clamp01(p.Damp) * 0.4

	preSamples := int(float64(clampF(p.PreDelaySec, 0, REVERB_PREDELAY_MAX_SEC)) * fx.sampleRate)
	if preSamples >= len(fx.preBuf) {
		preSamples = len(fx.preBuf) - 1
	}

	// Slow per-comb read wobble, under two samples of depth.
	const wobbleDepth = 1.5
	wobbleInc := 0.11 / fx.sampleRate

	for i := range outL {
		in := (outL[i] + outR[i]) * 0.5 * REVERB_INPUT_GAIN

		rp := fx.prePos - preSamples
		if rp < 0 {
			rp += len(fx.preBuf)
		}
		d := fx.preBuf[rp]
		fx.preBuf[fx.prePos] = in
		fx.prePos++
		if fx.prePos >= len(fx.preBuf) {
			fx.prePos = 0
		}

		var wetL, wetR float32
		for c := range fx.combs[0] {
			wetL += fx.combs[0][c].process(d, feedback, damp, wobbleDepth, wobbleInc*(1+0.13*float64(c)), lut)
			wetR += fx.combs[1][c].process(d, feedback, damp, wobbleDepth, wobbleInc*(1+0.17*float64(c)), lut)
		}
		for a := range fx.allpass[0] {
			wetL = fx.allpass[0][a].process(wetL)
			wetR = fx.allpass[1][a].process(wetR)
		}

		outL[i] = outL[i]*(1-mix) + wetL*mix
		outR[i] = outR[i]*(1-mix) + wetR*mix
	}
}

func (c *combState) process(x, feedback, damp float32, modDepth, modInc float64, lut *lutContext) float32 {
	n := len(c.buf)
	c.lfoPhase += modInc
	if c.lfoPhase >= 1 {
		c.lfoPhase -= 1
	}
	offset := float64(n-2) - modDepth*(0.5+0.5*float64(lut.SinTurns(float32(c.lfoPhase))))
	out := readFrac(c.buf, c.pos, offset)

	c.filt = out*(1-damp) + c.filt*damp
	c.filt = flushDenorm(c.filt)
	c.buf[c.pos] = x + c.filt*feedback
	c.pos++
	if c.pos >= n {
		c.pos = 0
	}
	return out
}

func (ap *allpassState) process(x float32) float32 {
	stored := ap.buf[ap.pos]
	out := stored - x
	ap.buf[ap.pos] = flushDenorm(x + stored*0.5)
	ap.pos++
	if ap.pos >= len(ap.buf) {
		ap.pos = 0
	}
	return out
}
