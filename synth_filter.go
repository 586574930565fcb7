// synth_filter.go - Per-voice filter bank

/*
Each voice carries two filter slots in series. Types: Chamberlin
state-variable (low/band/high/notch, plus a cascaded 24 dB variant), a
Huovilainen-flavored Moog ladder with tanh saturation in the feedback path,
a three-formant vowel filter, a feedback comb, a four-stage phaser allpass,
and an acid-flavored 4-pole.

Coefficients are derived once per block from the snapshot (cutoff and
resonance are modulation destinations); the per-sample path is a switch on
the filter kind over plain float state, no interface dispatch. The SVF caps
its frequency coefficient against its damping so both recurrence poles stay
inside the unit circle at every cutoff/resonance pairing; the ladder and
acid types are allowed to self-oscillate because their feedback passes
through tanh, which bounds the loop. Recursive state is denormal-flushed and
zeroed whenever a voice is reclaimed or the engine resets.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

import "math"

type FilterType int32

const (
	FilterOff FilterType = iota
	FilterSVFLow
	FilterSVFBand
	FilterSVFHigh
	FilterSVFNotch
	FilterSVF24
	FilterLadder
	FilterFormant
	FilterComb
	FilterAllpass
	FilterAcid
	numFilterTypes
)

// Full-scale envelope/keytrack swing on cutoff, in octaves.
const FILTER_ENV_OCTAVES = 5.0

// Peterson/Barney male vowel formants, Hz. The formant filter morphs along
// this list as cutoff sweeps 0..1; the vocal factory wavetable is built from
// the same data.
var vowelFormants = [5][3]float32{
	{730, 1090, 2440}, // A
	{530, 1840, 2480}, // E
	{390, 1990, 2550}, // I
	{570, 840, 2410},  // O
	{440, 1020, 2240}, // U
}

var formantAmps = [3]float32{1.0, 0.7, 0.35}

// FilterParams is the control-thread view of one filter slot.
type FilterParams struct {
	Type      FilterType
	Cutoff    float32 // normalized 0..1, exponential 20 Hz .. 0.49*sr
	Resonance float32 // 0..1
	Drive     float32 // 1..10, input drive for ladder/acid
	Keytrack  float32 // -1..1, cutoff follows note distance from C4
	EnvDepth  float32 // -1..1, envelope 2 -> cutoff, FILTER_ENV_OCTAVES full scale
}

// cutoffNormToHz maps normalized cutoff to Hz on an exponential curve.
func cutoffNormToHz(norm float32, sampleRate float64) float32 {
	maxHz := MAX_CUTOFF_RATIO * float32(sampleRate)
	norm = clamp01(norm)
	return float32(MIN_CUTOFF_HZ * math.Pow(float64(maxHz/MIN_CUTOFF_HZ), float64(norm)))
}

// filterCoeffs is the per-block derived state shared by every sample of the
// block.
type filterCoeffs struct {
	kind FilterType

	// Chamberlin SVF
	f    float32
	damp float32

	// ladder / acid
	g     float32
	fb    float32
	drive float32

	// comb
	combDelay int
	combFb    float32
	combDamp  float32

	// allpass
	apK  float32
	apFb float32

	// formant
	ff    [3]float32
	fdamp float32
}

// filterState is the per-voice recursive memory for one slot. The comb
// buffer is sized at Prepare() and never reallocated.
type filterState struct {
	// Chamberlin stages (second pair for the 24 dB cascade)
	low1, band1 float32
	low2, band2 float32

	// ladder stages and cached tanh values
	s1, s2, s3, s4 float32
	t1, t2, t3, t4 float32

	// formant bandpass trio
	fLow  [3]float32
	fBand [3]float32

	// comb
	comb     []float32
	combPos  int
	combLP   float32

	// allpass cascade (x/y memory per stage) and phaser feedback
	apX  [4]float32
	apY  [4]float32
	apOut float32
}

// allocate reserves the comb buffer for the prepared sample rate.
func (st *filterState) allocate(sampleRate float64) {
	capacity := int(sampleRate/MIN_CUTOFF_HZ) + 2
	if cap(st.comb) < capacity {
		st.comb = make([]float32, capacity)
	} else {
		st.comb = st.comb[:capacity]
	}
}

// reset zeroes all recursive state. Runs on voice reclaim and engine reset.
func (st *filterState) reset() {
	st.low1, st.band1, st.low2, st.band2 = 0, 0, 0, 0
	st.s1, st.s2, st.s3, st.s4 = 0, 0, 0, 0
	st.t1, st.t2, st.t3, st.t4 = 0, 0, 0, 0
	st.fLow = [3]float32{}
	st.fBand = [3]float32{}
	clear(st.comb)
	st.combPos = 0
	st.combLP = 0
	st.apX = [4]float32{}
	st.apY = [4]float32{}
	st.apOut = 0
}

// computeFilterCoeffs derives one slot's block coefficients. cutoffOffset and
// resOffset are the matrix sums for this voice; envLevel is envelope 2 at
// block start; note is the sounding MIDI note for keytracking.
func computeFilterCoeffs(p *FilterParams, cutoffOffset, resOffset, envLevel float32, note float32, sampleRate float64, out *filterCoeffs) {
	out.kind = p.Type
	if p.Type == FilterOff {
		return
	}

	res := clamp01(p.Resonance + resOffset)
	norm := clamp01(p.Cutoff + cutoffOffset)
	hz := cutoffNormToHz(norm, sampleRate)

	octaves := float64(p.EnvDepth)*float64(envLevel)*FILTER_ENV_OCTAVES +
		float64(p.Keytrack)*float64(note-60.0)/12.0
	if octaves != 0 {
		hz = float32(float64(hz) * math.Exp2(octaves))
	}
	maxHz := MAX_CUTOFF_RATIO * float32(sampleRate)
	hz = clampF(hz, MIN_CUTOFF_HZ, maxHz)

	drive := p.Drive
	if drive < 1 {
		drive = 1
	}

	switch p.Type {
	case FilterSVFLow, FilterSVFBand, FilterSVFHigh, FilterSVFNotch, FilterSVF24:
		// Chamberlin needs headroom well below Nyquist.
		svfHz := hz
		if limit := float32(sampleRate) * 0.22; svfHz > limit {
			svfHz = limit
		}
		out.damp = 2.0 * (1.0 - res*0.97)
		if out.damp < 0.05 {
			out.damp = 0.05
		}
		out.f = 2.0 * float32(math.Sin(math.Pi*float64(svfHz)/sampleRate))
		// Both recurrence poles stay inside the unit circle only while
		// f*damp < 2 and f*(f+2*damp) < 4; the second bound is the tighter
		// one for any damp up to 2. Weakly resonant settings lose their top
		// octave to this cap instead of diverging.
		fMax := 0.9 * (float32(math.Sqrt(float64(out.damp)*float64(out.damp)+4)) - out.damp)
		if out.f > fMax {
			out.f = fMax
		}

	case FilterLadder:
		fc := float64(hz) / (sampleRate * 0.5)
		if fc > 1 {
			fc = 1
		}
		out.g = float32(0.9892*fc - 0.4342*fc*fc + 0.1381*fc*fc*fc - 0.0202*fc*fc*fc*fc)
		resCorr := float64(res) * (1.0029 + 0.0526*fc - 0.926*fc*fc + 0.0218*fc*fc*fc)
		out.fb = float32(resCorr * 4.0)
		out.drive = drive

	case FilterAcid:
		out.g = float32(1.0 - math.Exp(-2.0*math.Pi*float64(hz)/sampleRate))
		out.fb = res * 4.0
		out.drive = drive

	case FilterFormant:
		v := clamp01(norm) * float32(len(vowelFormants)-1)
		v0 := int(v)
		frac := v - float32(v0)
		v1 := v0 + 1
		if v1 >= len(vowelFormants) {
			v1 = len(vowelFormants) - 1
			frac = 0
		}
		for i := 0; i < 3; i++ {
			fhz := vowelFormants[v0][i] + frac*(vowelFormants[v1][i]-vowelFormants[v0][i])
			if limit := float32(sampleRate) * 0.22; fhz > limit {
				fhz = limit
			}
			out.ff[i] = 2.0 * float32(math.Sin(math.Pi*float64(fhz)/sampleRate))
		}
		out.fdamp = 0.1 + (1.0-res)*0.35

	case FilterComb:
		delay := int(sampleRate / float64(hz))
		out.combDelay = delay
		out.combFb = res * 0.98
		out.combDamp = 0.2 + res*0.3

	case FilterAllpass:
		t := float32(math.Tan(math.Pi * float64(hz) / sampleRate))
		out.apK = (t - 1) / (t + 1)
		out.apFb = res * 0.9
	}
}

// process runs one sample through the slot.
//
//go:nosplit
func (st *filterState) process(c *filterCoeffs, lut *lutContext, x float32) float32 {
	switch c.kind {
	case FilterOff:
		return x

	case FilterSVFLow, FilterSVFBand, FilterSVFHigh, FilterSVFNotch:
		st.low1 += c.f * st.band1
		high := x - st.low1 - c.damp*st.band1
		st.band1 += c.f * high
		st.low1 = flushDenorm(st.low1)
		st.band1 = flushDenorm(st.band1)
		switch c.kind {
		case FilterSVFBand:
			return st.band1
		case FilterSVFHigh:
			return high
		case FilterSVFNotch:
			return high + st.low1
		default:
			return st.low1
		}

	case FilterSVF24:
		st.low1 += c.f * st.band1
		high := x - st.low1 - c.damp*st.band1
		st.band1 += c.f * high
		st.low2 += c.f * st.band2
		high2 := st.low1 - st.low2 - c.damp*st.band2
		st.band2 += c.f * high2
		st.low1 = flushDenorm(st.low1)
		st.band1 = flushDenorm(st.band1)
		st.low2 = flushDenorm(st.low2)
		st.band2 = flushDenorm(st.band2)
		return st.low2

	case FilterLadder:
		in := lut.Tanh((x - c.fb*(st.s4-0.5*x)) * c.drive * 0.5)
		st.s1 += c.g * (in - st.t1)
		st.t1 = lut.Tanh(st.s1)
		st.s2 += c.g * (st.t1 - st.t2)
		st.t2 = lut.Tanh(st.s2)
		st.s3 += c.g * (st.t2 - st.t3)
		st.t3 = lut.Tanh(st.s3)
		st.s4 += c.g * (st.t3 - st.t4)
		st.t4 = lut.Tanh(st.s4)
		st.s4 = flushDenorm(st.s4)
		return st.s4

	case FilterAcid:
		in := lut.Tanh((x*c.drive - c.fb*st.s4) * 0.8)
		st.s1 += c.g * (in - st.s1)
		st.s2 += c.g * (lut.Tanh(st.s1) - st.s2)
		st.s3 += c.g * (st.s2 - st.s3)
		st.s4 += c.g * (st.s3 - st.s4)
		st.s1 = flushDenorm(st.s1)
		st.s4 = flushDenorm(st.s4)
		return st.s4

	case FilterFormant:
		out := float32(0)
		for i := 0; i < 3; i++ {
			st.fLow[i] += c.ff[i] * st.fBand[i]
			high := x - st.fLow[i] - c.fdamp*st.fBand[i]
			st.fBand[i] += c.ff[i] * high
			st.fLow[i] = flushDenorm(st.fLow[i])
			st.fBand[i] = flushDenorm(st.fBand[i])
			out += st.fBand[i] * formantAmps[i]
		}
		return out

	case FilterComb:
		delay := c.combDelay
		if delay >= len(st.comb) {
			delay = len(st.comb) - 1
		}
		if delay < 2 {
			delay = 2
		}
		readPos := st.combPos - delay
		if readPos < 0 {
			readPos += len(st.comb)
		}
		read := st.comb[readPos]
		st.combLP += c.combDamp * (read - st.combLP)
		st.combLP = flushDenorm(st.combLP)
		out := x + st.combLP*c.combFb
		st.comb[st.combPos] = out
		st.combPos++
		if st.combPos >= len(st.comb) {
			st.combPos = 0
		}
		return out

	case FilterAllpass:
		in := x + st.apOut*c.apFb
		for i := 0; i < 4; i++ {
			y := c.apK*in + st.apX[i] - c.apK*st.apY[i]
			st.apX[i] = in
			st.apY[i] = flushDenorm(y)
			in = y
		}
		st.apOut = in
		return 0.5 * (x + in)
	}
	return x
}
