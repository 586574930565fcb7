// synth_filter_test.go - Filter bank coefficient and response tests

package main

import (
	"math"
	"testing"
)

// filterRun pushes n samples of src through a freshly derived filter and
// returns the output.
func filterRun(p FilterParams, src []float32) []float32 {
	var c filterCoeffs
	computeFilterCoeffs(&p, 0, 0, 0, 60, 48000, &c)
	st := &filterState{}
	st.allocate(48000)
	lut := newLUTContext()

	out := make([]float32, len(src))
	for i, x := range src {
		out[i] = st.process(&c, lut, x)
	}
	return out
}

func noiseBuf(n int, seed uint32) []float32 {
	buf := make([]float32, n)
	r := seed
	for i := range buf {
		r = xorshift32(r)
		buf[i] = bipolar(r)
	}
	return buf
}

func alternatingBuf(n int) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		if i%2 == 0 {
			buf[i] = 1
		} else {
			buf[i] = -1
		}
	}
	return buf
}

func TestFilter_OffIsIdentity(t *testing.T) {
	src := noiseBuf(256, 7)
	out := filterRun(FilterParams{Type: FilterOff}, src)
	for i := range src {
		if out[i] != src[i] {
			t.Fatalf("Bypass altered sample %d: %f -> %f", i, src[i], out[i])
		}
	}
}

func TestFilter_CutoffMapping(t *testing.T) {
	if got := cutoffNormToHz(0, 48000); math.Abs(float64(got)-20) > 0.01 {
		t.Errorf("cutoffNormToHz(0) = %f, expected 20", got)
	}
	if got := cutoffNormToHz(1, 48000); math.Abs(float64(got)-23520) > 1 {
		t.Errorf("cutoffNormToHz(1) = %f, expected 23520", got)
	}
	prev := float32(0)
	for _, n := range []float32{0, 0.25, 0.5, 0.75, 1} {
		hz := cutoffNormToHz(n, 48000)
		if hz <= prev {
			t.Errorf("Cutoff curve not monotonic at %f: %f after %f", n, hz, prev)
		}
		prev = hz
	}
}

// TestFilter_LowpassAttenuatesNyquist verifies the SVF lowpass kills the
// fastest possible alternation while passing DC at unity.
func TestFilter_LowpassAttenuatesNyquist(t *testing.T) {
	p := FilterParams{Type: FilterSVFLow, Cutoff: 0.3, Resonance: 0.1}

	out := filterRun(p, alternatingBuf(1024))
	var rms float64
	for _, v := range out[256:] {
		rms += float64(v) * float64(v)
	}
	rms = math.Sqrt(rms / float64(len(out)-256))
	if rms > 0.2 {
		t.Errorf("Nyquist RMS through lowpass = %f, expected heavy attenuation", rms)
	}

	dc := make([]float32, 4800)
	for i := range dc {
		dc[i] = 1
	}
	settled := filterRun(p, dc)
	if got := settled[len(settled)-1]; math.Abs(float64(got)-1.0) > 0.1 {
		t.Errorf("Lowpass DC gain = %f, expected ~1", got)
	}
}

func TestFilter_HighpassPassesNyquist(t *testing.T) {
	p := FilterParams{Type: FilterSVFHigh, Cutoff: 0.3, Resonance: 0.1}
	out := filterRun(p, alternatingBuf(1024))
	stats := computeStats(out[256:])
	if stats.rms < 0.7 {
		t.Errorf("Nyquist RMS through highpass = %f, expected near unity", stats.rms)
	}

	dc := make([]float32, 4800)
	for i := range dc {
		dc[i] = 1
	}
	settled := filterRun(p, dc)
	if got := settled[len(settled)-1]; math.Abs(float64(got)) > 0.05 {
		t.Errorf("Highpass DC leak = %f, expected ~0", got)
	}
}

func TestFilter_BandpassRejectsDC(t *testing.T) {
	p := FilterParams{Type: FilterSVFBand, Cutoff: 0.4, Resonance: 0.3}
	dc := make([]float32, 4800)
	for i := range dc {
		dc[i] = 1
	}
	out := filterRun(p, dc)
	if got := out[len(out)-1]; math.Abs(float64(got)) > 0.05 {
		t.Errorf("Bandpass DC leak = %f, expected ~0", got)
	}
}

// TestFilter_24dBSteeperThan12dB verifies the cascaded SVF attenuates an
// out-of-band tone harder than the single stage.
func TestFilter_24dBSteeperThan12dB(t *testing.T) {
	// 2 kHz sine against a ~166 Hz cutoff.
	src := make([]float32, 4800)
	for i := range src {
		src[i] = float32(math.Sin(2 * math.Pi * 2000 * float64(i) / 48000))
	}
	p12 := FilterParams{Type: FilterSVFLow, Cutoff: 0.3, Resonance: 0.1}
	p24 := FilterParams{Type: FilterSVF24, Cutoff: 0.3, Resonance: 0.1}

	rms12 := computeStats(filterRun(p12, src)[1200:]).rms
	rms24 := computeStats(filterRun(p24, src)[1200:]).rms
	if rms24 >= rms12*0.5 {
		t.Errorf("24 dB RMS = %f vs 12 dB %f, expected at least twice the attenuation", rms24, rms12)
	}
}

func TestFilter_ResetClearsState(t *testing.T) {
	var c filterCoeffs
	p := FilterParams{Type: FilterSVFLow, Cutoff: 0.5, Resonance: 0.5}
	computeFilterCoeffs(&p, 0, 0, 0, 60, 48000, &c)
	st := &filterState{}
	st.allocate(48000)
	lut := newLUTContext()

	for _, x := range noiseBuf(512, 3) {
		st.process(&c, lut, x)
	}
	st.reset()
	if got := st.process(&c, lut, 0); got != 0 {
		t.Errorf("First sample after reset = %f, expected 0", got)
	}
}

// TestFilter_SVFStaysBounded sweeps the state-variable modes across the top
// of the cutoff range, where the recurrence runs closest to its pole bound.
// Low resonance is the worst case: damping peaks there.
func TestFilter_SVFStaysBounded(t *testing.T) {
	modes := []FilterType{FilterSVFLow, FilterSVFBand, FilterSVFHigh, FilterSVFNotch, FilterSVF24}
	for _, mode := range modes {
		for _, cutoff := range []float32{0.7, 0.85, 1.0} {
			for _, res := range []float32{0, 0.25, 0.5, 1.0} {
				p := FilterParams{Type: mode, Cutoff: cutoff, Resonance: res}
				out := filterRun(p, noiseBuf(4800, 23))
				for i, v := range out {
					if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
						t.Fatalf("SVF mode %d cutoff %.2f res %.2f produced %f at sample %d", mode, cutoff, res, v, i)
					}
					if v > 100 || v < -100 {
						t.Fatalf("SVF mode %d cutoff %.2f res %.2f blew up at sample %d: %f", mode, cutoff, res, i, v)
					}
				}
			}
		}
	}
}

func TestFilter_LadderStaysBounded(t *testing.T) {
	p := FilterParams{Type: FilterLadder, Cutoff: 0.5, Resonance: 1, Drive: 10}
	out := filterRun(p, noiseBuf(4800, 11))
	for i, v := range out {
		if math.IsNaN(float64(v)) {
			t.Fatalf("Ladder produced NaN at sample %d", i)
		}
		if v > 4 || v < -4 {
			t.Fatalf("Ladder blew up at sample %d: %f", i, v)
		}
	}
}

func TestFilter_AcidStaysBounded(t *testing.T) {
	p := FilterParams{Type: FilterAcid, Cutoff: 0.6, Resonance: 1, Drive: 8}
	out := filterRun(p, noiseBuf(4800, 13))
	for i, v := range out {
		if math.IsNaN(float64(v)) {
			t.Fatalf("Acid filter produced NaN at sample %d", i)
		}
		if v > 4 || v < -4 {
			t.Fatalf("Acid filter blew up at sample %d: %f", i, v)
		}
	}
}

// TestFilter_CombEchoesAtPitchPeriod verifies the comb delay line lands its
// first echo one cutoff period after the impulse.
func TestFilter_CombEchoesAtPitchPeriod(t *testing.T) {
	src := make([]float32, 256)
	src[0] = 1
	// Cutoff 0.5 is ~686 Hz at 48 kHz, a 69-sample period.
	out := filterRun(FilterParams{Type: FilterComb, Cutoff: 0.5, Resonance: 0.5}, src)

	if out[0] != 1 {
		t.Errorf("Comb dry impulse = %f, expected 1", out[0])
	}
	if out[35] != 0 {
		t.Errorf("Comb output before the first echo = %f, expected 0", out[35])
	}
	if out[69] < 0.1 {
		t.Errorf("Comb echo at the period = %f, expected feedback energy", out[69])
	}
}

func TestFilter_FormantShapesNoise(t *testing.T) {
	p := FilterParams{Type: FilterFormant, Cutoff: 0.2, Resonance: 0.5}
	out := filterRun(p, noiseBuf(9600, 17))
	stats := computeStats(out[1200:])
	if stats.rms < 0.01 {
		t.Errorf("Formant RMS = %f, expected audible output", stats.rms)
	}
	for i, v := range out {
		if math.IsNaN(float64(v)) || v > 10 || v < -10 {
			t.Fatalf("Formant unstable at sample %d: %f", i, v)
		}
	}
}

// TestFilter_AllpassShiftsPhase verifies the phaser stage changes the
// waveform without adding or removing much energy.
func TestFilter_AllpassShiftsPhase(t *testing.T) {
	src := noiseBuf(4800, 19)
	out := filterRun(FilterParams{Type: FilterAllpass, Cutoff: 0.4, Resonance: 0.3}, src)

	var diff float64
	for i := range src {
		diff += math.Abs(float64(out[i] - src[i]))
	}
	if diff/float64(len(src)) < 0.01 {
		t.Error("Allpass output identical to input")
	}
	stats := computeStats(out[480:])
	if stats.rms < 0.1 || stats.rms > 1.2 {
		t.Errorf("Allpass RMS = %f, expected roughly unity energy", stats.rms)
	}
}

func TestFilter_KeytrackRaisesCutoff(t *testing.T) {
	p := FilterParams{Type: FilterSVFLow, Cutoff: 0.3, Resonance: 0.1, Keytrack: 1}
	var low, high filterCoeffs
	computeFilterCoeffs(&p, 0, 0, 0, 60, 48000, &low)
	computeFilterCoeffs(&p, 0, 0, 0, 84, 48000, &high)
	if high.f <= low.f {
		t.Errorf("Keytracked f at note 84 = %f, expected above note 60's %f", high.f, low.f)
	}
}

func TestFilter_EnvelopeOpensCutoff(t *testing.T) {
	p := FilterParams{Type: FilterSVFLow, Cutoff: 0.2, Resonance: 0.1, EnvDepth: 1}
	var closed, open filterCoeffs
	computeFilterCoeffs(&p, 0, 0, 0, 60, 48000, &closed)
	computeFilterCoeffs(&p, 0, 0, 1, 60, 48000, &open)
	if open.f <= closed.f {
		t.Errorf("Envelope-driven f = %f, expected above the static %f", open.f, closed.f)
	}
}

func TestFilter_DriveFloorsAtUnity(t *testing.T) {
	p := FilterParams{Type: FilterLadder, Cutoff: 0.5, Drive: 0}
	var c filterCoeffs
	computeFilterCoeffs(&p, 0, 0, 0, 60, 48000, &c)
	if c.drive != 1 {
		t.Errorf("Derived drive = %f, expected floor at 1", c.drive)
	}
}
