// synth_lfo_test.go - LFO bank shape, sync and determinism tests

package main

import (
	"math"
	"testing"
)

func TestLFO_RateResolution(t *testing.T) {
	if got := lfoRateHz(&LFOParams{RateHz: 3.5}, 120); got != 3.5 {
		t.Errorf("Free rate = %f, expected 3.5", got)
	}
	// A quarter note at 120 bpm is 2 Hz.
	if got := lfoRateHz(&LFOParams{Sync: Div1_4}, 120); math.Abs(float64(got)-2.0) > 1e-6 {
		t.Errorf("1/4 at 120 bpm = %f, expected 2", got)
	}
	if got := lfoRateHz(&LFOParams{Sync: Div1_8Dot}, 120); math.Abs(float64(got)-2.6667) > 1e-3 {
		t.Errorf("Dotted 1/8 at 120 bpm = %f, expected ~2.667", got)
	}
	// Sync with a dead tempo falls back to the free rate.
	if got := lfoRateHz(&LFOParams{Sync: Div1_4, RateHz: 9}, 0); got != 9 {
		t.Errorf("Sync at 0 bpm = %f, expected fallback to 9", got)
	}
}

func TestLFO_ShapeValues(t *testing.T) {
	b := &lfoBank{}
	b.reset(1)
	lut := newLUTContext()
	store := newWavetableStore()
	limit := store.Count()

	at := func(shape LFOShape, phase float32) float32 {
		p := &LFOParams{Shape: shape, Depth: 1, Table: TABLE_SINE}
		return b.valueAt(0, p, phase, 1, lut, store, limit)
	}

	cases := []struct {
		name  string
		shape LFOShape
		phase float32
		want  float64
	}{
		{"triangle start", LFOTriangle, 0, -1},
		{"triangle quarter", LFOTriangle, 0.25, 0},
		{"triangle peak", LFOTriangle, 0.5, 1},
		{"sawup", LFOSawUp, 0.75, 0.5},
		{"sawdown", LFOSawDown, 0.75, -0.5},
		{"square high", LFOSquare, 0.25, 1},
		{"square low", LFOSquare, 0.75, -1},
		{"sine peak", LFOSine, 0.25, 1},
		{"table sine peak", LFOWavetable, 0.25, 1},
	}
	for _, c := range cases {
		if got := at(c.shape, c.phase); math.Abs(float64(got)-c.want) > 1e-3 {
			t.Errorf("%s = %f, expected %f", c.name, got, c.want)
		}
	}
}

func TestLFO_DepthScalesOutput(t *testing.T) {
	b := &lfoBank{}
	b.reset(1)
	lut := newLUTContext()
	store := newWavetableStore()

	p := &LFOParams{Shape: LFOTriangle, Depth: 0.5}
	if got := b.valueAt(0, p, 0.5, 1, lut, store, store.Count()); math.Abs(float64(got)-0.5) > 1e-6 {
		t.Errorf("Half-depth triangle peak = %f, expected 0.5", got)
	}
	p.Depth = 0
	if got := b.valueAt(0, p, 0.5, 1, lut, store, store.Count()); got != 0 {
		t.Errorf("Zero-depth output = %f, expected 0", got)
	}
}

func TestLFO_PhaseWrapsAfterFullCycle(t *testing.T) {
	b := &lfoBank{}
	b.reset(1)
	var params [NUM_LFOS]LFOParams
	params[0] = LFOParams{Shape: LFOTriangle, RateHz: 10, Depth: 1}

	// 4800 samples at 10 Hz / 48 kHz is exactly one cycle.
	b.advance(&params, 48000, 120, 4800)
	if phase := b.states[0].phase; phase > 0.01 {
		t.Errorf("Phase after one full cycle = %f, expected wrap to ~0", phase)
	}
}

// TestLFO_SampleHoldRefreshesOnWrap verifies the held value is stable within
// a cycle and redrawn at the wrap.
func TestLFO_SampleHoldRefreshesOnWrap(t *testing.T) {
	b := &lfoBank{}
	b.reset(7)
	lut := newLUTContext()
	store := newWavetableStore()
	var params [NUM_LFOS]LFOParams
	params[0] = LFOParams{Shape: LFOSampleHold, RateHz: 10, Depth: 1}
	p := &params[0]

	first := b.valueAt(0, p, 0, 1, lut, store, store.Count())
	b.advance(&params, 48000, 120, 2400) // half a cycle
	if got := b.valueAt(0, p, 0, 1, lut, store, store.Count()); got != first {
		t.Errorf("Held value moved mid-cycle: %f then %f", first, got)
	}

	b.advance(&params, 48000, 120, 2600) // crosses the wrap
	if got := b.valueAt(0, p, 0, 1, lut, store, store.Count()); got == first {
		t.Error("Held value did not refresh after the wrap")
	}
}

// TestLFO_SmoothRandomInterpolates verifies the random shape ramps linearly
// between targets and promotes the target at the wrap.
func TestLFO_SmoothRandomInterpolates(t *testing.T) {
	b := &lfoBank{}
	b.reset(3)
	lut := newLUTContext()
	store := newWavetableStore()
	p := &LFOParams{Shape: LFOSmoothRandom, RateHz: 10, Depth: 1}

	st := &b.states[0]
	mid := (st.prevValue + st.nextValue) * 0.5
	if got := b.valueAt(0, p, 0.5, 1, lut, store, store.Count()); math.Abs(float64(got-mid)) > 1e-6 {
		t.Errorf("Midpoint = %f, expected lerp value %f", got, mid)
	}

	target := st.nextValue
	var params [NUM_LFOS]LFOParams
	params[0] = *p
	b.advance(&params, 48000, 120, 5000) // past one full cycle
	if st.prevValue != target {
		t.Errorf("prevValue after wrap = %f, expected the old target %f", st.prevValue, target)
	}
}

func TestLFO_FadeInRamps(t *testing.T) {
	b := &lfoBank{}
	b.reset(1)
	var params [NUM_LFOS]LFOParams
	params[0] = LFOParams{Shape: LFOSine, RateHz: 1, Depth: 1, FadeIn: 1}

	b.advance(&params, 48000, 120, 4800)
	if fade := b.states[0].fade; math.Abs(float64(fade)-0.1) > 0.002 {
		t.Errorf("Fade after 0.1s of a 1s fade-in = %f, expected ~0.1", fade)
	}
	for i := 0; i < 12; i++ {
		b.advance(&params, 48000, 120, 4800)
	}
	if fade := b.states[0].fade; fade != 1 {
		t.Errorf("Fade after the ramp = %f, expected clamp at 1", fade)
	}
}

func TestLFO_DeterministicSeeding(t *testing.T) {
	a := &lfoBank{}
	b := &lfoBank{}
	a.reset(42)
	b.reset(42)

	for i := 0; i < NUM_LFOS; i++ {
		if a.states[i].heldValue != b.states[i].heldValue ||
			a.states[i].nextValue != b.states[i].nextValue {
			t.Fatalf("Slot %d random state diverged across identical seeds", i)
		}
	}

	var params [NUM_LFOS]LFOParams
	for i := range params {
		params[i] = LFOParams{Shape: LFOSampleHold, RateHz: float32(5 + i), Depth: 1}
	}
	for n := 0; n < 20; n++ {
		a.advance(&params, 48000, 120, 1024)
		b.advance(&params, 48000, 120, 1024)
	}
	for i := 0; i < NUM_LFOS; i++ {
		if a.states[i].heldValue != b.states[i].heldValue {
			t.Fatalf("Slot %d diverged after identical advances", i)
		}
	}
}

// TestLFO_VibratoModulatesPitch routes a sine LFO into oscillator pitch and
// checks the output wobbles around the note without drifting off it.
func TestLFO_VibratoModulatesPitch(t *testing.T) {
	render := func(amount float32) []float32 {
		e := newGoldenEngine(t)
		p := goldenPatch()
		p.LFOs[0] = LFOParams{Shape: LFOSine, RateHz: 5, Depth: 1}
		p.Routes[0] = ModRoute{Source: SrcLFO1, Dest: DestOsc1Pitch, Amount: amount}
		e.LoadPatch(p)
		if err := e.NoteOn(69, 1.0); err != nil {
			t.Fatalf("NoteOn failed: %v", err)
		}
		outL, _ := renderStereo(t, e, 48000)
		return outL
	}

	clean := render(0)
	vibrato := render(0.05)

	var diff float64
	for i := range clean {
		diff += math.Abs(float64(clean[i] - vibrato[i]))
	}
	if diff/float64(len(clean)) < 0.01 {
		t.Error("Pitch route had no audible effect")
	}

	stats := computeStats(vibrato)
	// Vibrato is symmetric: the average rate stays at 880 crossings/s.
	if stats.zeroCrossings < 840 || stats.zeroCrossings > 920 {
		t.Errorf("Vibrato crossings = %d, expected ~880", stats.zeroCrossings)
	}
}
