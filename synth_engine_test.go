// synth_engine_test.go - Engine lifecycle, scheduling and control contract tests

package main

import (
	"errors"
	"math"
	"testing"
)

func TestEngine_RenderBeforePrepare(t *testing.T) {
	e := NewSynthEngine()
	bufL := make([]float32, 256)
	bufR := make([]float32, 256)
	if err := e.RenderBlock(bufL, bufR); !errors.Is(err, ErrNotPrepared) {
		t.Errorf("RenderBlock before Prepare = %v, expected ErrNotPrepared", err)
	}
	if err := e.NoteOn(60, 1); !errors.Is(err, ErrNotPrepared) {
		t.Errorf("NoteOn before Prepare = %v, expected ErrNotPrepared", err)
	}
}

func TestEngine_PrepareValidation(t *testing.T) {
	e := NewSynthEngine()
	if err := e.Prepare(4000, 512); err == nil {
		t.Error("Prepare accepted a 4 kHz sample rate")
	}
	if err := e.Prepare(48000, 0); err == nil {
		t.Error("Prepare accepted a zero block size")
	}
	if err := e.Prepare(48000, MAX_BLOCK_SIZE+1); err == nil {
		t.Error("Prepare accepted an oversized block")
	}
	if err := e.Prepare(48000, 512); err != nil {
		t.Errorf("Prepare(48000, 512) failed: %v", err)
	}
}

func TestEngine_BlockSizeValidation(t *testing.T) {
	e := NewSynthEngine()
	if err := e.Prepare(48000, 512); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	big := make([]float32, 1024)
	if err := e.RenderBlock(big, big); !errors.Is(err, ErrBlockSize) {
		t.Errorf("Oversized block = %v, expected ErrBlockSize", err)
	}
	if err := e.RenderBlock(make([]float32, 256), make([]float32, 255)); !errors.Is(err, ErrBlockSize) {
		t.Errorf("Mismatched channel lengths = %v, expected ErrBlockSize", err)
	}
	if err := e.RenderBlock(nil, nil); err != nil {
		t.Errorf("Empty block = %v, expected nil", err)
	}
}

// TestEngine_ScheduledEventOffset verifies sample-accurate note timing inside
// a block: nothing before the scheduled sample, sound right after it.
func TestEngine_ScheduledEventOffset(t *testing.T) {
	e := newGoldenEngine(t)
	if err := e.NoteOnAt(69, 1.0, 128); err != nil {
		t.Fatalf("NoteOnAt failed: %v", err)
	}

	bufL := make([]float32, 256)
	bufR := make([]float32, 256)
	if err := e.RenderBlock(bufL, bufR); err != nil {
		t.Fatalf("RenderBlock failed: %v", err)
	}

	for i := 0; i < 128; i++ {
		if bufL[i] != 0 {
			t.Fatalf("Output before scheduled start at sample %d: %f", i, bufL[i])
		}
	}
	heard := false
	for i := 128; i < 168; i++ {
		if math.Abs(float64(bufL[i])) > 0.01 {
			heard = true
			break
		}
	}
	if !heard {
		t.Error("No output within 40 samples of the scheduled start")
	}
}

// TestEngine_PastEventsApplyImmediately verifies that a timestamp already
// behind the sample clock fires at the top of the next block instead of
// being dropped.
func TestEngine_PastEventsApplyImmediately(t *testing.T) {
	e := newGoldenEngine(t)
	renderStereo(t, e, 256)

	if err := e.NoteOnAt(60, 1.0, 10); err != nil {
		t.Fatalf("NoteOnAt failed: %v", err)
	}
	outL, _ := renderStereo(t, e, 256)

	heard := false
	for i := 0; i < 16; i++ {
		if math.Abs(float64(outL[i])) > 0.01 {
			heard = true
			break
		}
	}
	if !heard {
		t.Error("Stale-timestamped note did not sound at the top of the block")
	}
}

// TestEngine_FutureOffDoesNotDelayDueOn verifies that an event scheduled
// ahead cannot hold back later pushes that are already due: on, off half a
// second out, then a second on must leave both notes sounding after one
// block, with the parked off still firing at its stamp.
func TestEngine_FutureOffDoesNotDelayDueOn(t *testing.T) {
	e := newGoldenEngine(t)
	if err := e.NoteOnAt(60, 0.9, 0); err != nil {
		t.Fatalf("NoteOnAt(60) failed: %v", err)
	}
	if err := e.NoteOffAt(60, 24000); err != nil {
		t.Fatalf("NoteOffAt failed: %v", err)
	}
	if err := e.NoteOnAt(64, 0.9, 0); err != nil {
		t.Fatalf("NoteOnAt(64) failed: %v", err)
	}

	renderStereo(t, e, 256)
	if n := e.ActiveVoiceCount(); n != 2 {
		t.Fatalf("ActiveVoiceCount after one block = %d, expected both notes on", n)
	}

	// Past the off stamp plus the golden release, only the unreleased
	// note may remain.
	renderStereo(t, e, 24000)
	renderStereo(t, e, 14400)
	if n := e.ActiveVoiceCount(); n != 1 {
		t.Errorf("ActiveVoiceCount after the scheduled off = %d, expected 1", n)
	}
}

func TestEngine_ResetSilencesAndZeroesClock(t *testing.T) {
	e := newGoldenEngine(t)
	if err := e.NoteOn(69, 1.0); err != nil {
		t.Fatalf("NoteOn failed: %v", err)
	}
	renderStereo(t, e, 512)
	if e.SampleClock() == 0 {
		t.Fatal("SampleClock did not advance")
	}

	e.Reset()
	outL, outR := renderStereo(t, e, 256)
	for i := range outL {
		if outL[i] != 0 || outR[i] != 0 {
			t.Fatalf("Output after Reset at sample %d: L=%f R=%f", i, outL[i], outR[i])
		}
	}
	if got := e.SampleClock(); got != 256 {
		t.Errorf("SampleClock after Reset+render = %d, expected 256", got)
	}
	if n := e.ActiveVoiceCount(); n != 0 {
		t.Errorf("ActiveVoiceCount after Reset = %d, expected 0", n)
	}
}

func TestEngine_EventQueueCapacity(t *testing.T) {
	e := newGoldenEngine(t)
	far := uint64(1) << 40
	for i := 0; i < EVENT_QUEUE_SIZE; i++ {
		if err := e.NoteOnAt(60, 0.5, far); err != nil {
			t.Fatalf("Event %d rejected: %v", i, err)
		}
	}
	if err := e.NoteOnAt(60, 0.5, far); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Overflow push = %v, expected ErrQueueFull", err)
	}
}

func TestEngine_MetersTrackOutput(t *testing.T) {
	e := newGoldenEngine(t)
	if err := e.NoteOn(69, 1.0); err != nil {
		t.Fatalf("NoteOn failed: %v", err)
	}
	renderStereo(t, e, 4800)

	if n := e.ActiveVoiceCount(); n != 1 {
		t.Errorf("ActiveVoiceCount = %d, expected 1", n)
	}
	l, r := e.CurrentPeak()
	if l < 0.5 || r < 0.5 {
		t.Errorf("CurrentPeak = %f/%f, expected > 0.5 on both channels", l, r)
	}
}

// TestEngine_CaptureScopeMatchesOutput verifies the scope ring returns the
// most recent post-master samples in render order.
func TestEngine_CaptureScopeMatchesOutput(t *testing.T) {
	e := newGoldenEngine(t)

	dstL := make([]float32, 512)
	dstR := make([]float32, 512)
	if n := e.CaptureScope(dstL, dstR); n != 0 {
		t.Errorf("CaptureScope before rendering = %d samples, expected 0", n)
	}

	if err := e.NoteOn(69, 1.0); err != nil {
		t.Fatalf("NoteOn failed: %v", err)
	}
	outL, _ := renderStereo(t, e, 4800)

	n := e.CaptureScope(dstL, dstR)
	if n != 512 {
		t.Fatalf("CaptureScope = %d samples, expected 512", n)
	}
	tail := outL[len(outL)-512:]
	for i := range tail {
		if dstL[i] != tail[i] {
			t.Fatalf("Scope sample %d = %f, rendered %f", i, dstL[i], tail[i])
		}
	}
}

func TestEngine_CurrentPatchIsCopy(t *testing.T) {
	e := newGoldenEngine(t)
	p := e.CurrentPatch()
	p.MasterGain = 0.123
	p.Oscs[0].Level = 0

	if got := e.CurrentPatch().MasterGain; got != 1 {
		t.Errorf("Engine patch mutated through a returned copy: MasterGain = %f", got)
	}
}

func TestEngine_SetterValidation(t *testing.T) {
	e := newGoldenEngine(t)

	if err := e.SetOscillator(-1, OscParams{}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetOscillator(-1) = %v", err)
	}
	if err := e.SetOscillator(NUM_OSCS, OscParams{}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetOscillator(%d) = %v", NUM_OSCS, err)
	}
	if err := e.NoteOn(128, 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("NoteOn(128) = %v", err)
	}
	if err := e.NoteOn(-1, 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("NoteOn(-1) = %v", err)
	}
	if err := e.SetPolyphony(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetPolyphony(0) = %v", err)
	}
	if err := e.SetPolyphony(MAX_VOICES + 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetPolyphony(%d) = %v", MAX_VOICES+1, err)
	}
	if err := e.SetPolyphony(8); err != nil {
		t.Errorf("SetPolyphony(8) = %v", err)
	}
	if err := e.SetModRoute(0, ModRoute{Source: ModSource(99), Dest: DestVoiceAmp}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetModRoute with bad source = %v", err)
	}
	if err := e.SetModRoute(MAX_MOD_ROUTES, ModRoute{Source: SrcLFO1, Dest: DestVoiceAmp}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetModRoute(%d) = %v", MAX_MOD_ROUTES, err)
	}
	if err := e.SetEnvelope(NUM_ENVS, EnvelopeParams{}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetEnvelope(%d) = %v", NUM_ENVS, err)
	}
	if err := e.SetFilter(2, FilterParams{}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetFilter(2) = %v", err)
	}
	if err := e.SetLFO(NUM_LFOS, LFOParams{}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetLFO(%d) = %v", NUM_LFOS, err)
	}
	if err := e.SetMacroValue(NUM_MACROS, 0.5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetMacroValue(%d) = %v", NUM_MACROS, err)
	}
	if err := e.SetVectorCorner(4, VectorCorner{}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetVectorCorner(4) = %v", err)
	}
}

func TestEngine_TempoClamped(t *testing.T) {
	e := newGoldenEngine(t)
	e.SetTempo(5)
	if got := e.Tempo(); got != 20 {
		t.Errorf("Tempo after SetTempo(5) = %f, expected 20", got)
	}
	e.SetTempo(5000)
	if got := e.Tempo(); got != 999 {
		t.Errorf("Tempo after SetTempo(5000) = %f, expected 999", got)
	}
	e.SetTempo(128)
	if got := e.Tempo(); got != 128 {
		t.Errorf("Tempo after SetTempo(128) = %f, expected 128", got)
	}
}

// TestEngine_SustainPedalDefersRelease verifies that note-off while the pedal
// is down keeps the voice sounding, and lifting the pedal releases it.
func TestEngine_SustainPedalDefersRelease(t *testing.T) {
	e := newGoldenEngine(t)
	if err := e.NoteOn(69, 1.0); err != nil {
		t.Fatalf("NoteOn failed: %v", err)
	}
	renderStereo(t, e, 2400)

	e.SetSustainPedal(true)
	if err := e.NoteOff(69); err != nil {
		t.Fatalf("NoteOff failed: %v", err)
	}
	outL, _ := renderStereo(t, e, 4800)
	if stats := computeStats(outL); stats.rms < 0.4 {
		t.Errorf("Sustained RMS = %f, expected the voice to keep sounding", stats.rms)
	}
	if n := e.ActiveVoiceCount(); n != 1 {
		t.Errorf("ActiveVoiceCount with pedal down = %d, expected 1", n)
	}

	e.SetSustainPedal(false)
	outL, _ = renderStereo(t, e, 14400)
	tail := computeStats(outL[len(outL)-2400:])
	if tail.rms > 0.001 {
		t.Errorf("Tail RMS after pedal up = %f, expected < 0.001", tail.rms)
	}
	if n := e.ActiveVoiceCount(); n != 0 {
		t.Errorf("ActiveVoiceCount after pedal up = %d, expected 0", n)
	}
}

// TestEngine_PitchBendRaisesFrequency verifies that full-up bend with the
// default 2-semitone range raises the zero-crossing rate by ~12%.
func TestEngine_PitchBendRaisesFrequency(t *testing.T) {
	crossingsFor := func(bend float32) int {
		e := newGoldenEngine(t)
		e.SetPitchBend(bend)
		if err := e.NoteOn(69, 1.0); err != nil {
			t.Fatalf("NoteOn failed: %v", err)
		}
		outL, _ := renderStereo(t, e, 48000)
		return computeStats(outL).zeroCrossings
	}

	base := crossingsFor(0)
	bent := crossingsFor(1)
	ratio := float64(bent) / float64(base)
	// Two semitones up is a factor of 2^(2/12) = ~1.122.
	if ratio < 1.09 || ratio > 1.16 {
		t.Errorf("Crossing ratio with full bend = %f, expected ~1.12", ratio)
	}
}

func TestEngine_VoiceEnvelopeMetering(t *testing.T) {
	e := newGoldenEngine(t)

	if _, err := e.VoiceEnvelope(MAX_VOICES); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("VoiceEnvelope(%d) = %v, expected ErrIndexOutOfRange", MAX_VOICES, err)
	}

	if err := e.NoteOn(69, 1.0); err != nil {
		t.Fatalf("NoteOn failed: %v", err)
	}
	renderStereo(t, e, 4800)

	lvl, err := e.VoiceEnvelope(0)
	if err != nil {
		t.Fatalf("VoiceEnvelope(0) failed: %v", err)
	}
	if lvl < 0.99 || lvl > 1.0 {
		t.Errorf("Sustained envelope level = %f, expected 1.0", lvl)
	}

	if err := e.NoteOff(69); err != nil {
		t.Fatalf("NoteOff failed: %v", err)
	}
	renderStereo(t, e, 14400)
	if lvl, _ = e.VoiceEnvelope(0); lvl != 0 {
		t.Errorf("Envelope level after release = %f, expected 0 on the idle slot", lvl)
	}
}

// TestEngine_TransportGatesArp verifies a stopped transport holds the arp
// silent with notes held, and that starting it fires the pending step.
func TestEngine_TransportGatesArp(t *testing.T) {
	e := newGoldenEngine(t)
	p := e.CurrentPatch()
	p.Arp = ArpParams{Enabled: true, Mode: ArpUp, RateHz: 8, GateLength: 0.5, Scale: ScaleChromatic}
	e.LoadPatch(p)

	e.SetTransportPlaying(false)
	if e.TransportPlaying() {
		t.Fatal("TransportPlaying = true after SetTransportPlaying(false)")
	}
	if err := e.NoteOn(69, 1.0); err != nil {
		t.Fatalf("NoteOn failed: %v", err)
	}
	outL, _ := renderStereo(t, e, 9600)
	if stats := computeStats(outL); stats.peak != 0 {
		t.Errorf("Peak with transport stopped = %f, expected exact silence", stats.peak)
	}

	e.SetTransportPlaying(true)
	outL, _ = renderStereo(t, e, 9600)
	if stats := computeStats(outL); stats.peak < 0.5 {
		t.Errorf("Peak after transport start = %f, expected the held step to fire", stats.peak)
	}
}
