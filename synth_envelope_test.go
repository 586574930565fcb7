// synth_envelope_test.go - ADSR stage transition and curve tests

package main

import (
	"math"
	"testing"
)

func newEnv(p EnvelopeParams) *envelope {
	e := &envelope{}
	e.setParams(p, 48000)
	return e
}

func TestEnvelope_InstantAttackHitsFullLevel(t *testing.T) {
	e := newEnv(EnvelopeParams{Attack: 0, Decay: 0, Sustain: 1, Release: 0.05})
	e.gateOn(false)

	if got := e.process(); got != 1.0 {
		t.Errorf("First sample of instant attack = %f, expected 1.0", got)
	}
	if got := e.process(); got != 1.0 {
		t.Errorf("Sustain level = %f, expected 1.0", got)
	}
	if e.stage != envSustain {
		t.Errorf("Stage = %d, expected sustain after instant attack and decay", e.stage)
	}
}

func TestEnvelope_LinearAttackRamp(t *testing.T) {
	e := newEnv(EnvelopeParams{Attack: 0.01, Sustain: 1, Release: 0.05, Linear: true})
	e.gateOn(false)

	// 10ms at 48kHz is 480 samples; halfway through the ramp sits at 0.5.
	var level float32
	for i := 0; i < 240; i++ {
		level = e.process()
	}
	if math.Abs(float64(level)-0.5) > 0.01 {
		t.Errorf("Linear attack at midpoint = %f, expected ~0.5", level)
	}

	for i := 0; i < 260; i++ {
		e.process()
	}
	if e.stage == envAttack {
		t.Error("Linear attack did not complete within its nominal duration")
	}
	if e.level != 1.0 {
		t.Errorf("Level after attack = %f, expected 1.0", e.level)
	}
}

func TestEnvelope_ExponentialAttackIsMonotonic(t *testing.T) {
	e := newEnv(EnvelopeParams{Attack: 0.05, Sustain: 1, Release: 0.05})
	e.gateOn(false)

	prev := float32(0)
	for i := 0; i < 2600; i++ {
		level := e.process()
		if level < prev {
			t.Fatalf("Attack dipped at sample %d: %f after %f", i, level, prev)
		}
		prev = level
	}
	if e.stage == envAttack {
		t.Errorf("Attack still running after its nominal duration, level %f", prev)
	}
}

func TestEnvelope_DecayApproachesSustain(t *testing.T) {
	e := newEnv(EnvelopeParams{Attack: 0, Decay: 0.05, Sustain: 0.4, Release: 0.1})
	e.gateOn(false)

	var level float32
	for i := 0; i < 4800; i++ {
		level = e.process()
	}
	if math.Abs(float64(level)-0.4) > 0.02 {
		t.Errorf("Level after decay = %f, expected sustain 0.4", level)
	}
	if e.stage != envSustain {
		t.Errorf("Stage = %d, expected sustain", e.stage)
	}
}

// TestEnvelope_ZeroSustainIsOneShot verifies that a zero-sustain envelope
// finishes on its own without a gate-off, which is what frees percussive
// voices.
func TestEnvelope_ZeroSustainIsOneShot(t *testing.T) {
	e := newEnv(EnvelopeParams{Attack: 0, Decay: 0.03, Sustain: 0, Release: 0.1})
	e.gateOn(false)

	for i := 0; i < 3000 && e.active(); i++ {
		e.process()
	}
	if e.active() {
		t.Error("Zero-sustain envelope never went idle")
	}
	if e.level != 0 {
		t.Errorf("Idle level = %f, expected 0", e.level)
	}
}

func TestEnvelope_ReleaseReachesSilence(t *testing.T) {
	e := newEnv(EnvelopeParams{Attack: 0, Decay: 0, Sustain: 1, Release: 0.01})
	e.gateOn(false)
	e.process()
	e.gateOff()

	prev := float32(1)
	samples := 0
	for e.active() {
		level := e.process()
		if level > prev {
			t.Fatalf("Release rose at sample %d: %f after %f", samples, level, prev)
		}
		prev = level
		samples++
		if samples > 600 {
			t.Fatalf("Release still active after %d samples, level %f", samples, level)
		}
	}
	if e.level != 0 {
		t.Errorf("Level after release = %f, expected 0", e.level)
	}
}

// TestEnvelope_RetriggerContinuesFromLevel verifies there is no level jump on
// retrigger: the attack resumes from wherever the envelope currently sits.
func TestEnvelope_RetriggerContinuesFromLevel(t *testing.T) {
	e := newEnv(EnvelopeParams{Attack: 0.02, Sustain: 1, Release: 0.05})
	e.gateOn(false)

	var before float32
	for i := 0; i < 480; i++ {
		before = e.process()
	}
	if before < 0.3 || before > 0.9 {
		t.Fatalf("Mid-attack level = %f, expected partway up", before)
	}

	e.gateOn(true)
	after := e.process()
	if after < before {
		t.Errorf("Level after retrigger = %f, dropped below %f", after, before)
	}
	if e.stage != envAttack {
		t.Errorf("Stage after retrigger = %d, expected attack", e.stage)
	}
}

func TestEnvelope_LegatoGateKeepsStage(t *testing.T) {
	e := newEnv(EnvelopeParams{Attack: 0, Decay: 0, Sustain: 0.7, Release: 0.05})
	e.gateOn(false)
	e.process()
	e.process()
	if e.stage != envSustain {
		t.Fatalf("Stage = %d, expected sustain", e.stage)
	}

	e.gateOn(false)
	if e.stage != envSustain {
		t.Errorf("Legato gate moved the stage to %d", e.stage)
	}
}

func TestEnvelope_GateFromIdleStartsAtZero(t *testing.T) {
	e := newEnv(EnvelopeParams{Attack: 0.02, Sustain: 1, Release: 0.005})
	e.gateOn(false)
	for i := 0; i < 2000; i++ {
		e.process()
	}
	e.gateOff()
	for i := 0; i < 2000 && e.active(); i++ {
		e.process()
	}
	if e.active() {
		t.Fatal("Release never finished")
	}

	e.gateOn(false)
	if got := e.process(); got > 0.1 {
		t.Errorf("First sample after restart = %f, expected a rise from zero", got)
	}
	if !e.active() {
		t.Error("Envelope idle right after gateOn")
	}
}

func TestEnvelope_ResetSilencesImmediately(t *testing.T) {
	e := newEnv(EnvelopeParams{Attack: 0, Sustain: 1, Release: 1})
	e.gateOn(false)
	e.process()
	e.reset()

	if e.active() {
		t.Error("Envelope active after reset")
	}
	if e.level != 0 {
		t.Errorf("Level after reset = %f, expected 0", e.level)
	}
}
