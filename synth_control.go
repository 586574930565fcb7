// synth_control.go - Control-thread API surface

/*
Every mutator here follows the same shape: validate, take the control
mutex, edit the pending Patch, republish the snapshot. None of them block
the audio thread. Queries read the last published meter state and are safe
from any goroutine.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

// edit runs one locked mutation against the pending patch and republishes.
func (e *SynthEngine) edit(f func(p *Patch)) {
	e.mu.Lock()
	f(&e.pending)
	e.publishLocked()
	e.mu.Unlock()
}

// pushEvent serializes producers under the control mutex; the ring itself
// is single-producer single-consumer.
func (e *SynthEngine) pushEvent(ev engineEvent) error {
	if !e.prepared.Load() {
		return ErrNotPrepared
	}
	e.mu.Lock()
	ok := e.events.push(ev)
	e.mu.Unlock()
	if !ok {
		return ErrQueueFull
	}
	return nil
}

// NoteOn triggers a note at the next rendered frame.
func (e *SynthEngine) NoteOn(note int32, velocity float32) error {
	return e.NoteOnAt(note, velocity, e.clock.Load())
}

// NoteOnAt schedules a note at an absolute sample-clock position. Past
// timestamps are clamped to the start of the next block.
func (e *SynthEngine) NoteOnAt(note int32, velocity float32, when uint64) error {
	if note < 0 || note > 127 {
		return ErrIndexOutOfRange
	}
	return e.pushEvent(engineEvent{kind: evNoteOn, note: note, vel: clamp01(velocity), when: when})
}

func (e *SynthEngine) NoteOff(note int32) error {
	return e.NoteOffAt(note, e.clock.Load())
}

func (e *SynthEngine) NoteOffAt(note int32, when uint64) error {
	if note < 0 || note > 127 {
		return ErrIndexOutOfRange
	}
	return e.pushEvent(engineEvent{kind: evNoteOff, note: note, when: when})
}

// AllNotesOff releases everything, honoring envelope release stages.
// For an instant cut use Reset.
func (e *SynthEngine) AllNotesOff() error {
	return e.pushEvent(engineEvent{kind: evAllOff, when: e.clock.Load()})
}

// --- Performance state ---

func (e *SynthEngine) SetModWheel(v float32) {
	e.mu.Lock()
	e.modWheel = clamp01(v)
	e.publishLocked()
	e.mu.Unlock()
}

func (e *SynthEngine) SetAftertouch(v float32) {
	e.mu.Lock()
	e.aftertouch = clamp01(v)
	e.publishLocked()
	e.mu.Unlock()
}

// SetPitchBend takes the bend position in -1..1; the sounding offset is
// scaled by the patch bend range.
func (e *SynthEngine) SetPitchBend(v float32) {
	e.mu.Lock()
	e.pitchBend = clampF(v, -1, 1)
	e.publishLocked()
	e.mu.Unlock()
}

// SetSustainPedal defers note-off for held voices while down; lifting the
// pedal releases every voice whose key has already gone up.
func (e *SynthEngine) SetSustainPedal(down bool) {
	e.mu.Lock()
	e.sustain = down
	e.publishLocked()
	e.mu.Unlock()
}

func (e *SynthEngine) SetTempo(bpm float64) {
	if bpm < 20 {
		bpm = 20
	}
	if bpm > 999 {
		bpm = 999
	}
	e.mu.Lock()
	e.tempo = bpm
	e.publishLocked()
	e.mu.Unlock()
}

// SetTransportPlaying tracks the host transport. While stopped the
// arpeggiator's step clock holds (sounding steps still gate off); note
// events and voices are unaffected.
func (e *SynthEngine) SetTransportPlaying(on bool) {
	e.mu.Lock()
	e.transport = on
	e.publishLocked()
	e.mu.Unlock()
}

func (e *SynthEngine) TransportPlaying() bool {
	e.mu.Lock()
	on := e.transport
	e.mu.Unlock()
	return on
}

func (e *SynthEngine) Tempo() float64 {
	e.mu.Lock()
	bpm := e.tempo
	e.mu.Unlock()
	return bpm
}

func (e *SynthEngine) SetBendRange(semitones float32) {
	e.edit(func(p *Patch) { p.BendRangeSemis = clampF(semitones, 0, 48) })
}

// --- Patch ---

// CurrentPatch returns a copy of the pending patch.
func (e *SynthEngine) CurrentPatch() Patch {
	e.mu.Lock()
	p := e.pending
	e.mu.Unlock()
	return p
}

// LoadPatch replaces the whole patch atomically.
func (e *SynthEngine) LoadPatch(p Patch) {
	e.mu.Lock()
	e.pending = p
	e.publishLocked()
	e.mu.Unlock()
}

func (e *SynthEngine) PatchName() string {
	e.mu.Lock()
	name := e.pending.Name
	e.mu.Unlock()
	return name
}

func (e *SynthEngine) SetPatchName(name string) {
	e.edit(func(p *Patch) { p.Name = name })
}

// --- Oscillators ---

func (e *SynthEngine) SetOscillator(i int, p OscParams) error {
	if i < 0 || i >= NUM_OSCS {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.Oscs[i] = p })
	return nil
}

func (e *SynthEngine) SetOscEnabled(i int, on bool) error {
	if i < 0 || i >= NUM_OSCS {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.Oscs[i].Enabled = on })
	return nil
}

func (e *SynthEngine) SetOscTable(i int, id TableID) error {
	if i < 0 || i >= NUM_OSCS {
		return ErrIndexOutOfRange
	}
	if id != TABLE_NONE && (id < 0 || int(id) >= e.store.Count()) {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.Oscs[i].Table = id })
	return nil
}

func (e *SynthEngine) SetOscMorph(i int, v float32) error {
	if i < 0 || i >= NUM_OSCS {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.Oscs[i].Morph = clamp01(v) })
	return nil
}

func (e *SynthEngine) SetOscLevel(i int, v float32) error {
	if i < 0 || i >= NUM_OSCS {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.Oscs[i].Level = clampF(v, 0, 2) })
	return nil
}

func (e *SynthEngine) SetOscPitch(i int, semitones, cents float32) error {
	if i < 0 || i >= NUM_OSCS {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) {
		pt.Oscs[i].Semitones = semitones
		pt.Oscs[i].Cents = cents
	})
	return nil
}

func (e *SynthEngine) SetOscUnison(i int, count int, detuneCents, spread float32) error {
	if i < 0 || i >= NUM_OSCS {
		return ErrIndexOutOfRange
	}
	if count < 1 {
		count = 1
	}
	if count > MAX_UNISON {
		count = MAX_UNISON
	}
	e.edit(func(pt *Patch) {
		pt.Oscs[i].Unison = count
		pt.Oscs[i].DetuneCents = detuneCents
		pt.Oscs[i].Spread = clamp01(spread)
	})
	return nil
}

// --- Sub oscillator and noise ---

func (e *SynthEngine) SetSub(p SubParams) {
	e.edit(func(pt *Patch) { pt.Sub = p })
}

func (e *SynthEngine) SetNoiseLevel(v float32) {
	e.edit(func(pt *Patch) { pt.Noise.Level = clampF(v, 0, 2) })
}

// --- Envelopes, LFOs, filters ---

func (e *SynthEngine) SetEnvelope(i int, p EnvelopeParams) error {
	if i < 0 || i >= NUM_ENVS {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.Envs[i] = p })
	return nil
}

func (e *SynthEngine) SetLFO(i int, p LFOParams) error {
	if i < 0 || i >= NUM_LFOS {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.LFOs[i] = p })
	return nil
}

func (e *SynthEngine) SetFilter(slot int, p FilterParams) error {
	if slot < 0 || slot >= 2 {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.Filters[slot] = p })
	return nil
}

func (e *SynthEngine) SetFilterCutoff(slot int, v float32) error {
	if slot < 0 || slot >= 2 {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.Filters[slot].Cutoff = clamp01(v) })
	return nil
}

func (e *SynthEngine) SetFilterResonance(slot int, v float32) error {
	if slot < 0 || slot >= 2 {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.Filters[slot].Resonance = clamp01(v) })
	return nil
}

// --- Modulation ---

func (e *SynthEngine) SetModRoute(i int, r ModRoute) error {
	if i < 0 || i >= MAX_MOD_ROUTES {
		return ErrIndexOutOfRange
	}
	if !validModSource(r.Source) || !validModDest(r.Dest) {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.Routes[i] = r })
	return nil
}

func (e *SynthEngine) ClearModRoute(i int) error {
	if i < 0 || i >= MAX_MOD_ROUTES {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.Routes[i] = ModRoute{} })
	return nil
}

func (e *SynthEngine) SetMacroValue(i int, v float32) error {
	if i < 0 || i >= NUM_MACROS {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.Macros[i].Value = clamp01(v) })
	return nil
}

func (e *SynthEngine) SetMacroName(i int, name string) error {
	if i < 0 || i >= NUM_MACROS {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.Macros[i].Name = name })
	return nil
}

func (e *SynthEngine) SetMacroTarget(macro, slot int, t MacroTarget) error {
	if macro < 0 || macro >= NUM_MACROS || slot < 0 || slot >= MACRO_TARGETS {
		return ErrIndexOutOfRange
	}
	if !validModDest(t.Dest) {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.Macros[macro].Targets[slot] = t })
	return nil
}

func (e *SynthEngine) SetVectorEnabled(on bool) {
	e.edit(func(pt *Patch) { pt.Vector.Enabled = on })
}

// SetVectorPos moves the vector pad. Coordinates are 0..1 with the four
// corner sounds at the extremes.
func (e *SynthEngine) SetVectorPos(x, y float32) {
	e.edit(func(pt *Patch) {
		pt.Vector.X = clamp01(x)
		pt.Vector.Y = clamp01(y)
	})
}

func (e *SynthEngine) SetVectorCorner(i int, c VectorCorner) error {
	if i < 0 || i >= 4 {
		return ErrIndexOutOfRange
	}
	if c.Table != TABLE_NONE && (c.Table < 0 || int(c.Table) >= e.store.Count()) {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.Vector.Corners[i] = c })
	return nil
}

// --- Voice behavior ---

func (e *SynthEngine) SetGlide(p GlideParams) {
	e.edit(func(pt *Patch) { pt.Glide = p })
}

func (e *SynthEngine) SetDriftDepth(cents float32) {
	e.edit(func(pt *Patch) { pt.Drift.DepthCents = clampF(cents, 0, 100) })
}

func (e *SynthEngine) SetPolyMode(m PolyMode) error {
	if m < PolyPoly || m > PolyLegato {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.Poly = m })
	return nil
}

func (e *SynthEngine) SetPolyphony(n int) error {
	if n < 1 || n > MAX_VOICES {
		return ErrIndexOutOfRange
	}
	e.edit(func(pt *Patch) { pt.Polyphony = int32(n) })
	return nil
}

func (e *SynthEngine) SetMasterGain(g float32) {
	e.edit(func(pt *Patch) { pt.MasterGain = clampF(g, 0, 2) })
}

// --- Effects ---

func (e *SynthEngine) SetEffectsOrder(order [4]EffectKind) error {
	for _, k := range order {
		if k < FXDistortion || k >= numEffectKinds {
			return ErrIndexOutOfRange
		}
	}
	e.edit(func(pt *Patch) { pt.Effects.Order = order })
	return nil
}

func (e *SynthEngine) SetDistortion(p DistortionParams) {
	e.edit(func(pt *Patch) { pt.Effects.Distortion = p })
}

func (e *SynthEngine) SetChorus(p ChorusParams) {
	e.edit(func(pt *Patch) { pt.Effects.Chorus = p })
}

func (e *SynthEngine) SetDelay(p DelayParams) {
	e.edit(func(pt *Patch) { pt.Effects.Delay = p })
}

func (e *SynthEngine) SetReverb(p ReverbParams) {
	e.edit(func(pt *Patch) { pt.Effects.Reverb = p })
}

// --- Arpeggiator ---

func (e *SynthEngine) SetArp(p ArpParams) {
	e.edit(func(pt *Patch) { pt.Arp = p })
}

func (e *SynthEngine) SetArpEnabled(on bool) {
	e.edit(func(pt *Patch) { pt.Arp.Enabled = on })
}

// --- Wavetables ---

// LoadWavetable validates, normalizes and mip-builds a table, then makes it
// visible to the audio thread. Safe while audio is running; voices only see
// the new slot once the snapshot carrying the raised count is published.
func (e *SynthEngine) LoadWavetable(name string, samples []float32, frameCount int) (TableID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, err := e.store.Load(name, samples, frameCount)
	if err != nil {
		return TABLE_NONE, err
	}
	e.publishLocked()
	return id, nil
}

func (e *SynthEngine) WavetableCount() int {
	e.mu.Lock()
	n := e.store.Count()
	e.mu.Unlock()
	return n
}

func (e *SynthEngine) WavetableName(id TableID) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	wt := e.store.table(id, e.store.Count())
	if wt == nil {
		return "", ErrIndexOutOfRange
	}
	return wt.Name, nil
}

func (e *SynthEngine) FindWavetable(name string) (TableID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.FindByName(name)
}

// --- Queries ---

func (e *SynthEngine) Prepared() bool { return e.prepared.Load() }

func (e *SynthEngine) SampleRate() float64 {
	e.mu.Lock()
	sr := e.sampleRate
	e.mu.Unlock()
	return sr
}

// SampleClock returns the absolute frame position of the next block.
func (e *SynthEngine) SampleClock() uint64 { return e.clock.Load() }

// BlockSize returns the maximum frames per RenderBlock set by Prepare.
func (e *SynthEngine) BlockSize() int {
	e.mu.Lock()
	n := e.blockSize
	e.mu.Unlock()
	return n
}

// ActiveVoiceCount reports voices sounding as of the last rendered block.
func (e *SynthEngine) ActiveVoiceCount() int {
	if m := e.meterPtr.Load(); m != nil {
		return int(m.ActiveVoices)
	}
	return 0
}

// CurrentPeak reports the absolute peak of the last rendered block.
func (e *SynthEngine) CurrentPeak() (l, r float32) {
	if m := e.meterPtr.Load(); m != nil {
		return m.PeakL, m.PeakR
	}
	return 0, 0
}

// LFOValue reports an LFO's value as of the last rendered block, for
// metering rather than sample-accurate readback.
func (e *SynthEngine) LFOValue(i int) (float32, error) {
	if i < 0 || i >= NUM_LFOS {
		return 0, ErrIndexOutOfRange
	}
	if m := e.meterPtr.Load(); m != nil {
		return m.LFOValues[i], nil
	}
	return 0, nil
}

// VoiceEnvelope reports pool slot i's amplitude envelope level as of the
// last rendered block; 0 for an idle slot.
func (e *SynthEngine) VoiceEnvelope(i int) (float32, error) {
	if i < 0 || i >= MAX_VOICES {
		return 0, ErrIndexOutOfRange
	}
	if m := e.meterPtr.Load(); m != nil {
		return m.EnvLevels[i], nil
	}
	return 0, nil
}
