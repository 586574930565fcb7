// synth_preset.go - Patch definition and factory presets

/*
A Patch is the complete value-typed parameter state of the synthesizer.
Everything in it is plain data: copying a Patch copies the sound, which is
what makes snapshot publication a single struct assignment.

The factory bank below covers the classic food groups so the engine makes
a useful noise out of the box. Preset builders start from defaultPatch and
override, so a new engine field picks up a sane value everywhere at once.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

import "strings"

// Patch holds every control-thread parameter. Value semantics only; no
// slices, maps or pointers may be added here.
type Patch struct {
	Name string

	Oscs  [NUM_OSCS]OscParams
	Sub   SubParams
	Noise NoiseParams

	Envs    [NUM_ENVS]EnvelopeParams
	LFOs    [NUM_LFOS]LFOParams
	Filters [2]FilterParams

	Routes [MAX_MOD_ROUTES]ModRoute
	Macros [NUM_MACROS]Macro
	Vector VectorParams

	Glide GlideParams
	Drift DriftParams

	Poly           PolyMode
	Polyphony      int32
	BendRangeSemis float32
	MasterGain     float32

	Effects EffectsParams
	Arp     ArpParams
}

func defaultPatch() Patch {
	var p Patch
	p.Name = "Init"

	p.Oscs[0] = OscParams{
		Enabled: true,
		Table:   TABLE_SAW,
		Level:   0.8,
		Unison:  1,
	}
	p.Oscs[1] = OscParams{
		Table:  TABLE_SINE,
		Level:  0.8,
		Unison: 1,
	}
	p.Sub = SubParams{Octave: 1, Shape: SubSine}

	p.Envs[0] = EnvelopeParams{Attack: 0.003, Decay: 0.2, Sustain: 0.8, Release: 0.25}
	p.Envs[1] = EnvelopeParams{Attack: 0.005, Decay: 0.35, Sustain: 0, Release: 0.2}
	p.Envs[2] = EnvelopeParams{Attack: 0.1, Decay: 0.3, Sustain: 0.7, Release: 0.3}
	p.Envs[3] = EnvelopeParams{Attack: 0.2, Decay: 0.4, Sustain: 0.5, Release: 0.5}

	for i := range p.LFOs {
		p.LFOs[i] = LFOParams{Shape: LFOSine, RateHz: 2, Depth: 1, Table: TABLE_NONE}
	}

	p.Filters[0] = FilterParams{Type: FilterOff, Cutoff: 1}
	p.Filters[1] = FilterParams{Type: FilterOff, Cutoff: 1}

	for i := range p.Macros {
		p.Macros[i].Name = "Macro " + string(rune('1'+i))
	}
	p.Vector = VectorParams{
		X: 0.5, Y: 0.5,
		Corners: [4]VectorCorner{
			{Table: TABLE_SINE},
			{Table: TABLE_SAW},
			{Table: TABLE_TRIANGLE},
			{Table: TABLE_SQUARE},
		},
	}

	p.Glide = GlideParams{Time: 0.05}
	p.Poly = PolyPoly
	p.Polyphony = MAX_VOICES
	p.BendRangeSemis = 2
	p.MasterGain = 0.8

	p.Effects.Order = defaultEffectsOrder()
	p.Effects.Distortion = DistortionParams{Shape: DistOff, Drive: 0.2, Mix: 1}
	p.Effects.Chorus = ChorusParams{RateHz: 0.8, Depth: 0.4, Mix: 0.3}
	p.Effects.Delay = DelayParams{TimeSec: 0.375, Feedback: 0.35, Damp: 0.3, Mix: 0.25}
	p.Effects.Reverb = ReverbParams{Size: 0.5, Damp: 0.5, Mix: 0.25}

	p.Arp = ArpParams{Mode: ArpUp, RateHz: 8, GateLength: 0.6, Scale: ScaleChromatic}
	return p
}

func presetFatBass() Patch {
	p := defaultPatch()
	p.Name = "Fat Bass"
	p.Oscs[0].Table = TABLE_SAW
	p.Oscs[0].Unison = 5
	p.Oscs[0].DetuneCents = 12
	p.Oscs[0].Spread = 0.4
	p.Sub.Level = 0.6
	p.Sub.Shape = SubSine
	p.Envs[0] = EnvelopeParams{Attack: 0.002, Decay: 0.15, Sustain: 0.7, Release: 0.12}
	p.Filters[0] = FilterParams{Type: FilterLadder, Cutoff: 0.45, Resonance: 0.25, Drive: 0.3, EnvDepth: 0.5}
	p.Envs[1] = EnvelopeParams{Attack: 0.001, Decay: 0.18, Sustain: 0.1, Release: 0.1}
	p.Poly = PolyMono
	p.Glide = GlideParams{Enabled: true, Time: 0.04, LegatoOnly: true}
	return p
}

func presetLead() Patch {
	p := defaultPatch()
	p.Name = "Lead Synth"
	p.Oscs[0].Table = TABLE_SAW
	p.Oscs[0].Unison = 3
	p.Oscs[0].DetuneCents = 8
	p.Oscs[1] = OscParams{Enabled: true, Table: TABLE_SQUARE, Level: 0.4, Semitones: -12, Unison: 1}
	p.Envs[0] = EnvelopeParams{Attack: 0.01, Decay: 0.1, Sustain: 0.9, Release: 0.2}
	p.Filters[0] = FilterParams{Type: FilterSVFLow, Cutoff: 0.7, Resonance: 0.3, Keytrack: 0.5}
	p.Poly = PolyLegato
	p.Glide = GlideParams{Enabled: true, Time: 0.06, LegatoOnly: true}
	p.Drift.DepthCents = 4
	p.Routes[0] = ModRoute{Source: SrcLFO1, Dest: DestOsc1Pitch, Amount: 0.004}
	p.LFOs[0] = LFOParams{Shape: LFOSine, RateHz: 5.5, Depth: 1, FadeIn: 0.4, NoteReset: true, Table: TABLE_NONE}
	p.Effects.Delay.Enabled = true
	p.Effects.Delay.Sync = Div1_8Dot
	return p
}

func presetPad() Patch {
	p := defaultPatch()
	p.Name = "Glass Pad"
	p.Oscs[0] = OscParams{Enabled: true, Table: TABLE_HARMONICS, Level: 0.6, Unison: 7, DetuneCents: 10, Spread: 0.9, Morph: 0.3}
	p.Oscs[1] = OscParams{Enabled: true, Table: TABLE_VOCAL, Level: 0.35, Semitones: 12, Unison: 1, Pan: 0.2}
	p.Envs[0] = EnvelopeParams{Attack: 0.8, Decay: 0.5, Sustain: 0.8, Release: 1.6}
	p.Filters[0] = FilterParams{Type: FilterSVFLow, Cutoff: 0.55, Resonance: 0.15}
	p.Filters[1] = FilterParams{Type: FilterAllpass, Cutoff: 0.45, Resonance: 0.35}
	p.Routes[0] = ModRoute{Source: SrcLFO2, Dest: DestOsc1Morph, Amount: 0.3}
	p.LFOs[1] = LFOParams{Shape: LFOTriangle, RateHz: 0.15, Depth: 1, Table: TABLE_NONE}
	p.Effects.Chorus.Enabled = true
	p.Effects.Chorus.Mix = 0.4
	p.Effects.Reverb.Enabled = true
	p.Effects.Reverb.Size = 0.8
	p.Effects.Reverb.Mix = 0.35
	return p
}

func presetPluck() Patch {
	p := defaultPatch()
	p.Name = "Digital Pluck"
	p.Oscs[0] = OscParams{Enabled: true, Table: TABLE_DIGITAL, Level: 0.8, Unison: 1, PhaseRetrig: true}
	p.Envs[0] = EnvelopeParams{Attack: 0.001, Decay: 0.3, Sustain: 0, Release: 0.25}
	p.Envs[1] = EnvelopeParams{Attack: 0.001, Decay: 0.12, Sustain: 0, Release: 0.1}
	p.Filters[0] = FilterParams{Type: FilterSVFLow, Cutoff: 0.3, Resonance: 0.4, EnvDepth: 0.7, Keytrack: 1}
	p.Effects.Distortion = DistortionParams{Shape: DistCrush, Drive: 0.3, Mix: 0.3}
	p.Effects.Delay.Enabled = true
	p.Effects.Delay.Sync = Div1_8
	p.Effects.Delay.PingPong = true
	p.Effects.Delay.Mix = 0.3
	return p
}

func presetBrass() Patch {
	p := defaultPatch()
	p.Name = "Poly Brass"
	p.Oscs[0].Table = TABLE_SAW
	p.Oscs[0].Unison = 2
	p.Oscs[0].DetuneCents = 6
	p.Oscs[1] = OscParams{Enabled: true, Table: TABLE_SAW, Level: 0.5, Cents: 9, Unison: 1}
	p.Envs[0] = EnvelopeParams{Attack: 0.06, Decay: 0.2, Sustain: 0.85, Release: 0.3}
	p.Envs[1] = EnvelopeParams{Attack: 0.08, Decay: 0.25, Sustain: 0.4, Release: 0.2}
	p.Filters[0] = FilterParams{Type: FilterSVFLow, Cutoff: 0.4, Resonance: 0.2, EnvDepth: 0.45}
	p.Drift.DepthCents = 3
	return p
}

func presetAcid() Patch {
	p := defaultPatch()
	p.Name = "Acid Bass"
	p.Oscs[0] = OscParams{Enabled: true, Table: TABLE_SAW, Level: 0.85, Unison: 1}
	p.Envs[0] = EnvelopeParams{Attack: 0.001, Decay: 0.2, Sustain: 0.4, Release: 0.08}
	p.Envs[1] = EnvelopeParams{Attack: 0.001, Decay: 0.16, Sustain: 0, Release: 0.05}
	p.Filters[0] = FilterParams{Type: FilterAcid, Cutoff: 0.25, Resonance: 0.75, Drive: 0.4, EnvDepth: 0.6}
	p.Poly = PolyMono
	p.Glide = GlideParams{Enabled: true, Time: 0.03, LegatoOnly: true}
	p.Effects.Distortion = DistortionParams{Shape: DistTube, Drive: 0.35, Mix: 0.6}
	p.Arp = ArpParams{Mode: ArpUp, StepsPerBeat: 4, GateLength: 0.45, OctaveRange: 1, Scale: ScalePentMinor}
	return p
}

func presetStrings() Patch {
	p := defaultPatch()
	p.Name = "Tape Strings"
	p.Oscs[0] = OscParams{Enabled: true, Table: TABLE_SAW, Level: 0.55, Unison: 9, DetuneCents: 14, Spread: 1}
	p.Oscs[1] = OscParams{Enabled: true, Table: TABLE_SAW, Level: 0.4, Semitones: -12, Unison: 3, DetuneCents: 7, Spread: 0.6}
	p.Envs[0] = EnvelopeParams{Attack: 0.4, Decay: 0.3, Sustain: 0.9, Release: 0.9}
	p.Filters[0] = FilterParams{Type: FilterSVFLow, Cutoff: 0.5, Resonance: 0.1, Keytrack: 0.3}
	p.Filters[1] = FilterParams{Type: FilterSVFHigh, Cutoff: 0.06}
	p.Drift.DepthCents = 6
	p.Effects.Chorus.Enabled = true
	p.Effects.Chorus.RateHz = 0.5
	p.Effects.Chorus.Depth = 0.6
	p.Effects.Chorus.Mix = 0.45
	p.Effects.Reverb.Enabled = true
	p.Effects.Reverb.Mix = 0.3
	return p
}

func presetKeys() Patch {
	p := defaultPatch()
	p.Name = "Vector Keys"
	p.Vector.Enabled = true
	p.Oscs[0].Level = 0.7
	p.Envs[0] = EnvelopeParams{Attack: 0.005, Decay: 0.6, Sustain: 0.5, Release: 0.4}
	p.Macros[0] = Macro{
		Name:  "Shine",
		Value: 0.3,
		Targets: [MACRO_TARGETS]MacroTarget{
			{Dest: DestFilter1Cutoff, Amount: 0.5},
			{Dest: DestOsc1Morph, Amount: 0.4},
		},
	}
	p.Filters[0] = FilterParams{Type: FilterSVFLow, Cutoff: 0.6, Resonance: 0.2, Keytrack: 0.7}
	p.Effects.Chorus.Enabled = true
	return p
}

func presetSquareLead() Patch {
	p := defaultPatch()
	p.Name = "Square Lead"
	p.Oscs[0] = OscParams{Enabled: true, Table: TABLE_SQUARE, Level: 0.7, Unison: 1, PhaseRetrig: true}
	p.Oscs[1] = OscParams{Enabled: true, Table: TABLE_PULSE, Level: 0.4, Cents: 5, Unison: 1}
	p.Envs[0] = EnvelopeParams{Attack: 0.004, Decay: 0.08, Sustain: 0.85, Release: 0.15}
	p.Filters[0] = FilterParams{Type: FilterSVFLow, Cutoff: 0.75, Resonance: 0.15}
	p.Routes[0] = ModRoute{Source: SrcModWheel, Dest: DestOsc2Morph, Amount: 0.8}
	p.Poly = PolyMono
	return p
}

func presetHoover() Patch {
	p := defaultPatch()
	p.Name = "Hoover"
	p.Oscs[0] = OscParams{Enabled: true, Table: TABLE_SAW, Level: 0.7, Unison: 7, DetuneCents: 35, Spread: 0.8}
	p.Oscs[1] = OscParams{Enabled: true, Table: TABLE_SAW, Level: 0.5, Semitones: -12, Unison: 3, DetuneCents: 20, Spread: 0.5}
	p.Sub.Level = 0.4
	p.Sub.Shape = SubSquare
	p.Envs[0] = EnvelopeParams{Attack: 0.01, Decay: 0.2, Sustain: 0.9, Release: 0.4}
	p.Glide = GlideParams{Enabled: true, Time: 0.12}
	p.Poly = PolyMono
	p.Effects.Chorus.Enabled = true
	p.Effects.Chorus.Depth = 0.7
	p.Effects.Chorus.Mix = 0.5
	p.Effects.Distortion = DistortionParams{Shape: DistSoft, Drive: 0.25, Mix: 0.4}
	return p
}

func presetWobble() Patch {
	p := defaultPatch()
	p.Name = "Wobble"
	p.Oscs[0] = OscParams{Enabled: true, Table: TABLE_FOLD, Level: 0.8, Unison: 1}
	p.Sub.Level = 0.7
	p.Envs[0] = EnvelopeParams{Attack: 0.002, Decay: 0.2, Sustain: 1, Release: 0.15}
	p.Filters[0] = FilterParams{Type: FilterLadder, Cutoff: 0.35, Resonance: 0.45, Drive: 0.4}
	p.LFOs[0] = LFOParams{Shape: LFOSine, Sync: Div1_4, Depth: 1, Table: TABLE_NONE}
	p.Routes[0] = ModRoute{Source: SrcLFO1, Dest: DestFilter1Cutoff, Amount: 0.45}
	p.Routes[1] = ModRoute{Source: SrcModWheel, Dest: DestFilter1Res, Amount: 0.3}
	p.Poly = PolyMono
	p.Effects.Distortion = DistortionParams{Shape: DistDecimate, Drive: 0.15, Mix: 0.2}
	return p
}

func presetFormantVox() Patch {
	p := defaultPatch()
	p.Name = "Formant Vox"
	p.Oscs[0] = OscParams{Enabled: true, Table: TABLE_DIGITAL, Level: 0.75, Unison: 1}
	p.Envs[0] = EnvelopeParams{Attack: 0.05, Decay: 0.3, Sustain: 0.8, Release: 0.4}
	p.Filters[0] = FilterParams{Type: FilterFormant, Cutoff: 0.4, Resonance: 0.5}
	p.Filters[1] = FilterParams{Type: FilterComb, Cutoff: 0.5, Resonance: 0.35, Keytrack: 1}
	p.Routes[0] = ModRoute{Source: SrcLFO3, Dest: DestFilter1Cutoff, Amount: 0.25}
	p.LFOs[2] = LFOParams{Shape: LFOTriangle, RateHz: 0.4, Depth: 1, Table: TABLE_NONE}
	p.Effects.Reverb.Enabled = true
	return p
}

// factoryPresets returns the built-in bank, Init first.
func factoryPresets() []Patch {
	return []Patch{
		defaultPatch(),
		presetFatBass(),
		presetLead(),
		presetPad(),
		presetPluck(),
		presetBrass(),
		presetAcid(),
		presetStrings(),
		presetKeys(),
		presetSquareLead(),
		presetHoover(),
		presetWobble(),
		presetFormantVox(),
	}
}

// PresetNames lists the factory bank in order.
func PresetNames() []string {
	bank := factoryPresets()
	names := make([]string, len(bank))
	for i := range bank {
		names[i] = bank[i].Name
	}
	return names
}

// LoadPreset activates a factory preset by case-insensitive name.
func (e *SynthEngine) LoadPreset(name string) error {
	for _, p := range factoryPresets() {
		if strings.EqualFold(p.Name, name) {
			e.LoadPatch(p)
			return nil
		}
	}
	return ErrIndexOutOfRange
}
