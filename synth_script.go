// synth_script.go - Lua patch and sequence scripting

/*
Embeds gopher-lua and exposes the engine as a `synth` module, so patches
and short sequences are plain text files:

    synth.preset("Fat Bass")
    synth.patch{ filter1 = { type = "ladder", cutoff = 0.32, res = 0.4 } }
    synth.tempo(128)
    synth.play(36, 0.9, 0.5)
    synth.wait(0.5)
    synth.play(48, 0.9, 0.5)
    synth.render("bass.wav", 4)

Sequence calls schedule timestamped events against a beat cursor; they are
bounded by the engine event queue, so a script can run ahead of the audio
clock by at most EVENT_QUEUE_SIZE events before rendering or playback
drains them. PatchToLua does the reverse mapping and is what lands on the
clipboard when a patch is copied from the scope view.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

import (
	"cmp"
	"fmt"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// --- name tables ---

var filterTypeNames = map[string]FilterType{
	"off":     FilterOff,
	"lowpass": FilterSVFLow,
	"low":     FilterSVFLow,
	"band":    FilterSVFBand,
	"high":    FilterSVFHigh,
	"notch":   FilterSVFNotch,
	"low24":   FilterSVF24,
	"ladder":  FilterLadder,
	"formant": FilterFormant,
	"comb":    FilterComb,
	"allpass": FilterAllpass,
	"acid":    FilterAcid,
}

var lfoShapeNames = map[string]LFOShape{
	"sine":     LFOSine,
	"triangle": LFOTriangle,
	"sawup":    LFOSawUp,
	"sawdown":  LFOSawDown,
	"square":   LFOSquare,
	"hold":     LFOSampleHold,
	"random":   LFOSmoothRandom,
	"table":    LFOWavetable,
}

var distShapeNames = map[string]DistortionShape{
	"off":      DistOff,
	"soft":     DistSoft,
	"hard":     DistHard,
	"fold":     DistFold,
	"asym":     DistAsym,
	"tube":     DistTube,
	"crush":    DistCrush,
	"decimate": DistDecimate,
}

var arpModeNames = map[string]ArpMode{
	"up":       ArpUp,
	"down":     ArpDown,
	"updown":   ArpUpDown,
	"downup":   ArpDownUp,
	"random":   ArpRandom,
	"asplayed": ArpAsPlayed,
	"chord":    ArpChord,
}

var arpScaleNames = map[string]ArpScale{
	"chromatic":  ScaleChromatic,
	"major":      ScaleMajor,
	"minor":      ScaleNaturalMinor,
	"harmminor":  ScaleHarmonicMinor,
	"pentmajor":  ScalePentMajor,
	"pentminor":  ScalePentMinor,
	"blues":      ScaleBlues,
	"dorian":     ScaleDorian,
	"mixolydian": ScaleMixolydian,
}

var polyModeNames = map[string]PolyMode{
	"poly":   PolyPoly,
	"mono":   PolyMono,
	"legato": PolyLegato,
}

var subShapeNames = map[string]SubShape{
	"sine":   SubSine,
	"square": SubSquare,
}

var fxKindNames = map[string]EffectKind{
	"dist":   FXDistortion,
	"chorus": FXChorus,
	"delay":  FXDelay,
	"reverb": FXReverb,
}

var divisionNames = map[string]LFODivision{
	"off":  DivOff,
	"1/1":  Div1_1,
	"1/2":  Div1_2,
	"1/4":  Div1_4,
	"1/8":  Div1_8,
	"1/16": Div1_16,
	"1/32": Div1_32,
	"1/4.": Div1_4Dot,
	"1/8.": Div1_8Dot,
	"1/4t": Div1_4Trip,
	"1/8t": Div1_8Trip,
}

var modSourceNames = map[string]ModSource{
	"none":  SrcNone,
	"env1":  SrcEnv1,
	"env2":  SrcEnv2,
	"env3":  SrcEnv3,
	"env4":  SrcEnv4,
	"lfo1":  SrcLFO1,
	"lfo2":  SrcLFO2,
	"lfo3":  SrcLFO3,
	"lfo4":  SrcLFO4,
	"lfo5":  SrcLFO5,
	"lfo6":  SrcLFO6,
	"lfo7":  SrcLFO7,
	"lfo8":  SrcLFO8,
	"vel":   SrcVelocity,
	"wheel": SrcModWheel,
	"at":    SrcAftertouch,
	"bend":  SrcPitchBend,
	"key":   SrcKeyTrack,
	"rand":  SrcNoteRandom,
	"vecx":  SrcVectorX,
	"vecy":  SrcVectorY,
}

var modDestNames = map[string]ModDest{
	"none":       DestNone,
	"osc1pitch":  DestOsc1Pitch,
	"osc2pitch":  DestOsc2Pitch,
	"osc1morph":  DestOsc1Morph,
	"osc2morph":  DestOsc2Morph,
	"osc1level":  DestOsc1Level,
	"osc2level":  DestOsc2Level,
	"pan":        DestVoicePan,
	"amp":        DestVoiceAmp,
	"cutoff1":    DestFilter1Cutoff,
	"cutoff2":    DestFilter2Cutoff,
	"res1":       DestFilter1Res,
	"res2":       DestFilter2Res,
	"gain":       DestMasterGain,
	"chorusmix":  DestChorusMix,
	"chorusrate": DestChorusRate,
	"delaymix":   DestDelayMix,
	"delayfb":    DestDelayFeedback,
	"reverbmix":  DestReverbMix,
}

// nameFor picks the smallest matching key so aliased names ("low" and
// "lowpass") export deterministically.
func nameFor[K cmp.Ordered, V comparable](m map[K]V, want V, fallback K) K {
	best, found := fallback, false
	for k, v := range m {
		if v == want && (!found || k < best) {
			best, found = k, true
		}
	}
	return best
}

// --- script host ---

type scriptHost struct {
	eng    *SynthEngine
	L      *lua.LState
	cursor uint64
}

// RunScriptFile executes a Lua script against the engine.
func RunScriptFile(e *SynthEngine, path string) error {
	h := newScriptHost(e)
	defer h.L.Close()
	return h.L.DoFile(path)
}

// RunScriptString executes Lua source against the engine.
func RunScriptString(e *SynthEngine, src string) error {
	h := newScriptHost(e)
	defer h.L.Close()
	return h.L.DoString(src)
}

func newScriptHost(e *SynthEngine) *scriptHost {
	h := &scriptHost{eng: e, cursor: e.SampleClock()}
	L := lua.NewState()
	h.L = L

	mod := L.NewTable()
	reg := func(name string, fn lua.LGFunction) {
		L.SetField(mod, name, L.NewFunction(fn))
	}
	reg("preset", h.luaPreset)
	reg("patch", h.luaPatch)
	reg("tempo", h.luaTempo)
	reg("play", h.luaPlay)
	reg("wait", h.luaWait)
	reg("alloff", h.luaAllOff)
	reg("macro", h.luaMacro)
	reg("vector", h.luaVector)
	reg("table", h.luaFindTable)
	reg("loadwav", h.luaLoadWav)
	reg("render", h.luaRender)
	L.SetGlobal("synth", mod)
	return h
}

func (h *scriptHost) luaPreset(L *lua.LState) int {
	name := L.CheckString(1)
	if err := h.eng.LoadPreset(name); err != nil {
		L.RaiseError("unknown preset %q", name)
	}
	return 0
}

func (h *scriptHost) luaTempo(L *lua.LState) int {
	h.eng.SetTempo(float64(L.CheckNumber(1)))
	return 0
}

// play(note, vel, beats) schedules a note at the script cursor. The cursor
// itself only moves through wait().
func (h *scriptHost) luaPlay(L *lua.LState) int {
	note := int32(L.CheckInt(1))
	vel := float32(L.OptNumber(2, 0.8))
	beats := float64(L.OptNumber(3, 1))

	sr := h.eng.SampleRate()
	bpm := h.eng.Tempo()
	dur := uint64(beats * 60.0 / bpm * sr)
	if dur < 1 {
		dur = 1
	}
	if err := h.eng.NoteOnAt(note, vel, h.cursor); err != nil {
		L.RaiseError("play: %v", err)
	}
	if err := h.eng.NoteOffAt(note, h.cursor+dur); err != nil {
		L.RaiseError("play: %v", err)
	}
	return 0
}

func (h *scriptHost) luaWait(L *lua.LState) int {
	beats := float64(L.CheckNumber(1))
	if beats < 0 {
		beats = 0
	}
	sr := h.eng.SampleRate()
	bpm := h.eng.Tempo()
	h.cursor += uint64(beats * 60.0 / bpm * sr)
	return 0
}

func (h *scriptHost) luaAllOff(L *lua.LState) int {
	if err := h.eng.AllNotesOff(); err != nil {
		L.RaiseError("alloff: %v", err)
	}
	return 0
}

func (h *scriptHost) luaMacro(L *lua.LState) int {
	i := L.CheckInt(1)
	v := float32(L.CheckNumber(2))
	if err := h.eng.SetMacroValue(i-1, v); err != nil {
		L.RaiseError("macro %d out of range", i)
	}
	return 0
}

func (h *scriptHost) luaVector(L *lua.LState) int {
	h.eng.SetVectorPos(float32(L.CheckNumber(1)), float32(L.CheckNumber(2)))
	return 0
}

func (h *scriptHost) luaFindTable(L *lua.LState) int {
	name := L.CheckString(1)
	id, ok := h.eng.FindWavetable(name)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(id))
	return 1
}

func (h *scriptHost) luaLoadWav(L *lua.LState) int {
	path := L.CheckString(1)
	name := L.OptString(2, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	frameLen := L.OptInt(3, WT_DEFAULT_FRAME)
	id, err := ImportWavetableFile(h.eng, path, name, frameLen)
	if err != nil {
		L.RaiseError("loadwav %s: %v", path, err)
	}
	L.Push(lua.LNumber(id))
	return 1
}

func (h *scriptHost) luaRender(L *lua.LState) int {
	path := L.CheckString(1)
	seconds := float64(L.CheckNumber(2))
	if err := RenderToWAV(h.eng, path, seconds); err != nil {
		L.RaiseError("render %s: %v", path, err)
	}
	return 0
}

// luaPatch applies a nested table of patch edits on top of the current patch.
func (h *scriptHost) luaPatch(L *lua.LState) int {
	tbl := L.CheckTable(1)
	p := h.eng.CurrentPatch()
	if err := applyPatchTable(h.eng, tbl, &p); err != nil {
		L.RaiseError("patch: %v", err)
	}
	h.eng.LoadPatch(p)
	return 0
}

// --- table readers ---

func tblStr(t *lua.LTable, key string) (string, bool) {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s), true
	}
	return "", false
}

func tblNum(t *lua.LTable, key string) (float64, bool) {
	if n, ok := t.RawGetString(key).(lua.LNumber); ok {
		return float64(n), true
	}
	return 0, false
}

func tblBool(t *lua.LTable, key string) (bool, bool) {
	if b, ok := t.RawGetString(key).(lua.LBool); ok {
		return bool(b), true
	}
	return false, false
}

func tblTable(t *lua.LTable, key string) (*lua.LTable, bool) {
	if st, ok := t.RawGetString(key).(*lua.LTable); ok {
		return st, true
	}
	return nil, false
}

func setF32(t *lua.LTable, key string, dst *float32) {
	if v, ok := tblNum(t, key); ok {
		*dst = float32(v)
	}
}

func setBool(t *lua.LTable, key string, dst *bool) {
	if v, ok := tblBool(t, key); ok {
		*dst = v
	}
}

func applyPatchTable(e *SynthEngine, t *lua.LTable, p *Patch) error {
	if s, ok := tblStr(t, "name"); ok {
		p.Name = s
	}

	for i := 0; i < NUM_OSCS; i++ {
		if ot, ok := tblTable(t, fmt.Sprintf("osc%d", i+1)); ok {
			if err := applyOscTable(e, ot, &p.Oscs[i]); err != nil {
				return err
			}
		}
	}
	if st, ok := tblTable(t, "sub"); ok {
		setF32(st, "level", &p.Sub.Level)
		if v, ok2 := tblNum(st, "octave"); ok2 {
			p.Sub.Octave = int(v)
		}
		if s, ok2 := tblStr(st, "shape"); ok2 {
			shape, found := subShapeNames[s]
			if !found {
				return fmt.Errorf("unknown sub shape %q", s)
			}
			p.Sub.Shape = shape
		}
	}
	if v, ok := tblNum(t, "noise"); ok {
		p.Noise.Level = float32(v)
	}

	for i := 0; i < NUM_ENVS; i++ {
		if et, ok := tblTable(t, fmt.Sprintf("env%d", i+1)); ok {
			applyEnvTable(et, &p.Envs[i])
		}
	}
	for i := 0; i < NUM_LFOS; i++ {
		if lt, ok := tblTable(t, fmt.Sprintf("lfo%d", i+1)); ok {
			if err := applyLFOTable(e, lt, &p.LFOs[i]); err != nil {
				return err
			}
		}
	}
	for i := 0; i < 2; i++ {
		if ft, ok := tblTable(t, fmt.Sprintf("filter%d", i+1)); ok {
			if err := applyFilterTable(ft, &p.Filters[i]); err != nil {
				return err
			}
		}
	}

	if mt, ok := tblTable(t, "mods"); ok {
		if err := applyModsTable(mt, p); err != nil {
			return err
		}
	}
	if mt, ok := tblTable(t, "macros"); ok {
		if err := applyMacrosTable(mt, p); err != nil {
			return err
		}
	}
	if vt, ok := tblTable(t, "vector"); ok {
		if err := applyVectorTable(e, vt, &p.Vector); err != nil {
			return err
		}
	}

	if gt, ok := tblTable(t, "glide"); ok {
		setBool(gt, "on", &p.Glide.Enabled)
		setF32(gt, "time", &p.Glide.Time)
		setBool(gt, "legato", &p.Glide.LegatoOnly)
	}
	if v, ok := tblNum(t, "drift"); ok {
		p.Drift.DepthCents = float32(v)
	}
	if s, ok := tblStr(t, "poly"); ok {
		m, found := polyModeNames[s]
		if !found {
			return fmt.Errorf("unknown poly mode %q", s)
		}
		p.Poly = m
	}
	if v, ok := tblNum(t, "voices"); ok {
		n := int32(v)
		if n < 1 || n > MAX_VOICES {
			return fmt.Errorf("voices %d out of range", n)
		}
		p.Polyphony = n
	}
	if v, ok := tblNum(t, "bend"); ok {
		p.BendRangeSemis = float32(v)
	}
	if v, ok := tblNum(t, "gain"); ok {
		p.MasterGain = float32(v)
	}

	if ft, ok := tblTable(t, "fx"); ok {
		if err := applyFXTable(ft, &p.Effects); err != nil {
			return err
		}
	}
	if at, ok := tblTable(t, "arp"); ok {
		if err := applyArpTable(at, &p.Arp); err != nil {
			return err
		}
	}
	return nil
}

func applyOscTable(e *SynthEngine, t *lua.LTable, o *OscParams) error {
	setBool(t, "on", &o.Enabled)
	if s, ok := tblStr(t, "table"); ok {
		id, found := e.FindWavetable(s)
		if !found {
			return fmt.Errorf("unknown wavetable %q", s)
		}
		o.Table = id
		o.Enabled = true
	}
	setF32(t, "morph", &o.Morph)
	setF32(t, "semis", &o.Semitones)
	setF32(t, "cents", &o.Cents)
	setF32(t, "level", &o.Level)
	setF32(t, "pan", &o.Pan)
	if v, ok := tblNum(t, "unison"); ok {
		n := int(v)
		if n < 1 || n > MAX_UNISON {
			return fmt.Errorf("unison %d out of range", n)
		}
		o.Unison = n
	}
	setF32(t, "detune", &o.DetuneCents)
	setF32(t, "spread", &o.Spread)
	setBool(t, "retrig", &o.PhaseRetrig)
	setF32(t, "phase", &o.StartPhase)
	return nil
}

func applyEnvTable(t *lua.LTable, env *EnvelopeParams) {
	setF32(t, "attack", &env.Attack)
	setF32(t, "decay", &env.Decay)
	setF32(t, "sustain", &env.Sustain)
	setF32(t, "release", &env.Release)
	setBool(t, "linear", &env.Linear)
}

func applyLFOTable(e *SynthEngine, t *lua.LTable, l *LFOParams) error {
	if s, ok := tblStr(t, "shape"); ok {
		shape, found := lfoShapeNames[s]
		if !found {
			return fmt.Errorf("unknown lfo shape %q", s)
		}
		l.Shape = shape
	}
	setF32(t, "rate", &l.RateHz)
	if s, ok := tblStr(t, "sync"); ok {
		d, found := divisionNames[s]
		if !found {
			return fmt.Errorf("unknown division %q", s)
		}
		l.Sync = d
	}
	setF32(t, "depth", &l.Depth)
	setF32(t, "phase", &l.StartPhase)
	setBool(t, "retrig", &l.NoteReset)
	setF32(t, "fade", &l.FadeIn)
	if s, ok := tblStr(t, "table"); ok {
		id, found := e.FindWavetable(s)
		if !found {
			return fmt.Errorf("unknown wavetable %q", s)
		}
		l.Table = id
	}
	return nil
}

func applyFilterTable(t *lua.LTable, f *FilterParams) error {
	if s, ok := tblStr(t, "type"); ok {
		ft, found := filterTypeNames[s]
		if !found {
			return fmt.Errorf("unknown filter type %q", s)
		}
		f.Type = ft
	}
	setF32(t, "cutoff", &f.Cutoff)
	setF32(t, "res", &f.Resonance)
	setF32(t, "drive", &f.Drive)
	setF32(t, "track", &f.Keytrack)
	setF32(t, "env", &f.EnvDepth)
	return nil
}

func applyModsTable(t *lua.LTable, p *Patch) error {
	var rows [MAX_MOD_ROUTES]ModRoute
	idx := 0
	var ferr error
	t.ForEach(func(_, v lua.LValue) {
		row, ok := v.(*lua.LTable)
		if !ok || idx >= MAX_MOD_ROUTES || ferr != nil {
			return
		}
		var r ModRoute
		if s, sok := tblStr(row, "src"); sok {
			src, found := modSourceNames[s]
			if !found {
				ferr = fmt.Errorf("unknown mod source %q", s)
				return
			}
			r.Source = src
		}
		if s, dok := tblStr(row, "dest"); dok {
			dst, found := modDestNames[s]
			if !found {
				ferr = fmt.Errorf("unknown mod dest %q", s)
				return
			}
			r.Dest = dst
		}
		if a, aok := tblNum(row, "amt"); aok {
			r.Amount = float32(a)
		}
		rows[idx] = r
		idx++
	})
	if ferr != nil {
		return ferr
	}
	p.Routes = rows
	return nil
}

func applyMacrosTable(t *lua.LTable, p *Patch) error {
	idx := 0
	var ferr error
	t.ForEach(func(_, v lua.LValue) {
		mt, ok := v.(*lua.LTable)
		if !ok || idx >= NUM_MACROS || ferr != nil {
			return
		}
		m := &p.Macros[idx]
		if s, sok := tblStr(mt, "name"); sok {
			m.Name = s
		}
		if val, vok := tblNum(mt, "value"); vok {
			m.Value = clamp01(float32(val))
		}
		if tt, tok := tblTable(mt, "targets"); tok {
			var targets [MACRO_TARGETS]MacroTarget
			ti := 0
			tt.ForEach(func(_, tv lua.LValue) {
				row, rok := tv.(*lua.LTable)
				if !rok || ti >= MACRO_TARGETS || ferr != nil {
					return
				}
				var tg MacroTarget
				if s, dok := tblStr(row, "dest"); dok {
					dst, found := modDestNames[s]
					if !found {
						ferr = fmt.Errorf("unknown macro dest %q", s)
						return
					}
					tg.Dest = dst
				}
				if a, aok := tblNum(row, "amt"); aok {
					tg.Amount = float32(a)
				}
				targets[ti] = tg
				ti++
			})
			m.Targets = targets
		}
		idx++
	})
	return ferr
}

func applyVectorTable(e *SynthEngine, t *lua.LTable, v *VectorParams) error {
	setBool(t, "on", &v.Enabled)
	setF32(t, "x", &v.X)
	setF32(t, "y", &v.Y)
	if ct, ok := tblTable(t, "corners"); ok {
		idx := 0
		var ferr error
		ct.ForEach(func(_, cv lua.LValue) {
			row, rok := cv.(*lua.LTable)
			if !rok || idx >= 4 || ferr != nil {
				return
			}
			if s, sok := tblStr(row, "table"); sok {
				id, found := e.FindWavetable(s)
				if !found {
					ferr = fmt.Errorf("unknown wavetable %q", s)
					return
				}
				v.Corners[idx].Table = id
			}
			setF32(row, "morph", &v.Corners[idx].Morph)
			idx++
		})
		if ferr != nil {
			return ferr
		}
	}
	return nil
}

func applyFXTable(t *lua.LTable, fx *EffectsParams) error {
	if ot, ok := tblTable(t, "order"); ok {
		var order [4]EffectKind
		idx := 0
		var ferr error
		ot.ForEach(func(_, v lua.LValue) {
			s, sok := v.(lua.LString)
			if !sok || idx >= 4 || ferr != nil {
				return
			}
			k, found := fxKindNames[string(s)]
			if !found {
				ferr = fmt.Errorf("unknown effect %q", string(s))
				return
			}
			order[idx] = k
			idx++
		})
		if ferr != nil {
			return ferr
		}
		if idx != 4 {
			return fmt.Errorf("effect order needs 4 entries, got %d", idx)
		}
		fx.Order = order
	}
	if dt, ok := tblTable(t, "dist"); ok {
		if s, sok := tblStr(dt, "shape"); sok {
			shape, found := distShapeNames[s]
			if !found {
				return fmt.Errorf("unknown distortion shape %q", s)
			}
			fx.Distortion.Shape = shape
		}
		setF32(dt, "drive", &fx.Distortion.Drive)
		setF32(dt, "mix", &fx.Distortion.Mix)
	}
	if ct, ok := tblTable(t, "chorus"); ok {
		setBool(ct, "on", &fx.Chorus.Enabled)
		setF32(ct, "rate", &fx.Chorus.RateHz)
		setF32(ct, "depth", &fx.Chorus.Depth)
		setF32(ct, "mix", &fx.Chorus.Mix)
	}
	if dt, ok := tblTable(t, "delay"); ok {
		setBool(dt, "on", &fx.Delay.Enabled)
		setF32(dt, "time", &fx.Delay.TimeSec)
		if s, sok := tblStr(dt, "sync"); sok {
			d, found := divisionNames[s]
			if !found {
				return fmt.Errorf("unknown division %q", s)
			}
			fx.Delay.Sync = d
		}
		setF32(dt, "feedback", &fx.Delay.Feedback)
		setF32(dt, "damp", &fx.Delay.Damp)
		setF32(dt, "mix", &fx.Delay.Mix)
		setBool(dt, "pingpong", &fx.Delay.PingPong)
	}
	if rt, ok := tblTable(t, "reverb"); ok {
		setBool(rt, "on", &fx.Reverb.Enabled)
		setF32(rt, "size", &fx.Reverb.Size)
		setF32(rt, "damp", &fx.Reverb.Damp)
		setF32(rt, "predelay", &fx.Reverb.PreDelaySec)
		setF32(rt, "mix", &fx.Reverb.Mix)
	}
	return nil
}

func applyArpTable(t *lua.LTable, a *ArpParams) error {
	setBool(t, "on", &a.Enabled)
	if s, ok := tblStr(t, "mode"); ok {
		m, found := arpModeNames[s]
		if !found {
			return fmt.Errorf("unknown arp mode %q", s)
		}
		a.Mode = m
	}
	setF32(t, "rate", &a.RateHz)
	setF32(t, "steps", &a.StepsPerBeat)
	if v, ok := tblNum(t, "octaves"); ok {
		n := int(v)
		if n < 0 || n > 3 {
			return fmt.Errorf("arp octaves %d out of range", n)
		}
		a.OctaveRange = n
	}
	setF32(t, "gate", &a.GateLength)
	setF32(t, "swing", &a.Swing)
	setBool(t, "latch", &a.Latch)
	if s, ok := tblStr(t, "scale"); ok {
		sc, found := arpScaleNames[s]
		if !found {
			return fmt.Errorf("unknown scale %q", s)
		}
		a.Scale = sc
	}
	if v, ok := tblNum(t, "root"); ok {
		a.ScaleRoot = int32(v) % 12
	}
	return nil
}

// --- patch to Lua text ---

// PatchToLua renders a patch as a synth.patch{} block that round-trips
// through applyPatchTable. Table references resolve through the engine's
// store so imported tables keep their names.
func PatchToLua(e *SynthEngine, p Patch) string {
	var b strings.Builder
	b.WriteString("synth.patch{\n")
	fmt.Fprintf(&b, "  name = %q,\n", p.Name)

	for i := 0; i < NUM_OSCS; i++ {
		o := &p.Oscs[i]
		if !o.Enabled {
			continue
		}
		fmt.Fprintf(&b, "  osc%d = { on = true, table = %q, morph = %.3f, semis = %g, cents = %g, level = %.3f, pan = %.2f, unison = %d, detune = %g, spread = %.2f",
			i+1, tableNameOf(e, o.Table), o.Morph, o.Semitones, o.Cents, o.Level, o.Pan, o.Unison, o.DetuneCents, o.Spread)
		if o.PhaseRetrig {
			fmt.Fprintf(&b, ", retrig = true, phase = %.3f", o.StartPhase)
		}
		b.WriteString(" },\n")
	}
	if p.Sub.Level > 0 {
		fmt.Fprintf(&b, "  sub = { level = %.3f, octave = %d, shape = %q },\n",
			p.Sub.Level, p.Sub.Octave, nameFor(subShapeNames, p.Sub.Shape, "sine"))
	}
	if p.Noise.Level > 0 {
		fmt.Fprintf(&b, "  noise = %.3f,\n", p.Noise.Level)
	}

	for i := 0; i < NUM_ENVS; i++ {
		env := &p.Envs[i]
		fmt.Fprintf(&b, "  env%d = { attack = %.4f, decay = %.4f, sustain = %.3f, release = %.4f",
			i+1, env.Attack, env.Decay, env.Sustain, env.Release)
		if env.Linear {
			b.WriteString(", linear = true")
		}
		b.WriteString(" },\n")
	}
	for i := 0; i < NUM_LFOS; i++ {
		l := &p.LFOs[i]
		if l.Depth == 0 {
			continue
		}
		fmt.Fprintf(&b, "  lfo%d = { shape = %q, rate = %g, sync = %q, depth = %.3f, retrig = %v, fade = %g },\n",
			i+1, nameFor(lfoShapeNames, l.Shape, "sine"), l.RateHz,
			nameFor(divisionNames, l.Sync, "off"), l.Depth, l.NoteReset, l.FadeIn)
	}
	for i := 0; i < 2; i++ {
		f := &p.Filters[i]
		if f.Type == FilterOff {
			continue
		}
		fmt.Fprintf(&b, "  filter%d = { type = %q, cutoff = %.3f, res = %.3f, drive = %.3f, track = %.2f, env = %.3f },\n",
			i+1, nameFor(filterTypeNames, f.Type, "off"), f.Cutoff, f.Resonance, f.Drive, f.Keytrack, f.EnvDepth)
	}

	var modRows []string
	for i := range p.Routes {
		r := &p.Routes[i]
		if r.Source == SrcNone || r.Dest == DestNone || r.Amount == 0 {
			continue
		}
		modRows = append(modRows, fmt.Sprintf("{ src = %q, dest = %q, amt = %.3f }",
			nameFor(modSourceNames, r.Source, "none"), nameFor(modDestNames, r.Dest, "none"), r.Amount))
	}
	if len(modRows) > 0 {
		fmt.Fprintf(&b, "  mods = { %s },\n", strings.Join(modRows, ", "))
	}

	if p.Vector.Enabled {
		fmt.Fprintf(&b, "  vector = { on = true, x = %.3f, y = %.3f, corners = { ", p.Vector.X, p.Vector.Y)
		for c := 0; c < 4; c++ {
			fmt.Fprintf(&b, "{ table = %q, morph = %.3f }", tableNameOf(e, p.Vector.Corners[c].Table), p.Vector.Corners[c].Morph)
			if c < 3 {
				b.WriteString(", ")
			}
		}
		b.WriteString(" } },\n")
	}

	if p.Glide.Enabled {
		fmt.Fprintf(&b, "  glide = { on = true, time = %g, legato = %v },\n", p.Glide.Time, p.Glide.LegatoOnly)
	}
	if p.Drift.DepthCents > 0 {
		fmt.Fprintf(&b, "  drift = %g,\n", p.Drift.DepthCents)
	}
	fmt.Fprintf(&b, "  poly = %q, voices = %d, bend = %g, gain = %.3f,\n",
		nameFor(polyModeNames, p.Poly, "poly"), p.Polyphony, p.BendRangeSemis, p.MasterGain)

	b.WriteString("  fx = {\n")
	fmt.Fprintf(&b, "    order = { %q, %q, %q, %q },\n",
		nameFor(fxKindNames, p.Effects.Order[0], "dist"), nameFor(fxKindNames, p.Effects.Order[1], "chorus"),
		nameFor(fxKindNames, p.Effects.Order[2], "delay"), nameFor(fxKindNames, p.Effects.Order[3], "reverb"))
	if p.Effects.Distortion.Shape != DistOff {
		fmt.Fprintf(&b, "    dist = { shape = %q, drive = %.3f, mix = %.3f },\n",
			nameFor(distShapeNames, p.Effects.Distortion.Shape, "off"), p.Effects.Distortion.Drive, p.Effects.Distortion.Mix)
	}
	if p.Effects.Chorus.Enabled {
		fmt.Fprintf(&b, "    chorus = { on = true, rate = %g, depth = %.3f, mix = %.3f },\n",
			p.Effects.Chorus.RateHz, p.Effects.Chorus.Depth, p.Effects.Chorus.Mix)
	}
	if p.Effects.Delay.Enabled {
		fmt.Fprintf(&b, "    delay = { on = true, time = %g, sync = %q, feedback = %.3f, damp = %.3f, mix = %.3f, pingpong = %v },\n",
			p.Effects.Delay.TimeSec, nameFor(divisionNames, p.Effects.Delay.Sync, "off"),
			p.Effects.Delay.Feedback, p.Effects.Delay.Damp, p.Effects.Delay.Mix, p.Effects.Delay.PingPong)
	}
	if p.Effects.Reverb.Enabled {
		fmt.Fprintf(&b, "    reverb = { on = true, size = %.3f, damp = %.3f, predelay = %g, mix = %.3f },\n",
			p.Effects.Reverb.Size, p.Effects.Reverb.Damp, p.Effects.Reverb.PreDelaySec, p.Effects.Reverb.Mix)
	}
	b.WriteString("  },\n")

	if p.Arp.Enabled {
		fmt.Fprintf(&b, "  arp = { on = true, mode = %q, rate = %g, steps = %g, octaves = %d, gate = %.2f, swing = %.2f, latch = %v, scale = %q, root = %d },\n",
			nameFor(arpModeNames, p.Arp.Mode, "up"), p.Arp.RateHz, p.Arp.StepsPerBeat, p.Arp.OctaveRange,
			p.Arp.GateLength, p.Arp.Swing, p.Arp.Latch, nameFor(arpScaleNames, p.Arp.Scale, "chromatic"), p.Arp.ScaleRoot)
	}

	b.WriteString("}\n")
	return b.String()
}

func tableNameOf(e *SynthEngine, id TableID) string {
	name, err := e.WavetableName(id)
	if err != nil {
		return ""
	}
	return name
}
