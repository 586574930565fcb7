//go:build !headless

// synth_scope.go - Ebiten oscilloscope and live performance front-end

/*
Opens a window with stereo output traces, peak meters, a mouse-driven
vector pad and a two-row QWERTY keyboard mapped to notes. This is a
monitoring and noodling surface, not a patch editor; deep edits go
through Lua scripts, with Ctrl+Shift+C exporting the current patch as a
script for round-tripping.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"
)

const (
	SCOPE_WIN_W   = 640
	SCOPE_WIN_H   = 400
	SCOPE_SAMPLES = 1024
)

// Two-row note layout: Z..comma is the lower octave, Q..I the upper.
var scopeKeyNotes = map[ebiten.Key]int32{
	ebiten.KeyZ: 0, ebiten.KeyS: 1, ebiten.KeyX: 2, ebiten.KeyD: 3,
	ebiten.KeyC: 4, ebiten.KeyV: 5, ebiten.KeyG: 6, ebiten.KeyB: 7,
	ebiten.KeyH: 8, ebiten.KeyN: 9, ebiten.KeyJ: 10, ebiten.KeyM: 11,
	ebiten.KeyComma: 12,
	ebiten.KeyQ:     12, ebiten.Key2: 13, ebiten.KeyW: 14, ebiten.Key3: 15,
	ebiten.KeyE: 16, ebiten.KeyR: 17, ebiten.Key5: 18, ebiten.KeyT: 19,
	ebiten.Key6: 20, ebiten.KeyY: 21, ebiten.Key7: 22, ebiten.KeyU: 23,
	ebiten.KeyI: 24,
}

type ScopeUI struct {
	eng *SynthEngine
	out AudioOutput

	capL []float32
	capR []float32

	octave   int32
	velocity float32
	held     map[ebiten.Key]int32

	presets   []string
	presetIdx int

	fullscreen bool
	showHelp   bool
	statusMsg  string
	statusTTL  int

	clipboardOnce sync.Once
	clipboardOK   bool
}

func NewScopeUI(eng *SynthEngine, out AudioOutput) *ScopeUI {
	ui := &ScopeUI{
		eng:      eng,
		out:      out,
		capL:     make([]float32, SCOPE_SAMPLES),
		capR:     make([]float32, SCOPE_SAMPLES),
		octave:   5,
		velocity: 0.85,
		held:     make(map[ebiten.Key]int32),
		presets:  PresetNames(),
	}
	name := eng.PatchName()
	for i, n := range ui.presets {
		if n == name {
			ui.presetIdx = i
			break
		}
	}
	return ui
}

// RunScope blocks until the window closes. Must run on the main goroutine.
func RunScope(eng *SynthEngine, out AudioOutput) error {
	ui := NewScopeUI(eng, out)
	ebiten.SetWindowSize(SCOPE_WIN_W, SCOPE_WIN_H)
	ebiten.SetWindowTitle("WaveWeaver (c) 2024 - 2026 Zayn Otley")
	ebiten.SetWindowResizable(true)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)
	return ebiten.RunGame(ui)
}

func (ui *ScopeUI) flash(msg string) {
	ui.statusMsg = msg
	ui.statusTTL = 150 // ~2.5s at 60fps
}

func (ui *ScopeUI) Update() error {
	if ebiten.IsWindowBeingClosed() {
		ui.eng.AllNotesOff()
		return ebiten.Termination
	}
	if ui.statusTTL > 0 {
		ui.statusTTL--
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ui.fullscreen = !ui.fullscreen
		ebiten.SetFullscreen(ui.fullscreen)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		ui.showHelp = !ui.showHelp
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		ui.eng.AllNotesOff()
		return ebiten.Termination
	}

	ui.handleKeyboard()
	ui.handleVectorPad()
	return nil
}

func (ui *ScopeUI) handleKeyboard() {
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)

	if ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyC) {
		ui.copyPatchToClipboard()
		return
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && ui.octave < 8 {
		ui.octave++
		ui.flash(fmt.Sprintf("Octave %d", ui.octave))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && ui.octave > 1 {
		ui.octave--
		ui.flash(fmt.Sprintf("Octave %d", ui.octave))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
		ui.cyclePreset(1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) {
		ui.cyclePreset(-1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) && ui.velocity > 0.15 {
		ui.velocity -= 0.1
		ui.flash(fmt.Sprintf("Velocity %.2f", ui.velocity))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) && ui.velocity < 1.0 {
		ui.velocity += 0.1
		ui.flash(fmt.Sprintf("Velocity %.2f", ui.velocity))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		ui.eng.AllNotesOff()
		ui.flash("All notes off")
	}

	for key, offset := range scopeKeyNotes {
		if inpututil.IsKeyJustPressed(key) {
			if ctrl || shift {
				continue
			}
			ui.playNote(key, ui.octave*12+offset)
		}
		if inpututil.IsKeyJustReleased(key) {
			ui.releaseNote(key)
		}
	}
}

// playNote starts a note and remembers which key holds it. A rejected event
// (full queue) lands in the status line instead of dying silently.
func (ui *ScopeUI) playNote(key ebiten.Key, note int32) {
	if err := ui.eng.NoteOn(note, ui.velocity); err != nil {
		ui.flash("Note dropped: " + err.Error())
		return
	}
	ui.held[key] = note
}

// releaseNote ends the note captured at press time so octave changes while
// holding do not strand voices.
func (ui *ScopeUI) releaseNote(key ebiten.Key) {
	note, ok := ui.held[key]
	if !ok {
		return
	}
	delete(ui.held, key)
	if err := ui.eng.NoteOff(note); err != nil {
		ui.flash("Note-off dropped: " + err.Error())
	}
}

func (ui *ScopeUI) cyclePreset(dir int) {
	if len(ui.presets) == 0 {
		return
	}
	ui.presetIdx = (ui.presetIdx + dir + len(ui.presets)) % len(ui.presets)
	name := ui.presets[ui.presetIdx]
	if err := ui.eng.LoadPreset(name); err == nil {
		ui.flash("Preset: " + name)
	}
}

func (ui *ScopeUI) copyPatchToClipboard() {
	ui.clipboardOnce.Do(func() {
		ui.clipboardOK = clipboard.Init() == nil
	})
	if !ui.clipboardOK {
		ui.flash("Clipboard unavailable")
		return
	}
	script := PatchToLua(ui.eng, ui.eng.CurrentPatch())
	clipboard.Write(clipboard.FmtText, []byte(script))
	ui.flash("Patch copied as Lua script")
}

// Vector pad geometry, window coordinates.
const (
	vecPadX = 510
	vecPadY = 24
	vecPadW = 118
	vecPadH = 118
)

func (ui *ScopeUI) handleVectorPad() {
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		return
	}
	mx, my := ebiten.CursorPosition()
	if mx < vecPadX || mx > vecPadX+vecPadW || my < vecPadY || my > vecPadY+vecPadH {
		return
	}
	x := float32(mx-vecPadX) / float32(vecPadW)
	y := 1 - float32(my-vecPadY)/float32(vecPadH)
	ui.eng.SetVectorPos(x, y)
}

var (
	scopeBGColor     = color.RGBA{12, 12, 16, 255}
	scopeGridColor   = color.RGBA{40, 40, 48, 255}
	scopeTraceLColor = color.RGBA{0, 220, 90, 255}
	scopeTraceRColor = color.RGBA{0, 170, 230, 255}
	scopeLabelColor  = color.RGBA{190, 190, 190, 255}
	scopeDimColor    = color.RGBA{120, 120, 120, 255}
	scopeOnColor     = color.RGBA{0, 220, 90, 255}
	scopeWarnColor   = color.RGBA{230, 180, 0, 255}
)

func (ui *ScopeUI) Draw(screen *ebiten.Image) {
	screen.Fill(scopeBGColor)

	ui.eng.CaptureScope(ui.capL, ui.capR)
	ui.drawTrace(screen, ui.capL, 10, 90, 490, 66, scopeTraceLColor, "L")
	ui.drawTrace(screen, ui.capR, 10, 232, 490, 66, scopeTraceRColor, "R")
	ui.drawVectorPad(screen)
	ui.drawMeters(screen)
	ui.drawStatusBar(screen)

	if ui.showHelp {
		ui.drawHelp(screen)
	}
	if ui.statusTTL > 0 {
		text.Draw(screen, ui.statusMsg, basicfont.Face7x13, 10, 340, scopeLabelColor)
	}
}

func (ui *ScopeUI) drawTrace(screen *ebiten.Image, samples []float32, x, midY, w, half int, c color.Color, label string) {
	ebitenutil.DrawLine(screen, float64(x), float64(midY), float64(x+w), float64(midY), scopeGridColor)
	text.Draw(screen, label, basicfont.Face7x13, x+w+6, midY+4, scopeDimColor)

	n := len(samples)
	if n < 2 {
		return
	}
	prevX := float64(x)
	prevY := float64(midY) - float64(samples[0])*float64(half)
	for px := 1; px < w; px++ {
		idx := px * (n - 1) / (w - 1)
		cx := float64(x + px)
		cy := float64(midY) - float64(samples[idx])*float64(half)
		ebitenutil.DrawLine(screen, prevX, prevY, cx, cy, c)
		prevX, prevY = cx, cy
	}
}

func (ui *ScopeUI) drawVectorPad(screen *ebiten.Image) {
	p := ui.eng.CurrentPatch()
	border := scopeDimColor
	if p.Vector.Enabled {
		border = scopeOnColor
	}
	x, y, w, h := float64(vecPadX), float64(vecPadY), float64(vecPadW), float64(vecPadH)
	ebitenutil.DrawLine(screen, x, y, x+w, y, border)
	ebitenutil.DrawLine(screen, x, y+h, x+w, y+h, border)
	ebitenutil.DrawLine(screen, x, y, x, y+h, border)
	ebitenutil.DrawLine(screen, x+w, y, x+w, y+h, border)
	text.Draw(screen, "VECTOR", basicfont.Face7x13, vecPadX, vecPadY-6, scopeDimColor)

	cx := x + float64(p.Vector.X)*w
	cy := y + (1-float64(p.Vector.Y))*h
	ebitenutil.DrawRect(screen, cx-2, cy-2, 4, 4, scopeTraceLColor)
}

func (ui *ScopeUI) drawMeters(screen *ebiten.Image) {
	peakL, peakR := ui.eng.CurrentPeak()
	const meterX, meterY, meterW, meterH = 540, 170, 14, 120
	text.Draw(screen, "OUT", basicfont.Face7x13, meterX, meterY-6, scopeDimColor)
	drawMeterBar(screen, meterX, meterY, meterW, meterH, peakL)
	drawMeterBar(screen, meterX+meterW+8, meterY, meterW, meterH, peakR)
}

func drawMeterBar(screen *ebiten.Image, x, y, w, h int, peak float32) {
	ebitenutil.DrawRect(screen, float64(x), float64(y), float64(w), float64(h), scopeGridColor)
	level := clamp01(peak)
	filled := int(level * float32(h))
	c := scopeOnColor
	if level > 0.9 {
		c = scopeWarnColor
	}
	ebitenutil.DrawRect(screen, float64(x), float64(y+h-filled), float64(w), float64(filled), c)
}

type scopeToken struct {
	name    string
	enabled bool
}

func drawScopeRow(screen *ebiten.Image, x, baselineY int, label string, tokens []scopeToken) {
	face := basicfont.Face7x13
	text.Draw(screen, label, face, x, baselineY, scopeLabelColor)
	cursorX := x + text.BoundString(face, label).Dx() + 6

	for _, token := range tokens {
		c := scopeDimColor
		if token.enabled {
			c = scopeOnColor
		}
		text.Draw(screen, token.name, face, cursorX, baselineY, c)
		cursorX += text.BoundString(face, token.name).Dx() + 8
	}
}

func (ui *ScopeUI) drawStatusBar(screen *ebiten.Image) {
	p := ui.eng.CurrentPatch()
	barHeight := 44
	y := SCOPE_WIN_H - barHeight
	ebitenutil.DrawRect(screen, 0, float64(y), SCOPE_WIN_W, float64(barHeight), color.RGBA{0, 0, 0, 180})

	voices := ui.eng.ActiveVoiceCount()
	drawScopeRow(screen, 6, y+13, "PATCH", []scopeToken{
		{name: p.Name, enabled: true},
		{name: "|", enabled: false},
		{name: fmt.Sprintf("VOICES %d/%d", voices, p.Polyphony), enabled: voices > 0},
		{name: "|", enabled: false},
		{name: fmt.Sprintf("OCT %d", ui.octave), enabled: true},
		{name: "|", enabled: false},
		{name: fmt.Sprintf("VEL %.2f", ui.velocity), enabled: true},
		{name: "|", enabled: false},
		{name: fmt.Sprintf("%.0f BPM", ui.eng.Tempo()), enabled: true},
	})
	drawScopeRow(screen, 6, y+26, "FX   ", []scopeToken{
		{name: "DIST", enabled: p.Effects.Distortion.Shape != DistOff},
		{name: "|", enabled: false},
		{name: "CHORUS", enabled: p.Effects.Chorus.Enabled},
		{name: "|", enabled: false},
		{name: "DELAY", enabled: p.Effects.Delay.Enabled},
		{name: "|", enabled: false},
		{name: "REVERB", enabled: p.Effects.Reverb.Enabled},
		{name: "|", enabled: false},
		{name: "ARP", enabled: p.Arp.Enabled},
		{name: "|", enabled: false},
		{name: "VECTOR", enabled: p.Vector.Enabled},
	})

	legend := "Z-M/Q-I notes  <-/-> preset  F11 fullscreen  F12 help"
	text.Draw(screen, legend, basicfont.Face7x13, 6, y+39, color.RGBA{160, 160, 160, 255})
}

func (ui *ScopeUI) drawHelp(screen *ebiten.Image) {
	lines := []string{
		"Z..comma   lower octave     Q..I       upper octave",
		"Up/Down    octave           Left/Right preset",
		"-/=        velocity         Space      all notes off",
		"Mouse      vector pad       Ctrl+Shift+C  copy patch as Lua",
		"F11        fullscreen       Esc        quit",
	}
	ebitenutil.DrawRect(screen, 40, 40, SCOPE_WIN_W-80, float64(len(lines)*16+20), color.RGBA{0, 0, 0, 220})
	for i, line := range lines {
		text.Draw(screen, line, basicfont.Face7x13, 52, 58+i*16, scopeLabelColor)
	}
}

func (ui *ScopeUI) Layout(_, _ int) (int, int) {
	return SCOPE_WIN_W, SCOPE_WIN_H
}
