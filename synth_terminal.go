// synth_terminal.go - raw-mode terminal keyboard performance

/*
Turns stdin into a two-row musical keyboard without any GUI stack. The
terminal delivers no key-release events, so every press fires a note-on
and schedules its note-off on the sample clock a fixed gate later. That
same scheduling path is what Lua scripts use, so the terminal doubles as
a quick way to hear a patch on machines with no display.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

const TERM_GATE_SEC = 0.35

// Two-row note layout matching the scope window: z..comma lower octave,
// q..i upper. Digits on the sharps row follow tracker convention.
var termKeyNotes = map[byte]int32{
	'z': 0, 's': 1, 'x': 2, 'd': 3, 'c': 4, 'v': 5, 'g': 6, 'b': 7,
	'h': 8, 'n': 9, 'j': 10, 'm': 11, ',': 12,
	'q': 12, '2': 13, 'w': 14, '3': 15, 'e': 16, 'r': 17, '5': 18,
	't': 19, '6': 20, 'y': 21, '7': 22, 'u': 23, 'i': 24,
}

type TerminalKeys struct {
	eng *SynthEngine

	fd           int
	nonblockSet  bool
	oldTermState *term.State
	restoreOnce  sync.Once

	octave   int32
	velocity float32

	presets   []string
	presetIdx int
}

func NewTerminalKeys(eng *SynthEngine) *TerminalKeys {
	tk := &TerminalKeys{
		eng:      eng,
		octave:   5,
		velocity: 0.85,
		presets:  PresetNames(),
	}
	name := eng.PatchName()
	for i, n := range tk.presets {
		if n == name {
			tk.presetIdx = i
			break
		}
	}
	return tk
}

// Run puts stdin into raw mode and blocks until Esc or Ctrl+C. Always
// restores the terminal before returning.
func (tk *TerminalKeys) Run() error {
	tk.fd = int(os.Stdin.Fd())
	if !term.IsTerminal(tk.fd) {
		return fmt.Errorf("stdin is not a terminal")
	}

	oldState, err := term.MakeRaw(tk.fd)
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	tk.oldTermState = oldState
	defer tk.restore()

	if err := syscall.SetNonblock(tk.fd, true); err != nil {
		return fmt.Errorf("failed to set nonblocking stdin: %w", err)
	}
	tk.nonblockSet = true

	tk.printHelp()
	tk.printStatus()

	buf := make([]byte, 1)
	for {
		n, err := syscall.Read(tk.fd, buf)
		if n > 0 {
			quit := tk.handleByte(buf[0])
			if quit {
				tk.eng.AllNotesOff()
				fmt.Printf("\r\n")
				return nil
			}
			continue
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || n == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return nil
		}
	}
}

func (tk *TerminalKeys) restore() {
	tk.restoreOnce.Do(func() {
		if tk.nonblockSet {
			_ = syscall.SetNonblock(tk.fd, false)
			tk.nonblockSet = false
		}
		if tk.oldTermState != nil {
			_ = term.Restore(tk.fd, tk.oldTermState)
			tk.oldTermState = nil
		}
	})
}

// handleByte dispatches one raw input byte. Returns true on quit.
func (tk *TerminalKeys) handleByte(b byte) bool {
	switch b {
	case 0x03: // Ctrl+C
		return true
	case 0x1B:
		return tk.handleEscape()
	case ' ':
		tk.eng.AllNotesOff()
		tk.printStatus()
		return false
	case '[':
		if tk.octave > 1 {
			tk.octave--
		}
		tk.printStatus()
		return false
	case ']':
		if tk.octave < 8 {
			tk.octave++
		}
		tk.printStatus()
		return false
	case '-':
		if tk.velocity > 0.15 {
			tk.velocity -= 0.1
		}
		tk.printStatus()
		return false
	case '=':
		if tk.velocity < 1.0 {
			tk.velocity += 0.1
		}
		tk.printStatus()
		return false
	case '9':
		tk.cyclePreset(-1)
		return false
	case '0':
		tk.cyclePreset(1)
		return false
	case 'a':
		p := tk.eng.CurrentPatch()
		ap := p.Arp
		ap.Enabled = !ap.Enabled
		tk.eng.SetArp(ap)
		tk.printStatus()
		return false
	case '?':
		tk.printHelp()
		return false
	}

	if offset, ok := termKeyNotes[b]; ok {
		tk.playNote(tk.octave*12 + offset)
	}
	return false
}

// handleEscape distinguishes a bare Esc press from an arrow-key escape
// sequence. Raw mode delivers sequence bytes back to back, so a short
// wait is enough to tell them apart.
func (tk *TerminalKeys) handleEscape() bool {
	seq := make([]byte, 1)
	readNext := func() (byte, bool) {
		for try := 0; try < 4; try++ {
			n, _ := syscall.Read(tk.fd, seq)
			if n > 0 {
				return seq[0], true
			}
			time.Sleep(2 * time.Millisecond)
		}
		return 0, false
	}

	b, ok := readNext()
	if !ok {
		return true // bare Esc
	}
	if b != '[' {
		return false
	}
	b, ok = readNext()
	if !ok {
		return false
	}
	switch b {
	case 'A': // up
		if tk.octave < 8 {
			tk.octave++
		}
	case 'B': // down
		if tk.octave > 1 {
			tk.octave--
		}
	case 'C': // right
		tk.cyclePreset(1)
		return false
	case 'D': // left
		tk.cyclePreset(-1)
		return false
	}
	tk.printStatus()
	return false
}

func (tk *TerminalKeys) playNote(note int32) {
	if err := tk.eng.NoteOn(note, tk.velocity); err != nil {
		return
	}
	gate := uint64(TERM_GATE_SEC * tk.eng.SampleRate())
	_ = tk.eng.NoteOffAt(note, tk.eng.SampleClock()+gate)
	tk.printStatus()
}

func (tk *TerminalKeys) cyclePreset(dir int) {
	if len(tk.presets) == 0 {
		return
	}
	tk.presetIdx = (tk.presetIdx + dir + len(tk.presets)) % len(tk.presets)
	if err := tk.eng.LoadPreset(tk.presets[tk.presetIdx]); err == nil {
		tk.printStatus()
	}
}

func (tk *TerminalKeys) printStatus() {
	p := tk.eng.CurrentPatch()
	arp := "off"
	if p.Arp.Enabled {
		arp = "on"
	}
	fmt.Printf("\r\033[K[%-16s] oct %d  vel %.2f  arp %-3s  %2d voices ",
		p.Name, tk.octave, tk.velocity, arp, tk.eng.ActiveVoiceCount())
}

func (tk *TerminalKeys) printHelp() {
	fmt.Printf("\r\n")
	fmt.Printf("  z..,  lower octave    q..i  upper octave\r\n")
	fmt.Printf("  [ ]   octave -/+      - =   velocity -/+\r\n")
	fmt.Printf("  9 0   preset prev/next   a  toggle arp\r\n")
	fmt.Printf("  space all notes off   ?  this help   Esc/Ctrl+C quit\r\n")
	fmt.Printf("\r\n")
}
