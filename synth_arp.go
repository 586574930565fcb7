// synth_arp.go - Arpeggiator

/*
Converts the held-note set into a timed note stream ahead of the voice pool.
Timing is a per-sample accumulator; firing subtracts the step threshold
instead of resetting, so phase error never accumulates. Swing widens every
odd step's threshold and narrows the even one by the same amount, which
keeps the step pair's total length exact.

Note selection happens at fire time from the current held set, so removing
the playing step's note simply skips to the next valid one. Latch keeps the
set alive after the keys lift; the first fresh key press starts a new set.
Fired notes can be quantized down to a scale before they reach the pool.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

type ArpMode int32

const (
	ArpUp ArpMode = iota
	ArpDown
	ArpUpDown
	ArpDownUp
	ArpRandom
	ArpAsPlayed
	ArpChord
)

type ArpScale int32

const (
	ScaleChromatic ArpScale = iota
	ScaleMajor
	ScaleNaturalMinor
	ScaleHarmonicMinor
	ScalePentMajor
	ScalePentMinor
	ScaleBlues
	ScaleDorian
	ScaleMixolydian
	numArpScales
)

// scaleMasks marks the semitone degrees present in each scale.
var scaleMasks = [numArpScales][12]bool{
	ScaleChromatic:     {true, true, true, true, true, true, true, true, true, true, true, true},
	ScaleMajor:         {true, false, true, false, true, true, false, true, false, true, false, true},
	ScaleNaturalMinor:  {true, false, true, true, false, true, false, true, true, false, true, false},
	ScaleHarmonicMinor: {true, false, true, true, false, true, false, true, true, false, false, true},
	ScalePentMajor:     {true, false, true, false, true, false, false, true, false, true, false, false},
	ScalePentMinor:     {true, false, false, true, false, true, false, true, false, false, true, false},
	ScaleBlues:         {true, false, false, true, false, true, true, true, false, false, true, false},
	ScaleDorian:        {true, false, true, true, false, true, false, true, false, true, true, false},
	ScaleMixolydian:    {true, false, true, false, true, true, false, true, false, true, true, false},
}

// ArpParams is the control-thread view.
type ArpParams struct {
	Enabled      bool
	Mode         ArpMode
	RateHz       float32 // steps per second when StepsPerBeat == 0
	StepsPerBeat float32 // tempo sync; 0 disables
	OctaveRange  int     // 0..3 extra octaves replicated above the set
	GateLength   float32 // 0..1 fraction of the step
	Swing        float32 // 0..1
	Latch        bool
	Scale        ArpScale
	ScaleRoot    int32 // 0..11, semitone root for quantization
}

const arpMaxHeld = 32
const arpMaxActive = 32
const arpEventCap = 1024

type arpHeldNote struct {
	note int32
	vel  float32
}

// arpEvent is a pool-bound note event produced inside the block.
type arpEvent struct {
	offset int32
	note   int32
	vel    float32
	on     bool
}

type arpSounding struct {
	note     int32
	offClock uint64
}

type arpeggiator struct {
	held      [arpMaxHeld]arpHeldNote // latched set, insertion order
	heldCount int

	physDown  [128]bool // physically held keys
	physCount int

	sorted      [arpMaxHeld]arpHeldNote // held sorted by note, rebuilt on change
	sortedDirty bool

	acc       float64
	stepCount uint64 // fired steps since restart; selects swing side
	stepIndex int

	active      [arpMaxActive]arpSounding // sounding notes awaiting gate-off
	activeCount int

	rng       uint32
	running   bool // held set non-empty and arp enabled
	prevLatch bool
}

func (a *arpeggiator) reset(seed uint32) {
	if seed == 0 {
		seed = 1
	}
	*a = arpeggiator{rng: seed}
}

// stepRateHz resolves the step rate for the current tempo.
func arpStepRate(p *ArpParams, bpm float64) float64 {
	if p.StepsPerBeat > 0 && bpm > 0 {
		return float64(p.StepsPerBeat) * bpm / 60.0
	}
	return float64(p.RateHz)
}

func (a *arpeggiator) noteOn(note int32, vel float32, latch bool) {
	if note < 0 || note > 127 {
		return
	}
	if latch && a.physCount == 0 {
		// First key after a full lift starts a fresh latched set.
		a.heldCount = 0
		a.sortedDirty = true
	}
	if !a.physDown[note] {
		a.physDown[note] = true
		a.physCount++
	}
	for i := 0; i < a.heldCount; i++ {
		if a.held[i].note == note {
			a.held[i].vel = vel
			return
		}
	}
	if a.heldCount < arpMaxHeld {
		a.held[a.heldCount] = arpHeldNote{note: note, vel: vel}
		a.heldCount++
		a.sortedDirty = true
	}
	if !a.running && a.heldCount > 0 {
		// First note starts the pattern immediately.
		a.running = true
		a.acc = 1.0
		a.stepCount = 0
		a.stepIndex = 0
	}
}

func (a *arpeggiator) noteOff(note int32, latch bool) {
	if note < 0 || note > 127 {
		return
	}
	if a.physDown[note] {
		a.physDown[note] = false
		a.physCount--
	}
	if latch {
		return
	}
	a.removeHeld(note)
}

func (a *arpeggiator) removeHeld(note int32) {
	for i := 0; i < a.heldCount; i++ {
		if a.held[i].note == note {
			copy(a.held[i:a.heldCount-1], a.held[i+1:a.heldCount])
			a.heldCount--
			a.sortedDirty = true
			return
		}
	}
}

func (a *arpeggiator) clear() {
	a.heldCount = 0
	a.physDown = [128]bool{}
	a.physCount = 0
	a.sortedDirty = true
	a.running = false
}

// latchOff trims the latched set back to the physically held keys.
func (a *arpeggiator) latchOff() {
	kept := 0
	for i := 0; i < a.heldCount; i++ {
		if a.physDown[a.held[i].note] {
			a.held[kept] = a.held[i]
			kept++
		}
	}
	a.heldCount = kept
	a.sortedDirty = true
}

func (a *arpeggiator) rebuildSorted() {
	copy(a.sorted[:a.heldCount], a.held[:a.heldCount])
	// Insertion sort; the set is tiny.
	for i := 1; i < a.heldCount; i++ {
		j := i
		for j > 0 && a.sorted[j-1].note > a.sorted[j].note {
			a.sorted[j-1], a.sorted[j] = a.sorted[j], a.sorted[j-1]
			j--
		}
	}
	a.sortedDirty = false
}

// sequenceLen is the virtual pattern length for the current mode and octave
// range. UpDown/DownUp walk the octave-expanded set without repeating the
// turnaround notes.
func (a *arpeggiator) sequenceLen(p *ArpParams) int {
	if a.heldCount == 0 {
		return 0
	}
	expanded := a.heldCount * (p.OctaveRange + 1)
	switch p.Mode {
	case ArpUpDown, ArpDownUp:
		if expanded > 1 {
			return 2*expanded - 2
		}
		return 1
	case ArpChord:
		return 1
	default:
		return expanded
	}
}

// noteAt maps a sequence position to a held note (+octave shift).
func (a *arpeggiator) noteAt(p *ArpParams, pos int) arpHeldNote {
	if a.sortedDirty {
		a.rebuildSorted()
	}
	n := a.heldCount
	expanded := n * (p.OctaveRange + 1)

	idx := 0
	switch p.Mode {
	case ArpUp:
		idx = pos
	case ArpDown:
		idx = expanded - 1 - pos
	case ArpUpDown:
		if pos < expanded {
			idx = pos
		} else {
			idx = 2*expanded - 2 - pos
		}
	case ArpDownUp:
		if pos < expanded {
			idx = expanded - 1 - pos
		} else {
			idx = pos - (expanded - 1)
		}
	case ArpAsPlayed:
		base := a.held[pos%n]
		oct := pos / n
		return arpHeldNote{note: base.note + int32(12*oct), vel: base.vel}
	case ArpRandom:
		a.rng = xorshift32(a.rng)
		idx = int(a.rng % uint32(expanded))
	}

	base := a.sorted[idx%n]
	oct := idx / n
	return arpHeldNote{note: base.note + int32(12*oct), vel: base.vel}
}

// quantize snaps a note down to the nearest scale tone.
func arpQuantize(note int32, scale ArpScale, root int32) int32 {
	if scale <= ScaleChromatic || scale >= numArpScales {
		return note
	}
	mask := &scaleMasks[scale]
	degree := ((note-root)%12 + 12) % 12
	for d := degree; d >= degree-11; d-- {
		if mask[((d%12)+12)%12] {
			return note - (degree - d)
		}
	}
	return note
}

// run simulates n samples starting at clock. External note events are applied
// to the held set at their sample offsets; fired steps and gate-offs are
// appended to out in offset order. Returns the extended slice (capacity is
// preallocated by the engine, so no allocation happens in the steady state).
func (a *arpeggiator) run(n int, clock uint64, snap *renderSnapshot, ext []engineEvent, out []arpEvent) []arpEvent {
	p := &snap.Arp

	if !p.Enabled {
		// Flush anything still sounding, then stay idle.
		for i := 0; i < a.activeCount; i++ {
			out = appendArpEvent(out, arpEvent{offset: 0, note: a.active[i].note, on: false})
		}
		a.activeCount = 0
		a.running = false
		return out
	}

	if a.prevLatch && !p.Latch {
		a.latchOff()
	}
	a.prevLatch = p.Latch

	rate := arpStepRate(p, snap.Tempo)
	inc := rate / snap.SampleRate
	stepSamples := 0.0
	if rate > 0 {
		stepSamples = snap.SampleRate / rate
	}
	gate := clampF(p.GateLength, 0.05, 1.0)
	swing := float64(clampF(p.Swing, 0, 1)) * 0.5

	extIdx := 0
	for i := 0; i < n; i++ {
		now := clock + uint64(i)

		// Held-set changes land exactly on their timestamps.
		for extIdx < len(ext) && ext[extIdx].when <= now {
			ev := &ext[extIdx]
			switch ev.kind {
			case evNoteOn:
				a.noteOn(ev.note, ev.vel, p.Latch)
			case evNoteOff:
				a.noteOff(ev.note, p.Latch)
			case evAllOff:
				a.clear()
			}
			extIdx++
		}

		// Gate-offs due now.
		for j := 0; j < a.activeCount; {
			if a.active[j].offClock <= now {
				out = appendArpEvent(out, arpEvent{offset: int32(i), note: a.active[j].note, on: false})
				a.active[j] = a.active[a.activeCount-1]
				a.activeCount--
			} else {
				j++
			}
		}

		if a.heldCount == 0 {
			a.running = false
			continue
		}
		if !a.running {
			a.running = true
			a.acc = 1.0
			a.stepCount = 0
			a.stepIndex = 0
		}

		// A stopped transport freezes the step clock; the pattern resumes
		// from where it held when the host starts again.
		if rate <= 0 || !snap.Playing {
			continue
		}

		a.acc += inc
		threshold := 1.0
		if a.stepCount%2 == 0 {
			threshold = 1.0 + swing
		} else {
			threshold = 1.0 - swing
		}
		if a.acc < threshold {
			continue
		}
		a.acc -= threshold

		seqLen := a.sequenceLen(p)
		if seqLen == 0 {
			continue
		}
		pos := a.stepIndex % seqLen

		gateSamples := uint64(float64(gate) * stepSamples)
		if gateSamples < 1 {
			gateSamples = 1
		}

		if p.Mode == ArpChord {
			for h := 0; h < a.heldCount; h++ {
				for oct := 0; oct <= p.OctaveRange; oct++ {
					hn := a.held[h]
					note := arpQuantize(hn.note+int32(12*oct), p.Scale, p.ScaleRoot)
					out = appendArpEvent(out, arpEvent{offset: int32(i), note: note, vel: hn.vel, on: true})
					out = a.trackSounding(out, int32(i), note, now+gateSamples)
				}
			}
		} else {
			hn := a.noteAt(p, pos)
			note := arpQuantize(hn.note, p.Scale, p.ScaleRoot)
			out = appendArpEvent(out, arpEvent{offset: int32(i), note: note, vel: hn.vel, on: true})
			out = a.trackSounding(out, int32(i), note, now+gateSamples)
		}

		a.stepIndex++
		a.stepCount++
	}

	return out
}

// trackSounding records a fired note for its later gate-off. A full table
// evicts the oldest entry, releasing its note immediately so nothing hangs.
func (a *arpeggiator) trackSounding(out []arpEvent, offset int32, note int32, offClock uint64) []arpEvent {
	if a.activeCount < arpMaxActive {
		a.active[a.activeCount] = arpSounding{note: note, offClock: offClock}
		a.activeCount++
		return out
	}
	out = appendArpEvent(out, arpEvent{offset: offset, note: a.active[0].note, on: false})
	a.active[0] = arpSounding{note: note, offClock: offClock}
	return out
}

// appendArpEvent drops events past capacity instead of growing the slice;
// the audio thread must not allocate.
func appendArpEvent(out []arpEvent, ev arpEvent) []arpEvent {
	if len(out) < cap(out) {
		return append(out, ev)
	}
	return out
}
