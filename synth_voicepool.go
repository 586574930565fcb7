// synth_voicepool.go - Voice allocation, stealing and portamento

/*
The pool owns MAX_VOICES value-typed voice slots. Allocation prefers a free
slot; when the pool is full it steals, preferring a voice already in release,
otherwise the oldest-triggered voice. Voices younger than the theft-immunity
window are passed over so fast repeated notes do not chatter; if every
candidate is immune the oldest is taken anyway, because polyphony overflow
must always resolve to a steal, never to a dropped note.

Release is graceful: a slot returns to the free list only after its amplitude
envelope decays below RELEASE_EPSILON. Mono and legato modes funnel all notes
through a single sounding voice with last-note priority and return to the
previous held note on release.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

type PolyMode int32

const (
	PolyPoly PolyMode = iota
	PolyMono
	PolyLegato
)

type voicePool struct {
	voices [MAX_VOICES]voice

	polyphony       int32 // active ceiling, 1..MAX_VOICES
	immunitySamples uint64

	// Pressed-key tracking, newest last. Drives mono priority, legato
	// detection and mono release-to-previous behavior.
	pressed      [128]bool
	pressedOrder [128]int32
	pressedCount int32

	lastNote float32 // most recent note for glide; <0 until the first note
}

func (p *voicePool) prepare(sampleRate float64) {
	p.immunitySamples = uint64(THEFT_IMMUNITY_SEC * sampleRate)
	if p.polyphony < 1 || p.polyphony > MAX_VOICES {
		p.polyphony = MAX_VOICES
	}
	for i := range p.voices {
		p.voices[i].allocate(sampleRate)
	}
	p.lastNote = -1
}

func (p *voicePool) reset() {
	for i := range p.voices {
		p.voices[i].kill()
	}
	p.pressed = [128]bool{}
	p.pressedCount = 0
	p.lastNote = -1
}

func (p *voicePool) pressKey(note int32) {
	if note < 0 || note > 127 || p.pressed[note] {
		return
	}
	p.pressed[note] = true
	p.pressedOrder[p.pressedCount] = note
	p.pressedCount++
}

func (p *voicePool) releaseKey(note int32) {
	if note < 0 || note > 127 || !p.pressed[note] {
		return
	}
	p.pressed[note] = false
	for i := int32(0); i < p.pressedCount; i++ {
		if p.pressedOrder[i] == note {
			copy(p.pressedOrder[i:p.pressedCount-1], p.pressedOrder[i+1:p.pressedCount])
			p.pressedCount--
			return
		}
	}
}

func (p *voicePool) newestPressed() int32 {
	if p.pressedCount == 0 {
		return -1
	}
	return p.pressedOrder[p.pressedCount-1]
}

// activeCount reports sounding voices (including releasing ones).
func (p *voicePool) activeCount() int {
	n := 0
	for i := range p.voices {
		if p.voices[i].active {
			n++
		}
	}
	return n
}

// soundingVoice returns the newest active voice, used by mono modes.
func (p *voicePool) soundingVoice() *voice {
	var best *voice
	for i := range p.voices {
		v := &p.voices[i]
		if v.active && (best == nil || v.startClock > best.startClock) {
			best = v
		}
	}
	return best
}

// noteOn allocates (or retargets, in mono modes) a voice. Audio thread only.
func (p *voicePool) noteOn(note int32, velocity float32, channel int32, clock uint64, snap *renderSnapshot, rng *uint32, sampleRate float64) {
	hadHeld := p.pressedCount > 0
	p.pressKey(note)

	glideFrom := float32(-1)
	if snap.Glide.Enabled && p.lastNote >= 0 {
		if !snap.Glide.LegatoOnly || hadHeld {
			glideFrom = p.lastNote
		}
	}

	switch snap.Poly {
	case PolyMono, PolyLegato:
		if v := p.soundingVoice(); v != nil && !v.releasing {
			// Retarget the sounding voice; mono retriggers envelopes,
			// legato lets them run.
			v.setGlideTarget(note)
			v.velocity = velocity
			v.startClock = clock
			if snap.Poly == PolyMono {
				for i := range v.envs {
					v.envs[i].gateOn(true)
				}
			}
			p.lastNote = float32(note)
			return
		}
		// Nothing sounding: start on slot 0's free slot like poly does.
	}

	slot := p.findSlot(clock)
	v := &p.voices[slot]
	stolen := v.active
	v.start(note, velocity, channel, clock, glideFrom, true, stolen, snap, rng, sampleRate)
	p.lastNote = float32(note)
}

// findSlot picks a free slot or the steal victim.
func (p *voicePool) findSlot(clock uint64) int {
	limit := int(p.polyphony)
	if limit < 1 || limit > MAX_VOICES {
		limit = MAX_VOICES
	}

	for i := 0; i < limit; i++ {
		if !p.voices[i].active {
			return i
		}
	}

	// Steal: releasing voices first, then oldest; both skip the immunity
	// window on the first pass.
	best := -1
	var bestClock uint64
	for i := 0; i < limit; i++ {
		v := &p.voices[i]
		if clock-v.startClock < p.immunitySamples {
			continue
		}
		if !v.releasing {
			continue
		}
		if best == -1 || v.startClock < bestClock {
			best = i
			bestClock = v.startClock
		}
	}
	if best >= 0 {
		return best
	}
	for i := 0; i < limit; i++ {
		v := &p.voices[i]
		if clock-v.startClock < p.immunitySamples {
			continue
		}
		if best == -1 || v.startClock < bestClock {
			best = i
			bestClock = v.startClock
		}
	}
	if best >= 0 {
		return best
	}

	// Everything is immune; take the oldest anyway.
	best = 0
	bestClock = p.voices[0].startClock
	for i := 1; i < limit; i++ {
		if p.voices[i].startClock < bestClock {
			best = i
			bestClock = p.voices[i].startClock
		}
	}
	return best
}

// noteOff releases the matching voices, honoring the sustain pedal and the
// mono return-to-previous behavior.
func (p *voicePool) noteOff(note int32, snap *renderSnapshot) {
	p.releaseKey(note)

	switch snap.Poly {
	case PolyMono, PolyLegato:
		v := p.soundingVoice()
		if v == nil || v.note != note {
			return
		}
		if prev := p.newestPressed(); prev >= 0 {
			v.setGlideTarget(prev)
			p.lastNote = float32(prev)
			return
		}
		v.noteOff(snap.SustainPedal)
	default:
		for i := range p.voices {
			v := &p.voices[i]
			if v.active && v.note == note && !v.releasing {
				v.noteOff(snap.SustainPedal)
			}
		}
	}
}

// allNotesOff releases everything gracefully.
func (p *voicePool) allNotesOff() {
	for i := range p.voices {
		if p.voices[i].active {
			p.voices[i].release()
		}
	}
	p.pressed = [128]bool{}
	p.pressedCount = 0
}
