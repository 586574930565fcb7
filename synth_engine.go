// synth_engine.go - Engine core, snapshot publication and block rendering

/*
SynthEngine ties the wavetable store, voice pool, LFO bank, arpeggiator and
effects chain together behind a two-thread contract. The control thread
edits a pending Patch under a mutex and publishes an immutable snapshot
through an atomic pointer; the audio thread loads the snapshot once per
RenderBlock and never takes a lock. Note events travel through a fixed-size
single-producer ring carrying absolute sample-clock timestamps; the audio
thread drains the whole ring every block and parks future-stamped events
in a pending list, so a host can schedule far ahead without delaying
events that are already due.

RenderBlock splits the block at every due event. Each segment re-evaluates
the modulation matrix and envelope coefficients at its start, which is what
gives block-rate control its sample-accurate event boundaries. Effects and
master gain run once over the whole block after the voice mix.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// renderSnapshot is the audio thread's frozen view of everything the
// control thread can change. It embeds the Patch by value; nothing in it
// is mutated after publication.
type renderSnapshot struct {
	Patch

	SampleRate   float64
	Tempo        float64
	Playing      bool // host transport; gates the arpeggiator step clock
	ModWheel     float32
	Aftertouch   float32
	PitchBend    float32 // -1..1, scaled by BendRangeSemis
	SustainPedal bool
	TableCount   int // wavetable slots safe to dereference
}

type engineEventKind int32

const (
	evNoteOn engineEventKind = iota
	evNoteOff
	evAllOff
)

// engineEvent is one timed control event. when is an absolute sample-clock
// position; events landing inside a block are applied at their exact frame.
type engineEvent struct {
	kind engineEventKind
	note int32
	vel  float32
	when uint64
}

// eventRing is a single-producer single-consumer queue. The control mutex
// serializes producers; the audio thread is the only consumer.
type eventRing struct {
	buf  [EVENT_QUEUE_SIZE]engineEvent
	head atomic.Uint64 // consumer position
	tail atomic.Uint64 // producer position
}

func (r *eventRing) push(ev engineEvent) bool {
	t := r.tail.Load()
	if t-r.head.Load() >= EVENT_QUEUE_SIZE {
		return false
	}
	r.buf[t%EVENT_QUEUE_SIZE] = ev
	r.tail.Store(t + 1)
	return true
}

// pop removes the oldest queued event regardless of timestamp; the
// consumer sequences events by their when field after draining.
func (r *eventRing) pop() (engineEvent, bool) {
	h := r.head.Load()
	if h == r.tail.Load() {
		return engineEvent{}, false
	}
	ev := r.buf[h%EVENT_QUEUE_SIZE]
	r.head.Store(h + 1)
	return ev, true
}

// blockEvent is an event resolved to a frame offset inside the current
// block, after the arpeggiator has had its pass.
type blockEvent struct {
	offset int32
	kind   engineEventKind
	note   int32
	vel    float32
}

// meterState is the audio thread's per-block telemetry, published through
// an atomic pointer for lock-free reads from the control thread.
type meterState struct {
	ActiveVoices int32
	PeakL        float32
	PeakR        float32
	LFOValues    [NUM_LFOS]float32
	EnvLevels    [MAX_VOICES]float32 // amp envelope per pool slot, 0 when idle
	Clock        uint64
}

type SynthEngine struct {
	// Control side. mu guards pending and the performance fields; every
	// mutation republishes the snapshot.
	mu         sync.Mutex
	pending    Patch
	tempo      float64
	transport  bool
	modWheel   float32
	aftertouch float32
	pitchBend  float32
	sustain    bool

	snap      atomic.Pointer[renderSnapshot]
	events    eventRing
	resetFlag atomic.Bool
	prepared  atomic.Bool

	store *wavetableStore
	lut   *lutContext

	// Audio side. Touched only inside RenderBlock once prepared.
	pool      voicePool
	lfos      lfoBank
	arp       arpeggiator
	fx        effectsChain
	clock     atomic.Uint64
	globalCtx modContext
	globalMod modValues
	rng       uint32

	sampleRate float64
	blockSize  int

	// Preallocated scratch; RenderBlock never allocates. evtPending holds
	// ring events drained but not yet due, ordered by timestamp.
	evtPending    []engineEvent
	extScratch    []engineEvent
	extBlock      []blockEvent
	arpScratch    []arpEvent
	mergedScratch []blockEvent

	meters    [2]meterState
	meterFlip int
	meterPtr  atomic.Pointer[meterState]

	// Display tap. The audio thread writes plain stores, readers may tear;
	// that is fine for an oscilloscope view.
	scopeL   []float32
	scopeR   []float32
	scopePos atomic.Uint64
}

func NewSynthEngine() *SynthEngine {
	e := &SynthEngine{
		store:     newWavetableStore(),
		lut:       newLUTContext(),
		tempo:     120,
		transport: true,
		rng:       0x2545F491,
	}
	e.pending = defaultPatch()
	return e
}

// Prepare allocates every sample-rate-dependent buffer and arms the engine.
// Must be called before RenderBlock and again after a rate change.
func (e *SynthEngine) Prepare(sampleRate float64, maxBlock int) error {
	if sampleRate < 8000 || sampleRate > 384000 {
		return fmt.Errorf("sample rate %g out of range", sampleRate)
	}
	if maxBlock < 1 || maxBlock > MAX_BLOCK_SIZE {
		return ErrBlockSize
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.sampleRate = sampleRate
	e.blockSize = maxBlock
	e.pool.reset()
	e.pool.prepare(sampleRate)
	e.fx.prepare(sampleRate)
	e.lfos.reset(0x9E3779B9)
	e.arp.reset(0x6C078965)

	e.evtPending = make([]engineEvent, 0, EVENT_PENDING_CAP)
	e.extScratch = make([]engineEvent, 0, EVENT_PENDING_CAP)
	e.extBlock = make([]blockEvent, 0, EVENT_PENDING_CAP)
	e.arpScratch = make([]arpEvent, 0, arpEventCap)
	e.mergedScratch = make([]blockEvent, 0, EVENT_PENDING_CAP+arpEventCap)
	e.scopeL = make([]float32, SCOPE_RING_SIZE)
	e.scopeR = make([]float32, SCOPE_RING_SIZE)
	e.scopePos.Store(0)

	e.clock.Store(0)
	e.prepared.Store(true)
	e.publishLocked()
	return nil
}

// Reset requests a full state clear: voices killed, effect tails flushed,
// LFO phases rewound, sample clock back to zero. Applied by the audio
// thread at the top of the next RenderBlock so the two never race.
func (e *SynthEngine) Reset() {
	e.resetFlag.Store(true)
}

func (e *SynthEngine) applyReset() {
	e.pool.reset()
	e.fx.reset()
	e.lfos.reset(0x9E3779B9)
	e.arp.reset(0x6C078965)
	e.clock.Store(0)
	e.evtPending = e.evtPending[:0]
	for {
		if _, ok := e.events.pop(); !ok {
			break
		}
	}
}

// publishLocked snapshots pending state for the audio thread. Caller holds mu.
func (e *SynthEngine) publishLocked() {
	p := e.pending
	if p.Polyphony < 1 || p.Polyphony > MAX_VOICES {
		p.Polyphony = MAX_VOICES
	}
	s := &renderSnapshot{
		Patch:        p,
		SampleRate:   e.sampleRate,
		Tempo:        e.tempo,
		Playing:      e.transport,
		ModWheel:     e.modWheel,
		Aftertouch:   e.aftertouch,
		PitchBend:    e.pitchBend,
		SustainPedal: e.sustain,
		TableCount:   e.store.Count(),
	}
	e.snap.Store(s)
}

// RenderBlock renders len(outL) stereo frames into the two buffers,
// overwriting their contents. Buffers must be equal length and no longer
// than the Prepare block size. Safe to call from exactly one goroutine.
func (e *SynthEngine) RenderBlock(outL, outR []float32) error {
	if !e.prepared.Load() {
		return ErrNotPrepared
	}
	if len(outL) != len(outR) {
		return ErrBlockSize
	}
	n := len(outL)
	if n == 0 {
		return nil
	}
	if n > e.blockSize {
		return ErrBlockSize
	}

	if e.resetFlag.Swap(false) {
		e.applyReset()
	}

	snap := e.snap.Load()
	clear(outL)
	clear(outR)
	e.pool.polyphony = snap.Polyphony
	clock := e.clock.Load()

	// Drain the ring completely, then split off what lands inside this
	// block. Not-yet-due events wait in evtPending, so a timestamp
	// scheduled ahead never holds back a later push that is already due.
	// When evtPending is full the remainder stays in the ring and
	// producers see ErrQueueFull.
	for len(e.evtPending) < cap(e.evtPending) {
		ev, ok := e.events.pop()
		if !ok {
			break
		}
		e.evtPending = append(e.evtPending, ev)
	}
	// Restore timestamp order. The carried prefix is already sorted and
	// producers stamp roughly forward, so insertion is near-linear here;
	// stable, so same-frame pushes keep their push order.
	pend := e.evtPending
	for i := 1; i < len(pend); i++ {
		for j := i; j > 0 && pend[j-1].when > pend[j].when; j-- {
			pend[j-1], pend[j] = pend[j], pend[j-1]
		}
	}
	// Late timestamps clamp to now.
	ext := e.extScratch[:0]
	due := 0
	for due < len(pend) && pend[due].when < clock+uint64(n) {
		ev := pend[due]
		if ev.when < clock {
			ev.when = clock
		}
		ext = append(ext, ev)
		due++
	}
	if due > 0 {
		e.evtPending = pend[:copy(pend, pend[due:])]
	}

	// The arpeggiator consumes the external note stream when enabled and
	// emits its own timed events; disabled, it only flushes leftovers.
	arpEvts := e.arp.run(n, clock, snap, ext, e.arpScratch[:0])

	merged := e.mergeEvents(snap.Arp.Enabled, ext, arpEvts, clock)

	// Segmented render: every event lands on a segment boundary.
	pos := 0
	idx := 0
	for pos < n {
		for idx < len(merged) && int(merged[idx].offset) <= pos {
			e.applyEvent(&merged[idx], snap, clock+uint64(pos))
			idx++
		}
		segEnd := n
		if idx < len(merged) {
			if next := int(merged[idx].offset); next < segEnd {
				segEnd = next
			}
		}
		if segEnd <= pos {
			segEnd = pos + 1
		}
		e.renderSegment(outL, outR, pos, segEnd, snap)
		pos = segEnd
	}

	e.fx.process(outL, outR, snap, &e.globalMod, e.lut)

	gain := clampF(snap.MasterGain+e.globalMod[DestMasterGain], 0, 2)
	var peakL, peakR float32
	for i := 0; i < n; i++ {
		l := sanitize(outL[i] * gain)
		r := sanitize(outR[i] * gain)
		outL[i] = l
		outR[i] = r
		if l < 0 {
			l = -l
		}
		if r < 0 {
			r = -r
		}
		if l > peakL {
			peakL = l
		}
		if r > peakR {
			peakR = r
		}
	}

	sp := e.scopePos.Load()
	for i := 0; i < n; i++ {
		slot := (sp + uint64(i)) & (SCOPE_RING_SIZE - 1)
		e.scopeL[slot] = outL[i]
		e.scopeR[slot] = outR[i]
	}
	e.scopePos.Store(sp + uint64(n))

	e.clock.Store(clock + uint64(n))
	e.publishMeters(peakL, peakR)
	return nil
}

// CaptureScope copies the most recent len(dstL) output samples into the
// destination buffers, newest last. Reads are unsynchronized against the
// audio thread; the caller gets a display-quality view, not a bit-exact one.
func (e *SynthEngine) CaptureScope(dstL, dstR []float32) int {
	n := len(dstL)
	if len(dstR) < n {
		n = len(dstR)
	}
	if n > SCOPE_RING_SIZE {
		n = SCOPE_RING_SIZE
	}
	if n == 0 || e.scopeL == nil {
		return 0
	}
	end := e.scopePos.Load()
	start := end - uint64(n)
	for i := 0; i < n; i++ {
		slot := (start + uint64(i)) & (SCOPE_RING_SIZE - 1)
		dstL[i] = e.scopeL[slot]
		dstR[i] = e.scopeR[slot]
	}
	return n
}

// mergeEvents builds the offset-sorted pool event list for this block.
// With the arp active, external note on/offs have already been consumed by
// it; only all-notes-off still reaches the pool directly.
func (e *SynthEngine) mergeEvents(arpOn bool, ext []engineEvent, arpEvts []arpEvent, clock uint64) []blockEvent {
	// ext arrives timestamp-ordered from the block drain, and clamped-late
	// events tie at the block start in push order, so xb is offset-sorted
	// as built.
	xb := e.extBlock[:0]
	for i := range ext {
		ev := &ext[i]
		if arpOn && ev.kind != evAllOff {
			continue
		}
		xb = append(xb, blockEvent{
			offset: int32(ev.when - clock),
			kind:   ev.kind,
			note:   ev.note,
			vel:    ev.vel,
		})
	}

	merged := e.mergedScratch[:0]
	xi, ai := 0, 0
	for xi < len(xb) || ai < len(arpEvts) {
		takeExt := ai >= len(arpEvts) ||
			(xi < len(xb) && xb[xi].offset <= arpEvts[ai].offset)
		if takeExt {
			merged = append(merged, xb[xi])
			xi++
		} else {
			aev := &arpEvts[ai]
			kind := evNoteOff
			if aev.on {
				kind = evNoteOn
			}
			merged = append(merged, blockEvent{
				offset: aev.offset,
				kind:   kind,
				note:   aev.note,
				vel:    aev.vel,
			})
			ai++
		}
	}
	return merged
}

func (e *SynthEngine) applyEvent(ev *blockEvent, snap *renderSnapshot, clock uint64) {
	switch ev.kind {
	case evNoteOn:
		e.pool.noteOn(ev.note, ev.vel, 0, clock, snap, &e.rng, e.sampleRate)
	case evNoteOff:
		e.pool.noteOff(ev.note, snap)
	case evAllOff:
		e.pool.allNotesOff()
	}
}

// renderSegment runs the control-rate work at the segment start, then the
// per-sample voice loop over [from,to).
func (e *SynthEngine) renderSegment(outL, outR []float32, from, to int, snap *renderSnapshot) {
	seg := to - from

	ctx := &e.globalCtx
	*ctx = modContext{
		modWheel:   snap.ModWheel,
		aftertouch: snap.Aftertouch,
		pitchBend:  snap.PitchBend,
		vectorX:    snap.Vector.X*2 - 1,
		vectorY:    snap.Vector.Y*2 - 1,
	}
	for i := 0; i < NUM_LFOS; i++ {
		ctx.lfoValues[i] = e.lfos.value(i, &snap.LFOs[i], e.lut, e.store, snap.TableCount)
	}
	e.globalMod.clear()
	computeModBlock(&snap.Routes, &snap.Macros, ctx, &e.globalMod, firstGlobalDest, numModDests)

	for vi := 0; vi < MAX_VOICES; vi++ {
		v := &e.pool.voices[vi]
		if !v.active {
			continue
		}
		v.beginBlock(snap, &e.lfos, e.lut, e.store, e.sampleRate)
		alive := v.render(outL, outR, from, to, e.lut, e.sampleRate)
		v.advanceVoiceLFOs(snap, e.sampleRate, seg)
		if !alive {
			v.kill()
		}
	}

	e.lfos.advance(&snap.LFOs, e.sampleRate, snap.Tempo, seg)
}

func (e *SynthEngine) publishMeters(peakL, peakR float32) {
	e.meterFlip ^= 1
	m := &e.meters[e.meterFlip]
	m.ActiveVoices = int32(e.pool.activeCount())
	m.PeakL = peakL
	m.PeakR = peakR
	m.LFOValues = e.globalCtx.lfoValues
	for i := range e.pool.voices {
		if v := &e.pool.voices[i]; v.active {
			m.EnvLevels[i] = v.envs[0].level
		} else {
			m.EnvLevels[i] = 0
		}
	}
	m.Clock = e.clock.Load()
	e.meterPtr.Store(m)
}
