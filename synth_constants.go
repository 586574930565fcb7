// synth_constants.go - Engine-wide constants, parameter ranges and shared helpers

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

import (
	"errors"
	"math"
)

// Core engine dimensions. All pools are sized from these at Prepare() time and
// never grow afterwards; the render path depends on that.
const (
	DEFAULT_SAMPLE_RATE = 48000.0 // Used when Prepare() has not been called yet
	DEFAULT_BLOCK_SIZE  = 256     // Samples per block for the bundled front-ends
	MAX_BLOCK_SIZE      = 8192    // Upper bound accepted by Prepare()

	MAX_VOICES    = 16 // Fixed voice pool size (polyphony ceiling)
	MAX_UNISON    = 16 // Unison sub-voices per oscillator slot
	NUM_OSCS      = 2  // Oscillator slots per voice
	NUM_ENVS      = 4  // ADSR envelopes per voice (env 0 is amplitude)
	NUM_LFOS      = 8  // LFO bank size
	NUM_MACROS    = 8  // Macro controllers
	MACRO_TARGETS  = 8  // Destinations per macro
	MAX_MOD_ROUTES = 32 // Modulation matrix rows

	EVENT_QUEUE_SIZE  = 1024 // Note/controller event ring capacity (power of two)
	EVENT_PENDING_CAP = 2048 // Drained-but-not-due events held across blocks
	MAX_WAVETABLES    = 64   // Table store capacity including factory tables
	SCOPE_RING_SIZE   = 4096 // Display tap ring per channel (power of two)
)

// Wavetable store limits.
const (
	WT_MIN_FRAME_LEN   = 4    // Smallest legal single-cycle frame
	WT_MIP_FLOOR       = 64   // Mip chain stops once frames shrink to this size
	WT_MAX_MIP_LEVELS  = 10   // Hard cap on mip chain depth
	WT_DEFAULT_FRAME   = 2048 // Factory tables are built at this frame length
)

// Voice lifecycle tuning.
const (
	RELEASE_EPSILON    = 0.0001 // Release level below which a voice is reclaimed
	THEFT_IMMUNITY_SEC = 0.02   // Voices younger than this are never stolen
	DECLICK_SEC        = 0.002  // Fade applied when a voice is hard-stolen
)

// Numeric safety.
const (
	DENORM_THRESHOLD = 1e-20 // Recursive state below this is flushed to zero
	MIN_CUTOFF_HZ    = 20.0  // Filter cutoff floor
	MAX_CUTOFF_RATIO = 0.49  // Cutoff ceiling as a fraction of sample rate
)

const TWO_PI = float32(2 * math.Pi)

// Standard tuning.
const (
	A4_FREQ = 440.0
	A4_NOTE = 69
)

// Load-time errors returned by control-thread operations. The audio thread
// never surfaces errors; it clamps, substitutes or skips instead.
var (
	ErrInvalidFrameLength = errors.New("wavetable frame length invalid")
	ErrUnsupportedFormat  = errors.New("unsupported sample format")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrNotPrepared        = errors.New("engine not prepared")
	ErrTableLimit         = errors.New("wavetable store full")
	ErrBlockSize          = errors.New("render block size invalid")
	ErrQueueFull          = errors.New("event queue full")
)

// noteToHz converts a (possibly fractional) MIDI note number to Hertz.
func noteToHz(note float32) float32 {
	return float32(A4_FREQ * math.Exp2(float64(note-A4_NOTE)/12.0))
}

// clamp01 bounds v to [0,1].
//
//go:nosplit
func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clampF bounds v to [lo,hi].
//
//go:nosplit
func clampF(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// flushDenorm zeroes values small enough to trigger denormal arithmetic in
// recursive filter and delay state.
//
//go:nosplit
func flushDenorm(v float32) float32 {
	if v < DENORM_THRESHOLD && v > -DENORM_THRESHOLD {
		return 0
	}
	return v
}

// sanitize replaces NaN/Inf with zero and bounds the sample to [-1,1]. The
// final output stage runs every sample through this before it reaches the
// host buffer.
//
//go:nosplit
func sanitize(v float32) float32 {
	if v != v || v > 1e6 || v < -1e6 { // NaN or runaway
		return 0
	}
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}

// xorshift32 is the engine's deterministic PRNG. Seed zero locks the
// generator, so callers map it to one.
//
//go:nosplit
func xorshift32(state uint32) uint32 {
	state ^= state << 13
	state ^= state >> 17
	state ^= state << 5
	return state
}
