// synth_lut.go - Immutable lookup-table context for the render path

/*
Sine and tanh lookup tables with linear interpolation, built once when the
engine is constructed and shared by reference with every voice and effect.
The tables are never mutated after construction, so the audio thread reads
them without synchronization.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

import "math"

// Lookup table sizes
const (
	sinLUTSize  = 8192           // 8192 entries for sine (~0.00077 radian resolution)
	sinLUTMask  = sinLUTSize - 1 // Mask for fast modulo
	tanhLUTSize = 4096           // 4096 entries for tanh
	tanhLUTMin  = float32(-4.0)  // Tanh LUT minimum input
	tanhLUTMax  = float32(4.0)   // Tanh LUT maximum input
)

// Precomputed scale factors
const (
	sinLUTScale  = float32(sinLUTSize) / (2 * math.Pi)                // phase to index
	tanhLUTScale = float32(tanhLUTSize-1) / (tanhLUTMax - tanhLUTMin) // input to index
)

// lutContext holds the precomputed tables. One instance is built per engine
// and passed by reference into the render path; there is no global table
// state.
type lutContext struct {
	sin  [sinLUTSize]float32  // sine values for phase [0, 2π)
	tanh [tanhLUTSize]float32 // tanh values for input [-4, 4]
}

func newLUTContext() *lutContext {
	ctx := &lutContext{}
	for i := 0; i < sinLUTSize; i++ {
		phase := float64(i) * 2 * math.Pi / float64(sinLUTSize)
		ctx.sin[i] = float32(math.Sin(phase))
	}
	for i := 0; i < tanhLUTSize; i++ {
		x := float64(tanhLUTMin) + float64(i)*float64(tanhLUTMax-tanhLUTMin)/float64(tanhLUTSize-1)
		ctx.tanh[i] = float32(math.Tanh(x))
	}
	return ctx
}

// Sin returns sin(phase) using the lookup table with linear interpolation.
// Phase should be in radians [0, 2π). Values outside this range are wrapped.
//
//go:nosplit
func (ctx *lutContext) Sin(phase float32) float32 {
	if phase < 0 {
		phase += TWO_PI
		if phase < 0 {
			// Very negative values need floor approach
			phase = phase - TWO_PI*float32(int(phase/TWO_PI)-1)
		}
	} else if phase >= TWO_PI {
		phase = phase - TWO_PI*float32(int(phase/TWO_PI))
	}

	indexF := phase * sinLUTScale
	index := int(indexF)
	frac := indexF - float32(index)

	index &= sinLUTMask
	nextIndex := (index + 1) & sinLUTMask

	return ctx.sin[index] + frac*(ctx.sin[nextIndex]-ctx.sin[index])
}

// SinTurns returns sin for phase expressed in turns [0,1), the unit the
// oscillator phase accumulators use.
//
//go:nosplit
func (ctx *lutContext) SinTurns(phase float32) float32 {
	phase -= float32(int(phase))
	if phase < 0 {
		phase += 1.0
	}
	indexF := phase * sinLUTSize
	index := int(indexF) & sinLUTMask
	frac := indexF - float32(int(indexF))
	nextIndex := (index + 1) & sinLUTMask
	return ctx.sin[index] + frac*(ctx.sin[nextIndex]-ctx.sin[index])
}

// Tanh returns tanh(x) using the lookup table with linear interpolation.
// Input is clamped to [-4, 4] (tanh saturates quickly outside this).
//
//go:nosplit
func (ctx *lutContext) Tanh(x float32) float32 {
	if x <= tanhLUTMin {
		return -1.0
	}
	if x >= tanhLUTMax {
		return 1.0
	}

	indexF := (x - tanhLUTMin) * tanhLUTScale
	index := int(indexF)
	frac := indexF - float32(index)

	if index < 0 {
		return ctx.tanh[0]
	}
	if index >= tanhLUTSize-1 {
		return ctx.tanh[tanhLUTSize-1]
	}

	return ctx.tanh[index] + frac*(ctx.tanh[index+1]-ctx.tanh[index])
}

// polyBLEP32 applies polynomial band-limited step correction.
// t is the normalized phase position (0.0-1.0)
// dt is the phase increment per sample (frequency/sampleRate)
//
//go:nosplit
func polyBLEP32(t, dt float32) float32 {
	if t < dt {
		// Leading edge correction
		t /= dt
		return t + t - t*t - 1.0
	} else if t > 1.0-dt {
		// Trailing edge correction
		t = (t - 1.0) / dt
		return t*t + t + t + 1.0
	}
	return 0.0
}
