// synth_wavetable.go - Wavetable store with band-limited mip chains

/*
A wavetable is an ordered set of fixed-length single-cycle frames. The store
owns every table for the lifetime of the engine; tables are immutable after
load, so voices read them without synchronization.

Aliasing control: at load time each table gets a chain of mip levels, each
half the frame length of the previous one, produced by FFT brickwall
filtering (zeroing every bin above the next level's Nyquist) followed by
decimation. The voice picks the first level whose per-sample table step is
not greater than one and reads that level for the whole block.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// TableID indexes the wavetable store. Factory tables occupy the low ids and
// are always present; TABLE_NONE renders silence.
type TableID int32

const TABLE_NONE TableID = -1

// Factory table ids, stable across runs.
const (
	TABLE_SINE TableID = iota
	TABLE_TRIANGLE
	TABLE_SAW
	TABLE_SQUARE
	TABLE_PULSE
	TABLE_HARMONICS
	TABLE_VOCAL
	TABLE_DIGITAL
	TABLE_FOLD
	numFactoryTables
)

// Wavetable holds one table's frames at every mip level. mips[level] stores
// frames contiguously, each of length frameLen>>level.
type Wavetable struct {
	Name     string
	frameLen int // level-0 frame length, power of two
	frames   int // frame count F
	levels   int // mip levels built (>= 1)
	mips     [][]float32
}

// FrameCount reports F.
func (wt *Wavetable) FrameCount() int { return wt.frames }

// FrameLen reports the level-0 single-cycle length.
func (wt *Wavetable) FrameLen() int { return wt.frameLen }

// sampleAt reads the table at the given mip level with linear interpolation
// along phase (in turns, [0,1)) and linear cross-fade between the two frames
// nearest pos*(F-1). pos outside [0,1] is clamped. Runs per sample on the
// audio thread.
//
//go:nosplit
func (wt *Wavetable) sampleAt(level int, phase, pos float32) float32 {
	if level >= wt.levels {
		level = wt.levels - 1
	}
	data := wt.mips[level]
	size := wt.frameLen >> uint(level)
	mask := size - 1

	if pos < 0 {
		pos = 0
	} else if pos > 1 {
		pos = 1
	}

	phase -= float32(int(phase))
	if phase < 0 {
		phase += 1.0
	}
	fpos := phase * float32(size)
	i0 := int(fpos)
	frac := fpos - float32(i0)
	i0 &= mask
	i1 := (i0 + 1) & mask

	if wt.frames == 1 {
		return data[i0] + frac*(data[i1]-data[i0])
	}

	fidx := pos * float32(wt.frames-1)
	f0 := int(fidx)
	ffrac := fidx - float32(f0)
	f1 := f0 + 1
	if f1 >= wt.frames {
		f1 = wt.frames - 1
		ffrac = 0
	}

	b0 := f0 * size
	b1 := f1 * size
	s0 := data[b0+i0] + frac*(data[b0+i1]-data[b0+i0])
	s1 := data[b1+i0] + frac*(data[b1+i1]-data[b1+i0])
	return s0 + ffrac*(s1-s0)
}

// selectMip returns the mip level for a level-0 table step (frequency *
// frameLen / sampleRate). Steps at or below one sample per output sample are
// alias-free at level 0; each level above halves the step.
//
//go:nosplit
func (wt *Wavetable) selectMip(step float32) int {
	level := 0
	for step > 1.0 && level < wt.levels-1 {
		step *= 0.5
		level++
	}
	return level
}

// wavetableStore is append-only with a fixed capacity so the audio thread can
// index tables without locks. Entries are fully built before the id becomes
// visible through a published snapshot.
type wavetableStore struct {
	tables [MAX_WAVETABLES]*Wavetable
	count  int
}

// table returns the wavetable for id, or nil for TABLE_NONE and out-of-range
// ids. limit is the table count captured in the block's snapshot.
//
//go:nosplit
func (s *wavetableStore) table(id TableID, limit int) *Wavetable {
	if id < 0 || int(id) >= limit || int(id) >= s.count {
		return nil
	}
	return s.tables[id]
}

// FindByName resolves a table name to its id (first match wins).
func (s *wavetableStore) FindByName(name string) (TableID, bool) {
	for i := 0; i < s.count; i++ {
		if s.tables[i].Name == name {
			return TableID(i), true
		}
	}
	return TABLE_NONE, false
}

// Count reports how many tables are loaded.
func (s *wavetableStore) Count() int { return s.count }

// Load validates, normalizes and mip-builds a table from raw frame data.
// samples must contain frameCount equal-length frames laid out back to back.
// Frames that are not a power of two are resampled to the next power of two
// before the mip chain is built.
func (s *wavetableStore) Load(name string, samples []float32, frameCount int) (TableID, error) {
	if frameCount < 1 || len(samples) == 0 || len(samples)%frameCount != 0 {
		return TABLE_NONE, fmt.Errorf("load %q: %w", name, ErrInvalidFrameLength)
	}
	frameLen := len(samples) / frameCount
	if frameLen < WT_MIN_FRAME_LEN {
		return TABLE_NONE, fmt.Errorf("load %q: frame length %d: %w", name, frameLen, ErrInvalidFrameLength)
	}
	if s.count >= MAX_WAVETABLES {
		return TABLE_NONE, fmt.Errorf("load %q: %w", name, ErrTableLimit)
	}

	frames := make([][]float32, frameCount)
	for f := 0; f < frameCount; f++ {
		frame := make([]float32, frameLen)
		copy(frame, samples[f*frameLen:(f+1)*frameLen])
		frames[f] = frame
	}

	if frameLen&(frameLen-1) != 0 {
		target := nextPow2(frameLen)
		for f := range frames {
			frames[f] = resampleFrameCubic(frames[f], target)
		}
		frameLen = target
	}

	for _, frame := range frames {
		removeDC(frame)
	}
	normalizeFrames(frames)

	wt := &Wavetable{
		Name:     name,
		frameLen: frameLen,
		frames:   frameCount,
	}
	wt.mips = buildMipChain(frames, frameLen)
	wt.levels = len(wt.mips)

	id := TableID(s.count)
	s.tables[id] = wt
	s.count++
	return id, nil
}

// buildMipChain flattens the level-0 frames and derives each further level by
// FFT brickwall + decimation until the frame length reaches WT_MIP_FLOOR or
// the level cap.
func buildMipChain(frames [][]float32, frameLen int) [][]float32 {
	levels := 1
	for size := frameLen; size > WT_MIP_FLOOR && levels < WT_MAX_MIP_LEVELS; size >>= 1 {
		levels++
	}

	mips := make([][]float32, levels)
	mips[0] = flattenFrames(frames)

	current := frames
	for level := 1; level < levels; level++ {
		next := make([][]float32, len(current))
		for f, frame := range current {
			next[f] = halveBandlimited(frame)
		}
		mips[level] = flattenFrames(next)
		current = next
	}
	return mips
}

// halveBandlimited returns frame at half length with everything above the new
// Nyquist removed: FFT, zero the upper bins, inverse FFT, take every second
// sample.
func halveBandlimited(frame []float32) []float32 {
	n := len(frame)
	if n <= 1 {
		out := make([]float32, len(frame))
		copy(out, frame)
		return out
	}

	x := make([]complex128, n)
	for i, v := range frame {
		x[i] = complex(float64(v), 0)
	}
	spectrum := fft.FFT(x)
	for k := n/4 + 1; k < n-n/4; k++ {
		spectrum[k] = 0
	}
	xt := fft.IFFT(spectrum)

	half := n / 2
	out := make([]float32, half)
	for i := 0; i < half; i++ {
		out[i] = float32(real(xt[2*i]))
	}
	removeDC(out)
	return out
}

func flattenFrames(frames [][]float32) []float32 {
	if len(frames) == 0 {
		return nil
	}
	flat := make([]float32, 0, len(frames)*len(frames[0]))
	for _, f := range frames {
		flat = append(flat, f...)
	}
	return flat
}

// removeDC subtracts the mean so the frame is centered at zero.
func removeDC(frame []float32) {
	if len(frame) == 0 {
		return
	}
	sum := 0.0
	for _, v := range frame {
		sum += float64(v)
	}
	mean := float32(sum / float64(len(frame)))
	if mean > -1e-9 && mean < 1e-9 {
		return
	}
	for i := range frame {
		frame[i] -= mean
	}
}

// normalizeFrames scales the whole table by its global peak so relative frame
// levels survive.
func normalizeFrames(frames [][]float32) {
	peak := float32(0)
	for _, frame := range frames {
		for _, v := range frame {
			if v > peak {
				peak = v
			} else if -v > peak {
				peak = -v
			}
		}
	}
	if peak < 1e-9 {
		return
	}
	scale := 1.0 / peak
	for _, frame := range frames {
		for i := range frame {
			frame[i] *= scale
		}
	}
}

// resampleFrameCubic resizes a single cycle with 4-point Catmull-Rom
// interpolation. Cyclic indexing keeps the wrap seamless.
func resampleFrameCubic(frame []float32, target int) []float32 {
	n := len(frame)
	out := make([]float32, target)
	if n == 0 || target == 0 {
		return out
	}
	ratio := float64(n) / float64(target)
	for i := 0; i < target; i++ {
		pos := float64(i) * ratio
		i0 := int(pos) % n
		t := float32(pos - math.Floor(pos))
		im1 := (i0 - 1 + n) % n
		i1 := (i0 + 1) % n
		i2 := (i0 + 2) % n
		a0 := -0.5*frame[im1] + 1.5*frame[i0] - 1.5*frame[i1] + 0.5*frame[i2]
		a1 := frame[im1] - 2.5*frame[i0] + 2.0*frame[i1] - 0.5*frame[i2]
		a2 := -0.5*frame[im1] + 0.5*frame[i1]
		a3 := frame[i0]
		out[i] = ((a0*t+a1)*t+a2)*t + a3
	}
	return out
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// newWavetableStore builds the store with the factory tables installed. The
// factory set covers the classic analog shapes plus morphing pulse, harmonic
// stack, vocal and wavefolder tables.
func newWavetableStore() *wavetableStore {
	s := &wavetableStore{}

	install := func(name string, frames [][]float32) {
		flat := flattenFrames(frames)
		if _, err := s.Load(name, flat, len(frames)); err != nil {
			// Factory tables are generated, never malformed.
			panic(fmt.Sprintf("factory table %q: %v", name, err))
		}
	}

	size := WT_DEFAULT_FRAME

	install("sine", [][]float32{genSine(size)})
	install("triangle", [][]float32{genTriangle(size)})
	install("saw", [][]float32{genSaw(size)})
	install("square", [][]float32{genPulse(size, 0.5)})

	pulse := make([][]float32, 8)
	for f := range pulse {
		duty := 0.5 + 0.45*float64(f)/7.0
		pulse[f] = genPulse(size, duty)
	}
	install("pulse", pulse)

	harm := make([][]float32, 8)
	for f := range harm {
		harm[f] = genHarmonicStack(size, f+1)
	}
	install("harmonics", harm)

	vocal := make([][]float32, len(vowelFormants))
	for f := range vocal {
		vocal[f] = genVocal(size, vowelFormants[f])
	}
	install("vocal", vocal)

	install("digital", [][]float32{genBuzz(size, 64)})

	fold := make([][]float32, 8)
	for f := range fold {
		fold[f] = genFold(size, 1.0+2.5*float32(f))
	}
	install("fold", fold)

	return s
}

func genSine(size int) []float32 {
	w := make([]float32, size)
	for i := range w {
		w[i] = float32(math.Sin(2 * math.Pi * float64(i) / float64(size)))
	}
	return w
}

func genTriangle(size int) []float32 {
	w := make([]float32, size)
	quarter := size / 4
	for i := 0; i < quarter; i++ {
		t := float32(i) / float32(quarter)
		w[i] = t
		w[i+quarter] = 1 - t
		w[i+2*quarter] = -t
		w[i+3*quarter] = t - 1
	}
	return w
}

func genSaw(size int) []float32 {
	w := make([]float32, size)
	for i := range w {
		w[i] = 2*float32(i)/float32(size) - 1
	}
	return w
}

func genPulse(size int, duty float64) []float32 {
	w := make([]float32, size)
	edge := int(duty * float64(size))
	for i := range w {
		if i < edge {
			w[i] = 1
		} else {
			w[i] = -1
		}
	}
	return w
}

// genHarmonicStack sums the first n harmonics at 1/h amplitude.
func genHarmonicStack(size, n int) []float32 {
	w := make([]float32, size)
	for h := 1; h <= n; h++ {
		amp := 1.0 / float64(h)
		for i := range w {
			w[i] += float32(amp * math.Sin(2*math.Pi*float64(h)*float64(i)/float64(size)))
		}
	}
	return w
}

// genVocal builds an additive frame whose harmonic amplitudes bump around the
// vowel's formant frequencies, assuming a 110 Hz fundamental.
func genVocal(size int, formants [3]float32) []float32 {
	const f0 = 110.0
	w := make([]float32, size)
	for h := 1; h <= 48; h++ {
		freq := f0 * float64(h)
		amp := 0.0
		for _, fc := range formants {
			d := (freq - float64(fc)) / (0.18 * float64(fc))
			amp += math.Exp(-d * d)
		}
		amp += 0.02 / float64(h) // low-level base spectrum
		for i := range w {
			w[i] += float32(amp * math.Sin(2*math.Pi*float64(h)*float64(i)/float64(size)))
		}
	}
	return w
}

// genBuzz sums n equal-amplitude harmonics for a harsh digital spectrum.
func genBuzz(size, n int) []float32 {
	w := make([]float32, size)
	for h := 1; h <= n; h++ {
		for i := range w {
			w[i] += float32(math.Sin(2*math.Pi*float64(h)*float64(i)/float64(size)) / float64(n))
		}
	}
	return w
}

// genFold runs a sine through a tanh folder at increasing drive.
func genFold(size int, drive float32) []float32 {
	w := genSine(size)
	for i := range w {
		w[i] = float32(math.Tanh(float64(drive * w[i])))
	}
	return w
}
