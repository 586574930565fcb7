//go:build !headless

// synth_backend_oto.go - OTO v3 audio output

/*
Pull-model backend: oto's mixer calls Read on its own realtime goroutine,
and Read renders engine blocks straight into the device buffer. The engine
pointer is atomic so the hot path never takes a lock; the mutex only
guards setup and teardown.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

type OtoPlayer struct {
	ctx    *oto.Context
	player *oto.Player
	eng    atomic.Pointer[SynthEngine] // Atomic for lock-free Read()

	bufL  []float32
	bufR  []float32
	inter []float32 // interleaved staging buffer

	started bool
	mutex   sync.Mutex // Only for setup/control operations
}

func NewOtoPlayer(sampleRate int) (*OtoPlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	return &OtoPlayer{ctx: ctx}, nil
}

func (op *OtoPlayer) SetupPlayer(eng *SynthEngine) {
	op.mutex.Lock()
	defer op.mutex.Unlock()

	op.eng.Store(eng)
	op.player = op.ctx.NewPlayer(op)
	op.bufL = make([]float32, MAX_BLOCK_SIZE)
	op.bufR = make([]float32, MAX_BLOCK_SIZE)
	op.inter = make([]float32, MAX_BLOCK_SIZE*2)
}

// Read renders stereo float32 frames into the device buffer. 8 bytes per
// frame: two little-endian float32 samples.
func (op *OtoPlayer) Read(p []byte) (n int, err error) {
	eng := op.eng.Load()
	if eng == nil || !eng.Prepared() {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	frames := len(p) / 8
	chunk := eng.BlockSize()
	if chunk > len(op.bufL) {
		chunk = len(op.bufL)
	}

	pos := 0
	for pos < frames {
		c := frames - pos
		if c > chunk {
			c = chunk
		}
		if rerr := eng.RenderBlock(op.bufL[:c], op.bufR[:c]); rerr != nil {
			clear(op.bufL[:c])
			clear(op.bufR[:c])
		}
		for i := 0; i < c; i++ {
			op.inter[i*2] = op.bufL[i]
			op.inter[i*2+1] = op.bufR[i]
		}
		bytes := c * 8
		copy(p[pos*8:pos*8+bytes], (*[1 << 30]byte)(unsafe.Pointer(&op.inter[0]))[:bytes])
		pos += c
	}
	return len(p), nil
}

func (op *OtoPlayer) Start() {
	op.mutex.Lock()
	defer op.mutex.Unlock()

	if !op.started && op.player != nil {
		op.player.Play()
		op.started = true
	}
}

func (op *OtoPlayer) Stop() {
	op.mutex.Lock()
	defer op.mutex.Unlock()

	if op.started && op.player != nil {
		op.player.Close()
		op.player = nil
		op.started = false
	}
}

func (op *OtoPlayer) Close() {
	op.Stop()
	op.mutex.Lock()
	defer op.mutex.Unlock()

	if op.player != nil {
		op.player.Close()
		op.player = nil
	}
}

func (op *OtoPlayer) IsStarted() bool {
	op.mutex.Lock()
	defer op.mutex.Unlock()
	return op.started
}
