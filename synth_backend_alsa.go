//go:build !headless

// synth_backend_alsa.go - ALSA audio output

/*
Push-model backend: Start spawns a feeder goroutine that renders engine
blocks and writes them to the PCM device, recovering from underruns with
a prepare-and-retry. Useful on bare ALSA systems where the oto context is
unavailable or adds too much latency.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

/*
#cgo LDFLAGS: -lasound
#include <alsa/asoundlib.h>
#include <stdlib.h>

static snd_pcm_t* openPCM(const char* device, int* err) {
    snd_pcm_t* handle;
    *err = snd_pcm_open(&handle, device, SND_PCM_STREAM_PLAYBACK, 0);
    return handle;
}

static int setupPCM(snd_pcm_t* handle, unsigned int rate) {
    snd_pcm_hw_params_t* params;
    int err;

    snd_pcm_hw_params_alloca(&params);
    err = snd_pcm_hw_params_any(handle, params);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_access(handle, params, SND_PCM_ACCESS_RW_INTERLEAVED);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_format(handle, params, SND_PCM_FORMAT_FLOAT);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_channels(handle, params, 2);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_rate(handle, params, rate, 0);
    if (err < 0) return err;

    err = snd_pcm_hw_params(handle, params);
    if (err < 0) return err;

    return snd_pcm_prepare(handle);
}

static int writePCM(snd_pcm_t* handle, float* buffer, int frames) {
    return snd_pcm_writei(handle, buffer, frames);
}

static void closePCM(snd_pcm_t* handle) {
    if (handle != NULL) {
        snd_pcm_drain(handle);
        snd_pcm_close(handle);
    }
}
*/
import "C"

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

type ALSAPlayer struct {
	handle *C.snd_pcm_t
	eng    *SynthEngine

	bufL  []float32
	bufR  []float32
	inter []float32

	started bool
	running atomic.Bool
	done    chan struct{}
	mutex   sync.Mutex
}

func NewALSAPlayer(sampleRate int) (*ALSAPlayer, error) {
	device := C.CString("default")
	defer C.free(unsafe.Pointer(device))

	var cerr C.int
	handle := C.openPCM(device, &cerr)
	if cerr < 0 {
		return nil, fmt.Errorf("failed to open PCM device: %s", C.GoString(C.snd_strerror(cerr)))
	}

	if cerr = C.setupPCM(handle, C.uint(sampleRate)); cerr < 0 {
		C.closePCM(handle)
		return nil, fmt.Errorf("failed to setup PCM: %s", C.GoString(C.snd_strerror(cerr)))
	}

	return &ALSAPlayer{
		handle: handle,
		bufL:   make([]float32, DEFAULT_BLOCK_SIZE),
		bufR:   make([]float32, DEFAULT_BLOCK_SIZE),
		inter:  make([]float32, DEFAULT_BLOCK_SIZE*2),
	}, nil
}

func (ap *ALSAPlayer) SetupPlayer(eng *SynthEngine) {
	ap.mutex.Lock()
	ap.eng = eng
	ap.mutex.Unlock()
}

func (ap *ALSAPlayer) Start() {
	ap.mutex.Lock()
	defer ap.mutex.Unlock()

	if ap.started || ap.handle == nil || ap.eng == nil {
		return
	}
	ap.started = true
	ap.running.Store(true)
	ap.done = make(chan struct{})
	go ap.feedLoop()
}

func (ap *ALSAPlayer) feedLoop() {
	defer close(ap.done)

	n := len(ap.bufL)
	if bs := ap.eng.BlockSize(); bs < n {
		n = bs
	}

	for ap.running.Load() {
		if err := ap.eng.RenderBlock(ap.bufL[:n], ap.bufR[:n]); err != nil {
			clear(ap.bufL[:n])
			clear(ap.bufR[:n])
		}
		for i := 0; i < n; i++ {
			ap.inter[i*2] = ap.bufL[i]
			ap.inter[i*2+1] = ap.bufR[i]
		}
		ap.writeFrames(n)
	}
}

func (ap *ALSAPlayer) writeFrames(n int) {
	frames := C.writePCM(ap.handle, (*C.float)(unsafe.Pointer(&ap.inter[0])), C.int(n))
	if frames < 0 {
		if frames == -C.EPIPE {
			// Underrun: re-prepare and retry once.
			C.snd_pcm_prepare(ap.handle)
			C.writePCM(ap.handle, (*C.float)(unsafe.Pointer(&ap.inter[0])), C.int(n))
		}
	}
}

func (ap *ALSAPlayer) Stop() {
	ap.mutex.Lock()
	defer ap.mutex.Unlock()

	if !ap.started {
		return
	}
	ap.running.Store(false)
	<-ap.done
	ap.started = false
}

func (ap *ALSAPlayer) Close() {
	ap.Stop()
	ap.mutex.Lock()
	defer ap.mutex.Unlock()

	if ap.handle != nil {
		C.closePCM(ap.handle)
		ap.handle = nil
	}
}

func (ap *ALSAPlayer) IsStarted() bool {
	ap.mutex.Lock()
	defer ap.mutex.Unlock()
	return ap.started
}
