// synth_render.go - Offline WAV bounce

package main

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// RenderToWAV renders the engine offline for the given duration and writes
// a 16-bit stereo WAV at the engine sample rate. The engine must not be
// driven by a live backend at the same time; both would race the audio
// thread's role.
func RenderToWAV(e *SynthEngine, path string, seconds float64) error {
	if !e.Prepared() {
		return ErrNotPrepared
	}
	if seconds <= 0 {
		return fmt.Errorf("render duration %g invalid", seconds)
	}

	sr := e.SampleRate()
	total := int(seconds * sr)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, int(sr), 16, 2, 1)

	block := e.BlockSize()
	outL := make([]float32, block)
	outR := make([]float32, block)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: int(sr)},
		Data:           make([]int, block*2),
		SourceBitDepth: 16,
	}

	for done := 0; done < total; {
		n := block
		if total-done < n {
			n = total - done
		}
		if err := e.RenderBlock(outL[:n], outR[:n]); err != nil {
			return err
		}
		buf.Data = buf.Data[:n*2]
		for i := 0; i < n; i++ {
			buf.Data[i*2] = int(clampF(outL[i], -1, 1) * 32767)
			buf.Data[i*2+1] = int(clampF(outR[i], -1, 1) * 32767)
		}
		if err := enc.Write(buf); err != nil {
			return err
		}
		done += n
	}

	return enc.Close()
}
