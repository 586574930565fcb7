//go:build !headless

// synth_resample.go - Sample rate conversion via libsamplerate

package main

import (
	"fmt"

	"github.com/dh1tw/gosamplerate"
)

// resampleBuffer converts mono audio to an exact target length using the
// best sinc converter. Import-time only; never called while rendering.
func resampleBuffer(src []float32, targetLen int) ([]float32, error) {
	if targetLen < 1 || len(src) == 0 {
		return nil, ErrUnsupportedFormat
	}
	if len(src) == targetLen {
		out := make([]float32, targetLen)
		copy(out, src)
		return out, nil
	}
	ratio := float64(targetLen) / float64(len(src))
	if !gosamplerate.IsValidRatio(ratio) {
		return nil, fmt.Errorf("resample ratio %g out of range", ratio)
	}
	out, err := gosamplerate.Simple(src, ratio, 1, gosamplerate.SRC_SINC_BEST_QUALITY)
	if err != nil {
		return nil, err
	}
	// The converter can land a couple of samples off target; trim or
	// zero-pad to the exact length the caller sliced their frames for.
	if len(out) > targetLen {
		out = out[:targetLen]
	}
	for len(out) < targetLen {
		out = append(out, 0)
	}
	return out, nil
}
