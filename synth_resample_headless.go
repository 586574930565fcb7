//go:build headless

// synth_resample_headless.go - Pure-Go resampler for headless builds

package main

// resampleBuffer converts mono audio to an exact target length with cyclic
// cubic interpolation. Lower quality than the libsamplerate path but keeps
// headless builds free of cgo.
func resampleBuffer(src []float32, targetLen int) ([]float32, error) {
	if targetLen < 1 || len(src) == 0 {
		return nil, ErrUnsupportedFormat
	}
	return resampleFrameCubic(src, targetLen), nil
}
