// synth_import.go - Wavetable import from WAV and MP3 files

/*
Imports audio files as wavetables. WAV files are checked for a Serum-style
"clm " metadata chunk, which declares the single-cycle frame length the
file was exported with; when present it overrides the caller's frame
length. Audio that does not divide evenly into frames is resampled to the
nearest whole frame count, so ragged files still import instead of
erroring. Multi-channel sources fold down to mono before slicing.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
)

var clmChunkID = [4]byte{'c', 'l', 'm', ' '}

// A real clm payload is "<!>NNNN" plus a short comment string; the declared
// chunk size never drives the allocation.
const CLM_SNIFF_MAX = 256

// ImportWavetableFile loads an audio file into the engine's wavetable
// store and returns the new table id. frameLen <= 0 uses the default
// frame size; a clm chunk in a WAV wins over both.
func ImportWavetableFile(e *SynthEngine, path, name string, frameLen int) (TableID, error) {
	if frameLen <= 0 {
		frameLen = WT_DEFAULT_FRAME
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	var mono []float32
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		var clmLen int
		mono, clmLen, err = decodeWAVFile(path)
		if err == nil && clmLen > 0 {
			frameLen = clmLen
		}
	case ".mp3":
		mono, err = decodeMP3File(path)
	default:
		return TABLE_NONE, fmt.Errorf("import %s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return TABLE_NONE, fmt.Errorf("import %s: %w", path, err)
	}
	if len(mono) == 0 {
		return TABLE_NONE, fmt.Errorf("import %s: empty file: %w", path, ErrUnsupportedFormat)
	}

	// Snap to a whole number of frames.
	frames := int(math.Round(float64(len(mono)) / float64(frameLen)))
	if frames < 1 {
		frames = 1
	}
	if want := frames * frameLen; want != len(mono) {
		mono, err = resampleBuffer(mono, want)
		if err != nil {
			return TABLE_NONE, fmt.Errorf("import %s: %w", path, err)
		}
	}

	return e.LoadWavetable(name, mono, frames)
}

// decodeWAVFile returns folded mono samples plus any clm frame length.
func decodeWAVFile(path string) ([]float32, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	clmLen := sniffClmFrameLen(data)

	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, 0, ErrUnsupportedFormat
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%v: %w", err, ErrUnsupportedFormat)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, ErrUnsupportedFormat
	}

	bits := int(d.BitDepth)
	if bits < 8 || bits > 32 {
		return nil, 0, ErrUnsupportedFormat
	}
	scale := float32(int64(1) << (bits - 1))

	chans := buf.Format.NumChannels
	n := len(buf.Data) / chans
	mono := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for c := 0; c < chans; c++ {
			sum += float32(buf.Data[i*chans+c]) / scale
		}
		mono[i] = sum / float32(chans)
	}
	return mono, clmLen, nil
}

// sniffClmFrameLen walks the RIFF chunks looking for Serum's "clm " block,
// whose payload starts "<!>NNNN" with the frame length in decimal.
func sniffClmFrameLen(data []byte) int {
	parser := riff.New(bytes.NewReader(data))
	if err := parser.ParseHeaders(); err != nil {
		return 0
	}
	for {
		chunk, err := parser.NextChunk()
		if err != nil {
			return 0
		}
		if chunk.ID != clmChunkID {
			chunk.Drain()
			continue
		}
		readLen := chunk.Size
		if readLen > CLM_SNIFF_MAX {
			readLen = CLM_SNIFF_MAX
		}
		body := make([]byte, readLen)
		if _, err := io.ReadFull(chunk, body); err != nil {
			return 0
		}
		return parseClmBody(body)
	}
}

func parseClmBody(body []byte) int {
	s := string(body)
	i := strings.Index(s, "<!>")
	if i < 0 {
		return 0
	}
	s = s[i+3:]
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	if n < WT_MIN_FRAME_LEN || n > 65536 {
		return 0
	}
	return n
}

// decodeMP3File folds the decoder's fixed 16-bit stereo output to mono.
func decodeMP3File(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrUnsupportedFormat)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, err
	}

	// 4 bytes per frame: left int16, right int16, little-endian.
	n := len(raw) / 4
	mono := make([]float32, n)
	for i := 0; i < n; i++ {
		l := int16(uint16(raw[i*4]) | uint16(raw[i*4+1])<<8)
		r := int16(uint16(raw[i*4+2]) | uint16(raw[i*4+3])<<8)
		mono[i] = (float32(l) + float32(r)) / (2 * 32768)
	}
	return mono, nil
}
