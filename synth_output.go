// synth_output.go - Audio backend selection

package main

import "fmt"

const (
	AUDIO_BACKEND_OTO = iota
	AUDIO_BACKEND_ALSA
	AUDIO_BACKEND_HEADLESS
)

// AudioOutput is the minimal contract a playback backend satisfies. The
// backend owns the audio thread; it is the only caller of RenderBlock
// while started.
type AudioOutput interface {
	Start()
	Stop()
	Close()
	IsStarted() bool
}

func NewAudioOutput(backend int, sampleRate int, eng *SynthEngine) (AudioOutput, error) {
	switch backend {
	case AUDIO_BACKEND_OTO:
		player, err := NewOtoPlayer(sampleRate)
		if err != nil {
			return nil, err
		}
		player.SetupPlayer(eng)
		return player, nil
	case AUDIO_BACKEND_ALSA:
		player, err := NewALSAPlayer(sampleRate)
		if err != nil {
			return nil, err
		}
		player.SetupPlayer(eng)
		return player, nil
	case AUDIO_BACKEND_HEADLESS:
		return NewHeadlessOutput(), nil
	}
	return nil, fmt.Errorf("unknown audio backend %d", backend)
}

// HeadlessOutput satisfies AudioOutput without touching any audio device.
// Offline rendering and tests drive RenderBlock directly instead.
type HeadlessOutput struct {
	started bool
}

func NewHeadlessOutput() *HeadlessOutput { return &HeadlessOutput{} }

func (h *HeadlessOutput) Start()          { h.started = true }
func (h *HeadlessOutput) Stop()           { h.started = false }
func (h *HeadlessOutput) Close()          { h.started = false }
func (h *HeadlessOutput) IsStarted() bool { return h.started }
