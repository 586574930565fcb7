//go:build headless

// synth_backend_headless.go - stub audio backends for headless builds

// Same type names and method sets as the real oto and ALSA players so
// NewAudioOutput compiles without audio hardware or cgo. Offline
// rendering and the test suite run against these.

package main

type OtoPlayer struct {
	started bool
}

func NewOtoPlayer(sampleRate int) (*OtoPlayer, error) {
	return &OtoPlayer{}, nil
}

func (p *OtoPlayer) SetupPlayer(eng *SynthEngine) {}

func (p *OtoPlayer) Start() { p.started = true }

func (p *OtoPlayer) Stop() { p.started = false }

func (p *OtoPlayer) Close() { p.started = false }

func (p *OtoPlayer) IsStarted() bool { return p.started }

type ALSAPlayer struct {
	started bool
}

func NewALSAPlayer(sampleRate int) (*ALSAPlayer, error) {
	return &ALSAPlayer{}, nil
}

func (ap *ALSAPlayer) SetupPlayer(eng *SynthEngine) {}

func (ap *ALSAPlayer) Start() { ap.started = true }

func (ap *ALSAPlayer) Stop() { ap.started = false }

func (ap *ALSAPlayer) Close() { ap.started = false }

func (ap *ALSAPlayer) IsStarted() bool { return ap.started }
