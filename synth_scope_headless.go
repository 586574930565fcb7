//go:build headless

// synth_scope_headless.go - scope stub for headless builds

package main

import "errors"

func RunScope(eng *SynthEngine, out AudioOutput) error {
	return errors.New("scope view requires a GUI build (rebuild without the headless tag)")
}
