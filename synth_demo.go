// synth_demo.go - built-in demo sequence

// The demo is itself a Lua script run through the normal script host, so
// it doubles as working documentation for the scripting surface. Patch
// and tempo calls apply immediately; only the chord holds are scheduled,
// and the arpeggiator does the actual sequencing.

package main

const (
	DEMO_BEATS    = 16
	DEMO_TAIL_SEC = 2.5
)

const demoScript = `
synth.tempo(126)
synth.preset("Acid Bass")
synth.patch{
  arp = { on = true, mode = "updown", steps = 4, octaves = 2, gate = 0.55, swing = 0.12 },
  fx = {
    delay = { on = true, sync = "1/8.", feedback = 0.4, damp = 0.35, mix = 0.3, pingpong = true },
    reverb = { on = true, size = 0.4, damp = 0.5, mix = 0.18 },
  },
}
synth.macro(1, 0.4)

-- A minor hold, arpeggiated
synth.play(33, 0.95, 8)
synth.play(36, 0.85, 8)
synth.play(40, 0.85, 8)
synth.wait(8)

-- G minor hold
synth.play(31, 0.95, 8)
synth.play(34, 0.85, 8)
synth.play(38, 0.85, 8)
synth.wait(8)
`

func RunDemo(e *SynthEngine) error {
	return RunScriptString(e, demoScript)
}

// demoLengthSec reports how long the demo runs at the given tempo,
// including the effect tail.
func demoLengthSec(bpm float64) float64 {
	if bpm <= 0 {
		bpm = 120
	}
	return DEMO_BEATS*60.0/bpm + DEMO_TAIL_SEC
}
