// main.go - WaveWeaver entry point

/*
WaveWeaver is a polyphonic wavetable synthesizer: a real-time render core
driven by Lua scripts, a raw-terminal keyboard, or the Ebiten scope view.
One engine instance serves every mode; the flags below only decide which
front-end gets attached and whether output goes to a device or a WAV file.

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/WaveWeaver
License: GPLv3 or later
*/

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func boilerPlate() {
	fmt.Println("\nWaveWeaver - polyphonic wavetable synthesizer")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/WaveWeaver")
	fmt.Println("Buy me a coffee: https://ko-fi.com/intuition/tip")
	fmt.Println("License: GPLv3 or later")
	fmt.Println()
}

func main() {
	var (
		modeScript bool
		modeKeys   bool
		modeScope  bool
		modeDemo   bool
		modeList   bool

		backendName string
		sampleRate  int
		bpm         float64
		presetName  string
		tableFile   string
		frameLen    int
		wavOut      string
		wavDur      float64
		quiet       bool
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVar(&modeScript, "script", false, "Run a Lua script (filename argument)")
	flagSet.BoolVar(&modeKeys, "keys", false, "Play from the terminal keyboard")
	flagSet.BoolVar(&modeScope, "scope", false, "Open the oscilloscope window and play from the keyboard")
	flagSet.BoolVar(&modeDemo, "demo", false, "Play the built-in demo sequence")
	flagSet.BoolVar(&modeList, "list", false, "List presets and factory wavetables")
	flagSet.StringVar(&backendName, "backend", "oto", "Audio backend: oto, alsa or headless")
	flagSet.IntVar(&sampleRate, "sr", 48000, "Sample rate in Hz")
	flagSet.Float64Var(&bpm, "bpm", 0, "Initial tempo (0 keeps the default)")
	flagSet.StringVar(&presetName, "preset", "", "Load a factory preset at startup")
	flagSet.StringVar(&tableFile, "table", "", "Import a wavetable file (WAV/Serum/MP3) at startup")
	flagSet.IntVar(&frameLen, "frame", WT_DEFAULT_FRAME, "Frame length for plain-WAV wavetable import")
	flagSet.StringVar(&wavOut, "wav", "", "Render offline to this WAV file instead of playing live")
	flagSet.Float64Var(&wavDur, "dur", 8, "Offline render length in seconds")
	flagSet.BoolVar(&quiet, "quiet", false, "Suppress the banner")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./waveweaver [-script|-keys|-scope|-demo|-list] [-backend oto|alsa|headless] [-wav out.wav -dur 8] [file.lua]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if !quiet {
		boilerPlate()
	}

	filename := flagSet.Arg(0)

	modeCount := 0
	for _, m := range []bool{modeScript, modeKeys, modeScope, modeDemo, modeList} {
		if m {
			modeCount++
		}
	}
	if modeCount == 0 {
		// A bare .lua argument means script mode; otherwise default to the
		// terminal keyboard.
		if strings.HasSuffix(strings.ToLower(filename), ".lua") {
			modeScript = true
		} else {
			modeKeys = true
		}
		modeCount = 1
	}
	if modeCount != 1 {
		fmt.Println("Error: select exactly one mode flag: -script, -keys, -scope, -demo or -list")
		os.Exit(1)
	}
	if modeScript && filename == "" {
		fmt.Println("Error: script mode requires a filename")
		os.Exit(1)
	}

	eng := NewSynthEngine()
	if err := eng.Prepare(float64(sampleRate), DEFAULT_BLOCK_SIZE); err != nil {
		fmt.Printf("Failed to prepare engine: %v\n", err)
		os.Exit(1)
	}
	if bpm > 0 {
		eng.SetTempo(bpm)
	}
	if presetName != "" {
		if err := eng.LoadPreset(presetName); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Loaded preset: %s\n", eng.PatchName())
	}
	if tableFile != "" {
		id, err := ImportWavetableFile(eng, tableFile, "", frameLen)
		if err != nil {
			fmt.Printf("Error importing wavetable %s: %v\n", tableFile, err)
			os.Exit(1)
		}
		name, _ := eng.WavetableName(id)
		fmt.Printf("Imported wavetable %d: %s\n", id, name)
	}

	if modeList {
		listBanks(eng)
		return
	}

	// Offline render needs no audio backend at all.
	if wavOut != "" {
		if modeKeys || modeScope {
			fmt.Println("Error: -wav only applies to -script and -demo modes")
			os.Exit(1)
		}
		var err error
		if modeDemo {
			err = RunDemo(eng)
		} else {
			err = RunScriptFile(eng, filename)
		}
		if err != nil {
			fmt.Printf("Script error: %v\n", err)
			os.Exit(1)
		}
		if err := RenderToWAV(eng, wavOut, wavDur); err != nil {
			fmt.Printf("Render error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Rendered %.1fs to %s\n", wavDur, wavOut)
		return
	}

	backend, err := parseBackend(backendName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	out, err := NewAudioOutput(backend, sampleRate, eng)
	if err != nil {
		fmt.Printf("Failed to initialize audio: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()
	out.Start()

	switch {
	case modeScope:
		if err := RunScope(eng, out); err != nil {
			fmt.Printf("Scope error: %v\n", err)
			os.Exit(1)
		}

	case modeKeys:
		tk := NewTerminalKeys(eng)
		if err := tk.Run(); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

	case modeDemo:
		fmt.Println("Playing demo sequence, Ctrl+C to stop...")
		if err := RunDemo(eng); err != nil {
			fmt.Printf("Demo error: %v\n", err)
			os.Exit(1)
		}
		holdUntilSignal(eng, demoLengthSec(eng.Tempo()))

	case modeScript:
		fmt.Printf("Running script: %s\n", filename)
		if err := RunScriptFile(eng, filename); err != nil {
			fmt.Printf("Script error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Script scheduled, Ctrl+C to stop...")
		holdUntilSignal(eng, 0)
	}

	out.Stop()
}

// holdUntilSignal blocks until SIGINT/SIGTERM, or until maxSec elapses when
// maxSec > 0, then releases everything so the backend drains cleanly.
func holdUntilSignal(eng *SynthEngine, maxSec float64) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	if maxSec > 0 {
		select {
		case <-sig:
		case <-time.After(time.Duration(maxSec * float64(time.Second))):
		}
	} else {
		<-sig
	}
	eng.AllNotesOff()
	time.Sleep(200 * time.Millisecond)
}

func parseBackend(name string) (int, error) {
	switch strings.ToLower(name) {
	case "oto":
		return AUDIO_BACKEND_OTO, nil
	case "alsa":
		return AUDIO_BACKEND_ALSA, nil
	case "headless":
		return AUDIO_BACKEND_HEADLESS, nil
	default:
		return 0, fmt.Errorf("unknown audio backend %q", name)
	}
}

func listBanks(eng *SynthEngine) {
	fmt.Println("Presets:")
	for _, name := range PresetNames() {
		fmt.Printf("  %s\n", name)
	}
	fmt.Println("\nWavetables:")
	for id := 0; id < eng.WavetableCount(); id++ {
		name, err := eng.WavetableName(TableID(id))
		if err != nil {
			continue
		}
		fmt.Printf("  %2d  %s\n", id, name)
	}
}
