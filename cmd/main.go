// Package main is the entry point for the signalscope client.
//
// signalscope submits signal generation jobs to the generation backend,
// follows their progress and draws the results:
//
//	signalscope ui                 desktop window with live visualizations
//	signalscope generate           submit from the terminal and export PNGs
//	signalscope render <file>      redraw a stored signal
//	signalscope music list|upload|ingest
//	signalscope presets
//
// Build:
//
//	go build -o build/signalscope ./cmd
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
