// Package ui provides the styled terminal output used by nzmon's one-shot
// commands. The full-screen dashboard lives in internal/dashboard; this
// package covers what is printed line by line.
//
// # Components
//
//	Spinner     - Animated status line while a probe or poll runs
//	RenderTable - Server readings as a bordered table
//	StatusLine  - A symbol plus message, colored by outcome
//
// # Color Scheme
//
// Colors are ANSI codes so they follow the terminal theme:
//
//	ColorSuccess (green)  - Probe passed, server reporting
//	ColorError   (red)    - Failures
//	ColorWarning (yellow) - Waiting or no data
//	ColorMuted   (gray)   - Timing and secondary text
//
// DisableColors switches every style to plain text (--no-color, pipes).
//
// # Spinner Usage
//
//	s := ui.NewSpinner("Testing connection", os.Stderr)
//	s.Start()
//	// ... wait for the probe ...
//	s.Success() // or s.Fail()
//
// When the writer is not a terminal the spinner skips the animation and
// only prints the final line.
package ui
