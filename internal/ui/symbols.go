package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Probe or poll succeeded
	SymbolFail     = "✗" // Probe or poll failed
	SymbolPending  = "○" // Not started
	SymbolProgress = "◐" // In progress
	SymbolComplete = "●" // Done
	SymbolWarning  = "!" // Tolerated problem
)
