package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess = "✓" // Check passed
	SymbolFail    = "✗" // Check failed
	SymbolPending = "○" // Not checked
	SymbolWarn    = "●" // Check passed with a warning
)
