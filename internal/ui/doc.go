// Package ui renders perfdash's one-shot command output: process tables,
// status checks and the symbols and colors they share. The interactive
// dashboard lives in the dashboard package.
//
// # Color Scheme
//
// Colors are ANSI codes so the output respects the terminal's own theme:
//
//	ColorSuccess   (green)  - Passing checks, healthy values
//	ColorError     (red)    - Failures and values over their threshold
//	ColorWarning   (yellow) - Warnings and values near their threshold
//	ColorMuted     (gray)   - Secondary text and suggestions
package ui
