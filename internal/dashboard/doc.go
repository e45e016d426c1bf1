// Package dashboard implements the terminal app shell: a tabbed Bubble Tea
// UI over the agent's live feed.
//
// # Architecture
//
// The package follows the Model-Update-View pattern:
//
//   - Model: holds the application state, the current route and UI state
//     (selection, sort order, help overlay, last notice or error)
//   - Update: processes key presses, feed events and kill results
//   - View: renders the header, route tabs, the current page and a footer
//
// # Routes
//
// Navigation goes through a routes.Observer. Entering a route runs its
// on-enter effects through app.State, so opening the process manager asks
// the feed for a fresh process list and the other pages do not.
//
//	1  /           overview: CPU, memory, host and network
//	2  /processes  process manager with kill and sort
//	3  /disk       per-partition usage
//	4  /settings   theme, connection status, "Refresh Processes" button
//
// # Message Flow
//
//  1. waitForUpdate blocks on the feed's Updates channel
//  2. feedMsg arrives, the model records history and fixes the selection
//  3. waitForUpdate is issued again
//
// Kills run as commands and come back as killResultMsg. A failed kill is
// logged by the kill action and shown in the footer until the next one.
//
// # Themes
//
// Dark and light palettes follow the persisted dark mode preference. Values
// are colored against the configured thresholds: critical at or above the
// threshold, warning from three quarters of it.
package dashboard
