// Package cli implements the perfdash command-line interface.
//
// Each command is a package-level cobra.Command whose RunE delegates to a
// plain function doing the work, so the work can be tested without going
// through cobra.
//
// # Command Structure
//
//	perfdash dash               - Interactive dashboard
//	perfdash agent              - Metrics agent (HTTP + WebSocket feed)
//	perfdash kill <pid>         - Terminate one process through the agent
//	perfdash ps                 - Print the agent's process list
//	perfdash doctor             - Diagnose config, state and agent problems
//	perfdash theme [show|toggle] - Read or flip the dark mode preference
//	perfdash config show        - Print the effective configuration
//	perfdash version            - Build information
//
// # Flag Handling
//
// Global flags (--config, --api) live on the root command. Command flags are
// package-level variables registered in init().
//
// # Error Handling
//
// Commands return structured errors from internal/errors. Execute prints
// them and exits non-zero.
package cli
