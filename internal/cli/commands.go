package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// Command-specific flags
var (
	dashEphemeral     bool
	dashRoute         string
	agentListen       string
	agentInterval     time.Duration
	agentProcessLimit int
	killYes           bool
	psLimit           int
	psJSON            bool
	doctorFix         bool
	doctorJSON        bool
)

// dashCmd runs the interactive dashboard
var dashCmd = &cobra.Command{
	Use:   "dash",
	Short: "Open the interactive dashboard",
	Long: `Open the full-screen dashboard for the agent at --api.

Pages: Overview (1), Processes (2), Disk (3), Settings (4). Press ? for
all keys. Log output goes to perfdash.log in the state directory while the
dashboard is open.

Examples:
  perfdash dash
  perfdash dash --api http://10.0.0.5:3000
  perfdash dash --route /processes
  perfdash dash --ephemeral`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashCommand(cmd.Context(), dashEphemeral, dashRoute)
	},
}

// agentCmd serves metrics for the dashboard
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Serve host metrics and the kill endpoint",
	Long: `Run the metrics agent on this machine.

Serves the live feed (/ws), DELETE /process/{pid}, JSON endpoints under
/api and Prometheus metrics on /metrics. Stops on Ctrl-C.

Examples:
  perfdash agent
  perfdash agent --listen 127.0.0.1:3000 --interval 1s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return agentCommand(cmd.Context(), agentListen, agentInterval, agentProcessLimit)
	},
}

// killCmd terminates a process through the agent
var killCmd = &cobra.Command{
	Use:   "kill <pid>",
	Short: "Terminate a process through the agent",
	Long: `Send DELETE /process/{pid} to the agent at --api.

Asks for confirmation on an interactive terminal unless --yes is given.

Examples:
  perfdash kill 4242
  perfdash kill 4242 --yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return killCommand(cmd.Context(), cmd.OutOrStdout(), args[0], killYes)
	},
}

// psCmd prints the agent's process list
var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "Print the agent's process list",
	Long: `Print the processes the agent reports, highest CPU first.

Values at or above the configured thresholds are marked with "!".

Examples:
  perfdash ps
  perfdash ps --limit 10
  perfdash ps --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return psCommand(cmd.Context(), cmd.OutOrStdout(), psLimit, psJSON)
	},
}

// doctorCmd diagnoses config, state and agent problems
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration, state and agent problems",
	Long: `Check the config file, the state directory, saved preferences and the
agent: health, live feed and current load against the thresholds.

Examples:
  perfdash doctor
  perfdash doctor --fix
  perfdash doctor --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctorCommand(cmd.Context(), cmd.OutOrStdout(), doctorFix, doctorJSON)
	},
}

// themeCmd reads or flips the dark mode preference
var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show or toggle the dark mode preference",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return themeShowCommand(cmd.OutOrStdout())
	},
}

var themeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the dark mode preference",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return themeShowCommand(cmd.OutOrStdout())
	},
}

var themeToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Flip and save the dark mode preference",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return themeToggleCommand(cmd.OutOrStdout())
	},
}

// configCmd groups configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration perfdash would use: the config file layered
over defaults, with PERFDASH_* environment overrides and --api applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowCommand(cmd.OutOrStdout())
	},
}

func init() {
	dashCmd.Flags().BoolVar(&dashEphemeral, "ephemeral", false, "keep preferences in memory only")
	dashCmd.Flags().StringVar(&dashRoute, "route", "/", "page to open (/, /processes, /disk, /settings)")

	agentCmd.Flags().StringVar(&agentListen, "listen", "", "address to listen on (default from config, :3000)")
	agentCmd.Flags().DurationVar(&agentInterval, "interval", 0, "metrics push interval (default from config, 2s)")
	agentCmd.Flags().IntVar(&agentProcessLimit, "process-limit", -1, "max processes per list, 0 for all (default from config, 200)")

	killCmd.Flags().BoolVarP(&killYes, "yes", "y", false, "skip the confirmation prompt")

	psCmd.Flags().IntVar(&psLimit, "limit", 0, "show at most this many processes (0 for all)")
	psCmd.Flags().BoolVar(&psJSON, "json", false, "print JSON instead of a table")

	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "attempt to fix issues automatically")
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "print results as JSON")

	themeCmd.AddCommand(themeShowCmd, themeToggleCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(dashCmd, agentCmd, killCmd, psCmd, doctorCmd, themeCmd, configCmd)
}
