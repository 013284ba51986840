// Command flowdeck is the FlowDeck productivity tool: a local-first task,
// goal, and pomodoro tracker that syncs opportunistically to a FlowDeck
// server, plus the server itself.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkeller/flowdeck/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "flowdeck",
	Short: "Local-first task, goal, and pomodoro tracking",
	Long: `FlowDeck tracks tasks, goals, pomodoro sessions, and activity
statistics. All commands work offline against a local cache; changes sync
to a FlowDeck server when one is reachable.

Run 'flowdeck serve' to host the server, 'flowdeck register' to create an
account, and 'flowdeck sync daemon' to keep the cache reconciled in the
background.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if serverURL != "" {
			cfg.ServerURL = serverURL
		}
		return nil
	},
}

var serverURL string

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "FlowDeck server URL (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(goalCmd)
	rootCmd.AddCommand(pomodoroCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(syncCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
