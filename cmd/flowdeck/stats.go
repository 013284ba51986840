package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show activity statistics",
	Long: `Show streaks, weekly completion progress, and when you get the
most done.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStores(quietLogger())
		if err != nil {
			return err
		}

		stats := s.stats.Stats()
		now := time.Now()

		fmt.Printf("Current streak:  %d days\n", stats.CurrentStreak)
		fmt.Printf("Longest streak:  %d days\n", stats.LongestStreak)
		if stats.LastActiveDate != "" {
			fmt.Printf("Last active:     %s\n", stats.LastActiveDate)
		}
		fmt.Printf("Weekly progress: %d%%\n", s.stats.WeeklyProgress(now))

		change := s.stats.WeekOverWeekChange(now)
		switch {
		case change > 0:
			fmt.Printf("Week over week:  +%d completions\n", change)
		case change < 0:
			fmt.Printf("Week over week:  %d completions\n", change)
		}

		if t := s.stats.MostProductiveTime(); t != "" {
			fmt.Printf("Most productive time: %s\n", t)
		}
		if d := s.stats.MostProductiveDay(); d != "" {
			fmt.Printf("Most productive day:  %s\n", d)
		}

		if verbose, _ := cmd.Flags().GetBool("log"); verbose {
			fmt.Println("\nDaily activity:")
			for _, entry := range stats.ActivityLogs {
				fmt.Printf("  %s  %d/%d tasks\n", entry.Date, entry.CompletedTasks, entry.TotalTasks)
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().Bool("log", false, "include the daily activity log")
}
