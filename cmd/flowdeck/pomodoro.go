package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkeller/flowdeck/internal/client/pomodoro"
	"github.com/mkeller/flowdeck/internal/model"
)

var pomodoroCmd = &cobra.Command{
	Use:     "pomodoro",
	Aliases: []string{"pomo"},
	Short:   "Run the pomodoro timer and view session statistics",
}

var pomodoroStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the interval timer",
	Long: `Run the pomodoro timer in the foreground. Completed intervals are
recorded locally and synced when possible. Press Ctrl-C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := pomodoro.LoadSettings(cfg.TimerSettingsPath())
		if err != nil {
			return err
		}

		s, err := openStores(quietLogger())
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		engine := pomodoro.NewEngine(settings, func(phase pomodoro.Phase, duration time.Duration) {
			recCtx, recCancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer recCancel()

			typ := model.SessionType(phase.SessionType())
			if err := s.pomodoro.RecordSession(recCtx, int(duration.Seconds()), typ); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to record session: %v\n", err)
				return
			}
			fmt.Printf("\n%s finished (%s)\n", phaseLabel(phase), duration.Round(time.Second))
		})

		if err := engine.Start(); err != nil {
			return err
		}
		fmt.Printf("Starting %s for %s\n", phaseLabel(engine.Phase()), engine.Remaining().Round(time.Second))

		go engine.Run(ctx)

		display := time.NewTicker(time.Second)
		defer display.Stop()
		for {
			select {
			case <-ctx.Done():
				fmt.Println("\nTimer stopped")
				return nil
			case <-display.C:
				if engine.State() == pomodoro.StateIdle {
					fmt.Printf("Next up: %s for %s. Press Enter to start, Ctrl-C to quit.\n",
						phaseLabel(engine.Phase()), engine.Remaining().Round(time.Second))
					waitForEnter(ctx)
					if ctx.Err() == nil {
						engine.Start()
					}
					continue
				}
				fmt.Printf("\r%s: %s remaining ", phaseLabel(engine.Phase()), engine.Remaining().Round(time.Second))
			}
		}
	},
}

var pomodoroStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pomodoro statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStores(quietLogger())
		if err != nil {
			return err
		}

		stats := s.pomodoro.Stats()
		fmt.Printf("Sessions completed: %d (today %d, this week %d)\n",
			stats.CompletedSessions, stats.CompletedToday, stats.CompletedThisWeek)
		fmt.Printf("Total focus time:   %s\n", (time.Duration(stats.TotalFocusTime) * time.Second).Round(time.Minute))

		if n, _ := cmd.Flags().GetInt("history"); n > 0 {
			history := stats.SessionsHistory
			if len(history) > n {
				history = history[:n]
			}
			for _, rec := range history {
				fmt.Printf("  %s  %-11s %4dm%s\n", rec.Date, rec.Type,
					rec.Duration/60, syncSuffix(rec.SyncState))
			}
		}
		return nil
	},
}

var pomodoroConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change timer settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := pomodoro.LoadSettings(cfg.TimerSettingsPath())
		if err != nil {
			return err
		}

		changed := false
		if v, _ := cmd.Flags().GetDuration("work"); v > 0 {
			settings.WorkDuration = v
			changed = true
		}
		if v, _ := cmd.Flags().GetDuration("short-break"); v > 0 {
			settings.ShortBreakDuration = v
			changed = true
		}
		if v, _ := cmd.Flags().GetDuration("long-break"); v > 0 {
			settings.LongBreakDuration = v
			changed = true
		}
		if v, _ := cmd.Flags().GetInt("sessions"); v > 0 {
			settings.SessionsBeforeLongBreak = v
			changed = true
		}
		if cmd.Flags().Changed("auto-start") {
			settings.AutoStartNext, _ = cmd.Flags().GetBool("auto-start")
			changed = true
		}

		if changed {
			if err := pomodoro.SaveSettings(cfg.TimerSettingsPath(), settings); err != nil {
				return err
			}
			fmt.Println("Settings saved")
		}

		fmt.Printf("Work:           %s\n", settings.WorkDuration)
		fmt.Printf("Short break:    %s\n", settings.ShortBreakDuration)
		fmt.Printf("Long break:     %s\n", settings.LongBreakDuration)
		fmt.Printf("Long break every %d sessions\n", settings.SessionsBeforeLongBreak)
		fmt.Printf("Auto-start next: %v\n", settings.AutoStartNext)
		return nil
	},
}

func init() {
	pomodoroStatsCmd.Flags().Int("history", 0, "show the N most recent sessions")
	pomodoroConfigCmd.Flags().Duration("work", 0, "work interval length (e.g. 25m)")
	pomodoroConfigCmd.Flags().Duration("short-break", 0, "short break length")
	pomodoroConfigCmd.Flags().Duration("long-break", 0, "long break length")
	pomodoroConfigCmd.Flags().Int("sessions", 0, "work sessions before a long break")
	pomodoroConfigCmd.Flags().Bool("auto-start", false, "start the next interval automatically")

	pomodoroCmd.AddCommand(pomodoroStartCmd)
	pomodoroCmd.AddCommand(pomodoroStatsCmd)
	pomodoroCmd.AddCommand(pomodoroConfigCmd)
}

func phaseLabel(phase pomodoro.Phase) string {
	switch phase {
	case pomodoro.PhaseShortBreak:
		return "Short break"
	case pomodoro.PhaseLongBreak:
		return "Long break"
	default:
		return "Work session"
	}
}

// waitForEnter blocks until the user presses Enter or ctx is cancelled.
func waitForEnter(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		var buf [1]byte
		for {
			n, err := os.Stdin.Read(buf[:])
			if err != nil {
				break
			}
			if n > 0 && buf[0] == '\n' {
				break
			}
		}
		close(done)
	}()
	select {
	case <-ctx.Done():
	case <-done:
	}
}
