package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkeller/flowdeck/internal/client/daemon"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile local records with the server",
}

var syncNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Sync once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.New(os.Stderr, "[sync] ", log.LstdFlags)
		s, err := openStores(logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var failed bool
		for name, syncer := range map[string]daemon.Syncer{
			"tasks":      s.tasks,
			"goals":      s.goals,
			"pomodoro":   s.pomodoro,
			"statistics": s.stats,
		} {
			if err := syncer.Sync(ctx); err != nil {
				logger.Printf("Failed to sync %s: %v", name, err)
				failed = true
			}
		}
		if failed {
			return fmt.Errorf("sync incomplete, unsynced records remain queued")
		}

		fmt.Printf("Synced. %d tasks and %d goals pending.\n",
			s.tasks.PendingCount(), s.goals.PendingCount())
		return nil
	},
}

var syncDaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Watch the cache and sync continuously",
	Long: `Run the background sync loop: reacts to cache changes written by
other flowdeck commands and syncs periodically. Blocks until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.New(os.Stderr, "[daemon] ", log.LstdFlags)
		s, err := openStores(logger)
		if err != nil {
			return err
		}

		dcfg := daemon.DefaultConfig()
		dcfg.Logger = logger
		if cfg.SyncIntervalSeconds > 0 {
			dcfg.SyncInterval = time.Duration(cfg.SyncIntervalSeconds) * time.Second
		}

		d, err := daemon.New(cfg.CacheDir(), []daemon.Syncer{
			s.tasks, s.goals, s.pomodoro, s.stats,
		}, dcfg)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()
		return d.Start(ctx)
	},
}

func init() {
	syncCmd.AddCommand(syncNowCmd)
	syncCmd.AddCommand(syncDaemonCmd)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
