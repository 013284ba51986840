package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mkeller/flowdeck/internal/server/db"
	"github.com/mkeller/flowdeck/internal/server/httpapi"
	"github.com/mkeller/flowdeck/internal/server/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the FlowDeck server",
	Long: `Host the FlowDeck HTTP API backed by a local SQLite database.

The server handles account registration, record storage for every client,
and the websocket feed that notifies connected clients of changes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")
	serveCmd.Flags().String("db", "", "database path (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.ListenAddr
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		addr = v
	}
	dbPath := cfg.DBPath
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		dbPath = v
	}

	logger := serverLogger()

	database, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	server := httpapi.NewServer(database, &httpapi.Config{
		Addr:   addr,
		Logger: logger,
	})
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	logger.Printf("Listening on %s (database %s)", server.Addr(), dbPath)

	// Expired sessions accumulate otherwise; sweep hourly.
	pruneCtx, cancelPrune := context.WithCancel(ctx)
	defer cancelPrune()
	go pruneSessions(pruneCtx, database, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Println("Shutting down")
	return server.Stop()
}

func pruneSessions(ctx context.Context, database *db.DB, logger *log.Logger) {
	mgr := session.NewManager(database.RawDB(), session.DefaultTTL)
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := mgr.PruneExpired(ctx); err != nil {
				logger.Printf("Failed to prune sessions: %v", err)
			} else if n > 0 {
				logger.Printf("Pruned %d expired sessions", n)
			}
		}
	}
}

// serverLogger writes to stderr, and to a size-rotated log file when one is
// configured.
func serverLogger() *log.Logger {
	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	return log.New(out, "[serve] ", log.LstdFlags)
}
