package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkeller/flowdeck/internal/client/api"
	"github.com/mkeller/flowdeck/internal/client/cache"
	"github.com/mkeller/flowdeck/internal/client/store"
)

// loadToken reads the persisted session token, returning "" when not logged
// in.
func loadToken() string {
	data, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(cfg.TokenPath()), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	// Token grants full account access, keep it owner-readable only.
	if err := os.WriteFile(cfg.TokenPath(), []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	return nil
}

func clearToken() error {
	err := os.Remove(cfg.TokenPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session token: %w", err)
	}
	return nil
}

// newClient builds an API client carrying the saved session token, if any.
func newClient() *api.Client {
	return api.New(cfg.ServerURL, loadToken())
}

// stores bundles the loaded client stores.
type stores struct {
	client   *api.Client
	cache    *cache.Cache
	tasks    *store.TaskStore
	goals    *store.GoalStore
	pomodoro *store.PomodoroStore
	stats    *store.StatsStore
}

// openStores builds and loads every client store against the cache
// directory.
func openStores(logger *log.Logger) (*stores, error) {
	c, err := cache.New(cfg.CacheDir())
	if err != nil {
		return nil, err
	}

	client := newClient()
	s := &stores{
		client:   client,
		cache:    c,
		tasks:    store.NewTaskStore(client, c, logger),
		goals:    store.NewGoalStore(client, c, logger),
		pomodoro: store.NewPomodoroStore(client, c, logger),
		stats:    store.NewStatsStore(client, c, logger),
	}

	if err := s.tasks.Load(); err != nil {
		return nil, fmt.Errorf("failed to load task cache: %w", err)
	}
	if err := s.goals.Load(); err != nil {
		return nil, fmt.Errorf("failed to load goal cache: %w", err)
	}
	if err := s.pomodoro.Load(); err != nil {
		return nil, fmt.Errorf("failed to load pomodoro cache: %w", err)
	}
	if err := s.stats.Load(); err != nil {
		return nil, fmt.Errorf("failed to load statistics cache: %w", err)
	}
	return s, nil
}

// quietLogger discards store chatter for interactive commands; sync errors
// surface through record state instead.
func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
