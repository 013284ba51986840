// Package daemon provides the background sync loop: it watches the cache
// directory for changes and periodically reconciles every store with the
// server.
//
// The daemon:
// 1. Watches for cache file changes written by other flowdeck processes
// 2. Debounces rapid updates into a single sync
// 3. Periodically syncs regardless of local activity
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Syncer reconciles one store with the server. All the client stores
// implement it.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Config holds configuration for the daemon.
type Config struct {
	// SyncInterval is how often to sync even without local changes.
	SyncInterval time.Duration

	// DebounceInterval is how long to wait before reacting to cache file
	// changes, batching rapid updates together.
	DebounceInterval time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval:     time.Minute,
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon watches the cache directory and drives store synchronization.
type Daemon struct {
	watchDir string
	syncers  []Syncer
	config   *Config

	watcher *fsnotify.Watcher

	changeMu    sync.Mutex
	lastChange  time.Time
	changeQueue int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon watching watchDir and syncing the given stores.
func New(watchDir string, syncers []Syncer, config *Config) (*Daemon, error) {
	if watchDir == "" {
		return nil, fmt.Errorf("watchDir cannot be empty")
	}
	if len(syncers) == 0 {
		return nil, fmt.Errorf("at least one syncer is required")
	}
	if config == nil {
		config = DefaultConfig()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		watchDir: watchDir,
		syncers:  syncers,
		config:   config,
		watcher:  watcher,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon performs an initial sync, then reacts to cache file changes
// and the periodic interval. This blocks until ctx is cancelled or an error
// occurs.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting sync daemon")

	if err := d.syncAll(); err != nil {
		d.config.Logger.Printf("Initial sync failed, will retry: %v", err)
	}

	if err := d.watcher.Add(d.watchDir); err != nil {
		return fmt.Errorf("failed to watch cache directory: %w", err)
	}
	d.config.Logger.Printf("Watching: %s", d.watchDir)

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.syncLoop()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping sync daemon")

	d.cancel()
	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}
	d.wg.Wait()

	d.config.Logger.Println("Sync daemon stopped")
	return nil
}

// watchFileEvents monitors filesystem events and queues a debounced sync.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove) == 0 {
				continue
			}
			// Only completed cache documents matter, not temp files from
			// in-progress writes.
			if filepath.Ext(event.Name) != ".json" || strings.HasSuffix(event.Name, ".tmp") {
				continue
			}
			d.queueChange()

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

func (d *Daemon) queueChange() {
	d.changeMu.Lock()
	defer d.changeMu.Unlock()
	d.changeQueue++
	d.lastChange = time.Now()
}

// syncLoop runs the debounced change processing and the periodic sync.
func (d *Daemon) syncLoop() {
	defer d.wg.Done()

	debounce := time.NewTicker(d.config.DebounceInterval)
	defer debounce.Stop()
	interval := time.NewTicker(d.config.SyncInterval)
	defer interval.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-debounce.C:
			d.changeMu.Lock()
			due := d.changeQueue > 0 && time.Since(d.lastChange) >= d.config.DebounceInterval
			d.changeMu.Unlock()
			if !due {
				continue
			}
			if err := d.syncAll(); err != nil {
				d.config.Logger.Printf("Sync failed: %v", err)
			}

		case <-interval.C:
			if err := d.syncAll(); err != nil {
				d.config.Logger.Printf("Periodic sync failed: %v", err)
			}
		}
	}
}

// syncAll reconciles every store, then clears the change queue so the
// daemon's own cache writes do not immediately retrigger a sync.
func (d *Daemon) syncAll() error {
	ctx, cancel := context.WithTimeout(d.ctx, 30*time.Second)
	defer cancel()

	var firstErr error
	for _, s := range d.syncers {
		if err := s.Sync(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	d.changeMu.Lock()
	d.changeQueue = 0
	d.changeMu.Unlock()

	return firstErr
}
