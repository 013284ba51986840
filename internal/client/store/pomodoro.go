package store

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mkeller/flowdeck/internal/client/cache"
	"github.com/mkeller/flowdeck/internal/model"
)

const (
	pomodoroCacheName = "pomodoro"

	// maxSessionHistory caps the locally kept session records, newest first.
	maxSessionHistory = 100
)

// PomodoroAPI is the server surface the pomodoro store pushes to and pulls
// from.
type PomodoroAPI interface {
	CreateSession(ctx context.Context, rec model.SessionRecord) error
	PomodoroStatistics(ctx context.Context) (*model.PomodoroStatistics, error)
}

// PomodoroStore holds the local session history and the counters derived
// from it.
type PomodoroStore struct {
	mu     sync.Mutex
	api    PomodoroAPI
	cache  *cache.Cache
	logger *log.Logger
	clock  func() time.Time

	stats model.PomodoroStatistics
	queue *retryQueue[string]
}

// NewPomodoroStore creates a pomodoro store backed by api and c. Call Load
// before first use to restore cached state.
func NewPomodoroStore(api PomodoroAPI, c *cache.Cache, logger *log.Logger) *PomodoroStore {
	if logger == nil {
		logger = log.New(log.Writer(), "[pomodoro] ", log.LstdFlags)
	}
	return &PomodoroStore{
		api:    api,
		cache:  c,
		logger: logger,
		clock:  time.Now,
		queue:  newRetryQueue[string](),
	}
}

// Load restores the statistics from the cache and re-queues unsynced
// sessions.
func (s *PomodoroStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats model.PomodoroStatistics
	found, err := s.cache.Load(pomodoroCacheName, &stats)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	s.stats = stats
	now := s.clock()
	for _, rec := range s.stats.SessionsHistory {
		if rec.SyncState.Unsynced() {
			s.queue.enqueue(rec.Date, now)
		}
	}
	return nil
}

func (s *PomodoroStore) persist() error {
	return s.cache.Save(pomodoroCacheName, s.stats)
}

// Stats returns a copy of the current statistics.
func (s *PomodoroStore) Stats() model.PomodoroStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.stats
	out.SessionsHistory = make([]model.SessionRecord, len(s.stats.SessionsHistory))
	copy(out.SessionsHistory, s.stats.SessionsHistory)
	return out
}

// RecordSession registers a completed interval. Work sessions bump the
// counters, rolling the daily and weekly counts over when the date or ISO
// week changed since the previous work session. The record is persisted
// locally, then pushed.
func (s *PomodoroStore) RecordSession(ctx context.Context, duration int, typ model.SessionType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	rec := model.SessionRecord{
		Date:      now.UTC().Format(time.RFC3339),
		Duration:  duration,
		Type:      typ,
		SyncState: model.StatePending,
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	s.stats.SessionsHistory = append([]model.SessionRecord{rec}, s.stats.SessionsHistory...)
	if len(s.stats.SessionsHistory) > maxSessionHistory {
		s.stats.SessionsHistory = s.stats.SessionsHistory[:maxSessionHistory]
	}

	if typ == model.SessionWork {
		today := model.DateString(now)
		week := model.WeekNumber(now)

		if s.stats.LastSessionDate == today {
			s.stats.CompletedToday++
		} else {
			s.stats.CompletedToday = 1
		}
		if s.stats.LastWeekNumber == week && s.stats.LastSessionDate != "" {
			s.stats.CompletedThisWeek++
		} else {
			s.stats.CompletedThisWeek = 1
		}
		s.stats.CompletedSessions++
		s.stats.TotalFocusTime += duration
		s.stats.LastSessionDate = today
		s.stats.LastWeekNumber = week
	}

	if err := s.persist(); err != nil {
		return err
	}

	s.pushLocked(ctx, rec.Date)
	return nil
}

// ProcessQueue retries every queued session that is due. Returns how many
// sessions reached the server.
func (s *PomodoroStore) ProcessQueue(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	synced := 0
	for _, date := range s.queue.due(s.clock()) {
		if s.indexOf(date) < 0 {
			s.queue.remove(date)
			continue
		}
		if s.pushLocked(ctx, date) {
			synced++
		}
	}
	return synced
}

// Pull replaces the aggregate with server state and merges histories,
// keeping local sessions the server has not confirmed.
//
// Sessions carry no client ID, so the date string is the only merge key; a
// second session recorded within the same second as a synced one would be
// treated as already on the server.
func (s *PomodoroStore) Pull(ctx context.Context) error {
	serverStats, err := s.api.PomodoroStatistics(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pomodoro statistics: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	onServer := make(map[string]bool, len(serverStats.SessionsHistory))
	for _, rec := range serverStats.SessionsHistory {
		onServer[rec.Date] = true
	}

	merged := *serverStats
	var history []model.SessionRecord
	for _, rec := range s.stats.SessionsHistory {
		if rec.SyncState.Unsynced() && !onServer[rec.Date] {
			history = append(history, rec)
		}
	}
	history = append(history, serverStats.SessionsHistory...)
	if len(history) > maxSessionHistory {
		history = history[:maxSessionHistory]
	}
	merged.SessionsHistory = history
	s.stats = merged

	if err := s.cache.Remove(pomodoroCacheName); err != nil {
		s.logger.Printf("failed to clear pomodoro cache: %v", err)
	}
	return nil
}

// Sync drains the retry queue, then pulls.
func (s *PomodoroStore) Sync(ctx context.Context) error {
	s.ProcessQueue(ctx)
	return s.Pull(ctx)
}

func (s *PomodoroStore) pushLocked(ctx context.Context, date string) bool {
	idx := s.indexOf(date)
	if idx < 0 {
		return false
	}
	rec := s.stats.SessionsHistory[idx]

	err := s.api.CreateSession(ctx, rec)
	now := s.clock()
	if err != nil {
		s.stats.SessionsHistory[idx].SyncState = model.StateFailed
		if s.queue.has(date) {
			if !s.queue.fail(date, now) {
				s.logger.Printf("giving up on session %s after %d attempts: %v", date, maxPushAttempts, err)
			}
		} else {
			s.queue.enqueue(date, now)
			s.logger.Printf("failed to sync session %s, queued for retry: %v", date, err)
		}
		if perr := s.persist(); perr != nil {
			s.logger.Printf("failed to persist pomodoro state: %v", perr)
		}
		return false
	}

	s.stats.SessionsHistory[idx].SyncState = model.StateSynced
	s.queue.remove(date)
	if perr := s.persist(); perr != nil {
		s.logger.Printf("failed to persist pomodoro state: %v", perr)
	}
	return true
}

func (s *PomodoroStore) indexOf(date string) int {
	for i, rec := range s.stats.SessionsHistory {
		if rec.Date == date {
			return i
		}
	}
	return -1
}
