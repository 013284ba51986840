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
	statsCacheName = "statistics"

	// maxActivityLogs caps the per-day activity entries, oldest dropped first.
	maxActivityLogs = 30
)

// StatsAPI is the server surface the statistics store pushes to and pulls
// from. Pushes are full-state overwrites.
type StatsAPI interface {
	GetStatistics(ctx context.Context) (*model.UserStatistics, error)
	SaveStatistics(ctx context.Context, stats *model.UserStatistics) error
}

// statsState is the cached-on-disk form of the store. PushPending marks
// local changes the server has not confirmed yet.
type statsState struct {
	Stats       model.UserStatistics `json:"stats"`
	PushPending bool                 `json:"pushPending"`
}

// StatsStore derives streaks, daily activity, and time-of-day counts from
// task completions.
type StatsStore struct {
	mu     sync.Mutex
	api    StatsAPI
	cache  *cache.Cache
	logger *log.Logger
	clock  func() time.Time

	stats       model.UserStatistics
	pushPending bool
}

// NewStatsStore creates a statistics store backed by api and c. Call Load
// before first use to restore cached state.
func NewStatsStore(api StatsAPI, c *cache.Cache, logger *log.Logger) *StatsStore {
	if logger == nil {
		logger = log.New(log.Writer(), "[stats] ", log.LstdFlags)
	}
	return &StatsStore{
		api:    api,
		cache:  c,
		logger: logger,
		clock:  time.Now,
		stats: model.UserStatistics{
			TimeOfDayStats: model.DefaultTimeOfDayStats(),
		},
	}
}

// Load restores the statistics from the cache.
func (s *StatsStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state statsState
	found, err := s.cache.Load(statsCacheName, &state)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	s.stats = state.Stats
	s.pushPending = state.PushPending
	if len(s.stats.TimeOfDayStats) == 0 {
		s.stats.TimeOfDayStats = model.DefaultTimeOfDayStats()
	}
	return nil
}

func (s *StatsStore) persist() error {
	return s.cache.Save(statsCacheName, statsState{Stats: s.stats, PushPending: s.pushPending})
}

// Stats returns a copy of the current statistics.
func (s *StatsStore) Stats() model.UserStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *StatsStore) copyLocked() model.UserStatistics {
	out := s.stats
	out.ActivityLogs = make([]model.ActivityLog, len(s.stats.ActivityLogs))
	copy(out.ActivityLogs, s.stats.ActivityLogs)
	out.TimeOfDayStats = make([]model.TimeOfDayStat, len(s.stats.TimeOfDayStats))
	copy(out.TimeOfDayStats, s.stats.TimeOfDayStats)
	return out
}

// RecordCompletion updates streaks, today's activity log entry, and the
// time-of-day bucket after a task is completed. completed and total are the
// current counts across the task collection.
func (s *StatsStore) RecordCompletion(ctx context.Context, completed, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	today := model.DateString(now)
	yesterday := model.DateString(now.AddDate(0, 0, -1))

	switch s.stats.LastActiveDate {
	case today:
		// Streak already counted for today.
	case yesterday:
		s.stats.CurrentStreak++
	default:
		s.stats.CurrentStreak = 1
	}
	s.stats.LastActiveDate = today
	if s.stats.CurrentStreak > s.stats.LongestStreak {
		s.stats.LongestStreak = s.stats.CurrentStreak
	}

	s.upsertActivityLocked(today, completed, total)
	s.bumpTimeBucketLocked(now)

	s.pushPending = true
	if err := s.persist(); err != nil {
		return err
	}

	s.pushLocked(ctx)
	return nil
}

// upsertActivityLocked records today's completion counts, capping the log at
// maxActivityLogs entries by dropping the oldest.
func (s *StatsStore) upsertActivityLocked(date string, completed, total int) {
	for i := range s.stats.ActivityLogs {
		if s.stats.ActivityLogs[i].Date == date {
			s.stats.ActivityLogs[i].CompletedTasks = completed
			s.stats.ActivityLogs[i].TotalTasks = total
			return
		}
	}
	s.stats.ActivityLogs = append(s.stats.ActivityLogs, model.ActivityLog{
		Date:           date,
		CompletedTasks: completed,
		TotalTasks:     total,
	})
	if len(s.stats.ActivityLogs) > maxActivityLogs {
		s.stats.ActivityLogs = s.stats.ActivityLogs[len(s.stats.ActivityLogs)-maxActivityLogs:]
	}
}

// bumpTimeBucketLocked increments the bucket for now's hour. Morning is
// 05:00-11:59, Afternoon 12:00-16:59, Evening 17:00-21:59, Night the rest.
func (s *StatsStore) bumpTimeBucketLocked(now time.Time) {
	name := TimeBucket(now.Hour())
	for i := range s.stats.TimeOfDayStats {
		if s.stats.TimeOfDayStats[i].Time == name {
			s.stats.TimeOfDayStats[i].Completed++
			return
		}
	}
	s.stats.TimeOfDayStats = append(s.stats.TimeOfDayStats, model.TimeOfDayStat{Time: name, Completed: 1})
}

// TimeBucket maps an hour of day to its bucket name.
func TimeBucket(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "Morning"
	case hour >= 12 && hour < 17:
		return "Afternoon"
	case hour >= 17 && hour < 22:
		return "Evening"
	default:
		return "Night"
	}
}

// Push sends the full local state to the server.
func (s *StatsStore) Push(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pushLocked(ctx) {
		return fmt.Errorf("failed to push statistics")
	}
	return nil
}

func (s *StatsStore) pushLocked(ctx context.Context) bool {
	stats := s.copyLocked()
	if err := s.api.SaveStatistics(ctx, &stats); err != nil {
		s.logger.Printf("failed to push statistics, will retry on next sync: %v", err)
		return false
	}
	s.pushPending = false
	if err := s.persist(); err != nil {
		s.logger.Printf("failed to persist statistics state: %v", err)
	}
	return true
}

// Pull replaces local state with server state. Local changes awaiting a push
// are sent first so they are not overwritten.
func (s *StatsStore) Pull(ctx context.Context) error {
	s.mu.Lock()
	if s.pushPending {
		s.pushLocked(ctx)
	}
	s.mu.Unlock()

	serverStats, err := s.api.GetStatistics(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch statistics: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = *serverStats
	if len(s.stats.TimeOfDayStats) == 0 {
		s.stats.TimeOfDayStats = model.DefaultTimeOfDayStats()
	}
	s.pushPending = false

	if err := s.cache.Remove(statsCacheName); err != nil {
		s.logger.Printf("failed to clear statistics cache: %v", err)
	}
	return nil
}

// Sync pushes pending changes, then pulls.
func (s *StatsStore) Sync(ctx context.Context) error {
	return s.Pull(ctx)
}

// WeeklyProgress returns the completion percentage across the activity log
// entries falling in now's ISO week.
func (s *StatsStore) WeeklyProgress(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	year, week := now.ISOWeek()
	completed, total := s.weekTotalsLocked(year, week)
	if total == 0 {
		return 0
	}
	return completed * 100 / total
}

// WeekOverWeekChange returns this week's completed count minus last week's.
func (s *StatsStore) WeekOverWeekChange(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	thisYear, thisWeek := now.ISOWeek()
	lastYear, lastWeek := now.AddDate(0, 0, -7).ISOWeek()
	thisCompleted, _ := s.weekTotalsLocked(thisYear, thisWeek)
	lastCompleted, _ := s.weekTotalsLocked(lastYear, lastWeek)
	return thisCompleted - lastCompleted
}

func (s *StatsStore) weekTotalsLocked(year, week int) (completed, total int) {
	for _, entry := range s.stats.ActivityLogs {
		t, err := time.Parse("2006-01-02", entry.Date)
		if err != nil {
			continue
		}
		y, w := t.ISOWeek()
		if y == year && w == week {
			completed += entry.CompletedTasks
			total += entry.TotalTasks
		}
	}
	return completed, total
}

// MostProductiveTime returns the time-of-day bucket with the highest
// completion count, or "" when nothing has been completed.
func (s *StatsStore) MostProductiveTime() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	best := ""
	bestCount := 0
	for _, bucket := range s.stats.TimeOfDayStats {
		if bucket.Completed > bestCount {
			best = bucket.Time
			bestCount = bucket.Completed
		}
	}
	return best
}

// MostProductiveDay returns the weekday with the highest total completions
// across the activity log, or "" when the log is empty.
func (s *StatsStore) MostProductiveDay() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[time.Weekday]int)
	for _, entry := range s.stats.ActivityLogs {
		t, err := time.Parse("2006-01-02", entry.Date)
		if err != nil {
			continue
		}
		counts[t.Weekday()] += entry.CompletedTasks
	}

	best := ""
	bestCount := 0
	for day, count := range counts {
		if count > bestCount {
			best = day.String()
			bestCount = count
		}
	}
	return best
}
