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

const goalsCacheName = "goals"

// GoalAPI is the server surface the goal store pushes to and pulls from.
type GoalAPI interface {
	ListGoals(ctx context.Context) ([]model.Goal, error)
	CreateGoal(ctx context.Context, goal model.Goal) (int64, error)
	UpdateGoal(ctx context.Context, goal model.Goal) error
	DeleteGoal(ctx context.Context, clientID int64) error
}

type goalState struct {
	Goals  []model.Goal `json:"goals"`
	NextID int64        `json:"nextId"`
}

// GoalStore holds the local goal collection.
type GoalStore struct {
	mu     sync.Mutex
	api    GoalAPI
	cache  *cache.Cache
	logger *log.Logger
	clock  func() time.Time

	goals  []model.Goal
	nextID int64
	queue  *retryQueue[int64]
}

// NewGoalStore creates a goal store backed by api and c. Call Load before
// first use to restore cached state.
func NewGoalStore(api GoalAPI, c *cache.Cache, logger *log.Logger) *GoalStore {
	if logger == nil {
		logger = log.New(log.Writer(), "[goals] ", log.LstdFlags)
	}
	return &GoalStore{
		api:    api,
		cache:  c,
		logger: logger,
		clock:  time.Now,
		nextID: 1,
		queue:  newRetryQueue[int64](),
	}
}

// Load restores the collection from the cache and re-queues unsynced records.
func (s *GoalStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state goalState
	found, err := s.cache.Load(goalsCacheName, &state)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	s.goals = state.Goals
	s.nextID = state.NextID
	if s.nextID < 1 {
		s.nextID = 1
	}
	now := s.clock()
	for _, g := range s.goals {
		if g.SyncState.Unsynced() {
			s.queue.enqueue(g.ID, now)
		}
	}
	return nil
}

func (s *GoalStore) persist() error {
	return s.cache.Save(goalsCacheName, goalState{Goals: s.goals, NextID: s.nextID})
}

// List returns a copy of the collection, newest first.
func (s *GoalStore) List() []model.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Goal, len(s.goals))
	copy(out, s.goals)
	return out
}

// ByCategory returns the goals in the given category, newest first.
func (s *GoalStore) ByCategory(cat model.GoalCategory) []model.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Goal
	for _, g := range s.goals {
		if g.Category == cat {
			out = append(out, g)
		}
	}
	return out
}

// PendingCount returns how many records still await a confirmed server write.
func (s *GoalStore) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, g := range s.goals {
		if g.SyncState.Unsynced() {
			n++
		}
	}
	return n
}

// Add creates a goal locally, persists it, then attempts a server push.
func (s *GoalStore) Add(ctx context.Context, goal model.Goal) (model.Goal, error) {
	if err := goal.Validate(); err != nil {
		return model.Goal{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	goal.ID = s.nextID
	s.nextID++
	goal.SyncState = model.StatePending
	goal.ServerID = 0
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = s.clock().UTC()
	}
	s.goals = append([]model.Goal{goal}, s.goals...)

	if err := s.persist(); err != nil {
		return model.Goal{}, err
	}

	s.pushLocked(ctx, goal.ID)
	idx := s.indexOf(goal.ID)
	return s.goals[idx], nil
}

// Update replaces the goal with goal.ID, persists, and pushes.
func (s *GoalStore) Update(ctx context.Context, goal model.Goal) error {
	if err := goal.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(goal.ID)
	if idx < 0 {
		return fmt.Errorf("goal %d not found", goal.ID)
	}
	goal.ServerID = s.goals[idx].ServerID
	goal.CreatedAt = s.goals[idx].CreatedAt
	goal.SyncState = model.StatePending
	s.goals[idx] = goal

	if err := s.persist(); err != nil {
		return err
	}
	s.pushLocked(ctx, goal.ID)
	return nil
}

// ToggleComplete flips the completed flag and reports the new value.
func (s *GoalStore) ToggleComplete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false, fmt.Errorf("goal %d not found", id)
	}
	s.goals[idx].Completed = !s.goals[idx].Completed
	s.goals[idx].SyncState = model.StatePending

	if err := s.persist(); err != nil {
		return false, err
	}
	s.pushLocked(ctx, id)
	return s.goals[idx].Completed, nil
}

// Remove deletes the goal locally and best-effort deletes it server-side.
func (s *GoalStore) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("goal %d not found", id)
	}
	synced := s.goals[idx].ServerID != 0
	s.goals = append(s.goals[:idx], s.goals[idx+1:]...)
	s.queue.remove(id)

	if err := s.persist(); err != nil {
		return err
	}

	if synced {
		if err := s.api.DeleteGoal(ctx, id); err != nil {
			s.logger.Printf("failed to delete goal %d on server: %v", id, err)
		}
	}
	return nil
}

// ProcessQueue retries every queued record that is due. Returns how many
// records reached the server.
func (s *GoalStore) ProcessQueue(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	synced := 0
	for _, id := range s.queue.due(s.clock()) {
		if s.indexOf(id) < 0 {
			s.queue.remove(id)
			continue
		}
		if s.pushLocked(ctx, id) {
			synced++
		}
	}
	return synced
}

// Pull replaces the collection with server state, keeping local records the
// server has not confirmed, then clears the cache file.
func (s *GoalStore) Pull(ctx context.Context) error {
	serverGoals, err := s.api.ListGoals(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch goals: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	onServer := make(map[int64]bool, len(serverGoals))
	for _, g := range serverGoals {
		onServer[g.ID] = true
	}

	var merged []model.Goal
	for _, g := range s.goals {
		if g.SyncState.Unsynced() && !onServer[g.ID] {
			merged = append(merged, g)
		}
	}
	merged = append(merged, serverGoals...)
	s.goals = merged

	s.nextID = 1
	for _, g := range s.goals {
		if g.ID >= s.nextID {
			s.nextID = g.ID + 1
		}
	}

	if err := s.cache.Remove(goalsCacheName); err != nil {
		s.logger.Printf("failed to clear goal cache: %v", err)
	}
	return nil
}

// Sync drains the retry queue, then pulls.
func (s *GoalStore) Sync(ctx context.Context) error {
	s.ProcessQueue(ctx)
	return s.Pull(ctx)
}

func (s *GoalStore) pushLocked(ctx context.Context, id int64) bool {
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	g := s.goals[idx]

	var err error
	if g.ServerID == 0 {
		var serverID int64
		serverID, err = s.api.CreateGoal(ctx, g)
		if err == nil {
			s.goals[idx].ServerID = serverID
		}
	} else {
		err = s.api.UpdateGoal(ctx, g)
	}

	now := s.clock()
	if err != nil {
		s.goals[idx].SyncState = model.StateFailed
		if s.queue.has(id) {
			if !s.queue.fail(id, now) {
				s.logger.Printf("giving up on goal %d after %d attempts: %v", id, maxPushAttempts, err)
			}
		} else {
			s.queue.enqueue(id, now)
			s.logger.Printf("failed to sync goal %d, queued for retry: %v", id, err)
		}
		if perr := s.persist(); perr != nil {
			s.logger.Printf("failed to persist goal state: %v", perr)
		}
		return false
	}

	s.goals[idx].SyncState = model.StateSynced
	s.queue.remove(id)
	if perr := s.persist(); perr != nil {
		s.logger.Printf("failed to persist goal state: %v", perr)
	}
	return true
}

func (s *GoalStore) indexOf(id int64) int {
	for i, g := range s.goals {
		if g.ID == id {
			return i
		}
	}
	return -1
}
