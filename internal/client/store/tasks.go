// Package store implements the client-side record stores: tasks, goals,
// pomodoro sessions, and activity statistics.
//
// Every mutation applies locally first and persists to the cache, then
// attempts a server push. Failed pushes mark the record failed and enqueue
// it for retry; a full pull replaces the collection with server state while
// preserving records the server has not yet confirmed.
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

const tasksCacheName = "tasks"

// TaskAPI is the server surface the task store pushes to and pulls from.
type TaskAPI interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, task model.Task) (int64, error)
	UpdateTask(ctx context.Context, task model.Task) error
	DeleteTask(ctx context.Context, clientID int64) error
}

// taskState is the cached-on-disk form of the store.
type taskState struct {
	Tasks  []model.Task `json:"tasks"`
	NextID int64        `json:"nextId"`
}

// TaskStore holds the local task collection.
type TaskStore struct {
	mu     sync.Mutex
	api    TaskAPI
	cache  *cache.Cache
	logger *log.Logger
	clock  func() time.Time

	tasks  []model.Task
	nextID int64
	queue  *retryQueue[int64]
}

// NewTaskStore creates a task store backed by api and c. Call Load before
// first use to restore cached state.
func NewTaskStore(api TaskAPI, c *cache.Cache, logger *log.Logger) *TaskStore {
	if logger == nil {
		logger = log.New(log.Writer(), "[tasks] ", log.LstdFlags)
	}
	return &TaskStore{
		api:    api,
		cache:  c,
		logger: logger,
		clock:  time.Now,
		nextID: 1,
		queue:  newRetryQueue[int64](),
	}
}

// Load restores the collection from the cache. Records that were unsynced
// when the cache was written re-enter the retry queue with a fresh attempt
// budget.
func (s *TaskStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state taskState
	found, err := s.cache.Load(tasksCacheName, &state)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	s.tasks = state.Tasks
	s.nextID = state.NextID
	if s.nextID < 1 {
		s.nextID = 1
	}
	now := s.clock()
	for _, t := range s.tasks {
		if t.SyncState.Unsynced() {
			s.queue.enqueue(t.ID, now)
		}
	}
	return nil
}

func (s *TaskStore) persist() error {
	return s.cache.Save(tasksCacheName, taskState{Tasks: s.tasks, NextID: s.nextID})
}

// List returns a copy of the collection, newest first.
func (s *TaskStore) List() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Get returns the task with the given client ID.
func (s *TaskStore) Get(id int64) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// PendingCount returns how many records still await a confirmed server write.
func (s *TaskStore) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.SyncState.Unsynced() {
			n++
		}
	}
	return n
}

// Add creates a task locally, persists it, then attempts a server push. The
// task is returned with its assigned client ID regardless of push outcome.
func (s *TaskStore) Add(ctx context.Context, task model.Task) (model.Task, error) {
	if err := task.Validate(); err != nil {
		return model.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task.ID = s.nextID
	s.nextID++
	task.SyncState = model.StatePending
	task.ServerID = 0
	s.tasks = append([]model.Task{task}, s.tasks...)

	if err := s.persist(); err != nil {
		return model.Task{}, err
	}

	s.pushLocked(ctx, task.ID)
	t, _ := s.getLocked(task.ID)
	return t, nil
}

// Update replaces the task with task.ID, persists, and pushes.
func (s *TaskStore) Update(ctx context.Context, task model.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(task.ID)
	if idx < 0 {
		return fmt.Errorf("task %d not found", task.ID)
	}
	task.ServerID = s.tasks[idx].ServerID
	task.SyncState = model.StatePending
	s.tasks[idx] = task

	if err := s.persist(); err != nil {
		return err
	}
	s.pushLocked(ctx, task.ID)
	return nil
}

// ToggleComplete flips the completed flag and reports the new value.
func (s *TaskStore) ToggleComplete(ctx context.Context, id int64) (bool, error) {
	return s.toggle(ctx, id, func(t *model.Task) bool {
		t.Completed = !t.Completed
		return t.Completed
	})
}

// ToggleFavorite flips the favorited flag and reports the new value.
func (s *TaskStore) ToggleFavorite(ctx context.Context, id int64) (bool, error) {
	return s.toggle(ctx, id, func(t *model.Task) bool {
		t.Favorited = !t.Favorited
		return t.Favorited
	})
}

func (s *TaskStore) toggle(ctx context.Context, id int64, flip func(*model.Task) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false, fmt.Errorf("task %d not found", id)
	}
	val := flip(&s.tasks[idx])
	s.tasks[idx].SyncState = model.StatePending

	if err := s.persist(); err != nil {
		return false, err
	}
	s.pushLocked(ctx, id)
	return val, nil
}

// Remove deletes the task locally and best-effort deletes it server-side.
// Records the server never saw need no server call.
func (s *TaskStore) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(ctx, id)
}

func (s *TaskStore) removeLocked(ctx context.Context, id int64) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("task %d not found", id)
	}
	synced := s.tasks[idx].ServerID != 0
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	s.queue.remove(id)

	if err := s.persist(); err != nil {
		return err
	}

	if synced {
		if err := s.api.DeleteTask(ctx, id); err != nil {
			s.logger.Printf("failed to delete task %d on server: %v", id, err)
		}
	}
	return nil
}

// ClearCompleted removes every completed task.
func (s *TaskStore) ClearCompleted(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for _, t := range s.tasks {
		if t.Completed {
			ids = append(ids, t.ID)
		}
	}
	for _, id := range ids {
		if err := s.removeLocked(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// ProcessQueue retries every queued record that is due. Returns how many
// records reached the server.
func (s *TaskStore) ProcessQueue(ctx context.Context) int {
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
	if synced > 0 {
		if err := s.persist(); err != nil {
			s.logger.Printf("failed to persist after queue drain: %v", err)
		}
	}
	return synced
}

// Pull replaces the collection with server state, keeping local records the
// server has not confirmed. The cache file is cleared afterwards; server
// data is authoritative from here and mutations re-persist as they happen.
func (s *TaskStore) Pull(ctx context.Context) error {
	serverTasks, err := s.api.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch tasks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	onServer := make(map[int64]bool, len(serverTasks))
	for _, t := range serverTasks {
		onServer[t.ID] = true
	}

	var merged []model.Task
	for _, t := range s.tasks {
		if t.SyncState.Unsynced() && !onServer[t.ID] {
			merged = append(merged, t)
		}
	}
	merged = append(merged, serverTasks...)
	s.tasks = merged

	s.nextID = 1
	for _, t := range s.tasks {
		if t.ID >= s.nextID {
			s.nextID = t.ID + 1
		}
	}

	if err := s.cache.Remove(tasksCacheName); err != nil {
		s.logger.Printf("failed to clear task cache: %v", err)
	}
	return nil
}

// Sync drains the retry queue, then pulls.
func (s *TaskStore) Sync(ctx context.Context) error {
	s.ProcessQueue(ctx)
	return s.Pull(ctx)
}

// pushLocked writes the record to the server and updates its sync state.
// Caller holds s.mu. Reports whether the push succeeded.
func (s *TaskStore) pushLocked(ctx context.Context, id int64) bool {
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	t := s.tasks[idx]

	var err error
	if t.ServerID == 0 {
		var serverID int64
		serverID, err = s.api.CreateTask(ctx, t)
		if err == nil {
			s.tasks[idx].ServerID = serverID
		}
	} else {
		err = s.api.UpdateTask(ctx, t)
	}

	now := s.clock()
	if err != nil {
		s.tasks[idx].SyncState = model.StateFailed
		if s.queue.has(id) {
			if !s.queue.fail(id, now) {
				s.logger.Printf("giving up on task %d after %d attempts: %v", id, maxPushAttempts, err)
			}
		} else {
			s.queue.enqueue(id, now)
			s.logger.Printf("failed to sync task %d, queued for retry: %v", id, err)
		}
		if perr := s.persist(); perr != nil {
			s.logger.Printf("failed to persist task state: %v", perr)
		}
		return false
	}

	s.tasks[idx].SyncState = model.StateSynced
	s.queue.remove(id)
	if perr := s.persist(); perr != nil {
		s.logger.Printf("failed to persist task state: %v", perr)
	}
	return true
}

func (s *TaskStore) indexOf(id int64) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *TaskStore) getLocked(id int64) (model.Task, bool) {
	idx := s.indexOf(id)
	if idx < 0 {
		return model.Task{}, false
	}
	return s.tasks[idx], true
}
