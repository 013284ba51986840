// Package pomodoro implements the interval timer: work sessions alternate
// with short breaks, with a long break after a configurable number of work
// sessions.
package pomodoro

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Phase identifies which interval the timer is in.
type Phase string

const (
	PhaseWork       Phase = "work"
	PhaseShortBreak Phase = "short_break"
	PhaseLongBreak  Phase = "long_break"
)

// State identifies whether the timer is counting down.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// CompleteFunc is called when an interval finishes, with the phase that
// completed and its full duration.
type CompleteFunc func(phase Phase, duration time.Duration)

// Engine is the timer state machine. Time advances only through Tick, so
// callers control the clock; Run drives Tick from a real ticker.
type Engine struct {
	mu       sync.Mutex
	settings Settings

	phase     Phase
	state     State
	remaining time.Duration

	// workCount tracks completed work sessions since the last long break.
	workCount  int
	onComplete CompleteFunc
}

// NewEngine creates an idle engine positioned at the start of a work session.
func NewEngine(settings Settings, onComplete CompleteFunc) *Engine {
	return &Engine{
		settings:   settings,
		phase:      PhaseWork,
		state:      StateIdle,
		remaining:  settings.WorkDuration,
		onComplete: onComplete,
	}
}

// Phase returns the current interval kind.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// State returns whether the timer is idle, running, or paused.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Remaining returns the time left in the current interval.
func (e *Engine) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}

// Start begins counting down the current interval.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateRunning {
		return fmt.Errorf("timer already running")
	}
	e.state = StateRunning
	return nil
}

// Pause stops the countdown without losing progress.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRunning {
		return fmt.Errorf("timer is not running")
	}
	e.state = StatePaused
	return nil
}

// Reset abandons the current interval and returns to an idle work session.
// The work session counter is preserved so the long-break cadence holds.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.phase = PhaseWork
	e.state = StateIdle
	e.remaining = e.settings.WorkDuration
}

// Skip abandons the current interval and moves to the next one without
// recording a completion.
func (e *Engine) Skip() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advanceLocked(false)
}

// Tick advances the countdown by d. Completing an interval fires the
// completion callback and moves to the next phase; the timer keeps running
// into the new interval.
func (e *Engine) Tick(d time.Duration) {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return
	}

	e.remaining -= d
	if e.remaining > 0 {
		e.mu.Unlock()
		return
	}

	finished := e.phase
	duration := e.durationFor(finished)
	e.advanceLocked(true)
	callback := e.onComplete
	e.mu.Unlock()

	// Callback runs outside the lock: it typically records the session
	// through a store, which may call back into engine accessors.
	if callback != nil {
		callback(finished, duration)
	}
}

// advanceLocked moves to the next phase. completed marks whether the current
// interval ran to its end, which is what counts toward the long-break cycle.
func (e *Engine) advanceLocked(completed bool) {
	switch e.phase {
	case PhaseWork:
		if completed {
			e.workCount++
		}
		if e.workCount > 0 && e.workCount%e.settings.SessionsBeforeLongBreak == 0 {
			e.phase = PhaseLongBreak
		} else {
			e.phase = PhaseShortBreak
		}
	default:
		e.phase = PhaseWork
	}
	e.remaining = e.durationFor(e.phase)
	if e.state == StateRunning && !e.settings.AutoStartNext {
		e.state = StateIdle
	}
}

func (e *Engine) durationFor(phase Phase) time.Duration {
	switch phase {
	case PhaseShortBreak:
		return e.settings.ShortBreakDuration
	case PhaseLongBreak:
		return e.settings.LongBreakDuration
	default:
		return e.settings.WorkDuration
	}
}

// SessionType maps a phase to the record type stored for it.
func (p Phase) SessionType() string {
	return string(p)
}

// Run drives the engine from a wall-clock ticker until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(time.Second)
		}
	}
}
