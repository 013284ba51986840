package pomodoro

import (
	"testing"
	"time"
)

func testSettings() Settings {
	return Settings{
		WorkDuration:            25 * time.Minute,
		ShortBreakDuration:      5 * time.Minute,
		LongBreakDuration:       15 * time.Minute,
		SessionsBeforeLongBreak: 4,
		AutoStartNext:           true,
	}
}

func TestEngineCompletesWorkSession(t *testing.T) {
	var completed []Phase
	e := NewEngine(testSettings(), func(phase Phase, duration time.Duration) {
		completed = append(completed, phase)
		if phase == PhaseWork && duration != 25*time.Minute {
			t.Errorf("work duration wrong: %s", duration)
		}
	})

	if e.State() != StateIdle || e.Phase() != PhaseWork {
		t.Fatalf("new engine should be idle at work, got %s/%s", e.State(), e.Phase())
	}

	if err := e.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	e.Tick(25 * time.Minute)

	if len(completed) != 1 || completed[0] != PhaseWork {
		t.Fatalf("expected one completed work session, got %v", completed)
	}
	if e.Phase() != PhaseShortBreak {
		t.Errorf("expected short break next, got %s", e.Phase())
	}
	if e.Remaining() != 5*time.Minute {
		t.Errorf("expected 5m remaining, got %s", e.Remaining())
	}
}

func TestEngineLongBreakCadence(t *testing.T) {
	var completed []Phase
	e := NewEngine(testSettings(), func(phase Phase, duration time.Duration) {
		completed = append(completed, phase)
	})
	e.Start()

	// Run four full work/break cycles; the fourth work session earns the
	// long break.
	for i := 0; i < 4; i++ {
		if e.Phase() != PhaseWork {
			t.Fatalf("cycle %d: expected work, got %s", i, e.Phase())
		}
		e.Tick(25 * time.Minute)
		if i < 3 {
			if e.Phase() != PhaseShortBreak {
				t.Fatalf("cycle %d: expected short break, got %s", i, e.Phase())
			}
			e.Tick(5 * time.Minute)
		}
	}

	if e.Phase() != PhaseLongBreak {
		t.Errorf("fourth session should lead to a long break, got %s", e.Phase())
	}

	workCount := 0
	for _, p := range completed {
		if p == PhaseWork {
			workCount++
		}
	}
	if workCount != 4 {
		t.Errorf("expected 4 completed work sessions, got %d", workCount)
	}
}

func TestEnginePauseAndReset(t *testing.T) {
	e := NewEngine(testSettings(), nil)
	e.Start()
	e.Tick(10 * time.Minute)

	if err := e.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	remaining := e.Remaining()
	e.Tick(5 * time.Minute)
	if e.Remaining() != remaining {
		t.Error("paused engine must not advance")
	}

	if err := e.Pause(); err == nil {
		t.Error("pausing a paused engine should fail")
	}

	e.Reset()
	if e.State() != StateIdle || e.Remaining() != 25*time.Minute {
		t.Errorf("reset should return to a fresh work session, got %s/%s", e.State(), e.Remaining())
	}
}

func TestEngineSkipDoesNotRecord(t *testing.T) {
	recorded := 0
	e := NewEngine(testSettings(), func(Phase, time.Duration) { recorded++ })
	e.Start()

	e.Skip()
	if recorded != 0 {
		t.Errorf("skip must not record a session, got %d", recorded)
	}
	if e.Phase() != PhaseShortBreak {
		t.Errorf("skip should advance to the break, got %s", e.Phase())
	}

	// Skipped work sessions do not count toward the long break cadence.
	e.Skip()
	if e.Phase() != PhaseWork {
		t.Errorf("skipping a break returns to work, got %s", e.Phase())
	}
}

func TestEngineStopsAtBoundaryWithoutAutoStart(t *testing.T) {
	settings := testSettings()
	settings.AutoStartNext = false
	e := NewEngine(settings, nil)
	e.Start()
	e.Tick(25 * time.Minute)

	if e.State() != StateIdle {
		t.Errorf("engine should idle at the boundary, got %s", e.State())
	}
	if e.Phase() != PhaseShortBreak {
		t.Errorf("next phase should be queued, got %s", e.Phase())
	}
}

func TestSettingsValidation(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}

	s.SessionsBeforeLongBreak = 0
	if err := s.Validate(); err == nil {
		t.Error("zero cadence should fail validation")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	path := t.TempDir() + "/pomodoro.yaml"

	// Missing file falls back to defaults.
	loaded, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if loaded != DefaultSettings() {
		t.Errorf("expected defaults, got %+v", loaded)
	}

	custom := Settings{
		WorkDuration:            50 * time.Minute,
		ShortBreakDuration:      10 * time.Minute,
		LongBreakDuration:       30 * time.Minute,
		SessionsBeforeLongBreak: 2,
		AutoStartNext:           true,
	}
	if err := SaveSettings(path, custom); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	loaded, err = LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if loaded != custom {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}
