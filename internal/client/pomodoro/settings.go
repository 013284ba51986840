package pomodoro

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings configures the interval durations and cadence.
type Settings struct {
	WorkDuration            time.Duration `yaml:"work"`
	ShortBreakDuration      time.Duration `yaml:"shortBreak"`
	LongBreakDuration       time.Duration `yaml:"longBreak"`
	SessionsBeforeLongBreak int           `yaml:"sessionsBeforeLongBreak"`

	// AutoStartNext keeps the timer running into the next interval instead
	// of stopping at each boundary.
	AutoStartNext bool `yaml:"autoStartNext"`
}

// DefaultSettings returns the classic 25/5/15 configuration.
func DefaultSettings() Settings {
	return Settings{
		WorkDuration:            25 * time.Minute,
		ShortBreakDuration:      5 * time.Minute,
		LongBreakDuration:       15 * time.Minute,
		SessionsBeforeLongBreak: 4,
	}
}

// Validate checks the settings are usable.
func (s *Settings) Validate() error {
	if s.WorkDuration <= 0 {
		return fmt.Errorf("work duration must be positive")
	}
	if s.ShortBreakDuration <= 0 || s.LongBreakDuration <= 0 {
		return fmt.Errorf("break durations must be positive")
	}
	if s.SessionsBeforeLongBreak < 1 {
		return fmt.Errorf("sessionsBeforeLongBreak must be at least 1")
	}
	return nil
}

// LoadSettings reads settings from the YAML file at path, falling back to
// defaults when the file does not exist.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// SaveSettings writes settings as YAML to path, creating parent directories
// as needed.
func SaveSettings(path string, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
