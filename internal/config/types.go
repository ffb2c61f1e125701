package config

import (
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Dispatch  DispatchConfig  `json:"dispatch,omitempty"`
	Locale    *LocaleConfig   `json:"locale,omitempty"`
}

type LoggingConfig struct {
	Level   string       `json:"level"`
	Console bool         `json:"console"`
	File    LoggingFile  `json:"file"`
	Store   LoggingStore `json:"store"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingStore routes WARN+ daemon log lines into the events table.
type LoggingStore struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig selects the process/event store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./orchd.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// SchedulerConfig controls the polling loop.
//
// All durations are Go duration strings (e.g. "30s", "1m").
type SchedulerConfig struct {
	Enabled bool `json:"enabled"`

	// PollInterval between schedule scans. Default "1m". Values above one
	// minute can skip due minutes entirely.
	PollInterval string `json:"poll_interval,omitempty"`

	// Operating window hours [start, end). Defaults 7 and 18.
	WindowStartHour *int `json:"window_start_hour,omitempty"`
	WindowEndHour   *int `json:"window_end_hour,omitempty"`

	// Timezone the window and snapshots are evaluated in ("America/Sao_Paulo").
	// Empty means the host timezone.
	Timezone string `json:"timezone,omitempty"`

	// LogToStore appends an event row for every enqueue.
	LogToStore bool `json:"log_to_store,omitempty"`
}

// DispatchConfig controls execution.
type DispatchConfig struct {
	// PythonBin launches .py/.pyw targets. Default "python" from PATH.
	PythonBin string `json:"python_bin,omitempty"`

	// RobotGrace holds the execution slot after a robot run exits.
	// Go duration string; default "20s".
	RobotGrace string `json:"robot_grace,omitempty"`
}

// LocaleConfig supplies the month/weekday vocabulary schedule entries are
// written in. Omitted names fall back to English. Months start at January,
// weekdays at Sunday.
type LocaleConfig struct {
	Months   []string `json:"months,omitempty"`
	Weekdays []string `json:"weekdays,omitempty"`
}

// Validate rejects configs that cannot be applied. Used directly at startup
// and as the watch validator, so a bad edit never reaches the services.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if _, err := ParseDurationField("scheduler.poll_interval", cfg.Scheduler.PollInterval); err != nil {
		return err
	}
	if _, err := ParseDurationField("dispatch.robot_grace", cfg.Dispatch.RobotGrace); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
		return err
	}

	start, end := windowHours(cfg.Scheduler)
	if start < 0 || start > 23 {
		return fmt.Errorf("scheduler.window_start_hour: %d out of range 0..23", start)
	}
	if end < 1 || end > 24 {
		return fmt.Errorf("scheduler.window_end_hour: %d out of range 1..24", end)
	}
	if start >= end {
		return fmt.Errorf("scheduler window: start %d must be before end %d", start, end)
	}

	switch d := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)); d {
	case "", "none", "file", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", d)
	}
	if cfg.Locale != nil {
		if n := len(cfg.Locale.Months); n != 0 && n != 12 {
			return fmt.Errorf("locale.months: need 12 names, got %d", n)
		}
		if n := len(cfg.Locale.Weekdays); n != 0 && n != 7 {
			return fmt.Errorf("locale.weekdays: need 7 names, got %d", n)
		}
	}
	return nil
}

func windowHours(sc SchedulerConfig) (int, int) {
	start, end := 7, 18
	if sc.WindowStartHour != nil {
		start = *sc.WindowStartHour
	}
	if sc.WindowEndHour != nil {
		end = *sc.WindowEndHour
	}
	return start, end
}

// WindowHours resolves the configured operating window with defaults.
func (sc SchedulerConfig) WindowHours() (start, end int) {
	return windowHours(sc)
}
