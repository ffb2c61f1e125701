package app

import (
	"fmt"
	"strings"
	"time"

	"orchd/internal/config"
	"orchd/internal/dispatch"
	"orchd/internal/schedule"
	"orchd/internal/scheduler"
	"orchd/internal/storage"
	logx "orchd/pkg/logx"
)

func mapLoggingConfig(lc config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
		Store: logx.StoreConfig{
			Enabled:    lc.Store.Enabled,
			MinLevel:   lc.Store.MinLevel,
			RatePerSec: lc.Store.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapSchedulerConfig(sc config.SchedulerConfig) (scheduler.Config, error) {
	poll, err := config.ParseDurationOrDefault("scheduler.poll_interval", sc.PollInterval, time.Minute)
	if err != nil {
		return scheduler.Config{}, err
	}
	start, end := sc.WindowHours()
	return scheduler.Config{
		Enabled:         sc.Enabled,
		PollInterval:    poll,
		WindowStartHour: start,
		WindowEndHour:   end,
		Timezone:        sc.Timezone,
		LogToStore:      sc.LogToStore,
	}, nil
}

func mapDispatchConfig(dc config.DispatchConfig) (dispatch.Config, error) {
	grace, err := config.ParseDurationField("dispatch.robot_grace", dc.RobotGrace)
	if err != nil {
		return dispatch.Config{}, err
	}
	return dispatch.Config{
		PythonBin:  dc.PythonBin,
		RobotGrace: grace,
	}, nil
}

func mapNames(lc *config.LocaleConfig) schedule.Names {
	if lc == nil || (len(lc.Months) == 0 && len(lc.Weekdays) == 0) {
		return schedule.EnglishNames{}
	}
	var t schedule.TableNames
	for i, m := range lc.Months {
		if i < len(t.Months) {
			t.Months[i] = strings.TrimSpace(m)
		}
	}
	for i, d := range lc.Weekdays {
		if i < len(t.Weekdays) {
			t.Weekdays[i] = strings.TrimSpace(d)
		}
	}
	return t
}
