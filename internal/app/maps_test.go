package app

import (
	"testing"
	"time"

	"orchd/internal/config"
	"orchd/internal/schedule"
)

func TestMapSchedulerConfigDefaults(t *testing.T) {
	t.Parallel()
	got, err := mapSchedulerConfig(config.SchedulerConfig{Enabled: true})
	if err != nil {
		t.Fatalf("mapSchedulerConfig error: %v", err)
	}
	if got.PollInterval != time.Minute {
		t.Fatalf("PollInterval = %v, want 1m", got.PollInterval)
	}
	if got.WindowStartHour != 7 || got.WindowEndHour != 18 {
		t.Fatalf("window = [%d, %d), want [7, 18)", got.WindowStartHour, got.WindowEndHour)
	}
}

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	if _, enabled, err := mapStorageConfig(cfg); err != nil || enabled {
		t.Fatalf("empty driver: enabled=%v err=%v", enabled, err)
	}

	cfg.Storage = config.StorageConfig{Driver: "sqlite", Path: "./x.db", BusyTimeout: "2s"}
	st, enabled, err := mapStorageConfig(cfg)
	if err != nil || !enabled {
		t.Fatalf("sqlite: enabled=%v err=%v", enabled, err)
	}
	if st.BusyTimeout != 2*time.Second {
		t.Fatalf("BusyTimeout = %v", st.BusyTimeout)
	}

	cfg.Storage = config.StorageConfig{Driver: "sqlite"}
	if _, _, err := mapStorageConfig(cfg); err == nil {
		t.Fatal("sqlite without path should fail")
	}
}

func TestMapNames(t *testing.T) {
	t.Parallel()
	if _, ok := mapNames(nil).(schedule.EnglishNames); !ok {
		t.Fatal("nil locale should map to English names")
	}

	months := make([]string, 12)
	months[7] = "Agosto"
	n := mapNames(&config.LocaleConfig{Months: months})
	if got := n.Month(time.August); got != "Agosto" {
		t.Fatalf("Month(August) = %q", got)
	}
	if got := n.Weekday(time.Monday); got != "Monday" {
		t.Fatalf("Weekday fallback = %q", got)
	}
}
