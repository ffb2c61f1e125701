package config

import (
	"reflect"
	"strings"

	logx "orchd/pkg/logx"
)

// SummarizeChange returns a compact list of changed sections plus safe
// structured attrs for logging. The app's reload loop uses the section list
// to decide which services need a re-apply.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.store_enabled", newCfg.Logging.Store.Enabled))
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(newCfg.Storage.Driver)),
			logx.String("storage.path", strings.TrimSpace(newCfg.Storage.Path)))
	}

	if !schedulerEqual(oldCfg.Scheduler, newCfg.Scheduler) {
		changed = append(changed, "scheduler")
		start, end := newCfg.Scheduler.WindowHours()
		attrs = append(attrs,
			logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
			logx.String("scheduler.poll_interval", strings.TrimSpace(newCfg.Scheduler.PollInterval)),
			logx.Int("scheduler.window_start", start),
			logx.Int("scheduler.window_end", end),
			logx.String("scheduler.timezone", strings.TrimSpace(newCfg.Scheduler.Timezone)))
	}

	if oldCfg.Dispatch != newCfg.Dispatch {
		changed = append(changed, "dispatch")
		attrs = append(attrs,
			logx.Bool("dispatch.python_bin_set", strings.TrimSpace(newCfg.Dispatch.PythonBin) != ""),
			logx.String("dispatch.robot_grace", strings.TrimSpace(newCfg.Dispatch.RobotGrace)))
	}

	if !localeEqual(oldCfg.Locale, newCfg.Locale) {
		changed = append(changed, "locale")
	}

	return changed, attrs
}

func schedulerEqual(a, b SchedulerConfig) bool {
	as, ae := a.WindowHours()
	bs, be := b.WindowHours()
	return a.Enabled == b.Enabled &&
		strings.TrimSpace(a.PollInterval) == strings.TrimSpace(b.PollInterval) &&
		as == bs && ae == be &&
		strings.TrimSpace(a.Timezone) == strings.TrimSpace(b.Timezone) &&
		a.LogToStore == b.LogToStore
}

func localeEqual(a, b *LocaleConfig) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return reflect.DeepEqual(a.Months, b.Months) && reflect.DeepEqual(a.Weekdays, b.Weekdays)
}
