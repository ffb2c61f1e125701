package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	yaml "go.yaml.in/yaml/v3"

	"orchd/internal/schedule"
	"orchd/internal/storage"
)

type seedFile struct {
	Processes []seedProcess `yaml:"processes"`
}

type seedProcess struct {
	Name         string `yaml:"name"`
	Tool         string `yaml:"tool"`
	Path         string `yaml:"path"`
	Year         string `yaml:"year"`
	MonthsOfYear string `yaml:"months_of_year"`
	WeeksOfMonth string `yaml:"weeks_of_month"`
	DaysOfWeek   string `yaml:"days_of_week"`
	Day          string `yaml:"day"`
	Hour         string `yaml:"hour"`
	Minute       string `yaml:"minute"`
	Enabled      *bool  `yaml:"enabled"`
}

// seedProcesses imports process definitions into the store. Omitted
// schedule fields default to the wildcard, matching the store's own column
// defaults, so a minimal seed entry still needs an explicit hour/minute to
// avoid firing every minute.
func seedProcesses(ctx context.Context, store storage.Store, path string) (int, error) {
	if store == nil {
		return 0, errors.New("seeding requires a storage driver")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var f seedFile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}

	for i, sp := range f.Processes {
		p, err := sp.toProcess()
		if err != nil {
			return 0, fmt.Errorf("process %d: %w", i+1, err)
		}
		if _, err := store.AddProcess(ctx, p); err != nil {
			return 0, fmt.Errorf("process %d (%s): %w", i+1, p.Name, err)
		}
	}
	return len(f.Processes), nil
}

func (sp seedProcess) toProcess() (storage.Process, error) {
	name := strings.TrimSpace(sp.Name)
	tool := strings.TrimSpace(sp.Tool)
	path := strings.TrimSpace(sp.Path)
	if name == "" || tool == "" || path == "" {
		return storage.Process{}, errors.New("name, tool and path are required")
	}
	enabled := true
	if sp.Enabled != nil {
		enabled = *sp.Enabled
	}
	return storage.Process{
		Enabled: enabled,
		Entry: schedule.Entry{
			Name:         name,
			Tool:         tool,
			Path:         path,
			Year:         orWildcard(sp.Year),
			MonthsOfYear: orWildcard(sp.MonthsOfYear),
			WeeksOfMonth: orWildcard(sp.WeeksOfMonth),
			DaysOfWeek:   orWildcard(sp.DaysOfWeek),
			Day:          orWildcard(sp.Day),
			Hour:         orWildcard(sp.Hour),
			Minute:       orWildcard(sp.Minute),
		},
	}, nil
}

func orWildcard(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return schedule.Wildcard
	}
	return v
}
