// Package config provides configuration loading and validation for tempo.
// It supports TOML configuration files with environment variable expansion,
// default values, and validation that reports every problem at once.
//
// Configuration structure:
//   - [logging]: Logging level, format, and output
//   - [scheduler]: Run mode, timezone, polling, replay window, jobs file
//   - [dispatcher]: Event queue capacity and handler workers
//   - [metrics]: Prometheus namespace and listen address
//   - [[jobs]]: Job definitions
//
// Jobs may also be kept in a separate YAML file (scheduler.jobs_file)
// which can be watched and reloaded while the scheduler runs.
//
// Environment variables:
// Environment variables can be referenced using ${VAR} or ${VAR:default} syntax.
// For example: jobs_file = "${TEMPO_JOBS:~/.tempo/jobs.yaml}"
package config

import (
	"time"

	"github.com/aatumaykin/tempo/internal/clock"
	"github.com/cockroachdb/errors"
)

// Config represents the main application configuration.
type Config struct {
	Logging    LoggingConfig    `toml:"logging"`
	Scheduler  SchedulerConfig  `toml:"scheduler"`
	Dispatcher DispatcherConfig `toml:"dispatcher"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Jobs       []JobConfig      `toml:"jobs"`
}

// LoggingConfig представляет конфигурацию логирования
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// SchedulerConfig представляет конфигурацию планировщика
type SchedulerConfig struct {
	Mode          string `toml:"mode"`
	Timezone      string `toml:"timezone"`
	PollInterval  string `toml:"poll_interval"`
	Start         string `toml:"start"`
	End           string `toml:"end"`
	JobsFile      string `toml:"jobs_file"`
	WatchJobsFile bool   `toml:"watch_jobs_file"`
	Heartbeat     bool   `toml:"heartbeat"`
}

// DispatcherConfig представляет конфигурацию очереди событий
type DispatcherConfig struct {
	Capacity int `toml:"capacity"`
	Workers  int `toml:"workers"`
}

// MetricsConfig представляет конфигурацию prometheus метрик
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
	Listen    string `toml:"listen"`
}

// RunMode parses the configured mode.
func (c SchedulerConfig) RunMode() (clock.Mode, error) {
	return clock.ParseMode(c.Mode)
}

// Location resolves the configured timezone. Empty means the local zone.
func (c SchedulerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.WithHint(errors.Wrapf(err, "scheduler.timezone %q", c.Timezone),
			"use an IANA zone name such as Europe/Moscow or UTC")
	}
	return loc, nil
}

// Poll parses the live driver's polling interval.
func (c SchedulerConfig) Poll() (time.Duration, error) {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0, errors.Wrapf(err, "scheduler.poll_interval %q", c.PollInterval)
	}
	if d <= 0 {
		return 0, errors.Newf("scheduler.poll_interval must be positive, got %s", d)
	}
	return d, nil
}

// Window parses the replay window in loc. Unset bounds are zero.
func (c SchedulerConfig) Window(loc *time.Location) (start, end time.Time, err error) {
	if c.Start != "" {
		if start, err = ParseTime(c.Start, loc); err != nil {
			return time.Time{}, time.Time{}, errors.Wrap(err, "scheduler.start")
		}
	}
	if c.End != "" {
		if end, err = ParseTime(c.End, loc); err != nil {
			return time.Time{}, time.Time{}, errors.Wrap(err, "scheduler.end")
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return time.Time{}, time.Time{}, errors.Newf("scheduler.end %s is before scheduler.start %s", c.End, c.Start)
	}
	return start, end, nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime accepts RFC 3339 timestamps and plain dates with an optional
// time of day. Values without an offset are read in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.WithHint(errors.Newf("invalid time %q", s),
		"use YYYY-MM-DD, YYYY-MM-DD HH:MM[:SS] or RFC 3339")
}
