package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/aatumaykin/tempo/internal/clock"
	"github.com/cockroachdb/errors"
	"github.com/wasilibs/go-re2"
)

// Load загружает конфигурацию из TOML файла
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.WithHint(errors.Newf("unknown config key %q", undecoded[0].String()),
			"check the key spelling against the documented sections")
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)

	return &cfg, nil
}

// Validate проверяет валидность конфигурации
func (c *Config) Validate() []error {
	var errs []error

	// Проверка logging config
	if !oneOf(c.Logging.Level, "debug", "info", "warn", "error") {
		errs = append(errs, errors.Newf("invalid logging.level: %q (expected: debug, info, warn, error)", c.Logging.Level))
	}
	if !oneOf(c.Logging.Format, "json", "text") {
		errs = append(errs, errors.Newf("invalid logging.format: %q (expected: json, text)", c.Logging.Format))
	}
	if c.Logging.Output == "" {
		errs = append(errs, errors.New("logging.output is required"))
	}

	// Проверка scheduler
	mode, err := c.Scheduler.RunMode()
	if err != nil {
		errs = append(errs, errors.Wrap(err, "scheduler.mode"))
	}
	loc, err := c.Scheduler.Location()
	if err != nil {
		errs = append(errs, err)
		loc = time.UTC
	}
	if _, err := c.Scheduler.Poll(); err != nil {
		errs = append(errs, err)
	}
	start, end, err := c.Scheduler.Window(loc)
	if err != nil {
		errs = append(errs, err)
	} else if mode == clock.ModeBackTrack && (start.IsZero() || end.IsZero()) {
		errs = append(errs, errors.WithHint(errors.New("scheduler.start and scheduler.end are required in backtrack mode"),
			"set both bounds of the replay window, or pass --start/--end to tempo replay"))
	}
	if c.Scheduler.WatchJobsFile && c.Scheduler.JobsFile == "" {
		errs = append(errs, errors.New("scheduler.watch_jobs_file requires scheduler.jobs_file"))
	}

	// Проверка dispatcher
	if c.Dispatcher.Capacity < 1 {
		errs = append(errs, errors.Newf("dispatcher.capacity must be >= 1 (got %d)", c.Dispatcher.Capacity))
	}
	if c.Dispatcher.Workers < 1 {
		errs = append(errs, errors.Newf("dispatcher.workers must be >= 1 (got %d)", c.Dispatcher.Workers))
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		errs = append(errs, errors.New("metrics.namespace is required when metrics are enabled"))
	}

	errs = append(errs, ValidateJobs(c.Jobs, "jobs")...)

	return errs
}

func oneOf(value string, allowed ...string) bool {
	value = strings.ToLower(value)
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// expandEnvVars расширяет переменные окружения в конфигурации
func expandEnvVars(c *Config) {
	c.Logging.Output = expandHome(expandEnv(c.Logging.Output))

	c.Scheduler.Mode = expandEnv(c.Scheduler.Mode)
	c.Scheduler.Timezone = expandEnv(c.Scheduler.Timezone)
	c.Scheduler.Start = expandEnv(c.Scheduler.Start)
	c.Scheduler.End = expandEnv(c.Scheduler.End)
	c.Scheduler.JobsFile = expandHome(expandEnv(c.Scheduler.JobsFile))

	c.Metrics.Listen = expandEnv(c.Metrics.Listen)

	for i := range c.Jobs {
		c.Jobs[i].At = expandEnv(c.Jobs[i].At)
	}
}

var envRef = re2.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([^}]*))?\}`)

// expandEnv заменяет ссылки формата ${VAR} и ${VAR:default}
func expandEnv(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		if val := os.Getenv(m[1]); val != "" {
			return val
		}
		return m[2]
	})
}

// expandHome расширяет ~ в пути
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
