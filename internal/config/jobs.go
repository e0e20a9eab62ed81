package config

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aatumaykin/tempo/internal/constants"
	"github.com/aatumaykin/tempo/internal/scheduler"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// JobConfig declares a job in the config file or in the jobs file.
type JobConfig struct {
	ID      string         `toml:"id" yaml:"id"`
	Every   int            `toml:"every" yaml:"every"`
	To      int            `toml:"to" yaml:"to"`
	Unit    string         `toml:"unit" yaml:"unit"`
	At      string         `toml:"at" yaml:"at"`
	Tags    []string       `toml:"tags" yaml:"tags"`
	Handler string         `toml:"handler" yaml:"handler"`
	Args    []any          `toml:"args" yaml:"args"`
	Kwargs  map[string]any `toml:"kwargs" yaml:"kwargs"`
}

// Spec builds the scheduler spec for the job. Extra tags are added after
// the configured ones.
func (j JobConfig) Spec(extraTags ...any) (scheduler.JobSpec, error) {
	unit, err := scheduler.ParseUnit(j.Unit)
	if err != nil {
		return scheduler.JobSpec{}, err
	}

	var spec scheduler.JobSpec
	if unit == scheduler.Once {
		if strings.TrimSpace(j.At) == "" {
			return scheduler.JobSpec{}, errors.WithHint(errors.Wrap(scheduler.ErrConfig, "a once job needs an anchor"),
				`set at = "YYYY-MM-DD HH:MM"`)
		}
		spec = scheduler.OnceAt(j.At)
	} else {
		to := j.To
		if to == 0 {
			to = j.Every
		}
		spec = scheduler.Every(j.Every).To(to).WithUnit(unit).At(j.At)
	}

	if j.ID != "" {
		spec = spec.Named(j.ID)
	}
	for _, tag := range j.Tags {
		spec = spec.Tag(tag)
	}
	spec = spec.Tag(extraTags...)

	return spec, spec.Validate()
}

// ValidateJobs checks job declarations. field prefixes every message.
func ValidateJobs(jobs []JobConfig, field string) []error {
	var errs []error
	seen := make(map[string]int, len(jobs))

	for i, job := range jobs {
		name := jobLabel(field, i, job)

		if _, err := job.Spec(); err != nil {
			errs = append(errs, errors.Wrap(err, name))
		}
		if job.At != "" {
			if _, err := scheduler.ParseAnchor(job.At, time.Now()); err != nil {
				errs = append(errs, errors.Wrapf(err, "%s.at", name))
			}
		}
		if !oneOf(job.Handler, constants.HandlerLog, constants.HandlerNoop) {
			errs = append(errs, errors.Newf("%s.handler: unknown handler %q (expected: %s, %s)",
				name, job.Handler, constants.HandlerLog, constants.HandlerNoop))
		}
		if job.ID == "" {
			continue
		}
		if prev, dup := seen[job.ID]; dup {
			errs = append(errs, errors.Newf("%s: duplicate id %q (first declared at %s[%d])", name, job.ID, field, prev))
			continue
		}
		seen[job.ID] = i
	}

	return errs
}

func jobLabel(field string, i int, job JobConfig) string {
	if job.ID != "" {
		return field + "[" + job.ID + "]"
	}
	return field + "[" + strconv.Itoa(i) + "]"
}

type jobsFile struct {
	Jobs []JobConfig `yaml:"jobs"`
}

// LoadJobs reads a YAML jobs file, applies job defaults and validates the
// result. An empty file declares no jobs.
func LoadJobs(path string) ([]JobConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read jobs file")
	}

	var file jobsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "failed to parse jobs file %s", path)
	}

	applyJobDefaults(file.Jobs)

	if errs := ValidateJobs(file.Jobs, "jobs"); len(errs) > 0 {
		return nil, errors.WithDetailf(errors.Wrapf(errs[0], "jobs file %s", path),
			"%d invalid job declarations", len(errs))
	}
	return file.Jobs, nil
}
