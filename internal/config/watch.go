package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/aatumaykin/tempo/internal/constants"
	"github.com/aatumaykin/tempo/internal/logger"
	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
)

// JobsWatcher reloads the jobs file when it changes on disk.
type JobsWatcher struct {
	path     string
	debounce time.Duration
	logger   *logger.Logger
}

// NewJobsWatcher creates a watcher for the jobs file at path.
func NewJobsWatcher(path string, log *logger.Logger) *JobsWatcher {
	return &JobsWatcher{
		path:     path,
		debounce: constants.JobsFileDebounce,
		logger:   log.Component("jobs-watcher"),
	}
}

// Watch blocks until ctx is done and calls onReload with every version of
// the file that parses and validates. Broken versions are logged and the
// previous jobs stay in effect.
//
// The parent directory is watched rather than the file, so editors that
// replace the file through a rename are still seen.
func (w *JobsWatcher) Watch(ctx context.Context, onReload func([]JobConfig)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", dir)
	}
	base := filepath.Base(w.path)

	w.logger.Info("watching jobs file", logger.Field{Key: "path", Value: w.path})

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			w.logger.Debug("jobs file change detected", logger.Field{Key: "op", Value: ev.Op.String()})
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			reload = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("jobs file watcher error", logger.Field{Key: "error", Value: err.Error()})

		case <-reload:
			reload = nil
			jobs, err := LoadJobs(w.path)
			if err != nil {
				w.logger.Error("jobs file reload failed, keeping previous jobs", err)
				continue
			}
			w.logger.Info("jobs file reloaded", logger.Field{Key: "jobs", Value: len(jobs)})
			onReload(jobs)
		}
	}
}
