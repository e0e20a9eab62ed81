package config

import (
	"github.com/aatumaykin/tempo/internal/constants"
)

// applyDefaults применяет значения по умолчанию
func applyDefaults(c *Config) {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Scheduler.Mode == "" {
		c.Scheduler.Mode = "live"
	}
	if c.Scheduler.PollInterval == "" {
		c.Scheduler.PollInterval = constants.SchedulerDefaultPollInterval.String()
	}

	if c.Dispatcher.Capacity == 0 {
		c.Dispatcher.Capacity = constants.DefaultDispatcherCapacity
	}
	if c.Dispatcher.Workers == 0 {
		c.Dispatcher.Workers = constants.DefaultDispatcherWorkers
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = constants.DefaultMetricsNamespace
	}

	applyJobDefaults(c.Jobs)
}

func applyJobDefaults(jobs []JobConfig) {
	for i := range jobs {
		if jobs[i].Handler == "" {
			jobs[i].Handler = constants.HandlerLog
		}
		if jobs[i].Every == 0 && jobs[i].Unit != "once" {
			jobs[i].Every = 1
		}
	}
}
