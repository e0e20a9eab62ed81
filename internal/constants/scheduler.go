package constants

import "time"

// Scheduler constants shared by the engine, the CLI and the config loader.

// SchedulerRoutePrefix prefixes every job's dispatch route key.
const SchedulerRoutePrefix = "Scheduler."

// SchedulerJobIDPrefix prefixes generated job ids.
const SchedulerJobIDPrefix = "job-"

// SchedulerDefaultPollInterval is the live driver's polling quantum.
const SchedulerDefaultPollInterval = time.Second

// SchedulerLiveSourceName and SchedulerBackTrackSourceName name the drivers
// when registered with the dispatcher.
const (
	SchedulerLiveSourceName      = "scheduler.live"
	SchedulerBackTrackSourceName = "scheduler.backtrack"
)

// Heartbeat job settings: seconds in livetrack mode, minutes otherwise.
const (
	HeartbeatJobID   = "heartbeat"
	HeartbeatMinStep = 3
	HeartbeatMaxFast = 5
	HeartbeatMaxSlow = 15
)

// Built-in handlers for jobs declared in configuration.
const (
	HandlerLog  = "log"
	HandlerNoop = "noop"
)

// Tags attached to jobs by their origin, used to reload them as a group.
const (
	TagConfigJobs = "config"
	TagJobsFile   = "jobsfile"
)

// JobsFileDebounce delays a jobs file reload until writes settle.
const JobsFileDebounce = 500 * time.Millisecond
