// Package scheduler decides when registered jobs fire. It computes
// calendar-aware, optionally randomized recurrence instants, keeps the
// pending jobs ordered by their next run and hands fire events to a
// dispatcher through one of two drivers: LiveDriver polls the wall clock,
// BackTrackDriver drains jobs in time order for historical replay.
//
// The package never runs callbacks itself. A fire event carries the
// callback bound at Schedule time and the dispatcher invokes it.
package scheduler
