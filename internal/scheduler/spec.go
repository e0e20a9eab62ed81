package scheduler

import (
	"reflect"
	"slices"

	"github.com/cockroachdb/errors"
)

// JobSpec describes a job before it is scheduled. It is a value: every
// builder method returns a modified copy, so a spec can be shared and
// extended without affecting other holders.
//
//	spec := scheduler.Every(3).To(5).Minutes().At("09:31").Tag("report")
//	job, err := mgr.Schedule(spec, scheduler.Call{Func: run})
type JobSpec struct {
	id      string
	unit    Unit
	step    int
	maxStep int
	at      string
	tags    []any
	err     error
}

// Every starts a periodic spec with a fixed step.
func Every(step int) JobSpec {
	return JobSpec{step: step, maxStep: step}
}

// OnceAt starts a one-shot spec firing at the given anchor text.
func OnceAt(at string) JobSpec {
	return JobSpec{unit: Once, step: 1, maxStep: 1, at: at}
}

// To turns the fixed step into a range: every occurrence draws its step
// uniformly from [step, maxStep].
func (s JobSpec) To(maxStep int) JobSpec {
	s.maxStep = maxStep
	return s
}

// WithUnit sets the recurrence unit.
func (s JobSpec) WithUnit(u Unit) JobSpec {
	s.unit = u
	return s
}

func (s JobSpec) Seconds() JobSpec { return s.WithUnit(Seconds) }
func (s JobSpec) Minutes() JobSpec { return s.WithUnit(Minutes) }
func (s JobSpec) Hours() JobSpec   { return s.WithUnit(Hours) }
func (s JobSpec) Days() JobSpec    { return s.WithUnit(Days) }
func (s JobSpec) Weeks() JobSpec   { return s.WithUnit(Weeks) }
func (s JobSpec) Months() JobSpec  { return s.WithUnit(Months) }
func (s JobSpec) Years() JobSpec   { return s.WithUnit(Years) }

// At sets the anchor text.
func (s JobSpec) At(text string) JobSpec {
	s.at = text
	return s
}

// Named sets the job id. Without it an id is generated.
func (s JobSpec) Named(id string) JobSpec {
	s.id = id
	return s
}

// Tag adds tags. A tag that cannot be a map key marks the spec invalid
// right away; Err reports it and Schedule refuses the spec.
func (s JobSpec) Tag(tags ...any) JobSpec {
	for _, tag := range tags {
		if err := checkTag(tag); err != nil && s.err == nil {
			s.err = err
		}
	}
	s.tags = append(slices.Clip(s.tags), tags...)
	return s
}

// Err returns the first error recorded while building the spec.
func (s JobSpec) Err() error {
	return s.err
}

func (s JobSpec) Unit() Unit { return s.unit }

// Validate reports whether the spec can be scheduled. Schedule calls it too.
func (s JobSpec) Validate() error {
	if s.err != nil {
		return s.err
	}
	if s.unit == unitUnset {
		return errors.WithHint(errors.Wrap(ErrConfig, "unit is not set"),
			"call one of Seconds, Minutes, Hours, Days, Weeks, Months, Years or use OnceAt")
	}
	if s.step < 1 {
		return errors.Wrapf(ErrConfig, "step must be positive, got %d", s.step)
	}
	if s.maxStep < s.step {
		return errors.Wrapf(ErrConfig, "max step %d is less than step %d", s.maxStep, s.step)
	}
	return nil
}

func checkTag(tag any) error {
	if !reflect.ValueOf(tag).Comparable() {
		return errors.Wrapf(ErrInvalidTag, "%T", tag)
	}
	return nil
}
