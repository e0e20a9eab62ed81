package scheduler

import "github.com/cockroachdb/errors"

var (
	// ErrConfig reports an incomplete or inconsistent JobSpec.
	ErrConfig = errors.New("invalid job configuration")
	// ErrInvalidTag reports a tag that cannot be used as a set member.
	ErrInvalidTag = errors.New("tag is not comparable")
	// ErrDuplicateJob reports a job id that is already registered.
	ErrDuplicateJob = errors.New("job id is already registered")
	// ErrAnchor reports anchor text that could not be parsed. It is only
	// logged; scheduling continues with the default anchor.
	ErrAnchor = errors.New("unrecognized anchor text")
)
