package core

import "errors"

// Error categories shared by every stage of a run. Wrap them with
// fmt.Errorf("...: %w", ErrX) and test with errors.Is.
var (
	// ErrNotFound marks a missing version or outcome file. The build is skipped.
	ErrNotFound = errors.New("not found")
	// ErrMalformedData marks a payload that could not be parsed. The build is skipped.
	ErrMalformedData = errors.New("malformed data")
	// ErrUpstreamUnavailable marks a failed network call that the run depends on.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrPolicyViolation marks a version that is not in the known release list.
	ErrPolicyViolation = errors.New("policy violation")
)
